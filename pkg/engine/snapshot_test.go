package engine

import (
	"encoding/json"
	"testing"

	"github.com/google/uuid"
)

func TestSnapshot_RoundTrip(t *testing.T) {
	g := loadGraph(t, "haven.json")
	s, err := NewSession(g)
	if err != nil {
		t.Fatalf("NewSession failed: %v", err)
	}
	step(t, s, 0)
	step(t, s, 1) // surface_breach

	id := uuid.New()
	snap := s.Snapshot(id, "haven.json")

	// Snapshots travel through storage as JSON.
	data, err := json.Marshal(snap)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	var decoded Snapshot
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	if decoded.ID != id || decoded.Story != "haven.json" {
		t.Errorf("Unexpected identity: %s %s", decoded.ID, decoded.Story)
	}

	restored, err := Restore(g, &decoded)
	if err != nil {
		t.Fatalf("Restore failed: %v", err)
	}

	if restored.Current() != s.Current() {
		t.Errorf("Current: expected %q, got %q", s.Current(), restored.Current())
	}
	if restored.Depth() != s.Depth() {
		t.Errorf("Depth: expected %d, got %d", s.Depth(), restored.Depth())
	}
	if len(restored.History()) != len(s.History()) {
		t.Fatalf("History: expected %d entries, got %d", len(s.History()), len(restored.History()))
	}
	for i, want := range s.History() {
		if restored.History()[i] != want {
			t.Errorf("History[%d]: expected %+v, got %+v", i, want, restored.History()[i])
		}
	}

	// The restored session continues normally, including back-navigation.
	if !restored.GoBack() {
		t.Fatal("Expected GoBack to succeed on restored session")
	}
	if restored.Current() != "ceremony_horror" {
		t.Errorf("Expected 'ceremony_horror' after GoBack, got %q", restored.Current())
	}
}

func TestSnapshot_PendingChoiceSurvives(t *testing.T) {
	g := loadGraph(t, "haven.json")
	s, err := NewSession(g)
	if err != nil {
		t.Fatalf("NewSession failed: %v", err)
	}
	if _, err := s.SelectChoice(0); err != nil {
		t.Fatalf("SelectChoice failed: %v", err)
	}

	snap := s.Snapshot(uuid.New(), "haven.json")
	restored, err := Restore(g, snap)
	if err != nil {
		t.Fatalf("Restore failed: %v", err)
	}

	if !restored.ShowingConsequence() {
		t.Error("Expected restored session to be showing the consequence")
	}
	token := restored.PendingToken()
	if token == 0 {
		t.Fatal("Expected a pending commit token")
	}
	if err := restored.Commit(token); err != nil {
		t.Fatalf("Commit failed: %v", err)
	}
	if restored.Current() != "ceremony_horror" {
		t.Errorf("Expected 'ceremony_horror' after commit, got %q", restored.Current())
	}
}

func TestSnapshot_StaleTokenAfterBackAcrossRestores(t *testing.T) {
	g := loadGraph(t, "haven.json")
	id := uuid.New()

	// Each step round-trips through a snapshot, the way a stateless host
	// drives the engine: one restore per request.
	s, err := NewSession(g)
	if err != nil {
		t.Fatalf("NewSession failed: %v", err)
	}
	tokenA, err := s.SelectChoice(0)
	if err != nil {
		t.Fatalf("SelectChoice failed: %v", err)
	}

	s, err = Restore(g, s.Snapshot(id, "haven.json"))
	if err != nil {
		t.Fatalf("Restore failed: %v", err)
	}
	if !s.GoBack() {
		t.Fatal("Expected GoBack to succeed")
	}

	s, err = Restore(g, s.Snapshot(id, "haven.json"))
	if err != nil {
		t.Fatalf("Restore failed: %v", err)
	}
	tokenB, err := s.SelectChoice(1)
	if err != nil {
		t.Fatalf("SelectChoice failed: %v", err)
	}
	if tokenA == tokenB {
		t.Fatalf("Expected distinct tokens across restores, both are %d", tokenA)
	}

	// The first selection's timer fires late: its token must not commit
	// the second selection early.
	s, err = Restore(g, s.Snapshot(id, "haven.json"))
	if err != nil {
		t.Fatalf("Restore failed: %v", err)
	}
	if tokenA == s.PendingToken() {
		t.Fatal("Expected the undone selection's token to be stale")
	}
	if err := s.Commit(tokenA); err != nil {
		t.Fatalf("Commit failed: %v", err)
	}
	if !s.ShowingConsequence() || s.Current() != "cleaning_ritual" {
		t.Errorf("Stale commit applied a transition: at %q", s.Current())
	}

	if err := s.Commit(s.PendingToken()); err != nil {
		t.Fatalf("Commit failed: %v", err)
	}
	if s.Current() != "forbidden_confinement" {
		t.Errorf("Expected 'forbidden_confinement' after commit, got %q", s.Current())
	}
}

func TestSnapshot_EndedSessionRestores(t *testing.T) {
	g := loadGraph(t, "dragons_quest.json")
	s, err := NewSession(g)
	if err != nil {
		t.Fatalf("NewSession failed: %v", err)
	}
	step(t, s, 1) // Retreat silently

	restored, err := Restore(g, s.Snapshot(uuid.New(), "dragons_quest.json"))
	if err != nil {
		t.Fatalf("Restore failed: %v", err)
	}
	if !restored.Ended() {
		t.Error("Expected restored session to be ended")
	}
	if restored.Choices() != nil {
		t.Errorf("Expected nil choices, got %v", restored.Choices())
	}
	if restored.PendingToken() != 0 {
		t.Error("Expected no pending token on ended session")
	}
}

func TestRestore_UnknownScenario(t *testing.T) {
	g := loadGraph(t, "haven.json")
	snap := &Snapshot{ID: uuid.New(), Story: "haven.json", Current: "no_such_scene"}
	if _, err := Restore(g, snap); err == nil {
		t.Error("Expected restore of unknown scenario to fail")
	}
}
