package handlers

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/storytime-app/storytime/internal/storage"
	"github.com/storytime-app/storytime/pkg/story"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelError, // Reduce noise in tests
	}))
}

func crossroadsGraph() *story.Graph {
	return &story.Graph{
		Name:  "Crossroads",
		Start: "opening",
		Scenarios: map[string]story.Scenario{
			"opening": {
				Title: "Opening",
				Text:  "You stand at a crossroads.",
				Choices: []story.Choice{
					{Text: "Go left", Consequence: "Left it is.", Next: "forest"},
					{Text: "Stay put", Consequence: "You wait until nightfall."},
				},
			},
			"forest": {
				Title: "Forest",
				Text:  "Trees close in around you.",
				Choices: []story.Choice{
					{Text: "Turn back", Consequence: "The crossroads again.", Next: "opening"},
				},
			},
		},
	}
}

func newSessionsEnv() (*SessionsHandler, *storage.MockStorage) {
	mockStorage := storage.NewMockStorage()
	mockStorage.Graphs["crossroads.json"] = crossroadsGraph()
	return NewSessionsHandler(testLogger(), mockStorage), mockStorage
}

func createSession(t *testing.T, handler *SessionsHandler) SessionView {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/v1/sessions", strings.NewReader(`{"story":"crossroads.json"}`))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusCreated {
		t.Fatalf("Expected status 201, got %d. Response body: %s", rr.Code, rr.Body.String())
	}
	var view SessionView
	if err := json.NewDecoder(rr.Body).Decode(&view); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	return view
}

func postAction(t *testing.T, handler *SessionsHandler, id uuid.UUID, action, body string) (*httptest.ResponseRecorder, SessionView) {
	t.Helper()
	url := fmt.Sprintf("/v1/sessions/%s/%s", id, action)
	req := httptest.NewRequest(http.MethodPost, url, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	var view SessionView
	if rr.Code == http.StatusOK {
		if err := json.NewDecoder(rr.Body).Decode(&view); err != nil {
			t.Fatalf("Failed to decode response: %v", err)
		}
	}
	return rr, view
}

func TestSessionsHandler_Create(t *testing.T) {
	handler, mockStorage := newSessionsEnv()

	view := createSession(t, handler)

	if view.ID == uuid.Nil {
		t.Error("Expected non-nil session ID")
	}
	if view.Current != "opening" || view.StoryText != "You stand at a crossroads." {
		t.Errorf("Unexpected opening state: %+v", view)
	}
	if len(view.Choices) != 2 {
		t.Errorf("Expected 2 choices, got %d", len(view.Choices))
	}
	if _, ok := mockStorage.Sessions[view.ID]; !ok {
		t.Error("Expected session snapshot to be saved")
	}
}

func TestSessionsHandler_CreateErrors(t *testing.T) {
	handler, _ := newSessionsEnv()

	tests := []struct {
		name           string
		body           string
		expectedStatus int
	}{
		{"unknown story", `{"story":"missing.json"}`, http.StatusNotFound},
		{"missing story field", `{}`, http.StatusBadRequest},
		{"invalid JSON", `{invalid`, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/v1/sessions", strings.NewReader(tt.body))
			rr := httptest.NewRecorder()
			handler.ServeHTTP(rr, req)
			if rr.Code != tt.expectedStatus {
				t.Errorf("Expected status %d, got %d. Response body: %s", tt.expectedStatus, rr.Code, rr.Body.String())
			}
		})
	}
}

func TestSessionsHandler_ChoiceAndCommit(t *testing.T) {
	handler, _ := newSessionsEnv()
	view := createSession(t, handler)

	// Select the first choice: the consequence shows but the scenario
	// does not change yet.
	rr, view2 := postAction(t, handler, view.ID, "choice", `{"choice":0}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d. Response body: %s", rr.Code, rr.Body.String())
	}
	if !view2.ShowingConsequence || view2.ConsequenceText != "Left it is." {
		t.Errorf("Expected consequence to show: %+v", view2)
	}
	if view2.Current != "opening" {
		t.Errorf("Scenario changed before commit: %q", view2.Current)
	}
	if view2.CommitToken == 0 {
		t.Fatal("Expected a commit token")
	}

	// Commit with the token completes the transition.
	body := fmt.Sprintf(`{"token":%d}`, view2.CommitToken)
	rr, view3 := postAction(t, handler, view.ID, "commit", body)
	if rr.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d. Response body: %s", rr.Code, rr.Body.String())
	}
	if view3.Current != "forest" || view3.ShowingConsequence {
		t.Errorf("Expected transition to 'forest': %+v", view3)
	}
	if len(view3.History) != 2 {
		t.Errorf("Expected 2 history entries, got %d", len(view3.History))
	}

	// Re-sending the same commit is a harmless no-op.
	rr, view4 := postAction(t, handler, view.ID, "commit", body)
	if rr.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", rr.Code)
	}
	if view4.Current != "forest" || len(view4.History) != 2 {
		t.Errorf("Repeat commit changed state: %+v", view4)
	}
}

func TestSessionsHandler_ChoiceErrors(t *testing.T) {
	handler, _ := newSessionsEnv()
	view := createSession(t, handler)

	// Out of range.
	rr, _ := postAction(t, handler, view.ID, "choice", `{"choice":7}`)
	if rr.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400, got %d", rr.Code)
	}

	// Valid selection, then a second selection while pending.
	rr, _ = postAction(t, handler, view.ID, "choice", `{"choice":0}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", rr.Code)
	}
	rr, _ = postAction(t, handler, view.ID, "choice", `{"choice":1}`)
	if rr.Code != http.StatusConflict {
		t.Errorf("Expected status 409 for selection while pending, got %d", rr.Code)
	}

	// Unknown session.
	rr, _ = postAction(t, handler, uuid.New(), "choice", `{"choice":0}`)
	if rr.Code != http.StatusNotFound {
		t.Errorf("Expected status 404, got %d", rr.Code)
	}
}

func TestSessionsHandler_BackCancelsPendingCommit(t *testing.T) {
	handler, _ := newSessionsEnv()
	view := createSession(t, handler)

	_, choiceView := postAction(t, handler, view.ID, "choice", `{"choice":0}`)

	// The reader goes back before the delayed commit arrives.
	rr, backView := postAction(t, handler, view.ID, "back", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", rr.Code)
	}
	if backView.Current != "opening" || backView.ShowingConsequence {
		t.Errorf("Expected return to opening: %+v", backView)
	}
	if len(backView.History) != 0 {
		t.Errorf("Expected empty history, got %d entries", len(backView.History))
	}

	// The stale commit arrives late and changes nothing.
	body := fmt.Sprintf(`{"token":%d}`, choiceView.CommitToken)
	rr, commitView := postAction(t, handler, view.ID, "commit", body)
	if rr.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", rr.Code)
	}
	if commitView.Current != "opening" {
		t.Errorf("Stale commit moved the session to %q", commitView.Current)
	}

	// A new selection gets a fresh token; replaying the undone
	// selection's token still commits nothing.
	_, choiceView2 := postAction(t, handler, view.ID, "choice", `{"choice":1}`)
	if choiceView2.CommitToken == choiceView.CommitToken {
		t.Fatalf("Expected a fresh commit token, got %d again", choiceView2.CommitToken)
	}
	rr, replayView := postAction(t, handler, view.ID, "commit", body)
	if rr.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", rr.Code)
	}
	if replayView.Current != "opening" || !replayView.ShowingConsequence {
		t.Errorf("Replayed token committed the new selection: %+v", replayView)
	}
}

func TestSessionsHandler_BackAtStartExitsStory(t *testing.T) {
	handler, _ := newSessionsEnv()
	view := createSession(t, handler)

	rr, backView := postAction(t, handler, view.ID, "back", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", rr.Code)
	}
	if !backView.ExitStory {
		t.Error("Expected exit_story at the opening scenario")
	}
}

func TestSessionsHandler_TerminalChoice(t *testing.T) {
	handler, _ := newSessionsEnv()
	view := createSession(t, handler)

	_, choiceView := postAction(t, handler, view.ID, "choice", `{"choice":1}`) // Stay put (terminal)
	body := fmt.Sprintf(`{"token":%d}`, choiceView.CommitToken)
	rr, endView := postAction(t, handler, view.ID, "commit", body)
	if rr.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", rr.Code)
	}
	if !endView.Ended {
		t.Error("Expected story to end")
	}
	if len(endView.Choices) != 0 {
		t.Errorf("Expected no choices after ending, got %d", len(endView.Choices))
	}

	rr, _ = postAction(t, handler, view.ID, "choice", `{"choice":0}`)
	if rr.Code != http.StatusConflict {
		t.Errorf("Expected status 409 after ending, got %d", rr.Code)
	}
}

func TestSessionsHandler_GetAndDelete(t *testing.T) {
	handler, mockStorage := newSessionsEnv()
	view := createSession(t, handler)

	req := httptest.NewRequest(http.MethodGet, "/v1/sessions/"+view.ID.String(), nil)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", rr.Code)
	}
	var got SessionView
	if err := json.NewDecoder(rr.Body).Decode(&got); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if got.ID != view.ID || got.Current != "opening" {
		t.Errorf("Unexpected session view: %+v", got)
	}

	req = httptest.NewRequest(http.MethodDelete, "/v1/sessions/"+view.ID.String(), nil)
	rr = httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	if rr.Code != http.StatusNoContent {
		t.Errorf("Expected status 204, got %d", rr.Code)
	}
	if _, ok := mockStorage.Sessions[view.ID]; ok {
		t.Error("Expected session to be deleted")
	}

	req = httptest.NewRequest(http.MethodGet, "/v1/sessions/"+view.ID.String(), nil)
	rr = httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	if rr.Code != http.StatusNotFound {
		t.Errorf("Expected status 404 after delete, got %d", rr.Code)
	}
}

func TestSessionsHandler_BadRequests(t *testing.T) {
	handler, _ := newSessionsEnv()

	req := httptest.NewRequest(http.MethodGet, "/v1/sessions/not-a-uuid", nil)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	if rr.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400 for bad UUID, got %d", rr.Code)
	}

	req = httptest.NewRequest(http.MethodPut, "/v1/sessions", nil)
	rr = httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	if rr.Code != http.StatusMethodNotAllowed {
		t.Errorf("Expected status 405, got %d", rr.Code)
	}
}
