package storage

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/storytime-app/storytime/pkg/engine"
	"github.com/storytime-app/storytime/pkg/story"
	"github.com/storytime-app/storytime/pkg/transcript"
	"github.com/storytime-app/storytime/pkg/userstory"
)

// MockStorage is an in-memory implementation of Storage for testing
type MockStorage struct {
	Graphs      map[string]*story.Graph // filename -> graph
	UserStories []userstory.Story
	Transcripts []transcript.Transcript
	Sessions    map[uuid.UUID]*engine.Snapshot

	PingErr error
	FailAll bool
}

var _ Storage = (*MockStorage)(nil)

func NewMockStorage() *MockStorage {
	return &MockStorage{
		Graphs:   make(map[string]*story.Graph),
		Sessions: make(map[uuid.UUID]*engine.Snapshot),
	}
}

func (m *MockStorage) Ping(ctx context.Context) error { return m.PingErr }
func (m *MockStorage) Close() error                   { return nil }

func (m *MockStorage) ListGraphs(ctx context.Context) (map[string]string, error) {
	if m.FailAll {
		return nil, fmt.Errorf("storage error")
	}
	out := make(map[string]string, len(m.Graphs))
	for filename, g := range m.Graphs {
		out[g.Name] = filename
	}
	return out, nil
}

func (m *MockStorage) GetGraph(ctx context.Context, filename string) (*story.Graph, error) {
	if m.FailAll {
		return nil, fmt.Errorf("storage error")
	}
	g, ok := m.Graphs[filename]
	if !ok {
		return nil, fmt.Errorf("story %s: %w", filename, ErrNotFound)
	}
	return g, nil
}

func (m *MockStorage) ListUserStories(ctx context.Context) ([]userstory.Story, error) {
	if m.FailAll {
		return nil, fmt.Errorf("storage error")
	}
	return m.UserStories, nil
}

func (m *MockStorage) SaveUserStory(ctx context.Context, s *userstory.Story) error {
	if m.FailAll {
		return fmt.Errorf("storage error")
	}
	for i := range m.UserStories {
		if m.UserStories[i].ID == s.ID {
			m.UserStories[i] = *s
			return nil
		}
	}
	m.UserStories = append(m.UserStories, *s)
	return nil
}

func (m *MockStorage) DeleteUserStory(ctx context.Context, id uuid.UUID) error {
	for i := range m.UserStories {
		if m.UserStories[i].ID == id {
			m.UserStories = append(m.UserStories[:i], m.UserStories[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("user story %s: %w", id, ErrNotFound)
}

func (m *MockStorage) ListTranscripts(ctx context.Context) ([]transcript.Transcript, error) {
	if m.FailAll {
		return nil, fmt.Errorf("storage error")
	}
	return m.Transcripts, nil
}

func (m *MockStorage) SaveTranscript(ctx context.Context, t *transcript.Transcript) error {
	if m.FailAll {
		return fmt.Errorf("storage error")
	}
	for i := range m.Transcripts {
		if m.Transcripts[i].ID == t.ID {
			m.Transcripts[i] = *t
			return nil
		}
	}
	m.Transcripts = append(m.Transcripts, *t)
	return nil
}

func (m *MockStorage) DeleteTranscript(ctx context.Context, id uuid.UUID) error {
	for i := range m.Transcripts {
		if m.Transcripts[i].ID == id {
			m.Transcripts = append(m.Transcripts[:i], m.Transcripts[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("transcript %s: %w", id, ErrNotFound)
}

func (m *MockStorage) SaveSession(ctx context.Context, snap *engine.Snapshot) error {
	if m.FailAll {
		return fmt.Errorf("storage error")
	}
	m.Sessions[snap.ID] = snap
	return nil
}

func (m *MockStorage) LoadSession(ctx context.Context, id uuid.UUID) (*engine.Snapshot, error) {
	if m.FailAll {
		return nil, fmt.Errorf("storage error")
	}
	snap, ok := m.Sessions[id]
	if !ok {
		return nil, fmt.Errorf("session %s: %w", id, ErrNotFound)
	}
	return snap, nil
}

func (m *MockStorage) DeleteSession(ctx context.Context, id uuid.UUID) error {
	delete(m.Sessions, id)
	return nil
}
