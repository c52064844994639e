package storage

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/storytime-app/storytime/pkg/engine"
	"github.com/storytime-app/storytime/pkg/story"
	"github.com/storytime-app/storytime/pkg/transcript"
	"github.com/storytime-app/storytime/pkg/userstory"
)

// ErrNotFound is returned when a record or file does not exist.
var ErrNotFound = errors.New("not found")

// Storage is a unified interface for all persistence: built-in story
// graphs load from the filesystem data dir; user stories, transcripts,
// and session snapshots live in Redis.
type Storage interface {
	// Health and lifecycle
	Ping(ctx context.Context) error
	Close() error

	// Built-in graph operations (filesystem-backed, validated on load)
	ListGraphs(ctx context.Context) (map[string]string, error)
	GetGraph(ctx context.Context, filename string) (*story.Graph, error)

	// User-authored stories (whole-collection records)
	ListUserStories(ctx context.Context) ([]userstory.Story, error)
	SaveUserStory(ctx context.Context, s *userstory.Story) error
	DeleteUserStory(ctx context.Context, id uuid.UUID) error

	// Saved AI-story transcripts (whole-collection records)
	ListTranscripts(ctx context.Context) ([]transcript.Transcript, error)
	SaveTranscript(ctx context.Context, t *transcript.Transcript) error
	DeleteTranscript(ctx context.Context, id uuid.UUID) error

	// Reading-session snapshots (TTL-bounded)
	SaveSession(ctx context.Context, snap *engine.Snapshot) error
	LoadSession(ctx context.Context, id uuid.UUID) (*engine.Snapshot, error)
	DeleteSession(ctx context.Context, id uuid.UUID) error
}
