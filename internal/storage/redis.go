package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/storytime-app/storytime/pkg/engine"
	"github.com/storytime-app/storytime/pkg/transcript"
	"github.com/storytime-app/storytime/pkg/userstory"
)

const (
	keyUserStories = "userstories"
	keyTranscripts = "transcripts"

	sessionKeyPrefix = "session:"
)

// RedisStorage implements the Storage interface using Redis for records
// and session snapshots, and the filesystem for built-in story graphs.
type RedisStorage struct {
	client     *redis.Client
	logger     *slog.Logger
	dataDir    string
	sessionTTL time.Duration
}

// Ensure RedisStorage implements Storage interface
var _ Storage = (*RedisStorage)(nil)

// NewRedisStorage creates a new Redis storage instance
func NewRedisStorage(redisURL string, dataDir string, sessionTTL time.Duration, logger *slog.Logger) *RedisStorage {
	rdb := redis.NewClient(&redis.Options{
		Addr: redisURL,
	})

	if dataDir == "" {
		dataDir = "./data"
	}
	if sessionTTL <= 0 {
		sessionTTL = 24 * time.Hour
	}

	return &RedisStorage{
		client:     rdb,
		logger:     logger,
		dataDir:    dataDir,
		sessionTTL: sessionTTL,
	}
}

func (r *RedisStorage) Ping(ctx context.Context) error {
	if err := r.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping failed: %w", err)
	}
	return nil
}

func (r *RedisStorage) Close() error {
	if err := r.client.Close(); err != nil {
		r.logger.Error("Failed to close Redis connection", "error", err)
		return err
	}
	return nil
}

// loadCollection reads a whole-value JSON collection. A missing key or
// an undecodable value both load as the empty collection: local records
// recover rather than propagate.
func loadCollection[T any](ctx context.Context, r *RedisStorage, key string) ([]T, error) {
	data, err := r.client.Get(ctx, key).Result()
	if err == redis.Nil {
		return []T{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", key, err)
	}

	var items []T
	if err := json.Unmarshal([]byte(data), &items); err != nil {
		r.logger.Warn("Discarding corrupt collection", "key", key, "error", err)
		return []T{}, nil
	}
	return items, nil
}

func saveCollection[T any](ctx context.Context, r *RedisStorage, key string, items []T) error {
	data, err := json.Marshal(items)
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", key, err)
	}
	if err := r.client.Set(ctx, key, string(data), 0).Err(); err != nil {
		return fmt.Errorf("failed to save %s: %w", key, err)
	}
	return nil
}

// User-authored stories

func (r *RedisStorage) ListUserStories(ctx context.Context) ([]userstory.Story, error) {
	return loadCollection[userstory.Story](ctx, r, keyUserStories)
}

// SaveUserStory replaces the story with the same ID, or appends it.
func (r *RedisStorage) SaveUserStory(ctx context.Context, s *userstory.Story) error {
	stories, err := r.ListUserStories(ctx)
	if err != nil {
		return err
	}

	replaced := false
	for i := range stories {
		if stories[i].ID == s.ID {
			stories[i] = *s
			replaced = true
			break
		}
	}
	if !replaced {
		stories = append(stories, *s)
	}
	return saveCollection(ctx, r, keyUserStories, stories)
}

func (r *RedisStorage) DeleteUserStory(ctx context.Context, id uuid.UUID) error {
	stories, err := r.ListUserStories(ctx)
	if err != nil {
		return err
	}
	kept := stories[:0]
	for _, s := range stories {
		if s.ID != id {
			kept = append(kept, s)
		}
	}
	if len(kept) == len(stories) {
		return fmt.Errorf("user story %s: %w", id, ErrNotFound)
	}
	return saveCollection(ctx, r, keyUserStories, kept)
}

// Saved transcripts

func (r *RedisStorage) ListTranscripts(ctx context.Context) ([]transcript.Transcript, error) {
	return loadCollection[transcript.Transcript](ctx, r, keyTranscripts)
}

// SaveTranscript replaces the transcript with the same ID, or appends it.
func (r *RedisStorage) SaveTranscript(ctx context.Context, t *transcript.Transcript) error {
	transcripts, err := r.ListTranscripts(ctx)
	if err != nil {
		return err
	}

	replaced := false
	for i := range transcripts {
		if transcripts[i].ID == t.ID {
			transcripts[i] = *t
			replaced = true
			break
		}
	}
	if !replaced {
		transcripts = append(transcripts, *t)
	}
	return saveCollection(ctx, r, keyTranscripts, transcripts)
}

func (r *RedisStorage) DeleteTranscript(ctx context.Context, id uuid.UUID) error {
	transcripts, err := r.ListTranscripts(ctx)
	if err != nil {
		return err
	}
	kept := transcripts[:0]
	for _, t := range transcripts {
		if t.ID != id {
			kept = append(kept, t)
		}
	}
	if len(kept) == len(transcripts) {
		return fmt.Errorf("transcript %s: %w", id, ErrNotFound)
	}
	return saveCollection(ctx, r, keyTranscripts, kept)
}

// Session snapshots

func (r *RedisStorage) SaveSession(ctx context.Context, snap *engine.Snapshot) error {
	snap.UpdatedAt = time.Now()

	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}

	key := sessionKeyPrefix + snap.ID.String()
	if err := r.client.Set(ctx, key, string(data), r.sessionTTL).Err(); err != nil {
		r.logger.Error("Failed to save session", "uuid", snap.ID, "error", err)
		return fmt.Errorf("failed to save session: %w", err)
	}
	return nil
}

func (r *RedisStorage) LoadSession(ctx context.Context, id uuid.UUID) (*engine.Snapshot, error) {
	key := sessionKeyPrefix + id.String()
	data, err := r.client.Get(ctx, key).Result()
	if err == redis.Nil {
		return nil, fmt.Errorf("session %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load session: %w", err)
	}

	var snap engine.Snapshot
	if err := json.Unmarshal([]byte(data), &snap); err != nil {
		return nil, fmt.Errorf("failed to unmarshal session: %w", err)
	}
	return &snap, nil
}

func (r *RedisStorage) DeleteSession(ctx context.Context, id uuid.UUID) error {
	key := sessionKeyPrefix + id.String()
	if err := r.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}
