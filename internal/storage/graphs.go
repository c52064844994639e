package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/storytime-app/storytime/pkg/story"
)

// Built-in graph operations (filesystem-backed)

func (r *RedisStorage) ListGraphs(ctx context.Context) (map[string]string, error) {
	storiesDir := filepath.Join(r.dataDir, "stories")
	graphs := make(map[string]string)

	err := filepath.WalkDir(storiesDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() || filepath.Ext(path) != ".json" {
			return nil
		}

		file, err := os.ReadFile(path)
		if err != nil {
			r.logger.Warn("Failed to read story file", "path", path, "error", err)
			return nil
		}

		var g story.Graph
		if err := json.Unmarshal(file, &g); err != nil {
			r.logger.Warn("Failed to unmarshal story file", "path", path, "error", err)
			return nil
		}

		graphs[g.Name] = filepath.Base(path)
		return nil
	})

	if err != nil {
		r.logger.Error("Failed to walk stories directory", "error", err)
		return nil, fmt.Errorf("failed to list stories: %w", err)
	}

	return graphs, nil
}

// GetGraph loads and validates one built-in graph. A graph that fails
// integrity checks never reaches the engine.
func (r *RedisStorage) GetGraph(ctx context.Context, filename string) (*story.Graph, error) {
	if strings.Contains(filename, "..") || strings.Contains(filename, "/") {
		return nil, fmt.Errorf("invalid story filename: %s", filename)
	}

	path := filepath.Join(r.dataDir, "stories", filename)
	file, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("story %s: %w", filename, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to read story file: %w", err)
	}

	var g story.Graph
	if err := json.Unmarshal(file, &g); err != nil {
		return nil, fmt.Errorf("failed to unmarshal story: %w", err)
	}

	if err := g.Validate(); err != nil {
		return nil, err
	}

	return &g, nil
}
