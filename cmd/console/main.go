package main

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/storytime-app/storytime/internal/config"
	"github.com/storytime-app/storytime/internal/services"
	"github.com/storytime-app/storytime/pkg/engine"
	"github.com/storytime-app/storytime/pkg/story"
	"github.com/storytime-app/storytime/pkg/transcript"
)

type storyItem struct {
	Name  string
	File  string
	Graph *story.Graph
}

func main() {
	cfg := config.Load()

	stories, err := loadStories(cfg.DataDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load stories: %v\n", err)
		os.Exit(1)
	}
	if len(stories) == 0 {
		fmt.Fprintf(os.Stderr, "No stories found in %s\n", filepath.Join(cfg.DataDir, "stories"))
		os.Exit(1)
	}

	p := tea.NewProgram(NewConsoleUI(stories, newGenerator(cfg), transcriptSaver(cfg.DataDir)),
		tea.WithAltScreen(),
		tea.WithMouseCellMotion())
	if _, err := p.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error running program: %v\n", err)
		os.Exit(1)
	}
}

// newGenerator builds the configured story generator, or nil when no API
// key is set, in which case the picker offers built-in stories only.
func newGenerator(cfg *config.Config) engine.Generator {
	// The TUI owns the terminal, so service logs go nowhere.
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	switch strings.ToLower(cfg.GeneratorProvider) {
	case config.ProviderGemini:
		if cfg.GeminiAPIKey == "" {
			return nil
		}
		return services.NewGeminiService(cfg.GeminiAPIKey, cfg.ModelName, log)
	case config.ProviderOpenAI:
		if cfg.OpenAIAPIKey == "" {
			return nil
		}
		return services.NewOpenAIService(cfg.OpenAIAPIKey, cfg.ModelName, cfg.OpenAIBaseURL, log)
	default:
		return nil
	}
}

// transcriptSaver writes saved playthroughs to the data directory, one
// JSON file per transcript.
func transcriptSaver(dataDir string) func(*transcript.Transcript) (string, error) {
	dir := filepath.Join(dataDir, "transcripts")
	return func(t *transcript.Transcript) (string, error) {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return "", err
		}
		data, err := json.MarshalIndent(t, "", "  ")
		if err != nil {
			return "", err
		}
		path := filepath.Join(dir, t.ID.String()+".json")
		if err := os.WriteFile(path, data, 0o644); err != nil {
			return "", err
		}
		return path, nil
	}
}

// loadStories reads and validates every story graph in the data
// directory. Files that fail to parse or validate are skipped with a
// warning so one bad file does not take the whole picker down.
func loadStories(dataDir string) ([]storyItem, error) {
	dir := filepath.Join(dataDir, "stories")
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	titler := cases.Title(language.English)
	var stories []storyItem
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}

		data, err := os.ReadFile(filepath.Join(dir, entry.Name()))
		if err != nil {
			fmt.Fprintf(os.Stderr, "Warning: skipping %s: %v\n", entry.Name(), err)
			continue
		}

		var g story.Graph
		if err := json.Unmarshal(data, &g); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: skipping %s: %v\n", entry.Name(), err)
			continue
		}
		if err := g.Validate(); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: skipping %s: %v\n", entry.Name(), err)
			continue
		}

		name := g.Name
		if name == "" {
			name = titler.String(strings.ReplaceAll(strings.TrimSuffix(entry.Name(), ".json"), "_", " "))
		}
		stories = append(stories, storyItem{
			Name:  name,
			File:  entry.Name(),
			Graph: &g,
		})
	}

	sort.Slice(stories, func(i, j int) bool {
		return stories[i].Name < stories[j].Name
	})
	return stories, nil
}
