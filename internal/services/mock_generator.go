package services

import (
	"context"
	"sync"

	"github.com/storytime-app/storytime/pkg/story"
)

// MockGenerator is a mock implementation of Generator for testing
type MockGenerator struct {
	GenerateScenarioFunc func(ctx context.Context, prompt string) (*story.Scenario, error)

	// Track calls for testing
	GenerateScenarioCalls []string

	mu sync.Mutex
}

var _ Generator = (*MockGenerator)(nil)

// NewMockGenerator creates a new mock generator
func NewMockGenerator() *MockGenerator {
	return &MockGenerator{
		GenerateScenarioCalls: make([]string, 0),
	}
}

func (m *MockGenerator) GenerateScenario(ctx context.Context, prompt string) (*story.Scenario, error) {
	m.mu.Lock()
	m.GenerateScenarioCalls = append(m.GenerateScenarioCalls, prompt)
	m.mu.Unlock()

	if m.GenerateScenarioFunc != nil {
		return m.GenerateScenarioFunc(ctx, prompt)
	}

	return &story.Scenario{
		Text: "A mock scene unfolds.",
		Choices: []story.Choice{
			{Text: "Continue", Prompt: "continue the mock scene"},
			{Text: "Turn back", Prompt: "turn back from the mock scene"},
		},
	}, nil
}
