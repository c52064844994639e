package services

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/storytime-app/storytime/pkg/engine"
	"github.com/storytime-app/storytime/pkg/story"
)

// Generator is the remote story source: one prompt in, one freshly
// generated scenario out. Implementations make a single attempt per
// call; the caller decides whether to re-prompt.
type Generator = engine.Generator

var (
	// ErrRequest marks a network or transport failure calling the
	// generation service.
	ErrRequest = errors.New("story generation request failed")

	// ErrFormat marks a response payload that cannot be parsed into
	// the expected scenario shape.
	ErrFormat = errors.New("malformed story generation response")
)

// generatedStory is the JSON shape every provider is prompted to return
// inside its own envelope.
type generatedStory struct {
	StoryText string `json:"story_text"`
	Choices   []struct {
		Text   string `json:"text"`
		Prompt string `json:"prompt"`
	} `json:"choices"`
}

// storyPrompt wraps the user's narrative context in the generation
// instructions shared by all providers.
func storyPrompt(prompt string) string {
	return fmt.Sprintf(`Generate a short interactive story segment based on this prompt: %s
Format the response exactly like this:
{
    "story_text": "The story segment text here...",
    "choices": [
        {
            "text": "First choice text",
            "prompt": "Continuation prompt for this choice"
        },
        {
            "text": "Second choice text",
            "prompt": "Continuation prompt for this choice"
        }
    ]
}
Make the story engaging and the choices meaningful. Each choice should lead to a different direction.`, prompt)
}

// parseGeneratedScenario decodes a provider's inner text payload into a
// scenario. Models often wrap JSON in markdown code fences; those are
// stripped before decoding.
func parseGeneratedScenario(text string) (*story.Scenario, error) {
	cleaned := stripCodeFence(text)

	var gs generatedStory
	if err := json.Unmarshal([]byte(cleaned), &gs); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFormat, err)
	}
	if gs.StoryText == "" {
		return nil, fmt.Errorf("%w: empty story_text", ErrFormat)
	}
	if len(gs.Choices) == 0 {
		return nil, fmt.Errorf("%w: no choices", ErrFormat)
	}

	sc := &story.Scenario{Text: gs.StoryText}
	for _, c := range gs.Choices {
		if c.Text == "" || c.Prompt == "" {
			return nil, fmt.Errorf("%w: choice missing text or prompt", ErrFormat)
		}
		sc.Choices = append(sc.Choices, story.Choice{Text: c.Text, Prompt: c.Prompt})
	}
	return sc, nil
}

func stripCodeFence(text string) string {
	s := strings.TrimSpace(text)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
