package services

import (
	"context"
	"fmt"
	"log/slog"

	openai "github.com/sashabaranov/go-openai"

	"github.com/storytime-app/storytime/pkg/story"
)

// OpenAIService implements Generator against any OpenAI-compatible chat
// completion endpoint.
type OpenAIService struct {
	client    *openai.Client
	modelName string
	logger    *slog.Logger
}

var _ Generator = (*OpenAIService)(nil)

// NewOpenAIService creates a generator for the given model. baseURL is
// optional; when set it points the client at a compatible self-hosted
// endpoint.
func NewOpenAIService(apiKey, modelName, baseURL string, logger *slog.Logger) *OpenAIService {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	if modelName == "" {
		modelName = openai.GPT4oMini
	}
	return &OpenAIService{
		client:    openai.NewClientWithConfig(cfg),
		modelName: modelName,
		logger:    logger,
	}
}

// GenerateScenario sends one prompt as a single user message and parses
// the completion content into a scenario.
func (o *OpenAIService) GenerateScenario(ctx context.Context, prompt string) (*story.Scenario, error) {
	resp, err := o.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: o.modelName,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: storyPrompt(prompt)},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRequest, err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("%w: no completion choices", ErrFormat)
	}

	return parseGeneratedScenario(resp.Choices[0].Message.Content)
}
