package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/storytime-app/storytime/pkg/story"
)

const (
	geminiBaseURL = "https://generativelanguage.googleapis.com/v1beta/models"

	DefaultGeminiModel = "gemini-pro"
)

// GeminiService implements Generator against the Gemini generateContent
// API.
type GeminiService struct {
	apiKey     string
	modelName  string
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
}

// Ensure GeminiService implements Generator
var _ Generator = (*GeminiService)(nil)

type geminiPart struct {
	Text string `json:"text"`
}

type geminiContent struct {
	Parts []geminiPart `json:"parts"`
}

type geminiRequest struct {
	Contents []geminiContent `json:"contents"`
}

type geminiCandidate struct {
	Content geminiContent `json:"content"`
}

type geminiResponse struct {
	Candidates []geminiCandidate `json:"candidates"`
	Error      *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error,omitempty"`
}

// NewGeminiService creates a new Gemini generator.
func NewGeminiService(apiKey, modelName string, logger *slog.Logger) *GeminiService {
	if modelName == "" {
		modelName = DefaultGeminiModel
	}
	return &GeminiService{
		apiKey:    apiKey,
		modelName: modelName,
		baseURL:   geminiBaseURL,
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
		logger: logger,
	}
}

// GenerateScenario sends one prompt and parses the inner story JSON out
// of the provider envelope. Transport failures wrap ErrRequest; any
// payload that does not match the expected shape wraps ErrFormat.
func (g *GeminiService) GenerateScenario(ctx context.Context, prompt string) (*story.Scenario, error) {
	reqBody := geminiRequest{
		Contents: []geminiContent{
			{Parts: []geminiPart{{Text: storyPrompt(prompt)}}},
		},
	}

	data, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/%s:generateContent?key=%s", g.baseURL, g.modelName, g.apiKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(data))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRequest, err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: reading response: %v", ErrRequest, err)
	}

	if resp.StatusCode != http.StatusOK {
		g.logger.Warn("Gemini request failed", "status", resp.StatusCode, "body", string(body))
		return nil, fmt.Errorf("%w: status %d", ErrRequest, resp.StatusCode)
	}

	var envelope geminiResponse
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFormat, err)
	}
	if envelope.Error != nil {
		return nil, fmt.Errorf("%w: %s", ErrRequest, envelope.Error.Message)
	}
	if len(envelope.Candidates) == 0 || len(envelope.Candidates[0].Content.Parts) == 0 {
		return nil, fmt.Errorf("%w: no candidates in response", ErrFormat)
	}

	return parseGeneratedScenario(envelope.Candidates[0].Content.Parts[0].Text)
}
