// Package groq implements a draft backend on Groq's OpenAI-compatible chat
// completions API.
package groq

import (
	"context"
	"errors"
	"net/http"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"github.com/shineum/mailscribe/internal/apperr"
)

const (
	// DefaultBaseURL is Groq's OpenAI-compatible endpoint.
	DefaultBaseURL = "https://api.groq.com/openai/v1"

	// DefaultModel is used when Config.Model is empty.
	DefaultModel = "llama-3.1-8b-instant"

	name = "groq"

	systemPrompt = "You are a professional email writing assistant. Reply with a single JSON object with the keys subject and body, and nothing else."
	temperature  = 0.7
)

// Config holds the Groq credentials and model.
type Config struct {
	APIKey     string
	Model      string
	BaseURL    string
	HTTPClient *http.Client
}

// Backend drafts emails with a Groq-hosted model.
type Backend struct {
	client *openai.Client
	model  string
}

// New returns a Backend. A missing API key is a ConfigurationError.
func New(cfg Config) (*Backend, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, apperr.NewConfigurationError(name, "GROQ_API_KEY is missing or empty")
	}

	clientCfg := openai.DefaultConfig(cfg.APIKey)
	clientCfg.BaseURL = DefaultBaseURL
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	if cfg.HTTPClient != nil {
		clientCfg.HTTPClient = cfg.HTTPClient
	}

	model := cfg.Model
	if model == "" {
		model = DefaultModel
	}

	return &Backend{
		client: openai.NewClientWithConfig(clientCfg),
		model:  model,
	}, nil
}

// Name returns "groq".
func (b *Backend) Name() string {
	return name
}

// Model returns the configured model.
func (b *Backend) Model() string {
	return b.model
}

// Complete sends prompt as the user message and returns the first choice.
func (b *Backend) Complete(ctx context.Context, prompt string) (string, error) {
	resp, err := b.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: b.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		Temperature: temperature,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	})
	if err != nil {
		var apiErr *openai.APIError
		if errors.As(err, &apiErr) && (apiErr.HTTPStatusCode == http.StatusUnauthorized || apiErr.HTTPStatusCode == http.StatusForbidden) {
			return "", apperr.NewConfigurationError(name, "API key rejected: %s", apiErr.Message)
		}
		return "", &apperr.GenerationError{Backend: name, Err: err}
	}
	if len(resp.Choices) == 0 {
		return "", &apperr.GenerationError{Backend: name, Err: errors.New("response has no choices")}
	}
	return resp.Choices[0].Message.Content, nil
}
