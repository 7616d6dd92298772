// Package gemini implements a draft backend on the Gemini API.
package gemini

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"google.golang.org/genai"

	"github.com/shineum/mailscribe/internal/apperr"
)

// DefaultModel is used when Config.Model is empty.
const DefaultModel = "gemini-2.0-flash-lite"

const name = "gemini"

// Config holds the Gemini credentials and model. BaseURL and HTTPClient
// override the API location and transport.
type Config struct {
	APIKey     string
	Model      string
	BaseURL    string
	HTTPClient *http.Client
}

// Backend drafts emails with a Gemini model.
type Backend struct {
	client *genai.Client
	model  string
}

// New returns a Backend. A missing API key is a ConfigurationError.
func New(ctx context.Context, cfg Config) (*Backend, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, apperr.NewConfigurationError(name, "GEMINI_API_KEY is missing or empty")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:      cfg.APIKey,
		Backend:     genai.BackendGeminiAPI,
		HTTPClient:  cfg.HTTPClient,
		HTTPOptions: genai.HTTPOptions{BaseURL: cfg.BaseURL},
	})
	if err != nil {
		return nil, apperr.NewConfigurationError(name, "creating client: %v", err)
	}

	model := cfg.Model
	if model == "" {
		model = DefaultModel
	}
	return &Backend{client: client, model: model}, nil
}

// Name returns "gemini".
func (b *Backend) Name() string {
	return name
}

// Model returns the configured model.
func (b *Backend) Model() string {
	return b.model
}

// Complete sends prompt as a single user turn and returns the text of the
// first candidate.
func (b *Backend) Complete(ctx context.Context, prompt string) (string, error) {
	contents := []*genai.Content{genai.NewContentFromText(prompt, genai.RoleUser)}
	config := &genai.GenerateContentConfig{ResponseMIMEType: "application/json"}

	resp, err := b.client.Models.GenerateContent(ctx, b.model, contents, config)
	if err != nil {
		var apiErr genai.APIError
		if errors.As(err, &apiErr) && (apiErr.Code == http.StatusUnauthorized || apiErr.Code == http.StatusForbidden) {
			return "", apperr.NewConfigurationError(name, "API key rejected (HTTP %d): %s", apiErr.Code, apiErr.Message)
		}
		return "", &apperr.GenerationError{Backend: name, Err: err}
	}

	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		reason := "no candidates"
		if resp.PromptFeedback != nil && resp.PromptFeedback.BlockReason != "" {
			reason = fmt.Sprintf("prompt blocked: %s", resp.PromptFeedback.BlockReason)
		}
		return "", &apperr.GenerationError{Backend: name, Err: errors.New(reason)}
	}

	var text strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if part != nil && !part.Thought {
			text.WriteString(part.Text)
		}
	}
	return text.String(), nil
}
