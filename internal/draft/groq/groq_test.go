package groq

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shineum/mailscribe/internal/apperr"
	"github.com/shineum/mailscribe/internal/draft"
)

var _ draft.Backend = (*Backend)(nil)

type chatRequest struct {
	Model       string  `json:"model"`
	Temperature float32 `json:"temperature"`
	Messages    []struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	} `json:"messages"`
}

func newTestBackend(t *testing.T, handler http.HandlerFunc) *Backend {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	b, err := New(Config{APIKey: "gsk-test", BaseURL: srv.URL + "/openai/v1", HTTPClient: srv.Client()})
	require.NoError(t, err)
	return b
}

func TestComplete(t *testing.T) {
	t.Parallel()

	var got chatRequest
	b := newTestBackend(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/openai/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer gsk-test", r.Header.Get("Authorization"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id":"1","object":"chat.completion","choices":[{"index":0,"message":{"role":"assistant","content":"{\"subject\":\"Hi\",\"body\":\"Hello\"}"},"finish_reason":"stop"}]}`))
	})

	text, err := b.Complete(context.Background(), "write an email")
	require.NoError(t, err)
	assert.Equal(t, `{"subject":"Hi","body":"Hello"}`, text)

	assert.Equal(t, DefaultModel, got.Model)
	assert.InDelta(t, 0.7, got.Temperature, 0.001)
	require.Len(t, got.Messages, 2)
	assert.Equal(t, "system", got.Messages[0].Role)
	assert.Equal(t, "user", got.Messages[1].Role)
	assert.Equal(t, "write an email", got.Messages[1].Content)
}

func TestComplete_Errors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		status int
		body   string
		kind   string
	}{
		{
			name:   "unauthorized",
			status: http.StatusUnauthorized,
			body:   `{"error":{"message":"Invalid API Key","type":"invalid_request_error","code":"invalid_api_key"}}`,
			kind:   apperr.KindConfiguration,
		},
		{
			name:   "model not found",
			status: http.StatusNotFound,
			body:   `{"error":{"message":"model does not exist","type":"invalid_request_error"}}`,
			kind:   apperr.KindGeneration,
		},
		{
			name:   "no choices",
			status: http.StatusOK,
			body:   `{"id":"1","choices":[]}`,
			kind:   apperr.KindGeneration,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			b := newTestBackend(t, func(w http.ResponseWriter, _ *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			})

			_, err := b.Complete(context.Background(), "prompt")
			require.Error(t, err)
			assert.Equal(t, tt.kind, apperr.Kind(err))
		})
	}
}

func TestNew(t *testing.T) {
	t.Parallel()

	_, err := New(Config{})
	assert.True(t, apperr.IsConfiguration(err))

	b, err := New(Config{APIKey: "k", Model: "llama-3.3-70b-versatile"})
	require.NoError(t, err)
	assert.Equal(t, "groq", b.Name())
	assert.Equal(t, "llama-3.3-70b-versatile", b.Model())
}

func TestGeneratorWithGroq(t *testing.T) {
	t.Parallel()

	b := newTestBackend(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	res, err := draft.NewGenerator(b).Generate(context.Background(), draft.Request{Purpose: "Q4 roadmap"})
	require.NoError(t, err)
	assert.True(t, res.Fallback)
	assert.Equal(t, "Regarding: Q4 roadmap", res.Draft.Subject)
	assert.Contains(t, res.Warning, "groq")
}
