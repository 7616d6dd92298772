package gemini

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shineum/mailscribe/internal/apperr"
	"github.com/shineum/mailscribe/internal/draft"
)

var _ draft.Backend = (*Backend)(nil)

func newTestBackend(t *testing.T, handler http.HandlerFunc) *Backend {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	b, err := New(context.Background(), Config{
		APIKey:     "test-key",
		BaseURL:    srv.URL + "/",
		HTTPClient: srv.Client(),
	})
	require.NoError(t, err)
	return b
}

func writeJSON(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write([]byte(body))
}

func TestComplete(t *testing.T) {
	t.Parallel()

	var path, key string
	var got struct {
		Contents []struct {
			Role  string `json:"role"`
			Parts []struct {
				Text string `json:"text"`
			} `json:"parts"`
		} `json:"contents"`
	}
	b := newTestBackend(t, func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		key = r.Header.Get("x-goog-api-key")
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		writeJSON(w, http.StatusOK, `{"candidates":[{"content":{"role":"model","parts":[{"text":"{\"subject\":\"Hi\","},{"text":"\"body\":\"Hello\"}"}]}}]}`)
	})

	text, err := b.Complete(context.Background(), "write an email")
	require.NoError(t, err)
	assert.Equal(t, `{"subject":"Hi","body":"Hello"}`, text)

	assert.True(t, strings.HasSuffix(path, "models/"+DefaultModel+":generateContent"), "path %q", path)
	assert.Equal(t, "test-key", key)
	require.Len(t, got.Contents, 1)
	assert.Equal(t, "user", got.Contents[0].Role)
	require.Len(t, got.Contents[0].Parts, 1)
	assert.Equal(t, "write an email", got.Contents[0].Parts[0].Text)
}

func TestComplete_SkipsThoughtParts(t *testing.T) {
	t.Parallel()

	b := newTestBackend(t, func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, `{"candidates":[{"content":{"parts":[{"text":"planning","thought":true},{"text":"{\"subject\":\"Hi\"}"}]}}]}`)
	})

	text, err := b.Complete(context.Background(), "prompt")
	require.NoError(t, err)
	assert.Equal(t, `{"subject":"Hi"}`, text)
}

func TestComplete_Errors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		status  int
		body    string
		kind    string
		message string
	}{
		{
			name:   "invalid key",
			status: http.StatusForbidden,
			body:   `{"error":{"code":403,"message":"API key not valid","status":"PERMISSION_DENIED"}}`,
			kind:   apperr.KindConfiguration,
		},
		{
			name:   "quota",
			status: http.StatusTooManyRequests,
			body:   `{"error":{"code":429,"message":"Resource exhausted","status":"RESOURCE_EXHAUSTED"}}`,
			kind:   apperr.KindGeneration,
		},
		{
			name:    "blocked prompt",
			status:  http.StatusOK,
			body:    `{"promptFeedback":{"blockReason":"SAFETY"}}`,
			kind:    apperr.KindGeneration,
			message: "prompt blocked: SAFETY",
		},
		{
			name:    "no candidates",
			status:  http.StatusOK,
			body:    `{}`,
			kind:    apperr.KindGeneration,
			message: "no candidates",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			b := newTestBackend(t, func(w http.ResponseWriter, _ *http.Request) {
				writeJSON(w, tt.status, tt.body)
			})

			_, err := b.Complete(context.Background(), "prompt")
			require.Error(t, err)
			assert.Equal(t, tt.kind, apperr.Kind(err))
			if tt.message != "" {
				assert.Contains(t, err.Error(), tt.message)
			}
		})
	}
}

func TestNew(t *testing.T) {
	t.Parallel()

	_, err := New(context.Background(), Config{})
	assert.True(t, apperr.IsConfiguration(err))

	b, err := New(context.Background(), Config{APIKey: "k", Model: "gemini-2.5-flash"})
	require.NoError(t, err)
	assert.Equal(t, "gemini", b.Name())
	assert.Equal(t, "gemini-2.5-flash", b.Model())
}

func TestGeneratorWithGemini(t *testing.T) {
	t.Parallel()

	b := newTestBackend(t, func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, `{"candidates":[{"content":{"parts":[{"text":"Here you go: {\"subject\":\"Q4 plan\",\"body\":\"Dear team,\\nSee below.\"}"}]}}]}`)
	})

	res, err := draft.NewGenerator(b).Generate(context.Background(), draft.Request{Purpose: "Q4 roadmap"})
	require.NoError(t, err)
	assert.False(t, res.Fallback)
	assert.Equal(t, "gemini", res.Backend)
	assert.Equal(t, draft.Draft{Subject: "Q4 plan", Body: "Dear team,\nSee below."}, res.Draft)
}
