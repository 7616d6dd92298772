package store

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shineum/mailscribe/internal/apperr"
	"github.com/shineum/mailscribe/internal/draft"
)

func TestProfileStore_RoundTrip(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "config", "profile.json")
	s := NewProfileStore(path)

	assert.Equal(t, draft.Profile{}, s.Load(), "missing file should load as empty profile")

	p := draft.Profile{
		Name:    "Ayşe Yılmaz",
		Title:   "Backend <Engineer>",
		Skills:  "Go, PostgreSQL",
		Summary: "Builds mail & messaging systems",
	}
	require.NoError(t, s.Save(p))
	assert.Equal(t, p, s.Load())

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"name": "Ayşe Yılmaz"`, "non-ASCII text should be stored verbatim")
	assert.Contains(t, string(raw), "Backend <Engineer>")
	assert.NotContains(t, string(raw), `"phone"`)
}

func TestProfileStore_Corrupt(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "profile.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

	assert.Equal(t, draft.Profile{}, NewProfileStore(path).Load())
}

func TestProfileStore_DefaultPath(t *testing.T) {
	t.Parallel()

	assert.Equal(t, DefaultProfilePath, NewProfileStore("").Path())
}

func TestSettingsStore_Defaults(t *testing.T) {
	t.Parallel()

	s := NewSettingsStore(filepath.Join(t.TempDir(), "settings.yaml"))
	got, err := s.Load()
	require.NoError(t, err)
	assert.Equal(t, DefaultSettings(), got)
}

func TestSettingsStore_RoundTrip(t *testing.T) {
	t.Parallel()

	s := NewSettingsStore(filepath.Join(t.TempDir(), "config", "settings.yaml"))
	want := Settings{
		AIProvider:    "groq",
		Model:         "llama-3.1-8b-instant",
		Purpose:       "Internship application",
		RecipientName: "Dr. Weber",
		Language:      "German",
		Tone:          "Friendly",
		Length:        "short",
		MailProvider:  "outlook",
		SenderEmail:   "me@example.com",
	}
	require.NoError(t, s.Save(want))

	got, err := s.Load()
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestSettingsStore_PartialFileGetsDefaults(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "settings.yaml")
	require.NoError(t, os.WriteFile(path, []byte("tone: Concise\nmail_provider: outlook\n"), 0o644))

	got, err := NewSettingsStore(path).Load()
	require.NoError(t, err)
	assert.Equal(t, "Concise", got.Tone)
	assert.Equal(t, "outlook", got.MailProvider)
	assert.Equal(t, "gemini", got.AIProvider)
	assert.Equal(t, "Turkish", got.Language)
	assert.Equal(t, "medium", got.Length)
}

func TestSettingsStore_Corrupt(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "settings.yaml")
	require.NoError(t, os.WriteFile(path, []byte("tone: [unclosed\n"), 0o644))

	got, err := NewSettingsStore(path).Load()
	require.Error(t, err)
	assert.Equal(t, apperr.KindPersistence, apperr.Kind(err))
	assert.Equal(t, DefaultSettings(), got)
}

func TestSettingsStore_WithDefaults(t *testing.T) {
	t.Parallel()

	defaults := DefaultSettings()
	defaults.AIProvider = "groq"
	defaults.Language = "English"
	defaults.SenderEmail = "me@example.com"

	path := filepath.Join(t.TempDir(), "settings.yaml")
	s := NewSettingsStore(path, WithDefaults(defaults))

	got, err := s.Load()
	require.NoError(t, err)
	assert.Equal(t, defaults, got)

	require.NoError(t, os.WriteFile(path, []byte("language: German\n"), 0o644))
	got, err = s.Load()
	require.NoError(t, err)
	assert.Equal(t, "German", got.Language)
	assert.Equal(t, "groq", got.AIProvider)
	assert.Equal(t, "me@example.com", got.SenderEmail)
}
