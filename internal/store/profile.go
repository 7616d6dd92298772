// Package store persists the sender profile and the remembered settings as
// whole documents, replaced atomically on every save.
package store

import (
	"encoding/json"
	"errors"
	"io"
	"io/fs"
	"log/slog"
	"os"

	"github.com/shineum/mailscribe/internal/apperr"
	"github.com/shineum/mailscribe/internal/atomicfile"
	"github.com/shineum/mailscribe/internal/draft"
	"github.com/shineum/mailscribe/internal/logging"
)

// DefaultProfilePath is the profile location relative to the working directory.
const DefaultProfilePath = "config/profile.json"

// ProfileStore reads and writes the profile JSON document.
type ProfileStore struct {
	path string
}

// NewProfileStore returns a store for path, or DefaultProfilePath when empty.
func NewProfileStore(path string) *ProfileStore {
	if path == "" {
		path = DefaultProfilePath
	}
	return &ProfileStore{path: path}
}

// Path returns the document location.
func (s *ProfileStore) Path() string {
	return s.path
}

// Load returns the stored profile. A missing or unreadable document yields
// an empty profile.
func (s *ProfileStore) Load() draft.Profile {
	var p draft.Profile
	data, err := os.ReadFile(s.path)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			slog.Warn("profile unreadable, using empty profile", slog.String("path", s.path), logging.Err(err))
		}
		return draft.Profile{}
	}
	if err := json.Unmarshal(data, &p); err != nil {
		slog.Warn("profile is not valid JSON, using empty profile", slog.String("path", s.path), logging.Err(err))
		return draft.Profile{}
	}
	return p
}

// Save replaces the stored profile.
func (s *ProfileStore) Save(p draft.Profile) error {
	err := atomicfile.WriteWith(s.path, 0o600, func(w io.Writer) error {
		enc := json.NewEncoder(w)
		enc.SetEscapeHTML(false)
		enc.SetIndent("", "  ")
		return enc.Encode(p)
	})
	if err != nil {
		return &apperr.PersistenceError{Op: "save profile", Path: s.path, Err: err}
	}
	return nil
}
