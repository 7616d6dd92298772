// Package credential looks up secrets in the OS keyring. Secrets are only
// written on explicit request; sending and drafting never store anything.
package credential

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/99designs/keyring"

	"github.com/shineum/mailscribe/internal/logging"
)

const serviceName = "mailscribe"

// Keys under which secrets are stored.
const (
	KeySMTPPassword      = "smtp_password"
	KeyGeminiAPIKey      = "gemini_api_key"
	KeyGroqAPIKey        = "groq_api_key"
	KeySESSecretKey      = "ses_secret_access_key"
	KeyGraphClientSecret = "graph_client_secret"
)

// Keys lists every key the application reads.
var Keys = []string{
	KeySMTPPassword,
	KeyGeminiAPIKey,
	KeyGroqAPIKey,
	KeySESSecretKey,
	KeyGraphClientSecret,
}

// ErrNotFound is returned when a key has no stored value.
var ErrNotFound = errors.New("credential not found")

// Store wraps a keyring.
type Store struct {
	ring keyring.Keyring
}

// Open opens the system keyring, falling back to an encrypted file under
// fileDir when no system backend is available.
func Open(fileDir string) (*Store, error) {
	if fileDir == "" {
		fileDir = "~/.config/mailscribe/credentials"
	}
	ring, err := keyring.Open(keyring.Config{
		ServiceName: serviceName,
		AllowedBackends: []keyring.BackendType{
			keyring.KeychainBackend,
			keyring.SecretServiceBackend,
			keyring.WinCredBackend,
			keyring.PassBackend,
			keyring.FileBackend,
		},
		FileDir:                  fileDir,
		FilePasswordFunc:         keyring.FixedStringPrompt("mailscribe-file-key"),
		KeychainTrustApplication: true,
	})
	if err != nil {
		return nil, fmt.Errorf("opening keyring: %w", err)
	}
	return &Store{ring: ring}, nil
}

// New wraps an already opened keyring.
func New(ring keyring.Keyring) *Store {
	return &Store{ring: ring}
}

// Get retrieves the value stored under key.
func (s *Store) Get(key string) (string, error) {
	item, err := s.ring.Get(key)
	if err != nil {
		if errors.Is(err, keyring.ErrKeyNotFound) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("getting credential %q: %w", key, err)
	}
	return string(item.Data), nil
}

// Set stores value under key.
func (s *Store) Set(key, value string) error {
	err := s.ring.Set(keyring.Item{
		Key:   key,
		Data:  []byte(value),
		Label: serviceName + " " + key,
	})
	if err != nil {
		return fmt.Errorf("setting credential %q: %w", key, err)
	}
	return nil
}

// Delete removes key.
func (s *Store) Delete(key string) error {
	if err := s.ring.Remove(key); err != nil {
		if errors.Is(err, keyring.ErrKeyNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("deleting credential %q: %w", key, err)
	}
	return nil
}

// Fill sets *dst from the keyring when it is empty. Lookup failures leave
// *dst unchanged. A nil Store fills nothing.
func (s *Store) Fill(dst *string, key string) {
	if s == nil || *dst != "" {
		return
	}
	v, err := s.Get(key)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			slog.Debug("keyring lookup failed", slog.String("key", key), logging.Err(err))
		}
		return
	}
	*dst = v
}

// IsKnownKey reports whether key is one of Keys.
func IsKnownKey(key string) bool {
	for _, k := range Keys {
		if k == key {
			return true
		}
	}
	return false
}
