// Package logging configures the process-wide slog logger and provides
// attribute helpers that keep personal data out of log lines.
package logging

import (
	"crypto/sha256"
	"encoding/hex"
	"io"
	"log/slog"
	"strings"
)

// Common log attribute keys.
const (
	KeyOperation = "operation"
	KeyProvider  = "provider"
	KeyBackend   = "backend"
	KeyUserHash  = "user_hash"
	KeyDomain    = "recipient_domain"
	KeyError     = "error"
)

// ParseLevel maps a level name to a slog.Level. Unknown names yield info.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// New builds a logger writing to w. format "text" selects the text handler;
// anything else produces JSON.
func New(w io.Writer, level, format string) *slog.Logger {
	opts := &slog.HandlerOptions{Level: ParseLevel(level)}

	var handler slog.Handler
	if strings.EqualFold(format, "text") {
		handler = slog.NewTextHandler(w, opts)
	} else {
		handler = slog.NewJSONHandler(w, opts)
	}
	return slog.New(handler)
}

// Setup installs a logger built by New as the slog default and returns it.
func Setup(w io.Writer, level, format string) *slog.Logger {
	logger := New(w, level, format)
	slog.SetDefault(logger)
	return logger
}

// Err returns an error attribute, or an empty group slog omits when err is nil.
func Err(err error) slog.Attr {
	if err == nil {
		return slog.Group("")
	}
	return slog.String(KeyError, err.Error())
}

// AnonymizeEmail returns a stable hash of an address so log lines can be
// correlated without exposing it.
func AnonymizeEmail(email string) string {
	if email == "" {
		return ""
	}
	hash := sha256.Sum256([]byte(strings.ToLower(email)))
	return "user:" + hex.EncodeToString(hash[:8])
}

// UserHash returns an attribute with the anonymized address.
func UserHash(email string) slog.Attr {
	return slog.String(KeyUserHash, AnonymizeEmail(email))
}

// ExtractDomain returns the part after the last '@', or "".
func ExtractDomain(email string) string {
	at := strings.LastIndex(email, "@")
	if at < 0 || at == len(email)-1 {
		return ""
	}
	return email[at+1:]
}

// Domain returns an attribute with the recipient's domain.
func Domain(email string) slog.Attr {
	return slog.String(KeyDomain, ExtractDomain(email))
}

// Provider returns an attribute naming the mail provider.
func Provider(name string) slog.Attr {
	return slog.String(KeyProvider, name)
}

// Backend returns an attribute naming the drafting backend.
func Backend(name string) slog.Attr {
	return slog.String(KeyBackend, name)
}
