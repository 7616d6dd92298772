// Package apperr defines the error taxonomy shared by the drafting, sending
// and persistence layers.
package apperr

import (
	"errors"
	"fmt"
)

// Kind names used in user-visible failure messages.
const (
	KindConfiguration = "ConfigurationError"
	KindTransport     = "TransportError"
	KindGeneration    = "GenerationError"
	KindPersistence   = "PersistenceError"
	KindUnknown       = "Error"
)

// ConfigurationError reports missing or invalid credentials and settings.
type ConfigurationError struct {
	Component string
	Message   string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Component, e.Message)
}

// NewConfigurationError returns a ConfigurationError for component.
func NewConfigurationError(component, format string, args ...any) *ConfigurationError {
	return &ConfigurationError{Component: component, Message: fmt.Sprintf(format, args...)}
}

// TransportError reports a failure while delivering a message. Stage names the
// step of the session that failed (connect, starttls, auth, mail, rcpt, data).
type TransportError struct {
	Provider string
	Stage    string
	Err      error
}

func (e *TransportError) Error() string {
	if e.Stage == "" {
		return fmt.Sprintf("%s: %v", e.Provider, e.Err)
	}
	return fmt.Sprintf("%s %s: %v", e.Provider, e.Stage, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// GenerationError reports a failed backend call or an unusable response.
type GenerationError struct {
	Backend string
	Err     error
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("%s generation failed: %v", e.Backend, e.Err)
}

func (e *GenerationError) Unwrap() error { return e.Err }

// PersistenceError reports a store read or write failure.
type PersistenceError struct {
	Op   string
	Path string
	Err  error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// Kind returns the taxonomy name of the first typed error in err's chain.
func Kind(err error) string {
	var (
		cfgErr   *ConfigurationError
		transErr *TransportError
		genErr   *GenerationError
		persErr  *PersistenceError
	)
	switch {
	case err == nil:
		return ""
	case errors.As(err, &transErr):
		return KindTransport
	case errors.As(err, &cfgErr):
		return KindConfiguration
	case errors.As(err, &genErr):
		return KindGeneration
	case errors.As(err, &persErr):
		return KindPersistence
	default:
		return KindUnknown
	}
}

// IsConfiguration reports whether err (or any error in its chain) is a ConfigurationError.
func IsConfiguration(err error) bool {
	var cfgErr *ConfigurationError
	return errors.As(err, &cfgErr)
}

// IsTransport reports whether err (or any error in its chain) is a TransportError.
func IsTransport(err error) bool {
	var transErr *TransportError
	return errors.As(err, &transErr)
}
