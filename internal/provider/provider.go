// Package provider defines the interface for mail delivery backends.
package provider

import (
	"context"

	"github.com/shineum/mailscribe/internal/email"
)

// Provider is the interface that mail delivery backends must implement.
// A Provider opens whatever connection it needs inside Send and releases it
// before returning; nothing is reused across calls.
type Provider interface {
	// Send renders and delivers a single request. The returned error is
	// nil only if the message was fully accepted.
	Send(ctx context.Context, req *email.SendRequest) error

	// Name returns the provider name used for routing and logging.
	Name() string
}
