// Package sender routes send requests to the registered transport and turns
// the outcome into a Result the caller can show as-is.
package sender

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/shineum/mailscribe/internal/apperr"
	"github.com/shineum/mailscribe/internal/email"
	"github.com/shineum/mailscribe/internal/logging"
	"github.com/shineum/mailscribe/internal/metrics"
	"github.com/shineum/mailscribe/internal/provider"
)

// UnsupportedProvider is the Result.Error text for providers with no
// registered transport.
const UnsupportedProvider = "Unsupported provider"

// Result is the normalized outcome of one send. Error is empty when OK.
type Result struct {
	OK    bool
	Error string
}

// Sender dispatches requests by provider name.
type Sender struct {
	providers map[email.Provider]provider.Provider
	metrics   *metrics.Metrics
}

// Option configures a Sender.
type Option func(*Sender)

// WithMetrics records every attempt on m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Sender) { s.metrics = m }
}

// New registers each provider under its Name. A later provider with the same
// name replaces an earlier one.
func New(providers []provider.Provider, opts ...Option) *Sender {
	s := &Sender{providers: make(map[email.Provider]provider.Provider, len(providers))}
	for _, p := range providers {
		s.providers[email.Provider(p.Name())] = p
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Providers returns the registered provider names in sorted order.
func (s *Sender) Providers() []email.Provider {
	names := make([]email.Provider, 0, len(s.providers))
	for name := range s.providers {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Send validates req, hands it to the matching transport and reports the
// outcome. It never returns an error and never panics; failures are carried
// in Result.Error.
func (s *Sender) Send(ctx context.Context, req *email.SendRequest) (res Result) {
	if req == nil {
		err := apperr.NewConfigurationError("sender", "send request is required")
		slog.Warn("email send failed", logging.Err(err))
		return Result{Error: FormatError(err, "", "")}
	}

	name, known := email.ParseProvider(string(req.Provider))
	p, registered := s.providers[name]
	if !known || !registered {
		slog.Warn("unsupported provider", logging.Provider(string(req.Provider)))
		label := string(name)
		if !known {
			label = "unknown"
		}
		s.metrics.EmailSent(label, metrics.StatusUnsupported)
		return Result{Error: UnsupportedProvider}
	}

	defer func() {
		if r := recover(); r != nil {
			err := &apperr.TransportError{Provider: p.Name(), Err: fmt.Errorf("panic: %v", r)}
			res = s.failure(req, p.Name(), err)
		}
	}()

	if err := validate(req); err != nil {
		return s.failure(req, p.Name(), err)
	}

	if err := p.Send(ctx, req); err != nil {
		return s.failure(req, p.Name(), err)
	}

	slog.Info("email sent",
		logging.Provider(p.Name()),
		logging.Domain(req.RecipientEmail),
		slog.Int("attachments", len(req.Attachments)),
	)
	s.metrics.EmailSent(p.Name(), metrics.StatusOK)
	return Result{OK: true}
}

func validate(req *email.SendRequest) error {
	var missing []string
	if strings.TrimSpace(req.SenderEmail) == "" {
		missing = append(missing, "sender email")
	}
	if strings.TrimSpace(req.RecipientEmail) == "" {
		missing = append(missing, "recipient email")
	}
	if len(missing) > 0 {
		return apperr.NewConfigurationError("sender", "%s required", strings.Join(missing, " and "))
	}
	return nil
}

func (s *Sender) failure(req *email.SendRequest, name string, err error) Result {
	slog.Warn("email send failed",
		logging.Provider(name),
		logging.Domain(req.RecipientEmail),
		logging.Err(err),
	)
	s.metrics.EmailSent(name, metrics.StatusFailed)
	return Result{Error: FormatError(err, name, req.RecipientDomain())}
}

// FormatError renders err as "<Kind>: <message>" followed by a context line
// naming the provider, the failed stage when known, and the recipient domain.
func FormatError(err error, providerName, recipientDomain string) string {
	var parts []string
	if providerName != "" {
		parts = append(parts, "provider="+providerName)
	}
	var transErr *apperr.TransportError
	if errors.As(err, &transErr) && transErr.Stage != "" {
		parts = append(parts, "stage="+transErr.Stage)
	}
	if recipientDomain != "" {
		parts = append(parts, "recipient_domain="+recipientDomain)
	}
	if len(parts) == 0 {
		return fmt.Sprintf("%s: %v", apperr.Kind(err), err)
	}
	return fmt.Sprintf("%s: %v\n%s", apperr.Kind(err), err, strings.Join(parts, " "))
}
