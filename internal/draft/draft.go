// Package draft produces email drafts from a purpose, a recipient and the
// sender's profile. A Backend does the writing; when it is missing or fails
// the Generator falls back to a deterministic offline template.
package draft

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/shineum/mailscribe/internal/apperr"
	"github.com/shineum/mailscribe/internal/logging"
	"github.com/shineum/mailscribe/internal/metrics"
)

// OfflineBackend is the Result.Backend value for template drafts.
const OfflineBackend = "offline"

// DefaultTone is used when a request leaves the tone empty.
const DefaultTone = "Professional"

// Draft is a generated subject and body.
type Draft struct {
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

// Request describes the email to draft. Only Purpose carries meaning on its
// own; every other field is optional.
type Request struct {
	Purpose           string  `json:"purpose"`
	RecipientName     string  `json:"recipient_name"`
	Tone              string  `json:"tone"`
	Language          string  `json:"language"`
	AdditionalContext string  `json:"additional_context"`
	Profile           Profile `json:"profile"`
	Length            Length  `json:"length"`
}

// normalized fills the defaults every renderer relies on.
func (r Request) normalized() Request {
	r.Purpose = strings.TrimSpace(r.Purpose)
	if r.Purpose == "" {
		r.Purpose = defaultPurpose
	}
	r.RecipientName = strings.TrimSpace(r.RecipientName)
	if strings.TrimSpace(r.Tone) == "" {
		r.Tone = DefaultTone
	}
	r.Length = ParseLength(string(r.Length))
	return r
}

// Result is the outcome of Generate. Fallback is set when the offline
// template was used, and Warning then says why.
type Result struct {
	Draft    Draft  `json:"draft"`
	Backend  string `json:"backend"`
	Fallback bool   `json:"fallback"`
	Warning  string `json:"warning,omitempty"`
}

// Backend sends a prompt to a language model and returns its raw reply.
type Backend interface {
	Name() string
	Complete(ctx context.Context, prompt string) (string, error)
}

// unavailable is a Backend that could not be constructed.
type unavailable struct {
	name string
	err  error
}

// Unavailable returns a Backend named name whose every call fails with err.
// It keeps a misconfigured backend's reason visible in fallback warnings.
func Unavailable(name string, err error) Backend {
	return unavailable{name: name, err: err}
}

func (u unavailable) Name() string { return u.name }

func (u unavailable) Complete(context.Context, string) (string, error) {
	return "", u.err
}

// Generator drafts emails with an optional Backend.
type Generator struct {
	backend         Backend
	defaultLanguage string
	strict          bool
	metrics         *metrics.Metrics
}

// Option configures a Generator.
type Option func(*Generator)

// WithDefaultLanguage sets the offline template language used when the
// request names a language without a template.
func WithDefaultLanguage(lang string) Option {
	return func(g *Generator) {
		if code, ok := languageCode(lang); ok {
			g.defaultLanguage = code
		}
	}
}

// WithStrict makes backend failures errors instead of offline fallbacks.
func WithStrict(strict bool) Option {
	return func(g *Generator) { g.strict = strict }
}

// WithMetrics records every draft request on m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(g *Generator) { g.metrics = m }
}

// NewGenerator returns a Generator using backend, which may be nil.
func NewGenerator(backend Backend, opts ...Option) *Generator {
	g := &Generator{
		backend:         backend,
		defaultLanguage: DefaultLanguage,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// BackendName returns the configured backend name, or "offline".
func (g *Generator) BackendName() string {
	if g.backend == nil {
		return OfflineBackend
	}
	return g.backend.Name()
}

// Generate drafts an email for req. Without strict mode it only returns an
// error when ctx is done; every backend problem degrades to the offline
// draft with a warning.
func (g *Generator) Generate(ctx context.Context, req Request) (Result, error) {
	req = req.normalized()

	d, err := g.complete(ctx, req)
	if err == nil {
		g.metrics.Draft(g.backend.Name(), metrics.OutcomeGenerated)
		return Result{Draft: d, Backend: g.backend.Name()}, nil
	}

	if g.strict || ctx.Err() != nil {
		g.metrics.Draft(g.BackendName(), metrics.OutcomeError)
		return Result{}, err
	}

	slog.Warn("using offline draft",
		logging.Backend(g.BackendName()),
		logging.Err(err),
	)
	g.metrics.Draft(g.BackendName(), metrics.OutcomeFallback)
	return Result{
		Draft:    offline(req, g.defaultLanguage),
		Backend:  OfflineBackend,
		Fallback: true,
		Warning:  err.Error(),
	}, nil
}

func (g *Generator) complete(ctx context.Context, req Request) (Draft, error) {
	if g.backend == nil {
		return Draft{}, apperr.NewConfigurationError("draft", "no AI backend configured")
	}

	text, err := g.backend.Complete(ctx, BuildPrompt(req))
	if err != nil {
		var genErr *apperr.GenerationError
		if errors.As(err, &genErr) || apperr.IsConfiguration(err) {
			return Draft{}, err
		}
		return Draft{}, &apperr.GenerationError{Backend: g.backend.Name(), Err: err}
	}
	if strings.TrimSpace(text) == "" {
		return Draft{}, &apperr.GenerationError{Backend: g.backend.Name(), Err: errors.New("empty response")}
	}
	return ParseResponse(text, req.Purpose), nil
}
