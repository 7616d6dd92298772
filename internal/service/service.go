// Package service ties drafting, sending and the local stores together into
// the two user-facing flows: draft an email, then send it.
package service

import (
	"context"
	"log/slog"
	"strings"

	"github.com/shineum/mailscribe/internal/draft"
	"github.com/shineum/mailscribe/internal/email"
	"github.com/shineum/mailscribe/internal/logging"
	"github.com/shineum/mailscribe/internal/metrics"
	"github.com/shineum/mailscribe/internal/sender"
	"github.com/shineum/mailscribe/internal/sentlog"
	"github.com/shineum/mailscribe/internal/store"
)

// Deps are the components a Service orchestrates. SentLog and Metrics may be
// nil.
type Deps struct {
	Generator *draft.Generator
	Sender    *sender.Sender
	Profiles  *store.ProfileStore
	Settings  *store.SettingsStore
	SentLog   *sentlog.Log
	Metrics   *metrics.Metrics
}

// Service runs the draft and send flows.
type Service struct {
	generator *draft.Generator
	sender    *sender.Sender
	profiles  *store.ProfileStore
	settings  *store.SettingsStore
	sentLog   *sentlog.Log
	metrics   *metrics.Metrics
}

// New returns a Service over deps. Missing stores use their default paths.
func New(deps Deps) *Service {
	s := &Service{
		generator: deps.Generator,
		sender:    deps.Sender,
		profiles:  deps.Profiles,
		settings:  deps.Settings,
		sentLog:   deps.SentLog,
		metrics:   deps.Metrics,
	}
	if s.generator == nil {
		s.generator = draft.NewGenerator(nil)
	}
	if s.sender == nil {
		s.sender = sender.New(nil)
	}
	if s.profiles == nil {
		s.profiles = store.NewProfileStore("")
	}
	if s.settings == nil {
		s.settings = store.NewSettingsStore("")
	}
	return s
}

// SendResult is the outcome of Send. Logged reports whether the sent-mail
// log row was written; Warning carries the reason when it was requested but
// failed.
type SendResult struct {
	OK      bool   `json:"ok"`
	Error   string `json:"error,omitempty"`
	Logged  bool   `json:"logged"`
	Warning string `json:"warning,omitempty"`
}

// Draft generates a draft for req. An empty profile is replaced by the stored
// one, and empty tone, language and length come from the saved settings.
func (s *Service) Draft(ctx context.Context, req draft.Request) (draft.Result, error) {
	if req.Profile.IsEmpty() {
		req.Profile = s.profiles.Load()
	}

	settings := s.Settings()
	if strings.TrimSpace(req.Tone) == "" {
		req.Tone = settings.Tone
	}
	if strings.TrimSpace(req.Language) == "" {
		req.Language = settings.Language
	}
	if strings.TrimSpace(string(req.Length)) == "" {
		req.Length = draft.Length(settings.Length)
	}

	return s.generator.Generate(ctx, req)
}

// Send delivers req and, when logIt is set and the send succeeded, appends a
// row to the sent-mail log. A log failure never turns a successful send into
// a failed one.
func (s *Service) Send(ctx context.Context, req *email.SendRequest, logIt bool) SendResult {
	res := s.sender.Send(ctx, req)
	out := SendResult{OK: res.OK, Error: res.Error}
	if !res.OK || !logIt {
		return out
	}

	if s.sentLog == nil {
		out.Warning = "sent mail log is not configured"
		return out
	}

	err := s.sentLog.Append(sentlog.Record{
		Provider:  req.Provider.Label(),
		Sender:    req.SenderEmail,
		Recipient: req.RecipientEmail,
		Subject:   req.Subject,
		Body:      req.Body,
	})
	if err != nil {
		slog.Warn("sent mail log append failed",
			logging.Provider(string(req.Provider)),
			logging.Err(err),
		)
		s.metrics.LogAppendFailed()
		out.Warning = err.Error()
		return out
	}
	out.Logged = true
	return out
}

// Providers returns the mail providers the sender can route to.
func (s *Service) Providers() []email.Provider {
	return s.sender.Providers()
}

// BackendName returns the name of the configured draft backend.
func (s *Service) BackendName() string {
	return s.generator.BackendName()
}

// Profile returns the stored sender profile.
func (s *Service) Profile() draft.Profile {
	return s.profiles.Load()
}

// SaveProfile replaces the stored sender profile.
func (s *Service) SaveProfile(p draft.Profile) error {
	return s.profiles.Save(p)
}

// Settings returns the saved settings. A load failure is logged and the
// defaults are returned.
func (s *Service) Settings() store.Settings {
	settings, err := s.settings.Load()
	if err != nil {
		slog.Warn("using default settings", logging.Err(err))
	}
	return settings
}

// SaveSettings replaces the saved settings.
func (s *Service) SaveSettings(settings store.Settings) error {
	return s.settings.Save(settings)
}

// SentLog returns the logged sends in insertion order, or nil when the log
// is not configured.
func (s *Service) SentLog() ([]sentlog.Record, error) {
	if s.sentLog == nil {
		return nil, nil
	}
	return s.sentLog.Records()
}
