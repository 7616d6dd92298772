package main

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/shineum/mailscribe/internal/config"
	"github.com/shineum/mailscribe/internal/credential"
	"github.com/shineum/mailscribe/internal/draft"
	"github.com/shineum/mailscribe/internal/draft/gemini"
	"github.com/shineum/mailscribe/internal/draft/groq"
	"github.com/shineum/mailscribe/internal/logging"
	"github.com/shineum/mailscribe/internal/metrics"
	"github.com/shineum/mailscribe/internal/provider"
	"github.com/shineum/mailscribe/internal/provider/graph"
	"github.com/shineum/mailscribe/internal/provider/ses"
	"github.com/shineum/mailscribe/internal/provider/smtp"
	"github.com/shineum/mailscribe/internal/provider/stdout"
	"github.com/shineum/mailscribe/internal/sender"
	"github.com/shineum/mailscribe/internal/sentlog"
	"github.com/shineum/mailscribe/internal/service"
	"github.com/shineum/mailscribe/internal/store"
)

// openKeyring is replaced in tests.
var openKeyring = credential.Open

// app holds what every subcommand needs: the configuration and the local
// stores. Network components are built on demand by service.
type app struct {
	cfg      *config.Config
	out      io.Writer
	metrics  *metrics.Metrics
	profiles *store.ProfileStore
	settings *store.SettingsStore
	sentLog  *sentlog.Log
}

// newApp loads .env files and configuration, installs the logger and opens
// the stores. It does not touch the keyring.
func newApp(opts *rootOptions, out io.Writer) (*app, error) {
	cfg, err := loadConfig(opts)
	if err != nil {
		return nil, err
	}
	return &app{
		cfg:      cfg,
		out:      out,
		metrics:  metrics.New(),
		profiles: store.NewProfileStore(cfg.Paths.Profile),
		settings: store.NewSettingsStore(cfg.Paths.Settings, store.WithDefaults(settingsDefaults(cfg))),
		sentLog:  sentlog.New(cfg.Paths.SentLog),
	}, nil
}

// loadConfig loads configuration from the specified path (YAML + env override)
// or from environment variables only if no path is given.
func loadConfig(opts *rootOptions) (*config.Config, error) {
	if err := config.LoadEnvFiles(opts.envFiles...); err != nil {
		return nil, err
	}

	var (
		cfg *config.Config
		err error
	)
	if opts.configFile != "" {
		cfg, err = config.LoadFromFile(opts.configFile)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return nil, err
	}
	if opts.logLevel != "" {
		cfg.Logging.Level = strings.ToLower(opts.logLevel)
	}

	logging.Setup(os.Stderr, cfg.Logging.Level, cfg.Logging.Format)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// settingsDefaults seeds unsaved settings from the configuration.
func settingsDefaults(cfg *config.Config) store.Settings {
	d := store.DefaultSettings()
	d.AIProvider = cfg.AI.Provider
	d.Language = cfg.Draft.Language
	d.Tone = cfg.Draft.Tone
	d.Length = cfg.Draft.Length
	d.MailProvider = cfg.Mail.Provider
	d.SenderEmail = cfg.Mail.Email
	return d
}

func modelFor(cfg *config.Config, aiProvider string) string {
	switch aiProvider {
	case config.AIProviderGemini:
		return cfg.AI.GeminiModel
	case config.AIProviderGroq:
		return cfg.AI.GroqModel
	default:
		return ""
	}
}

// currentSettings returns the saved settings, falling back to the defaults
// with a warning when the document is unreadable.
func (a *app) currentSettings() store.Settings {
	s, err := a.settings.Load()
	if err != nil {
		slog.Warn("using default settings", logging.Err(err))
	}
	return s
}

// loadSecrets fills empty secrets from the keyring unless disabled.
func (a *app) loadSecrets(opts *rootOptions) {
	if opts.noKeyring {
		return
	}
	creds, err := openKeyring(opts.keyringDir)
	if err != nil {
		slog.Debug("keyring unavailable", logging.Err(err))
		return
	}
	creds.Fill(&a.cfg.Mail.Password, credential.KeySMTPPassword)
	creds.Fill(&a.cfg.AI.GeminiAPIKey, credential.KeyGeminiAPIKey)
	creds.Fill(&a.cfg.AI.GroqAPIKey, credential.KeyGroqAPIKey)
	creds.Fill(&a.cfg.SES.SecretAccessKey, credential.KeySESSecretKey)
	creds.Fill(&a.cfg.Graph.ClientSecret, credential.KeyGraphClientSecret)
}

// service builds the draft backend named aiProvider (with model, or the
// configured model when empty) and every mail transport the configuration
// allows.
func (a *app) service(ctx context.Context, aiProvider, model string) *service.Service {
	gen := draft.NewGenerator(
		a.backend(ctx, aiProvider, model),
		draft.WithDefaultLanguage(a.cfg.Draft.Language),
		draft.WithStrict(a.cfg.AI.Strict),
		draft.WithMetrics(a.metrics),
	)
	return service.New(service.Deps{
		Generator: gen,
		Sender:    sender.New(a.providers(ctx), sender.WithMetrics(a.metrics)),
		Profiles:  a.profiles,
		Settings:  a.settings,
		SentLog:   a.sentLog,
		Metrics:   a.metrics,
	})
}

// backend returns nil for the offline provider. A backend that cannot be
// constructed is returned as draft.Unavailable so its reason reaches the
// fallback warning.
func (a *app) backend(ctx context.Context, aiProvider, model string) draft.Backend {
	aiProvider = strings.ToLower(strings.TrimSpace(aiProvider))
	if model == "" {
		model = modelFor(a.cfg, aiProvider)
	}

	switch aiProvider {
	case config.AIProviderGemini:
		b, err := gemini.New(ctx, gemini.Config{APIKey: a.cfg.AI.GeminiAPIKey, Model: model})
		if err != nil {
			return draft.Unavailable(aiProvider, err)
		}
		slog.Debug("using gemini backend", slog.String("model", b.Model()))
		return b
	case config.AIProviderGroq:
		b, err := groq.New(groq.Config{APIKey: a.cfg.AI.GroqAPIKey, Model: model})
		if err != nil {
			return draft.Unavailable(aiProvider, err)
		}
		slog.Debug("using groq backend", slog.String("model", b.Model()))
		return b
	case config.AIProviderOffline:
		return nil
	default:
		slog.Warn("unknown AI provider, using offline drafts", logging.Backend(aiProvider))
		return nil
	}
}

// providers returns the SMTP transports, the stdout dry run, and SES or
// Graph when configured.
func (a *app) providers(ctx context.Context) []provider.Provider {
	providers := []provider.Provider{
		smtp.NewGmail(),
		smtp.NewOutlook(),
		stdout.NewWithWriter(a.out),
	}

	if a.cfg.SESConfigured() {
		p, err := ses.New(ctx, ses.Config{
			Region:          a.cfg.SES.Region,
			AccessKeyID:     a.cfg.SES.AccessKeyID,
			SecretAccessKey: a.cfg.SES.SecretAccessKey,
			Sender:          a.cfg.SES.Sender,
		})
		if err != nil {
			slog.Error("failed to create SES provider", logging.Err(err))
		} else {
			providers = append(providers, p)
		}
	}

	if a.cfg.GraphConfigured() {
		p, err := graph.New(graph.Config{
			TenantID:     a.cfg.Graph.TenantID,
			ClientID:     a.cfg.Graph.ClientID,
			ClientSecret: a.cfg.Graph.ClientSecret,
			Sender:       a.cfg.Graph.Sender,
		})
		if err != nil {
			slog.Error("failed to create Graph provider", logging.Err(err))
		} else {
			providers = append(providers, p)
		}
	}

	return providers
}
