package store

import (
	"errors"
	"fmt"
	"io/fs"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/shineum/mailscribe/internal/apperr"
	"github.com/shineum/mailscribe/internal/atomicfile"
)

// DefaultSettingsPath is the settings location relative to the working directory.
const DefaultSettingsPath = "config/settings.yaml"

// Settings are the form defaults remembered between runs.
type Settings struct {
	AIProvider    string `mapstructure:"ai_provider" yaml:"ai_provider" json:"ai_provider"`
	Model         string `mapstructure:"model" yaml:"model,omitempty" json:"model,omitempty"`
	Purpose       string `mapstructure:"purpose" yaml:"purpose,omitempty" json:"purpose,omitempty"`
	RecipientName string `mapstructure:"recipient_name" yaml:"recipient_name,omitempty" json:"recipient_name,omitempty"`
	Language      string `mapstructure:"language" yaml:"language" json:"language"`
	Tone          string `mapstructure:"tone" yaml:"tone" json:"tone"`
	Length        string `mapstructure:"length" yaml:"length" json:"length"`
	MailProvider  string `mapstructure:"mail_provider" yaml:"mail_provider" json:"mail_provider"`
	SenderEmail   string `mapstructure:"sender_email" yaml:"sender_email,omitempty" json:"sender_email,omitempty"`
}

// DefaultSettings returns the settings used before anything is saved.
func DefaultSettings() Settings {
	return Settings{
		AIProvider:   "gemini",
		Language:     "Turkish",
		Tone:         "Professional",
		Length:       "medium",
		MailProvider: "gmail",
	}
}

// SettingsStore reads settings with viper and writes them with yaml.v3.
type SettingsStore struct {
	path     string
	defaults Settings
}

// SettingsOption configures a SettingsStore.
type SettingsOption func(*SettingsStore)

// WithDefaults replaces DefaultSettings as the values used for keys the
// document does not set.
func WithDefaults(d Settings) SettingsOption {
	return func(s *SettingsStore) { s.defaults = d }
}

// NewSettingsStore returns a store for path, or DefaultSettingsPath when empty.
func NewSettingsStore(path string, opts ...SettingsOption) *SettingsStore {
	if path == "" {
		path = DefaultSettingsPath
	}
	s := &SettingsStore{path: path, defaults: DefaultSettings()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Path returns the document location.
func (s *SettingsStore) Path() string {
	return s.path
}

// Load returns the stored settings with defaults for missing keys. A missing
// document yields the defaults.
func (s *SettingsStore) Load() (Settings, error) {
	defaults := s.defaults

	v := viper.New()
	v.SetConfigFile(s.path)
	v.SetConfigType("yaml")
	v.SetDefault("ai_provider", defaults.AIProvider)
	v.SetDefault("model", defaults.Model)
	v.SetDefault("purpose", defaults.Purpose)
	v.SetDefault("recipient_name", defaults.RecipientName)
	v.SetDefault("language", defaults.Language)
	v.SetDefault("tone", defaults.Tone)
	v.SetDefault("length", defaults.Length)
	v.SetDefault("mail_provider", defaults.MailProvider)
	v.SetDefault("sender_email", defaults.SenderEmail)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.Is(err, fs.ErrNotExist) || errors.As(err, &notFound) {
			return defaults, nil
		}
		return defaults, &apperr.PersistenceError{Op: "read settings", Path: s.path, Err: err}
	}

	var out Settings
	if err := v.Unmarshal(&out); err != nil {
		return defaults, &apperr.PersistenceError{Op: "parse settings", Path: s.path, Err: err}
	}
	return out, nil
}

// Save replaces the stored settings.
func (s *SettingsStore) Save(settings Settings) error {
	data, err := yaml.Marshal(settings)
	if err != nil {
		return &apperr.PersistenceError{Op: "encode settings", Path: s.path, Err: fmt.Errorf("marshaling yaml: %w", err)}
	}
	if err := atomicfile.WriteFile(s.path, data, 0o644); err != nil {
		return &apperr.PersistenceError{Op: "save settings", Path: s.path, Err: err}
	}
	return nil
}
