// Package config provides environment-variable-first configuration loading
// with optional YAML file and .env fallbacks.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/shineum/mailscribe/internal/apperr"
	"github.com/shineum/mailscribe/internal/email"
)

// AI provider names.
const (
	AIProviderGemini  = "gemini"
	AIProviderGroq    = "groq"
	AIProviderOffline = "offline"
)

// DefaultEnvFiles are loaded by LoadEnvFiles when no files are named. Earlier
// files win because existing variables are never overwritten.
var DefaultEnvFiles = []string{".env.local", ".env"}

// Config holds the complete application configuration.
type Config struct {
	AI      AIConfig      `yaml:"ai"`
	Mail    MailConfig    `yaml:"mail"`
	SES     SESConfig     `yaml:"ses"`
	Graph   GraphConfig   `yaml:"graph"`
	Draft   DraftConfig   `yaml:"draft"`
	Paths   PathsConfig   `yaml:"paths"`
	HTTP    HTTPConfig    `yaml:"http"`
	Logging LoggingConfig `yaml:"logging"`
}

// AIConfig selects and configures the draft backend.
type AIConfig struct {
	Provider     string `yaml:"provider"`
	GeminiAPIKey string `yaml:"gemini_api_key"`
	GeminiModel  string `yaml:"gemini_model"`
	GroqAPIKey   string `yaml:"groq_api_key"`
	GroqModel    string `yaml:"groq_model"`
	Strict       bool   `yaml:"strict"`
}

// MailConfig holds the default mail provider and SMTP account.
type MailConfig struct {
	Provider string `yaml:"provider"`
	Email    string `yaml:"email"`
	Password string `yaml:"password"`
}

// SESConfig holds AWS SES configuration.
type SESConfig struct {
	Region          string `yaml:"region"`
	AccessKeyID     string `yaml:"access_key_id"`
	SecretAccessKey string `yaml:"secret_access_key"`
	Sender          string `yaml:"sender"`
}

// GraphConfig holds Microsoft Graph API configuration.
type GraphConfig struct {
	TenantID     string `yaml:"tenant_id"`
	ClientID     string `yaml:"client_id"`
	ClientSecret string `yaml:"client_secret"`
	Sender       string `yaml:"sender"`
}

// DraftConfig holds drafting defaults.
type DraftConfig struct {
	Language string `yaml:"language"`
	Tone     string `yaml:"tone"`
	Length   string `yaml:"length"`
}

// PathsConfig holds the locations of the stored documents.
type PathsConfig struct {
	Profile  string `yaml:"profile"`
	Settings string `yaml:"settings"`
	SentLog  string `yaml:"sent_log"`
}

// HTTPConfig holds the API server configuration.
type HTTPConfig struct {
	Listen string `yaml:"listen"`
	Token  string `yaml:"token"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Load loads configuration from environment variables with sensible defaults.
// Environment variables always take precedence.
func Load() (*Config, error) {
	cfg := &Config{}
	cfg.applyDefaults()
	cfg.applyEnvVars()
	return cfg, nil
}

// LoadFromFile loads configuration from a YAML file as the base layer,
// then overrides with environment variables. Returns an error if the
// specified file path does not exist.
func LoadFromFile(path string) (*Config, error) {
	cfg := &Config{}
	cfg.applyDefaults()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	// Environment variables always override YAML values
	cfg.applyEnvVars()

	return cfg, nil
}

// LoadEnvFiles exports the variables of each existing dotenv file without
// overriding variables that are already set. Missing files are skipped.
func LoadEnvFiles(files ...string) error {
	if len(files) == 0 {
		files = DefaultEnvFiles
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("failed to load %s: %w", f, err)
		}
	}
	return nil
}

// Validate reports the first invalid provider selection.
func (c *Config) Validate() error {
	switch c.AI.Provider {
	case AIProviderGemini, AIProviderGroq, AIProviderOffline:
	default:
		return apperr.NewConfigurationError("config", "unknown AI_PROVIDER %q", c.AI.Provider)
	}
	if _, ok := email.ParseProvider(c.Mail.Provider); !ok {
		return apperr.NewConfigurationError("config", "unknown SMTP_PROVIDER %q", c.Mail.Provider)
	}
	return nil
}

// GraphConfigured returns true if the Graph application credentials are set.
func (c *Config) GraphConfigured() bool {
	return c.Graph.TenantID != "" &&
		c.Graph.ClientID != "" &&
		c.Graph.ClientSecret != ""
}

// SESConfigured returns true if an SES region is set.
func (c *Config) SESConfigured() bool {
	return c.SES.Region != ""
}

// applyDefaults sets sensible default values for all configuration fields.
func (c *Config) applyDefaults() {
	c.AI.Provider = AIProviderGemini
	c.AI.GeminiModel = "gemini-2.0-flash-lite"
	c.AI.GroqModel = "llama-3.1-8b-instant"
	c.Mail.Provider = string(email.ProviderGmail)
	c.Draft.Language = "Turkish"
	c.Draft.Tone = "Professional"
	c.Draft.Length = "medium"
	c.Paths.Profile = "config/profile.json"
	c.Paths.Settings = "config/settings.yaml"
	c.Paths.SentLog = "logs/sent_emails.xlsx"
	c.HTTP.Listen = "127.0.0.1:8080"
	c.Logging.Level = "info"
	c.Logging.Format = "json"
}

// applyEnvVars overrides configuration with environment variable values.
// Only non-empty environment variables override existing values.
func (c *Config) applyEnvVars() {
	if v := os.Getenv("AI_PROVIDER"); v != "" {
		c.AI.Provider = strings.ToLower(v)
	}
	if v := os.Getenv("GEMINI_API_KEY"); v != "" {
		c.AI.GeminiAPIKey = v
	}
	if v := os.Getenv("GEMINI_MODEL"); v != "" {
		c.AI.GeminiModel = v
	}
	if v := os.Getenv("GROQ_API_KEY"); v != "" {
		c.AI.GroqAPIKey = v
	}
	if v := os.Getenv("GROQ_MODEL"); v != "" {
		c.AI.GroqModel = v
	}
	if v := os.Getenv("AI_STRICT"); v != "" {
		if strict, err := strconv.ParseBool(v); err == nil {
			c.AI.Strict = strict
		}
	}

	if v := os.Getenv("SMTP_PROVIDER"); v != "" {
		c.Mail.Provider = strings.ToLower(v)
	}
	if v := os.Getenv("SMTP_EMAIL"); v != "" {
		c.Mail.Email = v
	}
	if v := os.Getenv("SMTP_PASSWORD"); v != "" {
		c.Mail.Password = v
	}

	if v := os.Getenv("SES_REGION"); v != "" {
		c.SES.Region = v
	}
	if v := os.Getenv("SES_ACCESS_KEY_ID"); v != "" {
		c.SES.AccessKeyID = v
	}
	if v := os.Getenv("SES_SECRET_ACCESS_KEY"); v != "" {
		c.SES.SecretAccessKey = v
	}
	if v := os.Getenv("SES_SENDER"); v != "" {
		c.SES.Sender = v
	}

	if v := os.Getenv("GRAPH_TENANT_ID"); v != "" {
		c.Graph.TenantID = v
	}
	if v := os.Getenv("GRAPH_CLIENT_ID"); v != "" {
		c.Graph.ClientID = v
	}
	if v := os.Getenv("GRAPH_CLIENT_SECRET"); v != "" {
		c.Graph.ClientSecret = v
	}
	if v := os.Getenv("GRAPH_SENDER"); v != "" {
		c.Graph.Sender = v
	}

	if v := os.Getenv("DRAFT_LANGUAGE"); v != "" {
		c.Draft.Language = v
	}
	if v := os.Getenv("DRAFT_TONE"); v != "" {
		c.Draft.Tone = v
	}
	if v := os.Getenv("DRAFT_LENGTH"); v != "" {
		c.Draft.Length = v
	}

	if v := os.Getenv("PROFILE_PATH"); v != "" {
		c.Paths.Profile = v
	}
	if v := os.Getenv("SETTINGS_PATH"); v != "" {
		c.Paths.Settings = v
	}
	if v := os.Getenv("SENT_LOG_PATH"); v != "" {
		c.Paths.SentLog = v
	}

	if v := os.Getenv("HTTP_LISTEN"); v != "" {
		c.HTTP.Listen = v
	}
	if v := os.Getenv("HTTP_API_TOKEN"); v != "" {
		c.HTTP.Token = v
	}

	if v := os.Getenv("LOG_LEVEL"); v != "" {
		c.Logging.Level = strings.ToLower(v)
	}
	if v := os.Getenv("LOG_FORMAT"); v != "" {
		c.Logging.Format = strings.ToLower(v)
	}
}
