package main

import (
	"github.com/spf13/cobra"

	"github.com/shineum/mailscribe/internal/config"
)

// rootOptions are the persistent flags shared by every subcommand.
type rootOptions struct {
	configFile string
	envFiles   []string
	noKeyring  bool
	keyringDir string
	logLevel   string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "mailscribe",
		Short: "Drafts emails with an AI model and sends them over SMTP",
		Long: `mailscribe drafts an email from a purpose, a recipient and your stored
profile, using Gemini or Groq with an offline template as fallback, and sends
it through Gmail or Outlook SMTP (or SES, Microsoft Graph, or stdout).

It can run as:
  - A CLI (draft, send, profile, settings, log, secret)
  - A JSON HTTP API (serve)`,
		Version:      version,
		SilenceUsage: true,
	}
	cmd.SetVersionTemplate(`{{printf "mailscribe version %s\n" .Version}}`)

	f := cmd.PersistentFlags()
	f.StringVar(&opts.configFile, "config", "", "path to YAML configuration file (optional)")
	f.StringSliceVar(&opts.envFiles, "env-file", config.DefaultEnvFiles, "dotenv files to load; variables already set win")
	f.BoolVar(&opts.noKeyring, "no-keyring", false, "do not read secrets from the OS keyring")
	f.StringVar(&opts.keyringDir, "keyring-dir", "", "directory for the encrypted file keyring fallback")
	f.StringVar(&opts.logLevel, "log-level", "", "log level override (debug, info, warn, error)")

	cmd.AddCommand(
		newDraftCmd(opts),
		newSendCmd(opts),
		newProfileCmd(opts),
		newSettingsCmd(opts),
		newLogCmd(opts),
		newSecretCmd(opts),
		newServeCmd(opts),
	)
	return cmd
}
