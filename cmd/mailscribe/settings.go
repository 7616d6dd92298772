package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/shineum/mailscribe/internal/config"
	"github.com/shineum/mailscribe/internal/draft"
	"github.com/shineum/mailscribe/internal/email"
	"github.com/shineum/mailscribe/internal/store"
)

func newSettingsCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "settings",
		Short: "Show or change the remembered defaults",
	}
	cmd.AddCommand(
		newSettingsShowCmd(opts),
		newSettingsSetCmd(opts),
		newSettingsResetCmd(opts),
	)
	return cmd
}

func newSettingsShowCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the effective settings as YAML",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(opts, cmd.OutOrStdout())
			if err != nil {
				return err
			}
			s, err := a.settings.Load()
			if err != nil {
				return err
			}
			data, err := yaml.Marshal(s)
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(data)
			return err
		},
	}
}

func newSettingsSetCmd(opts *rootOptions) *cobra.Command {
	var values store.Settings
	cmd := &cobra.Command{
		Use:   "set",
		Short: "Change settings; settings without a flag keep their value",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(opts, cmd.OutOrStdout())
			if err != nil {
				return err
			}
			s := a.currentSettings()
			flags := cmd.Flags()

			if flags.Changed("ai-provider") {
				v := strings.ToLower(strings.TrimSpace(values.AIProvider))
				switch v {
				case config.AIProviderGemini, config.AIProviderGroq, config.AIProviderOffline:
				default:
					return fmt.Errorf("unknown AI provider %q", values.AIProvider)
				}
				s.AIProvider = v
			}
			if flags.Changed("mail-provider") {
				p, ok := email.ParseProvider(values.MailProvider)
				if !ok {
					return fmt.Errorf("unknown mail provider %q", values.MailProvider)
				}
				s.MailProvider = string(p)
			}
			if flags.Changed("length") {
				s.Length = string(draft.ParseLength(values.Length))
			}
			if flags.Changed("model") {
				s.Model = values.Model
			}
			if flags.Changed("purpose") {
				s.Purpose = values.Purpose
			}
			if flags.Changed("recipient") {
				s.RecipientName = values.RecipientName
			}
			if flags.Changed("language") {
				s.Language = values.Language
			}
			if flags.Changed("tone") {
				s.Tone = values.Tone
			}
			if flags.Changed("sender-email") {
				s.SenderEmail = values.SenderEmail
			}

			if err := a.settings.Save(s); err != nil {
				return err
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "settings saved to %s\n", a.settings.Path())
			return nil
		},
	}

	f := cmd.Flags()
	f.StringVar(&values.AIProvider, "ai-provider", "", "gemini, groq or offline")
	f.StringVar(&values.Model, "model", "", "model for the AI provider")
	f.StringVar(&values.Purpose, "purpose", "", "remembered purpose")
	f.StringVar(&values.RecipientName, "recipient", "", "remembered recipient name")
	f.StringVar(&values.Language, "language", "", "draft language")
	f.StringVar(&values.Tone, "tone", "", "draft tone")
	f.StringVar(&values.Length, "length", "", "very-short, short, medium or long")
	f.StringVar(&values.MailProvider, "mail-provider", "", "gmail, outlook, ses, graph or stdout")
	f.StringVar(&values.SenderEmail, "sender-email", "", "default sender address")
	return cmd
}

func newSettingsResetCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "reset",
		Short: "Replace the saved settings with the defaults",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(opts, cmd.OutOrStdout())
			if err != nil {
				return err
			}
			return a.settings.Save(settingsDefaults(a.cfg))
		},
	}
}
