package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/shineum/mailscribe/internal/draft"
)

func newDraftCmd(opts *rootOptions) *cobra.Command {
	var (
		req        draft.Request
		length     string
		aiProvider string
		model      string
		asJSON     bool
		remember   bool
	)

	cmd := &cobra.Command{
		Use:   "draft",
		Short: "Generate an email draft",
		Long: `Generate an email draft with the configured AI backend.

Empty options fall back to the saved settings. When the backend is missing or
fails, an offline template draft is printed together with a warning, unless
AI_STRICT is set.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(opts, cmd.OutOrStdout())
			if err != nil {
				return err
			}
			a.loadSecrets(opts)

			settings := a.currentSettings()
			if !cmd.Flags().Changed("purpose") {
				req.Purpose = settings.Purpose
			}
			if !cmd.Flags().Changed("recipient") {
				req.RecipientName = settings.RecipientName
			}
			req.Length = draft.Length(length)
			if aiProvider == "" {
				aiProvider = settings.AIProvider
				if model == "" {
					model = settings.Model
				}
			}

			svc := a.service(cmd.Context(), aiProvider, model)
			res, err := svc.Draft(cmd.Context(), req)
			if err != nil {
				return err
			}
			if res.Warning != "" {
				fmt.Fprintf(cmd.ErrOrStderr(), "warning: offline draft used: %s\n", res.Warning)
			}

			if remember {
				settings.AIProvider = aiProvider
				if cmd.Flags().Changed("model") {
					settings.Model = model
				}
				settings.Purpose = req.Purpose
				settings.RecipientName = req.RecipientName
				if req.Tone != "" {
					settings.Tone = req.Tone
				}
				if req.Language != "" {
					settings.Language = req.Language
				}
				if length != "" {
					settings.Length = string(draft.ParseLength(length))
				}
				if err := svc.SaveSettings(settings); err != nil {
					fmt.Fprintf(cmd.ErrOrStderr(), "warning: settings not saved: %v\n", err)
				}
			}

			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				enc.SetEscapeHTML(false)
				return enc.Encode(res)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Subject: %s\n\n%s\n", res.Draft.Subject, strings.TrimRight(res.Draft.Body, "\n"))
			return nil
		},
	}

	f := cmd.Flags()
	f.StringVarP(&req.Purpose, "purpose", "p", "", "purpose or topic of the email")
	f.StringVarP(&req.RecipientName, "recipient", "r", "", "recipient name used in the greeting")
	f.StringVar(&req.Tone, "tone", "", "tone, e.g. Professional, Friendly, Formal")
	f.StringVarP(&req.Language, "language", "l", "", "language name or code, e.g. English or tr")
	f.StringVar(&req.AdditionalContext, "context", "", "additional context copied into the draft")
	f.StringVar(&length, "length", "", "very-short, short, medium or long")
	f.StringVar(&aiProvider, "ai", "", "AI backend: gemini, groq or offline")
	f.StringVar(&model, "model", "", "model name for the AI backend")
	f.BoolVar(&asJSON, "json", false, "print the result as JSON")
	f.BoolVar(&remember, "remember", false, "save the options as the new defaults")
	return cmd
}
