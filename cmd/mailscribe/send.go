package main

import (
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/shineum/mailscribe/internal/config"
	"github.com/shineum/mailscribe/internal/email"
)

func newSendCmd(opts *rootOptions) *cobra.Command {
	var (
		providerName string
		from         string
		password     string
		to           string
		subject      string
		body         string
		bodyFile     string
		attachments  []string
		logSent      bool
	)

	cmd := &cobra.Command{
		Use:   "send",
		Short: "Send an email",
		Long: `Send an email through Gmail or Outlook SMTP, SES, Microsoft Graph, or the
stdout dry run.

The password comes from --password, SMTP_PASSWORD or the keyring entry
smtp_password, in that order, and is only used for the configured sender
address unless given on the command line.`,
		Example: `  mailscribe draft -p "Q4 roadmap" > draft.txt
  mailscribe send --to jane@example.org --subject "Q4 roadmap" --body-file draft.txt --attach roadmap.pdf --log`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(opts, cmd.OutOrStdout())
			if err != nil {
				return err
			}
			a.loadSecrets(opts)
			settings := a.currentSettings()

			if providerName == "" {
				providerName = settings.MailProvider
			}
			if from == "" {
				from = settings.SenderEmail
			}
			if password == "" && strings.EqualFold(from, a.cfg.Mail.Email) {
				password = a.cfg.Mail.Password
			}
			if bodyFile != "" {
				data, err := readInput(cmd.InOrStdin(), bodyFile)
				if err != nil {
					return fmt.Errorf("reading body: %w", err)
				}
				body = string(data)
			}

			p, _ := email.ParseProvider(providerName)
			req := &email.SendRequest{
				Provider:       p,
				SenderEmail:    from,
				SenderPassword: password,
				RecipientEmail: to,
				Subject:        subject,
				Body:           body,
			}
			for _, path := range attachments {
				att, err := readAttachment(path)
				if err != nil {
					return err
				}
				req.Attachments = append(req.Attachments, att)
			}

			res := a.service(cmd.Context(), config.AIProviderOffline, "").Send(cmd.Context(), req, logSent)
			if !res.OK {
				return errors.New(res.Error)
			}
			if res.Warning != "" {
				fmt.Fprintf(cmd.ErrOrStderr(), "warning: %s\n", res.Warning)
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "sent via %s to %s\n", p.Label(), to)
			return nil
		},
	}

	f := cmd.Flags()
	f.StringVar(&providerName, "provider", "", "mail provider: gmail, outlook, ses, graph or stdout")
	f.StringVar(&from, "from", "", "sender address (default SMTP_EMAIL)")
	f.StringVar(&password, "password", "", "SMTP app password")
	f.StringVar(&to, "to", "", "recipient address")
	f.StringVar(&subject, "subject", "", "subject line")
	f.StringVar(&body, "body", "", "plain text body")
	f.StringVar(&bodyFile, "body-file", "", `read the body from a file, or "-" for stdin`)
	f.StringArrayVar(&attachments, "attach", nil, "file to attach (repeatable)")
	f.BoolVar(&logSent, "log", false, "append the sent email to the spreadsheet log")
	_ = cmd.MarkFlagRequired("to")
	return cmd
}

func readInput(stdin io.Reader, path string) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(stdin)
	}
	return os.ReadFile(path)
}

// readAttachment loads path, guessing the MIME type from the extension and
// then from the content.
func readAttachment(path string) (email.Attachment, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return email.Attachment{}, fmt.Errorf("reading attachment: %w", err)
	}
	mimeType := mime.TypeByExtension(strings.ToLower(filepath.Ext(path)))
	if mimeType == "" {
		mimeType = http.DetectContentType(data)
	}
	return email.Attachment{
		Filename: filepath.Base(path),
		Content:  data,
		MIMEType: mimeType,
	}, nil
}
