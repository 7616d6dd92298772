package main

import (
	"log/slog"
	"net"

	"github.com/spf13/cobra"

	"github.com/shineum/mailscribe/internal/httpapi"
	"github.com/shineum/mailscribe/internal/logging"
)

func newServeCmd(opts *rootOptions) *cobra.Command {
	var listen string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the JSON HTTP API",
		Long: `Serve drafting, sending, the profile, the settings and the sent-mail log
over HTTP until interrupted.

Routes:
  POST /api/drafts    generate a draft
  POST /api/emails    send an email (attachments base64 encoded)
  GET|PUT /api/profile
  GET|PUT /api/settings
  GET  /api/log
  GET  /api/providers
  GET  /healthz
  GET  /metrics

When HTTP_API_TOKEN is set, /api requests must send it as a bearer token.
Without a token the stored SMTP password is only used for loopback clients.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(opts, cmd.OutOrStdout())
			if err != nil {
				return err
			}
			a.loadSecrets(opts)
			if listen == "" {
				listen = a.cfg.HTTP.Listen
			}

			settings := a.currentSettings()
			svc := a.service(cmd.Context(), settings.AIProvider, settings.Model)

			server := httpapi.New(httpapi.Config{
				Listen:         listen,
				Token:          a.cfg.HTTP.Token,
				MailProvider:   settings.MailProvider,
				SenderEmail:    a.cfg.Mail.Email,
				SenderPassword: a.cfg.Mail.Password,
			}, svc, a.metrics)

			if a.cfg.HTTP.Token == "" && !loopbackListen(listen) {
				slog.Warn("serving without HTTP_API_TOKEN on a non-loopback address", slog.String("listen", listen))
			}

			slog.Info("starting mailscribe",
				slog.String("listen", listen),
				logging.Backend(svc.BackendName()),
				slog.Any("providers", svc.Providers()),
				slog.String("version", version),
			)

			// Blocks until the command context is cancelled by a signal
			if err := server.ListenAndServe(cmd.Context()); err != nil {
				slog.Error("server error", logging.Err(err))
				return err
			}
			slog.Info("mailscribe stopped")
			return nil
		},
	}
	cmd.Flags().StringVar(&listen, "listen", "", "listen address (default HTTP_LISTEN or 127.0.0.1:8080)")
	return cmd
}

func loopbackListen(addr string) bool {
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		return false
	}
	if host == "localhost" {
		return true
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}
