// Package smtp implements the Gmail and Outlook transports: one STARTTLS
// submission session per message on port 587.
package smtp

import (
	"context"
	"crypto/tls"
	"fmt"
	"log/slog"
	"net"
	"strings"
	"time"

	"github.com/emersion/go-sasl"
	gosmtp "github.com/emersion/go-smtp"

	"github.com/shineum/mailscribe/internal/apperr"
	"github.com/shineum/mailscribe/internal/email"
	"github.com/shineum/mailscribe/internal/logging"
	"github.com/shineum/mailscribe/internal/message"
)

// Submission endpoints.
const (
	GmailAddr   = "smtp.gmail.com:587"
	OutlookAddr = "smtp.office365.com:587"
)

// defaultTimeout bounds a whole session when the context has no deadline.
const defaultTimeout = 60 * time.Second

// Session stages reported in TransportError.
const (
	StageConnect  = "connect"
	StageStartTLS = "starttls"
	StageAuth     = "auth"
	StageMail     = "mail"
	StageRcpt     = "rcpt"
	StageData     = "data"
)

// Transport delivers messages through one submission server.
type Transport struct {
	name      string
	addr      string
	localName string
	tlsConfig *tls.Config
	timeout   time.Duration
	builder   *message.Builder
	dialer    *net.Dialer
}

// Option configures a Transport.
type Option func(*Transport)

// WithAddr overrides the server address.
func WithAddr(addr string) Option {
	return func(t *Transport) { t.addr = addr }
}

// WithTLSConfig sets the client TLS configuration. ServerName is always
// replaced with the dialed host.
func WithTLSConfig(cfg *tls.Config) Option {
	return func(t *Transport) { t.tlsConfig = cfg }
}

// WithLocalName sets the name sent in EHLO.
func WithLocalName(name string) Option {
	return func(t *Transport) { t.localName = name }
}

// WithTimeout sets the session timeout used when the context has no deadline.
func WithTimeout(d time.Duration) Option {
	return func(t *Transport) { t.timeout = d }
}

// WithBuilder sets the message builder.
func WithBuilder(b *message.Builder) Option {
	return func(t *Transport) { t.builder = b }
}

// New creates a Transport named name that submits to addr.
func New(name, addr string, opts ...Option) *Transport {
	t := &Transport{
		name:      name,
		addr:      addr,
		localName: "localhost",
		timeout:   defaultTimeout,
		builder:   message.NewBuilder(),
		dialer:    &net.Dialer{},
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// NewGmail creates the Gmail transport.
func NewGmail(opts ...Option) *Transport {
	return New(string(email.ProviderGmail), GmailAddr, opts...)
}

// NewOutlook creates the Outlook transport.
func NewOutlook(opts ...Option) *Transport {
	return New(string(email.ProviderOutlook), OutlookAddr, opts...)
}

// Name returns the provider name.
func (t *Transport) Name() string {
	return t.name
}

// Addr returns the server address.
func (t *Transport) Addr() string {
	return t.addr
}

// Send opens a session, upgrades it with STARTTLS, authenticates with the
// request's credentials and transmits the message. The connection is closed
// on every path; there is no retry.
func (t *Transport) Send(ctx context.Context, req *email.SendRequest) error {
	if req.SenderEmail == "" || req.SenderPassword == "" {
		return apperr.NewConfigurationError(t.name, "sender email and password are required")
	}

	built, err := t.builder.Build(req.SenderEmail, req.RecipientEmail, req.Subject, req.Body, req.Attachments)
	if err != nil {
		return t.fail(StageData, fmt.Errorf("building message: %w", err))
	}

	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, t.timeout)
		defer cancel()
	}

	host, _, err := net.SplitHostPort(t.addr)
	if err != nil {
		return t.fail(StageConnect, err)
	}

	conn, err := t.dialer.DialContext(ctx, "tcp", t.addr)
	if err != nil {
		return t.fail(StageConnect, err)
	}
	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}

	// Cancellation unblocks pending reads by closing the connection.
	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()

	// Greeting, EHLO and STARTTLS. The client closes conn on failure.
	c, err := gosmtp.NewClientStartTLS(conn, t.clientTLS(host))
	if err != nil {
		return t.fail(StageStartTLS, err)
	}
	defer c.Close()

	// The TLS handshake runs lazily on the second EHLO.
	if err := c.Hello(t.localName); err != nil {
		return t.fail(StageStartTLS, err)
	}

	if err := c.Auth(t.saslClient(c, req)); err != nil {
		return t.fail(StageAuth, err)
	}

	// BODY=8BITMIME is added by the client when advertised.
	opts := &gosmtp.MailOptions{}
	if ok, _ := c.Extension("SMTPUTF8"); ok {
		opts.UTF8 = true
	} else if built.UTF8 {
		slog.Warn("server does not advertise SMTPUTF8, sending internationalized address anyway",
			logging.Provider(t.name),
		)
	}
	if err := c.Mail(built.From, opts); err != nil {
		return t.fail(StageMail, err)
	}
	if err := c.Rcpt(built.To, nil); err != nil {
		return t.fail(StageRcpt, err)
	}

	w, err := c.Data()
	if err != nil {
		return t.fail(StageData, err)
	}
	if _, err := w.Write(built.Data); err != nil {
		w.Close()
		return t.fail(StageData, err)
	}
	if err := w.Close(); err != nil {
		return t.fail(StageData, err)
	}

	// The message is accepted at this point; a failed QUIT is only logged.
	if err := c.Quit(); err != nil {
		slog.Debug("QUIT failed after successful delivery",
			logging.Provider(t.name),
			logging.Err(err),
		)
	}

	slog.Info("message submitted",
		logging.Provider(t.name),
		logging.Domain(built.To),
		slog.Int("size", len(built.Data)),
	)
	return nil
}

func (t *Transport) clientTLS(host string) *tls.Config {
	var cfg *tls.Config
	if t.tlsConfig != nil {
		cfg = t.tlsConfig.Clone()
	} else {
		cfg = &tls.Config{MinVersion: tls.VersionTLS12}
	}
	cfg.ServerName = host
	return cfg
}

// saslClient prefers PLAIN and falls back to LOGIN when that is the only
// advertised mechanism.
func (t *Transport) saslClient(c *gosmtp.Client, req *email.SendRequest) sasl.Client {
	_, mechs := c.Extension("AUTH")
	fields := strings.Fields(strings.ToUpper(mechs))
	hasPlain, hasLogin := false, false
	for _, m := range fields {
		switch m {
		case sasl.Plain:
			hasPlain = true
		case sasl.Login:
			hasLogin = true
		}
	}
	if hasLogin && !hasPlain {
		return sasl.NewLoginClient(req.SenderEmail, req.SenderPassword)
	}
	return sasl.NewPlainClient("", req.SenderEmail, req.SenderPassword)
}

func (t *Transport) fail(stage string, err error) error {
	return &apperr.TransportError{Provider: t.name, Stage: stage, Err: err}
}
