// Package stdout implements a dry-run Provider that prints the rendered
// message instead of delivering it.
package stdout

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/shineum/mailscribe/internal/email"
	"github.com/shineum/mailscribe/internal/message"
)

const separator = "========================================\n"

// Provider prints a summary of each message, and optionally its raw form, to
// a writer.
type Provider struct {
	writer  io.Writer
	builder *message.Builder
	raw     bool
}

// Option configures a Provider.
type Option func(*Provider)

// WithRaw makes the provider append the full rendered message.
func WithRaw() Option {
	return func(p *Provider) { p.raw = true }
}

// WithBuilder sets the message builder, mainly for reproducible output.
func WithBuilder(b *message.Builder) Option {
	return func(p *Provider) { p.builder = b }
}

// New creates a stdout Provider that writes to os.Stdout.
func New(opts ...Option) *Provider {
	return NewWithWriter(os.Stdout, opts...)
}

// NewWithWriter creates a Provider that writes to w.
func NewWithWriter(w io.Writer, opts ...Option) *Provider {
	p := &Provider{writer: w, builder: message.NewBuilder()}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Send renders the request and prints it. Rendering and write failures are
// returned so a dry run reports the same problems a real send would.
func (p *Provider) Send(_ context.Context, req *email.SendRequest) error {
	built, err := p.builder.Build(req.SenderEmail, req.RecipientEmail, req.Subject, req.Body, req.Attachments)
	if err != nil {
		return fmt.Errorf("rendering message: %w", err)
	}

	var b strings.Builder
	b.WriteString(separator)
	fmt.Fprintf(&b, "From: %s\n", built.From)
	fmt.Fprintf(&b, "To: %s\n", built.To)
	fmt.Fprintf(&b, "Subject: %s\n", req.Subject)
	b.WriteString("Body:\n")
	b.WriteString(req.Body + "\n")

	if len(req.Attachments) > 0 {
		attachments := make([]string, 0, len(req.Attachments))
		for _, att := range req.Attachments {
			attachments = append(attachments, fmt.Sprintf("%s (%s)", att.Filename, formatSize(len(att.Content))))
		}
		fmt.Fprintf(&b, "Attachments: %s\n", strings.Join(attachments, ", "))
	}
	fmt.Fprintf(&b, "Size: %s\n", formatSize(len(built.Data)))

	if p.raw {
		b.WriteString("Raw:\n")
		b.Write(built.Data)
		if !strings.HasSuffix(string(built.Data), "\n") {
			b.WriteString("\n")
		}
	}
	b.WriteString(separator)

	if _, err := io.WriteString(p.writer, b.String()); err != nil {
		return fmt.Errorf("writing message: %w", err)
	}
	return nil
}

// Name returns the provider name.
func (p *Provider) Name() string {
	return string(email.ProviderStdout)
}

// formatSize formats a byte count into a human-readable string.
func formatSize(bytes int) string {
	const (
		kb = 1024
		mb = kb * 1024
	)

	switch {
	case bytes >= mb:
		return fmt.Sprintf("%.1f MB", float64(bytes)/float64(mb))
	case bytes >= kb:
		return fmt.Sprintf("%.1f KB", float64(bytes)/float64(kb))
	default:
		return fmt.Sprintf("%d B", bytes)
	}
}
