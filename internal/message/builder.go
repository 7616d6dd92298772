// Package message renders outgoing emails as RFC 5322 documents and reads
// them back.
package message

import (
	"bytes"
	"fmt"
	"io"
	"mime"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/emersion/go-message/mail"
	"github.com/google/uuid"
	"golang.org/x/net/idna"

	"github.com/shineum/mailscribe/internal/email"
)

// defaultMIMEType is used for attachments whose type is missing or unparseable.
const defaultMIMEType = "application/octet-stream"

// fallbackIDDomain is used in Message-ID when the sender has no usable domain.
const fallbackIDDomain = "mailscribe.local"

// Built is a rendered message together with its SMTP envelope.
type Built struct {
	// From and To are the envelope addresses with IDNA-encoded domains.
	From string
	To   string

	// Data is the complete message, CRLF line endings.
	Data []byte

	// UTF8 is true when an envelope address has a non-ASCII local part and
	// the message needs SMTPUTF8 for faithful delivery.
	UTF8 bool
}

// Builder renders messages. The zero value is not usable; call NewBuilder.
type Builder struct {
	now   func() time.Time
	newID func() string
}

// Option configures a Builder.
type Option func(*Builder)

// WithClock sets the clock used for the Date header.
func WithClock(now func() time.Time) Option {
	return func(b *Builder) { b.now = now }
}

// WithIDGenerator sets the generator for the local part of Message-ID.
func WithIDGenerator(newID func() string) Option {
	return func(b *Builder) { b.newID = newID }
}

// NewBuilder creates a Builder using the wall clock and random UUIDs.
func NewBuilder(opts ...Option) *Builder {
	b := &Builder{
		now:   time.Now,
		newID: uuid.NewString,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Build renders a plain-text message from sender to recipient. Attachments
// are optional; with none the message is a single text/plain part.
func (b *Builder) Build(sender, recipient, subject, body string, attachments []email.Attachment) (*Built, error) {
	from := normalizeAddress(sender)
	to := normalizeAddress(recipient)

	var h mail.Header
	h.SetDate(b.now())
	setAddress(&h, "From", from)
	setAddress(&h, "To", to)
	h.SetSubject(subject)
	h.SetMessageID(b.newID() + "@" + messageIDDomain(from))
	h.Set("MIME-Version", "1.0")

	var buf bytes.Buffer
	var err error
	if len(attachments) == 0 {
		err = writeSinglePart(&buf, h, body)
	} else {
		err = writeMultipart(&buf, h, body, attachments)
	}
	if err != nil {
		return nil, err
	}

	return &Built{
		From: from,
		To:   to,
		Data: buf.Bytes(),
		UTF8: !isASCII(from) || !isASCII(to),
	}, nil
}

func writeSinglePart(w io.Writer, h mail.Header, body string) error {
	h.SetContentType("text/plain", map[string]string{"charset": "utf-8"})
	h.Set("Content-Transfer-Encoding", "quoted-printable")

	bw, err := mail.CreateSingleInlineWriter(w, h)
	if err != nil {
		return fmt.Errorf("creating message writer: %w", err)
	}
	if _, err := io.WriteString(bw, body); err != nil {
		return fmt.Errorf("writing body: %w", err)
	}
	return bw.Close()
}

func writeMultipart(w io.Writer, h mail.Header, body string, attachments []email.Attachment) error {
	mw, err := mail.CreateWriter(w, h)
	if err != nil {
		return fmt.Errorf("creating multipart writer: %w", err)
	}

	tw, err := mw.CreateInline()
	if err != nil {
		return fmt.Errorf("creating inline part: %w", err)
	}
	var th mail.InlineHeader
	th.SetContentType("text/plain", map[string]string{"charset": "utf-8"})
	th.Set("Content-Transfer-Encoding", "quoted-printable")
	pw, err := tw.CreatePart(th)
	if err != nil {
		return fmt.Errorf("creating body part: %w", err)
	}
	if _, err := io.WriteString(pw, body); err != nil {
		return fmt.Errorf("writing body: %w", err)
	}
	if err := pw.Close(); err != nil {
		return fmt.Errorf("closing body part: %w", err)
	}
	if err := tw.Close(); err != nil {
		return fmt.Errorf("closing inline part: %w", err)
	}

	for _, att := range attachments {
		var ah mail.AttachmentHeader
		ah.SetContentType(MediaType(att.MIMEType), nil)
		ah.SetFilename(attachmentName(att.Filename))

		aw, err := mw.CreateAttachment(ah)
		if err != nil {
			return fmt.Errorf("creating attachment %q: %w", att.Filename, err)
		}
		if _, err := aw.Write(att.Content); err != nil {
			return fmt.Errorf("writing attachment %q: %w", att.Filename, err)
		}
		if err := aw.Close(); err != nil {
			return fmt.Errorf("closing attachment %q: %w", att.Filename, err)
		}
	}

	return mw.Close()
}

// setAddress writes an address header. Values without an '@' cannot be
// expressed as an addr-spec and are written verbatim.
func setAddress(h *mail.Header, key, addr string) {
	if !strings.Contains(addr, "@") {
		h.Set(key, addr)
		return
	}
	h.SetAddressList(key, []*mail.Address{{Address: addr}})
}

// normalizeAddress keeps the local part as-is and converts the domain to its
// IDNA ASCII form. Anything that cannot be converted is returned unchanged.
func normalizeAddress(addr string) string {
	addr = strings.TrimSpace(addr)
	at := strings.LastIndex(addr, "@")
	if at <= 0 || at == len(addr)-1 {
		return addr
	}

	local, domain := addr[:at], addr[at+1:]
	ascii, err := idna.Lookup.ToASCII(domain)
	if err != nil {
		return addr
	}
	return local + "@" + ascii
}

func messageIDDomain(addr string) string {
	at := strings.LastIndex(addr, "@")
	if at < 0 || at == len(addr)-1 || !isASCII(addr[at+1:]) {
		return fallbackIDDomain
	}
	return addr[at+1:]
}

// MediaType reduces a MIME type to its lower-case major/minor form. Missing or
// unparseable types become application/octet-stream.
func MediaType(t string) string {
	parsed, _, err := mime.ParseMediaType(t)
	if err != nil {
		return defaultMIMEType
	}
	major, minor, ok := strings.Cut(parsed, "/")
	if !ok || major == "" || minor == "" {
		return defaultMIMEType
	}
	return major + "/" + minor
}

func attachmentName(name string) string {
	if strings.TrimSpace(name) == "" {
		return "attachment"
	}
	return name
}

func isASCII(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] >= utf8.RuneSelf {
			return false
		}
	}
	return true
}
