package message

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	_ "github.com/emersion/go-message/charset"
	"github.com/emersion/go-message/mail"

	"github.com/shineum/mailscribe/internal/email"
)

// Parsed is the readable content of a message produced by Build.
type Parsed struct {
	From        string
	To          string
	Subject     string
	Body        string
	Attachments []email.Attachment
}

// Parse reads a raw RFC 5322 message. The first text/plain inline part is the
// body; parts with an attachment disposition are collected in order. Other
// parts are logged and skipped.
func Parse(raw []byte) (*Parsed, error) {
	mr, err := mail.CreateReader(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("failed to parse message: %w", err)
	}
	defer mr.Close()

	subject, err := mr.Header.Subject()
	if err != nil {
		subject = mr.Header.Get("Subject")
	}

	result := &Parsed{
		From:    firstAddress(mr.Header, "From"),
		To:      firstAddress(mr.Header, "To"),
		Subject: subject,
	}

	bodySet := false
	for {
		part, err := mr.NextPart()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read next part: %w", err)
		}

		content, err := io.ReadAll(part.Body)
		if err != nil {
			return nil, fmt.Errorf("failed to read part content: %w", err)
		}

		switch h := part.Header.(type) {
		case *mail.InlineHeader:
			mediaType, _, _ := h.ContentType()
			if mediaType == "" || mediaType == "text/plain" {
				if !bodySet {
					result.Body = string(content)
					bodySet = true
				}
				continue
			}
			slog.Warn("unrecognized inline part, skipping",
				"content_type", mediaType,
			)
		case *mail.AttachmentHeader:
			filename, err := h.Filename()
			if err != nil {
				slog.Warn("failed to decode attachment filename",
					"error", err,
				)
			}
			mediaType, _, _ := h.ContentType()
			result.Attachments = append(result.Attachments, email.Attachment{
				Filename: filename,
				Content:  content,
				MIMEType: mediaType,
			})
		default:
			slog.Warn("unrecognized MIME part, skipping")
		}
	}

	return result, nil
}

// firstAddress returns the first address of an address header. Headers that
// do not parse as an address list are returned as raw text.
func firstAddress(h mail.Header, key string) string {
	list, err := h.AddressList(key)
	if err != nil || len(list) == 0 {
		return strings.TrimSpace(h.Get(key))
	}
	return list[0].Address
}
