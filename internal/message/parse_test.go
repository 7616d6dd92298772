package message

import (
	"strings"
	"testing"
)

func TestParsePlainTextEmail(t *testing.T) {
	t.Parallel()

	raw := []byte(strings.Join([]string{
		"From: sender@example.com",
		"To: recipient@example.com",
		"Subject: Test Subject",
		"Message-Id: <test123@example.com>",
		"Content-Type: text/plain",
		"",
		"Hello, this is a plain text email.",
	}, "\r\n"))

	msg, err := Parse(raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if msg.From != "sender@example.com" {
		t.Errorf("From: got %q, want %q", msg.From, "sender@example.com")
	}
	if msg.To != "recipient@example.com" {
		t.Errorf("To: got %q, want %q", msg.To, "recipient@example.com")
	}
	if msg.Subject != "Test Subject" {
		t.Errorf("Subject: got %q, want %q", msg.Subject, "Test Subject")
	}
	if msg.Body != "Hello, this is a plain text email." {
		t.Errorf("Body: got %q, want %q", msg.Body, "Hello, this is a plain text email.")
	}
	if len(msg.Attachments) != 0 {
		t.Errorf("Attachments: got %d, want 0", len(msg.Attachments))
	}
}

func TestParseEncodedSubject(t *testing.T) {
	t.Parallel()

	raw := []byte(strings.Join([]string{
		"From: sender@example.com",
		"To: recipient@example.com",
		"Subject: =?utf-8?q?G=C3=BCnaydin_d=C3=BCnya?=",
		"Content-Type: text/plain; charset=utf-8",
		"",
		"body",
	}, "\r\n"))

	msg, err := Parse(raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if msg.Subject != "Günaydin dünya" {
		t.Errorf("Subject: got %q, want %q", msg.Subject, "Günaydin dünya")
	}
}

func TestParseNestedMultipartWithAttachment(t *testing.T) {
	t.Parallel()

	raw := []byte(strings.Join([]string{
		"From: sender@example.com",
		"To: alice@example.com",
		"Subject: Nested",
		"Content-Type: multipart/mixed; boundary=outer",
		"",
		"--outer",
		"Content-Type: multipart/alternative; boundary=inner",
		"",
		"--inner",
		"Content-Type: text/plain",
		"",
		"Plain version",
		"--inner",
		"Content-Type: text/html",
		"",
		"<p>HTML version</p>",
		"--inner--",
		"--outer",
		"Content-Type: text/csv",
		"Content-Disposition: attachment; filename=\"data.csv\"",
		"Content-Transfer-Encoding: base64",
		"",
		"YSxiLGMK",
		"--outer--",
	}, "\r\n"))

	msg, err := Parse(raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if msg.Body != "Plain version" {
		t.Errorf("Body: got %q, want %q", msg.Body, "Plain version")
	}
	if len(msg.Attachments) != 1 {
		t.Fatalf("Attachments: got %d, want 1", len(msg.Attachments))
	}
	att := msg.Attachments[0]
	if att.Filename != "data.csv" {
		t.Errorf("Filename: got %q, want %q", att.Filename, "data.csv")
	}
	if att.MIMEType != "text/csv" {
		t.Errorf("MIMEType: got %q, want %q", att.MIMEType, "text/csv")
	}
	if string(att.Content) != "a,b,c\n" {
		t.Errorf("Content: got %q, want %q", att.Content, "a,b,c\n")
	}
}

func TestParseBase64AttachmentWithCRLF(t *testing.T) {
	t.Parallel()

	raw := []byte(strings.Join([]string{
		"From: sender@example.com",
		"To: recipient@example.com",
		"Subject: Base64",
		"Content-Type: multipart/mixed; boundary=b1",
		"",
		"--b1",
		"Content-Type: text/plain",
		"",
		"See attached.",
		"--b1",
		"Content-Type: application/octet-stream",
		"Content-Disposition: attachment; filename=\"blob.bin\"",
		"Content-Transfer-Encoding: base64",
		"",
		"SGVsbG8s",
		"IFdvcmxk",
		"IQ==",
		"--b1--",
	}, "\r\n"))

	msg, err := Parse(raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(msg.Attachments) != 1 {
		t.Fatalf("Attachments: got %d, want 1", len(msg.Attachments))
	}
	if got := string(msg.Attachments[0].Content); got != "Hello, World!" {
		t.Errorf("Content: got %q, want %q", got, "Hello, World!")
	}
}

func TestParseExtendedFilename(t *testing.T) {
	t.Parallel()

	raw := []byte(strings.Join([]string{
		"From: sender@example.com",
		"To: recipient@example.com",
		"Subject: CV",
		"Content-Type: multipart/mixed; boundary=b2",
		"",
		"--b2",
		"Content-Type: text/plain",
		"",
		"CV attached.",
		"--b2",
		"Content-Type: application/pdf",
		"Content-Disposition: attachment; filename*=utf-8''r%C3%A9sum%C3%A9.pdf",
		"Content-Transfer-Encoding: base64",
		"",
		"JVBERi0=",
		"--b2--",
	}, "\r\n"))

	msg, err := Parse(raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(msg.Attachments) != 1 {
		t.Fatalf("Attachments: got %d, want 1", len(msg.Attachments))
	}
	if got := msg.Attachments[0].Filename; got != "résumé.pdf" {
		t.Errorf("Filename: got %q, want %q", got, "résumé.pdf")
	}
}

func TestParseRawAddressHeader(t *testing.T) {
	t.Parallel()

	raw := []byte(strings.Join([]string{
		"From: not-an-address",
		"To: recipient@example.com",
		"Subject: Raw",
		"",
		"body",
	}, "\r\n"))

	msg, err := Parse(raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if msg.From != "not-an-address" {
		t.Errorf("From: got %q, want %q", msg.From, "not-an-address")
	}
	if msg.Body != "body" {
		t.Errorf("Body: got %q, want %q", msg.Body, "body")
	}
}
