package ses

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	sesv2 "github.com/aws/aws-sdk-go-v2/service/sesv2"

	"github.com/shineum/mailscribe/internal/apperr"
	"github.com/shineum/mailscribe/internal/email"
	"github.com/shineum/mailscribe/internal/message"
	"github.com/shineum/mailscribe/internal/provider"
)

// mockSESClient implements SendEmailAPI for testing.
type mockSESClient struct {
	sendFn    func(ctx context.Context, params *sesv2.SendEmailInput, optFns ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error)
	callCount int
	lastInput *sesv2.SendEmailInput
}

func (m *mockSESClient) SendEmail(ctx context.Context, params *sesv2.SendEmailInput, optFns ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error) {
	m.callCount++
	m.lastInput = params
	if m.sendFn != nil {
		return m.sendFn(ctx, params, optFns...)
	}
	return &sesv2.SendEmailOutput{MessageId: aws.String("test-message-id")}, nil
}

var _ provider.Provider = (*Provider)(nil)

func TestName(t *testing.T) {
	t.Parallel()
	p := NewWithClient("", &mockSESClient{})
	if got := p.Name(); got != "ses" {
		t.Errorf("Name(): got %q, want %q", got, "ses")
	}
}

func TestSend_RawMessage(t *testing.T) {
	t.Parallel()

	mock := &mockSESClient{}
	p := NewWithClient("", mock)

	req := &email.SendRequest{
		Provider:       email.ProviderSES,
		SenderEmail:    "me@example.com",
		RecipientEmail: "you@example.org",
		Subject:        "Quarterly plan",
		Body:           "Hello there",
		Attachments: []email.Attachment{
			{Filename: "résumé.pdf", Content: []byte("%PDF"), MIMEType: "application/pdf"},
		},
	}

	if err := p.Send(context.Background(), req); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if mock.callCount != 1 {
		t.Fatalf("call count: got %d, want 1", mock.callCount)
	}

	input := mock.lastInput
	if got := aws.ToString(input.FromEmailAddress); got != "me@example.com" {
		t.Errorf("FromEmailAddress: got %q, want %q", got, "me@example.com")
	}
	if len(input.Destination.ToAddresses) != 1 || input.Destination.ToAddresses[0] != "you@example.org" {
		t.Errorf("ToAddresses: got %v, want [you@example.org]", input.Destination.ToAddresses)
	}
	if input.Content.Simple != nil {
		t.Error("expected raw content, got simple content")
	}

	parsed, err := message.Parse(input.Content.Raw.Data)
	if err != nil {
		t.Fatalf("raw message did not parse: %v", err)
	}
	if parsed.Subject != "Quarterly plan" {
		t.Errorf("Subject: got %q, want %q", parsed.Subject, "Quarterly plan")
	}
	if len(parsed.Attachments) != 1 || parsed.Attachments[0].Filename != "résumé.pdf" {
		t.Errorf("Attachments: got %+v, want résumé.pdf", parsed.Attachments)
	}
}

func TestSend_SenderOverride(t *testing.T) {
	t.Parallel()

	mock := &mockSESClient{}
	p := NewWithClient("verified@example.com", mock)

	req := &email.SendRequest{SenderEmail: "me@example.com", RecipientEmail: "you@example.org", Subject: "s", Body: "b"}
	if err := p.Send(context.Background(), req); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := aws.ToString(mock.lastInput.FromEmailAddress); got != "verified@example.com" {
		t.Errorf("FromEmailAddress: got %q, want %q", got, "verified@example.com")
	}
}

func TestSend_SingleAttemptOnError(t *testing.T) {
	t.Parallel()

	cause := errors.New("throttled")
	mock := &mockSESClient{
		sendFn: func(ctx context.Context, params *sesv2.SendEmailInput, optFns ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error) {
			return nil, cause
		},
	}
	p := NewWithClient("", mock)

	err := p.Send(context.Background(), &email.SendRequest{SenderEmail: "me@example.com", RecipientEmail: "you@example.org"})
	if err == nil {
		t.Fatal("expected error")
	}
	if mock.callCount != 1 {
		t.Errorf("call count: got %d, want 1", mock.callCount)
	}
	if !errors.Is(err, cause) {
		t.Errorf("error should wrap the SES error, got %v", err)
	}

	var transErr *apperr.TransportError
	if !errors.As(err, &transErr) {
		t.Fatalf("expected TransportError, got %T", err)
	}
	if transErr.Provider != "ses" || transErr.Stage != "send" {
		t.Errorf("TransportError: got provider %q stage %q", transErr.Provider, transErr.Stage)
	}
}

func TestNew_MissingRegion(t *testing.T) {
	t.Parallel()

	_, err := New(context.Background(), Config{})
	if !apperr.IsConfiguration(err) {
		t.Errorf("expected ConfigurationError, got %v", err)
	}
}
