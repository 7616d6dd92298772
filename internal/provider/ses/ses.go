// Package ses implements a Provider that relays messages through AWS SES v2.
package ses

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	sesv2 "github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sesv2/types"

	"github.com/shineum/mailscribe/internal/apperr"
	"github.com/shineum/mailscribe/internal/email"
	"github.com/shineum/mailscribe/internal/logging"
	"github.com/shineum/mailscribe/internal/message"
)

// Config holds the settings for creating a Provider.
type Config struct {
	Region          string
	AccessKeyID     string
	SecretAccessKey string

	// Sender overrides the request's sender address when set. SES only
	// accepts verified identities.
	Sender string
}

// SendEmailAPI is the subset of the SES v2 client used by Provider.
type SendEmailAPI interface {
	SendEmail(ctx context.Context, params *sesv2.SendEmailInput, optFns ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error)
}

// Provider sends the rendered message as SES raw content. Each call is a
// single API request.
type Provider struct {
	sender  string
	client  SendEmailAPI
	builder *message.Builder
}

// New creates a Provider from static credentials, or from the default AWS
// credential chain when the keys are empty.
func New(ctx context.Context, cfg Config) (*Provider, error) {
	if cfg.Region == "" {
		return nil, apperr.NewConfigurationError("ses", "region is required")
	}

	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.Region),
	}
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	return NewWithClient(cfg.Sender, sesv2.NewFromConfig(awsCfg)), nil
}

// NewWithClient creates a Provider around an existing client.
func NewWithClient(sender string, client SendEmailAPI) *Provider {
	return &Provider{
		sender:  sender,
		client:  client,
		builder: message.NewBuilder(),
	}
}

// Send renders the request and submits it to SES.
func (p *Provider) Send(ctx context.Context, req *email.SendRequest) error {
	sender := req.SenderEmail
	if p.sender != "" {
		sender = p.sender
	}

	built, err := p.builder.Build(sender, req.RecipientEmail, req.Subject, req.Body, req.Attachments)
	if err != nil {
		return &apperr.TransportError{Provider: p.Name(), Stage: "build", Err: err}
	}

	input := &sesv2.SendEmailInput{
		FromEmailAddress: aws.String(built.From),
		Destination: &types.Destination{
			ToAddresses: []string{built.To},
		},
		Content: &types.EmailContent{
			Raw: &types.RawMessage{Data: built.Data},
		},
	}

	out, err := p.client.SendEmail(ctx, input)
	if err != nil {
		return &apperr.TransportError{Provider: p.Name(), Stage: "send", Err: err}
	}

	slog.Debug("SES accepted message",
		"message_id", aws.ToString(out.MessageId),
		logging.Domain(built.To),
	)
	return nil
}

// Name returns the provider name.
func (p *Provider) Name() string {
	return string(email.ProviderSES)
}
