package graph

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/shineum/mailscribe/internal/apperr"
	"github.com/shineum/mailscribe/internal/email"
)

const (
	defaultGraphURL = "https://graph.microsoft.com/v1.0"
	loginURL        = "https://login.microsoftonline.com"
)

// Config holds the settings for creating a Provider.
type Config struct {
	TenantID     string
	ClientID     string
	ClientSecret string

	// Sender is the mailbox messages are sent as. Empty means the request's
	// sender address.
	Sender string
}

// Provider sends mail via Graph with OAuth2 client credentials. A send is a
// single request, repeated once only when a 401 forces a token refresh.
type Provider struct {
	sender     string
	graphURL   string
	httpClient *http.Client
	token      *tokenCache
}

// New creates a Provider for the given tenant and app registration.
func New(cfg Config) (*Provider, error) {
	if cfg.TenantID == "" || cfg.ClientID == "" || cfg.ClientSecret == "" {
		return nil, apperr.NewConfigurationError("graph", "tenant id, client id and client secret are required")
	}
	tokenURL := fmt.Sprintf("%s/%s/oauth2/v2.0/token", loginURL, url.PathEscape(cfg.TenantID))
	return newWithOverrides(cfg, defaultGraphURL, tokenURL, &http.Client{Timeout: 30 * time.Second}), nil
}

func newWithOverrides(cfg Config, graphURL, tokenURL string, client *http.Client) *Provider {
	return &Provider{
		sender:     cfg.Sender,
		graphURL:   graphURL,
		httpClient: client,
		token:      newTokenCache(tokenURL, cfg.ClientID, cfg.ClientSecret, client),
	}
}

// Send delivers the request through the sendMail endpoint of the sender's
// mailbox.
func (p *Provider) Send(ctx context.Context, req *email.SendRequest) error {
	sender := req.SenderEmail
	if p.sender != "" {
		sender = p.sender
	}
	if sender == "" {
		return apperr.NewConfigurationError("graph", "sender mailbox is required")
	}

	bodyJSON, err := json.Marshal(buildSendMailRequest(req))
	if err != nil {
		return &apperr.TransportError{Provider: p.Name(), Stage: "build", Err: err}
	}
	endpoint := fmt.Sprintf("%s/users/%s/sendMail", p.graphURL, url.PathEscape(sender))

	token, err := p.token.Token(ctx)
	if err != nil {
		return &apperr.TransportError{Provider: p.Name(), Stage: "auth", Err: err}
	}

	err = p.post(ctx, endpoint, token, bodyJSON)
	var sendErr *sendError
	if errors.As(err, &sendErr) && sendErr.statusCode == http.StatusUnauthorized {
		slog.Info("refreshing Graph API token after 401")
		token, err = p.token.ForceRefresh(ctx)
		if err != nil {
			return &apperr.TransportError{Provider: p.Name(), Stage: "auth", Err: err}
		}
		err = p.post(ctx, endpoint, token, bodyJSON)
	}
	if err != nil {
		return &apperr.TransportError{Provider: p.Name(), Stage: "send", Err: err}
	}
	return nil
}

// Name returns the provider name.
func (p *Provider) Name() string {
	return string(email.ProviderGraph)
}

func (p *Provider) post(ctx context.Context, endpoint, token string, bodyJSON []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(bodyJSON))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	// sendMail answers 202 Accepted.
	if resp.StatusCode == http.StatusAccepted || resp.StatusCode == http.StatusOK {
		return nil
	}

	body, _ := io.ReadAll(resp.Body)
	msg := string(body)
	var graphErrResp graphErrorResponse
	if jsonErr := json.Unmarshal(body, &graphErrResp); jsonErr == nil && graphErrResp.Error.Message != "" {
		msg = graphErrResp.Error.Message
	}
	return &sendError{statusCode: resp.StatusCode, message: msg}
}

// sendError is a non-success response from the sendMail endpoint.
type sendError struct {
	statusCode int
	message    string
}

func (e *sendError) Error() string {
	return fmt.Sprintf("Graph API error (HTTP %d): %s", e.statusCode, e.message)
}
