package graph

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

// tokenExpiryBuffer is subtracted from the token lifetime so a token is never
// used right at its expiry.
const tokenExpiryBuffer = 5 * time.Minute

// tokenCache holds an OAuth2 client-credentials token for the Graph scope.
type tokenCache struct {
	mu          sync.Mutex
	accessToken string
	expiresAt   time.Time
	creds       clientcredentials.Config
	httpClient  *http.Client
	now         func() time.Time
}

func newTokenCache(tokenURL, clientID, clientSecret string, httpClient *http.Client) *tokenCache {
	return &tokenCache{
		creds: clientcredentials.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			TokenURL:     tokenURL,
			Scopes:       []string{"https://graph.microsoft.com/.default"},
			AuthStyle:    oauth2.AuthStyleInParams,
		},
		httpClient: httpClient,
		now:        time.Now,
	}
}

// Token returns the cached token, fetching a new one when it is missing or
// about to expire.
func (tc *tokenCache) Token(ctx context.Context) (string, error) {
	tc.mu.Lock()
	defer tc.mu.Unlock()

	if tc.accessToken != "" && tc.now().Before(tc.expiresAt) {
		return tc.accessToken, nil
	}
	return tc.refresh(ctx)
}

// ForceRefresh discards the cached token and fetches a new one.
func (tc *tokenCache) ForceRefresh(ctx context.Context) (string, error) {
	tc.mu.Lock()
	defer tc.mu.Unlock()

	tc.accessToken = ""
	tc.expiresAt = time.Time{}
	return tc.refresh(ctx)
}

// refresh requests a new token. The caller must hold tc.mu.
func (tc *tokenCache) refresh(ctx context.Context) (string, error) {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, tc.httpClient)
	tok, err := tc.creds.Token(ctx)
	if err != nil {
		return "", fmt.Errorf("token request failed: %w", err)
	}

	tc.accessToken = tok.AccessToken
	tc.expiresAt = tc.now().Add(time.Until(tok.Expiry) - tokenExpiryBuffer)
	return tc.accessToken, nil
}
