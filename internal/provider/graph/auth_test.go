package graph

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int64  `json:"expires_in"`
	TokenType   string `json:"token_type"`
}

func tokenServer(t *testing.T, calls *atomic.Int32, expiresIn int64) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := calls.Add(1)
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(tokenResponse{
			AccessToken: fmt.Sprintf("token-%d", n),
			ExpiresIn:   expiresIn,
			TokenType:   "Bearer",
		})
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestTokenCache_AcquiresToken(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("expected POST, got %s", r.Method)
		}
		if err := r.ParseForm(); err != nil {
			t.Errorf("failed to parse form: %v", err)
		}
		if r.FormValue("grant_type") != "client_credentials" {
			t.Errorf("grant_type: got %q, want %q", r.FormValue("grant_type"), "client_credentials")
		}
		if r.FormValue("client_id") != "test-client-id" {
			t.Errorf("client_id: got %q, want %q", r.FormValue("client_id"), "test-client-id")
		}
		if r.FormValue("scope") != "https://graph.microsoft.com/.default" {
			t.Errorf("scope: got %q, want %q", r.FormValue("scope"), "https://graph.microsoft.com/.default")
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(tokenResponse{AccessToken: "test-access-token", ExpiresIn: 3600, TokenType: "Bearer"})
	}))
	defer server.Close()

	tc := newTokenCache(server.URL, "test-client-id", "test-client-secret", server.Client())

	token, err := tc.Token(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if token != "test-access-token" {
		t.Errorf("token: got %q, want %q", token, "test-access-token")
	}
}

func TestTokenCache_CachesToken(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	server := tokenServer(t, &calls, 3600)
	tc := newTokenCache(server.URL, "cid", "csecret", server.Client())

	for i := 0; i < 3; i++ {
		token, err := tc.Token(context.Background())
		if err != nil {
			t.Fatalf("call %d: %v", i, err)
		}
		if token != "token-1" {
			t.Errorf("token: got %q, want %q", token, "token-1")
		}
	}
	if calls.Load() != 1 {
		t.Errorf("server call count: got %d, want 1", calls.Load())
	}
}

func TestTokenCache_RefreshesExpiredToken(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	server := tokenServer(t, &calls, 3600)
	tc := newTokenCache(server.URL, "cid", "csecret", server.Client())

	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	tc.now = func() time.Time { return now }

	if _, err := tc.Token(context.Background()); err != nil {
		t.Fatalf("first call: %v", err)
	}

	// Inside the expiry buffer the token counts as expired.
	now = now.Add(time.Hour - tokenExpiryBuffer + time.Second)
	token, err := tc.Token(context.Background())
	if err != nil {
		t.Fatalf("second call: %v", err)
	}
	if token != "token-2" {
		t.Errorf("token: got %q, want %q", token, "token-2")
	}
}

func TestTokenCache_ForceRefresh(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	server := tokenServer(t, &calls, 3600)
	tc := newTokenCache(server.URL, "cid", "csecret", server.Client())

	if _, err := tc.Token(context.Background()); err != nil {
		t.Fatalf("Token: %v", err)
	}
	token, err := tc.ForceRefresh(context.Background())
	if err != nil {
		t.Fatalf("ForceRefresh: %v", err)
	}
	if token != "token-2" {
		t.Errorf("token: got %q, want %q", token, "token-2")
	}
}

func TestTokenCache_ConcurrentAccess(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	server := tokenServer(t, &calls, 3600)
	tc := newTokenCache(server.URL, "cid", "csecret", server.Client())

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := tc.Token(context.Background()); err != nil {
				t.Errorf("Token: %v", err)
			}
		}()
	}
	wg.Wait()

	if calls.Load() != 1 {
		t.Errorf("server call count: got %d, want 1", calls.Load())
	}
}

func TestTokenCache_ServerError(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"invalid_client"}`, http.StatusUnauthorized)
	}))
	defer server.Close()

	tc := newTokenCache(server.URL, "cid", "bad", server.Client())
	if _, err := tc.Token(context.Background()); err == nil {
		t.Fatal("expected error for token endpoint failure")
	}
}

func TestTokenCache_EmptyAccessToken(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(tokenResponse{ExpiresIn: 3600})
	}))
	defer server.Close()

	tc := newTokenCache(server.URL, "cid", "csecret", server.Client())
	if _, err := tc.Token(context.Background()); err == nil {
		t.Fatal("expected error for missing access_token")
	}
}
