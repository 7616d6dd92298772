package smtptest

import (
	"encoding/base64"
	"testing"
)

func b64(s string) string {
	return base64.StdEncoding.EncodeToString([]byte(s))
}

func TestAuthenticator_VerifyPlain(t *testing.T) {
	t.Parallel()

	auth := &authenticator{username: "testuser", password: "testpass"}

	tests := []struct {
		name    string
		encoded string
		wantErr bool
	}{
		{name: "success", encoded: b64("\x00testuser\x00testpass")},
		{name: "with authzid", encoded: b64("admin\x00testuser\x00testpass")},
		{name: "wrong password", encoded: b64("\x00testuser\x00nope"), wantErr: true},
		{name: "missing separator", encoded: b64("testuser testpass"), wantErr: true},
		{name: "invalid base64", encoded: "!!!", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			user, err := auth.verifyPlain(tt.encoded)
			if tt.wantErr {
				if err == nil {
					t.Error("expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if user != "testuser" {
				t.Errorf("user: got %q, want %q", user, "testuser")
			}
		})
	}
}

func TestAuthenticator_VerifyLogin(t *testing.T) {
	t.Parallel()

	auth := &authenticator{username: "testuser", password: "testpass"}

	if _, err := auth.verifyLogin(b64("testuser"), b64("testpass")); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if _, err := auth.verifyLogin(b64("testuser"), b64("wrong")); err == nil {
		t.Error("expected error for wrong password")
	}
	if _, err := auth.verifyLogin("%%%", b64("testpass")); err == nil {
		t.Error("expected error for invalid base64 username")
	}
}
