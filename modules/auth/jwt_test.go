package auth

import (
	"strings"
	"testing"
	"time"
)

func testTokenConfig(now func() time.Time) TokenConfig {
	return TokenConfig{
		Secret: "test-secret-key",
		Issuer: "test-issuer",
		TTL:    7 * 24 * time.Hour,
		Now:    now,
	}
}

func TestTokenManager_IssueAndVerify(t *testing.T) {
	manager := NewTokenManager(testTokenConfig(nil))

	token, expiresAt, err := manager.Issue(42)
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}
	if token == "" {
		t.Fatal("Issue() returned empty token")
	}

	wantExpiry := time.Now().Add(7 * 24 * time.Hour)
	if diff := expiresAt.Sub(wantExpiry); diff > time.Minute || diff < -time.Minute {
		t.Errorf("expiresAt = %v, want about %v", expiresAt, wantExpiry)
	}

	claims, err := manager.Verify(token)
	if err != nil {
		t.Fatalf("Verify() error = %v", err)
	}
	if claims.UserID != 42 {
		t.Errorf("claims.UserID = %v, want 42", claims.UserID)
	}
}

func TestTokenManager_ExpiredToken(t *testing.T) {
	issuedAt := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	clock := issuedAt
	manager := NewTokenManager(testTokenConfig(func() time.Time { return clock }))

	token, _, err := manager.Issue(7)
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}

	clock = issuedAt.Add(6*24*time.Hour + 23*time.Hour)
	if _, err := manager.Verify(token); err != nil {
		t.Fatalf("Verify() before expiry error = %v", err)
	}

	clock = issuedAt.Add(7*24*time.Hour + time.Second)
	_, err = manager.Verify(token)
	if err != ErrExpiredToken {
		t.Errorf("Verify() after expiry error = %v, want ErrExpiredToken", err)
	}
}

func TestTokenManager_TamperedSignature(t *testing.T) {
	manager := NewTokenManager(testTokenConfig(nil))

	token, _, err := manager.Issue(1)
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}

	// Flip one character of the signature segment.
	idx := strings.LastIndex(token, ".") + 1
	flipped := []byte(token)
	if flipped[idx] == 'A' {
		flipped[idx] = 'B'
	} else {
		flipped[idx] = 'A'
	}

	if _, err := manager.Verify(string(flipped)); err != ErrInvalidToken {
		t.Errorf("Verify() error = %v, want ErrInvalidToken", err)
	}
}

func TestTokenManager_TamperedPayload(t *testing.T) {
	manager := NewTokenManager(testTokenConfig(nil))

	original, _, err := manager.Issue(1)
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}
	other, _, err := manager.Issue(2)
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}

	// Splice the payload of one token onto the signature of another.
	a := strings.Split(original, ".")
	b := strings.Split(other, ".")
	forged := a[0] + "." + b[1] + "." + a[2]

	if _, err := manager.Verify(forged); err != ErrInvalidToken {
		t.Errorf("Verify() error = %v, want ErrInvalidToken", err)
	}
}

func TestTokenManager_WrongSecret(t *testing.T) {
	issuer := NewTokenManager(testTokenConfig(nil))
	cfg := testTokenConfig(nil)
	cfg.Secret = "another-secret"
	verifier := NewTokenManager(cfg)

	token, _, err := issuer.Issue(1)
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}

	if _, err := verifier.Verify(token); err != ErrInvalidToken {
		t.Errorf("Verify() error = %v, want ErrInvalidToken", err)
	}
}

func TestTokenManager_MalformedTokens(t *testing.T) {
	manager := NewTokenManager(testTokenConfig(nil))

	tests := []struct {
		name  string
		token string
	}{
		{name: "empty", token: ""},
		{name: "garbage", token: "not-a-token"},
		{name: "two segments", token: "abc.def"},
		{name: "unsigned alg none", token: "eyJhbGciOiJub25lIiwidHlwIjoiSldUIn0.eyJpZCI6MX0."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			claims, err := manager.Verify(tt.token)
			if err != ErrInvalidToken {
				t.Errorf("Verify() error = %v, want ErrInvalidToken", err)
			}
			if claims != nil {
				t.Errorf("Verify() claims = %v, want nil", claims)
			}
		})
	}
}
