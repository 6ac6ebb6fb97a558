package httpapi

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func testAuth(t *testing.T) *AuthManager {
	t.Helper()
	auth := NewAuthManager("test-secret", time.Hour)
	if err := auth.SeedUser("cashier", "pass123"); err != nil {
		t.Fatalf("SeedUser: %v", err)
	}
	return auth
}

func TestAuthenticateAndVerify(t *testing.T) {
	auth := testAuth(t)

	token, expiresAt, err := auth.Authenticate("cashier", "pass123")
	if err != nil {
		t.Fatalf("Authenticate: %v", err)
	}
	if token == "" {
		t.Fatalf("expected a token")
	}
	if time.Until(expiresAt) <= 0 {
		t.Fatalf("expected a future expiry, got %v", expiresAt)
	}

	subject, err := auth.Verify(token)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if subject != "cashier" {
		t.Fatalf("unexpected subject: %q", subject)
	}
}

func TestAuthenticateRejectsBadCredentials(t *testing.T) {
	auth := testAuth(t)

	if _, _, err := auth.Authenticate("cashier", "wrong"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials for wrong password, got %v", err)
	}
	if _, _, err := auth.Authenticate("ghost", "pass123"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials for unknown user, got %v", err)
	}
}

func TestVerifyRejectsForeignToken(t *testing.T) {
	auth := testAuth(t)
	other := NewAuthManager("other-secret", time.Hour)
	other.SeedUser("cashier", "pass123")

	token, _, err := other.Authenticate("cashier", "pass123")
	if err != nil {
		t.Fatalf("Authenticate: %v", err)
	}
	if _, err := auth.Verify(token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
}

func TestVerifyRejectsExpiredToken(t *testing.T) {
	auth := NewAuthManager("test-secret", -time.Minute)
	auth.SeedUser("cashier", "pass123")

	token, _, err := auth.Authenticate("cashier", "pass123")
	if err != nil {
		t.Fatalf("Authenticate: %v", err)
	}
	if _, err := auth.Verify(token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken for expired token, got %v", err)
	}
}

func TestMiddlewareRequiresBearerToken(t *testing.T) {
	auth := testAuth(t)
	handler := auth.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", rec.Code)
	}

	token, _, _ := auth.Authenticate("cashier", "pass123")
	req = httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 with token, got %d", rec.Code)
	}
}
