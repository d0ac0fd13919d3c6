package auth

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

const testSecret = "test-secret-key-must-be-at-least-32-characters-long"

func newTestManager(t *testing.T, ttl time.Duration) *JWTManager {
	t.Helper()
	m, err := NewJWTManager(testSecret, ttl)
	if err != nil {
		t.Fatalf("Failed to create JWT manager: %v", err)
	}
	return m
}

func TestNewJWTManagerShortSecret(t *testing.T) {
	if _, err := NewJWTManager("short", time.Minute); !errors.Is(err, ErrShortSecret) {
		t.Errorf("err = %v, want ErrShortSecret", err)
	}
}

func TestJWTManager_GenerateToken(t *testing.T) {
	m := newTestManager(t, 15*time.Minute)

	tests := []struct {
		name      string
		subject   string
		scope     string
		wantError bool
	}{
		{"valid token", "orderviz", "documents:read", false},
		{"empty scope is allowed", "orderviz", "", false},
		{"empty subject fails", "", "documents:read", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			token, exp, err := m.GenerateToken(tt.subject, tt.scope)
			if tt.wantError {
				if err == nil {
					t.Error("Expected error but got none")
				}
				if token != "" {
					t.Errorf("Expected empty token on error, got %s", token)
				}
				return
			}
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			if strings.Count(token, ".") != 2 {
				t.Errorf("Token is not header.payload.signature: %s", token)
			}
			if d := time.Until(exp); d < 14*time.Minute || d > 15*time.Minute {
				t.Errorf("expiry in %v, want ~15m", d)
			}
		})
	}
}

func TestJWTManager_ValidateToken(t *testing.T) {
	m := newTestManager(t, time.Hour)
	token, _, err := m.GenerateToken("orderviz", "documents:read")
	if err != nil {
		t.Fatalf("GenerateToken() error = %v", err)
	}

	claims, err := m.ValidateToken(context.Background(), token)
	if err != nil {
		t.Fatalf("ValidateToken() error = %v", err)
	}
	if claims.Subject != "orderviz" || claims.Scope != "documents:read" {
		t.Errorf("claims = %+v", claims)
	}

	other, _ := NewJWTManager(strings.Repeat("x", 40), time.Hour)
	if _, err := other.ValidateToken(context.Background(), token); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("wrong secret: err = %v, want ErrInvalidToken", err)
	}
	if _, err := m.ValidateToken(context.Background(), ""); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("empty token: err = %v, want ErrInvalidToken", err)
	}
	if _, err := m.ValidateToken(context.Background(), "not.a.token"); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("garbage token: err = %v, want ErrInvalidToken", err)
	}
}

func TestJWTManager_ExpiredToken(t *testing.T) {
	m := newTestManager(t, time.Minute)
	m.now = func() time.Time { return time.Now().Add(-time.Hour) }
	token, _, err := m.GenerateToken("orderviz", "")
	if err != nil {
		t.Fatalf("GenerateToken() error = %v", err)
	}

	m.now = time.Now
	if _, err := m.ValidateToken(context.Background(), token); !errors.Is(err, ErrExpiredToken) {
		t.Errorf("err = %v, want ErrExpiredToken", err)
	}
}

func TestRequireToken(t *testing.T) {
	m := newTestManager(t, time.Hour)
	token, _, _ := m.GenerateToken("render-client", "graphs:read")

	var seen *Claims
	h := m.RequireToken(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = ClaimsFromContext(r.Context())
		w.WriteHeader(http.StatusNoContent)
	}))

	tests := []struct {
		name   string
		header string
		want   int
	}{
		{"missing header", "", http.StatusUnauthorized},
		{"wrong scheme", "Basic " + token, http.StatusUnauthorized},
		{"bad token", "Bearer nope", http.StatusUnauthorized},
		{"valid token", "Bearer " + token, http.StatusNoContent},
		{"lowercase scheme", "bearer " + token, http.StatusNoContent},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/graphs/x.svg", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			if rec.Code != tt.want {
				t.Errorf("status = %d, want %d", rec.Code, tt.want)
			}
		})
	}

	if seen == nil || seen.Subject != "render-client" {
		t.Errorf("claims in context = %+v", seen)
	}
}
