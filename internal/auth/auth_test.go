package auth

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret-key-32-chars-min!!!"

func sign(t *testing.T, method jwt.SigningMethod, key any, claims jwt.RegisteredClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(method, claims).SignedString(key)
	require.NoError(t, err)
	return token
}

func validClaims(sub string) jwt.RegisteredClaims {
	return jwt.RegisteredClaims{
		Subject:   sub,
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		IssuedAt:  jwt.NewNumericDate(time.Now()),
	}
}

func TestMiddleware(t *testing.T) {
	v := NewVerifier(testSecret, slog.Default())

	expired := validClaims("u1")
	expired.ExpiresAt = jwt.NewNumericDate(time.Now().Add(-time.Hour))

	noExpiry := validClaims("u1")
	noExpiry.ExpiresAt = nil

	tests := []struct {
		name       string
		header     string
		wantStatus int
		wantSub    string
	}{
		{"missing header", "", http.StatusUnauthorized, ""},
		{"wrong scheme", "Basic abc", http.StatusUnauthorized, ""},
		{"empty bearer", "Bearer ", http.StatusUnauthorized, ""},
		{"garbage token", "Bearer not.a.jwt", http.StatusUnauthorized, ""},
		{"wrong secret", "Bearer " + sign(t, jwt.SigningMethodHS256, []byte("other"), validClaims("u1")), http.StatusUnauthorized, ""},
		{"wrong algorithm", "Bearer " + sign(t, jwt.SigningMethodHS512, []byte(testSecret), validClaims("u1")), http.StatusUnauthorized, ""},
		{"expired", "Bearer " + sign(t, jwt.SigningMethodHS256, []byte(testSecret), expired), http.StatusUnauthorized, ""},
		{"no expiry", "Bearer " + sign(t, jwt.SigningMethodHS256, []byte(testSecret), noExpiry), http.StatusUnauthorized, ""},
		{"no subject", "Bearer " + sign(t, jwt.SigningMethodHS256, []byte(testSecret), validClaims("")), http.StatusUnauthorized, ""},
		{"valid", "Bearer " + sign(t, jwt.SigningMethodHS256, []byte(testSecret), validClaims("u1")), http.StatusOK, "u1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var gotSub string
			called := false
			h := v.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				called = true
				gotSub, _ = Subject(r.Context())
				w.WriteHeader(http.StatusOK)
			}))

			req := httptest.NewRequest(http.MethodGet, "/api/orders/user/u1", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rr := httptest.NewRecorder()
			h.ServeHTTP(rr, req)

			assert.Equal(t, tt.wantStatus, rr.Code)
			assert.Equal(t, tt.wantStatus == http.StatusOK, called)
			assert.Equal(t, tt.wantSub, gotSub)
			if tt.wantStatus == http.StatusUnauthorized {
				assert.Contains(t, rr.Body.String(), `"detail"`)
			}
		})
	}
}

func TestPermits(t *testing.T) {
	ctx := context.Background()
	assert.True(t, Permits(ctx, "anyone"))

	ctx = WithSubject(ctx, "u1")
	assert.True(t, Permits(ctx, "u1"))
	assert.False(t, Permits(ctx, "u2"))
}

func TestOptional(t *testing.T) {
	v := NewVerifier(testSecret, slog.Default())

	tests := []struct {
		name       string
		header     string
		wantStatus int
		wantSub    string
	}{
		{"anonymous", "", http.StatusOK, ""},
		{"valid", "Bearer " + sign(t, jwt.SigningMethodHS256, []byte(testSecret), validClaims("u1")), http.StatusOK, "u1"},
		{"invalid", "Bearer nope", http.StatusUnauthorized, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var gotSub string
			h := v.Optional(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				gotSub, _ = Subject(r.Context())
			}))
			req := httptest.NewRequest(http.MethodPost, "/api/chat/message", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rr := httptest.NewRecorder()
			h.ServeHTTP(rr, req)

			assert.Equal(t, tt.wantStatus, rr.Code)
			assert.Equal(t, tt.wantSub, gotSub)
		})
	}
}
