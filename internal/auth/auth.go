// Package auth verifies HS256 bearer tokens issued by the identity provider
// and carries the token subject on the request context.
package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

var ErrInvalidToken = errors.New("invalid token")

type ctxKey struct{}

// Verifier checks bearer tokens against a shared secret.
type Verifier struct {
	secret []byte
	logger *slog.Logger
}

func NewVerifier(secret string, logger *slog.Logger) *Verifier {
	return &Verifier{secret: []byte(secret), logger: logger}
}

// Verify parses and validates a token and returns its subject.
func (v *Verifier) Verify(token string) (string, error) {
	claims := &jwt.RegisteredClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return v.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !parsed.Valid || claims.Subject == "" {
		return "", fmt.Errorf("%w: missing subject", ErrInvalidToken)
	}
	return claims.Subject, nil
}

// Middleware rejects requests without a valid bearer token and stores the
// token subject on the request context.
func (v *Verifier) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r)
		if token == "" {
			writeUnauthorized(w, "missing or invalid Authorization header")
			return
		}
		sub, err := v.Verify(token)
		if err != nil {
			v.logger.Debug("bearer token rejected", "path", r.URL.Path, "error", err)
			writeUnauthorized(w, "invalid or expired token")
			return
		}
		next.ServeHTTP(w, r.WithContext(WithSubject(r.Context(), sub)))
	})
}

// Optional validates a bearer token when one is sent and otherwise lets the
// request through anonymously.
func (v *Verifier) Optional(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") == "" {
			next.ServeHTTP(w, r)
			return
		}
		v.Middleware(next).ServeHTTP(w, r)
	})
}

func WithSubject(ctx context.Context, sub string) context.Context {
	return context.WithValue(ctx, ctxKey{}, sub)
}

// Subject returns the authenticated subject, if any.
func Subject(ctx context.Context) (string, bool) {
	sub, ok := ctx.Value(ctxKey{}).(string)
	return sub, ok && sub != ""
}

// Permits reports whether the caller may act for userID. Unauthenticated
// contexts are permitted; auth is off when no secret is configured.
func Permits(ctx context.Context, userID string) bool {
	sub, ok := Subject(ctx)
	return !ok || sub == userID
}

func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if !strings.HasPrefix(header, prefix) {
		return ""
	}
	return strings.TrimSpace(strings.TrimPrefix(header, prefix))
}

func writeUnauthorized(w http.ResponseWriter, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(map[string]string{"detail": message})
}
