// Package auth turns bearer tokens into internal users.
package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"emitrack/internal/core"
	"emitrack/internal/log"
	"emitrack/internal/storage"
)

const (
	ModeJWT = "jwt"
	ModeDev = "dev"
)

var (
	ErrMissingToken = errors.New("missing bearer token")
	ErrInvalidToken = errors.New("invalid token")
)

type contextKey struct{}

// Verifier checks tokens issued by the identity provider. In dev mode the
// token is not verified and its raw value is used as the subject.
type Verifier struct {
	mode   string
	secret []byte
	issuer string
}

func NewVerifier(mode, secret, issuer string) (*Verifier, error) {
	switch mode {
	case ModeDev:
	case ModeJWT:
		if secret == "" {
			return nil, errors.New("jwt mode requires a secret")
		}
	default:
		return nil, fmt.Errorf("unknown auth mode %q", mode)
	}
	return &Verifier{mode: mode, secret: []byte(secret), issuer: issuer}, nil
}

// Subject returns the identity-provider subject the token was issued to.
func (v *Verifier) Subject(token string) (string, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return "", ErrMissingToken
	}
	if v.mode == ModeDev {
		return token, nil
	}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithLeeway(30 * time.Second),
	}
	if v.issuer != "" {
		opts = append(opts, jwt.WithIssuer(v.issuer))
	}

	var claims jwt.RegisteredClaims
	_, err := jwt.ParseWithClaims(token, &claims, func(*jwt.Token) (any, error) {
		return v.secret, nil
	}, opts...)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}
	if claims.Subject == "" {
		return "", fmt.Errorf("%w: no subject", ErrInvalidToken)
	}
	return claims.Subject, nil
}

func bearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if len(h) < 7 || !strings.EqualFold(h[:7], "bearer ") {
		return ""
	}
	return h[7:]
}

// Middleware authenticates every request and stores the internal user in the
// request context. Unknown subjects are provisioned on first sight.
func Middleware(v *Verifier, users storage.UserStore) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			subject, err := v.Subject(bearerToken(r))
			if err != nil {
				slog.WarnContext(ctx, "Rejected unauthenticated request",
					log.FieldComponent, log.ComponentAuth,
					log.FieldPath, r.URL.Path,
					log.FieldError, err)
				unauthorized(w)
				return
			}

			user, err := users.EnsureUser(ctx, subject)
			if err != nil {
				slog.ErrorContext(ctx, "Failed to resolve user",
					log.FieldComponent, log.ComponentAuth,
					log.FieldError, err)
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusInternalServerError)
				json.NewEncoder(w).Encode(map[string]string{"error": "internal server error"})
				return
			}

			next.ServeHTTP(w, r.WithContext(WithUser(ctx, user)))
		})
	}
}

func unauthorized(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("WWW-Authenticate", `Bearer realm="emitrack"`)
	w.WriteHeader(http.StatusUnauthorized)
	json.NewEncoder(w).Encode(map[string]string{"error": "unauthorized"})
}

func WithUser(ctx context.Context, u core.User) context.Context {
	return context.WithValue(ctx, contextKey{}, u)
}

// UserFromContext returns the user set by Middleware.
func UserFromContext(ctx context.Context) (core.User, bool) {
	u, ok := ctx.Value(contextKey{}).(core.User)
	return u, ok
}
