// Package auth implements JWT-based principal extraction for the query
// surface. Modeled on gateway/middleware.Authenticator
// (gateway/middleware/auth.go) — HMAC bearer-token validation with issuer/
// audience/clock-skew checks — generalized from "scopes" to "which
// model.ID is the caller", since every request operation here is
// authorized by policy/permission lookup rather than static scopes.
package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"

	"ctrlplane/internal/ids"
)

// Config configures bearer-token validation.
type Config struct {
	Enabled    bool
	HMACSecret string
	Issuer     string
	Audience   string
	ClockSkew  time.Duration
}

type contextKey string

const contextKeyPrincipal contextKey = "httpapi.principal"

// Authenticator validates bearer tokens and extracts the caller's user id
// from the "sub" claim.
type Authenticator struct {
	cfg    Config
	secret []byte
}

func NewAuthenticator(cfg Config) *Authenticator {
	if cfg.ClockSkew <= 0 {
		cfg.ClockSkew = 2 * time.Minute
	}
	return &Authenticator{cfg: cfg, secret: []byte(strings.TrimSpace(cfg.HMACSecret))}
}

// Middleware validates the bearer token and injects the caller's id into
// the request context. When disabled (e.g. local development), it is a
// no-op passthrough.
func (a *Authenticator) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !a.cfg.Enabled {
			next.ServeHTTP(w, r)
			return
		}
		tokenString := extractBearer(r.Header.Get("Authorization"))
		if tokenString == "" {
			http.Error(w, "missing bearer token", http.StatusUnauthorized)
			return
		}
		principal, err := a.parsePrincipal(tokenString)
		if err != nil {
			http.Error(w, "invalid token", http.StatusUnauthorized)
			return
		}
		ctx := context.WithValue(r.Context(), contextKeyPrincipal, principal)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (a *Authenticator) parsePrincipal(tokenString string) (ids.ID, error) {
	if len(a.secret) == 0 {
		return ids.Nil, errors.New("auth secret not configured")
	}
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return a.secret, nil
	}, jwt.WithLeeway(a.cfg.ClockSkew))
	if err != nil {
		return ids.Nil, err
	}
	if !token.Valid {
		return ids.Nil, errors.New("token invalid")
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return ids.Nil, errors.New("claims not map")
	}
	if err := validateClaims(claims, a.cfg.Issuer, a.cfg.Audience); err != nil {
		return ids.Nil, err
	}
	sub, ok := claims["sub"].(string)
	if !ok {
		return ids.Nil, errors.New("missing sub claim")
	}
	return ids.Parse(sub)
}

func validateClaims(claims jwt.MapClaims, issuer, audience string) error {
	if issuer != "" {
		if v, ok := claims["iss"].(string); !ok || v != issuer {
			return errors.New("issuer mismatch")
		}
	}
	if audience != "" {
		switch v := claims["aud"].(type) {
		case string:
			if v != audience {
				return errors.New("audience mismatch")
			}
		case []interface{}:
			matched := false
			for _, entry := range v {
				if s, ok := entry.(string); ok && s == audience {
					matched = true
					break
				}
			}
			if !matched {
				return errors.New("audience mismatch")
			}
		}
	}
	if exp, ok := claims["exp"].(float64); ok && int64(exp) < time.Now().Unix() {
		return errors.New("token expired")
	}
	return nil
}

func extractBearer(header string) string {
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

// Principal returns the caller's id extracted by Middleware, and whether
// one was present (false when auth is disabled and no bearer token was
// sent — callers fall back to an explicit query parameter in that mode).
func Principal(ctx context.Context) (ids.ID, bool) {
	v, ok := ctx.Value(contextKeyPrincipal).(ids.ID)
	return v, ok
}
