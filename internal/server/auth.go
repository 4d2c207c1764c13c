package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/desertthunder/alchemy/internal/shared"
)

// Claims are the JWT claims of an admin API token.
type Claims struct {
	Permissions []string `json:"permissions"`
	jwt.RegisteredClaims
}

// Has reports whether the token grants permission.
func (c *Claims) Has(permission string) bool {
	return slices.Contains(c.Permissions, permission)
}

type claimsKey struct{}

// ClaimsFromContext returns the claims of the authenticated request, if any.
func ClaimsFromContext(ctx context.Context) (*Claims, bool) {
	c, ok := ctx.Value(claimsKey{}).(*Claims)
	return c, ok
}

// Authenticator issues and verifies HS256 bearer tokens.
//
// An empty secret disables authentication: every request is let through.
type Authenticator struct {
	secret []byte
	issuer string
}

// NewAuthenticator creates an [Authenticator] from the auth configuration.
func NewAuthenticator(cfg shared.AuthConfig) *Authenticator {
	return &Authenticator{secret: []byte(cfg.JWTSecret), issuer: cfg.Issuer}
}

// Enabled reports whether tokens are checked.
func (a *Authenticator) Enabled() bool {
	return len(a.secret) > 0
}

// Issue signs a token for subject granting permissions, valid for ttl.
func (a *Authenticator) Issue(subject string, permissions []string, ttl time.Duration) (string, error) {
	if !a.Enabled() {
		return "", fmt.Errorf("%w: auth.jwt_secret is not set", shared.ErrMissingConfig)
	}

	now := time.Now()
	claims := Claims{
		Permissions: permissions,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			Issuer:    a.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(a.secret)
}

// Verify parses a signed token and returns its claims.
func (a *Authenticator) Verify(tokenString string) (*Claims, error) {
	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})}
	if a.issuer != "" {
		opts = append(opts, jwt.WithIssuer(a.issuer))
	}

	claims := &Claims{}
	_, err := jwt.ParseWithClaims(tokenString, claims, func(*jwt.Token) (any, error) {
		return a.secret, nil
	}, opts...)

	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return nil, shared.ErrTokenExpired
	case err != nil:
		return nil, fmt.Errorf("%w: %v", shared.ErrNotAuthenticated, err)
	}
	return claims, nil
}

// Allows reports whether the request carries a valid token granting permission.
// Every request is allowed when authentication is disabled.
func (a *Authenticator) Allows(r *http.Request, permission string) bool {
	if !a.Enabled() {
		return true
	}
	if claims, ok := ClaimsFromContext(r.Context()); ok {
		return claims.Has(permission)
	}

	raw, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
	if !ok || raw == "" {
		return false
	}
	claims, err := a.Verify(raw)
	return err == nil && claims.Has(permission)
}

// Require rejects requests without a valid bearer token granting permission.
func (a *Authenticator) Require(permission string) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !a.Enabled() {
				next.ServeHTTP(w, r)
				return
			}

			raw, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
			if !ok || raw == "" {
				WriteErr(w, fmt.Errorf("%w: missing bearer token", shared.ErrNotAuthenticated))
				return
			}

			claims, err := a.Verify(raw)
			if err != nil {
				WriteErr(w, err)
				return
			}
			if !claims.Has(permission) {
				WriteErr(w, fmt.Errorf("%w: %s required", shared.ErrForbidden, permission))
				return
			}

			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), claimsKey{}, claims)))
		})
	}
}
