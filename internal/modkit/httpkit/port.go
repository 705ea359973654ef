// Package httpkit provides tiny HTTP helpers and adapters
package httpkit

import (
	"net/http"
	"strings"

	perrs "proofwork/internal/platform/errors"
	"proofwork/internal/platform/net/middleware"
)

// TokenFunc resolves a raw bearer token into an Identity
type TokenFunc func(r *http.Request, token string) (middleware.Identity, error)

// Port implements middleware.AuthPort by reading Authorization and delegating to a TokenFunc
type Port struct {
	parse TokenFunc
}

// NewPortFunc builds a Port from a simple parser function
func NewPortFunc(fn TokenFunc) *Port {
	return &Port{parse: fn}
}

// BearerToken extracts the raw bearer token from an Authorization header
// returns unauthorized when the header is missing or malformed
func BearerToken(r *http.Request) (string, error) {
	authz := r.Header.Get("Authorization")
	s := strings.TrimSpace(authz)
	if s == "" {
		return "", perrs.Unauthorizedf("missing bearer token")
	}
	ls := strings.ToLower(s)
	const prefix = "bearer"
	if !strings.HasPrefix(ls, prefix) {
		return "", perrs.Unauthorizedf("missing bearer token")
	}
	raw := strings.TrimSpace(s[len(prefix):])
	if raw == "" {
		return "", perrs.Unauthorizedf("missing bearer token")
	}
	return raw, nil
}

// Parse extracts the identity from the Authorization Bearer token
// returns unauthorized when the header is missing, malformed, or the parser rejects it
func (p *Port) Parse(r *http.Request) (middleware.Identity, error) {
	raw, err := BearerToken(r)
	if err != nil {
		return middleware.Identity{}, err
	}
	if p.parse == nil {
		return middleware.Identity{}, perrs.Unauthorizedf("invalid bearer token")
	}
	id, err := p.parse(r, raw)
	if err != nil {
		return middleware.Identity{}, perrs.Unauthorizedf("invalid bearer token")
	}
	return id, nil
}
