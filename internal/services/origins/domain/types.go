// Package domain defines origin ownership verification types and ports
package domain

import (
	"net/url"
	"strings"
	"time"

	perr "proofwork/internal/platform/errors"
)

// Origin statuses
const (
	StatusPending   = "pending"
	StatusVerifying = "verifying"
	StatusVerified  = "verified"
	StatusFailed    = "failed"
)

// Verification methods
const (
	MethodHeader   = "header"
	MethodHTTPFile = "http_file"
)

// WellKnownPath is where the http_file method expects the token
const WellKnownPath = "/.well-known/proofwork-verification.txt"

// VerificationHeader is where the header method expects the token
const VerificationHeader = "X-Proofwork-Verification"

// Origin is one (org, origin) ownership claim
type Origin struct {
	ID         string     `json:"id"`
	OrgID      string     `json:"org_id"`
	Origin     string     `json:"origin"`
	Status     string     `json:"status"`
	Method     string     `json:"method"`
	Token      string     `json:"-"`
	LastError  string     `json:"last_error,omitempty"`
	VerifiedAt *time.Time `json:"verified_at,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
}

// Normalize canonicalizes a raw origin string to scheme://host[:port]
// Rejects non-http(s) schemes, userinfo, and empty hosts
func Normalize(raw string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return "", perr.InvalidArgf("origin %q is not a valid URL", raw)
	}
	scheme := strings.ToLower(u.Scheme)
	if scheme != "http" && scheme != "https" {
		return "", perr.InvalidArgf("origin scheme must be http or https")
	}
	if u.User != nil {
		return "", perr.InvalidArgf("origin must not carry userinfo")
	}
	host := strings.ToLower(u.Host)
	if host == "" {
		return "", perr.InvalidArgf("origin %q has no host", raw)
	}
	return scheme + "://" + host, nil
}
