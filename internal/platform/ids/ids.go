// Package ids mints prefixed opaque identifiers for API resources
package ids

import (
	"strings"

	"github.com/google/uuid"
)

// Resource prefixes
// The prefix makes ids self-describing in logs and support tickets
const (
	PrefixOrg          = "org"
	PrefixWorker       = "wrk"
	PrefixOrigin       = "orig"
	PrefixBounty       = "bnt"
	PrefixJob          = "job"
	PrefixSubmission   = "sub"
	PrefixVerification = "ver"
	PrefixPayout       = "pay"
	PrefixTransfer     = "xfer"
	PrefixArtifact     = "art"
	PrefixEvent        = "evt"
	PrefixLedger       = "led"
	PrefixAPIKey       = "pwk"
	PrefixSession      = "ses"
	PrefixAudit        = "aud"
)

// New mints a fresh id with the given prefix, e.g. "job_9f1c..."
func New(prefix string) string {
	return prefix + "_" + strings.ReplaceAll(uuid.NewString(), "-", "")
}

// Is reports whether id carries the given resource prefix
func Is(id, prefix string) bool {
	return strings.HasPrefix(id, prefix+"_") && len(id) > len(prefix)+1
}

// Valid reports whether id looks like one of ours: a known-shape prefix,
// an underscore, and a nonempty opaque tail
func Valid(id string) bool {
	i := strings.IndexByte(id, '_')
	if i <= 0 || i == len(id)-1 {
		return false
	}
	return true
}
