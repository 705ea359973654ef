// Package domain defines bounties and their task descriptors
package domain

import "time"

// Bounty statuses
const (
	StatusDraft     = "draft"
	StatusPublished = "published"
	StatusClosed    = "closed"
)

// DefaultFingerprintClass is used when a bounty names no classes
const DefaultFingerprintClass = "standard"

// Bounty is a published task definition workers can pick up
type Bounty struct {
	ID                 string         `json:"id"`
	OrgID              string         `json:"org_id"`
	Title              string         `json:"title"`
	Description        string         `json:"description,omitempty"`
	Status             string         `json:"status"`
	AllowedOrigins     []string       `json:"allowed_origins"`
	Descriptor         TaskDescriptor `json:"descriptor"`
	PayoutCents        int64          `json:"payout_cents"`
	RequiredProofs     int            `json:"required_proofs"`
	DisputeWindowSec   int            `json:"dispute_window_sec"`
	Priority           int            `json:"priority"`
	FingerprintClasses []string       `json:"fingerprint_classes"`
	CanaryPercent      float64        `json:"canary_percent"`
	PublishedAt        *time.Time     `json:"published_at,omitempty"`
	CreatedAt          time.Time      `json:"created_at"`
}
