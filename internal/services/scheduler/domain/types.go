// Package domain defines jobs, leases and the scheduling ports
package domain

import (
	"time"

	bdom "proofwork/internal/services/bounties/domain"
)

// Job statuses
const (
	JobOpen      = "open"
	JobLeased    = "leased"
	JobSubmitted = "submitted"
	JobVerifying = "verifying"
	JobDone      = "done"
)

// Final verdicts stamped on done jobs
const (
	VerdictPass      = "pass"
	VerdictFail      = "fail"
	VerdictDuplicate = "duplicate"
	VerdictExhausted = "exhausted_verifications"
)

// Job is one unit of work fanned out from a bounty
type Job struct {
	ID               string `json:"id"`
	BountyID         string `json:"bounty_id"`
	FingerprintClass string `json:"fingerprint_class"`
	Status           string `json:"status"`

	LeaseWorkerID  string     `json:"lease_worker_id,omitempty"`
	LeaseExpiresAt *time.Time `json:"lease_expires_at,omitempty"`
	LeaseNonce     string     `json:"-"`

	CurrentSubmissionID string  `json:"current_submission_id,omitempty"`
	FinalVerdict        string  `json:"final_verdict,omitempty"`
	FinalQualityScore   float64 `json:"final_quality_score,omitempty"`
	FinalReason         string  `json:"final_reason,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}

// Offer is what NextJob and ClaimJob hand to a worker: the job plus the
// bounty context needed to execute it
type Offer struct {
	Job            Job                  `json:"job"`
	Title          string               `json:"title"`
	AllowedOrigins []string             `json:"allowed_origins"`
	Descriptor     bdom.TaskDescriptor  `json:"descriptor"`
	PayoutCents    int64                `json:"payout_cents"`
	Priority       int                  `json:"priority"`
	CanaryPercent  float64              `json:"canary_percent"`
}

// Lease is the grant returned by ClaimJob
type Lease struct {
	JobID     string    `json:"job_id"`
	Nonce     string    `json:"lease_nonce"`
	ExpiresAt time.Time `json:"lease_expires_at"`
}
