// Package domain defines the verification entities and ports
package domain

import (
	"encoding/json"
	"time"
)

// Verification statuses
const (
	StatusQueued    = "queued"
	StatusClaimed   = "claimed"
	StatusCompleted = "completed"
	StatusExpired   = "expired"
)

// Verdicts a verifier may return
const (
	VerdictPass         = "pass"
	VerdictFail         = "fail"
	VerdictInconclusive = "inconclusive"
)

// MaxAttempts bounds inconclusive re-verification per submission
const MaxAttempts = 5

// Verification is one verifier attempt over a submission
type Verification struct {
	ID             string          `json:"id"`
	SubmissionID   string          `json:"submission_id"`
	AttemptNo      int             `json:"attempt_no"`
	Status         string          `json:"status"`
	ClaimToken     string          `json:"-"`
	ClaimedBy      string          `json:"claimed_by,omitempty"`
	ClaimExpiresAt *time.Time      `json:"claim_expires_at,omitempty"`
	Verdict        string          `json:"verdict,omitempty"`
	Reason         string          `json:"reason,omitempty"`
	Scorecard      json.RawMessage `json:"scorecard,omitempty"`
	Evidence       []string        `json:"evidence,omitempty"`
	CompletedAt    *time.Time      `json:"completed_at,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`
}
