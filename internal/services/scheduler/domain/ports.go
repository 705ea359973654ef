package domain

import (
	"context"
	"time"

	"proofwork/internal/modkit/repokit"
)

// Filters narrow what NextJob and ClaimJob consider
type Filters struct {
	CapabilityTags []string `json:"capability_tags,omitempty"`
	PreferredTag   string   `json:"preferred_tag,omitempty"`
	MinPayoutCents int64    `json:"min_payout_cents,omitempty"`
	TaskType       string   `json:"task_type,omitempty"`
	ExcludeJobIDs  []string `json:"exclude_job_ids,omitempty"`
}

// NextJob outcomes
const (
	StateOK   = "ok"
	StateIdle = "idle"
)

// NextResult is the NextJob probe outcome
type NextResult struct {
	State string `json:"state"`
	Offer *Offer `json:"offer,omitempty"`
}

// ClaimResult is a successful claim
type ClaimResult struct {
	Offer Offer `json:"offer"`
	Lease Lease `json:"lease"`
}

// Port is the worker-facing scheduling surface
type Port interface {
	NextJob(ctx context.Context, workerID string, f Filters) (NextResult, error)
	ClaimJob(ctx context.Context, workerID, jobID string) (ClaimResult, error)
	RenewLease(ctx context.Context, workerID, jobID, nonce string) (time.Time, error)
	ReleaseLease(ctx context.Context, workerID, jobID, nonce, reason string) error
}

// SweeperPort runs the expired-lease sweep
type SweeperPort interface {
	RunSweeper(ctx context.Context) error
	SweepOnce(ctx context.Context) (int, error)
}

// LeasePort is the cross-module check submission intake performs
type LeasePort interface {
	// HoldsLease verifies the worker holds the job's current unexpired
	// lease under the supplied nonce
	HoldsLease(ctx context.Context, workerID, jobID, nonce string) (Job, error)
}

// TransitionPort advances a job's lifecycle on the caller's Queryer so
// the move commits with the state change that caused it
type TransitionPort interface {
	MarkSubmittedOn(ctx context.Context, q repokit.Queryer, jobID, submissionID string) error
	MarkVerifyingOn(ctx context.Context, q repokit.Queryer, jobID string) error
	MarkDoneOn(ctx context.Context, q repokit.Queryer, jobID, verdict string, qualityScore float64, reason string) error
	JobByIDOn(ctx context.Context, q repokit.Queryer, jobID string) (Job, error)
}
