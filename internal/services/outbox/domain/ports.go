// Package domain defines the outbox event model and ports
package domain

import (
	"context"
	"encoding/json"
	"time"

	"proofwork/internal/modkit/repokit"
)

// Event statuses
const (
	StatusPending = "pending"
	StatusSent    = "sent"
	StatusFailed  = "failed"
	StatusDead    = "dead"
)

// Well-known topics emitted by the core
const (
	TopicSubmissionReceived     = "submission.received"
	TopicSubmissionAccepted     = "submission.accepted"
	TopicSubmissionRejected     = "submission.rejected"
	TopicSubmissionDuplicate    = "submission.duplicate"
	TopicJobLeaseExpired        = "job.lease_expired"
	TopicVerificationExpired    = "verification.claim_expired"
	TopicBountyPublished        = "bounty.published"
	TopicPayoutPaid             = "payout.paid"
	TopicPayoutFailed           = "payout.failed"
	TopicArtifactBlocked        = "artifact.blocked"
	TopicTopupCompleted         = "billing.topup_completed"
)

// Event is a single outbox row
type Event struct {
	ID             string
	Topic          string
	Payload        json.RawMessage
	Status         string
	Attempts       int
	AvailableAt    time.Time
	LockedAt       *time.Time
	LockedBy       string
	IdempotencyKey string
	LastError      string
	SentAt         *time.Time
	CreatedAt      time.Time
}

// EmitterPort writes events inside the caller's transaction
// q must be the same Queryer the surrounding state change runs on
type EmitterPort interface {
	Emit(ctx context.Context, q repokit.Queryer, topic string, payload any, idemKey string) error
}

// Sink delivers one event to an external or in-process consumer
type Sink interface {
	Deliver(ctx context.Context, ev Event) error
}

// DispatcherPort runs the delivery loop
type DispatcherPort interface {
	Run(ctx context.Context) error
}

// ReaperPort archives and purges sent events
type ReaperPort interface {
	RunReaper(ctx context.Context) error
	ReapOnce(ctx context.Context) (int, error)
}
