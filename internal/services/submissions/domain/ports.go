package domain

import (
	"context"

	"proofwork/internal/modkit/repokit"
)

// SubmitInput is the body of a job submission. The idempotency key
// arrives in a header and is filled in by the transport layer
type SubmitInput struct {
	Manifest       Manifest `json:"manifest"`
	ArtifactIDs    []string `json:"artifact_index,omitempty" validate:"omitempty,max=32"`
	LeaseNonce     string   `json:"lease_nonce" validate:"required"`
	IdempotencyKey string   `json:"-"`
}

// Port is the worker-facing submission surface
type Port interface {
	Submit(ctx context.Context, workerID, jobID string, in SubmitInput) (Submission, error)
	ByID(ctx context.Context, submissionID string) (Submission, error)
}

// SettlePort is the transactional surface verification drives when a
// verdict lands. All methods run on the caller's Queryer
type SettlePort interface {
	ByIDOn(ctx context.Context, q repokit.Queryer, submissionID string) (Submission, error)
	SetStatusOn(ctx context.Context, q repokit.Queryer, submissionID, status string) error
	SeenDedupeOn(ctx context.Context, q repokit.Queryer, bountyID, dedupeKey string) (bool, error)
	SeedDedupeOn(ctx context.Context, q repokit.Queryer, bountyID, dedupeKey, submissionID string) error
}
