package domain

import (
	"context"

	"proofwork/internal/modkit/repokit"
)

// CreateInput drafts a bounty
type CreateInput struct {
	Title              string         `json:"title" validate:"required,min=1,max=200"`
	Description        string         `json:"description,omitempty"`
	AllowedOrigins     []string       `json:"allowed_origins,omitempty"`
	Descriptor         TaskDescriptor `json:"descriptor"`
	PayoutCents        int64          `json:"payout_cents" validate:"required,gt=0"`
	RequiredProofs     int            `json:"required_proofs,omitempty" validate:"omitempty,gte=1,lte=10"`
	DisputeWindowSec   int            `json:"dispute_window_sec,omitempty" validate:"omitempty,gte=0"`
	Priority           int            `json:"priority,omitempty"`
	FingerprintClasses []string       `json:"fingerprint_classes,omitempty"`
	CanaryPercent      float64        `json:"canary_percent,omitempty" validate:"omitempty,gte=0,lte=100"`
}

// PublishOutput reports the fan-out result
type PublishOutput struct {
	Bounty Bounty   `json:"bounty"`
	JobIDs []string `json:"job_ids"`
}

// Port is the buyer-facing bounty surface
type Port interface {
	Create(ctx context.Context, orgID string, in CreateInput) (Bounty, error)
	Publish(ctx context.Context, orgID, bountyID string) (PublishOutput, error)
	Close(ctx context.Context, orgID, bountyID string) (Bounty, error)
	Get(ctx context.Context, orgID, bountyID string) (Bounty, error)
	List(ctx context.Context, orgID string) ([]Bounty, error)
}

// ReaderPort is the cross-module read surface other services use
type ReaderPort interface {
	ByID(ctx context.Context, bountyID string) (Bounty, error)
	// ByIDOn reads on the caller's Queryer, for use inside transactions
	ByIDOn(ctx context.Context, q repokit.Queryer, bountyID string) (Bounty, error)
}
