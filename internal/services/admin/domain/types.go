// Package domain defines the operator surface
package domain

import (
	"context"

	paydom "proofwork/internal/services/payouts/domain"
	vdom "proofwork/internal/services/verification/domain"
)

// RateLimitInput caps a worker's request rate
type RateLimitInput struct {
	PerMin int `json:"per_min" validate:"required,gte=1,lte=100000"`
}

// OverrideInput settles a dispute by fiat
type OverrideInput struct {
	Verdict string `json:"verdict" validate:"required,oneof=pass fail"`
	Reason  string `json:"reason,omitempty" validate:"omitempty,max=2000"`
}

// ReasonInput carries an optional operator note
type ReasonInput struct {
	Reason string `json:"reason,omitempty" validate:"omitempty,max=2000"`
}

// BlockInput freezes a payout; the reason is mandatory
type BlockInput struct {
	Reason string `json:"reason" validate:"required,max=2000"`
}

// MarkPaidInput settles a payout outside the chain runner
type MarkPaidInput struct {
	TxHash string `json:"tx_hash,omitempty" validate:"omitempty,max=130"`
}

// Port is the operator surface. Every mutation lands in the audit log
// attributed to the acting admin
type Port interface {
	BanWorker(ctx context.Context, adminID, workerID string) error
	RateLimitWorker(ctx context.Context, adminID, workerID string, perMin int) error

	RequeueVerification(ctx context.Context, adminID, verificationID string) error
	OverrideVerdict(ctx context.Context, adminID, submissionID string, in OverrideInput) (vdom.VerdictOutput, error)
	MarkDuplicate(ctx context.Context, adminID, submissionID, reason string) (vdom.VerdictOutput, error)

	RetryPayout(ctx context.Context, adminID, payoutID string) (paydom.Payout, error)
	MarkPayoutPaid(ctx context.Context, adminID, payoutID, txHash string) (paydom.Payout, error)
	BlockPayout(ctx context.Context, adminID, payoutID, reason string) (paydom.Payout, error)
}
