package domain

import (
	"context"
	"time"

	"proofwork/internal/modkit/repokit"
)

// CreateSpec describes the payout owed for one accepted submission
type CreateSpec struct {
	SubmissionID   string
	BountyID       string
	OrgID          string
	WorkerID       string
	GrossCents     int64
	PlatformFeeBps int
	HoldUntil      time.Time
}

// CreatorPort opens a payout on the caller's Queryer so it commits with
// the acceptance that earned it. Implementations capture the org's
// reservation and apply the fee split
type CreatorPort interface {
	CreateOn(ctx context.Context, q repokit.Queryer, spec CreateSpec) (Payout, error)
}

// Port is the read and admin surface over payouts
type Port interface {
	ByID(ctx context.Context, payoutID string) (Payout, error)
	ForWorker(ctx context.Context, workerID string, limit int) ([]Payout, error)
	ForOrg(ctx context.Context, orgID string, limit int) ([]Payout, error)
}

// RunnerPort drives holds to settlement and broadcast legs to
// confirmation
type RunnerPort interface {
	RunSettler(ctx context.Context) error
	SettleOnce(ctx context.Context) (int, error)
	ConfirmOnce(ctx context.Context) (int, error)
}

// ChainPort broadcasts and tracks stablecoin transfers.
// Implementations own the sender key; cents are converted to token
// units inside
type ChainPort interface {
	Sender(chainID int64) (string, error)
	Transfer(ctx context.Context, chainID int64, nonce uint64, toAddress string, cents int64) (txHash string, err error)
	Confirmed(ctx context.Context, chainID int64, txHash string) (bool, error)
}

// AdminPort retries and force-settles payouts
type AdminPort interface {
	Retry(ctx context.Context, payoutID string) (Payout, error)
	MarkPaid(ctx context.Context, payoutID, txHash string) (Payout, error)
	Block(ctx context.Context, payoutID, reason string) (Payout, error)
}
