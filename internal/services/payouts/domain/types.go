// Package domain defines worker payouts and the fee split
package domain

import "time"

// Payout statuses
const (
	StatusPending  = "pending"
	StatusHolding  = "holding"
	StatusPaid     = "paid"
	StatusFailed   = "failed"
	StatusRefunded = "refunded"
	StatusBlocked  = "blocked"
)

// ServiceFeeBpsDefault is taken from the worker's gross portion after
// the platform fee
const ServiceFeeBpsDefault = 100

// Payout is the money owed to a worker for one accepted submission
type Payout struct {
	ID           string `json:"id"`
	SubmissionID string `json:"submission_id"`
	BountyID     string `json:"bounty_id"`
	OrgID        string `json:"org_id"`
	WorkerID     string `json:"worker_id"`

	GrossCents       int64 `json:"gross_cents"`
	PlatformFeeCents int64 `json:"platform_fee_cents"`
	ServiceFeeCents  int64 `json:"service_fee_cents"`
	NetCents         int64 `json:"net_cents"`

	Status     string     `json:"status"`
	HoldUntil  time.Time  `json:"hold_until"`
	ChainID    int64      `json:"chain_id,omitempty"`
	PayAddress string     `json:"pay_address,omitempty"`
	TxHash     string     `json:"tx_hash,omitempty"`
	Attempts   int        `json:"attempts"`
	FailReason string     `json:"fail_reason,omitempty"`
	PaidAt     *time.Time `json:"paid_at,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
}

// Transfer legs per payout
const (
	TransferNet = "net"
	TransferFee = "fee"
)

// Transfer statuses. A leg never fails on its own; broadcast failures
// are tracked on the payout
const (
	TransferCreated   = "created"
	TransferBroadcast = "broadcast"
	TransferConfirmed = "confirmed"
)

// Transfer is one on-chain leg of a payout
type Transfer struct {
	ID        string     `json:"id"`
	PayoutID  string     `json:"payout_id"`
	Kind      string     `json:"kind"`
	ToAddress string     `json:"to_address"`
	Cents     int64      `json:"cents"`
	ChainID   int64      `json:"chain_id"`
	Nonce     uint64     `json:"nonce"`
	TxHash    string     `json:"tx_hash,omitempty"`
	Status    string     `json:"status"`
	SentAt    *time.Time `json:"sent_at,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
}

// FeeSplit is the deterministic division of a gross payout
type FeeSplit struct {
	PlatformFeeCents int64
	ServiceFeeCents  int64
	NetCents         int64
}

// SplitFees divides a gross amount: the platform fee is floored off the
// gross first, then the service fee is floored off the worker's portion
func SplitFees(grossCents int64, platformBps, serviceBps int) FeeSplit {
	platform := grossCents * int64(platformBps) / 10000
	workerPortion := grossCents - platform
	service := workerPortion * int64(serviceBps) / 10000
	return FeeSplit{
		PlatformFeeCents: platform,
		ServiceFeeCents:  service,
		NetCents:         workerPortion - service,
	}
}
