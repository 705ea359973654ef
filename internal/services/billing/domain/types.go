// Package domain defines the billing ledger model
package domain

import "time"

// Entry kinds. Every balance mutation writes exactly one entry
const (
	EntryTopup   = "topup"
	EntryReserve = "reserve"
	EntryRelease = "release"
	EntryCapture = "capture"
	EntryRefund  = "refund"
)

// Account is an org's money position.
// Available funds are BalanceCents - ReservedCents
type Account struct {
	OrgID         string    `json:"org_id"`
	BalanceCents  int64     `json:"balance_cents"`
	ReservedCents int64     `json:"reserved_cents"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// Available returns spendable cents
func (a Account) Available() int64 { return a.BalanceCents - a.ReservedCents }

// Entry is one immutable ledger line
type Entry struct {
	ID          string    `json:"id"`
	OrgID       string    `json:"org_id"`
	Kind        string    `json:"kind"`
	AmountCents int64     `json:"amount_cents"`
	Ref         string    `json:"ref,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// CheckoutSession is what the payment provider hands back for a top-up
type CheckoutSession struct {
	SessionID string `json:"session_id"`
	URL       string `json:"url"`
}

// ProviderEvent is a verified, parsed provider webhook event
type ProviderEvent struct {
	EventID     string `json:"event_id"`
	Type        string `json:"type"`
	OrgID       string `json:"org_id"`
	AmountCents int64  `json:"amount_cents"`
}

// Provider event types we act on
const (
	EventTopupCompleted = "topup.completed"
)
