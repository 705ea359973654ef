package domain

import (
	"context"
	"time"

	"proofwork/internal/modkit/repokit"
)

// TopupInput starts a provider checkout
type TopupInput struct {
	AmountCents int64 `json:"amount_cents" validate:"required,gt=0"`
}

// LedgerPort moves money. Reserve, Release and Capture run on the caller's
// Queryer so they commit atomically with the state change that needs them
type LedgerPort interface {
	Balance(ctx context.Context, orgID string) (Account, error)
	Entries(ctx context.Context, orgID string, limit int) ([]Entry, error)

	// Reserve earmarks funds for a published bounty.
	// Fails with insufficient_balance when available funds or the org's
	// spend limit cannot cover it
	Reserve(ctx context.Context, q repokit.Queryer, orgID string, amountCents int64, ref string) error

	// Release returns an unused reservation (bounty closed unfilled)
	Release(ctx context.Context, q repokit.Queryer, orgID string, amountCents int64, ref string) error

	// Capture converts a reservation into spend (submission accepted)
	Capture(ctx context.Context, q repokit.Queryer, orgID string, amountCents int64, ref string) error

	// Credit adds settled funds (top-up, refund)
	Credit(ctx context.Context, q repokit.Queryer, orgID string, amountCents int64, kind, ref string) error
}

// CheckoutPort starts top-ups through the configured provider
type CheckoutPort interface {
	CreateCheckout(ctx context.Context, orgID string, in TopupInput) (CheckoutSession, error)
}

// WebhookPort ingests provider webhooks
type WebhookPort interface {
	// HandleProviderEvent verifies the signature, stores the event for
	// replay safety and applies its effect. Replayed events are a no-op
	HandleProviderEvent(ctx context.Context, raw []byte, sigHeader string) error
}

// Provider is the payment-provider capability seam.
// Variants: fiat checkout, manual (admin-credited)
type Provider interface {
	CreateCheckout(ctx context.Context, orgID string, amountCents int64) (CheckoutSession, error)
	VerifyWebhook(raw []byte, sigHeader string, now time.Time) (ProviderEvent, error)
}
