package module

import dom "proofwork/internal/services/billing/domain"

// Ports exposes the billing surfaces to other modules
type Ports struct {
	Ledger   dom.LedgerPort
	Checkout dom.CheckoutPort
	Webhooks dom.WebhookPort
}
