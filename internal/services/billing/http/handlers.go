// Package http provides http transport for billing
package http

import (
	"io"
	stdhttp "net/http"

	"proofwork/internal/modkit/httpkit"
	perr "proofwork/internal/platform/errors"
	"proofwork/internal/platform/net/middleware"
	"proofwork/internal/services/billing/domain"
	svc "proofwork/internal/services/billing/service"
)

// SignatureHeader carries the provider webhook signature
const SignatureHeader = "Stripe-Signature"

// maxWebhookBytes bounds provider payloads
const maxWebhookBytes = 1 << 20

// Register mounts the billing routes behind buyer auth
func Register(r httpkit.Router, s svc.Service, buyer middleware.AuthPort) {
	h := &handlers{svc: s}
	httpkit.Protected(r, buyer, func(pr httpkit.Router) {
		httpkit.Get(pr, "/balance", h.balance)
		httpkit.Get(pr, "/entries", h.entries)
		httpkit.PostJSON[domain.TopupInput](pr, "/topups/checkout", h.checkout)
	})
}

// RegisterWebhooks mounts the unauthenticated provider webhook routes.
// Authentication is the HMAC signature on the body
func RegisterWebhooks(r httpkit.Router, s svc.Service) {
	h := &handlers{svc: s}
	httpkit.Post(r, "/stripe", h.webhook)
}

type handlers struct{ svc svc.Service }

// @Summary Current ledger balance
// @Tags billing
// @Produce json
// @Success 200 {object} domain.Account "ok"
// @Router /billing/balance [get]
func (h *handlers) balance(r *stdhttp.Request) (any, error) {
	orgID, err := httpkit.Org(r)
	if err != nil {
		return nil, err
	}
	return h.svc.Balance(r.Context(), orgID)
}

// @Summary Recent ledger entries
// @Tags billing
// @Produce json
// @Success 200 {array} domain.Entry "ok"
// @Router /billing/entries [get]
func (h *handlers) entries(r *stdhttp.Request) (any, error) {
	orgID, err := httpkit.Org(r)
	if err != nil {
		return nil, err
	}
	return h.svc.Entries(r.Context(), orgID, 0)
}

// @Summary Start a top-up checkout
// @Tags billing
// @Accept json
// @Produce json
// @Param payload body domain.TopupInput true "Top-up"
// @Success 200 {object} domain.CheckoutSession "ok"
// @Router /billing/topups/checkout [post]
func (h *handlers) checkout(r *stdhttp.Request, in domain.TopupInput) (any, error) {
	orgID, err := httpkit.Org(r)
	if err != nil {
		return nil, err
	}
	return h.svc.CreateCheckout(r.Context(), orgID, in)
}

// @Summary Payment provider webhook
// @Tags billing
// @Accept json
// @Success 200 {object} map[string]bool "ok"
// @Router /webhooks/stripe [post]
func (h *handlers) webhook(r *stdhttp.Request) (any, error) {
	raw, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBytes))
	if err != nil {
		return nil, perr.InvalidArgf("read webhook body: %v", err)
	}
	if err := h.svc.HandleProviderEvent(r.Context(), raw, r.Header.Get(SignatureHeader)); err != nil {
		return nil, err
	}
	return map[string]bool{"received": true}, nil
}
