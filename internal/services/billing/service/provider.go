package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	perr "proofwork/internal/platform/errors"
	"proofwork/internal/platform/ids"
	"proofwork/internal/platform/signing"

	dom "proofwork/internal/services/billing/domain"
)

// Provider names selectable via config
const (
	ProviderStripe = "stripe"
	ProviderManual = "manual"
)

// StripeProvider implements the fiat checkout contract: hosted checkout
// sessions plus HMAC-signed webhooks. Only the integration surface lives
// here; the hosted page is the provider's
type StripeProvider struct {
	CheckoutBaseURL string
	WebhookSecret   string
	Skew            time.Duration
}

var _ dom.Provider = (*StripeProvider)(nil)

// CreateCheckout mints a checkout session the buyer completes off-site
func (p *StripeProvider) CreateCheckout(_ context.Context, orgID string, amountCents int64) (dom.CheckoutSession, error) {
	if p.CheckoutBaseURL == "" {
		return dom.CheckoutSession{}, perr.Unavailablef("checkout is not configured")
	}
	id := ids.New("cs")
	return dom.CheckoutSession{
		SessionID: id,
		URL:       fmt.Sprintf("%s/pay/%s?org=%s&amount=%d", p.CheckoutBaseURL, id, orgID, amountCents),
	}, nil
}

// webhookBody is the provider's event envelope
type webhookBody struct {
	ID   string `json:"id"`
	Type string `json:"type"`
	Data struct {
		OrgID       string `json:"org_id"`
		AmountCents int64  `json:"amount_cents"`
	} `json:"data"`
}

// VerifyWebhook authenticates the payload and parses the event
func (p *StripeProvider) VerifyWebhook(raw []byte, sigHeader string, now time.Time) (dom.ProviderEvent, error) {
	if p.WebhookSecret == "" {
		return dom.ProviderEvent{}, perr.Unauthorizedf("webhook secret is not configured")
	}
	if err := signing.Verify(p.WebhookSecret, sigHeader, raw, p.Skew, now); err != nil {
		return dom.ProviderEvent{}, err
	}

	var body webhookBody
	if err := json.Unmarshal(raw, &body); err != nil {
		return dom.ProviderEvent{}, perr.Newf(perr.ErrorCodeSchemaInvalid, "webhook payload: %v", err)
	}
	if body.ID == "" || body.Type == "" {
		return dom.ProviderEvent{}, perr.Newf(perr.ErrorCodeSchemaInvalid, "webhook payload missing id or type")
	}
	return dom.ProviderEvent{
		EventID:     body.ID,
		Type:        body.Type,
		OrgID:       body.Data.OrgID,
		AmountCents: body.Data.AmountCents,
	}, nil
}

// ManualProvider is for orgs settled out-of-band by an operator.
// Checkouts are refused; credits arrive through admin tooling
type ManualProvider struct{}

var _ dom.Provider = (*ManualProvider)(nil)

// CreateCheckout always refuses
func (ManualProvider) CreateCheckout(context.Context, string, int64) (dom.CheckoutSession, error) {
	return dom.CheckoutSession{}, perr.Unavailablef("this org is settled manually")
}

// VerifyWebhook always refuses
func (ManualProvider) VerifyWebhook([]byte, string, time.Time) (dom.ProviderEvent, error) {
	return dom.ProviderEvent{}, perr.Unauthorizedf("manual provider accepts no webhooks")
}
