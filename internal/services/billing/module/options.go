package module

import (
	"time"

	"proofwork/internal/platform/config"
	bsvc "proofwork/internal/services/billing/service"
)

// Options controls the billing provider integration
type Options struct {
	Provider        string
	CheckoutBaseURL string
	WebhookSecret   string
	WebhookSkew     time.Duration
}

// FromConfig reads with BILLING_ prefix; the webhook secret keeps its
// provider-conventional name
func FromConfig(cfg config.Conf) Options {
	c := cfg.Prefix("BILLING_")
	return Options{
		Provider:        c.MayEnum("PROVIDER", bsvc.ProviderManual, bsvc.ProviderStripe, bsvc.ProviderManual),
		CheckoutBaseURL: c.MayString("CHECKOUT_BASE_URL", ""),
		WebhookSecret:   cfg.MayString("STRIPE_WEBHOOK_SECRET", ""),
		WebhookSkew:     c.MayDuration("WEBHOOK_SKEW", 300*time.Second),
	}
}
