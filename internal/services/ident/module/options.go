package module

import (
	"time"

	"proofwork/internal/platform/config"
)

// Options controls the identity service
type Options struct {
	WorkerTokenPepper string
	BuyerTokenPepper  string
	SessionTTL        time.Duration
	AdminTokens       []string
	VerifierTokens    []string
	WorkerRatePerMin  int
	RateBurst         int
}

// FromConfig reads with IDENT_ prefix
func FromConfig(cfg config.Conf) Options {
	c := cfg.Prefix("IDENT_")
	return Options{
		WorkerTokenPepper: c.MustString("WORKER_TOKEN_PEPPER"),
		BuyerTokenPepper:  c.MustString("BUYER_TOKEN_PEPPER"),
		SessionTTL:        c.MayDuration("SESSION_TTL", 24*time.Hour),
		AdminTokens:       c.MayCSV("ADMIN_TOKENS", nil),
		VerifierTokens:    c.MayCSV("VERIFIER_TOKENS", nil),
		WorkerRatePerMin:  c.MayInt("WORKER_RATE_PER_MIN", 120),
		RateBurst:         c.MayInt("RATE_BURST", 30),
	}
}
