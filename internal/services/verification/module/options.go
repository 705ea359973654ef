package module

import (
	"time"

	"proofwork/internal/platform/config"
	vsvc "proofwork/internal/services/verification/service"
)

// FromConfig reads the claim TTL from its well-known top-level name and
// the sweep tuning with the VERIFY_ prefix
func FromConfig(cfg config.Conf) vsvc.Config {
	c := cfg.Prefix("VERIFY_")
	return vsvc.Config{
		ClaimTTL:   time.Duration(cfg.MayInt("VERIFIER_CLAIM_TTL_SEC", 600)) * time.Second,
		SweepEvery: c.MayDuration("SWEEP_EVERY", 30*time.Second),
		SweepBatch: c.MayInt("SWEEP_BATCH", 100),
	}
}
