package module

import (
	"time"

	"proofwork/internal/platform/config"
	ssvc "proofwork/internal/services/scheduler/service"
)

// FromConfig reads the lease TTL from its well-known top-level name
// and the sweep tuning with the SCHED_ prefix
func FromConfig(cfg config.Conf) ssvc.Config {
	c := cfg.Prefix("SCHED_")
	return ssvc.Config{
		LeaseTTL:       time.Duration(cfg.MayInt("LEASE_TTL_SEC", 600)) * time.Second,
		ClaimRetries:   c.MayInt("CLAIM_RETRIES", 3),
		CandidateLimit: c.MayInt("CANDIDATE_LIMIT", 25),
		SweepEvery:     c.MayDuration("SWEEP_EVERY", 30*time.Second),
		SweepBatch:     c.MayInt("SWEEP_BATCH", 100),
	}
}
