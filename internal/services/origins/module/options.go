package module

import (
	"time"

	"proofwork/internal/platform/config"
)

// Options controls the origin verification probe
type Options struct {
	ProbeTimeout time.Duration
}

// FromConfig reads with ORIGINS_ prefix
func FromConfig(cfg config.Conf) Options {
	c := cfg.Prefix("ORIGINS_")
	return Options{
		ProbeTimeout: c.MayDuration("PROBE_TIMEOUT", 10*time.Second),
	}
}
