package module

import (
	"time"

	"proofwork/internal/platform/config"
	dom "proofwork/internal/services/policy/domain"
)

// Options controls the policy gates
type Options struct {
	Enforcement          string
	PublicAllowedOrigins []string
	BlockedDomains       []string
	NoLoginCutoff        int
	ValueEnvAllowlist    []string
	HealthTTL            time.Duration
	RefuseTTL            time.Duration
	RefuseCap            int
}

// FromConfig reads with POLICY_ prefix, except ORIGIN_ENFORCEMENT which is a
// top-level knob
func FromConfig(cfg config.Conf) Options {
	c := cfg.Prefix("POLICY_")
	return Options{
		Enforcement:          cfg.MayEnum("ORIGIN_ENFORCEMENT", dom.EnforcementStrict, dom.EnforcementStrict, dom.EnforcementOff),
		PublicAllowedOrigins: c.MayCSV("PUBLIC_ALLOWED_ORIGINS", nil),
		BlockedDomains:       c.MayCSV("BLOCKED_DOMAINS", nil),
		NoLoginCutoff:        c.MayInt("NOLOGIN_CUTOFF", 8),
		ValueEnvAllowlist:    c.MayCSV("VALUE_ENV_ALLOWLIST", nil),
		HealthTTL:            c.MayDuration("HEALTH_TTL", 30*time.Second),
		RefuseTTL:            c.MayDuration("REFUSE_TTL", 10*time.Minute),
		RefuseCap:            c.MayInt("REFUSE_CAP", 200),
	}
}
