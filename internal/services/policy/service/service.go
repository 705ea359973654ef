// Package service implements the policy and preflight gates
package service

import (
	"context"
	"net/url"
	"strings"
	"time"

	"proofwork/internal/core/normalize"
	perr "proofwork/internal/platform/errors"
	"proofwork/internal/platform/logger"

	bdom "proofwork/internal/services/bounties/domain"
	dom "proofwork/internal/services/policy/domain"
	odom "proofwork/internal/services/origins/domain"
)

// Config tunes the policy gates
type Config struct {
	Enforcement          string
	PublicAllowedOrigins []string
	BlockedDomains       []string
	NoLoginCutoff        int
	ValueEnvAllowlist    []string
	Probes               map[string]dom.ProbeFunc
	HealthTTL            time.Duration
	RefuseTTL            time.Duration
	RefuseCap            int
}

// Service is the full policy surface
type Service interface {
	dom.Port
	dom.RefusePort
}

// Svc implements Service
type Svc struct {
	cfg      Config
	norm     *normalize.Normalizer
	public   map[string]bool
	blocked  []string
	envAllow map[string]bool
	health   *healthCache
	refuse   *refuseCache
}

// New constructs the policy service.
// All state is process-local; policy needs no storage
func New(cfg Config) *Svc {
	if cfg.Enforcement == "" {
		cfg.Enforcement = dom.EnforcementStrict
	}
	if cfg.NoLoginCutoff <= 0 {
		cfg.NoLoginCutoff = 8
	}
	if cfg.HealthTTL <= 0 {
		cfg.HealthTTL = 30 * time.Second
	}
	if cfg.RefuseTTL <= 0 {
		cfg.RefuseTTL = 10 * time.Minute
	}
	if cfg.RefuseCap <= 0 {
		cfg.RefuseCap = 200
	}

	log := logger.Named("policy")
	public := make(map[string]bool, len(cfg.PublicAllowedOrigins))
	for _, raw := range cfg.PublicAllowedOrigins {
		o, err := odom.Normalize(raw)
		if err != nil {
			log.Warn().Str("origin", raw).Err(err).Msg("skipping invalid public origin")
			continue
		}
		public[o] = true
	}

	blocked := make([]string, 0, len(cfg.BlockedDomains))
	for _, d := range cfg.BlockedDomains {
		if f := normalize.FoldCase(d); f != "" {
			blocked = append(blocked, f)
		}
	}

	envAllow := make(map[string]bool, len(cfg.ValueEnvAllowlist))
	for _, k := range cfg.ValueEnvAllowlist {
		envAllow[k] = true
	}

	return &Svc{
		cfg:      cfg,
		norm:     normalize.New(),
		public:   public,
		blocked:  blocked,
		envAllow: envAllow,
		health:   newHealthCache(cfg.Probes, cfg.HealthTTL),
		refuse:   newRefuseCache(cfg.RefuseTTL, cfg.RefuseCap),
	}
}

// CheckOrigin enforces blocked domains and, in strict mode, the allowlist
func (s *Svc) CheckOrigin(rawURL string, allowedOrigins []string) error {
	origin, err := odom.Normalize(rawURL)
	if err != nil {
		return perr.Newf(perr.ErrorCodeOriginNotAllowed, "url %q: %v", rawURL, err)
	}

	// blocked domains override everything, including enforcement=off
	u, _ := url.Parse(origin)
	host := normalize.FoldCase(u.Hostname())
	for _, b := range s.blocked {
		if host == b || strings.HasSuffix(host, "."+b) {
			return perr.Newf(perr.ErrorCodeOriginNotAllowed, "domain %s is blocked", host)
		}
	}

	if s.cfg.Enforcement == dom.EnforcementOff {
		return nil
	}
	if s.public[origin] {
		return nil
	}
	for _, a := range allowedOrigins {
		if norm, err := odom.Normalize(a); err == nil && norm == origin {
			return nil
		}
	}
	return perr.Newf(perr.ErrorCodeOriginNotAllowed, "origin %s not in allowlist", origin)
}

// Preflight applies every gate to a descriptor before claim
func (s *Svc) Preflight(_ context.Context, allowedOrigins []string, d bdom.TaskDescriptor) error {
	for _, raw := range d.URLs() {
		if err := s.CheckOrigin(raw, allowedOrigins); err != nil {
			return err
		}
	}

	if d.SiteProfile != nil && d.SiteProfile.BrowserFlow != nil {
		for i, st := range d.SiteProfile.BrowserFlow.Steps {
			if st.Extract != nil && st.Extract.Fn != "" {
				return perr.Newf(perr.ErrorCodePolicySecurity, "step %d: inline extract functions are not allowed", i)
			}
			if st.ValueEnv != "" {
				if err := s.checkValueEnv(st.ValueEnv); err != nil {
					return err
				}
			}
		}
	}

	score, hits := s.noLoginScore(d)
	if score >= s.cfg.NoLoginCutoff {
		return perr.Newf(perr.ErrorCodeNoLoginBlocked,
			"credential flow suspected (score %d >= %d): %s", score, s.cfg.NoLoginCutoff, strings.Join(hits, ", "))
	}
	return nil
}

// Refuse records a policy refusal for this worker
func (s *Svc) Refuse(workerID, jobID, reason string) {
	s.refuse.add(workerID, jobID, reason)
}

// Excluded returns the job ids this worker should not be offered again yet
func (s *Svc) Excluded(workerID string) []string {
	return s.refuse.excluded(workerID)
}
