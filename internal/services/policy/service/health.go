package service

import (
	"context"
	"sync"
	"time"

	"proofwork/internal/platform/logger"
	dom "proofwork/internal/services/policy/domain"
)

// healthCache memoizes subsystem probe results for a short TTL so hot paths
// like job selection don't re-probe per request
type healthCache struct {
	mu      sync.Mutex
	probes  map[string]dom.ProbeFunc
	ttl     time.Duration
	results map[string]probeResult
	now     func() time.Time
}

type probeResult struct {
	healthy bool
	checked time.Time
}

func newHealthCache(probes map[string]dom.ProbeFunc, ttl time.Duration) *healthCache {
	return &healthCache{
		probes:  probes,
		ttl:     ttl,
		results: make(map[string]probeResult),
		now:     time.Now,
	}
}

func (h *healthCache) healthy(ctx context.Context, tag string) bool {
	probe, ok := h.probes[tag]
	if !ok {
		// no probe registered means nothing to fail
		return true
	}

	h.mu.Lock()
	if r, ok := h.results[tag]; ok && h.now().Sub(r.checked) < h.ttl {
		h.mu.Unlock()
		return r.healthy
	}
	h.mu.Unlock()

	err := probe(ctx)
	if err != nil {
		logger.Named("policy").Warn().Str("subsystem", tag).Err(err).Msg("subsystem probe failed")
	}

	h.mu.Lock()
	h.results[tag] = probeResult{healthy: err == nil, checked: h.now()}
	h.mu.Unlock()
	return err == nil
}

// EffectiveTags drops tags whose subsystem probe currently fails
func (s *Svc) EffectiveTags(ctx context.Context, supported []string) []string {
	out := make([]string, 0, len(supported))
	for _, tag := range supported {
		if s.health.healthy(ctx, tag) {
			out = append(out, tag)
		}
	}
	return out
}
