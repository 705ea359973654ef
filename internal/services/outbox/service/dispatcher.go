package service

import (
	"context"
	"math"
	"math/rand"
	"time"

	"proofwork/internal/platform/logger"

	dom "proofwork/internal/services/outbox/domain"
)

// Run drains deliverable events until ctx is cancelled
func (s *Svc) Run(ctx context.Context) error {
	log := logger.Named("outbox-dispatcher")
	ticker := time.NewTicker(s.cfg.PollEvery)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			evs, err := s.repo.LeaseBatch(ctx, s.cfg.ReplicaID, s.cfg.Batch, s.cfg.LockFor)
			if err != nil {
				log.Error().Err(err).Msg("lease outbox batch failed")
				continue
			}
			for i := range evs {
				s.dispatchOne(ctx, evs[i])
			}
		}
	}
}

// dispatchOne delivers a single event and records the outcome
// Delivery is sequential within a batch so per-topic ordering holds
// for events that became available together
func (s *Svc) dispatchOne(ctx context.Context, ev dom.Event) {
	log := logger.Named("outbox-dispatcher")

	dctx, cancel := context.WithTimeout(ctx, s.cfg.SinkTimeout)
	err := s.sink.Deliver(dctx, ev)
	cancel()

	if err == nil {
		if merr := s.repo.MarkSent(ctx, ev.ID); merr != nil {
			log.Error().Err(merr).Str("event_id", ev.ID).Msg("mark sent failed")
		}
		return
	}

	attempts := ev.Attempts + 1
	dead := attempts >= s.cfg.MaxAttempts
	next := time.Now().Add(Backoff(attempts))
	if merr := s.repo.MarkFailed(ctx, ev.ID, err.Error(), next, dead); merr != nil {
		log.Error().Err(merr).Str("event_id", ev.ID).Msg("mark failed failed")
		return
	}
	evt := log.Warn()
	if dead {
		evt = log.Error()
	}
	evt.Err(err).
		Str("event_id", ev.ID).
		Str("topic", ev.Topic).
		Int("attempts", attempts).
		Bool("dead", dead).
		Msg("outbox delivery failed")
}

// Backoff returns the delay before the next retry after n failed
// attempts, the latest included: 60s doubled per attempt, capped at
// one hour, with 20% jitter either way
func Backoff(attempts int) time.Duration {
	base := 60 * math.Pow(2, float64(attempts))
	if base > 3600 {
		base = 3600
	}
	jitter := 1 + (rand.Float64()*0.4 - 0.2)
	return time.Duration(base * jitter * float64(time.Second))
}
