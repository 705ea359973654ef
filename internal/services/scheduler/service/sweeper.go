package service

import (
	"context"
	"time"

	"proofwork/internal/modkit/repokit"
	perr "proofwork/internal/platform/errors"
	"proofwork/internal/platform/logger"

	oxdom "proofwork/internal/services/outbox/domain"
)

// RunSweeper reopens expired leases until ctx is cancelled
func (s *Svc) RunSweeper(ctx context.Context) error {
	log := logger.Named("lease-sweeper")
	ticker := time.NewTicker(s.cfg.SweepEvery)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			n, err := s.SweepOnce(ctx)
			if err != nil {
				log.Error().Err(err).Msg("lease sweep failed")
				continue
			}
			if n > 0 {
				log.Info().Int("reopened", n).Msg("expired leases returned to pool")
			}
		}
	}
}

// SweepOnce reopens one batch of expired leases and emits
// job.lease_expired for each, all in one transaction
func (s *Svc) SweepOnce(ctx context.Context) (int, error) {
	n := 0
	err := s.db.Tx(ctx, func(q repokit.Queryer) error {
		r := s.binder.Bind(q)

		jobs, err := r.ExpiredLeases(ctx, s.cfg.SweepBatch)
		if err != nil {
			return perr.DBf("list expired leases: %v", err)
		}
		for _, j := range jobs {
			if err := r.Reopen(ctx, j.ID); err != nil {
				return perr.DBf("reopen job %s: %v", j.ID, err)
			}
			if err := s.emitter.Emit(ctx, q, oxdom.TopicJobLeaseExpired, map[string]any{
				"job_id":    j.ID,
				"bounty_id": j.BountyID,
				"worker_id": j.LeaseWorkerID,
			}, j.ID+":"+j.LeaseNonce); err != nil {
				return err
			}
			n++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return n, nil
}
