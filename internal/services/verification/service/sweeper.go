package service

import (
	"context"
	"time"

	"proofwork/internal/modkit/repokit"
	perr "proofwork/internal/platform/errors"
	"proofwork/internal/platform/logger"

	oxdom "proofwork/internal/services/outbox/domain"
)

// RunSweeper requeues expired verifier claims until ctx is cancelled
func (s *Svc) RunSweeper(ctx context.Context) error {
	log := logger.Named("claim-sweeper")
	ticker := time.NewTicker(s.cfg.SweepEvery)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			n, err := s.SweepOnce(ctx)
			if err != nil {
				log.Error().Err(err).Msg("claim sweep failed")
				continue
			}
			if n > 0 {
				log.Info().Int("requeued", n).Msg("expired claims returned to queue")
			}
		}
	}
}

// SweepOnce requeues one batch of expired claims at their original
// attempt number and emits verification.claim_expired for each
func (s *Svc) SweepOnce(ctx context.Context) (int, error) {
	n := 0
	err := s.db.Tx(ctx, func(q repokit.Queryer) error {
		r := s.binder.Bind(q)

		claims, err := r.ExpiredClaims(ctx, s.cfg.SweepBatch)
		if err != nil {
			return perr.DBf("list expired claims: %v", err)
		}
		for _, v := range claims {
			ok, err := r.Requeue(ctx, v.ID)
			if err != nil {
				return perr.DBf("requeue verification %s: %v", v.ID, err)
			}
			if !ok {
				continue
			}
			if err := s.emitter.Emit(ctx, q, oxdom.TopicVerificationExpired, map[string]any{
				"verification_id": v.ID,
				"submission_id":   v.SubmissionID,
				"attempt_no":      v.AttemptNo,
				"claimed_by":      v.ClaimedBy,
			}, v.ID+":"+v.ClaimToken); err != nil {
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
