package service

import (
	"context"
	"time"

	perr "proofwork/internal/platform/errors"
	"proofwork/internal/platform/logger"
)

// ReapOnce archives one batch of old sent events to ClickHouse and
// deletes them from Postgres, returning the number reaped
func (s *Svc) ReapOnce(ctx context.Context) (int, error) {
	cutoff := time.Now().Add(-s.cfg.RetainSent)
	evs, err := s.repo.SentBefore(ctx, cutoff, s.cfg.ReapBatch)
	if err != nil {
		return 0, perr.DBf("list sent outbox events: %v", err)
	}
	if len(evs) == 0 {
		return 0, nil
	}

	if s.deps.CH != nil {
		rows := make([][]any, 0, len(evs))
		for _, e := range evs {
			rows = append(rows, []any{
				e.ID, e.Topic, string(e.Payload), int32(e.Attempts), e.SentAt, e.CreatedAt,
			})
		}
		if err := s.deps.CH.Insert(ctx, s.cfg.ArchiveTable, rows); err != nil {
			return 0, perr.Unavailablef("archive outbox events: %v", err)
		}
	}

	ids := make([]string, 0, len(evs))
	for _, e := range evs {
		ids = append(ids, e.ID)
	}
	if err := s.repo.Delete(ctx, ids); err != nil {
		return 0, perr.DBf("purge outbox events: %v", err)
	}
	return len(evs), nil
}

// RunReaper loops ReapOnce on the configured interval
func (s *Svc) RunReaper(ctx context.Context) error {
	log := logger.Named("outbox-reaper")
	ticker := time.NewTicker(s.cfg.ReapEvery)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			for {
				n, err := s.ReapOnce(ctx)
				if err != nil {
					log.Error().Err(err).Msg("reap failed")
					break
				}
				if n == 0 {
					break
				}
				log.Info().Int("reaped", n).Msg("archived sent outbox events")
			}
		}
	}
}
