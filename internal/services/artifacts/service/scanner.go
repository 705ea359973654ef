package service

import (
	"context"
	"time"

	"proofwork/internal/modkit/repokit"
	perr "proofwork/internal/platform/errors"
	"proofwork/internal/platform/logger"

	dom "proofwork/internal/services/artifacts/domain"
	oxdom "proofwork/internal/services/outbox/domain"
)

// RunScanner drains uploaded artifacts through the engine until ctx is
// cancelled
func (s *Svc) RunScanner(ctx context.Context) error {
	log := logger.Named("artifact-scanner")
	ticker := time.NewTicker(s.cfg.ScanEvery)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			n, err := s.ScanOnce(ctx)
			if err != nil {
				log.Error().Err(err).Msg("artifact scan pass failed")
				continue
			}
			if n > 0 {
				log.Info().Int("scanned", n).Str("engine", s.engine.Name()).Msg("artifacts scanned")
			}
		}
	}
}

// ScanOnce runs the engine over one batch, one artifact per
// transaction: a verdict moves the blob to its final bucket before the
// row flips, and both land together, so one artifact's failure never
// unwinds another's already-settled verdict
func (s *Svc) ScanOnce(ctx context.Context) (int, error) {
	n := 0
	seen := make(map[string]bool)
	for i := 0; i < s.cfg.ScanBatch; i++ {
		id, ok, err := s.scanNext(ctx)
		if err != nil {
			return n, err
		}
		// empty means drained; a repeat means the head of the queue
		// failed its attempt and waits for the next pass
		if id == "" || seen[id] {
			break
		}
		seen[id] = true
		if ok {
			n++
		}
	}
	return n, nil
}

// scanNext locks one artifact and settles it in its own transaction.
// An engine failure commits the scanning claim and reports ok=false;
// the next pass retries with the blob still at the staging key
func (s *Svc) scanNext(ctx context.Context) (id string, ok bool, err error) {
	log := logger.Named("artifact-scanner")

	err = s.db.Tx(ctx, func(q repokit.Queryer) error {
		r := s.binder.Bind(q)

		batch, err := r.NextForScan(ctx, 1)
		if err != nil {
			return perr.DBf("pick artifact for scan: %v", err)
		}
		if len(batch) == 0 {
			return nil
		}
		a := batch[0]
		id = a.ID

		if err := r.MarkScanning(ctx, a.ID); err != nil {
			return perr.DBf("mark scanning: %v", err)
		}
		res, err := s.scanArtifact(ctx, a)
		if err != nil {
			log.Warn().Err(err).Str("artifact_id", a.ID).Msg("scan attempt failed")
			return nil
		}

		if res.Clean {
			key := dom.BucketClean + "/" + a.ID
			if err := s.store.Move(ctx, a.StorageKey, key); err != nil {
				return err
			}
			if err := r.MarkScanned(ctx, a.ID, key); err != nil {
				return perr.DBf("mark scanned: %v", err)
			}
		} else {
			key := dom.BucketQuarantine + "/" + a.ID
			if err := s.store.Move(ctx, a.StorageKey, key); err != nil {
				return err
			}
			if err := r.MarkBlocked(ctx, a.ID, key, res.Reason); err != nil {
				return perr.DBf("mark blocked: %v", err)
			}
			if err := s.emitter.Emit(ctx, q, oxdom.TopicArtifactBlocked, map[string]any{
				"artifact_id": a.ID,
				"job_id":      a.JobID,
				"worker_id":   a.WorkerID,
				"reason":      res.Reason,
			}, a.ID); err != nil {
				return err
			}
		}
		ok = true
		return nil
	})
	if err != nil {
		return id, false, err
	}
	return id, ok, nil
}

func (s *Svc) scanArtifact(ctx context.Context, a dom.Artifact) (dom.ScanResult, error) {
	rc, err := s.store.Get(ctx, a.StorageKey)
	if err != nil {
		return dom.ScanResult{}, err
	}
	defer rc.Close()
	return s.engine.Scan(ctx, a, rc)
}
