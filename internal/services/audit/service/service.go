// Package service implements the audit recorder, the admin read
// surface, and the ClickHouse mirror
package service

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"proofwork/internal/modkit"
	"proofwork/internal/modkit/repokit"
	perr "proofwork/internal/platform/errors"
	"proofwork/internal/platform/ids"
	"proofwork/internal/platform/logger"

	dom "proofwork/internal/services/audit/domain"
	arepo "proofwork/internal/services/audit/repo"
	oxdom "proofwork/internal/services/outbox/domain"
)

// Config controls the mirror loop
type Config struct {
	MirrorEvery time.Duration
	MirrorBatch int
	MirrorTable string
}

// Service is the full audit surface
type Service interface {
	dom.RecorderPort
	dom.EventRecorderPort
	dom.QueryPort
	dom.MirrorPort
}

// Svc implements Service
type Svc struct {
	db     repokit.TxRunner
	binder repokit.Binder[arepo.Repo]
	repo   arepo.Repo
	cfg    Config
	deps   modkit.Deps
}

// New constructs the audit service
func New(deps modkit.Deps, cfg Config) *Svc {
	b := arepo.NewPG()
	if cfg.MirrorEvery <= 0 {
		cfg.MirrorEvery = time.Minute
	}
	if cfg.MirrorBatch <= 0 {
		cfg.MirrorBatch = 500
	}
	if cfg.MirrorTable == "" {
		cfg.MirrorTable = "audit_log"
	}
	return &Svc{
		db:     deps.PG,
		binder: b,
		repo:   b.Bind(deps.PG),
		cfg:    cfg,
		deps:   deps,
	}
}

// RecordOn stamps and writes an entry on the caller's Queryer
func (s *Svc) RecordOn(ctx context.Context, q repokit.Queryer, e dom.Entry) (dom.Entry, error) {
	if e.ActorKind == "" {
		e.ActorKind = dom.ActorSystem
	}
	if e.Action == "" || e.TargetKind == "" || e.TargetID == "" {
		return dom.Entry{}, perr.InvalidArgf("audit entry needs an action and a target")
	}
	e.ID = ids.New(ids.PrefixAudit)
	e.CreatedAt = time.Now().UTC()
	if err := s.binder.Bind(q).Insert(ctx, e); err != nil {
		return dom.Entry{}, perr.DBf("insert audit entry %s: %v", e.Action, err)
	}
	return e, nil
}

// RecordEvent writes a trail entry for a terminal marketplace event.
// The target is derived from the topic prefix and the matching
// "<kind>_id" payload key
func (s *Svc) RecordEvent(ctx context.Context, ev oxdom.Event) error {
	var payload map[string]any
	if len(ev.Payload) > 0 {
		if err := json.Unmarshal(ev.Payload, &payload); err != nil {
			payload = nil
		}
	}

	kind := ev.Topic
	if i := strings.IndexByte(ev.Topic, '.'); i > 0 {
		kind = ev.Topic[:i]
	}
	targetID := ev.ID
	if v, ok := payload[kind+"_id"].(string); ok && v != "" {
		targetID = v
	}

	_, err := s.RecordOn(ctx, s.db, dom.Entry{
		ActorKind:  dom.ActorSystem,
		Action:     ev.Topic,
		TargetKind: kind,
		TargetID:   targetID,
		Detail:     payload,
	})
	return err
}

// Recent lists the newest entries across all targets
func (s *Svc) Recent(ctx context.Context, limit int) ([]dom.Entry, error) {
	out, err := s.repo.Recent(ctx, clamp(limit))
	if err != nil {
		return nil, perr.DBf("list audit entries: %v", err)
	}
	return out, nil
}

// ForTarget lists entries touching one resource, newest first
func (s *Svc) ForTarget(ctx context.Context, targetKind, targetID string, limit int) ([]dom.Entry, error) {
	out, err := s.repo.ForTarget(ctx, targetKind, targetID, clamp(limit))
	if err != nil {
		return nil, perr.DBf("list audit entries for %s %s: %v", targetKind, targetID, err)
	}
	return out, nil
}

func clamp(limit int) int {
	if limit <= 0 || limit > 500 {
		return 100
	}
	return limit
}

// MirrorOnce copies one batch of entries into the columnar store and
// marks them mirrored. A nil columnar seam makes it a no-op
func (s *Svc) MirrorOnce(ctx context.Context) (int, error) {
	if s.deps.CH == nil {
		return 0, nil
	}
	n := 0
	err := s.db.Tx(ctx, func(q repokit.Queryer) error {
		r := s.binder.Bind(q)
		evs, err := r.Unmirrored(ctx, s.cfg.MirrorBatch)
		if err != nil {
			return perr.DBf("list unmirrored audit entries: %v", err)
		}
		if len(evs) == 0 {
			return nil
		}

		rows := make([][]any, 0, len(evs))
		batch := make([]string, 0, len(evs))
		for _, e := range evs {
			detail, err := json.Marshal(e.Detail)
			if err != nil {
				return perr.Internalf("marshal audit detail for %s: %v", e.ID, err)
			}
			rows = append(rows, []any{
				e.ID, e.ActorKind, e.ActorID, e.Action,
				e.TargetKind, e.TargetID, string(detail), e.CreatedAt,
			})
			batch = append(batch, e.ID)
		}
		if err := s.deps.CH.Insert(ctx, s.cfg.MirrorTable, rows); err != nil {
			return perr.Unavailablef("mirror audit entries: %v", err)
		}
		if err := r.MarkMirrored(ctx, batch); err != nil {
			return perr.DBf("mark audit entries mirrored: %v", err)
		}
		n = len(evs)
		return nil
	})
	if err != nil {
		return 0, err
	}
	return n, nil
}

// RunMirror loops MirrorOnce on the configured interval
func (s *Svc) RunMirror(ctx context.Context) error {
	if s.deps.CH == nil {
		return nil
	}
	log := logger.Named("audit-mirror")
	ticker := time.NewTicker(s.cfg.MirrorEvery)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			for {
				n, err := s.MirrorOnce(ctx)
				if err != nil {
					log.Error().Err(err).Msg("audit mirror failed")
					break
				}
				if n == 0 {
					break
				}
				log.Info().Int("mirrored", n).Msg("audit entries mirrored")
			}
		}
	}
}
