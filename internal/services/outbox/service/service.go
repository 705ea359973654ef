// Package service implements the outbox emitter, dispatcher, and reaper
package service

import (
	"context"
	"encoding/json"
	"time"

	"proofwork/internal/modkit"
	"proofwork/internal/modkit/repokit"
	perr "proofwork/internal/platform/errors"

	dom "proofwork/internal/services/outbox/domain"
	orepo "proofwork/internal/services/outbox/repo"
)

// Config controls the dispatcher and reaper
type Config struct {
	ReplicaID    string
	Batch        int
	MaxAttempts  int
	SinkTimeout  time.Duration
	LockFor      time.Duration
	PollEvery    time.Duration
	ReapEvery    time.Duration
	RetainSent   time.Duration
	ReapBatch    int
	ArchiveTable string
}

// Svc implements the emitter, dispatcher, and reaper ports
type Svc struct {
	db     repokit.TxRunner
	binder repokit.Binder[orepo.Repo]
	repo   orepo.Repo

	sink dom.Sink
	cfg  Config
	deps modkit.Deps
}

// Service is the full outbox surface
type Service interface {
	dom.EmitterPort
	dom.DispatcherPort
	dom.ReaperPort
}

// New constructs the outbox service
func New(deps modkit.Deps, cfg Config, sink dom.Sink) *Svc {
	b := orepo.NewPG()
	if cfg.Batch <= 0 {
		cfg.Batch = 32
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 12
	}
	if cfg.SinkTimeout <= 0 {
		cfg.SinkTimeout = 10 * time.Second
	}
	if cfg.LockFor <= 0 {
		cfg.LockFor = 5 * time.Minute
	}
	if cfg.PollEvery <= 0 {
		cfg.PollEvery = 500 * time.Millisecond
	}
	if cfg.ReapEvery <= 0 {
		cfg.ReapEvery = time.Hour
	}
	if cfg.RetainSent <= 0 {
		cfg.RetainSent = 7 * 24 * time.Hour
	}
	if cfg.ReapBatch <= 0 {
		cfg.ReapBatch = 500
	}
	if cfg.ArchiveTable == "" {
		cfg.ArchiveTable = "outbox_events_archive"
	}
	return &Svc{
		db:     deps.PG,
		binder: b,
		repo:   b.Bind(deps.PG),
		sink:   sink,
		cfg:    cfg,
		deps:   deps,
	}
}

// Emit writes an event on the caller's Queryer so it commits with the
// state change that produced it
func (s *Svc) Emit(ctx context.Context, q repokit.Queryer, topic string, payload any, idemKey string) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return perr.Wrapf(err, perr.ErrorCodeInvalidRequest, "marshal outbox payload for %s", topic)
	}
	if _, err := s.binder.Bind(q).Insert(ctx, topic, raw, idemKey); err != nil {
		return perr.DBf("insert outbox event %s: %v", topic, err)
	}
	return nil
}
