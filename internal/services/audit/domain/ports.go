package domain

import (
	"context"

	"proofwork/internal/modkit/repokit"

	oxdom "proofwork/internal/services/outbox/domain"
)

// RecorderPort writes audit entries. RecordOn runs on the caller's
// Queryer so the entry commits atomically with the mutation it
// describes
type RecorderPort interface {
	RecordOn(ctx context.Context, q repokit.Queryer, e Entry) (Entry, error)
}

// EventRecorderPort mirrors terminal marketplace events into the
// trail; it rides the outbox in-process sink
type EventRecorderPort interface {
	RecordEvent(ctx context.Context, ev oxdom.Event) error
}

// QueryPort is the admin read surface
type QueryPort interface {
	Recent(ctx context.Context, limit int) ([]Entry, error)
	ForTarget(ctx context.Context, targetKind, targetID string, limit int) ([]Entry, error)
}

// MirrorPort copies entries into the columnar store for long-range
// queries. Postgres stays the source of truth
type MirrorPort interface {
	RunMirror(ctx context.Context) error
	MirrorOnce(ctx context.Context) (int, error)
}
