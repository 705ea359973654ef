// Package repo provides Postgres bindings for the audit trail
package repo

import (
	"context"
	"encoding/json"

	"proofwork/internal/modkit/repokit"
	"proofwork/internal/services/audit/domain"
)

// Repo is the audit persistence surface
type Repo interface {
	Insert(ctx context.Context, e domain.Entry) error
	Recent(ctx context.Context, limit int) ([]domain.Entry, error)
	ForTarget(ctx context.Context, targetKind, targetID string, limit int) ([]domain.Entry, error)

	// Unmirrored locks a batch of entries not yet copied to the
	// columnar store
	Unmirrored(ctx context.Context, limit int) ([]domain.Entry, error)
	MarkMirrored(ctx context.Context, ids []string) error
}

type (
	// PG is a Postgres binder for Repo
	PG      struct{}
	queries struct{ q repokit.Queryer }
)

var _ Repo = (*queries)(nil)

// NewPG returns a binder for the Postgres implementation
func NewPG() repokit.Binder[Repo] { return PG{} }

// Bind attaches a Queryer to the Postgres implementation
func (PG) Bind(q repokit.Queryer) Repo { return &queries{q: q} }

const entryCols = `
    id, actor_kind, actor_id, action, target_kind, target_id,
    COALESCE(detail, '{}'::jsonb), created_at
`

func scanEntry(row repokit.Row) (domain.Entry, error) {
	var (
		e   domain.Entry
		raw []byte
	)
	err := row.Scan(
		&e.ID, &e.ActorKind, &e.ActorID, &e.Action, &e.TargetKind, &e.TargetID,
		&raw, &e.CreatedAt,
	)
	if err != nil {
		return domain.Entry{}, err
	}
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &e.Detail); err != nil {
			return domain.Entry{}, err
		}
	}
	return e, nil
}

func (r *queries) Insert(ctx context.Context, e domain.Entry) error {
	detail, err := json.Marshal(e.Detail)
	if err != nil {
		return err
	}
	const sqlq = `
        INSERT INTO audit_log (id, actor_kind, actor_id, action, target_kind, target_id, detail)
        VALUES ($1, $2, $3, $4, $5, $6, $7)
    `
	_, err = r.q.Exec(ctx, sqlq,
		e.ID, e.ActorKind, e.ActorID, e.Action, e.TargetKind, e.TargetID, detail,
	)
	return err
}

func (r *queries) list(ctx context.Context, sqlq string, args ...any) ([]domain.Entry, error) {
	rows, err := r.q.Query(ctx, sqlq, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (r *queries) Recent(ctx context.Context, limit int) ([]domain.Entry, error) {
	const sqlq = `
        SELECT ` + entryCols + ` FROM audit_log
         ORDER BY created_at DESC LIMIT $1
    `
	return r.list(ctx, sqlq, limit)
}

func (r *queries) ForTarget(ctx context.Context, targetKind, targetID string, limit int) ([]domain.Entry, error) {
	const sqlq = `
        SELECT ` + entryCols + ` FROM audit_log
         WHERE target_kind = $1 AND target_id = $2
         ORDER BY created_at DESC LIMIT $3
    `
	return r.list(ctx, sqlq, targetKind, targetID, limit)
}

func (r *queries) Unmirrored(ctx context.Context, limit int) ([]domain.Entry, error) {
	const sqlq = `
        SELECT ` + entryCols + `
          FROM audit_log
         WHERE mirrored_at IS NULL
         ORDER BY created_at
         LIMIT $1
           FOR UPDATE SKIP LOCKED
    `
	return r.list(ctx, sqlq, limit)
}

func (r *queries) MarkMirrored(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	const sqlq = `UPDATE audit_log SET mirrored_at = now() WHERE id = ANY($1)`
	_, err := r.q.Exec(ctx, sqlq, ids)
	return err
}
