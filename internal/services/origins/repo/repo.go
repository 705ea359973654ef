// Package repo provides Postgres bindings for origin claims
package repo

import (
	"context"
	"time"

	"proofwork/internal/modkit/repokit"
	"proofwork/internal/services/origins/domain"
)

// Repo is the origin persistence surface
type Repo interface {
	Insert(ctx context.Context, o domain.Origin) error
	ByID(ctx context.Context, orgID, originID string) (domain.Origin, error)
	ByOrg(ctx context.Context, orgID string) ([]domain.Origin, error)
	SetStatus(ctx context.Context, originID, status, lastError string, verifiedAt *time.Time) error
	IsVerified(ctx context.Context, orgID, origin string) (bool, error)
	VerifiedOrigins(ctx context.Context, orgID string) ([]string, error)
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

const cols = `
        id, org_id, origin, status, method, token, COALESCE(last_error, ''), verified_at, created_at
`

func (r *queries) Insert(ctx context.Context, o domain.Origin) error {
	const sqlq = `
        INSERT INTO origins (id, org_id, origin, status, method, token, created_at)
        VALUES ($1, $2, $3, $4, $5, $6, now())
    `
	_, err := r.q.Exec(ctx, sqlq, o.ID, o.OrgID, o.Origin, o.Status, o.Method, o.Token)
	return err
}

func scan(row repokit.Row) (domain.Origin, error) {
	var o domain.Origin
	err := row.Scan(
		&o.ID, &o.OrgID, &o.Origin, &o.Status, &o.Method, &o.Token, &o.LastError, &o.VerifiedAt, &o.CreatedAt,
	)
	return o, err
}

func (r *queries) ByID(ctx context.Context, orgID, originID string) (domain.Origin, error) {
	return scan(r.q.QueryRow(ctx,
		`SELECT `+cols+` FROM origins WHERE id = $1 AND org_id = $2`, originID, orgID))
}

func (r *queries) ByOrg(ctx context.Context, orgID string) ([]domain.Origin, error) {
	rows, err := r.q.Query(ctx,
		`SELECT `+cols+` FROM origins WHERE org_id = $1 ORDER BY created_at ASC`, orgID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Origin
	for rows.Next() {
		var o domain.Origin
		if err := rows.Scan(
			&o.ID, &o.OrgID, &o.Origin, &o.Status, &o.Method, &o.Token, &o.LastError, &o.VerifiedAt, &o.CreatedAt,
		); err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

func (r *queries) SetStatus(ctx context.Context, originID, status, lastError string, verifiedAt *time.Time) error {
	const sqlq = `
        UPDATE origins
           SET status = $2, last_error = NULLIF($3, ''), verified_at = $4
         WHERE id = $1
    `
	_, err := r.q.Exec(ctx, sqlq, originID, status, lastError, verifiedAt)
	return err
}

func (r *queries) IsVerified(ctx context.Context, orgID, origin string) (bool, error) {
	const sqlq = `
        SELECT EXISTS (
            SELECT 1 FROM origins WHERE org_id = $1 AND origin = $2 AND status = 'verified'
        )
    `
	var ok bool
	err := r.q.QueryRow(ctx, sqlq, orgID, origin).Scan(&ok)
	return ok, err
}

func (r *queries) VerifiedOrigins(ctx context.Context, orgID string) ([]string, error) {
	rows, err := r.q.Query(ctx,
		`SELECT origin FROM origins WHERE org_id = $1 AND status = 'verified' ORDER BY origin`, orgID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var o string
		if err := rows.Scan(&o); err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, rows.Err()
}
