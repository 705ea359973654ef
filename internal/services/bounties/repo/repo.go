// Package repo provides Postgres bindings for bounties and job fan-out
package repo

import (
	"context"
	"encoding/json"
	"time"

	"proofwork/internal/modkit/repokit"
	"proofwork/internal/services/bounties/domain"
	sdom "proofwork/internal/services/scheduler/domain"
)

// Repo is the bounty persistence surface
type Repo interface {
	Insert(ctx context.Context, b domain.Bounty) error
	ByID(ctx context.Context, bountyID string) (domain.Bounty, error)
	ByIDForOrg(ctx context.Context, orgID, bountyID string) (domain.Bounty, error)
	// ByIDForUpdate locks the bounty row for the transaction
	ByIDForUpdate(ctx context.Context, bountyID string) (domain.Bounty, error)
	ByOrg(ctx context.Context, orgID string) ([]domain.Bounty, error)

	SetPublished(ctx context.Context, bountyID string, at time.Time) error
	SetClosed(ctx context.Context, bountyID string) error

	InsertJob(ctx context.Context, j sdom.Job) error
	// CountUnsettledJobs counts jobs that have not reached done yet
	CountUnsettledJobs(ctx context.Context, bountyID string) (int, error)
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

const bountyCols = `
    id, org_id, title, COALESCE(description, ''), status,
    COALESCE(allowed_origins, '{}'), descriptor, payout_cents, required_proofs,
    dispute_window_sec, priority, COALESCE(fingerprint_classes, '{}'),
    canary_percent, published_at, created_at
`

func (r *queries) Insert(ctx context.Context, b domain.Bounty) error {
	desc, err := json.Marshal(b.Descriptor)
	if err != nil {
		return err
	}
	const sqlq = `
        INSERT INTO bounties (
            id, org_id, title, description, status, allowed_origins, descriptor,
            payout_cents, required_proofs, dispute_window_sec, priority,
            fingerprint_classes, canary_percent, created_at
        )
        VALUES ($1, $2, $3, NULLIF($4, ''), $5, $6, $7, $8, $9, $10, $11, $12, $13, now())
    `
	_, err = r.q.Exec(ctx, sqlq,
		b.ID, b.OrgID, b.Title, b.Description, b.Status, b.AllowedOrigins, desc,
		b.PayoutCents, b.RequiredProofs, b.DisputeWindowSec, b.Priority,
		b.FingerprintClasses, b.CanaryPercent,
	)
	return err
}

func (r *queries) scanBounty(row repokit.Row) (domain.Bounty, error) {
	var b domain.Bounty
	var desc []byte
	err := row.Scan(
		&b.ID, &b.OrgID, &b.Title, &b.Description, &b.Status,
		&b.AllowedOrigins, &desc, &b.PayoutCents, &b.RequiredProofs,
		&b.DisputeWindowSec, &b.Priority, &b.FingerprintClasses,
		&b.CanaryPercent, &b.PublishedAt, &b.CreatedAt,
	)
	if err != nil {
		return domain.Bounty{}, err
	}
	if err := json.Unmarshal(desc, &b.Descriptor); err != nil {
		return domain.Bounty{}, err
	}
	return b, nil
}

func (r *queries) ByID(ctx context.Context, bountyID string) (domain.Bounty, error) {
	const sqlq = `SELECT ` + bountyCols + ` FROM bounties WHERE id = $1`
	return r.scanBounty(r.q.QueryRow(ctx, sqlq, bountyID))
}

func (r *queries) ByIDForOrg(ctx context.Context, orgID, bountyID string) (domain.Bounty, error) {
	const sqlq = `SELECT ` + bountyCols + ` FROM bounties WHERE id = $1 AND org_id = $2`
	return r.scanBounty(r.q.QueryRow(ctx, sqlq, bountyID, orgID))
}

func (r *queries) ByIDForUpdate(ctx context.Context, bountyID string) (domain.Bounty, error) {
	const sqlq = `SELECT ` + bountyCols + ` FROM bounties WHERE id = $1 FOR UPDATE`
	return r.scanBounty(r.q.QueryRow(ctx, sqlq, bountyID))
}

func (r *queries) ByOrg(ctx context.Context, orgID string) ([]domain.Bounty, error) {
	const sqlq = `
        SELECT ` + bountyCols + `
          FROM bounties
         WHERE org_id = $1
         ORDER BY created_at DESC
    `
	rows, err := r.q.Query(ctx, sqlq, orgID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Bounty
	for rows.Next() {
		b, err := r.scanBounty(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

func (r *queries) SetPublished(ctx context.Context, bountyID string, at time.Time) error {
	const sqlq = `
        UPDATE bounties
           SET status = 'published', published_at = $2
         WHERE id = $1
    `
	_, err := r.q.Exec(ctx, sqlq, bountyID, at)
	return err
}

func (r *queries) SetClosed(ctx context.Context, bountyID string) error {
	const sqlq = `UPDATE bounties SET status = 'closed' WHERE id = $1`
	_, err := r.q.Exec(ctx, sqlq, bountyID)
	return err
}

func (r *queries) InsertJob(ctx context.Context, j sdom.Job) error {
	const sqlq = `
        INSERT INTO jobs (id, bounty_id, fingerprint_class, status, created_at)
        VALUES ($1, $2, $3, $4, now())
    `
	_, err := r.q.Exec(ctx, sqlq, j.ID, j.BountyID, j.FingerprintClass, j.Status)
	return err
}

func (r *queries) CountUnsettledJobs(ctx context.Context, bountyID string) (int, error) {
	const sqlq = `
        SELECT count(*)
          FROM jobs
         WHERE bounty_id = $1
           AND status <> 'done'
    `
	var n int
	err := r.q.QueryRow(ctx, sqlq, bountyID).Scan(&n)
	return n, err
}
