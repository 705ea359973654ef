// Package repo provides Postgres bindings for the billing ledger
package repo

import (
	"context"

	"github.com/jackc/pgx/v5"

	"proofwork/internal/modkit/repokit"
	"proofwork/internal/services/billing/domain"
)

// Repo is the billing persistence surface
type Repo interface {
	// AccountForUpdate locks the org's account row for the transaction.
	// found=false means the org has no account yet
	AccountForUpdate(ctx context.Context, orgID string) (acc domain.Account, found bool, err error)
	Account(ctx context.Context, orgID string) (domain.Account, bool, error)
	UpsertAccount(ctx context.Context, acc domain.Account) error

	InsertEntry(ctx context.Context, e domain.Entry) error
	Entries(ctx context.Context, orgID string, limit int) ([]domain.Entry, error)

	// InsertWebhookEvent stores the raw event keyed by provider event id.
	// inserted=false means we have already seen it
	InsertWebhookEvent(ctx context.Context, eventID, provider string, payload []byte) (inserted bool, err error)
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

const accountCols = `org_id, balance_cents, reserved_cents, updated_at`

func (r *queries) AccountForUpdate(ctx context.Context, orgID string) (domain.Account, bool, error) {
	const sqlq = `
        SELECT ` + accountCols + `
          FROM ledger_accounts
         WHERE org_id = $1
           FOR UPDATE
    `
	return r.scanAccount(ctx, sqlq, orgID)
}

func (r *queries) Account(ctx context.Context, orgID string) (domain.Account, bool, error) {
	const sqlq = `
        SELECT ` + accountCols + `
          FROM ledger_accounts
         WHERE org_id = $1
    `
	return r.scanAccount(ctx, sqlq, orgID)
}

func (r *queries) scanAccount(ctx context.Context, sqlq, orgID string) (domain.Account, bool, error) {
	var a domain.Account
	err := r.q.QueryRow(ctx, sqlq, orgID).Scan(&a.OrgID, &a.BalanceCents, &a.ReservedCents, &a.UpdatedAt)
	if err == pgx.ErrNoRows {
		return domain.Account{OrgID: orgID}, false, nil
	}
	return a, err == nil, err
}

func (r *queries) UpsertAccount(ctx context.Context, acc domain.Account) error {
	const sqlq = `
        INSERT INTO ledger_accounts (org_id, balance_cents, reserved_cents, updated_at)
        VALUES ($1, $2, $3, now())
        ON CONFLICT (org_id) DO UPDATE
           SET balance_cents = EXCLUDED.balance_cents,
               reserved_cents = EXCLUDED.reserved_cents,
               updated_at = now()
    `
	_, err := r.q.Exec(ctx, sqlq, acc.OrgID, acc.BalanceCents, acc.ReservedCents)
	return err
}

func (r *queries) InsertEntry(ctx context.Context, e domain.Entry) error {
	const sqlq = `
        INSERT INTO ledger_entries (id, org_id, kind, amount_cents, ref, created_at)
        VALUES ($1, $2, $3, $4, NULLIF($5, ''), now())
    `
	_, err := r.q.Exec(ctx, sqlq, e.ID, e.OrgID, e.Kind, e.AmountCents, e.Ref)
	return err
}

func (r *queries) Entries(ctx context.Context, orgID string, limit int) ([]domain.Entry, error) {
	const sqlq = `
        SELECT id, org_id, kind, amount_cents, COALESCE(ref, ''), created_at
          FROM ledger_entries
         WHERE org_id = $1
         ORDER BY created_at DESC, id DESC
         LIMIT $2
    `
	rows, err := r.q.Query(ctx, sqlq, orgID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Entry
	for rows.Next() {
		var e domain.Entry
		if err := rows.Scan(&e.ID, &e.OrgID, &e.Kind, &e.AmountCents, &e.Ref, &e.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (r *queries) InsertWebhookEvent(ctx context.Context, eventID, provider string, payload []byte) (bool, error) {
	const sqlq = `
        INSERT INTO webhook_events (event_id, provider, payload, received_at)
        VALUES ($1, $2, $3, now())
        ON CONFLICT (event_id) DO NOTHING
    `
	tag, err := r.q.Exec(ctx, sqlq, eventID, provider, payload)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}
