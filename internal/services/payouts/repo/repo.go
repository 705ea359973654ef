// Package repo provides Postgres bindings for payouts, transfer legs
// and the on-chain nonce allocator
package repo

import (
	"context"

	"proofwork/internal/modkit/repokit"
	"proofwork/internal/services/payouts/domain"
)

// Repo is the payout persistence surface
type Repo interface {
	Insert(ctx context.Context, p domain.Payout) error
	ByID(ctx context.Context, id string) (domain.Payout, error)
	ForWorker(ctx context.Context, workerID string, limit int) ([]domain.Payout, error)
	ForOrg(ctx context.Context, orgID string, limit int) ([]domain.Payout, error)

	// DueHolds locks a batch of holds whose dispute window has passed
	DueHolds(ctx context.Context, limit int) ([]domain.Payout, error)

	// BroadcastTransfers lists broadcast legs awaiting confirmation
	BroadcastTransfers(ctx context.Context, limit int) ([]domain.Transfer, error)

	SetStatus(ctx context.Context, id, status string) error
	MarkPaid(ctx context.Context, id, txHash string) error
	MarkFailed(ctx context.Context, id, reason string) error
	BumpAttempts(ctx context.Context, id string) (int, error)

	InsertTransfer(ctx context.Context, t domain.Transfer) error
	MarkTransferBroadcast(ctx context.Context, id, txHash string) error
	MarkTransferConfirmed(ctx context.Context, id string) error
	TransfersForPayout(ctx context.Context, payoutID string) ([]domain.Transfer, error)

	// NextNonce allocates the next on-chain nonce for (chain, sender).
	// The row is upserted and bumped atomically
	NextNonce(ctx context.Context, chainID int64, from string) (uint64, error)
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

const payoutCols = `
    id, submission_id, bounty_id, org_id, worker_id,
    gross_cents, platform_fee_cents, service_fee_cents, net_cents,
    status, hold_until, COALESCE(chain_id, 0), COALESCE(pay_address, ''),
    COALESCE(tx_hash, ''), attempts, COALESCE(fail_reason, ''),
    paid_at, created_at
`

func scanPayout(row repokit.Row) (domain.Payout, error) {
	var p domain.Payout
	err := row.Scan(
		&p.ID, &p.SubmissionID, &p.BountyID, &p.OrgID, &p.WorkerID,
		&p.GrossCents, &p.PlatformFeeCents, &p.ServiceFeeCents, &p.NetCents,
		&p.Status, &p.HoldUntil, &p.ChainID, &p.PayAddress,
		&p.TxHash, &p.Attempts, &p.FailReason,
		&p.PaidAt, &p.CreatedAt,
	)
	return p, err
}

func (r *queries) Insert(ctx context.Context, p domain.Payout) error {
	const sqlq = `
        INSERT INTO payouts (
            id, submission_id, bounty_id, org_id, worker_id,
            gross_cents, platform_fee_cents, service_fee_cents, net_cents,
            status, hold_until, chain_id, pay_address, fail_reason
        ) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, NULLIF($12, 0), NULLIF($13, ''), NULLIF($14, ''))
    `
	_, err := r.q.Exec(ctx, sqlq,
		p.ID, p.SubmissionID, p.BountyID, p.OrgID, p.WorkerID,
		p.GrossCents, p.PlatformFeeCents, p.ServiceFeeCents, p.NetCents,
		p.Status, p.HoldUntil, p.ChainID, p.PayAddress, p.FailReason,
	)
	return err
}

func (r *queries) ByID(ctx context.Context, id string) (domain.Payout, error) {
	const sqlq = `SELECT ` + payoutCols + ` FROM payouts WHERE id = $1`
	return scanPayout(r.q.QueryRow(ctx, sqlq, id))
}

func (r *queries) list(ctx context.Context, sqlq string, arg any, limit int) ([]domain.Payout, error) {
	rows, err := r.q.Query(ctx, sqlq, arg, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Payout
	for rows.Next() {
		p, err := scanPayout(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *queries) ForWorker(ctx context.Context, workerID string, limit int) ([]domain.Payout, error) {
	const sqlq = `
        SELECT ` + payoutCols + ` FROM payouts
         WHERE worker_id = $1 ORDER BY created_at DESC LIMIT $2
    `
	return r.list(ctx, sqlq, workerID, limit)
}

func (r *queries) ForOrg(ctx context.Context, orgID string, limit int) ([]domain.Payout, error) {
	const sqlq = `
        SELECT ` + payoutCols + ` FROM payouts
         WHERE org_id = $1 ORDER BY created_at DESC LIMIT $2
    `
	return r.list(ctx, sqlq, orgID, limit)
}

func (r *queries) DueHolds(ctx context.Context, limit int) ([]domain.Payout, error) {
	const sqlq = `
        SELECT ` + payoutCols + `
          FROM payouts
         WHERE status = 'holding'
           AND hold_until < now()
         ORDER BY hold_until
         LIMIT $1
           FOR UPDATE SKIP LOCKED
    `
	rows, err := r.q.Query(ctx, sqlq, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Payout
	for rows.Next() {
		p, err := scanPayout(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *queries) SetStatus(ctx context.Context, id, status string) error {
	const sqlq = `UPDATE payouts SET status = $2 WHERE id = $1`
	_, err := r.q.Exec(ctx, sqlq, id, status)
	return err
}

func (r *queries) MarkPaid(ctx context.Context, id, txHash string) error {
	const sqlq = `
        UPDATE payouts
           SET status = 'paid',
               tx_hash = NULLIF($2, ''),
               fail_reason = NULL,
               paid_at = now()
         WHERE id = $1
    `
	_, err := r.q.Exec(ctx, sqlq, id, txHash)
	return err
}

func (r *queries) MarkFailed(ctx context.Context, id, reason string) error {
	const sqlq = `UPDATE payouts SET status = 'failed', fail_reason = $2 WHERE id = $1`
	_, err := r.q.Exec(ctx, sqlq, id, reason)
	return err
}

func (r *queries) BumpAttempts(ctx context.Context, id string) (int, error) {
	const sqlq = `UPDATE payouts SET attempts = attempts + 1 WHERE id = $1 RETURNING attempts`
	var n int
	err := r.q.QueryRow(ctx, sqlq, id).Scan(&n)
	return n, err
}

const transferCols = `
    id, payout_id, kind, to_address, cents, chain_id, nonce,
    COALESCE(tx_hash, ''), status, sent_at, created_at
`

func scanTransfer(row repokit.Row) (domain.Transfer, error) {
	var t domain.Transfer
	err := row.Scan(
		&t.ID, &t.PayoutID, &t.Kind, &t.ToAddress, &t.Cents, &t.ChainID, &t.Nonce,
		&t.TxHash, &t.Status, &t.SentAt, &t.CreatedAt,
	)
	return t, err
}

func (r *queries) InsertTransfer(ctx context.Context, t domain.Transfer) error {
	const sqlq = `
        INSERT INTO payout_transfers (id, payout_id, kind, to_address, cents, chain_id, nonce, status)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
    `
	_, err := r.q.Exec(ctx, sqlq, t.ID, t.PayoutID, t.Kind, t.ToAddress, t.Cents, t.ChainID, t.Nonce, t.Status)
	return err
}

func (r *queries) MarkTransferBroadcast(ctx context.Context, id, txHash string) error {
	const sqlq = `
        UPDATE payout_transfers
           SET status = 'broadcast', tx_hash = $2, sent_at = now()
         WHERE id = $1
    `
	_, err := r.q.Exec(ctx, sqlq, id, txHash)
	return err
}

func (r *queries) MarkTransferConfirmed(ctx context.Context, id string) error {
	const sqlq = `UPDATE payout_transfers SET status = 'confirmed' WHERE id = $1`
	_, err := r.q.Exec(ctx, sqlq, id)
	return err
}

func (r *queries) TransfersForPayout(ctx context.Context, payoutID string) ([]domain.Transfer, error) {
	const sqlq = `
        SELECT ` + transferCols + ` FROM payout_transfers
         WHERE payout_id = $1 ORDER BY created_at, id
    `
	rows, err := r.q.Query(ctx, sqlq, payoutID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Transfer
	for rows.Next() {
		t, err := scanTransfer(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (r *queries) BroadcastTransfers(ctx context.Context, limit int) ([]domain.Transfer, error) {
	const sqlq = `
        SELECT ` + transferCols + `
          FROM payout_transfers
         WHERE status = 'broadcast'
         ORDER BY sent_at
         LIMIT $1
           FOR UPDATE SKIP LOCKED
    `
	rows, err := r.q.Query(ctx, sqlq, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Transfer
	for rows.Next() {
		t, err := scanTransfer(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (r *queries) NextNonce(ctx context.Context, chainID int64, from string) (uint64, error) {
	const sqlq = `
        INSERT INTO crypto_nonces (chain_id, sender, next_nonce)
        VALUES ($1, $2, 1)
        ON CONFLICT (chain_id, sender)
        DO UPDATE SET next_nonce = crypto_nonces.next_nonce + 1
        RETURNING next_nonce - 1
    `
	var n uint64
	err := r.q.QueryRow(ctx, sqlq, chainID, from).Scan(&n)
	return n, err
}
