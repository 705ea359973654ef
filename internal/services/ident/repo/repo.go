// Package repo provides Postgres bindings for the identity service
package repo

import (
	"context"
	"time"

	"proofwork/internal/modkit/repokit"
	"proofwork/internal/services/ident/domain"
)

// Repo is the identity persistence surface
type Repo interface {
	InsertOrg(ctx context.Context, o domain.Org) error
	OrgByID(ctx context.Context, orgID string) (domain.Org, error)

	InsertOrgUser(ctx context.Context, u domain.OrgUser) error
	OrgUserByEmail(ctx context.Context, email string) (domain.OrgUser, error)

	InsertSession(ctx context.Context, s domain.Session) error
	SessionByTokenHash(ctx context.Context, tokenHash string) (domain.Session, error)

	InsertAPIKey(ctx context.Context, k domain.APIKey) error
	APIKeyByPrefix(ctx context.Context, prefix string) (domain.APIKey, error)
	TouchAPIKey(ctx context.Context, keyID string, at time.Time) error

	InsertWorker(ctx context.Context, w domain.Worker) error
	WorkerByID(ctx context.Context, workerID string) (domain.Worker, error)
	WorkerByTokenHash(ctx context.Context, tokenHash string) (domain.Worker, error)
	TouchWorker(ctx context.Context, workerID string, at time.Time) error
	SetWorkerStatus(ctx context.Context, workerID, status string) error
	SetWorkerRate(ctx context.Context, workerID string, perMin int) error

	BucketForUpdate(ctx context.Context, key string) (tokens float64, updatedAt time.Time, found bool, err error)
	UpsertBucket(ctx context.Context, key string, tokens float64) error
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

func (r *queries) InsertOrg(ctx context.Context, o domain.Org) error {
	const sqlq = `
        INSERT INTO orgs (id, name, cors_allowlist, platform_fee_bps, fee_wallet, spend_limit_cents, created_at)
        VALUES ($1, $2, $3, $4, $5, $6, now())
    `
	_, err := r.q.Exec(ctx, sqlq, o.ID, o.Name, o.CORSAllowlist, o.PlatformFeeBps, o.FeeWallet, o.SpendLimitCents)
	return err
}

func (r *queries) OrgByID(ctx context.Context, orgID string) (domain.Org, error) {
	const sqlq = `
        SELECT id, name, COALESCE(cors_allowlist, '{}'), platform_fee_bps,
               COALESCE(fee_wallet, ''), spend_limit_cents, created_at
          FROM orgs
         WHERE id = $1
    `
	var o domain.Org
	err := r.q.QueryRow(ctx, sqlq, orgID).Scan(
		&o.ID, &o.Name, &o.CORSAllowlist, &o.PlatformFeeBps, &o.FeeWallet, &o.SpendLimitCents, &o.CreatedAt,
	)
	return o, err
}

func (r *queries) InsertOrgUser(ctx context.Context, u domain.OrgUser) error {
	const sqlq = `
        INSERT INTO org_users (id, org_id, email, password_hash, created_at)
        VALUES ($1, $2, $3, $4, now())
    `
	_, err := r.q.Exec(ctx, sqlq, u.ID, u.OrgID, u.Email, u.PasswordHash)
	return err
}

func (r *queries) OrgUserByEmail(ctx context.Context, email string) (domain.OrgUser, error) {
	const sqlq = `
        SELECT id, org_id, email, password_hash, created_at
          FROM org_users
         WHERE email = $1
    `
	var u domain.OrgUser
	err := r.q.QueryRow(ctx, sqlq, email).Scan(&u.ID, &u.OrgID, &u.Email, &u.PasswordHash, &u.CreatedAt)
	return u, err
}

func (r *queries) InsertSession(ctx context.Context, s domain.Session) error {
	const sqlq = `
        INSERT INTO sessions (id, org_user_id, org_id, token_hash, csrf_secret, expires_at, created_at)
        VALUES ($1, $2, $3, $4, $5, $6, now())
    `
	_, err := r.q.Exec(ctx, sqlq, s.ID, s.OrgUserID, s.OrgID, s.TokenHash, s.CSRFSecret, s.ExpiresAt)
	return err
}

func (r *queries) SessionByTokenHash(ctx context.Context, tokenHash string) (domain.Session, error) {
	const sqlq = `
        SELECT id, org_user_id, org_id, token_hash, csrf_secret, expires_at, created_at
          FROM sessions
         WHERE token_hash = $1
    `
	var s domain.Session
	err := r.q.QueryRow(ctx, sqlq, tokenHash).Scan(
		&s.ID, &s.OrgUserID, &s.OrgID, &s.TokenHash, &s.CSRFSecret, &s.ExpiresAt, &s.CreatedAt,
	)
	return s, err
}

func (r *queries) InsertAPIKey(ctx context.Context, k domain.APIKey) error {
	const sqlq = `
        INSERT INTO api_keys (id, org_id, name, key_prefix, key_hash, salt, created_at)
        VALUES ($1, $2, $3, $4, $5, $6, now())
    `
	_, err := r.q.Exec(ctx, sqlq, k.ID, k.OrgID, k.Name, k.KeyPrefix, k.KeyHash, k.Salt)
	return err
}

func (r *queries) APIKeyByPrefix(ctx context.Context, prefix string) (domain.APIKey, error) {
	const sqlq = `
        SELECT id, org_id, name, key_prefix, key_hash, salt, last_used_at, created_at
          FROM api_keys
         WHERE key_prefix = $1
    `
	var k domain.APIKey
	err := r.q.QueryRow(ctx, sqlq, prefix).Scan(
		&k.ID, &k.OrgID, &k.Name, &k.KeyPrefix, &k.KeyHash, &k.Salt, &k.LastUsedAt, &k.CreatedAt,
	)
	return k, err
}

func (r *queries) TouchAPIKey(ctx context.Context, keyID string, at time.Time) error {
	_, err := r.q.Exec(ctx, `UPDATE api_keys SET last_used_at = $2 WHERE id = $1`, keyID, at)
	return err
}

func (r *queries) InsertWorker(ctx context.Context, w domain.Worker) error {
	const sqlq = `
        INSERT INTO workers (
            id, display_name, capabilities, fingerprint_class, status, token_hash,
            rate_per_min, denied_task_types, payout_chain_id, payout_address,
            payout_verified_at, created_at
        )
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, now())
    `
	_, err := r.q.Exec(ctx, sqlq,
		w.ID, w.DisplayName, w.Capabilities, w.FingerprintClass, w.Status, w.TokenHash,
		w.RatePerMin, w.DeniedTaskTypes, w.PayoutChainID, w.PayoutAddress, w.PayoutVerifiedAt,
	)
	return err
}

const workerCols = `
        id, display_name, COALESCE(capabilities, '{}'), fingerprint_class, status, token_hash,
        rate_per_min, COALESCE(denied_task_types, '{}'), payout_chain_id,
        COALESCE(payout_address, ''), payout_verified_at, last_seen_at, created_at
`

func scanWorker(row repokit.Row) (domain.Worker, error) {
	var w domain.Worker
	err := row.Scan(
		&w.ID, &w.DisplayName, &w.Capabilities, &w.FingerprintClass, &w.Status, &w.TokenHash,
		&w.RatePerMin, &w.DeniedTaskTypes, &w.PayoutChainID, &w.PayoutAddress,
		&w.PayoutVerifiedAt, &w.LastSeenAt, &w.CreatedAt,
	)
	return w, err
}

func (r *queries) WorkerByID(ctx context.Context, workerID string) (domain.Worker, error) {
	return scanWorker(r.q.QueryRow(ctx, `SELECT `+workerCols+` FROM workers WHERE id = $1`, workerID))
}

func (r *queries) WorkerByTokenHash(ctx context.Context, tokenHash string) (domain.Worker, error) {
	return scanWorker(r.q.QueryRow(ctx, `SELECT `+workerCols+` FROM workers WHERE token_hash = $1`, tokenHash))
}

func (r *queries) TouchWorker(ctx context.Context, workerID string, at time.Time) error {
	_, err := r.q.Exec(ctx, `UPDATE workers SET last_seen_at = $2 WHERE id = $1`, workerID, at)
	return err
}

func (r *queries) SetWorkerStatus(ctx context.Context, workerID, status string) error {
	_, err := r.q.Exec(ctx, `UPDATE workers SET status = $2 WHERE id = $1`, workerID, status)
	return err
}

func (r *queries) SetWorkerRate(ctx context.Context, workerID string, perMin int) error {
	_, err := r.q.Exec(ctx, `UPDATE workers SET rate_per_min = $2 WHERE id = $1`, workerID, perMin)
	return err
}
