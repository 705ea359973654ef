// Package repo provides Postgres bindings for verification attempts
package repo

import (
	"context"
	"encoding/json"
	"time"

	"proofwork/internal/modkit/repokit"
	"proofwork/internal/services/verification/domain"
)

// Repo is the verification persistence surface
type Repo interface {
	Insert(ctx context.Context, v domain.Verification) error
	ByID(ctx context.Context, id string) (domain.Verification, error)

	// ByClaimIdem finds the verifier's prior claim under the same key
	ByClaimIdem(ctx context.Context, verifierID, idemKey string) (domain.Verification, error)

	// LockQueued picks one queued attempt, row-locked. An empty
	// submissionID means any
	LockQueued(ctx context.Context, submissionID string) (domain.Verification, bool, error)

	// SetClaim stamps the claim onto a queued row
	SetClaim(ctx context.Context, id, verifierID, token, idemKey string, expiresAt time.Time) error

	// ByIDForUpdate row-locks one attempt for verdict processing
	ByIDForUpdate(ctx context.Context, id string) (domain.Verification, error)

	// Complete records the verdict on a claimed row
	Complete(ctx context.Context, id string, in domain.VerdictInput) error

	// PassCount counts completed passing attempts for a submission
	PassCount(ctx context.Context, submissionID string) (int, error)

	// ExpiredClaims locks a batch of claimed rows past their expiry
	ExpiredClaims(ctx context.Context, limit int) ([]domain.Verification, error)

	// Requeue puts a claimed row back in the queue at the same attempt
	Requeue(ctx context.Context, id string) (bool, error)
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

const verificationCols = `
    id, submission_id, attempt_no, status,
    COALESCE(claim_token, ''), COALESCE(claimed_by, ''), claim_expires_at,
    COALESCE(verdict, ''), COALESCE(reason, ''), scorecard, evidence,
    completed_at, created_at
`

func scanVerification(row repokit.Row) (domain.Verification, error) {
	var (
		v   domain.Verification
		raw []byte
	)
	err := row.Scan(
		&v.ID, &v.SubmissionID, &v.AttemptNo, &v.Status,
		&v.ClaimToken, &v.ClaimedBy, &v.ClaimExpiresAt,
		&v.Verdict, &v.Reason, &raw, &v.Evidence,
		&v.CompletedAt, &v.CreatedAt,
	)
	if err != nil {
		return v, err
	}
	if len(raw) > 0 {
		v.Scorecard = json.RawMessage(raw)
	}
	return v, nil
}

func (r *queries) Insert(ctx context.Context, v domain.Verification) error {
	const sqlq = `
        INSERT INTO verifications (id, submission_id, attempt_no, status)
        VALUES ($1, $2, $3, $4)
    `
	_, err := r.q.Exec(ctx, sqlq, v.ID, v.SubmissionID, v.AttemptNo, v.Status)
	return err
}

func (r *queries) ByID(ctx context.Context, id string) (domain.Verification, error) {
	const sqlq = `SELECT ` + verificationCols + ` FROM verifications WHERE id = $1`
	return scanVerification(r.q.QueryRow(ctx, sqlq, id))
}

func (r *queries) ByClaimIdem(ctx context.Context, verifierID, idemKey string) (domain.Verification, error) {
	const sqlq = `
        SELECT ` + verificationCols + `
          FROM verifications
         WHERE claimed_by = $1
           AND claim_idem_key = $2
         ORDER BY created_at DESC
         LIMIT 1
    `
	return scanVerification(r.q.QueryRow(ctx, sqlq, verifierID, idemKey))
}

func (r *queries) LockQueued(ctx context.Context, submissionID string) (domain.Verification, bool, error) {
	const sqlq = `
        SELECT ` + verificationCols + `
          FROM verifications
         WHERE status = 'queued'
           AND ($1 = '' OR submission_id = $1)
         ORDER BY created_at
         LIMIT 1
           FOR UPDATE SKIP LOCKED
    `
	rows, err := r.q.Query(ctx, sqlq, submissionID)
	if err != nil {
		return domain.Verification{}, false, err
	}
	defer rows.Close()

	if !rows.Next() {
		return domain.Verification{}, false, rows.Err()
	}
	v, err := scanVerification(rows)
	if err != nil {
		return domain.Verification{}, false, err
	}
	return v, true, rows.Err()
}

func (r *queries) SetClaim(ctx context.Context, id, verifierID, token, idemKey string, expiresAt time.Time) error {
	const sqlq = `
        UPDATE verifications
           SET status = 'claimed',
               claimed_by = $2,
               claim_token = $3,
               claim_idem_key = $4,
               claim_expires_at = $5
         WHERE id = $1
    `
	_, err := r.q.Exec(ctx, sqlq, id, verifierID, token, idemKey, expiresAt)
	return err
}

func (r *queries) ByIDForUpdate(ctx context.Context, id string) (domain.Verification, error) {
	const sqlq = `SELECT ` + verificationCols + ` FROM verifications WHERE id = $1 FOR UPDATE`
	return scanVerification(r.q.QueryRow(ctx, sqlq, id))
}

func (r *queries) Complete(ctx context.Context, id string, in domain.VerdictInput) error {
	const sqlq = `
        UPDATE verifications
           SET status = 'completed',
               verdict = $2,
               reason = NULLIF($3, ''),
               scorecard = $4,
               evidence = $5,
               completed_at = now()
         WHERE id = $1
    `
	evidence := in.EvidenceArtifacts
	if evidence == nil {
		evidence = []string{}
	}
	var scorecard any
	if len(in.Scorecard) > 0 {
		scorecard = []byte(in.Scorecard)
	}
	_, err := r.q.Exec(ctx, sqlq, id, in.Verdict, in.Reason, scorecard, evidence)
	return err
}

func (r *queries) PassCount(ctx context.Context, submissionID string) (int, error) {
	const sqlq = `
        SELECT COUNT(*)
          FROM verifications
         WHERE submission_id = $1
           AND status = 'completed'
           AND verdict = 'pass'
    `
	var n int
	err := r.q.QueryRow(ctx, sqlq, submissionID).Scan(&n)
	return n, err
}

func (r *queries) ExpiredClaims(ctx context.Context, limit int) ([]domain.Verification, error) {
	const sqlq = `
        SELECT ` + verificationCols + `
          FROM verifications
         WHERE status = 'claimed'
           AND claim_expires_at < now()
         ORDER BY claim_expires_at
         LIMIT $1
           FOR UPDATE SKIP LOCKED
    `
	rows, err := r.q.Query(ctx, sqlq, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Verification
	for rows.Next() {
		v, err := scanVerification(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

func (r *queries) Requeue(ctx context.Context, id string) (bool, error) {
	const sqlq = `
        UPDATE verifications
           SET status = 'queued',
               claimed_by = NULL,
               claim_token = NULL,
               claim_idem_key = NULL,
               claim_expires_at = NULL
         WHERE id = $1
           AND status = 'claimed'
    `
	tag, err := r.q.Exec(ctx, sqlq, id)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}
