// Package repo provides Postgres bindings for job scheduling
package repo

import (
	"context"
	"encoding/json"
	"time"

	"github.com/jackc/pgx/v5"

	"proofwork/internal/modkit/repokit"
	"proofwork/internal/services/scheduler/domain"
)

// Selection mirrors the claimable-pool predicates
type Selection struct {
	FingerprintClass string
	WorkerTags       []string
	TaskType         string
	DeniedTaskTypes  []string
	MinPayoutCents   int64
	ExcludeJobIDs    []string
	Limit            int
}

// Repo is the scheduling persistence surface
type Repo interface {
	// Candidates lists claimable offers in scheduling order, without locks
	Candidates(ctx context.Context, sel Selection) ([]domain.Offer, error)

	// LockCandidate locks one claimable job by id, skipping rows another
	// claimant holds. found=false means locked-elsewhere or not claimable
	LockCandidate(ctx context.Context, jobID string, sel Selection) (domain.Offer, bool, error)

	// Claimable reports whether the job passes the pool predicates,
	// without locking. Used to tell contention from ineligibility
	Claimable(ctx context.Context, jobID string, sel Selection) (bool, error)

	// SetLease stamps the lease onto a locked job row
	SetLease(ctx context.Context, jobID, workerID, nonce string, expiresAt time.Time) error

	// Renew extends an unexpired lease; found=false means stale
	Renew(ctx context.Context, jobID, workerID, nonce string, expiresAt time.Time) (bool, error)

	// Release reopens an unexpired leased job; found=false means stale
	Release(ctx context.Context, jobID, workerID, nonce string) (bool, error)

	JobByID(ctx context.Context, jobID string) (domain.Job, error)

	// ExpiredLeases locks up to limit expired leased jobs
	ExpiredLeases(ctx context.Context, limit int) ([]domain.Job, error)

	// Reopen clears the lease and returns the job to open
	Reopen(ctx context.Context, jobID string) error

	// MarkSubmitted records the submission and moves the job forward
	MarkSubmitted(ctx context.Context, jobID, submissionID string) (bool, error)

	MarkVerifying(ctx context.Context, jobID string) (bool, error)

	// MarkDone finalizes the job. done is terminal
	MarkDone(ctx context.Context, jobID, verdict string, qualityScore float64, reason string) (bool, error)
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

// offerCols joins the job row with its bounty context
const offerCols = `
    j.id, j.bounty_id, j.fingerprint_class, j.status, j.created_at,
    b.title, COALESCE(b.allowed_origins, '{}'), b.descriptor,
    b.payout_cents, b.priority, b.canary_percent
`

// claimablePredicates implements the claimable-pool definition: open jobs
// plus leased jobs whose lease lapsed, under a published bounty whose
// descriptor the worker can serve
const claimablePredicates = `
       (j.status = 'open' OR (j.status = 'leased' AND j.lease_expires_at < now()))
   AND b.status = 'published'
   AND cardinality(b.allowed_origins) > 0
   AND j.fingerprint_class = $1
   AND b.payout_cents >= $2
   AND (b.descriptor->'capability_tags') <@ to_jsonb($3::text[])
   AND ($4 = '' OR b.descriptor->>'type' = $4)
   AND NOT (b.descriptor->>'type' = ANY($5::text[]))
   AND NOT (j.id = ANY($6::text[]))
`

func (r *queries) Candidates(ctx context.Context, sel Selection) ([]domain.Offer, error) {
	const sqlq = `
        SELECT ` + offerCols + `
          FROM jobs j
          JOIN bounties b ON b.id = j.bounty_id
         WHERE ` + claimablePredicates + `
         ORDER BY b.priority DESC, b.payout_cents DESC, j.created_at ASC, j.id ASC
         LIMIT $7
    `
	rows, err := r.q.Query(ctx, sqlq,
		sel.FingerprintClass, sel.MinPayoutCents, sel.WorkerTags,
		sel.TaskType, sel.DeniedTaskTypes, sel.ExcludeJobIDs, sel.Limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Offer
	for rows.Next() {
		o, err := scanOffer(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

func (r *queries) LockCandidate(ctx context.Context, jobID string, sel Selection) (domain.Offer, bool, error) {
	const sqlq = `
        SELECT ` + offerCols + `
          FROM jobs j
          JOIN bounties b ON b.id = j.bounty_id
         WHERE j.id = $7
           AND ` + claimablePredicates + `
           FOR UPDATE OF j SKIP LOCKED
    `
	o, err := scanOffer(r.q.QueryRow(ctx, sqlq,
		sel.FingerprintClass, sel.MinPayoutCents, sel.WorkerTags,
		sel.TaskType, sel.DeniedTaskTypes, sel.ExcludeJobIDs, jobID,
	))
	if err == pgx.ErrNoRows {
		return domain.Offer{}, false, nil
	}
	if err != nil {
		return domain.Offer{}, false, err
	}
	return o, true, nil
}

func (r *queries) Claimable(ctx context.Context, jobID string, sel Selection) (bool, error) {
	const sqlq = `
        SELECT EXISTS (
            SELECT 1
              FROM jobs j
              JOIN bounties b ON b.id = j.bounty_id
             WHERE j.id = $7
               AND ` + claimablePredicates + `
        )
    `
	var ok bool
	err := r.q.QueryRow(ctx, sqlq,
		sel.FingerprintClass, sel.MinPayoutCents, sel.WorkerTags,
		sel.TaskType, sel.DeniedTaskTypes, sel.ExcludeJobIDs, jobID,
	).Scan(&ok)
	return ok, err
}

func scanOffer(row repokit.Row) (domain.Offer, error) {
	var o domain.Offer
	var desc []byte
	err := row.Scan(
		&o.Job.ID, &o.Job.BountyID, &o.Job.FingerprintClass, &o.Job.Status, &o.Job.CreatedAt,
		&o.Title, &o.AllowedOrigins, &desc, &o.PayoutCents, &o.Priority, &o.CanaryPercent,
	)
	if err != nil {
		return domain.Offer{}, err
	}
	if err := json.Unmarshal(desc, &o.Descriptor); err != nil {
		return domain.Offer{}, err
	}
	return o, nil
}

func (r *queries) SetLease(ctx context.Context, jobID, workerID, nonce string, expiresAt time.Time) error {
	const sqlq = `
        UPDATE jobs
           SET status = 'leased',
               lease_worker_id = $2,
               lease_nonce = $3,
               lease_expires_at = $4
         WHERE id = $1
    `
	_, err := r.q.Exec(ctx, sqlq, jobID, workerID, nonce, expiresAt)
	return err
}

func (r *queries) Renew(ctx context.Context, jobID, workerID, nonce string, expiresAt time.Time) (bool, error) {
	const sqlq = `
        UPDATE jobs
           SET lease_expires_at = $4
         WHERE id = $1
           AND status = 'leased'
           AND lease_worker_id = $2
           AND lease_nonce = $3
           AND lease_expires_at > now()
    `
	tag, err := r.q.Exec(ctx, sqlq, jobID, workerID, nonce, expiresAt)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (r *queries) Release(ctx context.Context, jobID, workerID, nonce string) (bool, error) {
	const sqlq = `
        UPDATE jobs
           SET status = 'open',
               lease_worker_id = NULL,
               lease_nonce = NULL,
               lease_expires_at = NULL
         WHERE id = $1
           AND status = 'leased'
           AND lease_worker_id = $2
           AND lease_nonce = $3
           AND lease_expires_at > now()
    `
	tag, err := r.q.Exec(ctx, sqlq, jobID, workerID, nonce)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

const jobCols = `
    id, bounty_id, fingerprint_class, status,
    COALESCE(lease_worker_id, ''), lease_expires_at, COALESCE(lease_nonce, ''),
    COALESCE(current_submission_id, ''), COALESCE(final_verdict, ''),
    COALESCE(final_quality_score, 0), COALESCE(final_reason, ''), created_at
`

func scanJob(row repokit.Row) (domain.Job, error) {
	var j domain.Job
	err := row.Scan(
		&j.ID, &j.BountyID, &j.FingerprintClass, &j.Status,
		&j.LeaseWorkerID, &j.LeaseExpiresAt, &j.LeaseNonce,
		&j.CurrentSubmissionID, &j.FinalVerdict,
		&j.FinalQualityScore, &j.FinalReason, &j.CreatedAt,
	)
	return j, err
}

func (r *queries) JobByID(ctx context.Context, jobID string) (domain.Job, error) {
	const sqlq = `SELECT ` + jobCols + ` FROM jobs WHERE id = $1`
	return scanJob(r.q.QueryRow(ctx, sqlq, jobID))
}

func (r *queries) ExpiredLeases(ctx context.Context, limit int) ([]domain.Job, error) {
	const sqlq = `
        SELECT ` + jobCols + `
          FROM jobs
         WHERE status = 'leased'
           AND lease_expires_at < now()
         ORDER BY lease_expires_at
         LIMIT $1
           FOR UPDATE SKIP LOCKED
    `
	rows, err := r.q.Query(ctx, sqlq, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Job
	for rows.Next() {
		j, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, j)
	}
	return out, rows.Err()
}

func (r *queries) Reopen(ctx context.Context, jobID string) error {
	const sqlq = `
        UPDATE jobs
           SET status = 'open',
               lease_worker_id = NULL,
               lease_nonce = NULL,
               lease_expires_at = NULL
         WHERE id = $1
    `
	_, err := r.q.Exec(ctx, sqlq, jobID)
	return err
}

func (r *queries) MarkSubmitted(ctx context.Context, jobID, submissionID string) (bool, error) {
	const sqlq = `
        UPDATE jobs
           SET status = 'submitted',
               current_submission_id = $2
         WHERE id = $1
           AND status = 'leased'
    `
	tag, err := r.q.Exec(ctx, sqlq, jobID, submissionID)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (r *queries) MarkVerifying(ctx context.Context, jobID string) (bool, error) {
	const sqlq = `
        UPDATE jobs
           SET status = 'verifying'
         WHERE id = $1
           AND status = 'submitted'
    `
	tag, err := r.q.Exec(ctx, sqlq, jobID)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (r *queries) MarkDone(ctx context.Context, jobID, verdict string, qualityScore float64, reason string) (bool, error) {
	const sqlq = `
        UPDATE jobs
           SET status = 'done',
               final_verdict = $2,
               final_quality_score = $3,
               final_reason = NULLIF($4, ''),
               lease_worker_id = NULL,
               lease_nonce = NULL,
               lease_expires_at = NULL
         WHERE id = $1
           AND status <> 'done'
    `
	tag, err := r.q.Exec(ctx, sqlq, jobID, verdict, qualityScore, reason)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}
