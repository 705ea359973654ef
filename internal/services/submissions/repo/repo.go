// Package repo provides Postgres bindings for submissions
package repo

import (
	"context"
	"encoding/json"

	"proofwork/internal/modkit/repokit"
	"proofwork/internal/services/submissions/domain"
)

// Repo is the submission persistence surface
type Repo interface {
	Insert(ctx context.Context, s domain.Submission) error
	ByID(ctx context.Context, id string) (domain.Submission, error)

	// ByIdem finds a prior submission for the same (job, worker, key)
	ByIdem(ctx context.Context, jobID, workerID, idemKey string) (domain.Submission, error)

	// SetStatus flips the status; accepted also stamps accepted_at
	SetStatus(ctx context.Context, id, status string) error

	DedupeSeen(ctx context.Context, bountyID, key string) (bool, error)
	DedupeSeed(ctx context.Context, bountyID, key, submissionID string) error
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

const submissionCols = `
    id, job_id, worker_id, bounty_id, manifest, artifact_index,
    status, dedupe_key, idempotency_key, accepted_at, created_at
`

func scanSubmission(row repokit.Row) (domain.Submission, error) {
	var (
		s   domain.Submission
		raw []byte
	)
	err := row.Scan(
		&s.ID, &s.JobID, &s.WorkerID, &s.BountyID, &raw, &s.ArtifactIDs,
		&s.Status, &s.DedupeKey, &s.IdempotencyKey, &s.AcceptedAt, &s.CreatedAt,
	)
	if err != nil {
		return s, err
	}
	if err := json.Unmarshal(raw, &s.Manifest); err != nil {
		return s, err
	}
	return s, nil
}

func (r *queries) Insert(ctx context.Context, s domain.Submission) error {
	const sqlq = `
        INSERT INTO submissions (
            id, job_id, worker_id, bounty_id, manifest, artifact_index,
            status, dedupe_key, idempotency_key
        ) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
    `
	raw, err := json.Marshal(s.Manifest)
	if err != nil {
		return err
	}
	index := s.ArtifactIDs
	if index == nil {
		index = []string{}
	}
	_, err = r.q.Exec(ctx, sqlq,
		s.ID, s.JobID, s.WorkerID, s.BountyID, raw, index,
		s.Status, s.DedupeKey, s.IdempotencyKey,
	)
	return err
}

func (r *queries) ByID(ctx context.Context, id string) (domain.Submission, error) {
	const sqlq = `SELECT ` + submissionCols + ` FROM submissions WHERE id = $1`
	return scanSubmission(r.q.QueryRow(ctx, sqlq, id))
}

func (r *queries) ByIdem(ctx context.Context, jobID, workerID, idemKey string) (domain.Submission, error) {
	const sqlq = `
        SELECT ` + submissionCols + `
          FROM submissions
         WHERE job_id = $1
           AND worker_id = $2
           AND idempotency_key = $3
    `
	return scanSubmission(r.q.QueryRow(ctx, sqlq, jobID, workerID, idemKey))
}

func (r *queries) SetStatus(ctx context.Context, id, status string) error {
	const sqlq = `
        UPDATE submissions
           SET status = $2,
               accepted_at = CASE WHEN $2 = 'accepted' THEN now() ELSE accepted_at END
         WHERE id = $1
    `
	_, err := r.q.Exec(ctx, sqlq, id, status)
	return err
}

func (r *queries) DedupeSeen(ctx context.Context, bountyID, key string) (bool, error) {
	const sqlq = `
        SELECT EXISTS (
            SELECT 1 FROM accepted_dedupe WHERE bounty_id = $1 AND dedupe_key = $2
        )
    `
	var seen bool
	err := r.q.QueryRow(ctx, sqlq, bountyID, key).Scan(&seen)
	return seen, err
}

func (r *queries) DedupeSeed(ctx context.Context, bountyID, key, submissionID string) error {
	const sqlq = `
        INSERT INTO accepted_dedupe (bounty_id, dedupe_key, submission_id)
        VALUES ($1, $2, $3)
        ON CONFLICT (bounty_id, dedupe_key) DO NOTHING
    `
	_, err := r.q.Exec(ctx, sqlq, bountyID, key, submissionID)
	return err
}
