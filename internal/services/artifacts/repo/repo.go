// Package repo provides Postgres bindings for the artifact store
package repo

import (
	"context"
	"time"

	"proofwork/internal/modkit/repokit"
	"proofwork/internal/services/artifacts/domain"
)

// Repo is the artifact persistence surface
type Repo interface {
	Insert(ctx context.Context, a domain.Artifact) error
	ByID(ctx context.Context, id string) (domain.Artifact, error)
	ByIDForWorker(ctx context.Context, workerID, id string) (domain.Artifact, error)
	ByIDs(ctx context.Context, ids []string) ([]domain.Artifact, error)

	// JobBytes sums the declared sizes already staged for a job
	JobBytes(ctx context.Context, jobID string) (int64, error)

	// SetUploaded records the observed hash and size after the bytes land
	SetUploaded(ctx context.Context, workerID, id, sha256 string, sizeBytes int64) (bool, error)

	// NextForScan locks a batch of uploaded artifacts awaiting a verdict
	NextForScan(ctx context.Context, limit int) ([]domain.Artifact, error)

	MarkScanning(ctx context.Context, id string) error
	MarkScanned(ctx context.Context, id, storageKey string) error
	MarkBlocked(ctx context.Context, id, storageKey, reason string) error

	Attach(ctx context.Context, submissionID string, ids []string) error
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

const artifactCols = `
    id, COALESCE(submission_id, ''), COALESCE(job_id, ''), COALESCE(worker_id, ''),
    kind, COALESCE(label, ''), COALESCE(sha256, ''), storage_key,
    status, bucket_kind, content_type, size_bytes,
    COALESCE(scan_reason, ''), expires_at, created_at
`

func scanArtifact(row repokit.Row) (domain.Artifact, error) {
	var a domain.Artifact
	err := row.Scan(
		&a.ID, &a.SubmissionID, &a.JobID, &a.WorkerID,
		&a.Kind, &a.Label, &a.SHA256, &a.StorageKey,
		&a.Status, &a.BucketKind, &a.ContentType, &a.SizeBytes,
		&a.ScanReason, &a.ExpiresAt, &a.CreatedAt,
	)
	return a, err
}

func (r *queries) Insert(ctx context.Context, a domain.Artifact) error {
	const sqlq = `
        INSERT INTO artifacts (
            id, job_id, worker_id, kind, label, storage_key,
            status, bucket_kind, content_type, size_bytes, expires_at
        ) VALUES ($1, $2, $3, $4, NULLIF($5, ''), $6, $7, $8, $9, $10, $11)
    `
	_, err := r.q.Exec(ctx, sqlq,
		a.ID, a.JobID, a.WorkerID, a.Kind, a.Label, a.StorageKey,
		a.Status, a.BucketKind, a.ContentType, a.SizeBytes, a.ExpiresAt,
	)
	return err
}

func (r *queries) ByID(ctx context.Context, id string) (domain.Artifact, error) {
	const sqlq = `SELECT ` + artifactCols + ` FROM artifacts WHERE id = $1`
	return scanArtifact(r.q.QueryRow(ctx, sqlq, id))
}

func (r *queries) ByIDForWorker(ctx context.Context, workerID, id string) (domain.Artifact, error) {
	const sqlq = `SELECT ` + artifactCols + ` FROM artifacts WHERE id = $1 AND worker_id = $2`
	return scanArtifact(r.q.QueryRow(ctx, sqlq, id, workerID))
}

func (r *queries) ByIDs(ctx context.Context, ids []string) ([]domain.Artifact, error) {
	const sqlq = `SELECT ` + artifactCols + ` FROM artifacts WHERE id = ANY($1::text[]) ORDER BY created_at, id`
	rows, err := r.q.Query(ctx, sqlq, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Artifact
	for rows.Next() {
		a, err := scanArtifact(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (r *queries) JobBytes(ctx context.Context, jobID string) (int64, error) {
	const sqlq = `
        SELECT COALESCE(SUM(size_bytes), 0)
          FROM artifacts
         WHERE job_id = $1
           AND status <> 'deleted'
    `
	var n int64
	err := r.q.QueryRow(ctx, sqlq, jobID).Scan(&n)
	return n, err
}

func (r *queries) SetUploaded(ctx context.Context, workerID, id, sha256 string, sizeBytes int64) (bool, error) {
	const sqlq = `
        UPDATE artifacts
           SET sha256 = $3,
               size_bytes = $4
         WHERE id = $1
           AND worker_id = $2
           AND status = 'staging'
    `
	tag, err := r.q.Exec(ctx, sqlq, id, workerID, sha256, sizeBytes)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (r *queries) NextForScan(ctx context.Context, limit int) ([]domain.Artifact, error) {
	const sqlq = `
        SELECT ` + artifactCols + `
          FROM artifacts
         WHERE status IN ('staging', 'scanning')
           AND COALESCE(sha256, '') <> ''
         ORDER BY created_at
         LIMIT $1
           FOR UPDATE SKIP LOCKED
    `
	rows, err := r.q.Query(ctx, sqlq, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Artifact
	for rows.Next() {
		a, err := scanArtifact(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (r *queries) MarkScanning(ctx context.Context, id string) error {
	const sqlq = `UPDATE artifacts SET status = 'scanning' WHERE id = $1`
	_, err := r.q.Exec(ctx, sqlq, id)
	return err
}

func (r *queries) MarkScanned(ctx context.Context, id, storageKey string) error {
	const sqlq = `
        UPDATE artifacts
           SET status = 'scanned',
               bucket_kind = 'clean',
               storage_key = $2,
               scan_reason = NULL
         WHERE id = $1
    `
	_, err := r.q.Exec(ctx, sqlq, id, storageKey)
	return err
}

func (r *queries) MarkBlocked(ctx context.Context, id, storageKey, reason string) error {
	const sqlq = `
        UPDATE artifacts
           SET status = 'blocked',
               bucket_kind = 'quarantine',
               storage_key = $2,
               scan_reason = $3
         WHERE id = $1
    `
	_, err := r.q.Exec(ctx, sqlq, id, storageKey, reason)
	return err
}

func (r *queries) Attach(ctx context.Context, submissionID string, ids []string) error {
	const sqlq = `UPDATE artifacts SET submission_id = $1 WHERE id = ANY($2::text[])`
	_, err := r.q.Exec(ctx, sqlq, submissionID, ids)
	return err
}

// expiry for staged artifacts that never complete
const stagingTTL = 24 * time.Hour

// StagingExpiry returns the default expiry stamp for fresh staging rows
func StagingExpiry(now time.Time) time.Time { return now.Add(stagingTTL).UTC() }
