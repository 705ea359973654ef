// Package repo provides Postgres bindings for the outbox
package repo

import (
	"context"
	"encoding/json"
	"time"

	"proofwork/internal/modkit/repokit"
	"proofwork/internal/platform/ids"
	"proofwork/internal/services/outbox/domain"
)

// Repo is the outbox persistence surface
type Repo interface {
	Insert(ctx context.Context, topic string, payload json.RawMessage, idemKey string) (string, error)
	LeaseBatch(ctx context.Context, replicaID string, limit int, lockFor time.Duration) ([]domain.Event, error)
	MarkSent(ctx context.Context, id string) error
	MarkFailed(ctx context.Context, id string, lastErr string, availableAt time.Time, dead bool) error
	SentBefore(ctx context.Context, cutoff time.Time, limit int) ([]domain.Event, error)
	Delete(ctx context.Context, eventIDs []string) error
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

// Insert persists a pending event; a duplicate (topic, idempotency_key) is a no-op
// returning the id of the existing row
func (r *queries) Insert(ctx context.Context, topic string, payload json.RawMessage, idemKey string) (string, error) {
	id := ids.New(ids.PrefixEvent)
	const sqlq = `
        INSERT INTO outbox_events (id, topic, payload, status, attempts, available_at, idempotency_key, created_at)
        VALUES ($1, $2, $3, 'pending', 0, now(), NULLIF($4, ''), now())
        ON CONFLICT (topic, idempotency_key) DO NOTHING
        RETURNING id
    `
	var got string
	if err := r.q.QueryRow(ctx, sqlq, id, topic, payload, idemKey).Scan(&got); err == nil {
		return got, nil
	}
	// conflict path: the row already exists for this (topic, key)
	const sel = `SELECT id FROM outbox_events WHERE topic = $1 AND idempotency_key = $2`
	if err := r.q.QueryRow(ctx, sel, topic, idemKey).Scan(&got); err != nil {
		return "", err
	}
	return got, nil
}

// LeaseBatch marks up to limit deliverable events as locked by this replica
// The lock is a visibility timeout, not a row lock: a crashed replica's
// events become leasable again once lockFor elapses
func (r *queries) LeaseBatch(ctx context.Context, replicaID string, limit int, lockFor time.Duration) ([]domain.Event, error) {
	const sqlq = `
        WITH ready AS (
            SELECT id
              FROM outbox_events
             WHERE status = 'pending'
               AND available_at <= now()
               AND (locked_at IS NULL OR locked_at < now() - $3::interval)
             ORDER BY available_at ASC
             LIMIT $1
             FOR UPDATE SKIP LOCKED
        ), upd AS (
            UPDATE outbox_events e
               SET locked_at = now(),
                   locked_by = $2
             WHERE e.id IN (SELECT id FROM ready)
            RETURNING e.*
        )
        SELECT id, topic, payload, status, attempts, available_at,
               locked_at, COALESCE(locked_by, ''), COALESCE(idempotency_key, ''),
               COALESCE(last_error, ''), sent_at, created_at
          FROM upd
    `
	rows, err := r.q.Query(ctx, sqlq, limit, replicaID, lockFor.String())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Event
	for rows.Next() {
		var e domain.Event
		if err := rows.Scan(
			&e.ID, &e.Topic, &e.Payload, &e.Status, &e.Attempts, &e.AvailableAt,
			&e.LockedAt, &e.LockedBy, &e.IdempotencyKey,
			&e.LastError, &e.SentAt, &e.CreatedAt,
		); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// MarkSent finalizes a delivered event
func (r *queries) MarkSent(ctx context.Context, id string) error {
	const sqlq = `
        UPDATE outbox_events
           SET status = 'sent', sent_at = now(), locked_at = NULL, locked_by = NULL
         WHERE id = $1 AND status = 'pending'
    `
	_, err := r.q.Exec(ctx, sqlq, id)
	return err
}

// MarkFailed reschedules a failed delivery or parks it dead
func (r *queries) MarkFailed(ctx context.Context, id string, lastErr string, availableAt time.Time, dead bool) error {
	status := "pending"
	if dead {
		status = "dead"
	}
	const sqlq = `
        UPDATE outbox_events
           SET attempts = attempts + 1,
               last_error = $2,
               available_at = $3,
               status = $4,
               locked_at = NULL,
               locked_by = NULL
         WHERE id = $1
    `
	_, err := r.q.Exec(ctx, sqlq, id, lastErr, availableAt, status)
	return err
}

// SentBefore lists sent events older than cutoff for archival
func (r *queries) SentBefore(ctx context.Context, cutoff time.Time, limit int) ([]domain.Event, error) {
	const sqlq = `
        SELECT id, topic, payload, status, attempts, available_at,
               locked_at, COALESCE(locked_by, ''), COALESCE(idempotency_key, ''),
               COALESCE(last_error, ''), sent_at, created_at
          FROM outbox_events
         WHERE status = 'sent' AND sent_at < $1
         ORDER BY sent_at ASC
         LIMIT $2
    `
	rows, err := r.q.Query(ctx, sqlq, cutoff, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Event
	for rows.Next() {
		var e domain.Event
		if err := rows.Scan(
			&e.ID, &e.Topic, &e.Payload, &e.Status, &e.Attempts, &e.AvailableAt,
			&e.LockedAt, &e.LockedBy, &e.IdempotencyKey,
			&e.LastError, &e.SentAt, &e.CreatedAt,
		); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// Delete removes events by id
func (r *queries) Delete(ctx context.Context, eventIDs []string) error {
	if len(eventIDs) == 0 {
		return nil
	}
	_, err := r.q.Exec(ctx, `DELETE FROM outbox_events WHERE id = ANY($1)`, eventIDs)
	return err
}
