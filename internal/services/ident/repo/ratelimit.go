package repo

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
)

// BucketForUpdate row-locks the token bucket for key
// found=false means the key has never been seen
func (r *queries) BucketForUpdate(ctx context.Context, key string) (tokens float64, updatedAt time.Time, found bool, err error) {
	const sqlq = `SELECT tokens, updated_at FROM rate_limit_buckets WHERE key = $1 FOR UPDATE`
	err = r.q.QueryRow(ctx, sqlq, key).Scan(&tokens, &updatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, time.Time{}, false, nil
	}
	if err != nil {
		return 0, time.Time{}, false, err
	}
	return tokens, updatedAt, true, nil
}

// UpsertBucket writes the bucket state for key
func (r *queries) UpsertBucket(ctx context.Context, key string, tokens float64) error {
	const sqlq = `
        INSERT INTO rate_limit_buckets (key, tokens, updated_at)
        VALUES ($1, $2, now())
        ON CONFLICT (key) DO UPDATE SET tokens = $2, updated_at = now()
    `
	_, err := r.q.Exec(ctx, sqlq, key, tokens)
	return err
}
