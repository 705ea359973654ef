package service

import (
	"context"
	"time"

	"proofwork/internal/modkit/repokit"
	perr "proofwork/internal/platform/errors"
)

// Allow consumes one token for key, refilling at perMin tokens per minute
// up to burst. perMin <= 0 disables the limit for this key
// State lives in rate_limit_buckets so all replicas see one bucket
func (s *Svc) Allow(ctx context.Context, key string, perMin, burst int) error {
	if perMin <= 0 {
		return nil
	}
	if burst < 1 {
		burst = 1
	}

	return s.db.Tx(ctx, func(q repokit.Queryer) error {
		r := s.binder.Bind(q)
		tokens, updatedAt, found, err := r.BucketForUpdate(ctx, key)
		if err != nil {
			return perr.DBf("rate bucket %s: %v", key, err)
		}
		if !found {
			return r.UpsertBucket(ctx, key, float64(burst)-1)
		}

		refill := tokens + time.Since(updatedAt).Minutes()*float64(perMin)
		if refill > float64(burst) {
			refill = float64(burst)
		}
		if refill < 1 {
			if err := r.UpsertBucket(ctx, key, refill); err != nil {
				return perr.DBf("rate bucket %s: %v", key, err)
			}
			return perr.RateLimitedf("rate limit exceeded for %s", key)
		}
		return r.UpsertBucket(ctx, key, refill-1)
	})
}
