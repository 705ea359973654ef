// Package service implements job selection, claiming, and leasing
package service

import (
	"context"
	"time"

	"proofwork/internal/modkit"
	"proofwork/internal/modkit/repokit"
	perr "proofwork/internal/platform/errors"

	idom "proofwork/internal/services/ident/domain"
	oxdom "proofwork/internal/services/outbox/domain"
	pdom "proofwork/internal/services/policy/domain"
	dom "proofwork/internal/services/scheduler/domain"
	srepo "proofwork/internal/services/scheduler/repo"
)

// Config controls leasing and the sweeper
type Config struct {
	LeaseTTL       time.Duration
	ClaimRetries   int
	CandidateLimit int
	SweepEvery     time.Duration
	SweepBatch     int
}

// Service is the full scheduling surface
type Service interface {
	dom.Port
	dom.SweeperPort
	dom.LeasePort
}

// Svc implements Service
type Svc struct {
	db      repokit.TxRunner
	binder  repokit.Binder[srepo.Repo]
	repo    srepo.Repo
	workers idom.DirectoryPort
	limiter idom.RateLimiterPort
	policy  pdom.Port
	refuse  pdom.RefusePort
	emitter oxdom.EmitterPort
	cfg     Config
}

// New constructs the scheduler service
func New(
	deps modkit.Deps,
	cfg Config,
	workers idom.DirectoryPort,
	limiter idom.RateLimiterPort,
	policy pdom.Port,
	refuse pdom.RefusePort,
	emitter oxdom.EmitterPort,
) *Svc {
	b := srepo.NewPG()
	if cfg.LeaseTTL <= 0 {
		cfg.LeaseTTL = 600 * time.Second
	}
	if cfg.ClaimRetries <= 0 {
		cfg.ClaimRetries = 3
	}
	if cfg.CandidateLimit <= 0 {
		cfg.CandidateLimit = 25
	}
	if cfg.SweepEvery <= 0 {
		cfg.SweepEvery = 30 * time.Second
	}
	if cfg.SweepBatch <= 0 {
		cfg.SweepBatch = 100
	}
	return &Svc{
		db:      deps.PG,
		binder:  b,
		repo:    b.Bind(deps.PG),
		workers: workers,
		limiter: limiter,
		policy:  policy,
		refuse:  refuse,
		emitter: emitter,
		cfg:     cfg,
	}
}

// eligibleWorker loads the worker and applies standing checks
func (s *Svc) eligibleWorker(ctx context.Context, workerID string) (idom.Worker, error) {
	w, err := s.workers.WorkerByID(ctx, workerID)
	if err != nil {
		return idom.Worker{}, err
	}
	if w.Banned() {
		return idom.Worker{}, perr.Forbiddenf("worker is banned")
	}
	if w.RatePerMin > 0 && s.limiter != nil {
		if err := s.limiter.Allow(ctx, "sched:"+w.ID, w.RatePerMin, w.RatePerMin); err != nil {
			return idom.Worker{}, err
		}
	}
	return w, nil
}

// selection translates worker standing plus caller filters into the
// pool predicates. All slice params must be non-nil for the array
// operators to behave
func (s *Svc) selection(w idom.Worker, f dom.Filters, limit int) srepo.Selection {
	tags := w.Capabilities
	if len(f.CapabilityTags) > 0 {
		tags = intersect(w.Capabilities, f.CapabilityTags)
	}
	if tags == nil {
		tags = []string{}
	}

	exclude := make([]string, 0, len(f.ExcludeJobIDs))
	exclude = append(exclude, f.ExcludeJobIDs...)
	exclude = append(exclude, s.refuse.Excluded(w.ID)...)

	denied := w.DeniedTaskTypes
	if denied == nil {
		denied = []string{}
	}

	return srepo.Selection{
		FingerprintClass: w.FingerprintClass,
		WorkerTags:       tags,
		TaskType:         f.TaskType,
		DeniedTaskTypes:  denied,
		MinPayoutCents:   f.MinPayoutCents,
		ExcludeJobIDs:    exclude,
		Limit:            limit,
	}
}

func intersect(a, b []string) []string {
	have := make(map[string]struct{}, len(a))
	for _, s := range a {
		have[s] = struct{}{}
	}
	out := make([]string, 0, len(b))
	for _, s := range b {
		if _, ok := have[s]; ok {
			out = append(out, s)
		}
	}
	return out
}

// NextJob returns the best claimable offer for the worker, or idle
func (s *Svc) NextJob(ctx context.Context, workerID string, f dom.Filters) (dom.NextResult, error) {
	w, err := s.eligibleWorker(ctx, workerID)
	if err != nil {
		return dom.NextResult{}, err
	}

	cands, err := s.repo.Candidates(ctx, s.selection(w, f, s.cfg.CandidateLimit))
	if err != nil {
		return dom.NextResult{}, perr.DBf("list candidates: %v", err)
	}

	var first *dom.Offer
	for i := range cands {
		o := &cands[i]
		if err := s.gateOffer(ctx, w.ID, o); err != nil {
			continue
		}
		if f.PreferredTag != "" && hasTag(o.Descriptor.CapabilityTags, f.PreferredTag) {
			return dom.NextResult{State: dom.StateOK, Offer: o}, nil
		}
		if first == nil {
			first = o
		}
	}
	if first != nil {
		return dom.NextResult{State: dom.StateOK, Offer: first}, nil
	}
	return dom.NextResult{State: dom.StateIdle}, nil
}

func hasTag(tags []string, want string) bool {
	for _, t := range tags {
		if t == want {
			return true
		}
	}
	return false
}

// gateOffer applies the per-offer checks selection SQL cannot express.
// Policy refusals are cached so the offer is not re-surfaced to the
// same worker right away
func (s *Svc) gateOffer(ctx context.Context, workerID string, o *dom.Offer) error {
	if !s.policy.CanaryAllows(o.Job.ID, o.CanaryPercent) {
		return perr.Newf(perr.ErrorCodeJobNotClaimable, "job %s is outside its canary window", o.Job.ID)
	}
	if err := s.policy.Preflight(ctx, o.AllowedOrigins, o.Descriptor); err != nil {
		reason := "policy"
		if e, ok := perr.As(err); ok {
			reason = string(e.Code())
		}
		s.refuse.Refuse(workerID, o.Job.ID, reason)
		return err
	}
	return nil
}

// ClaimJob leases a specific job to the worker. Contention with other
// claimants is retried; ineligibility is reported as not claimable
func (s *Svc) ClaimJob(ctx context.Context, workerID, jobID string) (dom.ClaimResult, error) {
	w, err := s.eligibleWorker(ctx, workerID)
	if err != nil {
		return dom.ClaimResult{}, err
	}
	sel := s.selection(w, dom.Filters{}, 1)

	for attempt := 0; attempt < s.cfg.ClaimRetries; attempt++ {
		res, claimed, err := s.tryClaim(ctx, w.ID, jobID, sel)
		if err != nil {
			return dom.ClaimResult{}, err
		}
		if claimed {
			return res, nil
		}

		// nothing locked: either another claimant holds the row lock
		// or the job no longer qualifies
		eligible, err := s.repo.Claimable(ctx, jobID, sel)
		if err != nil {
			return dom.ClaimResult{}, perr.DBf("check job %s: %v", jobID, err)
		}
		if !eligible {
			if _, jerr := s.repo.JobByID(ctx, jobID); jerr != nil {
				return dom.ClaimResult{}, perr.NotFoundf("job %s", jobID)
			}
			return dom.ClaimResult{}, perr.Newf(perr.ErrorCodeJobNotClaimable, "job %s is not claimable", jobID)
		}
	}
	return dom.ClaimResult{}, perr.Newf(perr.ErrorCodeClaimConflict, "job %s is being claimed by another worker", jobID)
}

func (s *Svc) tryClaim(ctx context.Context, workerID, jobID string, sel srepo.Selection) (dom.ClaimResult, bool, error) {
	var res dom.ClaimResult
	claimed := false

	err := s.db.Tx(ctx, func(q repokit.Queryer) error {
		r := s.binder.Bind(q)

		o, found, err := r.LockCandidate(ctx, jobID, sel)
		if err != nil {
			return perr.DBf("lock job %s: %v", jobID, err)
		}
		if !found {
			return nil
		}
		if err := s.gateOffer(ctx, workerID, &o); err != nil {
			return err
		}

		lease := dom.Lease{
			JobID:     o.Job.ID,
			Nonce:     newNonce(),
			ExpiresAt: time.Now().Add(s.cfg.LeaseTTL).UTC(),
		}
		if err := r.SetLease(ctx, o.Job.ID, workerID, lease.Nonce, lease.ExpiresAt); err != nil {
			return perr.DBf("lease job %s: %v", o.Job.ID, err)
		}
		o.Job.Status = dom.JobLeased
		o.Job.LeaseWorkerID = workerID
		o.Job.LeaseNonce = lease.Nonce
		o.Job.LeaseExpiresAt = &lease.ExpiresAt

		res = dom.ClaimResult{Offer: o, Lease: lease}
		claimed = true
		return nil
	})
	if err != nil {
		return dom.ClaimResult{}, false, err
	}
	return res, claimed, nil
}

// RenewLease extends an unexpired lease by a full TTL
func (s *Svc) RenewLease(ctx context.Context, workerID, jobID, nonce string) (time.Time, error) {
	exp := time.Now().Add(s.cfg.LeaseTTL).UTC()
	ok, err := s.repo.Renew(ctx, jobID, workerID, nonce, exp)
	if err != nil {
		return time.Time{}, perr.DBf("renew lease on %s: %v", jobID, err)
	}
	if !ok {
		return time.Time{}, perr.Newf(perr.ErrorCodeLeaseStale, "lease on job %s is no longer held", jobID)
	}
	return exp, nil
}

// ReleaseLease hands the job back to the pool and remembers the
// refusal so NextJob does not immediately re-offer it
func (s *Svc) ReleaseLease(ctx context.Context, workerID, jobID, nonce, reason string) error {
	ok, err := s.repo.Release(ctx, jobID, workerID, nonce)
	if err != nil {
		return perr.DBf("release lease on %s: %v", jobID, err)
	}
	if !ok {
		return perr.Newf(perr.ErrorCodeLeaseStale, "lease on job %s is no longer held", jobID)
	}
	s.refuse.Refuse(workerID, jobID, reason)
	return nil
}

// HoldsLease verifies the worker holds the job's current unexpired
// lease under the supplied nonce
func (s *Svc) HoldsLease(ctx context.Context, workerID, jobID, nonce string) (dom.Job, error) {
	j, err := s.repo.JobByID(ctx, jobID)
	if err != nil {
		return dom.Job{}, perr.NotFoundf("job %s", jobID)
	}
	if j.Status != dom.JobLeased || j.LeaseWorkerID != workerID || j.LeaseNonce != nonce {
		return dom.Job{}, perr.Newf(perr.ErrorCodeLeaseStale, "lease on job %s is not held by this worker", jobID)
	}
	if j.LeaseExpiresAt == nil || !j.LeaseExpiresAt.After(time.Now()) {
		return dom.Job{}, perr.Newf(perr.ErrorCodeLeaseStale, "lease on job %s has expired", jobID)
	}
	return j, nil
}
