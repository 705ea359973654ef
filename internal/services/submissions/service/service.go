// Package service implements idempotent submission intake
package service

import (
	"bytes"
	"context"
	"encoding/json"

	"proofwork/internal/modkit"
	"proofwork/internal/modkit/repokit"
	perr "proofwork/internal/platform/errors"
	"proofwork/internal/platform/ids"

	adom "proofwork/internal/services/artifacts/domain"
	bdom "proofwork/internal/services/bounties/domain"
	oxdom "proofwork/internal/services/outbox/domain"
	sdom "proofwork/internal/services/scheduler/domain"
	dom "proofwork/internal/services/submissions/domain"
	subrepo "proofwork/internal/services/submissions/repo"
	vdom "proofwork/internal/services/verification/domain"
)

// MaxIdemKeyLen bounds the Idempotency-Key header
const MaxIdemKeyLen = 128

// Service is the full submission surface
type Service interface {
	dom.Port
	dom.SettlePort
}

// Svc implements Service
type Svc struct {
	db       repokit.TxRunner
	binder   repokit.Binder[subrepo.Repo]
	repo     subrepo.Repo
	leases   sdom.LeasePort
	jobs     sdom.TransitionPort
	guard    adom.GuardPort
	bounties bdom.ReaderPort
	intake   vdom.IntakePort
	emitter  oxdom.EmitterPort
}

// New constructs the submission service
func New(
	deps modkit.Deps,
	leases sdom.LeasePort,
	jobs sdom.TransitionPort,
	guard adom.GuardPort,
	bounties bdom.ReaderPort,
	intake vdom.IntakePort,
	emitter oxdom.EmitterPort,
) *Svc {
	b := subrepo.NewPG()
	return &Svc{
		db:       deps.PG,
		binder:   b,
		repo:     b.Bind(deps.PG),
		leases:   leases,
		jobs:     jobs,
		guard:    guard,
		bounties: bounties,
		intake:   intake,
		emitter:  emitter,
	}
}

// Submit records a worker's proof pack for a leased job. Replays under
// the same idempotency key return the prior submission unchanged, even
// after the job has moved on
func (s *Svc) Submit(ctx context.Context, workerID, jobID string, in dom.SubmitInput) (dom.Submission, error) {
	if n := len(in.IdempotencyKey); n == 0 || n > MaxIdemKeyLen {
		return dom.Submission{}, perr.InvalidArgf("idempotency key must be 1..%d chars", MaxIdemKeyLen)
	}

	// replay check comes before the lease check: a retry that lost the
	// race with its own first attempt still gets the original answer
	if prior, err := s.repo.ByIdem(ctx, jobID, workerID, in.IdempotencyKey); err == nil {
		if !sameManifest(prior.Manifest, in.Manifest) {
			return dom.Submission{}, perr.Conflictf("idempotency key %q reused with a different manifest", in.IdempotencyKey)
		}
		return prior, nil
	}

	job, err := s.leases.HoldsLease(ctx, workerID, jobID, in.LeaseNonce)
	if err != nil {
		return dom.Submission{}, err
	}

	if err := s.checkManifest(workerID, job, in.Manifest); err != nil {
		return dom.Submission{}, err
	}
	bounty, err := s.bounties.ByID(ctx, job.BountyID)
	if err != nil {
		return dom.Submission{}, err
	}
	if err := in.Manifest.CheckRequired(bounty.Descriptor.OutputSpec.RequiredArtifacts); err != nil {
		return dom.Submission{}, err
	}

	// the job's time budget caps the intake work too
	parent := ctx
	ctx, cancel := context.WithTimeout(ctx, bounty.Descriptor.TimeBudget())
	defer cancel()

	sub := dom.Submission{
		ID:             ids.New(ids.PrefixSubmission),
		JobID:          job.ID,
		WorkerID:       workerID,
		BountyID:       job.BountyID,
		Manifest:       in.Manifest,
		ArtifactIDs:    in.ArtifactIDs,
		Status:         dom.StatusReceived,
		DedupeKey:      in.Manifest.DedupeKey(job.BountyID),
		IdempotencyKey: in.IdempotencyKey,
	}

	err = s.db.Tx(ctx, func(q repokit.Queryer) error {
		r := s.binder.Bind(q)

		if len(in.ArtifactIDs) > 0 {
			if err := s.guard.ScannedOwnedOn(ctx, q, workerID, in.ArtifactIDs); err != nil {
				return err
			}
		}
		if err := r.Insert(ctx, sub); err != nil {
			return perr.FromPostgres(err, "insert submission")
		}
		if len(in.ArtifactIDs) > 0 {
			if err := s.guard.AttachOn(ctx, q, sub.ID, in.ArtifactIDs); err != nil {
				return err
			}
		}
		if err := s.jobs.MarkSubmittedOn(ctx, q, job.ID, sub.ID); err != nil {
			return err
		}
		if err := s.emitter.Emit(ctx, q, oxdom.TopicSubmissionReceived, submissionEvent(sub), sub.ID+":received"); err != nil {
			return err
		}

		seen, err := r.DedupeSeen(ctx, job.BountyID, sub.DedupeKey)
		if err != nil {
			return perr.DBf("check dedupe: %v", err)
		}
		if seen {
			if err := r.SetStatus(ctx, sub.ID, dom.StatusDuplicate); err != nil {
				return perr.DBf("mark duplicate: %v", err)
			}
			if err := s.jobs.MarkDoneOn(ctx, q, job.ID, sdom.VerdictDuplicate, 0, "duplicate finding"); err != nil {
				return err
			}
			sub.Status = dom.StatusDuplicate
			return s.emitter.Emit(ctx, q, oxdom.TopicSubmissionDuplicate, submissionEvent(sub), sub.ID+":duplicate")
		}

		if err := s.intake.OpenAttemptOn(ctx, q, sub.ID, 1); err != nil {
			return err
		}
		if err := r.SetStatus(ctx, sub.ID, dom.StatusVerifying); err != nil {
			return perr.DBf("mark verifying: %v", err)
		}
		sub.Status = dom.StatusVerifying
		return s.jobs.MarkVerifyingOn(ctx, q, job.ID)
	})
	if err != nil {
		if ctx.Err() != nil && parent.Err() == nil {
			return dom.Submission{}, perr.Newf(perr.ErrorCodeTimeBudgetExceeded,
				"job %s time budget elapsed during intake", job.ID)
		}
		// a retry racing its own first attempt can pass the replay check
		// before the first insert commits, then trip the idempotency
		// index; the first writer's row is the answer
		if perr.IsCode(err, perr.ErrorCodeDuplicateKey) {
			if prior, rerr := s.repo.ByIdem(parent, jobID, workerID, in.IdempotencyKey); rerr == nil {
				if !sameManifest(prior.Manifest, in.Manifest) {
					return dom.Submission{}, perr.Conflictf("idempotency key %q reused with a different manifest", in.IdempotencyKey)
				}
				return prior, nil
			}
		}
		return dom.Submission{}, err
	}
	return sub, nil
}

// checkManifest cross-checks the manifest against the leased job
func (s *Svc) checkManifest(workerID string, job sdom.Job, m dom.Manifest) error {
	if err := m.Validate(); err != nil {
		return err
	}
	if m.JobID != job.ID {
		return perr.SchemaErrf("manifest jobId %q does not match job %s", m.JobID, job.ID)
	}
	if m.BountyID != job.BountyID {
		return perr.SchemaErrf("manifest bountyId %q does not match bounty %s", m.BountyID, job.BountyID)
	}
	if m.Worker.WorkerID != workerID {
		return perr.SchemaErrf("manifest workerId %q does not match the caller", m.Worker.WorkerID)
	}
	if m.Worker.Fingerprint.FingerprintClass != job.FingerprintClass {
		return perr.SchemaErrf("manifest fingerprintClass %q does not match job class %q",
			m.Worker.Fingerprint.FingerprintClass, job.FingerprintClass)
	}
	return nil
}

func sameManifest(a, b dom.Manifest) bool {
	ra, err := json.Marshal(a)
	if err != nil {
		return false
	}
	rb, err := json.Marshal(b)
	if err != nil {
		return false
	}
	return bytes.Equal(ra, rb)
}

func submissionEvent(s dom.Submission) map[string]string {
	return map[string]string{
		"submission_id": s.ID,
		"job_id":        s.JobID,
		"bounty_id":     s.BountyID,
		"worker_id":     s.WorkerID,
	}
}

// ByID fetches one submission
func (s *Svc) ByID(ctx context.Context, submissionID string) (dom.Submission, error) {
	sub, err := s.repo.ByID(ctx, submissionID)
	if err != nil {
		return dom.Submission{}, perr.NotFoundf("submission %s", submissionID)
	}
	return sub, nil
}

// ByIDOn fetches one submission on the caller's Queryer
func (s *Svc) ByIDOn(ctx context.Context, q repokit.Queryer, submissionID string) (dom.Submission, error) {
	sub, err := s.binder.Bind(q).ByID(ctx, submissionID)
	if err != nil {
		return dom.Submission{}, perr.NotFoundf("submission %s", submissionID)
	}
	return sub, nil
}

// SetStatusOn flips a submission's status on the caller's Queryer
func (s *Svc) SetStatusOn(ctx context.Context, q repokit.Queryer, submissionID, status string) error {
	if err := s.binder.Bind(q).SetStatus(ctx, submissionID, status); err != nil {
		return perr.DBf("set submission %s status: %v", submissionID, err)
	}
	return nil
}

// SeenDedupeOn reports whether the bounty already accepted this key
func (s *Svc) SeenDedupeOn(ctx context.Context, q repokit.Queryer, bountyID, dedupeKey string) (bool, error) {
	seen, err := s.binder.Bind(q).DedupeSeen(ctx, bountyID, dedupeKey)
	if err != nil {
		return false, perr.DBf("check dedupe: %v", err)
	}
	return seen, nil
}

// SeedDedupeOn records the first accepted key for a bounty
func (s *Svc) SeedDedupeOn(ctx context.Context, q repokit.Queryer, bountyID, dedupeKey, submissionID string) error {
	if err := s.binder.Bind(q).DedupeSeed(ctx, bountyID, dedupeKey, submissionID); err != nil {
		return perr.DBf("seed dedupe: %v", err)
	}
	return nil
}
