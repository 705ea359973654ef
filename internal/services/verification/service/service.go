// Package service implements verifier claims and verdict aggregation
package service

import (
	"context"
	"encoding/json"
	"time"

	"proofwork/internal/modkit"
	"proofwork/internal/modkit/repokit"
	perr "proofwork/internal/platform/errors"
	"proofwork/internal/platform/ids"

	bdom "proofwork/internal/services/bounties/domain"
	oxdom "proofwork/internal/services/outbox/domain"
	paydom "proofwork/internal/services/payouts/domain"
	sdom "proofwork/internal/services/scheduler/domain"
	subdom "proofwork/internal/services/submissions/domain"
	dom "proofwork/internal/services/verification/domain"
	vrepo "proofwork/internal/services/verification/repo"
)

// Config controls claims and the claim sweeper
type Config struct {
	ClaimTTL   time.Duration
	SweepEvery time.Duration
	SweepBatch int
}

// Service is the full verification surface
type Service interface {
	dom.Port
	dom.IntakePort
	dom.SweeperPort
	dom.AdminPort
}

// Svc implements Service
type Svc struct {
	db       repokit.TxRunner
	binder   repokit.Binder[vrepo.Repo]
	repo     vrepo.Repo
	settle   subdom.SettlePort
	jobs     sdom.TransitionPort
	bounties bdom.ReaderPort
	payouts  paydom.CreatorPort
	emitter  oxdom.EmitterPort
	cfg      Config
}

// New constructs the verification service
func New(
	deps modkit.Deps,
	cfg Config,
	settle subdom.SettlePort,
	jobs sdom.TransitionPort,
	bounties bdom.ReaderPort,
	payouts paydom.CreatorPort,
	emitter oxdom.EmitterPort,
) *Svc {
	b := vrepo.NewPG()
	if cfg.ClaimTTL <= 0 {
		cfg.ClaimTTL = 600 * time.Second
	}
	if cfg.SweepEvery <= 0 {
		cfg.SweepEvery = 30 * time.Second
	}
	if cfg.SweepBatch <= 0 {
		cfg.SweepBatch = 100
	}
	return &Svc{
		db:       deps.PG,
		binder:   b,
		repo:     b.Bind(deps.PG),
		settle:   settle,
		jobs:     jobs,
		bounties: bounties,
		payouts:  payouts,
		emitter:  emitter,
		cfg:      cfg,
	}
}

// OpenAttemptOn queues a fresh verification attempt on the caller's
// Queryer
func (s *Svc) OpenAttemptOn(ctx context.Context, q repokit.Queryer, submissionID string, attemptNo int) error {
	v := dom.Verification{
		ID:           ids.New(ids.PrefixVerification),
		SubmissionID: submissionID,
		AttemptNo:    attemptNo,
		Status:       dom.StatusQueued,
	}
	if err := s.binder.Bind(q).Insert(ctx, v); err != nil {
		return perr.DBf("queue verification for %s: %v", submissionID, err)
	}
	return nil
}

// Claim hands one queued attempt to the verifier under a timed token.
// Replays under the same idempotency key return the original claim
func (s *Svc) Claim(ctx context.Context, verifierID string, in dom.ClaimInput) (dom.ClaimOutput, error) {
	if prior, err := s.repo.ByClaimIdem(ctx, verifierID, in.IdemKey); err == nil {
		sub, err := s.settle.ByIDOn(ctx, s.db, prior.SubmissionID)
		if err != nil {
			return dom.ClaimOutput{}, err
		}
		return claimOutput(prior, sub), nil
	}

	ttl := s.cfg.ClaimTTL
	if in.TTLSec > 0 {
		ttl = time.Duration(in.TTLSec) * time.Second
	}

	var out dom.ClaimOutput
	err := s.db.Tx(ctx, func(q repokit.Queryer) error {
		r := s.binder.Bind(q)

		v, found, err := r.LockQueued(ctx, in.SubmissionID)
		if err != nil {
			return perr.DBf("pick verification: %v", err)
		}
		if !found {
			return perr.NotFoundf("no queued verification")
		}
		if in.AttemptNo > 0 && v.AttemptNo != in.AttemptNo {
			return perr.Conflictf("attempt %d for %s is no longer queued", in.AttemptNo, v.SubmissionID)
		}

		token := newNonce()
		exp := time.Now().Add(ttl).UTC()
		if err := r.SetClaim(ctx, v.ID, verifierID, token, in.IdemKey, exp); err != nil {
			return perr.DBf("claim verification %s: %v", v.ID, err)
		}
		v.Status = dom.StatusClaimed
		v.ClaimedBy = verifierID
		v.ClaimToken = token
		v.ClaimExpiresAt = &exp

		sub, err := s.settle.ByIDOn(ctx, q, v.SubmissionID)
		if err != nil {
			return err
		}
		out = claimOutput(v, sub)
		return nil
	})
	if err != nil {
		return dom.ClaimOutput{}, err
	}
	return out, nil
}

func claimOutput(v dom.Verification, sub subdom.Submission) dom.ClaimOutput {
	out := dom.ClaimOutput{
		VerificationID: v.ID,
		AttemptNo:      v.AttemptNo,
		ClaimToken:     v.ClaimToken,
		Submission:     sub,
	}
	if v.ClaimExpiresAt != nil {
		out.ClaimExpiresAt = *v.ClaimExpiresAt
	}
	return out
}

// Verdict records the verifier's outcome and settles the submission
// when the verdict is decisive
func (s *Svc) Verdict(ctx context.Context, verifierID string, in dom.VerdictInput) (dom.VerdictOutput, error) {
	var out dom.VerdictOutput
	err := s.db.Tx(ctx, func(q repokit.Queryer) error {
		r := s.binder.Bind(q)

		v, err := r.ByIDForUpdate(ctx, in.VerificationID)
		if err != nil {
			return perr.NotFoundf("verification %s", in.VerificationID)
		}
		if v.Status == dom.StatusCompleted {
			return perr.Conflictf("verification %s already completed", v.ID)
		}
		if v.Status != dom.StatusClaimed || v.ClaimedBy != verifierID || v.ClaimToken != in.ClaimToken {
			return perr.Newf(perr.ErrorCodeLeaseStale, "verification %s is not claimed by this verifier", v.ID)
		}
		if v.ClaimExpiresAt == nil || !v.ClaimExpiresAt.After(time.Now()) {
			return perr.Newf(perr.ErrorCodeClaimExpired, "claim on verification %s has expired", v.ID)
		}

		if err := r.Complete(ctx, v.ID, in); err != nil {
			return perr.DBf("complete verification %s: %v", v.ID, err)
		}
		sub, err := s.settle.ByIDOn(ctx, q, v.SubmissionID)
		if err != nil {
			return err
		}
		out, err = s.aggregate(ctx, q, r, v, sub, in)
		return err
	})
	if err != nil {
		return dom.VerdictOutput{}, err
	}
	return out, nil
}

// aggregate folds a completed attempt into the submission's fate
func (s *Svc) aggregate(
	ctx context.Context,
	q repokit.Queryer,
	r vrepo.Repo,
	v dom.Verification,
	sub subdom.Submission,
	in dom.VerdictInput,
) (dom.VerdictOutput, error) {
	out := dom.VerdictOutput{VerificationStatus: dom.StatusCompleted}

	switch in.Verdict {
	case dom.VerdictFail:
		if err := s.reject(ctx, q, sub, sdom.VerdictFail, in.Reason); err != nil {
			return out, err
		}
		out.SubmissionStatus = subdom.StatusRejected
		out.JobStatus = sdom.JobDone
		return out, nil

	case dom.VerdictInconclusive:
		if v.AttemptNo >= dom.MaxAttempts {
			if err := s.reject(ctx, q, sub, sdom.VerdictExhausted, "verification attempts exhausted"); err != nil {
				return out, err
			}
			out.SubmissionStatus = subdom.StatusRejected
			out.JobStatus = sdom.JobDone
			return out, nil
		}
		if err := s.OpenAttemptOn(ctx, q, sub.ID, v.AttemptNo+1); err != nil {
			return out, err
		}
		out.SubmissionStatus = subdom.StatusVerifying
		out.JobStatus = sdom.JobVerifying
		return out, nil

	case dom.VerdictPass:
		passes, err := r.PassCount(ctx, sub.ID)
		if err != nil {
			return out, perr.DBf("count passes for %s: %v", sub.ID, err)
		}
		bounty, err := s.bounties.ByIDOn(ctx, q, sub.BountyID)
		if err != nil {
			return out, err
		}
		required := bounty.RequiredProofs
		if required <= 0 {
			required = 1
		}
		if passes < required {
			if v.AttemptNo >= dom.MaxAttempts {
				if err := s.reject(ctx, q, sub, sdom.VerdictExhausted, "verification attempts exhausted"); err != nil {
					return out, err
				}
				out.SubmissionStatus = subdom.StatusRejected
				out.JobStatus = sdom.JobDone
				return out, nil
			}
			if err := s.OpenAttemptOn(ctx, q, sub.ID, v.AttemptNo+1); err != nil {
				return out, err
			}
			out.SubmissionStatus = subdom.StatusVerifying
			out.JobStatus = sdom.JobVerifying
			return out, nil
		}

		status, err := s.accept(ctx, q, bounty, sub, scoreFrom(in, sub), in.Reason)
		if err != nil {
			return out, err
		}
		out.SubmissionStatus = status
		out.JobStatus = sdom.JobDone
		return out, nil
	}
	return out, perr.InvalidArgf("unknown verdict %q", in.Verdict)
}

// reject settles a submission as rejected
func (s *Svc) reject(ctx context.Context, q repokit.Queryer, sub subdom.Submission, verdict, reason string) error {
	if err := s.settle.SetStatusOn(ctx, q, sub.ID, subdom.StatusRejected); err != nil {
		return err
	}
	if err := s.jobs.MarkDoneOn(ctx, q, sub.JobID, verdict, 0, reason); err != nil {
		return err
	}
	return s.emitter.Emit(ctx, q, oxdom.TopicSubmissionRejected, settleEvent(sub, reason), sub.ID+":rejected")
}

// accept settles a submission as accepted, seeding the dedupe index and
// opening the payout. A concurrent accept of the same finding turns
// this one into a duplicate instead
func (s *Svc) accept(
	ctx context.Context,
	q repokit.Queryer,
	bounty bdom.Bounty,
	sub subdom.Submission,
	score float64,
	reason string,
) (string, error) {
	seen, err := s.settle.SeenDedupeOn(ctx, q, sub.BountyID, sub.DedupeKey)
	if err != nil {
		return "", err
	}
	if seen {
		if err := s.settle.SetStatusOn(ctx, q, sub.ID, subdom.StatusDuplicate); err != nil {
			return "", err
		}
		if err := s.jobs.MarkDoneOn(ctx, q, sub.JobID, sdom.VerdictDuplicate, 0, "duplicate finding"); err != nil {
			return "", err
		}
		if err := s.emitter.Emit(ctx, q, oxdom.TopicSubmissionDuplicate, settleEvent(sub, ""), sub.ID+":duplicate"); err != nil {
			return "", err
		}
		return subdom.StatusDuplicate, nil
	}

	if err := s.settle.SeedDedupeOn(ctx, q, sub.BountyID, sub.DedupeKey, sub.ID); err != nil {
		return "", err
	}
	if err := s.settle.SetStatusOn(ctx, q, sub.ID, subdom.StatusAccepted); err != nil {
		return "", err
	}
	if err := s.jobs.MarkDoneOn(ctx, q, sub.JobID, sdom.VerdictPass, score, reason); err != nil {
		return "", err
	}

	hold := time.Now().Add(time.Duration(bounty.DisputeWindowSec) * time.Second).UTC()
	if _, err := s.payouts.CreateOn(ctx, q, paydom.CreateSpec{
		SubmissionID: sub.ID,
		BountyID:     bounty.ID,
		OrgID:        bounty.OrgID,
		WorkerID:     sub.WorkerID,
		GrossCents:   bounty.PayoutCents,
		HoldUntil:    hold,
	}); err != nil {
		return "", err
	}

	if err := s.emitter.Emit(ctx, q, oxdom.TopicSubmissionAccepted, settleEvent(sub, ""), sub.ID+":accepted"); err != nil {
		return "", err
	}
	return subdom.StatusAccepted, nil
}

// scoreFrom pulls a quality score off the scorecard, falling back to
// the worker's own confidence
func scoreFrom(in dom.VerdictInput, sub subdom.Submission) float64 {
	if len(in.Scorecard) > 0 {
		var card struct {
			Score float64 `json:"score"`
		}
		if err := json.Unmarshal(in.Scorecard, &card); err == nil && card.Score > 0 {
			if card.Score > 1 {
				return 1
			}
			return card.Score
		}
	}
	return sub.Manifest.Result.ReproConfidence
}

func settleEvent(sub subdom.Submission, reason string) map[string]string {
	ev := map[string]string{
		"submission_id": sub.ID,
		"job_id":        sub.JobID,
		"bounty_id":     sub.BountyID,
		"worker_id":     sub.WorkerID,
	}
	if reason != "" {
		ev["reason"] = reason
	}
	return ev
}
