package service

import (
	"context"

	"proofwork/internal/modkit/repokit"
	perr "proofwork/internal/platform/errors"

	oxdom "proofwork/internal/services/outbox/domain"
	sdom "proofwork/internal/services/scheduler/domain"
	subdom "proofwork/internal/services/submissions/domain"
	dom "proofwork/internal/services/verification/domain"
)

// ForceRequeue yanks a claimed attempt back into the queue
func (s *Svc) ForceRequeue(ctx context.Context, verificationID string) error {
	return s.db.Tx(ctx, func(q repokit.Queryer) error {
		r := s.binder.Bind(q)

		v, err := r.ByIDForUpdate(ctx, verificationID)
		if err != nil {
			return perr.NotFoundf("verification %s", verificationID)
		}
		if v.Status != dom.StatusClaimed {
			return perr.Conflictf("verification %s is %s, not claimed", v.ID, v.Status)
		}
		if _, err := r.Requeue(ctx, v.ID); err != nil {
			return perr.DBf("requeue verification %s: %v", v.ID, err)
		}
		return nil
	})
}

// OverrideVerdict settles a submission by fiat, skipping the quorum.
// Accepting a finding another submission already owns is refused
func (s *Svc) OverrideVerdict(ctx context.Context, submissionID, verdict, reason string) (dom.VerdictOutput, error) {
	out := dom.VerdictOutput{VerificationStatus: "overridden"}
	err := s.db.Tx(ctx, func(q repokit.Queryer) error {
		sub, err := s.settle.ByIDOn(ctx, q, submissionID)
		if err != nil {
			return err
		}
		if sub.Terminal() {
			return perr.Conflictf("submission %s is already %s", sub.ID, sub.Status)
		}

		switch verdict {
		case dom.VerdictPass:
			bounty, err := s.bounties.ByIDOn(ctx, q, sub.BountyID)
			if err != nil {
				return err
			}
			status, err := s.accept(ctx, q, bounty, sub, sub.Manifest.Result.ReproConfidence, reason)
			if err != nil {
				return err
			}
			if status == subdom.StatusDuplicate {
				return perr.Conflictf("finding already accepted for bounty %s", sub.BountyID)
			}
			out.SubmissionStatus = status
		case dom.VerdictFail:
			if err := s.reject(ctx, q, sub, sdom.VerdictFail, reason); err != nil {
				return err
			}
			out.SubmissionStatus = subdom.StatusRejected
		default:
			return perr.InvalidArgf("override verdict must be pass or fail, got %q", verdict)
		}
		out.JobStatus = sdom.JobDone
		return nil
	})
	if err != nil {
		return dom.VerdictOutput{}, err
	}
	return out, nil
}

// MarkDuplicate settles a submission as a duplicate finding
func (s *Svc) MarkDuplicate(ctx context.Context, submissionID, reason string) (dom.VerdictOutput, error) {
	out := dom.VerdictOutput{VerificationStatus: "overridden"}
	err := s.db.Tx(ctx, func(q repokit.Queryer) error {
		sub, err := s.settle.ByIDOn(ctx, q, submissionID)
		if err != nil {
			return err
		}
		if sub.Terminal() {
			return perr.Conflictf("submission %s is already %s", sub.ID, sub.Status)
		}
		if reason == "" {
			reason = "duplicate finding"
		}
		if err := s.settle.SetStatusOn(ctx, q, sub.ID, subdom.StatusDuplicate); err != nil {
			return err
		}
		if err := s.jobs.MarkDoneOn(ctx, q, sub.JobID, sdom.VerdictDuplicate, 0, reason); err != nil {
			return err
		}
		out.SubmissionStatus = subdom.StatusDuplicate
		out.JobStatus = sdom.JobDone
		return s.emitter.Emit(ctx, q, oxdom.TopicSubmissionDuplicate, settleEvent(sub, reason), sub.ID+":duplicate")
	})
	if err != nil {
		return dom.VerdictOutput{}, err
	}
	return out, nil
}
