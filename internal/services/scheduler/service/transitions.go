package service

import (
	"context"

	"proofwork/internal/modkit/repokit"
	perr "proofwork/internal/platform/errors"

	dom "proofwork/internal/services/scheduler/domain"
)

// MarkSubmittedOn moves a leased job to submitted on the caller's Queryer
func (s *Svc) MarkSubmittedOn(ctx context.Context, q repokit.Queryer, jobID, submissionID string) error {
	ok, err := s.binder.Bind(q).MarkSubmitted(ctx, jobID, submissionID)
	if err != nil {
		return perr.DBf("mark job %s submitted: %v", jobID, err)
	}
	if !ok {
		return perr.Conflictf("job %s is not leased", jobID)
	}
	return nil
}

// MarkVerifyingOn moves a submitted job to verifying on the caller's Queryer
func (s *Svc) MarkVerifyingOn(ctx context.Context, q repokit.Queryer, jobID string) error {
	ok, err := s.binder.Bind(q).MarkVerifying(ctx, jobID)
	if err != nil {
		return perr.DBf("mark job %s verifying: %v", jobID, err)
	}
	if !ok {
		return perr.Conflictf("job %s is not submitted", jobID)
	}
	return nil
}

// MarkDoneOn finalizes a job on the caller's Queryer. done is terminal
func (s *Svc) MarkDoneOn(ctx context.Context, q repokit.Queryer, jobID, verdict string, qualityScore float64, reason string) error {
	ok, err := s.binder.Bind(q).MarkDone(ctx, jobID, verdict, qualityScore, reason)
	if err != nil {
		return perr.DBf("mark job %s done: %v", jobID, err)
	}
	if !ok {
		return perr.Conflictf("job %s is already done", jobID)
	}
	return nil
}

// JobByIDOn reads a job on the caller's Queryer
func (s *Svc) JobByIDOn(ctx context.Context, q repokit.Queryer, jobID string) (dom.Job, error) {
	j, err := s.binder.Bind(q).JobByID(ctx, jobID)
	if err != nil {
		return dom.Job{}, perr.NotFoundf("job %s", jobID)
	}
	return j, nil
}
