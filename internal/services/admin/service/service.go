// Package service fans operator mutations out to the owning modules
// and records each one in the audit log
package service

import (
	"context"

	"proofwork/internal/modkit"
	"proofwork/internal/modkit/repokit"
	"proofwork/internal/platform/logger"

	dom "proofwork/internal/services/admin/domain"
	auditdom "proofwork/internal/services/audit/domain"
	idom "proofwork/internal/services/ident/domain"
	paydom "proofwork/internal/services/payouts/domain"
	vdom "proofwork/internal/services/verification/domain"
)

// Svc implements dom.Port
type Svc struct {
	db            repokit.TxRunner
	audit         auditdom.RecorderPort
	workers       idom.AdminPort
	verifications vdom.AdminPort
	payouts       paydom.AdminPort
}

var _ dom.Port = (*Svc)(nil)

// New constructs the admin service
func New(
	deps modkit.Deps,
	audit auditdom.RecorderPort,
	workers idom.AdminPort,
	verifications vdom.AdminPort,
	payouts paydom.AdminPort,
) *Svc {
	return &Svc{
		db:            deps.PG,
		audit:         audit,
		workers:       workers,
		verifications: verifications,
		payouts:       payouts,
	}
}

// record writes the audit entry after the mutation committed. A failed
// write is logged, not surfaced; the mutation already happened
func (s *Svc) record(ctx context.Context, adminID, action, targetKind, targetID string, detail map[string]any) {
	_, err := s.audit.RecordOn(ctx, s.db, auditdom.Entry{
		ActorKind:  auditdom.ActorAdmin,
		ActorID:    adminID,
		Action:     action,
		TargetKind: targetKind,
		TargetID:   targetID,
		Detail:     detail,
	})
	if err != nil {
		logger.Named("admin").Error().Err(err).
			Str("action", action).Str("target", targetID).
			Msg("audit write failed")
	}
}

// BanWorker revokes a worker's standing
func (s *Svc) BanWorker(ctx context.Context, adminID, workerID string) error {
	if err := s.workers.BanWorker(ctx, workerID); err != nil {
		return err
	}
	s.record(ctx, adminID, "worker.ban", "worker", workerID, nil)
	return nil
}

// RateLimitWorker caps a worker's request rate
func (s *Svc) RateLimitWorker(ctx context.Context, adminID, workerID string, perMin int) error {
	if err := s.workers.RateLimitWorker(ctx, workerID, perMin); err != nil {
		return err
	}
	s.record(ctx, adminID, "worker.rate_limit", "worker", workerID, map[string]any{"per_min": perMin})
	return nil
}

// RequeueVerification forces a stuck claim back into the queue
func (s *Svc) RequeueVerification(ctx context.Context, adminID, verificationID string) error {
	if err := s.verifications.ForceRequeue(ctx, verificationID); err != nil {
		return err
	}
	s.record(ctx, adminID, "verification.requeue", "verification", verificationID, nil)
	return nil
}

// OverrideVerdict settles a submission by fiat
func (s *Svc) OverrideVerdict(ctx context.Context, adminID, submissionID string, in dom.OverrideInput) (vdom.VerdictOutput, error) {
	out, err := s.verifications.OverrideVerdict(ctx, submissionID, in.Verdict, in.Reason)
	if err != nil {
		return vdom.VerdictOutput{}, err
	}
	s.record(ctx, adminID, "submission.override", "submission", submissionID, map[string]any{
		"verdict": in.Verdict,
		"reason":  in.Reason,
	})
	return out, nil
}

// MarkDuplicate retires a submission as a duplicate finding
func (s *Svc) MarkDuplicate(ctx context.Context, adminID, submissionID, reason string) (vdom.VerdictOutput, error) {
	out, err := s.verifications.MarkDuplicate(ctx, submissionID, reason)
	if err != nil {
		return vdom.VerdictOutput{}, err
	}
	s.record(ctx, adminID, "submission.duplicate", "submission", submissionID, map[string]any{"reason": reason})
	return out, nil
}

// RetryPayout requeues a failed or blocked payout
func (s *Svc) RetryPayout(ctx context.Context, adminID, payoutID string) (paydom.Payout, error) {
	p, err := s.payouts.Retry(ctx, payoutID)
	if err != nil {
		return paydom.Payout{}, err
	}
	s.record(ctx, adminID, "payout.retry", "payout", payoutID, nil)
	return p, nil
}

// MarkPayoutPaid settles a payout manually
func (s *Svc) MarkPayoutPaid(ctx context.Context, adminID, payoutID, txHash string) (paydom.Payout, error) {
	p, err := s.payouts.MarkPaid(ctx, payoutID, txHash)
	if err != nil {
		return paydom.Payout{}, err
	}
	s.record(ctx, adminID, "payout.mark_paid", "payout", payoutID, map[string]any{"tx_hash": txHash})
	return p, nil
}

// BlockPayout freezes a payout pending investigation
func (s *Svc) BlockPayout(ctx context.Context, adminID, payoutID, reason string) (paydom.Payout, error) {
	p, err := s.payouts.Block(ctx, payoutID, reason)
	if err != nil {
		return paydom.Payout{}, err
	}
	s.record(ctx, adminID, "payout.block", "payout", payoutID, map[string]any{"reason": reason})
	return p, nil
}
