// Package service implements payout creation, settlement and the
// on-chain transfer runner
package service

import (
	"context"
	"time"

	"proofwork/internal/modkit"
	"proofwork/internal/modkit/repokit"
	perr "proofwork/internal/platform/errors"
	"proofwork/internal/platform/ids"

	bildom "proofwork/internal/services/billing/domain"
	idom "proofwork/internal/services/ident/domain"
	oxdom "proofwork/internal/services/outbox/domain"
	dom "proofwork/internal/services/payouts/domain"
	prepo "proofwork/internal/services/payouts/repo"
)

// Config controls fees and the settlement loop
type Config struct {
	ServiceFeeBps int
	FeeWallet     string
	MaxAttempts   int
	SettleEvery   time.Duration
	SettleBatch   int
}

// Service is the full payout surface
type Service interface {
	dom.CreatorPort
	dom.Port
	dom.RunnerPort
	dom.AdminPort
}

// Svc implements Service
type Svc struct {
	db        repokit.TxRunner
	binder    repokit.Binder[prepo.Repo]
	repo      prepo.Repo
	directory idom.DirectoryPort
	ledger    bildom.LedgerPort
	chain     dom.ChainPort
	emitter   oxdom.EmitterPort
	cfg       Config
}

// New constructs the payout service
func New(
	deps modkit.Deps,
	cfg Config,
	directory idom.DirectoryPort,
	ledger bildom.LedgerPort,
	chain dom.ChainPort,
	emitter oxdom.EmitterPort,
) *Svc {
	b := prepo.NewPG()
	if cfg.ServiceFeeBps <= 0 {
		cfg.ServiceFeeBps = dom.ServiceFeeBpsDefault
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 3
	}
	if cfg.SettleEvery <= 0 {
		cfg.SettleEvery = 30 * time.Second
	}
	if cfg.SettleBatch <= 0 {
		cfg.SettleBatch = 50
	}
	return &Svc{
		db:        deps.PG,
		binder:    b,
		repo:      b.Bind(deps.PG),
		directory: directory,
		ledger:    ledger,
		chain:     chain,
		emitter:   emitter,
		cfg:       cfg,
	}
}

// CreateOn captures the org's reservation and opens the payout on the
// caller's Queryer. Workers without a verified payout address get a
// blocked payout they can unblock by verifying one
func (s *Svc) CreateOn(ctx context.Context, q repokit.Queryer, spec dom.CreateSpec) (dom.Payout, error) {
	org, err := s.directory.OrgByID(ctx, spec.OrgID)
	if err != nil {
		return dom.Payout{}, err
	}
	worker, err := s.directory.WorkerByID(ctx, spec.WorkerID)
	if err != nil {
		return dom.Payout{}, err
	}

	if err := s.ledger.Capture(ctx, q, spec.OrgID, spec.GrossCents, spec.SubmissionID); err != nil {
		return dom.Payout{}, err
	}

	split := dom.SplitFees(spec.GrossCents, org.PlatformFeeBps, s.cfg.ServiceFeeBps)
	p := dom.Payout{
		ID:               ids.New(ids.PrefixPayout),
		SubmissionID:     spec.SubmissionID,
		BountyID:         spec.BountyID,
		OrgID:            spec.OrgID,
		WorkerID:         spec.WorkerID,
		GrossCents:       spec.GrossCents,
		PlatformFeeCents: split.PlatformFeeCents,
		ServiceFeeCents:  split.ServiceFeeCents,
		NetCents:         split.NetCents,
		Status:           dom.StatusHolding,
		HoldUntil:        spec.HoldUntil.UTC(),
	}
	if worker.PayoutVerifiedAt != nil && worker.PayoutAddress != "" {
		p.ChainID = worker.PayoutChainID
		p.PayAddress = worker.PayoutAddress
	} else {
		p.Status = dom.StatusBlocked
		p.FailReason = "payout address not verified"
	}

	if err := s.binder.Bind(q).Insert(ctx, p); err != nil {
		return dom.Payout{}, perr.FromPostgres(err, "insert payout")
	}
	return p, nil
}

// ByID fetches one payout
func (s *Svc) ByID(ctx context.Context, payoutID string) (dom.Payout, error) {
	p, err := s.repo.ByID(ctx, payoutID)
	if err != nil {
		return dom.Payout{}, perr.NotFoundf("payout %s", payoutID)
	}
	return p, nil
}

// ForWorker lists a worker's payouts, newest first
func (s *Svc) ForWorker(ctx context.Context, workerID string, limit int) ([]dom.Payout, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	out, err := s.repo.ForWorker(ctx, workerID, limit)
	if err != nil {
		return nil, perr.DBf("list payouts for %s: %v", workerID, err)
	}
	return out, nil
}

// ForOrg lists an org's payouts, newest first
func (s *Svc) ForOrg(ctx context.Context, orgID string, limit int) ([]dom.Payout, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	out, err := s.repo.ForOrg(ctx, orgID, limit)
	if err != nil {
		return nil, perr.DBf("list payouts for %s: %v", orgID, err)
	}
	return out, nil
}

// Retry puts a failed or blocked payout back in the settle queue.
// Blocked payouts re-resolve the worker's address first
func (s *Svc) Retry(ctx context.Context, payoutID string) (dom.Payout, error) {
	var out dom.Payout
	err := s.db.Tx(ctx, func(q repokit.Queryer) error {
		r := s.binder.Bind(q)
		p, err := r.ByID(ctx, payoutID)
		if err != nil {
			return perr.NotFoundf("payout %s", payoutID)
		}
		switch p.Status {
		case dom.StatusFailed:
		case dom.StatusBlocked:
			worker, err := s.directory.WorkerByID(ctx, p.WorkerID)
			if err != nil {
				return err
			}
			if worker.PayoutVerifiedAt == nil || worker.PayoutAddress == "" {
				return perr.Conflictf("worker %s still has no verified payout address", p.WorkerID)
			}
			p.ChainID = worker.PayoutChainID
			p.PayAddress = worker.PayoutAddress
		default:
			return perr.Conflictf("payout %s is %s, not retryable", p.ID, p.Status)
		}
		if err := r.SetStatus(ctx, p.ID, dom.StatusHolding); err != nil {
			return perr.DBf("requeue payout %s: %v", p.ID, err)
		}
		p.Status = dom.StatusHolding
		out = p
		return nil
	})
	if err != nil {
		return dom.Payout{}, err
	}
	return out, nil
}

// MarkPaid settles a payout by fiat, recording an external tx hash
func (s *Svc) MarkPaid(ctx context.Context, payoutID, txHash string) (dom.Payout, error) {
	var out dom.Payout
	err := s.db.Tx(ctx, func(q repokit.Queryer) error {
		r := s.binder.Bind(q)
		p, err := r.ByID(ctx, payoutID)
		if err != nil {
			return perr.NotFoundf("payout %s", payoutID)
		}
		if p.Status == dom.StatusPaid {
			return perr.Conflictf("payout %s is already paid", p.ID)
		}
		if err := r.MarkPaid(ctx, p.ID, txHash); err != nil {
			return perr.DBf("mark payout %s paid: %v", p.ID, err)
		}
		p.Status = dom.StatusPaid
		p.TxHash = txHash
		out = p
		return s.emitter.Emit(ctx, q, oxdom.TopicPayoutPaid, payoutEvent(p), p.ID+":paid")
	})
	if err != nil {
		return dom.Payout{}, err
	}
	return out, nil
}

// Block freezes a payout pending investigation
func (s *Svc) Block(ctx context.Context, payoutID, reason string) (dom.Payout, error) {
	var out dom.Payout
	err := s.db.Tx(ctx, func(q repokit.Queryer) error {
		r := s.binder.Bind(q)
		p, err := r.ByID(ctx, payoutID)
		if err != nil {
			return perr.NotFoundf("payout %s", payoutID)
		}
		if p.Status == dom.StatusPaid {
			return perr.Conflictf("payout %s is already paid", p.ID)
		}
		if err := r.MarkFailed(ctx, p.ID, reason); err != nil {
			return perr.DBf("block payout %s: %v", p.ID, err)
		}
		if err := r.SetStatus(ctx, p.ID, dom.StatusBlocked); err != nil {
			return perr.DBf("block payout %s: %v", p.ID, err)
		}
		p.Status = dom.StatusBlocked
		p.FailReason = reason
		out = p
		return nil
	})
	if err != nil {
		return dom.Payout{}, err
	}
	return out, nil
}

func payoutEvent(p dom.Payout) map[string]any {
	return map[string]any{
		"payout_id":     p.ID,
		"submission_id": p.SubmissionID,
		"worker_id":     p.WorkerID,
		"net_cents":     p.NetCents,
		"tx_hash":       p.TxHash,
	}
}
