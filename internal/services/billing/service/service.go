// Package service implements the billing ledger
package service

import (
	"context"
	"time"

	"proofwork/internal/modkit"
	"proofwork/internal/modkit/repokit"
	perr "proofwork/internal/platform/errors"
	"proofwork/internal/platform/ids"

	dom "proofwork/internal/services/billing/domain"
	brepo "proofwork/internal/services/billing/repo"
	idom "proofwork/internal/services/ident/domain"
	odom "proofwork/internal/services/outbox/domain"
)

// Config tunes the billing service
type Config struct {
	ProviderName string
	WebhookSkew  time.Duration
}

// Service is the full billing surface
type Service interface {
	dom.LedgerPort
	dom.CheckoutPort
	dom.WebhookPort
}

// Svc implements Service
type Svc struct {
	db       repokit.TxRunner
	binder   repokit.Binder[brepo.Repo]
	repo     brepo.Repo
	provider dom.Provider
	orgs     idom.DirectoryPort
	emitter  odom.EmitterPort
	cfg      Config
}

// New constructs the billing service
func New(deps modkit.Deps, cfg Config, provider dom.Provider, orgs idom.DirectoryPort, emitter odom.EmitterPort) *Svc {
	if cfg.WebhookSkew <= 0 {
		cfg.WebhookSkew = 300 * time.Second
	}
	b := brepo.NewPG()
	return &Svc{
		db:       deps.PG,
		binder:   b,
		repo:     b.Bind(deps.PG),
		provider: provider,
		orgs:     orgs,
		emitter:  emitter,
		cfg:      cfg,
	}
}

// Balance returns the org's current position
func (s *Svc) Balance(ctx context.Context, orgID string) (dom.Account, error) {
	acc, _, err := s.repo.Account(ctx, orgID)
	if err != nil {
		return dom.Account{}, perr.DBf("load account: %v", err)
	}
	return acc, nil
}

// Entries lists recent ledger lines, newest first
func (s *Svc) Entries(ctx context.Context, orgID string, limit int) ([]dom.Entry, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	out, err := s.repo.Entries(ctx, orgID, limit)
	if err != nil {
		return nil, perr.DBf("list entries: %v", err)
	}
	return out, nil
}

// Reserve earmarks funds on the caller's transaction
func (s *Svc) Reserve(ctx context.Context, q repokit.Queryer, orgID string, amountCents int64, ref string) error {
	if amountCents <= 0 {
		return perr.InvalidArgf("reserve amount must be positive")
	}
	r := s.binder.Bind(q)

	acc, found, err := r.AccountForUpdate(ctx, orgID)
	if err != nil {
		return perr.DBf("lock account: %v", err)
	}
	if !found || acc.Available() < amountCents {
		return perr.Newf(perr.ErrorCodeInsufficientBalance,
			"available %d cents, need %d", acc.Available(), amountCents)
	}

	org, err := s.orgs.OrgByID(ctx, orgID)
	if err != nil {
		return perr.WrapIf(err, perr.ErrorCodeDB, "load org")
	}
	if org.SpendLimitCents > 0 && acc.ReservedCents+amountCents > org.SpendLimitCents {
		return perr.Newf(perr.ErrorCodeInsufficientBalance,
			"reservation would exceed the org spend limit of %d cents", org.SpendLimitCents)
	}

	acc.ReservedCents += amountCents
	return s.apply(ctx, r, acc, dom.EntryReserve, amountCents, ref)
}

// Release returns an unused reservation
func (s *Svc) Release(ctx context.Context, q repokit.Queryer, orgID string, amountCents int64, ref string) error {
	if amountCents <= 0 {
		return perr.InvalidArgf("release amount must be positive")
	}
	r := s.binder.Bind(q)

	acc, found, err := r.AccountForUpdate(ctx, orgID)
	if err != nil {
		return perr.DBf("lock account: %v", err)
	}
	if !found || acc.ReservedCents < amountCents {
		return perr.Conflictf("release of %d cents exceeds reservation %d", amountCents, acc.ReservedCents)
	}

	acc.ReservedCents -= amountCents
	return s.apply(ctx, r, acc, dom.EntryRelease, amountCents, ref)
}

// Capture converts a reservation into spend
func (s *Svc) Capture(ctx context.Context, q repokit.Queryer, orgID string, amountCents int64, ref string) error {
	if amountCents <= 0 {
		return perr.InvalidArgf("capture amount must be positive")
	}
	r := s.binder.Bind(q)

	acc, found, err := r.AccountForUpdate(ctx, orgID)
	if err != nil {
		return perr.DBf("lock account: %v", err)
	}
	if !found || acc.ReservedCents < amountCents {
		return perr.Conflictf("capture of %d cents exceeds reservation %d", amountCents, acc.ReservedCents)
	}

	acc.ReservedCents -= amountCents
	acc.BalanceCents -= amountCents
	return s.apply(ctx, r, acc, dom.EntryCapture, amountCents, ref)
}

// Credit adds settled funds
func (s *Svc) Credit(ctx context.Context, q repokit.Queryer, orgID string, amountCents int64, kind, ref string) error {
	if amountCents <= 0 {
		return perr.InvalidArgf("credit amount must be positive")
	}
	if kind != dom.EntryTopup && kind != dom.EntryRefund {
		return perr.InvalidArgf("credit kind %q", kind)
	}
	r := s.binder.Bind(q)

	acc, _, err := r.AccountForUpdate(ctx, orgID)
	if err != nil {
		return perr.DBf("lock account: %v", err)
	}
	acc.OrgID = orgID
	acc.BalanceCents += amountCents
	return s.apply(ctx, r, acc, kind, amountCents, ref)
}

func (s *Svc) apply(ctx context.Context, r brepo.Repo, acc dom.Account, kind string, amountCents int64, ref string) error {
	if err := r.UpsertAccount(ctx, acc); err != nil {
		return perr.DBf("save account: %v", err)
	}
	err := r.InsertEntry(ctx, dom.Entry{
		ID:          ids.New(ids.PrefixLedger),
		OrgID:       acc.OrgID,
		Kind:        kind,
		AmountCents: amountCents,
		Ref:         ref,
	})
	if err != nil {
		return perr.FromPostgres(err, "insert ledger entry")
	}
	return nil
}

// CreateCheckout starts a provider checkout for a top-up
func (s *Svc) CreateCheckout(ctx context.Context, orgID string, in dom.TopupInput) (dom.CheckoutSession, error) {
	sess, err := s.provider.CreateCheckout(ctx, orgID, in.AmountCents)
	if err != nil {
		return dom.CheckoutSession{}, perr.WrapIf(err, perr.ErrorCodeUnavailable, "create checkout")
	}
	return sess, nil
}

// HandleProviderEvent verifies, dedupes and applies a provider webhook
func (s *Svc) HandleProviderEvent(ctx context.Context, raw []byte, sigHeader string) error {
	ev, err := s.provider.VerifyWebhook(raw, sigHeader, time.Now())
	if err != nil {
		return err
	}

	return s.db.Tx(ctx, func(q repokit.Queryer) error {
		r := s.binder.Bind(q)

		inserted, err := r.InsertWebhookEvent(ctx, ev.EventID, s.cfg.ProviderName, raw)
		if err != nil {
			return perr.DBf("store webhook event: %v", err)
		}
		if !inserted {
			// replay; the first delivery already applied it
			return nil
		}

		switch ev.Type {
		case dom.EventTopupCompleted:
			if err := s.Credit(ctx, q, ev.OrgID, ev.AmountCents, dom.EntryTopup, ev.EventID); err != nil {
				return err
			}
			return s.emitter.Emit(ctx, q, odom.TopicTopupCompleted, map[string]any{
				"org_id":       ev.OrgID,
				"amount_cents": ev.AmountCents,
				"event_id":     ev.EventID,
			}, ev.EventID)
		default:
			// unknown event types are stored and ignored
			return nil
		}
	})
}
