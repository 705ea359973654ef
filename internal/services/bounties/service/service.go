// Package service implements bounty lifecycle and job fan-out
package service

import (
	"context"
	"time"

	"proofwork/internal/modkit"
	"proofwork/internal/modkit/repokit"
	perr "proofwork/internal/platform/errors"
	"proofwork/internal/platform/ids"

	bldom "proofwork/internal/services/billing/domain"
	dom "proofwork/internal/services/bounties/domain"
	brepo "proofwork/internal/services/bounties/repo"
	odom "proofwork/internal/services/origins/domain"
	oxdom "proofwork/internal/services/outbox/domain"
	sdom "proofwork/internal/services/scheduler/domain"
)

// Service is the full bounty surface
type Service interface {
	dom.Port
	dom.ReaderPort
}

// Svc implements Service
type Svc struct {
	db      repokit.TxRunner
	binder  repokit.Binder[brepo.Repo]
	repo    brepo.Repo
	origins odom.CheckerPort
	ledger  bldom.LedgerPort
	emitter oxdom.EmitterPort
}

// New constructs the bounty service
func New(deps modkit.Deps, origins odom.CheckerPort, ledger bldom.LedgerPort, emitter oxdom.EmitterPort) *Svc {
	b := brepo.NewPG()
	return &Svc{
		db:      deps.PG,
		binder:  b,
		repo:    b.Bind(deps.PG),
		origins: origins,
		ledger:  ledger,
		emitter: emitter,
	}
}

// Create drafts a bounty after validating its descriptor and origins
func (s *Svc) Create(ctx context.Context, orgID string, in dom.CreateInput) (dom.Bounty, error) {
	if err := in.Descriptor.Validate(); err != nil {
		return dom.Bounty{}, err
	}

	origins := make([]string, 0, len(in.AllowedOrigins))
	for _, raw := range in.AllowedOrigins {
		o, err := odom.Normalize(raw)
		if err != nil {
			return dom.Bounty{}, err
		}
		origins = append(origins, o)
	}

	b := dom.Bounty{
		ID:                 ids.New(ids.PrefixBounty),
		OrgID:              orgID,
		Title:              in.Title,
		Description:        in.Description,
		Status:             dom.StatusDraft,
		AllowedOrigins:     origins,
		Descriptor:         in.Descriptor,
		PayoutCents:        in.PayoutCents,
		RequiredProofs:     in.RequiredProofs,
		DisputeWindowSec:   in.DisputeWindowSec,
		Priority:           in.Priority,
		FingerprintClasses: in.FingerprintClasses,
		CanaryPercent:      in.CanaryPercent,
	}
	if b.RequiredProofs == 0 {
		b.RequiredProofs = 1
	}
	if len(b.FingerprintClasses) == 0 {
		b.FingerprintClasses = []string{dom.DefaultFingerprintClass}
	}
	if b.CanaryPercent == 0 {
		b.CanaryPercent = 100
	}

	if err := s.repo.Insert(ctx, b); err != nil {
		return dom.Bounty{}, perr.FromPostgres(err, "insert bounty")
	}
	return b, nil
}

// Publish verifies origins, reserves funds, fans out jobs and emits
// bounty.published, all in one transaction
func (s *Svc) Publish(ctx context.Context, orgID, bountyID string) (dom.PublishOutput, error) {
	var out dom.PublishOutput

	err := s.db.Tx(ctx, func(q repokit.Queryer) error {
		r := s.binder.Bind(q)

		b, err := r.ByIDForUpdate(ctx, bountyID)
		if err != nil {
			return perr.NotFoundf("bounty %s", bountyID)
		}
		if b.OrgID != orgID {
			return perr.NotFoundf("bounty %s", bountyID)
		}
		if b.Status != dom.StatusDraft {
			return perr.Conflictf("bounty is %s, only drafts publish", b.Status)
		}
		if len(b.AllowedOrigins) == 0 {
			return perr.InvalidArgf("bounty has no allowed origins")
		}
		if err := b.Descriptor.Validate(); err != nil {
			return err
		}

		for _, origin := range b.AllowedOrigins {
			ok, err := s.origins.Verified(ctx, orgID, origin)
			if err != nil {
				return err
			}
			if !ok {
				return perr.Newf(perr.ErrorCodeOriginNotVerified, "origin %s is not verified for this org", origin)
			}
		}

		// one job per fingerprint class, each potentially paying out
		reserve := b.PayoutCents * int64(len(b.FingerprintClasses))
		if err := s.ledger.Reserve(ctx, q, orgID, reserve, b.ID); err != nil {
			return err
		}

		jobIDs := make([]string, 0, len(b.FingerprintClasses))
		for _, fc := range b.FingerprintClasses {
			j := sdom.Job{
				ID:               ids.New(ids.PrefixJob),
				BountyID:         b.ID,
				FingerprintClass: fc,
				Status:           sdom.JobOpen,
			}
			if err := r.InsertJob(ctx, j); err != nil {
				return perr.FromPostgres(err, "insert job")
			}
			jobIDs = append(jobIDs, j.ID)
		}

		now := time.Now()
		if err := r.SetPublished(ctx, b.ID, now); err != nil {
			return perr.DBf("publish bounty: %v", err)
		}
		b.Status = dom.StatusPublished
		b.PublishedAt = &now

		if err := s.emitter.Emit(ctx, q, oxdom.TopicBountyPublished, map[string]any{
			"bounty_id": b.ID,
			"org_id":    b.OrgID,
			"job_ids":   jobIDs,
		}, b.ID); err != nil {
			return err
		}

		out = dom.PublishOutput{Bounty: b, JobIDs: jobIDs}
		return nil
	})
	if err != nil {
		return dom.PublishOutput{}, err
	}
	return out, nil
}

// Close stops a published bounty and releases the unspent reservation
func (s *Svc) Close(ctx context.Context, orgID, bountyID string) (dom.Bounty, error) {
	var closed dom.Bounty

	err := s.db.Tx(ctx, func(q repokit.Queryer) error {
		r := s.binder.Bind(q)

		b, err := r.ByIDForUpdate(ctx, bountyID)
		if err != nil || b.OrgID != orgID {
			return perr.NotFoundf("bounty %s", bountyID)
		}
		if b.Status != dom.StatusPublished {
			return perr.Conflictf("bounty is %s, only published bounties close", b.Status)
		}

		unsettled, err := r.CountUnsettledJobs(ctx, b.ID)
		if err != nil {
			return perr.DBf("count jobs: %v", err)
		}
		if unsettled > 0 {
			if err := s.ledger.Release(ctx, q, orgID, b.PayoutCents*int64(unsettled), b.ID); err != nil {
				return err
			}
		}

		if err := r.SetClosed(ctx, b.ID); err != nil {
			return perr.DBf("close bounty: %v", err)
		}
		b.Status = dom.StatusClosed
		closed = b
		return nil
	})
	if err != nil {
		return dom.Bounty{}, err
	}
	return closed, nil
}

// Get returns an org's bounty
func (s *Svc) Get(ctx context.Context, orgID, bountyID string) (dom.Bounty, error) {
	b, err := s.repo.ByIDForOrg(ctx, orgID, bountyID)
	if err != nil {
		return dom.Bounty{}, perr.NotFoundf("bounty %s", bountyID)
	}
	return b, nil
}

// List returns the org's bounties, newest first
func (s *Svc) List(ctx context.Context, orgID string) ([]dom.Bounty, error) {
	out, err := s.repo.ByOrg(ctx, orgID)
	if err != nil {
		return nil, perr.DBf("list bounties: %v", err)
	}
	return out, nil
}

// ByID is the cross-module read
func (s *Svc) ByID(ctx context.Context, bountyID string) (dom.Bounty, error) {
	b, err := s.repo.ByID(ctx, bountyID)
	if err != nil {
		return dom.Bounty{}, perr.NotFoundf("bounty %s", bountyID)
	}
	return b, nil
}

// ByIDOn reads on the caller's Queryer
func (s *Svc) ByIDOn(ctx context.Context, q repokit.Queryer, bountyID string) (dom.Bounty, error) {
	b, err := s.binder.Bind(q).ByID(ctx, bountyID)
	if err != nil {
		return dom.Bounty{}, perr.NotFoundf("bounty %s", bountyID)
	}
	return b, nil
}
