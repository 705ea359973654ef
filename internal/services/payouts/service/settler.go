package service

import (
	"context"
	"time"

	"proofwork/internal/modkit/repokit"
	perr "proofwork/internal/platform/errors"
	"proofwork/internal/platform/ids"
	"proofwork/internal/platform/logger"

	oxdom "proofwork/internal/services/outbox/domain"
	dom "proofwork/internal/services/payouts/domain"
	prepo "proofwork/internal/services/payouts/repo"
)

// RunSettler drives due holds onto the chain and confirms broadcast
// legs until ctx is cancelled
func (s *Svc) RunSettler(ctx context.Context) error {
	log := logger.Named("payout-settler")
	ticker := time.NewTicker(s.cfg.SettleEvery)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if n, err := s.SettleOnce(ctx); err != nil {
				log.Error().Err(err).Msg("payout settle failed")
			} else if n > 0 {
				log.Info().Int("settled", n).Msg("payouts broadcast")
			}
			if n, err := s.ConfirmOnce(ctx); err != nil {
				log.Error().Err(err).Msg("payout confirm failed")
			} else if n > 0 {
				log.Info().Int("confirmed", n).Msg("transfers confirmed")
			}
		}
	}
}

// SettleOnce broadcasts one batch of payouts whose dispute window has
// passed. Each payout settles through its own short transactions: the
// legs and their nonces commit before anything goes on the wire, so a
// failure at any point retries the same nonces instead of minting new
// ones. No chain call ever runs inside a transaction
func (s *Svc) SettleOnce(ctx context.Context) (int, error) {
	var due []dom.Payout
	err := s.db.Tx(ctx, func(q repokit.Queryer) error {
		var err error
		due, err = s.binder.Bind(q).DueHolds(ctx, s.cfg.SettleBatch)
		if err != nil {
			return perr.DBf("list due holds: %v", err)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	n := 0
	for i := range due {
		ok, err := s.settleOne(ctx, &due[i])
		if err != nil {
			return n, err
		}
		if ok {
			n++
		}
	}
	return n, nil
}

func (s *Svc) settleOne(ctx context.Context, p *dom.Payout) (bool, error) {
	var legs []dom.Transfer
	err := s.db.Tx(ctx, func(q repokit.Queryer) error {
		var err error
		legs, err = s.legsFor(ctx, s.binder.Bind(q), p)
		return err
	})
	if err != nil {
		// an unconfigured or unreachable chain leaves the hold queued
		// without burning an attempt
		if perr.IsCode(err, perr.ErrorCodeUnavailable) {
			return false, nil
		}
		return false, err
	}

	for i := range legs {
		leg := &legs[i]
		if leg.Status != dom.TransferCreated {
			continue
		}
		txHash, err := s.chain.Transfer(ctx, leg.ChainID, leg.Nonce, leg.ToAddress, leg.Cents)
		if err != nil {
			return false, s.broadcastFailed(ctx, p, err)
		}
		// the leg's nonce is already committed: if this write fails the
		// next sweep rebroadcasts the identical transaction, which the
		// chain deduplicates by nonce
		if err := s.db.Tx(ctx, func(q repokit.Queryer) error {
			return s.binder.Bind(q).MarkTransferBroadcast(ctx, leg.ID, txHash)
		}); err != nil {
			return false, perr.DBf("mark transfer %s broadcast: %v", leg.ID, err)
		}
		leg.Status = dom.TransferBroadcast
		leg.TxHash = txHash
	}

	err = s.db.Tx(ctx, func(q repokit.Queryer) error {
		return s.binder.Bind(q).SetStatus(ctx, p.ID, dom.StatusPending)
	})
	if err != nil {
		return false, perr.DBf("mark payout %s pending: %v", p.ID, err)
	}
	return true, nil
}

// legsFor returns the payout's transfer legs, creating them with fresh
// nonces on first settle. The caller's transaction must commit before
// any of the returned legs is broadcast
func (s *Svc) legsFor(ctx context.Context, r prepo.Repo, p *dom.Payout) ([]dom.Transfer, error) {
	legs, err := r.TransfersForPayout(ctx, p.ID)
	if err != nil {
		return nil, perr.DBf("list transfers for %s: %v", p.ID, err)
	}
	if len(legs) > 0 {
		return legs, nil
	}

	sender, err := s.chain.Sender(p.ChainID)
	if err != nil {
		return nil, err
	}

	specs := []struct {
		kind  string
		to    string
		cents int64
	}{
		{dom.TransferNet, p.PayAddress, p.NetCents},
	}
	if s.cfg.FeeWallet != "" && p.ServiceFeeCents > 0 {
		specs = append(specs, struct {
			kind  string
			to    string
			cents int64
		}{dom.TransferFee, s.cfg.FeeWallet, p.ServiceFeeCents})
	}

	for _, spec := range specs {
		nonce, err := r.NextNonce(ctx, p.ChainID, sender)
		if err != nil {
			return nil, perr.DBf("allocate nonce on chain %d: %v", p.ChainID, err)
		}
		leg := dom.Transfer{
			ID:        ids.New(ids.PrefixTransfer),
			PayoutID:  p.ID,
			Kind:      spec.kind,
			ToAddress: spec.to,
			Cents:     spec.cents,
			ChainID:   p.ChainID,
			Nonce:     nonce,
			Status:    dom.TransferCreated,
		}
		if err := r.InsertTransfer(ctx, leg); err != nil {
			return nil, perr.DBf("insert transfer leg: %v", err)
		}
		legs = append(legs, leg)
	}
	return legs, nil
}

// broadcastFailed counts the attempt; the payout fails for good once
// the bound is hit
func (s *Svc) broadcastFailed(ctx context.Context, p *dom.Payout, cause error) error {
	return s.db.Tx(ctx, func(q repokit.Queryer) error {
		r := s.binder.Bind(q)
		attempts, err := r.BumpAttempts(ctx, p.ID)
		if err != nil {
			return perr.DBf("count payout %s attempts: %v", p.ID, err)
		}
		if attempts < s.cfg.MaxAttempts {
			return nil
		}
		if err := r.MarkFailed(ctx, p.ID, cause.Error()); err != nil {
			return perr.DBf("fail payout %s: %v", p.ID, err)
		}
		p.Status = dom.StatusFailed
		return s.emitter.Emit(ctx, q, oxdom.TopicPayoutFailed, payoutEvent(*p), p.ID+":failed")
	})
}

// ConfirmOnce checks broadcast legs against the chain; a payout is paid
// once every leg confirms
func (s *Svc) ConfirmOnce(ctx context.Context) (int, error) {
	var pending []dom.Transfer
	err := s.db.Tx(ctx, func(q repokit.Queryer) error {
		var err error
		pending, err = s.binder.Bind(q).BroadcastTransfers(ctx, s.cfg.SettleBatch)
		if err != nil {
			return perr.DBf("list broadcast transfers: %v", err)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	n := 0
	for _, leg := range pending {
		confirmed, err := s.chain.Confirmed(ctx, leg.ChainID, leg.TxHash)
		if err != nil || !confirmed {
			continue
		}
		done, err := s.confirmLeg(ctx, leg)
		if err != nil {
			return n, err
		}
		if done {
			n++
		}
	}
	return n, nil
}

// confirmLeg records one confirmation and settles the payout when it
// was the last outstanding leg
func (s *Svc) confirmLeg(ctx context.Context, leg dom.Transfer) (bool, error) {
	done := false
	err := s.db.Tx(ctx, func(q repokit.Queryer) error {
		r := s.binder.Bind(q)
		if err := r.MarkTransferConfirmed(ctx, leg.ID); err != nil {
			return perr.DBf("confirm transfer %s: %v", leg.ID, err)
		}
		all, netHash, err := s.allConfirmed(ctx, r, leg.PayoutID)
		if err != nil {
			return err
		}
		if !all {
			return nil
		}
		p, err := r.ByID(ctx, leg.PayoutID)
		if err != nil {
			return perr.DBf("load payout %s: %v", leg.PayoutID, err)
		}
		if err := r.MarkPaid(ctx, p.ID, netHash); err != nil {
			return perr.DBf("mark payout %s paid: %v", p.ID, err)
		}
		p.Status = dom.StatusPaid
		p.TxHash = netHash
		if err := s.emitter.Emit(ctx, q, oxdom.TopicPayoutPaid, payoutEvent(p), p.ID+":paid"); err != nil {
			return err
		}
		done = true
		return nil
	})
	return done, err
}

func (s *Svc) allConfirmed(ctx context.Context, r prepo.Repo, payoutID string) (bool, string, error) {
	legs, err := r.TransfersForPayout(ctx, payoutID)
	if err != nil {
		return false, "", perr.DBf("list transfers for %s: %v", payoutID, err)
	}
	netHash := ""
	for _, leg := range legs {
		if leg.Status != dom.TransferConfirmed {
			return false, "", nil
		}
		if leg.Kind == dom.TransferNet {
			netHash = leg.TxHash
		}
	}
	return true, netHash, nil
}
