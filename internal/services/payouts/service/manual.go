package service

import (
	"context"

	perr "proofwork/internal/platform/errors"
	dom "proofwork/internal/services/payouts/domain"
)

// ManualChain is the chain client for deployments without a sender
// key. Nothing broadcasts; operators settle through the admin surface
type ManualChain struct{}

var _ dom.ChainPort = ManualChain{}

// Sender always refuses so due holds stay queued instead of failing
func (ManualChain) Sender(int64) (string, error) {
	return "", perr.Unavailablef("on-chain payouts are not configured")
}

// Transfer never broadcasts
func (ManualChain) Transfer(context.Context, int64, uint64, string, int64) (string, error) {
	return "", perr.Unavailablef("on-chain payouts are not configured")
}

// Confirmed never confirms
func (ManualChain) Confirmed(context.Context, int64, string) (bool, error) {
	return false, nil
}
