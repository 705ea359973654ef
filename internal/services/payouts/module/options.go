package module

import (
	"strconv"
	"strings"
	"time"

	"proofwork/internal/platform/config"
	psvc "proofwork/internal/services/payouts/service"
)

// Options carries the service tuning plus the chain client wiring
type Options struct {
	Service psvc.Config
	EVM     psvc.EVMConfig
}

// FromConfig reads with PAYOUT_ prefix. The fee takes its well-known
// top-level name. Chain maps are CSV pairs like "8453=https://..."
func FromConfig(cfg config.Conf) Options {
	c := cfg.Prefix("PAYOUT_")
	return Options{
		Service: psvc.Config{
			ServiceFeeBps: cfg.MayInt("SERVICE_FEE_BPS", 100),
			FeeWallet:     c.MayString("FEE_WALLET", ""),
			MaxAttempts:   c.MayInt("MAX_ATTEMPTS", 3),
			SettleEvery:   c.MayDuration("SETTLE_EVERY", 30*time.Second),
			SettleBatch:   c.MayInt("SETTLE_BATCH", 50),
		},
		EVM: psvc.EVMConfig{
			PrivateKeyHex: c.MayString("SENDER_KEY", ""),
			RPCByChain:    chainMap(c.MayCSV("RPC_URLS", nil)),
			TokenByChain:  chainMap(c.MayCSV("TOKENS", nil)),
		},
	}
}

// chainMap parses "chainID=value" pairs, skipping anything malformed
func chainMap(pairs []string) map[int64]string {
	out := make(map[int64]string, len(pairs))
	for _, p := range pairs {
		k, v, ok := strings.Cut(p, "=")
		if !ok {
			continue
		}
		id, err := strconv.ParseInt(strings.TrimSpace(k), 10, 64)
		if err != nil {
			continue
		}
		out[id] = strings.TrimSpace(v)
	}
	return out
}
