package module

import (
	"time"

	"proofwork/internal/platform/config"
	asvc "proofwork/internal/services/audit/service"
)

// FromConfig reads the mirror tuning with AUDIT_ prefix
func FromConfig(cfg config.Conf) asvc.Config {
	c := cfg.Prefix("AUDIT_")
	return asvc.Config{
		MirrorEvery: c.MayDuration("MIRROR_EVERY", time.Minute),
		MirrorBatch: c.MayInt("MIRROR_BATCH", 500),
		MirrorTable: c.MayString("MIRROR_TABLE", "audit_log"),
	}
}
