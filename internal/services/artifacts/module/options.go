package module

import (
	"time"

	"proofwork/internal/platform/config"
	asvc "proofwork/internal/services/artifacts/service"
)

// Options carries the store location, engine choice, and service tuning
type Options struct {
	Root    string
	Engine  string
	Service asvc.Config
}

// FromConfig reads with ARTIFACTS_ prefix; the engine and the
// submission byte budget keep their well-known top-level names
func FromConfig(cfg config.Conf) Options {
	c := cfg.Prefix("ARTIFACTS_")
	return Options{
		Root:   c.MayString("ROOT", "/var/lib/proofwork/artifacts"),
		Engine: cfg.MayEnum("SCANNER_ENGINE", asvc.EngineMagic, asvc.EngineMagic, asvc.EngineNoop),
		Service: asvc.Config{
			PublicBaseURL: c.MayString("PUBLIC_BASE_URL", ""),
			MaxFileBytes:  int64(c.MayInt("MAX_FILE_BYTES", 64<<20)),
			MaxJobBytes:   int64(cfg.MayInt("MAX_SUBMISSION_ARTIFACTS_BYTES", 512<<20)),
			ScanEvery:     c.MayDuration("SCAN_EVERY", 2*time.Second),
			ScanBatch:     c.MayInt("SCAN_BATCH", 16),
		},
	}
}
