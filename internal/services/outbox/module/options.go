package module

import (
	"os"
	"time"

	"proofwork/internal/platform/config"
)

// Options controls the outbox dispatcher and reaper
type Options struct {
	ReplicaID     string
	Batch         int
	MaxAttempts   int
	SinkTimeout   time.Duration
	PollEvery     time.Duration
	ReapEvery     time.Duration
	RetainSent    time.Duration
	WebhookURL    string
	WebhookSecret string
}

// FromConfig reads with OUTBOX_ prefix
func FromConfig(cfg config.Conf) Options {
	c := cfg.Prefix("OUTBOX_")
	host, _ := os.Hostname()
	if host == "" {
		host = "outbox"
	}
	return Options{
		ReplicaID:     c.MayString("REPLICA_ID", host),
		Batch:         c.MayInt("BATCH", 32),
		MaxAttempts:   c.MayInt("MAX_ATTEMPTS", 12),
		SinkTimeout:   c.MayDuration("SINK_TIMEOUT", 10*time.Second),
		PollEvery:     c.MayDuration("POLL_EVERY", 500*time.Millisecond),
		ReapEvery:     c.MayDuration("REAP_EVERY", time.Hour),
		RetainSent:    c.MayDuration("RETAIN_SENT", 7*24*time.Hour),
		WebhookURL:    c.MayString("WEBHOOK_URL", ""),
		WebhookSecret: c.MayString("WEBHOOK_SECRET", ""),
	}
}
