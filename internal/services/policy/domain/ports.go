// Package domain declares the policy and preflight ports
package domain

import (
	"context"

	bdom "proofwork/internal/services/bounties/domain"
)

// Enforcement modes for the origin allowlist
const (
	EnforcementStrict = "strict"
	EnforcementOff    = "off"
)

// Port gates what a worker is allowed to run
type Port interface {
	// Preflight applies every policy gate to a descriptor before a worker
	// may claim the job: origin enforcement, the no-login heuristic and
	// the inline-JS ban. allowedOrigins is the bounty's allowlist
	Preflight(ctx context.Context, allowedOrigins []string, d bdom.TaskDescriptor) error

	// CheckOrigin enforces the allowlist and blocked domains for a single URL
	CheckOrigin(rawURL string, allowedOrigins []string) error

	// EffectiveTags returns supported minus tags whose subsystem probe fails
	EffectiveTags(ctx context.Context, supported []string) []string

	// CanaryAllows reports whether the canary gate admits this job.
	// Stable per job so refuse caches stay coherent
	CanaryAllows(jobID string, canaryPercent float64) bool
}

// RefusePort is the per-replica refuse cache fed back into job selection
type RefusePort interface {
	Refuse(workerID, jobID, reason string)
	Excluded(workerID string) []string
}

// ProbeFunc reports subsystem health. A nil error means healthy
type ProbeFunc func(ctx context.Context) error
