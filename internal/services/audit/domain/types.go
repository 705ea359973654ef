// Package domain defines the audit trail types and ports
package domain

import "time"

// Actor kinds on an audit entry
const (
	ActorAdmin  = "admin"
	ActorSystem = "system"
)

// Entry is one immutable audit row. Detail carries action-specific
// context and lands in the jsonb column as-is
type Entry struct {
	ID         string         `json:"id"`
	ActorKind  string         `json:"actor_kind"`
	ActorID    string         `json:"actor_id"`
	Action     string         `json:"action"`
	TargetKind string         `json:"target_kind"`
	TargetID   string         `json:"target_id"`
	Detail     map[string]any `json:"detail,omitempty"`
	CreatedAt  time.Time      `json:"created_at"`
}
