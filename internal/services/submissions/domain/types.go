// Package domain defines the submission entities and ports
package domain

import "time"

// Submission statuses
const (
	StatusReceived  = "received"
	StatusVerifying = "verifying"
	StatusAccepted  = "accepted"
	StatusRejected  = "rejected"
	StatusDuplicate = "duplicate"
)

// Submission is a worker's completed proof for one job
type Submission struct {
	ID             string     `json:"id"`
	JobID          string     `json:"job_id"`
	WorkerID       string     `json:"worker_id"`
	BountyID       string     `json:"bounty_id"`
	Manifest       Manifest   `json:"manifest"`
	ArtifactIDs    []string   `json:"artifact_index,omitempty"`
	Status         string     `json:"status"`
	DedupeKey      string     `json:"-"`
	IdempotencyKey string     `json:"-"`
	AcceptedAt     *time.Time `json:"accepted_at,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
}

// Terminal reports whether the submission can change no further
func (s Submission) Terminal() bool {
	switch s.Status {
	case StatusAccepted, StatusRejected, StatusDuplicate:
		return true
	}
	return false
}
