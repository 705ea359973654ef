// Package domain defines the artifact entities and ports
package domain

import "time"

// Artifact statuses
const (
	StatusStaging  = "staging"
	StatusScanning = "scanning"
	StatusScanned  = "scanned"
	StatusBlocked  = "blocked"
	StatusDeleted  = "deleted"
)

// Bucket roles
const (
	BucketStaging    = "staging"
	BucketClean      = "clean"
	BucketQuarantine = "quarantine"
)

// Artifact is one uploaded file moving through the scan pipeline
type Artifact struct {
	ID           string     `json:"id"`
	SubmissionID string     `json:"submission_id,omitempty"`
	JobID        string     `json:"job_id,omitempty"`
	WorkerID     string     `json:"worker_id,omitempty"`
	Kind         string     `json:"kind"`
	Label        string     `json:"label,omitempty"`
	SHA256       string     `json:"sha256,omitempty"`
	StorageKey   string     `json:"-"`
	Status       string     `json:"status"`
	BucketKind   string     `json:"bucket_kind"`
	ContentType  string     `json:"content_type"`
	SizeBytes    int64      `json:"size_bytes"`
	ScanReason   string     `json:"scan_reason,omitempty"`
	ExpiresAt    *time.Time `json:"expires_at,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
}

// Downloadable reports whether the gated download may serve this artifact
func (a Artifact) Downloadable() bool {
	return a.Status == StatusScanned && a.BucketKind == BucketClean
}
