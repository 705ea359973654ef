package domain

import (
	"context"
	"io"

	"proofwork/internal/modkit/repokit"
	pnet "proofwork/internal/platform/net"
)

// FileSpec describes one file a worker wants to stage
type FileSpec struct {
	Filename    string `json:"filename" validate:"required,min=1,max=255"`
	ContentType string `json:"content_type" validate:"required,min=1,max=255"`
	SizeBytes   int64  `json:"size_bytes" validate:"required,gt=0"`
	Kind        string `json:"kind" validate:"required,min=1,max=64"`
	Label       string `json:"label,omitempty" validate:"omitempty,max=128"`
}

// PresignInput reserves staging slots for a job's evidence
type PresignInput struct {
	JobID string     `json:"job_id" validate:"required"`
	Files []FileSpec `json:"files" validate:"required,min=1,max=32,dive"`
}

// PresignedFile is one reserved upload slot
type PresignedFile struct {
	ArtifactID string            `json:"artifact_id"`
	URL        string            `json:"url"`
	Headers    map[string]string `json:"headers,omitempty"`
	FinalURL   string            `json:"final_url"`
}

// CompleteInput reports a finished upload
type CompleteInput struct {
	ArtifactID string `json:"artifact_id" validate:"required"`
	SHA256     string `json:"sha256" validate:"required,len=64,hexadecimal"`
	SizeBytes  int64  `json:"size_bytes" validate:"required,gt=0"`
}

// Port is the worker-facing staging surface
type Port interface {
	Presign(ctx context.Context, workerID string, in PresignInput) ([]PresignedFile, error)
	Complete(ctx context.Context, workerID string, in CompleteInput) (Artifact, error)
}

// Caller identifies the principal asking for artifact bytes
type Caller struct {
	Kind  pnet.ActorKind
	ID    string
	OrgID string
}

// BlobPort moves artifact bytes for the local backend
type BlobPort interface {
	// Upload streams the body into the artifact's staging slot
	Upload(ctx context.Context, workerID, artifactID string, body io.Reader) error

	// Download serves the artifact iff it is scanned, clean, and the
	// caller may see it
	Download(ctx context.Context, caller Caller, artifactID string) (Artifact, io.ReadCloser, error)
}

// GuardPort is the cross-module check submission intake performs
type GuardPort interface {
	// ScannedOwnedOn fails unless every artifact is scanned, clean, and
	// owned by the worker
	ScannedOwnedOn(ctx context.Context, q repokit.Queryer, workerID string, artifactIDs []string) error

	// AttachOn binds staged artifacts to a submission
	AttachOn(ctx context.Context, q repokit.Queryer, submissionID string, artifactIDs []string) error
}

// ScannerPort runs the scan worker
type ScannerPort interface {
	RunScanner(ctx context.Context) error
	ScanOnce(ctx context.Context) (int, error)
}

// ScanResult is an engine's judgment of one artifact
type ScanResult struct {
	Clean  bool
	Reason string
}

// Engine is the pluggable scan implementation
type Engine interface {
	Name() string
	Scan(ctx context.Context, a Artifact, body io.Reader) (ScanResult, error)
}

// Store is the blob backend behind the bucket roles
type Store interface {
	Put(ctx context.Context, key string, body io.Reader) (written int64, sha256Hex string, err error)
	Get(ctx context.Context, key string) (io.ReadCloser, error)
	Move(ctx context.Context, fromKey, toKey string) error
	Delete(ctx context.Context, key string) error
}
