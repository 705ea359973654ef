package domain

import (
	"context"
	"encoding/json"
	"time"

	"proofwork/internal/modkit/repokit"

	subdom "proofwork/internal/services/submissions/domain"
)

// ClaimInput asks for one queued verification to work on
type ClaimInput struct {
	// SubmissionID narrows the pick; empty means any queued attempt
	SubmissionID string `json:"submission_id,omitempty"`
	AttemptNo    int    `json:"attempt_no,omitempty"`
	MessageID    string `json:"message_id,omitempty"`
	IdemKey      string `json:"idem_key" validate:"required,min=1,max=128"`
	TTLSec       int    `json:"ttl_sec,omitempty" validate:"omitempty,gte=30,lte=3600"`
}

// ClaimOutput hands the verifier its work order
type ClaimOutput struct {
	VerificationID string            `json:"verification_id"`
	AttemptNo      int               `json:"attempt_no"`
	ClaimToken     string            `json:"claim_token"`
	ClaimExpiresAt time.Time         `json:"claim_expires_at"`
	Submission     subdom.Submission `json:"submission"`
}

// VerdictInput reports the outcome of a claimed verification
type VerdictInput struct {
	VerificationID    string          `json:"verification_id" validate:"required"`
	ClaimToken        string          `json:"claim_token" validate:"required"`
	Verdict           string          `json:"verdict" validate:"required,oneof=pass fail inconclusive"`
	Reason            string          `json:"reason,omitempty" validate:"omitempty,max=2000"`
	Scorecard         json.RawMessage `json:"scorecard,omitempty"`
	EvidenceArtifacts []string        `json:"evidence_artifacts,omitempty" validate:"omitempty,max=16"`
}

// VerdictOutput reports where aggregation left things
type VerdictOutput struct {
	VerificationStatus string `json:"verification_status"`
	SubmissionStatus   string `json:"submission_status"`
	JobStatus          string `json:"job_status"`
}

// Port is the verifier-pool surface
type Port interface {
	Claim(ctx context.Context, verifierID string, in ClaimInput) (ClaimOutput, error)
	Verdict(ctx context.Context, verifierID string, in VerdictInput) (VerdictOutput, error)
}

// IntakePort bootstraps verification for a fresh submission on the
// caller's Queryer
type IntakePort interface {
	OpenAttemptOn(ctx context.Context, q repokit.Queryer, submissionID string, attemptNo int) error
}

// SweeperPort requeues expired verifier claims
type SweeperPort interface {
	RunSweeper(ctx context.Context) error
	SweepOnce(ctx context.Context) (int, error)
}

// AdminPort bypasses aggregation; callers audit separately
type AdminPort interface {
	ForceRequeue(ctx context.Context, verificationID string) error
	OverrideVerdict(ctx context.Context, submissionID, verdict, reason string) (VerdictOutput, error)
	MarkDuplicate(ctx context.Context, submissionID, reason string) (VerdictOutput, error)
}
