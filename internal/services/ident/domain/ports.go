package domain

import (
	"context"

	"proofwork/internal/platform/net/middleware"
)

// RegisterOrgInput creates an org plus its first user and session
type RegisterOrgInput struct {
	Name     string `json:"name" validate:"required,min=1,max=120"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=10,max=200"`
}

// RegisterOrgOutput carries the fresh credentials
type RegisterOrgOutput struct {
	OrgID        string `json:"org_id"`
	OrgUserID    string `json:"org_user_id"`
	SessionToken string `json:"session_token"`
	CSRFToken    string `json:"csrf_token"`
}

// LoginInput authenticates an org user
type LoginInput struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// LoginOutput carries a fresh session
type LoginOutput struct {
	OrgID        string `json:"org_id"`
	SessionToken string `json:"session_token"`
	CSRFToken    string `json:"csrf_token"`
}

// CreateKeyInput mints an API key for the acting org
type CreateKeyInput struct {
	Name string `json:"name" validate:"required,min=1,max=120"`
}

// CreateKeyOutput returns the full key exactly once
type CreateKeyOutput struct {
	KeyID  string `json:"key_id"`
	APIKey string `json:"api_key"`
}

// PayoutIdentityInput is the worker's signed payout address proof
type PayoutIdentityInput struct {
	ChainID     int64  `json:"chain_id"`
	Address     string `json:"address"`
	SignedProof string `json:"signed_proof"`
}

// RegisterWorkerInput registers a worker agent
type RegisterWorkerInput struct {
	DisplayName      string               `json:"display_name" validate:"required,min=1,max=120"`
	Capabilities     []string             `json:"capabilities" validate:"required,min=1,dive,min=1"`
	FingerprintClass string               `json:"fingerprint_class" validate:"required,min=1,max=64"`
	Payout           *PayoutIdentityInput `json:"payout,omitempty"`
}

// RegisterWorkerOutput carries the bearer token, shown exactly once
type RegisterWorkerOutput struct {
	WorkerID       string `json:"worker_id"`
	Token          string `json:"token"`
	PayoutVerified bool   `json:"payout_verified"`
}

// RegistrarPort is the self-serve registration surface
type RegistrarPort interface {
	RegisterOrg(ctx context.Context, in RegisterOrgInput) (RegisterOrgOutput, error)
	Login(ctx context.Context, in LoginInput) (LoginOutput, error)
	CreateKey(ctx context.Context, orgID string, in CreateKeyInput) (CreateKeyOutput, error)
	RegisterWorker(ctx context.Context, in RegisterWorkerInput) (RegisterWorkerOutput, error)
}

// AuthPorts are the per-surface credential parsers
type AuthPorts struct {
	Buyer    middleware.AuthPort
	Worker   middleware.AuthPort
	Verifier middleware.AuthPort
	Admin    middleware.AuthPort
}

// DirectoryPort is the read surface other modules use
type DirectoryPort interface {
	OrgByID(ctx context.Context, orgID string) (Org, error)
	WorkerByID(ctx context.Context, workerID string) (Worker, error)
}

// AdminPort mutates worker standing; callers audit separately
type AdminPort interface {
	BanWorker(ctx context.Context, workerID string) error
	RateLimitWorker(ctx context.Context, workerID string, perMin int) error
}

// RateLimiterPort is a durable token bucket keyed by caller
type RateLimiterPort interface {
	// Allow consumes one token for key, refilling at perMin up to burst
	Allow(ctx context.Context, key string, perMin, burst int) error
}
