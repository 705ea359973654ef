// Package service implements identity: registration, sessions, API keys,
// worker tokens, and the per-surface auth ports
package service

import (
	"context"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"proofwork/internal/modkit"
	"proofwork/internal/modkit/repokit"
	perr "proofwork/internal/platform/errors"
	"proofwork/internal/platform/ids"

	dom "proofwork/internal/services/ident/domain"
	irepo "proofwork/internal/services/ident/repo"
)

// Config holds the identity secrets and knobs
type Config struct {
	WorkerTokenPepper string
	BuyerTokenPepper  string
	SessionTTL        time.Duration
	AdminTokens       []string
	VerifierTokens    []string
	WorkerRatePerMin  int
	RateBurst         int
}

// Service is the full identity surface
type Service interface {
	dom.RegistrarPort
	dom.DirectoryPort
	dom.AdminPort
	dom.RateLimiterPort
}

// Svc implements Service
type Svc struct {
	db     repokit.TxRunner
	binder repokit.Binder[irepo.Repo]
	repo   irepo.Repo
	cfg    Config
}

// New constructs the identity service
func New(deps modkit.Deps, cfg Config) *Svc {
	if cfg.SessionTTL <= 0 {
		cfg.SessionTTL = 24 * time.Hour
	}
	if cfg.WorkerRatePerMin <= 0 {
		cfg.WorkerRatePerMin = 120
	}
	if cfg.RateBurst <= 0 {
		cfg.RateBurst = 30
	}
	b := irepo.NewPG()
	return &Svc{
		db:     deps.PG,
		binder: b,
		repo:   b.Bind(deps.PG),
		cfg:    cfg,
	}
}

// RegisterOrg creates the org, its first user, and a live session in one tx
func (s *Svc) RegisterOrg(ctx context.Context, in dom.RegisterOrgInput) (dom.RegisterOrgOutput, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return dom.RegisterOrgOutput{}, perr.Internalf("hash password: %v", err)
	}

	out := dom.RegisterOrgOutput{
		OrgID:     ids.New(ids.PrefixOrg),
		OrgUserID: ids.New("usr"),
	}
	token := newSecret(32)
	csrf := newSecret(32)

	err = s.db.Tx(ctx, func(q repokit.Queryer) error {
		r := s.binder.Bind(q)
		if err := r.InsertOrg(ctx, dom.Org{
			ID:   out.OrgID,
			Name: strings.TrimSpace(in.Name),
		}); err != nil {
			return perr.FromPostgres(err, "insert org")
		}
		if err := r.InsertOrgUser(ctx, dom.OrgUser{
			ID:           out.OrgUserID,
			OrgID:        out.OrgID,
			Email:        strings.ToLower(strings.TrimSpace(in.Email)),
			PasswordHash: string(hash),
		}); err != nil {
			return perr.FromPostgres(err, "insert org user")
		}
		return r.InsertSession(ctx, dom.Session{
			ID:         ids.New(ids.PrefixSession),
			OrgUserID:  out.OrgUserID,
			OrgID:      out.OrgID,
			TokenHash:  hashSecret(token, s.cfg.BuyerTokenPepper),
			CSRFSecret: csrf,
			ExpiresAt:  time.Now().Add(s.cfg.SessionTTL),
		})
	})
	if err != nil {
		return dom.RegisterOrgOutput{}, err
	}

	out.SessionToken = token
	out.CSRFToken = csrf
	return out, nil
}

// Login verifies credentials and opens a session
func (s *Svc) Login(ctx context.Context, in dom.LoginInput) (dom.LoginOutput, error) {
	u, err := s.repo.OrgUserByEmail(ctx, strings.ToLower(strings.TrimSpace(in.Email)))
	if err != nil {
		return dom.LoginOutput{}, perr.Unauthorizedf("invalid credentials")
	}
	if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(in.Password)) != nil {
		return dom.LoginOutput{}, perr.Unauthorizedf("invalid credentials")
	}

	token := newSecret(32)
	csrf := newSecret(32)
	err = s.repo.InsertSession(ctx, dom.Session{
		ID:         ids.New(ids.PrefixSession),
		OrgUserID:  u.ID,
		OrgID:      u.OrgID,
		TokenHash:  hashSecret(token, s.cfg.BuyerTokenPepper),
		CSRFSecret: csrf,
		ExpiresAt:  time.Now().Add(s.cfg.SessionTTL),
	})
	if err != nil {
		return dom.LoginOutput{}, perr.DBf("insert session: %v", err)
	}
	return dom.LoginOutput{OrgID: u.OrgID, SessionToken: token, CSRFToken: csrf}, nil
}

// CreateKey mints an API key; the full key is returned exactly once
func (s *Svc) CreateKey(ctx context.Context, orgID string, in dom.CreateKeyInput) (dom.CreateKeyOutput, error) {
	prefix := newSecret(8)
	secret := newSecret(32)
	salt := newSecret(16)
	keyID := ids.New(ids.PrefixAPIKey)

	err := s.repo.InsertAPIKey(ctx, dom.APIKey{
		ID:        keyID,
		OrgID:     orgID,
		Name:      strings.TrimSpace(in.Name),
		KeyPrefix: prefix,
		KeyHash:   hashAPIKey(salt, secret, s.cfg.BuyerTokenPepper),
		Salt:      salt,
	})
	if err != nil {
		return dom.CreateKeyOutput{}, perr.FromPostgres(err, "insert api key")
	}
	return dom.CreateKeyOutput{
		KeyID:  keyID,
		APIKey: ComposeAPIKey(prefix, secret),
	}, nil
}

// RegisterWorker registers a worker agent and issues its bearer token
func (s *Svc) RegisterWorker(ctx context.Context, in dom.RegisterWorkerInput) (dom.RegisterWorkerOutput, error) {
	token := "pwt_" + newSecret(32)
	w := dom.Worker{
		ID:               ids.New(ids.PrefixWorker),
		DisplayName:      strings.TrimSpace(in.DisplayName),
		Capabilities:     in.Capabilities,
		FingerprintClass: in.FingerprintClass,
		Status:           dom.WorkerActive,
		TokenHash:        hashSecret(token, s.cfg.WorkerTokenPepper),
		RatePerMin:       s.cfg.WorkerRatePerMin,
	}

	verified := false
	if in.Payout != nil {
		if err := VerifyPayoutProof(in.Payout.ChainID, in.Payout.Address, in.Payout.SignedProof); err != nil {
			return dom.RegisterWorkerOutput{}, err
		}
		now := time.Now()
		w.PayoutChainID = in.Payout.ChainID
		w.PayoutAddress = strings.ToLower(in.Payout.Address)
		w.PayoutVerifiedAt = &now
		verified = true
	}

	if err := s.repo.InsertWorker(ctx, w); err != nil {
		return dom.RegisterWorkerOutput{}, perr.FromPostgres(err, "insert worker")
	}
	return dom.RegisterWorkerOutput{WorkerID: w.ID, Token: token, PayoutVerified: verified}, nil
}

// OrgByID returns the org or not_found
func (s *Svc) OrgByID(ctx context.Context, orgID string) (dom.Org, error) {
	o, err := s.repo.OrgByID(ctx, orgID)
	if err != nil {
		return dom.Org{}, perr.NotFoundf("org %s", orgID)
	}
	return o, nil
}

// WorkerByID returns the worker or not_found
func (s *Svc) WorkerByID(ctx context.Context, workerID string) (dom.Worker, error) {
	w, err := s.repo.WorkerByID(ctx, workerID)
	if err != nil {
		return dom.Worker{}, perr.NotFoundf("worker %s", workerID)
	}
	return w, nil
}

// BanWorker bans a worker from taking further jobs
func (s *Svc) BanWorker(ctx context.Context, workerID string) error {
	if err := s.repo.SetWorkerStatus(ctx, workerID, dom.WorkerBanned); err != nil {
		return perr.DBf("ban worker %s: %v", workerID, err)
	}
	return nil
}

// RateLimitWorker overrides a worker's request rate
func (s *Svc) RateLimitWorker(ctx context.Context, workerID string, perMin int) error {
	if perMin < 0 {
		return perr.InvalidArgf("rate must be non-negative")
	}
	if err := s.repo.SetWorkerRate(ctx, workerID, perMin); err != nil {
		return perr.DBf("rate limit worker %s: %v", workerID, err)
	}
	return nil
}
