// Package service implements origin ownership verification
package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"proofwork/internal/modkit"
	"proofwork/internal/modkit/repokit"
	perr "proofwork/internal/platform/errors"
	"proofwork/internal/platform/ids"

	dom "proofwork/internal/services/origins/domain"
	orepo "proofwork/internal/services/origins/repo"
)

// Config controls the verification probe
type Config struct {
	ProbeTimeout time.Duration
}

// Service is the full origin surface
type Service interface {
	dom.Port
	dom.CheckerPort
}

// Svc implements Service
type Svc struct {
	db     repokit.TxRunner
	binder repokit.Binder[orepo.Repo]
	repo   orepo.Repo
	client *http.Client
	cfg    Config
}

// New constructs the origin service
func New(deps modkit.Deps, cfg Config) *Svc {
	if cfg.ProbeTimeout <= 0 {
		cfg.ProbeTimeout = 10 * time.Second
	}
	b := orepo.NewPG()
	return &Svc{
		db:     deps.PG,
		binder: b,
		repo:   b.Bind(deps.PG),
		client: &http.Client{Timeout: cfg.ProbeTimeout},
		cfg:    cfg,
	}
}

// Create registers a pending ownership claim and returns the proof token
func (s *Svc) Create(ctx context.Context, orgID string, in dom.CreateInput) (dom.CreateOutput, error) {
	origin, err := dom.Normalize(in.Origin)
	if err != nil {
		return dom.CreateOutput{}, err
	}

	tok := make([]byte, 16)
	if _, err := rand.Read(tok); err != nil {
		return dom.CreateOutput{}, perr.Internalf("token: %v", err)
	}
	token := "pwo_" + hex.EncodeToString(tok)

	o := dom.Origin{
		ID:     ids.New(ids.PrefixOrigin),
		OrgID:  orgID,
		Origin: origin,
		Status: dom.StatusPending,
		Method: in.Method,
		Token:  token,
	}
	if err := s.repo.Insert(ctx, o); err != nil {
		return dom.CreateOutput{}, perr.FromPostgres(err, "insert origin")
	}

	return dom.CreateOutput{
		OriginID:    o.ID,
		Origin:      origin,
		Method:      in.Method,
		Token:       token,
		Instruction: instruction(in.Method, origin, token),
	}, nil
}

func instruction(method, origin, token string) string {
	switch method {
	case dom.MethodHeader:
		return fmt.Sprintf("serve %s: %s on GET %s/", dom.VerificationHeader, token, origin)
	default:
		return fmt.Sprintf("serve %q as the body of GET %s%s", token, origin, dom.WellKnownPath)
	}
}

// Verify probes the origin and transitions it to verified or failed
func (s *Svc) Verify(ctx context.Context, orgID, originID string) (dom.Origin, error) {
	o, err := s.repo.ByID(ctx, orgID, originID)
	if err != nil {
		return dom.Origin{}, perr.NotFoundf("origin %s", originID)
	}
	if o.Status == dom.StatusVerified {
		return o, nil
	}

	if err := s.repo.SetStatus(ctx, o.ID, dom.StatusVerifying, "", nil); err != nil {
		return dom.Origin{}, perr.DBf("set verifying: %v", err)
	}

	probeErr := s.probe(ctx, o)
	now := time.Now()
	if probeErr != nil {
		if err := s.repo.SetStatus(ctx, o.ID, dom.StatusFailed, probeErr.Error(), nil); err != nil {
			return dom.Origin{}, perr.DBf("set failed: %v", err)
		}
		o.Status = dom.StatusFailed
		o.LastError = probeErr.Error()
		return o, nil
	}

	if err := s.repo.SetStatus(ctx, o.ID, dom.StatusVerified, "", &now); err != nil {
		return dom.Origin{}, perr.DBf("set verified: %v", err)
	}
	o.Status = dom.StatusVerified
	o.LastError = ""
	o.VerifiedAt = &now
	return o, nil
}

// probe fetches the proof from the origin per the claim's method
func (s *Svc) probe(ctx context.Context, o dom.Origin) error {
	target := o.Origin + "/"
	if o.Method == dom.MethodHTTPFile {
		target = o.Origin + dom.WellKnownPath
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return perr.Internalf("build probe request: %v", err)
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return perr.Unavailablef("probe %s: %v", target, err)
	}
	defer resp.Body.Close()

	switch o.Method {
	case dom.MethodHeader:
		if got := resp.Header.Get(dom.VerificationHeader); got != o.Token {
			return perr.Newf(perr.ErrorCodeOriginNotVerified, "verification header missing or wrong")
		}
	case dom.MethodHTTPFile:
		if resp.StatusCode != http.StatusOK {
			return perr.Newf(perr.ErrorCodeOriginNotVerified, "proof file returned %d", resp.StatusCode)
		}
		body, err := io.ReadAll(io.LimitReader(resp.Body, 1024))
		if err != nil {
			return perr.Unavailablef("read proof file: %v", err)
		}
		if strings.TrimSpace(string(body)) != o.Token {
			return perr.Newf(perr.ErrorCodeOriginNotVerified, "proof file content mismatch")
		}
	default:
		return perr.InvalidArgf("unknown method %q", o.Method)
	}
	return nil
}

// List returns all claims for an org
func (s *Svc) List(ctx context.Context, orgID string) ([]dom.Origin, error) {
	out, err := s.repo.ByOrg(ctx, orgID)
	if err != nil {
		return nil, perr.DBf("list origins: %v", err)
	}
	return out, nil
}

// Verified reports whether the org has verified this exact origin
func (s *Svc) Verified(ctx context.Context, orgID, origin string) (bool, error) {
	norm, err := dom.Normalize(origin)
	if err != nil {
		return false, err
	}
	ok, err := s.repo.IsVerified(ctx, orgID, norm)
	if err != nil {
		return false, perr.DBf("check origin: %v", err)
	}
	return ok, nil
}

// VerifiedOrigins lists the org's verified origins
func (s *Svc) VerifiedOrigins(ctx context.Context, orgID string) ([]string, error) {
	out, err := s.repo.VerifiedOrigins(ctx, orgID)
	if err != nil {
		return nil, perr.DBf("list verified origins: %v", err)
	}
	return out, nil
}
