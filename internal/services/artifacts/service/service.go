// Package service implements artifact staging, the scan pipeline, and
// the gated download
package service

import (
	"context"
	"io"
	"strings"
	"time"

	"proofwork/internal/modkit"
	"proofwork/internal/modkit/repokit"
	perr "proofwork/internal/platform/errors"
	"proofwork/internal/platform/ids"
	pnet "proofwork/internal/platform/net"

	dom "proofwork/internal/services/artifacts/domain"
	arepo "proofwork/internal/services/artifacts/repo"
	bdom "proofwork/internal/services/bounties/domain"
	oxdom "proofwork/internal/services/outbox/domain"
	sdom "proofwork/internal/services/scheduler/domain"
)

// Config sizes the store and the scan loop
type Config struct {
	PublicBaseURL string
	MaxFileBytes  int64
	MaxJobBytes   int64
	ScanEvery     time.Duration
	ScanBatch     int
}

// Service is the full artifact surface
type Service interface {
	dom.Port
	dom.BlobPort
	dom.GuardPort
	dom.ScannerPort
}

// Svc implements Service
type Svc struct {
	db       repokit.TxRunner
	binder   repokit.Binder[arepo.Repo]
	repo     arepo.Repo
	store    dom.Store
	engine   dom.Engine
	jobs     sdom.TransitionPort
	bounties bdom.ReaderPort
	emitter  oxdom.EmitterPort
	cfg      Config
}

// New constructs the artifact service
func New(
	deps modkit.Deps,
	cfg Config,
	store dom.Store,
	engine dom.Engine,
	jobs sdom.TransitionPort,
	bounties bdom.ReaderPort,
	emitter oxdom.EmitterPort,
) *Svc {
	b := arepo.NewPG()
	if cfg.MaxFileBytes <= 0 {
		cfg.MaxFileBytes = 64 << 20
	}
	if cfg.MaxJobBytes <= 0 {
		cfg.MaxJobBytes = 512 << 20
	}
	if cfg.ScanEvery <= 0 {
		cfg.ScanEvery = 2 * time.Second
	}
	if cfg.ScanBatch <= 0 {
		cfg.ScanBatch = 16
	}
	return &Svc{
		db:       deps.PG,
		binder:   b,
		repo:     b.Bind(deps.PG),
		store:    store,
		engine:   engine,
		jobs:     jobs,
		bounties: bounties,
		emitter:  emitter,
		cfg:      cfg,
	}
}

// Presign reserves staging rows and returns upload slots
func (s *Svc) Presign(ctx context.Context, workerID string, in dom.PresignInput) ([]dom.PresignedFile, error) {
	if _, err := s.jobs.JobByIDOn(ctx, s.db, in.JobID); err != nil {
		return nil, err
	}

	var incoming int64
	for _, f := range in.Files {
		if f.SizeBytes > s.cfg.MaxFileBytes {
			return nil, perr.Newf(perr.ErrorCodeArtifactTooLarge,
				"%s is %d bytes, per-file cap is %d", f.Filename, f.SizeBytes, s.cfg.MaxFileBytes)
		}
		incoming += f.SizeBytes
	}
	staged, err := s.repo.JobBytes(ctx, in.JobID)
	if err != nil {
		return nil, perr.DBf("sum job artifacts: %v", err)
	}
	if staged+incoming > s.cfg.MaxJobBytes {
		return nil, perr.Newf(perr.ErrorCodeArtifactTooLarge,
			"job artifact budget exceeded: %d + %d > %d", staged, incoming, s.cfg.MaxJobBytes)
	}

	out := make([]dom.PresignedFile, 0, len(in.Files))
	err = s.db.Tx(ctx, func(q repokit.Queryer) error {
		r := s.binder.Bind(q)
		now := time.Now()
		for _, f := range in.Files {
			id := ids.New(ids.PrefixArtifact)
			exp := arepo.StagingExpiry(now)
			a := dom.Artifact{
				ID:          id,
				JobID:       in.JobID,
				WorkerID:    workerID,
				Kind:        f.Kind,
				Label:       f.Label,
				StorageKey:  dom.BucketStaging + "/" + id,
				Status:      dom.StatusStaging,
				BucketKind:  dom.BucketStaging,
				ContentType: f.ContentType,
				SizeBytes:   f.SizeBytes,
				ExpiresAt:   &exp,
			}
			if err := r.Insert(ctx, a); err != nil {
				return perr.FromPostgres(err, "insert artifact")
			}
			out = append(out, dom.PresignedFile{
				ArtifactID: id,
				URL:        s.cfg.PublicBaseURL + "/api/uploads/" + id,
				Headers:    map[string]string{"Content-Type": f.ContentType},
				FinalURL:   s.cfg.PublicBaseURL + "/api/artifacts/" + id,
			})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Upload streams the body into the staging slot, hashing as it lands.
// The declared size from presign is the hard cap
func (s *Svc) Upload(ctx context.Context, workerID, artifactID string, body io.Reader) error {
	a, err := s.repo.ByIDForWorker(ctx, workerID, artifactID)
	if err != nil {
		return perr.Newf(perr.ErrorCodeArtifactNotFound, "artifact %s", artifactID)
	}
	if a.Status != dom.StatusStaging {
		return perr.Conflictf("artifact %s is %s, uploads only land in staging", artifactID, a.Status)
	}

	n, sha, err := s.store.Put(ctx, a.StorageKey, io.LimitReader(body, a.SizeBytes+1))
	if err != nil {
		return err
	}
	if n > a.SizeBytes {
		_ = s.store.Delete(ctx, a.StorageKey)
		return perr.Newf(perr.ErrorCodeArtifactTooLarge,
			"artifact %s exceeds its declared %d bytes", artifactID, a.SizeBytes)
	}

	ok, err := s.repo.SetUploaded(ctx, workerID, artifactID, sha, n)
	if err != nil {
		return perr.DBf("record upload: %v", err)
	}
	if !ok {
		return perr.Conflictf("artifact %s moved while uploading", artifactID)
	}
	return nil
}

// Complete checks the worker's digest against what actually landed
func (s *Svc) Complete(ctx context.Context, workerID string, in dom.CompleteInput) (dom.Artifact, error) {
	a, err := s.repo.ByIDForWorker(ctx, workerID, in.ArtifactID)
	if err != nil {
		return dom.Artifact{}, perr.Newf(perr.ErrorCodeArtifactNotFound, "artifact %s", in.ArtifactID)
	}
	if a.SHA256 == "" {
		return dom.Artifact{}, perr.InvalidArgf("artifact %s has no uploaded bytes", in.ArtifactID)
	}
	if !strings.EqualFold(in.SHA256, a.SHA256) || in.SizeBytes != a.SizeBytes {
		return dom.Artifact{}, perr.InvalidArgf(
			"artifact %s digest mismatch: uploaded bytes do not match the report", in.ArtifactID)
	}
	return a, nil
}

// Download enforces the scan gate and caller authorization
func (s *Svc) Download(ctx context.Context, caller dom.Caller, artifactID string) (dom.Artifact, io.ReadCloser, error) {
	a, err := s.repo.ByID(ctx, artifactID)
	if err != nil {
		return dom.Artifact{}, nil, perr.Newf(perr.ErrorCodeArtifactNotFound, "artifact %s", artifactID)
	}
	if err := s.authorize(ctx, caller, a); err != nil {
		return dom.Artifact{}, nil, err
	}

	switch a.Status {
	case dom.StatusScanned:
	case dom.StatusStaging, dom.StatusScanning:
		return dom.Artifact{}, nil, perr.Newf(perr.ErrorCodeArtifactScanning, "artifact %s is still being scanned", artifactID)
	case dom.StatusBlocked:
		return dom.Artifact{}, nil, perr.Newf(perr.ErrorCodeArtifactBlocked, "artifact %s was quarantined: %s", artifactID, a.ScanReason)
	default:
		return dom.Artifact{}, nil, perr.Newf(perr.ErrorCodeArtifactNotFound, "artifact %s", artifactID)
	}

	rc, err := s.store.Get(ctx, a.StorageKey)
	if err != nil {
		return dom.Artifact{}, nil, err
	}
	return a, rc, nil
}

func (s *Svc) authorize(ctx context.Context, caller dom.Caller, a dom.Artifact) error {
	switch caller.Kind {
	case pnet.ActorAdmin, pnet.ActorVerifier:
		return nil
	case pnet.ActorWorker:
		if caller.ID == a.WorkerID {
			return nil
		}
	case pnet.ActorBuyer:
		if a.JobID == "" || caller.OrgID == "" {
			break
		}
		j, err := s.jobs.JobByIDOn(ctx, s.db, a.JobID)
		if err != nil {
			return err
		}
		b, err := s.bounties.ByID(ctx, j.BountyID)
		if err != nil {
			return err
		}
		if b.OrgID == caller.OrgID {
			return nil
		}
	}
	return perr.Forbiddenf("artifact %s is not visible to this caller", a.ID)
}

// ScannedOwnedOn fails unless every artifact is scanned, clean, and
// owned by the worker. Runs on the caller's Queryer
func (s *Svc) ScannedOwnedOn(ctx context.Context, q repokit.Queryer, workerID string, artifactIDs []string) error {
	if len(artifactIDs) == 0 {
		return nil
	}
	arts, err := s.binder.Bind(q).ByIDs(ctx, artifactIDs)
	if err != nil {
		return perr.DBf("load artifacts: %v", err)
	}
	byID := make(map[string]dom.Artifact, len(arts))
	for _, a := range arts {
		byID[a.ID] = a
	}
	for _, id := range artifactIDs {
		a, ok := byID[id]
		if !ok {
			return perr.Newf(perr.ErrorCodeArtifactNotFound, "artifact %s", id)
		}
		if a.WorkerID != workerID {
			return perr.Forbiddenf("artifact %s belongs to another worker", id)
		}
		if a.Status == dom.StatusBlocked {
			return perr.Newf(perr.ErrorCodeArtifactBlocked, "artifact %s was quarantined: %s", id, a.ScanReason)
		}
		if !a.Downloadable() {
			return perr.Newf(perr.ErrorCodeArtifactScanning, "artifact %s has not finished scanning", id)
		}
	}
	return nil
}

// AttachOn binds staged artifacts to a submission on the caller's Queryer
func (s *Svc) AttachOn(ctx context.Context, q repokit.Queryer, submissionID string, artifactIDs []string) error {
	if len(artifactIDs) == 0 {
		return nil
	}
	if err := s.binder.Bind(q).Attach(ctx, submissionID, artifactIDs); err != nil {
		return perr.DBf("attach artifacts: %v", err)
	}
	return nil
}
