package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"os"
	"path/filepath"

	perr "proofwork/internal/platform/errors"

	dom "proofwork/internal/services/artifacts/domain"
)

// FSStore keeps artifact bytes on the local filesystem under one root,
// with bucket roles as subdirectories. Keys use forward slashes
type FSStore struct {
	root string
}

var _ dom.Store = (*FSStore)(nil)

// NewFSStore returns a filesystem-backed blob store rooted at dir
func NewFSStore(dir string) *FSStore { return &FSStore{root: dir} }

func (s *FSStore) path(key string) string {
	return filepath.Join(s.root, filepath.FromSlash(key))
}

// Put streams body into key, hashing as it writes. Partial writes are
// cleaned up
func (s *FSStore) Put(_ context.Context, key string, body io.Reader) (int64, string, error) {
	dst := s.path(key)
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return 0, "", perr.Internalf("prepare blob dir: %v", err)
	}

	tmp := dst + ".partial"
	f, err := os.Create(tmp)
	if err != nil {
		return 0, "", perr.Internalf("create blob: %v", err)
	}

	h := sha256.New()
	n, err := io.Copy(io.MultiWriter(f, h), body)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		_ = os.Remove(tmp)
		return 0, "", perr.Internalf("write blob: %v", err)
	}
	if err := os.Rename(tmp, dst); err != nil {
		_ = os.Remove(tmp)
		return 0, "", perr.Internalf("finalize blob: %v", err)
	}
	return n, hex.EncodeToString(h.Sum(nil)), nil
}

func (s *FSStore) Get(_ context.Context, key string) (io.ReadCloser, error) {
	f, err := os.Open(s.path(key))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, perr.Newf(perr.ErrorCodeArtifactNotFound, "blob %s not found", key)
		}
		return nil, perr.Internalf("open blob: %v", err)
	}
	return f, nil
}

func (s *FSStore) Move(_ context.Context, fromKey, toKey string) error {
	dst := s.path(toKey)
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return perr.Internalf("prepare blob dir: %v", err)
	}
	if err := os.Rename(s.path(fromKey), dst); err != nil {
		return perr.Internalf("move blob %s: %v", fromKey, err)
	}
	return nil
}

func (s *FSStore) Delete(_ context.Context, key string) error {
	if err := os.Remove(s.path(key)); err != nil && !os.IsNotExist(err) {
		return perr.Internalf("delete blob %s: %v", key, err)
	}
	return nil
}
