// Package http provides upload and gated download transport
package http

import (
	"io"
	stdhttp "net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"proofwork/internal/modkit/httpkit"
	"proofwork/internal/platform/net/middleware"

	phttp "proofwork/internal/platform/net/http"
	dom "proofwork/internal/services/artifacts/domain"
	svc "proofwork/internal/services/artifacts/service"
)

// RegisterUploads mounts the staging routes behind worker auth
func RegisterUploads(r httpkit.Router, s svc.Service, worker middleware.AuthPort) {
	h := &handlers{svc: s}
	httpkit.Protected(r, worker, func(pr httpkit.Router) {
		httpkit.PostJSON[dom.PresignInput](pr, "/presign", h.presign)
		httpkit.PostJSON[dom.CompleteInput](pr, "/complete", h.complete)
		httpkit.Put(pr, "/{id}", h.upload)
	})
}

// RegisterDownloads mounts the gated artifact download. reader is the
// combined worker/buyer/verifier/admin auth
func RegisterDownloads(r httpkit.Router, s svc.Service, reader middleware.AuthPort) {
	h := &handlers{svc: s}
	httpkit.Protected(r, reader, func(pr httpkit.Router) {
		pr.Get("/{id}", h.download)
	})
}

type handlers struct{ svc svc.Service }

// @Summary Reserve upload slots for a job's evidence
// @Tags artifacts
// @Accept json
// @Produce json
// @Param payload body domain.PresignInput true "Files"
// @Success 200 {array} domain.PresignedFile "ok"
// @Router /uploads/presign [post]
func (h *handlers) presign(r *stdhttp.Request, in dom.PresignInput) (any, error) {
	workerID, err := httpkit.Worker(r)
	if err != nil {
		return nil, err
	}
	return h.svc.Presign(r.Context(), workerID, in)
}

// @Summary Report a finished upload with its digest
// @Tags artifacts
// @Accept json
// @Produce json
// @Param payload body domain.CompleteInput true "Digest"
// @Success 200 {object} domain.Artifact "ok"
// @Router /uploads/complete [post]
func (h *handlers) complete(r *stdhttp.Request, in dom.CompleteInput) (any, error) {
	workerID, err := httpkit.Worker(r)
	if err != nil {
		return nil, err
	}
	return h.svc.Complete(r.Context(), workerID, in)
}

// @Summary Upload artifact bytes into a reserved slot
// @Tags artifacts
// @Success 200 {object} map[string]bool "ok"
// @Router /uploads/{id} [put]
func (h *handlers) upload(r *stdhttp.Request) (any, error) {
	workerID, err := httpkit.Worker(r)
	if err != nil {
		return nil, err
	}
	defer r.Body.Close()
	if err := h.svc.Upload(r.Context(), workerID, chi.URLParam(r, "id"), r.Body); err != nil {
		return nil, err
	}
	return map[string]bool{"uploaded": true}, nil
}

// download streams the blob, so it bypasses the JSON envelope
func (h *handlers) download(w stdhttp.ResponseWriter, r *stdhttp.Request) {
	kind, id := httpkit.Actor(r)
	caller := dom.Caller{Kind: kind, ID: id}
	if orgID, err := httpkit.Org(r); err == nil {
		caller.OrgID = orgID
	}

	a, rc, err := h.svc.Download(r.Context(), caller, chi.URLParam(r, "id"))
	if err != nil {
		phttp.RespondError(w, r, err)
		return
	}
	defer rc.Close()

	w.Header().Set("Content-Type", a.ContentType)
	w.Header().Set("Content-Length", strconv.FormatInt(a.SizeBytes, 10))
	w.Header().Set("X-Artifact-Sha256", a.SHA256)
	w.WriteHeader(stdhttp.StatusOK)
	_, _ = io.Copy(w, rc)
}
