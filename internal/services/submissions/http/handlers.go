// Package http provides the submission transport
package http

import (
	stdhttp "net/http"

	"github.com/go-chi/chi/v5"

	"proofwork/internal/modkit/httpkit"
	dom "proofwork/internal/services/submissions/domain"
)

// RegisterJobRoutes hangs the submit route under the worker-authed job
// prefix; the scheduler module passes its subrouter through here
func RegisterJobRoutes(pr httpkit.Router, s dom.Port) {
	h := &handlers{svc: s}
	httpkit.PostJSON[dom.SubmitInput](pr, "/{id}/submit", h.submit)
	httpkit.Get(pr, "/{id}/submission/{sid}", h.get)
}

type handlers struct{ svc dom.Port }

// @Summary Submit a proof pack for a leased job
// @Tags submissions
// @Accept json
// @Produce json
// @Param Idempotency-Key header string true "Retry-safe request key"
// @Param payload body domain.SubmitInput true "Manifest, artifact index, lease nonce"
// @Success 200 {object} domain.Submission "received, verifying, or duplicate"
// @Router /jobs/{id}/submit [post]
func (h *handlers) submit(r *stdhttp.Request, in dom.SubmitInput) (any, error) {
	workerID, err := httpkit.Worker(r)
	if err != nil {
		return nil, err
	}
	in.IdempotencyKey = r.Header.Get("Idempotency-Key")
	return h.svc.Submit(r.Context(), workerID, chi.URLParam(r, "id"), in)
}

// @Summary Fetch one submission
// @Tags submissions
// @Produce json
// @Success 200 {object} domain.Submission "ok"
// @Router /jobs/{id}/submission/{sid} [get]
func (h *handlers) get(r *stdhttp.Request) (any, error) {
	if _, err := httpkit.Worker(r); err != nil {
		return nil, err
	}
	return h.svc.ByID(r.Context(), chi.URLParam(r, "sid"))
}
