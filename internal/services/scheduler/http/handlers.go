// Package http provides the worker-facing job transport
package http

import (
	stdhttp "net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"proofwork/internal/modkit/httpkit"
	"proofwork/internal/platform/net/middleware"
	dom "proofwork/internal/services/scheduler/domain"
	svc "proofwork/internal/services/scheduler/service"
)

// Register mounts the job routes behind worker auth. extra lets other
// modules hang routes under the same prefix and auth (submission intake)
func Register(r httpkit.Router, s svc.Service, worker middleware.AuthPort, extra func(httpkit.Router)) {
	h := &handlers{svc: s}
	httpkit.Protected(r, worker, func(pr httpkit.Router) {
		httpkit.Get(pr, "/next", h.next)
		httpkit.Post(pr, "/{id}/claim", h.claim)
		httpkit.PostJSON[renewInput](pr, "/{id}/renew", h.renew)
		httpkit.PostJSON[releaseInput](pr, "/{id}/release", h.release)
		if extra != nil {
			extra(pr)
		}
	})
}

type handlers struct{ svc svc.Service }

type renewInput struct {
	Nonce string `json:"nonce" validate:"required"`
}

type renewOutput struct {
	JobID     string    `json:"job_id"`
	ExpiresAt time.Time `json:"expires_at"`
}

type releaseInput struct {
	Nonce  string `json:"nonce" validate:"required"`
	Reason string `json:"reason,omitempty"`
}

// filtersFromQuery reads the optional selection filters off the URL
func filtersFromQuery(r *stdhttp.Request) dom.Filters {
	q := r.URL.Query()
	f := dom.Filters{
		PreferredTag: q.Get("preferred_tag"),
		TaskType:     q.Get("task_type"),
	}
	if v := q.Get("capability_tags"); v != "" {
		f.CapabilityTags = splitCSV(v)
	}
	if v := q.Get("exclude_job_ids"); v != "" {
		f.ExcludeJobIDs = splitCSV(v)
	}
	if v := q.Get("min_payout_cents"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil && n > 0 {
			f.MinPayoutCents = n
		}
	}
	return f
}

func splitCSV(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// @Summary Peek the best claimable job for the acting worker
// @Tags jobs
// @Produce json
// @Success 200 {object} domain.NextResult "ok or idle"
// @Router /jobs/next [get]
func (h *handlers) next(r *stdhttp.Request) (any, error) {
	workerID, err := httpkit.Worker(r)
	if err != nil {
		return nil, err
	}
	return h.svc.NextJob(r.Context(), workerID, filtersFromQuery(r))
}

// @Summary Claim a job under a fresh lease
// @Tags jobs
// @Produce json
// @Success 200 {object} domain.ClaimResult "ok"
// @Router /jobs/{id}/claim [post]
func (h *handlers) claim(r *stdhttp.Request) (any, error) {
	workerID, err := httpkit.Worker(r)
	if err != nil {
		return nil, err
	}
	return h.svc.ClaimJob(r.Context(), workerID, chi.URLParam(r, "id"))
}

// @Summary Extend the acting worker's lease
// @Tags jobs
// @Accept json
// @Produce json
// @Param payload body renewInput true "Lease nonce"
// @Success 200 {object} renewOutput "ok"
// @Router /jobs/{id}/renew [post]
func (h *handlers) renew(r *stdhttp.Request, in renewInput) (any, error) {
	workerID, err := httpkit.Worker(r)
	if err != nil {
		return nil, err
	}
	jobID := chi.URLParam(r, "id")
	exp, err := h.svc.RenewLease(r.Context(), workerID, jobID, in.Nonce)
	if err != nil {
		return nil, err
	}
	return renewOutput{JobID: jobID, ExpiresAt: exp}, nil
}

// @Summary Hand a leased job back to the pool
// @Tags jobs
// @Accept json
// @Produce json
// @Param payload body releaseInput true "Lease nonce and refusal reason"
// @Success 200 {object} map[string]bool "ok"
// @Router /jobs/{id}/release [post]
func (h *handlers) release(r *stdhttp.Request, in releaseInput) (any, error) {
	workerID, err := httpkit.Worker(r)
	if err != nil {
		return nil, err
	}
	if err := h.svc.ReleaseLease(r.Context(), workerID, chi.URLParam(r, "id"), in.Nonce, in.Reason); err != nil {
		return nil, err
	}
	return map[string]bool{"released": true}, nil
}
