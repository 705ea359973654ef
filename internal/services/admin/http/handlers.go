// Package http provides the operator transport
package http

import (
	stdhttp "net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"proofwork/internal/modkit/httpkit"
	perr "proofwork/internal/platform/errors"
	pnet "proofwork/internal/platform/net"
	"proofwork/internal/platform/net/middleware"

	dom "proofwork/internal/services/admin/domain"
	auditdom "proofwork/internal/services/audit/domain"
)

// Register mounts the admin mutations and the audit read surface
func Register(r httpkit.Router, s dom.Port, audit auditdom.QueryPort, adminAuth middleware.AuthPort) {
	h := &handlers{svc: s, audit: audit}
	httpkit.Protected(r, adminAuth, func(pr httpkit.Router) {
		httpkit.Post(pr, "/workers/{id}/ban", h.banWorker)
		httpkit.PostJSON[dom.RateLimitInput](pr, "/workers/{id}/rate-limit", h.rateLimitWorker)

		httpkit.Post(pr, "/verifications/{id}/requeue", h.requeueVerification)
		httpkit.PostJSON[dom.OverrideInput](pr, "/submissions/{id}/override", h.overrideVerdict)
		httpkit.PostJSON[dom.ReasonInput](pr, "/submissions/{id}/duplicate", h.markDuplicate)

		httpkit.Post(pr, "/payouts/{id}/retry", h.retryPayout)
		httpkit.PostJSON[dom.MarkPaidInput](pr, "/payouts/{id}/paid", h.markPayoutPaid)
		httpkit.PostJSON[dom.BlockInput](pr, "/payouts/{id}/block", h.blockPayout)

		httpkit.Get(pr, "/audit", h.auditRecent)
		httpkit.Get(pr, "/audit/{kind}/{id}", h.auditForTarget)
	})
}

type handlers struct {
	svc   dom.Port
	audit auditdom.QueryPort
}

func admin(r *stdhttp.Request) (string, error) {
	kind, id := httpkit.Actor(r)
	if kind != pnet.ActorAdmin || id == "" {
		return "", perr.Unauthorizedf("missing admin token")
	}
	return id, nil
}

func limitFromQuery(r *stdhttp.Request) int {
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return 0
}

// @Summary Ban a worker
// @Tags admin
// @Produce json
// @Success 200 {object} map[string]string "ok"
// @Router /admin/workers/{id}/ban [post]
func (h *handlers) banWorker(r *stdhttp.Request) (any, error) {
	adminID, err := admin(r)
	if err != nil {
		return nil, err
	}
	workerID := chi.URLParam(r, "id")
	if err := h.svc.BanWorker(r.Context(), adminID, workerID); err != nil {
		return nil, err
	}
	return map[string]string{"worker_id": workerID, "status": "banned"}, nil
}

// @Summary Rate-limit a worker
// @Tags admin
// @Accept json
// @Produce json
// @Param payload body domain.RateLimitInput true "requests per minute"
// @Success 200 {object} map[string]string "ok"
// @Router /admin/workers/{id}/rate-limit [post]
func (h *handlers) rateLimitWorker(r *stdhttp.Request, in dom.RateLimitInput) (any, error) {
	adminID, err := admin(r)
	if err != nil {
		return nil, err
	}
	workerID := chi.URLParam(r, "id")
	if err := h.svc.RateLimitWorker(r.Context(), adminID, workerID, in.PerMin); err != nil {
		return nil, err
	}
	return map[string]string{"worker_id": workerID, "status": "rate_limited"}, nil
}

// @Summary Requeue a stuck verification claim
// @Tags admin
// @Produce json
// @Success 200 {object} map[string]string "ok"
// @Router /admin/verifications/{id}/requeue [post]
func (h *handlers) requeueVerification(r *stdhttp.Request) (any, error) {
	adminID, err := admin(r)
	if err != nil {
		return nil, err
	}
	verificationID := chi.URLParam(r, "id")
	if err := h.svc.RequeueVerification(r.Context(), adminID, verificationID); err != nil {
		return nil, err
	}
	return map[string]string{"verification_id": verificationID, "status": "queued"}, nil
}

// @Summary Override a submission's verdict
// @Tags admin
// @Accept json
// @Produce json
// @Param payload body domain.OverrideInput true "pass or fail, with a note"
// @Success 200 {object} vdomain.VerdictOutput "where settlement landed"
// @Router /admin/submissions/{id}/override [post]
func (h *handlers) overrideVerdict(r *stdhttp.Request, in dom.OverrideInput) (any, error) {
	adminID, err := admin(r)
	if err != nil {
		return nil, err
	}
	return h.svc.OverrideVerdict(r.Context(), adminID, chi.URLParam(r, "id"), in)
}

// @Summary Retire a submission as a duplicate finding
// @Tags admin
// @Accept json
// @Produce json
// @Param payload body domain.ReasonInput true "operator note"
// @Success 200 {object} vdomain.VerdictOutput "where settlement landed"
// @Router /admin/submissions/{id}/duplicate [post]
func (h *handlers) markDuplicate(r *stdhttp.Request, in dom.ReasonInput) (any, error) {
	adminID, err := admin(r)
	if err != nil {
		return nil, err
	}
	return h.svc.MarkDuplicate(r.Context(), adminID, chi.URLParam(r, "id"), in.Reason)
}

// @Summary Requeue a failed or blocked payout
// @Tags admin
// @Produce json
// @Success 200 {object} pdomain.Payout "back in the settle queue"
// @Router /admin/payouts/{id}/retry [post]
func (h *handlers) retryPayout(r *stdhttp.Request) (any, error) {
	adminID, err := admin(r)
	if err != nil {
		return nil, err
	}
	return h.svc.RetryPayout(r.Context(), adminID, chi.URLParam(r, "id"))
}

// @Summary Settle a payout manually
// @Tags admin
// @Accept json
// @Produce json
// @Param payload body domain.MarkPaidInput true "external transaction reference"
// @Success 200 {object} pdomain.Payout "paid"
// @Router /admin/payouts/{id}/paid [post]
func (h *handlers) markPayoutPaid(r *stdhttp.Request, in dom.MarkPaidInput) (any, error) {
	adminID, err := admin(r)
	if err != nil {
		return nil, err
	}
	return h.svc.MarkPayoutPaid(r.Context(), adminID, chi.URLParam(r, "id"), in.TxHash)
}

// @Summary Freeze a payout pending investigation
// @Tags admin
// @Accept json
// @Produce json
// @Param payload body domain.BlockInput true "reason for the freeze"
// @Success 200 {object} pdomain.Payout "blocked"
// @Router /admin/payouts/{id}/block [post]
func (h *handlers) blockPayout(r *stdhttp.Request, in dom.BlockInput) (any, error) {
	adminID, err := admin(r)
	if err != nil {
		return nil, err
	}
	return h.svc.BlockPayout(r.Context(), adminID, chi.URLParam(r, "id"), in.Reason)
}

// @Summary List recent audit entries
// @Tags admin
// @Produce json
// @Success 200 {array} auditdomain.Entry "newest first"
// @Router /admin/audit [get]
func (h *handlers) auditRecent(r *stdhttp.Request) (any, error) {
	if _, err := admin(r); err != nil {
		return nil, err
	}
	return h.audit.Recent(r.Context(), limitFromQuery(r))
}

// @Summary List audit entries for one resource
// @Tags admin
// @Produce json
// @Success 200 {array} auditdomain.Entry "newest first"
// @Router /admin/audit/{kind}/{id} [get]
func (h *handlers) auditForTarget(r *stdhttp.Request) (any, error) {
	if _, err := admin(r); err != nil {
		return nil, err
	}
	return h.audit.ForTarget(r.Context(), chi.URLParam(r, "kind"), chi.URLParam(r, "id"), limitFromQuery(r))
}
