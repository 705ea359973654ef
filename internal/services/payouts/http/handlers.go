// Package http provides the payout read transport
package http

import (
	stdhttp "net/http"
	"strconv"

	"proofwork/internal/modkit/httpkit"
	"proofwork/internal/platform/net/middleware"
	dom "proofwork/internal/services/payouts/domain"
)

// Register mounts the worker and buyer payout views
func Register(r httpkit.Router, s dom.Port, worker, buyer middleware.AuthPort) {
	h := &handlers{svc: s}
	httpkit.Protected(r, worker, func(pr httpkit.Router) {
		httpkit.Get(pr, "/mine", h.mine)
	})
	httpkit.Protected(r, buyer, func(pr httpkit.Router) {
		httpkit.Get(pr, "/org", h.org)
	})
}

type handlers struct{ svc dom.Port }

func limitFromQuery(r *stdhttp.Request) int {
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return 0
}

// @Summary List the acting worker's payouts
// @Tags payouts
// @Produce json
// @Success 200 {array} domain.Payout "newest first"
// @Router /payouts/mine [get]
func (h *handlers) mine(r *stdhttp.Request) (any, error) {
	workerID, err := httpkit.Worker(r)
	if err != nil {
		return nil, err
	}
	return h.svc.ForWorker(r.Context(), workerID, limitFromQuery(r))
}

// @Summary List the acting org's payouts
// @Tags payouts
// @Produce json
// @Success 200 {array} domain.Payout "newest first"
// @Router /payouts/org [get]
func (h *handlers) org(r *stdhttp.Request) (any, error) {
	orgID, err := httpkit.Org(r)
	if err != nil {
		return nil, err
	}
	return h.svc.ForOrg(r.Context(), orgID, limitFromQuery(r))
}
