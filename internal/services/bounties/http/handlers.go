// Package http provides http transport for bounties
package http

import (
	stdhttp "net/http"

	"github.com/go-chi/chi/v5"

	"proofwork/internal/modkit/httpkit"
	"proofwork/internal/platform/net/middleware"
	"proofwork/internal/services/bounties/domain"
	svc "proofwork/internal/services/bounties/service"
)

// Register mounts the bounty routes behind buyer auth
func Register(r httpkit.Router, s svc.Service, buyer middleware.AuthPort) {
	h := &handlers{svc: s}
	httpkit.Protected(r, buyer, func(pr httpkit.Router) {
		httpkit.PostJSON[domain.CreateInput](pr, "/", h.create)
		httpkit.Get(pr, "/", h.list)
		httpkit.Get(pr, "/{id}", h.get)
		httpkit.Post(pr, "/{id}/publish", h.publish)
		httpkit.Post(pr, "/{id}/close", h.close)
	})
}

type handlers struct{ svc svc.Service }

// @Summary Draft a bounty
// @Tags bounties
// @Accept json
// @Produce json
// @Param payload body domain.CreateInput true "Bounty"
// @Success 200 {object} domain.Bounty "ok"
// @Router /bounties [post]
func (h *handlers) create(r *stdhttp.Request, in domain.CreateInput) (any, error) {
	orgID, err := httpkit.Org(r)
	if err != nil {
		return nil, err
	}
	return h.svc.Create(r.Context(), orgID, in)
}

// @Summary List the acting org's bounties
// @Tags bounties
// @Produce json
// @Success 200 {array} domain.Bounty "ok"
// @Router /bounties [get]
func (h *handlers) list(r *stdhttp.Request) (any, error) {
	orgID, err := httpkit.Org(r)
	if err != nil {
		return nil, err
	}
	return h.svc.List(r.Context(), orgID)
}

// @Summary Fetch one bounty
// @Tags bounties
// @Produce json
// @Success 200 {object} domain.Bounty "ok"
// @Router /bounties/{id} [get]
func (h *handlers) get(r *stdhttp.Request) (any, error) {
	orgID, err := httpkit.Org(r)
	if err != nil {
		return nil, err
	}
	return h.svc.Get(r.Context(), orgID, chi.URLParam(r, "id"))
}

// @Summary Publish a draft bounty and fan out its jobs
// @Tags bounties
// @Produce json
// @Success 200 {object} domain.PublishOutput "ok"
// @Router /bounties/{id}/publish [post]
func (h *handlers) publish(r *stdhttp.Request) (any, error) {
	orgID, err := httpkit.Org(r)
	if err != nil {
		return nil, err
	}
	return h.svc.Publish(r.Context(), orgID, chi.URLParam(r, "id"))
}

// @Summary Close a published bounty
// @Tags bounties
// @Produce json
// @Success 200 {object} domain.Bounty "ok"
// @Router /bounties/{id}/close [post]
func (h *handlers) close(r *stdhttp.Request) (any, error) {
	orgID, err := httpkit.Org(r)
	if err != nil {
		return nil, err
	}
	return h.svc.Close(r.Context(), orgID, chi.URLParam(r, "id"))
}
