// Package http provides http transport for origin verification
package http

import (
	stdhttp "net/http"

	"github.com/go-chi/chi/v5"

	"proofwork/internal/modkit/httpkit"
	"proofwork/internal/platform/net/middleware"
	"proofwork/internal/services/origins/domain"
	svc "proofwork/internal/services/origins/service"
)

// Register mounts the origin routes behind buyer auth
func Register(r httpkit.Router, s svc.Service, buyer middleware.AuthPort) {
	h := &handlers{svc: s}
	httpkit.Protected(r, buyer, func(pr httpkit.Router) {
		httpkit.PostJSON[domain.CreateInput](pr, "/", h.create)
		httpkit.Get(pr, "/", h.list)
		httpkit.Post(pr, "/{id}/verify", h.verify)
	})
}

type handlers struct{ svc svc.Service }

// @Summary Register an origin ownership claim
// @Tags origins
// @Accept json
// @Produce json
// @Param payload body domain.CreateInput true "Claim"
// @Success 200 {object} domain.CreateOutput "ok"
// @Router /origins [post]
func (h *handlers) create(r *stdhttp.Request, in domain.CreateInput) (any, error) {
	orgID, err := httpkit.Org(r)
	if err != nil {
		return nil, err
	}
	return h.svc.Create(r.Context(), orgID, in)
}

// @Summary List the acting org's origins
// @Tags origins
// @Produce json
// @Success 200 {array} domain.Origin "ok"
// @Router /origins [get]
func (h *handlers) list(r *stdhttp.Request) (any, error) {
	orgID, err := httpkit.Org(r)
	if err != nil {
		return nil, err
	}
	return h.svc.List(r.Context(), orgID)
}

// @Summary Run the ownership probe for an origin
// @Tags origins
// @Produce json
// @Success 200 {object} domain.Origin "ok"
// @Router /origins/{id}/verify [post]
func (h *handlers) verify(r *stdhttp.Request) (any, error) {
	orgID, err := httpkit.Org(r)
	if err != nil {
		return nil, err
	}
	return h.svc.Verify(r.Context(), orgID, chi.URLParam(r, "id"))
}
