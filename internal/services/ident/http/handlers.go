// Package http provides http transport for identity
package http

import (
	stdhttp "net/http"

	"proofwork/internal/modkit/httpkit"
	"proofwork/internal/services/ident/domain"
	svc "proofwork/internal/services/ident/service"
)

// Register mounts the identity routes
// Registration and login are public; key minting requires a buyer session
func Register(r httpkit.Router, s svc.Service, auth domain.AuthPorts) {
	h := &handlers{svc: s}

	r.Route("/orgs", func(rr httpkit.Router) {
		httpkit.PostJSON[domain.RegisterOrgInput](rr, "/register", h.registerOrg)
		httpkit.PostJSON[domain.LoginInput](rr, "/login", h.login)
		httpkit.Protected(rr, auth.Buyer, func(pr httpkit.Router) {
			httpkit.PostJSON[domain.CreateKeyInput](pr, "/api-keys", h.createKey)
		})
	})

	r.Route("/workers", func(rr httpkit.Router) {
		httpkit.PostJSON[domain.RegisterWorkerInput](rr, "/register", h.registerWorker)
	})
}

type handlers struct{ svc svc.Service }

// @Summary Register a buyer organization
// @Tags orgs
// @Accept json
// @Produce json
// @Param payload body domain.RegisterOrgInput true "Registration"
// @Success 200 {object} domain.RegisterOrgOutput "ok"
// @Router /orgs/register [post]
func (h *handlers) registerOrg(r *stdhttp.Request, in domain.RegisterOrgInput) (any, error) {
	return h.svc.RegisterOrg(r.Context(), in)
}

// @Summary Log into an org
// @Tags orgs
// @Accept json
// @Produce json
// @Param payload body domain.LoginInput true "Credentials"
// @Success 200 {object} domain.LoginOutput "ok"
// @Router /orgs/login [post]
func (h *handlers) login(r *stdhttp.Request, in domain.LoginInput) (any, error) {
	return h.svc.Login(r.Context(), in)
}

// @Summary Mint an API key for the acting org
// @Tags orgs
// @Accept json
// @Produce json
// @Param payload body domain.CreateKeyInput true "Key"
// @Success 200 {object} domain.CreateKeyOutput "ok"
// @Router /orgs/api-keys [post]
func (h *handlers) createKey(r *stdhttp.Request, in domain.CreateKeyInput) (any, error) {
	orgID, err := httpkit.Org(r)
	if err != nil {
		return nil, err
	}
	return h.svc.CreateKey(r.Context(), orgID, in)
}

// @Summary Register a worker agent
// @Tags workers
// @Accept json
// @Produce json
// @Param payload body domain.RegisterWorkerInput true "Registration"
// @Success 200 {object} domain.RegisterWorkerOutput "ok"
// @Router /workers/register [post]
func (h *handlers) registerWorker(r *stdhttp.Request, in domain.RegisterWorkerInput) (any, error) {
	return h.svc.RegisterWorker(r.Context(), in)
}
