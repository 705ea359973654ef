// Package http provides the verifier-pool transport
package http

import (
	stdhttp "net/http"

	"proofwork/internal/modkit/httpkit"
	"proofwork/internal/platform/net/middleware"
	dom "proofwork/internal/services/verification/domain"
)

// Register mounts the verifier routes behind verifier auth
func Register(r httpkit.Router, s dom.Port, verifier middleware.AuthPort) {
	h := &handlers{svc: s}
	httpkit.Protected(r, verifier, func(pr httpkit.Router) {
		httpkit.PostJSON[dom.ClaimInput](pr, "/claim", h.claim)
		httpkit.PostJSON[dom.VerdictInput](pr, "/verdict", h.verdict)
	})
}

type handlers struct{ svc dom.Port }

// @Summary Claim one queued verification attempt
// @Tags verifier
// @Accept json
// @Produce json
// @Param payload body domain.ClaimInput true "Optional submission filter plus idempotency key"
// @Success 200 {object} domain.ClaimOutput "claim token and submission"
// @Router /verifier/claim [post]
func (h *handlers) claim(r *stdhttp.Request, in dom.ClaimInput) (any, error) {
	verifierID, err := httpkit.Verifier(r)
	if err != nil {
		return nil, err
	}
	return h.svc.Claim(r.Context(), verifierID, in)
}

// @Summary Report the outcome of a claimed verification
// @Tags verifier
// @Accept json
// @Produce json
// @Param payload body domain.VerdictInput true "Verdict under the claim token"
// @Success 200 {object} domain.VerdictOutput "settlement result"
// @Router /verifier/verdict [post]
func (h *handlers) verdict(r *stdhttp.Request, in dom.VerdictInput) (any, error) {
	verifierID, err := httpkit.Verifier(r)
	if err != nil {
		return nil, err
	}
	return h.svc.Verdict(r.Context(), verifierID, in)
}
