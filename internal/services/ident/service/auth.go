package service

import (
	"crypto/subtle"
	"net/http"
	"strings"
	"time"

	perr "proofwork/internal/platform/errors"
	pnet "proofwork/internal/platform/net"
	"proofwork/internal/platform/net/middleware"

	dom "proofwork/internal/services/ident/domain"
)

// SessionCookie is the buyer session cookie name
const SessionCookie = "pw_session"

// CSRFHeader carries the csrf token on unsafe buyer requests
const CSRFHeader = "X-CSRF-Token"

type portFunc func(r *http.Request) (middleware.Identity, error)

func (f portFunc) Parse(r *http.Request) (middleware.Identity, error) { return f(r) }

// AuthPorts returns the per-surface credential parsers backed by this service
func (s *Svc) AuthPorts() dom.AuthPorts {
	return dom.AuthPorts{
		Buyer:    portFunc(s.parseBuyer),
		Worker:   portFunc(s.parseWorker),
		Verifier: portFunc(s.parseVerifier),
		Admin:    portFunc(s.parseAdmin),
	}
}

func bearer(r *http.Request) string {
	h := r.Header.Get("Authorization")
	tok, ok := strings.CutPrefix(h, "Bearer ")
	if !ok {
		return ""
	}
	return strings.TrimSpace(tok)
}

// parseWorker authenticates a worker bearer token, enforces standing and
// rate, and advances last_seen_at
func (s *Svc) parseWorker(r *http.Request) (middleware.Identity, error) {
	tok := bearer(r)
	if !strings.HasPrefix(tok, "pwt_") {
		return middleware.Identity{}, perr.Unauthorizedf("missing worker token")
	}
	w, err := s.repo.WorkerByTokenHash(r.Context(), hashSecret(tok, s.cfg.WorkerTokenPepper))
	if err != nil {
		return middleware.Identity{}, perr.Unauthorizedf("unknown worker token")
	}
	if w.Banned() {
		return middleware.Identity{}, perr.Forbiddenf("worker is banned")
	}
	if err := s.Allow(r.Context(), "worker:"+w.ID, w.RatePerMin, s.cfg.RateBurst); err != nil {
		return middleware.Identity{}, err
	}
	_ = s.repo.TouchWorker(r.Context(), w.ID, time.Now())
	return middleware.Identity{Kind: pnet.ActorWorker, ID: w.ID}, nil
}

// parseBuyer accepts a bearer API key or a session cookie with csrf on
// unsafe methods
func (s *Svc) parseBuyer(r *http.Request) (middleware.Identity, error) {
	if tok := bearer(r); tok != "" {
		return s.parseAPIKey(r, tok)
	}
	return s.parseSession(r)
}

func (s *Svc) parseAPIKey(r *http.Request, tok string) (middleware.Identity, error) {
	prefix, secret, ok := SplitAPIKey(tok)
	if !ok {
		return middleware.Identity{}, perr.Unauthorizedf("malformed api key")
	}
	k, err := s.repo.APIKeyByPrefix(r.Context(), prefix)
	if err != nil {
		return middleware.Identity{}, perr.Unauthorizedf("unknown api key")
	}
	want := hashAPIKey(k.Salt, secret, s.cfg.BuyerTokenPepper)
	if subtle.ConstantTimeCompare([]byte(want), []byte(k.KeyHash)) != 1 {
		return middleware.Identity{}, perr.Unauthorizedf("unknown api key")
	}
	_ = s.repo.TouchAPIKey(r.Context(), k.ID, time.Now())
	return middleware.Identity{Kind: pnet.ActorBuyer, ID: k.ID, OrgID: k.OrgID}, nil
}

func (s *Svc) parseSession(r *http.Request) (middleware.Identity, error) {
	c, err := r.Cookie(SessionCookie)
	if err != nil || c.Value == "" {
		return middleware.Identity{}, perr.Unauthorizedf("missing credentials")
	}
	sess, err := s.repo.SessionByTokenHash(r.Context(), hashSecret(c.Value, s.cfg.BuyerTokenPepper))
	if err != nil {
		return middleware.Identity{}, perr.Unauthorizedf("invalid session")
	}
	if time.Now().After(sess.ExpiresAt) {
		return middleware.Identity{}, perr.Unauthorizedf("session expired")
	}
	if unsafeMethod(r.Method) {
		got := r.Header.Get(CSRFHeader)
		if subtle.ConstantTimeCompare([]byte(got), []byte(sess.CSRFSecret)) != 1 {
			return middleware.Identity{}, perr.Newf(perr.ErrorCodeCSRFInvalid, "csrf token mismatch")
		}
	}
	return middleware.Identity{Kind: pnet.ActorBuyer, ID: sess.OrgUserID, OrgID: sess.OrgID}, nil
}

func unsafeMethod(m string) bool {
	switch m {
	case http.MethodGet, http.MethodHead, http.MethodOptions:
		return false
	}
	return true
}

// parseVerifier checks the shared verifier tokens from config
// The verifier id is derived from the token so verdicts are attributable
func (s *Svc) parseVerifier(r *http.Request) (middleware.Identity, error) {
	tok := bearer(r)
	for _, want := range s.cfg.VerifierTokens {
		if want != "" && subtle.ConstantTimeCompare([]byte(tok), []byte(want)) == 1 {
			return middleware.Identity{Kind: pnet.ActorVerifier, ID: VerifierID(want)}, nil
		}
	}
	return middleware.Identity{}, perr.Unauthorizedf("missing verifier token")
}

// parseAdmin checks the shared admin tokens from config
func (s *Svc) parseAdmin(r *http.Request) (middleware.Identity, error) {
	tok := bearer(r)
	for _, want := range s.cfg.AdminTokens {
		if want != "" && subtle.ConstantTimeCompare([]byte(tok), []byte(want)) == 1 {
			return middleware.Identity{Kind: pnet.ActorAdmin, ID: "admin"}, nil
		}
	}
	return middleware.Identity{}, perr.Unauthorizedf("missing admin token")
}

// VerifierID derives a stable verifier identity from its shared token
func VerifierID(token string) string {
	return "vrf_" + hashSecret(token, "")[:16]
}
