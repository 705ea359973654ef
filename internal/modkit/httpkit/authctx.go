package httpkit

import (
	"net/http"

	perrs "proofwork/internal/platform/errors"
	pnet "proofwork/internal/platform/net"
)

// Worker returns the authenticated worker id from the request context
func Worker(r *http.Request) (string, error) {
	kind, id := pnet.Actor(r.Context())
	if kind != pnet.ActorWorker || id == "" {
		return "", perrs.Unauthorizedf("missing worker token")
	}
	return id, nil
}

// Verifier returns the authenticated verifier id from the request context
func Verifier(r *http.Request) (string, error) {
	kind, id := pnet.Actor(r.Context())
	if kind != pnet.ActorVerifier || id == "" {
		return "", perrs.Unauthorizedf("missing verifier token")
	}
	return id, nil
}

// Org returns the acting org id from the request context
func Org(r *http.Request) (string, error) {
	oid := pnet.OrgID(r.Context())
	if oid == "" {
		return "", perrs.Unauthorizedf("missing org scope")
	}
	return oid, nil
}

// Actor returns the actor kind and id from the request context
func Actor(r *http.Request) (pnet.ActorKind, string) {
	return pnet.Actor(r.Context())
}

// MustWorker returns the authenticated worker id or panics
// only use on routes protected by the worker auth middleware
func MustWorker(r *http.Request) string {
	id, err := Worker(r)
	if err != nil {
		panic(err)
	}
	return id
}

// MustOrg returns the acting org id or panics
// only use on routes protected by a buyer auth middleware
func MustOrg(r *http.Request) string {
	oid, err := Org(r)
	if err != nil {
		panic(err)
	}
	return oid
}
