package middleware

import (
	"net/http"

	pwnet "proofwork/internal/platform/net"
)

// Identity is the authenticated principal resolved by an AuthPort
type Identity struct {
	Kind  pwnet.ActorKind
	ID    string
	OrgID string
}

// AuthPort is a tiny seam the identity service implements per surface
type AuthPort interface {
	// Parse resolves the request credentials into an Identity or an error
	Parse(r *http.Request) (Identity, error)
}

// FirstOf tries each port in order and returns the first identity that
// parses. The last error wins when none do
func FirstOf(ports ...AuthPort) AuthPort {
	return firstOf(ports)
}

type firstOf []AuthPort

func (f firstOf) Parse(r *http.Request) (Identity, error) {
	var lastErr error
	for _, p := range f {
		if p == nil {
			continue
		}
		id, err := p.Parse(r)
		if err == nil {
			return id, nil
		}
		lastErr = err
	}
	return Identity{}, lastErr
}

// Auth resolves credentials through the port and stores the actor on context
// A nil port passes the request through unauthenticated
func Auth(p AuthPort, write func(w http.ResponseWriter, status int, body any)) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if p == nil {
				next.ServeHTTP(w, r)
				return
			}
			id, err := p.Parse(r)
			if err != nil {
				status, body := pwnet.Error(err, pwnet.RequestID(r.Context()))
				write(w, status, body)
				return
			}
			ctx := pwnet.WithActor(r.Context(), id.Kind, id.ID)
			ctx = pwnet.WithOrg(ctx, id.OrgID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
