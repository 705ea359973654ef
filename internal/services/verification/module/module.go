// Package module wires verification into the API using modkit
package module

import (
	"net/http"

	modkit "proofwork/internal/modkit"
	"proofwork/internal/modkit/httpkit"
	"proofwork/internal/platform/net/middleware"

	bdom "proofwork/internal/services/bounties/domain"
	oxdom "proofwork/internal/services/outbox/domain"
	paydom "proofwork/internal/services/payouts/domain"
	sdom "proofwork/internal/services/scheduler/domain"
	subdom "proofwork/internal/services/submissions/domain"
	vhttp "proofwork/internal/services/verification/http"
	vsvc "proofwork/internal/services/verification/service"
)

// Injected declares the ports this module needs from others
type Injected struct {
	VerifierAuth middleware.AuthPort
	Settle       subdom.SettlePort
	Transitions  sdom.TransitionPort
	Bounties     bdom.ReaderPort
	Payouts      paydom.CreatorPort
	Emitter      oxdom.EmitterPort
}

// Module implements the verification module
type Module struct {
	deps   modkit.Deps
	name   string
	prefix string

	mws       []func(http.Handler) http.Handler
	ports     Ports
	subrouter func(httpkit.Router) httpkit.Router
	register  func(httpkit.Router)

	svc *vsvc.Svc
}

// New constructs the verification module
func New(deps modkit.Deps, cfg vsvc.Config, opts ...modkit.Option) *Module {
	b := modkit.Build(append([]modkit.Option{
		modkit.WithName("verification"),
		modkit.WithPrefix("/verifier"),
	}, opts...)...)

	var injected Injected
	if p, ok := b.Ports.(Injected); ok {
		injected = p
	}
	if injected.VerifierAuth == nil {
		panic("verification module requires VerifierAuth port (from services/ident)")
	}
	if injected.Settle == nil {
		panic("verification module requires Settle port (from services/submissions)")
	}
	if injected.Transitions == nil {
		panic("verification module requires Transitions port (from services/scheduler)")
	}
	if injected.Bounties == nil {
		panic("verification module requires Bounties port (from services/bounties)")
	}
	if injected.Payouts == nil {
		panic("verification module requires Payouts port (from services/payouts)")
	}
	if injected.Emitter == nil {
		panic("verification module requires Emitter port (from services/outbox)")
	}

	svc := vsvc.New(deps, cfg, injected.Settle, injected.Transitions, injected.Bounties, injected.Payouts, injected.Emitter)

	m := &Module{
		deps:      deps,
		name:      b.Name,
		prefix:    b.Prefix,
		mws:       b.Mw,
		subrouter: b.Subrouter,
		svc:       svc,
	}
	m.ports = Ports{Verifications: svc, Intake: svc, Sweeper: svc, Admin: svc}

	external := b.Register
	m.register = func(r httpkit.Router) {
		vhttp.Register(r, m.svc, injected.VerifierAuth)
		if external != nil {
			external(r)
		}
	}
	return m
}

// MountRoutes mounts the module routes on the given router
func (m *Module) MountRoutes(r httpkit.Router) {
	r.Route(m.prefix, func(rr httpkit.Router) {
		for _, mw := range m.mws {
			rr.Use(mw)
		}
		if m.subrouter != nil {
			rr = m.subrouter(rr)
		}
		if m.register != nil {
			m.register(rr)
		}
	})
}

// Ports returns the module ports
func (m *Module) Ports() any { return m.ports }

// Name returns the module name
func (m *Module) Name() string { return m.name }

// Prefix returns the module route prefix
func (m *Module) Prefix() string { return m.prefix }
