// Package module wires bounties into the API using modkit
package module

import (
	"net/http"

	modkit "proofwork/internal/modkit"
	"proofwork/internal/modkit/httpkit"
	"proofwork/internal/platform/net/middleware"

	bldom "proofwork/internal/services/billing/domain"
	bhttp "proofwork/internal/services/bounties/http"
	bsvc "proofwork/internal/services/bounties/service"
	ordom "proofwork/internal/services/origins/domain"
	oxdom "proofwork/internal/services/outbox/domain"
)

// Injected declares the ports this module needs from others
type Injected struct {
	BuyerAuth middleware.AuthPort
	Origins   ordom.CheckerPort
	Ledger    bldom.LedgerPort
	Emitter   oxdom.EmitterPort
}

// Module implements the bounties module
type Module struct {
	deps   modkit.Deps
	name   string
	prefix string

	mws       []func(http.Handler) http.Handler
	ports     Ports
	subrouter func(httpkit.Router) httpkit.Router
	register  func(httpkit.Router)

	svc *bsvc.Svc
}

// New constructs the bounties module
func New(deps modkit.Deps, opts ...modkit.Option) *Module {
	b := modkit.Build(append([]modkit.Option{
		modkit.WithName("bounties"),
		modkit.WithPrefix("/bounties"),
	}, opts...)...)

	var injected Injected
	if p, ok := b.Ports.(Injected); ok {
		injected = p
	}
	if injected.BuyerAuth == nil {
		panic("bounties module requires BuyerAuth port (from services/ident)")
	}
	if injected.Origins == nil {
		panic("bounties module requires Origins port (from services/origins)")
	}
	if injected.Ledger == nil {
		panic("bounties module requires Ledger port (from services/billing)")
	}
	if injected.Emitter == nil {
		panic("bounties module requires Emitter port (from services/outbox)")
	}

	svc := bsvc.New(deps, injected.Origins, injected.Ledger, injected.Emitter)

	m := &Module{
		deps:      deps,
		name:      b.Name,
		prefix:    b.Prefix,
		mws:       b.Mw,
		subrouter: b.Subrouter,
		svc:       svc,
	}
	m.ports = Ports{Bounties: svc, Reader: svc}

	external := b.Register
	m.register = func(r httpkit.Router) {
		bhttp.Register(r, m.svc, injected.BuyerAuth)
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
