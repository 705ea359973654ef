// Package module wires origin verification into the API using modkit
package module

import (
	"net/http"

	modkit "proofwork/internal/modkit"
	"proofwork/internal/modkit/httpkit"
	"proofwork/internal/platform/net/middleware"

	ohttp "proofwork/internal/services/origins/http"
	osvc "proofwork/internal/services/origins/service"
)

// Ports holds the ports exposed by the origins module
type Ports struct {
	Origins osvc.Service
}

// Injected declares the ports this module needs from others
type Injected struct {
	BuyerAuth middleware.AuthPort
}

// Module implements the origins module
type Module struct {
	deps   modkit.Deps
	name   string
	prefix string

	mws       []func(http.Handler) http.Handler
	ports     Ports
	subrouter func(httpkit.Router) httpkit.Router
	register  func(httpkit.Router)

	svc *osvc.Svc
}

// New constructs the origins module
func New(deps modkit.Deps, opts ...modkit.Option) *Module {
	b := modkit.Build(append([]modkit.Option{
		modkit.WithName("origins"),
		modkit.WithPrefix("/origins"),
	}, opts...)...)

	var injected Injected
	if p, ok := b.Ports.(Injected); ok {
		injected = p
	}
	if injected.BuyerAuth == nil {
		panic("origins module requires BuyerAuth port (from services/ident)")
	}

	cfg := FromConfig(deps.Cfg)
	svc := osvc.New(deps, osvc.Config{ProbeTimeout: cfg.ProbeTimeout})

	m := &Module{
		deps:      deps,
		name:      b.Name,
		prefix:    b.Prefix,
		mws:       b.Mw,
		subrouter: b.Subrouter,
		svc:       svc,
	}
	m.ports = Ports{Origins: svc}

	external := b.Register
	m.register = func(r httpkit.Router) {
		ohttp.Register(r, m.svc, injected.BuyerAuth)
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
