// Package module wires the operator surface into the API using modkit
package module

import (
	"net/http"

	modkit "proofwork/internal/modkit"
	"proofwork/internal/modkit/httpkit"
	"proofwork/internal/platform/net/middleware"

	ahttp "proofwork/internal/services/admin/http"
	asvc "proofwork/internal/services/admin/service"
	auditdom "proofwork/internal/services/audit/domain"
	idom "proofwork/internal/services/ident/domain"
	paydom "proofwork/internal/services/payouts/domain"
	vdom "proofwork/internal/services/verification/domain"
)

// Injected declares the ports this module needs from others
type Injected struct {
	AdminAuth     middleware.AuthPort
	Audit         auditdom.RecorderPort
	AuditQuery    auditdom.QueryPort
	Workers       idom.AdminPort
	Verifications vdom.AdminPort
	Payouts       paydom.AdminPort
}

// Module implements the admin module
type Module struct {
	deps   modkit.Deps
	name   string
	prefix string

	mws       []func(http.Handler) http.Handler
	ports     Ports
	subrouter func(httpkit.Router) httpkit.Router
	register  func(httpkit.Router)

	svc *asvc.Svc
}

// New constructs the admin module
func New(deps modkit.Deps, opts ...modkit.Option) *Module {
	b := modkit.Build(append([]modkit.Option{
		modkit.WithName("admin"),
		modkit.WithPrefix("/admin"),
	}, opts...)...)

	var injected Injected
	if p, ok := b.Ports.(Injected); ok {
		injected = p
	}
	if injected.AdminAuth == nil {
		panic("admin module requires AdminAuth port (from services/ident)")
	}
	if injected.Audit == nil || injected.AuditQuery == nil {
		panic("admin module requires Audit ports (from services/audit)")
	}
	if injected.Workers == nil {
		panic("admin module requires Workers port (from services/ident)")
	}
	if injected.Verifications == nil {
		panic("admin module requires Verifications port (from services/verification)")
	}
	if injected.Payouts == nil {
		panic("admin module requires Payouts port (from services/payouts)")
	}

	svc := asvc.New(deps, injected.Audit, injected.Workers, injected.Verifications, injected.Payouts)

	m := &Module{
		deps:      deps,
		name:      b.Name,
		prefix:    b.Prefix,
		mws:       b.Mw,
		subrouter: b.Subrouter,
		svc:       svc,
	}
	m.ports = Ports{Admin: svc}

	external := b.Register
	m.register = func(r httpkit.Router) {
		ahttp.Register(r, m.svc, injected.AuditQuery, injected.AdminAuth)
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
