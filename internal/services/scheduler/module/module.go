// Package module wires the scheduler into the API using modkit
package module

import (
	"net/http"

	modkit "proofwork/internal/modkit"
	"proofwork/internal/modkit/httpkit"
	"proofwork/internal/platform/net/middleware"

	idom "proofwork/internal/services/ident/domain"
	oxdom "proofwork/internal/services/outbox/domain"
	pdom "proofwork/internal/services/policy/domain"
	shttp "proofwork/internal/services/scheduler/http"
	ssvc "proofwork/internal/services/scheduler/service"
)

// Injected declares the ports this module needs from others
type Injected struct {
	WorkerAuth middleware.AuthPort
	Workers    idom.DirectoryPort
	Limiter    idom.RateLimiterPort
	Policy     pdom.Port
	Refuse     pdom.RefusePort
	Emitter    oxdom.EmitterPort

	// JobRoutes mounts extra worker routes under /jobs (submission
	// intake). Resolved late so module construction order stays free
	JobRoutes func(httpkit.Router)
}

// Module implements the scheduler module
type Module struct {
	deps   modkit.Deps
	name   string
	prefix string

	mws       []func(http.Handler) http.Handler
	ports     Ports
	subrouter func(httpkit.Router) httpkit.Router
	register  func(httpkit.Router)

	svc *ssvc.Svc
}

// New constructs the scheduler module
func New(deps modkit.Deps, cfg ssvc.Config, opts ...modkit.Option) *Module {
	b := modkit.Build(append([]modkit.Option{
		modkit.WithName("scheduler"),
		modkit.WithPrefix("/jobs"),
	}, opts...)...)

	var injected Injected
	if p, ok := b.Ports.(Injected); ok {
		injected = p
	}
	if injected.WorkerAuth == nil {
		panic("scheduler module requires WorkerAuth port (from services/ident)")
	}
	if injected.Workers == nil {
		panic("scheduler module requires Workers port (from services/ident)")
	}
	if injected.Policy == nil || injected.Refuse == nil {
		panic("scheduler module requires Policy and Refuse ports (from services/policy)")
	}
	if injected.Emitter == nil {
		panic("scheduler module requires Emitter port (from services/outbox)")
	}

	svc := ssvc.New(deps, cfg, injected.Workers, injected.Limiter, injected.Policy, injected.Refuse, injected.Emitter)

	m := &Module{
		deps:      deps,
		name:      b.Name,
		prefix:    b.Prefix,
		mws:       b.Mw,
		subrouter: b.Subrouter,
		svc:       svc,
	}
	m.ports = Ports{Jobs: svc, Sweeper: svc, Leases: svc, Transitions: svc}

	external := b.Register
	m.register = func(r httpkit.Router) {
		extra := func(pr httpkit.Router) {
			if injected.JobRoutes != nil {
				injected.JobRoutes(pr)
			}
		}
		shttp.Register(r, m.svc, injected.WorkerAuth, extra)
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
