// Package module wires the artifact store into the API using modkit
package module

import (
	"net/http"

	modkit "proofwork/internal/modkit"
	"proofwork/internal/modkit/httpkit"
	"proofwork/internal/platform/net/middleware"

	ahttp "proofwork/internal/services/artifacts/http"
	asvc "proofwork/internal/services/artifacts/service"
	bdom "proofwork/internal/services/bounties/domain"
	oxdom "proofwork/internal/services/outbox/domain"
	sdom "proofwork/internal/services/scheduler/domain"
)

// Injected declares the ports this module needs from others
type Injected struct {
	WorkerAuth middleware.AuthPort
	// ReaderAuth is the combined auth for the gated download
	ReaderAuth  middleware.AuthPort
	Transitions sdom.TransitionPort
	Bounties    bdom.ReaderPort
	Emitter     oxdom.EmitterPort
}

// Module implements the artifacts module. It mounts under /uploads;
// the gated download mounts separately via MountDownloads
type Module struct {
	deps   modkit.Deps
	name   string
	prefix string

	mws       []func(http.Handler) http.Handler
	ports     Ports
	subrouter func(httpkit.Router) httpkit.Router
	register  func(httpkit.Router)

	svc        *asvc.Svc
	readerAuth middleware.AuthPort
}

// New constructs the artifacts module
func New(deps modkit.Deps, opts ...modkit.Option) *Module {
	b := modkit.Build(append([]modkit.Option{
		modkit.WithName("artifacts"),
		modkit.WithPrefix("/uploads"),
	}, opts...)...)

	var injected Injected
	if p, ok := b.Ports.(Injected); ok {
		injected = p
	}
	if injected.WorkerAuth == nil || injected.ReaderAuth == nil {
		panic("artifacts module requires WorkerAuth and ReaderAuth ports (from services/ident)")
	}
	if injected.Transitions == nil {
		panic("artifacts module requires Transitions port (from services/scheduler)")
	}
	if injected.Bounties == nil {
		panic("artifacts module requires Bounties port (from services/bounties)")
	}
	if injected.Emitter == nil {
		panic("artifacts module requires Emitter port (from services/outbox)")
	}

	cfg := FromConfig(deps.Cfg)
	store := asvc.NewFSStore(cfg.Root)
	engine := asvc.EngineByName(cfg.Engine)
	svc := asvc.New(deps, cfg.Service, store, engine, injected.Transitions, injected.Bounties, injected.Emitter)

	m := &Module{
		deps:       deps,
		name:       b.Name,
		prefix:     b.Prefix,
		mws:        b.Mw,
		subrouter:  b.Subrouter,
		svc:        svc,
		readerAuth: injected.ReaderAuth,
	}
	m.ports = Ports{Artifacts: svc, Blobs: svc, Guard: svc, Scanner: svc}

	external := b.Register
	m.register = func(r httpkit.Router) {
		ahttp.RegisterUploads(r, m.svc, injected.WorkerAuth)
		if external != nil {
			external(r)
		}
	}
	return m
}

// MountRoutes mounts the upload routes on the given router
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

// MountDownloads mounts the gated download under /artifacts
func (m *Module) MountDownloads(r httpkit.Router) {
	r.Route("/artifacts", func(rr httpkit.Router) {
		ahttp.RegisterDownloads(rr, m.svc, m.readerAuth)
	})
}

// Ports returns the module ports
func (m *Module) Ports() any { return m.ports }

// Name returns the module name
func (m *Module) Name() string { return m.name }

// Prefix returns the module route prefix
func (m *Module) Prefix() string { return m.prefix }
