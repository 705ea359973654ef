// Package module wires payouts into the API using modkit
package module

import (
	"net/http"

	modkit "proofwork/internal/modkit"
	"proofwork/internal/modkit/httpkit"
	"proofwork/internal/platform/net/middleware"

	bildom "proofwork/internal/services/billing/domain"
	idom "proofwork/internal/services/ident/domain"
	oxdom "proofwork/internal/services/outbox/domain"
	dom "proofwork/internal/services/payouts/domain"
	phttp "proofwork/internal/services/payouts/http"
	psvc "proofwork/internal/services/payouts/service"
)

// Injected declares the ports this module needs from others
type Injected struct {
	WorkerAuth middleware.AuthPort
	BuyerAuth  middleware.AuthPort
	Directory  idom.DirectoryPort
	Ledger     bildom.LedgerPort
	Emitter    oxdom.EmitterPort

	// Chain overrides the RPC-backed client, for tests and for
	// deployments that settle manually
	Chain dom.ChainPort
}

// Module implements the payouts module
type Module struct {
	deps   modkit.Deps
	name   string
	prefix string

	mws       []func(http.Handler) http.Handler
	ports     Ports
	subrouter func(httpkit.Router) httpkit.Router
	register  func(httpkit.Router)

	svc *psvc.Svc
}

// New constructs the payouts module
func New(deps modkit.Deps, opts ...modkit.Option) *Module {
	b := modkit.Build(append([]modkit.Option{
		modkit.WithName("payouts"),
		modkit.WithPrefix("/payouts"),
	}, opts...)...)

	var injected Injected
	if p, ok := b.Ports.(Injected); ok {
		injected = p
	}
	if injected.WorkerAuth == nil || injected.BuyerAuth == nil {
		panic("payouts module requires WorkerAuth and BuyerAuth ports (from services/ident)")
	}
	if injected.Directory == nil {
		panic("payouts module requires Directory port (from services/ident)")
	}
	if injected.Ledger == nil {
		panic("payouts module requires Ledger port (from services/billing)")
	}
	if injected.Emitter == nil {
		panic("payouts module requires Emitter port (from services/outbox)")
	}

	o := FromConfig(deps.Cfg)
	chain := injected.Chain
	if chain == nil {
		if o.EVM.PrivateKeyHex == "" {
			chain = psvc.ManualChain{}
		} else {
			c, err := psvc.NewEVMChain(o.EVM)
			if err != nil {
				panic("payouts module: " + err.Error())
			}
			chain = c
		}
	}

	svc := psvc.New(deps, o.Service, injected.Directory, injected.Ledger, chain, injected.Emitter)

	m := &Module{
		deps:      deps,
		name:      b.Name,
		prefix:    b.Prefix,
		mws:       b.Mw,
		subrouter: b.Subrouter,
		svc:       svc,
	}
	m.ports = Ports{Creator: svc, Payouts: svc, Runner: svc, Admin: svc}

	external := b.Register
	m.register = func(r httpkit.Router) {
		phttp.Register(r, m.svc, injected.WorkerAuth, injected.BuyerAuth)
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
