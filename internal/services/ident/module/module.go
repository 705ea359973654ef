// Package module wires identity into the API using modkit
package module

import (
	"net/http"

	modkit "proofwork/internal/modkit"
	"proofwork/internal/modkit/httpkit"

	idhttp "proofwork/internal/services/ident/http"
	idsvc "proofwork/internal/services/ident/service"
)

// Module implements the identity module
type Module struct {
	deps   modkit.Deps
	name   string
	prefix string

	mws       []func(http.Handler) http.Handler
	ports     Ports
	subrouter func(httpkit.Router) httpkit.Router
	register  func(httpkit.Router)

	svc *idsvc.Svc
}

// New constructs the identity module
func New(deps modkit.Deps, opts ...modkit.Option) *Module {
	b := modkit.Build(append([]modkit.Option{
		modkit.WithName("ident"),
		modkit.WithPrefix("/"),
	}, opts...)...)

	cfg := FromConfig(deps.Cfg)

	svc := idsvc.New(deps, idsvc.Config{
		WorkerTokenPepper: cfg.WorkerTokenPepper,
		BuyerTokenPepper:  cfg.BuyerTokenPepper,
		SessionTTL:        cfg.SessionTTL,
		AdminTokens:       cfg.AdminTokens,
		VerifierTokens:    cfg.VerifierTokens,
		WorkerRatePerMin:  cfg.WorkerRatePerMin,
		RateBurst:         cfg.RateBurst,
	})

	m := &Module{
		deps:      deps,
		name:      b.Name,
		prefix:    b.Prefix,
		mws:       b.Mw,
		subrouter: b.Subrouter,
		svc:       svc,
	}
	m.ports = Ports{
		Registrar:   svc,
		Directory:   svc,
		Admin:       svc,
		RateLimiter: svc,
		Auth:        svc.AuthPorts(),
	}

	external := b.Register
	m.register = func(r httpkit.Router) {
		idhttp.Register(r, m.svc, m.ports.Auth)
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
