// Package module wires billing into the API using modkit
package module

import (
	"net/http"

	modkit "proofwork/internal/modkit"
	"proofwork/internal/modkit/httpkit"
	"proofwork/internal/platform/net/middleware"

	bdom "proofwork/internal/services/billing/domain"
	bhttp "proofwork/internal/services/billing/http"
	bsvc "proofwork/internal/services/billing/service"
	idom "proofwork/internal/services/ident/domain"
	odom "proofwork/internal/services/outbox/domain"
)

// Injected declares the ports this module needs from others
type Injected struct {
	BuyerAuth middleware.AuthPort
	Orgs      idom.DirectoryPort
	Emitter   odom.EmitterPort
}

// Module implements the billing module
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

// New constructs the billing module
func New(deps modkit.Deps, opts ...modkit.Option) *Module {
	b := modkit.Build(append([]modkit.Option{
		modkit.WithName("billing"),
		modkit.WithPrefix("/billing"),
	}, opts...)...)

	var injected Injected
	if p, ok := b.Ports.(Injected); ok {
		injected = p
	}
	if injected.BuyerAuth == nil {
		panic("billing module requires BuyerAuth port (from services/ident)")
	}
	if injected.Orgs == nil {
		panic("billing module requires Orgs port (from services/ident)")
	}
	if injected.Emitter == nil {
		panic("billing module requires Emitter port (from services/outbox)")
	}

	cfg := FromConfig(deps.Cfg)
	svc := bsvc.New(deps, bsvc.Config{
		ProviderName: cfg.Provider,
		WebhookSkew:  cfg.WebhookSkew,
	}, buildProvider(cfg), injected.Orgs, injected.Emitter)

	m := &Module{
		deps:      deps,
		name:      b.Name,
		prefix:    b.Prefix,
		mws:       b.Mw,
		subrouter: b.Subrouter,
		svc:       svc,
	}
	m.ports = Ports{Ledger: svc, Checkout: svc, Webhooks: svc}

	external := b.Register
	m.register = func(r httpkit.Router) {
		bhttp.Register(r, m.svc, injected.BuyerAuth)
		if external != nil {
			external(r)
		}
	}
	return m
}

func buildProvider(cfg Options) bdom.Provider {
	switch cfg.Provider {
	case bsvc.ProviderStripe:
		return &bsvc.StripeProvider{
			CheckoutBaseURL: cfg.CheckoutBaseURL,
			WebhookSecret:   cfg.WebhookSecret,
			Skew:            cfg.WebhookSkew,
		}
	default:
		return bsvc.ManualProvider{}
	}
}

// MountWebhooks mounts the provider webhook routes; the composition root
// places them under its webhook prefix, outside buyer auth
func (m *Module) MountWebhooks(r httpkit.Router) {
	bhttp.RegisterWebhooks(r, m.svc)
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
