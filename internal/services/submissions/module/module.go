// Package module wires submission intake into the API using modkit
package module

import (
	modkit "proofwork/internal/modkit"
	"proofwork/internal/modkit/httpkit"

	adom "proofwork/internal/services/artifacts/domain"
	bdom "proofwork/internal/services/bounties/domain"
	oxdom "proofwork/internal/services/outbox/domain"
	sdom "proofwork/internal/services/scheduler/domain"
	subhttp "proofwork/internal/services/submissions/http"
	subsvc "proofwork/internal/services/submissions/service"
	vdom "proofwork/internal/services/verification/domain"
)

// Injected declares the ports this module needs from others
type Injected struct {
	Leases        sdom.LeasePort
	Transitions   sdom.TransitionPort
	Guard         adom.GuardPort
	Bounties      bdom.ReaderPort
	Verifications vdom.IntakePort
	Emitter       oxdom.EmitterPort
}

// Module implements the submissions module. It owns no route prefix:
// the submit route rides under the scheduler's /jobs mount via
// JobRoutes
type Module struct {
	deps modkit.Deps
	name string

	ports Ports
	svc   *subsvc.Svc
}

// New constructs the submissions module
func New(deps modkit.Deps, opts ...modkit.Option) *Module {
	b := modkit.Build(append([]modkit.Option{
		modkit.WithName("submissions"),
	}, opts...)...)

	var injected Injected
	if p, ok := b.Ports.(Injected); ok {
		injected = p
	}
	if injected.Leases == nil || injected.Transitions == nil {
		panic("submissions module requires Leases and Transitions ports (from services/scheduler)")
	}
	if injected.Guard == nil {
		panic("submissions module requires Guard port (from services/artifacts)")
	}
	if injected.Bounties == nil {
		panic("submissions module requires Bounties port (from services/bounties)")
	}
	if injected.Verifications == nil {
		panic("submissions module requires Verifications port (from services/verification)")
	}
	if injected.Emitter == nil {
		panic("submissions module requires Emitter port (from services/outbox)")
	}

	svc := subsvc.New(
		deps,
		injected.Leases,
		injected.Transitions,
		injected.Guard,
		injected.Bounties,
		injected.Verifications,
		injected.Emitter,
	)

	m := &Module{deps: deps, name: b.Name, svc: svc}
	m.ports = Ports{Submissions: svc, Settle: svc}
	return m
}

// JobRoutes returns the route hook the scheduler mounts under /jobs
func (m *Module) JobRoutes() func(httpkit.Router) {
	return func(pr httpkit.Router) { subhttp.RegisterJobRoutes(pr, m.svc) }
}

// MountRoutes registers nothing; the submit surface rides under /jobs
func (m *Module) MountRoutes(_ httpkit.Router) {}

// Ports returns the module ports
func (m *Module) Ports() any { return m.ports }

// Name returns the module name
func (m *Module) Name() string { return m.name }
