// Package module wires the audit trail using modkit
package module

import (
	modkit "proofwork/internal/modkit"
	"proofwork/internal/modkit/httpkit"

	asvc "proofwork/internal/services/audit/service"
)

// Module implements the audit module. It owns no route prefix: the
// admin module serves the read surface alongside its mutations
type Module struct {
	deps modkit.Deps
	name string

	ports Ports
	svc   *asvc.Svc
}

// New constructs the audit module
func New(deps modkit.Deps, opts ...modkit.Option) *Module {
	b := modkit.Build(append([]modkit.Option{
		modkit.WithName("audit"),
	}, opts...)...)

	svc := asvc.New(deps, FromConfig(deps.Cfg))

	m := &Module{deps: deps, name: b.Name, svc: svc}
	m.ports = Ports{Recorder: svc, Events: svc, Query: svc, Mirror: svc}
	return m
}

// MountRoutes registers nothing; the admin module serves the reads
func (m *Module) MountRoutes(_ httpkit.Router) {}

// Ports returns the module ports
func (m *Module) Ports() any { return m.ports }

// Name returns the module name
func (m *Module) Name() string { return m.name }
