// Package module wires the policy service and exposes its ports
package module

import (
	"proofwork/internal/modkit"
	"proofwork/internal/modkit/httpkit"
	dom "proofwork/internal/services/policy/domain"
	"proofwork/internal/services/policy/service"
)

// Module defines the policy module. It has no HTTP surface of its own;
// other modules consume its gates through ports
type Module struct {
	ports Ports
}

// New constructs the policy module.
// probes may be nil; subsystems without a probe are treated as healthy
func New(deps modkit.Deps, probes map[string]dom.ProbeFunc) *Module {
	opts := FromConfig(deps.Cfg)

	svc := service.New(service.Config{
		Enforcement:          opts.Enforcement,
		PublicAllowedOrigins: opts.PublicAllowedOrigins,
		BlockedDomains:       opts.BlockedDomains,
		NoLoginCutoff:        opts.NoLoginCutoff,
		ValueEnvAllowlist:    opts.ValueEnvAllowlist,
		Probes:               probes,
		HealthTTL:            opts.HealthTTL,
		RefuseTTL:            opts.RefuseTTL,
		RefuseCap:            opts.RefuseCap,
	})

	m := &Module{}
	m.ports = Ports{Policy: svc, Refuse: svc}
	return m
}

// Ports returns the module ports
func (m *Module) Ports() any { return m.ports }

// Name returns the module name
func (m *Module) Name() string { return "policy" }

// Prefix returns the module route prefix (none)
func (m *Module) Prefix() string { return "" }

// MountRoutes registers no HTTP routes
func (m *Module) MountRoutes(_ httpkit.Router) {}
