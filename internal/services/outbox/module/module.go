// Package module wires the outbox service and exposes its ports
package module

import (
	"proofwork/internal/modkit"
	"proofwork/internal/modkit/httpkit"
	dom "proofwork/internal/services/outbox/domain"
	"proofwork/internal/services/outbox/service"
)

// Module defines the outbox module
type Module struct {
	deps  modkit.Deps
	ports Ports
	mux   *service.Mux
}

// New constructs the outbox module with its ports
// sink may be nil, in which case an empty in-process mux is used so the
// dispatcher still drains the table
func New(deps modkit.Deps, overrides Options, sink dom.Sink) *Module {
	opts := FromConfig(deps.Cfg)

	if overrides.ReplicaID != "" {
		opts.ReplicaID = overrides.ReplicaID
	}
	if overrides.Batch != 0 {
		opts.Batch = overrides.Batch
	}
	if overrides.MaxAttempts != 0 {
		opts.MaxAttempts = overrides.MaxAttempts
	}
	if overrides.SinkTimeout != 0 {
		opts.SinkTimeout = overrides.SinkTimeout
	}
	if overrides.PollEvery != 0 {
		opts.PollEvery = overrides.PollEvery
	}
	if overrides.ReapEvery != 0 {
		opts.ReapEvery = overrides.ReapEvery
	}
	if overrides.RetainSent != 0 {
		opts.RetainSent = overrides.RetainSent
	}
	if overrides.WebhookURL != "" {
		opts.WebhookURL = overrides.WebhookURL
	}
	if overrides.WebhookSecret != "" {
		opts.WebhookSecret = overrides.WebhookSecret
	}

	var mux *service.Mux
	if sink == nil {
		var fallback dom.Sink
		if opts.WebhookURL != "" {
			fallback = service.NewHTTPSink(opts.WebhookURL, opts.WebhookSecret, opts.SinkTimeout)
		}
		mux = service.NewMux(fallback)
		sink = mux
	}

	svc := service.New(deps, service.Config{
		ReplicaID:   opts.ReplicaID,
		Batch:       opts.Batch,
		MaxAttempts: opts.MaxAttempts,
		SinkTimeout: opts.SinkTimeout,
		PollEvery:   opts.PollEvery,
		ReapEvery:   opts.ReapEvery,
		RetainSent:  opts.RetainSent,
	}, sink)

	m := &Module{deps: deps, mux: mux}
	m.ports = Ports{
		Emitter:    svc,
		Dispatcher: svc,
		Reaper:     svc,
	}
	return m
}

// Mux returns the in-process sink registry, nil when a custom sink was
// injected
func (m *Module) Mux() *service.Mux { return m.mux }

// Ports returns the module ports (Emitter, Dispatcher, Reaper)
func (m *Module) Ports() any { return m.ports }

// Name returns the module name
func (m *Module) Name() string { return "outbox" }

// Prefix returns the module config prefix (none for worker-only service)
func (m *Module) Prefix() string { return "" }

// MountRoutes returns no HTTP routes
func (m *Module) MountRoutes(_ httpkit.Router) {}
