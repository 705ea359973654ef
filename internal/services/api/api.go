// Package api is the composition root: it constructs every module,
// wires their ports together, and mounts the HTTP surface
package api

import (
	"context"

	"proofwork/internal/platform/config"
	"proofwork/internal/platform/logger"
	phttp "proofwork/internal/platform/net/http"
	"proofwork/internal/platform/net/middleware"
	"proofwork/internal/platform/store"

	"proofwork/internal/modkit"
	"proofwork/internal/modkit/httpkit"
	"proofwork/internal/modkit/module"
	"proofwork/internal/modkit/repokit"
	"proofwork/internal/modkit/swaggerkit"

	metamod "proofwork/internal/services/api/meta/module"

	adminmod "proofwork/internal/services/admin/module"
	artifactsmod "proofwork/internal/services/artifacts/module"
	auditmod "proofwork/internal/services/audit/module"
	billingmod "proofwork/internal/services/billing/module"
	bountiesmod "proofwork/internal/services/bounties/module"
	identmod "proofwork/internal/services/ident/module"
	originsmod "proofwork/internal/services/origins/module"
	oxdom "proofwork/internal/services/outbox/domain"
	outboxmod "proofwork/internal/services/outbox/module"
	payoutsmod "proofwork/internal/services/payouts/module"
	pdom "proofwork/internal/services/policy/domain"
	policymod "proofwork/internal/services/policy/module"
	schedulermod "proofwork/internal/services/scheduler/module"
	submissionsmod "proofwork/internal/services/submissions/module"
	vdom "proofwork/internal/services/verification/domain"
	verificationmod "proofwork/internal/services/verification/module"
)

// Options are the API options
type Options struct {
	Config         config.Conf
	Store          *store.Store
	Logger         *logger.Logger
	EnableSwagger  bool
	EnableProfiler bool
}

// Modules is the fully wired module graph. The API server mounts it;
// the worker binary runs its background loops
type Modules struct {
	Outbox       *outboxmod.Module
	Ident        *identmod.Module
	Policy       *policymod.Module
	Origins      *originsmod.Module
	Billing      *billingmod.Module
	Bounties     *bountiesmod.Module
	Scheduler    *schedulermod.Module
	Artifacts    *artifactsmod.Module
	Submissions  *submissionsmod.Module
	Payouts      *payoutsmod.Module
	Verification *verificationmod.Module
	Audit        *auditmod.Module
	Admin        *adminmod.Module

	mounted []module.Module
}

// intakeProxy breaks the submissions/verification construction cycle:
// submissions needs the intake port before the verification module
// exists. The target is set once both are built
type intakeProxy struct{ target vdom.IntakePort }

func (p *intakeProxy) OpenAttemptOn(ctx context.Context, q repokit.Queryer, submissionID string, attemptNo int) error {
	return p.target.OpenAttemptOn(ctx, q, submissionID, attemptNo)
}

// Build constructs and cross-wires every module
func Build(deps modkit.Deps) *Modules {
	auditMod := auditmod.New(deps)
	auditPorts := module.MustPortsOf[auditmod.Ports](auditMod)

	// the outbox carries every cross-module event; build it early so
	// the emitter can be handed to everyone else
	outboxMod := outboxmod.New(deps, outboxmod.Options{}, nil)
	emitter := module.MustPortsOf[outboxmod.Ports](outboxMod).Emitter

	// terminal job and payout transitions land in the audit trail via
	// the in-process sink
	if mux := outboxMod.Mux(); mux != nil {
		for _, topic := range []string{
			oxdom.TopicSubmissionAccepted,
			oxdom.TopicSubmissionRejected,
			oxdom.TopicSubmissionDuplicate,
			oxdom.TopicPayoutPaid,
			oxdom.TopicPayoutFailed,
		} {
			mux.Handle(topic, auditPorts.Events.RecordEvent)
		}
	}

	identMod := identmod.New(deps)
	identPorts := module.MustPortsOf[identmod.Ports](identMod)
	auth := identPorts.Auth

	policyMod := policymod.New(deps, map[string]pdom.ProbeFunc{
		"postgres": func(ctx context.Context) error {
			if p, ok := any(deps.PG).(store.Pinger); ok {
				return p.Ping(ctx)
			}
			return nil
		},
	})
	policyPorts := module.MustPortsOf[policymod.Ports](policyMod)

	originsMod := originsmod.New(deps, modkit.WithPorts(originsmod.Injected{
		BuyerAuth: auth.Buyer,
	}))
	originsPorts := module.MustPortsOf[originsmod.Ports](originsMod)

	billingMod := billingmod.New(deps, modkit.WithPorts(billingmod.Injected{
		BuyerAuth: auth.Buyer,
		Orgs:      identPorts.Directory,
		Emitter:   emitter,
	}))
	billingPorts := module.MustPortsOf[billingmod.Ports](billingMod)

	bountiesMod := bountiesmod.New(deps, modkit.WithPorts(bountiesmod.Injected{
		BuyerAuth: auth.Buyer,
		Origins:   originsPorts.Origins,
		Ledger:    billingPorts.Ledger,
		Emitter:   emitter,
	}))
	bountiesPorts := module.MustPortsOf[bountiesmod.Ports](bountiesMod)

	// the submit surface rides under /jobs; the hook resolves after the
	// submissions module exists
	var jobExtras func(httpkit.Router)
	schedulerMod := schedulermod.New(deps, schedulermod.FromConfig(deps.Cfg), modkit.WithPorts(schedulermod.Injected{
		WorkerAuth: auth.Worker,
		Workers:    identPorts.Directory,
		Limiter:    identPorts.RateLimiter,
		Policy:     policyPorts.Policy,
		Refuse:     policyPorts.Refuse,
		Emitter:    emitter,
		JobRoutes: func(rr httpkit.Router) {
			if jobExtras != nil {
				jobExtras(rr)
			}
		},
	}))
	schedulerPorts := module.MustPortsOf[schedulermod.Ports](schedulerMod)

	artifactsMod := artifactsmod.New(deps, modkit.WithPorts(artifactsmod.Injected{
		WorkerAuth:  auth.Worker,
		ReaderAuth:  middleware.FirstOf(auth.Worker, auth.Buyer, auth.Verifier, auth.Admin),
		Transitions: schedulerPorts.Transitions,
		Bounties:    bountiesPorts.Reader,
		Emitter:     emitter,
	}))
	artifactsPorts := module.MustPortsOf[artifactsmod.Ports](artifactsMod)

	intake := &intakeProxy{}
	submissionsMod := submissionsmod.New(deps, modkit.WithPorts(submissionsmod.Injected{
		Leases:        schedulerPorts.Leases,
		Transitions:   schedulerPorts.Transitions,
		Guard:         artifactsPorts.Guard,
		Bounties:      bountiesPorts.Reader,
		Verifications: intake,
		Emitter:       emitter,
	}))
	submissionsPorts := module.MustPortsOf[submissionsmod.Ports](submissionsMod)
	jobExtras = submissionsMod.JobRoutes()

	payoutsMod := payoutsmod.New(deps, modkit.WithPorts(payoutsmod.Injected{
		WorkerAuth: auth.Worker,
		BuyerAuth:  auth.Buyer,
		Directory:  identPorts.Directory,
		Ledger:     billingPorts.Ledger,
		Emitter:    emitter,
	}))
	payoutsPorts := module.MustPortsOf[payoutsmod.Ports](payoutsMod)

	verificationMod := verificationmod.New(deps, verificationmod.FromConfig(deps.Cfg), modkit.WithPorts(verificationmod.Injected{
		VerifierAuth: auth.Verifier,
		Settle:       submissionsPorts.Settle,
		Transitions:  schedulerPorts.Transitions,
		Bounties:     bountiesPorts.Reader,
		Payouts:      payoutsPorts.Creator,
		Emitter:      emitter,
	}))
	verificationPorts := module.MustPortsOf[verificationmod.Ports](verificationMod)
	intake.target = verificationPorts.Intake

	adminMod := adminmod.New(deps, modkit.WithPorts(adminmod.Injected{
		AdminAuth:     auth.Admin,
		Audit:         auditPorts.Recorder,
		AuditQuery:    auditPorts.Query,
		Workers:       identPorts.Admin,
		Verifications: verificationPorts.Admin,
		Payouts:       payoutsPorts.Admin,
	}))

	m := &Modules{
		Outbox:       outboxMod,
		Ident:        identMod,
		Policy:       policyMod,
		Origins:      originsMod,
		Billing:      billingMod,
		Bounties:     bountiesMod,
		Scheduler:    schedulerMod,
		Artifacts:    artifactsMod,
		Submissions:  submissionsMod,
		Payouts:      payoutsMod,
		Verification: verificationMod,
		Audit:        auditMod,
		Admin:        adminMod,
	}
	m.mounted = []module.Module{
		metamod.New(deps),
		identMod,
		originsMod,
		policyMod,
		billingMod,
		bountiesMod,
		schedulerMod,
		artifactsMod,
		submissionsMod,
		verificationMod,
		payoutsMod,
		outboxMod,
		auditMod,
		adminMod,
	}
	return m
}

// Loop is a named background loop; each runs until ctx is cancelled
type Loop struct {
	Name string
	Run  func(context.Context) error
}

// Loops returns every background loop the graph carries. The worker
// binary runs them; the API binary leaves them to a separate process
func (m *Modules) Loops() []Loop {
	outbox := module.MustPortsOf[outboxmod.Ports](m.Outbox)
	sched := module.MustPortsOf[schedulermod.Ports](m.Scheduler)
	ver := module.MustPortsOf[verificationmod.Ports](m.Verification)
	arts := module.MustPortsOf[artifactsmod.Ports](m.Artifacts)
	pay := module.MustPortsOf[payoutsmod.Ports](m.Payouts)
	aud := module.MustPortsOf[auditmod.Ports](m.Audit)

	return []Loop{
		{Name: "outbox-dispatch", Run: outbox.Dispatcher.Run},
		{Name: "outbox-reap", Run: outbox.Reaper.RunReaper},
		{Name: "lease-sweep", Run: sched.Sweeper.RunSweeper},
		{Name: "claim-sweep", Run: ver.Sweeper.RunSweeper},
		{Name: "artifact-scan", Run: arts.Scanner.RunScanner},
		{Name: "payout-settle", Run: pay.Runner.RunSettler},
		{Name: "audit-mirror", Run: aud.Mirror.RunMirror},
	}
}

// Mount constructs the module graph and mounts the full API onto the
// given router
func Mount(r phttp.Router, opt Options) *Modules {
	deps := modkit.Deps{
		Cfg: opt.Config,
		PG:  opt.Store.PG,
		CH:  opt.Store.CH,
	}
	if opt.Logger != nil {
		deps.Log = *opt.Logger
	}
	m := Build(deps)

	httpkit.MountAPI(r, httpkit.CommonStack(), func(api httpkit.Router) {
		swaggerkit.Mount(r, opt.EnableSwagger)
		phttp.MountProfiler(r, "/debug", opt.EnableProfiler)

		for _, mod := range m.mounted {
			module.Register(mod.Name(), mod.Ports())
			mod.MountRoutes(api)
		}

		// gated artifact download, outside the upload prefix
		m.Artifacts.MountDownloads(api)

		// provider webhooks skip buyer auth; the handler verifies its
		// own signatures
		api.Route("/webhooks", func(wr httpkit.Router) {
			m.Billing.MountWebhooks(wr)
		})
	})
	return m
}
