package service

import (
	"context"
	"testing"
	"time"

	"proofwork/internal/modkit/repokit"
	perr "proofwork/internal/platform/errors"
	"proofwork/internal/platform/store"

	bldom "proofwork/internal/services/billing/domain"
	dom "proofwork/internal/services/bounties/domain"
	brepo "proofwork/internal/services/bounties/repo"
	sdom "proofwork/internal/services/scheduler/domain"
)

type fakeBountyRepo struct {
	bounties map[string]dom.Bounty
	jobs     []sdom.Job
}

var _ brepo.Repo = (*fakeBountyRepo)(nil)

func newFakeBountyRepo() *fakeBountyRepo {
	return &fakeBountyRepo{bounties: make(map[string]dom.Bounty)}
}

func (f *fakeBountyRepo) Insert(_ context.Context, b dom.Bounty) error {
	b.CreatedAt = time.Now()
	f.bounties[b.ID] = b
	return nil
}

func (f *fakeBountyRepo) ByID(_ context.Context, id string) (dom.Bounty, error) {
	b, ok := f.bounties[id]
	if !ok {
		return dom.Bounty{}, perr.NotFoundf("bounty %s", id)
	}
	return b, nil
}

func (f *fakeBountyRepo) ByIDForOrg(ctx context.Context, orgID, id string) (dom.Bounty, error) {
	b, err := f.ByID(ctx, id)
	if err != nil || b.OrgID != orgID {
		return dom.Bounty{}, perr.NotFoundf("bounty %s", id)
	}
	return b, nil
}

func (f *fakeBountyRepo) ByIDForUpdate(ctx context.Context, id string) (dom.Bounty, error) {
	return f.ByID(ctx, id)
}

func (f *fakeBountyRepo) ByOrg(_ context.Context, orgID string) ([]dom.Bounty, error) {
	var out []dom.Bounty
	for _, b := range f.bounties {
		if b.OrgID == orgID {
			out = append(out, b)
		}
	}
	return out, nil
}

func (f *fakeBountyRepo) SetPublished(_ context.Context, id string, at time.Time) error {
	b := f.bounties[id]
	b.Status = dom.StatusPublished
	b.PublishedAt = &at
	f.bounties[id] = b
	return nil
}

func (f *fakeBountyRepo) SetClosed(_ context.Context, id string) error {
	b := f.bounties[id]
	b.Status = dom.StatusClosed
	f.bounties[id] = b
	return nil
}

func (f *fakeBountyRepo) InsertJob(_ context.Context, j sdom.Job) error {
	f.jobs = append(f.jobs, j)
	return nil
}

func (f *fakeBountyRepo) CountUnsettledJobs(_ context.Context, bountyID string) (int, error) {
	n := 0
	for _, j := range f.jobs {
		if j.BountyID == bountyID && j.Status != sdom.JobDone {
			n++
		}
	}
	return n, nil
}

// fakeTx runs the closure directly; there is no real transaction
type fakeTx struct{}

func (fakeTx) Exec(context.Context, string, ...any) (store.CommandTag, error) { return nil, nil }
func (fakeTx) Query(context.Context, string, ...any) (store.Rows, error)     { return nil, nil }
func (fakeTx) QueryRow(context.Context, string, ...any) store.Row            { return nil }
func (fakeTx) Tx(_ context.Context, fn func(q store.RowQuerier) error) error { return fn(fakeTx{}) }

type fakeChecker struct{ verified map[string]bool }

func (f fakeChecker) Verified(_ context.Context, _, origin string) (bool, error) {
	return f.verified[origin], nil
}

func (f fakeChecker) VerifiedOrigins(context.Context, string) ([]string, error) { return nil, nil }

type ledgerCall struct {
	op     string
	orgID  string
	amount int64
	ref    string
}

type fakeLedger struct {
	calls      []ledgerCall
	reserveErr error
}

func (f *fakeLedger) Balance(context.Context, string) (bldom.Account, error) {
	return bldom.Account{}, nil
}

func (f *fakeLedger) Entries(context.Context, string, int) ([]bldom.Entry, error) { return nil, nil }

func (f *fakeLedger) Reserve(_ context.Context, _ repokit.Queryer, orgID string, amount int64, ref string) error {
	if f.reserveErr != nil {
		return f.reserveErr
	}
	f.calls = append(f.calls, ledgerCall{"reserve", orgID, amount, ref})
	return nil
}

func (f *fakeLedger) Release(_ context.Context, _ repokit.Queryer, orgID string, amount int64, ref string) error {
	f.calls = append(f.calls, ledgerCall{"release", orgID, amount, ref})
	return nil
}

func (f *fakeLedger) Capture(_ context.Context, _ repokit.Queryer, orgID string, amount int64, ref string) error {
	f.calls = append(f.calls, ledgerCall{"capture", orgID, amount, ref})
	return nil
}

func (f *fakeLedger) Credit(_ context.Context, _ repokit.Queryer, orgID string, amount int64, _, ref string) error {
	f.calls = append(f.calls, ledgerCall{"credit", orgID, amount, ref})
	return nil
}

type emitCall struct {
	topic   string
	idemKey string
}

type fakeEmitter struct{ emitted []emitCall }

func (f *fakeEmitter) Emit(_ context.Context, _ repokit.Queryer, topic string, _ any, idemKey string) error {
	f.emitted = append(f.emitted, emitCall{topic, idemKey})
	return nil
}

func newBountyTestSvc(repo *fakeBountyRepo, checker fakeChecker, ledger *fakeLedger, emitter *fakeEmitter) *Svc {
	return &Svc{
		db:      fakeTx{},
		binder:  repokit.BindFunc[brepo.Repo](func(repokit.Queryer) brepo.Repo { return repo }),
		repo:    repo,
		origins: checker,
		ledger:  ledger,
		emitter: emitter,
	}
}

func draftInput() dom.CreateInput {
	return dom.CreateInput{
		Title:          "Capture product pages",
		AllowedOrigins: []string{"https://Shop.Example.com"},
		PayoutCents:    1500,
		Descriptor: dom.TaskDescriptor{
			SchemaVersion:  dom.DescriptorSchemaV1,
			Type:           "page_capture",
			CapabilityTags: []string{"browser"},
			OutputSpec: dom.OutputSpec{
				RequiredArtifacts: []dom.ArtifactRequirement{{Kind: "screenshot", Label: "page"}},
			},
		},
	}
}

func TestCreate_DefaultsAndNormalization(t *testing.T) {
	t.Parallel()

	repo := newFakeBountyRepo()
	s := newBountyTestSvc(repo, fakeChecker{}, &fakeLedger{}, &fakeEmitter{})

	b, err := s.Create(context.Background(), "org_1", draftInput())
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if b.Status != dom.StatusDraft {
		t.Fatalf("status = %s", b.Status)
	}
	if b.RequiredProofs != 1 || b.CanaryPercent != 100 {
		t.Fatalf("defaults: proofs=%d canary=%v", b.RequiredProofs, b.CanaryPercent)
	}
	if len(b.FingerprintClasses) != 1 || b.FingerprintClasses[0] != dom.DefaultFingerprintClass {
		t.Fatalf("fingerprint classes = %v", b.FingerprintClasses)
	}
	if len(b.AllowedOrigins) != 1 || b.AllowedOrigins[0] != "https://shop.example.com" {
		t.Fatalf("origins = %v", b.AllowedOrigins)
	}
}

func TestCreate_InvalidDescriptor(t *testing.T) {
	t.Parallel()

	s := newBountyTestSvc(newFakeBountyRepo(), fakeChecker{}, &fakeLedger{}, &fakeEmitter{})
	in := draftInput()
	in.Descriptor.SchemaVersion = "v9"

	_, err := s.Create(context.Background(), "org_1", in)
	if e, ok := perr.As(err); !ok || e.Code() != perr.ErrorCodeDescriptorInvalid {
		t.Fatalf("create with bad descriptor: %v", err)
	}
}

func TestPublish_FansOutAndReserves(t *testing.T) {
	t.Parallel()

	repo := newFakeBountyRepo()
	ledger := &fakeLedger{}
	emitter := &fakeEmitter{}
	s := newBountyTestSvc(repo, fakeChecker{verified: map[string]bool{"https://shop.example.com": true}}, ledger, emitter)

	in := draftInput()
	in.FingerprintClasses = []string{"standard", "mobile"}
	b, err := s.Create(context.Background(), "org_1", in)
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	out, err := s.Publish(context.Background(), "org_1", b.ID)
	if err != nil {
		t.Fatalf("publish: %v", err)
	}
	if out.Bounty.Status != dom.StatusPublished || out.Bounty.PublishedAt == nil {
		t.Fatalf("bounty after publish: %+v", out.Bounty)
	}
	if len(out.JobIDs) != 2 || len(repo.jobs) != 2 {
		t.Fatalf("jobs = %v", out.JobIDs)
	}
	for _, j := range repo.jobs {
		if j.Status != sdom.JobOpen || j.BountyID != b.ID {
			t.Fatalf("job = %+v", j)
		}
	}

	if len(ledger.calls) != 1 || ledger.calls[0].op != "reserve" || ledger.calls[0].amount != 3000 {
		t.Fatalf("ledger calls = %+v", ledger.calls)
	}
	if len(emitter.emitted) != 1 || emitter.emitted[0].topic != "bounty.published" || emitter.emitted[0].idemKey != b.ID {
		t.Fatalf("emitted = %+v", emitter.emitted)
	}

	// double publish is a conflict
	_, err = s.Publish(context.Background(), "org_1", b.ID)
	if e, ok := perr.As(err); !ok || e.Code() != perr.ErrorCodeConflict {
		t.Fatalf("second publish: %v", err)
	}
}

func TestPublish_UnverifiedOrigin(t *testing.T) {
	t.Parallel()

	repo := newFakeBountyRepo()
	ledger := &fakeLedger{}
	s := newBountyTestSvc(repo, fakeChecker{}, ledger, &fakeEmitter{})

	b, _ := s.Create(context.Background(), "org_1", draftInput())
	_, err := s.Publish(context.Background(), "org_1", b.ID)
	if e, ok := perr.As(err); !ok || e.Code() != perr.ErrorCodeOriginNotVerified {
		t.Fatalf("publish with unverified origin: %v", err)
	}
	if len(ledger.calls) != 0 {
		t.Fatalf("reserved despite refusal: %+v", ledger.calls)
	}
}

func TestPublish_WrongOrgIsNotFound(t *testing.T) {
	t.Parallel()

	repo := newFakeBountyRepo()
	s := newBountyTestSvc(repo, fakeChecker{}, &fakeLedger{}, &fakeEmitter{})

	b, _ := s.Create(context.Background(), "org_1", draftInput())
	_, err := s.Publish(context.Background(), "org_2", b.ID)
	if e, ok := perr.As(err); !ok || e.Code() != perr.ErrorCodeNotFound {
		t.Fatalf("cross-org publish: %v", err)
	}
}

func TestClose_ReleasesUnsettled(t *testing.T) {
	t.Parallel()

	repo := newFakeBountyRepo()
	ledger := &fakeLedger{}
	s := newBountyTestSvc(repo, fakeChecker{verified: map[string]bool{"https://shop.example.com": true}}, ledger, &fakeEmitter{})

	in := draftInput()
	in.FingerprintClasses = []string{"standard", "mobile"}
	b, _ := s.Create(context.Background(), "org_1", in)
	if _, err := s.Publish(context.Background(), "org_1", b.ID); err != nil {
		t.Fatalf("publish: %v", err)
	}

	// one job settled, one still open
	repo.jobs[0].Status = sdom.JobDone

	closed, err := s.Close(context.Background(), "org_1", b.ID)
	if err != nil {
		t.Fatalf("close: %v", err)
	}
	if closed.Status != dom.StatusClosed {
		t.Fatalf("status = %s", closed.Status)
	}

	last := ledger.calls[len(ledger.calls)-1]
	if last.op != "release" || last.amount != 1500 {
		t.Fatalf("release call = %+v", last)
	}

	// closing twice is a conflict
	if _, err := s.Close(context.Background(), "org_1", b.ID); err == nil {
		t.Fatalf("second close should fail")
	}
}
