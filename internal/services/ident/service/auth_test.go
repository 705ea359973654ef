package service

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"proofwork/internal/modkit/repokit"
	perr "proofwork/internal/platform/errors"
	pnet "proofwork/internal/platform/net"
	"proofwork/internal/platform/store"

	dom "proofwork/internal/services/ident/domain"
	irepo "proofwork/internal/services/ident/repo"
)

// fakeIdentRepo serves canned rows keyed by the hashes the service computes
type fakeIdentRepo struct {
	workersByHash  map[string]dom.Worker
	keysByPrefix   map[string]dom.APIKey
	sessionsByHash map[string]dom.Session

	buckets map[string]bucketState

	touchedWorkers []string
	touchedKeys    []string
}

type bucketState struct {
	tokens    float64
	updatedAt time.Time
}

func newFakeIdentRepo() *fakeIdentRepo {
	return &fakeIdentRepo{
		workersByHash:  map[string]dom.Worker{},
		keysByPrefix:   map[string]dom.APIKey{},
		sessionsByHash: map[string]dom.Session{},
		buckets:        map[string]bucketState{},
	}
}

func (f *fakeIdentRepo) InsertOrg(context.Context, dom.Org) error         { return nil }
func (f *fakeIdentRepo) OrgByID(context.Context, string) (dom.Org, error) { return dom.Org{}, nil }
func (f *fakeIdentRepo) InsertOrgUser(context.Context, dom.OrgUser) error { return nil }
func (f *fakeIdentRepo) OrgUserByEmail(context.Context, string) (dom.OrgUser, error) {
	return dom.OrgUser{}, perr.NotFoundf("no user")
}
func (f *fakeIdentRepo) InsertSession(context.Context, dom.Session) error { return nil }

func (f *fakeIdentRepo) SessionByTokenHash(_ context.Context, h string) (dom.Session, error) {
	s, ok := f.sessionsByHash[h]
	if !ok {
		return dom.Session{}, perr.NotFoundf("no session")
	}
	return s, nil
}

func (f *fakeIdentRepo) InsertAPIKey(context.Context, dom.APIKey) error { return nil }

func (f *fakeIdentRepo) APIKeyByPrefix(_ context.Context, p string) (dom.APIKey, error) {
	k, ok := f.keysByPrefix[p]
	if !ok {
		return dom.APIKey{}, perr.NotFoundf("no key")
	}
	return k, nil
}

func (f *fakeIdentRepo) TouchAPIKey(_ context.Context, id string, _ time.Time) error {
	f.touchedKeys = append(f.touchedKeys, id)
	return nil
}

func (f *fakeIdentRepo) InsertWorker(context.Context, dom.Worker) error { return nil }

func (f *fakeIdentRepo) WorkerByID(context.Context, string) (dom.Worker, error) {
	return dom.Worker{}, perr.NotFoundf("no worker")
}

func (f *fakeIdentRepo) WorkerByTokenHash(_ context.Context, h string) (dom.Worker, error) {
	w, ok := f.workersByHash[h]
	if !ok {
		return dom.Worker{}, perr.NotFoundf("no worker")
	}
	return w, nil
}

func (f *fakeIdentRepo) TouchWorker(_ context.Context, id string, _ time.Time) error {
	f.touchedWorkers = append(f.touchedWorkers, id)
	return nil
}

func (f *fakeIdentRepo) SetWorkerStatus(context.Context, string, string) error { return nil }
func (f *fakeIdentRepo) SetWorkerRate(context.Context, string, int) error      { return nil }

func (f *fakeIdentRepo) BucketForUpdate(_ context.Context, key string) (float64, time.Time, bool, error) {
	b, ok := f.buckets[key]
	if !ok {
		return 0, time.Time{}, false, nil
	}
	return b.tokens, b.updatedAt, true, nil
}

func (f *fakeIdentRepo) UpsertBucket(_ context.Context, key string, tokens float64) error {
	f.buckets[key] = bucketState{tokens: tokens, updatedAt: time.Now()}
	return nil
}

// fakeTx runs the closure directly; there is no real transaction
type fakeTx struct{}

func (fakeTx) Exec(context.Context, string, ...any) (store.CommandTag, error) { return nil, nil }
func (fakeTx) Query(context.Context, string, ...any) (store.Rows, error)     { return nil, nil }
func (fakeTx) QueryRow(context.Context, string, ...any) store.Row            { return nil }
func (fakeTx) Tx(_ context.Context, fn func(q store.RowQuerier) error) error { return fn(fakeTx{}) }

func newAuthTestSvc(repo *fakeIdentRepo) *Svc {
	return &Svc{
		db:     fakeTx{},
		binder: repokit.BindFunc[irepo.Repo](func(repokit.Queryer) irepo.Repo { return repo }),
		repo:   repo,
		cfg: Config{
			WorkerTokenPepper: "wp",
			BuyerTokenPepper:  "bp",
			SessionTTL:        time.Hour,
			AdminTokens:       []string{"admin-secret"},
			VerifierTokens:    []string{"verifier-secret"},
			WorkerRatePerMin:  120,
			RateBurst:         5,
		},
	}
}

func reqWithBearer(token string) *http.Request {
	r := httptest.NewRequest("GET", "/x", nil)
	if token != "" {
		r.Header.Set("Authorization", "Bearer "+token)
	}
	return r
}

func TestParseWorker(t *testing.T) {
	repo := newFakeIdentRepo()
	s := newAuthTestSvc(repo)
	ports := s.AuthPorts()

	token := "pwt_abc123"
	repo.workersByHash[hashSecret(token, "wp")] = dom.Worker{
		ID: "wrk_1", Status: dom.WorkerActive, RatePerMin: 120,
	}

	id, err := ports.Worker.Parse(reqWithBearer(token))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if id.Kind != pnet.ActorWorker || id.ID != "wrk_1" {
		t.Fatalf("identity = %+v", id)
	}
	if len(repo.touchedWorkers) != 1 {
		t.Fatalf("last_seen should be touched")
	}

	// unknown token
	if _, err := ports.Worker.Parse(reqWithBearer("pwt_nope")); err == nil {
		t.Fatalf("expected unauthorized for unknown token")
	}

	// banned worker
	banned := "pwt_banned"
	repo.workersByHash[hashSecret(banned, "wp")] = dom.Worker{ID: "wrk_2", Status: dom.WorkerBanned}
	if _, err := ports.Worker.Parse(reqWithBearer(banned)); err == nil {
		t.Fatalf("expected forbidden for banned worker")
	} else if e, ok := perr.As(err); !ok || e.Code() != perr.ErrorCodeForbidden {
		t.Fatalf("code = %v", err)
	}

	// missing header entirely
	if _, err := ports.Worker.Parse(reqWithBearer("")); err == nil {
		t.Fatalf("expected unauthorized for missing token")
	}
}

func TestParseBuyer_APIKey(t *testing.T) {
	repo := newFakeIdentRepo()
	s := newAuthTestSvc(repo)
	ports := s.AuthPorts()

	repo.keysByPrefix["pfx"] = dom.APIKey{
		ID: "pwk_row", OrgID: "org_1", KeyPrefix: "pfx", Salt: "salt",
		KeyHash: hashAPIKey("salt", "sekret", "bp"),
	}

	id, err := ports.Buyer.Parse(reqWithBearer(ComposeAPIKey("pfx", "sekret")))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if id.Kind != pnet.ActorBuyer || id.OrgID != "org_1" {
		t.Fatalf("identity = %+v", id)
	}
	if len(repo.touchedKeys) != 1 {
		t.Fatalf("last_used should be touched")
	}

	// wrong secret, right prefix
	if _, err := ports.Buyer.Parse(reqWithBearer(ComposeAPIKey("pfx", "wrong"))); err == nil {
		t.Fatalf("expected unauthorized on bad secret")
	}
}

func TestParseBuyer_SessionAndCSRF(t *testing.T) {
	repo := newFakeIdentRepo()
	s := newAuthTestSvc(repo)
	ports := s.AuthPorts()

	token := "sess-token"
	repo.sessionsByHash[hashSecret(token, "bp")] = dom.Session{
		ID: "ses_1", OrgUserID: "usr_1", OrgID: "org_1",
		CSRFSecret: "csrf-secret", ExpiresAt: time.Now().Add(time.Hour),
	}

	get := httptest.NewRequest("GET", "/x", nil)
	get.AddCookie(&http.Cookie{Name: SessionCookie, Value: token})
	id, err := ports.Buyer.Parse(get)
	if err != nil {
		t.Fatalf("GET parse: %v", err)
	}
	if id.OrgID != "org_1" {
		t.Fatalf("identity = %+v", id)
	}

	// unsafe method without csrf header
	post := httptest.NewRequest("POST", "/x", nil)
	post.AddCookie(&http.Cookie{Name: SessionCookie, Value: token})
	if _, err := ports.Buyer.Parse(post); err == nil {
		t.Fatalf("expected csrf_invalid")
	} else if e, ok := perr.As(err); !ok || e.Code() != perr.ErrorCodeCSRFInvalid {
		t.Fatalf("code = %v", err)
	}

	// unsafe method with the right header
	post.Header.Set(CSRFHeader, "csrf-secret")
	if _, err := ports.Buyer.Parse(post); err != nil {
		t.Fatalf("POST with csrf: %v", err)
	}

	// expired session
	old := "old-token"
	repo.sessionsByHash[hashSecret(old, "bp")] = dom.Session{
		ID: "ses_2", OrgID: "org_1", CSRFSecret: "x", ExpiresAt: time.Now().Add(-time.Minute),
	}
	getOld := httptest.NewRequest("GET", "/x", nil)
	getOld.AddCookie(&http.Cookie{Name: SessionCookie, Value: old})
	if _, err := ports.Buyer.Parse(getOld); err == nil {
		t.Fatalf("expected expired session to fail")
	}
}

func TestParseAdminAndVerifier(t *testing.T) {
	s := newAuthTestSvc(newFakeIdentRepo())
	ports := s.AuthPorts()

	id, err := ports.Admin.Parse(reqWithBearer("admin-secret"))
	if err != nil || id.Kind != pnet.ActorAdmin {
		t.Fatalf("admin parse = (%+v, %v)", id, err)
	}
	if _, err := ports.Admin.Parse(reqWithBearer("wrong")); err == nil {
		t.Fatalf("expected unauthorized admin")
	}

	vid, err := ports.Verifier.Parse(reqWithBearer("verifier-secret"))
	if err != nil || vid.Kind != pnet.ActorVerifier {
		t.Fatalf("verifier parse = (%+v, %v)", vid, err)
	}
	if vid.ID != VerifierID("verifier-secret") {
		t.Fatalf("verifier id should be derived from the token, got %q", vid.ID)
	}
	if _, err := ports.Verifier.Parse(reqWithBearer("")); err == nil {
		t.Fatalf("expected unauthorized verifier")
	}
}

func TestAllow_TokenBucket(t *testing.T) {
	repo := newFakeIdentRepo()
	s := newAuthTestSvc(repo)
	ctx := context.Background()

	// burst of 5: five immediate calls pass, the sixth is limited
	for i := 0; i < 5; i++ {
		if err := s.Allow(ctx, "worker:wrk_1", 60, 5); err != nil {
			t.Fatalf("call %d: %v", i, err)
		}
	}
	err := s.Allow(ctx, "worker:wrk_1", 60, 5)
	if err == nil {
		t.Fatalf("expected rate_limited on sixth call")
	}
	if e, ok := perr.As(err); !ok || e.Code() != perr.ErrorCodeRateLimited {
		t.Fatalf("code = %v", err)
	}

	// refill: backdate the bucket one minute, 60/min restores capacity
	b := repo.buckets["worker:wrk_1"]
	b.updatedAt = time.Now().Add(-time.Minute)
	repo.buckets["worker:wrk_1"] = b
	if err := s.Allow(ctx, "worker:wrk_1", 60, 5); err != nil {
		t.Fatalf("after refill: %v", err)
	}

	// perMin <= 0 disables limiting
	for i := 0; i < 100; i++ {
		if err := s.Allow(ctx, "worker:free", 0, 1); err != nil {
			t.Fatalf("disabled limiter should always allow: %v", err)
		}
	}
}
