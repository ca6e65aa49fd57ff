package service

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"shelfmatch/internal/adapters/source"
	"shelfmatch/internal/core/match"
	"shelfmatch/internal/modkit/repokit"
	perr "shelfmatch/internal/platform/errors"

	bdomain "shelfmatch/internal/services/api/backends/domain"
	"shelfmatch/internal/services/api/pending/domain"
	prepo "shelfmatch/internal/services/api/pending/repo"
)

// memDB doubles the transactional store. Tx serializes callbacks with a
// mutex the way the row lock does in Postgres and restores the row map when
// the callback errors, so commit/rollback semantics hold
type memDB struct {
	mu   sync.Mutex
	rows map[string]domain.Query
}

func (db *memDB) Tx(ctx context.Context, fn func(q repokit.Queryer) error) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	snap := make(map[string]domain.Query, len(db.rows))
	for k, v := range db.rows {
		snap[k] = v
	}
	if err := fn(db); err != nil {
		db.rows = snap
		return err
	}
	return nil
}

// The raw SQL surface is never exercised; the binder hands out memRepo
func (db *memDB) Exec(context.Context, string, ...any) (repokit.CommandTag, error) {
	panic("unexpected raw sql")
}
func (db *memDB) Query(context.Context, string, ...any) (repokit.Rows, error) {
	panic("unexpected raw sql")
}
func (db *memDB) QueryRow(context.Context, string, ...any) repokit.Row {
	panic("unexpected raw sql")
}

type memBinder struct{ db *memDB }

func (b memBinder) Bind(q repokit.Queryer) prepo.Repo { return memRepo{db: b.db} }

type memRepo struct{ db *memDB }

func (m memRepo) EnsureSchema(context.Context) error { return nil }

func (m memRepo) Insert(_ context.Context, q domain.Query) error {
	m.db.rows[q.ID] = q
	return nil
}

func (m memRepo) List(_ context.Context, status string, skip, limit int) ([]domain.Query, error) {
	var out []domain.Query
	for _, q := range m.db.rows {
		if q.Status == status {
			out = append(out, q)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if skip >= len(out) {
		return nil, nil
	}
	out = out[skip:]
	if limit < len(out) {
		out = out[:limit]
	}
	return out, nil
}

func (m memRepo) Count(_ context.Context, status string) (int64, error) {
	var n int64
	for _, q := range m.db.rows {
		if q.Status == status {
			n++
		}
	}
	return n, nil
}

func (m memRepo) CountsFor(_ context.Context, backend string) (domain.Counts, error) {
	var c domain.Counts
	for _, q := range m.db.rows {
		if q.Backend != backend {
			continue
		}
		switch q.Status {
		case domain.StatusPending:
			c.Pending++
		case domain.StatusResolved:
			c.Resolved++
		case domain.StatusIgnored:
			c.Ignored++
		}
	}
	return c, nil
}

func (m memRepo) GetForUpdate(_ context.Context, id string) (domain.Query, error) {
	q, ok := m.db.rows[id]
	if !ok {
		return domain.Query{}, perr.NotFoundf("pending query %s not found", id)
	}
	return q, nil
}

func (m memRepo) SetStatus(_ context.Context, id, status string, at time.Time) error {
	q, ok := m.db.rows[id]
	if !ok {
		return perr.NotFoundf("pending query %s not found", id)
	}
	q.Status = status
	q.ResolvedAt = &at
	m.db.rows[id] = q
	return nil
}

func (m memRepo) Delete(_ context.Context, id string) (bool, error) {
	_, ok := m.db.rows[id]
	delete(m.db.rows, id)
	return ok, nil
}

func (m memRepo) HasIgnored(_ context.Context, backend, normalizedText string) (bool, error) {
	for _, q := range m.db.rows {
		if q.Backend == backend && q.NormalizedText == normalizedText && q.Status == domain.StatusIgnored {
			return true, nil
		}
	}
	return false, nil
}

// countingAdapter records alias writes; fail makes AddAlias return that
// error after counting the attempt
type countingAdapter struct {
	mu      sync.Mutex
	calls   int
	aliases []string
	fail    error
}

func (a *countingAdapter) ListProducts(context.Context) ([]source.ExternalProduct, error) {
	return nil, nil
}

func (a *countingAdapter) Product(_ context.Context, id string) (*source.ExternalProduct, error) {
	return nil, perr.NotFoundf("product %q not found", id)
}

func (a *countingAdapter) AddAlias(_ context.Context, productID, alias string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.calls++
	if a.fail != nil {
		return a.fail
	}
	a.aliases = append(a.aliases, productID+"="+alias)
	return nil
}

func (a *countingAdapter) Search(context.Context, string, int) ([]source.ExternalProduct, error) {
	return nil, nil
}

func (a *countingAdapter) ProductURL(string) string { return "" }

func (a *countingAdapter) callCount() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.calls
}

type staticResolver struct{ b bdomain.Backend }

func (r staticResolver) Get(name string) (bdomain.Backend, bool) {
	if strings.EqualFold(strings.TrimSpace(name), r.b.Name) {
		return r.b, true
	}
	return bdomain.Backend{}, false
}

func (r staticResolver) All() []bdomain.Backend { return []bdomain.Backend{r.b} }

func newTestService(t *testing.T, adapter source.Adapter) (*Svc, *memDB) {
	t.Helper()
	db := &memDB{rows: map[string]domain.Query{}}
	res := staticResolver{b: bdomain.Backend{Name: "demo", Language: "es", AdapterTag: "mock", Adapter: adapter}}
	return New(db, memBinder{db: db}, res, Config{}), db
}

func mustCreate(t *testing.T, svc *Svc, text string) domain.Query {
	t.Helper()
	q, err := svc.Create(context.Background(), domain.CreateInput{
		OriginalText:   text,
		NormalizedText: strings.ToLower(text),
		Backend:        "demo",
		Threshold:      0.8,
		Candidates:     []match.Candidate{{ProductID: "42", Confidence: 0.61, Alias: "gusanos", Strategy: "fuzzy"}},
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	return q
}

func TestCreateOpensFreshRecords(t *testing.T) {
	t.Parallel()
	svc, db := newTestService(t, &countingAdapter{})

	a := mustCreate(t, svc, "Gusanitos Fresa")
	b := mustCreate(t, svc, "Gusanitos Fresa")

	if a.ID == b.ID {
		t.Fatalf("repeated failures must open distinct records, both got %s", a.ID)
	}
	if a.Status != domain.StatusPending || b.Status != domain.StatusPending {
		t.Fatalf("statuses = %s, %s want pending", a.Status, b.Status)
	}
	if len(db.rows) != 2 {
		t.Fatalf("stored rows = %d want 2", len(db.rows))
	}
	if got := db.rows[a.ID]; len(got.Candidates) != 1 || got.Candidates[0].ProductID != "42" {
		t.Fatalf("candidate snapshot not carried: %+v", got.Candidates)
	}
}

func TestListDefaultsToPendingAndPages(t *testing.T) {
	t.Parallel()
	svc, _ := newTestService(t, &countingAdapter{})

	for i := 0; i < 3; i++ {
		mustCreate(t, svc, "milk")
	}

	out, err := svc.List(context.Background(), domain.ListInput{Limit: 2})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(out.Data) != 2 {
		t.Fatalf("page size = %d want 2", len(out.Data))
	}
	if out.Count != 3 {
		t.Fatalf("count = %d want 3", out.Count)
	}

	if _, err := svc.List(context.Background(), domain.ListInput{Status: "bogus"}); !perr.IsCode(err, perr.ErrorCodeInvalidArgument) {
		t.Fatalf("unknown status: code = %v want invalid argument", perr.CodeOf(err))
	}
}

func TestResolveAssignWritesAliasThenCommits(t *testing.T) {
	t.Parallel()
	adapter := &countingAdapter{}
	svc, db := newTestService(t, adapter)
	q := mustCreate(t, svc, "Gusanitos Fresa")

	got, err := svc.Resolve(context.Background(), domain.ResolveInput{
		PendingQueryID: q.ID,
		Action:         domain.ActionAssign,
		ProductID:      "42",
	})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if got.Status != domain.StatusResolved || got.ResolvedAt == nil {
		t.Fatalf("resolved row = %+v", got)
	}
	if len(adapter.aliases) != 1 || adapter.aliases[0] != "42=gusanitos fresa" {
		t.Fatalf("alias writes = %v, want normalized text as the learned alias", adapter.aliases)
	}
	if db.rows[q.ID].Status != domain.StatusResolved {
		t.Fatalf("stored status = %s want resolved", db.rows[q.ID].Status)
	}
}

func TestResolveAssignPrefersCustomAlias(t *testing.T) {
	t.Parallel()
	adapter := &countingAdapter{}
	svc, _ := newTestService(t, adapter)
	q := mustCreate(t, svc, "Gusanitos Fresa")

	if _, err := svc.Resolve(context.Background(), domain.ResolveInput{
		PendingQueryID: q.ID,
		Action:         domain.ActionAssign,
		ProductID:      "42",
		CustomAlias:    "  gusanos de goma  ",
	}); err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if len(adapter.aliases) != 1 || adapter.aliases[0] != "42=gusanos de goma" {
		t.Fatalf("alias writes = %v, want trimmed custom alias", adapter.aliases)
	}
}

func TestResolveExactlyOnceUnderRace(t *testing.T) {
	t.Parallel()
	adapter := &countingAdapter{}
	svc, _ := newTestService(t, adapter)
	q := mustCreate(t, svc, "Gusanitos Fresa")

	in := domain.ResolveInput{PendingQueryID: q.ID, Action: domain.ActionAssign, ProductID: "42"}

	errs := make(chan error, 2)
	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Resolve(context.Background(), in)
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	var okCount, conflictCount int
	for err := range errs {
		switch {
		case err == nil:
			okCount++
		case perr.IsCode(err, perr.ErrorCodeConflict):
			conflictCount++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if okCount != 1 || conflictCount != 1 {
		t.Fatalf("ok = %d conflict = %d, want exactly one of each", okCount, conflictCount)
	}
	if adapter.callCount() != 1 {
		t.Fatalf("adapter calls = %d, want exactly one alias write", adapter.callCount())
	}
}

func TestResolveIgnoreSkipsAdapterAndIsTerminal(t *testing.T) {
	t.Parallel()
	adapter := &countingAdapter{}
	svc, db := newTestService(t, adapter)
	q := mustCreate(t, svc, "mystery item")

	got, err := svc.Resolve(context.Background(), domain.ResolveInput{
		PendingQueryID: q.ID,
		Action:         domain.ActionIgnore,
	})
	if err != nil {
		t.Fatalf("Resolve ignore: %v", err)
	}
	if got.Status != domain.StatusIgnored {
		t.Fatalf("status = %s want ignored", got.Status)
	}
	if adapter.callCount() != 0 {
		t.Fatalf("ignore must not touch the adapter, calls = %d", adapter.callCount())
	}

	_, err = svc.Resolve(context.Background(), domain.ResolveInput{
		PendingQueryID: q.ID,
		Action:         domain.ActionAssign,
		ProductID:      "42",
	})
	if !perr.IsCode(err, perr.ErrorCodeConflict) {
		t.Fatalf("second resolve: code = %v want conflict", perr.CodeOf(err))
	}
	if adapter.callCount() != 0 {
		t.Fatalf("conflicting resolve must not touch the adapter, calls = %d", adapter.callCount())
	}
	if db.rows[q.ID].Status != domain.StatusIgnored {
		t.Fatalf("stored status = %s want ignored", db.rows[q.ID].Status)
	}
}

func TestResolveAdapterFailureLeavesPending(t *testing.T) {
	t.Parallel()
	adapter := &countingAdapter{fail: errors.New("grocy is down")}
	svc, db := newTestService(t, adapter)
	q := mustCreate(t, svc, "Gusanitos Fresa")

	_, err := svc.Resolve(context.Background(), domain.ResolveInput{
		PendingQueryID: q.ID,
		Action:         domain.ActionAssign,
		ProductID:      "42",
	})
	if !perr.IsCode(err, perr.ErrorCodeUnavailable) {
		t.Fatalf("code = %v want unavailable", perr.CodeOf(err))
	}
	if db.rows[q.ID].Status != domain.StatusPending {
		t.Fatalf("stored status = %s, a failed alias write must keep the query pending", db.rows[q.ID].Status)
	}

	// Backend recovers; the same verdict goes through
	adapter.mu.Lock()
	adapter.fail = nil
	adapter.mu.Unlock()
	if _, err := svc.Resolve(context.Background(), domain.ResolveInput{
		PendingQueryID: q.ID,
		Action:         domain.ActionAssign,
		ProductID:      "42",
	}); err != nil {
		t.Fatalf("retry after recovery: %v", err)
	}
	if db.rows[q.ID].Status != domain.StatusResolved {
		t.Fatalf("stored status = %s want resolved", db.rows[q.ID].Status)
	}
}

func TestResolveMissingProductPassesNotFoundThrough(t *testing.T) {
	t.Parallel()
	adapter := &countingAdapter{fail: perr.NotFoundf("product %q not found", "999")}
	svc, db := newTestService(t, adapter)
	q := mustCreate(t, svc, "Gusanitos Fresa")

	_, err := svc.Resolve(context.Background(), domain.ResolveInput{
		PendingQueryID: q.ID,
		Action:         domain.ActionAssign,
		ProductID:      "999",
	})
	if !perr.IsCode(err, perr.ErrorCodeNotFound) {
		t.Fatalf("code = %v want not found", perr.CodeOf(err))
	}
	if db.rows[q.ID].Status != domain.StatusPending {
		t.Fatalf("stored status = %s want pending", db.rows[q.ID].Status)
	}
}

func TestResolveAssignRequiresProductID(t *testing.T) {
	t.Parallel()
	adapter := &countingAdapter{}
	svc, _ := newTestService(t, adapter)
	q := mustCreate(t, svc, "Gusanitos Fresa")

	_, err := svc.Resolve(context.Background(), domain.ResolveInput{
		PendingQueryID: q.ID,
		Action:         domain.ActionAssign,
	})
	if !perr.IsCode(err, perr.ErrorCodeValidation) {
		t.Fatalf("code = %v want validation", perr.CodeOf(err))
	}
	if adapter.callCount() != 0 {
		t.Fatalf("validation failure must not touch the adapter, calls = %d", adapter.callCount())
	}
}

func TestResolveUnknownBackendIsUnavailable(t *testing.T) {
	t.Parallel()
	svc, db := newTestService(t, &countingAdapter{})
	q := mustCreate(t, svc, "Gusanitos Fresa")

	// The backend disappeared from config between match time and resolve time
	row := db.rows[q.ID]
	row.Backend = "retired"
	db.rows[q.ID] = row

	_, err := svc.Resolve(context.Background(), domain.ResolveInput{
		PendingQueryID: q.ID,
		Action:         domain.ActionAssign,
		ProductID:      "42",
	})
	if !perr.IsCode(err, perr.ErrorCodeUnavailable) {
		t.Fatalf("code = %v want unavailable", perr.CodeOf(err))
	}
}

func TestDeleteIsUnconditionalAndReportsUnknown(t *testing.T) {
	t.Parallel()
	svc, _ := newTestService(t, &countingAdapter{})
	q := mustCreate(t, svc, "Gusanitos Fresa")

	if _, err := svc.Resolve(context.Background(), domain.ResolveInput{
		PendingQueryID: q.ID,
		Action:         domain.ActionIgnore,
	}); err != nil {
		t.Fatalf("Resolve ignore: %v", err)
	}

	// Delete works from a terminal status too
	if err := svc.Delete(context.Background(), q.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if err := svc.Delete(context.Background(), q.ID); !perr.IsCode(err, perr.ErrorCodeNotFound) {
		t.Fatalf("second delete: code = %v want not found", perr.CodeOf(err))
	}
	if _, err := svc.Resolve(context.Background(), domain.ResolveInput{
		PendingQueryID: q.ID,
		Action:         domain.ActionIgnore,
	}); !perr.IsCode(err, perr.ErrorCodeNotFound) {
		t.Fatalf("resolve after delete: code = %v want not found", perr.CodeOf(err))
	}
}

func TestHasIgnoredMatchesExactTextOnly(t *testing.T) {
	t.Parallel()
	svc, _ := newTestService(t, &countingAdapter{})
	q := mustCreate(t, svc, "Mystery Snack")

	if _, err := svc.Resolve(context.Background(), domain.ResolveInput{
		PendingQueryID: q.ID,
		Action:         domain.ActionIgnore,
	}); err != nil {
		t.Fatalf("Resolve ignore: %v", err)
	}

	ctx := context.Background()
	if ok, err := svc.HasIgnored(ctx, "demo", "mystery snack"); err != nil || !ok {
		t.Fatalf("HasIgnored(exact) = %v, %v want true", ok, err)
	}
	if ok, err := svc.HasIgnored(ctx, "demo", "mystery snacks"); err != nil || ok {
		t.Fatalf("HasIgnored(near miss) = %v, %v want false", ok, err)
	}
	if ok, err := svc.HasIgnored(ctx, "other", "mystery snack"); err != nil || ok {
		t.Fatalf("HasIgnored(other backend) = %v, %v want false", ok, err)
	}
}

func TestCountsForSplitsByStatusAndBackend(t *testing.T) {
	t.Parallel()
	svc, db := newTestService(t, &countingAdapter{})

	a := mustCreate(t, svc, "one")
	mustCreate(t, svc, "two")
	c := mustCreate(t, svc, "three")

	if _, err := svc.Resolve(context.Background(), domain.ResolveInput{
		PendingQueryID: a.ID, Action: domain.ActionAssign, ProductID: "42",
	}); err != nil {
		t.Fatalf("Resolve assign: %v", err)
	}
	if _, err := svc.Resolve(context.Background(), domain.ResolveInput{
		PendingQueryID: c.ID, Action: domain.ActionIgnore,
	}); err != nil {
		t.Fatalf("Resolve ignore: %v", err)
	}

	// A stray row for another backend must not leak into demo's counts
	db.rows["other"] = domain.Query{ID: "other", Backend: "other", Status: domain.StatusPending}

	counts, err := svc.CountsFor(context.Background(), "demo")
	if err != nil {
		t.Fatalf("CountsFor: %v", err)
	}
	want := domain.Counts{Pending: 1, Resolved: 1, Ignored: 1}
	if counts != want {
		t.Fatalf("counts = %+v want %+v", counts, want)
	}
}
