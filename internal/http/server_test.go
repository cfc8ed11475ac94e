package http

import (
	"context"
	stdjson "encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gamezone/internal/auditdiff"
	"gamezone/internal/backend"
	"gamezone/internal/cache"
	"gamezone/internal/core"
	"gamezone/internal/dashboard"
	gzlog "gamezone/internal/log"
	"gamezone/internal/session"
)

const testSessionID = "sid-1"

type fakeAuth struct {
	res backend.LoginResult
	err error
}

func (f fakeAuth) Login(ctx context.Context, name, password string) (backend.LoginResult, error) {
	return f.res, f.err
}

type fakeFetcher struct {
	mu    sync.Mutex
	snap  *backend.Snapshot
	err   error
	calls int
}

func (f *fakeFetcher) FetchDashboard(ctx context.Context, token string, r core.DateRange) (*backend.Snapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	snap := *f.snap
	snap.Range = r
	return &snap, nil
}

func (f *fakeFetcher) fail(err error) {
	f.mu.Lock()
	f.err = err
	f.mu.Unlock()
}

type fakeWriter struct {
	mu       sync.Mutex
	err      error
	sales    []core.SalePayload
	expenses []core.ExpensePayload
	deleted  []string
}

func (f *fakeWriter) CreateSale(ctx context.Context, token string, p core.SalePayload) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.sales = append(f.sales, p)
	return nil
}

func (f *fakeWriter) UpdateSale(ctx context.Context, token, id string, p core.SalePayload) error {
	return f.CreateSale(ctx, token, p)
}

func (f *fakeWriter) DeleteSale(ctx context.Context, token, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.deleted = append(f.deleted, id)
	return nil
}

func (f *fakeWriter) CreateExpense(ctx context.Context, token string, p core.ExpensePayload) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.expenses = append(f.expenses, p)
	return nil
}

func (f *fakeWriter) UpdateExpense(ctx context.Context, token, id string, p core.ExpensePayload) error {
	return f.CreateExpense(ctx, token, p)
}

func (f *fakeWriter) DeleteExpense(ctx context.Context, token, id string) error {
	return f.DeleteSale(ctx, token, id)
}

type testEnv struct {
	srv     *Server
	storage *session.MemoryStorage
	fetcher *fakeFetcher
	writer  *fakeWriter
	diffs   *cache.LRUCache[auditdiff.Result]
}

func sampleSnapshot() *backend.Snapshot {
	created := time.Date(2024, 3, 4, 10, 0, 0, 0, time.UTC)
	return &backend.Snapshot{
		Summary: core.FinancialSummary{
			Income:  core.AmountOf(1500),
			Expense: core.AmountOf(400),
			Profit:  core.AmountOf(1100),
		},
		Sales: []core.GameSale{{
			ID: "sale-1", ConsoleID: core.ConsolePS42, GamesPlayed: 3,
			PricePerGame: core.AmountOf(10), TotalAmount: core.AmountOf(30),
			PaymentMethod: core.PaymentCash, CreatedAt: created,
		}},
		Expenses: []core.Expense{{
			ID: "exp-1", Category: core.CategoryRent, Amount: core.AmountOf(400), CreatedAt: created,
		}},
		Audit: []core.AuditEntry{
			{
				ID: "a1", Entity: core.EntityGame, EntityID: "sale-1", Action: "CREATE",
				PerformedBy: core.Performer{ID: "u1", Name: "Abebe", Embedded: true}, CreatedAt: created,
				After: stdjson.RawMessage(`{"gamesPlayed":3}`),
			},
			{
				ID: "a2", Entity: core.EntityExpense, EntityID: "exp-9", Action: "DELETE",
				PerformedBy: core.Performer{ID: "u2", Name: "Sara", Embedded: true}, CreatedAt: created,
				Before: stdjson.RawMessage(`{"amount":10,"note":"bulbs"}`),
				After:  stdjson.RawMessage(`{"amount":20,"note":"bulbs"}`),
			},
		},
		FetchedAt: created,
	}
}

func newTestEnv(t *testing.T, auth session.Authenticator) *testEnv {
	t.Helper()
	quiet := slog.New(slog.NewTextHandler(io.Discard, nil))
	logger := gzlog.New(gzlog.Config{Handler: quiet.Handler(), Component: "test"})

	storage := session.NewMemoryStorage(time.Hour)
	fetcher := &fakeFetcher{snap: sampleSnapshot()}
	writer := &fakeWriter{}
	diffs := cache.NewLRUCache[auditdiff.Result](8, time.Minute)

	svc := dashboard.New(fetcher, quiet)
	srv := NewServer(Options{
		Location:  time.UTC,
		DayLayout: "Jan 2",
		Logger:    logger,
		Checks: map[string]func(context.Context) error{
			"sessions": func(context.Context) error { return nil },
		},
	}, Deps{
		Sessions:  session.NewStore(storage, auth, quiet),
		Dashboard: svc,
		Mutations: dashboard.NewMutations(writer, nil, quiet),
		Diffs:     diffs,
	})
	t.Cleanup(func() { _ = srv.Shutdown(context.Background()) })
	require.NotNil(t, srv.templates, "templates must parse")

	return &testEnv{srv: srv, storage: storage, fetcher: fetcher, writer: writer, diffs: diffs}
}

// signIn stores an authenticated session directly.
func (e *testEnv) signIn(t *testing.T) {
	t.Helper()
	require.NoError(t, e.storage.Save(context.Background(), testSessionID, map[string]string{
		session.SlotToken: "tok",
		session.SlotName:  "Abebe",
	}))
}

func (e *testEnv) do(method, target string, body url.Values, htmx bool) *httptest.ResponseRecorder {
	var rdr io.Reader
	if body != nil {
		rdr = strings.NewReader(body.Encode())
	}
	req := httptest.NewRequest(method, target, rdr)
	if body != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	if htmx {
		req.Header.Set("HX-Request", "true")
	}
	req.AddCookie(&http.Cookie{Name: session.CookieName, Value: testSessionID})
	rr := httptest.NewRecorder()
	e.srv.Handler.ServeHTTP(rr, req)
	return rr
}

func postLogin(srv *Server, form url.Values) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/login", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rr := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rr, req)
	return rr
}

func TestLogin_InvalidCredentialsKeepsNameAndClearsPassword(t *testing.T) {
	env := newTestEnv(t, fakeAuth{err: backend.ErrInvalidCredentials})

	rr := postLogin(env.srv, url.Values{"name": {"Abebe"}, "password": {"wrong"}})

	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	body := rr.Body.String()
	assert.Contains(t, body, "Invalid admin name or password")
	assert.Contains(t, body, `value="Abebe"`)
	assert.NotContains(t, body, "wrong")
	assert.Empty(t, rr.Result().Cookies())
}

func TestLogin_MissingFields(t *testing.T) {
	env := newTestEnv(t, fakeAuth{})

	rr := postLogin(env.srv, url.Values{"name": {"Abebe"}})

	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Contains(t, rr.Body.String(), "Please enter both admin name and password")
}

func TestLogin_BackendDown(t *testing.T) {
	env := newTestEnv(t, fakeAuth{err: &backend.APIError{Status: 503, Message: "down"}})

	rr := postLogin(env.srv, url.Values{"name": {"Abebe"}, "password": {"pw"}})

	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
	assert.Contains(t, rr.Body.String(), "Unable to sign in right now, please try again")
}

func TestLogin_SuccessSetsCookieAndRedirects(t *testing.T) {
	res := backend.LoginResult{AccessToken: "tok"}
	res.User.Name = "Abebe"
	env := newTestEnv(t, fakeAuth{res: res})

	rr := postLogin(env.srv, url.Values{"name": {"abebe"}, "password": {"pw"}})

	assert.Equal(t, http.StatusSeeOther, rr.Code)
	assert.Equal(t, "/dashboard", rr.Header().Get("Location"))

	var id string
	for _, c := range rr.Result().Cookies() {
		if c.Name == session.CookieName {
			id = c.Value
		}
	}
	require.NotEmpty(t, id)

	values, err := env.storage.Load(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, "tok", values[session.SlotToken])
	assert.Equal(t, "Abebe", values[session.SlotName])
}

func TestRequireSession_RedirectsAnonymous(t *testing.T) {
	env := newTestEnv(t, fakeAuth{})

	rr := env.do(http.MethodGet, "/dashboard", nil, false)
	assert.Equal(t, http.StatusSeeOther, rr.Code)
	assert.Equal(t, "/login", rr.Header().Get("Location"))

	rr = env.do(http.MethodGet, "/ui/dashboard", nil, true)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	assert.Equal(t, "/login", rr.Header().Get("HX-Redirect"))
}

func TestDashboardPage(t *testing.T) {
	env := newTestEnv(t, fakeAuth{})
	env.signIn(t)

	rr := env.do(http.MethodGet, "/dashboard", nil, false)

	assert.Equal(t, http.StatusOK, rr.Code)
	body := rr.Body.String()
	assert.Contains(t, body, "Abebe")
	assert.Contains(t, body, `id="dashboard-body"`)
	assert.Contains(t, body, "This month")
}

func TestDashboardBody_RendersSnapshot(t *testing.T) {
	env := newTestEnv(t, fakeAuth{})
	env.signIn(t)

	rr := env.do(http.MethodGet, "/ui/dashboard?range=year", nil, true)

	assert.Equal(t, http.StatusOK, rr.Code)
	body := rr.Body.String()
	assert.Contains(t, body, "1500 Birr")
	assert.Contains(t, body, "Positive margin")
	assert.Contains(t, body, "PS4-2")
	assert.Contains(t, body, "RENT")
	assert.Contains(t, body, `id="audit-log"`)
	assert.NotContains(t, body, loadFailedMessage)
}

func TestDashboardBody_FailureKeepsPreviousData(t *testing.T) {
	env := newTestEnv(t, fakeAuth{})
	env.signIn(t)

	rr := env.do(http.MethodGet, "/ui/dashboard?range=year", nil, true)
	require.Equal(t, http.StatusOK, rr.Code)

	env.fetcher.fail(errors.New("connection refused"))
	rr = env.do(http.MethodGet, "/ui/dashboard?range=today", nil, true)

	assert.Equal(t, http.StatusOK, rr.Code)
	body := rr.Body.String()
	assert.Contains(t, body, loadFailedMessage)
	assert.Contains(t, body, "PS4-2")
}

func TestDashboardBody_FailureWithoutPriorData(t *testing.T) {
	env := newTestEnv(t, fakeAuth{})
	env.signIn(t)
	env.fetcher.fail(errors.New("timeout"))

	rr := env.do(http.MethodGet, "/ui/dashboard", nil, true)

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), loadFailedMessage)
	assert.NotContains(t, rr.Body.String(), "PS4-2")
}

func TestDashboardBody_UnauthorizedEndsSession(t *testing.T) {
	env := newTestEnv(t, fakeAuth{})
	env.signIn(t)
	env.fetcher.fail(&backend.APIError{Status: http.StatusUnauthorized, Message: "Unauthorized"})

	rr := env.do(http.MethodGet, "/ui/dashboard", nil, true)

	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	assert.Equal(t, "/login", rr.Header().Get("HX-Redirect"))
	values, err := env.storage.Load(context.Background(), testSessionID)
	require.NoError(t, err)
	assert.Empty(t, values)
}

func TestDashboardBody_InvalidCustomRange(t *testing.T) {
	env := newTestEnv(t, fakeAuth{})
	env.signIn(t)

	rr := env.do(http.MethodGet, "/ui/dashboard?range=custom&from=yesterday", nil, true)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Contains(t, rr.Header().Get("HX-Trigger"), "show-notification")
	assert.Equal(t, 0, env.fetcher.calls)
}

func TestAuditTable_FiltersWithoutRefetch(t *testing.T) {
	env := newTestEnv(t, fakeAuth{})
	env.signIn(t)
	require.Equal(t, http.StatusOK, env.do(http.MethodGet, "/ui/dashboard", nil, true).Code)

	rr := env.do(http.MethodGet, "/ui/audit?action=DELETE", nil, true)

	assert.Equal(t, http.StatusOK, rr.Code)
	body := rr.Body.String()
	assert.Contains(t, body, `id="audit-table"`)
	assert.NotContains(t, body, `id="audit-log"`)
	assert.Contains(t, body, "exp-9")
	assert.NotContains(t, body, "sale-1")
	assert.Contains(t, body, "Showing 1 of 2 entries")

	rr = env.do(http.MethodGet, "/ui/audit?clear=1&action=DELETE", nil, true)
	body = rr.Body.String()
	assert.Contains(t, body, `id="audit-log"`)
	assert.Contains(t, body, "exp-9")
	assert.Contains(t, body, "sale-1")

	assert.Equal(t, 1, env.fetcher.calls)
}

func TestAuditTable_NoMatches(t *testing.T) {
	env := newTestEnv(t, fakeAuth{})
	env.signIn(t)
	require.Equal(t, http.StatusOK, env.do(http.MethodGet, "/ui/dashboard", nil, true).Code)

	rr := env.do(http.MethodGet, "/ui/audit?q=nothing-matches-this", nil, true)

	assert.Contains(t, rr.Body.String(), "No audit entries match the filters")
}

func TestAuditDetail(t *testing.T) {
	env := newTestEnv(t, fakeAuth{})
	env.signIn(t)
	require.Equal(t, http.StatusOK, env.do(http.MethodGet, "/ui/dashboard", nil, true).Code)

	rr := env.do(http.MethodGet, "/ui/audit/a2", nil, true)
	assert.Equal(t, http.StatusOK, rr.Code)
	body := rr.Body.String()
	assert.Contains(t, body, "amount")
	assert.Contains(t, body, `class="changed"`)
	assert.Contains(t, body, "1 changed")

	rr = env.do(http.MethodGet, "/ui/audit/missing", nil, true)
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestAuditDetail_DiffComputedOncePerEntry(t *testing.T) {
	env := newTestEnv(t, fakeAuth{})
	env.signIn(t)
	require.Equal(t, http.StatusOK, env.do(http.MethodGet, "/ui/dashboard", nil, true).Code)

	first := env.do(http.MethodGet, "/ui/audit/a2", nil, true).Body.String()
	require.Equal(t, 1, env.diffs.Size())
	cached, ok := env.diffs.Get("a2")
	require.True(t, ok)
	assert.Equal(t, 1, cached.ChangedCount())

	second := env.do(http.MethodGet, "/ui/audit/a2", nil, true).Body.String()
	assert.Equal(t, first, second)
	assert.Equal(t, 1, env.diffs.Size())
}

func TestDashboardBody_RepeatedRangeFetchesAgain(t *testing.T) {
	env := newTestEnv(t, fakeAuth{})
	env.signIn(t)
	target := "/ui/dashboard?range=custom&from=2024-03-01&to=2024-03-31"

	require.Equal(t, http.StatusOK, env.do(http.MethodGet, target, nil, true).Code)
	require.Equal(t, http.StatusOK, env.do(http.MethodGet, target, nil, true).Code)

	assert.Equal(t, 2, env.fetcher.calls)
}

func TestCreateSale_ValidationRerendersForm(t *testing.T) {
	env := newTestEnv(t, fakeAuth{})
	env.signIn(t)

	rr := env.do(http.MethodPost, "/sales", url.Values{
		"consoleId":     {"PS4-1"},
		"gamesPlayed":   {"0"},
		"pricePerGame":  {"10"},
		"paymentMethod": {"CASH"},
	}, true)

	assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)
	body := rr.Body.String()
	assert.Contains(t, body, `id="sale-form"`)
	assert.Contains(t, body, "games played must be at least 1")
	assert.Empty(t, env.writer.sales)
}

func TestCreateSale_Success(t *testing.T) {
	env := newTestEnv(t, fakeAuth{})
	env.signIn(t)

	rr := env.do(http.MethodPost, "/sales", url.Values{
		"consoleId":     {"PS4-3"},
		"gamesPlayed":   {"2"},
		"pricePerGame":  {"12.5"},
		"paymentMethod": {"MOBILE"},
		"notes":         {"  tournament  "},
	}, true)

	assert.Equal(t, http.StatusOK, rr.Code)
	trigger := rr.Header().Get("HX-Trigger")
	assert.Contains(t, trigger, "dashboard:refresh")
	assert.Contains(t, trigger, "modal:close")
	assert.Contains(t, trigger, "Game sale recorded")

	require.Len(t, env.writer.sales, 1)
	p := env.writer.sales[0]
	assert.Equal(t, core.ConsolePS43, p.ConsoleID)
	assert.Equal(t, 2, p.GamesPlayed)
	assert.InDelta(t, 25.0, p.TotalAmount, 1e-9)
	assert.Equal(t, "tournament", p.Notes)
}

func TestUpdateSale_KeepsOriginalCreatedAt(t *testing.T) {
	env := newTestEnv(t, fakeAuth{})
	env.signIn(t)
	require.Equal(t, http.StatusOK, env.do(http.MethodGet, "/ui/dashboard", nil, true).Code)

	rr := env.do(http.MethodPatch, "/sales/sale-1", url.Values{
		"consoleId":     {"PS4-2"},
		"gamesPlayed":   {"4"},
		"pricePerGame":  {"10"},
		"paymentMethod": {"CASH"},
	}, true)

	assert.Equal(t, http.StatusOK, rr.Code)
	require.Len(t, env.writer.sales, 1)
	assert.True(t, env.writer.sales[0].CreatedAt.Equal(time.Date(2024, 3, 4, 10, 0, 0, 0, time.UTC)))
}

func TestMutation_BackendErrorToast(t *testing.T) {
	env := newTestEnv(t, fakeAuth{})
	env.signIn(t)
	env.writer.err = &backend.APIError{Status: http.StatusBadRequest, Message: "Console is busy"}

	rr := env.do(http.MethodPost, "/expenses", url.Values{
		"category": {"RENT"},
		"amount":   {"100"},
	}, true)

	assert.Equal(t, http.StatusBadGateway, rr.Code)
	assert.Contains(t, rr.Header().Get("HX-Trigger"), "Console is busy")
}

func TestMutation_UnauthorizedEndsSession(t *testing.T) {
	env := newTestEnv(t, fakeAuth{})
	env.signIn(t)
	env.writer.err = &backend.APIError{Status: http.StatusUnauthorized, Message: "Unauthorized"}

	rr := env.do(http.MethodDelete, "/sales/sale-1", nil, true)

	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	assert.Equal(t, "/login", rr.Header().Get("HX-Redirect"))
}

func TestDeleteExpense(t *testing.T) {
	env := newTestEnv(t, fakeAuth{})
	env.signIn(t)

	rr := env.do(http.MethodDelete, "/expenses/exp-1", nil, true)

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Header().Get("HX-Trigger"), "Expense deleted")
	assert.Equal(t, []string{"exp-1"}, env.writer.deleted)
}

func TestEditForms(t *testing.T) {
	env := newTestEnv(t, fakeAuth{})
	env.signIn(t)

	rr := env.do(http.MethodGet, "/ui/sales/sale-1/edit", nil, true)
	assert.Equal(t, http.StatusNotFound, rr.Code, "no snapshot loaded yet")

	require.Equal(t, http.StatusOK, env.do(http.MethodGet, "/ui/dashboard", nil, true).Code)

	rr = env.do(http.MethodGet, "/ui/sales/sale-1/edit", nil, true)
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `hx-patch="/sales/sale-1"`)

	rr = env.do(http.MethodGet, "/ui/expenses/exp-1/edit", nil, true)
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `hx-patch="/expenses/exp-1"`)

	rr = env.do(http.MethodGet, "/ui/expenses/new", nil, true)
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `hx-post="/expenses"`)
}

func TestSaleTotal(t *testing.T) {
	env := newTestEnv(t, fakeAuth{})
	env.signIn(t)

	rr := env.do(http.MethodGet, "/ui/sales/total?gamesPlayed=3&pricePerGame=15", nil, true)

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, `<span id="sale-total">45.00 Birr</span>`, rr.Body.String())
}

func TestLogout(t *testing.T) {
	env := newTestEnv(t, fakeAuth{})
	env.signIn(t)

	rr := env.do(http.MethodPost, "/logout", nil, false)

	assert.Equal(t, http.StatusSeeOther, rr.Code)
	assert.Equal(t, "/login", rr.Header().Get("Location"))
	values, err := env.storage.Load(context.Background(), testSessionID)
	require.NoError(t, err)
	assert.Empty(t, values)
}

func TestHealthReadyMetrics(t *testing.T) {
	env := newTestEnv(t, fakeAuth{})

	rr := env.do(http.MethodGet, "/healthz", nil, false)
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `"status":"ok"`)

	rr = env.do(http.MethodGet, "/readyz", nil, false)
	assert.Equal(t, http.StatusOK, rr.Code)

	rr = env.do(http.MethodGet, "/metrics", nil, false)
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "logins_total 0")
	assert.Contains(t, rr.Body.String(), "uptime_seconds")
}

func TestReady_FailingCheck(t *testing.T) {
	env := newTestEnv(t, fakeAuth{})
	env.srv.opts.Checks["backend"] = func(context.Context) error { return errors.New("unreachable") }

	rr := env.do(http.MethodGet, "/readyz", nil, false)

	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
	assert.Contains(t, rr.Body.String(), "unreachable")
}

func TestRender_WithoutTemplates(t *testing.T) {
	env := newTestEnv(t, fakeAuth{})
	env.srv.templates = nil

	rr := env.do(http.MethodGet, "/login", nil, false)

	assert.Equal(t, http.StatusInternalServerError, rr.Code)
}
