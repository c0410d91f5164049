package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"finboard/internal/analytics"
	"finboard/internal/api"
	"finboard/internal/apiclient"
	"finboard/internal/core"
	"finboard/internal/emergency"
	applog "finboard/internal/log"
	"finboard/internal/session"
	"finboard/internal/state"
	"finboard/internal/storage"
)

var march15 = time.Date(2024, 3, 15, 9, 30, 0, 0, time.UTC)

func quietLogger() *applog.Logger {
	return applog.New(applog.Config{Level: applog.ParseLevel("error"), Format: "text", Output: &bytes.Buffer{}})
}

// newDashboard wires a dashboard over a real expense API backed by SQLite.
func newDashboard(t *testing.T, opts Options) (*Server, *session.Session) {
	t.Helper()
	repo, err := storage.NewSQLiteRepository(filepath.Join(t.TempDir(), "expenses.db"))
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })

	backend := api.NewServer(":0", repo, nil, api.Options{RateLimitPerMinute: 1000, Logger: quietLogger()})
	ts := httptest.NewServer(backend.Handler)
	t.Cleanup(ts.Close)

	return newDashboardFor(t, ts.URL+"/api", opts)
}

func newDashboardFor(t *testing.T, baseURL string, opts Options) (*Server, *session.Session) {
	t.Helper()
	sess := session.New(apiclient.New(baseURL, 2*time.Second), state.NewMemoryStore(), session.Config{
		Budget: core.MoneyFromInt(1000),
		Now:    func() time.Time { return march15 },
		Logger: quietLogger(),
	})
	_ = sess.Load(context.Background())

	if opts.Logger == nil {
		opts.Logger = quietLogger()
	}
	srv := NewServer(":0", sess, opts)
	t.Cleanup(func() { _ = srv.Shutdown(context.Background()) })
	return srv, sess
}

func do(t *testing.T, srv *Server, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rr := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rr, req)
	return rr
}

func decode[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &v), rr.Body.String())
	return v
}

func TestHealthAndReady(t *testing.T) {
	srv, _ := newDashboard(t, Options{})
	assert.Equal(t, http.StatusOK, do(t, srv, http.MethodGet, "/healthz", "").Code)
	assert.Equal(t, http.StatusOK, do(t, srv, http.MethodGet, "/readyz", "").Code)

	down, _ := newDashboard(t, Options{Ready: func(context.Context) error { return errors.New("locked") }})
	assert.Equal(t, http.StatusServiceUnavailable, do(t, down, http.MethodGet, "/readyz", "").Code)
}

func TestCreateExpenseAndDashboard(t *testing.T) {
	srv, _ := newDashboard(t, Options{})

	rr := do(t, srv, http.MethodPost, "/expenses", `{"title":"Groceries","amount":"120.50","category":"Food","date":"2024-03-14"}`)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	created := decode[core.Expense](t, rr)
	assert.Equal(t, "1", created.ID)
	assert.Equal(t, "120.5", created.Amount.String())

	rr = do(t, srv, http.MethodPost, "/expenses", `{"title":"Bus pass","amount":30,"category":"Transport","date":"2024-02-01"}`)
	require.Equal(t, http.StatusCreated, rr.Code)

	rr = do(t, srv, http.MethodGet, "/dashboard", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "MISS", rr.Header().Get("X-Cache"))
	d := decode[analytics.Dashboard](t, rr)
	assert.Equal(t, "150.5", d.Total.String())
	assert.Equal(t, "849.5", d.RemainingBudget.String())
	assert.Len(t, d.ByMonth, 2)

	assert.Equal(t, "HIT", do(t, srv, http.MethodGet, "/dashboard", "").Header().Get("X-Cache"))

	rr = do(t, srv, http.MethodGet, "/dashboard?range=month&category=food&q=groc", "")
	assert.Equal(t, "MISS", rr.Header().Get("X-Cache"))
	d = decode[analytics.Dashboard](t, rr)
	require.Len(t, d.Expenses, 1)
	assert.Equal(t, "Groceries", d.Expenses[0].Title)
	assert.Equal(t, analytics.RangeMonth, d.Criteria.Range)

	list := decode[[]core.Expense](t, do(t, srv, http.MethodGet, "/expenses", ""))
	assert.Len(t, list, 2)
}

func TestMutationInvalidatesDashboardCache(t *testing.T) {
	srv, _ := newDashboard(t, Options{})

	do(t, srv, http.MethodGet, "/dashboard", "")
	assert.Equal(t, "HIT", do(t, srv, http.MethodGet, "/dashboard", "").Header().Get("X-Cache"))

	rr := do(t, srv, http.MethodPost, "/income", `{"source":"Salary","amount":2000,"date":"2024-03-01"}`)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())

	rr = do(t, srv, http.MethodGet, "/dashboard", "")
	assert.Equal(t, "MISS", rr.Header().Get("X-Cache"))
	d := decode[analytics.Dashboard](t, rr)
	assert.Equal(t, "2000", d.TotalIncome.String())
	assert.Equal(t, "2000", d.Balance.String())
}

func TestValidationErrorsFillErrorSlot(t *testing.T) {
	srv, _ := newDashboard(t, Options{})

	rr := do(t, srv, http.MethodPost, "/expenses", `{"title":"","amount":"5","category":"Food","date":"2024-03-14"}`)
	assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)
	assert.Equal(t, "Please fill out all fields before submitting.", decode[errorResponse](t, rr).Error)

	slot := decode[errorResponse](t, do(t, srv, http.MethodGet, "/error", ""))
	assert.Equal(t, "Please fill out all fields before submitting.", slot.Error)

	// The next action clears the slot.
	do(t, srv, http.MethodPost, "/emergency/contributions", `{"amount":"10"}`)
	slot = decode[errorResponse](t, do(t, srv, http.MethodGet, "/error", ""))
	assert.Empty(t, slot.Error)

	rr = do(t, srv, http.MethodPut, "/expenses/999", `{"title":"x","amount":"5","category":"Food","date":"2024-03-14"}`)
	assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)
	assert.Equal(t, "Expense not found.", decode[errorResponse](t, rr).Error)

	rr = do(t, srv, http.MethodPost, "/expenses", `{not json`)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestUpdateExpense(t *testing.T) {
	srv, _ := newDashboard(t, Options{})
	require.Equal(t, http.StatusCreated, do(t, srv, http.MethodPost, "/expenses",
		`{"title":"Cinema","amount":"12","category":"Entertainment","date":"2024-03-10"}`).Code)

	rr := do(t, srv, http.MethodPut, "/expenses/1", `{"title":"Cinema and popcorn","amount":"18","category":"Entertainment","date":"2024-03-10"}`)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.Equal(t, "Cinema and popcorn", decode[core.Expense](t, rr).Title)

	d := decode[analytics.Dashboard](t, do(t, srv, http.MethodGet, "/dashboard", ""))
	assert.Equal(t, "18", d.Total.String())
}

func TestExpenseAPIFailureIsBadGateway(t *testing.T) {
	broken := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	t.Cleanup(broken.Close)
	srv, _ := newDashboardFor(t, broken.URL, Options{})

	assert.Equal(t, "Failed to fetch expenses", decode[errorResponse](t, do(t, srv, http.MethodGet, "/error", "")).Error)

	rr := do(t, srv, http.MethodPost, "/expenses", `{"title":"Lunch","amount":"9","category":"Food","date":"2024-03-14"}`)
	assert.Equal(t, http.StatusBadGateway, rr.Code)
	assert.Equal(t, "Failed to add expense", decode[errorResponse](t, rr).Error)

	assert.Empty(t, decode[[]core.Expense](t, do(t, srv, http.MethodGet, "/expenses", "")))
}

func TestEmergencyFlow(t *testing.T) {
	srv, _ := newDashboard(t, Options{})

	rr := do(t, srv, http.MethodPut, "/emergency/target", `{"amount":"abc"}`)
	assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)

	rr = do(t, srv, http.MethodPut, "/emergency/target", `{"amount":100}`)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.Equal(t, "100", decode[emergency.Summary](t, rr).MonthlyTarget.String())

	rr = do(t, srv, http.MethodPost, "/emergency/contributions", "")
	require.Equal(t, http.StatusOK, rr.Code)
	c := decode[contributionResponse](t, rr)
	assert.True(t, c.Applied)
	assert.Equal(t, "100", c.Contributed.String())
	assert.Equal(t, "100", c.Emergency.CumulativeSavings.String())

	rr = do(t, srv, http.MethodPost, "/emergency/contributions", `{"amount":"-20"}`)
	c = decode[contributionResponse](t, rr)
	assert.False(t, c.Applied)
	assert.True(t, c.Contributed.IsZero())
	assert.Equal(t, "100", c.Emergency.CumulativeSavings.String())

	rr = do(t, srv, http.MethodPost, "/emergency/contributions", `{"amount":"25"}`)
	c = decode[contributionResponse](t, rr)
	assert.True(t, c.Applied)
	assert.Equal(t, "25", c.Contributed.String())
	assert.Equal(t, "125", c.Emergency.CumulativeSavings.String())

	rr = do(t, srv, http.MethodPost, "/emergency/withdrawals", `{"reason":"Car repair","amount":"30"}`)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	wd := decode[withdrawalResponse](t, rr)
	assert.Equal(t, "Car repair", wd.Record.Reason)
	assert.Equal(t, "2024-03-15", wd.Record.Date.String())
	assert.Equal(t, "95", wd.Emergency.Remaining.String())

	rr = do(t, srv, http.MethodPost, "/emergency/withdrawals", `{"reason":"Vacation","amount":"500"}`)
	assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)

	sum := decode[emergency.Summary](t, do(t, srv, http.MethodGet, "/emergency/", ""))
	assert.Equal(t, 1, sum.Withdrawals)
	assert.Equal(t, "30", sum.TotalUsed.String())
}

func TestIncomeEndpoints(t *testing.T) {
	srv, _ := newDashboard(t, Options{})

	rr := do(t, srv, http.MethodPost, "/income", `{"source":"","amount":"10","date":"2024-03-01"}`)
	assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)

	rr = do(t, srv, http.MethodPost, "/income", `{"source":"Freelance","amount":"250.25","date":"2024-03-02"}`)
	require.Equal(t, http.StatusCreated, rr.Code)

	view := decode[session.IncomeView](t, do(t, srv, http.MethodGet, "/income", ""))
	require.Len(t, view.Entries, 1)
	assert.Equal(t, "250.25", view.Total.String())
}

func receiptRequest(t *testing.T, filename, contentType string) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", `form-data; name="receipt"; filename="`+filename+`"`)
	h.Set("Content-Type", contentType)
	part, err := mw.CreatePart(h)
	require.NoError(t, err)
	_, _ = part.Write([]byte("%PDF-1.4"))
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/receipts", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func TestReceipts(t *testing.T) {
	srv, _ := newDashboard(t, Options{})

	rr := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rr, receiptRequest(t, "march.pdf", "application/pdf"))
	assert.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	rr = httptest.NewRecorder()
	srv.Handler.ServeHTTP(rr, receiptRequest(t, "photo.png", "image/png"))
	assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)
	assert.Equal(t, "Only PDF receipts are supported right now.", decode[errorResponse](t, rr).Error)

	rr = do(t, srv, http.MethodPost, "/receipts", "")
	assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)
}

func TestGamificationEndpoint(t *testing.T) {
	srv, _ := newDashboard(t, Options{})
	g := decode[map[string]any](t, do(t, srv, http.MethodGet, "/gamification", ""))
	// Zero spend is under budget, so the first load credits the day.
	assert.Equal(t, float64(10), g["points"])
	assert.Equal(t, float64(1), g["streak"])
	assert.Equal(t, "2024-03-15", g["lastStreakDate"])
}

func TestPostsAreRateLimited(t *testing.T) {
	srv, _ := newDashboard(t, Options{RateLimitPerMinute: 1})

	body := `{"source":"Gift","amount":"5","date":"2024-03-03"}`
	assert.Equal(t, http.StatusCreated, do(t, srv, http.MethodPost, "/income", body).Code)
	rr := do(t, srv, http.MethodPost, "/income", body)
	assert.Equal(t, http.StatusTooManyRequests, rr.Code)
	assert.Equal(t, "60", rr.Header().Get("Retry-After"))

	// Reads are never limited.
	assert.Equal(t, http.StatusOK, do(t, srv, http.MethodGet, "/income", "").Code)
}

func TestSecurityAndTraceHeaders(t *testing.T) {
	srv, _ := newDashboard(t, Options{})
	rr := do(t, srv, http.MethodGet, "/healthz", "")
	assert.Equal(t, "nosniff", rr.Header().Get("X-Content-Type-Options"))
	assert.NotEmpty(t, rr.Header().Get("X-Request-ID"))
}
