package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"finboard/internal/amqp"
	"finboard/internal/core"
	"finboard/internal/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []amqp.ExpenseEvent
	err    error
}

func (p *recordingPublisher) PublishExpenseEvent(_ context.Context, evt *amqp.ExpenseEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, *evt)
	return p.err
}

func (p *recordingPublisher) types() []amqp.EventType {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]amqp.EventType, len(p.events))
	for i, e := range p.events {
		out[i] = e.Type
	}
	return out
}

func newTestServer(t *testing.T, pub Publisher) *httptest.Server {
	t.Helper()
	repo, err := storage.NewSQLiteRepository(filepath.Join(t.TempDir(), "expenses.db"))
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })

	s := NewServer(":0", repo, pub, Options{RateLimitPerMinute: 100})
	ts := httptest.NewServer(s.Handler)
	t.Cleanup(func() {
		ts.Close()
		s.limiter.Stop()
	})
	return ts
}

func do(t *testing.T, method, url, body string) (*http.Response, map[string]any) {
	t.Helper()
	req, err := http.NewRequest(method, url, strings.NewReader(body))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var out map[string]any
	_ = json.NewDecoder(resp.Body).Decode(&out)
	return resp, out
}

const lunchJSON = `{"title":"Lunch","amount":12.5,"category":"food","date":"2024-03-10"}`

func TestExpenseLifecycle(t *testing.T) {
	pub := &recordingPublisher{}
	ts := newTestServer(t, pub)

	resp, body := do(t, http.MethodPost, ts.URL+"/expenses", lunchJSON)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "Expense Added", body["message"])
	assert.EqualValues(t, 1, body["id"])

	// The /api prefix serves the same data.
	resp, err := http.Get(ts.URL + "/api/expenses")
	require.NoError(t, err)
	var list []core.Expense
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&list))
	resp.Body.Close()
	require.Len(t, list, 1)
	assert.Equal(t, "1", list[0].ID)
	assert.Equal(t, core.Food, list[0].Category, "category is normalized")

	resp, body = do(t, http.MethodPut, ts.URL+"/expenses/1", `{"title":"Dinner","amount":20,"category":"Food","date":"2024-03-10"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "Dinner", body["title"])

	resp, body = do(t, http.MethodDelete, ts.URL+"/api/expenses/1", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "Deleted Successfully", body["message"])

	resp, _ = do(t, http.MethodDelete, ts.URL+"/expenses/1", "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	assert.Equal(t, []amqp.EventType{amqp.EventCreated, amqp.EventUpdated, amqp.EventDeleted}, pub.types())
}

func TestCreateValidation(t *testing.T) {
	ts := newTestServer(t, nil)

	tests := []struct {
		name string
		body string
	}{
		{"malformed", `{"title":`},
		{"empty title", `{"title":" ","amount":1,"category":"Food","date":"2024-03-10"}`},
		{"unknown category", `{"title":"x","amount":1,"category":"Pets","date":"2024-03-10"}`},
		{"missing date", `{"title":"x","amount":1,"category":"Food"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, body := do(t, http.MethodPost, ts.URL+"/expenses", tt.body)
			assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
			assert.NotEmpty(t, body["error"])
		})
	}
}

func TestPublishFailureDoesNotFailRequest(t *testing.T) {
	ts := newTestServer(t, &recordingPublisher{err: errors.New("broker down")})

	resp, body := do(t, http.MethodPost, ts.URL+"/expenses", lunchJSON)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "Expense Added", body["message"])
}

func TestHealthAndReady(t *testing.T) {
	ts := newTestServer(t, nil)
	for _, path := range []string{"/healthz", "/readyz"} {
		resp, err := http.Get(ts.URL + path)
		require.NoError(t, err)
		resp.Body.Close()
		assert.Equal(t, http.StatusOK, resp.StatusCode, path)
	}
}

func TestPredict(t *testing.T) {
	tests := []struct {
		text string
		want core.Category
	}{
		{"Lunch at the cafe", core.Food},
		{"Uber to the airport", core.Transport},
		{"Netflix movie night", core.Entertainment},
		{"Monthly rent", core.Bills},
		{"Birthday gift", core.Shopping},
		{"zzz", core.Other},
	}
	for _, tt := range tests {
		got, conf := Predict(tt.text)
		assert.Equal(t, tt.want, got, tt.text)
		assert.True(t, conf >= 0 && conf <= 1, tt.text)
	}

	_, conf := Predict("coffee and pizza")
	assert.InDelta(t, 0.95, conf, 1e-9)

	ts := newTestServer(t, nil)
	resp, body := do(t, http.MethodPost, ts.URL+"/aiml/predict", `{"text":"Taxi home"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "Transport", body["predicted_category"])

	resp, _ = do(t, http.MethodPost, ts.URL+"/aiml/predict", `{"text":""}`)
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
}

func TestCompareMonths(t *testing.T) {
	exp := func(amount int64, y, m int) core.Expense {
		return core.Expense{Title: "x", Amount: core.MoneyFromInt(amount), Category: core.Food, Date: core.NewDate(y, m, 1)}
	}

	assert.Equal(t, "No spending recorded yet.", CompareMonths(nil))
	assert.Contains(t, CompareMonths([]core.Expense{exp(10, 2024, 1)}), "Add another month")
	assert.Equal(t,
		"You spent $120.00 in 2024-02, up 20.0% from $100.00 in 2024-01.",
		CompareMonths([]core.Expense{exp(100, 2024, 1), exp(120, 2024, 2)}))
	assert.Equal(t,
		"You spent $50.00 in 2024-03, down 50.0% from $100.00 in 2024-02.",
		CompareMonths([]core.Expense{exp(100, 2024, 2), exp(50, 2024, 3), {Title: "undated", Amount: core.MoneyFromInt(999)}}))
	assert.Contains(t, CompareMonths([]core.Expense{exp(5, 2024, 1), exp(5, 2024, 2)}), "the same as")

	ts := newTestServer(t, nil)
	resp, body := do(t, http.MethodGet, ts.URL+"/api/aiml/compare", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "No spending recorded yet.", body["message"])
}
