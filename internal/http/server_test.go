package http

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/Vedant6800/ledgerly/internal/core"
	"github.com/Vedant6800/ledgerly/internal/ledger"
	"github.com/Vedant6800/ledgerly/internal/store/memory"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	s := NewServer("127.0.0.1:0", ledger.New(memory.New(), nil))
	ts := httptest.NewServer(s.Handler)
	t.Cleanup(ts.Close)
	return ts
}

func doRequest(t *testing.T, ts *httptest.Server, method, path, body string) (*http.Response, []byte) {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req, err := http.NewRequest(method, ts.URL+path, reader)
	if err != nil {
		t.Fatalf("NewRequest: %v", err)
	}
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := ts.Client().Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return resp, data
}

func TestHealthEndpoints(t *testing.T) {
	ts := newTestServer(t)

	resp, body := doRequest(t, ts, http.MethodGet, "/healthz", "")
	if resp.StatusCode != http.StatusOK || string(body) != "ok" {
		t.Errorf("healthz = %d %q", resp.StatusCode, body)
	}

	resp, body = doRequest(t, ts, http.MethodGet, "/readyz", "")
	if resp.StatusCode != http.StatusOK || string(body) != "ready" {
		t.Errorf("readyz = %d %q", resp.StatusCode, body)
	}
}

func TestMonthLifecycle(t *testing.T) {
	ts := newTestServer(t)

	// An untouched month loads empty.
	resp, body := doRequest(t, ts, http.MethodGet, "/api/months/2026-03", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("load month = %d %s", resp.StatusCode, body)
	}
	var loaded monthResponse
	if err := json.Unmarshal(body, &loaded); err != nil {
		t.Fatalf("unmarshal month: %v", err)
	}
	if loaded.Month != "2026-03" || len(loaded.Transactions) != 0 {
		t.Fatalf("empty month response = %+v", loaded)
	}
	if loaded.Summary.Balance.Cents != 0 {
		t.Fatalf("empty month balance = %d", loaded.Summary.Balance.Cents)
	}

	resp, body = doRequest(t, ts, http.MethodPost, "/api/months/2026-03/transactions?category=income",
		`{"date":"2026-03-01","description":"Salary","amount":50000}`)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create income = %d %s", resp.StatusCode, body)
	}
	var salary core.Entry
	if err := json.Unmarshal(body, &salary); err != nil {
		t.Fatalf("unmarshal entry: %v", err)
	}
	if salary.ID == "" || salary.Category != core.Income || salary.Amount.Cents != 5000000 {
		t.Fatalf("created income = %+v", salary)
	}

	resp, body = doRequest(t, ts, http.MethodPost, "/api/months/2026-03/transactions?category=expense",
		`{"date":"2026-03-03","description":"Rent","amount":15000}`)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create expense = %d %s", resp.StatusCode, body)
	}
	var rent core.Entry
	if err := json.Unmarshal(body, &rent); err != nil {
		t.Fatalf("unmarshal entry: %v", err)
	}

	resp, body = doRequest(t, ts, http.MethodGet, "/api/months/2026-03/summary", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("summary = %d %s", resp.StatusCode, body)
	}
	var summary core.MonthlySummary
	if err := json.Unmarshal(body, &summary); err != nil {
		t.Fatalf("unmarshal summary: %v", err)
	}
	if summary.TotalIncome.Cents != 5000000 || summary.TotalExpenses.Cents != 1500000 || summary.Balance.Cents != 3500000 {
		t.Fatalf("summary = %+v", summary)
	}

	// Updating the amount invalidates the cached summary.
	resp, body = doRequest(t, ts, http.MethodPatch, "/api/transactions/"+rent.ID,
		`{"amount":16000}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("update = %d %s", resp.StatusCode, body)
	}
	var updated core.Entry
	if err := json.Unmarshal(body, &updated); err != nil {
		t.Fatalf("unmarshal updated entry: %v", err)
	}
	if updated.Amount.Cents != 1600000 || updated.Category != core.Expense || updated.Description != "Rent" {
		t.Fatalf("updated entry = %+v", updated)
	}

	resp, body = doRequest(t, ts, http.MethodGet, "/api/months/2026-03/summary", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("summary after update = %d %s", resp.StatusCode, body)
	}
	if err := json.Unmarshal(body, &summary); err != nil {
		t.Fatalf("unmarshal summary: %v", err)
	}
	if summary.Balance.Cents != 3400000 {
		t.Fatalf("balance after update = %d, want 3400000", summary.Balance.Cents)
	}

	resp, _ = doRequest(t, ts, http.MethodDelete, "/api/transactions/"+salary.ID, "")
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("delete = %d", resp.StatusCode)
	}

	resp, body = doRequest(t, ts, http.MethodGet, "/api/months/2026-03", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("reload month = %d %s", resp.StatusCode, body)
	}
	if err := json.Unmarshal(body, &loaded); err != nil {
		t.Fatalf("unmarshal month: %v", err)
	}
	if len(loaded.Transactions) != 1 || loaded.Transactions[0].ID != rent.ID {
		t.Fatalf("transactions after delete = %+v", loaded.Transactions)
	}
}

func TestSummaryNotServedFromCacheAfterMonthSwitch(t *testing.T) {
	ts := newTestServer(t)

	if resp, body := doRequest(t, ts, http.MethodGet, "/api/months/2026-03", ""); resp.StatusCode != http.StatusOK {
		t.Fatalf("load march = %d %s", resp.StatusCode, body)
	}
	resp, body := doRequest(t, ts, http.MethodPost, "/api/months/2026-03/transactions?category=income",
		`{"date":"2026-03-01","description":"Salary","amount":50000}`)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create income = %d %s", resp.StatusCode, body)
	}

	// Populate the cache for March.
	resp, body = doRequest(t, ts, http.MethodGet, "/api/months/2026-03/summary", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("march summary = %d %s", resp.StatusCode, body)
	}

	if resp, body := doRequest(t, ts, http.MethodGet, "/api/months/2026-04", ""); resp.StatusCode != http.StatusOK {
		t.Fatalf("load april = %d %s", resp.StatusCode, body)
	}

	// March is no longer loaded, so its cached summary must not be served.
	resp, body = doRequest(t, ts, http.MethodGet, "/api/months/2026-03/summary", "")
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("march summary after switch = %d %s, want %d", resp.StatusCode, body, http.StatusConflict)
	}

	resp, body = doRequest(t, ts, http.MethodGet, "/api/months/2026-04/summary", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("april summary = %d %s", resp.StatusCode, body)
	}
	var summary core.MonthlySummary
	if err := json.Unmarshal(body, &summary); err != nil {
		t.Fatalf("unmarshal summary: %v", err)
	}
	if summary.Balance.Cents != 0 {
		t.Fatalf("april balance = %d, want 0", summary.Balance.Cents)
	}
}

func TestMutatingRequestsAreRateLimited(t *testing.T) {
	ts := newTestServer(t)

	if resp, body := doRequest(t, ts, http.MethodGet, "/api/months/2026-03", ""); resp.StatusCode != http.StatusOK {
		t.Fatalf("load month = %d %s", resp.StatusCode, body)
	}

	// Pin the client IP so every request counts against the same bucket.
	send := func() *http.Response {
		req, err := http.NewRequest(http.MethodDelete, ts.URL+"/api/transactions/missing", nil)
		if err != nil {
			t.Fatalf("NewRequest: %v", err)
		}
		req.Header.Set("X-Forwarded-For", "203.0.113.7")
		resp, err := ts.Client().Do(req)
		if err != nil {
			t.Fatalf("delete: %v", err)
		}
		defer resp.Body.Close()
		_, _ = io.Copy(io.Discard, resp.Body)
		return resp
	}

	for i := 0; i < 60; i++ {
		if resp := send(); resp.StatusCode != http.StatusNotFound {
			t.Fatalf("request %d = %d, want %d", i+1, resp.StatusCode, http.StatusNotFound)
		}
	}

	resp := send()
	if resp.StatusCode != http.StatusTooManyRequests {
		t.Fatalf("request 61 = %d, want %d", resp.StatusCode, http.StatusTooManyRequests)
	}
	if got := resp.Header.Get("Retry-After"); got != "60" {
		t.Errorf("Retry-After = %q, want %q", got, "60")
	}

	// Reads stay unthrottled for the same client.
	req, err := http.NewRequest(http.MethodGet, ts.URL+"/api/months/2026-03/summary", nil)
	if err != nil {
		t.Fatalf("NewRequest: %v", err)
	}
	req.Header.Set("X-Forwarded-For", "203.0.113.7")
	getResp, err := ts.Client().Do(req)
	if err != nil {
		t.Fatalf("summary: %v", err)
	}
	defer getResp.Body.Close()
	if getResp.StatusCode != http.StatusOK {
		t.Errorf("summary while throttled = %d, want %d", getResp.StatusCode, http.StatusOK)
	}
}

func TestErrorResponses(t *testing.T) {
	ts := newTestServer(t)

	tests := []struct {
		name       string
		method     string
		path       string
		body       string
		wantStatus int
	}{
		{
			name:       "malformed month",
			method:     http.MethodGet,
			path:       "/api/months/march-2026",
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "create before month is loaded",
			method:     http.MethodPost,
			path:       "/api/months/2026-03/transactions?category=income",
			body:       `{"date":"2026-03-01","description":"Salary","amount":50000}`,
			wantStatus: http.StatusConflict,
		},
		{
			name:       "delete before month is loaded",
			method:     http.MethodDelete,
			path:       "/api/transactions/some-id",
			wantStatus: http.StatusConflict,
		},
		{
			name:       "summary before month is loaded",
			method:     http.MethodGet,
			path:       "/api/months/2026-03/summary",
			wantStatus: http.StatusConflict,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, body := doRequest(t, ts, tt.method, tt.path, tt.body)
			if resp.StatusCode != tt.wantStatus {
				t.Errorf("%s %s = %d %s, want %d", tt.method, tt.path, resp.StatusCode, body, tt.wantStatus)
			}
		})
	}
}

func TestErrorResponsesForLoadedMonth(t *testing.T) {
	ts := newTestServer(t)

	if resp, body := doRequest(t, ts, http.MethodGet, "/api/months/2026-03", ""); resp.StatusCode != http.StatusOK {
		t.Fatalf("load month = %d %s", resp.StatusCode, body)
	}

	tests := []struct {
		name       string
		method     string
		path       string
		body       string
		wantStatus int
	}{
		{
			name:       "create with unknown category",
			method:     http.MethodPost,
			path:       "/api/months/2026-03/transactions?category=transfer",
			body:       `{"date":"2026-03-01","description":"Salary","amount":50000}`,
			wantStatus: http.StatusUnprocessableEntity,
		},
		{
			name:       "create with date outside month",
			method:     http.MethodPost,
			path:       "/api/months/2026-03/transactions?category=expense",
			body:       `{"date":"2026-04-01","description":"Rent","amount":15000}`,
			wantStatus: http.StatusUnprocessableEntity,
		},
		{
			name:       "create with blank description",
			method:     http.MethodPost,
			path:       "/api/months/2026-03/transactions?category=expense",
			body:       `{"date":"2026-03-01","description":"   ","amount":15000}`,
			wantStatus: http.StatusUnprocessableEntity,
		},
		{
			name:       "create against a month that is not loaded",
			method:     http.MethodPost,
			path:       "/api/months/2026-04/transactions?category=expense",
			body:       `{"date":"2026-04-01","description":"Rent","amount":15000}`,
			wantStatus: http.StatusConflict,
		},
		{
			name:       "create with invalid body",
			method:     http.MethodPost,
			path:       "/api/months/2026-03/transactions?category=expense",
			body:       `{not json`,
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "update unknown transaction",
			method:     http.MethodPatch,
			path:       "/api/transactions/missing",
			body:       `{"description":"Other"}`,
			wantStatus: http.StatusNotFound,
		},
		{
			name:       "delete unknown transaction",
			method:     http.MethodDelete,
			path:       "/api/transactions/missing",
			wantStatus: http.StatusNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, body := doRequest(t, ts, tt.method, tt.path, tt.body)
			if resp.StatusCode != tt.wantStatus {
				t.Errorf("%s %s = %d %s, want %d", tt.method, tt.path, resp.StatusCode, body, tt.wantStatus)
			}
		})
	}
}
