package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"settlements/internal/core"
	"settlements/internal/log"
	"settlements/internal/month"
	"settlements/internal/services"
	"settlements/internal/storage/memory"
)

var testNow = time.Date(2025, time.March, 14, 9, 0, 0, 0, time.UTC)

func quietLogger() *log.Logger {
	return log.New(log.Config{Output: io.Discard})
}

func newTestServer(t *testing.T, store *memory.Store, opts Options) *Server {
	t.Helper()
	if opts.Clock == nil {
		opts.Clock = month.FixedClock(testNow)
	}
	opts.Logger = quietLogger()
	svc := services.NewSettlementService(store, nil, opts.Clock)
	srv, err := NewServer(":0", svc, opts)
	require.NoError(t, err)
	t.Cleanup(func() { _ = srv.Shutdown(context.Background()) })
	return srv
}

func do(srv *Server, req *http.Request) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rr, req)
	return rr
}

func postJSON(srv *Server, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return do(srv, req)
}

func seeded(items ...core.Settlement) *memory.Store {
	return memory.NewWithSeed(items)
}

func settlement(id string, date core.Date, pence int64, status core.Status) core.Settlement {
	return core.Settlement{
		ID:          id,
		Description: "Dinner " + id,
		Amount:      core.Money{Pence: pence},
		PaidBy:      "Alice",
		OwedBy:      "Bob",
		Date:        date,
		Status:      status,
		CreatedAt:   testNow,
		Version:     1,
	}
}

func TestIndexAndHealth(t *testing.T) {
	srv := newTestServer(t, seeded(settlement("s1", core.NewDate(2025, 3, 5), 123450, core.StatusPending)), Options{})

	rr := do(srv, httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	body := rr.Body.String()
	assert.Contains(t, body, "March 2025")
	assert.Contains(t, body, "£1,234.50")
	assert.Contains(t, body, "Mar 5, 2025")
	assert.Contains(t, body, `href="/?month=2025-02"`)
	assert.Contains(t, body, `href="/?month=2025-04"`)

	assert.NotEmpty(t, rr.Header().Get(requestIDHeader))
	assert.Equal(t, "nosniff", rr.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "DENY", rr.Header().Get("X-Frame-Options"))

	for _, path := range []string{"/healthz", "/readyz", "/static/app.css"} {
		rr := do(srv, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusOK, rr.Code, path)
	}
}

func TestIndex_MonthQuery(t *testing.T) {
	srv := newTestServer(t, memory.New(), Options{})

	tests := []struct {
		name  string
		query string
		want  []string
	}{
		{"explicit month", "?month=2024-12", []string{"December 2024", `month=2024-11"`, `month=2025-01"`, "Nothing recorded for December 2024."}},
		{"invalid month falls back to current", "?month=2024-13", []string{"March 2025"}},
		{"year boundary backwards", "?month=2025-01", []string{"January 2025", `month=2024-12"`}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := do(srv, httptest.NewRequest(http.MethodGet, "/"+tt.query, nil))
			require.Equal(t, http.StatusOK, rr.Code)
			for _, want := range tt.want {
				assert.Contains(t, rr.Body.String(), want)
			}
		})
	}
}

func TestUnknownPathIs404(t *testing.T) {
	srv := newTestServer(t, memory.New(), Options{})
	rr := do(srv, httptest.NewRequest(http.MethodGet, "/nope", nil))
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestReadyz_Failing(t *testing.T) {
	srv := newTestServer(t, memory.New(), Options{
		Ready: func(context.Context) error { return errors.New("database is locked") },
	})
	rr := do(srv, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
}

func TestRequestIDIsPropagated(t *testing.T) {
	srv := newTestServer(t, memory.New(), Options{})
	const id = "0b0f6c4e-5d0c-4b8e-9f39-8f3f2d0d7a11"

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set(requestIDHeader, id)
	assert.Equal(t, id, do(srv, req).Header().Get(requestIDHeader))

	req = httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set(requestIDHeader, "not-a-uuid")
	assert.NotEqual(t, "not-a-uuid", do(srv, req).Header().Get(requestIDHeader))
}

func TestCreateSettlement_JSON(t *testing.T) {
	srv := newTestServer(t, memory.New(), Options{})

	rr := postJSON(srv, "/api/settlements",
		`{"description":"Concert tickets","amount":"12.50","paid_by":"Alice","owed_by":"Bob","date":"2025-03-05"}`)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())

	var created settlementView
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &created))
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, int64(1250), created.AmountPence)
	assert.Equal(t, "£12.50", created.Amount)
	assert.Equal(t, "Mar 5, 2025", created.DisplayDate)
	assert.Equal(t, month.Key("2025-03"), created.Month)
	assert.Equal(t, "pending", created.Status)

	rr = do(srv, httptest.NewRequest(http.MethodGet, "/api/settlements?month=2025-03", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	var list settlementListResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &list))
	assert.Equal(t, "March 2025", list.FormattedMonth)
	require.Len(t, list.Settlements, 1)
	assert.Equal(t, created.ID, list.Settlements[0].ID)
}

func TestCreateSettlement_Rejections(t *testing.T) {
	srv := newTestServer(t, memory.New(), Options{})

	tests := []struct {
		name string
		body string
		want int
	}{
		{"malformed json", `{"description":`, http.StatusBadRequest},
		{"bad amount", `{"description":"Taxi","amount":"lots","paid_by":"Alice","owed_by":"Bob"}`, http.StatusUnprocessableEntity},
		{"same party", `{"description":"Taxi","amount":"5","paid_by":"Alice","owed_by":"alice"}`, http.StatusUnprocessableEntity},
		{"missing description", `{"amount":"5","paid_by":"Alice","owed_by":"Bob"}`, http.StatusUnprocessableEntity},
		{"bad date", `{"description":"Taxi","amount":"5","paid_by":"Alice","owed_by":"Bob","date":"yesterday"}`, http.StatusUnprocessableEntity},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := postJSON(srv, "/api/settlements", tt.body)
			assert.Equal(t, tt.want, rr.Code, rr.Body.String())
			var apiErr apiError
			require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &apiErr))
			assert.NotEmpty(t, apiErr.Error)
		})
	}
}

func TestCreateSettlement_HTMX(t *testing.T) {
	srv := newTestServer(t, memory.New(), Options{})

	req := httptest.NewRequest(http.MethodPost, "/api/settlements",
		strings.NewReader("description=Groceries&amount=20&paid_by=Alice&owed_by=Bob"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("HX-Request", "true")
	rr := do(srv, req)

	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.Contains(t, rr.Body.String(), `<tr id="settlement-`)
	assert.Contains(t, rr.Body.String(), "£20.00")
	assert.Contains(t, rr.Body.String(), "Mar 14, 2025")
	assert.Contains(t, rr.Header().Get("HX-Trigger"), `"settlement:created":{"month":"2025-03"}`)

	req = httptest.NewRequest(http.MethodPost, "/api/settlements", strings.NewReader("description=Groceries&amount=x"))
	req.Header.Set("HX-Request", "true")
	rr = do(srv, req)
	assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)
	assert.Contains(t, rr.Body.String(), `class="error"`)
}

func TestSettle(t *testing.T) {
	srv := newTestServer(t, seeded(settlement("s1", core.NewDate(2025, 3, 5), 500, core.StatusPending)), Options{})

	rr := do(srv, httptest.NewRequest(http.MethodPost, "/api/settlements/s1/settle", nil))
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	var settled settlementView
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &settled))
	assert.True(t, settled.Settled)
	require.NotNil(t, settled.SettledAt)
	assert.Equal(t, int64(2), settled.Version)

	rr = do(srv, httptest.NewRequest(http.MethodPost, "/api/settlements/s1/settle", nil))
	assert.Equal(t, http.StatusConflict, rr.Code)

	rr = do(srv, httptest.NewRequest(http.MethodPost, "/api/settlements/missing/settle", nil))
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestSettle_HTMX(t *testing.T) {
	srv := newTestServer(t, seeded(settlement("s1", core.NewDate(2025, 2, 5), 500, core.StatusPending)), Options{})

	req := httptest.NewRequest(http.MethodPost, "/api/settlements/s1/settle", nil)
	req.Header.Set("HX-Request", "true")
	rr := do(srv, req)

	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `class="settled"`)
	assert.Contains(t, rr.Header().Get("HX-Trigger"), `"settlement:settled":{"month":"2025-02"}`)
}

func TestMonthState(t *testing.T) {
	srv := newTestServer(t, seeded(
		settlement("s1", core.NewDate(2025, 1, 5), 1000, core.StatusPending),
		settlement("s2", core.NewDate(2025, 1, 6), 250, core.StatusSettled),
	), Options{})

	rr := do(srv, httptest.NewRequest(http.MethodGet, "/api/months/2025-01", nil))
	require.Equal(t, http.StatusOK, rr.Code)

	var got monthResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &got))
	assert.Equal(t, month.Key("2025-01"), got.CurrentMonth)
	assert.Equal(t, "January 2025", got.FormattedMonth)
	assert.Equal(t, month.Key("2024-12"), got.PreviousMonth)
	assert.Equal(t, month.Key("2025-02"), got.NextMonth)
	assert.Equal(t, 2, got.Summary.Count)
	assert.Equal(t, "£10.00", got.Summary.PendingTotal)
	assert.Equal(t, "£2.50", got.Summary.SettledTotal)

	for _, bad := range []string{"2025-1", "2025-00", "garbage"} {
		rr := do(srv, httptest.NewRequest(http.MethodGet, "/api/months/"+bad, nil))
		assert.Equal(t, http.StatusBadRequest, rr.Code, bad)
	}
	rr = do(srv, httptest.NewRequest(http.MethodGet, "/api/settlements?month=2025-13", nil))
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestMonthSelector(t *testing.T) {
	srv := newTestServer(t, seeded(settlement("s1", core.NewDate(2024, 11, 5), 1000, core.StatusPending)), Options{})

	rr := do(srv, httptest.NewRequest(http.MethodGet, "/ui/month-selector?month=2025-03", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	body := rr.Body.String()

	assert.Contains(t, body, `data-state="ready"`)
	assert.Contains(t, body, `<option value="2025-03" selected>March 2025</option>`)
	order := []string{"2025-04", "2025-03", "2025-02", "2024-11"}
	last := -1
	for _, k := range order {
		i := strings.Index(body, `value="`+k+`"`)
		require.Greater(t, i, last, "option %s out of order", k)
		last = i
	}

	state, err := srv.selector.State()
	assert.Equal(t, LoadReady, state)
	assert.NoError(t, err)
}

type failingMonths struct {
	SettlementService
}

func (failingMonths) Months(context.Context) ([]month.Key, error) {
	return nil, errors.New("disk on fire")
}

func TestServer_MonthSelectorFailure(t *testing.T) {
	svc := failingMonths{services.NewSettlementService(memory.New(), nil, month.FixedClock(testNow))}
	srv, err := NewServer(":0", svc, Options{Clock: month.FixedClock(testNow), Logger: quietLogger()})
	require.NoError(t, err)
	defer srv.Shutdown(context.Background())

	rr := do(srv, httptest.NewRequest(http.MethodGet, "/ui/month-selector", nil))
	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	assert.Contains(t, rr.Body.String(), `data-state="failed"`)
	assert.Contains(t, rr.Body.String(), "Months could not be loaded.")
}

func TestNotificationsPage(t *testing.T) {
	store := memory.New()
	_, err := store.SaveNotification(context.Background(), core.Notification{
		ID:           "n1",
		EventID:      "e1",
		SettlementID: "s1",
		Kind:         core.NotificationSettlementCreated,
		Title:        "New settlement",
		Body:         "Bob owes Alice £5.00",
		CreatedAt:    testNow,
	})
	require.NoError(t, err)
	srv := newTestServer(t, store, Options{})

	rr := do(srv, httptest.NewRequest(http.MethodGet, "/notifications", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "New settlement")
	assert.Contains(t, rr.Body.String(), "Bob owes Alice £5.00")
	assert.Contains(t, rr.Body.String(), "Mar 14, 2025")
}

func TestRateLimitOnWrites(t *testing.T) {
	srv := newTestServer(t, memory.New(), Options{RateLimit: 2})
	body := `{"description":"Taxi","amount":"5","paid_by":"Alice","owed_by":"Bob"}`

	for i := 0; i < 2; i++ {
		require.Equal(t, http.StatusCreated, postJSON(srv, "/api/settlements", body).Code)
	}
	rr := postJSON(srv, "/api/settlements", body)
	assert.Equal(t, http.StatusTooManyRequests, rr.Code)
	assert.Equal(t, "60", rr.Header().Get("Retry-After"))

	// Reads are not limited.
	assert.Equal(t, http.StatusOK, do(srv, httptest.NewRequest(http.MethodGet, "/healthz", nil)).Code)
	assert.Equal(t, int64(1), srv.SecurityMetrics().RateLimitHits)
}
