package postgrest_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alexanderramin/planrollup/internal/store"
	"github.com/alexanderramin/planrollup/internal/store/postgrest"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newClient(t *testing.T, h http.HandlerFunc, opts ...postgrest.Option) *postgrest.Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return postgrest.New(postgrest.Config{
		BaseURL: srv.URL + "/rest/v1/",
		Key:     "test-key",
		Timeout: time.Second,
		Retries: 2,
		Backoff: time.Millisecond,
	}, opts...)
}

func TestInsert_SendsRepresentationAndDecodesNumbers(t *testing.T) {
	c := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/rest/v1/weekly_plans", r.URL.Path)
		assert.Equal(t, "test-key", r.Header.Get("apikey"))
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		assert.Equal(t, "return=representation", r.Header.Get("Prefer"))

		var body []map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		require.Len(t, body, 2)
		assert.Contains(t, body[1], "quarterly_id", "rows are padded to the same keys")
		assert.Equal(t, 8.5, body[0]["planned_hours"])

		w.WriteHeader(http.StatusCreated)
		_, _ = io.WriteString(w, `[{"weekly_id":"w1","planned_hours":8.5},{"weekly_id":"w2","planned_hours":2}]`)
	})

	out, err := c.Insert(context.Background(), store.TableWeeklyPlans, []store.Row{
		{"weekly_id": "w1", "quarterly_id": "q1", "planned_hours": decimal.RequireFromString("8.5")},
		{"weekly_id": "w2", "planned_hours": json.Number("2")},
	})
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Equal(t, json.Number("8.5"), out[0]["planned_hours"])
}

func TestSelect_EncodesFiltersAndOrder(t *testing.T) {
	c := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "weekly_id,planned_hours", q.Get("select"))
		assert.Equal(t, "eq.q1", q.Get("quarterly_id"))
		assert.Equal(t, []string{"gte.2025-02-03", "lt.2025-03-01"}, q["weekly_date"])
		assert.Equal(t, `in.("a","b")`, q.Get("weekly_id"))
		assert.Equal(t, "not.is.null", q.Get("expected_result"))
		assert.Equal(t, "weekly_date.desc", q.Get("order"))
		_, _ = io.WriteString(w, `[]`)
	})

	_, err := c.Select(context.Background(), store.TableWeeklyPlans, store.Query{
		Columns: []string{"weekly_id", "planned_hours"},
		Filters: []store.Filter{
			store.Eq("quarterly_id", "q1"),
			store.Gte("weekly_date", "2025-02-03"),
			store.Lt("weekly_date", "2025-03-01"),
			store.In("weekly_id", "a", "b"),
			store.NotNull("expected_result"),
		},
		Order: []store.Order{{Column: "weekly_date", Desc: true}},
	})
	require.NoError(t, err)
}

func TestSelect_PagesUntilShortPage(t *testing.T) {
	const total = 5
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		assert.Equal(t, "weekly_id.asc", r.URL.Query().Get("order"))
		offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
		limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
		var rows []map[string]any
		for i := offset; i < total && i < offset+limit; i++ {
			rows = append(rows, map[string]any{"weekly_id": strconv.Itoa(i)})
		}
		_ = json.NewEncoder(w).Encode(rows)
	}))
	t.Cleanup(srv.Close)
	c := postgrest.New(postgrest.Config{BaseURL: srv.URL, PageSize: 2, Backoff: time.Millisecond})

	rows, err := c.Select(context.Background(), store.TableWeeklyPlans, store.Query{})
	require.NoError(t, err)
	assert.Len(t, rows, total)
	assert.Equal(t, int32(3), calls.Load())
}

func TestSelect_LimitStopsPaging(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
		rows := make([]map[string]any, limit)
		for i := range rows {
			rows[i] = map[string]any{"weekly_id": "x"}
		}
		_ = json.NewEncoder(w).Encode(rows)
	}))
	t.Cleanup(srv.Close)
	c := postgrest.New(postgrest.Config{BaseURL: srv.URL, PageSize: 2, Backoff: time.Millisecond})

	rows, err := c.Select(context.Background(), store.TableWeeklyPlans, store.Query{Limit: 3})
	require.NoError(t, err)
	assert.Len(t, rows, 3)
	assert.Equal(t, int32(2), calls.Load())
}

func TestDo_RetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	reg := prometheus.NewRegistry()
	m := store.NewMetrics(reg)
	c := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Header().Set("Content-Range", "*/3")
		w.WriteHeader(http.StatusNoContent)
	}, postgrest.WithMetrics(m))

	n, err := c.Delete(context.Background(), store.TableWeeklyTasks,
		[]store.Filter{store.Eq("weekly_plan_id", "w1")})
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.Equal(t, int32(2), calls.Load())
	expected := `
# HELP planrollup_store_retries_total Request attempts repeated after a transient failure.
# TYPE planrollup_store_retries_total counter
planrollup_store_retries_total{op="delete",table="weekly_tasks"} 1
`
	assert.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(expected), "planrollup_store_retries_total"))
}

func TestDo_RetriesExhausted(t *testing.T) {
	var calls atomic.Int32
	c := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusTooManyRequests)
	})

	_, err := c.Select(context.Background(), store.TableWeeklyPlans, store.Query{})
	require.Error(t, err)
	assert.ErrorIs(t, err, store.ErrTransport)
	assert.Equal(t, int32(3), calls.Load())
}

func TestDo_ClientErrorsAreNotRetried(t *testing.T) {
	var calls atomic.Int32
	c := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusConflict)
		_, _ = io.WriteString(w, `{"message":"duplicate key"}`)
	})

	_, err := c.Insert(context.Background(), store.TableWeeklyPlans, []store.Row{{"weekly_id": "w1"}})
	require.Error(t, err)
	assert.ErrorIs(t, err, store.ErrRejected)
	assert.Contains(t, err.Error(), "duplicate key")
	assert.Equal(t, int32(1), calls.Load())
}

func TestDo_AttemptTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(time.Second):
		}
	}))
	t.Cleanup(srv.Close)
	c := postgrest.New(postgrest.Config{BaseURL: srv.URL, Timeout: 20 * time.Millisecond, Backoff: time.Millisecond})

	_, err := c.Select(context.Background(), store.TableWeeklyPlans, store.Query{})
	assert.ErrorIs(t, err, store.ErrTransport)
}

func TestUpdate_PatchesByFilter(t *testing.T) {
	c := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPatch, r.Method)
		assert.Equal(t, "eq.w2", r.URL.Query().Get("weekly_plan_id"))
		assert.Equal(t, "return=minimal,count=exact", r.Header.Get("Prefer"))
		var patch map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&patch))
		assert.Equal(t, map[string]any{"weekly_plan_id": "w1"}, patch)
		w.Header().Set("Content-Range", "0-1/2")
		w.WriteHeader(http.StatusNoContent)
	})

	n, err := c.Update(context.Background(), store.TableWeeklyTasks,
		[]store.Filter{store.Eq("weekly_plan_id", "w2")},
		store.Row{"weekly_plan_id": "w1"})
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestWrites_RequireFilterWithoutCallingServer(t *testing.T) {
	var calls atomic.Int32
	c := newClient(t, func(w http.ResponseWriter, r *http.Request) { calls.Add(1) })

	_, err := c.Delete(context.Background(), store.TableWeeklyPlans, nil)
	assert.ErrorIs(t, err, store.ErrUnfiltered)
	_, err = c.Update(context.Background(), store.TableWeeklyPlans, nil, store.Row{"status": "active"})
	assert.ErrorIs(t, err, store.ErrUnfiltered)
	_, err = c.Select(context.Background(), "projects", store.Query{})
	assert.ErrorIs(t, err, store.ErrUnknownTable)
	assert.Zero(t, calls.Load())
}
