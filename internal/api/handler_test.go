package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trackerql/internal/domain"
	"trackerql/internal/middleware"
	"trackerql/internal/planstore"
	"trackerql/internal/service/analytics"
	"trackerql/internal/testutil"
)

type fakeService struct {
	queryFn func(ctx context.Context, req analytics.QueryRequest) (*analytics.Grid, error)
	plans   map[string][]planstore.ExecutionPlan
}

func (f *fakeService) Query(ctx context.Context, req analytics.QueryRequest) (*analytics.Grid, error) {
	return f.queryFn(ctx, req)
}

func (f *fakeService) ExplainPlans(key string) []planstore.ExecutionPlan {
	return f.plans[key]
}

type explainResponse struct {
	Key   string                    `json:"key"`
	Plans []planstore.ExecutionPlan `json:"plans"`
}

type pingFunc func(ctx context.Context) error

func (f pingFunc) PingContext(ctx context.Context) error { return f(ctx) }

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestServer(t *testing.T, svc AnalyticsService, pingers map[string]Pinger, cfg RouterConfig) *httptest.Server {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	cfg.Logger = quietLogger()
	srv := httptest.NewServer(NewRouter(ctx, NewHandler(svc, pingers, quietLogger()), cfg))
	t.Cleanup(srv.Close)
	return srv
}

func postQuery(t *testing.T, srv *httptest.Server, body string) *http.Response {
	t.Helper()
	resp, err := http.Post(srv.URL+"/api/analytics/trackedEntities/query", "application/json", strings.NewReader(body))
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	return v
}

// === Query endpoint ===

func TestQueryTrackedEntities(t *testing.T) {
	var got analytics.QueryRequest
	svc := &fakeService{queryFn: func(_ context.Context, req analytics.QueryRequest) (*analytics.Grid, error) {
		got = req
		return &analytics.Grid{
			Headers: []analytics.GridHeader{{Name: "trackedentity", Column: "trackedentity", ValueType: "TEXT"}},
			Rows:    [][]any{{"te1"}},
			Height:  1,
		}, nil
	}}
	srv := newTestServer(t, svc, nil, RouterConfig{})

	resp := postQuery(t, srv, `{
		"trackedEntityType": "nEenWmSyUEp",
		"columns": [{"kind": "attribute", "attribute": "w75KJ2mc4zz", "alias": "firstName"}],
		"filters": [{"dimension": "IpHINAT79UW.A03MvHHogjR[-1].a3kGcGDCuk6", "filter": "GT:5"}],
		"limit": 10
	}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))
	assert.NotEmpty(t, resp.Header.Get(middleware.RequestIDHeader))

	grid := decode[analytics.Grid](t, resp)
	assert.Equal(t, 1, grid.Height)
	assert.Equal(t, "trackedentity", grid.Headers[0].Name)

	assert.Equal(t, "nEenWmSyUEp", got.TrackedEntityType)
	require.Len(t, got.Columns, 1)
	assert.Equal(t, "firstName", got.Columns[0].Alias)
	assert.Equal(t, "GT:5", got.Filters[0].Filter)
	assert.Equal(t, 10, got.Limit)
}

func TestQueryTrackedEntities_Errors(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		err        error
		wantStatus int
		wantMsg    string
	}{
		{"empty body", "", nil, http.StatusBadRequest, "request body is required"},
		{"malformed json", "{", nil, http.StatusBadRequest, "unexpected EOF"},
		{"unknown field", `{"program": "x"}`, nil, http.StatusBadRequest, "unknown field"},
		{"validation", `{}`, domain.ErrValidation("invalid tracked entity type uid \"\""), http.StatusBadRequest, "invalid tracked entity type"},
		{"not found", `{}`, domain.ErrNotFound("program \"x\" not found"), http.StatusNotFound, "program \"x\" not found"},
		{"compile", `{}`, domain.ErrCompile("unsupported operator X"), http.StatusInternalServerError, "Internal Server Error"},
		{"database", `{}`, fmt.Errorf("run analytics query: %w", errors.New("pq: relation does not exist")), http.StatusInternalServerError, "Internal Server Error"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &fakeService{queryFn: func(context.Context, analytics.QueryRequest) (*analytics.Grid, error) {
				if tt.err == nil {
					t.Error("service must not be called")
					return nil, errors.New("unexpected call")
				}
				return nil, tt.err
			}}
			srv := newTestServer(t, svc, nil, RouterConfig{})

			resp := postQuery(t, srv, tt.body)
			assert.Equal(t, tt.wantStatus, resp.StatusCode)
			body := decode[errorResponse](t, resp)
			assert.Equal(t, tt.wantStatus, body.Code)
			assert.Contains(t, body.Message, tt.wantMsg)
		})
	}
}

func TestQueryTrackedEntities_RecoversPanics(t *testing.T) {
	svc := &fakeService{queryFn: func(context.Context, analytics.QueryRequest) (*analytics.Grid, error) {
		panic("render without FROM")
	}}
	srv := newTestServer(t, svc, nil, RouterConfig{})

	resp := postQuery(t, srv, `{}`)
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
}

func TestQueryTrackedEntities_RateLimited(t *testing.T) {
	svc := &fakeService{queryFn: func(context.Context, analytics.QueryRequest) (*analytics.Grid, error) {
		return &analytics.Grid{}, nil
	}}
	srv := newTestServer(t, svc, nil, RouterConfig{
		RateLimit: middleware.RateLimitConfig{RequestsPerSecond: 1, Burst: 1},
	})

	assert.Equal(t, http.StatusOK, postQuery(t, srv, `{}`).StatusCode)
	assert.Equal(t, http.StatusTooManyRequests, postQuery(t, srv, `{}`).StatusCode)

	// Health checks are outside the limited group.
	resp, err := http.Get(srv.URL + "/healthz")
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

// === Explain endpoint ===

func TestExplainPlans(t *testing.T) {
	svc := &fakeService{plans: map[string][]planstore.ExecutionPlan{
		"k1": {{Query: "SELECT 1", Plan: map[string]any{"Node Type": "Result"}, TimeInMillis: 0.2}},
	}}
	srv := newTestServer(t, svc, nil, RouterConfig{})

	t.Run("found", func(t *testing.T) {
		resp, err := http.Get(srv.URL + "/api/analytics/explain/k1")
		require.NoError(t, err)
		defer resp.Body.Close() //nolint:errcheck
		require.Equal(t, http.StatusOK, resp.StatusCode)

		body := decode[explainResponse](t, resp)
		assert.Equal(t, "k1", body.Key)
		require.Len(t, body.Plans, 1)
		assert.Equal(t, "SELECT 1", body.Plans[0].Query)
	})

	t.Run("unknown key", func(t *testing.T) {
		resp, err := http.Get(srv.URL + "/api/analytics/explain/nope")
		require.NoError(t, err)
		defer resp.Body.Close() //nolint:errcheck
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	})
}

func TestExplainPlans_GraceWindow(t *testing.T) {
	sched := &testutil.ManualScheduler{}
	analyzer := &testutil.MockAnalyzer{
		ExplainFn: func(context.Context, string, ...any) ([]byte, error) {
			return []byte(`[{"Plan": {"Node Type": "Result"}, "Execution Time": 0.1}]`), nil
		},
	}
	store := planstore.New(analyzer, sched)
	catalog := &testutil.MockCatalog{
		TrackedEntityTypeFn: func(_ context.Context, uid string) (*domain.TrackedEntityType, error) {
			return &domain.TrackedEntityType{UID: uid, Name: "Person"}, nil
		},
	}
	svc := analytics.NewService(catalog, nil, store, nil)
	srv := newTestServer(t, svc, nil, RouterConfig{})

	resp := postQuery(t, srv, `{"trackedEntityType": "nEenWmSyUEp", "analyzeOnly": true, "explainKey": "abc"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "abc", decode[analytics.Grid](t, resp).ExplainKey)

	get := func() int {
		resp, err := http.Get(srv.URL + "/api/analytics/explain/abc")
		require.NoError(t, err)
		_ = resp.Body.Close()
		return resp.StatusCode
	}
	assert.Equal(t, http.StatusOK, get())
	assert.Equal(t, http.StatusOK, get(), "plans stay readable inside the grace window")

	sched.Advance(planstore.DefaultEvictionDelay + time.Second)
	assert.Equal(t, http.StatusNotFound, get())
}

// === Health and middleware ===

func TestHealth(t *testing.T) {
	tests := []struct {
		name       string
		pingers    map[string]Pinger
		wantStatus int
	}{
		{"no dependencies", nil, http.StatusOK},
		{"healthy", map[string]Pinger{"metadata": pingFunc(func(context.Context) error { return nil })}, http.StatusOK},
		{"database down", map[string]Pinger{"analytics": pingFunc(func(context.Context) error { return errors.New("refused") })}, http.StatusServiceUnavailable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newTestServer(t, &fakeService{}, tt.pingers, RouterConfig{})
			resp, err := http.Get(srv.URL + "/healthz")
			require.NoError(t, err)
			defer resp.Body.Close() //nolint:errcheck
			assert.Equal(t, tt.wantStatus, resp.StatusCode)
		})
	}
}

func TestRouter_CORS(t *testing.T) {
	srv := newTestServer(t, &fakeService{}, nil, RouterConfig{CORSAllowedOrigins: []string{"https://app.example"}})

	req, err := http.NewRequest(http.MethodOptions, srv.URL+"/api/analytics/trackedEntities/query", nil)
	require.NoError(t, err)
	req.Header.Set("Origin", "https://app.example")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close() //nolint:errcheck
	assert.Equal(t, "https://app.example", resp.Header.Get("Access-Control-Allow-Origin"))
}

func TestRouter_PreservesRequestID(t *testing.T) {
	srv := newTestServer(t, &fakeService{}, nil, RouterConfig{})

	req, err := http.NewRequest(http.MethodGet, srv.URL+"/healthz", bytes.NewReader(nil))
	require.NoError(t, err)
	req.Header.Set(middleware.RequestIDHeader, "trace-123")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close() //nolint:errcheck
	assert.Equal(t, "trace-123", resp.Header.Get(middleware.RequestIDHeader))
}
