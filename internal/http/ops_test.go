package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"relnet/internal/jobs"
	"relnet/internal/observability"
)

type mockQueue struct {
	pushed []jobs.Job
	err    error
}

func (m *mockQueue) Push(_ context.Context, job jobs.Job) error {
	if m.err != nil {
		return m.err
	}
	m.pushed = append(m.pushed, job)
	return nil
}

func newTestRouter(checks map[string]Check, queue JobEnqueuer) (*gin.Engine, *observability.Collector) {
	gin.SetMode(gin.TestMode)
	collector := observability.NewCollector("relnet_test")
	var jobH *JobHandler
	if queue != nil {
		jobH = NewJobHandler(nil, queue)
	}
	return NewRouter(nil, NewHealthHandler(nil, checks), jobH, collector.Registry()), collector
}

func TestHealthzReportsEachCheck(t *testing.T) {
	router, _ := newTestRouter(map[string]Check{
		"postgres": func(context.Context) error { return nil },
		"redis":    func(context.Context) error { return errors.New("connection refused") },
	}, nil)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rec.Code)
	}
	var body struct {
		Status string            `json:"status"`
		Checks map[string]string `json:"checks"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body.Status != "degraded" || body.Checks["postgres"] != "ok" || body.Checks["redis"] != "down" {
		t.Fatalf("unexpected body %+v", body)
	}
}

func TestHealthzOK(t *testing.T) {
	router, _ := newTestRouter(map[string]Check{
		"postgres": func(context.Context) error { return nil },
	}, nil)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "application/json") {
		t.Fatalf("unexpected content type %q", ct)
	}
	if cc := rec.Header().Get("Cache-Control"); cc != "no-store" {
		t.Fatalf("unexpected cache control %q", cc)
	}
}

func TestMetricsEndpointExposesCollector(t *testing.T) {
	router, collector := newTestRouter(nil, nil)
	collector.PairScored()

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "relnet_test_pairs_scored_total 1") {
		t.Fatalf("expected pairs counter in output, got:\n%s", rec.Body.String())
	}
}

func TestEnqueueJob(t *testing.T) {
	queue := &mockQueue{}
	router, _ := newTestRouter(nil, queue)

	body := []byte(`{"type":"match","workspace_id":"ws","goal_id":"g1"}`)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/jobs", bytes.NewReader(body)))
	if rec.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d: %s", rec.Code, rec.Body.String())
	}
	if len(queue.pushed) != 1 || queue.pushed[0].GoalID != "g1" {
		t.Fatalf("unexpected pushed jobs %+v", queue.pushed)
	}
}

func TestEnqueueJobValidation(t *testing.T) {
	cases := []struct {
		name string
		body string
		err  error
		code int
	}{
		{name: "unknown type", body: `{"type":"resync","workspace_id":"ws"}`, code: http.StatusBadRequest},
		{name: "missing workspace", body: `{"type":"metrics"}`, code: http.StatusBadRequest},
		{name: "queue rejects", body: `{"type":"match","workspace_id":"ws"}`, err: jobs.ErrInvalidJob, code: http.StatusBadRequest},
		{name: "queue down", body: `{"type":"metrics","workspace_id":"ws"}`, err: errors.New("redis down"), code: http.StatusInternalServerError},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			router, _ := newTestRouter(nil, &mockQueue{err: tc.err})
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/jobs", strings.NewReader(tc.body)))
			if rec.Code != tc.code {
				t.Fatalf("expected %d, got %d: %s", tc.code, rec.Code, rec.Body.String())
			}
		})
	}
}

func TestRequestLoggerLevels(t *testing.T) {
	gin.SetMode(gin.TestMode)
	core, logs := observer.New(zapcore.DebugLevel)
	checks := map[string]Check{"postgres": func(context.Context) error { return nil }}
	router := NewRouter(zap.New(core), NewHealthHandler(nil, checks), NewJobHandler(nil, &mockQueue{err: errors.New("redis down")}), nil)

	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/healthz", nil))
	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/jobs", strings.NewReader(`{"type":"metrics","workspace_id":"ws"}`)))
	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/nope", nil))

	entries := logs.All()
	if len(entries) != 3 {
		t.Fatalf("expected 3 request logs, got %d", len(entries))
	}
	want := []struct {
		level zapcore.Level
		msg   string
		route string
	}{
		{zapcore.DebugLevel, "request", "/healthz"},
		{zapcore.ErrorLevel, "request failed", "/jobs"},
		{zapcore.InfoLevel, "request", "unmatched"},
	}
	for i, w := range want {
		e := entries[i]
		if e.Level != w.level || e.Message != w.msg || e.ContextMap()["route"] != w.route {
			t.Fatalf("entry %d: expected %v %q route %q, got %v %q %v", i, w.level, w.msg, w.route, e.Level, e.Message, e.ContextMap())
		}
	}
}
