package trace

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"racevault/internal/log"
	"racevault/internal/metrics"
)

func TestMiddlewareStampsRequestID(t *testing.T) {
	var seen string
	mw := NewMiddleware(log.Discard(), nil, nil, nil)
	h := mw.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = GetRequestID(r.Context())
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	if !strings.HasPrefix(seen, "req_") {
		t.Fatalf("request id = %q", seen)
	}
	if rec.Header().Get(RequestIDHeader) != seen {
		t.Error("response header does not echo the request id")
	}
}

func TestMiddlewareKeepsValidIncomingID(t *testing.T) {
	var seen string
	h := NewMiddleware(nil, nil, nil, nil).Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = GetRequestID(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, "abc-123")
	h.ServeHTTP(httptest.NewRecorder(), req)
	if seen != "abc-123" {
		t.Errorf("request id = %q, want abc-123", seen)
	}

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, "bad id\nforged=1")
	h.ServeHTTP(httptest.NewRecorder(), req)
	if seen == "bad id\nforged=1" {
		t.Error("unsafe request id was accepted")
	}
}

func TestMiddlewareObservesRoute(t *testing.T) {
	m := metrics.New()
	mw := NewMiddleware(log.Discard(), m, nil, func(*http.Request) string { return "GET /race/{id}" })
	h := mw.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		w.WriteHeader(http.StatusOK)
	}))

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/race/42", nil))

	if got := testutil.CollectAndCount(m.Registry(), "racevault_requests_total"); got != 1 {
		t.Fatalf("requests_total series = %d, want 1", got)
	}
	want := `
# HELP racevault_requests_total How many HTTP requests processed, partitioned by status code, method and route.
# TYPE racevault_requests_total counter
racevault_requests_total{code="404",method="GET",route="GET /race/{id}"} 1
`
	if err := testutil.GatherAndCompare(m.Registry(), strings.NewReader(want), "racevault_requests_total"); err != nil {
		t.Error(err)
	}
}
