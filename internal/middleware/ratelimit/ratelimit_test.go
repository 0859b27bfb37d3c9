package ratelimit

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"racevault/internal/metrics"
)

func TestAllowWithinWindow(t *testing.T) {
	rl := NewLimiter(Config{RequestsPerMinute: 2, CleanupInterval: time.Hour}, nil)
	defer rl.Stop()

	now := time.Date(2024, 11, 10, 6, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return now }

	if !rl.Allow("a") || !rl.Allow("a") {
		t.Fatal("first two requests should pass")
	}
	if rl.Allow("a") {
		t.Fatal("third request in the same minute should be limited")
	}
	if !rl.Allow("b") {
		t.Fatal("other clients have their own window")
	}

	now = now.Add(time.Minute)
	if !rl.Allow("a") {
		t.Fatal("window should reset after a minute")
	}
}

func TestLimitedClientStaysLimited(t *testing.T) {
	rl := NewLimiter(Config{RequestsPerMinute: 1, CleanupInterval: time.Hour}, nil)
	defer rl.Stop()

	start := time.Date(2024, 11, 10, 6, 0, 0, 0, time.UTC)
	now := start
	rl.now = func() time.Time { return now }

	rl.Allow("a")
	for i := 0; i < 5; i++ {
		now = now.Add(10 * time.Second)
		if now.Sub(start) >= time.Minute {
			break
		}
		if rl.Allow("a") {
			t.Fatalf("request %d allowed inside the window", i)
		}
	}
}

func TestCleanupDropsStaleClients(t *testing.T) {
	rl := NewLimiter(Config{RequestsPerMinute: 5, CleanupInterval: time.Hour}, nil)
	defer rl.Stop()

	now := time.Date(2024, 11, 10, 6, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return now }
	rl.Allow("old")

	now = now.Add(staleAfter + time.Second)
	rl.Allow("fresh")
	rl.cleanupStaleEntries()

	if got := rl.ActiveClients(); got != 1 {
		t.Fatalf("ActiveClients = %d, want 1", got)
	}
}

func TestMiddlewareRejectsWith429(t *testing.T) {
	m := metrics.New()
	rl := NewLimiter(Config{RequestsPerMinute: 1, CleanupInterval: time.Hour}, m)
	defer rl.Stop()
	rl.Stop()

	h := rl.Middleware(func(*http.Request) string { return "10.0.0.1" }, nil)(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusNoContent) }),
	)

	first := httptest.NewRecorder()
	h.ServeHTTP(first, httptest.NewRequest(http.MethodGet, "/", nil))
	if first.Code != http.StatusNoContent {
		t.Fatalf("first status = %d", first.Code)
	}

	second := httptest.NewRecorder()
	h.ServeHTTP(second, httptest.NewRequest(http.MethodGet, "/", nil))
	if second.Code != http.StatusTooManyRequests {
		t.Fatalf("second status = %d, want 429", second.Code)
	}
	if second.Header().Get("Retry-After") != "60" {
		t.Error("missing Retry-After")
	}
	if got := testutil.ToFloat64(m.RateLimitedCount()); got != 1 {
		t.Errorf("rate_limited_total = %v, want 1", got)
	}
}
