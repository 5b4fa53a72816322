package ratelimit

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func newTestLimiter(t *testing.T, perMinute int) (*Limiter, *time.Time) {
	t.Helper()
	rl := NewLimiter(Config{RequestsPerMinute: perMinute, CleanupInterval: time.Hour})
	t.Cleanup(rl.Stop)
	clock := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return clock }
	return rl, &clock
}

func TestLimiter_Allow(t *testing.T) {
	rl, clock := newTestLimiter(t, 3)

	for i := 1; i <= 3; i++ {
		if !rl.Allow("user-a") {
			t.Fatalf("request %d rejected", i)
		}
	}
	if rl.Allow("user-a") {
		t.Fatal("fourth request in the window should be rejected")
	}
	if !rl.Allow("user-b") {
		t.Fatal("other keys have their own bucket")
	}

	*clock = clock.Add(time.Minute)
	if !rl.Allow("user-a") {
		t.Fatal("a new window should reset the count")
	}
	if rl.Rejected() != 1 {
		t.Errorf("Rejected() = %d, want 1", rl.Rejected())
	}
}

func TestLimiter_WindowDoesNotSlide(t *testing.T) {
	rl, clock := newTestLimiter(t, 2)

	rl.Allow("k")
	*clock = clock.Add(40 * time.Second)
	rl.Allow("k")
	*clock = clock.Add(30 * time.Second)
	if !rl.Allow("k") {
		t.Fatal("steady traffic must not keep the window open forever")
	}
}

func TestLimiter_CleanupStaleEntries(t *testing.T) {
	rl, clock := newTestLimiter(t, 5)
	rl.Allow("old")
	*clock = clock.Add(11 * time.Minute)
	rl.Allow("new")

	rl.cleanupStaleEntries()
	if _, ok := rl.clients["old"]; ok {
		t.Error("stale client was not removed")
	}
	if _, ok := rl.clients["new"]; !ok {
		t.Error("recent client was removed")
	}
}

func TestLimiter_Middleware(t *testing.T) {
	rl, _ := newTestLimiter(t, 1)
	h := rl.Middleware(func(*http.Request) string { return "k" }, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte(`{"error":"rate limit exceeded"}`))
	})(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("first status = %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("second status = %d, want 429", rec.Code)
	}
	if rec.Header().Get("Retry-After") != "60" {
		t.Errorf("Retry-After = %q", rec.Header().Get("Retry-After"))
	}
}
