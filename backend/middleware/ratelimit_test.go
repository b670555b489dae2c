package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"go.uber.org/goleak"
)

func okHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}

func hit(h http.Handler, remote, xff string) int {
	req := httptest.NewRequest("POST", "/api/auth/login", nil)
	req.RemoteAddr = remote
	if xff != "" {
		req.Header.Set("X-Forwarded-For", xff)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec.Code
}

func TestRateLimiter_BlocksExcessiveRequests(t *testing.T) {
	limiter := NewRateLimiter(5, time.Minute)
	handler := limiter.Limit(http.HandlerFunc(okHandler))

	blocked := 0
	for i := 0; i < 10; i++ {
		if hit(handler, "192.168.1.1:12345", "") == http.StatusTooManyRequests {
			blocked++
		}
	}
	if blocked != 5 {
		t.Errorf("expected 5 blocked requests, got %d", blocked)
	}
}

func TestRateLimiter_AllowsUnderLimit(t *testing.T) {
	limiter := NewRateLimiter(10, time.Minute)
	handler := limiter.LimitFunc(okHandler)

	for i := 0; i < 10; i++ {
		if code := hit(handler, "192.168.1.1:12345", ""); code != http.StatusOK {
			t.Fatalf("request %d should be allowed, got %d", i, code)
		}
	}
}

func TestRateLimiter_SeparateLimitsPerIP(t *testing.T) {
	limiter := NewRateLimiter(1, time.Minute)
	handler := limiter.Limit(http.HandlerFunc(okHandler))

	if code := hit(handler, "10.0.0.1:1", ""); code != http.StatusOK {
		t.Errorf("first IP should be allowed, got %d", code)
	}
	if code := hit(handler, "10.0.0.2:1", ""); code != http.StatusOK {
		t.Errorf("second IP should be allowed, got %d", code)
	}
	if code := hit(handler, "10.0.0.1:1", ""); code != http.StatusTooManyRequests {
		t.Errorf("first IP should now be limited, got %d", code)
	}
}

func TestRateLimiter_UsesFirstForwardedHop(t *testing.T) {
	limiter := NewRateLimiter(1, time.Minute)
	handler := limiter.Limit(http.HandlerFunc(okHandler))

	hit(handler, "127.0.0.1:1", "203.0.113.7, 10.0.0.1")
	if code := hit(handler, "127.0.0.1:2", "203.0.113.7, 10.0.0.2"); code != http.StatusTooManyRequests {
		t.Errorf("same client behind different proxies should share a limit, got %d", code)
	}
	if code := hit(handler, "127.0.0.1:3", "198.51.100.1"); code != http.StatusOK {
		t.Errorf("different client should be allowed, got %d", code)
	}
}

func TestRateLimiter_WindowResets(t *testing.T) {
	limiter := NewRateLimiter(1, time.Minute)
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	limiter.now = func() time.Time { return now }
	handler := limiter.Limit(http.HandlerFunc(okHandler))

	hit(handler, "10.0.0.1:1", "")
	if code := hit(handler, "10.0.0.1:1", ""); code != http.StatusTooManyRequests {
		t.Fatalf("expected limit, got %d", code)
	}

	now = now.Add(2 * time.Minute)
	limiter.evict()
	if n := limiter.tracked(); n != 0 {
		t.Errorf("expected expired visitor evicted, %d left", n)
	}
	if code := hit(handler, "10.0.0.1:1", ""); code != http.StatusOK {
		t.Errorf("expected new window to allow, got %d", code)
	}
}

func TestRateLimiter_RunStopsOnCancel(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	limiter := NewRateLimiter(1, 10*time.Millisecond)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- limiter.Run(ctx) }()

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Run returned %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Run did not stop")
	}
}
