package httpapi

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestRateLimiterPerIP(t *testing.T) {
	limiter := NewRateLimiter(RateLimitConfig{IPPerMinute: 60, IPBurst: 2, CounterPerMinute: 600, CounterBurst: 100})
	now := time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)
	limiter.now = func() time.Time { return now }
	handler := limiter.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodGet, "/queues/current", nil)
		req.RemoteAddr = "10.0.0.5:1234"
		resp := httptest.NewRecorder()
		handler.ServeHTTP(resp, req)
		codes = append(codes, resp.Code)
	}
	if codes[0] != http.StatusOK || codes[1] != http.StatusOK || codes[2] != http.StatusTooManyRequests {
		t.Fatalf("unexpected status codes %v", codes)
	}

	now = now.Add(time.Second)
	req := httptest.NewRequest(http.MethodGet, "/queues/current", nil)
	req.RemoteAddr = "10.0.0.5:1234"
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected refill after one second, got %d", resp.Code)
	}
}

func TestRateLimiterPerCounterKeepsBody(t *testing.T) {
	limiter := NewRateLimiter(RateLimitConfig{IPPerMinute: 600, IPBurst: 100, CounterPerMinute: 60, CounterBurst: 1})
	now := time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)
	limiter.now = func() time.Time { return now }

	var bodies []string
	handler := limiter.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		bodies = append(bodies, string(body))
		w.WriteHeader(http.StatusOK)
	}))

	send := func(body string) int {
		req := httptest.NewRequest(http.MethodPost, "/api/queues", strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		resp := httptest.NewRecorder()
		handler.ServeHTTP(resp, req)
		return resp.Code
	}

	if code := send(`{"loket_type":"A","patient_type":"Umum"}`); code != http.StatusOK {
		t.Fatalf("expected first A to pass, got %d", code)
	}
	if code := send(`{"loket_type":"A","patient_type":"Umum"}`); code != http.StatusTooManyRequests {
		t.Fatalf("expected second A to be limited, got %d", code)
	}
	if code := send(`{"loket_type":"B","patient_type":"Lansia"}`); code != http.StatusOK {
		t.Fatalf("expected B to have its own bucket, got %d", code)
	}
	if code := send(`{"loket_type":"Z","patient_type":"x"}`); code != http.StatusOK {
		t.Fatalf("unknown lokets are left to validation, got %d", code)
	}
	if code := send(`{"loket_type":" A ","patient_type":"Umum"}`); code != http.StatusOK {
		t.Fatalf("padded loket must not draw from bucket A, got %d", code)
	}

	if len(bodies) != 4 || bodies[0] != `{"loket_type":"A","patient_type":"Umum"}` {
		t.Fatalf("request body must reach the handler intact, got %v", bodies)
	}
}

func TestClientIPPrefersForwardedFor(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Forwarded-For", "192.168.1.20, 10.0.0.1")
	if got := clientIP(req); got != "192.168.1.20" {
		t.Fatalf("expected forwarded ip, got %s", got)
	}
}

func TestRateLimiterSkipsDisplayChannel(t *testing.T) {
	limiter := NewRateLimiter(RateLimitConfig{IPPerMinute: 1, IPBurst: 1})
	handler := limiter.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	for i := 0; i < 5; i++ {
		req := httptest.NewRequest(http.MethodPost, "/display/123/abc/xhr", nil)
		req.RemoteAddr = "10.0.0.9:5555"
		resp := httptest.NewRecorder()
		handler.ServeHTTP(resp, req)
		if resp.Code != http.StatusOK {
			t.Fatalf("display request %d limited with %d", i, resp.Code)
		}
	}
}
