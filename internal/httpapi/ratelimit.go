package httpapi

import (
	"bytes"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/Guesen/sistem-antrian-puskesmas/internal/models"
)

type RateLimitConfig struct {
	IPPerMinute      int
	IPBurst          int
	CounterPerMinute int
	CounterBurst     int
}

// RateLimiter applies token buckets per client IP and, for ticket issuance,
// per loket so a stuck kiosk button cannot drain one counter's numbers.
type RateLimiter struct {
	ipLimiter      *tokenLimiter
	counterLimiter *tokenLimiter
	now            func() time.Time
}

func NewRateLimiter(cfg RateLimitConfig) *RateLimiter {
	return &RateLimiter{
		ipLimiter:      newTokenLimiter(cfg.IPPerMinute, cfg.IPBurst),
		counterLimiter: newTokenLimiter(cfg.CounterPerMinute, cfg.CounterBurst),
		now:            time.Now,
	}
}

func (l *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Display screens poll the push channel continuously.
		if strings.HasPrefix(r.URL.Path, "/display/") {
			next.ServeHTTP(w, r)
			return
		}
		requestID := requestIDFrom(r)
		ip := clientIP(r)
		if ip != "" && !l.ipLimiter.allow(ip, l.now()) {
			writeError(w, requestID, http.StatusTooManyRequests, "rate_limited", "too many requests")
			return
		}

		if counterID := extractCounter(r); counterID != "" && !l.counterLimiter.allow(counterID, l.now()) {
			writeError(w, requestID, http.StatusTooManyRequests, "rate_limited", "too many tickets for this loket")
			return
		}

		next.ServeHTTP(w, r)
	})
}

type tokenLimiter struct {
	mu     sync.Mutex
	rate   float64
	burst  float64
	bucket map[string]*bucket
}

type bucket struct {
	tokens float64
	last   time.Time
}

func newTokenLimiter(perMinute, burst int) *tokenLimiter {
	if perMinute <= 0 {
		perMinute = 60
	}
	if burst <= 0 {
		burst = 20
	}
	return &tokenLimiter{
		rate:   float64(perMinute) / 60.0,
		burst:  float64(burst),
		bucket: make(map[string]*bucket),
	}
}

func (l *tokenLimiter) allow(key string, now time.Time) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	b, ok := l.bucket[key]
	if !ok {
		l.bucket[key] = &bucket{tokens: l.burst - 1, last: now}
		return true
	}
	elapsed := now.Sub(b.last).Seconds()
	b.tokens = minFloat(l.burst, b.tokens+elapsed*l.rate)
	b.last = now
	if b.tokens < 1 {
		return false
	}
	b.tokens -= 1
	return true
}

func minFloat(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}

func clientIP(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		parts := strings.Split(forwarded, ",")
		return strings.TrimSpace(parts[0])
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// extractCounter reads loket_type from ticket issuance bodies. Other requests
// are only limited per IP.
func extractCounter(r *http.Request) string {
	if r.Method != http.MethodPost || r.Body == nil {
		return ""
	}
	path := strings.TrimPrefix(r.URL.Path, "/api")
	if path != "/queues" {
		return ""
	}
	contentType := r.Header.Get("Content-Type")
	if contentType != "" && !strings.Contains(contentType, "application/json") {
		return ""
	}

	body, err := readBody(r)
	if err != nil {
		return ""
	}
	var payload map[string]interface{}
	if err := json.Unmarshal(body, &payload); err != nil {
		return ""
	}
	value, _ := payload["loket_type"].(string)
	if !models.ValidCounter(value) {
		return ""
	}
	return value
}

func readBody(r *http.Request) ([]byte, error) {
	body, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
	if err != nil {
		return nil, err
	}
	_ = r.Body.Close()
	r.Body = io.NopCloser(bytes.NewReader(body))
	return body, nil
}
