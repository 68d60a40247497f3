package middleware

import (
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"
)

// RateLimitMiddleware keeps a sliding window of request times per client IP.
type RateLimitMiddleware struct {
	mu       sync.Mutex
	requests map[string][]time.Time
	now      func() time.Time
}

// NewRateLimitMiddleware returns a limiter with no clients recorded.
func NewRateLimitMiddleware() *RateLimitMiddleware {
	return &RateLimitMiddleware{
		requests: make(map[string][]time.Time),
		now:      time.Now,
	}
}

// RateLimit admits at most limit requests per client IP within window and
// answers 429 with Retry-After otherwise.
func (m *RateLimitMiddleware) RateLimit(limit int, window time.Duration) func(http.Handler) http.Handler {
	wait := retryAfter(window)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !m.allow(getClientIP(r), limit, window) {
				w.Header().Set("Retry-After", wait)
				deny(w, http.StatusTooManyRequests, "rate limit exceeded")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func (m *RateLimitMiddleware) allow(client string, limit int, window time.Duration) bool {
	now := m.now()
	cutoff := now.Add(-window)

	m.mu.Lock()
	defer m.mu.Unlock()

	// times are appended in order, so the expired ones form a prefix
	seen := m.requests[client]
	i := 0
	for i < len(seen) && !seen[i].After(cutoff) {
		i++
	}
	seen = seen[i:]

	if len(seen) >= limit {
		m.requests[client] = seen
		return false
	}
	m.requests[client] = append(seen, now)
	return true
}

// Sweep forgets clients with no request inside window and returns how many
// were dropped.
func (m *RateLimitMiddleware) Sweep(window time.Duration) int {
	cutoff := m.now().Add(-window)

	m.mu.Lock()
	defer m.mu.Unlock()

	dropped := 0
	for client, seen := range m.requests {
		if n := len(seen); n == 0 || !seen[n-1].After(cutoff) {
			delete(m.requests, client)
			dropped++
		}
	}
	return dropped
}

func retryAfter(window time.Duration) string {
	return strconv.Itoa(max(1, int(window.Round(time.Second)/time.Second)))
}

// getClientIP prefers the proxy headers the LIFF hosting sets, then the
// socket address.
func getClientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		first, _, _ := strings.Cut(fwd, ",")
		return strings.TrimSpace(first)
	}
	if ip := r.Header.Get("X-Real-IP"); ip != "" {
		return ip
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
