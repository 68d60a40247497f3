package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRateLimit(t *testing.T) {
	m := NewRateLimitMiddleware()
	spy := &spyHandler{}
	h := m.RateLimit(2, time.Minute)(spy)

	send := func(addr string) *httptest.ResponseRecorder {
		req := httptest.NewRequest("POST", "/api/auth/line", nil)
		req.RemoteAddr = addr
		w := httptest.NewRecorder()
		spy.called = false
		h.ServeHTTP(w, req)
		return w
	}

	assert.Equal(t, http.StatusOK, send("192.168.1.1:12345").Code)
	assert.Equal(t, http.StatusOK, send("192.168.1.1:23456").Code)

	w := send("192.168.1.1:34567")
	assert.False(t, spy.called)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "60", w.Header().Get("Retry-After"))
	assert.JSONEq(t, `{"error":"rate limit exceeded"}`, w.Body.String())

	assert.Equal(t, http.StatusOK, send("192.168.1.2:12345").Code, "other clients have their own window")
}

func TestRateLimit_WindowSlides(t *testing.T) {
	m := NewRateLimitMiddleware()
	now := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return now }

	assert.True(t, m.allow("10.0.0.1", 1, time.Minute))
	assert.False(t, m.allow("10.0.0.1", 1, time.Minute))

	now = now.Add(61 * time.Second)
	assert.True(t, m.allow("10.0.0.1", 1, time.Minute))
	assert.True(t, m.allow("10.0.0.2", 1, time.Minute))

	now = now.Add(30 * time.Second)
	assert.Equal(t, 0, m.Sweep(time.Minute))

	now = now.Add(2 * time.Minute)
	assert.Equal(t, 2, m.Sweep(time.Minute))
	assert.Empty(t, m.requests)
}

func TestRetryAfter(t *testing.T) {
	assert.Equal(t, "60", retryAfter(time.Minute))
	assert.Equal(t, "1", retryAfter(100*time.Millisecond))
	assert.Equal(t, "2", retryAfter(1500*time.Millisecond))
}

func TestGetClientIP(t *testing.T) {
	req := httptest.NewRequest("GET", "/", nil)
	req.RemoteAddr = "10.1.2.3:5555"
	assert.Equal(t, "10.1.2.3", getClientIP(req))

	req.RemoteAddr = "[2001:db8::1]:443"
	assert.Equal(t, "2001:db8::1", getClientIP(req))

	req.Header.Set("X-Real-IP", "172.16.0.9")
	assert.Equal(t, "172.16.0.9", getClientIP(req))

	req.Header.Set("X-Forwarded-For", "203.0.113.7, 10.0.0.1")
	assert.Equal(t, "203.0.113.7", getClientIP(req))
}
