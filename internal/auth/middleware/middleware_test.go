package middleware

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/brizzai/mobsq/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newLimiter(t *testing.T, perSecond float64, burst int, trusted ...string) *RateLimiter {
	t.Helper()
	l, err := NewRateLimiter(&config.ServerConfig{
		RateLimit: config.RateLimitConfig{Enabled: true, PerSecond: perSecond, Burst: burst, TrustedProxies: trusted},
	})
	require.NoError(t, err)
	return l
}

func TestDisabledLimiterPassesThrough(t *testing.T) {
	l, err := NewRateLimiter(&config.ServerConfig{})
	require.NoError(t, err)
	assert.Nil(t, l)

	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusTeapot) })
	rec := httptest.NewRecorder()
	l.Middleware(next).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/login", nil))
	assert.Equal(t, http.StatusTeapot, rec.Code)
}

func TestLimiterPerClient(t *testing.T) {
	l := newLimiter(t, 1, 2)
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return now }

	assert.True(t, l.Allow("10.0.0.1"))
	assert.True(t, l.Allow("10.0.0.1"))
	assert.False(t, l.Allow("10.0.0.1"))
	assert.True(t, l.Allow("10.0.0.2"), "buckets are per client")

	now = now.Add(time.Second)
	assert.True(t, l.Allow("10.0.0.1"), "a token refills after one second")
}

func TestLimiterSweepsIdleBuckets(t *testing.T) {
	l := newLimiter(t, 1, 1)
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return now }

	l.Allow("10.0.0.1")
	now = now.Add(bucketTTL + 2*sweepInterval)
	l.Allow("10.0.0.2")

	l.mu.Lock()
	defer l.mu.Unlock()
	assert.NotContains(t, l.buckets, "10.0.0.1")
	assert.Contains(t, l.buckets, "10.0.0.2")
}

func TestMiddlewareRejects(t *testing.T) {
	l := newLimiter(t, 0.001, 1)
	calls := 0
	h := l.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusFound)
	}))

	req := httptest.NewRequest(http.MethodGet, "/login", nil)
	req.RemoteAddr = "192.0.2.7:5555"

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	require.Equal(t, http.StatusFound, rec.Code)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "1", rec.Header().Get("Retry-After"))
	assert.Equal(t, 1, calls)
}

func TestSpoofedForwardedForIsStillLimited(t *testing.T) {
	l := newLimiter(t, 0.001, 1)
	admitted := 0
	h := l.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		admitted++
	}))

	for i := 0; i < 20; i++ {
		req := httptest.NewRequest(http.MethodGet, "/login", nil)
		req.RemoteAddr = "198.51.100.4:40000"
		req.Header.Set("X-Forwarded-For", fmt.Sprintf("203.0.113.%d", i))
		h.ServeHTTP(httptest.NewRecorder(), req)
	}
	assert.Equal(t, 1, admitted)
}

func TestInvalidTrustedProxy(t *testing.T) {
	_, err := NewRateLimiter(&config.ServerConfig{
		RateLimit: config.RateLimitConfig{Enabled: true, PerSecond: 1, Burst: 1, TrustedProxies: []string{"not-an-ip"}},
	})
	assert.ErrorContains(t, err, "invalid trusted proxy")
}

func TestClientIP(t *testing.T) {
	tests := []struct {
		name       string
		trusted    []string
		remoteAddr string
		xff        string
		want       string
	}{
		{name: "remote addr", remoteAddr: "192.0.2.7:5555", want: "192.0.2.7"},
		{name: "forwarded header from untrusted peer is ignored", remoteAddr: "192.0.2.7:1", xff: "203.0.113.9", want: "192.0.2.7"},
		{name: "trusted proxy", trusted: []string{"10.0.0.1"}, remoteAddr: "10.0.0.1:1", xff: "203.0.113.9", want: "203.0.113.9"},
		{name: "trusted proxy chain", trusted: []string{"10.0.0.0/8"}, remoteAddr: "10.0.0.1:1", xff: "198.51.100.1, 203.0.113.9, 10.0.0.2", want: "203.0.113.9"},
		{name: "client prepends a fake hop", trusted: []string{"10.0.0.1"}, remoteAddr: "10.0.0.1:1", xff: "1.2.3.4, 203.0.113.9", want: "203.0.113.9"},
		{name: "trusted proxy without header", trusted: []string{"10.0.0.1"}, remoteAddr: "10.0.0.1:1", want: "10.0.0.1"},
		{name: "garbage hop", trusted: []string{"10.0.0.1"}, remoteAddr: "10.0.0.1:1", xff: "nonsense", want: "10.0.0.1"},
		{name: "no port", remoteAddr: "192.0.2.7", want: "192.0.2.7"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := newLimiter(t, 1, 1, tt.trusted...)
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tt.remoteAddr
			if tt.xff != "" {
				req.Header.Set("X-Forwarded-For", tt.xff)
			}
			assert.Equal(t, tt.want, l.ClientIP(req))
		})
	}
}
