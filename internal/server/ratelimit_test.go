package server

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRateLimiter_Allow(t *testing.T) {
	rl := newRateLimiter(5, time.Second, remoteHost)
	defer rl.Close()

	for i := 0; i < 5; i++ {
		assert.True(t, rl.allow("192.168.1.1"), "request %d should be allowed", i+1)
	}
	assert.False(t, rl.allow("192.168.1.1"), "6th request should be denied")
	assert.True(t, rl.allow("192.168.1.2"), "a different IP has its own window")
}

func TestRateLimiter_Window(t *testing.T) {
	rl := newRateLimiter(2, 100*time.Millisecond, remoteHost)
	defer rl.Close()

	assert.True(t, rl.allow("192.168.1.1"))
	assert.True(t, rl.allow("192.168.1.1"))
	assert.False(t, rl.allow("192.168.1.1"))

	time.Sleep(110 * time.Millisecond)

	assert.True(t, rl.allow("192.168.1.1"), "request after window should be allowed")
}

func TestRateLimiter_Middleware(t *testing.T) {
	rl := newRateLimiter(3, time.Minute, remoteHost)
	defer rl.Close()

	handler := rl.middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	send := func() int {
		req := httptest.NewRequest(http.MethodPost, "/", nil)
		req.RemoteAddr = "192.168.1.1:12345"
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)
		return w.Code
	}

	for i := 0; i < 3; i++ {
		assert.Equal(t, http.StatusOK, send(), "request %d", i+1)
	}
	assert.Equal(t, http.StatusTooManyRequests, send())
}

func TestRateLimiter_Evict(t *testing.T) {
	rl := newRateLimiter(1, time.Minute, remoteHost)
	defer rl.Close()

	rl.allow("10.0.0.1")
	rl.evict(time.Now().Add(time.Second))

	rl.mu.Lock()
	_, present := rl.visitors["10.0.0.1"]
	rl.mu.Unlock()
	assert.False(t, present)
}

func TestRateLimiter_LargeRateDoesNotPreallocate(t *testing.T) {
	rl := newRateLimiter(1<<40, time.Minute, remoteHost)
	defer rl.Close()

	assert.True(t, rl.allow("10.0.0.1"))
	assert.True(t, rl.allow("10.0.0.1"))

	rl.mu.Lock()
	v := rl.visitors["10.0.0.1"]
	rl.mu.Unlock()
	assert.Less(t, cap(v.requests), 1024)
}

func TestRateLimiter_CloseTwice(t *testing.T) {
	rl := newRateLimiter(1, time.Minute, remoteHost)
	rl.Close()
	assert.NotPanics(t, rl.Close)
}

func TestGetClientIP(t *testing.T) {
	tests := []struct {
		name       string
		remoteAddr string
		xff        string
		xri        string
		expected   string
	}{
		{
			name:       "RemoteAddr only",
			remoteAddr: "192.168.1.1:12345",
			expected:   "192.168.1.1",
		},
		{
			name:       "IPv6 RemoteAddr",
			remoteAddr: "[2001:db8::1]:443",
			expected:   "2001:db8::1",
		},
		{
			name:       "X-Forwarded-For single IP",
			remoteAddr: "127.0.0.1:12345",
			xff:        "203.0.113.1",
			expected:   "203.0.113.1",
		},
		{
			name:       "X-Forwarded-For multiple IPs",
			remoteAddr: "127.0.0.1:12345",
			xff:        "203.0.113.1, 198.51.100.1, 192.0.2.1",
			expected:   "203.0.113.1",
		},
		{
			name:       "X-Real-IP",
			remoteAddr: "127.0.0.1:12345",
			xri:        "203.0.113.5",
			expected:   "203.0.113.5",
		},
		{
			name:       "X-Forwarded-For takes precedence",
			remoteAddr: "127.0.0.1:12345",
			xff:        "203.0.113.1",
			xri:        "203.0.113.5",
			expected:   "203.0.113.1",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tt.remoteAddr
			if tt.xff != "" {
				req.Header.Set("X-Forwarded-For", tt.xff)
			}
			if tt.xri != "" {
				req.Header.Set("X-Real-IP", tt.xri)
			}

			assert.Equal(t, tt.expected, getClientIP(req))
		})
	}
}
