package limiter

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestWindow builds a limiter with a controllable clock and no janitor.
func newTestWindow(max int, window time.Duration) (*FixedWindow, *time.Time) {
	current := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	fw := &FixedWindow{
		entries: make(map[string]*windowEntry),
		max:     max,
		window:  window,
		now:     func() time.Time { return current },
	}
	return fw, &current
}

func TestFixedWindowAllowsUpToMax(t *testing.T) {
	fw, _ := newTestWindow(10, time.Minute)

	for i := 0; i < 10; i++ {
		allowed, _ := fw.Allow("auth:login", "198.51.100.7")
		require.True(t, allowed, "request %d within the window must pass", i+1)
	}

	allowed, retryAfter := fw.Allow("auth:login", "198.51.100.7")
	assert.False(t, allowed, "request max+1 must be rejected")
	assert.Greater(t, retryAfter, time.Duration(0))
	assert.LessOrEqual(t, retryAfter, time.Minute)
}

func TestFixedWindowResetsAfterWindow(t *testing.T) {
	fw, clock := newTestWindow(3, time.Minute)

	for i := 0; i < 3; i++ {
		allowed, _ := fw.Allow("ws:send", "198.51.100.7")
		require.True(t, allowed)
	}
	allowed, _ := fw.Allow("ws:send", "198.51.100.7")
	require.False(t, allowed)

	*clock = clock.Add(time.Minute)

	// A fresh window starts with a count of one, so the full budget is
	// available again.
	for i := 0; i < 3; i++ {
		allowed, _ := fw.Allow("ws:send", "198.51.100.7")
		require.True(t, allowed, "request %d after reset must pass", i+1)
	}
	allowed, _ = fw.Allow("ws:send", "198.51.100.7")
	assert.False(t, allowed)
}

func TestFixedWindowRetryAfterShrinks(t *testing.T) {
	fw, clock := newTestWindow(1, time.Minute)

	allowed, _ := fw.Allow("auth:register", "198.51.100.7")
	require.True(t, allowed)

	_, retryAfter := fw.Allow("auth:register", "198.51.100.7")
	assert.Equal(t, time.Minute, retryAfter)

	*clock = clock.Add(45 * time.Second)
	_, retryAfter = fw.Allow("auth:register", "198.51.100.7")
	assert.Equal(t, 15*time.Second, retryAfter)
}

func TestFixedWindowKeysAreIndependent(t *testing.T) {
	fw, _ := newTestWindow(1, time.Minute)

	allowed, _ := fw.Allow("auth:login", "198.51.100.7")
	require.True(t, allowed)
	allowed, _ = fw.Allow("auth:login", "198.51.100.7")
	require.False(t, allowed)

	// A different address and a different scope each carry their own counter.
	allowed, _ = fw.Allow("auth:login", "203.0.113.9")
	assert.True(t, allowed)
	allowed, _ = fw.Allow("auth:register", "198.51.100.7")
	assert.True(t, allowed)
}

func TestRetryAfterSeconds(t *testing.T) {
	assert.Equal(t, 1, RetryAfterSeconds(0))
	assert.Equal(t, 1, RetryAfterSeconds(200*time.Millisecond))
	assert.Equal(t, 1, RetryAfterSeconds(time.Second))
	assert.Equal(t, 2, RetryAfterSeconds(time.Second+time.Millisecond))
	assert.Equal(t, 60, RetryAfterSeconds(time.Minute))
}

func TestMiddlewareRejectsWithRetryAfterHeader(t *testing.T) {
	fw, _ := newTestWindow(1, time.Minute)

	handler := fw.Middleware("auth:login", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	request := httptest.NewRequest(http.MethodPost, "/api/auth/login", nil)
	request.RemoteAddr = "198.51.100.7:9999"

	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, request)
	assert.Equal(t, http.StatusOK, recorder.Code)

	recorder = httptest.NewRecorder()
	handler.ServeHTTP(recorder, request)
	assert.Equal(t, http.StatusTooManyRequests, recorder.Code)
	assert.NotEmpty(t, recorder.Header().Get("Retry-After"))
}
