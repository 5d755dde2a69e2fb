/*
Package limiter provides request rate limiting keyed by client address.

This file implements a fixed-window counter keyed by {operation scope, caller
address}. It is an admission-control gate placed in front of business logic:
exceeding the window rejects the request without mutating any state, and the
rejection reports the time remaining until the window resets.
*/
package limiter

import (
	"fmt"
	"net/http"
	"sync"
	"time"

	"parley/internal/pkg/errs"
	"parley/internal/pkg/logx"
	"parley/internal/pkg/resp"
)

// windowEntry tracks the request count inside the current window for one key.
type windowEntry struct {
	count       int
	windowStart time.Time
}

// FixedWindow is a fixed-window rate limiter. Counters are kept per
// {scope, address} key and reset when their window elapses.
type FixedWindow struct {
	mu      sync.Mutex
	entries map[string]*windowEntry

	max    int
	window time.Duration

	// now is the clock source, replaceable in tests.
	now func() time.Time
}

// NewFixedWindow creates a FixedWindow allowing max requests per window for
// each key, and starts a background janitor that drops expired counters.
func NewFixedWindow(max int, window time.Duration) *FixedWindow {
	fw := &FixedWindow{
		entries: make(map[string]*windowEntry),
		max:     max,
		window:  window,
		now:     time.Now,
	}

	go fw.cleanUpExpired()

	return fw
}

// Allow records one request for the given scope and address. It returns
// true if the request is admitted. When the request is rejected, retryAfter
// reports how long until the window resets.
func (fw *FixedWindow) Allow(scope, addr string) (allowed bool, retryAfter time.Duration) {
	key := scope + "|" + addr
	now := fw.now()

	fw.mu.Lock()
	defer fw.mu.Unlock()

	entry, ok := fw.entries[key]
	if !ok || now.Sub(entry.windowStart) >= fw.window {
		fw.entries[key] = &windowEntry{count: 1, windowStart: now}
		return true, 0
	}

	if entry.count >= fw.max {
		return false, entry.windowStart.Add(fw.window).Sub(now)
	}

	entry.count++
	return true, 0
}

// cleanUpExpired periodically removes counters whose window has long elapsed.
func (fw *FixedWindow) cleanUpExpired() {
	ticker := time.NewTicker(3 * time.Minute)
	defer ticker.Stop()

	for range ticker.C {
		fw.mu.Lock()
		now := fw.now()
		removed := 0
		for key, entry := range fw.entries {
			if now.Sub(entry.windowStart) >= fw.window {
				delete(fw.entries, key)
				removed++
			}
		}
		remaining := len(fw.entries)
		fw.mu.Unlock()

		logx.Info("Fixed-window limiter cleanup finished.", "removed", removed, "remaining", remaining)
	}
}

// Middleware returns an HTTP middleware enforcing the window for the given
// scope, keyed by the request's remote address. Rejected requests receive a
// 429 response with a Retry-After hint.
func (fw *FixedWindow) Middleware(scope string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		addr := ClientAddr(r)

		allowed, retryAfter := fw.Allow(scope, addr)
		if !allowed {
			logx.Warn("Request rejected by rate limit.", "scope", scope, "retry_after", retryAfter.String())
			resp.RespondError(w, r, errs.NewRateLimitError(retryAfterSeconds(retryAfter)))
			return
		}

		next.ServeHTTP(w, r)
	})
}

// retryAfterSeconds rounds a retry-after duration up to whole seconds,
// never reporting less than one second for an active rejection.
func retryAfterSeconds(d time.Duration) int {
	secs := int((d + time.Second - 1) / time.Second)
	if secs < 1 {
		secs = 1
	}
	return secs
}

// RetryAfterSeconds is the exported form used by callers that build their
// own rejection payloads (e.g., WebSocket acks).
func RetryAfterSeconds(d time.Duration) int {
	return retryAfterSeconds(d)
}

// String describes the limiter policy, used in startup logging.
func (fw *FixedWindow) String() string {
	return fmt.Sprintf("fixed-window %d req / %s", fw.max, fw.window)
}
