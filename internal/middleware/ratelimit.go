// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package middleware

import (
	"bytes"
	"encoding/json"
	"io"
	"math"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"
)

// maxKeyBody bounds how much of a request body a KeyFunc may buffer.
const maxKeyBody = 64 << 10

// KeyFunc derives the bucket a request is counted against.
type KeyFunc func(r *http.Request) string

// Budget is the allowance for one class of expensive request, such as
// image uploads or story generation.
type Budget struct {
	Name   string        // reported in logs and in the 429 body; must not need JSON escaping
	Limit  int           // requests per Window; zero disables the budget
	Window time.Duration // sliding window
	Key    KeyFunc       // nil counts per client IP
}

// bucket holds the request times inside the current window for one key.
type bucket struct {
	mu    sync.Mutex
	times []time.Time
}

// RateLimiter enforces a Budget with a sliding window per key.
type RateLimiter struct {
	budget  Budget
	mu      sync.RWMutex
	buckets map[string]*bucket
	now     func() time.Time
	stopCh  chan struct{}
	once    sync.Once
}

// NewRateLimiter creates a limiter for b and starts a goroutine that drops
// idle buckets every few windows.
func NewRateLimiter(b Budget) *RateLimiter {
	if b.Key == nil {
		b.Key = ClientIP
	}
	rl := &RateLimiter{
		budget:  b,
		buckets: make(map[string]*bucket),
		now:     time.Now,
		stopCh:  make(chan struct{}),
	}
	if b.Limit > 0 && b.Window > 0 {
		go rl.janitor(max(b.Window*5, time.Minute))
	}
	return rl
}

// Stop terminates the cleanup goroutine. It is safe to call more than once.
func (rl *RateLimiter) Stop() {
	rl.once.Do(func() { close(rl.stopCh) })
}

func (rl *RateLimiter) janitor(every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			rl.cleanup()
		case <-rl.stopCh:
			return
		}
	}
}

// take records a request for key. It reports whether the request fits in
// the budget, how many requests remain, and, when refused, how long until
// the oldest request leaves the window.
func (rl *RateLimiter) take(key string) (ok bool, remaining int, retryAfter time.Duration) {
	rl.mu.RLock()
	b, exists := rl.buckets[key]
	rl.mu.RUnlock()
	if !exists {
		rl.mu.Lock()
		if b, exists = rl.buckets[key]; !exists {
			b = &bucket{}
			rl.buckets[key] = b
		}
		rl.mu.Unlock()
	}

	now := rl.now()
	cutoff := now.Add(-rl.budget.Window)

	b.mu.Lock()
	defer b.mu.Unlock()

	live := b.times[:0]
	for _, ts := range b.times {
		if ts.After(cutoff) {
			live = append(live, ts)
		}
	}
	b.times = live

	if len(b.times) >= rl.budget.Limit {
		return false, 0, b.times[0].Add(rl.budget.Window).Sub(now)
	}
	b.times = append(b.times, now)
	return true, rl.budget.Limit - len(b.times), 0
}

// cleanup drops buckets with nothing left in the window.
func (rl *RateLimiter) cleanup() {
	cutoff := rl.now().Add(-rl.budget.Window)

	rl.mu.Lock()
	defer rl.mu.Unlock()
	for key, b := range rl.buckets {
		b.mu.Lock()
		idle := len(b.times) == 0 || !b.times[len(b.times)-1].After(cutoff)
		b.mu.Unlock()
		if idle {
			delete(rl.buckets, key)
		}
	}
}

// Middleware refuses requests over the budget with 429 and a Retry-After
// header. Every counted response carries X-RateLimit-Limit and
// X-RateLimit-Remaining.
func (rl *RateLimiter) Middleware(next http.Handler) http.Handler {
	if rl.budget.Limit <= 0 || rl.budget.Window <= 0 {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := rl.budget.Key(r)
		ok, remaining, wait := rl.take(key)

		h := w.Header()
		h.Set("X-RateLimit-Limit", strconv.Itoa(rl.budget.Limit))
		h.Set("X-RateLimit-Remaining", strconv.Itoa(remaining))
		if !ok {
			Log(r.Context()).Warn("rate limited",
				"budget", rl.budget.Name, "key", key, "path", r.URL.Path, "retry_after", wait)
			h.Set("Retry-After", strconv.Itoa(int(math.Ceil(wait.Seconds()))))
			writeJSONError(w, "Rate limit exceeded for "+rl.budget.Name, http.StatusTooManyRequests)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// ClientIP keys a request by the client address, honouring
// X-Forwarded-For and X-Real-IP from a fronting proxy.
func ClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		// Leftmost entry is the original client.
		if idx := strings.IndexByte(xff, ','); idx != -1 {
			return strings.TrimSpace(xff[:idx])
		}
		return strings.TrimSpace(xff)
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return strings.TrimSpace(xri)
	}
	addr := r.RemoteAddr
	if idx := strings.LastIndex(addr, ":"); idx != -1 {
		return addr[:idx]
	}
	return addr
}

// ClientAndJSONField keys a request by client IP plus a top-level string
// field of its JSON body, so that one client generating from several
// templates gets a separate allowance for each. The body is restored for
// the next handler. A missing or unreadable field keys by IP alone.
func ClientAndJSONField(field string) KeyFunc {
	return func(r *http.Request) string {
		ip := ClientIP(r)
		if r.Body == nil {
			return ip
		}
		head, err := io.ReadAll(io.LimitReader(r.Body, maxKeyBody))
		r.Body = struct {
			io.Reader
			io.Closer
		}{io.MultiReader(bytes.NewReader(head), r.Body), r.Body}
		if err != nil {
			return ip
		}

		var fields map[string]json.RawMessage
		if json.Unmarshal(head, &fields) != nil {
			return ip
		}
		var v string
		if json.Unmarshal(fields[field], &v) != nil || v == "" {
			return ip
		}
		return ip + "|" + v
	}
}
