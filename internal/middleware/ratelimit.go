// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package middleware

import (
	"log/slog"
	"math"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"golang.org/x/time/rate"
)

// KeyFunc names the bucket a request is counted against.
type KeyFunc func(r *http.Request) string

// ByClientIP counts every request of a client together.
func ByClientIP(r *http.Request) string {
	return clientIP(r)
}

// ByClientIPAndParam counts a client's requests per value of a chi URL
// parameter, so a client filling the budget of one event can still
// register for another.
func ByClientIPAndParam(name string) KeyFunc {
	return func(r *http.Request) string {
		return clientIP(r) + " " + strings.ToLower(chi.URLParam(r, name))
	}
}

type bucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter gives each key a token bucket that holds burst requests and
// refills completely over one window.
type RateLimiter struct {
	mu      sync.Mutex
	buckets map[string]*bucket
	every   rate.Limit
	burst   int
	window  time.Duration
	key     KeyFunc
	now     func() time.Time

	stopOnce sync.Once
	stopCh   chan struct{}
}

// NewRateLimiter creates a limiter allowing burst requests per window for
// each key. A background goroutine drops idle buckets until Stop.
func NewRateLimiter(burst int, window time.Duration, key KeyFunc) *RateLimiter {
	if burst < 1 {
		burst = 1
	}
	rl := &RateLimiter{
		buckets: make(map[string]*bucket),
		every:   rate.Every(window / time.Duration(burst)),
		burst:   burst,
		window:  window,
		key:     key,
		now:     time.Now,
		stopCh:  make(chan struct{}),
	}
	go rl.sweepLoop(max(window, time.Minute))
	return rl
}

// Stop ends the sweeper. It is safe to call more than once.
func (rl *RateLimiter) Stop() {
	rl.stopOnce.Do(func() { close(rl.stopCh) })
}

func (rl *RateLimiter) sweepLoop(every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			rl.sweep()
		case <-rl.stopCh:
			return
		}
	}
}

// sweep drops buckets untouched for a whole window. They have refilled,
// so forgetting them changes nothing.
func (rl *RateLimiter) sweep() {
	cutoff := rl.now().Add(-rl.window)
	rl.mu.Lock()
	defer rl.mu.Unlock()
	for k, b := range rl.buckets {
		if !b.lastSeen.After(cutoff) {
			delete(rl.buckets, k)
		}
	}
}

// take spends one token of key. When none is left it reports how long
// until the next one.
func (rl *RateLimiter) take(key string) (bool, time.Duration) {
	now := rl.now()

	rl.mu.Lock()
	b, ok := rl.buckets[key]
	if !ok {
		b = &bucket{limiter: rate.NewLimiter(rl.every, rl.burst)}
		rl.buckets[key] = b
	}
	b.lastSeen = now
	rl.mu.Unlock()

	res := b.limiter.ReserveN(now, 1)
	if !res.OK() {
		return false, rl.window
	}
	if wait := res.DelayFrom(now); wait > 0 {
		res.CancelAt(now)
		return false, wait
	}
	return true, 0
}

// Middleware rejects requests over the budget with 429 and Retry-After.
func (rl *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := rl.key(r)
		if ok, wait := rl.take(key); !ok {
			secs := max(int(math.Ceil(wait.Round(time.Millisecond).Seconds())), 1)
			slog.Warn("rate limit exceeded", "key", key, "path", r.URL.Path, "retry_after", secs)
			w.Header().Set("Retry-After", strconv.Itoa(secs))
			writeError(w, r, http.StatusTooManyRequests, "too many requests, retry in "+strconv.Itoa(secs)+"s")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// clientIP is the leftmost X-Forwarded-For address, then X-Real-IP, then
// the connection's remote host.
func clientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		return strings.TrimSpace(first)
	}
	if xri := strings.TrimSpace(r.Header.Get("X-Real-IP")); xri != "" {
		return xri
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
