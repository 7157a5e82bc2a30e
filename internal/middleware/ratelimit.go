package middleware

import (
	"net"
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const (
	bucketIdleTTL  = 10 * time.Minute
	sweepInterval  = 5 * time.Minute
	retryAfterSecs = "60"
)

// bucket is one caller's token bucket plus when it was last used.
type bucket struct {
	lim      *rate.Limiter
	lastSeen time.Time
}

// RateLimiter keeps one bucket per caller key. Idle buckets are swept
// inline on Allow rather than by a background goroutine.
type RateLimiter struct {
	mu        sync.Mutex
	buckets   map[string]*bucket
	capacity  int
	perSecond rate.Limit
	lastSweep time.Time
	now       func() time.Time
}

// NewRateLimiter allows capacity requests in a burst and refills
// refillPerMinute tokens every minute.
func NewRateLimiter(capacity, refillPerMinute int) *RateLimiter {
	if capacity <= 0 {
		capacity = 1
	}
	return &RateLimiter{
		buckets:   make(map[string]*bucket),
		capacity:  capacity,
		perSecond: rate.Limit(float64(refillPerMinute) / 60),
		lastSweep: time.Now(),
		now:       time.Now,
	}
}

// Allow takes one token from key's bucket.
func (rl *RateLimiter) Allow(key string) bool {
	now := rl.now()

	rl.mu.Lock()
	if now.Sub(rl.lastSweep) > sweepInterval {
		for k, b := range rl.buckets {
			if now.Sub(b.lastSeen) > bucketIdleTTL {
				delete(rl.buckets, k)
			}
		}
		rl.lastSweep = now
	}
	b, ok := rl.buckets[key]
	if !ok {
		b = &bucket{lim: rate.NewLimiter(rl.perSecond, rl.capacity)}
		rl.buckets[key] = b
	}
	b.lastSeen = now
	rl.mu.Unlock()

	return b.lim.AllowN(now, 1)
}

// Middleware rejects callers over their budget with 429. Buckets are keyed
// by client IP only since X-User-ID is caller-asserted. Health and metrics
// paths are never limited.
func (rl *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/health", "/livez", "/readyz", "/metrics":
			next.ServeHTTP(w, r)
			return
		}

		if !rl.Allow(clientIP(r)) {
			w.Header().Set("Retry-After", retryAfterSecs)
			WriteError(w, http.StatusTooManyRequests, "rate limit exceeded", "please try again later")
			return
		}

		next.ServeHTTP(w, r)
	})
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
