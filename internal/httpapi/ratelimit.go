package httpapi

import (
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// Per-client token bucket. Requests are keyed by remote IP, which chi's
// RealIP middleware has already resolved from proxy headers.
//
//	RateLimitInfo{WindowSeconds: 60, MaxRequests: 600, Burst: 120}
//	=> refill 10 tokens/second, bursts of 120

const (
	bucketIdleTTL  = time.Hour
	sweepEvery     = 10 * time.Minute
	minRetryAfterS = 1
)

// TokenBucket implements a token bucket rate limiter
type TokenBucket struct {
	mu         sync.Mutex
	tokens     float64
	capacity   float64
	refillRate float64 // tokens per second
	lastRefill time.Time
}

// NewTokenBucket creates a full bucket.
func NewTokenBucket(capacity int, refillRate float64, now time.Time) *TokenBucket {
	return &TokenBucket{
		tokens:     float64(capacity),
		capacity:   float64(capacity),
		refillRate: refillRate,
		lastRefill: now,
	}
}

// Take refills for the elapsed time and consumes one token if available.
// retryAt is when the next token becomes available; resetAt is when the
// bucket will be full again.
func (tb *TokenBucket) Take(now time.Time) (ok bool, remaining int, retryAt, resetAt time.Time) {
	tb.mu.Lock()
	defer tb.mu.Unlock()

	tb.tokens += now.Sub(tb.lastRefill).Seconds() * tb.refillRate
	if tb.tokens > tb.capacity {
		tb.tokens = tb.capacity
	}
	tb.lastRefill = now

	if tb.tokens >= 1 {
		tb.tokens--
		ok = true
		retryAt = now
	} else {
		retryAt = now.Add(secondsToDuration((1 - tb.tokens) / tb.refillRate))
	}
	resetAt = now.Add(secondsToDuration((tb.capacity - tb.tokens) / tb.refillRate))
	return ok, int(tb.tokens), retryAt, resetAt
}

func (tb *TokenBucket) idleSince(now time.Time) time.Duration {
	tb.mu.Lock()
	defer tb.mu.Unlock()
	return now.Sub(tb.lastRefill)
}

func secondsToDuration(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}

// RateLimiter manages per-client token buckets
type RateLimiter struct {
	config RateLimitInfo
	now    func() time.Time

	mu        sync.Mutex
	buckets   map[string]*TokenBucket
	lastSweep time.Time
}

// NewRateLimiter creates a new rate limiter with the given configuration
func NewRateLimiter(config RateLimitInfo) *RateLimiter {
	return &RateLimiter{
		config:    config,
		now:       time.Now,
		buckets:   make(map[string]*TokenBucket),
		lastSweep: time.Now(),
	}
}

func (rl *RateLimiter) bucket(key string, now time.Time) *TokenBucket {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	// Idle buckets are dropped lazily instead of from a background goroutine.
	if now.Sub(rl.lastSweep) >= sweepEvery {
		for k, b := range rl.buckets {
			if b.idleSince(now) > bucketIdleTTL {
				delete(rl.buckets, k)
			}
		}
		rl.lastSweep = now
	}

	b, ok := rl.buckets[key]
	if !ok {
		rate := float64(rl.config.MaxRequests) / float64(rl.config.WindowSeconds)
		b = NewTokenBucket(rl.config.Burst, rate, now)
		rl.buckets[key] = b
	}
	return b
}

// Allow checks whether the client identified by key may make a request.
func (rl *RateLimiter) Allow(key string) (bool, int, time.Time, time.Time) {
	now := rl.now()
	return rl.bucket(key, now).Take(now)
}

// Len reports how many clients are tracked.
func (rl *RateLimiter) Len() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return len(rl.buckets)
}

func clientKey(r *http.Request) string {
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}

// RateLimitMiddleware enforces the limit per client address. Every
// instance owns its limiter so route groups can use different limits.
func RateLimitMiddleware(config RateLimitInfo) func(http.Handler) http.Handler {
	limiter := NewRateLimiter(config)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := clientKey(r)
			allowed, remaining, retryAt, resetAt := limiter.Allow(key)

			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(config.MaxRequests))
			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(remaining))
			w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(resetAt.Unix(), 10))
			w.Header().Set("X-RateLimit-Burst", strconv.Itoa(config.Burst))

			if !allowed {
				retryAfter := int(time.Until(retryAt).Seconds())
				if retryAfter < minRetryAfterS {
					retryAfter = minRetryAfterS
				}
				w.Header().Set("Retry-After", strconv.Itoa(retryAfter))

				log.Ctx(r.Context()).Warn().
					Str("client", key).
					Str("path", r.URL.Path).
					Int("retryAfter", retryAfter).
					Msg("Rate limit exceeded")

				writeError(w, r, http.StatusTooManyRequests,
					"Rate limit exceeded. Please retry after "+strconv.Itoa(retryAfter)+" seconds.")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
