// Package middleware contains shared Gin middleware used by the HTTP layer.
//
// This file implements an in-memory token-bucket rate limiter with per-key
// buckets and opportunistic eviction of idle ones. Buckets are keyed by
// client IP: identities live in request bodies here, and the limiter must
// run before binding. It protects provider and speech spend; it is not an
// authorization mechanism.
//
// The limiter is process-local. Replicas each enforce their own budget.
package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

const (
	visitorTTL       = 10 * time.Minute
	cleanupThreshold = 5000
)

// KeyFunc selects the bucket for a request.
type KeyFunc func(*gin.Context) string

// KeyByClientIP keys buckets by gin's client IP (honouring trusted proxies).
func KeyByClientIP() KeyFunc {
	return func(c *gin.Context) string {
		return "ip:" + c.ClientIP()
	}
}

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter is a per-key token-bucket limiter. Safe for concurrent use.
type RateLimiter struct {
	rps   rate.Limit
	burst int
	keyFn KeyFunc
	now   func() time.Time

	mu       sync.Mutex
	visitors map[string]*visitor
	ttl      time.Duration
	lookups  uint64
}

// NewRateLimiter builds a limiter refilling rps tokens per second with the
// given burst (coerced to at least 1). A nil keyFn keys by client IP.
func NewRateLimiter(rps float64, burst int, keyFn KeyFunc) *RateLimiter {
	if burst <= 0 {
		burst = 1
	}
	if keyFn == nil {
		keyFn = KeyByClientIP()
	}
	return &RateLimiter{
		rps:      rate.Limit(rps),
		burst:    burst,
		keyFn:    keyFn,
		now:      time.Now,
		visitors: make(map[string]*visitor),
		ttl:      visitorTTL,
	}
}

// limiterFor returns the bucket for key. Every cleanupThreshold lookups idle
// buckets are evicted first, so a stale bucket is never refreshed by the
// lookup that should have dropped it.
func (rl *RateLimiter) limiterFor(key string) *rate.Limiter {
	now := rl.now()

	rl.mu.Lock()
	defer rl.mu.Unlock()

	rl.lookups++
	if rl.lookups >= cleanupThreshold {
		for k, v := range rl.visitors {
			if now.Sub(v.lastSeen) >= rl.ttl {
				delete(rl.visitors, k)
			}
		}
		rl.lookups = 0
	}

	if v, ok := rl.visitors[key]; ok {
		v.lastSeen = now
		return v.limiter
	}
	lim := rate.NewLimiter(rl.rps, rl.burst)
	rl.visitors[key] = &visitor{limiter: lim, lastSeen: now}
	return lim
}

// IsRateBypass reports whether IdempotencyValidator flagged the request as a
// replay of a live key.
func IsRateBypass(c *gin.Context) bool {
	return c.GetBool(ctxKeyRateBypass)
}

// Handler enforces the limit. Exhausted buckets get:
//
//	HTTP/1.1 429 Too Many Requests
//	Retry-After: 1
//	{"request_id": "...", "code": "rate_limited", "message": "rate limit exceeded"}
//
// A bypassed request that the handler did not answer as a replay (the live
// key belonged to another user) is charged afterwards, leaving the bucket in
// debt for the caller's next requests.
func (rl *RateLimiter) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if IsRateBypass(c) {
			c.Next()
			if c.Writer.Header().Get(HeaderIdempotencyReplayed) != "true" {
				rl.limiterFor(rl.keyFn(c)).Reserve()
			}
			return
		}
		if rl.limiterFor(rl.keyFn(c)).Allow() {
			c.Next()
			return
		}
		c.Header("Retry-After", "1")
		c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
			"request_id": GetRequestID(c),
			"code":       "rate_limited",
			"message":    "rate limit exceeded",
		})
	}
}
