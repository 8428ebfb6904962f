// Package middleware contains shared Gin middleware used by the HTTP layer.
//
// This file implements Idempotency-Key handling for the endpoints that create
// chat turns. The middleware only deals with transport: it validates the
// header, resolves the scope of the route, and stashes both for the handler.
// The user a key belongs to travels in the JSON body, so the user-scoped
// replay itself is performed by the handler after binding.
//
// A live key seen by the optional lookup marks the request as a likely replay,
// which lets the rate limiter skip it.
package middleware

import (
	"context"
	"net/http"
	"regexp"
	"time"

	"github.com/gin-gonic/gin"
)

// HeaderIdempotencyKey is the request header carrying the client key.
const HeaderIdempotencyKey = "Idempotency-Key"

// HeaderIdempotencyReplayed is set to "true" on responses served from a
// stored turn.
const HeaderIdempotencyReplayed = "Idempotency-Replayed"

const (
	ctxKeyIdemKey    = "idem.key"
	ctxKeyIdemScope  = "idem.scope"
	ctxKeyIdemReplay = "idem.replay"
	ctxKeyRateBypass = "rate.bypass"
)

var defaultKeyPattern = regexp.MustCompile(`^[A-Za-z0-9._~\-:]+$`)

// GetIdempotencyKey returns the validated key, if any.
func GetIdempotencyKey(c *gin.Context) (string, bool) {
	v, _ := c.Get(ctxKeyIdemKey)
	s := asString(v)
	return s, s != ""
}

// GetIdempotencyScope returns the scope resolved for the matched route.
func GetIdempotencyScope(c *gin.Context) string {
	v, _ := c.Get(ctxKeyIdemScope)
	return asString(v)
}

// IsReplay reports whether the lookup found a live record for the key.
func IsReplay(c *gin.Context) bool {
	return c.GetBool(ctxKeyIdemReplay)
}

// IdempotencyOptions configures IdempotencyValidator.
type IdempotencyOptions struct {
	// MaxLen caps the key length. Values <= 0 default to 200.
	MaxLen int
	// Pattern restricts allowed characters; nil uses ^[A-Za-z0-9._~\-:]+$.
	Pattern *regexp.Regexp
	// Scopes maps a route pattern (gin FullPath) to its idempotency scope.
	// Requests to routes absent from the map ignore the header entirely.
	// A nil map applies the validator to every route with an empty scope.
	Scopes map[string]string
}

// IdempotencyLookup reports whether a still-live record exists for key in
// scope. Errors are treated as "not found".
type IdempotencyLookup func(ctx context.Context, scope, key string, now time.Time) (bool, error)

// IdempotencyValidator validates and stashes the Idempotency-Key header.
//
//   - No header, or a route without a scope: no-op.
//   - Invalid key: 400 with code "bad_idempotency_key".
//   - Live key according to lookup: marks replay and rate bypass.
func IdempotencyValidator(opts IdempotencyOptions, lookup IdempotencyLookup) gin.HandlerFunc {
	maxLen := opts.MaxLen
	if maxLen <= 0 {
		maxLen = 200
	}
	pat := opts.Pattern
	if pat == nil {
		pat = defaultKeyPattern
	}

	return func(c *gin.Context) {
		key := c.GetHeader(HeaderIdempotencyKey)
		if key == "" {
			c.Next()
			return
		}
		scope := ""
		if opts.Scopes != nil {
			s, ok := opts.Scopes[c.FullPath()]
			if !ok {
				c.Next()
				return
			}
			scope = s
		}
		if len(key) > maxLen || !pat.MatchString(key) {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
				"request_id": GetRequestID(c),
				"code":       "bad_idempotency_key",
				"message":    "invalid Idempotency-Key",
			})
			return
		}

		c.Set(ctxKeyIdemKey, key)
		c.Set(ctxKeyIdemScope, scope)

		if lookup != nil {
			live, err := lookup(c.Request.Context(), scope, key, time.Now().UTC())
			if err != nil {
				LoggerFrom(c).Warn().Err(err).Str("scope", scope).Msg("idempotency lookup failed")
			} else if live {
				c.Set(ctxKeyIdemReplay, true)
				c.Set(ctxKeyRateBypass, true)
			}
		}
		c.Next()
	}
}
