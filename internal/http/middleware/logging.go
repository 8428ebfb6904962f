// Package middleware contains shared Gin middleware used by the HTTP layer.
//
// This file provides the request-scoped plumbing every other piece relies
// on: a correlation id per request, a request-scoped zerolog.Logger, a panic
// handler that answers with the JSON error envelope, and a small hook that
// lets handlers tag the request with the user it acted for.
//
// Recommended order: RequestID, RedactingLogger, Recovery.
package middleware

import (
	"net/http"
	"runtime/debug"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const (
	requestIDKey    = "requestID"
	requestIDHeader = "X-Request-ID"
	loggerKey       = "logger"
	userIDKey       = "userID"

	// maxRequestIDLength bounds client-supplied correlation ids.
	maxRequestIDLength = 128
	// maxQueryLogLength caps the number of bytes of the raw query string logged.
	maxQueryLogLength = 2048
)

// RequestID attaches (or propagates) a correlation identifier per request.
// A client X-Request-ID is reused when present and reasonably short;
// otherwise a UUIDv4 is generated. The id is echoed on the response.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		rid := c.GetHeader(requestIDHeader)
		if rid == "" || len(rid) > maxRequestIDLength {
			rid = uuid.NewString()
		}
		c.Set(requestIDKey, rid)
		c.Writer.Header().Set(requestIDHeader, rid)
		c.Next()
	}
}

// GetRequestID returns the correlation id set by RequestID, or "".
func GetRequestID(c *gin.Context) string {
	v, _ := c.Get(requestIDKey)
	return asString(v)
}

// SetUserID records the user a handler acted for. The access log picks it up
// after the handler returns.
func SetUserID(c *gin.Context, id string) {
	if id != "" {
		c.Set(userIDKey, id)
	}
}

// Recovery intercepts panics, logs a stack trace, and answers with a JSON 500:
//
//	{ "request_id": "...", "code": "internal_error", "message": "internal server error" }
//
// Nothing is written when the handler already started the response.
func Recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			rid := GetRequestID(c)
			LoggerFrom(c).Error().
				Interface("panic", rec).
				Bytes("stack", debug.Stack()).
				Str("request_id", rid).
				Msg("panic recovered")

			if c.Writer.Written() {
				c.AbortWithStatus(http.StatusInternalServerError)
				return
			}
			c.Header(requestIDHeader, rid)
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
				"request_id": rid,
				"code":       "internal_error",
				"message":    "internal server error",
			})
		}()
		c.Next()
	}
}

// LoggerFrom returns the request-scoped logger attached by RedactingLogger,
// or the global logger when none is attached. Never nil.
func LoggerFrom(c *gin.Context) *zerolog.Logger {
	if v, ok := c.Get(loggerKey); ok {
		if lg, ok := v.(*zerolog.Logger); ok {
			return lg
		}
	}
	l := log.With().Logger()
	return &l
}

func asString(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	return ""
}

// truncate caps s at max bytes, appending an ellipsis. A max <= 0 disables it.
func truncate(s string, max int) string {
	if max <= 0 || len(s) <= max {
		return s
	}
	return s[:max] + "…"
}
