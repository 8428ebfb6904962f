// Package middleware contains shared Gin middleware used by the HTTP layer.
//
// This file implements RedactingLogger, the access logger. It attaches a
// request-scoped logger for handlers and emits one structured line per
// request with obvious PII scrubbed from the query string and headers.
// Bodies are never logged: they carry user messages, companion replies and
// audio.
package middleware

import (
	"regexp"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// RedactOptions configures RedactingLogger.
type RedactOptions struct {
	// MaskHeaders lists extra header names (case-insensitive) whose values are
	// replaced with "[REDACTED]", in addition to Authorization, Cookie and
	// Set-Cookie.
	MaskHeaders []string
	// LogHeaders includes the scrubbed request headers in the access line.
	LogHeaders bool
}

// UUIDs go first so the phone pattern cannot eat their digit groups.
var (
	uuidRE  = regexp.MustCompile(`(?i)\b[0-9a-f]{8}-[0-9a-f]{4}-[1-5][0-9a-f]{3}-[89ab][0-9a-f]{3}-[0-9a-f]{12}\b`)
	emailRE = regexp.MustCompile(`(?i)\b[a-z0-9._%+\-]+@[a-z0-9.\-]+\.[a-z]{2,}\b`)
	phoneRE = regexp.MustCompile(`\b(?:\+?\d{1,3}[ .-]?)?(?:\(?\d{2,4}\)?[ .-]?)?\d{3,4}[ .-]?\d{4}\b`)
)

// Redact scrubs UUIDs, email addresses and phone numbers from s.
func Redact(s string) string {
	if s == "" {
		return s
	}
	s = uuidRE.ReplaceAllString(s, "[REDACTED:id]")
	s = emailRE.ReplaceAllString(s, "[REDACTED:email]")
	return phoneRE.ReplaceAllString(s, "[REDACTED:phone]")
}

// RedactingLogger returns the access-log middleware. base is the root
// logger; each request gets a child carrying request_id, method and route.
// The line is logged at info, warn for 4xx, and error for 5xx or when
// handlers attached gin errors.
func RedactingLogger(base zerolog.Logger, opts RedactOptions) gin.HandlerFunc {
	masked := map[string]struct{}{
		"authorization": {},
		"cookie":        {},
		"set-cookie":    {},
	}
	for _, h := range opts.MaskHeaders {
		if h = strings.ToLower(strings.TrimSpace(h)); h != "" {
			masked[h] = struct{}{}
		}
	}

	return func(c *gin.Context) {
		start := time.Now()

		path := c.FullPath()
		if path == "" {
			path = unmatchedRoute
		}
		l := base.With().
			Str("request_id", GetRequestID(c)).
			Str("method", c.Request.Method).
			Str("route", path).
			Logger()
		c.Set(loggerKey, &l)

		c.Next()

		status := c.Writer.Status()
		var ev *zerolog.Event
		switch {
		case len(c.Errors) > 0 || status >= 500:
			ev = l.Error()
			if len(c.Errors) > 0 {
				ev = ev.Str("errors", c.Errors.String())
			}
		case status >= 400:
			ev = l.Warn()
		default:
			ev = l.Info()
		}

		if uid, ok := c.Get(userIDKey); ok {
			ev = ev.Str("user_id", asString(uid))
		}
		if opts.LogHeaders {
			ev = ev.Interface("headers", scrubHeaders(c, masked))
		}
		ev.
			Str("query", truncate(Redact(c.Request.URL.RawQuery), maxQueryLogLength)).
			Str("remote_ip", c.ClientIP()).
			Int64("bytes_in", c.Request.ContentLength).
			Int("status", status).
			Int("bytes_out", c.Writer.Size()).
			Dur("latency", time.Since(start)).
			Msg("http_request")
	}
}

func scrubHeaders(c *gin.Context, masked map[string]struct{}) map[string]string {
	out := make(map[string]string, len(c.Request.Header))
	for k, vv := range c.Request.Header {
		if _, ok := masked[strings.ToLower(k)]; ok {
			out[k] = "[REDACTED]"
			continue
		}
		out[k] = Redact(strings.Join(vv, ", "))
	}
	return out
}
