// Package middleware contains shared Gin middleware used by the HTTP layer.
//
// This file provides SecurityHeaders, a conservative header set for a JSON
// (and audio) API behind a reverse proxy. No CSP is sent; the only HTML this
// service serves is the optional Swagger UI.
package middleware

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
)

// exposedHeaders are made readable to browser clients.
var exposedHeaders = []string{requestIDHeader, "ETag", HeaderIdempotencyReplayed}

// SecurityOptions configures SecurityHeaders.
type SecurityOptions struct {
	// EnableHSTS emits Strict-Transport-Security on HTTPS requests only.
	EnableHSTS bool
	// HSTSMaxAge defaults to 180 days.
	HSTSMaxAge time.Duration
	// NoStore adds Cache-Control: no-store plus the legacy Pragma/Expires.
	NoStore bool
	// EnablePolicy adds Permissions-Policy and X-Permitted-Cross-Domain-Policies.
	EnablePolicy bool
}

// SecurityHeaders returns a middleware that always sets
// X-Content-Type-Options, X-Frame-Options and Referrer-Policy, and the
// optional headers selected by opt.
//
// Microphone stays allowed in the permissions policy: browser clients record
// voice input before posting the transcript.
func SecurityHeaders(opt SecurityOptions) gin.HandlerFunc {
	maxAge := int(opt.HSTSMaxAge.Seconds())
	if maxAge <= 0 {
		maxAge = int((180 * 24 * time.Hour).Seconds())
	}
	hsts := "max-age=" + strconv.Itoa(maxAge) + "; includeSubDomains; preload"

	return func(c *gin.Context) {
		h := c.Writer.Header()

		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("X-Frame-Options", "DENY")
		h.Set("Referrer-Policy", "no-referrer")

		if opt.EnablePolicy {
			h.Set("Permissions-Policy", "geolocation=(), camera=(), payment=()")
			h.Set("X-Permitted-Cross-Domain-Policies", "none")
		}
		if opt.NoStore {
			h.Set("Cache-Control", "no-store")
			h.Set("Pragma", "no-cache")
			h.Set("Expires", "0")
		}
		if opt.EnableHSTS && isHTTPS(c.Request) {
			h.Set("Strict-Transport-Security", hsts)
		}
		exposeHeaders(h)

		c.Next()
	}
}

// exposeHeaders appends exposedHeaders to Access-Control-Expose-Headers
// without clobbering entries set earlier in the chain.
func exposeHeaders(h http.Header) {
	const hdr = "Access-Control-Expose-Headers"
	cur := h.Get(hdr)
	for _, name := range exposedHeaders {
		if strings.Contains(cur, name) {
			continue
		}
		if cur == "" {
			cur = name
		} else {
			cur += ", " + name
		}
	}
	h.Set(hdr, cur)
}

// isHTTPS reports whether the request used TLS directly or via a proxy that
// set X-Forwarded-Proto: https.
func isHTTPS(r *http.Request) bool {
	if r.TLS != nil {
		return true
	}
	return strings.EqualFold(r.Header.Get("X-Forwarded-Proto"), "https")
}
