package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"regexp"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
)

func idemRouter(opts IdempotencyOptions, lookup IdempotencyLookup, seen *gin.H) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(IdempotencyValidator(opts, lookup))
	h := func(c *gin.Context) {
		key, ok := GetIdempotencyKey(c)
		*seen = gin.H{
			"key":    key,
			"ok":     ok,
			"scope":  GetIdempotencyScope(c),
			"replay": IsReplay(c),
			"bypass": IsRateBypass(c),
		}
		c.Status(http.StatusNoContent)
	}
	r.POST("/api/chat/send", h)
	r.POST("/api/voice/chat", h)
	r.POST("/api/auth/signup", h)
	return r
}

func postWithKey(r http.Handler, path, key string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, path, nil)
	if key != "" {
		req.Header.Set(HeaderIdempotencyKey, key)
	}
	r.ServeHTTP(w, req)
	return w
}

var testScopes = map[string]string{
	"/api/chat/send":  "chat",
	"/api/voice/chat": "voice",
}

func TestIdempotencyValidator_NoHeader(t *testing.T) {
	called := false
	lookup := func(context.Context, string, string, time.Time) (bool, error) {
		called = true
		return true, nil
	}
	var seen gin.H
	w := postWithKey(idemRouter(IdempotencyOptions{Scopes: testScopes}, lookup, &seen), "/api/chat/send", "")
	if w.Code != http.StatusNoContent || called || seen["ok"] != false {
		t.Fatalf("code=%d called=%v seen=%v", w.Code, called, seen)
	}
}

func TestIdempotencyValidator_StashesKeyAndScope(t *testing.T) {
	var gotScope, gotKey string
	lookup := func(_ context.Context, scope, key string, now time.Time) (bool, error) {
		gotScope, gotKey = scope, key
		if now.Location() != time.UTC {
			t.Errorf("lookup time not UTC: %v", now)
		}
		return false, nil
	}
	var seen gin.H
	r := idemRouter(IdempotencyOptions{Scopes: testScopes}, lookup, &seen)

	postWithKey(r, "/api/voice/chat", "k-1")
	if seen["key"] != "k-1" || seen["scope"] != "voice" || seen["replay"] != false {
		t.Fatalf("seen = %v", seen)
	}
	if gotScope != "voice" || gotKey != "k-1" {
		t.Fatalf("lookup got (%q,%q)", gotScope, gotKey)
	}
}

func TestIdempotencyValidator_UnscopedRouteIgnoresHeader(t *testing.T) {
	var seen gin.H
	r := idemRouter(IdempotencyOptions{Scopes: testScopes}, nil, &seen)
	// Even an invalid key passes through on routes without a scope.
	w := postWithKey(r, "/api/auth/signup", "not valid!")
	if w.Code != http.StatusNoContent || seen["ok"] != false {
		t.Fatalf("code=%d seen=%v", w.Code, seen)
	}
}

func TestIdempotencyValidator_NilScopesAppliesEverywhere(t *testing.T) {
	var seen gin.H
	r := idemRouter(IdempotencyOptions{}, nil, &seen)
	postWithKey(r, "/api/auth/signup", "abc")
	if seen["key"] != "abc" || seen["scope"] != "" {
		t.Fatalf("seen = %v", seen)
	}
}

func TestIdempotencyValidator_Rejects(t *testing.T) {
	cases := []struct {
		name string
		opts IdempotencyOptions
		key  string
	}{
		{"too long", IdempotencyOptions{MaxLen: 5}, "abcdef"},
		{"default pattern", IdempotencyOptions{}, "has space"},
		{"custom pattern", IdempotencyOptions{Pattern: regexp.MustCompile(`^[0-9]+$`)}, "abc"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			tc.opts.Scopes = testScopes
			var seen gin.H
			w := postWithKey(idemRouter(tc.opts, nil, &seen), "/api/chat/send", tc.key)
			if w.Code != http.StatusBadRequest {
				t.Fatalf("code = %d", w.Code)
			}
			var body map[string]any
			if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
				t.Fatalf("json: %v", err)
			}
			if body["code"] != "bad_idempotency_key" {
				t.Fatalf("body = %v", body)
			}
			if seen != nil {
				t.Fatal("handler must not run")
			}
		})
	}
}

func TestIdempotencyValidator_LiveKeyMarksReplayAndBypass(t *testing.T) {
	lookup := func(context.Context, string, string, time.Time) (bool, error) { return true, nil }
	var seen gin.H
	postWithKey(idemRouter(IdempotencyOptions{Scopes: testScopes}, lookup, &seen), "/api/chat/send", "k")
	if seen["replay"] != true || seen["bypass"] != true {
		t.Fatalf("seen = %v", seen)
	}
}

func TestIdempotencyValidator_LookupErrorIsNotFatal(t *testing.T) {
	lookup := func(context.Context, string, string, time.Time) (bool, error) {
		return true, errors.New("db down")
	}
	var seen gin.H
	w := postWithKey(idemRouter(IdempotencyOptions{Scopes: testScopes}, lookup, &seen), "/api/chat/send", "k")
	if w.Code != http.StatusNoContent || seen["replay"] != false || seen["key"] != "k" {
		t.Fatalf("code=%d seen=%v", w.Code, seen)
	}
}
