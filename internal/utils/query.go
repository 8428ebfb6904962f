// Package utils provides small, generic helpers for reading request
// parameters. They are independent of domain or business logic.
package utils

import (
	"strconv"
	"strings"
)

// AtoiDefault parses s as a base-10 int, ignoring surrounding blanks.
// An empty or malformed value yields def.
//
//	utils.AtoiDefault("42", 50)  // 42
//	utils.AtoiDefault(" 7 ", 50) // 7
//	utils.AtoiDefault("x", 50)   // 50
func AtoiDefault(s string, def int) int {
	s = strings.TrimSpace(s)
	if s == "" {
		return def
	}
	if n, err := strconv.Atoi(s); err == nil {
		return n
	}
	return def
}

// ClampInt bounds n to [lo, hi].
func ClampInt(n, lo, hi int) int {
	return min(max(n, lo), hi)
}
