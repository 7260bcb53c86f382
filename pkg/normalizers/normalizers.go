// Package normalizers provides string normalization functions for duplicate
// identity keys
package normalizers

import (
	"strings"
	"unicode"
)

// Normalizer is a function that normalizes a string value
type Normalizer func(string) string

// registry holds all registered normalizers
var registry = make(map[string]Normalizer)

// Registered normalizer names. Dedupe modes resolve their identity key
// functions through these.
const (
	CompanyName = "ncompany"
	Domain      = "ndomain"
)

func init() {
	Register(CompanyName, NormalizeCompanyName)
	Register(Domain, NormalizeDomain)
}

// Register adds a normalizer to the registry
func Register(name string, fn Normalizer) {
	registry[name] = fn
}

// Get retrieves a normalizer by name
func Get(name string) (Normalizer, bool) {
	fn, ok := registry[name]
	return fn, ok
}

// Apply applies a named normalizer to a value
func Apply(value, normalizer string) string {
	fn, ok := Get(normalizer)
	if !ok {
		return value
	}
	return fn(value)
}

// NormalizeCompanyName builds the name identity key for duplicate grouping:
// lowercase, runs of non-alphanumeric characters collapsed to a single
// space, trimmed. "ABC, Inc." and "abc inc" produce the same key.
func NormalizeCompanyName(s string) string {
	s = strings.ToLower(s)

	var result strings.Builder
	prevSpace := false
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			result.WriteRune(r)
			prevSpace = false
		} else if !prevSpace {
			result.WriteRune(' ')
			prevSpace = true
		}
	}

	return strings.TrimSpace(result.String())
}

// NormalizeDomain builds the domain identity key: strip the protocol,
// strip a leading "www.", lowercase, and keep the host only (never path or
// query). Returns "" when no host remains.
func NormalizeDomain(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return ""
	}

	if idx := strings.Index(s, "://"); idx >= 0 {
		s = s[idx+3:]
	}
	s = strings.TrimPrefix(s, "www.")

	if idx := strings.IndexAny(s, "/?#"); idx >= 0 {
		s = s[:idx]
	}

	return s
}
