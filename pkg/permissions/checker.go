// Package permissions checks token scopes against the scope an endpoint
// requires, with support for wildcards.
//
// Scope format:
//   - "*" - Full access
//   - "resource.*" - All actions on a resource (e.g., "documents.*")
//   - "resource.action" - Specific action (e.g., "documents.parse")
package permissions

import (
	"strings"
)

// Scopes understood by the 2D-DOC service
const (
	DocumentsParse = "documents.parse"
	CircuitsBuild  = "circuits.build"
	CatalogRead    = "catalog.read"
)

// HasPermission checks if the granted scopes include the required scope.
// Supports wildcard matching:
//   - "*" matches everything
//   - "documents.*" matches "documents.parse"
//   - Exact match for specific scopes
func HasPermission(granted []string, required string) bool {
	if required == "" {
		return true
	}

	for _, p := range granted {
		if p == "*" || p == required {
			return true
		}
		if prefix, ok := strings.CutSuffix(p, ".*"); ok && strings.HasPrefix(required, prefix+".") {
			return true
		}
	}
	return false
}

// HasAnyPermission checks if any of the required scopes is granted.
func HasAnyPermission(granted []string, required []string) bool {
	for _, req := range required {
		if HasPermission(granted, req) {
			return true
		}
	}
	return false
}

// KnownScopes lists every scope an endpoint can require
var KnownScopes = []string{
	DocumentsParse,
	CircuitsBuild,
	CatalogRead,
}

// IsValidPermission reports whether scope is "*", a known scope, or a
// wildcard covering at least one known scope.
func IsValidPermission(scope string) bool {
	if scope == "*" {
		return true
	}
	for _, p := range KnownScopes {
		if HasPermission([]string{scope}, p) {
			return true
		}
	}
	return false
}
