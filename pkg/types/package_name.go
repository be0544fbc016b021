// SPDX-License-Identifier: MPL-2.0

package types

import (
	"errors"
	"fmt"
	"strings"
)

// maxPackageNameLength is the npm limit on package name length.
const maxPackageNameLength = 214

// ErrInvalidPackageName is the sentinel error wrapped by InvalidPackageNameError.
var ErrInvalidPackageName = errors.New("invalid package name")

type (
	// PackageName is an npm package name, optionally scoped ("@scope/name").
	// Names are lowercase, at most 214 characters, and use only URL-safe
	// characters. The zero value is invalid.
	PackageName string

	// InvalidPackageNameError is returned when a PackageName breaks npm naming rules.
	InvalidPackageNameError struct {
		Value  PackageName
		Reason string
	}
)

// String returns the string representation of the PackageName.
func (n PackageName) String() string { return string(n) }

// Validate reports whether the name would be accepted by the npm registry.
func (n PackageName) Validate() error {
	s := string(n)
	switch {
	case s == "":
		return &InvalidPackageNameError{Value: n, Reason: "must be non-empty"}
	case len(s) > maxPackageNameLength:
		return &InvalidPackageNameError{Value: n, Reason: fmt.Sprintf("must be at most %d characters", maxPackageNameLength)}
	case strings.ToLower(s) != s:
		return &InvalidPackageNameError{Value: n, Reason: "must be lowercase"}
	}

	name := s
	if strings.HasPrefix(s, "@") {
		scope, rest, ok := strings.Cut(s[1:], "/")
		if !ok || scope == "" || rest == "" {
			return &InvalidPackageNameError{Value: n, Reason: "scoped names must look like @scope/name"}
		}
		if !isURLSafe(scope) {
			return &InvalidPackageNameError{Value: n, Reason: "scope contains characters that are not URL-safe"}
		}
		name = rest
	}

	if name[0] == '.' || name[0] == '_' {
		return &InvalidPackageNameError{Value: n, Reason: "must not start with '.' or '_'"}
	}
	if !isURLSafe(name) {
		return &InvalidPackageNameError{Value: n, Reason: "contains characters that are not URL-safe"}
	}
	return nil
}

// Error implements the error interface for InvalidPackageNameError.
func (e *InvalidPackageNameError) Error() string {
	return fmt.Sprintf("invalid package name %q: %s", e.Value, e.Reason)
}

// Unwrap returns ErrInvalidPackageName for errors.Is() compatibility.
func (e *InvalidPackageNameError) Unwrap() error { return ErrInvalidPackageName }

func isURLSafe(s string) bool {
	for _, c := range s {
		switch {
		case c >= 'a' && c <= 'z', c >= '0' && c <= '9':
		case c == '-', c == '.', c == '_', c == '~':
		default:
			return false
		}
	}
	return true
}
