// SPDX-License-Identifier: MPL-2.0

package types

import (
	"errors"
	"fmt"
	"strings"

	"golang.org/x/mod/semver"
)

const (
	// DistTagNext receives a freshly published version before it is validated.
	DistTagNext DistTag = "next"
	// DistTagLatest is the tag npm installs by default.
	DistTagLatest DistTag = "latest"
)

// ErrInvalidDistTag is the sentinel error wrapped by InvalidDistTagError.
var ErrInvalidDistTag = errors.New("invalid dist-tag")

type (
	// DistTag is a named pointer to a published version within a registry.
	DistTag string

	// InvalidDistTagError is returned when a DistTag would be rejected by npm.
	InvalidDistTagError struct {
		Value DistTag
	}
)

// String returns the string representation of the DistTag.
func (t DistTag) String() string { return string(t) }

// Validate returns an error for empty tags, tags containing whitespace or a
// slash, and tags that parse as a semantic version (npm refuses those because
// they are ambiguous with version specifiers).
func (t DistTag) Validate() error {
	s := string(t)
	if s == "" || strings.ContainsAny(s, " \t\r\n/") {
		return &InvalidDistTagError{Value: t}
	}
	if semver.IsValid("v" + strings.TrimPrefix(s, "v")) {
		return &InvalidDistTagError{Value: t}
	}
	return nil
}

// Error implements the error interface for InvalidDistTagError.
func (e *InvalidDistTagError) Error() string {
	return fmt.Sprintf("invalid dist-tag %q: must be non-empty, without whitespace or '/', and not a version", e.Value)
}

// Unwrap returns ErrInvalidDistTag for errors.Is() compatibility.
func (e *InvalidDistTagError) Unwrap() error { return ErrInvalidDistTag }
