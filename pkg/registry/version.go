// SPDX-License-Identifier: MPL-2.0

package registry

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/mod/semver"
)

const (
	// GenerationMajor is the only major version this tool will publish on top of.
	GenerationMajor = 0
	// GenerationMinor is the only minor version this tool will publish on top of.
	GenerationMinor = 1
)

var (
	// ErrInvalidVersion indicates a version string is not a plain MAJOR.MINOR.PATCH version.
	ErrInvalidVersion = errors.New("invalid version")

	// ErrPrecondition is wrapped by PreconditionError.
	ErrPrecondition = errors.New("registry generation precondition violated")
)

type (
	// Version is a MAJOR.MINOR.PATCH version without pre-release or build metadata.
	Version struct {
		Major int
		Minor int
		Patch int
	}

	// PreconditionError is returned when the previously published version does
	// not belong to the registry generation this tool maintains.
	PreconditionError struct {
		Previous Version
	}
)

// ParseVersion parses "MAJOR.MINOR.PATCH". A leading "v" is accepted;
// shorthand ("1.2"), pre-release and build suffixes are rejected.
func ParseVersion(s string) (Version, error) {
	v := "v" + strings.TrimPrefix(strings.TrimSpace(s), "v")
	if !semver.IsValid(v) || semver.Prerelease(v) != "" || semver.Build(v) != "" || semver.Canonical(v) != v {
		return Version{}, fmt.Errorf("%w: %q", ErrInvalidVersion, s)
	}

	parts := strings.Split(strings.TrimPrefix(v, "v"), ".")
	nums := make([]int, len(parts))
	for i, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil {
			return Version{}, fmt.Errorf("%w: %q: %w", ErrInvalidVersion, s, err)
		}
		nums[i] = n
	}
	return Version{Major: nums[0], Minor: nums[1], Patch: nums[2]}, nil
}

// String formats the version as MAJOR.MINOR.PATCH.
func (v Version) String() string {
	return fmt.Sprintf("%d.%d.%d", v.Major, v.Minor, v.Patch)
}

// CheckGeneration returns a *PreconditionError unless v is 0.1.x.
func (v Version) CheckGeneration() error {
	if v.Major != GenerationMajor || v.Minor != GenerationMinor {
		return &PreconditionError{Previous: v}
	}
	return nil
}

// Next validates that v is a 0.1.x version and returns the same version with
// the patch number incremented.
func (v Version) Next() (Version, error) {
	if err := v.CheckGeneration(); err != nil {
		return Version{}, err
	}
	return Version{Major: v.Major, Minor: v.Minor, Patch: v.Patch + 1}, nil
}

// Error implements the error interface.
func (e *PreconditionError) Error() string {
	return fmt.Sprintf("previous version %s is not a %d.%d.x release", e.Previous, GenerationMajor, GenerationMinor)
}

// Unwrap returns ErrPrecondition for errors.Is() compatibility.
func (e *PreconditionError) Unwrap() error { return ErrPrecondition }
