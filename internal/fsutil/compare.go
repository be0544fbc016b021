// SPDX-License-Identifier: MPL-2.0

package fsutil

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"
)

// ErrDirMismatch is wrapped by DirMismatchError.
var ErrDirMismatch = errors.New("directories differ")

type (
	// DirMismatchError lists how the actual tree differs from the expected one.
	// Paths are slash-separated and relative to the compared roots.
	DirMismatchError struct {
		Expected  string
		Actual    string
		Missing   []string // in Expected, absent from Actual
		Extra     []string // in Actual, absent from Expected
		Differing []string // present in both with different bytes
	}

	// CompareOption configures AssertDirsEqual.
	CompareOption func(*compareOptions)

	compareOptions struct {
		ignore map[string]bool
	}
)

// Ignore excludes the given relative paths from the comparison.
func Ignore(relPaths ...string) CompareOption {
	return func(o *compareOptions) {
		for _, p := range relPaths {
			o.ignore[filepath.ToSlash(p)] = true
		}
	}
}

// AssertDirsEqual returns nil when every regular file below expected exists
// below actual with the same bytes and actual holds no further files.
// Otherwise it returns a *DirMismatchError.
func AssertDirsEqual(expected, actual string, opts ...CompareOption) error {
	o := compareOptions{ignore: make(map[string]bool)}
	for _, opt := range opts {
		opt(&o)
	}

	want, err := listFiles(expected, o.ignore)
	if err != nil {
		return err
	}
	got, err := listFiles(actual, o.ignore)
	if err != nil {
		return err
	}

	mismatch := &DirMismatchError{Expected: expected, Actual: actual}
	for _, rel := range want {
		if _, found := slices.BinarySearch(got, rel); !found {
			mismatch.Missing = append(mismatch.Missing, rel)
			continue
		}
		same, err := sameContents(filepath.Join(expected, rel), filepath.Join(actual, rel))
		if err != nil {
			return err
		}
		if !same {
			mismatch.Differing = append(mismatch.Differing, rel)
		}
	}
	for _, rel := range got {
		if _, found := slices.BinarySearch(want, rel); !found {
			mismatch.Extra = append(mismatch.Extra, rel)
		}
	}

	if len(mismatch.Missing)+len(mismatch.Extra)+len(mismatch.Differing) > 0 {
		return mismatch
	}
	return nil
}

// Error implements the error interface.
func (e *DirMismatchError) Error() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s does not match %s", e.Actual, e.Expected)
	writeList(&sb, "missing", e.Missing)
	writeList(&sb, "unexpected", e.Extra)
	writeList(&sb, "different", e.Differing)
	return sb.String()
}

// Unwrap returns ErrDirMismatch for errors.Is() compatibility.
func (e *DirMismatchError) Unwrap() error { return ErrDirMismatch }

func writeList(sb *strings.Builder, label string, paths []string) {
	if len(paths) == 0 {
		return
	}
	fmt.Fprintf(sb, "; %s: %s", label, strings.Join(paths, ", "))
}

// listFiles returns the sorted relative paths of regular files below root.
func listFiles(root string, ignore map[string]bool) ([]string, error) {
	var files []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)
		if !ignore[rel] {
			files = append(files, rel)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("listing %s: %w", root, err)
	}
	slices.Sort(files)
	return files, nil
}

func sameContents(a, b string) (bool, error) {
	da, err := os.ReadFile(a)
	if err != nil {
		return false, fmt.Errorf("reading %s: %w", a, err)
	}
	db, err := os.ReadFile(b)
	if err != nil {
		return false, fmt.Errorf("reading %s: %w", b, err)
	}
	return bytes.Equal(da, db), nil
}
