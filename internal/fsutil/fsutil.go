// SPDX-License-Identifier: MPL-2.0

package fsutil

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/typesreg/typesreg/pkg/registry"
)

const (
	dirPerm  = 0o755
	filePerm = 0o644
)

// ClearDir removes dir and everything below it, then recreates it empty.
func ClearDir(dir string) error {
	if err := os.RemoveAll(dir); err != nil {
		return fmt.Errorf("removing %s: %w", dir, err)
	}
	if err := os.MkdirAll(dir, dirPerm); err != nil {
		return fmt.Errorf("creating %s: %w", dir, err)
	}
	return nil
}

// WriteJSON writes v to path in the canonical serialization used for content
// hashing, followed by a newline.
func WriteJSON(path string, v any) error {
	data, err := registry.MarshalCanonical(v)
	if err != nil {
		return fmt.Errorf("serializing %s: %w", filepath.Base(path), err)
	}
	return WriteFile(path, append(data, '\n'))
}

// WriteFile writes data to path, creating the parent directory if needed.
func WriteFile(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), dirPerm); err != nil {
		return fmt.Errorf("creating %s: %w", filepath.Dir(path), err)
	}
	if err := os.WriteFile(path, data, filePerm); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}
