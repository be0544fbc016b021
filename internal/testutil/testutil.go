// SPDX-License-Identifier: MPL-2.0

package testutil

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/typesreg/typesreg/pkg/registry"
	"github.com/typesreg/typesreg/pkg/types"
)

// StaticSource serves a fixed list of typings.
type StaticSource struct {
	Typings []registry.TypingsData
	Err     error
}

// Names builds a StaticSource from package names.
func Names(names ...types.PackageName) *StaticSource {
	s := &StaticSource{Typings: make([]registry.TypingsData, 0, len(names))}
	for _, n := range names {
		s.Typings = append(s.Typings, registry.TypingsData{Name: n})
	}
	return s
}

// AllTypings returns the configured typings or error.
func (s *StaticSource) AllTypings() ([]registry.TypingsData, error) {
	if s.Err != nil {
		return nil, s.Err
	}
	return s.Typings, nil
}

// MustWriteFiles writes files (relative path to content) below dir.
// The test fails immediately if any write fails.
func MustWriteFiles(t testing.TB, dir string, files map[string]string) {
	t.Helper()
	for rel, content := range files {
		path := filepath.Join(dir, filepath.FromSlash(rel))
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatalf("failed to create directory for %s: %v", rel, err)
		}
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatalf("failed to write %s: %v", rel, err)
		}
	}
}

// MustWriteDefinitions writes a definitions.json listing names into dataDir.
func MustWriteDefinitions(t testing.TB, dataDir string, names ...types.PackageName) {
	t.Helper()
	byName := make(map[types.PackageName]map[string]any, len(names))
	for _, n := range names {
		byName[n] = map[string]any{}
	}
	data, err := json.Marshal(byName)
	if err != nil {
		t.Fatalf("failed to encode definitions: %v", err)
	}
	MustWriteFiles(t, dataDir, map[string]string{"definitions.json": string(data)})
}

// MustReadFile returns the content of path as a string.
// The test fails immediately if the read fails.
func MustReadFile(t testing.TB, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read %s: %v", path, err)
	}
	return string(data)
}
