// SPDX-License-Identifier: MPL-2.0

// Package typings reads the typings data the registry is generated from.
//
// The data file, definitions.json, is produced by the step that parses the
// DefinitelyTyped repository. Two shapes are accepted: an object keyed by
// package name (the values describe versions and are ignored here) or an
// array of objects with a "name" field.
package typings

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"

	"github.com/typesreg/typesreg/pkg/registry"
	"github.com/typesreg/typesreg/pkg/types"
)

// DataFileName is the name of the typings data file inside the data directory.
const DataFileName = "definitions.json"

// ErrDataNotFound is returned when the data file does not exist.
var ErrDataNotFound = errors.New("typings data not found")

// Source yields the typings that belong in the registry.
type Source interface {
	AllTypings() ([]registry.TypingsData, error)
}

// FileSource reads DataFileName from a data directory.
type FileSource struct {
	dir string
}

// NewFileSource returns a Source reading <dir>/definitions.json.
func NewFileSource(dir string) *FileSource {
	return &FileSource{dir: dir}
}

// Path returns the data file location.
func (s *FileSource) Path() string {
	return filepath.Join(s.dir, DataFileName)
}

// AllTypings returns every typings package in the data file, sorted by name.
// Names that npm would reject fail the whole read.
func (s *FileSource) AllTypings() ([]registry.TypingsData, error) {
	data, err := os.ReadFile(s.Path())
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrDataNotFound, s.Path())
		}
		return nil, fmt.Errorf("reading typings data: %w", err)
	}

	typings, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", s.Path(), err)
	}
	return typings, nil
}

// Parse decodes either supported shape of the data file.
func Parse(data []byte) ([]registry.TypingsData, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, errors.New("empty typings data")
	}

	var typings []registry.TypingsData
	switch trimmed[0] {
	case '{':
		var byName map[types.PackageName]json.RawMessage
		if err := json.Unmarshal(trimmed, &byName); err != nil {
			return nil, fmt.Errorf("decoding typings object: %w", err)
		}
		typings = make([]registry.TypingsData, 0, len(byName))
		for name := range byName {
			typings = append(typings, registry.TypingsData{Name: name})
		}
	case '[':
		if err := json.Unmarshal(trimmed, &typings); err != nil {
			return nil, fmt.Errorf("decoding typings list: %w", err)
		}
	default:
		return nil, errors.New("typings data must be a JSON object or array")
	}

	for _, t := range typings {
		if err := t.Name.Validate(); err != nil {
			return nil, err
		}
	}

	slices.SortFunc(typings, func(a, b registry.TypingsData) int {
		switch {
		case a.Name < b.Name:
			return -1
		case a.Name > b.Name:
			return 1
		default:
			return 0
		}
	})
	return typings, nil
}
