// SPDX-License-Identifier: MPL-2.0

package registry

import "github.com/typesreg/typesreg/pkg/types"

// EntryMarker is the value stored for every package in a Registry.
const EntryMarker = 1

type (
	// TypingsData describes one published type-declaration package. Only the
	// name is used to build the registry.
	TypingsData struct {
		Name types.PackageName `json:"name"`
	}

	// Registry lists the valid type-declaration packages. Its JSON form is
	// {"entries": {"<name>": 1, ...}}.
	Registry struct {
		Entries map[types.PackageName]int `json:"entries"`
	}
)

// Generate builds a Registry with one entry per distinct name in typings.
// The result always has a non-nil Entries map so that an empty registry
// serializes as {"entries": {}}.
func Generate(typings []TypingsData) Registry {
	entries := make(map[types.PackageName]int, len(typings))
	for _, t := range typings {
		entries[t.Name] = EntryMarker
	}
	return Registry{Entries: entries}
}

// Len returns the number of packages in the registry.
func (r Registry) Len() int { return len(r.Entries) }

// Has reports whether name is listed.
func (r Registry) Has(name types.PackageName) bool {
	_, ok := r.Entries[name]
	return ok
}
