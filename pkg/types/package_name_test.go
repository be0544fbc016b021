// SPDX-License-Identifier: MPL-2.0

package types

import (
	"errors"
	"strings"
	"testing"
)

func TestPackageNameValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		value     PackageName
		wantValid bool
	}{
		{"plain", "lodash", true},
		{"with dash and dot", "types-registry.v2", true},
		{"double underscore scope mangling", "babel__core", true},
		{"scoped", "@types/node", true},
		{"empty", "", false},
		{"uppercase", "React", false},
		{"leading dot", ".hidden", false},
		{"leading underscore", "_private", false},
		{"space", "left pad", false},
		{"scope without name", "@types/", false},
		{"scope without slash", "@types", false},
		{"bad scope chars", "@ty!pes/node", false},
		{"too long", PackageName(strings.Repeat("a", 215)), false},
		{"max length", PackageName(strings.Repeat("a", 214)), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			err := tt.value.Validate()
			if (err == nil) != tt.wantValid {
				t.Fatalf("PackageName(%q).Validate() error = %v, wantValid %v", tt.value, err, tt.wantValid)
			}
			if err != nil && !errors.Is(err, ErrInvalidPackageName) {
				t.Errorf("error does not wrap ErrInvalidPackageName: %v", err)
			}
		})
	}
}
