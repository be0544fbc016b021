// SPDX-License-Identifier: MPL-2.0

package types

import (
	"errors"
	"testing"
)

func TestDistTagValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		value     DistTag
		wantValid bool
	}{
		{DistTagNext, true},
		{DistTagLatest, true},
		{"beta", true},
		{"ts5.4", true},
		{"", false},
		{"has space", false},
		{"a/b", false},
		{"1.2.3", false},
		{"v1.2.3", false},
	}

	for _, tt := range tests {
		t.Run(string(tt.value), func(t *testing.T) {
			t.Parallel()

			err := tt.value.Validate()
			if (err == nil) != tt.wantValid {
				t.Fatalf("DistTag(%q).Validate() error = %v, wantValid %v", tt.value, err, tt.wantValid)
			}
			if err != nil && !errors.Is(err, ErrInvalidDistTag) {
				t.Errorf("error does not wrap ErrInvalidDistTag: %v", err)
			}
		})
	}
}
