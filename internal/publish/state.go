// SPDX-License-Identifier: MPL-2.0

package publish

import (
	"slices"

	"github.com/typesreg/typesreg/internal/runlog"
	"github.com/typesreg/typesreg/pkg/registry"
)

// Workflow states, in the order a successful run visits them.
const (
	StateStart            State = "start"
	StateFetched          State = "fetched"
	StateGenerated        State = "generated"
	StateVersionValidated State = "version-validated"
	StateWrittenLocally   State = "written-locally"
	StatePublished        State = "published"
	StateValidated        State = "validated"
	StateTagged           State = "tagged"
	StateValidatedOnly    State = "validated-only"
	StateLogWritten       State = "log-written"
	StateDone             State = "done"
)

type (
	// State is a step of the publish workflow.
	State string

	// Result describes what a run did. On failure it holds everything up to
	// the failing step.
	Result struct {
		// States lists the states visited, in order.
		States []State

		PreviousVersion string
		PreviousHash    registry.ContentHash
		NewVersion      string
		NewHash         registry.ContentHash
		Registry        registry.Registry

		// Changed is true when the content hashes differ.
		Changed bool
		// Dry is set for dry runs. Their publish branch goes from
		// StatePublished straight to StateTagged without StateValidated.
		Dry bool
		// LogPath is where the run log was written, or "".
		LogPath string
		Log     *runlog.Log
	}
)

// Visited reports whether the run reached s.
func (r *Result) Visited(s State) bool {
	return slices.Contains(r.States, s)
}

// Last returns the most recent state, or StateStart for an empty result.
func (r *Result) Last() State {
	if len(r.States) == 0 {
		return StateStart
	}
	return r.States[len(r.States)-1]
}

// Reached returns the last workflow step the run completed, ignoring
// StateLogWritten and StateDone. After a failure it names the step before
// the one that failed.
func (r *Result) Reached() State {
	for _, s := range slices.Backward(r.States) {
		if s != StateLogWritten && s != StateDone {
			return s
		}
	}
	return StateStart
}

func (r *Result) visit(s State) {
	r.States = append(r.States, s)
}
