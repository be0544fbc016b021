// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"errors"
	"fmt"

	"github.com/typesreg/typesreg/internal/fsutil"
	"github.com/typesreg/typesreg/internal/issue"
	"github.com/typesreg/typesreg/internal/npm"
	"github.com/typesreg/typesreg/internal/publish"
	"github.com/typesreg/typesreg/internal/typings"
	"github.com/typesreg/typesreg/pkg/registry"
	"github.com/typesreg/typesreg/pkg/types"
)

// failure is how the CLI presents one class of error.
type failure struct {
	id          issue.Id
	code        types.ExitCode
	operation   string
	suggestions []string
}

// classifyError maps an error, and for workflow errors the state the run
// reached, to an issue guide and exit code.
func classifyError(err error, res *publish.Result) failure {
	var ae *issue.ActionableError
	var cmdErr *npm.CommandError

	switch {
	case errors.Is(err, registry.ErrPrecondition):
		return failure{id: issue.GenerationMismatchId, code: types.ExitFailure, operation: "select the next version"}
	case errors.Is(err, registry.ErrInvalidVersion):
		return failure{
			id:          issue.GenerationMismatchId,
			code:        types.ExitFailure,
			operation:   "parse the latest published version",
			suggestions: []string{"Point the latest dist-tag at a plain 0.1.x release before running again"},
		}
	case errors.Is(err, fsutil.ErrDirMismatch):
		return failure{
			id:          issue.ValidationMismatchId,
			code:        types.ExitFailure,
			operation:   "validate the published package",
			suggestions: []string{"Run 'typesreg validate' again once the registry has caught up"},
		}
	case errors.Is(err, typings.ErrDataNotFound):
		return failure{id: issue.TypingsDataNotFoundId, code: types.ExitIOFailure, operation: "read typings data"}
	case res == nil && errors.As(err, &ae):
		return failure{id: issue.ConfigLoadFailedId, code: types.ExitFailure, operation: "load configuration"}
	}

	if res == nil {
		if errors.As(err, &cmdErr) {
			return failure{id: issue.InstallFailedId, code: types.ExitIOFailure, operation: "install the published package"}
		}
		return failure{id: issue.InstallFailedId, code: types.ExitIOFailure, operation: "validate the published package"}
	}

	switch res.Reached() {
	case publish.StateStart:
		f := failure{id: issue.RegistryFetchFailedId, code: types.ExitIOFailure, operation: "fetch the latest published version"}
		if errors.Is(err, npm.ErrPackageNotFound) {
			f.suggestions = []string{"The package has never been published; publish 0.1.0 by hand first"}
		}
		return f
	case publish.StateFetched:
		return failure{id: issue.TypingsDataNotFoundId, code: types.ExitIOFailure, operation: "read typings data"}
	case publish.StateGenerated, publish.StateVersionValidated:
		return failure{id: issue.OutputWriteFailedId, code: types.ExitIOFailure, operation: "write the output directory"}
	case publish.StateWrittenLocally:
		if !res.Changed {
			return failure{id: issue.InstallFailedId, code: types.ExitIOFailure, operation: "validate the published package"}
		}
		return failure{id: issue.PublishFailedId, code: types.ExitIOFailure, operation: "publish " + res.NewVersion}
	case publish.StatePublished:
		return failure{id: issue.InstallFailedId, code: types.ExitIOFailure, operation: "validate " + res.NewVersion}
	case publish.StateValidated:
		return failure{
			id:          issue.PublishFailedId,
			code:        types.ExitIOFailure,
			operation:   "tag " + res.NewVersion + " as latest",
			suggestions: []string{fmt.Sprintf("The version is published and validated; tag it by hand with 'npm dist-tag add <name>@%s latest'", res.NewVersion)},
		}
	default:
		return failure{id: issue.OutputWriteFailedId, code: types.ExitIOFailure, operation: "write the run log"}
	}
}

// fail renders the issue guide for err to stderr and returns an *ExitError
// carrying an actionable version of err.
func (a *App) fail(err error, res *publish.Result, verbose bool) error {
	f := classifyError(err, res)

	var actionable *issue.ActionableError
	if !errors.As(err, &actionable) {
		actionable = issue.NewErrorContext().
			WithOperation(f.operation).
			WithSuggestions(f.suggestions...).
			Wrap(err).
			Build()
	}

	fmt.Fprintln(a.stderr, ErrorStyle.Render("Error: ")+actionable.Format(verbose))
	if guide := issue.Get(f.id); guide != nil {
		if rendered, renderErr := guide.Render("auto"); renderErr == nil {
			fmt.Fprint(a.stderr, rendered)
		}
	}
	return &ExitError{Code: f.code, Err: actionable}
}
