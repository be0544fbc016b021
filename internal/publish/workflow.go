// SPDX-License-Identifier: MPL-2.0

package publish

import (
	"context"
	"fmt"
	"io"
	"path/filepath"

	"github.com/charmbracelet/log"

	"github.com/typesreg/typesreg/internal/fsutil"
	"github.com/typesreg/typesreg/internal/npm"
	"github.com/typesreg/typesreg/internal/runlog"
	"github.com/typesreg/typesreg/internal/typings"
	"github.com/typesreg/typesreg/internal/validate"
	"github.com/typesreg/typesreg/pkg/registry"
	"github.com/typesreg/typesreg/pkg/types"
)

// Output file names.
const (
	ManifestFile = "package.json"
	IndexFile    = "index.json"
	ReadmeFile   = "README.md"
)

// Readme is the README.md shipped with the registry package.
const Readme = "This package contains a listing of all packages published to the @types scope on NPM.\n" +
	"Generated by [types-publisher](https://github.com/Microsoft/types-publisher).\n"

type (
	// Validator checks the installed package against a local directory.
	Validator interface {
		Validate(ctx context.Context, outputDir, version string, logger validate.Logger) error
	}

	// Options are the per-run inputs of a Workflow.
	Options struct {
		// PackageName defaults to registry.PackageName.
		PackageName types.PackageName
		OutputDir   string
		// LogDir receives runlog.FileName. Empty disables the log file.
		LogDir string
		// Dry makes Publish and Tag report instead of act and skips the
		// post-publish validation.
		Dry bool
	}

	// Workflow runs the publish decision.
	Workflow struct {
		source    typings.Source
		registry  npm.Registry
		validator Validator
		logger    *log.Logger
	}

	// Option configures a Workflow.
	Option func(*Workflow)
)

// WithLogger mirrors run log entries to l.
func WithLogger(l *log.Logger) Option {
	return func(w *Workflow) {
		w.logger = l
	}
}

// NewWorkflow wires a Workflow from its collaborators.
func NewWorkflow(source typings.Source, reg npm.Registry, validator Validator, opts ...Option) *Workflow {
	w := &Workflow{
		source:    source,
		registry:  reg,
		validator: validator,
		logger:    log.New(io.Discard),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Run executes the full workflow and writes the run log. A run that fails
// before the output directory is written leaves no files behind. A later
// failure still writes the log as far as the run got. Either way the step's
// error is returned together with the partial Result.
func (w *Workflow) Run(ctx context.Context, opts Options) (*Result, error) {
	opts = opts.withDefaults()
	res, rl := w.begin(opts)

	err := w.run(ctx, opts, res, rl)
	if err != nil {
		rl.Warnf("Failed: %v", err)
		if !res.Visited(StateWrittenLocally) {
			return res, err
		}
	}

	if logErr := w.writeLog(opts, res, rl); logErr != nil {
		if err != nil {
			w.logger.Warn("could not write partial run log", "err", logErr)
			return res, err
		}
		return res, logErr
	}
	if err != nil {
		return res, err
	}
	res.visit(StateDone)
	return res, nil
}

// Generate runs the workflow up to writing the output directory. It never
// publishes, tags or validates and writes no run log.
func (w *Workflow) Generate(ctx context.Context, opts Options) (*Result, error) {
	opts = opts.withDefaults()
	res, rl := w.begin(opts)
	if _, err := w.generate(ctx, opts, res, rl); err != nil {
		return res, err
	}
	return res, nil
}

func (o Options) withDefaults() Options {
	if o.PackageName == "" {
		o.PackageName = registry.PackageName
	}
	return o
}

func (w *Workflow) begin(opts Options) (*Result, *runlog.Log) {
	rl := runlog.New(fmt.Sprintf("Publishing %s", opts.PackageName), w.logger)
	res := &Result{Log: rl, Dry: opts.Dry}
	res.visit(StateStart)
	if opts.Dry {
		rl.Logf("Dry run: nothing will be published or tagged")
	}
	return res, rl
}

func (w *Workflow) run(ctx context.Context, opts Options, res *Result, rl *runlog.Log) error {
	manifest, err := w.generate(ctx, opts, res, rl)
	if err != nil {
		return err
	}

	if !res.Changed {
		rl.Logf("Content hash unchanged (%s), validating the published version only", res.NewHash)
		if err := w.validator.Validate(ctx, opts.OutputDir, res.PreviousVersion, rl); err != nil {
			return fmt.Errorf("validating %s@%s: %w", opts.PackageName, res.PreviousVersion, err)
		}
		res.visit(StateValidatedOnly)
		return nil
	}

	rl.Logf("Content hash changed (%s -> %s), publishing %s", displayHash(res.PreviousHash), res.NewHash, res.NewVersion)
	if err := w.registry.Publish(ctx, opts.OutputDir, manifest, types.DistTagNext, opts.Dry); err != nil {
		return fmt.Errorf("publishing %s@%s: %w", opts.PackageName, res.NewVersion, err)
	}
	rl.Logf("Published %s@%s with dist-tag %q", opts.PackageName, res.NewVersion, types.DistTagNext)
	res.visit(StatePublished)

	if opts.Dry {
		rl.Warnf("Dry run: skipping validation of %s, the registry still serves %s", res.NewVersion, res.PreviousVersion)
	} else {
		if err := w.validator.Validate(ctx, opts.OutputDir, res.NewVersion, rl); err != nil {
			return fmt.Errorf("validating %s@%s: %w", opts.PackageName, res.NewVersion, err)
		}
		res.visit(StateValidated)
	}

	if err := w.registry.Tag(ctx, opts.PackageName, res.NewVersion, types.DistTagLatest, opts.Dry); err != nil {
		return fmt.Errorf("tagging %s@%s: %w", opts.PackageName, res.NewVersion, err)
	}
	rl.Logf("Tagged %s@%s as %q", opts.PackageName, res.NewVersion, types.DistTagLatest)
	res.visit(StateTagged)
	return nil
}

// generate covers fetching, hashing, version selection and writing the
// output directory. It returns the manifest that was written.
func (w *Workflow) generate(ctx context.Context, opts Options, res *Result, rl *runlog.Log) (registry.Manifest, error) {
	prev, err := w.registry.FetchLatest(ctx, opts.PackageName)
	if err != nil {
		return registry.Manifest{}, fmt.Errorf("fetching previous %s: %w", opts.PackageName, err)
	}
	res.PreviousVersion = prev.Version
	res.PreviousHash = prev.ContentHash
	rl.Logf("Old version: %s", prev.Version)
	rl.Logf("Old content hash: %s", displayHash(prev.ContentHash))
	res.visit(StateFetched)

	all, err := w.source.AllTypings()
	if err != nil {
		return registry.Manifest{}, fmt.Errorf("reading typings: %w", err)
	}
	reg := registry.Generate(all)
	hash, err := registry.ComputeHash(reg)
	if err != nil {
		return registry.Manifest{}, fmt.Errorf("hashing registry: %w", err)
	}
	res.Registry = reg
	res.NewHash = hash
	res.Changed = hash != prev.ContentHash
	rl.Logf("Registry lists %d packages", reg.Len())
	rl.Logf("New content hash: %s", hash)
	res.visit(StateGenerated)

	prevVersion, err := registry.ParseVersion(prev.Version)
	if err != nil {
		return registry.Manifest{}, err
	}
	next, err := prevVersion.Next()
	if err != nil {
		return registry.Manifest{}, err
	}
	res.NewVersion = next.String()
	rl.Logf("New version: %s", res.NewVersion)
	res.visit(StateVersionValidated)

	manifest := registry.NewManifest(next, hash)
	manifest.Name = opts.PackageName
	if err := writeOutput(opts.OutputDir, manifest, reg); err != nil {
		return registry.Manifest{}, err
	}
	rl.Logf("Wrote %s, %s and %s to %s", ManifestFile, IndexFile, ReadmeFile, opts.OutputDir)
	res.visit(StateWrittenLocally)
	return manifest, nil
}

func (w *Workflow) writeLog(opts Options, res *Result, rl *runlog.Log) error {
	if opts.LogDir == "" {
		return nil
	}
	path, err := rl.Write(opts.LogDir)
	if err != nil {
		return err
	}
	res.LogPath = path
	res.visit(StateLogWritten)
	return nil
}

func writeOutput(dir string, manifest registry.Manifest, reg registry.Registry) error {
	if err := fsutil.ClearDir(dir); err != nil {
		return fmt.Errorf("clearing output directory: %w", err)
	}
	if err := fsutil.WriteJSON(filepath.Join(dir, ManifestFile), manifest); err != nil {
		return err
	}
	if err := fsutil.WriteJSON(filepath.Join(dir, IndexFile), reg); err != nil {
		return err
	}
	return fsutil.WriteFile(filepath.Join(dir, ReadmeFile), []byte(Readme))
}

func displayHash(h registry.ContentHash) string {
	if h == "" {
		return "(none)"
	}
	return h.String()
}
