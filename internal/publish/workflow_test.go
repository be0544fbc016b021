// SPDX-License-Identifier: MPL-2.0

package publish

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/typesreg/typesreg/internal/fsutil"
	"github.com/typesreg/typesreg/internal/npm"
	"github.com/typesreg/typesreg/internal/runlog"
	"github.com/typesreg/typesreg/internal/testutil"
	"github.com/typesreg/typesreg/internal/validate"
	"github.com/typesreg/typesreg/pkg/registry"
	"github.com/typesreg/typesreg/pkg/types"
)

type fixture struct {
	root   string
	reg    *testutil.FakeRegistry
	source *testutil.StaticSource
	opts   Options
	wf     *Workflow
}

func newFixture(t *testing.T, names ...types.PackageName) *fixture {
	t.Helper()
	root := t.TempDir()
	f := &fixture{
		root:   root,
		reg:    testutil.NewFakeRegistry(),
		source: testutil.Names(names...),
		opts: Options{
			OutputDir: filepath.Join(root, "output", "types-registry"),
			LogDir:    filepath.Join(root, "logs"),
		},
	}
	v := validate.New(f.reg, registry.PackageName, filepath.Join(root, "validateOutput"))
	f.wf = NewWorkflow(f.source, f.reg, v)
	return f
}

// currentFiles is what a publish of the current listing would have shipped.
func currentFiles(t *testing.T, names ...types.PackageName) (registry.ContentHash, map[string][]byte) {
	t.Helper()
	reg := registry.Generate(testutil.Names(names...).Typings)
	hash, err := registry.ComputeHash(reg)
	if err != nil {
		t.Fatal(err)
	}
	index, err := registry.MarshalCanonical(reg)
	if err != nil {
		t.Fatal(err)
	}
	return hash, map[string][]byte{
		ManifestFile: []byte(`{"name":"types-registry","version":"0.1.4"}`),
		IndexFile:    append(index, '\n'),
		ReadmeFile:   []byte(Readme),
	}
}

func TestRun_ScenarioA_ChangedListingIsPublished(t *testing.T) {
	t.Parallel()

	f := newFixture(t, "a", "b")
	f.reg.Seed(registry.PackageName, "0.1.4", "stale-hash", map[string][]byte{IndexFile: []byte("{}")})

	res, err := f.wf.Run(context.Background(), f.opts)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	wantStates := []State{
		StateStart, StateFetched, StateGenerated, StateVersionValidated, StateWrittenLocally,
		StatePublished, StateValidated, StateTagged, StateLogWritten, StateDone,
	}
	if diff := cmp.Diff(wantStates, res.States); diff != "" {
		t.Errorf("States mismatch (-want +got):\n%s", diff)
	}

	wantCalls := []testutil.Call{
		{Op: testutil.OpFetch, Name: registry.PackageName},
		{Op: testutil.OpPublish, Name: registry.PackageName, Version: "0.1.5", Tag: types.DistTagNext},
		{Op: testutil.OpInstall, Name: registry.PackageName, Version: "0.1.5"},
		{Op: testutil.OpTag, Name: registry.PackageName, Version: "0.1.5", Tag: types.DistTagLatest},
	}
	if diff := cmp.Diff(wantCalls, f.reg.Calls()); diff != "" {
		t.Errorf("registry calls mismatch (-want +got):\n%s", diff)
	}

	if got := f.reg.DistTag(registry.PackageName, types.DistTagLatest); got != "0.1.5" {
		t.Errorf("latest = %q, want 0.1.5", got)
	}
	if !res.Changed || res.NewVersion != "0.1.5" || res.PreviousVersion != "0.1.4" {
		t.Errorf("Result = %+v", res)
	}
	if res.Registry.Len() != 2 {
		t.Errorf("Registry.Len() = %d, want 2", res.Registry.Len())
	}

	for _, name := range []string{ManifestFile, IndexFile, ReadmeFile} {
		if _, err := os.Stat(filepath.Join(f.opts.OutputDir, name)); err != nil {
			t.Errorf("output %s: %v", name, err)
		}
	}
	if got := testutil.MustReadFile(t, filepath.Join(f.opts.OutputDir, ReadmeFile)); got != Readme {
		t.Errorf("README = %q", got)
	}

	logText := testutil.MustReadFile(t, filepath.Join(f.opts.LogDir, runlog.FileName))
	for _, want := range []string{"Old version: 0.1.4", "New version: 0.1.5", "Tagged types-registry@0.1.5"} {
		if !strings.Contains(logText, want) {
			t.Errorf("run log missing %q:\n%s", want, logText)
		}
	}
}

func TestRun_ScenarioB_UnchangedListingIsOnlyValidated(t *testing.T) {
	t.Parallel()

	f := newFixture(t, "a", "b")
	hash, files := currentFiles(t, "a", "b")
	f.reg.Seed(registry.PackageName, "0.1.4", hash, files)

	res, err := f.wf.Run(context.Background(), f.opts)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if diff := cmp.Diff([]string{testutil.OpFetch, testutil.OpInstall}, f.reg.Ops()); diff != "" {
		t.Errorf("registry ops mismatch (-want +got):\n%s", diff)
	}
	if !res.Visited(StateValidatedOnly) || res.Visited(StatePublished) {
		t.Errorf("States = %v, want validated-only without publish", res.States)
	}
	if res.Changed {
		t.Error("Changed = true, want false")
	}
	if got := f.reg.DistTag(registry.PackageName, types.DistTagLatest); got != "0.1.4" {
		t.Errorf("latest = %q, want 0.1.4", got)
	}

	manifest := testutil.MustReadFile(t, filepath.Join(f.opts.OutputDir, ManifestFile))
	if !strings.Contains(manifest, `"version": "0.1.5"`) {
		t.Errorf("local manifest = %s, want candidate version 0.1.5", manifest)
	}
}

func TestRun_PublishesListingWithLodashAndReact(t *testing.T) {
	t.Parallel()

	f := newFixture(t, "lodash", "react")
	f.reg.Seed(registry.PackageName, "0.1.5", "hash-of-lodash-only", map[string][]byte{IndexFile: []byte(`{"entries":{"lodash":1}}`)})

	res, err := f.wf.Run(context.Background(), f.opts)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if res.NewVersion != "0.1.6" {
		t.Errorf("NewVersion = %q, want 0.1.6", res.NewVersion)
	}

	wantCalls := []testutil.Call{
		{Op: testutil.OpFetch, Name: registry.PackageName},
		{Op: testutil.OpPublish, Name: registry.PackageName, Version: "0.1.6", Tag: types.DistTagNext},
		{Op: testutil.OpInstall, Name: registry.PackageName, Version: "0.1.6"},
		{Op: testutil.OpTag, Name: registry.PackageName, Version: "0.1.6", Tag: types.DistTagLatest},
	}
	if diff := cmp.Diff(wantCalls, f.reg.Calls()); diff != "" {
		t.Errorf("registry calls mismatch (-want +got):\n%s", diff)
	}
	for tag, want := range map[types.DistTag]string{types.DistTagNext: "0.1.6", types.DistTagLatest: "0.1.6"} {
		if got := f.reg.DistTag(registry.PackageName, tag); got != want {
			t.Errorf("%s = %q, want %q", tag, got, want)
		}
	}

	index := testutil.MustReadFile(t, filepath.Join(f.opts.OutputDir, IndexFile))
	for _, name := range []string{`"lodash": 1`, `"react": 1`} {
		if !strings.Contains(index, name) {
			t.Errorf("index.json missing %s:\n%s", name, index)
		}
	}
}

func TestRun_MissingPreviousHashPublishes(t *testing.T) {
	t.Parallel()

	f := newFixture(t, "a")
	_, files := currentFiles(t, "a")
	f.reg.Seed(registry.PackageName, "0.1.0", "", files)

	res, err := f.wf.Run(context.Background(), f.opts)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if !res.Visited(StatePublished) || res.NewVersion != "0.1.1" {
		t.Errorf("Result = %+v, want publish of 0.1.1", res)
	}
}

func TestRun_PreconditionAbortsBeforeWriting(t *testing.T) {
	t.Parallel()

	for _, prev := range []string{"0.2.0", "1.0.0", "0.2.3", "2.1.0"} {
		t.Run(prev, func(t *testing.T) {
			t.Parallel()

			f := newFixture(t, "lodash", "react")
			f.reg.Seed(registry.PackageName, prev, "h", nil)

			res, err := f.wf.Run(context.Background(), f.opts)
			if !errors.Is(err, registry.ErrPrecondition) {
				t.Fatalf("Run() error = %v, want ErrPrecondition", err)
			}
			var pe *registry.PreconditionError
			if !errors.As(err, &pe) || pe.Previous.String() != prev {
				t.Errorf("PreconditionError = %v, want previous %s", pe, prev)
			}
			if _, statErr := os.Stat(f.opts.OutputDir); !os.IsNotExist(statErr) {
				t.Errorf("output directory exists after precondition failure: %v", statErr)
			}
			if res.Visited(StateVersionValidated) {
				t.Errorf("States = %v, must stop before version-validated", res.States)
			}
			if diff := cmp.Diff([]string{testutil.OpFetch}, f.reg.Ops()); diff != "" {
				t.Errorf("registry ops mismatch (-want +got):\n%s", diff)
			}

			if written := filesUnder(t, f.root); len(written) > 0 {
				t.Errorf("files written after precondition failure: %v", written)
			}
			if res.Visited(StateLogWritten) || res.LogPath != "" {
				t.Errorf("run log written after precondition failure: %v", res.States)
			}
			if lines := res.Log.Lines(); len(lines) == 0 || !strings.Contains(lines[len(lines)-1], "Failed:") {
				t.Errorf("in-memory run log missing failure line: %v", lines)
			}
		})
	}
}

// filesUnder lists the regular files below root.
func filesUnder(t *testing.T, root string) []string {
	t.Helper()
	var files []string
	err := filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("walking %s: %v", root, err)
	}
	return files
}

func TestRun_ValidationMismatchAbortsBeforeTagging(t *testing.T) {
	t.Parallel()

	f := newFixture(t, "a")
	f.reg.Seed(registry.PackageName, "0.1.4", "old", nil)
	f.reg.Tamper = func(files map[string][]byte) {
		files[IndexFile] = []byte(`{"a":1,"b":1}`)
	}

	res, err := f.wf.Run(context.Background(), f.opts)
	if !errors.Is(err, fsutil.ErrDirMismatch) {
		t.Fatalf("Run() error = %v, want ErrDirMismatch", err)
	}
	if res.Visited(StateTagged) || res.Last() != StateLogWritten {
		t.Errorf("States = %v, want stop after publish with log written", res.States)
	}
	if got := res.Reached(); got != StatePublished {
		t.Errorf("Reached() = %q, want %q", got, StatePublished)
	}
	if got := f.reg.DistTag(registry.PackageName, types.DistTagLatest); got != "0.1.4" {
		t.Errorf("latest = %q, want 0.1.4 to stay", got)
	}
	if got := f.reg.DistTag(registry.PackageName, types.DistTagNext); got != "0.1.5" {
		t.Errorf("next = %q, want 0.1.5", got)
	}
}

func TestRun_Dry(t *testing.T) {
	t.Parallel()

	f := newFixture(t, "a")
	f.reg.Seed(registry.PackageName, "0.1.4", "old", nil)
	f.opts.Dry = true

	res, err := f.wf.Run(context.Background(), f.opts)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	for _, c := range f.reg.Calls() {
		if (c.Op == testutil.OpPublish || c.Op == testutil.OpTag) && !c.Dry {
			t.Errorf("call %+v not marked dry", c)
		}
		if c.Op == testutil.OpInstall {
			t.Errorf("dry run installed the package")
		}
	}
	if res.Visited(StateValidated) || !res.Visited(StateTagged) {
		t.Errorf("States = %v", res.States)
	}
	if !res.Dry {
		t.Error("Result.Dry = false for a dry run")
	}
	logText := testutil.MustReadFile(t, filepath.Join(f.opts.LogDir, runlog.FileName))
	if !strings.Contains(logText, "**Warning:** Dry run: skipping validation of 0.1.5") {
		t.Errorf("run log does not flag the skipped validation:\n%s", logText)
	}
	if got := f.reg.DistTag(registry.PackageName, types.DistTagLatest); got != "0.1.4" {
		t.Errorf("latest = %q, want 0.1.4", got)
	}
}

func TestRun_RegistryFailures(t *testing.T) {
	t.Parallel()

	boom := errors.New("boom")
	tests := []struct {
		name    string
		setup   func(*testutil.FakeRegistry)
		want    error
		reached State
		logged  bool
	}{
		{
			name:  "package missing",
			setup: func(*testutil.FakeRegistry) {},
			want:    npm.ErrPackageNotFound,
			reached: StateStart,
		},
		{
			name:  "fetch fails",
			setup: func(r *testutil.FakeRegistry) { r.FetchErr = boom },
			want:    boom,
			reached: StateStart,
		},
		{
			name:  "publish fails",
			setup: func(r *testutil.FakeRegistry) { r.PublishErr = boom },
			want:    boom,
			reached: StateWrittenLocally,
			logged:  true,
		},
		{
			name:  "tag fails",
			setup: func(r *testutil.FakeRegistry) { r.TagErr = boom },
			want:    boom,
			reached: StateValidated,
			logged:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			f := newFixture(t, "a")
			if tt.name != "package missing" {
				f.reg.Seed(registry.PackageName, "0.1.4", "old", nil)
			}
			tt.setup(f.reg)

			res, err := f.wf.Run(context.Background(), f.opts)
			if !errors.Is(err, tt.want) {
				t.Fatalf("Run() error = %v, want %v", err, tt.want)
			}
			if got := res.Reached(); got != tt.reached {
				t.Errorf("Reached() = %q, want %q (States = %v)", got, tt.reached, res.States)
			}
			// Only failures after the output is written leave a partial log.
			_, statErr := os.Stat(filepath.Join(f.opts.LogDir, runlog.FileName))
			if logged := statErr == nil; logged != tt.logged {
				t.Errorf("run log written = %v, want %v", logged, tt.logged)
			}
			if res.Visited(StateLogWritten) != tt.logged {
				t.Errorf("States = %v, want log-written = %v", res.States, tt.logged)
			}
		})
	}
}

func TestRun_TypingsFailure(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.reg.Seed(registry.PackageName, "0.1.4", "old", nil)
	f.source.Err = errors.New("definitions.json is corrupt")

	_, err := f.wf.Run(context.Background(), f.opts)
	if err == nil || !strings.Contains(err.Error(), "definitions.json is corrupt") {
		t.Errorf("Run() error = %v", err)
	}
}

func TestRun_ContextCanceled(t *testing.T) {
	t.Parallel()

	f := newFixture(t, "a")
	f.reg.Seed(registry.PackageName, "0.1.4", "old", nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := f.wf.Run(ctx, f.opts); !errors.Is(err, context.Canceled) {
		t.Errorf("Run() error = %v, want context.Canceled", err)
	}
}

func TestGenerate_IsIdempotent(t *testing.T) {
	t.Parallel()

	f := newFixture(t, "c", "a", "b")
	f.reg.Seed(registry.PackageName, "0.1.9", "old", nil)

	first, err := f.wf.Generate(context.Background(), f.opts)
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	firstFiles := readOutput(t, f.opts.OutputDir)

	second, err := f.wf.Generate(context.Background(), f.opts)
	if err != nil {
		t.Fatalf("second Generate() error = %v", err)
	}
	if first.NewHash != second.NewHash || first.NewVersion != "0.1.10" {
		t.Errorf("Generate() results differ: %+v vs %+v", first, second)
	}
	if diff := cmp.Diff(firstFiles, readOutput(t, f.opts.OutputDir)); diff != "" {
		t.Errorf("output changed between runs (-first +second):\n%s", diff)
	}

	if diff := cmp.Diff([]string{testutil.OpFetch, testutil.OpFetch}, f.reg.Ops()); diff != "" {
		t.Errorf("Generate() touched the registry beyond fetching:\n%s", diff)
	}
	if first.Visited(StateLogWritten) {
		t.Error("Generate() wrote a run log")
	}
}

func TestGenerate_HashMatchesIndexFile(t *testing.T) {
	t.Parallel()

	f := newFixture(t, "a", "b")
	f.reg.Seed(registry.PackageName, "0.1.0", "", nil)

	res, err := f.wf.Generate(context.Background(), f.opts)
	if err != nil {
		t.Fatal(err)
	}
	index := testutil.MustReadFile(t, filepath.Join(f.opts.OutputDir, IndexFile))
	if got := registry.HashBytes([]byte(strings.TrimSuffix(index, "\n"))); got != res.NewHash {
		t.Errorf("hash of index.json = %s, want %s", got, res.NewHash)
	}

	manifest := testutil.MustReadFile(t, filepath.Join(f.opts.OutputDir, ManifestFile))
	if !strings.Contains(manifest, `"contentHash": "`+res.NewHash.String()+`"`) {
		t.Errorf("manifest does not embed hash:\n%s", manifest)
	}
}

func TestGenerate_ClearsOutputDirectory(t *testing.T) {
	t.Parallel()

	f := newFixture(t, "a")
	f.reg.Seed(registry.PackageName, "0.1.0", "", nil)
	testutil.MustWriteFiles(t, f.opts.OutputDir, map[string]string{"stale.txt": "old"})

	if _, err := f.wf.Generate(context.Background(), f.opts); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(filepath.Join(f.opts.OutputDir, "stale.txt")); !os.IsNotExist(err) {
		t.Errorf("stale file survived: %v", err)
	}
}

func readOutput(t *testing.T, dir string) map[string]string {
	t.Helper()
	out := make(map[string]string)
	for _, name := range []string{ManifestFile, IndexFile, ReadmeFile} {
		out[name] = testutil.MustReadFile(t, filepath.Join(dir, name))
	}
	return out
}
