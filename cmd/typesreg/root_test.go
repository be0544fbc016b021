// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/charmbracelet/log"

	"github.com/typesreg/typesreg/internal/config"
	"github.com/typesreg/typesreg/internal/publish"
	"github.com/typesreg/typesreg/internal/runlog"
	"github.com/typesreg/typesreg/internal/testutil"
	"github.com/typesreg/typesreg/pkg/registry"
	"github.com/typesreg/typesreg/pkg/types"
)

// cliEnv is a config file, typings data and a fake registry in a temp dir.
type cliEnv struct {
	cfg     *config.Config
	cfgPath string
	reg     *testutil.FakeRegistry
	stdout  bytes.Buffer
	stderr  bytes.Buffer
	app     *App
}

func newCLIEnv(t *testing.T, names ...types.PackageName) *cliEnv {
	t.Helper()
	dir := t.TempDir()

	cfg := config.DefaultConfig()
	cfg.Paths = config.PathsConfig{
		DataDir:     filepath.Join(dir, "data"),
		OutputDir:   filepath.Join(dir, "output", "types-registry"),
		ValidateDir: filepath.Join(dir, "validateOutput"),
		LogDir:      filepath.Join(dir, "logs"),
	}

	e := &cliEnv{
		cfg:     cfg,
		cfgPath: filepath.Join(dir, "config.cue"),
		reg:     testutil.NewFakeRegistry(),
	}
	testutil.MustWriteFiles(t, dir, map[string]string{"config.cue": config.GenerateCUE(cfg)})
	testutil.MustWriteDefinitions(t, cfg.Paths.DataDir, names...)

	e.app = NewApp(Dependencies{
		Backend: func(*config.Config, *log.Logger) (Backend, error) { return e.reg, nil },
		Stdout:  &e.stdout,
		Stderr:  &e.stderr,
	})
	return e
}

func (e *cliEnv) run(args ...string) error {
	root := NewRootCommand(e.app)
	root.SetArgs(append(args, "--config", e.cfgPath))
	return root.ExecuteContext(context.Background())
}

// seedCurrent publishes version with exactly the listing of names.
func (e *cliEnv) seedCurrent(t *testing.T, version string, names ...types.PackageName) {
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
	e.reg.Seed(registry.PackageName, version, hash, map[string][]byte{
		publish.ManifestFile: []byte("{}"),
		publish.IndexFile:    append(index, '\n'),
		publish.ReadmeFile:   []byte(publish.Readme),
	})
}

func exitCode(t *testing.T, err error) types.ExitCode {
	t.Helper()
	var exitErr *ExitError
	if !errors.As(err, &exitErr) {
		t.Fatalf("error = %v, want *ExitError", err)
	}
	return exitErr.Code
}

func TestGetVersionString(t *testing.T) {
	// Not parallel: subtests mutate package-level Version/Commit/BuildDate vars.

	t.Run("ldflags version", func(t *testing.T) {
		origVersion, origCommit, origBuildDate := Version, Commit, BuildDate
		t.Cleanup(func() {
			Version, Commit, BuildDate = origVersion, origCommit, origBuildDate
		})

		Version = "v1.2.3"
		Commit = "abc1234"
		BuildDate = "2026-06-15T10:00:00Z"

		want := "v1.2.3 (commit: abc1234, built: 2026-06-15T10:00:00Z)"
		if got := getVersionString(); got != want {
			t.Errorf("getVersionString() = %q, want %q", got, want)
		}
	})

	t.Run("dev build", func(t *testing.T) {
		origVersion := Version
		t.Cleanup(func() { Version = origVersion })

		Version = "dev"
		if got := getVersionString(); got != "dev (built from source)" {
			t.Errorf("getVersionString() = %q", got)
		}
	})
}

func TestRoot_PublishesChangedListing(t *testing.T) {
	t.Parallel()

	e := newCLIEnv(t, "react", "node")
	e.reg.Seed(registry.PackageName, "0.1.4", "stale", nil)

	if err := e.run(); err != nil {
		t.Fatalf("run() error = %v\nstderr: %s", err, e.stderr.String())
	}
	if !strings.Contains(e.stdout.String(), "Published") || !strings.Contains(e.stdout.String(), "types-registry@0.1.5") {
		t.Errorf("stdout = %q", e.stdout.String())
	}
	if got := e.reg.DistTag(registry.PackageName, types.DistTagLatest); got != "0.1.5" {
		t.Errorf("latest = %q, want 0.1.5", got)
	}
	if _, err := os.Stat(filepath.Join(e.cfg.Paths.LogDir, runlog.FileName)); err != nil {
		t.Errorf("run log: %v", err)
	}
}

func TestRoot_UnchangedListingIsValidated(t *testing.T) {
	t.Parallel()

	e := newCLIEnv(t, "react", "node")
	e.seedCurrent(t, "0.1.4", "react", "node")

	if err := e.run(); err != nil {
		t.Fatalf("run() error = %v\nstderr: %s", err, e.stderr.String())
	}
	if !strings.Contains(e.stdout.String(), "Unchanged; validated") {
		t.Errorf("stdout = %q", e.stdout.String())
	}
	for _, op := range e.reg.Ops() {
		if op == testutil.OpPublish || op == testutil.OpTag {
			t.Errorf("unchanged run performed %s", op)
		}
	}
}

func TestRoot_Dry(t *testing.T) {
	t.Parallel()

	e := newCLIEnv(t, "react")
	e.reg.Seed(registry.PackageName, "0.1.4", "stale", nil)

	if err := e.run("--dry"); err != nil {
		t.Fatalf("run() error = %v\nstderr: %s", err, e.stderr.String())
	}
	if !strings.Contains(e.stdout.String(), "Would publish") {
		t.Errorf("stdout = %q", e.stdout.String())
	}
	if got := e.reg.DistTag(registry.PackageName, types.DistTagLatest); got != "0.1.4" {
		t.Errorf("latest = %q, want 0.1.4", got)
	}
}

func TestRoot_VerbosePrintsRunLog(t *testing.T) {
	t.Parallel()

	e := newCLIEnv(t, "react")
	e.seedCurrent(t, "0.1.2", "react")

	if err := e.run("-v"); err != nil {
		t.Fatalf("run() error = %v", err)
	}
	if !strings.Contains(e.stdout.String(), "Old version: 0.1.2") {
		t.Errorf("stdout = %q, want rendered run log", e.stdout.String())
	}
}

func TestRoot_Failures(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		setup func(*testing.T, *cliEnv)
		code  types.ExitCode
		op    string
	}{
		{
			name:  "generation mismatch",
			setup: func(_ *testing.T, e *cliEnv) { e.reg.Seed(registry.PackageName, "1.0.0", "h", nil) },
			code:  types.ExitFailure,
			op:    "failed to select the next version",
		},
		{
			name:  "pre-release latest",
			setup: func(_ *testing.T, e *cliEnv) { e.reg.Seed(registry.PackageName, "0.1.5-rc.1", "h", nil) },
			code:  types.ExitFailure,
			op:    "failed to parse the latest published version",
		},
		{
			name:  "never published",
			setup: func(*testing.T, *cliEnv) {},
			code:  types.ExitIOFailure,
			op:    "failed to fetch the latest published version",
		},
		{
			name: "publish failure",
			setup: func(_ *testing.T, e *cliEnv) {
				e.reg.Seed(registry.PackageName, "0.1.4", "stale", nil)
				e.reg.PublishErr = errors.New("E403 forbidden")
			},
			code: types.ExitIOFailure,
			op:   "failed to publish 0.1.5",
		},
		{
			name: "tag failure",
			setup: func(_ *testing.T, e *cliEnv) {
				e.reg.Seed(registry.PackageName, "0.1.4", "stale", nil)
				e.reg.TagErr = errors.New("E401 unauthorized")
			},
			code: types.ExitIOFailure,
			op:   "failed to tag 0.1.5 as latest",
		},
		{
			name: "validation mismatch",
			setup: func(_ *testing.T, e *cliEnv) {
				e.reg.Seed(registry.PackageName, "0.1.4", "stale", nil)
				e.reg.Tamper = func(files map[string][]byte) { files[publish.IndexFile] = []byte(`{"a":1,"b":1}`) }
			},
			code: types.ExitFailure,
			op:   "failed to validate the published package",
		},
		{
			name: "broken config",
			setup: func(t *testing.T, e *cliEnv) {
				testutil.MustWriteFiles(t, filepath.Dir(e.cfgPath), map[string]string{"config.cue": `ui: verbose: "yes"`})
			},
			code: types.ExitFailure,
			op:   "failed to load configuration",
		},
		{
			name: "missing typings data",
			setup: func(t *testing.T, e *cliEnv) {
				e.reg.Seed(registry.PackageName, "0.1.4", "stale", nil)
				if err := os.Remove(filepath.Join(e.cfg.Paths.DataDir, "definitions.json")); err != nil {
					t.Fatal(err)
				}
			},
			code: types.ExitIOFailure,
			op:   "failed to read typings data",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			e := newCLIEnv(t, "react")
			tt.setup(t, e)

			err := e.run()
			if got := exitCode(t, err); got != tt.code {
				t.Errorf("exit code = %d, want %d (err: %v)", got, tt.code, err)
			}
			if !strings.Contains(e.stderr.String(), "Error:") {
				t.Errorf("stderr = %q, want an error line", e.stderr.String())
			}
			if !strings.Contains(e.stderr.String(), tt.op) {
				t.Errorf("stderr = %q, want %q", e.stderr.String(), tt.op)
			}
		})
	}
}

func TestGenerate(t *testing.T) {
	t.Parallel()

	e := newCLIEnv(t, "react", "node", "lodash")
	e.reg.Seed(registry.PackageName, "0.1.7", "stale", nil)

	if err := e.run("generate"); err != nil {
		t.Fatalf("generate error = %v", err)
	}
	for _, name := range []string{publish.ManifestFile, publish.IndexFile, publish.ReadmeFile} {
		if _, err := os.Stat(filepath.Join(e.cfg.Paths.OutputDir, name)); err != nil {
			t.Errorf("output %s: %v", name, err)
		}
	}
	if ops := e.reg.Ops(); len(ops) != 1 || ops[0] != testutil.OpFetch {
		t.Errorf("ops = %v, want only a fetch", ops)
	}
	if !strings.Contains(e.stdout.String(), "3 packages, content changed") {
		t.Errorf("stdout = %q", e.stdout.String())
	}
}

func TestValidateCommand(t *testing.T) {
	t.Parallel()

	e := newCLIEnv(t, "react")
	e.seedCurrent(t, "0.1.4", "react")

	if err := e.run("generate"); err != nil {
		t.Fatalf("generate error = %v", err)
	}
	if err := e.run("validate"); err != nil {
		t.Fatalf("validate error = %v\nstderr: %s", err, e.stderr.String())
	}

	e.reg.Tamper = func(files map[string][]byte) { files[publish.ReadmeFile] = []byte("changed") }
	err := e.run("validate", "--version", "0.1.4")
	if got := exitCode(t, err); got != types.ExitFailure {
		t.Errorf("exit code = %d, want %d", got, types.ExitFailure)
	}
}
