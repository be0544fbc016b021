// SPDX-License-Identifier: MPL-2.0

// Package validate checks that the package a registry serves is the package
// that was generated locally.
package validate

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/typesreg/typesreg/internal/fsutil"
	"github.com/typesreg/typesreg/internal/npm"
	"github.com/typesreg/typesreg/pkg/types"
)

// ManifestFileName is excluded from the comparison. The registry rewrites it
// on publish, adding fields such as _id and dist.
const ManifestFileName = "package.json"

type (
	// Logger receives the validator's progress lines. *runlog.Log satisfies it.
	Logger interface {
		Logf(format string, args ...any)
		Warnf(format string, args ...any)
	}

	// Validator installs the published package into a scratch directory and
	// compares it with the local output.
	Validator struct {
		installer   npm.Installer
		packageName types.PackageName
		scratchDir  string
	}

	// scratchManifest is the package.json of the throwaway install project.
	// Field order matters: it is written as-is.
	scratchManifest struct {
		Name        string   `json:"name"`
		Version     string   `json:"version"`
		Description string   `json:"description"`
		Readme      string   `json:"readme"`
		License     string   `json:"license"`
		Repository  struct{} `json:"repository"`
	}
)

// New returns a Validator that installs packageName into scratchDir.
func New(installer npm.Installer, packageName types.PackageName, scratchDir string) *Validator {
	return &Validator{installer: installer, packageName: packageName, scratchDir: scratchDir}
}

// InstalledDir is where the installed package lands inside the scratch directory.
func (v *Validator) InstalledDir() string {
	return filepath.Join(v.scratchDir, "node_modules", filepath.FromSlash(string(v.packageName)))
}

// Validate recreates the scratch directory, installs version of the package
// (the "latest" one when version is empty) and asserts that its files match
// outputDir, ignoring ManifestFileName. A difference is returned as a
// *fsutil.DirMismatchError. Installer diagnostics are reported to logger as a
// warning and do not fail validation.
func (v *Validator) Validate(ctx context.Context, outputDir, version string, logger Logger) error {
	spec := string(v.packageName)
	if version != "" {
		spec += "@" + version
	}
	logger.Logf("Validating %s in %s", spec, v.scratchDir)

	if err := fsutil.ClearDir(v.scratchDir); err != nil {
		return fmt.Errorf("preparing validation directory: %w", err)
	}
	manifest := scratchManifest{
		Name:        "validate",
		Version:     "0.0.0",
		Description: "description",
	}
	if err := fsutil.WriteJSON(filepath.Join(v.scratchDir, ManifestFileName), manifest); err != nil {
		return fmt.Errorf("preparing validation directory: %w", err)
	}

	diagnostics, err := v.installer.Install(ctx, v.scratchDir, v.packageName, version)
	if diagnostics = strings.TrimSpace(diagnostics); diagnostics != "" {
		logger.Warnf("npm install printed diagnostics:\n%s", diagnostics)
	}
	if err != nil {
		return fmt.Errorf("installing %s for validation: %w", spec, err)
	}

	if err := fsutil.AssertDirsEqual(outputDir, v.InstalledDir(), fsutil.Ignore(ManifestFileName)); err != nil {
		return err
	}
	logger.Logf("Validated %s: installed files match %s", spec, outputDir)
	return nil
}
