// SPDX-License-Identifier: MPL-2.0

package testutil

import (
	"context"
	"fmt"
	"io/fs"
	"maps"
	"os"
	"path/filepath"
	"sync"

	"github.com/typesreg/typesreg/internal/npm"
	"github.com/typesreg/typesreg/pkg/registry"
	"github.com/typesreg/typesreg/pkg/types"
)

// Operations recorded by FakeRegistry.
const (
	OpFetch   = "fetch"
	OpPublish = "publish"
	OpTag     = "tag"
	OpInstall = "install"
)

var (
	_ npm.Registry  = (*FakeRegistry)(nil)
	_ npm.Installer = (*FakeRegistry)(nil)
)

type (
	// Call is one recorded registry operation.
	Call struct {
		Op      string
		Name    types.PackageName
		Version string
		Tag     types.DistTag
		Dry     bool
	}

	// FakeRegistry is an in-memory registry. Publish snapshots the files of the
	// package directory; Install writes the files of a stored version into
	// node_modules. Set the *Err fields to inject failures.
	FakeRegistry struct {
		mu       sync.Mutex
		packages map[types.PackageName]*fakePackage
		calls    []Call

		FetchErr    error
		PublishErr  error
		TagErr      error
		InstallErr  error
		Diagnostics string
		// Tamper, when set, edits the files Install is about to write.
		Tamper func(files map[string][]byte)
	}

	fakePackage struct {
		tags     map[types.DistTag]string
		versions map[string]fakeVersion
	}

	fakeVersion struct {
		hash  registry.ContentHash
		files map[string][]byte
	}
)

// NewFakeRegistry returns an empty registry.
func NewFakeRegistry() *FakeRegistry {
	return &FakeRegistry{packages: make(map[types.PackageName]*fakePackage)}
}

// Seed stores version with hash and files and points "latest" at it.
func (f *FakeRegistry) Seed(name types.PackageName, version string, hash registry.ContentHash, files map[string][]byte) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p := f.pkg(name)
	p.versions[version] = fakeVersion{hash: hash, files: maps.Clone(files)}
	p.tags[types.DistTagLatest] = version
}

// DistTag returns the version tag points at, or "".
func (f *FakeRegistry) DistTag(name types.PackageName, tag types.DistTag) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if p, ok := f.packages[name]; ok {
		return p.tags[tag]
	}
	return ""
}

// Calls returns the recorded operations in order.
func (f *FakeRegistry) Calls() []Call {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Call(nil), f.calls...)
}

// Ops returns the recorded operation names in order.
func (f *FakeRegistry) Ops() []string {
	calls := f.Calls()
	ops := make([]string, len(calls))
	for i, c := range calls {
		ops[i] = c.Op
	}
	return ops
}

// FetchLatest implements npm.Registry.
func (f *FakeRegistry) FetchLatest(ctx context.Context, name types.PackageName) (npm.PackageMetadata, error) {
	if err := ctx.Err(); err != nil {
		return npm.PackageMetadata{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, Call{Op: OpFetch, Name: name})

	if f.FetchErr != nil {
		return npm.PackageMetadata{}, f.FetchErr
	}
	p, ok := f.packages[name]
	if !ok || p.tags[types.DistTagLatest] == "" {
		return npm.PackageMetadata{}, fmt.Errorf("%w: %s", npm.ErrPackageNotFound, name)
	}
	latest := p.tags[types.DistTagLatest]
	return npm.PackageMetadata{Version: latest, ContentHash: p.versions[latest].hash}, nil
}

// Publish implements npm.Registry.
func (f *FakeRegistry) Publish(ctx context.Context, dir string, manifest registry.Manifest, tag types.DistTag, dry bool) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, Call{Op: OpPublish, Name: manifest.Name, Version: manifest.Version, Tag: tag, Dry: dry})

	if f.PublishErr != nil {
		return f.PublishErr
	}
	if dry {
		return nil
	}
	p := f.pkg(manifest.Name)
	if _, exists := p.versions[manifest.Version]; exists {
		return fmt.Errorf("cannot publish over previously published version %s", manifest.Version)
	}
	files, err := readTree(dir)
	if err != nil {
		return err
	}
	p.versions[manifest.Version] = fakeVersion{hash: manifest.ContentHash, files: files}
	p.tags[tag] = manifest.Version
	return nil
}

// Tag implements npm.Registry.
func (f *FakeRegistry) Tag(ctx context.Context, name types.PackageName, version string, tag types.DistTag, dry bool) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, Call{Op: OpTag, Name: name, Version: version, Tag: tag, Dry: dry})

	if f.TagErr != nil {
		return f.TagErr
	}
	if dry {
		return nil
	}
	p := f.pkg(name)
	if _, ok := p.versions[version]; !ok {
		return fmt.Errorf("%w: %s@%s", npm.ErrPackageNotFound, name, version)
	}
	p.tags[tag] = version
	return nil
}

// Install implements npm.Installer. An empty version serves "latest".
func (f *FakeRegistry) Install(ctx context.Context, dir string, name types.PackageName, version string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, Call{Op: OpInstall, Name: name, Version: version})

	if f.InstallErr != nil {
		return f.Diagnostics, f.InstallErr
	}
	p, ok := f.packages[name]
	if ok && version == "" {
		version = p.tags[types.DistTagLatest]
	}
	var v fakeVersion
	if ok {
		v, ok = p.versions[version]
	}
	if !ok {
		return f.Diagnostics, fmt.Errorf("%w: %s@%s", npm.ErrPackageNotFound, name, version)
	}
	files := maps.Clone(v.files)
	if f.Tamper != nil {
		f.Tamper(files)
	}

	root := filepath.Join(dir, "node_modules", filepath.FromSlash(string(name)))
	for rel, data := range files {
		path := filepath.Join(root, filepath.FromSlash(rel))
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return "", err
		}
		if err := os.WriteFile(path, data, 0o644); err != nil {
			return "", err
		}
	}
	return f.Diagnostics, nil
}

func (f *FakeRegistry) pkg(name types.PackageName) *fakePackage {
	p, ok := f.packages[name]
	if !ok {
		p = &fakePackage{tags: make(map[types.DistTag]string), versions: make(map[string]fakeVersion)}
		f.packages[name] = p
	}
	return p
}

func readTree(dir string) (map[string][]byte, error) {
	files := make(map[string][]byte)
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		files[filepath.ToSlash(rel)] = data
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("reading package directory %s: %w", dir, err)
	}
	return files, nil
}
