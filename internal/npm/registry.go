// SPDX-License-Identifier: MPL-2.0

package npm

import (
	"context"

	"github.com/typesreg/typesreg/pkg/registry"
	"github.com/typesreg/typesreg/pkg/types"
)

type (
	// PackageMetadata is what the registry reports about the latest version
	// of a package.
	PackageMetadata struct {
		Version string
		// ContentHash is empty when the published manifest carried none.
		ContentHash registry.ContentHash
	}

	// Registry is the subset of registry operations the publish workflow needs.
	Registry interface {
		// FetchLatest returns the version the "latest" dist-tag points at and
		// the content hash stored in that version's manifest.
		FetchLatest(ctx context.Context, name types.PackageName) (PackageMetadata, error)
		// Publish uploads the package in dir under tag. With dry set it only
		// reports what it would do.
		Publish(ctx context.Context, dir string, manifest registry.Manifest, tag types.DistTag, dry bool) error
		// Tag points tag at name@version. With dry set it only reports what
		// it would do.
		Tag(ctx context.Context, name types.PackageName, version string, tag types.DistTag, dry bool) error
	}

	// Installer installs a published package into a directory.
	Installer interface {
		// Install runs the install of name@version in dir, or of the version
		// behind "latest" when version is empty. It returns whatever the
		// installer wrote to stderr; non-empty diagnostics do not mean failure.
		Install(ctx context.Context, dir string, name types.PackageName, version string) (diagnostics string, err error)
	}
)
