// SPDX-License-Identifier: MPL-2.0

package registry

import "github.com/typesreg/typesreg/pkg/types"

const (
	// PackageName is the npm name of the published registry package.
	PackageName types.PackageName = "types-registry"

	manifestDescription = "A registry of TypeScript declaration file packages published within the @types scope."
	manifestAuthor      = "Microsoft Corp."
	manifestLicense     = "MIT"
	repositoryType      = "git"
	repositoryURL       = "https://github.com/Microsoft/types-publisher.git"
)

type (
	// Repository is the "repository" field of a package.json.
	Repository struct {
		Type string `json:"type"`
		URL  string `json:"url"`
	}

	// Manifest is the package.json of the types-registry package. ContentHash
	// lets the next run detect whether the listing changed since this publish.
	Manifest struct {
		Name        types.PackageName `json:"name"`
		Version     string            `json:"version"`
		Description string            `json:"description"`
		Repository  Repository        `json:"repository"`
		Keywords    []string          `json:"keywords"`
		Author      string            `json:"author"`
		License     string            `json:"license"`
		ContentHash ContentHash       `json:"contentHash"`
	}
)

// NewManifest returns the manifest for version carrying hash. Every other
// field is fixed.
func NewManifest(version Version, hash ContentHash) Manifest {
	return Manifest{
		Name:        PackageName,
		Version:     version.String(),
		Description: manifestDescription,
		Repository: Repository{
			Type: repositoryType,
			URL:  repositoryURL,
		},
		Keywords:    []string{"TypeScript", "declaration", "files", "types", "packages"},
		Author:      manifestAuthor,
		License:     manifestLicense,
		ContentHash: hash,
	}
}
