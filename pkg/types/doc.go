// SPDX-License-Identifier: MPL-2.0

// Package types defines the validated value types shared by the registry,
// npm and publish packages: npm package names, dist-tags and process exit
// codes.
//
// This package is a leaf dependency. Apart from golang.org/x/mod/semver it
// imports only the standard library.
package types
