// SPDX-License-Identifier: MPL-2.0

// Package registry builds the contents of the types-registry package: the
// listing of every valid type-declaration package, its content hash, the
// next version number and the publishable manifest.
//
// Everything here is pure. Reading typings data, writing files and talking to
// the npm registry live in the internal packages that consume this one.
package registry
