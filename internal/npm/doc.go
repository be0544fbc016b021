// SPDX-License-Identifier: MPL-2.0

// Package npm talks to an npm registry.
//
// Package metadata is read directly from the registry's JSON API over HTTP.
// Publishing, dist-tag changes and installs go through the npm CLI so that
// the operator's existing npm authentication applies unchanged.
package npm
