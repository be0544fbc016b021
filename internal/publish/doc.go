// SPDX-License-Identifier: MPL-2.0

// Package publish decides whether the registry package needs a new version.
//
// A run fetches the previously published version, regenerates the listing,
// writes it to the output directory and compares content hashes. A changed
// listing is published under the "next" dist-tag, validated by installing it
// back, and promoted to "latest". An unchanged listing is only validated.
// Every decision is recorded in a markdown run log.
package publish
