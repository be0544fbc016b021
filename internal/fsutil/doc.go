// SPDX-License-Identifier: MPL-2.0

// Package fsutil holds the filesystem helpers used by the publish workflow:
// resetting an output directory, writing JSON and text files, and asserting
// that two directory trees hold identical bytes.
package fsutil
