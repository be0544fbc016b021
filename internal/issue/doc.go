// SPDX-License-Identifier: MPL-2.0

// Package issue provides actionable error handling with user-friendly messages.
//
// ActionableError carries the failed operation, the resource involved and
// remediation hints. Issue is a catalogue of Markdown guides, one per failure
// class of a registry run, rendered for the terminal with glamour.
package issue
