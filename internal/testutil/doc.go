// SPDX-License-Identifier: MPL-2.0

// Package testutil provides test doubles and fixture helpers shared by the
// workflow and CLI tests.
//
// FakeRegistry is an in-memory npm registry that implements both
// npm.Registry and npm.Installer, so a publish followed by a validation
// install round-trips real files. StaticSource serves a fixed typings list.
package testutil
