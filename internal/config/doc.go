// SPDX-License-Identifier: MPL-2.0

// Package config handles typesreg configuration using Viper with CUE as the file format.
//
// Configuration is loaded from $XDG_CONFIG_HOME/typesreg/config.cue
// (~/.config/typesreg/config.cue by default, ~/Library/Application Support on
// macOS, %APPDATA% on Windows), falling back to ./config.cue. Every key can be
// overridden with a TYPESREG_ environment variable, e.g. TYPESREG_REGISTRY_URL
// or TYPESREG_PATHS_OUTPUT_DIR.
//
// Files are validated against the embedded #Config schema (config_schema.cue)
// before they are merged over the defaults.
package config
