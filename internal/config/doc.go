// SPDX-License-Identifier: MPL-2.0

// Package config handles application configuration using Viper with CUE as the file format.
//
// Configuration is loaded from ~/.config/codebutton/config.cue (XDG on Linux,
// ~/Library/Application Support/codebutton/config.cue on macOS,
// %APPDATA%\codebutton\config.cue on Windows), falling back to ./config.cue.
// Files are validated against the embedded #Config schema (config_schema.cue)
// and any key can be overridden through CODEBUTTON_* environment variables.
//
// The legacy invocable_scripts_directory setting is migrated to
// invocable_scripts_folder on load and the file is rewritten.
package config
