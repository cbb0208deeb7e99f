// SPDX-License-Identifier: MPL-2.0

// Package cmd contains all CLI commands for codebutton.
//
// This package implements the Cobra command hierarchy: running, listing and
// compiling the code-button blocks of a Markdown document, watching a
// document for changes, and managing the configuration file.
package cmd
