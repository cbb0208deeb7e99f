// SPDX-License-Identifier: MPL-2.0

// Package issue provides actionable errors and a catalogue of Markdown
// guidance for the failures users hit most often: missing documents, blocks
// that cannot run and configuration that does not load.
package issue
