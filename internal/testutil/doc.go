// SPDX-License-Identifier: MPL-2.0

// Package testutil holds test helpers that fail the test on setup errors:
// environment and working directory changes with restore functions
// (MustSetenv, MustChdir, SetHomeDir) and file system setup (MustWriteFile,
// MustMkdirAll).
package testutil
