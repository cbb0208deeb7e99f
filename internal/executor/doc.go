// SPDX-License-Identifier: MPL-2.0

// Package executor owns the lifecycle of one code-button trigger.
//
// A Coordinator moves a Trigger from Idle to Executing, compiles the snippet,
// wraps it in the invocation shell, materializes it as an artifact, loads and
// invokes it, then settles the trigger as Succeeded or Failed. Cleanup of the
// artifact runs on every path, including deadlines and materialization
// failures. All collaborators (file system, module loader, status surface and
// diagnostics) are interfaces so the lifecycle can be driven from tests
// without a JavaScript runtime.
package executor
