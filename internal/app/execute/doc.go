// SPDX-License-Identifier: MPL-2.0

// Package execute wires configuration into an execution session: the
// artifact store, the goja module loader, the coordinator and the
// diagnostics channel. It runs the selected code-button blocks of a
// document in order and collects each block's status label, keeping the
// CLI layer free of capability construction.
package execute
