// SPDX-License-Identifier: MPL-2.0

// Package transform compiles code-button snippets into loadable CommonJS text.
//
// Compilation runs in two strictly ordered stages. The lowering stage strips
// TypeScript syntax and rewrites ESM imports into require() calls using
// esbuild, emitting an inline source map that points at a placeholder file
// name. The repair stage re-parses that output with goja's parser to obtain
// its program root, then rewrites the map so that sources[0] is a data: URI
// embedding the original snippet. Stack traces therefore resolve to the
// snippet text even after the file that held the compiled code is gone.
package transform
