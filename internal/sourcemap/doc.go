// SPDX-License-Identifier: MPL-2.0

// Package sourcemap reads and writes version 3 source maps as emitted inline by
// JavaScript compilers.
//
// The package covers exactly what the transform pipeline needs to repair a map
// after compilation: splitting the trailing `//# sourceMappingURL=` comment off
// compiled text, decoding and re-encoding the Base64 VLQ `mappings` field
// segment by segment, and building or decoding the `data:` URIs used for
// self-describing sources.
package sourcemap
