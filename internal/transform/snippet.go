// SPDX-License-Identifier: MPL-2.0

package transform

import (
	"fmt"
)

// NoCaption is shown for blocks whose opening fence carries no caption.
const NoCaption = "(no caption)"

type (
	// Location identifies where a snippet was written. It is used for
	// diagnostics only and never for caching.
	Location struct {
		// Path of the document holding the snippet.
		Path string
		// LineStart and LineEnd are the 0-based lines of the opening and
		// closing fences.
		LineStart int
		LineEnd   int
		// Caption is the text after the fence info string, if any.
		Caption string
	}

	// Snippet is the user-authored code captured at trigger time.
	Snippet struct {
		Text     string
		Location Location
	}
)

// DocumentLine converts a 1-based snippet line to the 1-based document line
// it was written on.
func (l Location) DocumentLine(snippetLine int) int {
	return l.LineStart + 1 + snippetLine
}

// Label returns the caption, or NoCaption when it is empty.
func (l Location) Label() string {
	if l.Caption == "" {
		return NoCaption
	}
	return l.Caption
}

// String renders the location as `path:line (caption)`, or
// `path:line (no caption)` for blocks without one.
func (l Location) String() string {
	path := l.Path
	if path == "" {
		path = "<snippet>"
	}
	if l.Caption == "" {
		return fmt.Sprintf("%s:%d %s", path, l.LineStart+1, NoCaption)
	}
	return fmt.Sprintf("%s:%d (%s)", path, l.LineStart+1, l.Caption)
}
