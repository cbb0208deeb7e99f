// SPDX-License-Identifier: MPL-2.0

package transform

import (
	"errors"
	"fmt"
	"strings"
)

const (
	// StageLower is the dialect normalization and module lowering stage.
	StageLower Stage = "lower"
	// StageRepair is the re-parse and source map repair stage.
	StageRepair Stage = "repair"
)

// ErrTransform is the sentinel matched by every *TransformError.
var ErrTransform = errors.New("snippet could not be compiled")

type (
	// Stage names the pipeline stage that rejected a snippet.
	Stage string

	// Diagnostic is one compiler message, positioned in snippet coordinates.
	Diagnostic struct {
		Text string
		// Line is 1-based; 0 means the message has no position.
		Line int
		// Column is 0-based within Line.
		Column int
		// LineText is the snippet line the message refers to.
		LineText string
	}

	// TransformError reports a snippet that could not be turned into
	// loadable text. It carries the original snippet text and location so
	// callers can point the user at the offending block.
	TransformError struct {
		Snippet     Snippet
		Stage       Stage
		Diagnostics []Diagnostic
	}
)

// Error implements the error interface.
func (e *TransformError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "compile %s", e.Snippet.Location)
	for i, d := range e.Diagnostics {
		if i == 0 {
			b.WriteString(": ")
		} else {
			b.WriteString("; ")
		}
		if d.Line > 0 {
			fmt.Fprintf(&b, "line %d:%d: ", e.Snippet.Location.DocumentLine(d.Line), d.Column+1)
		}
		b.WriteString(d.Text)
	}
	return b.String()
}

// Is reports whether target is ErrTransform.
func (e *TransformError) Is(target error) bool {
	return target == ErrTransform
}

// First returns the first diagnostic, or the zero value.
func (e *TransformError) First() Diagnostic {
	if len(e.Diagnostics) == 0 {
		return Diagnostic{}
	}
	return e.Diagnostics[0]
}
