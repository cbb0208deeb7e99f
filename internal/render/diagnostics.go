// SPDX-License-Identifier: MPL-2.0

package render

import (
	"errors"
	"os"
	"sync/atomic"

	"github.com/codebutton/codebutton/internal/jsvm"
	"github.com/codebutton/codebutton/internal/transform"

	"github.com/charmbracelet/log"
)

// LogDiagnostics reports run failures through a charmbracelet logger. Each
// report is one error entry labelled with the context, followed in verbose
// mode by the cause chain and any JavaScript stack.
type LogDiagnostics struct {
	logger  *log.Logger
	verbose bool
	reports atomic.Int64
}

// NewLogDiagnostics returns a LogDiagnostics writing to logger. A nil logger
// writes to stderr.
func NewLogDiagnostics(logger *log.Logger, verbose bool) *LogDiagnostics {
	if logger == nil {
		logger = log.NewWithOptions(os.Stderr, log.Options{Prefix: "codebutton"})
	}
	return &LogDiagnostics{logger: logger, verbose: verbose}
}

// Report implements executor.Diagnostics. It never panics.
func (d *LogDiagnostics) Report(err error, contextLabel string) {
	defer func() {
		_ = recover()
	}()
	d.reports.Add(1)

	if err == nil {
		d.logger.Error(contextLabel)
		return
	}

	var transformErr *transform.TransformError
	if errors.As(err, &transformErr) && len(transformErr.Diagnostics) > 0 {
		loc := transformErr.Snippet.Location
		for _, diag := range transformErr.Diagnostics {
			if diag.Line == 0 {
				d.logger.Error(contextLabel, "stage", transformErr.Stage, "err", diag.Text)
				continue
			}
			d.logger.Error(contextLabel,
				"stage", transformErr.Stage,
				"line", loc.DocumentLine(diag.Line),
				"column", diag.Column+1,
				"err", diag.Text,
			)
		}
	} else {
		d.logger.Error(contextLabel, "err", err)
	}

	if !d.verbose {
		return
	}

	depth := 1
	for cause := errors.Unwrap(err); cause != nil; cause = errors.Unwrap(cause) {
		d.logger.Debug("caused by", "depth", depth, "err", cause)
		depth++
	}

	var scriptErr *jsvm.ScriptError
	if errors.As(err, &scriptErr) && scriptErr.Stack != "" {
		d.logger.Debug("stack", "trace", scriptErr.Stack)
	}
}

// Reports returns how many failures have been reported.
func (d *LogDiagnostics) Reports() int64 {
	return d.reports.Load()
}
