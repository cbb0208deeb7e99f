// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/codebutton/codebutton/internal/issue"

	"github.com/charmbracelet/fang"
)

func TestGetVersionString(t *testing.T) {
	// Not parallel: subtests mutate package-level Version/Commit/BuildDate vars.

	t.Run("ldflags version takes priority", func(t *testing.T) {
		origVersion, origCommit, origBuildDate := Version, Commit, BuildDate
		t.Cleanup(func() {
			Version, Commit, BuildDate = origVersion, origCommit, origBuildDate
		})

		Version = "v1.2.3"
		Commit = "abc1234"
		BuildDate = "2025-06-15T10:00:00Z"

		got := getVersionString()
		want := "v1.2.3 (commit: abc1234, built: 2025-06-15T10:00:00Z)"
		if got != want {
			t.Errorf("getVersionString() = %q, want %q", got, want)
		}
	})

	t.Run("fallback to dev when no build info", func(t *testing.T) {
		origVersion, origCommit, origBuildDate := Version, Commit, BuildDate
		t.Cleanup(func() {
			Version, Commit, BuildDate = origVersion, origCommit, origBuildDate
		})

		// Test binaries report Main.Version == "(devel)".
		Version = "dev"
		Commit = "unknown"
		BuildDate = "unknown"

		got := getVersionString()
		want := "dev (built from source)"
		if got != want {
			t.Errorf("getVersionString() = %q, want %q", got, want)
		}
	})
}

func TestFormatErrorForDisplay(t *testing.T) {
	t.Parallel()

	actionable := issue.NewErrorContext().
		WithOperation("load document").
		WithResource("notes.md").
		WithSuggestion("Check the path").
		Wrap(errors.New("no such file")).
		BuildError()

	tests := []struct {
		name    string
		err     error
		verbose bool
		want    []string
	}{
		{name: "plain error", err: errors.New("boom"), want: []string{"boom"}},
		{name: "actionable", err: actionable, want: []string{"failed to load document", "notes.md", "Check the path"}},
		{name: "wrapped actionable", err: &ExitError{Code: 1, Err: actionable}, want: []string{"failed to load document"}},
		{name: "verbose chain", err: actionable, verbose: true, want: []string{"Error chain:", "no such file"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got := formatErrorForDisplay(tt.err, tt.verbose)
			for _, w := range tt.want {
				if !strings.Contains(got, w) {
					t.Errorf("formatErrorForDisplay() = %q, want it to contain %q", got, w)
				}
			}
		})
	}
}

func TestHandleError(t *testing.T) {
	t.Parallel()

	t.Run("bare exit error is silent", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		handleError(&buf, fang.Styles{}, &ExitError{Code: 3}, false)
		if buf.Len() != 0 {
			t.Errorf("output = %q, want empty", buf.String())
		}
	})

	t.Run("actionable error is formatted", func(t *testing.T) {
		t.Parallel()

		err := issue.NewErrorContext().
			WithOperation("run code-button blocks").
			Wrap(errors.New("kaput")).
			BuildError()

		var buf bytes.Buffer
		handleError(&buf, fang.Styles{}, &ExitError{Code: 1, Err: err}, false)
		if !strings.Contains(buf.String(), "failed to run code-button blocks") {
			t.Errorf("output = %q", buf.String())
		}
	})
}

func TestExitError(t *testing.T) {
	t.Parallel()

	inner := errors.New("inner")
	tests := []struct {
		name string
		err  *ExitError
		want string
	}{
		{name: "with cause", err: &ExitError{Code: 1, Err: inner}, want: "inner"},
		{name: "code only", err: &ExitError{Code: 2}, want: "exit status 2"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if got := tt.err.Error(); got != tt.want {
				t.Errorf("Error() = %q, want %q", got, tt.want)
			}
		})
	}

	if !errors.Is(&ExitError{Code: 1, Err: inner}, inner) {
		t.Error("ExitError does not unwrap to its cause")
	}
}
