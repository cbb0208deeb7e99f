// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"runtime/debug"

	"github.com/codebutton/codebutton/internal/issue"

	"github.com/charmbracelet/fang"
	"github.com/spf13/cobra"
)

var (
	// Version is the semantic version (set via -ldflags).
	Version = "dev"
	// Commit is the git commit hash (set via -ldflags).
	Commit = "unknown"
	// BuildDate is the build timestamp (set via -ldflags).
	BuildDate = "unknown"
)

// rootFlagValues holds the persistent flags shared by every subcommand.
type rootFlagValues struct {
	verbose    bool
	configPath string
}

// NewRootCommand builds the command tree around app.
func NewRootCommand(app *App) *cobra.Command {
	rootFlags := &rootFlagValues{}

	rootCmd := &cobra.Command{
		Use:   "codebutton",
		Short: "Run the code-button blocks of Markdown documents",
		Long: TitleStyle.Render("codebutton") + SubtitleStyle.Render(" - Run the code-button blocks of Markdown documents") + `

codebutton finds fenced blocks tagged ` + "`code-button`" + ` in a Markdown
document, compiles each one from TypeScript to a loadable module with a
source map pointing back into the document, and runs it in an embedded
JavaScript runtime. Every run cleans up after itself.

` + SubtitleStyle.Render("Examples:") + `
  codebutton list notes.md            List the blocks of notes.md
  codebutton run notes.md             Run every block, then show the document
  codebutton run notes.md --block 2   Run only the third block
  codebutton watch notes.md           Re-run on every save
  codebutton config show              Show current configuration`,
	}

	rootCmd.PersistentFlags().BoolVarP(&rootFlags.verbose, "verbose", "v", false, "enable verbose output")
	rootCmd.PersistentFlags().StringVar(&rootFlags.configPath, "config", "", "config file (default is $XDG_CONFIG_HOME/codebutton/config.cue)")

	rootCmd.AddCommand(
		newRunCommand(app, rootFlags),
		newListCommand(app),
		newCompileCommand(app),
		newWatchCommand(app, rootFlags),
		newConfigCommand(app, rootFlags),
	)

	return rootCmd
}

// getVersionString returns a formatted version string for display.
// ldflags win; go-install builds fall back to the module version.
func getVersionString() string {
	if Version != "dev" {
		return fmt.Sprintf("%s (commit: %s, built: %s)", Version, Commit, BuildDate)
	}
	if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" && info.Main.Version != "(devel)" {
		return info.Main.Version
	}
	return "dev (built from source)"
}

// Execute builds the App and runs the root command. This is called by main.main().
func Execute() {
	app, err := NewApp(Dependencies{})
	if err != nil {
		fmt.Fprintln(os.Stderr, ErrorStyle.Render("Error: ")+err.Error())
		os.Exit(1)
	}

	rootCmd := NewRootCommand(app)
	verbose := func() bool {
		v, _ := rootCmd.PersistentFlags().GetBool("verbose")
		return v
	}

	// fang overrides rootCmd.Version, so the version goes through WithVersion.
	if err := fang.Execute(
		context.Background(),
		rootCmd,
		fang.WithVersion(getVersionString()),
		fang.WithNotifySignal(os.Interrupt),
		fang.WithErrorHandler(func(w io.Writer, styles fang.Styles, err error) {
			handleError(w, styles, err, verbose())
		}),
	); err != nil {
		var exitErr *ExitError
		if errors.As(err, &exitErr) {
			os.Exit(exitErr.Code)
		}
		os.Exit(1)
	}
}

// handleError prints err for the user. ActionableErrors print their own
// format; a bare ExitError prints nothing since its command already reported.
func handleError(w io.Writer, styles fang.Styles, err error, verbose bool) {
	var exitErr *ExitError
	if errors.As(err, &exitErr) && exitErr.Err == nil {
		return
	}

	var ae *issue.ActionableError
	if !errors.As(err, &ae) {
		fang.DefaultErrorHandler(w, styles, err)
		return
	}

	fmt.Fprintln(w, ErrorStyle.Render("Error: ")+formatErrorForDisplay(err, verbose))
	if !verbose {
		return
	}
	if guide := ae.Issue(); guide != nil {
		if rendered, renderErr := guide.Render("auto"); renderErr == nil {
			fmt.Fprint(w, rendered)
		}
	}
}

// formatErrorForDisplay formats an error for user display.
// If the error is an ActionableError, it uses the Format method.
// In verbose mode, shows the full error chain.
func formatErrorForDisplay(err error, verboseMode bool) string {
	var ae *issue.ActionableError
	if errors.As(err, &ae) {
		return ae.Format(verboseMode)
	}
	return err.Error()
}
