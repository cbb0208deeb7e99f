// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/codebutton/codebutton/internal/issue"
	"github.com/codebutton/codebutton/internal/watch"

	"github.com/spf13/cobra"
)

var globEscaper = strings.NewReplacer(`\`, `\\`, "*", `\*`, "?", `\?`, "[", `\[`, "{", `\{`)

func newWatchCommand(app *App, rootFlags *rootFlagValues) *cobra.Command {
	flags := &runFlagValues{}
	var clearScreen bool

	watchCmd := &cobra.Command{
		Use:   "watch <document>",
		Short: "Run code-button blocks on every save of a document",
		Long: `Run the code-button blocks of a Markdown document once, then again every
time the document is saved.

Changes are detected through file system notifications. When those are
unavailable, or watch.force_polling is set, the directory is rescanned every
watch.polling_interval. A save that arrives while a pass is still running
is picked up once the pass ends.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWatchMode(cmd.Context(), app, rootFlags, flags, clearScreen && app.isTerminal(), args[0])
		},
	}

	addSelectionFlags(watchCmd, flags)
	watchCmd.Flags().BoolVar(&flags.plain, "plain", false, "print the document as plain text instead of rendered Markdown")
	watchCmd.Flags().BoolVar(&clearScreen, "clear", false, "clear the terminal before each pass")

	return watchCmd
}

// runWatchMode runs one pass immediately, then re-runs on every change of
// the document until ctx is canceled (e.g., Ctrl+C).
func runWatchMode(ctx context.Context, app *App, rootFlags *rootFlagValues, flags *runFlagValues, clearScreen bool, path string) error {
	cfg, err := app.loadConfig(ctx, rootFlags)
	if err != nil {
		return err
	}
	session, err := app.newSession(cfg, rootFlags)
	if err != nil {
		return err
	}

	debounce, err := cfg.Watch.Debounce.Parse()
	if err != nil {
		return err
	}
	pollInterval, err := cfg.Watch.PollingInterval.Parse()
	if err != nil {
		return err
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		return issue.WrapWithContext(err, "resolve document path", path)
	}

	pass := func(ctx context.Context) {
		if passErr := runPass(ctx, app, session, cfg, flags, absPath); passErr != nil {
			// Keep watching; the user may fix the document and save again.
			fmt.Fprintf(app.stderr, "%s %s\n", WarningStyle.Render("!"), formatErrorForDisplay(passErr, rootFlags.verbose))
		}
	}

	fmt.Fprintf(app.stdout, "%s Watch mode: initial run of %s\n", VerboseHighlightStyle.Render("→"), path)
	pass(ctx)

	w, err := watch.New(watch.Config{
		Patterns:     []string{globEscaper.Replace(filepath.Base(absPath))},
		BaseDir:      filepath.Dir(absPath),
		Debounce:     debounce,
		PollInterval: pollInterval,
		ForcePolling: cfg.Watch.ForcePolling,
		ClearScreen:  clearScreen,
		OnChange: func(ctx context.Context, _ []string) error {
			fmt.Fprintf(app.stdout, "%s Detected a change. Re-running %s...\n", VerboseHighlightStyle.Render("→"), path)
			pass(ctx)
			fmt.Fprintf(app.stdout, "\n%s Watching for changes...\n\n", VerboseHighlightStyle.Render("→"))
			return nil
		},
		Stdout: app.stdout,
		Logger: app.logger(rootFlags.verbose || cfg.UI.Verbose).WithPrefix("watch"),
	})
	if err != nil {
		return issue.NewErrorContext().
			WithOperation("watch document").
			WithResource(path).
			WithSuggestion("Set watch.force_polling to true to rescan the directory instead").
			WithIssue(issue.WatchUnavailableId).
			Wrap(err).
			BuildError()
	}

	how := "Ctrl+C to stop"
	if w.Mode() == watch.ModePolling {
		how = fmt.Sprintf("polling every %s, Ctrl+C to stop", pollInterval)
	}
	fmt.Fprintf(app.stdout, "\n%s Watching for changes (%s)...\n\n", VerboseHighlightStyle.Render("→"), how)

	return w.Run(ctx)
}
