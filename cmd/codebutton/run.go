// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/codebutton/codebutton/internal/app/execute"
	"github.com/codebutton/codebutton/internal/artifact"
	"github.com/codebutton/codebutton/internal/config"
	"github.com/codebutton/codebutton/internal/render"

	"github.com/spf13/cobra"
)

// durationPrecision rounds block durations in the run summary.
const durationPrecision = time.Millisecond

// runFlagValues holds the flags of `codebutton run`. watch reuses them for
// block selection and rendering.
type runFlagValues struct {
	blocks  []int
	caption string
	plain   bool
}

func newRunCommand(app *App, rootFlags *rootFlagValues) *cobra.Command {
	flags := &runFlagValues{}

	runCmd := &cobra.Command{
		Use:   "run <document>",
		Short: "Run code-button blocks and show the document with their status",
		Long: `Run the code-button blocks of a Markdown document in document order.

Each block is compiled, written next to the document as a hidden artifact,
loaded, invoked and cleaned up. The document is then printed with the
status of every block that ran. The exit status is 1 when any block failed.`,
		Example: `  codebutton run notes.md
  codebutton run notes.md --block 0 --block 2
  codebutton run notes.md --caption "Say hello" --plain`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDocument(cmd.Context(), app, rootFlags, flags, args[0])
		},
	}

	addSelectionFlags(runCmd, flags)
	runCmd.Flags().BoolVar(&flags.plain, "plain", false, "print the document as plain text instead of rendered Markdown")

	return runCmd
}

func addSelectionFlags(c *cobra.Command, flags *runFlagValues) {
	c.Flags().IntSliceVarP(&flags.blocks, "block", "b", nil, "run only the block with this index (repeatable)")
	c.Flags().StringVar(&flags.caption, "caption", "", "run only blocks with this caption")
}

func runDocument(ctx context.Context, app *App, rootFlags *rootFlagValues, flags *runFlagValues, path string) error {
	cfg, err := app.loadConfig(ctx, rootFlags)
	if err != nil {
		return err
	}
	session, err := app.newSession(cfg, rootFlags)
	if err != nil {
		return err
	}
	return runPass(ctx, app, session, cfg, flags, path)
}

// runPass sweeps leftovers, runs the selected blocks and prints the view.
// Failed blocks yield an ExitError with code 1.
func runPass(ctx context.Context, app *App, session *execute.Session, cfg *config.Config, flags *runFlagValues, path string) error {
	if _, err := session.Sweep(artifact.Dir(path, cfg.ArtifactDir)); err != nil {
		fmt.Fprintf(app.stderr, "%s Could not remove stale artifacts: %v\n", WarningStyle.Render("!"), err)
	}

	report, err := session.RunDocument(ctx, path, flags.blocks, flags.caption)
	if err != nil {
		return err
	}

	if err := printView(app, cfg, report, flags.plain); err != nil {
		return err
	}
	printSummary(app.stdout, report)

	if runErr := report.Err(); runErr != nil {
		return &ExitError{Code: 1, Err: runErr}
	}
	return nil
}

// printView prints the document annotated with block statuses. --plain wins
// over ui.render.
func printView(app *App, cfg *config.Config, report execute.Report, plain bool) error {
	mode, err := render.ParseMode(cfg.UI.Render.String())
	if err != nil {
		return err
	}
	if plain {
		mode = render.ModePlain
	}

	view, err := render.Render(report.Document, report.Labels(), render.ViewOptions{
		Mode:  mode.Resolve(app.isTerminal()),
		Style: cfg.UI.ColorScheme.String(),
		Width: render.DefaultWidth,
	})
	if err != nil {
		return err
	}
	fmt.Fprint(app.stdout, view)
	if !strings.HasSuffix(view, "\n") {
		fmt.Fprintln(app.stdout)
	}
	return nil
}

func printSummary(w io.Writer, report execute.Report) {
	fmt.Fprintln(w, summaryHeaderStyle.Render("Summary"))
	for _, res := range report.Results {
		status, _, _ := strings.Cut(res.Label, "\n")
		line := fmt.Sprintf("  %s %s  %s", CmdStyle.Render(fmt.Sprintf("[%d]", res.Block.Index)),
			captionStyle.Render(res.Block.Label()), statusStyle(res.Label).Render(status))
		if res.Outcome.Duration > 0 {
			line += " " + VerboseStyle.Render("("+res.Outcome.Duration.Round(durationPrecision).String()+")")
		}
		fmt.Fprintln(w, line)
	}

	total, failed := len(report.Results), report.Failed()
	if failed == 0 {
		fmt.Fprintf(w, "%s %d of %d blocks succeeded\n", SuccessStyle.Render("✓"), total, total)
		return
	}
	fmt.Fprintf(w, "%s %d of %d blocks failed\n", ErrorStyle.Render("✗"), failed, total)
}
