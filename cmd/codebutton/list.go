// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"

	"github.com/codebutton/codebutton/internal/app/execute"

	"github.com/spf13/cobra"
)

func newListCommand(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "list <document>",
		Short: "List the code-button blocks of a document",
		Long: `List the code-button blocks of a Markdown document with their index,
caption and line range. Blocks nested in a block quote or list item are
marked unavailable; they cannot be run.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return listBlocks(app, args[0])
		},
	}
}

func listBlocks(app *App, path string) error {
	session := execute.NewSession(app.Fs, execute.Options{Logger: app.logger(false)})
	_, blocks, err := session.Select(path, nil, "")
	if err != nil {
		return err
	}

	fmt.Fprintln(app.stdout, TitleStyle.Render("Code-button blocks in "+path))
	for _, b := range blocks {
		line := fmt.Sprintf("  %s %s  %s",
			CmdStyle.Render(fmt.Sprintf("[%d]", b.Index)),
			captionStyle.Render(b.Label()),
			lineRangeStyle.Render(fmt.Sprintf("lines %d-%d", b.LineStart+1, b.LineEnd+1)))
		if !b.Available {
			line += "  " + WarningStyle.Render("(unavailable)")
		}
		fmt.Fprintln(app.stdout, line)
	}
	return nil
}
