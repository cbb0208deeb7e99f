// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/codebutton/codebutton/internal/app/execute"
	"github.com/codebutton/codebutton/internal/issue"
	"github.com/codebutton/codebutton/internal/transform"

	"github.com/spf13/cobra"
)

// compileFlagValues holds the flags of `codebutton compile`.
type compileFlagValues struct {
	block   int
	showMap bool
}

func newCompileCommand(app *App) *cobra.Command {
	flags := &compileFlagValues{}

	compileCmd := &cobra.Command{
		Use:   "compile <document>",
		Short: "Print the module a block compiles to",
		Long: `Print the loadable text of one code-button block: the CommonJS module
that would be written next to the document, ending with its inline source
map. With --map the decoded source map follows as JSON.`,
		Example: `  codebutton compile notes.md --block 0
  codebutton compile notes.md --block 1 --map`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return compileBlock(app, flags, args[0])
		},
	}

	compileCmd.Flags().IntVarP(&flags.block, "block", "b", 0, "index of the block to compile")
	compileCmd.Flags().BoolVar(&flags.showMap, "map", false, "also print the decoded source map")
	_ = compileCmd.MarkFlagRequired("block")

	return compileCmd
}

func compileBlock(app *App, flags *compileFlagValues, path string) error {
	session := execute.NewSession(app.Fs, execute.Options{Logger: app.logger(false)})
	doc, blocks, err := session.Select(path, []int{flags.block}, "")
	if err != nil {
		return err
	}
	b := blocks[0]

	snippet, err := doc.Snippet(b)
	if err != nil {
		return issue.NewErrorContext().
			WithOperation("compile code-button block").
			WithResource(fmt.Sprintf("%s [%d] %s", path, b.Index, b.Label())).
			WithSuggestion("Move the block out of the block quote or list item it is nested in").
			WithIssue(issue.SectionUnavailableId).
			Wrap(err).
			BuildError()
	}

	compiled, err := transform.CompileForExecution(snippet)
	if err != nil {
		return issue.NewErrorContext().
			WithOperation("compile code-button block").
			WithResource(snippet.Location.String()).
			WithIssue(issue.SnippetCompileFailedId).
			Wrap(err).
			BuildError()
	}

	fmt.Fprint(app.stdout, compiled.LoadableText())
	if !flags.showMap {
		return nil
	}

	data, err := json.MarshalIndent(compiled.Map, "", "  ")
	if err != nil {
		return issue.WrapWithOperation(err, "encode source map")
	}
	fmt.Fprintln(app.stdout)
	fmt.Fprintln(app.stdout, string(data))
	return nil
}
