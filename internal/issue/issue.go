// SPDX-License-Identifier: MPL-2.0

package issue

import (
	"maps"
	"slices"
	"strings"

	"github.com/charmbracelet/glamour"
)

type Id int

const (
	DocumentNotFoundId Id = iota + 1
	NoCodeButtonBlocksId
	BlockNotFoundId
	SectionUnavailableId
	SnippetCompileFailedId
	SnippetExecutionFailedId
	StartupScriptFailedId
	ConfigLoadFailedId
	PermissionDeniedId
	WatchUnavailableId
)

type MarkdownMsg string

type HttpLink string

type Renderer interface {
	Render(in string, stylePath string) (string, error)
}

type Issue struct {
	id       Id          // ID used to lookup the issue
	mdMsg    MarkdownMsg // Markdown text that will be rendered
	extLinks []HttpLink  // external links that might be useful for the user
}

func (i *Issue) Id() Id {
	return i.id
}

func (i *Issue) MarkdownMsg() MarkdownMsg {
	return i.mdMsg
}

// Render renders the issue as terminal Markdown. stylePath is a glamour
// style name ("dark", "light", "notty") or a path to a JSON style.
func (i *Issue) Render(stylePath string) (string, error) {
	var md strings.Builder
	md.WriteString(string(i.mdMsg))
	if len(i.extLinks) > 0 {
		md.WriteString("\n\n## See also:\n")
		for _, link := range i.extLinks {
			md.WriteString("- <" + string(link) + ">\n")
		}
	}
	return render(md.String(), stylePath)
}

var (
	render = glamour.Render

	documentNotFoundIssue = &Issue{
		id: DocumentNotFoundId,
		mdMsg: `
# Document not found!

The Markdown document you asked for does not exist or is not a regular file.

## Things you can try:
- Check the path for typos; relative paths resolve from the current directory
- List the documents next to it:
~~~
$ ls *.md
~~~`,
	}

	noCodeButtonBlocksIssue = &Issue{
		id: NoCodeButtonBlocksId,
		mdMsg: `
# No code-button blocks!

The document parsed fine but has no fenced block with the ` + "`code-button`" + ` language.

## Example block:
~~~markdown
` + "```code-button Say hello" + `
const name: string = "world";
console.log(` + "`hello ${name}`" + `);
` + "```" + `
~~~

## Things you can try:
- Make sure the opening fence reads exactly ` + "`code-button`" + `, optionally followed by a caption`,
	}

	blockNotFoundIssue = &Issue{
		id: BlockNotFoundId,
		mdMsg: `
# Code-button block not found!

No block matches the index or caption you selected.

## Things you can try:
- List the blocks of the document with their indices and captions:
~~~
$ codebutton list <document.md>
~~~
- Block indices start at 0 and follow document order`,
	}

	sectionUnavailableIssue = &Issue{
		id: SectionUnavailableId,
		mdMsg: `
# Could not get code block info!

The block is nested inside another construct (a block quote or a list item),
so its opening fence does not start a document section and it cannot run.

## Things you can try:
- Move the block to the top level of the document
- Re-run the command after saving the document`,
	}

	snippetCompileFailedIssue = &Issue{
		id: SnippetCompileFailedId,
		mdMsg: `
# Snippet failed to compile!

The block's TypeScript could not be turned into runnable JavaScript. The
reported line and column point into the document.

## Things you can try:
- Fix the syntax error at the reported position
- Print the compiled module to inspect what the runtime receives:
~~~
$ codebutton compile <document.md> --block 0
~~~`,
		extLinks: []HttpLink{"https://esbuild.github.io/content-types/#typescript-caveats"},
	}

	snippetExecutionFailedIssue = &Issue{
		id: SnippetExecutionFailedId,
		mdMsg: `
# Snippet failed!

At least one block threw, rejected, or did not settle before the timeout.
The console output above has the details for each failed block.

## Things you can try:
- Run again with ` + "`--verbose`" + ` to see the full error chain and stack
- Raise ` + "`timeout`" + ` in your config for long running blocks`,
		extLinks: []HttpLink{"https://pkg.go.dev/time#ParseDuration"},
	}

	startupScriptFailedIssue = &Issue{
		id: StartupScriptFailedId,
		mdMsg: `
# Startup script failed!

The script configured as ` + "`startup_script_path`" + ` could not be loaded or threw.

## Things you can try:
- Check that the path is correct; it resolves relative to ` + "`modules_root`" + `
- Clear the setting to skip the startup script:
~~~
$ codebutton config show
~~~`,
	}

	configLoadFailedIssue = &Issue{
		id: ConfigLoadFailedId,
		mdMsg: `
# Failed to load configuration!

The configuration file exists but could not be read or does not match the schema.

## Things you can try:
- Print where the configuration is read from:
~~~
$ codebutton config path
~~~
- Write a fresh default configuration:
~~~
$ codebutton config init
~~~
- Durations such as ` + "`timeout`" + ` use Go syntax, for example ` + "`\"30s\"`" + ` or ` + "`\"2m\"`",
		extLinks: []HttpLink{"https://cuelang.org/docs/"},
	}

	permissionDeniedIssue = &Issue{
		id: PermissionDeniedId,
		mdMsg: `
# Permission denied!

Snippets are written next to their document before they run, and that
directory is not writable.

## Things you can try:
- Check the permissions of the document's directory
- Point ` + "`artifact_dir`" + ` in your config at a writable directory`,
	}

	watchUnavailableIssue = &Issue{
		id: WatchUnavailableId,
		mdMsg: `
# File watching unavailable!

The operating system refused to watch the document for changes.

## Things you can try:
- Force polling instead of file system events:
~~~cue
watch: {
	force_polling: true
	polling_interval: "30s"
}
~~~`,
		extLinks: []HttpLink{"https://github.com/fsnotify/fsnotify"},
	}

	issues = map[Id]*Issue{
		documentNotFoundIssue.Id():       documentNotFoundIssue,
		noCodeButtonBlocksIssue.Id():     noCodeButtonBlocksIssue,
		blockNotFoundIssue.Id():          blockNotFoundIssue,
		sectionUnavailableIssue.Id():     sectionUnavailableIssue,
		snippetCompileFailedIssue.Id():   snippetCompileFailedIssue,
		snippetExecutionFailedIssue.Id(): snippetExecutionFailedIssue,
		startupScriptFailedIssue.Id():    startupScriptFailedIssue,
		configLoadFailedIssue.Id():       configLoadFailedIssue,
		permissionDeniedIssue.Id():       permissionDeniedIssue,
		watchUnavailableIssue.Id():       watchUnavailableIssue,
	}
)

// Values returns every known issue ordered by ID.
func Values() []*Issue {
	return slices.SortedFunc(maps.Values(issues), func(a, b *Issue) int {
		return int(a.id) - int(b.id)
	})
}

func Get(id Id) *Issue {
	return issues[id]
}
