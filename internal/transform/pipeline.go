// SPDX-License-Identifier: MPL-2.0

package transform

import (
	"errors"
	"fmt"
	"strings"

	"github.com/codebutton/codebutton/internal/sourcemap"

	"github.com/dop251/goja/ast"
	"github.com/dop251/goja/parser"
	"github.com/evanw/esbuild/pkg/api"
)

const (
	// EntryFunction is the async function that holds the compiled snippet
	// body. The invocation shell exports a wrapper that awaits it.
	EntryFunction = "__codeButtonSnippet__"

	// PlaceholderSource is the file name the lowering stage records in the
	// map before repair.
	PlaceholderSource = "(code-button block script).ts"

	// SourceMediaType is the media type of the embedded original snippet.
	SourceMediaType = "application/typescript"

	entryHeader = "async function " + EntryFunction + "() {"
)

type (
	// Compiled is the loadable form of one snippet.
	Compiled struct {
		// Code is the compiled text up to, but excluding, the map comment.
		// It always ends with a line break.
		Code string
		// MapComment is the repaired `//# sourceMappingURL=` line.
		MapComment string
		// Map is the repaired source map. Sources[0] is a data: URI holding
		// the original snippet.
		Map *sourcemap.Map
		// Entry names the function Code declares for the snippet body.
		Entry string
	}

	// layout records where hoisting placed each piece of the snippet in the
	// lowering input. Line 0 of the input holds the hoisted imports and the
	// entry header in front of the first snippet line; every other snippet
	// line keeps its number.
	layout struct {
		imports       []importSpan
		prefixWidth   int
		prefixBytes   int
		lines         []string
		lastLineWidth int
	}

	importSpan struct {
		start, end         int
		byteStart, byteEnd int
		imp                hoistedImport
	}
)

// LoadableText returns the code followed by its inline map as the final line.
func (c Compiled) LoadableText() string {
	return c.Code + c.MapComment + "\n"
}

// CompileForExecution turns snippet text into text the goja_nodejs module
// loader can execute, with a source map whose origin embeds the snippet.
//
// The snippet is treated as the body of an async function: top-level await
// and return are allowed. Static imports are lifted to module scope and
// lowered to require() calls. The result is deterministic for a given
// snippet text.
func CompileForExecution(snippet Snippet) (Compiled, error) {
	h := hoistModuleSyntax(snippet.Text)
	input, lay := buildLoweringInput(snippet.Text, h)

	// With dynamic-import unsupported, import() becomes a promise around
	// require(), which the loader understands.
	result := api.Transform(input, api.TransformOptions{
		Loader:      api.LoaderTS,
		Format:      api.FormatCommonJS,
		Target:      api.ES2020,
		Supported:   map[string]bool{"dynamic-import": false},
		Charset:     api.CharsetUTF8,
		TreeShaking: api.TreeShakingFalse,
		Sourcemap:   api.SourceMapInline,
		Sourcefile:  PlaceholderSource,
		LogLevel:    api.LogLevelSilent,
	})
	if len(result.Errors) > 0 {
		return Compiled{}, &TransformError{
			Snippet:     snippet,
			Stage:       StageLower,
			Diagnostics: lay.lowerDiagnostics(result.Errors),
		}
	}

	return repairSourceMap(snippet, lay, string(result.Code))
}

func buildLoweringInput(src string, h hoisted) (string, layout) {
	var (
		b     strings.Builder
		lay   layout
		width int
	)
	for _, imp := range h.imports {
		w := utf16Len(imp.flat)
		lay.imports = append(lay.imports, importSpan{
			start:     width,
			end:       width + w,
			byteStart: b.Len(),
			byteEnd:   b.Len() + len(imp.flat),
			imp:       imp,
		})
		b.WriteString(imp.flat)
		width += w
	}
	b.WriteString(entryHeader)
	lay.prefixWidth = width + len(entryHeader)
	lay.prefixBytes = b.Len()

	b.WriteString(h.body)
	b.WriteString("\n}\n")

	lay.lines = strings.Split(src, "\n")
	lay.lastLineWidth = utf16Len(lay.lines[len(lay.lines)-1])
	return b.String(), lay
}

// original maps a 0-based input position (UTF-16 column) to the snippet.
func (l layout) original(line, column int) (int, int) {
	last := len(l.lines) - 1
	switch {
	case line > last:
		return last, l.lastLineWidth
	case line > 0:
		return line, column
	case column >= l.prefixWidth:
		return 0, column - l.prefixWidth
	}
	for _, sp := range l.imports {
		if column >= sp.start && column < sp.end {
			return sp.imp.position(column - sp.start)
		}
	}
	return 0, 0
}

// diagnostic positions a message given a 1-based input line and 0-based
// byte column.
func (l layout) diagnostic(text string, line, column int) Diagnostic {
	d := Diagnostic{Text: text, Line: line, Column: column}
	switch {
	case line > len(l.lines):
		d.Line = len(l.lines)
		d.Column = len(l.lines[d.Line-1])
	case line == 1 && column >= l.prefixBytes:
		d.Column = column - l.prefixBytes
	case line == 1:
		d.Column = 0
		for _, sp := range l.imports {
			if column >= sp.byteStart && column < sp.byteEnd {
				d.Line, d.Column = sp.imp.line+1, sp.imp.byteColumn
				break
			}
		}
	}
	if d.Line > 0 && d.Line <= len(l.lines) {
		d.LineText = strings.TrimRight(l.lines[d.Line-1], "\r")
	}
	return d
}

func (l layout) lowerDiagnostics(msgs []api.Message) []Diagnostic {
	diags := make([]Diagnostic, 0, len(msgs))
	for _, msg := range msgs {
		if msg.Location == nil || msg.Location.Line <= 0 {
			diags = append(diags, Diagnostic{Text: msg.Text})
			continue
		}
		diags = append(diags, l.diagnostic(msg.Text, msg.Location.Line, msg.Location.Column))
	}
	return diags
}

// repairSourceMap re-parses the lowered code to obtain its program root,
// then re-points the inline map at the original snippet.
func repairSourceMap(snippet Snippet, lay layout, code string) (Compiled, error) {
	fail := func(diags ...Diagnostic) (Compiled, error) {
		return Compiled{}, &TransformError{Snippet: snippet, Stage: StageRepair, Diagnostics: diags}
	}

	body, m, err := sourcemap.SplitInline(code)
	if err != nil {
		return fail(Diagnostic{Text: err.Error()})
	}

	root, err := parser.ParseFile(nil, PlaceholderSource, code, 0, parser.WithDisableSourceMaps)
	if err != nil {
		return fail(lay.parseDiagnostics(m, err)...)
	}
	if !declaresFunction(root, EntryFunction) {
		return fail(Diagnostic{Text: fmt.Sprintf("compiled program does not declare %s", EntryFunction)})
	}

	lines, err := sourcemap.DecodeMappings(m.Mappings)
	if err != nil {
		return fail(Diagnostic{Text: err.Error()})
	}
	for i := range lines {
		for j := range lines[i] {
			seg := &lines[i][j]
			if seg.HasSource && seg.Source == 0 {
				seg.OrigLine, seg.OrigColumn = lay.original(seg.OrigLine, seg.OrigColumn)
			}
		}
	}
	m.Mappings = sourcemap.EncodeMappings(lines)

	if len(m.Sources) == 0 {
		m.Sources = []string{""}
	}
	m.Sources[0] = sourcemap.DataURI(SourceMediaType, []byte(snippet.Text))
	contents := make([]string, len(m.Sources))
	copy(contents, m.SourcesContent)
	contents[0] = snippet.Text
	m.SourcesContent = contents

	comment, err := m.Comment()
	if err != nil {
		return fail(Diagnostic{Text: err.Error()})
	}

	return Compiled{Code: body, MapComment: comment, Map: m, Entry: EntryFunction}, nil
}

func (l layout) parseDiagnostics(m *sourcemap.Map, err error) []Diagnostic {
	var list parser.ErrorList
	if !errors.As(err, &list) {
		var single *parser.Error
		if !errors.As(err, &single) {
			return []Diagnostic{{Text: err.Error()}}
		}
		list = parser.ErrorList{single}
	}

	diags := make([]Diagnostic, 0, len(list))
	for _, e := range list {
		d := Diagnostic{Text: e.Message}
		if pos, ok := m.Original(e.Position.Line-1, e.Position.Column-1); ok {
			line, column := l.original(pos.Line, pos.Column)
			d.Line, d.Column = line+1, column
			d.LineText = strings.TrimRight(l.lines[line], "\r")
		}
		diags = append(diags, d)
	}
	return diags
}

func declaresFunction(root *ast.Program, name string) bool {
	for _, stmt := range root.Body {
		fn, ok := stmt.(*ast.FunctionDeclaration)
		if ok && fn.Function.Name != nil && string(fn.Function.Name.Name) == name {
			return true
		}
	}
	return false
}
