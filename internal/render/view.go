// SPDX-License-Identifier: MPL-2.0

package render

import (
	"fmt"
	"strings"

	"github.com/codebutton/codebutton/internal/document"

	"github.com/charmbracelet/glamour"
)

// Mode selects how the document view is printed.
type Mode string

const (
	// ModeAuto renders Markdown on a terminal and plain text otherwise.
	ModeAuto Mode = "auto"
	// ModeMarkdown renders the view through glamour.
	ModeMarkdown Mode = "markdown"
	// ModePlain prints the annotated document text as is.
	ModePlain Mode = "plain"

	// DefaultWidth is the word wrap width of Markdown output.
	DefaultWidth = 100
)

type (
	// InvalidModeError is returned by ParseMode for unknown values.
	InvalidModeError struct {
		Value string
	}

	// ViewOptions controls Render.
	ViewOptions struct {
		Mode Mode
		// Style is a glamour style name. "auto" and "" detect the terminal
		// background.
		Style string
		Width int
	}
)

func (e *InvalidModeError) Error() string {
	return fmt.Sprintf("invalid render mode %q (valid: auto, markdown, plain)", e.Value)
}

// ParseMode converts a config or flag value to a Mode.
func ParseMode(s string) (Mode, error) {
	switch m := Mode(strings.ToLower(strings.TrimSpace(s))); m {
	case "":
		return ModeAuto, nil
	case ModeAuto, ModeMarkdown, ModePlain:
		return m, nil
	default:
		return "", &InvalidModeError{Value: s}
	}
}

// Resolve turns ModeAuto into a concrete mode.
func (m Mode) Resolve(terminal bool) Mode {
	if m != ModeAuto {
		return m
	}
	if terminal {
		return ModeMarkdown
	}
	return ModePlain
}

// Render prints doc with each labelled block followed by its status.
// labels maps block indices to label text; blocks without an entry, or with
// empty text, are printed unannotated.
func Render(doc *document.Document, labels map[int]string, opts ViewOptions) (string, error) {
	if opts.Mode != ModeMarkdown {
		return annotate(doc, labels, plainStatus), nil
	}

	width := opts.Width
	if width <= 0 {
		width = DefaultWidth
	}
	styleOpt := glamour.WithAutoStyle()
	if opts.Style != "" && opts.Style != "auto" {
		styleOpt = glamour.WithStandardStyle(opts.Style)
	}

	r, err := glamour.NewTermRenderer(styleOpt, glamour.WithWordWrap(width))
	if err != nil {
		return "", fmt.Errorf("create markdown renderer: %w", err)
	}
	out, err := r.Render(annotate(doc, labels, markdownStatus))
	if err != nil {
		return "", fmt.Errorf("render %s: %w", doc.Path, err)
	}
	return out, nil
}

// Annotate returns the plain-text view of doc with status lines after each
// labelled block.
func Annotate(doc *document.Document, labels map[int]string) string {
	return annotate(doc, labels, plainStatus)
}

func annotate(doc *document.Document, labels map[int]string, status func(*strings.Builder, document.Block, string)) string {
	after := make(map[int][]document.Block, len(doc.Blocks))
	for _, b := range doc.Blocks {
		if labels[b.Index] != "" {
			after[b.LineEnd] = append(after[b.LineEnd], b)
		}
	}

	var sb strings.Builder
	sb.Grow(len(doc.Text) + 64*len(after))
	for i := range doc.LineCount() {
		if i > 0 {
			sb.WriteByte('\n')
		}
		sb.WriteString(doc.Line(i))
		for _, b := range after[i] {
			sb.WriteByte('\n')
			status(&sb, b, labels[b.Index])
		}
	}
	return sb.String()
}

func plainStatus(sb *strings.Builder, b document.Block, text string) {
	lines := strings.Split(text, "\n")
	fmt.Fprintf(sb, "» %s: %s", b.Label(), lines[0])
	for _, line := range lines[1:] {
		sb.WriteString("\n  ")
		sb.WriteString(line)
	}
}

// markdownStatus writes the status as a block quote, one paragraph per
// line, followed by a blank line so that following text is not pulled into
// the quote.
func markdownStatus(sb *strings.Builder, b document.Block, text string) {
	sb.WriteString("\n> **")
	sb.WriteString(escapeMarkdown(b.Label()))
	sb.WriteString("**")
	for line := range strings.SplitSeq(text, "\n") {
		sb.WriteString("\n>\n> ")
		sb.WriteString(escapeMarkdown(line))
	}
	sb.WriteByte('\n')
}

var markdownEscaper = strings.NewReplacer(
	`\`, `\\`, "*", `\*`, "_", `\_`, "`", "\\`", "[", `\[`, "]", `\]`, "<", `\<`,
)

func escapeMarkdown(s string) string {
	return markdownEscaper.Replace(s)
}
