// SPDX-License-Identifier: MPL-2.0

// Package document finds code-button blocks in Markdown documents.
package document

import (
	"errors"
	"fmt"
	"io/fs"
	"slices"
	"strings"

	"github.com/codebutton/codebutton/internal/transform"

	"github.com/spf13/afero"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

// Language is the fence info string that marks a code-button block.
const Language = "code-button"

var (
	// ErrSectionUnavailable is returned by Inspect for blocks whose opening
	// fence cannot be tied to a top-level document section.
	ErrSectionUnavailable = errors.New("could not get code block info")

	// ErrNoBlocks is returned when a document has no code-button blocks.
	ErrNoBlocks = errors.New("no code-button blocks")

	// ErrBlockNotFound is returned by Select for an unknown index or caption.
	ErrBlockNotFound = errors.New("code-button block not found")
)

type (
	// Document is a parsed Markdown document.
	Document struct {
		Path   string
		Text   string
		Blocks []Block
		lines  []string
	}

	// Block is one code-button fenced block.
	Block struct {
		// Index is the block's position among the document's code-button
		// blocks, starting at 0.
		Index int
		// Caption is the trimmed text after the language on the opening
		// fence. It may be empty.
		Caption string
		// Source is the block content, exactly as written.
		Source string
		// LineStart and LineEnd are the 0-based lines of the opening and
		// closing fences. An unclosed block ends on the document's last line.
		LineStart int
		LineEnd   int
		// Available is false for blocks nested in another construct, such
		// as a block quote or a list item.
		Available bool
	}

	// SectionInfo is the document section a block occupies.
	SectionInfo struct {
		LineStart int
		LineEnd   int
		// Header is the opening fence line.
		Header string
	}
)

// Label returns the caption, or transform.NoCaption when it is empty.
func (b Block) Label() string {
	if b.Caption == "" {
		return transform.NoCaption
	}
	return b.Caption
}

// Load reads and parses the document at path.
func Load(fsys afero.Fs, path string) (*Document, error) {
	src, err := afero.ReadFile(fsys, path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("document %s: %w", path, fs.ErrNotExist)
		}
		return nil, fmt.Errorf("read document %s: %w", path, err)
	}
	return Parse(path, src), nil
}

// Parse locates every code-button block in src.
func Parse(path string, src []byte) *Document {
	doc := &Document{
		Path:  path,
		Text:  string(src),
		lines: strings.Split(string(src), "\n"),
	}
	offsets := lineOffsets(src)

	root := goldmark.New().Parser().Parse(text.NewReader(src))
	_ = ast.Walk(root, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		fenced, ok := n.(*ast.FencedCodeBlock)
		if !ok || fenced.Info == nil {
			return ast.WalkContinue, nil
		}
		if string(fenced.Language(src)) != Language {
			return ast.WalkSkipChildren, nil
		}

		start := lineOf(offsets, fenced.Info.Segment.Start)
		count := fenced.Lines().Len()
		block := Block{
			Index:     len(doc.Blocks),
			Source:    string(fenced.Lines().Value(src)),
			LineStart: start,
			LineEnd:   doc.closingLine(start, count),
			Available: fenced.Parent() != nil && fenced.Parent().Kind() == ast.KindDocument,
		}
		block.Caption = caption(doc.lines[start])
		doc.Blocks = append(doc.Blocks, block)
		return ast.WalkSkipChildren, nil
	})

	return doc
}

// Inspect returns the section a block occupies, or ErrSectionUnavailable.
func Inspect(doc *Document, b Block) (SectionInfo, error) {
	if !b.Available || b.LineStart < 0 || b.LineStart >= len(doc.lines) {
		return SectionInfo{}, fmt.Errorf("block %d in %s: %w", b.Index, doc.Path, ErrSectionUnavailable)
	}
	return SectionInfo{
		LineStart: b.LineStart,
		LineEnd:   b.LineEnd,
		Header:    doc.lines[b.LineStart],
	}, nil
}

// Snippet captures the block as a snippet located in the document.
func (d *Document) Snippet(b Block) (transform.Snippet, error) {
	info, err := Inspect(d, b)
	if err != nil {
		return transform.Snippet{}, err
	}
	return transform.Snippet{
		Text: b.Source,
		Location: transform.Location{
			Path:      d.Path,
			LineStart: info.LineStart,
			LineEnd:   info.LineEnd,
			Caption:   b.Caption,
		},
	}, nil
}

// Select returns the blocks with the given indices, in document order, or
// every block when indices is empty. A non-empty caption further keeps only
// blocks whose caption matches it exactly.
func (d *Document) Select(indices []int, caption string) ([]Block, error) {
	if len(d.Blocks) == 0 {
		return nil, fmt.Errorf("%s: %w", d.Path, ErrNoBlocks)
	}

	selected := d.Blocks
	if len(indices) > 0 {
		selected = make([]Block, 0, len(indices))
		sorted := slices.Clone(indices)
		slices.Sort(sorted)
		for _, i := range slices.Compact(sorted) {
			if i < 0 || i >= len(d.Blocks) {
				return nil, fmt.Errorf("block %d of %s (has %d): %w", i, d.Path, len(d.Blocks), ErrBlockNotFound)
			}
			selected = append(selected, d.Blocks[i])
		}
	}

	if caption == "" {
		return selected, nil
	}
	var matched []Block
	for _, b := range selected {
		if b.Caption == caption {
			matched = append(matched, b)
		}
	}
	if len(matched) == 0 {
		return nil, fmt.Errorf("caption %q in %s: %w", caption, d.Path, ErrBlockNotFound)
	}
	return matched, nil
}

// Line returns the 0-based line i of the document.
func (d *Document) Line(i int) string {
	if i < 0 || i >= len(d.lines) {
		return ""
	}
	return d.lines[i]
}

// LineCount returns the number of lines in the document.
func (d *Document) LineCount() int {
	return len(d.lines)
}

// closingLine finds the closing fence of a block opened on line start with
// count content lines.
func (d *Document) closingLine(start, count int) int {
	end := start + 1 + count
	if end < len(d.lines) && isFence(d.lines[end]) {
		return end
	}
	return min(start+count, len(d.lines)-1)
}

func caption(header string) string {
	_, rest, ok := strings.Cut(header, Language)
	if !ok {
		return ""
	}
	return strings.TrimSpace(rest)
}

func isFence(line string) bool {
	trimmed := strings.TrimLeft(strings.TrimSpace(line), "> \t")
	return strings.HasPrefix(trimmed, "```") || strings.HasPrefix(trimmed, "~~~")
}

func lineOffsets(src []byte) []int {
	offsets := []int{0}
	for i, b := range src {
		if b == '\n' {
			offsets = append(offsets, i+1)
		}
	}
	return offsets
}

// lineOf returns the 0-based line holding byte offset off.
func lineOf(offsets []int, off int) int {
	i, found := slices.BinarySearch(offsets, off)
	if found {
		return i
	}
	return i - 1
}
