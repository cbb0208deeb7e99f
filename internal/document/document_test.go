// SPDX-License-Identifier: MPL-2.0

package document

import (
	"errors"
	"io/fs"
	"testing"

	"github.com/codebutton/codebutton/internal/transform"

	"github.com/spf13/afero"
)

const sample = "# Notes\n" + // 0
	"\n" + // 1
	"```code-button Say hello\n" + // 2
	"console.log(\"hello\");\n" + // 3
	"```\n" + // 4
	"\n" + // 5
	"```ts\n" + // 6
	"const ignored = 1;\n" + // 7
	"```\n" + // 8
	"\n" + // 9
	"```code-button\n" + // 10
	"const a: number = 1;\n" + // 11
	"await Promise.resolve(a);\n" + // 12
	"```\n" + // 13
	"\n" + // 14
	"> ```code-button Quoted\n" + // 15
	"> throw new Error(\"nested\");\n" + // 16
	"> ```\n" // 17

func TestParse(t *testing.T) {
	t.Parallel()

	doc := Parse("notes/demo.md", []byte(sample))

	want := []Block{
		{Index: 0, Caption: "Say hello", Source: "console.log(\"hello\");\n", LineStart: 2, LineEnd: 4, Available: true},
		{Index: 1, Caption: "", Source: "const a: number = 1;\nawait Promise.resolve(a);\n", LineStart: 10, LineEnd: 13, Available: true},
		{Index: 2, Caption: "Quoted", Source: "throw new Error(\"nested\");\n", LineStart: 15, LineEnd: 17, Available: false},
	}

	if len(doc.Blocks) != len(want) {
		t.Fatalf("len(Blocks) = %d, want %d: %+v", len(doc.Blocks), len(want), doc.Blocks)
	}
	for i, w := range want {
		if got := doc.Blocks[i]; got != w {
			t.Errorf("Blocks[%d] = %+v, want %+v", i, got, w)
		}
	}
}

func TestParseEdgeCases(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		src       string
		wantCount int
		wantEnd   int
		wantSrc   string
	}{
		{
			name:      "no blocks",
			src:       "# Title\n\nJust text.\n",
			wantCount: 0,
		},
		{
			name:      "empty block",
			src:       "```code-button Empty\n```\n",
			wantCount: 1,
			wantEnd:   1,
			wantSrc:   "",
		},
		{
			name:      "unclosed block runs to end",
			src:       "```code-button Open\nlet x = 1;\n",
			wantCount: 1,
			wantEnd:   1,
			wantSrc:   "let x = 1;\n",
		},
		{
			name:      "tilde fence",
			src:       "~~~code-button Tilde\nreturn;\n~~~\n",
			wantCount: 1,
			wantEnd:   2,
			wantSrc:   "return;\n",
		},
		{
			name:      "other language with similar prefix",
			src:       "```code-buttons\nx\n```\n",
			wantCount: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			doc := Parse("doc.md", []byte(tt.src))
			if len(doc.Blocks) != tt.wantCount {
				t.Fatalf("len(Blocks) = %d, want %d", len(doc.Blocks), tt.wantCount)
			}
			if tt.wantCount == 0 {
				return
			}
			b := doc.Blocks[0]
			if b.LineEnd != tt.wantEnd {
				t.Errorf("LineEnd = %d, want %d", b.LineEnd, tt.wantEnd)
			}
			if b.Source != tt.wantSrc {
				t.Errorf("Source = %q, want %q", b.Source, tt.wantSrc)
			}
		})
	}
}

func TestBlockLabel(t *testing.T) {
	t.Parallel()

	if got := (Block{}).Label(); got != transform.NoCaption {
		t.Errorf("Label() = %q, want %q", got, transform.NoCaption)
	}
	if got := (Block{Caption: "Run me"}).Label(); got != "Run me" {
		t.Errorf("Label() = %q, want %q", got, "Run me")
	}
}

func TestInspect(t *testing.T) {
	t.Parallel()

	doc := Parse("notes/demo.md", []byte(sample))

	info, err := Inspect(doc, doc.Blocks[0])
	if err != nil {
		t.Fatalf("Inspect() = %v", err)
	}
	if info.Header != "```code-button Say hello" {
		t.Errorf("Header = %q", info.Header)
	}
	if info.LineStart != 2 || info.LineEnd != 4 {
		t.Errorf("lines = %d..%d, want 2..4", info.LineStart, info.LineEnd)
	}

	if _, err := Inspect(doc, doc.Blocks[2]); !errors.Is(err, ErrSectionUnavailable) {
		t.Errorf("Inspect(nested) = %v, want ErrSectionUnavailable", err)
	}
}

func TestDocumentSnippet(t *testing.T) {
	t.Parallel()

	doc := Parse("notes/demo.md", []byte(sample))

	snippet, err := doc.Snippet(doc.Blocks[1])
	if err != nil {
		t.Fatalf("Snippet() = %v", err)
	}
	wantLoc := transform.Location{Path: "notes/demo.md", LineStart: 10, LineEnd: 13}
	if snippet.Location != wantLoc {
		t.Errorf("Location = %+v, want %+v", snippet.Location, wantLoc)
	}
	if snippet.Text != doc.Blocks[1].Source {
		t.Errorf("Text = %q, want block source", snippet.Text)
	}
	if got := snippet.Location.String(); got != "notes/demo.md:11 (no caption)" {
		t.Errorf("Location.String() = %q", got)
	}

	if _, err := doc.Snippet(doc.Blocks[2]); !errors.Is(err, ErrSectionUnavailable) {
		t.Errorf("Snippet(nested) = %v, want ErrSectionUnavailable", err)
	}
}

func TestSelect(t *testing.T) {
	t.Parallel()

	doc := Parse("notes/demo.md", []byte(sample))

	tests := []struct {
		name      string
		indices   []int
		caption   string
		want      []int
		wantErrIs error
	}{
		{name: "all", want: []int{0, 1, 2}},
		{name: "indices sorted and deduplicated", indices: []int{2, 0, 2}, want: []int{0, 2}},
		{name: "by caption", caption: "Say hello", want: []int{0}},
		{name: "index out of range", indices: []int{3}, wantErrIs: ErrBlockNotFound},
		{name: "negative index", indices: []int{-1}, wantErrIs: ErrBlockNotFound},
		{name: "unknown caption", caption: "nope", wantErrIs: ErrBlockNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := doc.Select(tt.indices, tt.caption)
			if tt.wantErrIs != nil {
				if !errors.Is(err, tt.wantErrIs) {
					t.Fatalf("Select() error = %v, want %v", err, tt.wantErrIs)
				}
				return
			}
			if err != nil {
				t.Fatalf("Select() = %v", err)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("Select() returned %d blocks, want %d", len(got), len(tt.want))
			}
			for i, idx := range tt.want {
				if got[i].Index != idx {
					t.Errorf("block %d has Index %d, want %d", i, got[i].Index, idx)
				}
			}
		})
	}

	empty := Parse("empty.md", []byte("nothing here\n"))
	if _, err := empty.Select(nil, ""); !errors.Is(err, ErrNoBlocks) {
		t.Errorf("Select(empty) = %v, want ErrNoBlocks", err)
	}
}

func TestLoad(t *testing.T) {
	t.Parallel()

	fsys := afero.NewMemMapFs()
	if err := afero.WriteFile(fsys, "/vault/demo.md", []byte(sample), 0o644); err != nil {
		t.Fatal(err)
	}

	doc, err := Load(fsys, "/vault/demo.md")
	if err != nil {
		t.Fatalf("Load() = %v", err)
	}
	if len(doc.Blocks) != 3 {
		t.Errorf("len(Blocks) = %d, want 3", len(doc.Blocks))
	}
	if doc.Line(2) != "```code-button Say hello" {
		t.Errorf("Line(2) = %q", doc.Line(2))
	}
	if doc.Line(99) != "" {
		t.Errorf("Line(99) = %q, want empty", doc.Line(99))
	}

	if _, err := Load(fsys, "/vault/missing.md"); !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("Load(missing) = %v, want fs.ErrNotExist", err)
	}
}
