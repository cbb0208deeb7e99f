// SPDX-License-Identifier: MPL-2.0

package transform

import (
	"strings"
	"testing"
)

func TestHoistModuleSyntax(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		src      string
		wantFlat []string
		wantBody string
	}{
		{
			name:     "default import",
			src:      "import fs from \"fs\";\nconst x = 1;",
			wantFlat: []string{`import fs from "fs";`},
			wantBody: strings.Repeat(" ", 20) + "\nconst x = 1;",
		},
		{
			name:     "import without semicolon",
			src:      "import { a } from './a'\na()",
			wantFlat: []string{`import { a } from './a';`},
			wantBody: strings.Repeat(" ", 23) + "\na()",
		},
		{
			name:     "side effect import with attributes",
			src:      `import "./setup.json" with { type: "json" };`,
			wantFlat: []string{`import "./setup.json" with { type: "json" };`},
			wantBody: strings.Repeat(" ", 44),
		},
		{
			name:     "namespace import",
			src:      "const a = 1; import * as path from 'path'; path.join()",
			wantFlat: []string{`import * as path from 'path';`},
			wantBody: "const a = 1; " + strings.Repeat(" ", 29) + " path.join()",
		},
		{
			name:     "import equals",
			src:      "import fs = require(\"fs\")\nreturn fs;",
			wantFlat: []string{`import fs = require("fs");`},
			wantBody: strings.Repeat(" ", 25) + "\nreturn fs;",
		},
		{
			name:     "dynamic import stays",
			src:      `const m = await import("x"); console.log(import.meta);`,
			wantBody: `const m = await import("x"); console.log(import.meta);`,
		},
		{
			name:     "import inside block stays",
			src:      "if (x) { import y from 'z' }",
			wantBody: "if (x) { import y from 'z' }",
		},
		{
			name:     "import text in literals and comments",
			src:      "const s = \"import x from 'y'\";\n// import z from 'w'\nconst t = `${a}import q from 'r'`;\n/* import u from 'v' */",
			wantBody: "const s = \"import x from 'y'\";\n// import z from 'w'\nconst t = `${a}import q from 'r'`;\n/* import u from 'v' */",
		},
		{
			name:     "import text in regex",
			src:      `const r = /import x from "y"/g;`,
			wantBody: `const r = /import x from "y"/g;`,
		},
		{
			name:     "property named import",
			src:      "loader.import('x')",
			wantBody: "loader.import('x')",
		},
		{
			name:     "template substitution before import",
			src:      "const a = `${ {b: 1}.b }`;\nimport c from 'c';",
			wantFlat: []string{`import c from 'c';`},
			wantBody: "const a = `${ {b: 1}.b }`;\n" + strings.Repeat(" ", 18),
		},
		{
			name:     "exports",
			src:      "export const a = 1;\nexport { a };\nexport default a;\nexport type { T } from './t';",
			wantBody: "       const a = 1;\n" + strings.Repeat(" ", 13) + "\n" + strings.Repeat(" ", 14) + " a;\n" + strings.Repeat(" ", 29),
		},
		{
			name:     "non ascii specifier keeps utf16 width",
			src:      "import x from \"ü😀\"; x()",
			wantFlat: []string{`import x from "ü😀";`},
			wantBody: strings.Repeat(" ", 20) + " x()",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got := hoistModuleSyntax(tt.src)
			if len(got.imports) != len(tt.wantFlat) {
				t.Fatalf("hoisted %d imports, want %d: %+v", len(got.imports), len(tt.wantFlat), got.imports)
			}
			for i, want := range tt.wantFlat {
				if got.imports[i].flat != want {
					t.Errorf("imports[%d].flat = %q, want %q", i, got.imports[i].flat, want)
				}
			}
			if got.body != tt.wantBody {
				t.Errorf("body = %q, want %q", got.body, tt.wantBody)
			}
			if strings.Count(got.body, "\n") != strings.Count(tt.src, "\n") {
				t.Errorf("body changed line count")
			}
		})
	}
}

func TestHoistMultiLineImport(t *testing.T) {
	t.Parallel()

	src := "const a = 1;\nimport {\n  b, // first\n  c\n} from 'm'\nreturn b;"
	got := hoistModuleSyntax(src)
	if len(got.imports) != 1 {
		t.Fatalf("hoisted %d imports, want 1", len(got.imports))
	}

	imp := got.imports[0]
	wantFlat := "import { " + "  b, " + strings.Repeat(" ", 8) + " " + "  c" + " " + "} from 'm';"
	if imp.flat != wantFlat {
		t.Errorf("flat = %q, want %q", imp.flat, wantFlat)
	}
	if imp.line != 1 || imp.column != 0 {
		t.Errorf("start = %d:%d, want 1:0", imp.line, imp.column)
	}

	offset := strings.Index(imp.flat, "c")
	if line, column := imp.position(offset); line != 3 || column != 2 {
		t.Errorf("position(%d) = %d:%d, want 3:2", offset, line, column)
	}

	wantBody := "const a = 1;\n        \n             \n   \n          \nreturn b;"
	if got.body != wantBody {
		t.Errorf("body = %q, want %q", got.body, wantBody)
	}
}

func TestLayoutOriginal(t *testing.T) {
	t.Parallel()

	src := `import a from "b"; return a;`
	h := hoistModuleSyntax(src)
	input, lay := buildLoweringInput(src, h)

	if !strings.HasPrefix(input, `import a from "b";`+entryHeader) {
		t.Fatalf("unexpected lowering input %q", input)
	}

	tests := []struct {
		line, column         int
		wantLine, wantColumn int
	}{
		{0, 7, 0, 7},
		{0, lay.prefixWidth + 19, 0, 19},
		{0, lay.prefixWidth - 1, 0, 0},
		{1, 0, 0, len(src)},
	}
	for _, tt := range tests {
		line, column := lay.original(tt.line, tt.column)
		if line != tt.wantLine || column != tt.wantColumn {
			t.Errorf("original(%d, %d) = %d:%d, want %d:%d", tt.line, tt.column, line, column, tt.wantLine, tt.wantColumn)
		}
	}
}
