// SPDX-License-Identifier: MPL-2.0

package sourcemap

import (
	"errors"
	"slices"
	"strings"
	"testing"
)

func TestDecodeMappings(t *testing.T) {
	t.Parallel()

	lines, err := DecodeMappings("AAAA,IAAI;;gBACD,EAAE")
	if err != nil {
		t.Fatalf("DecodeMappings() error: %v", err)
	}
	if len(lines) != 3 {
		t.Fatalf("len(lines) = %d, want 3", len(lines))
	}

	want := [][]Segment{
		{
			{GenColumn: 0, HasSource: true},
			{GenColumn: 4, HasSource: true, OrigColumn: 4},
		},
		nil,
		{
			{GenColumn: 16, HasSource: true, OrigLine: 1, OrigColumn: 3},
			{GenColumn: 18, HasSource: true, OrigLine: 1, OrigColumn: 5},
		},
	}
	for i := range want {
		if !slices.Equal(lines[i], want[i]) {
			t.Errorf("line %d = %+v, want %+v", i, lines[i], want[i])
		}
	}
}

func TestEncodeMappingsRoundTrip(t *testing.T) {
	t.Parallel()

	tests := []string{
		"",
		"AAAA",
		"AAAA,IAAI;;gBACD,EAAE",
		";;AACA,SAAS,CAAC;AACb,EAAE,IAAIA",
		"A,CAAC;E",
	}
	for _, mappings := range tests {
		t.Run(mappings, func(t *testing.T) {
			t.Parallel()

			lines, err := DecodeMappings(mappings)
			if err != nil {
				t.Fatalf("DecodeMappings(%q) error: %v", mappings, err)
			}
			if got := EncodeMappings(lines); got != mappings {
				t.Errorf("EncodeMappings() = %q, want %q", got, mappings)
			}
		})
	}
}

func TestDecodeMappingsErrors(t *testing.T) {
	t.Parallel()

	tests := map[string]string{
		"bad character":   "AA!A",
		"truncated value": "g",
		"two fields":      "AA",
	}
	for name, mappings := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			if _, err := DecodeMappings(mappings); !errors.Is(err, ErrInvalidMappings) {
				t.Errorf("DecodeMappings(%q) error = %v, want ErrInvalidMappings", mappings, err)
			}
		})
	}
}

func TestAppendVLQ(t *testing.T) {
	t.Parallel()

	tests := []struct {
		value int
		want  string
	}{
		{0, "A"},
		{1, "C"},
		{-1, "D"},
		{15, "e"},
		{16, "gB"},
		{-16, "hB"},
		{1000, "w+B"},
	}
	for _, tt := range tests {
		if got := string(appendVLQ(nil, tt.value)); got != tt.want {
			t.Errorf("appendVLQ(%d) = %q, want %q", tt.value, got, tt.want)
		}
		fields, err := decodeFields(tt.want)
		if err != nil || len(fields) != 1 || fields[0] != tt.value {
			t.Errorf("decodeFields(%q) = %v, %v; want [%d]", tt.want, fields, err, tt.value)
		}
	}
}

func TestDataURI(t *testing.T) {
	t.Parallel()

	content := "const greeting: string = \"héllo\";\n"
	uri := DataURI("application/typescript", []byte(content))
	if !strings.HasPrefix(uri, "data:application/typescript;base64,") {
		t.Fatalf("DataURI() = %q, missing prefix", uri)
	}

	mediaType, got, err := DecodeDataURI(uri)
	if err != nil {
		t.Fatalf("DecodeDataURI() error: %v", err)
	}
	if mediaType != "application/typescript" {
		t.Errorf("media type = %q", mediaType)
	}
	if string(got) != content {
		t.Errorf("payload = %q, want %q", got, content)
	}
}

func TestDecodeDataURIPlain(t *testing.T) {
	t.Parallel()

	mediaType, got, err := DecodeDataURI("data:text/plain;charset=utf-8,hello%20world")
	if err != nil {
		t.Fatalf("DecodeDataURI() error: %v", err)
	}
	if mediaType != "text/plain" || string(got) != "hello world" {
		t.Errorf("DecodeDataURI() = %q, %q", mediaType, got)
	}

	for _, bad := range []string{"file:///tmp/x", "data:text/plain", "data:;base64,@@@"} {
		if _, _, err := DecodeDataURI(bad); !errors.Is(err, ErrInvalidDataURI) {
			t.Errorf("DecodeDataURI(%q) error = %v, want ErrInvalidDataURI", bad, err)
		}
	}
}

func TestSplitInline(t *testing.T) {
	t.Parallel()

	m := &Map{
		Version:        3,
		Sources:        []string{"snippet.ts"},
		SourcesContent: []string{"let a = 1 < 2;"},
		Mappings:       "AAAA",
		Names:          []string{},
	}
	comment, err := m.Comment()
	if err != nil {
		t.Fatalf("Comment() error: %v", err)
	}

	code := "let a = 1 < 2;\n" + comment + "\n"
	body, got, err := SplitInline(code)
	if err != nil {
		t.Fatalf("SplitInline() error: %v", err)
	}
	if body != "let a = 1 < 2;\n" {
		t.Errorf("body = %q", body)
	}
	if got.SourcesContent[0] != m.SourcesContent[0] || got.Sources[0] != "snippet.ts" {
		t.Errorf("decoded map = %+v", got)
	}

	again, err := got.Comment()
	if err != nil {
		t.Fatalf("Comment() error: %v", err)
	}
	if again != comment {
		t.Errorf("re-encoded comment differs:\n%s\n%s", again, comment)
	}
}

func TestSplitInlineMissing(t *testing.T) {
	t.Parallel()

	if _, _, err := SplitInline("console.log(1)\n// trailing comment\n"); !errors.Is(err, ErrNoInlineMap) {
		t.Errorf("SplitInline() error = %v, want ErrNoInlineMap", err)
	}
}

func TestOriginal(t *testing.T) {
	t.Parallel()

	m := &Map{
		Version:  3,
		Sources:  []string{"a.ts"},
		Names:    []string{"answer"},
		Mappings: "AAAA;IACEA,MAAM",
	}

	tests := []struct {
		line, column int
		want         Position
		ok           bool
	}{
		{0, 0, Position{Source: "a.ts"}, true},
		{1, 4, Position{Source: "a.ts", Line: 1, Column: 2, Name: "answer"}, true},
		{1, 9, Position{Source: "a.ts", Line: 1, Column: 2, Name: "answer"}, true},
		{1, 10, Position{Source: "a.ts", Line: 1, Column: 8}, true},
		{1, 0, Position{}, false},
		{7, 0, Position{}, false},
	}
	for _, tt := range tests {
		got, ok := m.Original(tt.line, tt.column)
		if ok != tt.ok || got != tt.want {
			t.Errorf("Original(%d, %d) = %+v, %v; want %+v, %v", tt.line, tt.column, got, ok, tt.want, tt.ok)
		}
	}
}
