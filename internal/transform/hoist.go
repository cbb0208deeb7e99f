// SPDX-License-Identifier: MPL-2.0

package transform

import (
	"strings"
	"unicode/utf16"
	"unicode/utf8"
)

type (
	// hoistedImport is a static import declaration moved out of the snippet
	// body so that the body can live inside a function.
	hoistedImport struct {
		// original is the declaration exactly as written.
		original string
		// flat is the declaration on a single line with comments blanked.
		// Every rune keeps its UTF-16 width and every line break becomes one
		// space, so offsets into flat can be walked back to original.
		flat string
		// line and column (UTF-16) of the declaration start in the snippet.
		line   int
		column int
		// byteColumn is the byte offset of the start within its line.
		byteColumn int
	}

	// hoisted is a snippet split into its static imports and the remaining
	// body. The body has the same line structure as the snippet; removed
	// text is replaced by spaces of equal UTF-16 width.
	hoisted struct {
		imports []hoistedImport
		body    string
	}

	// moduleScanner walks snippet text with just enough lexical awareness
	// (strings, template literals, comments, regular expressions, bracket
	// depth) to find top-level import and export syntax.
	moduleScanner struct {
		src       string
		pos       int
		depth     int
		templates []int
		prev      byte
		prevWord  string

		body    strings.Builder
		flushed int
		imports []hoistedImport
	}
)

var regexPrefixKeywords = map[string]bool{
	"return": true, "typeof": true, "instanceof": true, "in": true, "of": true,
	"new": true, "delete": true, "void": true, "throw": true, "case": true,
	"do": true, "else": true, "yield": true, "await": true,
}

// hoistModuleSyntax extracts top-level static imports and strips top-level
// export syntax, which are only legal at module scope.
func hoistModuleSyntax(src string) hoisted {
	s := &moduleScanner{src: src}
	s.run()
	s.body.WriteString(src[s.flushed:])
	return hoisted{imports: s.imports, body: s.body.String()}
}

func (s *moduleScanner) run() {
	for s.pos < len(s.src) {
		c := s.src[s.pos]
		switch {
		case c == '/' && s.peek(1) == '/':
			s.pos = s.lineCommentEnd(s.pos)
		case c == '/' && s.peek(1) == '*':
			s.pos = s.blockCommentEnd(s.pos)
		case c == '\'' || c == '"':
			s.pos = s.stringEnd(s.pos)
			s.mark('"')
		case c == '`':
			s.pos++
			s.skipTemplate()
		case c == '/' && s.regexAllowed():
			s.skipRegex()
			s.mark('/')
		case isIdentStart(c):
			s.word()
		case c == '{' || c == '(' || c == '[':
			s.depth++
			s.pos++
			s.mark(c)
		case c == '}' || c == ')' || c == ']':
			s.pos++
			if s.depth > 0 {
				s.depth--
			}
			if c == '}' && len(s.templates) > 0 && s.templates[len(s.templates)-1] == s.depth {
				s.templates = s.templates[:len(s.templates)-1]
				s.skipTemplate()
				continue
			}
			s.mark(c)
		case isSpace(c):
			s.pos++
		default:
			s.pos++
			s.mark(c)
		}
	}
}

func (s *moduleScanner) mark(c byte) {
	s.prev, s.prevWord = c, ""
}

func (s *moduleScanner) peek(offset int) byte {
	if s.pos+offset < len(s.src) {
		return s.src[s.pos+offset]
	}
	return 0
}

func (s *moduleScanner) regexAllowed() bool {
	if s.prevWord != "" {
		return regexPrefixKeywords[s.prevWord]
	}
	if s.prev == 0 {
		return true
	}
	return strings.IndexByte("(,=:[!&|?{};+-*%<>~^", s.prev) >= 0
}

func (s *moduleScanner) word() {
	start := s.pos
	s.pos = identEnd(s.src, s.pos)
	w := s.src[start:s.pos]

	if s.depth == 0 && s.prev != '.' {
		switch w {
		case "import":
			if s.hoistImport(start) {
				return
			}
		case "export":
			if s.stripExport(start) {
				return
			}
		}
	}
	s.prev, s.prevWord = 'a', w
}

// hoistImport moves the declaration starting at start out of the body.
// Dynamic import() and import.meta are left alone.
func (s *moduleScanner) hoistImport(start int) bool {
	p := s.skipTrivia(s.pos)
	if p >= len(s.src) || s.src[p] == '(' || s.src[p] == '.' {
		return false
	}
	end, ok := s.importEnd(p)
	if !ok {
		return false
	}

	lineStart := strings.LastIndexByte(s.src[:start], '\n') + 1
	original := s.src[start:end]
	s.imports = append(s.imports, hoistedImport{
		original:   original,
		flat:       flattenStatement(original),
		line:       strings.Count(s.src[:start], "\n"),
		column:     utf16Len(s.src[lineStart:start]),
		byteColumn: start - lineStart,
	})
	s.blank(start, end)
	return true
}

func (s *moduleScanner) importEnd(p int) (int, bool) {
	if isQuote(s.src[p]) {
		return s.specifierEnd(p)
	}
	for p < len(s.src) {
		p = s.skipTrivia(p)
		if p >= len(s.src) {
			return 0, false
		}
		c := s.src[p]
		switch {
		case c == '{':
			q, ok := s.balancedEnd(p)
			if !ok {
				return 0, false
			}
			p = q
		case c == '*' || c == ',':
			p++
		case c == '=':
			return s.importEqualsEnd(p + 1), true
		case isIdentStart(c):
			q := identEnd(s.src, p)
			if s.src[p:q] == "from" {
				r := s.skipTrivia(q)
				if r < len(s.src) && isQuote(s.src[r]) {
					return s.specifierEnd(r)
				}
			}
			p = q
		default:
			return 0, false
		}
	}
	return 0, false
}

// specifierEnd consumes the module specifier string at p plus any import
// attributes and the terminating semicolon.
func (s *moduleScanner) specifierEnd(p int) (int, bool) {
	q := s.stringEnd(p)
	if q > len(s.src) || s.src[q-1] != s.src[p] || q == p+1 {
		return 0, false
	}
	return s.statementTail(q), true
}

func (s *moduleScanner) statementTail(p int) int {
	r := skipInlineSpace(s.src, p)
	if r < len(s.src) && isIdentStart(s.src[r]) {
		q := identEnd(s.src, r)
		if kw := s.src[r:q]; kw == "with" || kw == "assert" {
			b := skipInlineSpace(s.src, q)
			if b < len(s.src) && s.src[b] == '{' {
				if e, ok := s.balancedEnd(b); ok {
					p = e
					r = skipInlineSpace(s.src, p)
				}
			}
		}
	}
	if r < len(s.src) && s.src[r] == ';' {
		return r + 1
	}
	return p
}

// importEqualsEnd finds the end of a TypeScript `import x = require("y")`.
func (s *moduleScanner) importEqualsEnd(p int) int {
	depth := 0
	for p < len(s.src) {
		c := s.src[p]
		switch {
		case c == '/' && p+1 < len(s.src) && s.src[p+1] == '/':
			p = s.lineCommentEnd(p)
		case c == '/' && p+1 < len(s.src) && s.src[p+1] == '*':
			p = s.blockCommentEnd(p)
		case isQuote(c):
			p = s.stringEnd(p)
		case c == '(':
			depth++
			p++
		case c == ')':
			depth--
			p++
		case depth <= 0 && c == ';':
			return p + 1
		case depth <= 0 && c == '\n':
			return p
		default:
			p++
		}
	}
	return p
}

// stripExport blanks export syntax at start. Declarations keep everything
// after the keyword; export lists and re-exports are removed entirely.
func (s *moduleScanner) stripExport(start int) bool {
	p := s.skipTrivia(s.pos)
	if p >= len(s.src) {
		return false
	}
	end := s.pos

	switch c := s.src[p]; {
	case c == '{' || c == '*':
		e, ok := s.exportListEnd(p)
		if !ok {
			return false
		}
		end = e
	case isIdentStart(c):
		q := identEnd(s.src, p)
		switch s.src[p:q] {
		case "default":
			end = q
		case "type":
			r := s.skipTrivia(q)
			if r < len(s.src) && s.src[r] == '{' {
				e, ok := s.exportListEnd(r)
				if !ok {
					return false
				}
				end = e
			}
		}
	}

	s.blank(start, end)
	return true
}

func (s *moduleScanner) exportListEnd(p int) (int, bool) {
	q := p + 1
	if s.src[p] == '{' {
		e, ok := s.balancedEnd(p)
		if !ok {
			return 0, false
		}
		q = e
	}

	r := s.skipTrivia(q)
	if wordAt(s.src, r) == "as" {
		r = s.skipTrivia(identEnd(s.src, r))
		q = identEnd(s.src, r)
		r = s.skipTrivia(q)
	}
	if wordAt(s.src, r) == "from" {
		r = s.skipTrivia(identEnd(s.src, r))
		if r >= len(s.src) || !isQuote(s.src[r]) {
			return 0, false
		}
		return s.specifierEnd(r)
	}
	return s.statementTail(q), true
}

// blank copies pending body text and replaces src[start:end] with spaces,
// keeping line breaks and UTF-16 widths.
func (s *moduleScanner) blank(start, end int) {
	s.body.WriteString(s.src[s.flushed:start])
	for _, r := range s.src[start:end] {
		if r == '\n' || r == '\r' {
			s.body.WriteRune(r)
			continue
		}
		s.body.WriteString(strings.Repeat(" ", runeWidth(r)))
	}
	s.flushed = end
	s.pos = end
	s.mark(';')
}

func (s *moduleScanner) skipTemplate() {
	for s.pos < len(s.src) {
		switch c := s.src[s.pos]; {
		case c == '\\':
			s.pos += 2
		case c == '`':
			s.pos++
			s.mark('`')
			return
		case c == '$' && s.peek(1) == '{':
			s.pos += 2
			s.templates = append(s.templates, s.depth)
			s.depth++
			s.mark('{')
			return
		default:
			s.pos++
		}
	}
	s.pos = len(s.src)
}

func (s *moduleScanner) skipRegex() {
	inClass := false
	p := s.pos + 1
	for p < len(s.src) {
		switch c := s.src[p]; {
		case c == '\\':
			p++
		case c == '\n':
			s.pos = p
			return
		case c == '[':
			inClass = true
		case c == ']':
			inClass = false
		case c == '/' && !inClass:
			s.pos = identEnd(s.src, p+1)
			return
		}
		p++
	}
	s.pos = len(s.src)
}

func (s *moduleScanner) skipTrivia(p int) int {
	for p < len(s.src) {
		c := s.src[p]
		switch {
		case isSpace(c):
			p++
		case c == '/' && p+1 < len(s.src) && s.src[p+1] == '/':
			p = s.lineCommentEnd(p)
		case c == '/' && p+1 < len(s.src) && s.src[p+1] == '*':
			p = s.blockCommentEnd(p)
		default:
			return p
		}
	}
	return p
}

// balancedEnd returns the offset just past the brace that closes the one at
// p, skipping strings and comments.
func (s *moduleScanner) balancedEnd(p int) (int, bool) {
	depth := 0
	for p < len(s.src) {
		c := s.src[p]
		switch {
		case c == '/' && p+1 < len(s.src) && s.src[p+1] == '/':
			p = s.lineCommentEnd(p)
			continue
		case c == '/' && p+1 < len(s.src) && s.src[p+1] == '*':
			p = s.blockCommentEnd(p)
			continue
		case isQuote(c):
			p = s.stringEnd(p)
			continue
		case c == '{':
			depth++
		case c == '}':
			depth--
			if depth == 0 {
				return p + 1, true
			}
		}
		p++
	}
	return 0, false
}

func (s *moduleScanner) lineCommentEnd(p int) int {
	if i := strings.IndexByte(s.src[p:], '\n'); i >= 0 {
		return p + i
	}
	return len(s.src)
}

func (s *moduleScanner) blockCommentEnd(p int) int {
	if i := strings.Index(s.src[p+2:], "*/"); i >= 0 {
		return p + 2 + i + 2
	}
	return len(s.src)
}

// stringEnd returns the offset just past the closing quote of the string
// literal at p, or the offset of the line break that ends an unterminated
// one.
func (s *moduleScanner) stringEnd(p int) int {
	quote := s.src[p]
	for q := p + 1; q < len(s.src); q++ {
		switch s.src[q] {
		case '\\':
			q++
		case quote:
			return q + 1
		case '\n':
			return q
		}
	}
	return len(s.src)
}

// flattenStatement renders a declaration on one line. Comment text becomes
// spaces and each line break becomes one space.
func flattenStatement(stmt string) string {
	var b strings.Builder
	for i := 0; i < len(stmt); {
		c := stmt[i]
		switch {
		case c == '/' && i+1 < len(stmt) && (stmt[i+1] == '/' || stmt[i+1] == '*'):
			end := len(stmt)
			if stmt[i+1] == '/' {
				if j := strings.IndexByte(stmt[i:], '\n'); j >= 0 {
					end = i + j
				}
			} else if j := strings.Index(stmt[i+2:], "*/"); j >= 0 {
				end = i + 2 + j + 2
			}
			for _, r := range stmt[i:end] {
				if r == '\n' || r == '\r' {
					b.WriteByte(' ')
					continue
				}
				b.WriteString(strings.Repeat(" ", runeWidth(r)))
			}
			i = end
		case isQuote(c):
			j := i + 1
			for j < len(stmt) && stmt[j] != c {
				if stmt[j] == '\\' {
					j++
				}
				j++
			}
			j = min(j+1, len(stmt))
			b.WriteString(stmt[i:j])
			i = j
		case c == '\n' || c == '\r':
			b.WriteByte(' ')
			i++
		default:
			r, size := utf8.DecodeRuneInString(stmt[i:])
			b.WriteRune(r)
			i += size
		}
	}

	flat := strings.TrimRight(b.String(), " \t")
	if !strings.HasSuffix(flat, ";") {
		flat += ";"
	}
	return flat
}

// position maps a UTF-16 offset into flat back to the snippet position of
// the corresponding character in the original declaration.
func (imp hoistedImport) position(offset int) (line, column int) {
	line, column = imp.line, imp.column
	walked := 0
	for _, r := range imp.original {
		if walked >= offset {
			return line, column
		}
		if r == '\n' {
			walked++
			line, column = line+1, 0
			continue
		}
		if r == '\r' {
			walked++
			continue
		}
		w := runeWidth(r)
		walked += w
		column += w
	}
	return line, column
}

func wordAt(src string, p int) string {
	if p >= len(src) || !isIdentStart(src[p]) {
		return ""
	}
	return src[p:identEnd(src, p)]
}

func identEnd(src string, p int) int {
	for p < len(src) && isIdentPart(src[p]) {
		p++
	}
	return p
}

func isIdentStart(c byte) bool {
	return c == '_' || c == '$' || c >= 0x80 || (c|0x20 >= 'a' && c|0x20 <= 'z')
}

func isIdentPart(c byte) bool {
	return isIdentStart(c) || (c >= '0' && c <= '9')
}

func isQuote(c byte) bool { return c == '\'' || c == '"' }

func isSpace(c byte) bool { return c == ' ' || c == '\t' || c == '\n' || c == '\r' || c == '\f' || c == '\v' }

func skipInlineSpace(src string, p int) int {
	for p < len(src) && (src[p] == ' ' || src[p] == '\t') {
		p++
	}
	return p
}

func runeWidth(r rune) int {
	if n := utf16.RuneLen(r); n > 0 {
		return n
	}
	return 1
}

func utf16Len(s string) int {
	n := 0
	for _, r := range s {
		n += runeWidth(r)
	}
	return n
}
