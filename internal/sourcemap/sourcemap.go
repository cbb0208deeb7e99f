// SPDX-License-Identifier: MPL-2.0

package sourcemap

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"
)

const (
	// CommentPrefix starts the trailing line that carries an inline map.
	CommentPrefix = "//# sourceMappingURL="

	// JSONMediaType is the media type used for inline map payloads.
	JSONMediaType = "application/json"

	supportedVersion = 3
)

var (
	// ErrNoInlineMap is returned when compiled text does not end with an
	// inline source map comment.
	ErrNoInlineMap = errors.New("no inline source map")

	// ErrInvalidDataURI is returned for malformed data: URIs.
	ErrInvalidDataURI = errors.New("invalid data URI")
)

type (
	// Map is a version 3 source map.
	Map struct {
		Version        int      `json:"version"`
		File           string   `json:"file,omitempty"`
		SourceRoot     string   `json:"sourceRoot,omitempty"`
		Sources        []string `json:"sources"`
		SourcesContent []string `json:"sourcesContent,omitempty"`
		Mappings       string   `json:"mappings"`
		Names          []string `json:"names"`
	}

	// Position is a resolved location in an original source. Line and Column
	// are 0-based; Column counts UTF-16 code units.
	Position struct {
		Source string
		Line   int
		Column int
		Name   string
	}
)

// Decode parses a JSON source map.
func Decode(data []byte) (*Map, error) {
	var m Map
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("decode source map: %w", err)
	}
	if m.Version != supportedVersion {
		return nil, fmt.Errorf("unsupported source map version %d", m.Version)
	}
	return &m, nil
}

// Encode serializes the map as compact JSON without HTML escaping, so the
// output is byte-identical for identical maps.
func (m *Map) Encode() ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(m); err != nil {
		return nil, fmt.Errorf("encode source map: %w", err)
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

// Comment renders the map as an inline `//# sourceMappingURL=data:...` line
// without a trailing newline.
func (m *Map) Comment() (string, error) {
	data, err := m.Encode()
	if err != nil {
		return "", err
	}
	return CommentPrefix + DataURI(JSONMediaType, data), nil
}

// Original resolves a generated position (0-based line, UTF-16 column) to the
// original position of the closest preceding segment on that line.
func (m *Map) Original(genLine, genColumn int) (Position, bool) {
	lines, err := DecodeMappings(m.Mappings)
	if err != nil || genLine < 0 || genLine >= len(lines) {
		return Position{}, false
	}

	var (
		best  Segment
		found bool
	)
	for _, seg := range lines[genLine] {
		if seg.GenColumn > genColumn {
			break
		}
		if seg.HasSource {
			best, found = seg, true
		}
	}
	if !found {
		return Position{}, false
	}

	pos := Position{Line: best.OrigLine, Column: best.OrigColumn}
	if best.Source >= 0 && best.Source < len(m.Sources) {
		pos.Source = m.Sources[best.Source]
	}
	if best.HasName && best.Name >= 0 && best.Name < len(m.Names) {
		pos.Name = m.Names[best.Name]
	}
	return pos, true
}

// SplitInline separates compiled text from its trailing inline map. The
// returned code keeps everything before the comment line, including the
// newline that preceded it.
func SplitInline(code string) (string, *Map, error) {
	trimmed := strings.TrimRight(code, " \t\r\n")
	start := strings.LastIndexByte(trimmed, '\n') + 1
	last := strings.TrimSpace(trimmed[start:])
	if !strings.HasPrefix(last, CommentPrefix) {
		return code, nil, ErrNoInlineMap
	}

	mediaType, payload, err := DecodeDataURI(strings.TrimPrefix(last, CommentPrefix))
	if err != nil {
		return code, nil, err
	}
	if mediaType != JSONMediaType {
		return code, nil, fmt.Errorf("%w: unexpected media type %q", ErrInvalidDataURI, mediaType)
	}

	m, err := Decode(payload)
	if err != nil {
		return code, nil, err
	}
	return trimmed[:start], m, nil
}

// DataURI builds a base64 data: URI.
func DataURI(mediaType string, content []byte) string {
	return "data:" + mediaType + ";base64," + base64.StdEncoding.EncodeToString(content)
}

// DecodeDataURI returns the media type and the decoded payload of a data:
// URI. Parameters other than base64 (such as charset) are dropped from the
// returned media type.
func DecodeDataURI(uri string) (string, []byte, error) {
	rest, ok := strings.CutPrefix(uri, "data:")
	if !ok {
		return "", nil, fmt.Errorf("%w: missing data: scheme", ErrInvalidDataURI)
	}
	header, payload, ok := strings.Cut(rest, ",")
	if !ok {
		return "", nil, fmt.Errorf("%w: missing payload separator", ErrInvalidDataURI)
	}

	params := strings.Split(header, ";")
	mediaType := params[0]
	isBase64 := false
	for _, p := range params[1:] {
		if p == "base64" {
			isBase64 = true
		}
	}

	if isBase64 {
		data, err := base64.StdEncoding.DecodeString(payload)
		if err != nil {
			return "", nil, fmt.Errorf("%w: %w", ErrInvalidDataURI, err)
		}
		return mediaType, data, nil
	}

	unescaped, err := url.PathUnescape(payload)
	if err != nil {
		return "", nil, fmt.Errorf("%w: %w", ErrInvalidDataURI, err)
	}
	return mediaType, []byte(unescaped), nil
}
