// SPDX-License-Identifier: MPL-2.0

package sourcemap

import (
	"errors"
	"fmt"
	"strings"
)

const (
	vlqAlphabet     = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789+/"
	vlqBaseShift    = 5
	vlqBaseMask     = 1<<vlqBaseShift - 1
	vlqContinuation = 1 << vlqBaseShift
)

// ErrInvalidMappings is returned when the mappings field cannot be decoded.
var ErrInvalidMappings = errors.New("invalid source map mappings")

var vlqDecodeTable = func() [256]int8 {
	var t [256]int8
	for i := range t {
		t[i] = -1
	}
	for i := range len(vlqAlphabet) {
		t[vlqAlphabet[i]] = int8(i)
	}
	return t
}()

// Segment is one decoded mapping with absolute (not delta-encoded) values.
// Segments without a source carry only GenColumn.
type Segment struct {
	GenColumn  int
	HasSource  bool
	Source     int
	OrigLine   int
	OrigColumn int
	HasName    bool
	Name       int
}

// DecodeMappings decodes a mappings string into one slice of segments per
// generated line.
func DecodeMappings(mappings string) ([][]Segment, error) {
	var (
		lines                                   [][]Segment
		source, origLine, origColumn, nameIndex int
	)

	for lineText := range strings.SplitSeq(mappings, ";") {
		var (
			segments  []Segment
			genColumn int
		)
		for segText := range strings.SplitSeq(lineText, ",") {
			if segText == "" {
				continue
			}
			fields, err := decodeFields(segText)
			if err != nil {
				return nil, err
			}

			genColumn += fields[0]
			seg := Segment{GenColumn: genColumn}
			switch len(fields) {
			case 1:
			case 4, 5:
				source += fields[1]
				origLine += fields[2]
				origColumn += fields[3]
				seg.HasSource = true
				seg.Source, seg.OrigLine, seg.OrigColumn = source, origLine, origColumn
				if len(fields) == 5 {
					nameIndex += fields[4]
					seg.HasName = true
					seg.Name = nameIndex
				}
			default:
				return nil, fmt.Errorf("%w: segment %q has %d fields", ErrInvalidMappings, segText, len(fields))
			}
			segments = append(segments, seg)
		}
		lines = append(lines, segments)
	}
	return lines, nil
}

// EncodeMappings is the inverse of DecodeMappings.
func EncodeMappings(lines [][]Segment) string {
	var (
		b                                       []byte
		source, origLine, origColumn, nameIndex int
	)

	for i, segments := range lines {
		if i > 0 {
			b = append(b, ';')
		}
		genColumn := 0
		for j, seg := range segments {
			if j > 0 {
				b = append(b, ',')
			}
			b = appendVLQ(b, seg.GenColumn-genColumn)
			genColumn = seg.GenColumn
			if !seg.HasSource {
				continue
			}
			b = appendVLQ(b, seg.Source-source)
			b = appendVLQ(b, seg.OrigLine-origLine)
			b = appendVLQ(b, seg.OrigColumn-origColumn)
			source, origLine, origColumn = seg.Source, seg.OrigLine, seg.OrigColumn
			if seg.HasName {
				b = appendVLQ(b, seg.Name-nameIndex)
				nameIndex = seg.Name
			}
		}
	}
	return string(b)
}

func decodeFields(s string) ([]int, error) {
	fields := make([]int, 0, 5)
	for i := 0; i < len(s); {
		var (
			value int
			shift uint
		)
		for {
			if i >= len(s) {
				return nil, fmt.Errorf("%w: truncated value in %q", ErrInvalidMappings, s)
			}
			digit := vlqDecodeTable[s[i]]
			if digit < 0 {
				return nil, fmt.Errorf("%w: unexpected character %q", ErrInvalidMappings, s[i])
			}
			i++
			value += int(digit&vlqBaseMask) << shift
			if int(digit)&vlqContinuation == 0 {
				break
			}
			shift += vlqBaseShift
		}
		negative := value&1 == 1
		value >>= 1
		if negative {
			value = -value
		}
		fields = append(fields, value)
	}
	return fields, nil
}

func appendVLQ(b []byte, value int) []byte {
	var v int
	if value < 0 {
		v = (-value)<<1 | 1
	} else {
		v = value << 1
	}
	for {
		digit := v & vlqBaseMask
		v >>= vlqBaseShift
		if v > 0 {
			digit |= vlqContinuation
		}
		b = append(b, vlqAlphabet[digit])
		if v == 0 {
			return b
		}
	}
}
