package syntax

import (
	"unicode/utf8"

	"go.lsp.dev/protocol"
)

// PositionAt converts a byte offset in source into a zero-based line and
// character position. Characters are counted in UTF-16 code units, which is
// what editors speaking LSP expect.
func PositionAt(source string, offset int) protocol.Position {
	if offset > len(source) {
		offset = len(source)
	}
	var line, char uint32
	for i := 0; i < offset; {
		r, size := utf8.DecodeRuneInString(source[i:])
		if i+size > offset {
			break
		}
		if r == '\n' {
			line++
			char = 0
		} else if r >= 0x10000 {
			char += 2
		} else {
			char++
		}
		i += size
	}
	return protocol.Position{Line: line, Character: char}
}

// OffsetAt is the inverse of PositionAt. Positions past the end of a line clamp
// to the line end; positions past the end of the source clamp to len(source).
func OffsetAt(source string, pos protocol.Position) int {
	var line, char uint32
	for i := 0; i < len(source); {
		if line == pos.Line && char >= pos.Character {
			return i
		}
		r, size := utf8.DecodeRuneInString(source[i:])
		if r == '\n' {
			if line == pos.Line {
				return i
			}
			line++
			char = 0
		} else if r >= 0x10000 {
			char += 2
		} else {
			char++
		}
		i += size
	}
	return len(source)
}

// SpanRange converts a byte span into an LSP range.
func SpanRange(source string, start, end int) protocol.Range {
	return protocol.Range{
		Start: PositionAt(source, start),
		End:   PositionAt(source, end),
	}
}

// RangeOf returns the LSP range covered by node.
func RangeOf(source string, node Node) protocol.Range {
	if node == nil {
		return protocol.Range{}
	}
	return SpanRange(source, node.StartByte(), node.EndByte())
}
