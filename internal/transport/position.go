package transport

import (
	"strings"
	"unicode/utf8"

	"go.lsp.dev/protocol"

	"github.com/Zack-911/forgelsp/internal/dsl"
)

// positionToByteOffset converts an LSP (line, UTF-16 character) position
// into a byte offset into source. Since ForgeScript sources are treated
// as UTF-8 text and the DSL's own grammar is ASCII, characters are
// counted as runes; non-BMP runes would need UTF-16 surrogate-pair
// accounting that this core does not perform (documents containing
// them fall outside the DSL's intended charset).
func positionToByteOffset(source string, pos protocol.Position) int {
	lineStart := 0
	line := 0
	for line < int(pos.Line) {
		idx := strings.IndexByte(source[lineStart:], '\n')
		if idx == -1 {
			return len(source)
		}
		lineStart += idx + 1
		line++
	}

	offset := lineStart
	remaining := int(pos.Character)
	for remaining > 0 && offset < len(source) && source[offset] != '\n' {
		_, size := utf8.DecodeRuneInString(source[offset:])
		offset += size
		remaining--
	}
	return offset
}

// byteSpanToRange converts a byte-offset dsl.Span into an LSP Range.
func byteSpanToRange(source string, span dsl.Span) protocol.Range {
	return protocol.Range{
		Start: byteOffsetToPosition(source, span.Start),
		End:   byteOffsetToPosition(source, span.End),
	}
}

func byteOffsetToPosition(source string, offset int) protocol.Position {
	if offset > len(source) {
		offset = len(source)
	}
	line := 0
	lineStart := 0
	for i := 0; i < offset; i++ {
		if source[i] == '\n' {
			line++
			lineStart = i + 1
		}
	}
	char := utf8.RuneCountInString(source[lineStart:offset])
	return protocol.Position{Line: uint32(line), Character: uint32(char)}
}

// currentLine returns the text of the line containing pos, truncated to
// the cursor column.
func currentLine(source string, pos protocol.Position) string {
	lineStart := 0
	line := 0
	for line < int(pos.Line) {
		idx := strings.IndexByte(source[lineStart:], '\n')
		if idx == -1 {
			return ""
		}
		lineStart += idx + 1
		line++
	}
	offset := positionToByteOffset(source, pos)
	if offset > len(source) {
		offset = len(source)
	}
	return source[lineStart:offset]
}
