// Package semtok converts a parsed document into the ordered,
// delta-encoded semantic token stream the LSP "textDocument/semanticTokens/full"
// request expects.
package semtok

import (
	"sort"
	"unicode/utf8"

	"github.com/Zack-911/forgelsp/internal/escape"
	"github.com/Zack-911/forgelsp/internal/trie"
)

// Token types, matching the legend index order advertised at
// initialize time.
const (
	TypeFunction          = 0
	TypeKeyword           = 1
	TypeNumber            = 2
	TypeAlternateFunction = 3
	TypeString            = 4
	TypeComment           = 5
)

// Span is one classified highlighting span before delta-encoding.
type Span struct {
	Start int
	End   int
	Type  int
}

// Extract walks source and t to produce the ordered, deduplicated
// (start, end, type) spans described in the component design: `$c[...]`
// as a whole comment span, `$esc`/`$escapeCode` as function/string/
// function triples, resolved calls alternating function/alternate-function
// colors when multiColor is enabled, every unescaped `;` (bracket depth
// and quotes are not tracked) and bare `true`/`false` as keywords, and
// digit runs as numbers.
func Extract(source string, t *trie.Trie, multiColor bool) []Span {
	var spans []Span
	altToggle := false

	i := 0
	for i < len(source) {
		if source[i] == '$' && !escape.IsDSLSpecialEscaped(source, i) {
			if name, bodyOpen, ok := escape.PeekEscHeader(source, i); ok && bodyOpen < len(source) && source[bodyOpen] == '[' {
				end := escape.MatchRaw(source, bodyOpen)
				if end == -1 {
					i++
					continue
				}
				if name == "c" {
					spans = append(spans, Span{i, end + 1, TypeComment})
				} else {
					nameEnd := bodyOpen
					spans = append(spans, Span{i, nameEnd, TypeFunction})
					spans = append(spans, Span{bodyOpen + 1, end, TypeString})
					spans = append(spans, Span{end, end + 1, TypeFunction})
				}
				i = end + 1
				continue
			}

			identStart := i + 1
			if identStart < len(source) && (source[identStart] == '!' || source[identStart] == '#') {
				identStart++
			}
			j := identStart
			for j < len(source) && escape.IsIdentByte(source[j]) {
				j++
			}
			if j > identStart {
				if match, ok := t.Get(source[identStart:j]); ok && match.Start == 0 {
					typ := TypeFunction
					if multiColor && altToggle {
						typ = TypeAlternateFunction
					}
					altToggle = !altToggle
					spans = append(spans, Span{i, identStart + len(match.Key), typ})
					i = identStart + len(match.Key)
					continue
				}
			}
			i++
			continue
		}

		if source[i] == ';' && !escape.IsDSLSpecialEscaped(source, i) {
			spans = append(spans, Span{i, i + 1, TypeKeyword})
			i++
			continue
		}

		if word, end, ok := matchBoolWord(source, i); ok {
			spans = append(spans, Span{i, end, TypeKeyword})
			_ = word
			i = end
			continue
		}

		if isDigit(source[i]) {
			start := i
			for i < len(source) && (isDigit(source[i]) || source[i] == '.') {
				i++
			}
			spans = append(spans, Span{start, i, TypeNumber})
			continue
		}

		i++
	}

	sort.Slice(spans, func(a, b int) bool { return spans[a].Start < spans[b].Start })

	out := spans[:0]
	for _, s := range spans {
		if s.End <= s.Start {
			continue
		}
		out = append(out, s)
	}
	return out
}

func isDigit(b byte) bool { return b >= '0' && b <= '9' }

func matchBoolWord(s string, i int) (string, int, bool) {
	for _, word := range []string{"true", "false"} {
		n := len(word)
		if i+n > len(s) || s[i:i+n] != word {
			continue
		}
		if i > 0 && escape.IsIdentByte(s[i-1]) {
			continue
		}
		if i+n < len(s) && escape.IsIdentByte(s[i+n]) {
			continue
		}
		return word, i + n, true
	}
	return "", 0, false
}

// Delta is one LSP semantic token entry: (deltaLine, deltaStart,
// length, tokenType, tokenModifiers).
type Delta struct {
	DeltaLine      int
	DeltaStart     int
	Length         int
	TokenType      int
	TokenModifiers int
}

// Encode converts byte-offset spans in source into the relative-delta
// form the protocol wire format expects, counting characters (not
// bytes) for UTF-8 safety and clamping zero-length spans to length 1.
func Encode(source string, spans []Span) []Delta {
	lineStarts := computeLineStarts(source)

	prevLine, prevChar := 0, 0
	deltas := make([]Delta, 0, len(spans))
	for _, s := range spans {
		line, char := lineAndChar(source, lineStarts, s.Start)
		length := utf8.RuneCountInString(source[s.Start:s.End])
		if length < 1 {
			length = 1
		}

		deltaLine := line - prevLine
		deltaStart := char
		if deltaLine == 0 {
			deltaStart = char - prevChar
		}

		deltas = append(deltas, Delta{
			DeltaLine:  deltaLine,
			DeltaStart: deltaStart,
			Length:     length,
			TokenType:  s.Type,
		})
		prevLine, prevChar = line, char
	}
	return deltas
}

func computeLineStarts(source string) []int {
	starts := []int{0}
	for i := 0; i < len(source); i++ {
		if source[i] == '\n' {
			starts = append(starts, i+1)
		}
	}
	return starts
}

func lineAndChar(source string, lineStarts []int, offset int) (int, int) {
	line := sort.Search(len(lineStarts), func(i int) bool { return lineStarts[i] > offset }) - 1
	if line < 0 {
		line = 0
	}
	char := utf8.RuneCountInString(source[lineStarts[line]:offset])
	return line, char
}
