package features

import (
	"strings"

	"github.com/Zack-911/forgelsp/internal/escape"
	"github.com/Zack-911/forgelsp/internal/trie"
)

// SignatureHelpAt scans source backward from offset to find the
// nearest unmatched '[', tracking quote state and escapes and ignoring
// inner balanced brackets, then extracts the preceding "$name" (with
// modifier) and resolves it in t. The active parameter index counts
// ';' (and ',' when commaIsSeparator is set) at depth 0 between the
// '[' and offset.
func SignatureHelpAt(source string, offset int, t *trie.Trie, commaIsSeparator bool) SignatureHelp {
	open := findUnmatchedOpenBracket(source, offset)
	if open == -1 {
		return SignatureHelp{}
	}

	identEnd := open
	identStart := identEnd
	for identStart > 0 && escape.IsIdentByte(source[identStart-1]) {
		identStart--
	}
	if identStart == identEnd {
		return SignatureHelp{}
	}

	modStart := identStart
	if modStart > 0 && (source[modStart-1] == '!' || source[modStart-1] == '#') {
		modStart--
	}
	if modStart == 0 || source[modStart-1] != '$' {
		return SignatureHelp{}
	}

	run := source[identStart:identEnd]

	match, ok := t.Get(run)
	if !ok {
		return SignatureHelp{}
	}
	meta := match.Function

	active := countActiveParam(source[open+1:offset], commaIsSeparator)

	labels := make([]string, len(meta.Args))
	for i, a := range meta.Args {
		n := a.Name
		if a.Rest {
			n = "..." + n
		}
		if !a.Required {
			n += "?"
		}
		labels[i] = n
	}

	return SignatureHelp{
		Found:          true,
		Label:          "$" + meta.Name + "[" + strings.Join(labels, "; ") + "]",
		ActiveParam:    active,
		ParameterLabel: labels,
	}
}

// findUnmatchedOpenBracket scans backward from offset, tracking quote
// state and bracket depth, returning the index of the nearest '['
// that has no matching ']' before offset, or -1 if none.
func findUnmatchedOpenBracket(source string, offset int) int {
	depth := 0
	var quote byte
	for i := offset - 1; i >= 0; i-- {
		c := source[i]
		if quote != 0 {
			if c == quote && escape.CountPrecedingBackslashes(source, i)%2 == 0 {
				quote = 0
			}
			continue
		}
		switch c {
		case '\'', '"':
			quote = c
		case ']':
			if !escape.IsDSLSpecialEscaped(source, i) {
				depth++
			}
		case '[':
			if !escape.IsDSLSpecialEscaped(source, i) {
				if depth == 0 {
					return i
				}
				depth--
			}
		}
	}
	return -1
}

func countActiveParam(interior string, commaIsSeparator bool) int {
	depth := 0
	var quote byte
	active := 0
	for i := 0; i < len(interior); i++ {
		c := interior[i]
		if quote != 0 {
			if c == '\\' {
				i++
				continue
			}
			if c == quote {
				quote = 0
			}
			continue
		}
		switch c {
		case '\'', '"':
			quote = c
		case '[':
			depth++
		case ']':
			if depth > 0 {
				depth--
			}
		case ';':
			if depth == 0 && !escape.IsDSLSpecialEscaped(interior, i) {
				active++
			}
		case ',':
			if commaIsSeparator && depth == 0 {
				active++
			}
		}
	}
	return active
}
