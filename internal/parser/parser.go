// Package parser recovers ForgeScript structure from a mixed host
// document: it extracts `code:` blocks, tokenizes their contents, and
// recursively parses `$name[...]` call sites into a ParseResult.
package parser

import (
	"fmt"

	"github.com/Zack-911/forgelsp/internal/dsl"
	"github.com/Zack-911/forgelsp/internal/escape"
	"github.com/Zack-911/forgelsp/internal/fuzzy"
	"github.com/Zack-911/forgelsp/internal/trie"
)

const ignoreErrorDirective = "fs@ignore-error"

// Parse extracts every `code:` block from doc and parses each one
// against the given trie snapshot, returning a single ParseResult whose
// spans are byte offsets into doc.
func Parse(doc string, t *trie.Trie) *dsl.ParseResult {
	result := &dsl.ParseResult{}
	for _, b := range extractCodeBlocks(doc) {
		frag := ParseFragment(doc[b.start:b.end], b.start, t)
		result.Tokens = append(result.Tokens, frag.Tokens...)
		result.Diagnostics = append(result.Diagnostics, frag.Diagnostics...)
		result.Functions = append(result.Functions, frag.Functions...)
	}
	return result
}

type codeBlock struct{ start, end int }

// extractCodeBlocks scans doc for the literal header "code:", skips
// spaces and tabs, requires an opening backtick, then reads until the
// first unescaped backtick.
func extractCodeBlocks(doc string) []codeBlock {
	const header = "code:"
	var blocks []codeBlock
	i := 0
	for i < len(doc) {
		idx := indexFrom(doc, header, i)
		if idx == -1 {
			break
		}
		pos := idx + len(header)
		for pos < len(doc) && (doc[pos] == ' ' || doc[pos] == '\t') {
			pos++
		}
		if pos >= len(doc) || doc[pos] != '`' {
			i = idx + len(header)
			continue
		}
		bodyStart := pos + 1
		j := bodyStart
		for j < len(doc) {
			if doc[j] == '`' && !escape.IsBacktickEscaped(doc, j) {
				break
			}
			j++
		}
		blocks = append(blocks, codeBlock{bodyStart, j})
		if j < len(doc) {
			i = j + 1
		} else {
			i = len(doc)
		}
	}
	return blocks
}

func indexFrom(s, substr string, from int) int {
	if from >= len(s) {
		return -1
	}
	idx := indexOf(s[from:], substr)
	if idx == -1 {
		return -1
	}
	return from + idx
}

func indexOf(s, substr string) int {
	n, m := len(s), len(substr)
	if m == 0 {
		return 0
	}
	for i := 0; i+m <= n; i++ {
		if s[i:i+m] == substr {
			return i
		}
	}
	return -1
}

// ignoreState tracks the `$c[fs@ignore-error]` directive: once armed,
// it suppresses diagnostics and top-level function registration through
// the remainder of the directive's own line and the entirety of the
// next logical line, clearing at that line's terminating newline.
type ignoreState struct {
	active     bool
	ownNewline bool
}

func (s *ignoreState) arm() {
	s.active = true
	s.ownNewline = false
}

func (s *ignoreState) advance(consumed string) {
	for i := 0; i < len(consumed); i++ {
		if consumed[i] != '\n' || !s.active {
			continue
		}
		if !s.ownNewline {
			s.ownNewline = true
		} else {
			s.active = false
			s.ownNewline = false
		}
	}
}

// ParseFragment parses a raw DSL fragment (a `code:` block body, or an
// argument interior during recursive descent) whose first byte sits at
// baseOffset in the outer document the spans should be reported
// against.
func ParseFragment(body string, baseOffset int, t *trie.Trie) *dsl.ParseResult {
	result := &dsl.ParseResult{}
	ignore := &ignoreState{}
	pos := 0

	for pos < len(body) {
		switch {
		case isJSTrigger(body, pos):
			start := pos
			end := findJSEnd(body, pos)
			result.Tokens = append(result.Tokens, dsl.Token{
				Span: dsl.Span{Start: baseOffset + start, End: baseOffset + end},
				Kind: dsl.TokenJavaScript,
			})
			ignore.advance(body[start:end])
			pos = end

		case isCallTrigger(body, pos):
			start := pos
			cr := parseCall(body, pos, baseOffset, t)
			result.Tokens = append(result.Tokens, cr.tokens...)
			consumed := body[start:cr.end]
			if !ignore.active {
				result.Diagnostics = append(result.Diagnostics, cr.diagnostics...)
				if cr.fn != nil {
					result.Functions = append(result.Functions, cr.fn)
				}
			}
			if cr.isIgnoreDirective && !ignore.active {
				ignore.arm()
			}
			ignore.advance(consumed)
			pos = cr.end

		default:
			start := pos
			for pos < len(body) && !isJSTrigger(body, pos) && !isCallTrigger(body, pos) {
				pos++
			}
			if pos == start {
				pos++
			}
			result.Tokens = append(result.Tokens, dsl.Token{
				Span: dsl.Span{Start: baseOffset + start, End: baseOffset + pos},
				Kind: dsl.TokenText,
			})
			ignore.advance(body[start:pos])
		}
	}
	return result
}

func isJSTrigger(body string, i int) bool {
	return i+1 < len(body) && body[i] == '$' && !escape.IsDSLSpecialEscaped(body, i) && body[i+1] == '{'
}

func isCallTrigger(body string, i int) bool {
	return i < len(body) && body[i] == '$' && !escape.IsDSLSpecialEscaped(body, i) && !isJSTrigger(body, i)
}

// findJSEnd returns the index just past the '}' matching the '{' of a
// `${...}` header at body[start:start+2], using plain brace-depth
// counting with no awareness of the embedded language's own syntax.
func findJSEnd(body string, start int) int {
	depth := 0
	i := start + 1
	for i < len(body) {
		switch body[i] {
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return i + 1
			}
		}
		i++
	}
	return len(body)
}

// callResult is the outcome of parsing one `$...` call site.
type callResult struct {
	fn                *dsl.ParsedFunction
	end               int
	tokens            []dsl.Token
	diagnostics       []dsl.Diagnostic
	isIgnoreDirective bool
}

func parseCall(body string, start, baseOffset int, t *trie.Trie) callResult {
	i := start + 1
	silent, negated := false, false
	if i < len(body) {
		switch body[i] {
		case '!':
			silent = true
			i++
		case '#':
			negated = true
			i++
		}
	}

	identStart := i
	for i < len(body) && escape.IsIdentByte(body[i]) {
		i++
	}
	identEnd := i

	if identStart == identEnd {
		// Bare '$' (or modifier with no following identifier): not a
		// call at all, just a literal byte.
		return callResult{
			end: start + 1,
			tokens: []dsl.Token{{
				Span: dsl.Span{Start: baseOffset + start, End: baseOffset + start + 1},
				Kind: dsl.TokenText,
			}},
		}
	}

	run := body[identStart:identEnd]
	match, found := t.Get(run)
	if !found || match.Start != 0 {
		names := make([]string, 0, t.Size())
		for _, f := range t.AllValues() {
			names = append(names, f.Name)
		}
		msg := fmt.Sprintf("Unknown function $%s", run)
		if suggestion := fuzzy.Suggest(run, names); suggestion != "" {
			msg = fmt.Sprintf("Unknown function $%s (did you mean $%s?)", run, suggestion)
		}
		return callResult{
			end: identEnd,
			tokens: []dsl.Token{{
				Span: dsl.Span{Start: baseOffset + start, End: baseOffset + identEnd},
				Kind: dsl.TokenUnknown,
			}},
			diagnostics: []dsl.Diagnostic{{
				Span:     dsl.Span{Start: baseOffset + start, End: baseOffset + identEnd},
				Severity: dsl.SeverityError,
				Message:  msg,
			}},
		}
	}

	meta := match.Function
	nameEnd := identStart + len(match.Key)
	nameTok := dsl.Token{
		Span: dsl.Span{Start: baseOffset + identStart, End: baseOffset + nameEnd},
		Kind: dsl.TokenFunctionName,
	}

	fn := &dsl.ParsedFunction{
		Name:    meta.Name,
		Silent:  silent,
		Negated: negated,
		Meta:    meta,
	}

	hasBracket := nameEnd < len(body) && body[nameEnd] == '['

	if meta.IsComment() || meta.IsEscape() {
		if !hasBracket {
			return callResult{
				end:    nameEnd,
				tokens: []dsl.Token{nameTok},
				diagnostics: []dsl.Diagnostic{{
					Span:     dsl.Span{Start: baseOffset + start, End: baseOffset + nameEnd},
					Severity: dsl.SeverityError,
					Message:  fmt.Sprintf("$%s requires brackets", meta.Name),
				}},
			}
		}
		open := nameEnd
		end := escape.MatchRaw(body, open)
		if end == -1 {
			return callResult{
				end:    len(body),
				tokens: []dsl.Token{nameTok, {Span: dsl.Span{Start: baseOffset + open, End: baseOffset + len(body)}, Kind: dsl.TokenEscaped}},
				diagnostics: []dsl.Diagnostic{{
					Span:     dsl.Span{Start: baseOffset + start, End: baseOffset + len(body)},
					Severity: dsl.SeverityError,
					Message:  fmt.Sprintf("Unclosed '[' for $%s", meta.Name),
				}},
			}
		}
		finalEnd := end + 1
		fn.Span = dsl.Span{Start: baseOffset + start, End: baseOffset + finalEnd}
		fn.Matched = body[start:finalEnd]
		content := body[open+1 : end]
		isDirective := meta.IsComment() && content == ignoreErrorDirective
		return callResult{
			fn:                fn,
			end:               finalEnd,
			tokens:            []dsl.Token{nameTok, {Span: dsl.Span{Start: baseOffset + open + 1, End: baseOffset + end}, Kind: dsl.TokenEscaped}},
			isIgnoreDirective: isDirective,
		}
	}

	var diags []dsl.Diagnostic

	if !hasBracket {
		if meta.Brackets == dsl.BracketsRequired {
			return callResult{
				end:    nameEnd,
				tokens: []dsl.Token{nameTok},
				diagnostics: []dsl.Diagnostic{{
					Span:     dsl.Span{Start: baseOffset + start, End: baseOffset + nameEnd},
					Severity: dsl.SeverityError,
					Message:  fmt.Sprintf("$%s requires brackets", meta.Name),
				}},
			}
		}
		diags = append(diags, validateArity(meta, 0, baseOffset+start, baseOffset+nameEnd)...)
		fn.Span = dsl.Span{Start: baseOffset + start, End: baseOffset + nameEnd}
		fn.Matched = body[start:nameEnd]
		return callResult{fn: fn, end: nameEnd, tokens: []dsl.Token{nameTok}, diagnostics: diags}
	}

	if meta.Brackets == dsl.BracketsDisallowed {
		// Still need to skip past the bracketed text so the outer scan
		// doesn't reinterpret its contents.
		open := nameEnd
		end := escape.MatchSmart(body, open)
		diag := dsl.Diagnostic{
			Span:     dsl.Span{Start: baseOffset + start, End: baseOffset + nameEnd},
			Severity: dsl.SeverityError,
			Message:  fmt.Sprintf("$%s does not accept brackets", meta.Name),
		}
		if end == -1 {
			return callResult{end: len(body), tokens: []dsl.Token{nameTok}, diagnostics: []dsl.Diagnostic{diag}}
		}
		finalEnd := end + 1
		fn.Span = dsl.Span{Start: baseOffset + start, End: baseOffset + finalEnd}
		fn.Matched = body[start:finalEnd]
		return callResult{end: finalEnd, tokens: []dsl.Token{nameTok}, diagnostics: []dsl.Diagnostic{diag}}
	}

	open := nameEnd
	end := escape.MatchSmart(body, open)
	if end == -1 {
		return callResult{
			end:    len(body),
			tokens: []dsl.Token{nameTok},
			diagnostics: []dsl.Diagnostic{{
				Span:     dsl.Span{Start: baseOffset + start, End: baseOffset + len(body)},
				Severity: dsl.SeverityError,
				Message:  fmt.Sprintf("Unclosed '[' for $%s", meta.Name),
			}},
		}
	}

	interior := body[open+1 : end]
	argSpans := splitArgs(interior)
	args := make([][]dsl.ParsedArg, 0, len(argSpans))
	tokens := []dsl.Token{nameTok}
	var argDiags []dsl.Diagnostic

	for _, sp := range argSpans {
		piece := interior[sp.start:sp.end]
		pieceOffset := baseOffset + open + 1 + sp.start
		trimmed, leadWS := trimLeadingSpaces(piece)
		if len(trimmed) > 0 && isCallTrigger(trimmed, 0) {
			nested := parseCall(trimmed, 0, pieceOffset+leadWS, t)
			tokens = append(tokens, nested.tokens...)
			argDiags = append(argDiags, nested.diagnostics...)
			if nested.fn != nil {
				args = append(args, []dsl.ParsedArg{{IsFunction: true, Function: nested.fn}})
			} else {
				args = append(args, []dsl.ParsedArg{{Literal: piece}})
			}
		} else {
			args = append(args, []dsl.ParsedArg{{Literal: piece}})
		}
	}

	n := len(argSpans)
	if len(interior) == 0 {
		n = 0
	}
	diags = append(diags, validateArity(meta, n, baseOffset+start, baseOffset+nameEnd)...)
	diags = append(diags, argDiags...)

	finalEnd := end + 1
	fn.Span = dsl.Span{Start: baseOffset + start, End: baseOffset + finalEnd}
	fn.Matched = body[start:finalEnd]
	fn.Args = args

	return callResult{fn: fn, end: finalEnd, tokens: tokens, diagnostics: diags}
}

func validateArity(meta *dsl.Function, n, startOffset, nameEndOffset int) []dsl.Diagnostic {
	var diags []dsl.Diagnostic
	min := meta.MinArgs()
	max := meta.MaxArgs()
	hasRest := meta.HasRest()
	if n < min {
		diags = append(diags, dsl.Diagnostic{
			Span:     dsl.Span{Start: startOffset, End: nameEndOffset},
			Severity: dsl.SeverityError,
			Message:  fmt.Sprintf("$%s expects at least %d args, got %d", meta.Name, min, n),
		})
	}
	if !hasRest && n > max {
		diags = append(diags, dsl.Diagnostic{
			Span:     dsl.Span{Start: startOffset, End: nameEndOffset},
			Severity: dsl.SeverityError,
			Message:  fmt.Sprintf("$%s expects at most %d args, got %d", meta.Name, max, n),
		})
	}
	return diags
}

func trimLeadingSpaces(s string) (string, int) {
	i := 0
	for i < len(s) && (s[i] == ' ' || s[i] == '\t') {
		i++
	}
	return s[i:], i
}

type argSpan struct{ start, end int }

// splitArgs splits interior at top-level `;`: not inside an inner
// balanced `[...]`, not escaped, not inside a quoted substring, and
// jumping wholesale past any inner esc/comment header's raw-matched
// bracket body so its content can't smuggle in a stray ';' or bracket.
func splitArgs(s string) []argSpan {
	var spans []argSpan
	depth := 0
	var quote byte
	start := 0
	i := 0
	for i < len(s) {
		c := s[i]
		if quote != 0 {
			if c == '\\' {
				i += 2
				continue
			}
			if c == quote {
				quote = 0
			}
			i++
			continue
		}
		switch c {
		case '\'', '"':
			quote = c
			i++
		case '$':
			if _, bodyOpen, ok := escape.PeekEscHeader(s, i); ok && bodyOpen < len(s) && s[bodyOpen] == '[' {
				if end := escape.MatchRaw(s, bodyOpen); end != -1 {
					i = end + 1
					continue
				}
			}
			i++
		case '[':
			if !escape.IsDSLSpecialEscaped(s, i) {
				depth++
			}
			i++
		case ']':
			if !escape.IsDSLSpecialEscaped(s, i) {
				if depth > 0 {
					depth--
				}
			}
			i++
		case ';':
			if depth == 0 && !escape.IsDSLSpecialEscaped(s, i) {
				spans = append(spans, argSpan{start, i})
				start = i + 1
			}
			i++
		default:
			i++
		}
	}
	spans = append(spans, argSpan{start, len(s)})
	return spans
}
