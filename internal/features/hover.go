package features

import (
	"fmt"
	"strings"

	"github.com/Zack-911/forgelsp/internal/dsl"
	"github.com/Zack-911/forgelsp/internal/escape"
	"github.com/Zack-911/forgelsp/internal/trie"
)

const identClass = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789_.$"

// ComputeHover computes a hover payload for the byte offset into source,
// expanding left/right over the identifier class (letters, digits,
// '_', '.', '$') and stopping where a '$' would be escaped. Returns
// Found=false if the expanded token does not resolve in t, or resolves
// to a comment/escape meta-function.
func ComputeHover(source string, offset int, t *trie.Trie) Hover {
	start, end := expandIdentRun(source, offset)
	if start == end {
		return Hover{}
	}
	run := strings.TrimLeft(source[start:end], "$")
	match, ok := t.Get(run)
	if !ok {
		return Hover{}
	}
	meta := match.Function
	if meta.IsComment() || meta.IsEscape() {
		return Hover{}
	}
	return Hover{Found: true, Content: formatDoc(meta)}
}

func expandIdentRun(source string, offset int) (int, int) {
	inClass := func(b byte) bool { return strings.IndexByte(identClass, b) >= 0 }

	start := offset
	for start > 0 && inClass(source[start-1]) {
		if source[start-1] == '$' && escape.IsDSLSpecialEscaped(source, start-1) {
			break
		}
		start--
	}
	end := offset
	for end < len(source) && inClass(source[end]) {
		end++
	}
	return start, end
}

func formatDoc(f *dsl.Function) string {
	var b strings.Builder
	b.WriteString("```\n")
	b.WriteString(signature(f))
	b.WriteString("\n```\n")
	if f.Description != "" {
		b.WriteString(f.Description)
		b.WriteString("\n")
	}
	for i, ex := range f.Examples {
		if i >= 2 {
			break
		}
		fmt.Fprintf(&b, "\n`%s`", ex)
	}
	return b.String()
}

// signature renders a function's call shape: "$name[arg1; arg2; ...]"
// when brackets are required, with a note appended for optional
// brackets, and no brackets at all when disallowed. Rest args are
// prefixed "...", non-required args are suffixed "?".
func signature(f *dsl.Function) string {
	if f.Brackets == dsl.BracketsDisallowed {
		return "$" + f.Name
	}

	parts := make([]string, len(f.Args))
	for i, a := range f.Args {
		name := a.Name
		if a.Rest {
			name = "..." + name
		}
		if !a.Required {
			name = name + "?"
		}
		parts[i] = name
	}
	sig := "$" + f.Name + "[" + strings.Join(parts, "; ") + "]"
	if f.Brackets == dsl.BracketsOptional {
		sig += "  (brackets optional)"
	}
	return sig
}
