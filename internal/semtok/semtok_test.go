package semtok

import (
	"testing"

	"github.com/Zack-911/forgelsp/internal/dsl"
	"github.com/Zack-911/forgelsp/internal/trie"
)

func buildTrie() *trie.Trie {
	t := trie.New()
	t.Insert("ping", &dsl.Function{Name: "ping", Brackets: dsl.BracketsRequired})
	t.Insert("random", &dsl.Function{Name: "random", Brackets: dsl.BracketsRequired})
	t.Insert("c", &dsl.Function{Name: "c", Brackets: dsl.BracketsRequired})
	t.Insert("esc", &dsl.Function{Name: "esc", Brackets: dsl.BracketsRequired})
	return t
}

func TestExtractCommentIsWholeSpan(t *testing.T) {
	src := "$c[this is a note]"
	spans := Extract(src, buildTrie(), true)
	if len(spans) != 1 || spans[0].Type != TypeComment || spans[0].Start != 0 || spans[0].End != len(src) {
		t.Fatalf("expected single comment span covering whole call, got %+v", spans)
	}
}

func TestExtractEscIsThreeSpans(t *testing.T) {
	src := "$esc[literal]"
	spans := Extract(src, buildTrie(), true)
	if len(spans) != 3 {
		t.Fatalf("expected 3 spans (function, string, function), got %+v", spans)
	}
	if spans[0].Type != TypeFunction || spans[1].Type != TypeString || spans[2].Type != TypeFunction {
		t.Errorf("unexpected span types: %+v", spans)
	}
}

func TestExtractAlternatesFunctionColor(t *testing.T) {
	src := "$ping[a]$ping[b]"
	spans := Extract(src, buildTrie(), true)
	var fnSpans []Span
	for _, s := range spans {
		if s.Type == TypeFunction || s.Type == TypeAlternateFunction {
			fnSpans = append(fnSpans, s)
		}
	}
	if len(fnSpans) != 2 {
		t.Fatalf("expected 2 function-name spans, got %+v", fnSpans)
	}
	if fnSpans[0].Type == fnSpans[1].Type {
		t.Errorf("expected alternating colors, got %+v", fnSpans)
	}
}

func TestExtractNoAlternationWhenMultiColorDisabled(t *testing.T) {
	src := "$ping[a]$ping[b]"
	spans := Extract(src, buildTrie(), false)
	for _, s := range spans {
		if s.Type == TypeAlternateFunction {
			t.Errorf("expected no alternate-function spans when multiColor is off, got %+v", spans)
		}
	}
}

func TestExtractSemicolonAndBoolAndNumber(t *testing.T) {
	src := "$ping[true;42]"
	spans := Extract(src, buildTrie(), true)
	var sawSemi, sawBool, sawNum bool
	for _, s := range spans {
		switch {
		case s.Type == TypeKeyword && src[s.Start:s.End] == ";":
			sawSemi = true
		case s.Type == TypeKeyword && src[s.Start:s.End] == "true":
			sawBool = true
		case s.Type == TypeNumber && src[s.Start:s.End] == "42":
			sawNum = true
		}
	}
	if !sawSemi || !sawBool || !sawNum {
		t.Errorf("expected semicolon, bool, and number spans, got %+v", spans)
	}
}

func TestEncodeDeltaEncoding(t *testing.T) {
	src := "$ping[a]\n$random[b;c]"
	spans := Extract(src, buildTrie(), true)
	deltas := Encode(src, spans)
	if len(deltas) == 0 {
		t.Fatal("expected at least one delta")
	}
	for _, d := range deltas {
		if d.Length < 1 {
			t.Errorf("expected length clamped to >=1, got %+v", d)
		}
	}
}
