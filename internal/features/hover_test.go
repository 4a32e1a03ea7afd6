package features

import (
	"strings"
	"testing"

	"github.com/Zack-911/forgelsp/internal/dsl"
	"github.com/Zack-911/forgelsp/internal/trie"
)

func buildTrie() *trie.Trie {
	t := trie.New()
	t.Insert("ping", &dsl.Function{
		Name:        "ping",
		Description: "Pings a URL.",
		Brackets:    dsl.BracketsRequired,
		Args:        []dsl.Arg{{Name: "url", Required: true}},
		Examples:    []string{"$ping[example.com]"},
	})
	t.Insert("c", &dsl.Function{Name: "c", Brackets: dsl.BracketsRequired})
	return t
}

func TestHoverFormatsSignatureAndDescription(t *testing.T) {
	src := "$ping[example.com]"
	h := ComputeHover(src, 2, buildTrie())
	if !h.Found {
		t.Fatal("expected hover to be found")
	}
	if !strings.Contains(h.Content, "$ping[url]") || !strings.Contains(h.Content, "Pings a URL.") {
		t.Errorf("unexpected hover content: %q", h.Content)
	}
}

func TestHoverReturnsEmptyForCommentFunction(t *testing.T) {
	src := "$c[note]"
	h := ComputeHover(src, 2, buildTrie())
	if h.Found {
		t.Error("expected no hover for comment function")
	}
}

func TestHoverReturnsEmptyForUnknown(t *testing.T) {
	src := "$nope[x]"
	h := ComputeHover(src, 2, buildTrie())
	if h.Found {
		t.Error("expected no hover for unknown function")
	}
}
