package features

import (
	"testing"

	"github.com/Zack-911/forgelsp/internal/dsl"
	"github.com/Zack-911/forgelsp/internal/trie"
)

func buildCompletionTrie() *trie.Trie {
	t := trie.New()
	t.Insert("ping", &dsl.Function{Name: "ping", Category: "network"})
	t.Insert("ban", &dsl.Function{Name: "ban", Category: "moderation"})
	return t
}

func TestCompletionIncludesOneItemPerFunction(t *testing.T) {
	items := Completion("$", buildCompletionTrie())
	if len(items) != 2 {
		t.Fatalf("expected 2 completion items, got %d", len(items))
	}
}

func TestCompletionCarriesModifierInLabelNotFilter(t *testing.T) {
	items := Completion("$!b", buildCompletionTrie())
	var ban *CompletionItem
	for i := range items {
		if items[i].FilterText == "ban" {
			ban = &items[i]
		}
	}
	if ban == nil {
		t.Fatal("expected a 'ban' candidate")
	}
	if ban.Label != "!ban" || ban.InsertText != "!ban" {
		t.Errorf("expected modifier carried into label/insert text, got %+v", ban)
	}
}

func TestCompletionRanksByEditDistanceWhenNoPrefixMatch(t *testing.T) {
	items := Completion("$pign", buildCompletionTrie())
	if len(items) == 0 {
		t.Fatal("expected completion items")
	}
	if items[0].FilterText != "ping" {
		t.Errorf("expected 'ping' to rank first for typo'd partial 'pign', got %+v", items[0])
	}
}

func TestCompletionNoDollarReturnsNil(t *testing.T) {
	items := Completion("no trigger here", buildCompletionTrie())
	if items != nil {
		t.Errorf("expected nil, got %+v", items)
	}
}
