package features

import (
	"strings"

	"github.com/Zack-911/forgelsp/internal/fuzzy"
	"github.com/Zack-911/forgelsp/internal/trie"
)

// Completion computes completion items for a cursor at the end of line
// (the text of the current line up to the cursor). It finds the last '$' on the line; if the byte right after
// it is '!' or '#' that's treated as a modifier carried into the
// label/insert text, while filter text stays the bare function name so
// typing "$!b" still matches "ban". Candidates are ranked by fuzzy
// similarity to the user's partial token when nothing prefix-matches.
func Completion(line string, t *trie.Trie) []CompletionItem {
	dollar := strings.LastIndexByte(line, '$')
	if dollar == -1 {
		return nil
	}
	rest := line[dollar+1:]

	modifier := ""
	partial := rest
	if len(rest) > 0 && (rest[0] == '!' || rest[0] == '#') {
		modifier = string(rest[0])
		partial = rest[1:]
	}

	fns := t.AllValues()
	names := make([]string, len(fns))
	byName := make(map[string]int, len(fns))
	for i, f := range fns {
		names[i] = f.Name
		byName[f.Name] = i
	}

	order := names
	hasPrefixMatch := false
	for _, n := range names {
		if partial != "" && strings.HasPrefix(strings.ToLower(n), strings.ToLower(partial)) {
			hasPrefixMatch = true
			break
		}
	}
	if partial != "" && !hasPrefixMatch {
		order = fuzzy.RankByFilter(partial, names)
	}

	items := make([]CompletionItem, 0, len(order))
	for _, name := range order {
		f := fns[byName[name]]
		items = append(items, CompletionItem{
			Label:         modifier + name,
			InsertText:    modifier + name,
			FilterText:    name,
			Detail:        f.Category,
			Documentation: f.Description,
		})
	}
	return items
}
