// Package fuzzy provides "did you mean" suggestions and fuzzy ranking
// over known ForgeScript function names, built on top of go-edlib's
// string-similarity algorithms.
package fuzzy

import "github.com/hbollon/go-edlib"

// SuggestThreshold is the minimum Jaro-Winkler similarity score (0-1) a
// candidate must clear before it is surfaced as a suggestion.
const SuggestThreshold = 0.72

// Similarity returns the Jaro-Winkler similarity of a and b in [0, 1].
// It returns 0 if either string is empty or the underlying algorithm
// errors.
func Similarity(a, b string) float64 {
	if a == "" || b == "" {
		return 0
	}
	score, err := edlib.StringsSimilarity(a, b, edlib.JaroWinkler)
	if err != nil {
		return 0
	}
	return float64(score)
}

// BestMatch returns the candidate in candidates most similar to target,
// and its similarity score. ok is false if candidates is empty.
func BestMatch(target string, candidates []string) (best string, score float64, ok bool) {
	for _, c := range candidates {
		s := Similarity(target, c)
		if !ok || s > score {
			best, score, ok = c, s, true
		}
	}
	return best, score, ok
}

// Suggest returns the best candidate name for target among candidates,
// or "" if nothing clears SuggestThreshold.
func Suggest(target string, candidates []string) string {
	best, score, ok := BestMatch(target, candidates)
	if !ok || score < SuggestThreshold {
		return ""
	}
	return best
}

// RankByFilter sorts candidates by similarity to filter, descending,
// stable on ties. Used by the completion handler when filter does not
// prefix-match any function name.
func RankByFilter(filter string, candidates []string) []string {
	type scored struct {
		name  string
		score float64
	}
	ranked := make([]scored, len(candidates))
	for i, c := range candidates {
		ranked[i] = scored{c, Similarity(filter, c)}
	}
	for i := 1; i < len(ranked); i++ {
		for j := i; j > 0 && ranked[j].score > ranked[j-1].score; j-- {
			ranked[j], ranked[j-1] = ranked[j-1], ranked[j]
		}
	}
	out := make([]string, len(ranked))
	for i, r := range ranked {
		out[i] = r.name
	}
	return out
}
