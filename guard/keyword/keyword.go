package keyword

import (
	"slices"
	"strings"
)

// Helper to check a single token against a list of tokens
func TokenInSet(tok string, set []string) bool {
	return slices.Contains(set, tok)
}

// MatchTerms compares text against a list of blocklist terms and returns
// every term that matched, in blocklist order, without duplicates.
//
// Single-word terms match on token boundaries (so "ham" does not match
// "hamster"); terms containing whitespace match as normalized substrings.
func MatchTerms(text string, terms []string) []string {
	if len(terms) == 0 {
		return nil
	}
	tokens := TokenizeText(text)
	normText := " " + strings.Join(tokens, " ") + " "
	var matched []string
	for _, term := range terms {
		t := Normalize(strings.TrimSpace(term))
		if t == "" {
			continue
		}
		var hit bool
		if strings.ContainsAny(t, " \t") {
			phrase := strings.Join(strings.Fields(t), " ")
			hit = strings.Contains(normText, " "+phrase+" ")
		} else {
			hit = TokenInSet(t, tokens)
		}
		if hit && !slices.Contains(matched, term) {
			matched = append(matched, term)
		}
	}
	return matched
}
