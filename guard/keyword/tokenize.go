package keyword

import (
	"log/slog"
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var nonTokenChars = regexp.MustCompile(`[^\pL\pN\s]+`)

// Normalize lower-cases text and strips unicode marks (accent folding), so
// that blocklist terms match decorated variants.
func Normalize(text string) string {
	// the transform chain must be re-built per call; it carries state
	normFunc := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	lowered := strings.ToLower(text)
	out, _, err := transform.String(normFunc, lowered)
	if err != nil {
		slog.Warn("unicode normalization error", "err", err)
		return lowered
	}
	return out
}

// Splits free-form text in to lower-case, unicode-normalized tokens. Works
// similarly to an NLP tokenizer, enabling fast matching against a list of
// known terms.
func TokenizeText(text string) []string {
	split := nonTokenChars.ReplaceAllString(text, " ")
	return strings.Fields(Normalize(split))
}
