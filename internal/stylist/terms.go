package stylist

import (
	"regexp"
	"strings"
)

// minTermLength discards fragments too short to be a useful query (a bare
// "hat" matches everything and nothing).
const minTermLength = 6

// garmentPattern matches a garment keyword with up to two preceding
// descriptor words, over lowercased text. The keyword list covers the
// garment nouns the critique and trend text actually use.
var garmentPattern = regexp.MustCompile(
	`\b(?:[a-z][a-z'-]*\s+){0,2}` +
		`(?:jacket|shirt|pants|shoes|dress|hat|sweater|jeans|boots|sneakers|coat)s?\b`)

// fallbackSearchTerms extracts searchable item phrases from free text using
// keyword matching. It is the deterministic safety net for when model-based
// extraction returns nothing: same text in, same terms out, in text order,
// deduplicated.
func fallbackSearchTerms(text string) []string {
	lowered := strings.ToLower(text)
	matches := garmentPattern.FindAllString(lowered, -1)

	seen := make(map[string]struct{}, len(matches))
	var terms []string
	for _, m := range matches {
		term := strings.TrimSpace(m)
		if len(term) < minTermLength {
			continue
		}
		if _, dup := seen[term]; dup {
			continue
		}
		seen[term] = struct{}{}
		terms = append(terms, term)
	}
	return terms
}
