package profile

import (
	"fmt"
	"strings"
)

// maxSnippets bounds how many recent posts are appended to the prompt.
const maxSnippets = 3

// snippetDelimiter separates recent post snippets inside their sentence.
const snippetDelimiter = " | "

// PromptPayload is the instruction handed to the vision analysis call.
type PromptPayload struct {
	BaseText            string
	AugmentedText       string
	UsedPersonalization bool
}

// Compose merges a base instruction with a user's style signals. With a nil
// profile the augmented text equals the base text. Otherwise each present
// signal category is appended as one sentence, in fixed order: interests,
// color preferences, then up to three recent snippets. Absent categories are
// omitted entirely. Deterministic for identical input.
func Compose(base string, p *StyleProfile) PromptPayload {
	if p == nil {
		return PromptPayload{BaseText: base, AugmentedText: base, UsedPersonalization: false}
	}

	var sb strings.Builder
	sb.WriteString(base)

	if len(p.FashionInterests) > 0 {
		sb.WriteString(fmt.Sprintf(" The user's fashion interests are: %s.", strings.Join(p.FashionInterests, ", ")))
	}
	if len(p.ColorPreferences) > 0 {
		sb.WriteString(fmt.Sprintf(" Their preferred colors are: %s.", strings.Join(p.ColorPreferences, ", ")))
	}
	if len(p.RecentSnippets) > 0 {
		snippets := p.RecentSnippets
		if len(snippets) > maxSnippets {
			snippets = snippets[:maxSnippets]
		}
		sb.WriteString(fmt.Sprintf(" Their recent style posts: %s.", strings.Join(snippets, snippetDelimiter)))
	}

	return PromptPayload{
		BaseText:            base,
		AugmentedText:       sb.String(),
		UsedPersonalization: true,
	}
}
