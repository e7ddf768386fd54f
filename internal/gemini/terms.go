package gemini

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"google.golang.org/genai"

	"github.com/tom-bu/outfit-ai/internal/textutil"
)

// termInstruction asks for concrete purchasable items, not style concepts.
// The comma-separated plain-text format parses reliably without a schema.
const termInstruction = "From the following outfit recommendation, list the concrete clothing items " +
	"someone could shop for. Respond with ONLY a comma-separated list of specific item phrases " +
	"(for example: black leather jacket, white sneakers). Do not include style concepts, " +
	"full outfits, or any other text.\n\n%s"

// ExtractTerms converts free-form recommendation text into an ordered list of
// searchable item phrases. Deduplication is not guaranteed; an empty list is
// a valid result meaning "no actionable items".
func (c *Client) ExtractTerms(ctx context.Context, recommendation string) ([]string, error) {
	log.Debug().
		Int("recommendation_length", len(recommendation)).
		Msg("Starting search term extraction")

	contents := []*genai.Content{{
		Role:  "user",
		Parts: []*genai.Part{{Text: fmt.Sprintf(termInstruction, recommendation)}},
	}}

	callStart := time.Now()
	resp, err := c.genai.Models.GenerateContent(ctx, c.textModel, contents, nil)
	duration := time.Since(callStart)
	if err != nil {
		log.Error().Err(err).Dur("duration", duration).Msg("Term extraction failed")
		return nil, fmt.Errorf("failed to extract search terms: %w", err)
	}

	text := textutil.StripMarkdownFences(responseText(resp))
	terms := textutil.SplitCommaList(text)

	log.Debug().
		Int("term_count", len(terms)).
		Dur("duration", duration).
		Msg("Search term extraction complete")

	return terms, nil
}
