package gemini

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"google.golang.org/genai"

	"github.com/tom-bu/outfit-ai/internal/textutil"
)

// trendQueryPrefix frames the grounded trend lookup. The generation service
// performs the live retrieval itself via the Google Search tool; this call
// only frames the query and stitches the response back together.
const trendQueryPrefix = "In only bullet points in 50 words, what are the current fashion trends " +
	"that would complement this style: "

// FashionTrends returns current-trend commentary conditioned on the critique,
// using a search-grounded generation call. Response segments are concatenated
// in the order returned, never reordered or deduplicated.
func (c *Client) FashionTrends(ctx context.Context, critique string) (string, error) {
	log.Debug().
		Str("critique", textutil.Truncate(critique, 120)).
		Msg("Starting grounded trend lookup")

	config := &genai.GenerateContentConfig{
		Tools: []*genai.Tool{
			{GoogleSearch: &genai.GoogleSearch{}},
		},
		ResponseModalities: []string{"TEXT"},
	}

	contents := []*genai.Content{{
		Role:  "user",
		Parts: []*genai.Part{{Text: trendQueryPrefix + critique}},
	}}

	callStart := time.Now()
	resp, err := c.genai.Models.GenerateContent(ctx, c.textModel, contents, config)
	duration := time.Since(callStart)
	if err != nil {
		log.Error().Err(err).Dur("duration", duration).Msg("Trend lookup failed")
		return "", fmt.Errorf("failed to generate trend commentary: %w", err)
	}

	trends := responseText(resp)
	if trends == "" {
		return "", fmt.Errorf("received empty trend response from the generation service")
	}

	log.Debug().
		Int("trend_length", len(trends)).
		Dur("duration", duration).
		Msg("Trend lookup complete")

	return trends, nil
}
