package gemini

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"google.golang.org/genai"

	"github.com/tom-bu/outfit-ai/internal/imageutil"
	"github.com/tom-bu/outfit-ai/internal/textutil"
)

// DefaultCritiqueInstruction is the base analysis prompt before any
// personalization is appended.
const DefaultCritiqueInstruction = "In only bullet points in 50 words, analyze this outfit in detail. " +
	"Describe the style, colors, and key pieces, and call out individual items the wearer could add."

// AnalyzeOutfit sends an outfit photo with the given instruction to Gemini
// and returns the critique text. Large images are downscaled before upload.
func (c *Client) AnalyzeOutfit(ctx context.Context, imageData []byte, mimeType, instruction string) (string, error) {
	log.Debug().
		Int("image_bytes", len(imageData)).
		Str("mime_type", mimeType).
		Str("instruction", textutil.Truncate(instruction, 120)).
		Msg("Starting outfit analysis")

	imageData, mimeType = imageutil.Downscale(imageData, mimeType, imageutil.DefaultMaxDimension)

	contents := []*genai.Content{{
		Role: "user",
		Parts: []*genai.Part{
			{Text: instruction},
			{InlineData: &genai.Blob{MIMEType: mimeType, Data: imageData}},
		},
	}}

	callStart := time.Now()
	resp, err := c.genai.Models.GenerateContent(ctx, c.visionModel, contents, nil)
	duration := time.Since(callStart)
	if err != nil {
		log.Error().Err(err).Dur("duration", duration).Msg("Outfit analysis failed")
		return "", fmt.Errorf("failed to generate critique: %w", err)
	}

	critique := strings.TrimSpace(responseText(resp))
	if critique == "" {
		return "", fmt.Errorf("received empty critique from the generation service")
	}

	log.Debug().
		Int("critique_length", len(critique)).
		Dur("duration", duration).
		Msg("Outfit analysis complete")

	return critique, nil
}
