package gemini

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"google.golang.org/genai"

	"github.com/tom-bu/outfit-ai/internal/textutil"
)

// flatLayPrompt is the fixed template for the suggested-outfit render.
const flatLayPrompt = `Based on these trends: %s
Create a high-quality, photorealistic flat-lay image of the suggested clothing items to buy, laid out on a clean white background.`

// GeneratedOutfit is one synthesized suggested-outfit image.
type GeneratedOutfit struct {
	Data     []byte
	MIMEType string
}

// SuggestOutfitImages renders composite "suggested outfit" images from the
// trend commentary. count defaults to 1. This is the terminal, optional
// pipeline stage: callers must not let a failure here retract earlier results.
func (c *Client) SuggestOutfitImages(ctx context.Context, trendText string, count int) ([]GeneratedOutfit, error) {
	if count <= 0 {
		count = 1
	}

	log.Debug().
		Str("trends", textutil.Truncate(trendText, 120)).
		Int("count", count).
		Msg("Starting outfit image synthesis")

	prompt := fmt.Sprintf(flatLayPrompt, trendText)

	callStart := time.Now()
	resp, err := c.genai.Models.GenerateImages(ctx, c.imageModel, prompt, &genai.GenerateImagesConfig{
		NumberOfImages: int32(count),
	})
	duration := time.Since(callStart)
	if err != nil {
		log.Error().Err(err).Dur("duration", duration).Msg("Outfit image synthesis failed")
		return nil, fmt.Errorf("failed to generate outfit image: %w", err)
	}

	var images []GeneratedOutfit
	for _, gi := range resp.GeneratedImages {
		if gi == nil || gi.Image == nil || len(gi.Image.ImageBytes) == 0 {
			continue
		}
		images = append(images, GeneratedOutfit{
			Data:     gi.Image.ImageBytes,
			MIMEType: gi.Image.MIMEType,
		})
	}

	if len(images) == 0 {
		return nil, fmt.Errorf("no images returned from the generation service")
	}

	log.Info().
		Int("images", len(images)).
		Dur("duration", duration).
		Msg("Outfit image synthesis complete")

	return images, nil
}
