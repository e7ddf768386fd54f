// Package gemini wraps the generation-service calls the styling pipeline
// depends on: the vision critique, search-grounded trend commentary,
// search-term extraction, and outfit image synthesis.
package gemini

import (
	"context"
	"fmt"
	"os"

	"google.golang.org/genai"
)

// Gemini model IDs.
const (
	// ModelFlash is the default text/vision model: fast, multimodal.
	ModelFlash = "gemini-2.0-flash"

	// ModelFlashExp handles the outfit critique; the experimental flash
	// line has stronger image understanding.
	ModelFlashExp = "gemini-2.0-flash-exp"

	// ModelImagen renders the suggested-outfit flat-lay.
	ModelImagen = "imagen-3.0-generate-002"
)

// Client wraps a genai client together with the resolved model names.
type Client struct {
	genai       *genai.Client
	visionModel string
	textModel   string
	imageModel  string
}

// NewClient creates a Gemini client for the given API key.
// Model names can be overridden via GEMINI_MODEL (text generation),
// GEMINI_VISION_MODEL (critique), and GEMINI_IMAGE_MODEL (synthesis).
func NewClient(ctx context.Context, apiKey string) (*Client, error) {
	c, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	return &Client{
		genai:       c,
		visionModel: envOrDefault("GEMINI_VISION_MODEL", ModelFlashExp),
		textModel:   envOrDefault("GEMINI_MODEL", ModelFlash),
		imageModel:  envOrDefault("GEMINI_IMAGE_MODEL", ModelImagen),
	}, nil
}

// ModelNames returns the resolved vision, text, and image model names.
func (c *Client) ModelNames() (vision, text, image string) {
	return c.visionModel, c.textModel, c.imageModel
}

func envOrDefault(envVar, defaultVal string) string {
	if v := os.Getenv(envVar); v != "" {
		return v
	}
	return defaultVal
}

// responseText concatenates the text parts of the first candidate, in the
// order the service returned them. Segment order is preserved verbatim.
func responseText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ""
	}

	out := ""
	for _, part := range resp.Candidates[0].Content.Parts {
		if part == nil || part.Text == "" {
			continue
		}
		if out != "" {
			out += " "
		}
		out += part.Text
	}
	return out
}
