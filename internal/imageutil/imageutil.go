// Package imageutil downscales outfit photos before they are sent to the
// generation service. Phone camera uploads are routinely 10+ MB; the model
// needs nowhere near that resolution for a style critique.
package imageutil

import (
	"bytes"
	"image"
	"image/jpeg"
	_ "image/png"

	"github.com/rs/zerolog/log"
	"golang.org/x/image/draw"
)

// DefaultMaxDimension is the maximum width or height sent to the generation
// service.
const DefaultMaxDimension = 1536

const jpegQuality = 90

// Downscale resizes JPEG/PNG data so that neither dimension exceeds maxDim,
// re-encoding as JPEG. Input that is already small enough, or that cannot be
// decoded, is returned unchanged together with its original MIME type — the
// generation call still gets a payload either way.
func Downscale(data []byte, mimeType string, maxDim int) ([]byte, string) {
	if maxDim <= 0 {
		maxDim = DefaultMaxDimension
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		log.Debug().Err(err).Str("mime", mimeType).Msg("Image not decodable, sending original bytes")
		return data, mimeType
	}

	bounds := img.Bounds()
	origWidth := bounds.Dx()
	origHeight := bounds.Dy()
	if origWidth <= maxDim && origHeight <= maxDim {
		return data, mimeType
	}

	newWidth, newHeight := fitDimensions(origWidth, origHeight, maxDim)

	resized := image.NewRGBA(image.Rect(0, 0, newWidth, newHeight))
	draw.CatmullRom.Scale(resized, resized.Bounds(), img, bounds, draw.Over, nil)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, resized, &jpeg.Options{Quality: jpegQuality}); err != nil {
		log.Warn().Err(err).Msg("Failed to re-encode downscaled image, sending original bytes")
		return data, mimeType
	}

	log.Debug().
		Int("orig_width", origWidth).
		Int("orig_height", origHeight).
		Int("new_width", newWidth).
		Int("new_height", newHeight).
		Int("output_size", buf.Len()).
		Msg("Outfit image downscaled for upload")

	return buf.Bytes(), "image/jpeg"
}

// fitDimensions scales (width, height) so the larger side equals maxDim,
// preserving aspect ratio.
func fitDimensions(width, height, maxDim int) (int, int) {
	if width >= height {
		newHeight := height * maxDim / width
		if newHeight < 1 {
			newHeight = 1
		}
		return maxDim, newHeight
	}
	newWidth := width * maxDim / height
	if newWidth < 1 {
		newWidth = 1
	}
	return newWidth, maxDim
}
