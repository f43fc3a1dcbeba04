package filehandler

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"

	"github.com/rs/zerolog/log"
	"golang.org/x/image/draw"
)

// DefaultThumbnailMaxDimension is the maximum dimension (width or height) for thumbnails.
const DefaultThumbnailMaxDimension = 1024

// Thumbnail decodes data and, if either side exceeds maxDimension, resizes it
// with CatmullRom while keeping the aspect ratio.
//
// JPEG input is re-encoded as JPEG. Everything else is encoded as PNG so the
// result is always a format every MCP client and browser can show.
// An image already within bounds is returned unchanged with its own MIME type.
func Thumbnail(data []byte, mimeType string, maxDimension int) ([]byte, string, error) {
	if maxDimension <= 0 {
		return data, mimeType, nil
	}

	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, "", fmt.Errorf("failed to decode image: %w", err)
	}

	bounds := img.Bounds()
	origWidth := bounds.Dx()
	origHeight := bounds.Dy()

	if origWidth <= maxDimension && origHeight <= maxDimension {
		return data, mimeType, nil
	}

	newWidth, newHeight := FitWithin(origWidth, origHeight, maxDimension)

	resized := image.NewRGBA(image.Rect(0, 0, newWidth, newHeight))
	draw.CatmullRom.Scale(resized, resized.Bounds(), img, bounds, draw.Over, nil)

	var buf bytes.Buffer
	outMIME := "image/png"
	if format == "jpeg" {
		outMIME = "image/jpeg"
		err = jpeg.Encode(&buf, resized, &jpeg.Options{Quality: 85})
	} else {
		err = png.Encode(&buf, resized)
	}
	if err != nil {
		return nil, "", fmt.Errorf("failed to encode thumbnail: %w", err)
	}

	log.Debug().
		Str("format", format).
		Int("orig_width", origWidth).
		Int("orig_height", origHeight).
		Int("new_width", newWidth).
		Int("new_height", newHeight).
		Int("output_size", buf.Len()).
		Msg("Thumbnail generated")

	return buf.Bytes(), outMIME, nil
}

// FitWithin calculates new dimensions maintaining aspect ratio so that
// neither side exceeds maxDimension. Images already within bounds are unchanged.
func FitWithin(width, height, maxDimension int) (int, int) {
	if width <= maxDimension && height <= maxDimension {
		return width, height
	}

	if width > height {
		newWidth := maxDimension
		newHeight := max(1, int(float64(height)*float64(maxDimension)/float64(width)))
		return newWidth, newHeight
	}

	newHeight := maxDimension
	newWidth := max(1, int(float64(width)*float64(maxDimension)/float64(height)))
	return newWidth, newHeight
}
