// Package chat talks to the Gemini image model. A Colorizer turns one
// black-and-white photo plus an optional hint into one colorized image with a
// single request; it keeps no state between calls.
package chat

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/fpang/chroma-restore/internal/assets"
	"github.com/fpang/chroma-restore/internal/auth"
	"github.com/fpang/chroma-restore/internal/filehandler"
	"github.com/fpang/chroma-restore/internal/metrics"
	"github.com/rs/zerolog/log"
)

var (
	// ErrMissingAPIKey is returned before any network I/O when no API key
	// is configured.
	ErrMissingAPIKey = errors.New("Gemini API key is not configured: set " + auth.APIKeyEnvVar)

	// ErrNoImageData is returned when the response holds neither an image
	// nor any text.
	ErrNoImageData = errors.New("no image data found in the response")

	// ErrColorizeFailed replaces transport errors that carry no message.
	ErrColorizeFailed = errors.New("failed to colorize image")
)

// RefusalError is returned when the model answered with text only.
// Text is the model's reply, unmodified.
type RefusalError struct {
	Text string
}

func (e *RefusalError) Error() string {
	return "model returned text instead of image: " + e.Text
}

// ResponsePart is one element of a model response: image bytes or text.
type ResponsePart struct {
	ImageData []byte
	MIMEType  string
	Text      string
}

// GenerateRequest is a single image-plus-instruction request.
type GenerateRequest struct {
	Model         string
	ImageData     []byte
	ImageMIMEType string
	Prompt        string
}

// GenerateResponse holds the parts of the first candidate, in order.
type GenerateResponse struct {
	Parts        []ResponsePart
	InputTokens  int32
	OutputTokens int32
}

// ImageGenerator sends one request to the generation service.
type ImageGenerator interface {
	Generate(ctx context.Context, req *GenerateRequest) (*GenerateResponse, error)
	// Name identifies the transport in logs and metrics.
	Name() string
}

// ColorizeResult is a successful colorization.
type ColorizeResult struct {
	// Data is the standard base64 encoding of the image.
	Data     string
	MIMEType string
}

// Bytes decodes Data.
func (r *ColorizeResult) Bytes() ([]byte, error) {
	return base64.StdEncoding.DecodeString(r.Data)
}

// Colorizer issues colorization requests.
type Colorizer struct {
	apiKey string
	model  string
	gen    ImageGenerator
}

// NewColorizer returns a Colorizer. gen may be nil when apiKey is empty;
// every call then fails with ErrMissingAPIKey.
func NewColorizer(apiKey, model string, gen ImageGenerator) *Colorizer {
	if model == "" {
		model = DefaultImageModel
	}
	return &Colorizer{
		apiKey: strings.TrimSpace(apiKey),
		model:  model,
		gen:    gen,
	}
}

// Model returns the model ID requests are sent to.
func (c *Colorizer) Model() string {
	return c.model
}

// Preflight reports a configuration error without touching the network.
func (c *Colorizer) Preflight() error {
	if c == nil || c.apiKey == "" || c.gen == nil {
		return ErrMissingAPIKey
	}
	return nil
}

// Colorize sends imageBase64 (bare base64, no data URL prefix) with the
// instruction rendered for hint, and returns the first image in the reply.
func (c *Colorizer) Colorize(ctx context.Context, imageBase64, hint string) (*ColorizeResult, error) {
	if err := c.Preflight(); err != nil {
		log.Warn().Msg("Colorize called without an API key")
		return nil, err
	}

	imageData, err := base64.StdEncoding.DecodeString(imageBase64)
	if err != nil {
		return nil, fmt.Errorf("invalid image payload: %w", err)
	}

	req := &GenerateRequest{
		Model:         c.model,
		ImageData:     imageData,
		ImageMIMEType: RequestImageMIMEType,
		Prompt:        assets.RenderColorizePrompt(hint),
	}

	log.Info().
		Str("model", c.model).
		Str("transport", c.gen.Name()).
		Int("image_bytes", len(imageData)).
		Bool("has_hint", strings.TrimSpace(hint) != "").
		Msg("Sending image to Gemini for colorization")

	start := time.Now()
	resp, err := c.gen.Generate(ctx, req)
	elapsed := time.Since(start)

	m := metrics.New(metrics.Namespace).
		Dimension("Operation", "colorize").
		Dimension("Transport", c.gen.Name()).
		Metric("ColorizeLatencyMs", float64(elapsed.Milliseconds()), metrics.UnitMilliseconds).
		Count("ColorizeCalls")
	if resp != nil && (resp.InputTokens > 0 || resp.OutputTokens > 0) {
		m.Metric("GeminiInputTokens", float64(resp.InputTokens), metrics.UnitCount)
		m.Metric("GeminiOutputTokens", float64(resp.OutputTokens), metrics.UnitCount)
	}

	if err != nil {
		m.Count("ColorizeErrors").Flush()
		kind := auth.ClassifyError(err)
		log.Error().
			Err(err).
			Str("kind", kind.Type.String()).
			Dur("duration", elapsed).
			Msg("Gemini colorization request failed")
		if strings.TrimSpace(err.Error()) == "" {
			return nil, ErrColorizeFailed
		}
		return nil, err
	}

	var parts []ResponsePart
	if resp != nil {
		parts = resp.Parts
	}
	part, err := ExtractImage(parts)
	if err != nil {
		m.Count("ColorizeErrors").Flush()
		log.Warn().
			Err(err).
			Int("parts", len(parts)).
			Msg("Gemini response carried no image")
		return nil, err
	}
	m.Flush()

	mimeType := part.MIMEType
	if mimeType == "" {
		mimeType = filehandler.DefaultImageMIMEType
	}

	log.Info().
		Int("output_bytes", len(part.ImageData)).
		Str("output_mime", mimeType).
		Dur("duration", elapsed).
		Msg("Gemini colorization complete")

	return &ColorizeResult{
		Data:     base64.StdEncoding.EncodeToString(part.ImageData),
		MIMEType: mimeType,
	}, nil
}

// ExtractImage returns the first part carrying image bytes. Text parts are
// ignored unless no image exists anywhere, in which case the first non-empty
// text becomes a *RefusalError. With neither, it returns ErrNoImageData.
func ExtractImage(parts []ResponsePart) (*ResponsePart, error) {
	for i := range parts {
		if len(parts[i].ImageData) > 0 {
			return &parts[i], nil
		}
	}
	for _, p := range parts {
		if p.Text != "" {
			return nil, &RefusalError{Text: p.Text}
		}
	}
	return nil, ErrNoImageData
}
