package cli

import (
	"context"
	"errors"

	"github.com/fpang/chroma-restore/internal/auth"
	"github.com/fpang/chroma-restore/internal/chat"
	"github.com/fpang/chroma-restore/internal/config"
	"github.com/rs/zerolog/log"
)

// InitColorizer builds a Colorizer for the configured transport.
//
// A missing API key is not fatal: the returned Colorizer fails its Preflight,
// so the UI can report the problem when the user asks to colorize. Any other
// key lookup error, and a failed validation when validate is set, is returned.
func InitColorizer(ctx context.Context, cfg *config.Config, validate bool) (*chat.Colorizer, error) {
	apiKey, err := auth.GetAPIKey()
	if err != nil {
		var valErr *auth.ValidationError
		if errors.As(err, &valErr) && valErr.Type == auth.ErrTypeNoKey {
			log.Warn().Msg("No Gemini API key configured; colorization will fail until " + auth.APIKeyEnvVar + " is set")
			return chat.NewColorizer("", cfg.Gemini.Model, nil), nil
		}
		return nil, err
	}

	var gen chat.ImageGenerator
	switch cfg.Gemini.Transport {
	case config.TransportREST:
		gen = chat.NewRESTGenerator(apiKey, cfg.Gemini.BaseURL, cfg.Gemini.Timeout)
	default:
		client, err := chat.NewGeminiClient(ctx, apiKey)
		if err != nil {
			return nil, err
		}
		gen = chat.NewSDKGenerator(client)
	}

	log.Info().
		Str("model", cfg.Gemini.Model).
		Str("transport", gen.Name()).
		Msg("connection successful - Gemini client initialized")

	if validate {
		client, err := chat.NewGeminiClient(ctx, apiKey)
		if err != nil {
			return nil, err
		}
		if err := auth.ValidateAPIKey(ctx, client, chat.ModelGemini25Flash); err != nil {
			return nil, err
		}
		log.Info().Msg("API key validation complete - ready for operations")
	}

	return chat.NewColorizer(apiKey, cfg.Gemini.Model, gen), nil
}
