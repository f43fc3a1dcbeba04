package chat

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"
	"google.golang.org/genai"
)

// SDKGenerator calls the model through the google.golang.org/genai SDK.
type SDKGenerator struct {
	client *genai.Client
}

// NewGeminiClient creates a genai client for the Gemini Developer API.
func NewGeminiClient(ctx context.Context, apiKey string) (*genai.Client, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}
	return client, nil
}

// NewSDKGenerator wraps an existing client.
func NewSDKGenerator(client *genai.Client) *SDKGenerator {
	return &SDKGenerator{client: client}
}

// Client exposes the underlying client, used for API key validation.
func (g *SDKGenerator) Client() *genai.Client {
	return g.client
}

// Name implements ImageGenerator.
func (g *SDKGenerator) Name() string {
	return "sdk"
}

// Generate implements ImageGenerator.
func (g *SDKGenerator) Generate(ctx context.Context, req *GenerateRequest) (*GenerateResponse, error) {
	contents := []*genai.Content{{
		Role: "user",
		Parts: []*genai.Part{
			{
				InlineData: &genai.Blob{
					MIMEType: req.ImageMIMEType,
					Data:     req.ImageData,
				},
			},
			{Text: req.Prompt},
		},
	}}
	config := &genai.GenerateContentConfig{
		ResponseModalities: responseModalities,
	}

	resp, err := g.client.Models.GenerateContent(ctx, req.Model, contents, config)
	if err != nil {
		return nil, err
	}
	if resp == nil {
		log.Warn().Msg("Received empty response from Gemini")
		return &GenerateResponse{}, nil
	}

	out := &GenerateResponse{}
	if resp.UsageMetadata != nil {
		out.InputTokens = resp.UsageMetadata.PromptTokenCount
		out.OutputTokens = resp.UsageMetadata.CandidatesTokenCount
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return out, nil
	}
	for _, part := range resp.Candidates[0].Content.Parts {
		if part == nil || part.Thought {
			continue
		}
		out.Parts = append(out.Parts, sdkPart(part))
	}
	return out, nil
}

func sdkPart(part *genai.Part) ResponsePart {
	if part.InlineData != nil {
		return ResponsePart{
			ImageData: part.InlineData.Data,
			MIMEType:  part.InlineData.MIMEType,
		}
	}
	return ResponsePart{Text: part.Text}
}
