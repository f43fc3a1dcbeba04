package chat

// gemini_image.go calls generateContent over plain REST. It is selected with
// gemini.transport=rest and lets the base URL point at a proxy or a test server.

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"google.golang.org/genai"
)

// DefaultBaseURL is the Gemini REST API base URL.
const DefaultBaseURL = "https://generativelanguage.googleapis.com/v1beta"

// RESTGenerator calls the Gemini image model via the REST API.
type RESTGenerator struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

// NewRESTGenerator creates a REST transport. An empty baseURL selects
// DefaultBaseURL; a zero timeout selects two minutes.
func NewRESTGenerator(apiKey, baseURL string, timeout time.Duration) *RESTGenerator {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if timeout <= 0 {
		timeout = 120 * time.Second // Image generation can take 10-30s
	}
	return &RESTGenerator{
		apiKey:  apiKey,
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// --- REST API request/response types ---

type geminiRequest struct {
	Contents         []geminiContent         `json:"contents"`
	GenerationConfig *geminiGenerationConfig `json:"generationConfig,omitempty"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiPart struct {
	Text       string          `json:"text,omitempty"`
	InlineData *geminiBlobData `json:"inlineData,omitempty"`
	Thought    bool            `json:"thought,omitempty"`
}

type geminiGenerationConfig struct {
	ResponseModalities []string `json:"responseModalities,omitempty"`
}

type geminiBlobData struct {
	MIMEType string `json:"mimeType"`
	Data     string `json:"data"` // base64 encoded
}

type geminiResponse struct {
	Candidates    []geminiCandidate    `json:"candidates"`
	UsageMetadata *geminiUsageMetadata `json:"usageMetadata,omitempty"`
	Error         *geminiError         `json:"error,omitempty"`
}

type geminiCandidate struct {
	Content geminiContent `json:"content"`
}

type geminiUsageMetadata struct {
	PromptTokenCount     int32 `json:"promptTokenCount"`
	CandidatesTokenCount int32 `json:"candidatesTokenCount"`
}

type geminiError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Status  string `json:"status"`
}

// Name implements ImageGenerator.
func (g *RESTGenerator) Name() string {
	return "rest"
}

// Generate implements ImageGenerator.
func (g *RESTGenerator) Generate(ctx context.Context, req *GenerateRequest) (*GenerateResponse, error) {
	body, err := json.Marshal(geminiRequest{
		Contents: []geminiContent{{
			Role: "user",
			Parts: []geminiPart{
				{
					InlineData: &geminiBlobData{
						MIMEType: req.ImageMIMEType,
						Data:     base64.StdEncoding.EncodeToString(req.ImageData),
					},
				},
				{Text: req.Prompt},
			},
		}},
		GenerationConfig: &geminiGenerationConfig{
			ResponseModalities: responseModalities,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	endpoint := fmt.Sprintf("%s/models/%s:generateContent?key=%s",
		g.baseURL, url.PathEscape(req.Model), url.QueryEscape(g.apiKey))

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := g.httpClient.Do(httpReq)
	if err != nil {
		// *url.Error embeds the full URL, including the key.
		var urlErr *url.Error
		if errors.As(err, &urlErr) {
			return nil, fmt.Errorf("HTTP request failed: %w", urlErr.Err)
		}
		return nil, fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	var geminiResp geminiResponse
	parseErr := json.Unmarshal(respBody, &geminiResp)

	if resp.StatusCode != http.StatusOK || geminiResp.Error != nil {
		log.Error().
			Int("status", resp.StatusCode).
			Str("body", truncateString(string(respBody), 500)).
			Msg("Gemini REST API returned error")
		apiErr := genai.APIError{Code: resp.StatusCode, Message: truncateString(string(respBody), 200)}
		if geminiResp.Error != nil {
			apiErr.Code = geminiResp.Error.Code
			apiErr.Message = geminiResp.Error.Message
			apiErr.Status = geminiResp.Error.Status
		}
		return nil, fmt.Errorf("API returned status %d: %w", resp.StatusCode, apiErr)
	}
	if parseErr != nil {
		return nil, fmt.Errorf("failed to parse response: %w", parseErr)
	}

	out := &GenerateResponse{}
	if geminiResp.UsageMetadata != nil {
		out.InputTokens = geminiResp.UsageMetadata.PromptTokenCount
		out.OutputTokens = geminiResp.UsageMetadata.CandidatesTokenCount
	}
	if len(geminiResp.Candidates) == 0 {
		return out, nil
	}
	for _, part := range geminiResp.Candidates[0].Content.Parts {
		if part.Thought {
			continue
		}
		if part.InlineData != nil {
			decoded, err := base64.StdEncoding.DecodeString(part.InlineData.Data)
			if err != nil {
				return nil, fmt.Errorf("failed to decode image data: %w", err)
			}
			out.Parts = append(out.Parts, ResponsePart{ImageData: decoded, MIMEType: part.InlineData.MIMEType})
			continue
		}
		out.Parts = append(out.Parts, ResponsePart{Text: part.Text})
	}
	return out, nil
}
