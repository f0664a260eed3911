package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"github.com/jonathan/recruiter-agent/internal/retry"
)

// GeminiClient calls Google Gemini through the generative-ai SDK.
type GeminiClient struct {
	sdk *genai.Client
	cfg *Config
}

// NewGeminiClient dials Gemini with apiKey.
func NewGeminiClient(ctx context.Context, cfg *Config, apiKey string) (*GeminiClient, error) {
	if apiKey == "" {
		return nil, errors.New("gemini: API key is required")
	}
	sdk, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("gemini: %w", err)
	}
	return &GeminiClient{sdk: sdk, cfg: cfg}, nil
}

// Complete implements Client.
func (c *GeminiClient) Complete(ctx context.Context, req Request) (*Completion, error) {
	name, err := modelFor(c.cfg, req.Tier)
	if err != nil {
		return nil, err
	}

	model := c.sdk.GenerativeModel(name)
	model.SetTemperature(temperature)
	if req.JSON {
		model.ResponseMIMEType = "application/json"
	}

	resp, err := model.GenerateContent(ctx, genai.Text(req.Prompt))
	if err != nil {
		return nil, geminiError(err)
	}
	text, err := candidateText(resp)
	if err != nil {
		return nil, retry.Permanent(Service, fmt.Errorf("gemini %s: %w", name, err))
	}

	out := &Completion{Text: text, Model: name}
	if u := resp.UsageMetadata; u != nil {
		out.Usage = Usage{InputTokens: int(u.PromptTokenCount), OutputTokens: int(u.CandidatesTokenCount)}
	}
	return out, nil
}

// Close releases the SDK connection.
func (c *GeminiClient) Close() error {
	if c.sdk == nil {
		return nil
	}
	return c.sdk.Close()
}

// geminiError classifies API errors by status. Transport failures are transient.
func geminiError(err error) error {
	wrapped := fmt.Errorf("gemini: %w", err)
	var apiErr *googleapi.Error
	switch {
	case errors.As(err, &apiErr):
		return retry.FromStatus(Service, apiErr.Code, wrapped)
	case errors.Is(err, context.Canceled):
		return retry.Permanent(Service, wrapped)
	}
	return retry.Transient(Service, wrapped)
}

// candidateText joins the text parts of the first candidate.
func candidateText(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil || len(resp.Candidates) == 0 {
		return "", errors.New("no candidates")
	}
	content := resp.Candidates[0].Content
	if content == nil {
		return "", errors.New("empty candidate")
	}

	var b strings.Builder
	for _, part := range content.Parts {
		if text, ok := part.(genai.Text); ok {
			b.WriteString(string(text))
		}
	}
	if b.Len() == 0 {
		return "", errors.New("no text parts")
	}
	return b.String(), nil
}
