package llm

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jonathan/recruiter-agent/internal/retry"
)

// Service is the ledger and retry name used for LLM calls.
const Service = "llm"

// temperature keeps extraction and scoring output stable between runs.
const temperature = 0.1

// Usage is the token accounting of one completion.
type Usage struct {
	InputTokens  int
	OutputTokens int
}

// Total returns input plus output tokens.
func (u Usage) Total() int {
	return u.InputTokens + u.OutputTokens
}

// Request is one prompt sent to a model.
type Request struct {
	Prompt string
	Tier   ModelTier
	// JSON asks the provider to constrain output to a JSON object.
	JSON bool
}

// Completion is the text returned by one model call.
type Completion struct {
	Text  string
	Model string
	Usage Usage
}

// Client sends prompts to a model provider. Errors carry a retry class.
type Client interface {
	Complete(ctx context.Context, req Request) (*Completion, error)
	Close() error
}

// NewClient returns the client for cfg.Provider.
func NewClient(ctx context.Context, cfg *Config, apiKey string) (Client, error) {
	if cfg == nil {
		cfg = NewConfig(ProviderGemini)
	}
	switch cfg.Provider {
	case ProviderOpenAI:
		return NewOpenAIClient(cfg, apiKey)
	case ProviderGemini:
		return NewGeminiClient(ctx, cfg, apiKey)
	}
	return nil, fmt.Errorf("unknown llm provider %q", cfg.Provider)
}

// GenerateInto asks for JSON and decodes it into out. Unparseable output is
// transient since a second sample usually parses; its usage is still returned.
func GenerateInto(ctx context.Context, c Client, prompt string, tier ModelTier, out any) (Usage, error) {
	completion, err := c.Complete(ctx, Request{Prompt: prompt, Tier: tier, JSON: true})
	if err != nil {
		return Usage{}, err
	}
	if err := json.Unmarshal([]byte(ExtractJSON(completion.Text)), out); err != nil {
		return completion.Usage, retry.Transient(Service, fmt.Errorf("decode %s output: %w", completion.Model, err))
	}
	return completion.Usage, nil
}

func modelFor(cfg *Config, tier ModelTier) (string, error) {
	name := cfg.Model(tier)
	if name == "" {
		return "", retry.Permanent(Service, fmt.Errorf("no model configured for tier %s", tier))
	}
	return name, nil
}
