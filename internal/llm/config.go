// Package llm talks to the language models behind the pipeline stages that
// need one: ICP extraction, search planning, company fit scoring, enrichment
// and message drafting.
package llm

import "fmt"

// ModelTier picks a model by how much reasoning a stage needs.
type ModelTier string

const (
	TierLite     ModelTier = "lite"     // fit scoring, classification
	TierStandard ModelTier = "standard" // ICP profiling, search planning
	TierAdvanced ModelTier = "advanced" // the outreach message
)

var allTiers = []ModelTier{TierLite, TierStandard, TierAdvanced}

// Provider names a model vendor.
type Provider string

const (
	ProviderGemini Provider = "gemini"
	// ProviderOpenAI covers any OpenAI-compatible chat completions API.
	ProviderOpenAI Provider = "openai"
)

// ParseProvider accepts the provider names used in configuration.
func ParseProvider(s string) (Provider, error) {
	switch p := Provider(s); p {
	case ProviderGemini, ProviderOpenAI:
		return p, nil
	case "":
		return ProviderGemini, nil
	}
	return "", fmt.Errorf("unknown llm provider %q", s)
}

var defaultModels = map[Provider]map[ModelTier]string{
	ProviderGemini: {
		TierLite:     "gemini-2.5-flash-lite",
		TierStandard: "gemini-2.5-flash",
		TierAdvanced: "gemini-2.5-pro",
	},
	ProviderOpenAI: {
		TierLite:     "gpt-4o-mini",
		TierStandard: "gpt-4o-mini",
		TierAdvanced: "gpt-4o",
	},
}

// Config selects a provider and the model used for each tier.
type Config struct {
	Provider Provider
	Models   map[ModelTier]string
	// BaseURL overrides the endpoint of OpenAI-compatible providers.
	BaseURL string
}

// NewConfig returns the default models for provider.
func NewConfig(provider Provider) *Config {
	models := make(map[ModelTier]string, len(allTiers))
	for tier, name := range defaultModels[provider] {
		models[tier] = name
	}
	return &Config{Provider: provider, Models: models}
}

// ConfigFor is NewConfig with an optional endpoint and a model pinned to every tier.
func ConfigFor(provider Provider, model, baseURL string) *Config {
	cfg := NewConfig(provider)
	cfg.BaseURL = baseURL
	if model != "" {
		for _, tier := range allTiers {
			cfg.Models[tier] = model
		}
	}
	return cfg
}

// Model returns the model for tier. A tier left unset borrows the standard
// model, then the lite one.
func (c *Config) Model(tier ModelTier) string {
	for _, t := range []ModelTier{tier, TierStandard, TierLite} {
		if name := c.Models[t]; name != "" {
			return name
		}
	}
	return ""
}

// WithModel returns a copy of c with tier mapped to model.
func (c *Config) WithModel(tier ModelTier, model string) *Config {
	out := &Config{Provider: c.Provider, BaseURL: c.BaseURL, Models: make(map[ModelTier]string, len(c.Models)+1)}
	for t, name := range c.Models {
		out.Models[t] = name
	}
	out.Models[tier] = model
	return out
}
