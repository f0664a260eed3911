package discovery

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/go-resty/resty/v2"

	"github.com/jonathan/recruiter-agent/internal/retry"
)

// ExaService is the ledger and retry name for Exa.
const ExaService = "exa"

const defaultExaBaseURL = "https://api.exa.ai"

// ExaConfig configures the Exa client.
type ExaConfig struct {
	APIKey  string
	BaseURL string
	// MaxCharacters caps the page text returned per result.
	MaxCharacters int
}

// ExaClient searches the web through Exa's search-with-contents API.
type ExaClient struct {
	client   *resty.Client
	endpoint string
	maxChars int
}

type exaRequest struct {
	Query      string      `json:"query"`
	NumResults int         `json:"numResults"`
	Type       string      `json:"type"`
	Contents   exaContents `json:"contents"`
}

type exaContents struct {
	Text exaText `json:"text"`
}

type exaText struct {
	MaxCharacters int `json:"maxCharacters"`
}

type exaResponse struct {
	Results []struct {
		Title string `json:"title"`
		URL   string `json:"url"`
		Text  string `json:"text"`
	} `json:"results"`
}

// NewExaClient creates a new Exa client.
func NewExaClient(cfg ExaConfig) (*ExaClient, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("exa API key is required")
	}
	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = defaultExaBaseURL
	}
	maxChars := cfg.MaxCharacters
	if maxChars <= 0 {
		maxChars = 2000
	}

	client := resty.New()
	client.SetHeader("x-api-key", cfg.APIKey)
	client.SetHeader("Content-Type", "application/json")

	return &ExaClient{client: client, endpoint: baseURL + "/search", maxChars: maxChars}, nil
}

// Name implements Engine.
func (c *ExaClient) Name() string { return ExaService }

// Search implements Engine.
func (c *ExaClient) Search(ctx context.Context, query string, limit int) ([]Hit, error) {
	var out exaResponse
	resp, err := c.client.R().
		SetContext(ctx).
		SetBody(exaRequest{
			Query:      query,
			NumResults: limit,
			Type:       "auto",
			Contents:   exaContents{Text: exaText{MaxCharacters: c.maxChars}},
		}).
		SetResult(&out).
		Post(c.endpoint)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return nil, retry.Permanent(ExaService, err)
		}
		return nil, retry.Transient(ExaService, fmt.Errorf("search failed: %w", err))
	}
	if resp.IsError() {
		return nil, retry.FromStatus(ExaService, resp.StatusCode(), fmt.Errorf("search: %s", strings.TrimSpace(resp.String())))
	}

	hits := make([]Hit, 0, len(out.Results))
	for _, r := range out.Results {
		hits = append(hits, Hit{Title: r.Title, URL: r.URL, Text: r.Text})
	}
	return hits, nil
}
