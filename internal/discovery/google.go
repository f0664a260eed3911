package discovery

import (
	"context"
	"errors"
	"fmt"

	"google.golang.org/api/customsearch/v1"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"github.com/jonathan/recruiter-agent/internal/retry"
)

// GoogleService is the ledger and retry name for Google Custom Search.
const GoogleService = "google_search"

// maxGoogleResults is the page size limit of the Custom Search API.
const maxGoogleResults = 10

// GoogleConfig configures the Custom Search client.
type GoogleConfig struct {
	APIKey string
	CX     string
	// Endpoint overrides the API base URL.
	Endpoint string
}

// GoogleClient searches the web through Google Custom Search.
type GoogleClient struct {
	svc *customsearch.Service
	cx  string
}

// NewGoogleClient creates a new Custom Search client.
func NewGoogleClient(ctx context.Context, cfg GoogleConfig) (*GoogleClient, error) {
	if cfg.APIKey == "" || cfg.CX == "" {
		return nil, fmt.Errorf("google search API key and cx are required")
	}
	opts := []option.ClientOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.Endpoint != "" {
		opts = append(opts, option.WithEndpoint(cfg.Endpoint))
	}
	svc, err := customsearch.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create custom search client: %w", err)
	}
	return &GoogleClient{svc: svc, cx: cfg.CX}, nil
}

// Name implements Engine.
func (c *GoogleClient) Name() string { return GoogleService }

// Search implements Engine.
func (c *GoogleClient) Search(ctx context.Context, query string, limit int) ([]Hit, error) {
	if limit <= 0 || limit > maxGoogleResults {
		limit = maxGoogleResults
	}
	res, err := c.svc.Cse.List().Cx(c.cx).Q(query).Num(int64(limit)).Context(ctx).Do()
	if err != nil {
		var apiErr *googleapi.Error
		if errors.As(err, &apiErr) {
			return nil, retry.FromStatus(GoogleService, apiErr.Code, err)
		}
		if errors.Is(err, context.Canceled) {
			return nil, retry.Permanent(GoogleService, err)
		}
		return nil, retry.Transient(GoogleService, err)
	}

	hits := make([]Hit, 0, len(res.Items))
	for _, item := range res.Items {
		hits = append(hits, Hit{Title: item.Title, URL: item.Link, Text: item.Snippet})
	}
	return hits, nil
}
