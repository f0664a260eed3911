// Package jobsource sources job postings from LinkedIn through an Apify actor
// and filters them down to qualifying opportunities.
package jobsource

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/go-resty/resty/v2"

	"github.com/jonathan/recruiter-agent/internal/retry"
	"github.com/jonathan/recruiter-agent/internal/types"
)

// Service is the ledger and retry name for the LinkedIn scraper.
const Service = "apify"

const (
	defaultBaseURL = "https://api.apify.com/v2"
	defaultActorID = "curious_coder~linkedin-jobs-scraper"
)

// Searcher returns raw job postings for a LinkedIn search URL.
type Searcher interface {
	Search(ctx context.Context, searchURL string, limit int) ([]types.JobPosting, error)
}

// ApifyConfig configures the Apify client.
type ApifyConfig struct {
	Token   string
	ActorID string
	BaseURL string
}

// ApifyClient runs the LinkedIn jobs actor synchronously and returns its dataset.
type ApifyClient struct {
	client   *resty.Client
	endpoint string
}

// apifyItem is one dataset row of the LinkedIn jobs actor.
type apifyItem struct {
	Title                 string          `json:"title"`
	Link                  string          `json:"link"`
	DescriptionText       string          `json:"descriptionText"`
	PostedAt              string          `json:"postedAt"`
	Location              string          `json:"location"`
	CompanyName           string          `json:"companyName"`
	CompanyWebsite        string          `json:"companyWebsite"`
	CompanyDescription    string          `json:"companyDescription"`
	CompanyLinkedinURL    string          `json:"companyLinkedinUrl"`
	Industries            string          `json:"industries"`
	CompanyEmployeesCount json.RawMessage `json:"companyEmployeesCount"`
}

type apifyInput struct {
	URLs          []string `json:"urls"`
	Count         int      `json:"count"`
	ScrapeCompany bool     `json:"scrapeCompany"`
}

// NewApifyClient creates a new Apify client.
func NewApifyClient(cfg ApifyConfig) (*ApifyClient, error) {
	if cfg.Token == "" {
		return nil, fmt.Errorf("apify token is required")
	}
	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	actorID := cfg.ActorID
	if actorID == "" {
		actorID = defaultActorID
	}

	client := resty.New()
	client.SetHeader("Authorization", "Bearer "+cfg.Token)
	client.SetHeader("Content-Type", "application/json")

	return &ApifyClient{
		client:   client,
		endpoint: fmt.Sprintf("%s/acts/%s/run-sync-get-dataset-items", baseURL, url.PathEscape(actorID)),
	}, nil
}

// Search runs the actor against searchURL and returns up to limit postings.
func (c *ApifyClient) Search(ctx context.Context, searchURL string, limit int) ([]types.JobPosting, error) {
	var items []apifyItem
	resp, err := c.client.R().
		SetContext(ctx).
		SetBody(apifyInput{URLs: []string{searchURL}, Count: limit, ScrapeCompany: true}).
		SetResult(&items).
		Post(c.endpoint)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return nil, retry.Permanent(Service, err)
		}
		return nil, retry.Transient(Service, fmt.Errorf("actor run failed: %w", err))
	}
	if resp.IsError() {
		return nil, retry.FromStatus(Service, resp.StatusCode(), fmt.Errorf("actor run: %s", strings.TrimSpace(resp.String())))
	}

	jobs := make([]types.JobPosting, 0, len(items))
	for _, item := range items {
		jobs = append(jobs, item.posting())
	}
	if limit > 0 && len(jobs) > limit {
		jobs = jobs[:limit]
	}
	return jobs, nil
}

func (i apifyItem) posting() types.JobPosting {
	return types.JobPosting{
		Title:              strings.TrimSpace(i.Title),
		URL:                i.Link,
		Description:        i.DescriptionText,
		PostedAt:           i.PostedAt,
		Location:           i.Location,
		CompanyName:        strings.TrimSpace(i.CompanyName),
		CompanyWebsite:     i.CompanyWebsite,
		CompanyDescription: i.CompanyDescription,
		CompanyIndustry:    i.Industries,
		CompanyLinkedIn:    i.CompanyLinkedinURL,
		EmployeeCount:      ParseEmployeeCount(i.CompanyEmployeesCount),
	}
}
