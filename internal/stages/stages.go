// Package stages implements the recruiter pipeline stages on top of the
// collaborator clients. Stages read the run's working state, call out through
// the retry policy, and report a quality signal; routing is left to the
// orchestrator.
package stages

import (
	"context"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/jonathan/recruiter-agent/internal/discovery"
	"github.com/jonathan/recruiter-agent/internal/jobsource"
	"github.com/jonathan/recruiter-agent/internal/llm"
	"github.com/jonathan/recruiter-agent/internal/pipeline/steps"
	"github.com/jonathan/recruiter-agent/internal/retry"
	"github.com/jonathan/recruiter-agent/internal/run"
)

// Pages fetches readable website text.
type Pages interface {
	Text(ctx context.Context, url string) (string, error)
	CompanyText(ctx context.Context, website string) (string, error)
}

// Pricing holds the unit costs recorded in the ledger.
type Pricing struct {
	LLMPer1KTokens      float64
	ApifyPerRun         float64
	ExaPerCredit        float64
	ExaCreditsPerSearch int
	GooglePerQuery      float64
}

// Policies are the retry policies per kind of collaborator.
type Policies struct {
	LLM     retry.Policy
	HTTP    retry.Policy
	Scraper retry.Policy
}

// NewPolicies derives per-kind policies from base. Zero timeouts keep base's.
func NewPolicies(base retry.Policy, llmTimeout, httpTimeout, scraperTimeout time.Duration) Policies {
	with := func(d time.Duration) retry.Policy {
		if d <= 0 {
			return base
		}
		return base.WithCallTimeout(d)
	}
	return Policies{
		LLM:     with(llmTimeout),
		HTTP:    with(httpTimeout),
		Scraper: with(scraperTimeout),
	}
}

// Settings are the business constants the stages apply.
type Settings struct {
	MaxCompanySize   int
	TopCompanies     int
	Workers          int
	RoleSimilarity   float64
	DiscoveryResults int
	ContactsPerRole  int
	// WebsiteChars caps page text sent to the model.
	WebsiteChars int

	// Outreach defaults for requests that leave the sender fields empty.
	SenderName  string
	SenderEmail string
	Timezone    string
}

// Deps are the collaborators shared by every stage. All of them must be safe
// for concurrent use; concurrent runs share one Deps.
type Deps struct {
	LLM       llm.Client
	Pages     Pages
	Jobs      jobsource.Searcher
	Discovery discovery.Engine
	// People finds decision-makers; nil disables the lookup.
	People   discovery.Engine
	Policies Policies
	Pricing  Pricing
	Settings Settings
}

// All returns every stage of the default graph.
func All(d *Deps) []steps.Stage {
	return []steps.Stage{
		&ICPStage{deps: d},
		&SearchTermsStage{deps: d},
		&LinkedInJobsStage{deps: d},
		&DiscoveryJobsStage{deps: d},
		&ValidateStage{deps: d},
		&PrioritizeStage{deps: d},
		&EnrichStage{deps: d},
		&MessageStage{deps: d},
	}
}

func (d *Deps) workers() int {
	if d.Settings.Workers <= 0 {
		return 4
	}
	return d.Settings.Workers
}

func (d *Deps) websiteChars() int {
	if d.Settings.WebsiteChars <= 0 {
		return 8000
	}
	return d.Settings.WebsiteChars
}

func (d *Deps) recordLLM(r run.View, usage llm.Usage) {
	r.RecordCost(llm.Service, usage.Total(), d.Pricing.LLMPer1KTokens/1000)
}

func (d *Deps) recordSearches(r run.View, engine string, searches int) {
	switch engine {
	case discovery.ExaService:
		r.RecordCost(engine, searches*d.Pricing.ExaCreditsPerSearch, d.Pricing.ExaPerCredit)
	case discovery.GoogleService:
		r.RecordCost(engine, searches, d.Pricing.GooglePerQuery)
	default:
		r.RecordCost(engine, searches, 0)
	}
}

// generate runs one JSON model call under the LLM retry policy.
func (d *Deps) generate(ctx context.Context, prompt string, tier llm.ModelTier, out any) (llm.Usage, error) {
	var total llm.Usage
	err := d.Policies.LLM.Do(ctx, llm.Service, func(ctx context.Context) error {
		usage, err := llm.GenerateInto(ctx, d.LLM, prompt, tier, out)
		total.InputTokens += usage.InputTokens
		total.OutputTokens += usage.OutputTokens
		return err
	})
	return total, err
}

// fanOut runs fn for indices [0,n) on a pool of the given size and waits for all
// of them. An index whose turn comes after the run deadline or cancellation is
// not started and is reported in skipped.
func fanOut(ctx context.Context, r run.View, workers, n int, fn func(ctx context.Context, i int)) (skipped []bool) {
	skipped = make([]bool, n)
	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i := 0; i < n; i++ {
		g.Go(func() error {
			if r.DeadlineExceeded() || gCtx.Err() != nil {
				skipped[i] = true
				return nil
			}
			fn(gCtx, i)
			return nil
		})
	}
	_ = g.Wait()
	return skipped
}

func clip(s string, n int) string {
	s = strings.TrimSpace(s)
	if len(s) <= n {
		return s
	}
	return s[:n]
}

func joinOr(items []string, fallback string) string {
	if len(items) == 0 {
		return fallback
	}
	return strings.Join(items, ", ")
}

// cleanList trims, drops blanks and removes case-insensitive duplicates.
func cleanList(items []string) []string {
	seen := make(map[string]bool, len(items))
	out := make([]string, 0, len(items))
	for _, item := range items {
		item = strings.TrimSpace(item)
		key := strings.ToLower(item)
		if item == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, item)
	}
	return out
}
