package stages

import (
	"context"
	"errors"
	"fmt"

	"github.com/jonathan/recruiter-agent/internal/discovery"
	"github.com/jonathan/recruiter-agent/internal/jobsource"
	"github.com/jonathan/recruiter-agent/internal/pipeline/steps"
	"github.com/jonathan/recruiter-agent/internal/retry"
	"github.com/jonathan/recruiter-agent/internal/run"
	"github.com/jonathan/recruiter-agent/internal/types"
)

// Stat names reported by the sourcing stages.
const (
	StatJobsScraped    = "jobs_scraped"
	StatJobsQualifying = "jobs_qualifying"
)

const defaultMaxItems = 100

// LinkedInJobsStage scrapes recent LinkedIn postings for the search plan.
type LinkedInJobsStage struct {
	deps *Deps
}

// Definition implements steps.Stage.
func (s *LinkedInJobsStage) Definition() steps.StepDefinition {
	return steps.StepRegistry[steps.StageLinkedInJobs]
}

// Execute implements steps.Stage.
func (s *LinkedInJobsStage) Execute(ctx context.Context, r run.View) (steps.Result, error) {
	d := s.deps
	if d.Jobs == nil {
		return steps.Result{}, retry.Permanent(jobsource.Service, errors.New("job scraper is not configured"))
	}
	plan, err := run.ArtifactAs[*types.SearchPlan](r, steps.KeySearch)
	if err != nil {
		return steps.Result{}, err
	}

	raw, err := retry.Call(ctx, d.Policies.Scraper, jobsource.Service, func(ctx context.Context) ([]types.JobPosting, error) {
		return d.Jobs.Search(ctx, plan.LinkedInURL, maxItems(r))
	})
	if err != nil {
		return steps.Result{}, fmt.Errorf("linkedin job search failed: %w", err)
	}
	r.RecordCost(jobsource.Service, 1, d.Pricing.ApifyPerRun)

	return jobResult("linkedin", raw, d.filter()), nil
}

// DiscoveryJobsStage finds hiring companies through a web search engine when the
// job board yields too little.
type DiscoveryJobsStage struct {
	deps *Deps
}

// Definition implements steps.Stage.
func (s *DiscoveryJobsStage) Definition() steps.StepDefinition {
	return steps.StepRegistry[steps.StageDiscoveryJobs]
}

// Execute implements steps.Stage.
func (s *DiscoveryJobsStage) Execute(ctx context.Context, r run.View) (steps.Result, error) {
	d := s.deps
	if d.Discovery == nil {
		return steps.Result{}, retry.Permanent("discovery", errors.New("discovery engine is not configured"))
	}
	icp, err := run.ArtifactAs[*types.ICPProfile](r, steps.KeyICP)
	if err != nil {
		return steps.Result{}, err
	}
	plan, err := run.ArtifactAs[*types.SearchPlan](r, steps.KeySearch)
	if err != nil {
		return steps.Result{}, err
	}

	limit := maxItems(r)
	if d.Settings.DiscoveryResults > 0 && d.Settings.DiscoveryResults < limit {
		limit = d.Settings.DiscoveryResults
	}
	engine := d.Discovery.Name()
	query := discovery.CompanyQuery(*plan, icp)

	hits, err := retry.Call(ctx, d.Policies.HTTP, engine, func(ctx context.Context) ([]discovery.Hit, error) {
		return d.Discovery.Search(ctx, query, limit)
	})
	if err != nil {
		return steps.Result{}, fmt.Errorf("company discovery failed: %w", err)
	}
	d.recordSearches(r, engine, 1)

	return jobResult(engine, discovery.Companies(hits), d.filter()), nil
}

func (d *Deps) filter() jobsource.Filter {
	return jobsource.Filter{MaxCompanySize: d.Settings.MaxCompanySize}
}

func jobResult(source string, raw []types.JobPosting, filter jobsource.Filter) steps.Result {
	qualifying := filter.Qualify(raw)
	set := &types.JobSet{
		Source:     source,
		Jobs:       qualifying,
		RawCount:   len(raw),
		Qualifying: len(qualifying),
	}
	return steps.Result{
		Artifact: set,
		Signal:   steps.QualitySignal{Count: len(qualifying), PassRate: ratio(len(qualifying), len(raw))},
		Outcome:  steps.OutcomeOK,
		Stats: map[string]int{
			StatJobsScraped:    len(raw),
			StatJobsQualifying: len(qualifying),
		},
	}
}

func maxItems(r run.View) int {
	if n := r.Input().MaxItems; n > 0 {
		return n
	}
	return defaultMaxItems
}

func ratio(n, of int) float64 {
	if of == 0 {
		return 0
	}
	return float64(n) / float64(of)
}
