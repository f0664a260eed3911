package stages

import (
	"context"
	"fmt"
	"strings"

	"github.com/jonathan/recruiter-agent/internal/contacts"
	"github.com/jonathan/recruiter-agent/internal/discovery"
	"github.com/jonathan/recruiter-agent/internal/fetch"
	"github.com/jonathan/recruiter-agent/internal/llm"
	"github.com/jonathan/recruiter-agent/internal/observability"
	"github.com/jonathan/recruiter-agent/internal/pipeline/steps"
	"github.com/jonathan/recruiter-agent/internal/prompts"
	"github.com/jonathan/recruiter-agent/internal/retry"
	"github.com/jonathan/recruiter-agent/internal/run"
	"github.com/jonathan/recruiter-agent/internal/types"
)

// Stat names reported by enrichment.
const (
	StatCompaniesEnriched = "companies_enriched"
	StatContactsFound     = "contacts_found"
)

const maxInsiderDetails = 3

type companyInsight struct {
	BusinessDescription string   `json:"business_description"`
	InsiderDetails      []string `json:"insider_details"`
}

// enrichment is the result of one company's sub-calls, held until the join.
type enrichment struct {
	types.Enrichment
	usage    llm.Usage
	modelOK  bool
	searches int
}

// EnrichStage gathers business context and a decision-maker for each ranked company.
type EnrichStage struct {
	deps *Deps
}

// Definition implements steps.Stage.
func (s *EnrichStage) Definition() steps.StepDefinition {
	return steps.StepRegistry[steps.StageEnrich]
}

// Execute implements steps.Stage. A failed sub-call marks only its own company
// as degraded.
func (s *EnrichStage) Execute(ctx context.Context, r run.View) (steps.Result, error) {
	d := s.deps
	ranked, err := run.ArtifactAs[*types.RankedCompanies](r, steps.KeyRanked)
	if err != nil {
		return steps.Result{}, err
	}

	var finder *contacts.Finder
	if d.People != nil {
		finder = contacts.NewFinder(retryingEngine{engine: d.People, policy: d.Policies.HTTP}, d.Settings.ContactsPerRole)
	}

	results := make([]enrichment, len(ranked.Companies))
	skipped := fanOut(ctx, r, d.workers(), len(ranked.Companies), func(ctx context.Context, i int) {
		results[i] = d.enrichCompany(ctx, finder, ranked.Companies[i])
	})

	log := observability.FromContext(ctx)
	out := &types.EnrichedCompanies{Companies: make([]types.EnrichedCompany, len(ranked.Companies))}
	found := 0
	for i, c := range ranked.Companies {
		res := results[i]
		if skipped[i] {
			res.Enrichment = types.Enrichment{Degraded: true, Issues: []string{"not enriched before the run deadline"}}
		}
		if res.modelOK {
			d.recordLLM(r, res.usage)
		}
		if res.searches > 0 {
			d.recordSearches(r, d.People.Name(), res.searches)
		}
		if res.BusinessDescription == "" {
			res.BusinessDescription = clip(c.Description, 300)
		}
		if res.DecisionMaker != nil {
			found++
		}
		if res.Degraded {
			out.Degraded++
			log.Warnf("enrichment of %s degraded: %s", c.Name, strings.Join(res.Issues, "; "))
		}
		out.Companies[i] = types.EnrichedCompany{Company: c, Enrichment: res.Enrichment}
	}

	outcome := steps.OutcomeOK
	switch {
	case len(out.Companies) == 0:
		outcome = steps.OutcomeFailed
	case out.Degraded > 0:
		outcome = steps.OutcomeDegraded
	}
	return steps.Result{
		Artifact: out,
		Signal: steps.QualitySignal{
			Count:         len(out.Companies),
			PassRate:      ratio(len(out.Companies)-out.Degraded, len(out.Companies)),
			DegradedItems: out.Degraded,
		},
		Outcome: outcome,
		Stats: map[string]int{
			StatCompaniesEnriched: len(out.Companies) - out.Degraded,
			StatContactsFound:     found,
		},
	}, nil
}

// enrichCompany runs the website, insight and contact sub-calls for one company.
// Failures are recorded as issues on the result.
func (d *Deps) enrichCompany(ctx context.Context, finder *contacts.Finder, c types.Company) enrichment {
	var res enrichment
	issue := func(format string, args ...any) {
		res.Degraded = true
		res.Issues = append(res.Issues, fmt.Sprintf(format, args...))
	}

	content := ""
	if c.Website != "" {
		text, err := retry.Call(ctx, d.Policies.HTTP, fetch.Service, func(ctx context.Context) (string, error) {
			return d.Pages.CompanyText(ctx, c.Website)
		})
		if err != nil {
			issue("website: %v", err)
		} else {
			content = text
		}
	}

	if content != "" || c.Description != "" {
		var insight companyInsight
		prompt, err := insightPrompt(c, clip(content, d.websiteChars()))
		if err == nil {
			res.usage, err = d.generate(ctx, prompt, llm.TierLite, &insight)
		}
		if err != nil {
			issue("insight: %v", err)
		} else {
			res.modelOK = true
			res.BusinessDescription = strings.TrimSpace(insight.BusinessDescription)
			details := cleanList(insight.InsiderDetails)
			if len(details) > maxInsiderDetails {
				details = details[:maxInsiderDetails]
			}
			res.InsiderDetails = details
		}
	}

	if finder != nil {
		target := contacts.TargetRole(c.EmployeeCount, jobTitles(c))
		lookup, err := finder.Find(ctx, c.Name, target)
		if err != nil {
			issue("decision maker: %v", err)
		} else {
			res.searches = lookup.Searches
			res.DecisionMaker = lookup.Contact
		}
	}

	return res
}

func insightPrompt(c types.Company, content string) (string, error) {
	brief, err := prompts.Render(prompts.StagesFile, "insight-context", map[string]string{
		"CompanyName":   c.Name,
		"EmployeeCount": headcount(c.EmployeeCount),
		"Description":   orUnknown(clip(c.Description, 1000)),
		"Content":       orUnknown(content),
	})
	if err != nil {
		return "", err
	}
	return llm.CompanyInsightSchema().Prompt(brief), nil
}

func jobTitles(c types.Company) []string {
	titles := make([]string, 0, len(c.Jobs))
	for _, job := range c.Jobs {
		titles = append(titles, job.Title)
	}
	return titles
}

// retryingEngine applies a retry policy to each search of an engine.
type retryingEngine struct {
	engine discovery.Engine
	policy retry.Policy
}

func (e retryingEngine) Name() string { return e.engine.Name() }

func (e retryingEngine) Search(ctx context.Context, query string, limit int) ([]discovery.Hit, error) {
	return retry.Call(ctx, e.policy, e.engine.Name(), func(ctx context.Context) ([]discovery.Hit, error) {
		return e.engine.Search(ctx, query, limit)
	})
}
