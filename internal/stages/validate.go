package stages

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/jonathan/recruiter-agent/internal/jobsource"
	"github.com/jonathan/recruiter-agent/internal/llm"
	"github.com/jonathan/recruiter-agent/internal/observability"
	"github.com/jonathan/recruiter-agent/internal/pipeline/steps"
	"github.com/jonathan/recruiter-agent/internal/prompts"
	"github.com/jonathan/recruiter-agent/internal/ranking"
	"github.com/jonathan/recruiter-agent/internal/run"
	"github.com/jonathan/recruiter-agent/internal/types"
)

// Stat names reported by validation and prioritization.
const (
	StatCompaniesConsidered = "companies_considered"
	StatCompaniesValidated  = "companies_validated"
	StatCompaniesSelected   = "companies_selected"
)

// heuristicKeep is the HeuristicFit score at or above which a company is kept
// when its model check failed.
const heuristicKeep = 0.4

type companyFit struct {
	IsGoodFit     bool    `json:"is_good_fit"`
	IsDirectHirer bool    `json:"is_direct_hirer"`
	MatchScore    float64 `json:"match_score"`
	Reason        string  `json:"reason"`
}

// ValidateStage groups jobs by company and keeps the companies that fit the ICP
// and hire directly.
type ValidateStage struct {
	deps *Deps
}

// Definition implements steps.Stage.
func (s *ValidateStage) Definition() steps.StepDefinition {
	return steps.StepRegistry[steps.StageValidate]
}

// Execute implements steps.Stage.
func (s *ValidateStage) Execute(ctx context.Context, r run.View) (steps.Result, error) {
	d := s.deps
	icp, err := run.ArtifactAs[*types.ICPProfile](r, steps.KeyICP)
	if err != nil {
		return steps.Result{}, err
	}
	jobs, err := run.ArtifactAs[*types.JobSet](r, steps.KeyJobs)
	if err != nil {
		return steps.Result{}, err
	}

	grouped := ranking.GroupByCompany(jobs.Jobs)
	rejected := make(map[string]string)
	var candidates []types.Company
	for _, c := range grouped {
		switch {
		case jobsource.IsObviousRecruiter(c.Name, c.Industry):
			rejected[c.Name] = "recruitment or staffing firm"
		case d.Settings.MaxCompanySize > 0 && c.EmployeeCount > d.Settings.MaxCompanySize:
			rejected[c.Name] = fmt.Sprintf("more than %d employees", d.Settings.MaxCompanySize)
		default:
			candidates = append(candidates, c)
		}
	}

	fits := make([]companyFit, len(candidates))
	usages := make([]llm.Usage, len(candidates))
	errs := make([]error, len(candidates))
	skipped := fanOut(ctx, r, d.workers(), len(candidates), func(ctx context.Context, i int) {
		prompt, err := fitPrompt(icp, candidates[i])
		if err != nil {
			errs[i] = err
			return
		}
		usages[i], errs[i] = d.generate(ctx, prompt, llm.TierLite, &fits[i])
	})

	log := observability.FromContext(ctx)
	var kept []types.Company
	degraded := 0
	for i, c := range candidates {
		if skipped[i] {
			rejected[c.Name] = "not evaluated before the run deadline"
			continue
		}
		if errs[i] != nil {
			degraded++
			score := ranking.HeuristicFit(c, icp)
			log.WithError(errs[i]).Warnf("fit check for %s failed, heuristic score %.2f", c.Name, score)
			if score < heuristicKeep {
				rejected[c.Name] = "heuristic fit below threshold"
				continue
			}
			c.FitScore = score
			c.FitReason = "heuristic match on industry, size and roles"
			kept = append(kept, c)
			continue
		}

		d.recordLLM(r, usages[i])
		fit := fits[i]
		if !fit.IsDirectHirer {
			rejected[c.Name] = "not a direct hirer"
			continue
		}
		if !fit.IsGoodFit {
			rejected[c.Name] = strings.TrimSpace("not a fit: " + fit.Reason)
			continue
		}
		c.FitScore = clamp01(fit.MatchScore)
		c.FitReason = strings.TrimSpace(fit.Reason)
		kept = append(kept, c)
	}

	validated := &types.ValidatedCompanies{
		Companies:  kept,
		Considered: len(grouped),
		Rejected:   rejected,
	}
	outcome := steps.OutcomeOK
	if degraded > 0 {
		outcome = steps.OutcomeDegraded
	}
	return steps.Result{
		Artifact: validated,
		Signal: steps.QualitySignal{
			Count:         len(kept),
			PassRate:      ratio(len(kept), len(grouped)),
			DegradedItems: degraded,
		},
		Outcome: outcome,
		Stats: map[string]int{
			StatCompaniesConsidered: len(grouped),
			StatCompaniesValidated:  len(kept),
		},
	}, nil
}

func fitPrompt(icp *types.ICPProfile, c types.Company) (string, error) {
	titles := make([]string, 0, len(c.Jobs))
	sample := ""
	for _, job := range c.Jobs {
		titles = append(titles, job.Title)
		if sample == "" {
			sample = job.Description
		}
	}

	brief, err := prompts.Render(prompts.StagesFile, "company-fit-context", map[string]string{
		"Industries":     joinOr(icp.Industries, "unknown"),
		"RolesFilled":    joinOr(icp.RolesFilled, "unknown"),
		"SizeRange":      sizeRange(icp),
		"Locations":      joinOr(icp.Locations, "any"),
		"CompanyName":    c.Name,
		"Website":        orUnknown(c.Website),
		"Industry":       orUnknown(c.Industry),
		"EmployeeCount":  headcount(c.EmployeeCount),
		"Description":    orUnknown(clip(c.Description, 500)),
		"Roles":          joinOr(cleanList(titles), "unknown"),
		"JobDescription": orUnknown(clip(sample, 500)),
	})
	if err != nil {
		return "", err
	}
	return llm.CompanyFitSchema().Prompt(brief), nil
}

func sizeRange(icp *types.ICPProfile) string {
	switch {
	case icp.CompanySizeMin > 0 && icp.CompanySizeMax > 0:
		return fmt.Sprintf("%d-%d employees", icp.CompanySizeMin, icp.CompanySizeMax)
	case icp.CompanySizeMax > 0:
		return fmt.Sprintf("up to %d employees", icp.CompanySizeMax)
	case icp.CompanySizeMin > 0:
		return fmt.Sprintf("%d+ employees", icp.CompanySizeMin)
	default:
		return "any"
	}
}

func headcount(n int) string {
	if n <= 0 {
		return "unknown"
	}
	return strconv.Itoa(n)
}

func orUnknown(s string) string {
	if strings.TrimSpace(s) == "" {
		return "unknown"
	}
	return s
}

func clamp01(f float64) float64 {
	switch {
	case f < 0:
		return 0
	case f > 1:
		return 1
	default:
		return f
	}
}

// PrioritizeStage orders validated companies and keeps the top of the list.
type PrioritizeStage struct {
	deps *Deps
}

// Definition implements steps.Stage.
func (s *PrioritizeStage) Definition() steps.StepDefinition {
	return steps.StepRegistry[steps.StagePrioritize]
}

// Execute implements steps.Stage.
func (s *PrioritizeStage) Execute(_ context.Context, r run.View) (steps.Result, error) {
	validated, err := run.ArtifactAs[*types.ValidatedCompanies](r, steps.KeyValidated)
	if err != nil {
		return steps.Result{}, err
	}

	p := ranking.Prioritizer{RoleSimilarity: s.deps.Settings.RoleSimilarity, Top: s.deps.Settings.TopCompanies}
	ranked := p.Prioritize(validated.Companies)

	outcome := steps.OutcomeOK
	if len(ranked.Companies) == 0 {
		outcome = steps.OutcomeFailed
	}
	return steps.Result{
		Artifact: ranked,
		Signal:   steps.QualitySignal{Count: len(ranked.Companies), PassRate: ratio(len(ranked.Companies), ranked.Total)},
		Outcome:  outcome,
		Stats:    map[string]int{StatCompaniesSelected: len(ranked.Companies)},
	}, nil
}
