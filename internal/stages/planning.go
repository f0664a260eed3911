package stages

import (
	"context"
	"fmt"
	"strings"

	"github.com/jonathan/recruiter-agent/internal/discovery"
	"github.com/jonathan/recruiter-agent/internal/fetch"
	"github.com/jonathan/recruiter-agent/internal/jobsource"
	"github.com/jonathan/recruiter-agent/internal/llm"
	"github.com/jonathan/recruiter-agent/internal/observability"
	"github.com/jonathan/recruiter-agent/internal/pipeline/steps"
	"github.com/jonathan/recruiter-agent/internal/prompts"
	"github.com/jonathan/recruiter-agent/internal/retry"
	"github.com/jonathan/recruiter-agent/internal/run"
	"github.com/jonathan/recruiter-agent/internal/types"
)

// ICPStage reads the recruiter's website and extracts their ideal customer profile.
type ICPStage struct {
	deps *Deps
}

// Definition implements steps.Stage.
func (s *ICPStage) Definition() steps.StepDefinition {
	return steps.StepRegistry[steps.StageICP]
}

// Execute implements steps.Stage.
func (s *ICPStage) Execute(ctx context.Context, r run.View) (steps.Result, error) {
	d := s.deps
	input := r.Input()

	content, err := retry.Call(ctx, d.Policies.HTTP, fetch.Service, func(ctx context.Context) (string, error) {
		return d.Pages.Text(ctx, input.RecruiterWebsite)
	})
	if err != nil {
		return steps.Result{}, fmt.Errorf("failed to read recruiter website: %w", err)
	}

	brief, err := prompts.Render(prompts.StagesFile, "icp-context", map[string]string{
		"RecruiterName": input.RecruiterName,
		"Website":       input.RecruiterWebsite,
		"Content":       clip(content, d.websiteChars()),
	})
	if err != nil {
		return steps.Result{}, err
	}

	var icp types.ICPProfile
	usage, err := d.generate(ctx, llm.ICPSchema().Prompt(brief), llm.TierStandard, &icp)
	if err != nil {
		return steps.Result{}, fmt.Errorf("failed to extract ICP: %w", err)
	}
	d.recordLLM(r, usage)

	normalizeICP(&icp)
	signal := steps.QualitySignal{Count: len(icp.Industries) + len(icp.RolesFilled)}
	if len(icp.Industries) == 0 && len(icp.RolesFilled) == 0 {
		return steps.Result{Signal: signal, Outcome: steps.OutcomeFailed}, nil
	}

	observability.FromContext(ctx).Debugf("ICP for %s: %d industries, %d roles", input.RecruiterName, len(icp.Industries), len(icp.RolesFilled))
	return steps.Result{Artifact: &icp, Signal: signal, Outcome: steps.OutcomeOK}, nil
}

func normalizeICP(icp *types.ICPProfile) {
	icp.RecruiterSummary = strings.TrimSpace(icp.RecruiterSummary)
	icp.Industries = cleanList(icp.Industries)
	icp.RolesFilled = cleanList(icp.RolesFilled)
	icp.Seniority = cleanList(icp.Seniority)
	icp.Locations = cleanList(icp.Locations)
	if icp.CompanySizeMin < 0 {
		icp.CompanySizeMin = 0
	}
	if icp.CompanySizeMax < 0 {
		icp.CompanySizeMax = 0
	}
	if icp.CompanySizeMax > 0 && icp.CompanySizeMin > icp.CompanySizeMax {
		icp.CompanySizeMin, icp.CompanySizeMax = icp.CompanySizeMax, icp.CompanySizeMin
	}
}

// SearchTermsStage turns the ICP into job-board and discovery queries.
type SearchTermsStage struct {
	deps *Deps
}

// Definition implements steps.Stage.
func (s *SearchTermsStage) Definition() steps.StepDefinition {
	return steps.StepRegistry[steps.StageSearchTerms]
}

// Execute implements steps.Stage.
func (s *SearchTermsStage) Execute(ctx context.Context, r run.View) (steps.Result, error) {
	d := s.deps
	icp, err := run.ArtifactAs[*types.ICPProfile](r, steps.KeyICP)
	if err != nil {
		return steps.Result{}, err
	}

	brief, err := prompts.Render(prompts.StagesFile, "search-plan-context", map[string]string{
		"Summary":    icp.RecruiterSummary,
		"Industries": joinOr(icp.Industries, "unknown"),
		"Roles":      joinOr(icp.RolesFilled, "unknown"),
		"Seniority":  joinOr(icp.Seniority, "any"),
		"Locations":  joinOr(icp.Locations, "any"),
	})
	if err != nil {
		return steps.Result{}, err
	}

	var plan types.SearchPlan
	usage, err := d.generate(ctx, llm.SearchPlanSchema().Prompt(brief), llm.TierStandard, &plan)
	if err != nil {
		return steps.Result{}, fmt.Errorf("failed to synthesize search terms: %w", err)
	}
	d.recordLLM(r, usage)

	outcome := steps.OutcomeOK
	plan.BooleanQuery = strings.TrimSpace(plan.BooleanQuery)
	plan.Keywords = cleanList(plan.Keywords)
	if plan.BooleanQuery == "" && len(plan.Keywords) == 0 {
		plan = fallbackPlan(icp)
		outcome = steps.OutcomeDegraded
		observability.FromContext(ctx).Warnf("search plan for run %s was empty, using ICP roles", r.ID())
	}
	if plan.Location == "" && len(icp.Locations) > 0 {
		plan.Location = icp.Locations[0]
	}
	plan.LinkedInURL = jobsource.LinkedInURL(plan)
	plan.DiscoveryQuery = discovery.CompanyQuery(plan, icp)

	signal := steps.QualitySignal{Count: len(plan.Keywords)}
	if outcome == steps.OutcomeDegraded {
		signal.DegradedItems = 1
	}
	if len(plan.Keywords) == 0 && plan.BooleanQuery == "" {
		return steps.Result{Signal: signal, Outcome: steps.OutcomeFailed}, nil
	}
	return steps.Result{Artifact: &plan, Signal: signal, Outcome: outcome}, nil
}

// fallbackPlan builds an OR query over the roles the recruiter fills.
func fallbackPlan(icp *types.ICPProfile) types.SearchPlan {
	keywords := icp.RolesFilled
	if len(keywords) > 5 {
		keywords = keywords[:5]
	}
	quoted := make([]string, len(keywords))
	for i, k := range keywords {
		quoted[i] = `"` + k + `"`
	}
	return types.SearchPlan{
		BooleanQuery: strings.Join(quoted, " OR "),
		Keywords:     append([]string(nil), keywords...),
	}
}
