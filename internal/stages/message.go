package stages

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/jonathan/recruiter-agent/internal/llm"
	"github.com/jonathan/recruiter-agent/internal/observability"
	"github.com/jonathan/recruiter-agent/internal/pipeline/steps"
	"github.com/jonathan/recruiter-agent/internal/prompts"
	"github.com/jonathan/recruiter-agent/internal/run"
	"github.com/jonathan/recruiter-agent/internal/types"
)

type outreachDraft struct {
	Subject          string `json:"subject"`
	CompaniesSection string `json:"companies_section"`
}

// MessageStage drafts the outreach email to the recruiter.
type MessageStage struct {
	deps *Deps
}

// Definition implements steps.Stage.
func (s *MessageStage) Definition() steps.StepDefinition {
	return steps.StepRegistry[steps.StageMessage]
}

// Execute implements steps.Stage. When the model cannot draft the companies
// section a plain listing is used and the outcome is degraded.
func (s *MessageStage) Execute(ctx context.Context, r run.View) (steps.Result, error) {
	d := s.deps
	input := r.Input()
	icp, err := run.ArtifactAs[*types.ICPProfile](r, steps.KeyICP)
	if err != nil {
		return steps.Result{}, err
	}
	enriched, err := run.ArtifactAs[*types.EnrichedCompanies](r, steps.KeyEnriched)
	if err != nil {
		return steps.Result{}, err
	}
	if len(enriched.Companies) == 0 {
		return steps.Result{Outcome: steps.OutcomeFailed}, nil
	}

	listing := companyListing(enriched.Companies)
	outcome := steps.OutcomeOK

	var draft outreachDraft
	brief, err := prompts.Render(prompts.OutreachFile, "companies-context", map[string]string{
		"RecruiterName": input.RecruiterName,
		"Roles":         joinOr(icp.RolesFilled, "various roles"),
		"Companies":     listing,
	})
	if err != nil {
		return steps.Result{}, err
	}
	usage, err := d.generate(ctx, llm.OutreachSchema().Prompt(brief), llm.TierAdvanced, &draft)
	if err != nil {
		observability.FromContext(ctx).WithError(err).Warn("outreach draft failed, using plain listing")
		draft = outreachDraft{}
	} else {
		d.recordLLM(r, usage)
	}
	section := strings.TrimSpace(draft.CompaniesSection)
	if section == "" {
		section = listing
		outcome = steps.OutcomeDegraded
	}

	body, err := d.composeBody(input, section)
	if err != nil {
		return steps.Result{}, err
	}
	subject, err := d.subject(input, strings.TrimSpace(draft.Subject), len(enriched.Companies))
	if err != nil {
		return steps.Result{}, err
	}

	msg := &types.OutreachMessage{
		Subject: subject,
		From:    d.sender(input),
		To:      input.RecruiterEmail,
		Body:    body,
	}
	signal := steps.QualitySignal{Count: len(enriched.Companies)}
	if outcome == steps.OutcomeDegraded {
		signal.DegradedItems = 1
	}
	return steps.Result{Artifact: msg, Signal: signal, Outcome: outcome}, nil
}

func (d *Deps) composeBody(input types.ProcessRequest, section string) (string, error) {
	timezone := input.Timezone
	if timezone == "" {
		timezone = orDefault(d.Settings.Timezone, "GMT")
	}
	senderName := input.SenderName
	if senderName == "" {
		senderName = d.Settings.SenderName
	}

	opening, err := prompts.Render(prompts.OutreachFile, "email-opening", map[string]string{
		"RecruiterFirstName": firstName(input.RecruiterName),
	})
	if err != nil {
		return "", err
	}
	closing, err := prompts.Render(prompts.OutreachFile, "email-closing", map[string]string{"Timezone": timezone})
	if err != nil {
		return "", err
	}

	body := opening + "\n\n" + section + "\n\n" + closing
	if senderName != "" {
		signature, err := prompts.Render(prompts.OutreachFile, "email-signature", map[string]string{"SenderName": senderName})
		if err != nil {
			return "", err
		}
		body += signature
	}
	return body, nil
}

func (d *Deps) subject(input types.ProcessRequest, drafted string, count int) (string, error) {
	switch {
	case input.EmailSubject != "":
		return input.EmailSubject, nil
	case drafted != "":
		return drafted, nil
	default:
		return prompts.Render(prompts.OutreachFile, "default-subject", map[string]string{"Count": strconv.Itoa(count)})
	}
}

func (d *Deps) sender(input types.ProcessRequest) string {
	name := orDefault(input.SenderName, d.Settings.SenderName)
	email := orDefault(input.SenderEmail, d.Settings.SenderEmail)
	switch {
	case name != "" && email != "":
		return fmt.Sprintf("%s <%s>", name, email)
	case email != "":
		return email
	default:
		return ""
	}
}

// companyListing renders the enriched companies as a numbered plain-text list.
func companyListing(companies []types.EnrichedCompany) string {
	var sb strings.Builder
	for i, c := range companies {
		if i > 0 {
			sb.WriteString("\n")
		}
		fmt.Fprintf(&sb, "%d. %s", i+1, c.Name)
		if c.Website != "" {
			fmt.Fprintf(&sb, " (%s)", c.Website)
		}
		sb.WriteString("\n")
		if c.EmployeeCount > 0 {
			fmt.Fprintf(&sb, "   Employees: %d\n", c.EmployeeCount)
		}
		if titles := cleanList(jobTitles(c.Company)); len(titles) > 0 {
			fmt.Fprintf(&sb, "   Hiring: %s\n", strings.Join(titles, ", "))
		}
		if desc := c.Enrichment.BusinessDescription; desc != "" {
			fmt.Fprintf(&sb, "   About: %s\n", desc)
		}
		for _, detail := range c.Enrichment.InsiderDetails {
			fmt.Fprintf(&sb, "   - %s\n", detail)
		}
		if dm := c.Enrichment.DecisionMaker; dm != nil {
			fmt.Fprintf(&sb, "   Contact: %s, %s\n", dm.Name, dm.Title)
		}
	}
	return strings.TrimRight(sb.String(), "\n")
}

func firstName(full string) string {
	fields := strings.Fields(full)
	if len(fields) == 0 {
		return "Hi"
	}
	return fields[0]
}

func orDefault(v, fallback string) string {
	if v != "" {
		return v
	}
	return fallback
}
