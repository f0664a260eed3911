package pipeline

import (
	"github.com/jonathan/recruiter-agent/internal/pipeline/steps"
	"github.com/jonathan/recruiter-agent/internal/run"
	"github.com/jonathan/recruiter-agent/internal/types"
)

// Assemble builds the result document. Completed and failed runs go through here;
// a failed run carries whatever artifacts were accepted before it stopped.
func Assemble(r *run.Run) *types.Document {
	finished := r.FinishedAt()
	if finished.IsZero() {
		finished = r.Now()
	}

	doc := &types.Document{
		RunID:          r.ID(),
		Status:         string(r.Status()),
		PhaseReached:   r.Phase(),
		DataSource:     r.DataSource(),
		CostBreakdown:  r.Costs(),
		TotalCost:      r.TotalCost(),
		InputEcho:      r.Input(),
		Stats:          r.Stats(),
		StartedAt:      r.StartedAt(),
		FinishedAt:     finished,
		RuntimeSeconds: finished.Sub(r.StartedAt()).Seconds(),
	}

	if profile, err := run.ArtifactAs[*types.ICPProfile](r, steps.KeyICP); err == nil {
		doc.ICPProfile = profile
	}

	if enriched, err := run.ArtifactAs[*types.EnrichedCompanies](r, steps.KeyEnriched); err == nil {
		doc.SelectedCompanies = enriched.Companies
	} else if ranked, err := run.ArtifactAs[*types.RankedCompanies](r, steps.KeyRanked); err == nil {
		selected := make([]types.EnrichedCompany, 0, len(ranked.Companies))
		for _, c := range ranked.Companies {
			selected = append(selected, types.EnrichedCompany{Company: c})
		}
		doc.SelectedCompanies = selected
	}

	if msg, err := run.ArtifactAs[*types.OutreachMessage](r, steps.KeyMessage); err == nil {
		doc.GeneratedMessage = msg
	}

	if f := r.Failure(); f != nil {
		doc.Error = &types.RunError{
			Reason:    f.Reason,
			LastStage: f.LastStage,
			Message:   f.Message,
		}
	}

	return doc
}
