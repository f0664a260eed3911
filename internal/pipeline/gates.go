package pipeline

import (
	"github.com/jonathan/recruiter-agent/internal/pipeline/steps"
)

// Terminal failure reasons. This set is closed.
const (
	ReasonNoQualifyingOpportunities = "no_qualifying_opportunities"
	ReasonNoCompaniesSurvived       = "no_companies_survived_validation"
	ReasonDeadlineExceeded          = "deadline_exceeded"
	ReasonCollaboratorExhausted     = "collaborator_exhausted"
	ReasonCollaboratorRejected      = "collaborator_rejected"
	ReasonStageFailed               = "stage_failed"
	ReasonInternalError             = "internal_error"
)

// Reasons lists every terminal reason.
var Reasons = []string{
	ReasonNoQualifyingOpportunities,
	ReasonNoCompaniesSurvived,
	ReasonDeadlineExceeded,
	ReasonCollaboratorExhausted,
	ReasonCollaboratorRejected,
	ReasonStageFailed,
	ReasonInternalError,
}

// Action is what a gate tells the orchestrator to do next.
type Action string

// Gate actions
const (
	ActionProceed  Action = "proceed"
	ActionFallback Action = "fallback"
	ActionAbort    Action = "abort"
)

// Decision is the output of a gate. Reason is the terminal reason used if the
// orchestrator aborts, including when a fallback has nowhere left to go.
type Decision struct {
	Action Action `json:"action"`
	Reason string `json:"reason,omitempty"`
}

// Thresholds are the policy constants the gates compare against.
type Thresholds struct {
	// JobFloor is the minimum qualifying jobs from the primary source.
	JobFloor int
	// AlternateJobFloor is the minimum qualifying jobs from the alternate source.
	AlternateJobFloor int
	// CompanyFloor is the minimum companies that must survive validation.
	CompanyFloor int
	// MaxBackEdges bounds back-edge traversals per run.
	MaxBackEdges int
}

// DefaultThresholds returns the thresholds used when nothing is configured.
func DefaultThresholds() Thresholds {
	return Thresholds{
		JobFloor:          10,
		AlternateJobFloor: 3,
		CompanyFloor:      1,
		MaxBackEdges:      1,
	}
}

// Gate is a pure decision function over a stage's quality signal.
type Gate func(sig steps.QualitySignal, th Thresholds) Decision

func proceed() Decision { return Decision{Action: ActionProceed} }

// guarded turns collaborator failures into fallbacks before consulting g.
func guarded(g Gate) Gate {
	return func(sig steps.QualitySignal, th Thresholds) Decision {
		switch {
		case sig.Exhausted:
			return Decision{Action: ActionFallback, Reason: ReasonCollaboratorExhausted}
		case sig.Rejected:
			return Decision{Action: ActionFallback, Reason: ReasonCollaboratorRejected}
		case sig.Failed:
			return Decision{Action: ActionFallback, Reason: ReasonStageFailed}
		}
		return g(sig, th)
	}
}

// AlwaysProceed passes any stage that did not fail.
var AlwaysProceed Gate = guarded(func(steps.QualitySignal, Thresholds) Decision {
	return proceed()
})

// PrimaryJobGate sends the run to the alternate source when the primary under-delivers.
var PrimaryJobGate Gate = guarded(func(sig steps.QualitySignal, th Thresholds) Decision {
	if sig.Count < th.JobFloor {
		return Decision{Action: ActionFallback, Reason: ReasonNoQualifyingOpportunities}
	}
	return proceed()
})

// AlternateJobGate ends the run when the alternate source also under-delivers.
var AlternateJobGate Gate = guarded(func(sig steps.QualitySignal, th Thresholds) Decision {
	if sig.Count < th.AlternateJobFloor {
		return Decision{Action: ActionAbort, Reason: ReasonNoQualifyingOpportunities}
	}
	return proceed()
})

// SurvivalGate asks for the back-edge when too few companies survive validation.
var SurvivalGate Gate = guarded(func(sig steps.QualitySignal, th Thresholds) Decision {
	floor := th.CompanyFloor
	if floor < 1 {
		floor = 1
	}
	if sig.Count < floor {
		return Decision{Action: ActionFallback, Reason: ReasonNoCompaniesSurvived}
	}
	return proceed()
})
