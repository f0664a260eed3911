package pipeline

import (
	"context"
	"fmt"

	"github.com/jonathan/recruiter-agent/internal/pipeline/steps"
	"github.com/jonathan/recruiter-agent/internal/run"
	"github.com/jonathan/recruiter-agent/internal/types"
)

// ProgressEvent represents a progress update during pipeline execution
type ProgressEvent struct {
	Step     string `json:"step"`
	Category string `json:"category"`
	Message  string `json:"message"`
	RunID    string `json:"run_id,omitempty"`
	Content  any    `json:"content,omitempty"`
}

// ProgressCallback is called when pipeline progress occurs
type ProgressCallback func(event ProgressEvent)

// Progress adapts a callback into an Observer.
type Progress struct {
	fn ProgressCallback
}

// NewProgress returns an observer that forwards run progress to fn.
func NewProgress(fn ProgressCallback) *Progress {
	return &Progress{fn: fn}
}

// RunStarted implements Observer.
func (p *Progress) RunStarted(_ context.Context, r *run.Run) {
	p.emit(ProgressEvent{
		Step:     "intake",
		Category: "lifecycle",
		Message:  fmt.Sprintf("Run started for %s", r.Input().RecruiterWebsite),
		RunID:    r.ID(),
	})
}

// StageFinished implements Observer.
func (p *Progress) StageFinished(_ context.Context, r *run.Run, ev StageEvent) {
	category := steps.StepRegistry[ev.Stage].Category
	msg := fmt.Sprintf("%s finished (%s, count=%d): %s", ev.Stage, ev.Outcome, ev.Signal.Count, ev.Decision.Action)
	if ev.Decision.Reason != "" && ev.Decision.Action != ActionProceed {
		msg += " (" + ev.Decision.Reason + ")"
	}
	p.emit(ProgressEvent{
		Step:     ev.Stage,
		Category: category,
		Message:  msg,
		RunID:    r.ID(),
		Content:  ev.Signal,
	})
}

// RunFinished implements Observer.
func (p *Progress) RunFinished(_ context.Context, r *run.Run, doc *types.Document) {
	msg := fmt.Sprintf("Run %s", doc.Status)
	if doc.Error != nil {
		msg += ": " + doc.Error.Reason
	}
	p.emit(ProgressEvent{
		Step:     "complete",
		Category: "lifecycle",
		Message:  msg,
		RunID:    r.ID(),
		Content:  doc,
	})
}

func (p *Progress) emit(ev ProgressEvent) {
	if p.fn != nil {
		p.fn(ev)
	}
}
