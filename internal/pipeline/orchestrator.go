// Package pipeline provides the orchestration of the recruiter pipeline: the stage
// graph, its gates, the fallback selector and the result assembler.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"time"

	"github.com/jonathan/recruiter-agent/internal/observability"
	"github.com/jonathan/recruiter-agent/internal/pipeline/steps"
	"github.com/jonathan/recruiter-agent/internal/retry"
	"github.com/jonathan/recruiter-agent/internal/run"
	"github.com/jonathan/recruiter-agent/internal/types"
)

// PanicError is a recovered panic from a stage.
type PanicError struct {
	Stage string
	Value any
	Stack []byte
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("stage %s panicked: %v", e.Stage, e.Value)
}

// StageEvent describes one finished stage execution.
type StageEvent struct {
	Step     string
	Stage    string
	Visit    int
	Outcome  steps.Outcome
	Signal   steps.QualitySignal
	Decision Decision
	Move     Move
	Duration time.Duration
	Err      error
}

// Observer is notified as a run progresses. Implementations must not block for long.
type Observer interface {
	RunStarted(ctx context.Context, r *run.Run)
	StageFinished(ctx context.Context, r *run.Run, ev StageEvent)
	RunFinished(ctx context.Context, r *run.Run, doc *types.Document)
}

// Orchestrator drives a Run through the stage graph to a terminal document.
type Orchestrator struct {
	registry  *steps.Registry
	selector  *Selector
	observers []Observer
	logger    *observability.Logger
	validate  func(*types.Document) error
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithObserver adds an observer.
func WithObserver(obs Observer) Option {
	return func(o *Orchestrator) {
		if obs != nil {
			o.observers = append(o.observers, obs)
		}
	}
}

type observersKey struct{}

// ContextWithObserver attaches an observer to every run executed with ctx, in
// addition to the orchestrator's own.
func ContextWithObserver(ctx context.Context, obs Observer) context.Context {
	if obs == nil {
		return ctx
	}
	prev, _ := ctx.Value(observersKey{}).([]Observer)
	next := make([]Observer, 0, len(prev)+1)
	next = append(append(next, prev...), obs)
	return context.WithValue(ctx, observersKey{}, next)
}

// ObserversFromContext returns the observers attached with ContextWithObserver.
func ObserversFromContext(ctx context.Context) []Observer {
	obs, _ := ctx.Value(observersKey{}).([]Observer)
	return obs
}

func (o *Orchestrator) observersFor(ctx context.Context) []Observer {
	extra := ObserversFromContext(ctx)
	if len(extra) == 0 {
		return o.observers
	}
	all := make([]Observer, 0, len(o.observers)+len(extra))
	return append(append(all, o.observers...), extra...)
}

// WithLogger sets the logger.
func WithLogger(l *observability.Logger) Option {
	return func(o *Orchestrator) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithDocumentValidator checks every assembled document. Failures are logged only.
func WithDocumentValidator(fn func(*types.Document) error) Option {
	return func(o *Orchestrator) { o.validate = fn }
}

// New builds an orchestrator and statically validates the stage order.
func New(registry *steps.Registry, selector *Selector, opts ...Option) (*Orchestrator, error) {
	if registry == nil || selector == nil {
		return nil, errors.New("registry and selector are required")
	}
	if err := registry.ValidateOrder(selector.Order()); err != nil {
		return nil, fmt.Errorf("invalid stage order: %w", err)
	}
	o := &Orchestrator{
		registry: registry,
		selector: selector,
		logger:   observability.Default(),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o, nil
}

// Execute runs r to a terminal state and returns its document. It never panics
// and never returns nil.
func (o *Orchestrator) Execute(ctx context.Context, r *run.Run) *types.Document {
	log := o.logger.WithField(observability.FieldRunID, r.ID())

	if err := r.Start(); err != nil {
		log.WithError(err).Error("run could not start")
		return o.finish(ctx, r, log)
	}
	for _, obs := range o.observersFor(ctx) {
		obs.RunStarted(ctx, r)
	}
	log.Info("run started")

	forceAlternate := r.Input().UseAlternateSourceOnly
	cursor := o.selector.Start(forceAlternate)

	for !o.selector.Done(cursor) {
		spec, variant := o.selector.Step(cursor)

		if r.DeadlineExceeded() || ctx.Err() != nil {
			o.abort(r, log, ReasonDeadlineExceeded, "run budget spent before "+variant.Stage)
			break
		}

		stage, _ := o.registry.Get(variant.Stage)
		_ = r.SetPhase(variant.Stage)
		visit := r.Visit(variant.Stage)

		stageCtx := log.WithFields(observability.Fields{
			observability.FieldStep:  spec.Name,
			observability.FieldStage: variant.Stage,
		}).WithContext(ctx)

		started := time.Now()
		res, err := o.invoke(stageCtx, stage, r)
		elapsed := time.Since(started)

		sig, outcome, defect := classify(res, err)
		for k, v := range res.Stats {
			r.SetStat(k, v)
		}

		ev := StageEvent{
			Step:     spec.Name,
			Stage:    variant.Stage,
			Visit:    visit,
			Outcome:  outcome,
			Signal:   sig,
			Duration: elapsed,
			Err:      err,
		}
		stageLog := log.WithFields(observability.Fields{
			observability.FieldStep:       spec.Name,
			observability.FieldStage:      variant.Stage,
			observability.FieldOutcome:    string(outcome),
			observability.FieldCount:      sig.Count,
			observability.FieldDurationMs: elapsed.Milliseconds(),
		})
		if err != nil {
			stageLog = stageLog.WithError(err)
		}

		if err != nil && ctx.Err() != nil {
			ev.Decision = Decision{Action: ActionAbort, Reason: ReasonDeadlineExceeded}
			ev.Move = MoveAbort
			o.stageFinished(ctx, r, ev)
			stageLog.Warn("context ended during stage")
			o.abort(r, log, ReasonDeadlineExceeded, err.Error())
			break
		}

		if defect != nil {
			ev.Decision = Decision{Action: ActionAbort, Reason: ReasonInternalError}
			ev.Move = MoveAbort
			o.stageFinished(ctx, r, ev)
			stageLog.Error("stage raised an unclassified error")
			o.abort(r, log, ReasonInternalError, defect.Error())
			break
		}

		decision := variant.Gate(sig, o.selector.Thresholds())
		transition := o.selector.Follow(cursor, decision, r.BackEdges(), r.DataSource(), forceAlternate)
		ev.Decision = decision
		ev.Move = transition.Move

		stageLog = stageLog.WithFields(observability.Fields{
			observability.FieldDecision: string(decision.Action),
			observability.FieldReason:   decision.Reason,
		})

		switch transition.Move {
		case MoveAdvance:
			def := stage.Definition()
			_ = r.SetArtifact(def.Output, variant.Stage, res.Artifact)
			if variant.Source != "" {
				_ = r.SetDataSource(variant.Source)
			}
			stageLog.Info("stage proceeded")
		case MoveVariant:
			stageLog.Warn("falling back to next variant")
		case MoveBackEdge:
			r.TraverseBackEdge(o.selector.Thresholds().MaxBackEdges)
			stageLog.Warn("traversing back-edge")
		case MoveAbort:
			stageLog.Warn("gate aborted run")
		}
		o.stageFinished(ctx, r, ev)

		if transition.Move == MoveAbort {
			o.abort(r, log, transition.Reason, "")
			break
		}
		cursor = transition.Next
	}

	if !r.Status().Terminal() {
		if r.DeadlineExceeded() || ctx.Err() != nil {
			o.abort(r, log, ReasonDeadlineExceeded, "run budget spent before "+PhaseAssemble)
		} else {
			_ = r.SetPhase(PhaseAssemble)
			_ = r.Complete()
		}
	}
	return o.finish(ctx, r, log)
}

func (o *Orchestrator) invoke(ctx context.Context, stage steps.Stage, r *run.Run) (res steps.Result, err error) {
	defer func() {
		if p := recover(); p != nil {
			res = steps.Result{}
			err = &PanicError{Stage: stage.Definition().Name, Value: p, Stack: debug.Stack()}
		}
	}()
	return stage.Execute(ctx, r)
}

// classify folds a stage error into the quality signal. A non-nil third return is
// a defect: an error that is neither a collaborator failure nor a business signal.
func classify(res steps.Result, err error) (steps.QualitySignal, steps.Outcome, error) {
	sig := res.Signal
	if err == nil {
		outcome := res.Outcome
		if outcome == "" {
			outcome = steps.OutcomeOK
		}
		if outcome == steps.OutcomeFailed {
			sig.Failed = true
		}
		return sig, outcome, nil
	}

	var exhausted *retry.ExhaustedError
	if errors.As(err, &exhausted) {
		sig.Exhausted = true
		return sig, steps.OutcomeFailed, nil
	}
	switch retry.ClassOf(err) {
	case retry.ClassTransient:
		sig.Exhausted = true
	case retry.ClassPermanent:
		sig.Rejected = true
	default:
		return sig, steps.OutcomeFailed, err
	}
	return sig, steps.OutcomeFailed, nil
}

func (o *Orchestrator) abort(r *run.Run, log *observability.Logger, reason, message string) {
	if err := r.Fail(reason, message); err != nil {
		log.WithError(err).Error("could not mark run failed")
		return
	}
	log.WithFields(observability.Fields{
		observability.FieldReason: reason,
		observability.FieldStage:  r.Phase(),
	}).Warn("run failed")
}

func (o *Orchestrator) stageFinished(ctx context.Context, r *run.Run, ev StageEvent) {
	for _, obs := range o.observersFor(ctx) {
		obs.StageFinished(ctx, r, ev)
	}
}

func (o *Orchestrator) finish(ctx context.Context, r *run.Run, log *observability.Logger) *types.Document {
	doc := Assemble(r)
	if o.validate != nil {
		if err := o.validate(doc); err != nil {
			log.WithError(err).Error("assembled document failed schema validation")
		}
	}
	for _, obs := range o.observersFor(ctx) {
		obs.RunFinished(ctx, r, doc)
	}
	log.WithFields(observability.Fields{
		observability.FieldStatus: doc.Status,
		"total_cost":              doc.TotalCost,
		"data_source":             doc.DataSource,
	}).Info("run finished")
	return doc
}
