// Package run holds the per-execution context of the recruiter pipeline: identity,
// status, phase, working state, cost ledger and the counters the orchestrator uses
// to bound its control flow.
package run

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/jonathan/recruiter-agent/internal/types"
)

// Status is the lifecycle state of a Run.
type Status string

// Run statuses
const (
	StatusPending   Status = "pending"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// Terminal reports whether no further transitions are allowed.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// Data source tags
const (
	SourceNone      = "none"
	SourcePrimary   = "primary"
	SourceAlternate = "alternate"
)

// ErrTerminal is returned when a terminal Run is asked to change.
var ErrTerminal = errors.New("run is in a terminal state")

// MissingArtifactError is returned when a stage asks for an artifact that no earlier stage produced.
type MissingArtifactError struct {
	Key string
}

func (e *MissingArtifactError) Error() string {
	return fmt.Sprintf("missing artifact: %s", e.Key)
}

// ArtifactTypeError is returned when an artifact exists but has an unexpected type.
type ArtifactTypeError struct {
	Key  string
	Want string
	Got  string
}

func (e *ArtifactTypeError) Error() string {
	return fmt.Sprintf("artifact %s has type %s, want %s", e.Key, e.Got, e.Want)
}

// Failure is the structured reason recorded on a failed Run.
type Failure struct {
	Reason    string
	LastStage string
	Message   string
}

// View is the read-mostly surface a stage sees. Stages may record cost and read
// prior artifacts but never change status, phase or working state.
type View interface {
	ID() string
	Input() types.ProcessRequest
	Artifact(key string) (any, error)
	RecordCost(service string, units int, unitCost float64)
	DeadlineExceeded() bool
}

// Run is one pipeline execution. It is owned by a single orchestrator goroutine.
type Run struct {
	id       string
	input    types.ProcessRequest
	status   Status
	phase    string
	last     string
	artifact map[string]any
	ledger   []types.CostEntry
	stats    map[string]int
	visits   map[string]int

	backEdges  int
	dataSource string
	failure    *Failure

	now        func() time.Time
	startedAt  time.Time
	finishedAt time.Time
	budget     time.Duration
	deadline   time.Time
}

// Option configures a Run at creation.
type Option func(*Run)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(r *Run) { r.now = now }
}

// WithDeadline sets the wall-clock budget, measured from creation.
func WithDeadline(budget time.Duration) Option {
	return func(r *Run) { r.budget = budget }
}

// WithID forces the run id. Used by callers that already allocated one.
func WithID(id string) Option {
	return func(r *Run) {
		if id != "" {
			r.id = id
		}
	}
}

// New creates a pending Run for a validated request.
func New(input types.ProcessRequest, opts ...Option) *Run {
	r := &Run{
		id:         uuid.New().String(),
		input:      input,
		status:     StatusPending,
		artifact:   make(map[string]any),
		stats:      make(map[string]int),
		visits:     make(map[string]int),
		dataSource: SourceNone,
		now:        time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(r)
		}
	}
	r.startedAt = r.now()
	if r.budget > 0 {
		r.deadline = r.startedAt.Add(r.budget)
	}
	return r
}

// ID returns the immutable run id.
func (r *Run) ID() string { return r.id }

// Input returns the validated request.
func (r *Run) Input() types.ProcessRequest { return r.input }

// Status returns the current status.
func (r *Run) Status() Status { return r.status }

// Phase returns the stage currently (or last) executing.
func (r *Run) Phase() string { return r.phase }

// LastCompleted returns the last stage whose artifact was accepted.
func (r *Run) LastCompleted() string { return r.last }

// Failure returns the failure record, or nil.
func (r *Run) Failure() *Failure { return r.failure }

// DataSource returns the tag of the branch that produced the accepted job set.
func (r *Run) DataSource() string { return r.dataSource }

// StartedAt returns the creation time.
func (r *Run) StartedAt() time.Time { return r.startedAt }

// FinishedAt returns the time of the terminal transition, zero while running.
func (r *Run) FinishedAt() time.Time { return r.finishedAt }

// Now returns the run clock's current time.
func (r *Run) Now() time.Time { return r.now() }

// Start moves a pending Run to running.
func (r *Run) Start() error {
	if r.status != StatusPending {
		if r.status.Terminal() {
			return ErrTerminal
		}
		return fmt.Errorf("cannot start run in status %s", r.status)
	}
	r.status = StatusRunning
	return nil
}

// SetPhase records the stage about to execute.
func (r *Run) SetPhase(phase string) error {
	if r.status.Terminal() {
		return ErrTerminal
	}
	r.phase = phase
	return nil
}

// Visit counts one execution of a stage and returns the new count.
func (r *Run) Visit(stage string) int {
	r.visits[stage]++
	return r.visits[stage]
}

// Visits returns how many times a stage executed.
func (r *Run) Visits(stage string) int { return r.visits[stage] }

// BackEdges returns how many back-edges have been traversed.
func (r *Run) BackEdges() int { return r.backEdges }

// TraverseBackEdge consumes one back-edge if the budget allows it.
func (r *Run) TraverseBackEdge(limit int) bool {
	if r.backEdges >= limit {
		return false
	}
	r.backEdges++
	return true
}

// SetArtifact stores the artifact a stage produced and marks that stage completed.
func (r *Run) SetArtifact(key, stage string, v any) error {
	if r.status.Terminal() {
		return ErrTerminal
	}
	r.artifact[key] = v
	r.last = stage
	return nil
}

// Artifact returns a previously stored artifact.
func (r *Run) Artifact(key string) (any, error) {
	v, ok := r.artifact[key]
	if !ok {
		return nil, &MissingArtifactError{Key: key}
	}
	return v, nil
}

// HasArtifact reports whether key was produced.
func (r *Run) HasArtifact(key string) bool {
	_, ok := r.artifact[key]
	return ok
}

// SetDataSource tags which sourcing branch produced the accepted jobs.
func (r *Run) SetDataSource(tag string) error {
	if r.status.Terminal() {
		return ErrTerminal
	}
	r.dataSource = tag
	return nil
}

// SetStat records a per-stage count.
func (r *Run) SetStat(name string, n int) {
	if r.status.Terminal() {
		return
	}
	r.stats[name] = n
}

// Stats returns a copy of the per-stage counts.
func (r *Run) Stats() map[string]int {
	out := make(map[string]int, len(r.stats))
	for k, v := range r.stats {
		out[k] = v
	}
	return out
}

// Complete moves a running Run to completed.
func (r *Run) Complete() error {
	if r.status.Terminal() {
		return ErrTerminal
	}
	r.status = StatusCompleted
	r.finishedAt = r.now()
	return nil
}

// Fail moves the Run to failed with a structured reason.
func (r *Run) Fail(reason, message string) error {
	if r.status.Terminal() {
		return ErrTerminal
	}
	r.status = StatusFailed
	r.failure = &Failure{Reason: reason, LastStage: r.last, Message: message}
	r.finishedAt = r.now()
	return nil
}

// DeadlineExceeded reports whether the wall-clock budget is spent.
func (r *Run) DeadlineExceeded() bool {
	return !r.deadline.IsZero() && !r.now().Before(r.deadline)
}

// ArtifactAs fetches an artifact and asserts its type.
func ArtifactAs[T any](v View, key string) (T, error) {
	var zero T
	raw, err := v.Artifact(key)
	if err != nil {
		return zero, err
	}
	typed, ok := raw.(T)
	if !ok {
		return zero, &ArtifactTypeError{Key: key, Want: fmt.Sprintf("%T", zero), Got: fmt.Sprintf("%T", raw)}
	}
	return typed, nil
}
