// Package steps provides the stage contract, step definitions and static dependency
// validation for the recruiter pipeline.
package steps

import (
	"context"
	"fmt"
	"sort"

	"github.com/jonathan/recruiter-agent/internal/run"
)

// Step categories
const (
	CategoryPlanning   = "planning"
	CategorySourcing   = "sourcing"
	CategoryValidation = "validation"
	CategoryEnrichment = "enrichment"
	CategoryMessaging  = "messaging"
)

// Stage names
const (
	StageICP           = "icp"
	StageSearchTerms   = "search_terms"
	StageLinkedInJobs  = "linkedin_jobs"
	StageDiscoveryJobs = "discovery_jobs"
	StageValidate      = "validate_companies"
	StagePrioritize    = "prioritize"
	StageEnrich        = "enrich"
	StageMessage       = "generate_message"
)

// Artifact keys in the run's working state
const (
	KeyICP       = "icp_profile"
	KeySearch    = "search_plan"
	KeyJobs      = "jobs"
	KeyValidated = "validated_companies"
	KeyRanked    = "ranked_companies"
	KeyEnriched  = "enriched_companies"
	KeyMessage   = "outreach_message"
)

// StepDefinition defines metadata for a pipeline stage
type StepDefinition struct {
	Name         string
	Category     string
	Dependencies []string
	Output       string
}

// Outcome is how a stage judged its own work.
type Outcome string

// Stage outcomes
const (
	OutcomeOK       Outcome = "ok"
	OutcomeDegraded Outcome = "degraded"
	OutcomeFailed   Outcome = "failed"
)

// QualitySignal is what the orchestrator gates on. Stages report it and never act on it.
type QualitySignal struct {
	Count         int     `json:"count"`
	PassRate      float64 `json:"pass_rate"`
	DegradedItems int     `json:"degraded_items"`
	Exhausted     bool    `json:"exhausted"`
	Rejected      bool    `json:"rejected"`
	// Failed is set by the orchestrator when the stage's outcome was failed.
	Failed bool `json:"failed"`
}

// Result is the return value of every stage invocation.
type Result struct {
	Artifact any
	Signal   QualitySignal
	Outcome  Outcome
	// Stats are per-stage counts copied into the result document.
	Stats map[string]int
}

// Stage is one unit of pipeline work.
type Stage interface {
	Definition() StepDefinition
	Execute(ctx context.Context, r run.View) (Result, error)
}

// StepRegistry holds the definition of every known stage
var StepRegistry = map[string]StepDefinition{
	StageICP: {
		Name:         StageICP,
		Category:     CategoryPlanning,
		Dependencies: []string{},
		Output:       KeyICP,
	},
	StageSearchTerms: {
		Name:         StageSearchTerms,
		Category:     CategoryPlanning,
		Dependencies: []string{KeyICP},
		Output:       KeySearch,
	},
	StageLinkedInJobs: {
		Name:         StageLinkedInJobs,
		Category:     CategorySourcing,
		Dependencies: []string{KeySearch},
		Output:       KeyJobs,
	},
	StageDiscoveryJobs: {
		Name:         StageDiscoveryJobs,
		Category:     CategorySourcing,
		Dependencies: []string{KeyICP, KeySearch},
		Output:       KeyJobs,
	},
	StageValidate: {
		Name:         StageValidate,
		Category:     CategoryValidation,
		Dependencies: []string{KeyICP, KeyJobs},
		Output:       KeyValidated,
	},
	StagePrioritize: {
		Name:         StagePrioritize,
		Category:     CategoryValidation,
		Dependencies: []string{KeyValidated},
		Output:       KeyRanked,
	},
	StageEnrich: {
		Name:         StageEnrich,
		Category:     CategoryEnrichment,
		Dependencies: []string{KeyICP, KeyRanked},
		Output:       KeyEnriched,
	},
	StageMessage: {
		Name:         StageMessage,
		Category:     CategoryMessaging,
		Dependencies: []string{KeyICP, KeyEnriched},
		Output:       KeyMessage,
	},
}

// Step is one logical step of the configured order and the stages that can fill it.
type Step struct {
	Name     string
	Variants []string
}

// DependencyError represents a dependency validation error
type DependencyError struct {
	Step                string
	Stage               string
	MissingDependencies []string
}

func (e *DependencyError) Error() string {
	return fmt.Sprintf("stage %s (step %s) has missing dependencies: %v", e.Stage, e.Step, e.MissingDependencies)
}

// UnknownStageError is returned when the order names a stage nobody registered.
type UnknownStageError struct {
	Step  string
	Stage string
}

func (e *UnknownStageError) Error() string {
	return fmt.Sprintf("unknown stage %s in step %s", e.Stage, e.Step)
}

// OutputError is returned when variants disagree on their output or two steps write one key.
type OutputError struct {
	Step    string
	Stage   string
	Output  string
	Message string
}

func (e *OutputError) Error() string {
	return fmt.Sprintf("stage %s (step %s) output %q: %s", e.Stage, e.Step, e.Output, e.Message)
}

// Registry holds the stage implementations available to the orchestrator.
type Registry struct {
	stages map[string]Stage
}

// NewRegistry registers stages by their definition name.
func NewRegistry(stages ...Stage) (*Registry, error) {
	r := &Registry{stages: make(map[string]Stage, len(stages))}
	for _, s := range stages {
		if err := r.Register(s); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Register adds one stage.
func (r *Registry) Register(s Stage) error {
	def := s.Definition()
	if def.Name == "" {
		return fmt.Errorf("stage has no name")
	}
	if def.Output == "" {
		return fmt.Errorf("stage %s declares no output", def.Name)
	}
	if _, exists := r.stages[def.Name]; exists {
		return fmt.Errorf("stage %s registered twice", def.Name)
	}
	r.stages[def.Name] = s
	return nil
}

// Get returns a registered stage.
func (r *Registry) Get(name string) (Stage, bool) {
	s, ok := r.stages[name]
	return s, ok
}

// Names returns registered stage names in sorted order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.stages))
	for name := range r.stages {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ValidateOrder checks, without running anything, that each stage in order only
// depends on outputs of earlier steps, that variants of a step share one output,
// and that no two steps write the same key.
func (r *Registry) ValidateOrder(order []Step) error {
	produced := make(map[string]string)

	for _, step := range order {
		if len(step.Variants) == 0 {
			return fmt.Errorf("step %s has no stages", step.Name)
		}

		var output string
		for _, name := range step.Variants {
			stage, ok := r.stages[name]
			if !ok {
				return &UnknownStageError{Step: step.Name, Stage: name}
			}
			def := stage.Definition()

			if output == "" {
				output = def.Output
			} else if def.Output != output {
				return &OutputError{Step: step.Name, Stage: name, Output: def.Output, Message: fmt.Sprintf("variants must all write %q", output)}
			}

			var missing []string
			for _, dep := range def.Dependencies {
				if _, ok := produced[dep]; !ok {
					missing = append(missing, dep)
				}
			}
			if len(missing) > 0 {
				return &DependencyError{Step: step.Name, Stage: name, MissingDependencies: missing}
			}
		}

		if owner, dup := produced[output]; dup {
			return &OutputError{Step: step.Name, Stage: step.Variants[0], Output: output, Message: "already written by step " + owner}
		}
		produced[output] = step.Name
	}

	return nil
}
