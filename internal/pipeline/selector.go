package pipeline

import (
	"fmt"

	"github.com/jonathan/recruiter-agent/internal/pipeline/steps"
	"github.com/jonathan/recruiter-agent/internal/run"
)

// PhaseAssemble is the phase recorded once every step has proceeded.
const PhaseAssemble = "assemble"

// Logical step names
const (
	StepICP         = "icp"
	StepSearchTerms = "search_terms"
	StepSourceJobs  = "source_jobs"
	StepValidate    = "validate_companies"
	StepPrioritize  = "prioritize"
	StepEnrich      = "enrich"
	StepMessage     = "generate_message"
)

// Variant is one stage able to fill a logical step, with the gate evaluated on its result.
type Variant struct {
	Stage string
	Gate  Gate
	// Source is the data-source tag recorded when this variant proceeds. Empty leaves the tag alone.
	Source string
}

// BackEdge re-enters an earlier step when a step's fallback has no variant left.
type BackEdge struct {
	To      string
	Variant int
}

// StepSpec is one node of the stage graph.
type StepSpec struct {
	Name     string
	Variants []Variant
	BackEdge *BackEdge
}

// DefaultGraph returns the recruiter pipeline's stage graph.
func DefaultGraph() []StepSpec {
	return []StepSpec{
		{Name: StepICP, Variants: []Variant{{Stage: steps.StageICP, Gate: AlwaysProceed}}},
		{Name: StepSearchTerms, Variants: []Variant{{Stage: steps.StageSearchTerms, Gate: AlwaysProceed}}},
		{Name: StepSourceJobs, Variants: []Variant{
			{Stage: steps.StageLinkedInJobs, Gate: PrimaryJobGate, Source: run.SourcePrimary},
			{Stage: steps.StageDiscoveryJobs, Gate: AlternateJobGate, Source: run.SourceAlternate},
		}},
		{
			Name:     StepValidate,
			Variants: []Variant{{Stage: steps.StageValidate, Gate: SurvivalGate}},
			BackEdge: &BackEdge{To: StepSourceJobs, Variant: 1},
		},
		{Name: StepPrioritize, Variants: []Variant{{Stage: steps.StagePrioritize, Gate: AlwaysProceed}}},
		{Name: StepEnrich, Variants: []Variant{{Stage: steps.StageEnrich, Gate: AlwaysProceed}}},
		{Name: StepMessage, Variants: []Variant{{Stage: steps.StageMessage, Gate: AlwaysProceed}}},
	}
}

// Cursor points at one variant of one step. A cursor past the last step means assemble.
type Cursor struct {
	Step    int
	Variant int
}

// Move is the kind of transition the selector resolved.
type Move string

// Transition moves
const (
	MoveAdvance  Move = "advance"
	MoveVariant  Move = "variant"
	MoveBackEdge Move = "back_edge"
	MoveAbort    Move = "abort"
)

// Transition is the resolved next position after a decision.
type Transition struct {
	Move   Move
	Next   Cursor
	Reason string
}

// Selector maps logical steps to their variants and gates. It holds no run state:
// identical inputs give identical decisions.
type Selector struct {
	graph      []StepSpec
	index      map[string]int
	thresholds Thresholds
}

// NewSelector checks the graph's shape and builds a selector over it.
func NewSelector(graph []StepSpec, th Thresholds) (*Selector, error) {
	s := &Selector{graph: graph, index: make(map[string]int, len(graph)), thresholds: th}
	for i, spec := range graph {
		if _, dup := s.index[spec.Name]; dup {
			return nil, fmt.Errorf("step %s appears twice", spec.Name)
		}
		if len(spec.Variants) == 0 {
			return nil, fmt.Errorf("step %s has no variants", spec.Name)
		}
		for _, v := range spec.Variants {
			if v.Gate == nil {
				return nil, fmt.Errorf("stage %s in step %s has no gate", v.Stage, spec.Name)
			}
		}
		s.index[spec.Name] = i
	}
	for i, spec := range graph {
		if spec.BackEdge == nil {
			continue
		}
		to, ok := s.index[spec.BackEdge.To]
		if !ok {
			return nil, fmt.Errorf("step %s back-edge targets unknown step %s", spec.Name, spec.BackEdge.To)
		}
		if to >= i {
			return nil, fmt.Errorf("step %s back-edge must target an earlier step", spec.Name)
		}
		if spec.BackEdge.Variant < 0 || spec.BackEdge.Variant >= len(graph[to].Variants) {
			return nil, fmt.Errorf("step %s back-edge targets missing variant %d of %s", spec.Name, spec.BackEdge.Variant, spec.BackEdge.To)
		}
	}
	return s, nil
}

// Thresholds returns the configured thresholds.
func (s *Selector) Thresholds() Thresholds { return s.thresholds }

// Graph returns the stage graph.
func (s *Selector) Graph() []StepSpec { return s.graph }

// Order returns the logical steps and their variants for registry validation.
func (s *Selector) Order() []steps.Step {
	order := make([]steps.Step, 0, len(s.graph))
	for _, spec := range s.graph {
		names := make([]string, 0, len(spec.Variants))
		for _, v := range spec.Variants {
			names = append(names, v.Stage)
		}
		order = append(order, steps.Step{Name: spec.Name, Variants: names})
	}
	return order
}

// Start returns the first cursor. With forceAlternate, a step with alternates
// begins at its second variant, so the primary and its gate are never consulted.
func (s *Selector) Start(forceAlternate bool) Cursor {
	return Cursor{Step: 0, Variant: s.firstVariant(0, forceAlternate)}
}

func (s *Selector) firstVariant(step int, forceAlternate bool) int {
	if forceAlternate && step < len(s.graph) && len(s.graph[step].Variants) > 1 {
		return 1
	}
	return 0
}

// Done reports whether c is past the last step.
func (s *Selector) Done(c Cursor) bool {
	return c.Step >= len(s.graph)
}

// Step returns the spec and variant under c.
func (s *Selector) Step(c Cursor) (StepSpec, Variant) {
	spec := s.graph[c.Step]
	return spec, spec.Variants[c.Variant]
}

// Produced reports whether the variant at c already supplied the run's current data source.
func (s *Selector) Produced(c Cursor, source string) bool {
	if s.Done(c) || source == "" {
		return false
	}
	_, v := s.Step(c)
	return v.Source == source
}

// Follow is Resolve for a live run. A back-edge into the variant that already
// produced the run's data source aborts with the gate's reason.
func (s *Selector) Follow(c Cursor, d Decision, backEdgesUsed int, source string, forceAlternate bool) Transition {
	t := s.Resolve(c, d, backEdgesUsed, forceAlternate)
	if t.Move == MoveBackEdge && s.Produced(t.Next, source) {
		return Transition{Move: MoveAbort, Next: c, Reason: d.Reason}
	}
	return t
}

// Evaluate runs the gate attached to a step's variant.
func (s *Selector) Evaluate(step string, variant int, sig steps.QualitySignal) (Decision, error) {
	i, ok := s.index[step]
	if !ok {
		return Decision{}, fmt.Errorf("unknown step %s", step)
	}
	if variant < 0 || variant >= len(s.graph[i].Variants) {
		return Decision{}, fmt.Errorf("step %s has no variant %d", step, variant)
	}
	return s.graph[i].Variants[variant].Gate(sig, s.thresholds), nil
}

// Resolve turns a decision at c into the next position. backEdgesUsed is the
// run's back-edge count; a back-edge is only offered while it is below MaxBackEdges.
func (s *Selector) Resolve(c Cursor, d Decision, backEdgesUsed int, forceAlternate bool) Transition {
	switch d.Action {
	case ActionProceed:
		next := c.Step + 1
		return Transition{Move: MoveAdvance, Next: Cursor{Step: next, Variant: s.firstVariant(next, forceAlternate)}}
	case ActionFallback:
		spec := s.graph[c.Step]
		if c.Variant+1 < len(spec.Variants) {
			return Transition{Move: MoveVariant, Next: Cursor{Step: c.Step, Variant: c.Variant + 1}, Reason: d.Reason}
		}
		if spec.BackEdge != nil && backEdgesUsed < s.thresholds.MaxBackEdges {
			return Transition{
				Move:   MoveBackEdge,
				Next:   Cursor{Step: s.index[spec.BackEdge.To], Variant: spec.BackEdge.Variant},
				Reason: d.Reason,
			}
		}
		return Transition{Move: MoveAbort, Next: c, Reason: d.Reason}
	default:
		reason := d.Reason
		if reason == "" {
			reason = ReasonStageFailed
		}
		return Transition{Move: MoveAbort, Next: c, Reason: reason}
	}
}

// Plan replays a sequence of synthetic signals against one logical step and
// returns the decisions taken, following fallbacks between variants. It stops at
// the first decision that leaves the step or when signals run out.
func (s *Selector) Plan(step string, signals []steps.QualitySignal, forceAlternate bool) ([]Decision, error) {
	i, ok := s.index[step]
	if !ok {
		return nil, fmt.Errorf("unknown step %s", step)
	}
	c := Cursor{Step: i, Variant: s.firstVariant(i, forceAlternate)}

	var decisions []Decision
	for _, sig := range signals {
		d, err := s.Evaluate(step, c.Variant, sig)
		if err != nil {
			return nil, err
		}
		decisions = append(decisions, d)

		t := s.Resolve(c, d, 0, forceAlternate)
		if t.Move != MoveVariant {
			break
		}
		c = t.Next
	}
	return decisions, nil
}

// Visit is one stage execution in a simulated walk.
type Visit struct {
	Stage      string
	Decision   Decision
	Transition Transition
}

// Walk simulates the whole graph, feeding signals to stages in execution order.
// It stops at a terminal transition or when signals run out. The orchestrator
// follows the same transitions against real stages.
func (s *Selector) Walk(signals []steps.QualitySignal, forceAlternate bool) []Visit {
	var visits []Visit
	c := s.Start(forceAlternate)
	backEdges := 0
	source := ""

	for _, sig := range signals {
		if s.Done(c) {
			break
		}
		_, variant := s.Step(c)
		d := variant.Gate(sig, s.thresholds)
		t := s.Follow(c, d, backEdges, source, forceAlternate)
		visits = append(visits, Visit{Stage: variant.Stage, Decision: d, Transition: t})

		switch t.Move {
		case MoveAbort:
			return visits
		case MoveBackEdge:
			backEdges++
		case MoveAdvance:
			if variant.Source != "" {
				source = variant.Source
			}
		}
		c = t.Next
	}
	return visits
}
