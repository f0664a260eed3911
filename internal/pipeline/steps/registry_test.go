package steps

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/recruiter-agent/internal/run"
)

type stubStage struct {
	def StepDefinition
}

func (s stubStage) Definition() StepDefinition { return s.def }

func (s stubStage) Execute(context.Context, run.View) (Result, error) {
	return Result{Outcome: OutcomeOK}, nil
}

func registered(t *testing.T) *Registry {
	t.Helper()
	var stages []Stage
	for _, def := range StepRegistry {
		stages = append(stages, stubStage{def: def})
	}
	reg, err := NewRegistry(stages...)
	require.NoError(t, err)
	return reg
}

func standardOrder() []Step {
	return []Step{
		{Name: "icp", Variants: []string{StageICP}},
		{Name: "search_terms", Variants: []string{StageSearchTerms}},
		{Name: "source_jobs", Variants: []string{StageLinkedInJobs, StageDiscoveryJobs}},
		{Name: "validate_companies", Variants: []string{StageValidate}},
		{Name: "prioritize", Variants: []string{StagePrioritize}},
		{Name: "enrich", Variants: []string{StageEnrich}},
		{Name: "generate_message", Variants: []string{StageMessage}},
	}
}

func TestStepRegistry(t *testing.T) {
	expectedStages := []string{
		StageICP, StageSearchTerms, StageLinkedInJobs, StageDiscoveryJobs,
		StageValidate, StagePrioritize, StageEnrich, StageMessage,
	}

	for _, name := range expectedStages {
		def, ok := StepRegistry[name]
		require.True(t, ok, "Stage %s should be in registry", name)
		assert.Equal(t, name, def.Name)
		assert.NotEmpty(t, def.Category)
		assert.NotEmpty(t, def.Output)
	}
}

func TestStepRegistry_SourcingVariantsShareOutput(t *testing.T) {
	assert.Equal(t, StepRegistry[StageLinkedInJobs].Output, StepRegistry[StageDiscoveryJobs].Output)
	assert.Equal(t, CategorySourcing, StepRegistry[StageLinkedInJobs].Category)
	assert.Equal(t, CategorySourcing, StepRegistry[StageDiscoveryJobs].Category)
}

func TestValidateOrder_Standard(t *testing.T) {
	reg := registered(t)
	assert.NoError(t, reg.ValidateOrder(standardOrder()))
}

func TestValidateOrder_DependencyOutOfOrder(t *testing.T) {
	reg := registered(t)
	order := standardOrder()
	// enrich before prioritize
	order[4], order[5] = order[5], order[4]

	err := reg.ValidateOrder(order)
	var depErr *DependencyError
	require.True(t, errors.As(err, &depErr))
	assert.Equal(t, StageEnrich, depErr.Stage)
	assert.Equal(t, []string{KeyRanked}, depErr.MissingDependencies)
	assert.Contains(t, err.Error(), "missing dependencies")
}

func TestValidateOrder_UnknownStage(t *testing.T) {
	reg := registered(t)
	order := standardOrder()
	order[2].Variants = append(order[2].Variants, "google_jobs")

	var unknown *UnknownStageError
	require.ErrorAs(t, reg.ValidateOrder(order), &unknown)
	assert.Equal(t, "google_jobs", unknown.Stage)
}

func TestValidateOrder_VariantOutputMismatch(t *testing.T) {
	reg := registered(t)
	require.NoError(t, reg.Register(stubStage{def: StepDefinition{
		Name: "odd_jobs", Category: CategorySourcing, Dependencies: []string{KeySearch}, Output: "odd",
	}}))
	order := standardOrder()
	order[2].Variants = []string{StageLinkedInJobs, "odd_jobs"}

	var outErr *OutputError
	require.ErrorAs(t, reg.ValidateOrder(order), &outErr)
	assert.Equal(t, "odd_jobs", outErr.Stage)
}

func TestValidateOrder_DuplicateOutput(t *testing.T) {
	reg := registered(t)
	order := standardOrder()
	order = append(order[:3], append([]Step{{Name: "source_again", Variants: []string{StageDiscoveryJobs}}}, order[3:]...)...)

	var outErr *OutputError
	require.ErrorAs(t, reg.ValidateOrder(order), &outErr)
	assert.Contains(t, outErr.Error(), "already written")
}

func TestValidateOrder_EmptyStep(t *testing.T) {
	reg := registered(t)
	err := reg.ValidateOrder([]Step{{Name: "icp"}})
	assert.Error(t, err)
}

func TestRegister_Duplicate(t *testing.T) {
	_, err := NewRegistry(
		stubStage{def: StepRegistry[StageICP]},
		stubStage{def: StepRegistry[StageICP]},
	)
	assert.Error(t, err)
}

func TestRegister_NoOutput(t *testing.T) {
	reg, err := NewRegistry()
	require.NoError(t, err)
	assert.Error(t, reg.Register(stubStage{def: StepDefinition{Name: "x"}}))
}

func TestNames_Sorted(t *testing.T) {
	reg := registered(t)
	names := reg.Names()
	assert.Len(t, names, len(StepRegistry))
	assert.IsIncreasing(t, names)
}

func TestDependencyError(t *testing.T) {
	err := &DependencyError{
		Step:                "source_jobs",
		Stage:               "linkedin_jobs",
		MissingDependencies: []string{"dep1", "dep2"},
	}

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "missing dependencies")
	assert.Equal(t, []string{"dep1", "dep2"}, err.MissingDependencies)
}
