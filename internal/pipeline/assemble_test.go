package pipeline

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/recruiter-agent/internal/pipeline/steps"
	"github.com/jonathan/recruiter-agent/internal/run"
	"github.com/jonathan/recruiter-agent/internal/types"
)

func TestAssemble_Completed(t *testing.T) {
	clock := newTestClock()
	r := run.New(testRequest(), run.WithClock(clock.Now))
	require.NoError(t, r.Start())
	require.NoError(t, r.SetPhase(steps.StageICP))
	r.RecordCost("gemini", 1000, 0.0001)
	require.NoError(t, r.SetArtifact(steps.KeyICP, steps.StageICP, &types.ICPProfile{Industries: []string{"saas"}}))
	require.NoError(t, r.SetArtifact(steps.KeyEnriched, steps.StageEnrich, &types.EnrichedCompanies{
		Companies: []types.EnrichedCompany{{Company: types.Company{Name: "Acme"}}},
	}))
	require.NoError(t, r.SetArtifact(steps.KeyMessage, steps.StageMessage, &types.OutreachMessage{Subject: "s"}))
	require.NoError(t, r.SetDataSource(run.SourcePrimary))
	require.NoError(t, r.SetPhase(PhaseAssemble))
	clock.Advance(90 * time.Second)
	require.NoError(t, r.Complete())

	doc := Assemble(r)

	assert.Equal(t, r.ID(), doc.RunID)
	assert.Equal(t, "completed", doc.Status)
	assert.Equal(t, PhaseAssemble, doc.PhaseReached)
	assert.Equal(t, run.SourcePrimary, doc.DataSource)
	assert.Equal(t, []string{"saas"}, doc.ICPProfile.Industries)
	assert.Len(t, doc.SelectedCompanies, 1)
	assert.Equal(t, "s", doc.GeneratedMessage.Subject)
	assert.Nil(t, doc.Error)
	assert.InDelta(t, 0.1, doc.TotalCost, 1e-9)
	assert.InDelta(t, 90.0, doc.RuntimeSeconds, 1e-9)
	assert.Equal(t, testRequest(), doc.InputEcho)
}

func TestAssemble_FailedKeepsShape(t *testing.T) {
	r := run.New(testRequest())
	require.NoError(t, r.Start())
	require.NoError(t, r.SetPhase(steps.StageICP))
	require.NoError(t, r.Fail(ReasonCollaboratorExhausted, "gemini down"))

	doc := Assemble(r)

	assert.Equal(t, "failed", doc.Status)
	require.NotNil(t, doc.Error)
	assert.Equal(t, ReasonCollaboratorExhausted, doc.Error.Reason)
	assert.Equal(t, "", doc.Error.LastStage)
	assert.NotNil(t, doc.CostBreakdown, "empty ledger is an empty list")
	assert.NotNil(t, doc.Stats)
	assert.Nil(t, doc.ICPProfile)
	assert.Nil(t, doc.SelectedCompanies)
	assert.Nil(t, doc.GeneratedMessage)
	assert.False(t, doc.FinishedAt.IsZero())
}

func TestAssemble_IgnoresMistypedArtifacts(t *testing.T) {
	r := run.New(testRequest())
	require.NoError(t, r.SetArtifact(steps.KeyICP, steps.StageICP, "not a profile"))

	doc := Assemble(r)
	assert.Nil(t, doc.ICPProfile)
}
