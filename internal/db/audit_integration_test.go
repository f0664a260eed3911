//go:build integration

package db

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestDB(t *testing.T) *DB {
	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		t.Skip("Skipping integration test: DATABASE_URL not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	db, err := Connect(ctx, dbURL)
	if err != nil {
		t.Skipf("Skipping integration test: failed to connect to DB: %v", err)
	}
	require.NoError(t, db.EnsureSchema(ctx))
	return db
}

func TestRunAuditRoundTrip(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()
	ctx := context.Background()

	id := uuid.New().String()
	started := time.Now().UTC().Truncate(time.Second)

	require.NoError(t, db.StartRun(ctx, &RunRecord{
		ID:               id,
		RecruiterEmail:   "jane@talentco.example",
		RecruiterWebsite: "https://talentco.example",
		Status:           "running",
		StartedAt:        started,
	}))
	require.NoError(t, db.AddStage(ctx, id, &StageRecord{
		Step: "extract_icp", Stage: "extract_icp", Visit: 1,
		Outcome: "ok", Action: "proceed", Move: "advance", Count: 7, DurationMs: 1200,
	}))
	require.NoError(t, db.AddStage(ctx, id, &StageRecord{
		Step: "source_jobs", Stage: "linkedin_jobs", Visit: 1,
		Outcome: "ok", Action: "fallback", Move: "variant", Reason: "only 4 qualifying jobs", Count: 4,
	}))

	finished := started.Add(90 * time.Second)
	require.NoError(t, db.FinishRun(ctx, &RunRecord{
		ID:           id,
		Status:       "completed",
		PhaseReached: "generate_message",
		DataSource:   "alternate",
		TotalCost:    0.37,
		Stats:        map[string]int{"jobs_scraped": 40},
		FinishedAt:   &finished,
	}))

	rec, err := db.GetRun(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "completed", rec.Status)
	assert.Equal(t, "alternate", rec.DataSource)
	assert.InDelta(t, 0.37, rec.TotalCost, 1e-9)
	assert.Equal(t, 40, rec.Stats["jobs_scraped"])
	require.NotNil(t, rec.FinishedAt)
	assert.True(t, finished.Equal(*rec.FinishedAt))

	stages, err := db.ListStages(ctx, id)
	require.NoError(t, err)
	require.Len(t, stages, 2)
	assert.Equal(t, "extract_icp", stages[0].Stage)
	assert.Equal(t, "linkedin_jobs", stages[1].Stage)
	assert.Equal(t, "variant", stages[1].Move)

	_, err = db.GetRun(ctx, uuid.New().String())
	assert.ErrorIs(t, err, ErrNotFound)
}
