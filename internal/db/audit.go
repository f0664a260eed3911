package db

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/jonathan/recruiter-agent/internal/observability"
	"github.com/jonathan/recruiter-agent/internal/pipeline"
	"github.com/jonathan/recruiter-agent/internal/run"
	"github.com/jonathan/recruiter-agent/internal/types"
)

// RunRecord is the audit row of one run.
type RunRecord struct {
	ID               string         `json:"id"`
	RecruiterEmail   string         `json:"recruiter_email"`
	RecruiterWebsite string         `json:"recruiter_website"`
	Status           string         `json:"status"`
	PhaseReached     string         `json:"phase_reached"`
	DataSource       string         `json:"data_source"`
	ErrorReason      string         `json:"error_reason,omitempty"`
	TotalCost        float64        `json:"total_cost"`
	Stats            map[string]int `json:"stats,omitempty"`
	StartedAt        time.Time      `json:"started_at"`
	FinishedAt       *time.Time     `json:"finished_at,omitempty"`
}

// StageRecord is one stage execution within a run.
type StageRecord struct {
	Step       string    `json:"step"`
	Stage      string    `json:"stage"`
	Visit      int       `json:"visit"`
	Outcome    string    `json:"outcome"`
	Action     string    `json:"action"`
	Move       string    `json:"move"`
	Reason     string    `json:"reason,omitempty"`
	Count      int       `json:"count"`
	DurationMs int64     `json:"duration_ms"`
	Error      string    `json:"error,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

// StartRun inserts the audit row for a run, resetting it if the id was seen before.
func (db *DB) StartRun(ctx context.Context, rec *RunRecord) error {
	_, err := db.pool.Exec(ctx,
		`INSERT INTO recruiter_runs (id, recruiter_email, recruiter_website, status, started_at)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (id) DO UPDATE SET status = $4, started_at = $5, finished_at = NULL`,
		rec.ID, rec.RecruiterEmail, rec.RecruiterWebsite, rec.Status, rec.StartedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to start run: %w", err)
	}
	return nil
}

// AddStage appends a stage execution to a run.
func (db *DB) AddStage(ctx context.Context, runID string, st *StageRecord) error {
	_, err := db.pool.Exec(ctx,
		`INSERT INTO recruiter_run_stages
		   (run_id, step, stage, visit, outcome, action, move, reason, count, duration_ms, error)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		runID, st.Step, st.Stage, st.Visit, st.Outcome, st.Action, st.Move,
		st.Reason, st.Count, st.DurationMs, st.Error,
	)
	if err != nil {
		return fmt.Errorf("failed to add stage: %w", err)
	}
	return nil
}

// FinishRun records the terminal state of a run.
func (db *DB) FinishRun(ctx context.Context, rec *RunRecord) error {
	statsJSON, err := json.Marshal(rec.Stats)
	if err != nil {
		return fmt.Errorf("failed to marshal stats: %w", err)
	}

	_, err = db.pool.Exec(ctx,
		`UPDATE recruiter_runs
		 SET status = $2, phase_reached = $3, data_source = $4, error_reason = $5,
		     total_cost = $6, stats = $7, finished_at = $8
		 WHERE id = $1`,
		rec.ID, rec.Status, rec.PhaseReached, rec.DataSource, rec.ErrorReason,
		rec.TotalCost, statsJSON, rec.FinishedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to finish run: %w", err)
	}
	return nil
}

// GetRun retrieves the audit row of a run.
func (db *DB) GetRun(ctx context.Context, id string) (*RunRecord, error) {
	var rec RunRecord
	var statsJSON []byte
	err := db.pool.QueryRow(ctx,
		`SELECT id, recruiter_email, recruiter_website, status, phase_reached, data_source,
		        error_reason, total_cost, stats, started_at, finished_at
		 FROM recruiter_runs WHERE id = $1`,
		id,
	).Scan(&rec.ID, &rec.RecruiterEmail, &rec.RecruiterWebsite, &rec.Status, &rec.PhaseReached,
		&rec.DataSource, &rec.ErrorReason, &rec.TotalCost, &statsJSON, &rec.StartedAt, &rec.FinishedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get run: %w", err)
	}
	if len(statsJSON) > 0 {
		_ = json.Unmarshal(statsJSON, &rec.Stats)
	}
	return &rec, nil
}

// ListStages returns the stage executions of a run in execution order.
func (db *DB) ListStages(ctx context.Context, runID string) ([]StageRecord, error) {
	rows, err := db.pool.Query(ctx,
		`SELECT step, stage, visit, outcome, action, move, reason, count, duration_ms, error, created_at
		 FROM recruiter_run_stages WHERE run_id = $1 ORDER BY id`,
		runID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list stages: %w", err)
	}
	defer rows.Close()

	var stages []StageRecord
	for rows.Next() {
		var st StageRecord
		if err := rows.Scan(&st.Step, &st.Stage, &st.Visit, &st.Outcome, &st.Action, &st.Move,
			&st.Reason, &st.Count, &st.DurationMs, &st.Error, &st.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan stage: %w", err)
		}
		stages = append(stages, st)
	}
	return stages, rows.Err()
}

// auditTimeout bounds each audit write. Writes outlive the run's own context.
const auditTimeout = 5 * time.Second

// AuditLog is a pipeline observer that writes the run trail to the database.
// Write failures are logged and never affect the run.
type AuditLog struct {
	db *DB
}

// NewAuditLog returns an observer backed by db.
func NewAuditLog(db *DB) *AuditLog {
	return &AuditLog{db: db}
}

var _ pipeline.Observer = (*AuditLog)(nil)

// RunStarted implements pipeline.Observer.
func (a *AuditLog) RunStarted(ctx context.Context, r *run.Run) {
	in := r.Input()
	a.write(ctx, "start run", func(ctx context.Context) error {
		return a.db.StartRun(ctx, &RunRecord{
			ID:               r.ID(),
			RecruiterEmail:   in.RecruiterEmail,
			RecruiterWebsite: in.RecruiterWebsite,
			Status:           string(r.Status()),
			StartedAt:        r.StartedAt(),
		})
	})
}

// StageFinished implements pipeline.Observer.
func (a *AuditLog) StageFinished(ctx context.Context, r *run.Run, ev pipeline.StageEvent) {
	st := &StageRecord{
		Step:       ev.Step,
		Stage:      ev.Stage,
		Visit:      ev.Visit,
		Outcome:    string(ev.Outcome),
		Action:     string(ev.Decision.Action),
		Move:       string(ev.Move),
		Reason:     ev.Decision.Reason,
		Count:      ev.Signal.Count,
		DurationMs: ev.Duration.Milliseconds(),
	}
	if ev.Err != nil {
		st.Error = ev.Err.Error()
	}
	a.write(ctx, "add stage", func(ctx context.Context) error {
		return a.db.AddStage(ctx, r.ID(), st)
	})
}

// RunFinished implements pipeline.Observer.
func (a *AuditLog) RunFinished(ctx context.Context, r *run.Run, doc *types.Document) {
	rec := &RunRecord{
		ID:           doc.RunID,
		Status:       doc.Status,
		PhaseReached: doc.PhaseReached,
		DataSource:   doc.DataSource,
		TotalCost:    doc.TotalCost,
		Stats:        doc.Stats,
	}
	if !doc.FinishedAt.IsZero() {
		finished := doc.FinishedAt
		rec.FinishedAt = &finished
	}
	if doc.Error != nil {
		rec.ErrorReason = doc.Error.Reason
	}
	a.write(ctx, "finish run", func(ctx context.Context) error {
		return a.db.FinishRun(ctx, rec)
	})
}

func (a *AuditLog) write(ctx context.Context, op string, fn func(context.Context) error) {
	wctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), auditTimeout)
	defer cancel()
	if err := fn(wctx); err != nil {
		observability.FromContext(ctx).WithError(err).Warnf("audit: %s failed", op)
	}
}
