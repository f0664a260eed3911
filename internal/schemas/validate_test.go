package schemas

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/recruiter-agent/internal/types"
)

func completedDocument() *types.Document {
	started := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	return &types.Document{
		RunID:        "2f1c7c6e-1111-4a4a-9b9b-123456789abc",
		Status:       "completed",
		PhaseReached: "generate_message",
		DataSource:   "primary",
		CostBreakdown: []types.CostEntry{
			{Service: "llm", Units: 1500, UnitCost: 0.000001, Stage: "extract_icp"},
			{Service: "apify", Units: 1, UnitCost: 0.05, Stage: "linkedin_jobs"},
		},
		TotalCost: 0.0515,
		InputEcho: types.ProcessRequest{
			RecruiterName:    "Jane Smith",
			RecruiterEmail:   "jane@talentco.example",
			RecruiterWebsite: "https://talentco.example",
		},
		ICPProfile: &types.ICPProfile{
			Industries:  []string{"fintech"},
			RolesFilled: []string{"Backend Engineer"},
		},
		Stats: map[string]int{"jobs_scraped": 40, "jobs_qualifying": 12},
		SelectedCompanies: []types.EnrichedCompany{{
			Company: types.Company{
				Name:     "Acme",
				Jobs:     []types.JobPosting{{Title: "Backend Engineer", CompanyName: "Acme"}},
				FitScore: 0.8,
				Rank:     1,
			},
			Enrichment: types.Enrichment{
				BusinessDescription: "Payments infrastructure",
				DecisionMaker:       &types.Contact{Name: "Sam Lee", Title: "CTO"},
			},
		}},
		GeneratedMessage: &types.OutreachMessage{
			Subject: "Companies hiring backend engineers",
			To:      "jane@talentco.example",
			Body:    "Hi Jane,\n\n1. Acme",
		},
		StartedAt:      started,
		FinishedAt:     started.Add(95 * time.Second),
		RuntimeSeconds: 95,
	}
}

func failedDocument() *types.Document {
	started := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	return &types.Document{
		RunID:        "run-2",
		Status:       "failed",
		PhaseReached: "source_jobs",
		DataSource:   "none",
		InputEcho: types.ProcessRequest{
			RecruiterName:    "Jane Smith",
			RecruiterEmail:   "jane@talentco.example",
			RecruiterWebsite: "https://talentco.example",
		},
		Error: &types.RunError{
			Reason:    "no_qualifying_opportunities",
			LastStage: "discovery_jobs",
		},
		StartedAt:  started,
		FinishedAt: started.Add(10 * time.Second),
	}
}

func TestDocumentSchema_IsValidJSON(t *testing.T) {
	var v map[string]any
	require.NoError(t, json.Unmarshal([]byte(DocumentSchema()), &v))
	assert.Equal(t, "object", v["type"])
}

func TestValidateDocument(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(d *types.Document)
		base    func() *types.Document
		wantErr bool
	}{
		{name: "completed", base: completedDocument},
		{name: "failed with partial artifacts", base: failedDocument},
		{
			name: "failed keeps accepted ICP",
			base: failedDocument,
			mutate: func(d *types.Document) {
				d.ICPProfile = &types.ICPProfile{Industries: []string{"saas"}}
			},
		},
		{
			name:    "failed without error",
			base:    failedDocument,
			mutate:  func(d *types.Document) { d.Error = nil },
			wantErr: true,
		},
		{
			name: "completed with error",
			base: completedDocument,
			mutate: func(d *types.Document) {
				d.Error = &types.RunError{Reason: "internal_error"}
			},
			wantErr: true,
		},
		{
			name:    "unknown status",
			base:    completedDocument,
			mutate:  func(d *types.Document) { d.Status = "running" },
			wantErr: true,
		},
		{
			name:    "unknown data source",
			base:    completedDocument,
			mutate:  func(d *types.Document) { d.DataSource = "crawler" },
			wantErr: true,
		},
		{
			name:    "fit score out of range",
			base:    completedDocument,
			mutate:  func(d *types.Document) { d.SelectedCompanies[0].FitScore = 1.5 },
			wantErr: true,
		},
		{
			name:    "empty message body",
			base:    completedDocument,
			mutate:  func(d *types.Document) { d.GeneratedMessage.Body = "" },
			wantErr: true,
		},
		{
			name:    "negative cost",
			base:    completedDocument,
			mutate:  func(d *types.Document) { d.TotalCost = -1 },
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := tt.base()
			if tt.mutate != nil {
				tt.mutate(doc)
			}
			err := ValidateDocument(doc)
			if !tt.wantErr {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			var verr *ValidationError
			require.ErrorAs(t, err, &verr)
			assert.NotEmpty(t, verr.Violations)
		})
	}
}

func TestValidateDocument_Nil(t *testing.T) {
	assert.Error(t, ValidateDocument(nil))
}

func TestValidateDocumentFile(t *testing.T) {
	dir := t.TempDir()

	data, err := json.MarshalIndent(completedDocument(), "", "  ")
	require.NoError(t, err)
	good := filepath.Join(dir, "good.json")
	require.NoError(t, os.WriteFile(good, data, 0o644))
	assert.NoError(t, ValidateDocumentFile(good))

	bad := filepath.Join(dir, "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte(`{"status": "completed"}`), 0o644))
	assert.Error(t, ValidateDocumentFile(bad))

	malformed := filepath.Join(dir, "malformed.json")
	require.NoError(t, os.WriteFile(malformed, []byte("{ invalid json }"), 0o644))
	assert.Error(t, ValidateDocumentFile(malformed))

	err = ValidateDocumentFile(filepath.Join(dir, "missing.json"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestValidateDocument_ReportsFields(t *testing.T) {
	doc := completedDocument()
	doc.Status = "running"
	doc.TotalCost = -1

	err := ValidateDocument(doc)
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Fields(), "status")
	assert.Contains(t, verr.Fields(), "total_cost")
	assert.Contains(t, err.Error(), "status: ")
}

func TestValidationError_Error(t *testing.T) {
	err := &ValidationError{Violations: []Violation{
		{Field: "status", Rule: "enum", Msg: "must be one of the following"},
		{Field: "(root)", Rule: "required", Msg: "error is required"},
		{Field: "status", Rule: "type", Msg: "wrong type"},
	}}
	assert.Equal(t, "document invalid (3): status: must be one of the following; (root): error is required; status: wrong type", err.Error())
	assert.Equal(t, []string{"status", "(root)"}, err.Fields())
}
