package observability

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/jonathan/recruiter-agent/internal/types"
)

func TestPrintICP(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf)

	p.PrintICP(&types.ICPProfile{
		RecruiterSummary: "Boutique fintech recruiter",
		Industries:       []string{"Fintech", "Payments"},
		RolesFilled:      []string{"Backend Engineer"},
		CompanySizeMin:   10,
		CompanySizeMax:   100,
	})
	output := buf.String()

	assert.Contains(t, output, "RECRUITER ICP")
	assert.Contains(t, output, "Fintech")
	assert.Contains(t, output, "Backend Engineer")
	assert.Contains(t, output, "10-100")
}

func TestPrintICP_Nil(t *testing.T) {
	var buf bytes.Buffer
	NewPrinter(&buf).PrintICP(nil)
	assert.Empty(t, buf.String())
}

func TestPrintCompanies(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf)

	p.PrintCompanies([]types.EnrichedCompany{
		{
			Company:    types.Company{Name: "Acme", DistinctRoles: 3, FitScore: 0.9},
			Enrichment: types.Enrichment{DecisionMaker: &types.Contact{Name: "Ann Lee", Title: "CTO"}},
		},
		{
			Company:    types.Company{Name: "Globex", DistinctRoles: 1, FitScore: 0.5},
			Enrichment: types.Enrichment{Degraded: true},
		},
	})
	output := buf.String()

	assert.Contains(t, output, "#1  Acme")
	assert.Contains(t, output, "Ann Lee, CTO")
	assert.Contains(t, output, "#2  Globex")
	assert.Contains(t, output, "enrichment incomplete")
}

func TestPrintDocument_Failed(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf)

	p.PrintDocument(&types.Document{
		RunID:        "abc",
		Status:       "failed",
		PhaseReached: "validate_companies",
		DataSource:   "alternate",
		Error:        &types.RunError{Reason: "no_companies_survived_validation", LastStage: "discovery_jobs"},
		CostBreakdown: []types.CostEntry{
			{Service: "exa", Units: 21, UnitCost: 0.005, Stage: "discovery_jobs"},
			{Service: "apify", Units: 1, UnitCost: 0.05, Stage: "linkedin_jobs"},
		},
		TotalCost: 0.155,
	})
	output := buf.String()

	assert.Contains(t, output, "RUN SUMMARY")
	assert.Contains(t, output, "no_companies_survived_validation")
	assert.Contains(t, output, "COST BREAKDOWN")
	assert.Contains(t, output, "$0.1550")
	assert.NotContains(t, output, "SELECTED COMPANIES")
	// services are listed alphabetically
	assert.Less(t, strings.Index(output, "apify"), strings.Index(output, "exa"))
}

func TestPrintBox_TruncatesLongLines(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf)

	p.printBox("TITLE", strings.Repeat("x", 200))
	assert.Contains(t, buf.String(), "...")
	assert.NotContains(t, buf.String(), strings.Repeat("x", 100))
}
