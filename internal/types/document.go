package types

import "time"

// CostEntry is one line of the cost ledger.
type CostEntry struct {
	Service  string  `json:"service"`
	Units    int     `json:"units"`
	UnitCost float64 `json:"unit_cost"`
	Stage    string  `json:"stage"`
}

// Total returns the cost of the entry.
func (c CostEntry) Total() float64 {
	return float64(c.Units) * c.UnitCost
}

// RunError describes why a run failed.
type RunError struct {
	Reason    string `json:"reason"`
	LastStage string `json:"last_stage"`
	Message   string `json:"message,omitempty"`
}

// Document is the terminal result of a run. Completed and failed runs share this shape.
type Document struct {
	RunID             string            `json:"run_id"`
	Status            string            `json:"status"`
	PhaseReached      string            `json:"phase_reached"`
	DataSource        string            `json:"data_source"`
	CostBreakdown     []CostEntry       `json:"cost_breakdown"`
	TotalCost         float64           `json:"total_cost"`
	InputEcho         ProcessRequest    `json:"input_echo"`
	ICPProfile        *ICPProfile       `json:"icp_profile,omitempty"`
	Stats             map[string]int    `json:"stats"`
	SelectedCompanies []EnrichedCompany `json:"selected_companies,omitempty"`
	GeneratedMessage  *OutreachMessage  `json:"generated_message,omitempty"`
	Error             *RunError         `json:"error,omitempty"`
	StartedAt         time.Time         `json:"started_at"`
	FinishedAt        time.Time         `json:"finished_at"`
	RuntimeSeconds    float64           `json:"runtime_seconds"`
}

// Succeeded reports whether the run completed.
func (d *Document) Succeeded() bool {
	return d.Status == "completed"
}
