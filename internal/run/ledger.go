package run

import "github.com/jonathan/recruiter-agent/internal/types"

// RecordCost appends one ledger entry stamped with the current phase.
// Call sites record once per external call they made.
func (r *Run) RecordCost(service string, units int, unitCost float64) {
	if r.status.Terminal() || units <= 0 {
		return
	}
	r.ledger = append(r.ledger, types.CostEntry{
		Service:  service,
		Units:    units,
		UnitCost: unitCost,
		Stage:    r.phase,
	})
}

// Costs returns a copy of the ledger.
func (r *Run) Costs() []types.CostEntry {
	out := make([]types.CostEntry, len(r.ledger))
	copy(out, r.ledger)
	return out
}

// TotalCost sums the ledger.
func (r *Run) TotalCost() float64 {
	var total float64
	for _, e := range r.ledger {
		total += e.Total()
	}
	return total
}

// CostByStage sums the ledger per stage.
func (r *Run) CostByStage() map[string]float64 {
	out := make(map[string]float64)
	for _, e := range r.ledger {
		out[e.Stage] += e.Total()
	}
	return out
}
