// Package ranking groups qualifying jobs by company and orders companies for outreach.
package ranking

import (
	"sort"

	"github.com/jonathan/recruiter-agent/internal/types"
)

// DefaultRoleSimilarity is the title similarity at or above which two titles
// count as the same role.
const DefaultRoleSimilarity = 0.85

// Prioritizer orders validated companies.
type Prioritizer struct {
	// RoleSimilarity is the duplicate-title threshold in [0,1].
	RoleSimilarity float64
	// Top keeps only the first Top companies; zero keeps all.
	Top int
}

// Prioritize ranks companies by distinct open roles, then fit score, then input
// order. DistinctRoles and Rank are filled on the returned copies; the input is
// not modified.
func (p Prioritizer) Prioritize(companies []types.Company) *types.RankedCompanies {
	threshold := p.RoleSimilarity
	if threshold <= 0 {
		threshold = DefaultRoleSimilarity
	}

	ranked := make([]types.Company, len(companies))
	copy(ranked, companies)
	for i := range ranked {
		ranked[i].DistinctRoles = CountDistinctRoles(jobTitles(ranked[i].Jobs), threshold)
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].DistinctRoles != ranked[j].DistinctRoles {
			return ranked[i].DistinctRoles > ranked[j].DistinctRoles
		}
		return ranked[i].FitScore > ranked[j].FitScore
	})

	total := len(ranked)
	if p.Top > 0 && len(ranked) > p.Top {
		ranked = ranked[:p.Top]
	}
	for i := range ranked {
		ranked[i].Rank = i + 1
	}

	return &types.RankedCompanies{Companies: ranked, Total: total}
}

func jobTitles(jobs []types.JobPosting) []string {
	titles := make([]string, 0, len(jobs))
	for _, job := range jobs {
		titles = append(titles, job.Title)
	}
	return titles
}
