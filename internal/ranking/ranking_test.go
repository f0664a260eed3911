package ranking

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/recruiter-agent/internal/types"
)

func jobs(titles ...string) []types.JobPosting {
	out := make([]types.JobPosting, 0, len(titles))
	for _, title := range titles {
		out = append(out, types.JobPosting{Title: title})
	}
	return out
}

func TestSimilarity(t *testing.T) {
	assert.Equal(t, 1.0, Similarity("Product Manager", " product manager "))
	assert.InDelta(t, 0.75, Similarity("abcd", "bcde"), 1e-9)
	assert.GreaterOrEqual(t, Similarity("Product Manager", "Product Managers"), DefaultRoleSimilarity)
	assert.Less(t, Similarity("Product Manager", "Data Engineer"), DefaultRoleSimilarity)
	assert.Equal(t, 1.0, Similarity("", ""))
}

func TestCountDistinctRoles(t *testing.T) {
	titles := []string{"Product Manager", "Product Managers", "Designer", "", "UX Designer", "product manager"}
	assert.Equal(t, 3, CountDistinctRoles(titles, DefaultRoleSimilarity))
	assert.Equal(t, 0, CountDistinctRoles(nil, DefaultRoleSimilarity))
	assert.Equal(t, 1, CountDistinctRoles(titles, 0.1))
}

func TestPrioritize_Order(t *testing.T) {
	companies := []types.Company{
		{Name: "one-role-high-fit", Jobs: jobs("Engineer"), FitScore: 0.9},
		{Name: "two-roles-low-fit", Jobs: jobs("Engineer", "Designer"), FitScore: 0.2},
		{Name: "two-roles-high-fit", Jobs: jobs("Engineer", "Product Manager"), FitScore: 0.8},
		{Name: "dup-roles", Jobs: jobs("Engineer", "Engineers"), FitScore: 0.95},
		{Name: "tie-a", Jobs: jobs("Analyst"), FitScore: 0.5},
		{Name: "tie-b", Jobs: jobs("Analyst"), FitScore: 0.5},
	}

	ranked := Prioritizer{}.Prioritize(companies)
	require.Len(t, ranked.Companies, 6)
	assert.Equal(t, 6, ranked.Total)

	var names []string
	for i, c := range ranked.Companies {
		names = append(names, c.Name)
		assert.Equal(t, i+1, c.Rank)
	}
	assert.Equal(t, []string{
		"two-roles-high-fit",
		"two-roles-low-fit",
		"dup-roles",
		"one-role-high-fit",
		"tie-a",
		"tie-b",
	}, names)
	assert.Equal(t, 1, ranked.Companies[2].DistinctRoles)

	// Input untouched
	assert.Zero(t, companies[0].Rank)
	assert.Zero(t, companies[0].DistinctRoles)
}

func TestPrioritize_Top(t *testing.T) {
	companies := []types.Company{
		{Name: "a", Jobs: jobs("A1")},
		{Name: "b", Jobs: jobs("B1", "Other")},
		{Name: "c", Jobs: jobs("C1")},
	}

	ranked := Prioritizer{Top: 2}.Prioritize(companies)
	require.Len(t, ranked.Companies, 2)
	assert.Equal(t, 3, ranked.Total)
	assert.Equal(t, "b", ranked.Companies[0].Name)
	assert.Equal(t, "a", ranked.Companies[1].Name)
}

func TestPrioritize_Empty(t *testing.T) {
	ranked := Prioritizer{Top: 4}.Prioritize(nil)
	assert.Empty(t, ranked.Companies)
	assert.Zero(t, ranked.Total)
}

func TestGroupByCompany(t *testing.T) {
	grouped := GroupByCompany([]types.JobPosting{
		{Title: "PM", CompanyName: "Acme"},
		{Title: "Dev", CompanyName: "Beta", CompanyWebsite: "https://beta.io", EmployeeCount: 30},
		{Title: "Designer", CompanyName: "acme ", CompanyWebsite: "https://acme.io", CompanyIndustry: "Agency", EmployeeCount: 12},
		{Title: "Orphan"},
	})

	require.Len(t, grouped, 2)
	assert.Equal(t, "Acme", grouped[0].Name)
	assert.Len(t, grouped[0].Jobs, 2)
	assert.Equal(t, "https://acme.io", grouped[0].Website)
	assert.Equal(t, "Agency", grouped[0].Industry)
	assert.Equal(t, 12, grouped[0].EmployeeCount)
	assert.Equal(t, "Beta", grouped[1].Name)
	assert.Equal(t, 30, grouped[1].EmployeeCount)
}

func TestHeuristicFit(t *testing.T) {
	icp := &types.ICPProfile{
		Industries:  []string{"Digital Agencies"},
		RolesFilled: []string{"Product Manager"},
	}

	full := types.Company{
		Industry:      "Digital agency",
		EmployeeCount: 40,
		Jobs:          jobs("Senior Product Manager", "Receptionist"),
	}
	assert.InDelta(t, 0.4+0.2+0.2, HeuristicFit(full, icp), 1e-9)

	none := types.Company{Industry: "Banking", EmployeeCount: 5000, Jobs: jobs("Teller")}
	assert.InDelta(t, 0.0, HeuristicFit(none, icp), 1e-9)

	assert.Zero(t, HeuristicFit(full, nil))
}
