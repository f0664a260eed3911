package ranking

import (
	"strings"

	"github.com/jonathan/recruiter-agent/internal/types"
)

// Heuristic weights
const (
	industryWeight = 0.4
	sizeWeight     = 0.2
	roleWeight     = 0.4

	defaultSizeMin = 10
	defaultSizeMax = 100

	roleMatchSimilarity = 0.7
)

// HeuristicFit scores a company against the ICP without a model. It is used
// when the model-based fit check is unavailable for a company.
func HeuristicFit(c types.Company, icp *types.ICPProfile) float64 {
	if icp == nil {
		return 0
	}
	score := 0.0

	companyText := strings.ToLower(c.Industry + " " + c.Description)
	for _, industry := range icp.Industries {
		if industryMatches(companyText, industry) {
			score += industryWeight
			break
		}
	}

	lo, hi := icp.CompanySizeMin, icp.CompanySizeMax
	if lo == 0 && hi == 0 {
		lo, hi = defaultSizeMin, defaultSizeMax
	}
	if c.EmployeeCount > 0 && c.EmployeeCount >= lo && (hi == 0 || c.EmployeeCount <= hi) {
		score += sizeWeight
	}

	if len(c.Jobs) > 0 && len(icp.RolesFilled) > 0 {
		matched := 0
		for _, job := range c.Jobs {
			if roleMatches(job.Title, icp.RolesFilled) {
				matched++
			}
		}
		score += roleWeight * float64(matched) / float64(len(c.Jobs))
	}

	if score > 1 {
		score = 1
	}
	return score
}

// industryMatches reports whether any significant word of industry appears in text.
func industryMatches(text, industry string) bool {
	for _, word := range strings.Fields(strings.ToLower(industry)) {
		word = strings.TrimSuffix(strings.Trim(word, ",./()"), "s")
		if len(word) < 4 {
			continue
		}
		if strings.Contains(text, word) {
			return true
		}
	}
	return false
}

func roleMatches(title string, roles []string) bool {
	lower := strings.ToLower(title)
	for _, role := range roles {
		if strings.Contains(lower, strings.ToLower(strings.TrimSpace(role))) || Similarity(title, role) >= roleMatchSimilarity {
			return true
		}
	}
	return false
}
