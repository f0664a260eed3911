package jobsource

import (
	"encoding/json"
	"regexp"
	"strconv"
	"strings"

	"github.com/jonathan/recruiter-agent/internal/types"
)

// recruiterKeywords mark a company as an agency rather than a direct hirer.
var recruiterKeywords = []string{
	"staffing", "recruiting", "recruitment", "talent", "personnel",
	"workforce", "employment", "headhunter", "placement",
}

// IsObviousRecruiter reports whether a company is plainly a recruiter or
// staffing agency from its name or industry alone.
func IsObviousRecruiter(companyName, industry string) bool {
	name := strings.ToLower(companyName)
	for _, keyword := range recruiterKeywords {
		if strings.Contains(name, keyword) {
			return true
		}
	}
	industry = strings.ToLower(industry)
	return strings.Contains(industry, "staffing") || strings.Contains(industry, "recruiting")
}

// Filter decides which raw postings qualify.
type Filter struct {
	// MaxCompanySize drops companies with more employees; zero disables the cap.
	// Postings with unknown headcount are kept.
	MaxCompanySize int
}

// Qualify deduplicates postings and drops agencies and oversized companies.
// Order is preserved.
func (f Filter) Qualify(jobs []types.JobPosting) []types.JobPosting {
	seen := make(map[string]bool, len(jobs))
	kept := make([]types.JobPosting, 0, len(jobs))
	for _, job := range jobs {
		if job.CompanyName == "" || job.Title == "" {
			continue
		}
		key := dedupeKey(job)
		if seen[key] {
			continue
		}
		seen[key] = true

		if IsObviousRecruiter(job.CompanyName, job.CompanyIndustry) {
			continue
		}
		if f.MaxCompanySize > 0 && job.EmployeeCount > f.MaxCompanySize {
			continue
		}
		kept = append(kept, job)
	}
	return kept
}

func dedupeKey(job types.JobPosting) string {
	return strings.ToLower(strings.Join([]string{
		strings.TrimSpace(job.Title),
		strings.TrimSpace(job.CompanyName),
		strings.TrimSpace(job.Location),
	}, "\x00"))
}

var digits = regexp.MustCompile(`\d[\d,]*`)

// ParseEmployeeCount reads a headcount that may be a number or a range such as
// "11-50 employees". Ranges resolve to their upper bound; unknown is zero.
func ParseEmployeeCount(raw json.RawMessage) int {
	if len(raw) == 0 || string(raw) == "null" {
		return 0
	}

	var n float64
	if err := json.Unmarshal(raw, &n); err == nil {
		return int(n)
	}

	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return 0
	}
	highest := 0
	for _, match := range digits.FindAllString(s, -1) {
		v, err := strconv.Atoi(strings.ReplaceAll(match, ",", ""))
		if err == nil && v > highest {
			highest = v
		}
	}
	return highest
}
