package ranking

import (
	"strings"

	"github.com/jonathan/recruiter-agent/internal/types"
)

// GroupByCompany collects jobs per company, matching names case-insensitively.
// Company details come from the first job that carries them; companies keep
// the order in which they first appear.
func GroupByCompany(jobs []types.JobPosting) []types.Company {
	index := make(map[string]int)
	var companies []types.Company
	for _, job := range jobs {
		key := strings.ToLower(strings.TrimSpace(job.CompanyName))
		if key == "" {
			continue
		}
		i, ok := index[key]
		if !ok {
			i = len(companies)
			index[key] = i
			companies = append(companies, types.Company{Name: strings.TrimSpace(job.CompanyName)})
		}
		c := &companies[i]
		c.Jobs = append(c.Jobs, job)
		fillBlank(&c.Website, job.CompanyWebsite)
		fillBlank(&c.Description, job.CompanyDescription)
		fillBlank(&c.Industry, job.CompanyIndustry)
		fillBlank(&c.LinkedIn, job.CompanyLinkedIn)
		if c.EmployeeCount == 0 {
			c.EmployeeCount = job.EmployeeCount
		}
	}
	return companies
}

func fillBlank(dst *string, v string) {
	if *dst == "" {
		*dst = v
	}
}
