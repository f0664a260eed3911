package jobsource

import (
	"net/url"
	"strings"

	"github.com/jonathan/recruiter-agent/internal/types"
)

// LinkedInJobsURL is the LinkedIn job search page.
const LinkedInJobsURL = "https://www.linkedin.com/jobs/search/"

const (
	postedPastDay = "r86400"
	fullTime      = "F"
	// maxKeywordsLength keeps the query inside what LinkedIn accepts.
	maxKeywordsLength = 500
)

// LinkedInURL builds a search URL for full-time roles posted in the last 24 hours.
func LinkedInURL(plan types.SearchPlan) string {
	keywords := strings.TrimSpace(plan.BooleanQuery)
	if keywords == "" {
		keywords = strings.Join(plan.Keywords, " OR ")
	}
	keywords = truncateBoolean(keywords, maxKeywordsLength)

	q := url.Values{}
	q.Set("f_JT", fullTime)
	q.Set("f_TPR", postedPastDay)
	q.Set("keywords", keywords)
	if plan.Location != "" {
		q.Set("location", plan.Location)
	}
	q.Set("sortBy", "R")
	return LinkedInJobsURL + "?" + q.Encode()
}

// truncateBoolean cuts a boolean query at a clause boundary and rebalances
// quotes and parentheses so the result still parses.
func truncateBoolean(query string, limit int) string {
	if len(query) <= limit {
		return query
	}
	cut := query[:limit]
	if i := strings.LastIndex(cut, " OR "); i > 0 {
		cut = cut[:i]
	}
	if strings.Count(cut, `"`)%2 == 1 {
		cut = cut[:strings.LastIndex(cut, `"`)]
	}
	cut = trimDangling(cut)
	if open := strings.Count(cut, "(") - strings.Count(cut, ")"); open > 0 {
		cut += strings.Repeat(")", open)
	}
	return cut
}

func trimDangling(s string) string {
	for {
		trimmed := strings.TrimSpace(s)
		for _, suffix := range []string{" OR", " AND", "("} {
			trimmed = strings.TrimSuffix(trimmed, suffix)
		}
		if trimmed == s {
			return s
		}
		s = trimmed
	}
}
