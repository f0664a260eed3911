package fetch

import (
	"net/url"
	"strings"
)

// Host returns the lowercased host of urlStr without a leading "www.".
func Host(urlStr string) string {
	u, err := url.Parse(urlStr)
	if err != nil {
		return ""
	}
	return strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")
}

// SiteRoot returns scheme://host for urlStr. URLs without a host yield "".
func SiteRoot(urlStr string) string {
	u, err := url.Parse(urlStr)
	if err != nil || u.Host == "" {
		return ""
	}
	scheme := u.Scheme
	if scheme == "" {
		scheme = "https"
	}
	return scheme + "://" + strings.ToLower(u.Host)
}

// boardHosts never identify the hiring company: aggregators, ATS hosts and big-tech career portals.
var boardHosts = []string{
	"linkedin", "indeed", "glassdoor", "monster", "ziprecruiter",
	"greenhouse.io", "lever.co", "workday", "icims", "taleo", "jobvite",
	"careers.google", "jobs.apple", "careers.microsoft", "careers.amazon", "jobs.netflix",
}

// IsJobBoard reports whether urlStr belongs to a job board rather than a company site.
func IsJobBoard(urlStr string) bool {
	host := Host(urlStr)
	if host == "" {
		return false
	}
	for _, b := range boardHosts {
		if strings.Contains(host, b) {
			return true
		}
	}
	return false
}

var careerTerms = []string{"career", "jobs", "hiring", "opportunities", "join", "team"}

// LooksLikeCareerPage reports whether a page advertises open roles. A career
// term in the URL is enough; in the text it takes two different terms.
func LooksLikeCareerPage(urlStr, text string) bool {
	u := strings.ToLower(urlStr)
	for _, term := range careerTerms {
		if strings.Contains(u, term) {
			return true
		}
	}

	body := strings.ToLower(text)
	seen := 0
	for _, term := range careerTerms {
		if strings.Contains(body, term) {
			seen++
		}
	}
	return seen >= 2
}
