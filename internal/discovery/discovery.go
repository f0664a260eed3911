// Package discovery finds hiring companies through web search when the LinkedIn
// source comes up short, and backs decision-maker lookups.
package discovery

import (
	"context"
	"strings"
	"unicode"

	"github.com/jonathan/recruiter-agent/internal/fetch"
	"github.com/jonathan/recruiter-agent/internal/types"
)

// Hit is one web search result.
type Hit struct {
	Title string
	URL   string
	Text  string
}

// Engine is a web search backend. Implementations are safe for concurrent use.
type Engine interface {
	// Name is the ledger service name for the engine.
	Name() string
	Search(ctx context.Context, query string, limit int) ([]Hit, error)
}

const descriptionLimit = 500

// Companies turns search hits into one posting per hiring company. Job boards
// and pages that are not about open roles are dropped, and companies are
// deduplicated by domain.
func Companies(hits []Hit) []types.JobPosting {
	seen := make(map[string]bool, len(hits))
	postings := make([]types.JobPosting, 0, len(hits))
	for _, hit := range hits {
		if hit.URL == "" || fetch.IsJobBoard(hit.URL) {
			continue
		}
		if !fetch.LooksLikeCareerPage(hit.URL, hit.Text) {
			continue
		}
		domain := fetch.Host(hit.URL)
		if domain == "" || seen[domain] {
			continue
		}
		seen[domain] = true

		title := strings.TrimSpace(hit.Title)
		if title == "" {
			title = "Open roles"
		}
		postings = append(postings, types.JobPosting{
			Title:              title,
			URL:                hit.URL,
			Description:        truncate(hit.Text, descriptionLimit),
			CompanyName:        CompanyName(domain),
			CompanyWebsite:     fetch.SiteRoot(hit.URL),
			CompanyDescription: truncate(hit.Text, descriptionLimit),
		})
	}
	return postings
}

// CompanyName derives a display name from a domain: "careers.acme-labs.io"
// becomes "Acme Labs".
func CompanyName(domain string) string {
	domain = strings.TrimPrefix(strings.TrimPrefix(domain, "www."), "careers.")
	label, _, _ := strings.Cut(domain, ".")
	words := strings.FieldsFunc(label, func(r rune) bool { return r == '-' || r == '_' })
	for i, w := range words {
		runes := []rune(w)
		runes[0] = unicode.ToUpper(runes[0])
		words[i] = string(runes)
	}
	return strings.Join(words, " ")
}

// CompanyQuery builds a natural-language discovery query from the ICP when the
// search plan has none.
func CompanyQuery(plan types.SearchPlan, icp *types.ICPProfile) string {
	if q := strings.TrimSpace(plan.DiscoveryQuery); q != "" {
		return q
	}

	var parts []string
	if icp != nil && len(icp.Industries) > 0 {
		parts = append(parts, "company is a "+strings.ToLower(strings.Join(first(icp.Industries, 3), " or ")))
	}
	roles := plan.Keywords
	if icp != nil && len(icp.RolesFilled) > 0 {
		roles = icp.RolesFilled
	}
	if len(roles) > 0 {
		parts = append(parts, "hiring for "+strings.ToLower(strings.Join(first(roles, 3), " or ")))
	} else {
		parts = append(parts, "actively hiring")
	}
	parts = append(parts, "careers page", "company is not a recruitment or staffing firm")
	return strings.Join(parts, ", ")
}

func first(s []string, n int) []string {
	if len(s) > n {
		return s[:n]
	}
	return s
}

func truncate(s string, n int) string {
	s = strings.TrimSpace(s)
	if len(s) <= n {
		return s
	}
	return strings.TrimSpace(s[:n])
}
