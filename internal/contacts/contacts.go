// Package contacts picks the decision-maker role to target at a hiring company
// and looks that person up on LinkedIn through a search engine.
package contacts

import (
	"context"
	"fmt"
	"strings"

	"github.com/jonathan/recruiter-agent/internal/discovery"
	"github.com/jonathan/recruiter-agent/internal/types"
)

var seniorKeywords = []string{"senior", "principal", "lead", "architect", "director", "vp", "head"}

// Target is the role to look for, with fallbacks in priority order.
type Target struct {
	Role         string
	Alternatives []string
}

// Roles returns the primary role followed by its alternatives.
func (t Target) Roles() []string {
	return append([]string{t.Role}, t.Alternatives...)
}

// TargetRole decides who to contact given company size and the titles being hired.
// Unknown size (zero) is treated as a 50-100 person company.
func TargetRole(companySize int, jobTitles []string) Target {
	senior := false
	for _, title := range jobTitles {
		if containsAny(strings.ToLower(title), seniorKeywords) {
			senior = true
			break
		}
	}
	area := roleArea(jobTitles)

	switch {
	case companySize > 0 && companySize < 20:
		return Target{Role: "CEO", Alternatives: []string{"Founder", "Co-Founder"}}
	case companySize > 0 && companySize < 50:
		if senior {
			return Target{Role: "CTO", Alternatives: []string{"VP Engineering", "Head of Engineering"}}
		}
		return Target{Role: "Engineering Manager", Alternatives: []string{"Head of IT", "IT Manager"}}
	case senior:
		return Target{Role: "VP " + area, Alternatives: []string{"Director of " + area, "Head of " + area}}
	default:
		return Target{Role: area + " Manager", Alternatives: []string{"Head of " + area, area + " Lead"}}
	}
}

func roleArea(titles []string) string {
	for _, title := range titles {
		lower := strings.ToLower(title)
		switch {
		case strings.Contains(lower, "security") || strings.Contains(lower, "cyber"):
			return "Security"
		case strings.Contains(lower, "engineer") || strings.Contains(lower, "developer"):
			return "Engineering"
		case strings.Contains(lower, "product"):
			return "Product"
		case strings.Contains(lower, "design"):
			return "Design"
		case strings.Contains(lower, "marketing"):
			return "Marketing"
		case strings.Contains(lower, "sales") || strings.Contains(lower, "account"):
			return "Sales"
		}
	}
	return "Technology"
}

// Finder looks decision-makers up through a search engine.
type Finder struct {
	engine  discovery.Engine
	perRole int
}

// NewFinder creates a Finder that inspects up to perRole hits per role.
func NewFinder(engine discovery.Engine, perRole int) *Finder {
	if perRole <= 0 {
		perRole = 5
	}
	return &Finder{engine: engine, perRole: perRole}
}

// Lookup is the outcome of a decision-maker search.
type Lookup struct {
	Contact *types.Contact
	// Searches is the number of engine calls made, for the cost ledger.
	Searches int
}

// Find walks the target roles in order and returns the first valid profile.
// A nil Contact with a nil error means nobody was found. An error is returned
// only when every search failed.
func (f *Finder) Find(ctx context.Context, companyName string, target Target) (Lookup, error) {
	var lookup Lookup
	var lastErr error
	failures := 0

	for _, role := range target.Roles() {
		if err := ctx.Err(); err != nil {
			return lookup, err
		}
		query := fmt.Sprintf(`"%s" "%s" site:linkedin.com/in`, companyName, role)
		hits, err := f.engine.Search(ctx, query, f.perRole)
		lookup.Searches++
		if err != nil {
			lastErr = err
			failures++
			continue
		}
		for _, hit := range hits {
			name := NameFromTitle(hit.Title)
			if IsPersonalProfile(hit.URL) && name != "" && !strings.Contains(strings.ToLower(name), strings.ToLower(companyName)) {
				lookup.Contact = &types.Contact{Name: name, Title: role, LinkedInURL: hit.URL}
				return lookup, nil
			}
		}
	}

	if failures == lookup.Searches && lastErr != nil {
		return lookup, fmt.Errorf("decision maker search for %s: %w", companyName, lastErr)
	}
	return lookup, nil
}

// NameFromTitle takes the person's name from a profile title such as
// "Jane Doe - CTO - Acme | LinkedIn".
func NameFromTitle(title string) string {
	name, _, _ := strings.Cut(title, " - ")
	name, _, _ = strings.Cut(name, "|")
	return strings.TrimSpace(name)
}

// IsPersonalProfile reports whether u is a linkedin.com/in profile rather than a
// company page or post. Country subdomains are accepted.
func IsPersonalProfile(u string) bool {
	lower := strings.ToLower(u)
	if !strings.Contains(lower, "linkedin.com/in/") {
		return false
	}
	return !strings.Contains(lower, "/posts/") && !strings.Contains(lower, "/company/")
}

func containsAny(s string, words []string) bool {
	for _, w := range words {
		if strings.Contains(s, w) {
			return true
		}
	}
	return false
}
