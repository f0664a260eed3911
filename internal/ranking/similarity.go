package ranking

import (
	"strings"

	"github.com/pmezard/go-difflib/difflib"
)

// Similarity returns the case-insensitive character similarity of a and b in
// [0,1], as twice the matched characters over the total length.
func Similarity(a, b string) float64 {
	a, b = strings.ToLower(strings.TrimSpace(a)), strings.ToLower(strings.TrimSpace(b))
	if a == b {
		return 1
	}
	return difflib.NewMatcher(chars(a), chars(b)).Ratio()
}

// CountDistinctRoles counts titles, treating a title whose similarity to an
// earlier distinct title is at least threshold as a duplicate.
func CountDistinctRoles(titles []string, threshold float64) int {
	var distinct []string
	for _, title := range titles {
		title = strings.TrimSpace(title)
		if title == "" {
			continue
		}
		duplicate := false
		for _, seen := range distinct {
			if Similarity(title, seen) >= threshold {
				duplicate = true
				break
			}
		}
		if !duplicate {
			distinct = append(distinct, title)
		}
	}
	return len(distinct)
}

func chars(s string) []string {
	out := make([]string, 0, len(s))
	for _, r := range s {
		out = append(out, string(r))
	}
	return out
}
