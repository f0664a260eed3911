package types

// ICPProfile describes the recruiter's ideal customer profile as extracted from their website.
type ICPProfile struct {
	RecruiterSummary string   `json:"recruiter_summary"`
	Industries       []string `json:"industries"`
	RolesFilled      []string `json:"roles_filled"`
	Seniority        []string `json:"seniority,omitempty"`
	Locations        []string `json:"locations,omitempty"`
	CompanySizeMin   int      `json:"company_size_min,omitempty"`
	CompanySizeMax   int      `json:"company_size_max,omitempty"`
}

// SearchPlan is the search-term synthesis artifact consumed by the job sources.
type SearchPlan struct {
	BooleanQuery string   `json:"boolean_query"`
	Keywords     []string `json:"keywords"`
	Location     string   `json:"location,omitempty"`
	LinkedInURL  string   `json:"linkedin_url"`
	// DiscoveryQuery is the natural-language criteria handed to the discovery service.
	DiscoveryQuery string `json:"discovery_query"`
}
