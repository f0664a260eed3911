package types

// Company groups the qualifying jobs of one hiring company.
type Company struct {
	Name          string       `json:"company_name"`
	Website       string       `json:"company_website,omitempty"`
	Description   string       `json:"company_description,omitempty"`
	Industry      string       `json:"company_industry,omitempty"`
	LinkedIn      string       `json:"company_linkedin,omitempty"`
	EmployeeCount int          `json:"employee_count,omitempty"`
	Jobs          []JobPosting `json:"jobs"`

	// Filled during validation and prioritization.
	FitScore      float64 `json:"icp_fit_score"`
	FitReason     string  `json:"icp_fit_reason,omitempty"`
	DistinctRoles int     `json:"unique_roles_count"`
	Rank          int     `json:"rank,omitempty"`
}

// ValidatedCompanies is the artifact of the validation step.
type ValidatedCompanies struct {
	Companies  []Company         `json:"companies"`
	Considered int               `json:"considered"`
	Rejected   map[string]string `json:"rejected,omitempty"`
}

// RankedCompanies is the artifact of the prioritization step.
type RankedCompanies struct {
	Companies []Company `json:"companies"`
	Total     int       `json:"total"`
}

// Contact is a decision-maker found for a company.
type Contact struct {
	Name        string `json:"name"`
	Title       string `json:"title"`
	LinkedInURL string `json:"linkedin_url,omitempty"`
}

// Enrichment is the per-company intelligence gathered by the enrichment step.
type Enrichment struct {
	BusinessDescription string   `json:"business_description,omitempty"`
	InsiderDetails      []string `json:"insider_details,omitempty"`
	DecisionMaker       *Contact `json:"decision_maker,omitempty"`
	// Degraded is set when one or more sub-calls for this company failed.
	Degraded bool     `json:"degraded"`
	Issues   []string `json:"issues,omitempty"`
}

// EnrichedCompany pairs a ranked company with its enrichment.
type EnrichedCompany struct {
	Company
	Enrichment Enrichment `json:"enrichment"`
}

// EnrichedCompanies is the artifact of the enrichment step.
type EnrichedCompanies struct {
	Companies []EnrichedCompany `json:"companies"`
	Degraded  int               `json:"degraded"`
}
