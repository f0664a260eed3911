package types

// JobPosting is one open role attributed to a hiring company.
type JobPosting struct {
	Title              string `json:"title"`
	URL                string `json:"url,omitempty"`
	Description        string `json:"description,omitempty"`
	PostedAt           string `json:"posted_at,omitempty"`
	Location           string `json:"location,omitempty"`
	CompanyName        string `json:"company_name"`
	CompanyWebsite     string `json:"company_website,omitempty"`
	CompanyDescription string `json:"company_description,omitempty"`
	CompanyIndustry    string `json:"company_industry,omitempty"`
	CompanyLinkedIn    string `json:"company_linkedin,omitempty"`
	EmployeeCount      int    `json:"employee_count,omitempty"`
}

// JobSet is the artifact produced by the job-sourcing step.
type JobSet struct {
	// Source names the collaborator that produced the jobs ("linkedin", "exa", "google").
	Source     string       `json:"source"`
	Jobs       []JobPosting `json:"jobs"`
	RawCount   int          `json:"raw_count"`
	Qualifying int          `json:"qualifying"`
}
