package llm

import (
	"fmt"
	"strings"
)

// Schema describes a JSON object the model must return for one stage.
type Schema struct {
	Name string
	// Task is the instruction block placed before the output shape.
	Task   string
	Fields []Field
}

// Field is one key of a Schema. Example is a JSON literal showing the type.
type Field struct {
	Key      string
	Example  string
	Hint     string
	Required bool
}

// Prompt wraps input with the task, the expected output shape and the output rules.
func (s Schema) Prompt(input string) string {
	var b strings.Builder
	b.WriteString(strings.TrimSpace(s.Task))
	b.WriteString("\n\nRespond with a single JSON object shaped like this:\n{\n")
	for i, f := range s.Fields {
		example := f.Example
		if example == "" {
			example = `"string"`
		}
		fmt.Fprintf(&b, "  %q: %s", f.Key, example)
		if i < len(s.Fields)-1 {
			b.WriteByte(',')
		}
		var notes []string
		if f.Required {
			notes = append(notes, "required")
		}
		if f.Hint != "" {
			notes = append(notes, f.Hint)
		}
		if len(notes) > 0 {
			fmt.Fprintf(&b, " // %s", strings.Join(notes, "; "))
		}
		b.WriteByte('\n')
	}
	b.WriteString("}\n\nRules:\n")
	b.WriteString("- Use only facts present in the input; never invent names, numbers or links.\n")
	b.WriteString("- Output the JSON object alone: no prose, no markdown fences.\n\n")
	b.WriteString("Input:\n<<<\n")
	b.WriteString(input)
	b.WriteString("\n>>>\n")
	return b.String()
}

// Keys returns the field keys in order.
func (s Schema) Keys() []string {
	keys := make([]string, len(s.Fields))
	for i, f := range s.Fields {
		keys[i] = f.Key
	}
	return keys
}

// ICPSchema extracts the recruiter's ideal customer profile from website text.
func ICPSchema() Schema {
	return Schema{
		Name: "RecruiterICP",
		Task: `You are an expert at analyzing recruiter websites to extract their Ideal Client Profile (ICP) and the specific roles they fill.
"Industries" are the TYPE OF COMPANIES the recruiter's clients are (e.g. "Digital Agencies", "Early-stage SaaS"), never a vague sector like "Technology".
"Roles" are the JOB TITLES they fill, as precise as the text allows (e.g. "Network Engineer", not "Engineer").
The primary location is where the recruiter is based. Use addresses, currency symbols and domain extensions as evidence.`,
		Fields: []Field{
			{Key: "recruiter_summary", Hint: "one sentence on what the recruiter does", Required: true},
			{Key: "industries", Example: `["string"]`, Hint: "company types the recruiter's clients are", Required: true},
			{Key: "roles_filled", Example: `["string"]`, Hint: "job titles the recruiter fills", Required: true},
			{Key: "seniority", Example: `["string"]`, Hint: "junior, mid, senior or executive"},
			{Key: "locations", Example: `["string"]`, Hint: "geographies served, primary location first"},
			{Key: "company_size_min", Example: "0", Hint: "smallest client headcount mentioned, 0 if unknown"},
			{Key: "company_size_max", Example: "0", Hint: "largest client headcount mentioned, 0 if unknown"},
		},
	}
}

// SearchPlanSchema turns an ICP into search terms for the job sources.
func SearchPlanSchema() Schema {
	return Schema{
		Name: "SearchPlan",
		Task: `You are a LinkedIn Boolean search expert. Create a STRICT Boolean search that finds roles AT THE RIGHT TYPE OF COMPANIES.
Format: (role search) AND (company type search). Quote each role, OR between role variations, AND between the role group and the company-type group.
Good: ("Product Manager" OR "Senior Product Manager") AND ("digital agency" OR "creative agency")
Bad: ("Engineer")`,
		Fields: []Field{
			{Key: "boolean_query", Hint: "the Boolean search string", Required: true},
			{Key: "keywords", Example: `["string"]`, Hint: "role keywords used in the search", Required: true},
			{Key: "location", Hint: "primary country or city to search in"},
			{Key: "discovery_query", Hint: "natural-language query such as 'digital agencies hiring product managers' for finding career pages", Required: true},
		},
	}
}

// CompanyFitSchema scores how well a hiring company matches the recruiter's ICP.
func CompanyFitSchema() Schema {
	return Schema{
		Name: "CompanyFit",
		Task: `You are an ICP matching expert. Determine if a company is a good fit for the recruiter's target profile.
Industry match is MANDATORY: the company type must match the recruiter's target industries, even when the roles match.
A company that hires on behalf of others (staffing, recruiting, "our client") is never a fit.
Scoring: all criteria match >= 0.8, some match 0.5-0.7, industry mismatch < 0.3.`,
		Fields: []Field{
			{Key: "is_good_fit", Example: "true", Hint: "whether the company should be kept", Required: true},
			{Key: "is_direct_hirer", Example: "true", Hint: "false for recruiters and staffing agencies", Required: true},
			{Key: "match_score", Example: "0.0", Hint: "between 0 and 1", Required: true},
			{Key: "reason", Hint: "brief explanation focused on company type", Required: true},
		},
	}
}

// CompanyInsightSchema extracts outreach-ready facts from a company's website.
func CompanyInsightSchema() Schema {
	return Schema{
		Name: "CompanyInsight",
		Task: `You are researching a company so a recruiter can open a conversation with them.
Extract what the business actually does and a few concrete, verifiable details (funding, launches, clients, growth, team changes).`,
		Fields: []Field{
			{Key: "business_description", Hint: "one or two factual sentences on what the company does", Required: true},
			{Key: "insider_details", Example: `["string"]`, Hint: "up to three specific facts from the text"},
		},
	}
}

// OutreachSchema drafts the numbered company section of the outreach email.
func OutreachSchema() Schema {
	return Schema{
		Name: "OutreachEmail",
		Task: `You are writing to a recruiter about companies actively hiring. Present each company and role clearly and factually.
One numbered entry per company: "N. Company - Role", then one or two lines on what they do, one or two lines on the role, then "Website: <url>" and "Job: <url>".
Use only the companies and links given. No marketing speak, no signature.`,
		Fields: []Field{
			{Key: "subject", Hint: "short subject line naming the opportunity", Required: true},
			{Key: "companies_section", Hint: "the numbered companies section as plain text", Required: true},
		},
	}
}
