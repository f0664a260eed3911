// Package types provides type definitions for structured data used throughout the recruiter agent.
package types

// ProcessRequest is the inbound request that starts a pipeline run.
type ProcessRequest struct {
	RecruiterName    string `json:"recruiter_name" validate:"required,min=1"`
	RecruiterEmail   string `json:"recruiter_email" validate:"required,email"`
	RecruiterWebsite string `json:"recruiter_website" validate:"required,http_url"`

	// MaxItems bounds how many jobs the sourcing stages pull. Zero means "use the default".
	MaxItems       int    `json:"max_items,omitempty" validate:"omitempty,min=1"`
	DeliveryTarget string `json:"delivery_target,omitempty" validate:"omitempty,http_url"`

	// UseAlternateSourceOnly skips the primary job source and its gate.
	UseAlternateSourceOnly bool `json:"use_alternate_source_only,omitempty"`

	SenderName   string `json:"sender_name,omitempty"`
	SenderEmail  string `json:"sender_email,omitempty" validate:"omitempty,email"`
	EmailSubject string `json:"email_subject,omitempty"`
	Timezone     string `json:"timezone,omitempty"`
}
