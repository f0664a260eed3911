package types

// OutreachMessage is the generated outreach email.
type OutreachMessage struct {
	Subject string `json:"subject"`
	From    string `json:"from,omitempty"`
	To      string `json:"to"`
	Body    string `json:"body"`
}
