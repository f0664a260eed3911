// Package observability provides structured logging and formatted output for verbose CLI mode.
package observability

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/jonathan/recruiter-agent/internal/types"
)

const (
	// boxWidth is the default width for formatted output boxes
	boxWidth = 60
	// maxItemsToShow is the default number of items to display in lists
	maxItemsToShow = 5
)

// Printer handles formatted output for verbose mode
type Printer struct {
	out io.Writer
}

// NewPrinter creates a new Printer that writes to the given writer
func NewPrinter(out io.Writer) *Printer {
	return &Printer{out: out}
}

// printBox prints a formatted box with a title and content
//
//nolint:errcheck // writing to stdout; errors are not recoverable
func (p *Printer) printBox(title string, content string) {
	border := strings.Repeat("─", boxWidth-2)
	fmt.Fprintf(p.out, "┌%s┐\n", border)
	fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, title)
	fmt.Fprintf(p.out, "├%s┤\n", border)

	for _, line := range strings.Split(content, "\n") {
		if len(line) > boxWidth-4 {
			line = line[:boxWidth-7] + "..."
		}
		fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, line)
	}

	fmt.Fprintf(p.out, "└%s┘\n", border)
}

// listLines writes up to limit items as bullets, with an overflow line.
func listLines(sb *strings.Builder, items []string, limit int) {
	count := min(len(items), limit)
	for i := 0; i < count; i++ {
		sb.WriteString(fmt.Sprintf("  • %s\n", items[i]))
	}
	if len(items) > limit {
		sb.WriteString(fmt.Sprintf("  ... and %d more\n", len(items)-limit))
	}
}

// PrintICP outputs a summary of the extracted ideal customer profile.
func (p *Printer) PrintICP(profile *types.ICPProfile) {
	if profile == nil {
		return
	}

	var sb strings.Builder
	if profile.RecruiterSummary != "" {
		sb.WriteString(profile.RecruiterSummary + "\n\n")
	}
	if len(profile.Industries) > 0 {
		sb.WriteString("Industries:\n")
		listLines(&sb, profile.Industries, maxItemsToShow)
	}
	if len(profile.RolesFilled) > 0 {
		sb.WriteString("Roles:\n")
		listLines(&sb, profile.RolesFilled, maxItemsToShow)
	}
	if profile.CompanySizeMax > 0 {
		sb.WriteString(fmt.Sprintf("Company size: %d-%d\n", profile.CompanySizeMin, profile.CompanySizeMax))
	}

	p.printBox("RECRUITER ICP", strings.TrimSuffix(sb.String(), "\n"))
}

// PrintCompanies outputs the selected companies in rank order.
func (p *Printer) PrintCompanies(companies []types.EnrichedCompany) {
	if len(companies) == 0 {
		return
	}

	var sb strings.Builder
	for i, c := range companies {
		sb.WriteString(fmt.Sprintf("#%d  %s\n", i+1, c.Name))
		sb.WriteString(fmt.Sprintf("    Roles: %d  Fit: %.2f\n", c.DistinctRoles, c.FitScore))
		if dm := c.Enrichment.DecisionMaker; dm != nil {
			sb.WriteString(fmt.Sprintf("    Contact: %s, %s\n", dm.Name, dm.Title))
		}
		if c.Enrichment.Degraded {
			sb.WriteString("    (enrichment incomplete)\n")
		}
		if i < len(companies)-1 {
			sb.WriteString("\n")
		}
	}

	p.printBox("SELECTED COMPANIES", strings.TrimSuffix(sb.String(), "\n"))
}

// PrintMessage outputs the generated outreach email.
func (p *Printer) PrintMessage(msg *types.OutreachMessage) {
	if msg == nil {
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("To:      %s\n", msg.To))
	sb.WriteString(fmt.Sprintf("Subject: %s\n\n", msg.Subject))
	sb.WriteString(msg.Body)

	p.printBox("OUTREACH EMAIL", sb.String())
}

// PrintCosts outputs the cost ledger grouped by service.
func (p *Printer) PrintCosts(entries []types.CostEntry, total float64) {
	if len(entries) == 0 {
		return
	}

	byService := make(map[string]float64)
	for _, e := range entries {
		byService[e.Service] += e.Total()
	}
	services := make([]string, 0, len(byService))
	for s := range byService {
		services = append(services, s)
	}
	sort.Strings(services)

	var sb strings.Builder
	for _, s := range services {
		sb.WriteString(fmt.Sprintf("%-20s $%.4f\n", s, byService[s]))
	}
	sb.WriteString(fmt.Sprintf("%-20s $%.4f", "total", total))

	p.printBox("COST BREAKDOWN", sb.String())
}

// PrintDocument outputs a run summary followed by its sections.
func (p *Printer) PrintDocument(doc *types.Document) {
	if doc == nil {
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Run:     %s\n", doc.RunID))
	sb.WriteString(fmt.Sprintf("Status:  %s\n", doc.Status))
	sb.WriteString(fmt.Sprintf("Phase:   %s\n", doc.PhaseReached))
	sb.WriteString(fmt.Sprintf("Source:  %s\n", doc.DataSource))
	sb.WriteString(fmt.Sprintf("Runtime: %.1fs", doc.RuntimeSeconds))
	if doc.Error != nil {
		sb.WriteString(fmt.Sprintf("\nReason:  %s (after %s)", doc.Error.Reason, doc.Error.LastStage))
	}
	p.printBox("RUN SUMMARY", sb.String())

	p.PrintICP(doc.ICPProfile)
	p.PrintCompanies(doc.SelectedCompanies)
	p.PrintMessage(doc.GeneratedMessage)
	p.PrintCosts(doc.CostBreakdown, doc.TotalCost)
}
