// Package components provides reusable terminal components.
package components

import (
	"fmt"
	"strings"

	"github.com/fd1az/crossarb/pkg/ui"
)

// OpportunityRow represents an opportunity in the list.
type OpportunityRow struct {
	Time        string
	StartAsset  string
	Hops        int
	Path        string
	RawPct      float64
	SlippagePct float64
	ProfitPct   float64
}

// OpportunitiesComponent renders the most recent opportunities, newest
// first.
type OpportunitiesComponent struct {
	rows    []OpportunityRow
	maxRows int
}

// NewOpportunitiesComponent creates a new opportunities component.
func NewOpportunitiesComponent(maxRows int) *OpportunitiesComponent {
	if maxRows <= 0 {
		maxRows = 10
	}
	return &OpportunitiesComponent{maxRows: maxRows}
}

// Add adds a new opportunity to the list.
func (o *OpportunitiesComponent) Add(row OpportunityRow) {
	o.rows = append([]OpportunityRow{row}, o.rows...)
	if len(o.rows) > o.maxRows {
		o.rows = o.rows[:o.maxRows]
	}
}

// Len returns the number of rows held.
func (o *OpportunitiesComponent) Len() int {
	return len(o.rows)
}

// View renders the opportunities component.
func (o *OpportunitiesComponent) View() string {
	if len(o.rows) == 0 {
		return ui.MutedValue.Render("No opportunities detected yet...")
	}

	var b strings.Builder
	b.WriteString(ui.HeaderStyle.Render(fmt.Sprintf("OPPORTUNITIES (last %d)", o.maxRows)))
	b.WriteString("\n")
	b.WriteString(fmt.Sprintf("%-8s  %-6s  %4s  %10s  %10s  %10s  %s\n",
		"TIME", "START", "HOPS", "RAW", "SLIPPAGE", "ADJUSTED", "PATH"))

	for _, row := range o.rows {
		b.WriteString(fmt.Sprintf("%-8s  %-6s  %4d  %10s  %10s  %s  %s\n",
			row.Time,
			row.StartAsset,
			row.Hops,
			fmt.Sprintf("%+.3f%%", row.RawPct),
			fmt.Sprintf("%.3f%%", row.SlippagePct),
			ui.Signed(row.ProfitPct, "%+9.3f%%"),
			ui.MutedValue.Render(row.Path),
		))
	}

	return strings.TrimRight(b.String(), "\n")
}
