package components

import (
	"fmt"

	"github.com/fd1az/crossarb/pkg/ui"
)

// Stats holds detector statistics for display.
type Stats struct {
	Opportunities   int64
	Executions      int64
	Completed       int64
	PartialFailures int64
	Errors          int64
}

// StatsComponent renders statistics.
type StatsComponent struct {
	stats Stats
}

// NewStatsComponent creates a new stats component.
func NewStatsComponent() *StatsComponent {
	return &StatsComponent{}
}

// Update updates the statistics.
func (s *StatsComponent) Update(stats Stats) {
	s.stats = stats
}

// View renders the stats component.
func (s *StatsComponent) View() string {
	successRate := float64(0)
	if s.stats.Executions > 0 {
		successRate = float64(s.stats.Completed) / float64(s.stats.Executions) * 100
	}

	failures := s.stats.PartialFailures + s.stats.Errors
	failuresDisplay := ui.BoldValue.Render(fmt.Sprintf("%d", failures))
	if failures > 0 {
		failuresDisplay = ui.NegativeValue.Bold(true).Render(fmt.Sprintf("%d", failures))
	}

	return ui.MutedValue.Render("STATS") + "\n" +
		fmt.Sprintf("Opportunities: %s  │  Executions: %s  │  Completed: %s (%.1f%%)  │  Failed: %s",
			ui.BoldValue.Render(fmt.Sprintf("%d", s.stats.Opportunities)),
			ui.BoldValue.Render(fmt.Sprintf("%d", s.stats.Executions)),
			ui.BoldValue.Render(fmt.Sprintf("%d", s.stats.Completed)),
			successRate,
			failuresDisplay,
		)
}
