// Package ui provides lipgloss styles for terminal output.
package ui

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
)

// Colors
var (
	ColorPrimary   = lipgloss.Color("#7C3AED") // Purple
	ColorSecondary = lipgloss.Color("#10B981") // Green
	ColorDanger    = lipgloss.Color("#EF4444") // Red
	ColorWarning   = lipgloss.Color("#F59E0B") // Amber
	ColorMuted     = lipgloss.Color("#6B7280") // Gray
	ColorBorder    = lipgloss.Color("#374151") // Dark gray
)

// Styles
var (
	BoxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(ColorBorder).
			Padding(0, 1)

	HeaderStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorPrimary)

	TitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FFFFFF")).
			Background(ColorPrimary).
			Padding(0, 2)

	PositiveValue = lipgloss.NewStyle().
			Foreground(ColorSecondary)

	NegativeValue = lipgloss.NewStyle().
			Foreground(ColorDanger)

	WarningValue = lipgloss.NewStyle().
			Foreground(ColorWarning)

	MutedValue = lipgloss.NewStyle().
			Foreground(ColorMuted)

	BoldValue = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFFFFF")).
			Bold(true)
)

// Signed renders a percentage green when positive and red otherwise.
func Signed(pct float64, format string) string {
	if pct > 0 {
		return PositiveValue.Render(fmtPct(pct, format))
	}
	return NegativeValue.Render(fmtPct(pct, format))
}

func fmtPct(pct float64, format string) string {
	if format == "" {
		format = "%+.4f%%"
	}
	return fmt.Sprintf(format, pct)
}
