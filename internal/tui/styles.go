// Package tui provides the terminal dashboard for BikeGuard.
package tui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/manav03panchal/bikeguard/internal/motion"
)

// Color palette for the dashboard.
var (
	ColorPrimary   = lipgloss.Color("#7C3AED") // Purple
	ColorSecondary = lipgloss.Color("#10B981") // Green
	ColorMuted     = lipgloss.Color("#6B7280") // Gray
	ColorWarning   = lipgloss.Color("#F59E0B") // Yellow
	ColorError     = lipgloss.Color("#EF4444") // Red
	ColorSuccess   = lipgloss.Color("#10B981") // Green
	ColorActive    = lipgloss.Color("#3B82F6") // Blue
	ColorBorder    = lipgloss.Color("#4B5563") // Dark gray
)

// Base styles.
var (
	// StyleTitle is used for section titles.
	StyleTitle = lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorPrimary).
			MarginBottom(1)

	// StyleSubtitle is used for secondary information.
	StyleSubtitle = lipgloss.NewStyle().
			Foreground(ColorMuted)

	// StyleValue is used for live readings.
	StyleValue = lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorActive)

	// StyleContact is used for contact names.
	StyleContact = lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorPrimary)

	StyleActive = lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorSuccess)

	StyleInactive = lipgloss.NewStyle().
			Foreground(ColorMuted)

	StyleTriggered = lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorError)

	StyleWarning = lipgloss.NewStyle().
			Foreground(ColorWarning)

	StyleError = lipgloss.NewStyle().
			Foreground(ColorError)

	StyleSuccess = lipgloss.NewStyle().
			Foreground(ColorSuccess)

	// StyleHelp is used for the key bar at the bottom.
	StyleHelp = lipgloss.NewStyle().
			Foreground(ColorMuted).
			MarginTop(1)

	StyleHelpKey = lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorSecondary)

	StyleHelpDesc = lipgloss.NewStyle().
			Foreground(ColorMuted)
)

// Box styles.
var (
	StyleStatusBox = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(ColorBorder).
			Padding(1, 2).
			MarginBottom(1)

	// StyleActiveStatusBox is used while protection is on.
	StyleActiveStatusBox = lipgloss.NewStyle().
				Border(lipgloss.RoundedBorder()).
				BorderForeground(ColorSuccess).
				Padding(1, 2).
				MarginBottom(1)

	// StyleAlertBox frames the countdown overlay.
	StyleAlertBox = lipgloss.NewStyle().
			Border(lipgloss.ThickBorder()).
			BorderForeground(ColorError).
			Padding(1, 2).
			MarginBottom(1)

	StyleContactsBox = lipgloss.NewStyle().
				Border(lipgloss.RoundedBorder()).
				BorderForeground(ColorBorder).
				Padding(1, 2).
				MarginBottom(1)
)

// SeverityColor maps a reading's severity to the bar colour.
func SeverityColor(s motion.Severity) lipgloss.Color {
	switch s {
	case motion.SeverityImpact:
		return ColorError
	case motion.SeverityElevated:
		return ColorWarning
	default:
		return ColorSuccess
	}
}

// ProgressBar creates a progress bar string in the given colour.
func ProgressBar(percentage float64, width int, color lipgloss.Color) string {
	if percentage > 100 {
		percentage = 100
	}
	if percentage < 0 {
		percentage = 0
	}

	filled := int(float64(width) * percentage / 100)
	empty := width - filled

	filledStyle := lipgloss.NewStyle().Foreground(color)
	emptyStyle := lipgloss.NewStyle().Foreground(ColorMuted)

	return filledStyle.Render(strings.Repeat("█", filled)) + // Full block
		emptyStyle.Render(strings.Repeat("░", empty)) // Light shade
}
