// Package tui provides Bubble Tea views for the knotfold CLI.
//
// Views are opt-in through --tui, read-only, and show the same payloads
// the plain renderers print.
package tui

import "github.com/charmbracelet/lipgloss"

// Palette. Stem colors match the outcome colors.
const (
	colorAccent  = lipgloss.Color("#7C3AED")
	colorGood    = lipgloss.Color("#10B981")
	colorCaution = lipgloss.Color("#F59E0B")
	colorBad     = lipgloss.Color("#EF4444")
	colorDim     = lipgloss.Color("#6B7280")
	colorStem    = lipgloss.Color("#3B82F6")
	colorText    = lipgloss.Color("#FFFFFF")
)

func fg(c lipgloss.Color) lipgloss.Style { return lipgloss.NewStyle().Foreground(c) }

func rounded(border lipgloss.Color, padX int) lipgloss.Style {
	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(border).
		Padding(0, padX)
}

var (
	TitleStyle = fg(colorAccent).Bold(true).MarginBottom(1)
	LabelStyle = fg(colorDim).Width(14)
	ValueStyle = fg(colorText)
	HelpStyle  = fg(colorDim).MarginTop(1)
	BoxStyle   = rounded(colorDim, 1)

	WarningStyle = fg(colorCaution)
	successStyle = fg(colorGood)
	errorStyle   = fg(colorBad)

	// Stat tiles on the metrics view.
	StatBoxStyle   = rounded(colorStem, 2).Width(20).Align(lipgloss.Center)
	StatLabelStyle = fg(colorDim).Align(lipgloss.Center)
	StatValueStyle = fg(colorText).Bold(true).Align(lipgloss.Center)

	// PairStyle colors nested brackets; KnotStyle colors the crossing layers.
	PairStyle = fg(colorStem)
	KnotStyle = fg(colorCaution).Bold(true)
)

// OutcomeStyle picks the color for a run outcome.
func OutcomeStyle(outcome string) lipgloss.Style {
	switch outcome {
	case "success":
		return successStyle
	case "canceled", "no_structure":
		return WarningStyle
	case "invalid_input", "storage_failure":
		return errorStyle
	}
	return ValueStyle
}
