// Package styles contains Lip Gloss style definitions.
package styles

import "github.com/charmbracelet/lipgloss"

var (
	// Semantic color names - Text hierarchy
	TextPrimaryColor   = lipgloss.AdaptiveColor{Light: "#2D2D2D", Dark: "#CCCCCC"} // Cell text
	TextSecondaryColor = lipgloss.AdaptiveColor{Light: "#555555", Dark: "#BBBBBB"} // Headers
	TextMutedColor     = lipgloss.AdaptiveColor{Light: "#999999", Dark: "#696969"} // Row numbers, hints, empty state

	// Semantic color names - Border
	BorderDefaultColor   = lipgloss.AdaptiveColor{Light: "#D9DCCF", Dark: "#696969"} // Grid frame
	BorderHighlightColor = lipgloss.AdaptiveColor{Light: "#1E66F5", Dark: "#54A0FF"} // Edges of the selection

	// Semantic color names - Status
	StatusSuccessColor = lipgloss.AdaptiveColor{Light: "#43BF6D", Dark: "#73F59F"}
	StatusWarningColor = lipgloss.AdaptiveColor{Light: "#DF8E1D", Dark: "#FECA57"}
	StatusErrorColor   = lipgloss.AdaptiveColor{Light: "#D20F39", Dark: "#FF8787"}

	// Grid cells
	SelectionBackgroundColor = lipgloss.AdaptiveColor{Light: "#DCE6F5", Dark: "#2A3A50"} // Selected cells and rows
	EditingBackgroundColor   = lipgloss.AdaptiveColor{Light: "#FFF6D6", Dark: "#3B3320"} // Cell under edit

	HeaderStyle         = lipgloss.NewStyle().Foreground(TextSecondaryColor).Bold(true)
	GutterStyle         = lipgloss.NewStyle().Foreground(TextMutedColor)
	GutterSelectedStyle = lipgloss.NewStyle().Foreground(BorderHighlightColor).Bold(true)
	CellStyle           = lipgloss.NewStyle().Foreground(TextPrimaryColor)
	SelectedCellStyle   = lipgloss.NewStyle().Foreground(TextPrimaryColor).Background(SelectionBackgroundColor)
	EditingCellStyle    = lipgloss.NewStyle().Foreground(TextPrimaryColor).Background(EditingBackgroundColor)
	InvalidEditStyle    = lipgloss.NewStyle().Foreground(StatusErrorColor).Background(EditingBackgroundColor)
	EdgeStyle           = lipgloss.NewStyle().Foreground(BorderHighlightColor)

	// Status bar
	StatusBarStyle = lipgloss.NewStyle().
			Foreground(TextSecondaryColor).
			Padding(0, 1)

	// Error display
	ErrorStyle = lipgloss.NewStyle().
			Foreground(StatusErrorColor).
			Bold(true)
)
