// Package ui styles the little the CLI prints for humans: the error marker
// on stderr and doctor's check list. Colour is used only on a terminal, and
// never with NO_COLOR set.
package ui

import "github.com/charmbracelet/lipgloss"

// Semantic colors, as ANSI codes so any terminal renders them.
const (
	ColorSuccess lipgloss.Color = "2" // Green
	ColorError   lipgloss.Color = "1" // Red
	ColorWarning lipgloss.Color = "3" // Yellow
	ColorMuted   lipgloss.Color = "8" // Gray (bright black)
)
