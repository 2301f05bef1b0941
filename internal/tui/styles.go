package tui

import "github.com/charmbracelet/lipgloss"

var (
	colorMuted = lipgloss.Color("#666666")
	colorError = lipgloss.Color("#E74C3C")
	colorFg    = lipgloss.Color("#C0CAF5")
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(colorFg)

	subtitleStyle = lipgloss.NewStyle().
			Foreground(colorMuted)

	errorStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(colorError)

	rowStyle = lipgloss.NewStyle().
			Foreground(colorFg)

	statusStyle = lipgloss.NewStyle().
			Foreground(colorMuted).
			Italic(true)
)
