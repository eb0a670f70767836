package notify

import (
	"io"

	"github.com/charmbracelet/lipgloss"
)

// Theme centralizes terminal styling for notifications and CLI reports.
type Theme struct {
	// Status colors
	OK    lipgloss.Style
	Warn  lipgloss.Style
	Error lipgloss.Style

	// UI elements
	Panel  lipgloss.Style
	Title  lipgloss.Style
	Header lipgloss.Style
	Dim    lipgloss.Style
}

// NewTheme returns the default theme bound to w, so color output is only
// enabled when w is a terminal that supports it.
func NewTheme(w io.Writer) Theme {
	r := lipgloss.NewRenderer(w)
	red := lipgloss.Color("#FF5F5F")

	return Theme{
		OK:    r.NewStyle().Foreground(lipgloss.Color("#00FF00")),
		Warn:  r.NewStyle().Foreground(lipgloss.Color("#E5C07B")),
		Error: r.NewStyle().Foreground(red),

		Panel: r.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(red).
			Padding(0, 1),
		Title: r.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")),
		Header: r.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#61AFEF")),
		Dim: r.NewStyle().Foreground(lipgloss.Color("#888888")),
	}
}
