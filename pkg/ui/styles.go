package ui

import "github.com/charmbracelet/lipgloss"

var (
	neonCyan   = lipgloss.Color("#00FFFF")
	neonGreen  = lipgloss.Color("#39FF14")
	neonYellow = lipgloss.Color("#FFFF00")
	neonOrange = lipgloss.Color("#FF6700")
	neonRed    = lipgloss.Color("#FF0000")
	dimWhite   = lipgloss.Color("#B0B0B0")
)

// styles are the styles of one Printer, bound to its output's renderer
type styles struct {
	label   lipgloss.Style
	value   lipgloss.Style
	success lipgloss.Style
	errs    lipgloss.Style
	warning lipgloss.Style
	dim     lipgloss.Style
	panel   lipgloss.Style
}

func newStyles(r *lipgloss.Renderer) styles {
	return styles{
		label:   r.NewStyle().Foreground(neonCyan).Bold(true),
		value:   r.NewStyle().Foreground(neonYellow),
		success: r.NewStyle().Foreground(neonGreen).Bold(true),
		errs:    r.NewStyle().Foreground(neonRed).Bold(true),
		warning: r.NewStyle().Foreground(neonOrange).Bold(true),
		dim:     r.NewStyle().Foreground(dimWhite).Faint(true),
		panel: r.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(neonCyan).
			Padding(0, 1),
	}
}
