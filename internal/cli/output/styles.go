package output

import "github.com/charmbracelet/lipgloss"

// Styles holds the text styles of a renderer.
type Styles struct {
	Header1 lipgloss.Style
	Header2 lipgloss.Style
	Label   lipgloss.Style
	Muted   lipgloss.Style
	Success lipgloss.Style
	Warning lipgloss.Style
	Error   lipgloss.Style
}

// NewStyles returns colored styles on a terminal and plain ones otherwise.
func NewStyles(color bool) Styles {
	if !color {
		plain := lipgloss.NewStyle()
		return Styles{plain, plain, plain, plain, plain, plain, plain}
	}
	return Styles{
		Header1: lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39")),
		Header2: lipgloss.NewStyle().Bold(true),
		Label:   lipgloss.NewStyle().Foreground(lipgloss.Color("245")),
		Muted:   lipgloss.NewStyle().Foreground(lipgloss.Color("243")),
		Success: lipgloss.NewStyle().Foreground(lipgloss.Color("#27ae60")),
		Warning: lipgloss.NewStyle().Foreground(lipgloss.Color("#f39c12")),
		Error:   lipgloss.NewStyle().Foreground(lipgloss.Color("#e74c3c")),
	}
}
