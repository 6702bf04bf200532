package tui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/leapstack-labs/sidebar/pkg/core"
)

type styles struct {
	tab         lipgloss.Style
	activeTab   lipgloss.Style
	item        lipgloss.Style
	cursor      lipgloss.Style
	muted       lipgloss.Style
	errorText   lipgloss.Style
	help        lipgloss.Style
	statusBadge map[core.RunStatus]lipgloss.Style
}

func defaultStyles() styles {
	badge := func(color string) lipgloss.Style {
		return lipgloss.NewStyle().Foreground(lipgloss.Color(color)).Bold(true)
	}
	return styles{
		tab:       lipgloss.NewStyle().Padding(0, 1).Foreground(lipgloss.Color("245")),
		activeTab: lipgloss.NewStyle().Padding(0, 1).Bold(true).Underline(true).Foreground(lipgloss.Color("39")),
		item:      lipgloss.NewStyle().PaddingLeft(2),
		cursor:    lipgloss.NewStyle().PaddingLeft(0).Foreground(lipgloss.Color("39")).Bold(true),
		muted:     lipgloss.NewStyle().Foreground(lipgloss.Color("243")),
		errorText: lipgloss.NewStyle().Foreground(lipgloss.Color("#e74c3c")),
		help:      lipgloss.NewStyle().Foreground(lipgloss.Color("241")),
		statusBadge: map[core.RunStatus]lipgloss.Style{
			core.RunStatusSuccess:   badge("#27ae60"),
			core.RunStatusFailure:   badge("#e74c3c"),
			core.RunStatusRunning:   badge("#3498db"),
			core.RunStatusPending:   badge("#f39c12"),
			core.RunStatusCancelled: badge("245"),
		},
	}
}

func (s styles) badge(status core.RunStatus, label string) string {
	if st, ok := s.statusBadge[status]; ok {
		return st.Render(label)
	}
	return s.muted.Render(label)
}
