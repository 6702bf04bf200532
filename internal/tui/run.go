package tui

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"

	"github.com/leapstack-labs/sidebar/internal/sidebar"
)

// Options configures Run.
type Options struct {
	AltScreen bool
	// Profile overrides the detected color profile.
	Profile *termenv.Profile
}

// Run drives c in the terminal until the user quits or ctx is cancelled.
func Run(ctx context.Context, c *sidebar.Container, opts Options) error {
	if opts.Profile != nil {
		lipgloss.SetColorProfile(*opts.Profile)
	}

	progOpts := []tea.ProgramOption{tea.WithContext(ctx)}
	if opts.AltScreen {
		progOpts = append(progOpts, tea.WithAltScreen())
	}
	p := tea.NewProgram(New(c), progOpts...)

	// Render callbacks may fire from inside Update; Send must not block the loop.
	c.OnRender(func(sidebar.View) {
		go p.Send(refreshMsg{})
	})

	_, err := p.Run()
	if err != nil && ctx.Err() != nil {
		return nil
	}
	return err
}
