// Package tui renders the sidebar in a terminal.
package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/leapstack-labs/sidebar/internal/sidebar"
	"github.com/leapstack-labs/sidebar/pkg/core"
)

// refreshMsg asks the model to re-read the container view.
type refreshMsg struct{}

// actionMsg carries the result of an outbound action.
type actionMsg struct {
	label string
	err   error
}

// Model is the bubbletea model driving one sidebar container.
type Model struct {
	c      *sidebar.Container
	view   sidebar.View
	cursor int

	search    textinput.Model
	searching bool

	status string
	err    error
	width  int

	styles styles
}

// New creates a model over c.
func New(c *sidebar.Container) Model {
	search := textinput.New()
	search.Placeholder = "search runs"
	search.Prompt = "/ "
	search.SetValue(c.Options().HistoryQuery)

	return Model{
		c:      c,
		view:   c.View(),
		search: search,
		styles: defaultStyles(),
	}
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		return m, nil

	case refreshMsg:
		m.refresh()
		return m, nil

	case actionMsg:
		m.err = msg.err
		if msg.err == nil {
			m.status = msg.label
		} else {
			m.status = ""
		}
		return m, nil

	case tea.KeyMsg:
		if m.searching {
			return m.updateSearch(msg)
		}
		return m.updateKeys(msg)
	}
	return m, nil
}

func (m Model) updateKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit
	case "left", "h", "shift+tab":
		m.c.HandleTabKey(sidebar.KeyArrowLeft)
	case "right", "l", "tab":
		m.c.HandleTabKey(sidebar.KeyArrowRight)
	case "home", "g":
		m.c.HandleTabKey(sidebar.KeyHome)
	case "end", "G":
		m.c.HandleTabKey(sidebar.KeyEnd)
	case "1", "2", "3", "4", "5", "6", "7", "8", "9":
		idx := int(msg.String()[0] - '1')
		if tabs := m.c.Tabs().Tabs(); idx < len(tabs) {
			_ = m.c.SelectTab(tabs[idx].ID)
		}
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
		return m, nil
	case "down", "j":
		if m.cursor < len(m.items())-1 {
			m.cursor++
		}
		return m, nil
	case "enter", " ":
		return m, m.activate()
	case "r":
		if item, ok := m.selected(); ok && item.Kind == core.ItemKindHistory {
			return m, m.run("restore requested", func(ctx context.Context) error {
				return m.c.RestoreHistory(ctx, item.ID)
			})
		}
		return m, nil
	case "o":
		if item, ok := m.selected(); ok && item.Kind == core.ItemKindHistory {
			return m, m.run("opening pull request", func(ctx context.Context) error {
				return m.c.OpenPullRequest(ctx, item.ID)
			})
		}
		return m, nil
	case "c":
		if m.view.Current == core.TabHistory {
			return m, m.run("clear requested", m.c.ClearHistory)
		}
		return m, nil
	case "f":
		if m.view.Current == core.TabProviders {
			m.c.SetProvidersFilter(nextFilter(m.c.Options().ProvidersFilter))
		}
	case "/":
		if m.view.Current == core.TabHistory {
			m.searching = true
			return m, m.search.Focus()
		}
		return m, nil
	default:
		return m, nil
	}

	m.refresh()
	return m, nil
}

func (m Model) updateSearch(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc", "enter":
		m.searching = false
		m.search.Blur()
		return m, nil
	case "ctrl+c":
		return m, tea.Quit
	}

	var cmd tea.Cmd
	m.search, cmd = m.search.Update(msg)
	m.c.SetHistoryQuery(m.search.Value())
	m.refresh()
	return m, cmd
}

func (m Model) activate() tea.Cmd {
	item, ok := m.selected()
	if !ok || !item.Interactive {
		return nil
	}
	tabID := m.view.Current
	return m.run("sent "+item.Label, func(ctx context.Context) error {
		return m.c.Activate(ctx, tabID, item.ID)
	})
}

// run performs fn off the event loop and reports the result as an actionMsg.
func (m Model) run(label string, fn func(ctx context.Context) error) tea.Cmd {
	return func() tea.Msg {
		return actionMsg{label: label, err: fn(context.Background())}
	}
}

func (m *Model) refresh() {
	prev := m.view.Current
	m.view = m.c.View()
	if m.view.Current != prev {
		m.cursor = 0
	}
	if n := len(m.items()); m.cursor >= n {
		m.cursor = max(n-1, 0)
	}
}

func (m Model) items() []core.Item {
	return m.view.ActivePanel().Items
}

func (m Model) selected() (core.Item, bool) {
	items := m.items()
	if m.cursor < 0 || m.cursor >= len(items) {
		return core.Item{}, false
	}
	return items[m.cursor], true
}

// Cursor returns the index of the highlighted item.
func (m Model) Cursor() int {
	return m.cursor
}

// View implements tea.Model.
func (m Model) View() string {
	var b strings.Builder

	tabs := make([]string, 0, len(m.view.Tabs))
	for _, t := range m.view.Tabs {
		if t.Selected {
			tabs = append(tabs, m.styles.activeTab.Render(t.Tab.Label))
		} else {
			tabs = append(tabs, m.styles.tab.Render(t.Tab.Label))
		}
	}
	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, tabs...))
	b.WriteString("\n\n")

	switch m.view.Current {
	case core.TabHistory:
		if m.searching || m.search.Value() != "" {
			b.WriteString(m.search.View())
			b.WriteString("\n")
		}
	case core.TabProviders:
		b.WriteString(m.styles.muted.Render("filter: " + filterName(m.c.Options().ProvidersFilter)))
		b.WriteString("\n")
	}

	items := m.items()
	if len(items) == 0 {
		b.WriteString(m.styles.muted.Render(emptyText(m.view.Current, m.view.HistoryQuery)))
		b.WriteString("\n")
	}
	for i, item := range items {
		line := m.itemLine(item)
		if i == m.cursor {
			b.WriteString(m.styles.cursor.Render("> " + line))
		} else {
			b.WriteString(m.styles.item.Render(line))
		}
		b.WriteString("\n")
	}

	b.WriteString("\n")
	switch {
	case m.err != nil:
		b.WriteString(m.styles.errorText.Render(m.err.Error()))
		b.WriteString("\n")
	case m.status != "":
		b.WriteString(m.styles.muted.Render(m.status))
		b.WriteString("\n")
	}
	b.WriteString(m.styles.help.Render(helpText(m.view.Current)))
	return b.String()
}

func (m Model) itemLine(item core.Item) string {
	switch item.Kind {
	case core.ItemKindHistory:
		parts := []string{item.Label}
		if item.Time != "" {
			parts = append(parts, m.styles.muted.Render(item.Time))
		}
		parts = append(parts, m.styles.badge(item.Status, item.StatusLabel))
		if item.PullRequests > 0 {
			parts = append(parts, m.styles.muted.Render(fmt.Sprintf("%d PR", item.PullRequests)))
		}
		return strings.Join(parts, "  ")
	case core.ItemKindEnvironment:
		return item.Label + m.styles.muted.Render("="+item.Value)
	default:
		if item.Description != "" {
			return item.Label + "  " + m.styles.muted.Render(item.Description)
		}
		return item.Label
	}
}

func nextFilter(current string) string {
	switch current {
	case sidebar.FilterContext:
		return sidebar.FilterProviders
	case sidebar.FilterProviders:
		return sidebar.FilterAll
	default:
		return sidebar.FilterContext
	}
}

func filterName(f string) string {
	if f == "" {
		return sidebar.FilterAll
	}
	return f
}

func emptyText(tabID, query string) string {
	switch tabID {
	case core.TabHistory:
		if query != "" {
			return "No runs match your search"
		}
		return "No runs yet"
	case core.TabEnvironment:
		return "No environment variables"
	default:
		return "Nothing to show"
	}
}

func helpText(tabID string) string {
	base := "←/→ tabs • ↑/↓ move • q quit"
	switch tabID {
	case core.TabProviders:
		return "enter add node • f filter • " + base
	case core.TabHistory:
		return "enter select • r restore • o open PR • / search • c clear • " + base
	default:
		return base
	}
}
