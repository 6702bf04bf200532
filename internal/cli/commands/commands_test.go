package commands

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/chromedp/chromedp/kb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/sidebar/internal/cli/output"
	clitest "github.com/leapstack-labs/sidebar/internal/cli/testutil"
	"github.com/leapstack-labs/sidebar/internal/sidebar"
	"github.com/leapstack-labs/sidebar/internal/testutil"
	"github.com/leapstack-labs/sidebar/internal/verify"
	"github.com/leapstack-labs/sidebar/pkg/core"
)

func sampleView(t *testing.T, tab string) sidebar.View {
	t.Helper()
	snap := testutil.SampleSnapshot()
	snap.Version = 1
	return sidebar.BuildView(core.DefaultTabs(), tab, snap, sidebar.RenderOptions{})
}

func TestNewServeCommand(t *testing.T) {
	cmd := NewServeCommand()

	assert.Equal(t, "serve", cmd.Use)
	assert.NotEmpty(t, cmd.Short, "Short should not be empty")
	assert.NotEmpty(t, cmd.Example, "Example should not be empty")
	assert.Contains(t, cmd.Aliases, "ui")

	flags := []string{"port", "no-browser", "watch", "webhook", "dev"}
	for _, flag := range flags {
		assert.NotNil(t, cmd.Flags().Lookup(flag), "flag %q should exist", flag)
	}
}

func TestNewTUICommand(t *testing.T) {
	cmd := NewTUICommand()

	assert.Equal(t, "tui", cmd.Use)
	assert.NotEmpty(t, cmd.Short, "Short should not be empty")

	flags := []string{"tab", "watch", "no-alt-screen", "no-color"}
	for _, flag := range flags {
		assert.NotNil(t, cmd.Flags().Lookup(flag), "flag %q should exist", flag)
	}
}

func TestNewRenderCommand(t *testing.T) {
	cmd := NewRenderCommand()

	assert.Equal(t, "render", cmd.Use)
	assert.NotEmpty(t, cmd.Example, "Example should not be empty")

	// Note: --output is a global persistent flag on root, not local to render
	flags := []string{"tab", "query", "filter", "format", "page"}
	for _, flag := range flags {
		assert.NotNil(t, cmd.Flags().Lookup(flag), "flag %q should exist", flag)
	}
}

func TestNewVerifyCommand(t *testing.T) {
	cmd := NewVerifyCommand()

	assert.Equal(t, "verify [file|url]", cmd.Use)
	assert.Error(t, cmd.Args(cmd, []string{"a", "b"}))

	flags := []string{"tab", "browser", "keys", "timeout"}
	for _, flag := range flags {
		assert.NotNil(t, cmd.Flags().Lookup(flag), "flag %q should exist", flag)
	}
}

func TestNewHistoryCommand(t *testing.T) {
	cmd := NewHistoryCommand()

	assert.Equal(t, "history", cmd.Use)

	var names []string
	for _, sub := range cmd.Commands() {
		names = append(names, sub.Name())
	}
	assert.ElementsMatch(t, []string{"list", "add", "rm", "prune", "clear"}, names)
}

func TestNewEnvCommand(t *testing.T) {
	cmd := NewEnvCommand()

	assert.Equal(t, "env", cmd.Use)
	assert.Len(t, cmd.Commands(), 2)
}

func TestNewHistoryEntry(t *testing.T) {
	now := time.UnixMilli(testutil.SampleRun1Time)

	t.Run("defaults", func(t *testing.T) {
		e, err := newHistoryEntry("Nightly", &HistoryAddOptions{Status: "success"}, now)
		require.NoError(t, err)
		assert.NotEmpty(t, e.ID)
		assert.Equal(t, "Nightly", e.Name)
		assert.Equal(t, core.RunStatusSuccess, e.Status)
		assert.Equal(t, testutil.SampleRun1Time, e.Timestamp)
		assert.False(t, e.HasSnapshot())
		assert.Empty(t, e.PullRequests)
	})

	t.Run("with pr and snapshot", func(t *testing.T) {
		e, err := newHistoryEntry("Deploy", &HistoryAddOptions{
			ID:       "run-9",
			Status:   "failure",
			PRURL:    "https://github.com/acme/app/pull/7",
			Snapshot: `{"nodes":[]}`,
		}, now)
		require.NoError(t, err)
		assert.Equal(t, "run-9", e.ID)
		assert.True(t, e.HasSnapshot())
		require.Len(t, e.PullRequests, 1)
		assert.Equal(t, "https://github.com/acme/app/pull/7", e.PullRequests[0].URL)
	})

	t.Run("unknown status", func(t *testing.T) {
		_, err := newHistoryEntry("x", &HistoryAddOptions{Status: "exploded"}, now)
		assert.ErrorContains(t, err, "unknown status")
	})

	t.Run("invalid snapshot", func(t *testing.T) {
		_, err := newHistoryEntry("x", &HistoryAddOptions{Status: "success", Snapshot: "{"}, now)
		assert.ErrorContains(t, err, "not valid JSON")
	})
}

func TestWriteHistory(t *testing.T) {
	entries := testutil.SampleSnapshot().History

	t.Run("markdown", func(t *testing.T) {
		tr := clitest.NewTestRendererAuto()
		require.NoError(t, writeHistory(tr.Renderer, entries))
		clitest.AssertOutputMode(t, tr, output.ModeMarkdown)

		s := tr.Output()
		assert.Contains(t, s, "| ID")
		assert.Contains(t, s, "run-1")
		assert.Contains(t, s, "SUCCESS")
		assert.Contains(t, s, "FAILURE")
		assert.Contains(t, s, "2023-11-14T22:13:20Z")
	})

	t.Run("json", func(t *testing.T) {
		tr := clitest.NewTestRendererJSON()
		require.NoError(t, writeHistory(tr.Renderer, entries))

		var decoded []core.HistoryEntry
		require.NoError(t, json.Unmarshal(tr.Out.Bytes(), &decoded))
		assert.Len(t, decoded, 2)
		assert.Equal(t, "run-2", decoded[1].ID)
	})

	t.Run("empty", func(t *testing.T) {
		tr := clitest.NewTestRendererText()
		require.NoError(t, writeHistory(tr.Renderer, nil))
		assert.Contains(t, tr.Output(), "No runs yet")
	})
}

func TestA11yNodes(t *testing.T) {
	nodes := a11yNodes(sidebar.Bind(sampleView(t, core.TabHistory)))

	// tablist, 3 tabs, 3 panels, the visible list and its 2 items
	require.Len(t, nodes, 10)
	assert.Equal(t, "Sidebar Sections", nodes[0].Name)

	var selected []string
	for _, n := range nodes {
		if n.Element == "tab" && n.Selected == "true" {
			selected = append(selected, n.ID)
		}
	}
	assert.Equal(t, []string{"tab-history"}, selected)

	var items []a11yNode
	for _, n := range nodes {
		if n.Element == "item" {
			items = append(items, n)
		}
	}
	require.Len(t, items, 2)
	last := items[len(items)-1]
	assert.Equal(t, "listitem", last.Role)
	assert.Equal(t, "0", last.TabIndex)
	assert.Contains(t, last.Name, "Test Run 2")

	// panels follow tab order; the hidden environment panel comes last
	tail := nodes[len(nodes)-1]
	assert.Equal(t, "panel", tail.Element)
	assert.Equal(t, core.PanelElementID(core.TabEnvironment), tail.ID)
	assert.True(t, tail.Hidden)
}

func TestWriteA11y_Table(t *testing.T) {
	tr := clitest.NewTestRendererMarkdown()
	require.NoError(t, writeA11y(tr.Renderer, sidebar.Bind(sampleView(t, core.TabProviders))))
	clitest.AssertValidMarkdown(t, tr.Output())

	s := tr.Output()
	assert.Contains(t, s, "tab-providers")
	assert.Contains(t, s, "panel-history")
	assert.Contains(t, s, "hidden=true")
	assert.Contains(t, s, "Add Git node")
}

func TestRenderMarkup_PassesContract(t *testing.T) {
	for _, tab := range []string{core.TabProviders, core.TabHistory, core.TabEnvironment} {
		t.Run(tab, func(t *testing.T) {
			markup, err := renderMarkup(context.Background(), sampleView(t, tab), true)
			require.NoError(t, err)
			assert.Contains(t, markup, "<title>Pipeline - Sidebar</title>")

			rep, err := verify.CheckString(markup)
			require.NoError(t, err)
			assert.True(t, rep.OK(), "failed checks: %+v", rep.Failed())
		})
	}
}

func TestParseKeys(t *testing.T) {
	keys, err := parseKeys([]string{"ArrowRight", "End"})
	require.NoError(t, err)
	assert.Equal(t, []string{kb.ArrowRight, kb.End}, keys)

	_, err = parseKeys([]string{"Escape"})
	assert.ErrorContains(t, err, "unknown key")
}

func TestReportFormat(t *testing.T) {
	tests := []struct {
		mode output.Mode
		want string
	}{
		{output.ModeJSON, verify.FormatJSON},
		{output.ModeMarkdown, verify.FormatMarkdown},
		{output.ModeText, verify.FormatText},
	}
	for _, tt := range tests {
		t.Run(string(tt.mode), func(t *testing.T) {
			tr := clitest.NewTestRenderer(tt.mode, false)
			assert.Equal(t, tt.want, reportFormat(tr.Renderer))
		})
	}
}

func TestRenderMarkdown(t *testing.T) {
	tests := []struct {
		tab         string
		contains    []string
		notContains []string
	}{
		{
			tab:         core.TabEnvironment,
			contains:    []string{"## Environment", "- `API_URL`: http://localhost:8080", "- `NODE_ENV`: test"},
			notContains: []string{"Version control operations", "Test Run"},
		},
		{
			tab:         core.TabHistory,
			contains:    []string{"## History", "Test Run 2"},
			notContains: []string{"API_URL", "Version control operations"},
		},
		{
			tab:         core.TabProviders,
			contains:    []string{"## Providers", "Version control operations"},
			notContains: []string{"Test Run", "API_URL"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.tab, func(t *testing.T) {
			md, err := renderMarkdown(context.Background(), sampleView(t, tt.tab))
			require.NoError(t, err)
			clitest.AssertValidMarkdown(t, md)
			assert.NotContains(t, md, "<!--")
			for _, s := range tt.contains {
				assert.Contains(t, md, s)
			}
			for _, s := range tt.notContains {
				assert.NotContains(t, md, s)
			}
		})
	}
}
