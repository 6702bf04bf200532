package commands

import (
	"bytes"
	"context"
	"fmt"
	"strconv"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"
	"github.com/spf13/cobra"

	"github.com/leapstack-labs/sidebar/internal/cli/output"
	"github.com/leapstack-labs/sidebar/internal/sidebar"
	"github.com/leapstack-labs/sidebar/internal/ui/features/sidebar/components"
	"github.com/leapstack-labs/sidebar/pkg/core"
)

// Render formats.
const (
	RenderHTML     = "html"
	RenderMarkdown = "markdown"
	RenderA11y     = "a11y"
)

// pageTitle matches the title the web view serves.
const pageTitle = "Pipeline"

// ViewOptions selects what part of the sidebar a command renders.
type ViewOptions struct {
	Tab    string
	Query  string
	Filter string
}

// RenderOptions holds options for the render command.
type RenderOptions struct {
	ViewOptions
	Format string
	Page   bool
}

// NewRenderCommand creates the render command.
func NewRenderCommand() *cobra.Command {
	opts := &RenderOptions{}

	cmd := &cobra.Command{
		Use:   "render",
		Short: "Render the sidebar markup for the current data",
		Long: `Render the sidebar for the persisted state and data file.

Formats:
  html      The sidebar fragment, or the full page with --page
  markdown  The rendered sidebar converted to Markdown
  a11y      The accessibility tree: roles, ids, relations and names`,
		Example: `  # Render the history panel as HTML
  sidebar render --tab history

  # Inspect the accessibility tree as JSON
  sidebar render --format a11y -o json

  # Render search results as Markdown
  sidebar render --tab history --query failure --format markdown`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runRender(cmd, opts)
		},
	}

	addViewFlags(cmd, &opts.ViewOptions)
	cmd.Flags().StringVar(&opts.Format, "format", RenderHTML, "Render format (html|markdown|a11y)")
	cmd.Flags().BoolVar(&opts.Page, "page", false, "Render the full HTML page")
	_ = cmd.RegisterFlagCompletionFunc("format", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return []string{RenderHTML, RenderMarkdown, RenderA11y}, cobra.ShellCompDirectiveNoFileComp
	})

	return cmd
}

func addViewFlags(cmd *cobra.Command, opts *ViewOptions) {
	cmd.Flags().StringVar(&opts.Tab, "tab", core.TabProviders, "Tab to select (providers|history|environment)")
	cmd.Flags().StringVar(&opts.Query, "query", "", "History search query")
	cmd.Flags().StringVar(&opts.Filter, "filter", sidebar.FilterAll, "Providers filter (all|context|providers)")
	_ = cmd.RegisterFlagCompletionFunc("tab", completeTabs)
}

func runRender(cmd *cobra.Command, opts *RenderOptions) error {
	cctx := NewCommandContext(cmd)
	r := cctx.Renderer

	v, err := currentView(cctx, opts.ViewOptions)
	if err != nil {
		return err
	}

	switch opts.Format {
	case RenderHTML:
		markup, err := renderMarkup(cmd.Context(), v, opts.Page)
		if err != nil {
			return err
		}
		r.Println(markup)
		return nil
	case RenderMarkdown:
		md, err := renderMarkdown(cmd.Context(), v)
		if err != nil {
			return err
		}
		r.Println(md)
		return nil
	case RenderA11y:
		return writeA11y(r, sidebar.Bind(v))
	default:
		return fmt.Errorf("unknown format %q (valid: html, markdown, a11y)", opts.Format)
	}
}

// currentView loads the sidebar data and returns the view for opts.
func currentView(cctx *CommandContext, opts ViewOptions) (sidebar.View, error) {
	store, _, cleanup, err := loadStore(cctx.Cfg, cctx.Logger)
	if err != nil {
		return sidebar.View{}, err
	}
	defer cleanup()

	c, err := sidebar.NewContainer(sidebar.ContainerConfig{Store: store, Logger: cctx.Logger})
	if err != nil {
		return sidebar.View{}, err
	}
	defer c.Close()

	if opts.Tab != "" {
		if err := c.SelectTab(opts.Tab); err != nil {
			return sidebar.View{}, err
		}
	}
	c.SetHistoryQuery(opts.Query)
	c.SetProvidersFilter(opts.Filter)
	return c.View(), nil
}

func renderMarkup(ctx context.Context, v sidebar.View, page bool) (string, error) {
	component := components.Sidebar(v)
	if page {
		component = components.Page(pageTitle, false, v)
	}
	var buf bytes.Buffer
	if err := component.Render(ctx, &buf); err != nil {
		return "", fmt.Errorf("failed to render sidebar: %w", err)
	}
	return buf.String(), nil
}

// renderMarkdown converts the selected panel under a heading naming its tab.
// Hidden panels are left out.
func renderMarkdown(ctx context.Context, v sidebar.View) (string, error) {
	var buf bytes.Buffer
	if err := components.ActivePanel(v).Render(ctx, &buf); err != nil {
		return "", fmt.Errorf("failed to render panel: %w", err)
	}
	md, err := htmltomarkdown.ConvertString(buf.String())
	if err != nil {
		return "", fmt.Errorf("failed to convert to markdown: %w", err)
	}
	label := v.Current
	for _, t := range v.Tabs {
		if t.Selected {
			label = t.Tab.Label
		}
	}
	return output.FormatHeader(2, label) + "\n\n" + md, nil
}

type a11yNode struct {
	Element    string `json:"element"`
	ID         string `json:"id"`
	Role       string `json:"role"`
	Selected   string `json:"selected,omitempty"`
	Controls   string `json:"controls,omitempty"`
	LabelledBy string `json:"labelledBy,omitempty"`
	TabIndex   string `json:"tabIndex,omitempty"`
	Hidden     bool   `json:"hidden,omitempty"`
	Name       string `json:"name"`
}

func a11yNodes(tree sidebar.A11yTree) []a11yNode {
	nodes := []a11yNode{{Element: "tablist", Role: tree.TabList.Role, Name: tree.TabList.Label}}
	for _, t := range tree.Tabs {
		nodes = append(nodes, a11yNode{
			Element:  "tab",
			ID:       t.ID,
			Role:     t.Role,
			Selected: t.Selected,
			Controls: t.Controls,
			TabIndex: t.TabIndex,
			Name:     t.Label,
		})
	}
	for _, p := range tree.Panels {
		nodes = append(nodes, a11yNode{
			Element:    "panel",
			ID:         p.ID,
			Role:       p.Role,
			LabelledBy: p.LabelledBy,
			Hidden:     p.Hidden,
		})
		if p.Hidden {
			continue
		}
		nodes = append(nodes, a11yNode{Element: "list", Role: p.List.Role, Name: p.List.Label})
		for _, item := range p.List.Items {
			nodes = append(nodes, a11yNode{
				Element:  "item",
				ID:       item.ID,
				Role:     item.Role,
				TabIndex: item.TabIndex,
				Name:     item.Name,
			})
		}
	}
	return nodes
}

func writeA11y(r *output.Renderer, tree sidebar.A11yTree) error {
	nodes := a11yNodes(tree)
	if r.EffectiveMode() == output.ModeJSON {
		return r.JSON(nodes)
	}

	rows := make([][]string, len(nodes))
	for i, n := range nodes {
		relation := n.Controls
		if n.LabelledBy != "" {
			relation = n.LabelledBy
		}
		state := n.Selected
		if n.Element == "panel" {
			state = "hidden=" + strconv.FormatBool(n.Hidden)
		}
		rows[i] = []string{n.Element, n.ID, n.Role, state, relation, n.TabIndex, n.Name}
	}
	r.Table([]string{"Element", "ID", "Role", "State", "Relation", "Tabindex", "Name"}, rows)
	return nil
}
