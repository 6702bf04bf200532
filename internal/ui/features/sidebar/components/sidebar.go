package components

import (
	"context"
	"io"
	"strconv"

	"github.com/a-h/templ"

	"github.com/leapstack-labs/sidebar/internal/sidebar"
	"github.com/leapstack-labs/sidebar/pkg/core"
)

// RootID is the element id patched on every update.
const RootID = "sidebar"

// Sidebar renders the tab strip and every panel of v.
func Sidebar(v sidebar.View) templ.Component {
	return templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		var h html
		writeSidebar(&h, v)
		_, err := io.WriteString(w, h.String())
		return err
	})
}

// ActivePanel renders the selected panel of v without the tab strip.
func ActivePanel(v sidebar.View) templ.Component {
	return templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		var h html
		for _, panel := range sidebar.Bind(v).Panels {
			if !panel.Hidden {
				writePanel(&h, v, panel)
			}
		}
		_, err := io.WriteString(w, h.String())
		return err
	})
}

func writeSidebar(h *html, v sidebar.View) {
	tree := sidebar.Bind(v)

	h.open("div", attr("id", RootID), attr("class", "sidebar"), attr("data-version", strconv.FormatUint(v.Version, 10)))

	h.open("div", attr("role", tree.TabList.Role), attr("aria-label", tree.TabList.Label), attr("class", "sidebar-tabs"),
		attr("data-on:keydown", tabKeyHandler))
	for _, tab := range tree.Tabs {
		attrs := append(tab.Attrs(),
			attr("type", "button"),
			attr("class", "sidebar-tab"),
			attr("data-on:click", post("/api/tabs/"+pathSegment(tab.TabID))),
		)
		h.element("button", tab.Label, attrs...)
	}
	h.close("div")

	for _, panel := range tree.Panels {
		writePanel(h, v, panel)
	}

	h.close("div")
}

const tabKeyHandler = "['ArrowLeft','ArrowRight','Home','End'].includes(evt.key) && " +
	"(evt.preventDefault(), @post('/api/tabs/key?key=' + evt.key))"

func writePanel(h *html, v sidebar.View, panel sidebar.PanelA11y) {
	h.open("section", append(panel.Attrs(), attr("class", "sidebar-panel"))...)

	if !panel.Hidden {
		switch panel.TabID {
		case core.TabHistory:
			writeHistorySearch(h, v.HistoryQuery)
		case core.TabProviders:
			writeProviderFilters(h, v.ProvidersFilter)
		}
	}

	h.open("ul", attr("role", panel.List.Role), attr("aria-label", panel.List.Label), attr("class", "sidebar-list"))
	for _, item := range panel.List.Items {
		writeItem(h, panel.TabID, item)
	}
	h.close("ul")

	if !panel.Hidden {
		if len(panel.List.Items) == 0 {
			h.element("p", emptyText(panel.TabID, v.HistoryQuery), attr("class", "sidebar-empty"))
		}
		writeFooter(h, panel.TabID)
	}

	h.close("section")
}

func writeHistorySearch(h *html, query string) {
	h.open("div", attr("class", "sidebar-search"))
	h.open("input",
		attr("type", "search"),
		attr("placeholder", "Search runs"),
		attr("aria-label", "Search history"),
		attr("value", query),
		attr("data-bind:history-search", ""),
		attr("data-on:input__debounce.300ms", post("/api/history/search")),
	)
	h.close("div")
}

var providerFilters = []struct{ id, label string }{
	{sidebar.FilterAll, "All"},
	{sidebar.FilterContext, "Context"},
	{sidebar.FilterProviders, "Providers"},
}

func writeProviderFilters(h *html, current string) {
	if current == "" {
		current = sidebar.FilterAll
	}
	h.open("div", attr("role", "group"), attr("aria-label", "Filter nodes"), attr("class", "sidebar-filters"))
	for _, f := range providerFilters {
		h.element("button", f.label,
			attr("type", "button"),
			attr("class", "sidebar-chip"),
			attr("aria-pressed", strconv.FormatBool(f.id == current)),
			attr("data-on:click", post("/api/providers/filter/"+f.id)),
		)
	}
	h.close("div")
}

func writeItem(h *html, tabID string, a sidebar.ItemA11y) {
	item := a.Item
	attrs := append(a.Attrs(), attr("class", "sidebar-item item-"+string(item.Kind)))

	switch item.Kind {
	case core.ItemKindHistory:
		action := post("/api/history/" + pathSegment(item.ID) + "/activate")
		attrs = append(attrs,
			attr("data-status", string(item.Status)),
			attr("data-on:click", action),
			attr("data-on:keydown", activateOnKeys(action)),
		)
		h.open("li", attrs...)
		writeHistoryItem(h, item)
	case core.ItemKindContext, core.ItemKindProvider:
		action := post("/api/items/" + pathSegment(tabID) + "/" + pathSegment(item.ID) + "/activate")
		attrs = append(attrs,
			attr("data-on:click", action),
			attr("data-on:keydown", activateOnKeys(action)),
		)
		h.open("li", attrs...)
		writeCatalogItem(h, item)
	default:
		h.open("li", attrs...)
		h.element("code", item.Label, attr("class", "env-key"))
		h.text(": ")
		h.element("span", item.Value, attr("class", "env-value"))
	}

	h.close("li")
}

func writeHistoryItem(h *html, item core.Item) {
	h.element("button", item.Label, attr("type", "button"), attr("class", "history-name"), attr("tabindex", "-1"))
	if item.Time != "" {
		h.element("span", item.Time, attr("class", "history-time"))
	}
	h.element("span", item.StatusLabel, attr("class", "status-badge "+statusClass(item.Status)))

	if item.PullRequests > 0 {
		label := strconv.Itoa(item.PullRequests) + " PR"
		if item.PullRequests > 1 {
			label += "s"
		}
		h.element("span", label, attr("class", "pr-count"))
	}

	restore := []sidebar.Attr{
		attr("type", "button"),
		attr("class", "history-action"),
		attr("aria-label", "Restore "+item.Label),
		attr("data-on:click__stop", post("/api/history/"+pathSegment(item.ID)+"/restore")),
	}
	if !item.Restorable {
		restore = append(restore, attr("disabled", ""), attr("title", "No pipeline snapshot saved for this run"))
	}
	h.element("button", "Restore", restore...)

	if item.PullRequestURL != "" {
		h.element("button", "Open PR",
			attr("type", "button"),
			attr("class", "history-action"),
			attr("aria-label", "Open pull request for "+item.Label),
			attr("data-on:click__stop", post("/api/history/"+pathSegment(item.ID)+"/open-pr")),
		)
	}
}

func writeCatalogItem(h *html, item core.Item) {
	if item.Icon != "" {
		h.element("span", "", attr("class", "codicon "+item.Icon), attr("aria-hidden", "true"))
	}
	h.element("span", item.Label, attr("class", "item-label"))
	if item.Description != "" {
		h.element("span", item.Description, attr("class", "item-description"))
	}
}

func writeFooter(h *html, tabID string) {
	h.open("footer", attr("class", "sidebar-footer"))
	h.element("span", footerHint(tabID), attr("class", "sidebar-hint"))
	if tabID == core.TabHistory {
		h.element("button", "Clear History",
			attr("type", "button"),
			attr("class", "sidebar-clear"),
			attr("data-on:click", post("/api/history/clear")),
		)
	}
	h.close("footer")
}

func statusClass(s core.RunStatus) string {
	if s.Known() {
		return "status-" + string(s)
	}
	return "status-neutral"
}

func footerHint(tabID string) string {
	switch tabID {
	case core.TabProviders:
		return "Click a node to add it to the pipeline"
	case core.TabHistory:
		return "Select a run to inspect its steps"
	case core.TabEnvironment:
		return "Variables available to pipeline steps"
	default:
		return ""
	}
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
