package core

// Well-known tab identifiers.
const (
	TabProviders   = "providers"
	TabHistory     = "history"
	TabEnvironment = "environment"
)

// Tab is a selectable control identifying one panel of content.
type Tab struct {
	ID       string `json:"id"`
	Label    string `json:"label"`
	Icon     string `json:"icon,omitempty"`
	Position int    `json:"position"`
}

// DefaultTabs returns the fixed tab set of the sidebar in display order.
func DefaultTabs() []Tab {
	return []Tab{
		{ID: TabProviders, Label: "Providers", Icon: "codicon-extensions", Position: 0},
		{ID: TabHistory, Label: "History", Icon: "codicon-history", Position: 1},
		{ID: TabEnvironment, Label: "Environment", Icon: "codicon-symbol-variable", Position: 2},
	}
}

// TabElementID returns the stable element id of a tab control.
func TabElementID(tabID string) string {
	return "tab-" + tabID
}

// PanelElementID returns the stable element id of a tab's panel.
func PanelElementID(tabID string) string {
	return "panel-" + tabID
}
