package sidebar

import (
	"fmt"
	"hash/fnv"
	"strings"

	"github.com/leapstack-labs/sidebar/pkg/core"
)

// ARIA roles used by the sidebar.
const (
	RoleTabList  = "tablist"
	RoleTab      = "tab"
	RoleTabPanel = "tabpanel"
	RoleList     = "list"
	RoleListItem = "listitem"
)

// Attr is one element attribute.
type Attr struct {
	Name  string
	Value string
}

// A11yTree is the accessibility projection of a View.
type A11yTree struct {
	TabList TabListA11y
	Tabs    []TabA11y
	Panels  []PanelA11y
}

// TabListA11y describes the tab strip container.
type TabListA11y struct {
	Role  string
	Label string
}

// TabA11y describes one tab control.
type TabA11y struct {
	TabID    string
	ID       string
	Role     string
	Selected string
	Controls string
	TabIndex string
	Label    string
}

// Attrs returns the element attributes in a stable order.
func (t TabA11y) Attrs() []Attr {
	return []Attr{
		{"id", t.ID},
		{"role", t.Role},
		{"aria-selected", t.Selected},
		{"aria-controls", t.Controls},
		{"tabindex", t.TabIndex},
	}
}

// PanelA11y describes one tab panel.
type PanelA11y struct {
	TabID      string
	ID         string
	Role       string
	LabelledBy string
	Hidden     bool
	List       ListA11y
}

// Attrs returns the element attributes in a stable order.
func (p PanelA11y) Attrs() []Attr {
	attrs := []Attr{
		{"id", p.ID},
		{"role", p.Role},
		{"aria-labelledby", p.LabelledBy},
	}
	if p.Hidden {
		attrs = append(attrs, Attr{"hidden", ""})
	}
	return attrs
}

// ListA11y describes the list container inside a panel.
type ListA11y struct {
	Role  string
	Label string
	Items []ItemA11y
}

// ItemA11y describes one rendered list entry.
type ItemA11y struct {
	ID       string
	Role     string
	TabIndex string // empty when the item is not interactive
	Name     string
	Item     core.Item
}

// Attrs returns the element attributes in a stable order.
func (i ItemA11y) Attrs() []Attr {
	attrs := []Attr{
		{"id", i.ID},
		{"role", i.Role},
	}
	if i.TabIndex != "" {
		attrs = append(attrs, Attr{"tabindex", i.TabIndex})
	}
	if i.Name != "" {
		attrs = append(attrs, Attr{"aria-label", i.Name})
	}
	return attrs
}

// Bind derives every accessibility attribute from v. It holds no state of
// its own, so attributes can never drift from the selection.
func Bind(v View) A11yTree {
	tree := A11yTree{
		TabList: TabListA11y{Role: RoleTabList, Label: "Sidebar Sections"},
		Tabs:    make([]TabA11y, len(v.Tabs)),
		Panels:  make([]PanelA11y, len(v.Panels)),
	}

	for i, t := range v.Tabs {
		tree.Tabs[i] = TabA11y{
			TabID:    t.Tab.ID,
			ID:       core.TabElementID(t.Tab.ID),
			Role:     RoleTab,
			Selected: boolString(t.Selected),
			Controls: core.PanelElementID(t.Tab.ID),
			TabIndex: rovingTabIndex(t.Selected),
			Label:    t.Tab.Label,
		}
	}

	for i, p := range v.Panels {
		panel := PanelA11y{
			TabID:      p.TabID,
			ID:         core.PanelElementID(p.TabID),
			Role:       RoleTabPanel,
			LabelledBy: core.TabElementID(p.TabID),
			Hidden:     !p.Active,
			List: ListA11y{
				Role:  RoleList,
				Label: listLabel(p.TabID),
				Items: make([]ItemA11y, len(p.Items)),
			},
		}
		for j, item := range p.Items {
			panel.List.Items[j] = bindItem(p.TabID, item)
		}
		tree.Panels[i] = panel
	}

	return tree
}

// ActivePanel returns the visible panel of the tree.
func (t A11yTree) ActivePanel() (PanelA11y, bool) {
	for _, p := range t.Panels {
		if !p.Hidden {
			return p, true
		}
	}
	return PanelA11y{}, false
}

func bindItem(tabID string, item core.Item) ItemA11y {
	out := ItemA11y{
		ID:   ItemElementID(tabID, item.ID),
		Role: RoleListItem,
		Name: ItemName(item),
		Item: item,
	}
	if item.Interactive {
		out.TabIndex = "0"
	}
	return out
}

// ItemName returns the accessible name of an item.
func ItemName(item core.Item) string {
	switch item.Kind {
	case core.ItemKindContext, core.ItemKindProvider:
		return "Add " + item.Label + " node"
	case core.ItemKindHistory:
		parts := []string{item.Label, item.StatusLabel}
		if item.Time != "" {
			parts = append(parts, item.Time)
		}
		return strings.Join(parts, ", ")
	default:
		return item.Label
	}
}

// ItemElementID returns a stable element id for an item of a tab.
// Characters outside [A-Za-z0-9_-] become '_' and a hash of the raw id is
// appended, so ids that differ only in those characters stay distinct.
func ItemElementID(tabID, itemID string) string {
	var sb strings.Builder
	sb.WriteString("item-")
	sb.WriteString(tabID)
	sb.WriteByte('-')
	rewritten := false
	for _, r := range itemID {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			sb.WriteRune(r)
		default:
			sb.WriteByte('_')
			rewritten = true
		}
	}
	if rewritten {
		h := fnv.New32a()
		_, _ = h.Write([]byte(itemID))
		fmt.Fprintf(&sb, "-%08x", h.Sum32())
	}
	return sb.String()
}

func listLabel(tabID string) string {
	switch tabID {
	case core.TabProviders:
		return "Available nodes"
	case core.TabHistory:
		return "Pipeline run history"
	case core.TabEnvironment:
		return "Workspace environment variables"
	default:
		return tabID
	}
}

func rovingTabIndex(selected bool) string {
	if selected {
		return "0"
	}
	return "-1"
}

func boolString(b bool) string {
	if b {
		return "true"
	}
	return "false"
}
