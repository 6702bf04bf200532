package sidebar

import "github.com/leapstack-labs/sidebar/pkg/core"

// View is the structural state of the sidebar at one instant.
// Only the active panel carries items; the others are empty, hidden shells.
type View struct {
	Tabs    []TabView
	Current string
	Panels  []PanelView

	HistoryQuery    string
	ProvidersFilter string

	// Version is the store version the view was rendered from.
	Version uint64
}

// TabView is one tab control.
type TabView struct {
	Tab      core.Tab
	Selected bool
}

// PanelView is the content region of one tab.
type PanelView struct {
	TabID  string
	Active bool
	Items  []core.Item
}

// ActivePanel returns the panel of the selected tab.
func (v View) ActivePanel() PanelView {
	for _, p := range v.Panels {
		if p.Active {
			return p
		}
	}
	return PanelView{TabID: v.Current, Active: true}
}

// BuildView renders the view for the given selection and data.
func BuildView(tabs []core.Tab, current string, snap core.Snapshot, opts RenderOptions) View {
	v := View{
		Tabs:            make([]TabView, len(tabs)),
		Current:         current,
		Panels:          make([]PanelView, len(tabs)),
		HistoryQuery:    opts.HistoryQuery,
		ProvidersFilter: opts.ProvidersFilter,
		Version:         snap.Version,
	}
	for i, t := range tabs {
		active := t.ID == current
		v.Tabs[i] = TabView{Tab: t, Selected: active}
		v.Panels[i] = PanelView{TabID: t.ID, Active: active}
		if active {
			v.Panels[i].Items = RenderPanel(t.ID, snap, opts)
		}
	}
	return v
}
