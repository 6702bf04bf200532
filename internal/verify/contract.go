// Package verify checks rendered sidebar markup against its accessibility
// contract.
package verify

import (
	"fmt"
	"io"
	"slices"
	"strings"

	"golang.org/x/net/html"
)

// Check names.
const (
	CheckTabList          = "tablist"
	CheckTabs             = "tabs"
	CheckSingleSelect     = "single-selection"
	CheckRovingFocus      = "roving-tabindex"
	CheckControls         = "aria-controls"
	CheckLabelledBy       = "aria-labelledby"
	CheckVisiblePanel     = "visible-panel"
	CheckLists            = "lists"
	CheckItemNames        = "item-names"
	CheckUniqueIDs        = "unique-ids"
	CheckInteractiveFocus = "interactive-focus"
)

// Result is the outcome of one check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// Report collects the results of every check over one document.
type Report struct {
	Results []Result
	// Tabs, Panels and Items count the elements found.
	Tabs   int
	Panels int
	Items  int
}

// OK reports whether every check passed.
func (r Report) OK() bool {
	for _, res := range r.Results {
		if !res.Passed {
			return false
		}
	}
	return true
}

// Failed returns the failing results.
func (r Report) Failed() []Result {
	var out []Result
	for _, res := range r.Results {
		if !res.Passed {
			out = append(out, res)
		}
	}
	return out
}

// Result returns the result named name.
func (r Report) Result(name string) (Result, bool) {
	for _, res := range r.Results {
		if res.Name == name {
			return res, true
		}
	}
	return Result{}, false
}

// Check parses markup from r and runs every contract check over it.
func Check(r io.Reader) (Report, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return Report{}, fmt.Errorf("failed to parse markup: %w", err)
	}
	return CheckNode(doc), nil
}

// CheckString is Check over a string.
func CheckString(markup string) (Report, error) {
	return Check(strings.NewReader(markup))
}

// CheckNode runs every contract check over a parsed document.
func CheckNode(doc *html.Node) Report {
	d := index(doc)
	rep := Report{Tabs: len(d.tabs), Panels: len(d.panels), Items: len(d.items)}

	rep.Results = []Result{
		d.checkTabList(),
		d.checkTabs(),
		d.checkSingleSelection(),
		d.checkRovingTabIndex(),
		d.checkControls(),
		d.checkLabelledBy(),
		d.checkVisiblePanel(),
		d.checkLists(),
		d.checkItemNames(),
		d.checkInteractiveFocus(),
		d.checkUniqueIDs(),
	}
	return rep
}

type document struct {
	ids      map[string][]*html.Node
	tablists []*html.Node
	tabs     []*html.Node
	panels   []*html.Node
	lists    []*html.Node
	items    []*html.Node
}

func index(doc *html.Node) *document {
	d := &document{ids: make(map[string][]*html.Node)}

	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			if id, ok := attr(n, "id"); ok {
				d.ids[id] = append(d.ids[id], n)
			}
			switch role, _ := attr(n, "role"); role {
			case "tablist":
				d.tablists = append(d.tablists, n)
			case "tab":
				d.tabs = append(d.tabs, n)
			case "tabpanel":
				d.panels = append(d.panels, n)
			case "list":
				d.lists = append(d.lists, n)
			case "listitem":
				d.items = append(d.items, n)
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return d
}

func pass(name, detail string) Result { return Result{Name: name, Passed: true, Detail: detail} }

func fail(name, format string, args ...any) Result {
	return Result{Name: name, Detail: fmt.Sprintf(format, args...)}
}

func (d *document) checkTabList() Result {
	if len(d.tablists) != 1 {
		return fail(CheckTabList, "expected exactly one tablist, found %d", len(d.tablists))
	}
	if label, _ := attr(d.tablists[0], "aria-label"); strings.TrimSpace(label) == "" {
		return fail(CheckTabList, "tablist has no aria-label")
	}
	return pass(CheckTabList, "one labelled tablist")
}

func (d *document) checkTabs() Result {
	if len(d.tabs) == 0 {
		return fail(CheckTabs, "no tabs found")
	}
	for _, tab := range d.tabs {
		if id, _ := attr(tab, "id"); id == "" {
			return fail(CheckTabs, "tab %q has no id", textContent(tab))
		}
		if len(d.tablists) == 1 && !within(tab, d.tablists[0]) {
			return fail(CheckTabs, "tab %q is outside the tablist", textContent(tab))
		}
	}
	return pass(CheckTabs, fmt.Sprintf("%d tabs", len(d.tabs)))
}

func (d *document) checkSingleSelection() Result {
	var selected []string
	for _, tab := range d.tabs {
		switch v, _ := attr(tab, "aria-selected"); v {
		case "true":
			id, _ := attr(tab, "id")
			selected = append(selected, id)
		case "false":
		default:
			id, _ := attr(tab, "id")
			return fail(CheckSingleSelect, "tab %s has aria-selected=%q", id, v)
		}
	}
	if len(selected) != 1 {
		return fail(CheckSingleSelect, "expected one selected tab, found %d %v", len(selected), selected)
	}
	return pass(CheckSingleSelect, selected[0])
}

func (d *document) checkRovingTabIndex() Result {
	for _, tab := range d.tabs {
		id, _ := attr(tab, "id")
		sel, _ := attr(tab, "aria-selected")
		idx, _ := attr(tab, "tabindex")
		want := "-1"
		if sel == "true" {
			want = "0"
		}
		if idx != want {
			return fail(CheckRovingFocus, "tab %s has tabindex %q, want %q", id, idx, want)
		}
	}
	return pass(CheckRovingFocus, "selected tab is the only tab stop")
}

func (d *document) checkControls() Result {
	for _, tab := range d.tabs {
		id, _ := attr(tab, "id")
		controls, ok := attr(tab, "aria-controls")
		if !ok || controls == "" {
			return fail(CheckControls, "tab %s has no aria-controls", id)
		}
		targets := d.ids[controls]
		if len(targets) != 1 || !hasRole(targets[0], "tabpanel") {
			return fail(CheckControls, "tab %s controls %q, which is not a tabpanel", id, controls)
		}
	}
	return pass(CheckControls, "every tab controls a panel")
}

func (d *document) checkLabelledBy() Result {
	for _, panel := range d.panels {
		id, _ := attr(panel, "id")
		by, ok := attr(panel, "aria-labelledby")
		if !ok || by == "" {
			return fail(CheckLabelledBy, "panel %s has no aria-labelledby", id)
		}
		targets := d.ids[by]
		if len(targets) != 1 || !hasRole(targets[0], "tab") {
			return fail(CheckLabelledBy, "panel %s is labelled by %q, which is not a tab", id, by)
		}
		if controls, _ := attr(targets[0], "aria-controls"); controls != id {
			return fail(CheckLabelledBy, "panel %s and tab %s do not reference each other", id, by)
		}
	}
	return pass(CheckLabelledBy, "every panel is labelled by its tab")
}

func (d *document) checkVisiblePanel() Result {
	var visible []*html.Node
	for _, panel := range d.panels {
		if _, hidden := attr(panel, "hidden"); !hidden {
			visible = append(visible, panel)
		}
	}
	if len(visible) != 1 {
		return fail(CheckVisiblePanel, "expected one visible panel, found %d", len(visible))
	}

	id, _ := attr(visible[0], "id")
	by, _ := attr(visible[0], "aria-labelledby")
	for _, tab := range d.tabs {
		tabID, _ := attr(tab, "id")
		if tabID != by {
			continue
		}
		if sel, _ := attr(tab, "aria-selected"); sel != "true" {
			return fail(CheckVisiblePanel, "visible panel %s belongs to unselected tab %s", id, tabID)
		}
		return pass(CheckVisiblePanel, id)
	}
	return fail(CheckVisiblePanel, "visible panel %s has no tab", id)
}

func (d *document) checkLists() Result {
	for _, panel := range d.panels {
		id, _ := attr(panel, "id")
		var lists []*html.Node
		for _, l := range d.lists {
			if within(l, panel) {
				lists = append(lists, l)
			}
		}
		if len(lists) != 1 {
			return fail(CheckLists, "panel %s has %d lists, want 1", id, len(lists))
		}
		if label, _ := attr(lists[0], "aria-label"); strings.TrimSpace(label) == "" {
			return fail(CheckLists, "list in panel %s has no aria-label", id)
		}
	}
	for _, item := range d.items {
		if p := item.Parent; p == nil || !hasRole(p, "list") {
			return fail(CheckLists, "listitem %q is not inside a list", textContent(item))
		}
	}
	return pass(CheckLists, fmt.Sprintf("%d items", len(d.items)))
}

func (d *document) checkItemNames() Result {
	for _, item := range d.items {
		if name := accessibleName(item); name == "" {
			id, _ := attr(item, "id")
			return fail(CheckItemNames, "listitem %s has no accessible name", id)
		}
	}
	return pass(CheckItemNames, "every item has a name")
}

// checkInteractiveFocus requires clickable items to be focusable.
func (d *document) checkInteractiveFocus() Result {
	for _, item := range d.items {
		if _, clickable := attr(item, "data-on:click"); !clickable {
			continue
		}
		if idx, _ := attr(item, "tabindex"); idx != "0" {
			id, _ := attr(item, "id")
			return fail(CheckInteractiveFocus, "interactive item %s is not focusable", id)
		}
	}
	return pass(CheckInteractiveFocus, "interactive items are focusable")
}

func (d *document) checkUniqueIDs() Result {
	var dups []string
	for id, nodes := range d.ids {
		if len(nodes) > 1 {
			dups = append(dups, id)
		}
	}
	if len(dups) > 0 {
		slices.Sort(dups)
		return fail(CheckUniqueIDs, "duplicate ids: %s", strings.Join(dups, ", "))
	}
	return pass(CheckUniqueIDs, fmt.Sprintf("%d ids", len(d.ids)))
}

func accessibleName(n *html.Node) string {
	if label, _ := attr(n, "aria-label"); strings.TrimSpace(label) != "" {
		return label
	}
	return strings.TrimSpace(textContent(n))
}

func attr(n *html.Node, name string) (string, bool) {
	for _, a := range n.Attr {
		if a.Key == name {
			return a.Val, true
		}
	}
	return "", false
}

func hasRole(n *html.Node, role string) bool {
	v, _ := attr(n, "role")
	return v == role
}

func within(n, ancestor *html.Node) bool {
	for p := n.Parent; p != nil; p = p.Parent {
		if p == ancestor {
			return true
		}
	}
	return false
}

func textContent(n *html.Node) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return strings.Join(strings.Fields(b.String()), " ")
}
