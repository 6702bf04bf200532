package sidebar

import (
	"fmt"
	"slices"
	"sync"

	"github.com/leapstack-labs/sidebar/pkg/core"
)

// Keyboard keys understood by the tab list.
const (
	KeyArrowLeft  = "ArrowLeft"
	KeyArrowRight = "ArrowRight"
	KeyHome       = "Home"
	KeyEnd        = "End"
)

// SelectionChange describes a transition between two tabs.
type SelectionChange struct {
	From string
	To   string
}

// TabController owns the fixed tab set and the single selected tab.
type TabController struct {
	mu        sync.RWMutex
	tabs      []core.Tab
	index     map[string]int
	current   int
	listeners []func(SelectionChange)
}

// NewTabController creates a controller over tabs, selecting the first one.
// Tab ids must be unique and the set must not be empty.
func NewTabController(tabs []core.Tab) (*TabController, error) {
	if len(tabs) == 0 {
		return nil, fmt.Errorf("at least one tab is required")
	}
	index := make(map[string]int, len(tabs))
	for i, t := range tabs {
		if _, dup := index[t.ID]; dup {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateTabIDs, t.ID)
		}
		index[t.ID] = i
	}
	return &TabController{
		tabs:  append([]core.Tab(nil), tabs...),
		index: index,
	}, nil
}

// NewDefaultTabController creates a controller over core.DefaultTabs.
func NewDefaultTabController() *TabController {
	tc, err := NewTabController(core.DefaultTabs())
	if err != nil {
		panic(err) // default tabs are static and unique
	}
	return tc
}

// Tabs returns the configured tabs in display order.
func (c *TabController) Tabs() []core.Tab {
	return append([]core.Tab(nil), c.tabs...)
}

// Current returns the selected tab id.
func (c *TabController) Current() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.tabs[c.current].ID
}

// Index returns the position of id, or -1 when id is not a configured tab.
func (c *TabController) Index(id string) int {
	if i, ok := c.index[id]; ok {
		return i
	}
	return -1
}

// Has reports whether id is a configured tab.
func (c *TabController) Has(id string) bool {
	_, ok := c.index[id]
	return ok
}

// OnChange registers a listener called after every real selection change.
func (c *TabController) OnChange(fn func(SelectionChange)) {
	c.mu.Lock()
	c.listeners = append(c.listeners, fn)
	c.mu.Unlock()
}

// Select makes id the only selected tab. Selecting the current tab is a no-op
// and reports changed=false. Unknown ids return an *InvalidTabError and leave
// the selection untouched.
func (c *TabController) Select(id string) (bool, error) {
	idx, ok := c.index[id]
	if !ok {
		return false, &InvalidTabError{TabID: id}
	}
	return c.selectIndex(idx), nil
}

// SelectByKey moves the selection according to a tablist key press.
// Keys other than arrows, Home and End are ignored.
func (c *TabController) SelectByKey(key string) bool {
	c.mu.RLock()
	next, ok := NextIndex(c.current, key, len(c.tabs))
	c.mu.RUnlock()
	if !ok {
		return false
	}
	return c.selectIndex(next)
}

// Reset selects the first tab again.
func (c *TabController) Reset() bool {
	return c.selectIndex(0)
}

func (c *TabController) selectIndex(idx int) bool {
	c.mu.Lock()
	if idx == c.current {
		c.mu.Unlock()
		return false
	}
	change := SelectionChange{From: c.tabs[c.current].ID, To: c.tabs[idx].ID}
	c.current = idx
	listeners := slices.Clone(c.listeners)
	c.mu.Unlock()

	for _, fn := range listeners {
		fn(change)
	}
	return true
}

// NextIndex returns the tab index reached from current by key.
// ArrowRight and ArrowLeft wrap around; Home and End jump to the ends.
func NextIndex(current int, key string, total int) (int, bool) {
	if total <= 0 {
		return 0, false
	}
	switch key {
	case KeyArrowRight:
		return (current + 1) % total, true
	case KeyArrowLeft:
		return (current - 1 + total) % total, true
	case KeyHome:
		return 0, true
	case KeyEnd:
		return total - 1, true
	default:
		return 0, false
	}
}
