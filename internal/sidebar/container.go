package sidebar

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"github.com/leapstack-labs/sidebar/pkg/core"
)

// Container composes the tab controller, the store and the renderers for a
// single viewer and forwards user actions to the host.
type Container struct {
	mu     sync.Mutex
	store  *Store
	tabs   *TabController
	sink   MessageSink
	logger *slog.Logger
	opts   RenderOptions

	renderMu    sync.Mutex
	renderers   []func(View)
	cancelStore func()
}

// ContainerConfig configures a Container.
type ContainerConfig struct {
	Store *Store
	// Tabs defaults to a controller over core.DefaultTabs.
	Tabs *TabController
	// Sink defaults to discarding outbound messages.
	Sink   MessageSink
	Logger *slog.Logger
}

// NewContainer creates a container. Store is required.
func NewContainer(cfg ContainerConfig) (*Container, error) {
	if cfg.Store == nil {
		return nil, fmt.Errorf("store is required")
	}
	if cfg.Tabs == nil {
		cfg.Tabs = NewDefaultTabController()
	}
	if cfg.Sink == nil {
		cfg.Sink = discardSink{}
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.DiscardHandler)
	}

	c := &Container{
		store:  cfg.Store,
		tabs:   cfg.Tabs,
		sink:   cfg.Sink,
		logger: cfg.Logger,
	}
	c.cancelStore = cfg.Store.OnChange(func(uint64) { c.emit() })
	return c, nil
}

// Close detaches the container from the store.
func (c *Container) Close() {
	if c.cancelStore != nil {
		c.cancelStore()
	}
}

// OnRender registers fn to receive a fresh View after every selection,
// filter or data change.
func (c *Container) OnRender(fn func(View)) {
	c.renderMu.Lock()
	c.renderers = append(c.renderers, fn)
	c.renderMu.Unlock()
}

// Tabs returns the tab controller.
func (c *Container) Tabs() *TabController {
	return c.tabs
}

// Store returns the backing data store.
func (c *Container) Store() *Store {
	return c.store
}

// View renders the current selection against one snapshot read.
func (c *Container) View() View {
	c.mu.Lock()
	defer c.mu.Unlock()
	return BuildView(c.tabs.Tabs(), c.tabs.Current(), c.store.Snapshot(), c.opts)
}

// SelectTab selects id. Unknown ids are logged and returned as an
// *InvalidTabError; the selection is left unchanged.
func (c *Container) SelectTab(id string) error {
	c.mu.Lock()
	changed, err := c.tabs.Select(id)
	c.mu.Unlock()

	if err != nil {
		c.logger.Warn("ignoring unknown tab", slog.String("tab", id))
		return err
	}
	if changed {
		c.emit()
	}
	return nil
}

// HandleTabKey moves the selection for a tablist key press.
func (c *Container) HandleTabKey(key string) bool {
	c.mu.Lock()
	changed := c.tabs.SelectByKey(key)
	c.mu.Unlock()

	if changed {
		c.emit()
	}
	return changed
}

// SetHistoryQuery sets the history search query.
func (c *Container) SetHistoryQuery(q string) {
	c.mu.Lock()
	changed := c.opts.HistoryQuery != q
	c.opts.HistoryQuery = q
	c.mu.Unlock()

	if changed {
		c.emit()
	}
}

// SetProvidersFilter sets the Providers panel filter. Unknown filters reset to all.
func (c *Container) SetProvidersFilter(f string) {
	switch f {
	case FilterContext, FilterProviders:
	default:
		f = FilterAll
	}

	c.mu.Lock()
	changed := c.providersFilter() != f
	c.opts.ProvidersFilter = f
	c.mu.Unlock()

	if changed {
		c.emit()
	}
}

// Options returns the current user filters.
func (c *Container) Options() RenderOptions {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.opts
}

func (c *Container) providersFilter() string {
	if c.opts.ProvidersFilter == "" {
		return FilterAll
	}
	return c.opts.ProvidersFilter
}

// Activate handles the primary action on an item of tabID and sends exactly
// one outbound message.
func (c *Container) Activate(ctx context.Context, tabID, itemID string) error {
	if !c.tabs.Has(tabID) {
		c.logger.Warn("ignoring activation on unknown tab", slog.String("tab", tabID))
		return &InvalidTabError{TabID: tabID}
	}

	snap := c.store.Snapshot()
	switch tabID {
	case core.TabHistory:
		entry, ok := snap.FindHistory(itemID)
		if !ok {
			return fmt.Errorf("%w: %s", ErrUnknownHistory, itemID)
		}
		return c.post(ctx, core.OutboundMessage{
			Type:  core.MessageSelectHistory,
			RunID: entry.ID,
			Run:   &entry,
		})
	case core.TabProviders:
		if i := slices.IndexFunc(snap.ContextItems, byCatalogID(itemID)); i >= 0 {
			return c.post(ctx, core.OutboundMessage{
				Type:     core.MessageAddNode,
				NodeType: string(core.ItemKindContext),
				Provider: snap.ContextItems[i].ID,
			})
		}
		if i := slices.IndexFunc(snap.Providers, byCatalogID(itemID)); i >= 0 {
			return c.post(ctx, core.OutboundMessage{
				Type:     core.MessageAddNode,
				NodeType: string(core.ItemKindProvider),
				Provider: snap.Providers[i].ID,
			})
		}
		return fmt.Errorf("%w: %s", ErrUnknownItem, itemID)
	default:
		return fmt.Errorf("%w: %s/%s", ErrUnknownItem, tabID, itemID)
	}
}

// RestoreHistory asks the host to restore the pipeline snapshot of run id.
func (c *Container) RestoreHistory(ctx context.Context, id string) error {
	entry, ok := c.store.Snapshot().FindHistory(id)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownHistory, id)
	}
	if !entry.HasSnapshot() {
		return fmt.Errorf("%w: %s", ErrNoSnapshot, id)
	}
	return c.post(ctx, core.OutboundMessage{
		Type:  core.MessageRestoreHistory,
		RunID: entry.ID,
		Run:   &entry,
	})
}

// OpenPullRequest asks the host to open the first pull request linked to run id.
func (c *Container) OpenPullRequest(ctx context.Context, id string) error {
	entry, ok := c.store.Snapshot().FindHistory(id)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownHistory, id)
	}
	for _, pr := range entry.PullRequests {
		if pr.URL != "" {
			return c.OpenExternal(ctx, pr.URL)
		}
	}
	return fmt.Errorf("%w: %s", ErrNoPullRequest, id)
}

// OpenExternal asks the host to open url.
func (c *Container) OpenExternal(ctx context.Context, url string) error {
	if url == "" {
		return errors.New("url is required")
	}
	return c.post(ctx, core.OutboundMessage{Type: core.MessageOpenExternal, URL: url})
}

// ClearHistory asks the host to clear the run history. The local list is
// left untouched until the host pushes the cleared state.
func (c *Container) ClearHistory(ctx context.Context) error {
	return c.post(ctx, core.OutboundMessage{Type: core.MessageClearHistory})
}

func (c *Container) post(ctx context.Context, msg core.OutboundMessage) error {
	if err := c.sink.PostMessage(ctx, msg); err != nil {
		c.logger.Error("failed to post message", slog.String("type", msg.Type), slog.Any("error", err))
		return fmt.Errorf("failed to post %s: %w", msg.Type, err)
	}
	c.logger.Debug("posted message", slog.String("type", msg.Type), slog.String("run", msg.RunID))
	return nil
}

func (c *Container) emit() {
	c.renderMu.Lock()
	renderers := slices.Clone(c.renderers)
	c.renderMu.Unlock()
	if len(renderers) == 0 {
		return
	}

	v := c.View()
	for _, fn := range renderers {
		fn(v)
	}
}

func byCatalogID(id string) func(core.CatalogItem) bool {
	return func(c core.CatalogItem) bool { return c.ID == id }
}
