package sidebar

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/gorilla/sessions"
	"github.com/starfederation/datastar-go/datastar"

	"github.com/leapstack-labs/sidebar/internal/host"
	sb "github.com/leapstack-labs/sidebar/internal/sidebar"
	"github.com/leapstack-labs/sidebar/internal/ui/features/sidebar/components"
	"github.com/leapstack-labs/sidebar/internal/ui/notifier"
	"github.com/leapstack-labs/sidebar/pkg/core"
)

const (
	sessionName = "sidebar"
	viewerKey   = "viewer"

	maxMessageBytes = 1 << 20
	maxOutboxWait   = 30 * time.Second
)

// Config holds the dependencies of the sidebar feature.
type Config struct {
	Store *sb.Store
	// Tabs defaults to core.DefaultTabs.
	Tabs []core.Tab
	// Sink receives outbound messages. Defaults to Outbox.
	Sink         sb.MessageSink
	Outbox       *host.Outbox
	Decoder      *host.Decoder
	SessionStore sessions.Store
	Notifier     *notifier.Notifier
	Logger       *slog.Logger
	IsDev        bool
	MaxViewers   int
}

// Handlers provides HTTP handlers for the sidebar feature.
type Handlers struct {
	store        *sb.Store
	outbox       *host.Outbox
	decoder      *host.Decoder
	sessionStore sessions.Store
	notifier     *notifier.Notifier
	viewers      *Viewers
	logger       *slog.Logger
	isDev        bool
}

// HistorySearchSignals is the datastar signal payload of the history search box.
type HistorySearchSignals struct {
	HistorySearch string `json:"historySearch"`
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(cfg Config) (*Handlers, error) {
	if cfg.Store == nil {
		return nil, fmt.Errorf("store is required")
	}
	if cfg.SessionStore == nil {
		return nil, fmt.Errorf("session store is required")
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.DiscardHandler)
	}
	if cfg.Notifier == nil {
		cfg.Notifier = notifier.New()
	}
	if cfg.Outbox == nil {
		cfg.Outbox = host.NewOutbox(0, cfg.Logger)
	}
	if cfg.Sink == nil {
		cfg.Sink = cfg.Outbox
	}
	if cfg.Decoder == nil {
		cfg.Decoder = host.NewDecoder(cfg.Logger)
	}
	tabs := cfg.Tabs
	if len(tabs) == 0 {
		tabs = core.DefaultTabs()
	}
	if _, err := sb.NewTabController(tabs); err != nil {
		return nil, fmt.Errorf("invalid tabs: %w", err)
	}

	newContainer := func() (*sb.Container, error) {
		tc, err := sb.NewTabController(tabs)
		if err != nil {
			return nil, err
		}
		return sb.NewContainer(sb.ContainerConfig{
			Store:  cfg.Store,
			Tabs:   tc,
			Sink:   cfg.Sink,
			Logger: cfg.Logger,
		})
	}

	return &Handlers{
		store:        cfg.Store,
		outbox:       cfg.Outbox,
		decoder:      cfg.Decoder,
		sessionStore: cfg.SessionStore,
		notifier:     cfg.Notifier,
		viewers:      NewViewers(newContainer, cfg.MaxViewers, cfg.Logger),
		logger:       cfg.Logger,
		isDev:        cfg.IsDev,
	}, nil
}

// SidebarPage renders the full page. ?tab= preselects a tab; unknown ids
// are ignored.
func (h *Handlers) SidebarPage(w http.ResponseWriter, r *http.Request) {
	c, err := h.viewer(w, r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	if tab := r.URL.Query().Get("tab"); tab != "" {
		_ = c.SelectTab(tab)
	}

	if err := components.Page("Pipeline", h.isDev, c.View()).Render(r.Context(), w); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

// SidebarUpdates is the long-lived SSE endpoint. It does not send the
// initial state; that is rendered by SidebarPage.
func (h *Handlers) SidebarUpdates(w http.ResponseWriter, r *http.Request) {
	c, err := h.viewer(w, r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	sse := datastar.NewSSE(w, r)

	updates := h.notifier.Subscribe()
	defer h.notifier.Unsubscribe(updates)

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case <-updates:
			if err := sse.PatchElementTempl(components.Sidebar(c.View())); err != nil {
				_ = sse.ConsoleError(err)
				// Keep trying on the next update.
			}
		}
	}
}

// SelectTabSSE selects the tab named in the URL and patches the sidebar.
func (h *Handlers) SelectTabSSE(w http.ResponseWriter, r *http.Request) {
	c, err := h.viewer(w, r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	if err := c.SelectTab(chi.URLParam(r, "tab")); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	h.patch(w, r, c)
}

// TabKeySSE moves the selection for a tablist key press.
func (h *Handlers) TabKeySSE(w http.ResponseWriter, r *http.Request) {
	c, err := h.viewer(w, r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	c.HandleTabKey(r.URL.Query().Get("key"))
	h.patch(w, r, c)
}

// HistorySearchSSE applies the historySearch signal.
func (h *Handlers) HistorySearchSSE(w http.ResponseWriter, r *http.Request) {
	c, err := h.viewer(w, r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	// Read signals BEFORE creating SSE (SSE consumes the request body)
	var signals HistorySearchSignals
	if err := datastar.ReadSignals(r, &signals); err != nil {
		http.Error(w, "failed to read signals: "+err.Error(), http.StatusBadRequest)
		return
	}

	c.SetHistoryQuery(signals.HistorySearch)
	h.patch(w, r, c)
}

// ProvidersFilterSSE sets the Providers panel filter.
func (h *Handlers) ProvidersFilterSSE(w http.ResponseWriter, r *http.Request) {
	c, err := h.viewer(w, r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	c.SetProvidersFilter(chi.URLParam(r, "filter"))
	h.patch(w, r, c)
}

// ActivateHistory selects a run on the host.
func (h *Handlers) ActivateHistory(w http.ResponseWriter, r *http.Request) {
	h.action(w, r, func(ctx context.Context, c *sb.Container) error {
		return c.Activate(ctx, core.TabHistory, chi.URLParam(r, "id"))
	})
}

// RestoreHistory asks the host to restore a run's pipeline snapshot.
func (h *Handlers) RestoreHistory(w http.ResponseWriter, r *http.Request) {
	h.action(w, r, func(ctx context.Context, c *sb.Container) error {
		return c.RestoreHistory(ctx, chi.URLParam(r, "id"))
	})
}

// OpenPullRequest asks the host to open a run's pull request.
func (h *Handlers) OpenPullRequest(w http.ResponseWriter, r *http.Request) {
	h.action(w, r, func(ctx context.Context, c *sb.Container) error {
		return c.OpenPullRequest(ctx, chi.URLParam(r, "id"))
	})
}

// ClearHistory asks the host to clear the run history.
func (h *Handlers) ClearHistory(w http.ResponseWriter, r *http.Request) {
	h.action(w, r, func(ctx context.Context, c *sb.Container) error {
		return c.ClearHistory(ctx)
	})
}

// ActivateItem activates a catalog item of a panel.
func (h *Handlers) ActivateItem(w http.ResponseWriter, r *http.Request) {
	h.action(w, r, func(ctx context.Context, c *sb.Container) error {
		return c.Activate(ctx, chi.URLParam(r, "tab"), chi.URLParam(r, "id"))
	})
}

// HostMessage applies an inbound host message to the store.
func (h *Handlers) HostMessage(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxMessageBytes))
	if err != nil {
		http.Error(w, "failed to read message: "+err.Error(), http.StatusRequestEntityTooLarge)
		return
	}

	msg, err := h.decoder.DecodeJSON(body)
	if err != nil {
		h.logger.Warn("rejected host message", slog.Any("error", err))
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	version := msg.Apply(h.store)
	h.logger.Debug("applied host message", slog.String("type", msg.Type), slog.Uint64("version", version))

	writeJSON(w, http.StatusAccepted, map[string]any{"type": msg.Type, "version": version})
}

// HostOutbox drains queued outbound messages. ?wait=<duration> long-polls
// until at least one message is queued.
func (h *Handlers) HostOutbox(w http.ResponseWriter, r *http.Request) {
	if raw := r.URL.Query().Get("wait"); raw != "" {
		wait, err := time.ParseDuration(raw)
		if err != nil {
			http.Error(w, "invalid wait: "+err.Error(), http.StatusBadRequest)
			return
		}
		ctx, cancel := context.WithTimeout(r.Context(), min(wait, maxOutboxWait))
		defer cancel()
		_ = h.outbox.Wait(ctx)
	}

	writeJSON(w, http.StatusOK, h.outbox.Drain())
}

// Viewers returns the per-viewer container registry.
func (h *Handlers) Viewers() *Viewers {
	return h.viewers
}

// viewer returns the caller's container, assigning a viewer id on first visit.
func (h *Handlers) viewer(w http.ResponseWriter, r *http.Request) (*sb.Container, error) {
	session, err := h.sessionStore.Get(r, sessionName)
	if err != nil {
		// A stale or foreign cookie yields a fresh session.
		h.logger.Debug("discarding invalid session", slog.Any("error", err))
	}

	id, _ := session.Values[viewerKey].(string)
	if id == "" {
		id = uuid.NewString()
		session.Values[viewerKey] = id
		if err := session.Save(r, w); err != nil {
			return nil, fmt.Errorf("failed to save session: %w", err)
		}
	}
	return h.viewers.Get(id)
}

func (h *Handlers) patch(w http.ResponseWriter, r *http.Request, c *sb.Container) {
	sse := datastar.NewSSE(w, r)
	if err := sse.PatchElementTempl(components.Sidebar(c.View())); err != nil {
		_ = sse.ConsoleError(err)
	}
}

func (h *Handlers) action(w http.ResponseWriter, r *http.Request, fn func(ctx context.Context, c *sb.Container) error) {
	c, err := h.viewer(w, r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	if err := fn(r.Context(), c); err != nil {
		http.Error(w, err.Error(), actionStatus(err))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func actionStatus(err error) int {
	switch {
	case errors.Is(err, sb.ErrInvalidTab):
		return http.StatusBadRequest
	case errors.Is(err, sb.ErrUnknownHistory), errors.Is(err, sb.ErrUnknownItem):
		return http.StatusNotFound
	case errors.Is(err, sb.ErrNoSnapshot), errors.Is(err, sb.ErrNoPullRequest):
		return http.StatusConflict
	default:
		return http.StatusBadGateway
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
