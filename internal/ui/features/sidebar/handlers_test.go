package sidebar

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/html"

	"github.com/leapstack-labs/sidebar/internal/testutil"
	"github.com/leapstack-labs/sidebar/internal/ui/features"
	"github.com/leapstack-labs/sidebar/pkg/core"
)

// =============================================================================
// Test Setup Helpers
// =============================================================================

func setupTestHandlers(t *testing.T) (*Handlers, chi.Router, *features.TestFixture) {
	t.Helper()

	fixture := features.SetupSampleFixture(t)
	cfg := Config{
		Store:        fixture.Store,
		Outbox:       fixture.Outbox,
		SessionStore: fixture.SessionStore,
		Notifier:     fixture.Notifier,
		Logger:       testutil.NewTestLogger(t),
	}

	handlers, err := NewHandlers(cfg)
	require.NoError(t, err)

	router := chi.NewRouter()
	mount(router, handlers)

	return handlers, router, fixture
}

func do(t *testing.T, router http.Handler, method, target, body string, cookiesFrom *httptest.ResponseRecorder) *httptest.ResponseRecorder {
	t.Helper()

	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	if cookiesFrom != nil {
		req = features.WithCookies(req, cookiesFrom)
	}

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

// =============================================================================
// HTML helpers
// =============================================================================

func parseHTML(t *testing.T, body string) *html.Node {
	t.Helper()
	doc, err := html.Parse(strings.NewReader(body))
	require.NoError(t, err)
	return doc
}

func attrValue(n *html.Node, name string) (string, bool) {
	for _, a := range n.Attr {
		if a.Key == name {
			return a.Val, true
		}
	}
	return "", false
}

func findAll(n *html.Node, match func(*html.Node) bool) []*html.Node {
	var out []*html.Node
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && match(n) {
			out = append(out, n)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return out
}

func byRole(role string) func(*html.Node) bool {
	return func(n *html.Node) bool {
		v, _ := attrValue(n, "role")
		return v == role
	}
}

func byID(id string) func(*html.Node) bool {
	return func(n *html.Node) bool {
		v, _ := attrValue(n, "id")
		return v == id
	}
}

func textOf(n *html.Node) string {
	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			sb.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return sb.String()
}

func visiblePanel(t *testing.T, doc *html.Node) *html.Node {
	t.Helper()
	var visible []*html.Node
	for _, p := range findAll(doc, byRole("tabpanel")) {
		if _, hidden := attrValue(p, "hidden"); !hidden {
			visible = append(visible, p)
		}
	}
	require.Len(t, visible, 1, "exactly one panel must be visible")
	return visible[0]
}

// =============================================================================
// SidebarPage Tests
// =============================================================================

func TestSidebarPage(t *testing.T) {
	_, router, _ := setupTestHandlers(t)

	rec := do(t, router, http.MethodGet, "/", "", nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	for _, want := range []string{
		"<!doctype html>",
		"<title>Pipeline - Sidebar</title>",
		"data-init",
		"/updates",
		`id="sidebar"`,
		"/static/sidebar.css",
	} {
		assert.Contains(t, body, want, "response should contain %q", want)
	}
	assert.NotEmpty(t, rec.Result().Cookies(), "viewer cookie should be set")
}

func TestSidebarPage_AccessibilityContract(t *testing.T) {
	_, router, _ := setupTestHandlers(t)

	doc := parseHTML(t, do(t, router, http.MethodGet, "/", "", nil).Body.String())

	tablists := findAll(doc, byRole("tablist"))
	require.Len(t, tablists, 1)
	label, _ := attrValue(tablists[0], "aria-label")
	assert.Equal(t, "Sidebar Sections", label)

	tabs := findAll(doc, byRole("tab"))
	require.Len(t, tabs, 3)

	selected := 0
	for _, tab := range tabs {
		id, _ := attrValue(tab, "id")
		controls, _ := attrValue(tab, "aria-controls")
		require.True(t, strings.HasPrefix(id, "tab-"))
		assert.Equal(t, "panel-"+strings.TrimPrefix(id, "tab-"), controls)

		panels := findAll(doc, byID(controls))
		require.Len(t, panels, 1, "tab %s must control an existing panel", id)
		role, _ := attrValue(panels[0], "role")
		labelledBy, _ := attrValue(panels[0], "aria-labelledby")
		assert.Equal(t, "tabpanel", role)
		assert.Equal(t, id, labelledBy)

		sel, _ := attrValue(tab, "aria-selected")
		tabIndex, _ := attrValue(tab, "tabindex")
		if sel == "true" {
			selected++
			assert.Equal(t, "tab-providers", id)
			assert.Equal(t, "0", tabIndex)
		} else {
			assert.Equal(t, "false", sel)
			assert.Equal(t, "-1", tabIndex)
		}
	}
	assert.Equal(t, 1, selected)

	panel := visiblePanel(t, doc)
	lists := findAll(panel, byRole("list"))
	require.Len(t, lists, 1)
	items := findAll(lists[0], byRole("listitem"))
	require.Len(t, items, 7)
	for _, item := range items {
		tabIndex, _ := attrValue(item, "tabindex")
		assert.Equal(t, "0", tabIndex)
	}
}

func TestSidebarPage_HistoryTab(t *testing.T) {
	_, router, _ := setupTestHandlers(t)

	doc := parseHTML(t, do(t, router, http.MethodGet, "/?tab=history", "", nil).Body.String())

	panel := visiblePanel(t, doc)
	id, _ := attrValue(panel, "id")
	assert.Equal(t, "panel-history", id)

	items := findAll(panel, byRole("listitem"))
	require.Len(t, items, 2)

	for i, name := range []string{"Test Run 1", "Test Run 2"} {
		buttons := findAll(items[i], func(n *html.Node) bool { return n.Data == "button" })
		require.NotEmpty(t, buttons)
		assert.Contains(t, textOf(buttons[0]), name)
	}

	restore := findAll(items[1], func(n *html.Node) bool {
		l, _ := attrValue(n, "aria-label")
		return l == "Restore Test Run 2"
	})
	require.Len(t, restore, 1)
	_, disabled := attrValue(restore[0], "disabled")
	assert.True(t, disabled, "runs without a snapshot cannot be restored")

	assert.Contains(t, textOf(items[0]), "SUCCESS")
	assert.Contains(t, textOf(items[1]), "FAILURE")
	assert.Contains(t, textOf(items[0]), "1 PR")
}

func TestSidebarPage_UnknownTabQueryIsIgnored(t *testing.T) {
	_, router, _ := setupTestHandlers(t)

	rec := do(t, router, http.MethodGet, "/?tab=bogus", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	panel := visiblePanel(t, parseHTML(t, rec.Body.String()))
	id, _ := attrValue(panel, "id")
	assert.Equal(t, "panel-providers", id)
}

func TestSidebarPage_EmptyStore(t *testing.T) {
	fixture := features.SetupTestFixture(t, core.Snapshot{})
	h, err := NewHandlers(Config{Store: fixture.Store, SessionStore: fixture.SessionStore})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/?tab=history", nil)
	rec := httptest.NewRecorder()
	h.SidebarPage(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	panel := visiblePanel(t, parseHTML(t, rec.Body.String()))
	require.Len(t, findAll(panel, byRole("list")), 1)
	assert.Empty(t, findAll(panel, byRole("listitem")))
	assert.Contains(t, textOf(panel), "No runs yet")
}

// =============================================================================
// Selection Tests
// =============================================================================

func TestSelectTabSSE(t *testing.T) {
	_, router, _ := setupTestHandlers(t)

	page := do(t, router, http.MethodGet, "/", "", nil)
	rec := do(t, router, http.MethodPost, "/api/tabs/history", "", page)

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.GreaterOrEqual(t, strings.Count(body, "event:"), 1)
	assert.Contains(t, body, `id="tab-history" role="tab" aria-selected="true"`)
	assert.Contains(t, body, `id="tab-providers" role="tab" aria-selected="false"`)
	assert.Equal(t, 2, strings.Count(body, `role="listitem"`))

	// The selection belongs to the viewer and survives a reload.
	reload := parseHTML(t, do(t, router, http.MethodGet, "/", "", page).Body.String())
	id, _ := attrValue(visiblePanel(t, reload), "id")
	assert.Equal(t, "panel-history", id)
}

func TestSelectTabSSE_Invalid(t *testing.T) {
	_, router, _ := setupTestHandlers(t)

	page := do(t, router, http.MethodGet, "/", "", nil)
	rec := do(t, router, http.MethodPost, "/api/tabs/nope", "", page)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	reload := parseHTML(t, do(t, router, http.MethodGet, "/", "", page).Body.String())
	id, _ := attrValue(visiblePanel(t, reload), "id")
	assert.Equal(t, "panel-providers", id, "selection must be unchanged")
}

func TestTabKeySSE(t *testing.T) {
	tests := []struct {
		key  string
		want string
	}{
		{"ArrowLeft", "tab-environment"},
		{"ArrowRight", "tab-history"},
		{"End", "tab-environment"},
		{"Home", "tab-providers"},
		{"x", "tab-providers"},
	}

	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			_, router, _ := setupTestHandlers(t)

			rec := do(t, router, http.MethodPost, "/api/tabs/key?key="+tt.key, "", nil)
			require.Equal(t, http.StatusOK, rec.Code)
			assert.Contains(t, rec.Body.String(), `id="`+tt.want+`" role="tab" aria-selected="true"`)
		})
	}
}

func TestHistorySearchSSE(t *testing.T) {
	_, router, _ := setupTestHandlers(t)

	page := do(t, router, http.MethodGet, "/?tab=history", "", nil)
	rec := do(t, router, http.MethodPost, "/api/history/search", `{"historySearch":"failure"}`, page)

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Equal(t, 1, strings.Count(body, `role="listitem"`))
	assert.Contains(t, body, "Test Run 2")
	assert.NotContains(t, body, "Test Run 1")

	rec = do(t, router, http.MethodPost, "/api/history/search", `{"historySearch":"nothing matches"}`, page)
	assert.Contains(t, rec.Body.String(), "No runs match your search")
}

func TestProvidersFilterSSE(t *testing.T) {
	tests := []struct {
		filter string
		want   int
	}{
		{"context", 3},
		{"providers", 4},
		{"all", 7},
		{"unknown", 7},
	}

	for _, tt := range tests {
		t.Run(tt.filter, func(t *testing.T) {
			_, router, _ := setupTestHandlers(t)

			rec := do(t, router, http.MethodPost, "/api/providers/filter/"+tt.filter, "", nil)
			require.Equal(t, http.StatusOK, rec.Code)
			assert.Equal(t, tt.want, strings.Count(rec.Body.String(), `role="listitem"`))
		})
	}
}

// =============================================================================
// Action Tests
// =============================================================================

func TestActions(t *testing.T) {
	tests := []struct {
		name       string
		target     string
		wantStatus int
		want       *core.OutboundMessage
	}{
		{
			name:       "activate history",
			target:     "/api/history/run-1/activate",
			wantStatus: http.StatusNoContent,
			want:       &core.OutboundMessage{Type: core.MessageSelectHistory, RunID: "run-1"},
		},
		{
			name:       "activate unknown history",
			target:     "/api/history/missing/activate",
			wantStatus: http.StatusNotFound,
		},
		{
			name:       "restore with snapshot",
			target:     "/api/history/run-1/restore",
			wantStatus: http.StatusNoContent,
			want:       &core.OutboundMessage{Type: core.MessageRestoreHistory, RunID: "run-1"},
		},
		{
			name:       "restore without snapshot",
			target:     "/api/history/run-2/restore",
			wantStatus: http.StatusConflict,
		},
		{
			name:       "open pull request",
			target:     "/api/history/run-1/open-pr",
			wantStatus: http.StatusNoContent,
			want:       &core.OutboundMessage{Type: core.MessageOpenExternal, URL: "https://github.com/acme/app/pull/42"},
		},
		{
			name:       "clear history",
			target:     "/api/history/clear",
			wantStatus: http.StatusNoContent,
			want:       &core.OutboundMessage{Type: core.MessageClearHistory},
		},
		{
			name:       "add provider node",
			target:     "/api/items/providers/git/activate",
			wantStatus: http.StatusNoContent,
			want:       &core.OutboundMessage{Type: core.MessageAddNode, NodeType: "provider", Provider: "git"},
		},
		{
			name:       "unknown tab",
			target:     "/api/items/bogus/git/activate",
			wantStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, router, fixture := setupTestHandlers(t)

			rec := do(t, router, http.MethodPost, tt.target, "", nil)
			assert.Equal(t, tt.wantStatus, rec.Code)

			msgs := fixture.Outbox.Drain()
			if tt.want == nil {
				assert.Empty(t, msgs)
				return
			}
			require.Len(t, msgs, 1)
			assert.Equal(t, tt.want.Type, msgs[0].Type)
			assert.Equal(t, tt.want.RunID, msgs[0].RunID)
			assert.Equal(t, tt.want.URL, msgs[0].URL)
			assert.Equal(t, tt.want.Provider, msgs[0].Provider)
		})
	}
}

// =============================================================================
// Host API Tests
// =============================================================================

func TestHostMessage(t *testing.T) {
	_, router, fixture := setupTestHandlers(t)

	rec := do(t, router, http.MethodPost, "/api/host/messages",
		`{"type":"historyUpsert","run":{"id":"run-3","name":"Test Run 3","status":"running"}}`, nil)
	require.Equal(t, http.StatusAccepted, rec.Code)

	var resp struct {
		Type    string `json:"type"`
		Version uint64 `json:"version"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "historyUpsert", resp.Type)
	assert.Equal(t, uint64(2), resp.Version)

	assert.Len(t, fixture.Store.Snapshot().History, 3)
}

func TestHostMessage_Rejected(t *testing.T) {
	_, router, fixture := setupTestHandlers(t)

	for _, body := range []string{`{"type":"bogus"}`, `not json`} {
		rec := do(t, router, http.MethodPost, "/api/host/messages", body, nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code, body)
	}
	assert.Equal(t, uint64(1), fixture.Store.Version())
}

func TestHostOutbox(t *testing.T) {
	_, router, _ := setupTestHandlers(t)

	do(t, router, http.MethodPost, "/api/history/run-2/activate", "", nil)
	do(t, router, http.MethodPost, "/api/history/clear", "", nil)

	rec := do(t, router, http.MethodGet, "/api/host/outbox", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var msgs []core.OutboundMessage
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &msgs))
	require.Len(t, msgs, 2)
	assert.Equal(t, core.MessageSelectHistory, msgs[0].Type)
	assert.Equal(t, core.MessageClearHistory, msgs[1].Type)

	rec = do(t, router, http.MethodGet, "/api/host/outbox", "", nil)
	assert.JSONEq(t, `[]`, rec.Body.String())

	rec = do(t, router, http.MethodGet, "/api/host/outbox?wait=nope", "", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

// =============================================================================
// SidebarUpdates Tests - SSE endpoint for live updates only
// =============================================================================

func TestSidebarUpdates_SendsUpdateOnStoreChange(t *testing.T) {
	h, _, fixture := setupTestHandlers(t)

	req := features.RequestWithTimeout(t, httptest.NewRequest(http.MethodGet, "/updates", nil), 300*time.Millisecond)
	rec := httptest.NewRecorder()

	done := make(chan struct{})
	go func() {
		h.SidebarUpdates(rec, req)
		close(done)
	}()

	// Wait a bit then push new data, as a host would.
	time.Sleep(50 * time.Millisecond)
	fixture.Store.ApplyUpdate(core.Update{
		Providers: append(core.DefaultProviders(), core.CatalogItem{ID: "kubernetes", Label: "Kubernetes"}),
	})

	<-done

	body := rec.Body.String()
	assert.GreaterOrEqual(t, strings.Count(body, "event:"), 1, "should have at least 1 SSE event from the update")
	assert.Contains(t, body, "Kubernetes")
	assert.Equal(t, 8, strings.Count(body, `role="listitem"`))
}

func TestSidebarUpdates_NoInitialState(t *testing.T) {
	h, _, _ := setupTestHandlers(t)

	req := features.RequestWithTimeout(t, httptest.NewRequest(http.MethodGet, "/updates", nil), 50*time.Millisecond)
	rec := httptest.NewRecorder()
	h.SidebarUpdates(rec, req)

	assert.Equal(t, 0, strings.Count(rec.Body.String(), "event:"), "should have no SSE events without an update")
}

// =============================================================================
// Viewer registry
// =============================================================================

func TestViewers_EvictsLeastRecentlySeen(t *testing.T) {
	fixture := features.SetupSampleFixture(t)
	h, err := NewHandlers(Config{Store: fixture.Store, SessionStore: fixture.SessionStore, MaxViewers: 2})
	require.NoError(t, err)

	v := h.Viewers()
	a, err := v.Get("a")
	require.NoError(t, err)
	first, err := v.Get("b")
	require.NoError(t, err)
	require.NoError(t, first.SelectTab(core.TabHistory))

	time.Sleep(time.Millisecond)
	again, err := v.Get("a")
	require.NoError(t, err)
	assert.Same(t, a, again)

	_, err = v.Get("c")
	require.NoError(t, err)
	assert.Equal(t, 2, v.Len())

	// "b" was evicted, so it comes back as a fresh container.
	b, err := v.Get("b")
	require.NoError(t, err)
	assert.NotSame(t, first, b)
	assert.Equal(t, core.TabProviders, b.View().Current)
}

func TestNewHandlers_Validation(t *testing.T) {
	_, err := NewHandlers(Config{})
	require.Error(t, err)

	fixture := features.SetupSampleFixture(t)
	_, err = NewHandlers(Config{
		Store:        fixture.Store,
		SessionStore: fixture.SessionStore,
		Tabs:         []core.Tab{{ID: "x"}, {ID: "x"}},
	})
	require.Error(t, err)
}

func TestRequestWithPathParam(t *testing.T) {
	h, _, fixture := setupTestHandlers(t)

	req := features.RequestWithPathParam(httptest.NewRequest(http.MethodPost, "/", nil), "tab", "providers", "id", "terminal")
	rec := httptest.NewRecorder()
	h.ActivateItem(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, 1, fixture.Outbox.Len())
}
