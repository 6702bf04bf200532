// Package features provides shared test utilities for UI feature tests.
package features

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/sessions"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/sidebar/internal/host"
	"github.com/leapstack-labs/sidebar/internal/sidebar"
	"github.com/leapstack-labs/sidebar/internal/state"
	"github.com/leapstack-labs/sidebar/internal/testutil"
	"github.com/leapstack-labs/sidebar/internal/ui/notifier"
	"github.com/leapstack-labs/sidebar/pkg/core"
)

// TestFixture holds all dependencies needed for UI handler tests.
type TestFixture struct {
	Store        *sidebar.Store
	Outbox       *host.Outbox
	Notifier     *notifier.Notifier
	SessionStore *sessions.CookieStore
}

// SetupTestFixture creates a store seeded with snap whose commits are
// broadcast through the fixture notifier, as the server wires them.
func SetupTestFixture(t *testing.T, snap core.Snapshot) *TestFixture {
	t.Helper()

	logger := testutil.NewTestLogger(t)
	store := sidebar.NewStore(logger)
	store.Initialize(snap)

	notify := notifier.New()
	cancel := store.OnChange(notify.Broadcast)
	t.Cleanup(cancel)

	return &TestFixture{
		Store:        store,
		Outbox:       host.NewOutbox(0, logger),
		Notifier:     notify,
		SessionStore: NewTestSessionStore(),
	}
}

// SetupSampleFixture is SetupTestFixture over testutil.SampleSnapshot.
func SetupSampleFixture(t *testing.T) *TestFixture {
	t.Helper()
	return SetupTestFixture(t, testutil.SampleSnapshot())
}

// SetupTestStateStore creates a migrated in-memory SQLite store.
func SetupTestStateStore(t *testing.T) *state.SQLiteStore {
	t.Helper()

	store := state.NewSQLiteStore(testutil.NewTestLogger(t))
	require.NoError(t, store.Open(":memory:"))
	require.NoError(t, store.Migrate())

	t.Cleanup(func() {
		_ = store.Close()
	})
	return store
}

// RequestWithPathParam wraps a request with chi URL params.
func RequestWithPathParam(r *http.Request, kv ...string) *http.Request {
	rctx := chi.NewRouteContext()
	for i := 0; i+1 < len(kv); i += 2 {
		rctx.URLParams.Add(kv[i], kv[i+1])
	}
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

// RequestWithTimeout wraps a request with a context timeout.
func RequestWithTimeout(t *testing.T, r *http.Request, timeout time.Duration) *http.Request {
	t.Helper()
	ctx, cancel := context.WithTimeout(r.Context(), timeout)
	t.Cleanup(cancel)
	return r.WithContext(ctx)
}

// WithCookies copies the cookies set on rec onto r, so consecutive requests
// act as the same viewer.
func WithCookies(r *http.Request, rec *httptest.ResponseRecorder) *http.Request {
	for _, c := range rec.Result().Cookies() {
		r.AddCookie(c)
	}
	return r
}

// NewTestSessionStore creates a session store for testing.
func NewTestSessionStore() *sessions.CookieStore {
	return sessions.NewCookieStore([]byte("test-secret-key-32-bytes-long!!"))
}
