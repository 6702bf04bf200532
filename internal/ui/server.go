// Package ui serves the sidebar as a web page and exposes the host API.
package ui

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/sessions"
	"golang.org/x/sync/errgroup"

	"github.com/leapstack-labs/sidebar/internal/host"
	"github.com/leapstack-labs/sidebar/internal/sidebar"
	sidebarFeature "github.com/leapstack-labs/sidebar/internal/ui/features/sidebar"
	"github.com/leapstack-labs/sidebar/internal/ui/notifier"
	"github.com/leapstack-labs/sidebar/internal/ui/router"
	"github.com/leapstack-labs/sidebar/pkg/core"
)

// DefaultMaxHistory is how many runs are kept in the state database.
const DefaultMaxHistory = 50

// Server is the main UI server.
type Server struct {
	store        *sidebar.Store
	stateStore   core.Store
	decoder      *host.Decoder
	outbox       *host.Outbox
	sink         sidebar.MessageSink
	sessionStore *sessions.CookieStore
	notifier     *notifier.Notifier
	dataFile     string
	watch        bool
	port         int
	isDev        bool
	maxHistory   int
	maxViewers   int
	catalog      Catalog
	logger       *slog.Logger
}

// Config holds configuration for the UI server.
type Config struct {
	// Store holds the live sidebar data. A new one is created when nil.
	Store *sidebar.Store
	// StateStore persists the data between runs. Optional.
	StateStore core.Store
	// DataFile is a JSON or YAML host data file loaded at startup.
	DataFile string
	// Watch reloads DataFile whenever it changes.
	Watch bool
	// Sink receives outbound messages in addition to the outbox.
	Sink          sidebar.MessageSink
	Port          int
	SessionSecret string
	IsDev         bool
	MaxHistory    int
	MaxViewers    int
	// Catalog is used when neither the state nor the data file has one.
	Catalog Catalog
	Logger  *slog.Logger
}

// NewServer creates a new UI server instance.
func NewServer(cfg Config) *Server {
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.DiscardHandler)
	}
	if cfg.Store == nil {
		cfg.Store = sidebar.NewStore(cfg.Logger)
	}
	if cfg.MaxHistory == 0 {
		cfg.MaxHistory = DefaultMaxHistory
	}

	sessionStore := sessions.NewCookieStore([]byte(cfg.SessionSecret))
	sessionStore.MaxAge(86400 * 30) // 30 days
	sessionStore.Options.Path = "/"
	sessionStore.Options.HttpOnly = true
	sessionStore.Options.SameSite = http.SameSiteLaxMode

	outbox := host.NewOutbox(0, cfg.Logger)
	var sink sidebar.MessageSink = outbox
	if cfg.Sink != nil {
		sink = host.MultiSink{outbox, cfg.Sink}
	}

	return &Server{
		store:        cfg.Store,
		stateStore:   cfg.StateStore,
		decoder:      host.NewDecoder(cfg.Logger),
		outbox:       outbox,
		sink:         sink,
		sessionStore: sessionStore,
		notifier:     notifier.New(),
		dataFile:     cfg.DataFile,
		watch:        cfg.Watch,
		port:         cfg.Port,
		isDev:        cfg.IsDev,
		maxHistory:   cfg.MaxHistory,
		maxViewers:   cfg.MaxViewers,
		catalog:      cfg.Catalog,
		logger:       cfg.Logger,
	}
}

// Handler builds the HTTP handler of the server.
func (s *Server) Handler() (http.Handler, error) {
	r := chi.NewMux()
	r.Use(
		middleware.Logger,
		middleware.Recoverer,
		middleware.Compress(5),
	)

	err := router.SetupRoutes(r, sidebarFeature.Config{
		Store:        s.store,
		Sink:         s.sink,
		Outbox:       s.outbox,
		Decoder:      s.decoder,
		SessionStore: s.sessionStore,
		Notifier:     s.notifier,
		Logger:       s.logger,
		IsDev:        s.isDev,
		MaxViewers:   s.maxViewers,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to setup routes: %w", err)
	}
	return r, nil
}

// Load seeds the store from the state database and then the data file.
// The data file wins when both are present. Catalog lists neither source
// carries come from the configured Catalog, then the built-in one.
func (s *Server) Load() error {
	var (
		snap   core.Snapshot
		loaded bool
	)

	if s.stateStore != nil {
		persisted, err := s.stateStore.LoadSnapshot()
		if err != nil {
			return fmt.Errorf("failed to load state: %w", err)
		}
		// A configured catalog replaces the one saved by an earlier run.
		if s.catalog.ContextItems != nil {
			persisted.ContextItems = nil
		}
		if s.catalog.Providers != nil {
			persisted.Providers = nil
		}
		snap, loaded = persisted, true
		s.logger.Debug("loaded persisted state", slog.Int("history", len(persisted.History)))
	}

	if s.dataFile != "" {
		fromFile, err := s.decoder.LoadFile(s.dataFile)
		if err != nil {
			return err
		}
		snap, loaded = fromFile, true
		s.logger.Debug("loaded data file", slog.String("file", s.dataFile), slog.Int("history", len(fromFile.History)))
	}

	if loaded || s.store.Version() == 0 {
		s.store.Initialize(s.catalog.Fill(snap))
	}
	return nil
}

// Serve starts the UI server and blocks until the context is cancelled.
func (s *Server) Serve(ctx context.Context) error {
	cancel := s.store.OnChange(s.notifier.Broadcast)
	defer cancel()

	// Subscribe before loading so the initial state is persisted too.
	var updates chan uint64
	if s.stateStore != nil {
		updates = s.notifier.Subscribe()
		defer s.notifier.Unsubscribe(updates)
	}

	if err := s.Load(); err != nil {
		return err
	}

	eg, egctx := errgroup.WithContext(ctx)
	if updates != nil {
		eg.Go(func() error {
			return s.persist(egctx, updates)
		})
	}

	handler, err := s.Handler()
	if err != nil {
		return err
	}

	addr := fmt.Sprintf(":%d", s.port)
	s.logger.Info("starting UI server", "addr", fmt.Sprintf("http://localhost:%d", s.port))

	srv := &http.Server{
		Addr:    addr,
		Handler: handler,
		BaseContext: func(_ net.Listener) context.Context {
			return egctx
		},
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Start file watcher if enabled
	if s.watch && s.dataFile != "" {
		eg.Go(func() error {
			return s.decoder.WatchFile(egctx, s.dataFile, func(snap core.Snapshot) {
				s.logger.Debug("data file changed, reloading", "file", s.dataFile)
				s.store.Initialize(s.catalog.Fill(snap))
			})
		})
	}

	// Start HTTP server
	eg.Go(func() error {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	// Graceful shutdown
	eg.Go(func() error {
		<-egctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		s.logger.Debug("shutting down UI server...")
		return srv.Shutdown(shutdownCtx)
	})

	return eg.Wait()
}

// Store returns the live sidebar data.
func (s *Server) Store() *sidebar.Store {
	return s.store
}

// Outbox returns the queue of messages waiting for the host.
func (s *Server) Outbox() *host.Outbox {
	return s.outbox
}

// Notifier returns the server's notifier for SSE updates.
func (s *Server) Notifier() *notifier.Notifier {
	return s.notifier
}

// persist writes every committed version to the state database. Pings are
// coalesced by the notifier, so a burst of commits costs one write.
func (s *Server) persist(ctx context.Context, updates <-chan uint64) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case version, ok := <-updates:
			if !ok {
				return nil
			}
			if err := s.saveState(); err != nil {
				// Keep serving; the next commit retries.
				s.logger.Error("failed to persist sidebar state", slog.Uint64("version", version), slog.Any("error", err))
			}
		}
	}
}

func (s *Server) saveState() error {
	if err := s.stateStore.SaveSnapshot(s.store.Snapshot()); err != nil {
		return err
	}
	pruned, err := s.stateStore.PruneHistory(s.maxHistory)
	if err != nil {
		return err
	}
	if pruned > 0 {
		s.logger.Debug("pruned persisted history", slog.Int64("removed", pruned))
	}
	return nil
}

// Catalog overrides the built-in context items and providers. A nil list
// keeps the built-in one.
type Catalog struct {
	ContextItems []core.CatalogItem
	Providers    []core.CatalogItem
}

// Fill sets the catalog on snap for every list snap carries none of.
func (c Catalog) Fill(snap core.Snapshot) core.Snapshot {
	if snap.ContextItems == nil {
		snap.ContextItems = c.ContextItems
		if snap.ContextItems == nil {
			snap.ContextItems = core.DefaultContextItems()
		}
	}
	if snap.Providers == nil {
		snap.Providers = c.Providers
		if snap.Providers == nil {
			snap.Providers = core.DefaultProviders()
		}
	}
	return snap
}

// WithDefaultCatalog fills in the built-in context items and providers when
// snap carries none.
func WithDefaultCatalog(snap core.Snapshot) core.Snapshot {
	return Catalog{}.Fill(snap)
}
