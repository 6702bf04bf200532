package sidebar

import (
	"log/slog"
	"sync"
	"time"

	sb "github.com/leapstack-labs/sidebar/internal/sidebar"
)

// DefaultMaxViewers bounds how many viewer containers are kept in memory.
const DefaultMaxViewers = 1024

// Viewers keeps one sidebar container per viewer id.
type Viewers struct {
	mu      sync.Mutex
	entries map[string]*viewerEntry
	max     int
	newFn   func() (*sb.Container, error)
	logger  *slog.Logger
}

type viewerEntry struct {
	container *sb.Container
	lastSeen  time.Time
}

// NewViewers creates a registry whose containers are built by newFn.
func NewViewers(newFn func() (*sb.Container, error), maxViewers int, logger *slog.Logger) *Viewers {
	if maxViewers <= 0 {
		maxViewers = DefaultMaxViewers
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Viewers{
		entries: make(map[string]*viewerEntry),
		max:     maxViewers,
		newFn:   newFn,
		logger:  logger,
	}
}

// Get returns the container of viewer id, creating it on first use.
// When the registry is full the least recently seen viewer is evicted.
func (v *Viewers) Get(id string) (*sb.Container, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	if e, ok := v.entries[id]; ok {
		e.lastSeen = time.Now()
		return e.container, nil
	}

	if len(v.entries) >= v.max {
		v.evictOldest()
	}

	c, err := v.newFn()
	if err != nil {
		return nil, err
	}
	v.entries[id] = &viewerEntry{container: c, lastSeen: time.Now()}
	v.logger.Debug("new viewer", slog.String("viewer", id), slog.Int("viewers", len(v.entries)))
	return c, nil
}

// Len returns the number of tracked viewers.
func (v *Viewers) Len() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return len(v.entries)
}

func (v *Viewers) evictOldest() {
	var (
		oldestID string
		oldest   time.Time
	)
	for id, e := range v.entries {
		if oldestID == "" || e.lastSeen.Before(oldest) {
			oldestID, oldest = id, e.lastSeen
		}
	}
	if e, ok := v.entries[oldestID]; ok {
		e.container.Close()
		delete(v.entries, oldestID)
	}
}
