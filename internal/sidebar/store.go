package sidebar

import (
	"log/slog"
	"slices"
	"sync"

	"github.com/leapstack-labs/sidebar/pkg/core"
)

// Store holds the host-provided data. Writers are serialized and readers get
// an isolated copy, so a reader never observes a partially applied update.
type Store struct {
	mu        sync.RWMutex
	snap      core.Snapshot
	listeners []storeListener
	nextID    int
	notifyMu  sync.Mutex
	logger    *slog.Logger
}

// NewStore creates an empty store. A nil logger discards output.
func NewStore(logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Store{logger: logger}
}

type storeListener struct {
	id int
	fn func(version uint64)
}

// OnChange registers fn to be called with the new version after every commit.
// Calls happen outside the store lock, in commit order. Listeners must not
// mutate the store. The returned func removes the listener.
func (s *Store) OnChange(fn func(version uint64)) (cancel func()) {
	s.mu.Lock()
	s.nextID++
	id := s.nextID
	s.listeners = append(s.listeners, storeListener{id: id, fn: fn})
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.listeners = slices.DeleteFunc(s.listeners, func(l storeListener) bool {
			return l.id == id
		})
	}
}

// Initialize replaces the whole state with snap. Calling it again replaces
// the state again; hosts use this to push a fresh snapshot.
func (s *Store) Initialize(snap core.Snapshot) uint64 {
	next := snap.Clone()
	next.History = dedupeHistory(next.History)

	return s.commit(func(cur *core.Snapshot) {
		next.Version = cur.Version
		*cur = next
	})
}

// ApplyUpdate merges u into the current state. History entries with an
// existing id are replaced in place; new ids are appended. Nothing is removed
// unless the update explicitly asks for it.
func (s *Store) ApplyUpdate(u core.Update) uint64 {
	if u.Empty() {
		return s.Version()
	}
	u = cloneUpdate(u)

	return s.commit(func(cur *core.Snapshot) {
		if u.ReplaceHistory {
			cur.History = dedupeHistory(u.History)
		} else {
			cur.History = upsertHistory(cur.History, u.History)
		}
		if len(u.RemoveHistory) > 0 {
			cur.History = removeHistory(cur.History, u.RemoveHistory)
		}

		if len(u.Environment) > 0 && cur.Environment == nil {
			cur.Environment = make(map[string]string, len(u.Environment))
		}
		for k, v := range u.Environment {
			cur.Environment[k] = v
		}
		for _, k := range u.RemoveEnvironment {
			delete(cur.Environment, k)
		}

		if u.CommandGroups != nil {
			cur.CommandGroups = u.CommandGroups
		}
		if u.ContextItems != nil {
			cur.ContextItems = u.ContextItems
		}
		if u.Providers != nil {
			cur.Providers = u.Providers
		}
	})
}

// Snapshot returns a deep copy of the latest committed state.
func (s *Store) Snapshot() core.Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snap.Clone()
}

// Version returns the latest committed version.
func (s *Store) Version() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snap.Version
}

func (s *Store) commit(mutate func(cur *core.Snapshot)) uint64 {
	// notifyMu keeps listener calls in commit order.
	s.notifyMu.Lock()
	defer s.notifyMu.Unlock()

	s.mu.Lock()
	mutate(&s.snap)
	s.snap.Version++
	version := s.snap.Version
	listeners := slices.Clone(s.listeners)
	s.mu.Unlock()

	s.logger.Debug("sidebar data committed", slog.Uint64("version", version))

	for _, l := range listeners {
		l.fn(version)
	}
	return version
}

func cloneUpdate(u core.Update) core.Update {
	c := core.Snapshot{
		History:       u.History,
		Environment:   u.Environment,
		CommandGroups: u.CommandGroups,
		ContextItems:  u.ContextItems,
		Providers:     u.Providers,
	}.Clone()
	u.History = c.History
	u.Environment = c.Environment
	u.CommandGroups = c.CommandGroups
	u.ContextItems = c.ContextItems
	u.Providers = c.Providers
	return u
}

// upsertHistory replaces entries with matching ids in place and appends the rest.
func upsertHistory(list, entries []core.HistoryEntry) []core.HistoryEntry {
	if len(entries) == 0 {
		return list
	}
	pos := make(map[string]int, len(list))
	for i, e := range list {
		pos[e.ID] = i
	}
	for _, e := range entries {
		if i, ok := pos[e.ID]; ok {
			list[i] = e
			continue
		}
		pos[e.ID] = len(list)
		list = append(list, e)
	}
	return list
}

// dedupeHistory keeps the first position of each id and the last value written to it.
func dedupeHistory(entries []core.HistoryEntry) []core.HistoryEntry {
	if entries == nil {
		return nil
	}
	return upsertHistory(make([]core.HistoryEntry, 0, len(entries)), entries)
}

func removeHistory(list []core.HistoryEntry, ids []string) []core.HistoryEntry {
	drop := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		drop[id] = struct{}{}
	}
	out := list[:0]
	for _, e := range list {
		if _, ok := drop[e.ID]; !ok {
			out = append(out, e)
		}
	}
	return out
}
