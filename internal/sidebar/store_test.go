package sidebar

import (
	"encoding/json"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/sidebar/internal/testutil"
	"github.com/leapstack-labs/sidebar/pkg/core"
)

func historyIDs(entries []core.HistoryEntry) []string {
	ids := make([]string, len(entries))
	for i, e := range entries {
		ids[i] = e.ID
	}
	return ids
}

func TestStore_Initialize(t *testing.T) {
	s := NewStore(testutil.NewTestLogger(t))
	assert.Equal(t, uint64(0), s.Version())

	v := s.Initialize(testutil.SampleSnapshot())
	assert.Equal(t, uint64(1), v)

	snap := s.Snapshot()
	assert.Equal(t, []string{"run-1", "run-2"}, historyIDs(snap.History))
	assert.Len(t, snap.Environment, 2)
	assert.Equal(t, uint64(1), snap.Version)
}

func TestStore_InitializeReplaces(t *testing.T) {
	s := NewStore(nil)
	s.Initialize(testutil.SampleSnapshot())

	s.Initialize(core.Snapshot{History: []core.HistoryEntry{{ID: "only", Name: "Only"}}})

	snap := s.Snapshot()
	assert.Equal(t, []string{"only"}, historyIDs(snap.History))
	assert.Empty(t, snap.Environment)
	assert.Empty(t, snap.Providers)
	assert.Equal(t, uint64(2), snap.Version)
}

func TestStore_InitializeDedupesHistory(t *testing.T) {
	s := NewStore(nil)
	s.Initialize(core.Snapshot{History: []core.HistoryEntry{
		{ID: "a", Name: "first"},
		{ID: "b", Name: "b"},
		{ID: "a", Name: "second"},
	}})

	snap := s.Snapshot()
	require.Equal(t, []string{"a", "b"}, historyIDs(snap.History))
	assert.Equal(t, "second", snap.History[0].Name)
}

func TestStore_ApplyUpdate(t *testing.T) {
	tests := []struct {
		name    string
		update  core.Update
		wantIDs []string
		check   func(t *testing.T, snap core.Snapshot)
	}{
		{
			name:    "append new run",
			update:  core.Update{History: []core.HistoryEntry{{ID: "run-3", Name: "Test Run 3", Status: core.RunStatusRunning}}},
			wantIDs: []string{"run-1", "run-2", "run-3"},
		},
		{
			name:    "duplicate id replaces in place",
			update:  core.Update{History: []core.HistoryEntry{{ID: "run-1", Name: "Renamed", Status: core.RunStatusCancelled}}},
			wantIDs: []string{"run-1", "run-2"},
			check: func(t *testing.T, snap core.Snapshot) {
				assert.Equal(t, "Renamed", snap.History[0].Name)
				assert.Equal(t, core.RunStatusCancelled, snap.History[0].Status)
			},
		},
		{
			name:    "explicit removal",
			update:  core.Update{RemoveHistory: []string{"run-1"}},
			wantIDs: []string{"run-2"},
		},
		{
			name:    "replace history",
			update:  core.Update{ReplaceHistory: true, History: []core.HistoryEntry{{ID: "x"}}},
			wantIDs: []string{"x"},
		},
		{
			name:    "environment upsert keeps history",
			update:  core.Update{Environment: map[string]string{"NODE_ENV": "prod", "NEW": "1"}},
			wantIDs: []string{"run-1", "run-2"},
			check: func(t *testing.T, snap core.Snapshot) {
				assert.Equal(t, "prod", snap.Environment["NODE_ENV"])
				assert.Equal(t, "1", snap.Environment["NEW"])
				assert.Equal(t, "http://localhost:8080", snap.Environment["API_URL"])
			},
		},
		{
			name:    "environment removal",
			update:  core.Update{RemoveEnvironment: []string{"API_URL"}},
			wantIDs: []string{"run-1", "run-2"},
			check: func(t *testing.T, snap core.Snapshot) {
				assert.NotContains(t, snap.Environment, "API_URL")
				assert.Contains(t, snap.Environment, "NODE_ENV")
			},
		},
		{
			name:    "command groups replace",
			update:  core.Update{CommandGroups: json.RawMessage(`[{"id":"g"}]`)},
			wantIDs: []string{"run-1", "run-2"},
			check: func(t *testing.T, snap core.Snapshot) {
				assert.JSONEq(t, `[{"id":"g"}]`, string(snap.CommandGroups))
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewStore(testutil.NewTestLogger(t))
			s.Initialize(testutil.SampleSnapshot())

			v := s.ApplyUpdate(tt.update)
			assert.Equal(t, uint64(2), v)

			snap := s.Snapshot()
			assert.Equal(t, tt.wantIDs, historyIDs(snap.History))
			if tt.check != nil {
				tt.check(t, snap)
			}
		})
	}
}

func TestStore_EmptyUpdateIsNoop(t *testing.T) {
	s := NewStore(nil)
	s.Initialize(testutil.SampleSnapshot())

	calls := 0
	s.OnChange(func(uint64) { calls++ })

	assert.Equal(t, uint64(1), s.ApplyUpdate(core.Update{}))
	assert.Equal(t, 0, calls)
}

func TestStore_SnapshotIsIsolated(t *testing.T) {
	s := NewStore(nil)
	s.Initialize(testutil.SampleSnapshot())

	snap := s.Snapshot()
	snap.History[0].Name = "mutated"
	snap.Environment["NODE_ENV"] = "mutated"

	fresh := s.Snapshot()
	assert.Equal(t, "Test Run 1", fresh.History[0].Name)
	assert.Equal(t, "test", fresh.Environment["NODE_ENV"])
}

func TestStore_OnChange(t *testing.T) {
	s := NewStore(nil)

	var versions []uint64
	cancel := s.OnChange(func(v uint64) { versions = append(versions, v) })

	s.Initialize(testutil.SampleSnapshot())
	s.ApplyUpdate(core.Update{RemoveHistory: []string{"run-2"}})
	cancel()
	s.ApplyUpdate(core.Update{RemoveHistory: []string{"run-1"}})

	assert.Equal(t, []uint64{1, 2}, versions)
}

func TestStore_ConcurrentWritersAreSerialized(t *testing.T) {
	s := NewStore(nil)
	s.Initialize(core.Snapshot{})

	var mu sync.Mutex
	var seen []uint64
	s.OnChange(func(v uint64) {
		mu.Lock()
		seen = append(seen, v)
		mu.Unlock()
	})

	var wg sync.WaitGroup
	for i := range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.ApplyUpdate(core.Update{History: []core.HistoryEntry{{ID: string(rune('a' + i))}}})
		}()
		wg.Add(1)
		go func() {
			defer wg.Done()
			snap := s.Snapshot()
			assert.LessOrEqual(t, len(snap.History), 20)
		}()
	}
	wg.Wait()

	assert.Len(t, s.Snapshot().History, 20)
	assert.Equal(t, uint64(21), s.Version())

	require.Len(t, seen, 20)
	for i := 1; i < len(seen); i++ {
		assert.Less(t, seen[i-1], seen[i], "versions must be delivered in commit order")
	}
}
