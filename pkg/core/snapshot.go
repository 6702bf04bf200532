package core

import (
	"encoding/json"
	"maps"
)

// Snapshot is the host-provided sidebar data.
type Snapshot struct {
	History       []HistoryEntry    `json:"history"`
	Environment   map[string]string `json:"environment"`
	CommandGroups json.RawMessage   `json:"commandGroups,omitempty"`
	ContextItems  []CatalogItem     `json:"contextItems,omitempty"`
	Providers     []CatalogItem     `json:"providers,omitempty"`

	// Version increments on every committed change. Zero means never initialized.
	Version uint64 `json:"-"`
}

// Clone returns a deep copy of the snapshot.
func (s Snapshot) Clone() Snapshot {
	out := Snapshot{Version: s.Version}
	if s.History != nil {
		out.History = make([]HistoryEntry, len(s.History))
		for i, e := range s.History {
			out.History[i] = e.Clone()
		}
	}
	if s.Environment != nil {
		out.Environment = maps.Clone(s.Environment)
	}
	if s.CommandGroups != nil {
		out.CommandGroups = append(json.RawMessage(nil), s.CommandGroups...)
	}
	if s.ContextItems != nil {
		out.ContextItems = append([]CatalogItem(nil), s.ContextItems...)
	}
	if s.Providers != nil {
		out.Providers = append([]CatalogItem(nil), s.Providers...)
	}
	return out
}

// FindHistory returns the entry with the given id.
func (s Snapshot) FindHistory(id string) (HistoryEntry, bool) {
	for _, e := range s.History {
		if e.ID == id {
			return e, true
		}
	}
	return HistoryEntry{}, false
}

// Update is an incremental change pushed by the host.
// Nothing is removed unless RemoveHistory, RemoveEnvironment or ReplaceHistory say so.
type Update struct {
	// History entries are upserted by id: existing ids are replaced in place,
	// new ids are appended in the given order.
	History []HistoryEntry
	// ReplaceHistory swaps the whole list for History.
	ReplaceHistory bool
	RemoveHistory  []string

	Environment       map[string]string
	RemoveEnvironment []string

	CommandGroups json.RawMessage
	ContextItems  []CatalogItem
	Providers     []CatalogItem
}

// Empty reports whether the update changes nothing.
func (u Update) Empty() bool {
	return len(u.History) == 0 && !u.ReplaceHistory && len(u.RemoveHistory) == 0 &&
		len(u.Environment) == 0 && len(u.RemoveEnvironment) == 0 &&
		u.CommandGroups == nil && u.ContextItems == nil && u.Providers == nil
}
