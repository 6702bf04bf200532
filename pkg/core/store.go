package core

// Store persists sidebar data between sessions.
type Store interface {
	Open(path string) error
	Close() error
	Migrate() error

	// Snapshot operations
	SaveSnapshot(snap Snapshot) error
	LoadSnapshot() (Snapshot, error)

	// History operations
	ListHistory(limit int) ([]HistoryEntry, error)
	UpsertHistory(entry HistoryEntry) error
	DeleteHistory(id string) error
	ClearHistory() error
	PruneHistory(keep int) (int64, error)

	// Environment operations
	GetEnvironment() (map[string]string, error)
	SetEnvironmentVar(key, value string) error
}
