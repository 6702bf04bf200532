package state

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"slices"

	"github.com/leapstack-labs/sidebar/pkg/core"
)

const (
	metaCommandGroups = "command_groups"
	metaContextItems  = "context_items"
	metaProviders     = "providers"
)

// SaveSnapshot replaces the stored state with snap in one transaction.
func (s *SQLiteStore) SaveSnapshot(snap core.Snapshot) error {
	if s.db == nil {
		return fmt.Errorf("database not opened")
	}

	return s.withTx(func(tx *sql.Tx) error {
		if _, err := tx.Exec(`DELETE FROM history_entries`); err != nil {
			return fmt.Errorf("failed to reset history: %w", err)
		}
		for i, e := range snap.History {
			if err := upsertHistoryTx(tx, e, i); err != nil {
				return err
			}
		}

		if _, err := tx.Exec(`DELETE FROM environment_vars`); err != nil {
			return fmt.Errorf("failed to reset environment: %w", err)
		}
		for _, k := range slices.Sorted(maps.Keys(snap.Environment)) {
			if _, err := tx.Exec(`INSERT INTO environment_vars (key, value) VALUES (?, ?)`, k, snap.Environment[k]); err != nil {
				return fmt.Errorf("failed to save environment var %s: %w", k, err)
			}
		}

		if err := saveMetaTx(tx, metaCommandGroups, snap.CommandGroups); err != nil {
			return err
		}
		if err := saveMetaTx(tx, metaContextItems, snap.ContextItems); err != nil {
			return err
		}
		return saveMetaTx(tx, metaProviders, snap.Providers)
	})
}

// LoadSnapshot reads the stored state. An empty database yields an empty snapshot.
func (s *SQLiteStore) LoadSnapshot() (core.Snapshot, error) {
	if s.db == nil {
		return core.Snapshot{}, fmt.Errorf("database not opened")
	}

	history, err := s.ListHistory(0)
	if err != nil {
		return core.Snapshot{}, err
	}
	env, err := s.GetEnvironment()
	if err != nil {
		return core.Snapshot{}, err
	}

	snap := core.Snapshot{History: history, Environment: env}
	if err := s.loadMeta(metaCommandGroups, &snap.CommandGroups); err != nil {
		return core.Snapshot{}, err
	}
	if err := s.loadMeta(metaContextItems, &snap.ContextItems); err != nil {
		return core.Snapshot{}, err
	}
	if err := s.loadMeta(metaProviders, &snap.Providers); err != nil {
		return core.Snapshot{}, err
	}
	return snap, nil
}

func saveMetaTx(tx *sql.Tx, key string, value any) error {
	b, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", key, err)
	}
	_, err = tx.Exec(
		`INSERT INTO sidebar_meta (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
		key, string(b),
	)
	if err != nil {
		return fmt.Errorf("failed to save %s: %w", key, err)
	}
	return nil
}

func (s *SQLiteStore) loadMeta(key string, out any) error {
	var value string
	err := s.db.QueryRow(`SELECT value FROM sidebar_meta WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to load %s: %w", key, err)
	}
	if value == "null" {
		return nil
	}
	if err := json.Unmarshal([]byte(value), out); err != nil {
		return fmt.Errorf("failed to unmarshal %s: %w", key, err)
	}
	return nil
}
