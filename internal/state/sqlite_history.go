package state

import (
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/leapstack-labs/sidebar/pkg/core"
)

const historyColumns = `id, name, timestamp_ms, status, pipeline_snapshot, steps, pull_requests`

// ListHistory returns the newest limit entries in insertion order.
// A limit of zero or less returns every entry.
func (s *SQLiteStore) ListHistory(limit int) ([]core.HistoryEntry, error) {
	if s.db == nil {
		return nil, fmt.Errorf("database not opened")
	}

	var (
		rows *sql.Rows
		err  error
	)
	if limit > 0 {
		rows, err = s.db.Query(
			`SELECT `+historyColumns+` FROM (
				SELECT * FROM history_entries ORDER BY position DESC LIMIT ?
			) ORDER BY position ASC`, limit)
	} else {
		rows, err = s.db.Query(`SELECT ` + historyColumns + ` FROM history_entries ORDER BY position ASC`)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to list history: %w", err)
	}
	defer func() { _ = rows.Close() }()

	entries := []core.HistoryEntry{}
	for rows.Next() {
		e, err := scanHistory(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate history: %w", err)
	}
	return entries, nil
}

// UpsertHistory inserts entry at the end of the list, or replaces an entry
// with the same id in place.
func (s *SQLiteStore) UpsertHistory(entry core.HistoryEntry) error {
	if s.db == nil {
		return fmt.Errorf("database not opened")
	}
	if entry.ID == "" {
		return fmt.Errorf("history entry id is required")
	}
	return s.withTx(func(tx *sql.Tx) error {
		return upsertHistoryTx(tx, entry, -1)
	})
}

// DeleteHistory removes the entry with the given id.
func (s *SQLiteStore) DeleteHistory(id string) error {
	if s.db == nil {
		return fmt.Errorf("database not opened")
	}

	res, err := s.db.Exec(`DELETE FROM history_entries WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete history entry: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("history entry not found: %s", id)
	}
	return nil
}

// ClearHistory removes every history entry.
func (s *SQLiteStore) ClearHistory() error {
	if s.db == nil {
		return fmt.Errorf("database not opened")
	}
	if _, err := s.db.Exec(`DELETE FROM history_entries`); err != nil {
		return fmt.Errorf("failed to clear history: %w", err)
	}
	return nil
}

// PruneHistory keeps the newest keep entries and returns how many were removed.
func (s *SQLiteStore) PruneHistory(keep int) (int64, error) {
	if s.db == nil {
		return 0, fmt.Errorf("database not opened")
	}
	if keep < 0 {
		keep = 0
	}

	res, err := s.db.Exec(
		`DELETE FROM history_entries WHERE id NOT IN (
			SELECT id FROM history_entries ORDER BY position DESC LIMIT ?
		)`, keep)
	if err != nil {
		return 0, fmt.Errorf("failed to prune history: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to count pruned history: %w", err)
	}
	if n > 0 {
		s.logger.Info("pruned history", "removed", n, "kept", keep)
	}
	return n, nil
}

// upsertHistoryTx writes entry. A negative position appends new ids after the
// current last entry; existing ids always keep their position.
func upsertHistoryTx(tx *sql.Tx, entry core.HistoryEntry, position int) error {
	snapshot, steps, prs, err := encodeHistoryJSON(entry)
	if err != nil {
		return err
	}

	posExpr := `?`
	args := []any{entry.ID}
	if position < 0 {
		posExpr = `(SELECT COALESCE(MAX(position), -1) + 1 FROM history_entries)`
	} else {
		args = append(args, position)
	}
	args = append(args, entry.Name, entry.Timestamp, string(entry.Status), snapshot, steps, prs)

	_, err = tx.Exec(
		`INSERT INTO history_entries (id, position, name, timestamp_ms, status, pipeline_snapshot, steps, pull_requests)
		VALUES (?, `+posExpr+`, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			timestamp_ms = excluded.timestamp_ms,
			status = excluded.status,
			pipeline_snapshot = excluded.pipeline_snapshot,
			steps = excluded.steps,
			pull_requests = excluded.pull_requests`,
		args...,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert history entry %s: %w", entry.ID, err)
	}
	return nil
}

func encodeHistoryJSON(e core.HistoryEntry) (snapshot, steps, prs sql.NullString, err error) {
	if e.HasSnapshot() {
		snapshot = sql.NullString{String: string(e.PipelineSnapshot), Valid: true}
	}
	if len(e.Steps) > 0 {
		b, mErr := json.Marshal(e.Steps)
		if mErr != nil {
			return snapshot, steps, prs, fmt.Errorf("failed to marshal steps: %w", mErr)
		}
		steps = sql.NullString{String: string(b), Valid: true}
	}
	if len(e.PullRequests) > 0 {
		b, mErr := json.Marshal(e.PullRequests)
		if mErr != nil {
			return snapshot, steps, prs, fmt.Errorf("failed to marshal pull requests: %w", mErr)
		}
		prs = sql.NullString{String: string(b), Valid: true}
	}
	return snapshot, steps, prs, nil
}

func scanHistory(rows *sql.Rows) (core.HistoryEntry, error) {
	var (
		e                    core.HistoryEntry
		status               string
		snapshot, steps, prs sql.NullString
	)
	if err := rows.Scan(&e.ID, &e.Name, &e.Timestamp, &status, &snapshot, &steps, &prs); err != nil {
		return e, fmt.Errorf("failed to scan history entry: %w", err)
	}
	e.Status = core.RunStatus(status)

	if snapshot.Valid {
		e.PipelineSnapshot = json.RawMessage(snapshot.String)
	}
	if steps.Valid {
		if err := json.Unmarshal([]byte(steps.String), &e.Steps); err != nil {
			return e, fmt.Errorf("failed to unmarshal steps of %s: %w", e.ID, err)
		}
	}
	if prs.Valid {
		if err := json.Unmarshal([]byte(prs.String), &e.PullRequests); err != nil {
			return e, fmt.Errorf("failed to unmarshal pull requests of %s: %w", e.ID, err)
		}
	}
	return e, nil
}
