package state

import (
	"fmt"
)

// GetEnvironment returns every stored environment variable.
func (s *SQLiteStore) GetEnvironment() (map[string]string, error) {
	if s.db == nil {
		return nil, fmt.Errorf("database not opened")
	}

	rows, err := s.db.Query(`SELECT key, value FROM environment_vars`)
	if err != nil {
		return nil, fmt.Errorf("failed to get environment: %w", err)
	}
	defer func() { _ = rows.Close() }()

	env := make(map[string]string)
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return nil, fmt.Errorf("failed to scan environment var: %w", err)
		}
		env[k] = v
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate environment: %w", err)
	}
	return env, nil
}

// SetEnvironmentVar creates or updates one variable.
func (s *SQLiteStore) SetEnvironmentVar(key, value string) error {
	if s.db == nil {
		return fmt.Errorf("database not opened")
	}
	if key == "" {
		return fmt.Errorf("environment key is required")
	}

	_, err := s.db.Exec(
		`INSERT INTO environment_vars (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
		key, value,
	)
	if err != nil {
		return fmt.Errorf("failed to set environment var: %w", err)
	}
	return nil
}
