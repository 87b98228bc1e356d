package db

import (
	"fmt"
	"strconv"
)

func (db *DB) columnExists(table, column string) (bool, error) {
	var n int
	err := db.conn.QueryRow(`SELECT COUNT(*) FROM pragma_table_info(?) WHERE name = ?`, table, column).Scan(&n)
	return n > 0, err
}

// GetSchemaVersion returns the recorded schema version, 0 for a store that
// predates version tracking.
func (db *DB) GetSchemaVersion() (int, error) {
	var raw string
	// No row, or no schema_info table yet on a brand new file.
	if err := db.conn.QueryRow(`SELECT value FROM schema_info WHERE key = 'version'`).Scan(&raw); err != nil {
		return 0, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("schema version %q: %w", raw, err)
	}
	return v, nil
}

// RunMigrations brings the store up to SchemaVersion and reports how many
// steps it recorded. Each step commits together with its version bump.
func (db *DB) RunMigrations() (int, error) {
	if v, err := db.GetSchemaVersion(); err == nil && v >= SchemaVersion {
		return 0, nil
	}

	applied := 0
	err := db.withWriteLock(func() error {
		if _, err := db.conn.Exec(`CREATE TABLE IF NOT EXISTS schema_info (key TEXT PRIMARY KEY, value TEXT NOT NULL)`); err != nil {
			return fmt.Errorf("create schema_info: %w", err)
		}
		current, err := db.GetSchemaVersion()
		if err != nil {
			return err
		}

		for _, m := range Migrations {
			if m.Version <= current {
				continue
			}
			if err := db.applyMigration(m); err != nil {
				return fmt.Errorf("migration %d (%s): %w", m.Version, m.Description, err)
			}
			applied++
		}
		return nil
	})
	return applied, err
}

func (db *DB) applyMigration(m Migration) error {
	skip := false
	if m.Present != nil {
		var err error
		if skip, err = m.Present(db); err != nil {
			return err
		}
	}

	tx, err := db.conn.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if !skip {
		if _, err := tx.Exec(m.SQL); err != nil {
			return err
		}
	}
	if _, err := tx.Exec(`INSERT OR REPLACE INTO schema_info (key, value) VALUES ('version', ?)`, strconv.Itoa(m.Version)); err != nil {
		return fmt.Errorf("record version: %w", err)
	}
	return tx.Commit()
}
