package db

import (
	"database/sql"
	"fmt"
	"strings"
)

// Migrate applies every statement in order. Statements are idempotent so the
// whole list runs on each open; ALTER TABLE that finds the column already
// present is skipped.
func Migrate(db *sql.DB) error {
	for i, stmt := range migrations {
		if _, err := db.Exec(stmt); err != nil {
			if strings.Contains(err.Error(), "duplicate column name") {
				continue
			}
			return fmt.Errorf("migration %d: %w", i, err)
		}
	}
	return nil
}

var migrations = []string{
	// Forest snapshots keyed "latest" and by weekday.
	`CREATE TABLE IF NOT EXISTS snapshots (
		key  TEXT PRIMARY KEY,
		data BLOB NOT NULL
	)`,
	`ALTER TABLE snapshots ADD COLUMN updated_at TEXT NOT NULL DEFAULT ''`,

	// Local notification ledger.
	`CREATE TABLE IF NOT EXISTS notifications (
		id         TEXT PRIMARY KEY,
		fire_at    TEXT NOT NULL,
		title      TEXT NOT NULL,
		body       TEXT NOT NULL DEFAULT '',
		created_at TEXT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_notifications_fire_at ON notifications(fire_at)`,
}
