package repository

import (
	"database/sql"
	"time"
)

// Instants are stored as UTC RFC3339 text so lexical order matches time
// order in WHERE and ORDER BY clauses.
const stampLayout = time.RFC3339

func timeToString(t time.Time) string {
	return t.UTC().Format(stampLayout)
}

func nowUTC() string {
	return timeToString(time.Now())
}

// parseStamp reads an optional stamp column. Empty and malformed values
// read as unknown.
func parseStamp(s sql.NullString) *time.Time {
	if !s.Valid || s.String == "" {
		return nil
	}
	t, err := time.Parse(stampLayout, s.String)
	if err != nil {
		return nil
	}
	return &t
}
