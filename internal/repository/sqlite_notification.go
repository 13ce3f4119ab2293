package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/alexanderramin/nutq/internal/db"
)

// SQLiteNotificationRepo is a local ledger standing in for a platform
// notification center. Rows stay outstanding until retracted.
type SQLiteNotificationRepo struct {
	db db.DBTX
}

func NewSQLiteNotificationRepo(conn db.DBTX) *SQLiteNotificationRepo {
	return &SQLiteNotificationRepo{db: conn}
}

// ScheduleAt inserts or replaces the notification with this id.
func (r *SQLiteNotificationRepo) ScheduleAt(ctx context.Context, id string, at time.Time, title, body string) error {
	query := `INSERT INTO notifications (id, fire_at, title, body, created_at) VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET fire_at = excluded.fire_at, title = excluded.title, body = excluded.body`
	if _, err := r.db.ExecContext(ctx, query, id, timeToString(at), title, body, nowUTC()); err != nil {
		return fmt.Errorf("scheduling notification %s: %w", id, err)
	}
	return nil
}

// Retract removes the notification. Retracting an unknown id is not an error.
func (r *SQLiteNotificationRepo) Retract(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM notifications WHERE id = ?`, id); err != nil {
		return fmt.Errorf("retracting notification %s: %w", id, err)
	}
	return nil
}

// ListDelivered returns every outstanding notification id, fired or not.
func (r *SQLiteNotificationRepo) ListDelivered(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id FROM notifications ORDER BY fire_at, id`)
	if err != nil {
		return nil, fmt.Errorf("listing notification ids: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scanning notification id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// ListDue returns notifications whose fire time is at or before now.
func (r *SQLiteNotificationRepo) ListDue(ctx context.Context, now time.Time) ([]ScheduledNotification, error) {
	return r.query(ctx, `SELECT id, fire_at, title, body, created_at FROM notifications
		WHERE fire_at <= ? ORDER BY fire_at, id`, timeToString(now))
}

func (r *SQLiteNotificationRepo) List(ctx context.Context) ([]ScheduledNotification, error) {
	return r.query(ctx, `SELECT id, fire_at, title, body, created_at FROM notifications ORDER BY fire_at, id`)
}

func (r *SQLiteNotificationRepo) query(ctx context.Context, query string, args ...any) ([]ScheduledNotification, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing notifications: %w", err)
	}
	defer rows.Close()

	var out []ScheduledNotification
	for rows.Next() {
		var n ScheduledNotification
		var fireAt, createdAt string
		if err := rows.Scan(&n.ID, &fireAt, &n.Title, &n.Body, &createdAt); err != nil {
			return nil, fmt.Errorf("scanning notification: %w", err)
		}
		if n.FireAt, err = time.Parse(time.RFC3339, fireAt); err != nil {
			return nil, fmt.Errorf("parsing fire_at of %s: %w", n.ID, err)
		}
		n.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
		out = append(out, n)
	}
	return out, rows.Err()
}
