package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/alexanderramin/nutq/internal/db"
)

// SQLiteSnapshotRepo stores forest snapshots as opaque blobs by key.
type SQLiteSnapshotRepo struct {
	db db.DBTX
}

func NewSQLiteSnapshotRepo(conn db.DBTX) *SQLiteSnapshotRepo {
	return &SQLiteSnapshotRepo{db: conn}
}

func (r *SQLiteSnapshotRepo) Save(ctx context.Context, key string, data []byte) error {
	query := `INSERT INTO snapshots (key, data, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET data = excluded.data, updated_at = excluded.updated_at`
	if _, err := r.db.ExecContext(ctx, query, key, data, nowUTC()); err != nil {
		return fmt.Errorf("saving snapshot %s: %w", key, err)
	}
	return nil
}

func (r *SQLiteSnapshotRepo) Load(ctx context.Context, key string) ([]byte, error) {
	var data []byte
	err := r.db.QueryRowContext(ctx, `SELECT data FROM snapshots WHERE key = ?`, key).Scan(&data)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("snapshot %s: %w", key, ErrNotFound)
		}
		return nil, fmt.Errorf("loading snapshot %s: %w", key, err)
	}
	return data, nil
}

func (r *SQLiteSnapshotRepo) List(ctx context.Context) ([]SnapshotInfo, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT key, length(data), updated_at FROM snapshots ORDER BY key`)
	if err != nil {
		return nil, fmt.Errorf("listing snapshots: %w", err)
	}
	defer rows.Close()

	var out []SnapshotInfo
	for rows.Next() {
		var info SnapshotInfo
		var updated sql.NullString
		if err := rows.Scan(&info.Key, &info.Size, &updated); err != nil {
			return nil, fmt.Errorf("scanning snapshot: %w", err)
		}
		info.UpdatedAt = parseStamp(updated)
		out = append(out, info)
	}
	return out, rows.Err()
}

func (r *SQLiteSnapshotRepo) Delete(ctx context.Context, key string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM snapshots WHERE key = ?`, key)
	if err != nil {
		return fmt.Errorf("deleting snapshot %s: %w", key, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("snapshot %s: %w", key, ErrNotFound)
	}
	return nil
}
