package repository

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when a keyed row does not exist.
var ErrNotFound = errors.New("not found")

// SnapshotInfo describes a stored snapshot without its payload.
type SnapshotInfo struct {
	Key       string
	Size      int
	UpdatedAt *time.Time
}

// ScheduledNotification is one row of the local notification ledger.
type ScheduledNotification struct {
	ID        string
	FireAt    time.Time
	Title     string
	Body      string
	CreatedAt time.Time
}

type SnapshotRepo interface {
	Save(ctx context.Context, key string, data []byte) error
	Load(ctx context.Context, key string) ([]byte, error)
	List(ctx context.Context) ([]SnapshotInfo, error)
	Delete(ctx context.Context, key string) error
}

type NotificationRepo interface {
	ScheduleAt(ctx context.Context, id string, at time.Time, title, body string) error
	Retract(ctx context.Context, id string) error
	ListDelivered(ctx context.Context) ([]string, error)
	ListDue(ctx context.Context, now time.Time) ([]ScheduledNotification, error)
	List(ctx context.Context) ([]ScheduledNotification, error)
}
