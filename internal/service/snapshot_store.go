package service

import (
	"context"
	"database/sql"

	"github.com/alexanderramin/nutq/internal/db"
	"github.com/alexanderramin/nutq/internal/repository"
)

// SnapshotStore backs the session's disk fallback with the snapshots table.
// SaveAll writes every key in one transaction.
type SnapshotStore struct {
	snapshots repository.SnapshotRepo
	uow       db.UnitOfWork
}

func NewSnapshotStore(database *sql.DB, uow db.UnitOfWork) *SnapshotStore {
	return &SnapshotStore{
		snapshots: repository.NewSQLiteSnapshotRepo(database),
		uow:       uow,
	}
}

func (s *SnapshotStore) Save(ctx context.Context, key string, data []byte) error {
	return s.snapshots.Save(ctx, key, data)
}

func (s *SnapshotStore) Load(ctx context.Context, key string) ([]byte, error) {
	return s.snapshots.Load(ctx, key)
}

func (s *SnapshotStore) SaveAll(ctx context.Context, data []byte, keys ...string) error {
	return s.uow.WithinTx(ctx, func(ctx context.Context, tx db.DBTX) error {
		repo := repository.NewSQLiteSnapshotRepo(tx)
		for _, key := range keys {
			if err := repo.Save(ctx, key, data); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *SnapshotStore) List(ctx context.Context) ([]repository.SnapshotInfo, error) {
	return s.snapshots.List(ctx)
}
