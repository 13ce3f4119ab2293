package service

import (
	"context"
	"fmt"
	"time"

	"github.com/alexanderramin/nutq/internal/domain"
	"github.com/alexanderramin/nutq/internal/repository"
)

type backupService struct {
	live      LiveForest
	snapshots repository.SnapshotRepo
	observer  UseCaseObserver
}

func NewBackupService(live LiveForest, snapshots repository.SnapshotRepo, observers ...UseCaseObserver) BackupService {
	return &backupService{live: live, snapshots: snapshots, observer: useCaseObserverOrNoop(observers)}
}

func (s *backupService) List(ctx context.Context) ([]repository.SnapshotInfo, error) {
	return s.snapshots.List(ctx)
}

// Restore replaces the live forest with the snapshot stored under key. The
// next save cycle persists it as the latest snapshot.
func (s *backupService) Restore(ctx context.Context, key string) (restored domain.Forest, err error) {
	startedAt := time.Now().UTC()
	defer func() {
		s.observer.ObserveUseCase(ctx, UseCaseEvent{
			Name:      "restore-backup",
			StartedAt: startedAt,
			Duration:  time.Since(startedAt),
			Success:   err == nil,
			Err:       err,
			Fields:    map[string]any{"key": key, "schemes": len(restored)},
		})
	}()

	data, err := s.snapshots.Load(ctx, key)
	if err != nil {
		return nil, err
	}
	restored, err = domain.DecodeForest(data)
	if err != nil {
		return nil, fmt.Errorf("decoding backup %s: %w", key, err)
	}
	err = s.live.Mutate(func(f *domain.Forest) error {
		*f = restored.Clone()
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("restoring backup %s: %w", key, err)
	}
	return restored, nil
}
