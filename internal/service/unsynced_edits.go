package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/alexanderramin/nutq/internal/domain"
	"github.com/alexanderramin/nutq/internal/repository"
)

// KeyUnsynced is the snapshot key holding edits that never reached the remote.
const KeyUnsynced = "unsynced"

type unsyncedEdits struct {
	snapshots repository.SnapshotRepo
}

func NewUnsyncedEdits(snapshots repository.SnapshotRepo) UnsyncedEdits {
	return &unsyncedEdits{snapshots: snapshots}
}

func (u *unsyncedEdits) Mark(ctx context.Context, f domain.Forest) error {
	data, err := domain.EncodeForest(f)
	if err != nil {
		return err
	}
	if err := u.snapshots.Save(ctx, KeyUnsynced, data); err != nil {
		return fmt.Errorf("recording unsynced edits: %w", err)
	}
	return nil
}

func (u *unsyncedEdits) Load(ctx context.Context) (domain.Forest, bool, error) {
	data, err := u.snapshots.Load(ctx, KeyUnsynced)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	f, err := domain.DecodeForest(data)
	if err != nil {
		return nil, false, fmt.Errorf("decoding unsynced edits: %w", err)
	}
	return f, true, nil
}

func (u *unsyncedEdits) Clear(ctx context.Context) error {
	err := u.snapshots.Delete(ctx, KeyUnsynced)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return fmt.Errorf("clearing unsynced edits: %w", err)
	}
	return nil
}
