package service

import (
	"context"
	"time"

	"github.com/alexanderramin/nutq/internal/domain"
	"github.com/alexanderramin/nutq/internal/flatten"
	"github.com/alexanderramin/nutq/internal/notify"
	"github.com/alexanderramin/nutq/internal/repository"
)

// LiveForest is the holder of the authoritative in-memory forest.
// *session.Session satisfies it.
type LiveForest interface {
	Forest() domain.Forest
	Mutate(fn func(f *domain.Forest) error) error
}

// ItemInput carries the editable fields of an item.
type ItemInput struct {
	Text        string
	Start       *time.Time
	End         *time.Time
	Repeats     domain.RecurrenceRule
	Indentation int
}

type ForestService interface {
	Schemes(ctx context.Context) domain.Forest
	AddScheme(ctx context.Context, name string, color int) (domain.Scheme, error)
	RenameScheme(ctx context.Context, id, name string, color int) error
	DeleteScheme(ctx context.Context, id string) (DeletedScheme, error)
	RestoreScheme(ctx context.Context, deleted DeletedScheme) error
	SetExternalSync(ctx context.Context, id string) error

	AddItem(ctx context.Context, schemeID string, in ItemInput) (domain.Item, error)
	UpdateItem(ctx context.Context, id string, in ItemInput) (domain.Item, error)
	DeleteItem(ctx context.Context, id string) error
	SetProgress(ctx context.Context, itemID string, index, value int) error

	Upcoming(ctx context.Context, ref time.Time) []flatten.Occurrence
	Incomplete(ctx context.Context) []flatten.Occurrence
	Range(ctx context.Context, start, end *time.Time, mask flatten.TypeMask) []flatten.Occurrence
}

// DeletedScheme is what RestoreScheme needs to undo a deletion.
type DeletedScheme struct {
	Scheme domain.Scheme
	Index  int
}

type NotificationService interface {
	Reconcile(ctx context.Context, now time.Time) (notify.Plan, error)
	Due(ctx context.Context, now time.Time) ([]repository.ScheduledNotification, error)
}

type BackupService interface {
	List(ctx context.Context) ([]repository.SnapshotInfo, error)
	Restore(ctx context.Context, key string) (domain.Forest, error)
}

// UnsyncedEdits keeps a copy of a forest edited while no writer slot was
// held. Acquiring the slot replaces the local forest with the remote one, so
// the copy is what a later sync uploads or explicitly drops.
type UnsyncedEdits interface {
	Mark(ctx context.Context, f domain.Forest) error
	Load(ctx context.Context) (f domain.Forest, ok bool, err error)
	Clear(ctx context.Context) error
}
