package service

import (
	"context"
	"fmt"
	"time"

	"github.com/alexanderramin/nutq/internal/domain"
	"github.com/alexanderramin/nutq/internal/flatten"
)

type forestService struct {
	live     LiveForest
	observer UseCaseObserver
}

func NewForestService(live LiveForest, observers ...UseCaseObserver) ForestService {
	return &forestService{live: live, observer: useCaseObserverOrNoop(observers)}
}

// observe runs fn as a named use case and reports it.
func (s *forestService) observe(ctx context.Context, name string, fields map[string]any, fn func() error) error {
	startedAt := time.Now().UTC()
	err := fn()
	s.observer.ObserveUseCase(ctx, UseCaseEvent{
		Name:      name,
		StartedAt: startedAt,
		Duration:  time.Since(startedAt),
		Success:   err == nil,
		Err:       err,
		Fields:    fields,
	})
	return err
}

func (s *forestService) Schemes(ctx context.Context) domain.Forest {
	return s.live.Forest()
}

func (s *forestService) AddScheme(ctx context.Context, name string, color int) (domain.Scheme, error) {
	sc := domain.NewScheme(name, color)
	err := s.observe(ctx, "add-scheme", map[string]any{"scheme_id": sc.ID}, func() error {
		return s.live.Mutate(func(f *domain.Forest) error {
			return f.InsertScheme(len(*f), sc)
		})
	})
	if err != nil {
		return domain.Scheme{}, fmt.Errorf("adding scheme: %w", err)
	}
	return sc, nil
}

func (s *forestService) RenameScheme(ctx context.Context, id, name string, color int) error {
	return s.observe(ctx, "rename-scheme", map[string]any{"scheme_id": id}, func() error {
		return s.live.Mutate(func(f *domain.Forest) error {
			i := f.SchemeIndex(id)
			if i < 0 {
				return fmt.Errorf("scheme %s: %w", id, domain.ErrSchemeNotFound)
			}
			if name != "" {
				(*f)[i].Name = name
			}
			if color != 0 {
				(*f)[i].Color = color
			}
			return nil
		})
	})
}

func (s *forestService) DeleteScheme(ctx context.Context, id string) (DeletedScheme, error) {
	var deleted DeletedScheme
	err := s.observe(ctx, "delete-scheme", map[string]any{"scheme_id": id}, func() error {
		return s.live.Mutate(func(f *domain.Forest) error {
			sc, idx, err := f.DeleteScheme(id)
			if err != nil {
				return err
			}
			deleted = DeletedScheme{Scheme: sc, Index: idx}
			return nil
		})
	})
	return deleted, err
}

func (s *forestService) RestoreScheme(ctx context.Context, deleted DeletedScheme) error {
	return s.observe(ctx, "restore-scheme", map[string]any{"scheme_id": deleted.Scheme.ID}, func() error {
		return s.live.Mutate(func(f *domain.Forest) error {
			idx := min(deleted.Index, len(*f))
			return f.InsertScheme(idx, deleted.Scheme)
		})
	})
}

func (s *forestService) SetExternalSync(ctx context.Context, id string) error {
	return s.observe(ctx, "set-external-sync", map[string]any{"scheme_id": id}, func() error {
		return s.live.Mutate(func(f *domain.Forest) error {
			return f.SetExternalSync(id)
		})
	})
}

func (s *forestService) AddItem(ctx context.Context, schemeID string, in ItemInput) (domain.Item, error) {
	it := domain.NewItem(in.Text, in.Start, in.End, in.Repeats)
	it.Indentation = in.Indentation
	err := s.observe(ctx, "add-item", map[string]any{"scheme_id": schemeID, "item_id": it.ID}, func() error {
		return s.live.Mutate(func(f *domain.Forest) error {
			return f.AddItem(schemeID, it)
		})
	})
	if err != nil {
		return domain.Item{}, err
	}
	return it, nil
}

// UpdateItem replaces the editable fields of an item, keeping its id and as
// much of its progress as the new recurrence allows.
func (s *forestService) UpdateItem(ctx context.Context, id string, in ItemInput) (domain.Item, error) {
	var updated domain.Item
	err := s.observe(ctx, "update-item", map[string]any{"item_id": id}, func() error {
		return s.live.Mutate(func(f *domain.Forest) error {
			si, ii, ok := f.FindItem(id)
			if !ok {
				return fmt.Errorf("item %s: %w", id, domain.ErrItemNotFound)
			}
			it := (*f)[si].Items[ii].Clone()
			it.Text = in.Text
			it.Start = in.Start
			it.End = in.End
			it.Indentation = in.Indentation
			if err := it.SetRepeats(in.Repeats); err != nil {
				return err
			}
			updated = it
			return f.ReplaceItem(it)
		})
	})
	return updated, err
}

func (s *forestService) DeleteItem(ctx context.Context, id string) error {
	return s.observe(ctx, "delete-item", map[string]any{"item_id": id}, func() error {
		return s.live.Mutate(func(f *domain.Forest) error {
			_, err := f.DeleteItem(id)
			return err
		})
	})
}

func (s *forestService) SetProgress(ctx context.Context, itemID string, index, value int) error {
	fields := map[string]any{"item_id": itemID, "index": index, "value": value}
	return s.observe(ctx, "set-progress", fields, func() error {
		return s.live.Mutate(func(f *domain.Forest) error {
			return f.SetOccurrenceProgress(itemID, index, value)
		})
	})
}

func (s *forestService) Upcoming(ctx context.Context, ref time.Time) []flatten.Occurrence {
	occ := flatten.Upcoming(s.live.Forest(), ref)
	flatten.Sort(occ)
	return occ
}

func (s *forestService) Incomplete(ctx context.Context) []flatten.Occurrence {
	occ := flatten.Incomplete(s.live.Forest())
	flatten.Sort(occ)
	return occ
}

func (s *forestService) Range(ctx context.Context, start, end *time.Time, mask flatten.TypeMask) []flatten.Occurrence {
	occ := flatten.Range(s.live.Forest(), start, end, mask)
	flatten.SortByInstant(occ)
	return occ
}
