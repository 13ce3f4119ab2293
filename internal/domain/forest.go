package domain

import (
	"errors"
	"fmt"
	"slices"
)

var (
	ErrSchemeNotFound  = errors.New("scheme not found")
	ErrItemNotFound    = errors.New("item not found")
	ErrInvalidProgress = errors.New("invalid occurrence progress")
	ErrDuplicateID     = errors.New("duplicate identifier")
)

// Forest is the ordered list of schemes; the unit of persistence and sync.
type Forest []Scheme

// Clone deep-copies the forest so the result can be read while the original
// keeps being edited.
func (f Forest) Clone() Forest {
	if f == nil {
		return nil
	}
	out := make(Forest, len(f))
	for i := range f {
		out[i] = f[i].Clone()
	}
	return out
}

func (f Forest) SchemeIndex(schemeID string) int {
	return slices.IndexFunc(f, func(s Scheme) bool { return s.ID == schemeID })
}

// FindItem locates an item by id across all schemes.
func (f Forest) FindItem(itemID string) (schemeIdx, itemIdx int, ok bool) {
	for si := range f {
		if ii := f[si].ItemIndex(itemID); ii >= 0 {
			return si, ii, true
		}
	}
	return -1, -1, false
}

func (f Forest) ItemCount() int {
	n := 0
	for _, s := range f {
		n += len(s.Items)
	}
	return n
}

// Equal compares two forests structurally, scheme order and item order included.
func (f Forest) Equal(o Forest) bool {
	return slices.EqualFunc(f, o, func(a, b Scheme) bool {
		return a.ID == b.ID &&
			a.Name == b.Name &&
			a.Color == b.Color &&
			a.SyncsExternal == b.SyncsExternal &&
			slices.EqualFunc(a.Items, b.Items, Item.Equal)
	})
}

// Validate checks every scheme and item and that identifiers are unique
// across the whole forest.
func (f Forest) Validate() error {
	seen := make(map[string]bool)
	for i := range f {
		s := &f[i]
		if err := s.Validate(); err != nil {
			return err
		}
		if seen[s.ID] {
			return fmt.Errorf("scheme %s: %w", s.ID, ErrDuplicateID)
		}
		seen[s.ID] = true
		for _, it := range s.Items {
			if seen[it.ID] {
				return fmt.Errorf("item %s: %w", it.ID, ErrDuplicateID)
			}
			seen[it.ID] = true
		}
	}
	return nil
}

// SetOccurrenceProgress writes one progress cell of an item. This is the only
// way callers change occurrence state.
func (f Forest) SetOccurrenceProgress(itemID string, index, value int) error {
	si, ii, ok := f.FindItem(itemID)
	if !ok {
		return fmt.Errorf("item %s: %w", itemID, ErrItemNotFound)
	}
	it := &f[si].Items[ii]
	if index < 0 || index >= len(it.State) {
		return fmt.Errorf("item %s occurrence %d of %d: %w", itemID, index, len(it.State), ErrInvalidProgress)
	}
	if value < ProgressComplete {
		return fmt.Errorf("item %s progress %d: %w", itemID, value, ErrInvalidProgress)
	}
	it.State[index] = value
	return nil
}

// InsertScheme places s at index; an index equal to len(f) appends.
func (f *Forest) InsertScheme(index int, s Scheme) error {
	if index < 0 || index > len(*f) {
		return fmt.Errorf("scheme index %d out of range 0..%d", index, len(*f))
	}
	if f.SchemeIndex(s.ID) >= 0 {
		return fmt.Errorf("scheme %s: %w", s.ID, ErrDuplicateID)
	}
	*f = slices.Insert(*f, index, s)
	return nil
}

// DeleteScheme removes a scheme and returns it with its former index so the
// deletion can be undone with InsertScheme.
func (f *Forest) DeleteScheme(schemeID string) (Scheme, int, error) {
	idx := f.SchemeIndex(schemeID)
	if idx < 0 {
		return Scheme{}, -1, fmt.Errorf("scheme %s: %w", schemeID, ErrSchemeNotFound)
	}
	removed := (*f)[idx]
	*f = slices.Delete(*f, idx, idx+1)
	return removed, idx, nil
}

// AddItem appends an item to a scheme.
func (f Forest) AddItem(schemeID string, it Item) error {
	idx := f.SchemeIndex(schemeID)
	if idx < 0 {
		return fmt.Errorf("scheme %s: %w", schemeID, ErrSchemeNotFound)
	}
	if _, _, dup := f.FindItem(it.ID); dup {
		return fmt.Errorf("item %s: %w", it.ID, ErrDuplicateID)
	}
	it.ResizeState()
	f[idx].Items = append(f[idx].Items, it)
	return nil
}

// ReplaceItem swaps the stored item with the same id, keeping its position.
func (f Forest) ReplaceItem(it Item) error {
	si, ii, ok := f.FindItem(it.ID)
	if !ok {
		return fmt.Errorf("item %s: %w", it.ID, ErrItemNotFound)
	}
	it.ResizeState()
	f[si].Items[ii] = it
	return nil
}

// DeleteItem removes an item and returns it.
func (f Forest) DeleteItem(itemID string) (Item, error) {
	si, ii, ok := f.FindItem(itemID)
	if !ok {
		return Item{}, fmt.Errorf("item %s: %w", itemID, ErrItemNotFound)
	}
	removed := f[si].Items[ii]
	f[si].Items = slices.Delete(f[si].Items, ii, ii+1)
	return removed, nil
}

// SetExternalSync flags one scheme for external calendar sync and clears the
// flag everywhere else. An empty id clears all flags.
func (f Forest) SetExternalSync(schemeID string) error {
	if schemeID != "" && f.SchemeIndex(schemeID) < 0 {
		return fmt.Errorf("scheme %s: %w", schemeID, ErrSchemeNotFound)
	}
	for i := range f {
		f[i].SyncsExternal = f[i].ID == schemeID
	}
	return nil
}

// ExternalScheme returns the scheme flagged for external sync, if any.
func (f Forest) ExternalScheme() (Scheme, bool) {
	for _, s := range f {
		if s.SyncsExternal {
			return s, true
		}
	}
	return Scheme{}, false
}
