package diff

import (
	"fmt"

	"github.com/alexanderramin/nutq/internal/domain"
)

// Apply returns a copy of f with updates applied in order. The input forest
// is never modified; an empty update list returns an equal copy.
func Apply(f domain.Forest, updates []Update) (domain.Forest, error) {
	out := f.Clone()
	for i, u := range updates {
		var err error
		out, err = applyOne(out, u)
		if err != nil {
			return nil, fmt.Errorf("applying update %d (%s %v): %w", i, u.Type, u.Path, err)
		}
	}
	return out, nil
}

func applyOne(f domain.Forest, u Update) (domain.Forest, error) {
	switch {
	case u.Type == Identity:
		var replacement domain.Forest
		if err := u.Value.Decode(&replacement); err != nil {
			return nil, err
		}
		if replacement == nil {
			replacement = domain.Forest{}
		}
		return replacement, nil

	case u.Type == Create && len(u.Path) == 1:
		if f.SchemeIndex(u.Path[0]) >= 0 {
			return f, nil
		}
		var s domain.Scheme
		if err := u.Value.Decode(&s); err != nil {
			return nil, err
		}
		s.ID = u.Path[0]
		err := f.InsertScheme(len(f), s)
		return f, err

	case u.Type == Create && len(u.Path) == 2:
		var it domain.Item
		if err := u.Value.Decode(&it); err != nil {
			return nil, err
		}
		it.ID = u.Path[1]
		if _, _, exists := f.FindItem(it.ID); exists {
			return f, f.ReplaceItem(it)
		}
		return f, f.AddItem(u.Path[0], it)

	case u.Type == Delete && len(u.Path) == 1:
		if _, _, err := f.DeleteScheme(u.Path[0]); err != nil {
			return nil, err
		}
		return f, nil

	case u.Type == Delete && len(u.Path) == 2:
		if _, err := f.DeleteItem(u.Path[1]); err != nil {
			return nil, err
		}
		return f, nil
	}
	return nil, fmt.Errorf("unsupported update")
}
