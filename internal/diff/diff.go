// Package diff computes the minimal update list that brings a remote copy of
// the forest in line with the local one, keyed purely on stable identifiers.
package diff

import (
	"encoding/json"
	"fmt"
	"slices"

	"github.com/alexanderramin/nutq/internal/domain"
)

type DeltaType string

const (
	Create DeltaType = "Create"
	Delete DeltaType = "Delete"
	// Identity replaces the whole remote forest; path is empty.
	Identity DeltaType = "Identity"
)

// Update is one wire record. Item updates use path [schemeID, itemID].
//
// Two records go beyond that item-level shape, and a server must accept them:
//   - Create with path [schemeID] precedes the item Creates of a new scheme.
//     Its value is the scheme without items.
//   - Delete with path [schemeID] follows the item Deletes of a removed scheme.
//     Its value is null.
//
// Identity records carry an empty path.
type Update struct {
	Path  []string  `json:"path"`
	Type  DeltaType `json:"delta_type"`
	Value Value     `json:"value"`
}

// SchemeOverview lists a scheme's item ids in order.
type SchemeOverview struct {
	ID      string   `json:"id"`
	ItemIDs []string `json:"item_ids"`
}

// Overview is the id-only digest of a forest used as the diff baseline.
type Overview []SchemeOverview

func NewOverview(f domain.Forest) Overview {
	ov := make(Overview, len(f))
	for i, s := range f {
		ids := make([]string, len(s.Items))
		for j, it := range s.Items {
			ids[j] = it.ID
		}
		ov[i] = SchemeOverview{ID: s.ID, ItemIDs: ids}
	}
	return ov
}

func (ov Overview) scheme(id string) (SchemeOverview, bool) {
	i := slices.IndexFunc(ov, func(s SchemeOverview) bool { return s.ID == id })
	if i < 0 {
		return SchemeOverview{}, false
	}
	return ov[i], true
}

// Compute diffs the forest against the last acknowledged overview.
//
// A nil prev means nothing has been acknowledged in this connection: the
// result is a single Identity update carrying the full forest. Otherwise
// schemes are visited in forest order; for each, Deletes (ids only in prev)
// come before Creates (ids only in the forest). Content edits to an item whose
// id is unchanged are not diffed. Schemes that vanished entirely are deleted
// after the forest pass.
func Compute(prev *Overview, f domain.Forest) ([]Update, error) {
	if prev == nil {
		v, err := ValueOf(f.Clone())
		if err != nil {
			return nil, fmt.Errorf("encoding identity update: %w", err)
		}
		if f == nil {
			v = Array()
		}
		return []Update{{Path: []string{}, Type: Identity, Value: v}}, nil
	}

	var updates []Update
	for _, s := range f {
		old, known := prev.scheme(s.ID)
		if !known {
			meta := s.Clone()
			meta.Items = nil
			v, err := ValueOf(meta)
			if err != nil {
				return nil, fmt.Errorf("encoding scheme %s: %w", s.ID, err)
			}
			updates = append(updates, Update{Path: []string{s.ID}, Type: Create, Value: v})
		}

		current := make(map[string]bool, len(s.Items))
		for _, it := range s.Items {
			current[it.ID] = true
		}
		for _, id := range old.ItemIDs {
			if !current[id] {
				updates = append(updates, Update{Path: []string{s.ID, id}, Type: Delete, Value: Null()})
			}
		}

		previous := make(map[string]bool, len(old.ItemIDs))
		for _, id := range old.ItemIDs {
			previous[id] = true
		}
		for _, it := range s.Items {
			if previous[it.ID] {
				continue
			}
			v, err := ValueOf(it)
			if err != nil {
				return nil, fmt.Errorf("encoding item %s: %w", it.ID, err)
			}
			updates = append(updates, Update{Path: []string{s.ID, it.ID}, Type: Create, Value: v})
		}
	}

	for _, old := range *prev {
		if f.SchemeIndex(old.ID) >= 0 {
			continue
		}
		for _, id := range old.ItemIDs {
			updates = append(updates, Update{Path: []string{old.ID, id}, Type: Delete, Value: Null()})
		}
		updates = append(updates, Update{Path: []string{old.ID}, Type: Delete, Value: Null()})
	}
	return updates, nil
}

// Encode serializes updates as the JSON array sent over the channel.
func Encode(updates []Update) ([]byte, error) {
	if updates == nil {
		updates = []Update{}
	}
	data, err := json.Marshal(updates)
	if err != nil {
		return nil, fmt.Errorf("encoding updates: %w", err)
	}
	return data, nil
}

// DecodeUpdates parses a JSON array of updates.
func DecodeUpdates(data []byte) ([]Update, error) {
	var updates []Update
	if err := json.Unmarshal(data, &updates); err != nil {
		return nil, fmt.Errorf("decoding updates: %w", err)
	}
	return updates, nil
}
