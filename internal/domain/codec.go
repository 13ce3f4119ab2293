package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"time"
)

// Wire shapes. Instants are RFC 3339 strings or null; recurrence units are
// seconds; the recurrence rule is a single-key object tagged by kind.

type itemJSON struct {
	ID          string          `json:"id"`
	State       []int           `json:"state"`
	Text        string          `json:"text"`
	Start       *time.Time      `json:"start"`
	End         *time.Time      `json:"end"`
	Repeats     json.RawMessage `json:"repeats"`
	Indentation int             `json:"indentation"`
}

type schemeJSON struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	Color         int    `json:"color"`
	SyncsExternal bool   `json:"syncs_external"`
	Items         []Item `json:"items"`
}

type blockJSON struct {
	Blocks     int     `json:"blocks"`
	Remainders []int   `json:"remainders"`
	Modulus    int     `json:"modulus"`
	Unit       float64 `json:"unit"`
}

func (r RecurrenceRule) MarshalJSON() ([]byte, error) {
	if !r.isBlock() {
		return []byte(`{"none":{}}`), nil
	}
	rem := r.Remainders
	if rem == nil {
		rem = []int{}
	}
	return json.Marshal(map[string]blockJSON{
		"block": {
			Blocks:     r.Blocks,
			Remainders: rem,
			Modulus:    r.Modulus,
			Unit:       r.Unit.Seconds(),
		},
	})
}

func (r *RecurrenceRule) UnmarshalJSON(data []byte) error {
	if isJSONNull(data) {
		*r = NoRepeat()
		return nil
	}
	var tagged map[string]json.RawMessage
	if err := json.Unmarshal(data, &tagged); err != nil {
		return fmt.Errorf("decoding recurrence: %w", err)
	}
	if len(tagged) != 1 {
		return fmt.Errorf("decoding recurrence: expected one tag, got %d", len(tagged))
	}
	for tag, body := range tagged {
		switch RecurrenceKind(tag) {
		case RepeatNone:
			*r = NoRepeat()
		case RepeatBlock:
			var b blockJSON
			if err := json.Unmarshal(body, &b); err != nil {
				return fmt.Errorf("decoding block recurrence: %w", err)
			}
			*r = BlockRepeat(b.Blocks, b.Remainders, b.Modulus, time.Duration(math.Round(b.Unit*float64(time.Second))))
		default:
			return fmt.Errorf("decoding recurrence: unknown tag %q", tag)
		}
	}
	return nil
}

func (it Item) MarshalJSON() ([]byte, error) {
	repeats, err := it.Repeats.MarshalJSON()
	if err != nil {
		return nil, err
	}
	state := it.State
	if state == nil {
		state = []int{}
	}
	return json.Marshal(itemJSON{
		ID:          it.ID,
		State:       state,
		Text:        it.Text,
		Start:       it.Start,
		End:         it.End,
		Repeats:     repeats,
		Indentation: it.Indentation,
	})
}

func (it *Item) UnmarshalJSON(data []byte) error {
	var raw itemJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("decoding item: %w", err)
	}
	var repeats RecurrenceRule
	if len(raw.Repeats) > 0 {
		if err := repeats.UnmarshalJSON(raw.Repeats); err != nil {
			return fmt.Errorf("item %s: %w", raw.ID, err)
		}
	} else {
		repeats = NoRepeat()
	}
	*it = Item{
		ID:          raw.ID,
		Text:        raw.Text,
		Start:       raw.Start,
		End:         raw.End,
		Repeats:     repeats,
		Indentation: raw.Indentation,
		State:       raw.State,
	}
	return nil
}

func (s Scheme) MarshalJSON() ([]byte, error) {
	items := s.Items
	if items == nil {
		items = []Item{}
	}
	return json.Marshal(schemeJSON{
		ID:            s.ID,
		Name:          s.Name,
		Color:         s.Color,
		SyncsExternal: s.SyncsExternal,
		Items:         items,
	})
}

func (s *Scheme) UnmarshalJSON(data []byte) error {
	var raw schemeJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("decoding scheme: %w", err)
	}
	*s = Scheme(raw)
	return nil
}

// EncodeForest serializes a forest as a JSON array of schemes.
func EncodeForest(f Forest) ([]byte, error) {
	if f == nil {
		f = Forest{}
	}
	data, err := json.Marshal([]Scheme(f))
	if err != nil {
		return nil, fmt.Errorf("encoding forest: %w", err)
	}
	return data, nil
}

// DecodeForest parses a serialized forest. Empty input and null decode to an
// empty forest.
func DecodeForest(data []byte) (Forest, error) {
	if len(bytes.TrimSpace(data)) == 0 || isJSONNull(data) {
		return Forest{}, nil
	}
	var schemes []Scheme
	if err := json.Unmarshal(data, &schemes); err != nil {
		return nil, fmt.Errorf("decoding forest: %w", err)
	}
	if schemes == nil {
		schemes = []Scheme{}
	}
	return Forest(schemes), nil
}

func isJSONNull(data []byte) bool {
	return bytes.Equal(bytes.TrimSpace(data), []byte("null"))
}
