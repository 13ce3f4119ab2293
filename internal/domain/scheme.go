package domain

import (
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"
)

// Item is a single schedulable entry inside a Scheme.
//
// State holds one progress cell per occurrence of Repeats; its length always
// matches Repeats.Count() after ResizeState.
type Item struct {
	ID          string
	Text        string
	Start       *time.Time
	End         *time.Time
	Repeats     RecurrenceRule
	Indentation int
	State       []int
}

// NewItem creates an item with a fresh identifier and all occurrences pending.
func NewItem(text string, start, end *time.Time, repeats RecurrenceRule) Item {
	it := Item{
		ID:      uuid.New().String(),
		Text:    text,
		Start:   cloneTime(start),
		End:     cloneTime(end),
		Repeats: repeats.Clone(),
	}
	it.ResizeState()
	return it
}

func (it *Item) Type() ItemType {
	switch {
	case it.Start != nil && it.End != nil:
		return TypeEvent
	case it.End != nil:
		return TypeAssignment
	case it.Start != nil:
		return TypeReminder
	default:
		return TypeProcedure
	}
}

func (it *Item) Spans() []Span {
	return it.Repeats.Expand(it.Start, it.End)
}

// ResizeState pads new cells as pending and truncates excess from the end.
func (it *Item) ResizeState() {
	n := it.Repeats.Count()
	switch {
	case len(it.State) > n:
		it.State = it.State[:n]
	case len(it.State) < n:
		it.State = append(it.State, make([]int, n-len(it.State))...)
	}
}

// SetRepeats replaces the recurrence rule and keeps State in step with it.
func (it *Item) SetRepeats(r RecurrenceRule) error {
	if err := r.Validate(); err != nil {
		return fmt.Errorf("item %s: %w", it.ID, err)
	}
	it.Repeats = r.Clone()
	it.ResizeState()
	return nil
}

// Progress returns the state cell for an occurrence. Missing cells read as pending.
func (it *Item) Progress(index int) int {
	if index < 0 || index >= len(it.State) {
		return ProgressPending
	}
	return it.State[index]
}

func (it Item) Clone() Item {
	it.Start = cloneTime(it.Start)
	it.End = cloneTime(it.End)
	it.Repeats = it.Repeats.Clone()
	it.State = slices.Clone(it.State)
	return it
}

// Equal reports structural equality, identifier included.
func (it Item) Equal(o Item) bool {
	return it.ID == o.ID &&
		it.Text == o.Text &&
		it.Indentation == o.Indentation &&
		equalTime(it.Start, o.Start) &&
		equalTime(it.End, o.End) &&
		it.Repeats.Equal(o.Repeats) &&
		slices.Equal(it.State, o.State)
}

func (it *Item) Validate() error {
	if it.ID == "" {
		return fmt.Errorf("item %q has no id", it.Text)
	}
	if err := it.Repeats.Validate(); err != nil {
		return fmt.Errorf("item %s: %w", it.ID, err)
	}
	if len(it.State) != it.Repeats.Count() {
		return fmt.Errorf("item %s: state has %d cells, recurrence yields %d", it.ID, len(it.State), it.Repeats.Count())
	}
	return nil
}

// Scheme is a named, colored container of items such as a course or project.
type Scheme struct {
	ID            string
	Name          string
	Color         int
	SyncsExternal bool
	Items         []Item
}

func NewScheme(name string, color int) Scheme {
	return Scheme{
		ID:    uuid.New().String(),
		Name:  name,
		Color: color,
	}
}

func (s Scheme) Clone() Scheme {
	items := make([]Item, len(s.Items))
	for i := range s.Items {
		items[i] = s.Items[i].Clone()
	}
	s.Items = items
	return s
}

func (s Scheme) ItemIndex(itemID string) int {
	return slices.IndexFunc(s.Items, func(it Item) bool { return it.ID == itemID })
}

func (s *Scheme) Validate() error {
	if s.ID == "" {
		return fmt.Errorf("scheme %q has no id", s.Name)
	}
	if s.Color < MinColor || s.Color > MaxColor {
		return fmt.Errorf("scheme %s: color %d outside %d..%d", s.ID, s.Color, MinColor, MaxColor)
	}
	for i := range s.Items {
		if err := s.Items[i].Validate(); err != nil {
			return fmt.Errorf("scheme %s: %w", s.ID, err)
		}
	}
	return nil
}
