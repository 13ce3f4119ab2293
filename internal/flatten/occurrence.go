// Package flatten turns a scheme forest into flat lists of concrete
// occurrences for the different query surfaces: upcoming, full, incomplete
// and date range.
package flatten

import (
	"time"

	"github.com/alexanderramin/nutq/internal/domain"
)

// Occurrence is one expanded instance of an item. It is a value copy: writing
// progress goes through domain.Forest.SetOccurrenceProgress with ItemID and Index.
type Occurrence struct {
	SchemeID    string
	SchemeName  string
	Color       int
	Path        []string
	ItemID      string
	Index       int
	Text        string
	Type        domain.ItemType
	Indentation int
	Start       *time.Time
	End         *time.Time
	Progress    int
}

// Instant is the start if present, else the end.
func (o Occurrence) Instant() *time.Time {
	return domain.CoalesceTime(o.Start, o.End)
}

func (o Occurrence) Complete() bool {
	return o.Progress == domain.ProgressComplete
}

func (o Occurrence) Pending() bool {
	return o.Progress == domain.ProgressPending
}

// TypeMask selects item types for Range queries.
type TypeMask uint8

const (
	MaskProcedure TypeMask = 1 << iota
	MaskReminder
	MaskAssignment
	MaskEvent

	MaskTimed = MaskReminder | MaskAssignment | MaskEvent
	MaskAll   = MaskTimed | MaskProcedure
)

func MaskOf(t domain.ItemType) TypeMask {
	switch t {
	case domain.TypeReminder:
		return MaskReminder
	case domain.TypeAssignment:
		return MaskAssignment
	case domain.TypeEvent:
		return MaskEvent
	default:
		return MaskProcedure
	}
}

func (m TypeMask) Has(t domain.ItemType) bool {
	return m&MaskOf(t) != 0
}

func newOccurrence(s *domain.Scheme, it *domain.Item, index int, span domain.Span) Occurrence {
	return Occurrence{
		SchemeID:    s.ID,
		SchemeName:  s.Name,
		Color:       s.Color,
		Path:        []string{s.Name},
		ItemID:      it.ID,
		Index:       index,
		Text:        it.Text,
		Type:        it.Type(),
		Indentation: it.Indentation,
		Start:       span.Start,
		End:         span.End,
		Progress:    it.Progress(index),
	}
}

// visit calls fn for every item in forest order.
func visit(f domain.Forest, fn func(s *domain.Scheme, it *domain.Item)) {
	for si := range f {
		s := &f[si]
		for ii := range s.Items {
			fn(s, &s.Items[ii])
		}
	}
}
