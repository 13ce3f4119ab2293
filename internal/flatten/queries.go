package flatten

import (
	"time"

	"github.com/alexanderramin/nutq/internal/domain"
)

// Upcoming lists, per non-procedure item, every pending occurrence up to and
// including the first one whose start-or-end falls strictly after ref. Walking
// an item stops at that first future occurrence, so overdue pending
// occurrences surface indefinitely while at most one future occurrence is
// returned per item.
func Upcoming(f domain.Forest, ref time.Time) []Occurrence {
	var out []Occurrence
	visit(f, func(s *domain.Scheme, it *domain.Item) {
		if it.Type() == domain.TypeProcedure {
			return
		}
		for idx, span := range it.Spans() {
			inst := span.Instant()
			future := inst != nil && inst.After(ref)
			if future || it.Progress(idx) == domain.ProgressPending {
				out = append(out, newOccurrence(s, it, idx, span))
			}
			if future {
				break
			}
		}
	})
	return out
}

// Full lists every expanded occurrence of every item.
func Full(f domain.Forest) []Occurrence {
	var out []Occurrence
	visit(f, func(s *domain.Scheme, it *domain.Item) {
		for idx, span := range it.Spans() {
			out = append(out, newOccurrence(s, it, idx, span))
		}
	})
	return out
}

// Incomplete lists every occurrence not marked complete.
func Incomplete(f domain.Forest) []Occurrence {
	var out []Occurrence
	visit(f, func(s *domain.Scheme, it *domain.Item) {
		for idx, span := range it.Spans() {
			if it.Progress(idx) != domain.ProgressComplete {
				out = append(out, newOccurrence(s, it, idx, span))
			}
		}
	})
	return out
}

// Range lists occurrences of items whose type is in mask and that overlap the
// query range: the occurrence start is absent or before end, and its end is
// absent or after start. A nil query bound is unbounded.
func Range(f domain.Forest, start, end *time.Time, mask TypeMask) []Occurrence {
	var out []Occurrence
	visit(f, func(s *domain.Scheme, it *domain.Item) {
		if !mask.Has(it.Type()) || outsideBounds(it, start, end) {
			return
		}
		for idx, span := range it.Spans() {
			if overlaps(span, start, end) {
				out = append(out, newOccurrence(s, it, idx, span))
			}
		}
	})
	return out
}

func overlaps(span domain.Span, start, end *time.Time) bool {
	if end != nil && span.Start != nil && !span.Start.Before(*end) {
		return false
	}
	if start != nil && span.End != nil && !span.End.After(*start) {
		return false
	}
	return true
}

// outsideBounds reports whether no occurrence of it can overlap the range.
// Only endpoints the item actually has are used for pruning.
func outsideBounds(it *domain.Item, start, end *time.Time) bool {
	if end != nil && it.Start != nil {
		if lo := it.Repeats.LowerBound(it.Start, nil); lo != nil && !lo.Before(*end) {
			return true
		}
	}
	if start != nil && it.End != nil {
		if hi := it.Repeats.UpperBound(nil, it.End); hi != nil && !hi.After(*start) {
			return true
		}
	}
	return false
}
