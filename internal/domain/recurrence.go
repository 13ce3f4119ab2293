package domain

import (
	"fmt"
	"slices"
	"time"
)

// RecurrenceRule describes how an item repeats. The zero value behaves as
// RepeatNone.
//
// A block rule produces Blocks × len(Remainders) occurrences. For block i and
// remainder r the occurrence is shifted from the base start/end by
// (i*Modulus + r) * Unit. With Modulus=7, Unit=24h and Remainders={0,2} the
// rule reads "weeks 0..Blocks-1, on day 0 and day 2 of each week".
type RecurrenceRule struct {
	Kind       RecurrenceKind
	Blocks     int
	Remainders []int
	Modulus    int
	Unit       time.Duration
}

// Span is one expanded occurrence. Either endpoint may be absent.
type Span struct {
	Start *time.Time
	End   *time.Time
}

// Instant returns start if present, else end.
func (s Span) Instant() *time.Time {
	return CoalesceTime(s.Start, s.End)
}

// NoRepeat returns the single-occurrence rule.
func NoRepeat() RecurrenceRule {
	return RecurrenceRule{Kind: RepeatNone}
}

// BlockRepeat builds a block rule. It does not validate; call Validate.
func BlockRepeat(blocks int, remainders []int, modulus int, unit time.Duration) RecurrenceRule {
	return RecurrenceRule{
		Kind:       RepeatBlock,
		Blocks:     blocks,
		Remainders: slices.Clone(remainders),
		Modulus:    modulus,
		Unit:       unit,
	}
}

func (r RecurrenceRule) isBlock() bool {
	return r.Kind == RepeatBlock
}

// Validate checks block parameters: 1 <= Blocks <= MaxBlocks, a positive
// modulus and unit, and a non-empty remainder list within [0, Modulus).
func (r RecurrenceRule) Validate() error {
	switch r.Kind {
	case "", RepeatNone:
		return nil
	case RepeatBlock:
	default:
		return fmt.Errorf("unknown recurrence kind %q", r.Kind)
	}
	if r.Blocks < 1 || r.Blocks > MaxBlocks {
		return fmt.Errorf("block count %d must be between 1 and %d", r.Blocks, MaxBlocks)
	}
	if r.Modulus < 1 {
		return fmt.Errorf("modulus %d must be positive", r.Modulus)
	}
	if r.Unit <= 0 {
		return fmt.Errorf("unit %s must be positive", r.Unit)
	}
	if len(r.Remainders) == 0 {
		return fmt.Errorf("block recurrence needs at least one remainder")
	}
	seen := make(map[int]bool, len(r.Remainders))
	for _, rem := range r.Remainders {
		if rem < 0 || rem >= r.Modulus {
			return fmt.Errorf("remainder %d outside [0, %d)", rem, r.Modulus)
		}
		if seen[rem] {
			return fmt.Errorf("duplicate remainder %d", rem)
		}
		seen[rem] = true
	}
	return nil
}

// Count is the number of occurrences Expand yields.
func (r RecurrenceRule) Count() int {
	if !r.isBlock() {
		return 1
	}
	if r.Blocks <= 0 {
		return 0
	}
	return r.Blocks * len(r.Remainders)
}

func (r RecurrenceRule) offset(step int) time.Duration {
	return time.Duration(step) * r.Unit
}

// Expand produces the concrete spans for the given base endpoints, blocks
// outermost and remainders in their given order. An absent endpoint stays
// absent in every span.
func (r RecurrenceRule) Expand(start, end *time.Time) []Span {
	if !r.isBlock() {
		return []Span{{Start: cloneTime(start), End: cloneTime(end)}}
	}
	spans := make([]Span, 0, r.Count())
	for i := 0; i < r.Blocks; i++ {
		for _, rem := range r.Remainders {
			d := r.offset(i*r.Modulus + rem)
			spans = append(spans, Span{Start: shiftTime(start, d), End: shiftTime(end, d)})
		}
	}
	return spans
}

// LowerBound is the earliest instant any expanded start-or-end can take.
// It prefers the start endpoint and falls back to end when start is absent.
func (r RecurrenceRule) LowerBound(start, end *time.Time) *time.Time {
	base := CoalesceTime(start, end)
	if base == nil || !r.isBlock() || len(r.Remainders) == 0 || r.Blocks <= 0 {
		return cloneTime(base)
	}
	return shiftTime(base, r.offset(slices.Min(r.Remainders)))
}

// UpperBound is the latest instant any expanded start-or-end can take.
// It prefers the end endpoint and falls back to start when end is absent.
func (r RecurrenceRule) UpperBound(start, end *time.Time) *time.Time {
	base := CoalesceTime(end, start)
	if base == nil || !r.isBlock() || len(r.Remainders) == 0 || r.Blocks <= 0 {
		return cloneTime(base)
	}
	return shiftTime(base, r.offset((r.Blocks-1)*r.Modulus+slices.Max(r.Remainders)))
}

// Equal compares rules structurally. A zero Kind equals RepeatNone.
func (r RecurrenceRule) Equal(o RecurrenceRule) bool {
	if r.isBlock() != o.isBlock() {
		return false
	}
	if !r.isBlock() {
		return true
	}
	return r.Blocks == o.Blocks &&
		r.Modulus == o.Modulus &&
		r.Unit == o.Unit &&
		slices.Equal(r.Remainders, o.Remainders)
}

// Clone returns a copy that shares no memory with r.
func (r RecurrenceRule) Clone() RecurrenceRule {
	r.Remainders = slices.Clone(r.Remainders)
	return r
}
