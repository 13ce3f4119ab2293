package testutil

import (
	"time"

	"github.com/alexanderramin/nutq/internal/domain"
	"github.com/google/uuid"
)

// Base is the reference instant fixtures are laid out around (a Monday).
var Base = time.Date(2025, 9, 1, 9, 0, 0, 0, time.UTC)

// Scheme options
type SchemeOption func(*domain.Scheme)

func WithColor(c int) SchemeOption {
	return func(s *domain.Scheme) {
		s.Color = c
	}
}

func WithExternalSync() SchemeOption {
	return func(s *domain.Scheme) {
		s.SyncsExternal = true
	}
}

func WithSchemeID(id string) SchemeOption {
	return func(s *domain.Scheme) {
		s.ID = id
	}
}

func WithItems(items ...domain.Item) SchemeOption {
	return func(s *domain.Scheme) {
		s.Items = append(s.Items, items...)
	}
}

func NewTestScheme(name string, opts ...SchemeOption) domain.Scheme {
	s := domain.Scheme{
		ID:    uuid.New().String(),
		Name:  name,
		Color: 1,
	}
	for _, opt := range opts {
		opt(&s)
	}
	return s
}

// Item options
type ItemOption func(*domain.Item)

func WithItemID(id string) ItemOption {
	return func(it *domain.Item) {
		it.ID = id
	}
}

func WithStart(t time.Time) ItemOption {
	return func(it *domain.Item) {
		it.Start = &t
	}
}

func WithEnd(t time.Time) ItemOption {
	return func(it *domain.Item) {
		it.End = &t
	}
}

// WithBlocks sets a block recurrence.
func WithBlocks(blocks int, remainders []int, modulus int, unit time.Duration) ItemOption {
	return func(it *domain.Item) {
		it.Repeats = domain.BlockRepeat(blocks, remainders, modulus, unit)
	}
}

// WithWeekly repeats on day offsets of each week for the given number of weeks.
func WithWeekly(weeks int, days ...int) ItemOption {
	return WithBlocks(weeks, days, 7, 24*time.Hour)
}

// WithState sets the progress cells; it should match the recurrence count.
func WithState(state ...int) ItemOption {
	return func(it *domain.Item) {
		it.State = append([]int(nil), state...)
	}
}

func WithIndentation(n int) ItemOption {
	return func(it *domain.Item) {
		it.Indentation = n
	}
}

func NewTestItem(text string, opts ...ItemOption) domain.Item {
	it := domain.Item{
		ID:      uuid.New().String(),
		Text:    text,
		Repeats: domain.NoRepeat(),
	}
	for _, opt := range opts {
		opt(&it)
	}
	it.ResizeState()
	return it
}
