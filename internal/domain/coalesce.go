package domain

import "time"

// CoalesceTime returns the first non-nil time pointer, or nil.
func CoalesceTime(ptrs ...*time.Time) *time.Time {
	for _, p := range ptrs {
		if p != nil {
			return p
		}
	}
	return nil
}

// TimePtr returns a pointer to a copy of t.
func TimePtr(t time.Time) *time.Time {
	return &t
}

func cloneTime(p *time.Time) *time.Time {
	if p == nil {
		return nil
	}
	t := *p
	return &t
}

func equalTime(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.Equal(*b)
}

func shiftTime(p *time.Time, d time.Duration) *time.Time {
	if p == nil {
		return nil
	}
	t := p.Add(d)
	return &t
}
