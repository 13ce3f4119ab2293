package formatter

import (
	"fmt"
	"math"
	"time"
)

// RelativeDateFrom describes t relative to now in whole days.
func RelativeDateFrom(t, now time.Time) string {
	days := int(math.Round(t.Sub(now).Hours() / 24))

	switch {
	case days == 0:
		return "Today"
	case days == 1:
		return "Tomorrow"
	case days == -1:
		return "Yesterday"
	case days > 0 && days < 14:
		return fmt.Sprintf("In %dd", days)
	case days > 0 && days < 60:
		return fmt.Sprintf("In %dw", days/7)
	case days > 0:
		return fmt.Sprintf("In %dmo", days/30)
	case days > -14:
		return fmt.Sprintf("%dd ago", -days)
	case days > -60:
		return fmt.Sprintf("%dw ago", -days/7)
	default:
		return fmt.Sprintf("%dmo ago", -days/30)
	}
}

// RelativeDateStyled colors RelativeDateFrom by urgency: overdue and the
// next two days red, the rest of the week yellow.
func RelativeDateStyled(t, now time.Time) string {
	text := RelativeDateFrom(t, now)
	switch d := t.Sub(now); {
	case d < 0 || d <= 48*time.Hour:
		return StyleRed.Render(text)
	case d <= 7*24*time.Hour:
		return StyleYellow.Render(text)
	}
	return StyleFg.Render(text)
}

// Clock renders an instant in loc as "Mon Jan 2 15:04".
func Clock(t *time.Time, loc *time.Location) string {
	if t == nil {
		return Dim("--")
	}
	if loc == nil {
		loc = time.Local
	}
	return t.In(loc).Format("Mon Jan 2 15:04")
}

// TruncID returns the first 8 characters of an id, dimmed.
func TruncID(id string) string {
	if len(id) > 8 {
		id = id[:8]
	}
	return StyleDim.Render(id)
}

// Bytes renders a size with a binary unit.
func Bytes(n int64) string {
	switch {
	case n >= 1<<20:
		return fmt.Sprintf("%.1f MiB", float64(n)/(1<<20))
	case n >= 1<<10:
		return fmt.Sprintf("%.1f KiB", float64(n)/(1<<10))
	}
	return fmt.Sprintf("%d B", n)
}
