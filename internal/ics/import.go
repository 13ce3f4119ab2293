package ics

import (
	"fmt"
	"io"
	"strings"
	"time"

	ical "github.com/arran4/golang-ical"
	"github.com/teambition/rrule-go"

	"github.com/alexanderramin/nutq/internal/domain"
)

// Skipped records a VEVENT that could not be represented as an item.
type Skipped struct {
	UID    string
	Reason string
}

// Import parses a calendar into new items (fresh ids, all pending). Only
// RRULEs with a COUNT and no BY* parts can be represented; other recurring
// events are reported in the skipped list.
func Import(r io.Reader) ([]domain.Item, []Skipped, error) {
	cal, err := ical.ParseCalendar(r)
	if err != nil {
		return nil, nil, fmt.Errorf("parsing calendar: %w", err)
	}

	var items []domain.Item
	var skipped []Skipped
	for _, ev := range cal.Events() {
		it, reason := itemFromEvent(ev)
		if reason != "" {
			skipped = append(skipped, Skipped{UID: ev.Id(), Reason: reason})
			continue
		}
		items = append(items, it)
	}
	return items, skipped, nil
}

func itemFromEvent(ev *ical.VEvent) (domain.Item, string) {
	summary := ""
	if p := ev.GetProperty(ical.ComponentPropertySummary); p != nil {
		summary = p.Value
	}

	start, err := ev.GetStartAt()
	if err != nil {
		return domain.Item{}, "missing DTSTART"
	}
	var startPtr, endPtr *time.Time
	startPtr = &start
	if end, err := ev.GetEndAt(); err == nil {
		if end.Equal(start) {
			startPtr = nil
		}
		endPtr = &end
	}

	repeats := domain.NoRepeat()
	if p := ev.GetProperty(ical.ComponentPropertyRrule); p != nil {
		rule, reason := ruleFromString(p.Value)
		if reason != "" {
			return domain.Item{}, reason
		}
		repeats = rule
	}
	if err := repeats.Validate(); err != nil {
		return domain.Item{}, err.Error()
	}
	return domain.NewItem(summary, startPtr, endPtr, repeats), ""
}

func ruleFromString(s string) (domain.RecurrenceRule, string) {
	opt, err := rrule.StrToROption(s)
	if err != nil {
		return domain.RecurrenceRule{}, "invalid RRULE: " + err.Error()
	}
	if opt.Count <= 0 {
		return domain.RecurrenceRule{}, "RRULE without COUNT"
	}
	if parts := byParts(opt); len(parts) > 0 {
		return domain.RecurrenceRule{}, "RRULE with " + strings.Join(parts, ",")
	}
	unit, ok := frequencyDuration(opt.Freq)
	if !ok {
		return domain.RecurrenceRule{}, fmt.Sprintf("unsupported RRULE frequency %v", opt.Freq)
	}
	interval := opt.Interval
	if interval <= 0 {
		interval = 1
	}
	return domain.BlockRepeat(opt.Count, []int{0}, interval, unit), ""
}

// byParts names the BY* filters set on opt. A block rule is a plain stride,
// so any filter makes the rule unrepresentable.
func byParts(opt *rrule.ROption) []string {
	var parts []string
	for _, p := range []struct {
		name string
		n    int
	}{
		{"BYSETPOS", len(opt.Bysetpos)},
		{"BYMONTH", len(opt.Bymonth)},
		{"BYMONTHDAY", len(opt.Bymonthday)},
		{"BYYEARDAY", len(opt.Byyearday)},
		{"BYWEEKNO", len(opt.Byweekno)},
		{"BYDAY", len(opt.Byweekday)},
		{"BYHOUR", len(opt.Byhour)},
		{"BYMINUTE", len(opt.Byminute)},
		{"BYSECOND", len(opt.Bysecond)},
		{"BYEASTER", len(opt.Byeaster)},
	} {
		if p.n > 0 {
			parts = append(parts, p.name)
		}
	}
	return parts
}
