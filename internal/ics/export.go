// Package ics converts the externally synced scheme to and from iCalendar.
package ics

import (
	"errors"
	"fmt"
	"time"

	ical "github.com/arran4/golang-ical"
	"github.com/teambition/rrule-go"

	"github.com/alexanderramin/nutq/internal/domain"
)

const (
	ProductID = "-//nutq//nutq//EN"
	uidDomain = "nutq"
)

// ErrNoExternalScheme is returned when no scheme is flagged for export.
var ErrNoExternalScheme = errors.New("no scheme is flagged for external sync")

// ExportExternal serializes the scheme flagged SyncsExternal.
func ExportExternal(f domain.Forest, stamp time.Time) (string, error) {
	s, ok := f.ExternalScheme()
	if !ok {
		return "", ErrNoExternalScheme
	}
	return Export(s, stamp)
}

// Export renders a scheme as a VCALENDAR. Items without a start or end are
// skipped. Block recurrences become one RRULE event per remainder; units
// finer than a second fall back to one event per occurrence.
func Export(s domain.Scheme, stamp time.Time) (string, error) {
	cal := ical.NewCalendar()
	cal.SetMethod(ical.MethodPublish)
	cal.SetProductId(ProductID)
	cal.SetXWRCalName(s.Name)

	for i := range s.Items {
		it := &s.Items[i]
		if it.Type() == domain.TypeProcedure {
			continue
		}
		if err := addItem(cal, it, stamp.UTC()); err != nil {
			return "", fmt.Errorf("exporting item %s: %w", it.ID, err)
		}
	}
	return cal.Serialize(), nil
}

func addItem(cal *ical.Calendar, it *domain.Item, stamp time.Time) error {
	r := it.Repeats
	if r.Kind != domain.RepeatBlock {
		addEvent(cal, uid(it.ID, -1), it, it.Start, it.End, stamp)
		return nil
	}
	if err := r.Validate(); err != nil {
		return err
	}

	opt, ok := ruleOption(r)
	if !ok {
		for idx, sp := range it.Spans() {
			addEvent(cal, uid(it.ID, idx), it, sp.Start, sp.End, stamp)
		}
		return nil
	}
	rule := opt.RRuleString()
	for j, rem := range r.Remainders {
		d := time.Duration(rem) * r.Unit
		ev := addEvent(cal, uid(it.ID, j), it, shift(it.Start, d), shift(it.End, d), stamp)
		ev.AddRrule(rule)
	}
	return nil
}

// addEvent writes one VEVENT. An assignment (end only) is written as a
// zero-length event at its due time.
func addEvent(cal *ical.Calendar, id string, it *domain.Item, start, end *time.Time, stamp time.Time) *ical.VEvent {
	ev := cal.AddEvent(id)
	ev.SetDtStampTime(stamp)
	ev.SetSummary(it.Text)
	switch {
	case start != nil && end != nil:
		ev.SetStartAt(*start)
		ev.SetEndAt(*end)
	case end != nil:
		ev.SetStartAt(*end)
		ev.SetEndAt(*end)
	case start != nil:
		ev.SetStartAt(*start)
	}
	return ev
}

var frequencies = []struct {
	freq rrule.Frequency
	d    time.Duration
}{
	{rrule.WEEKLY, 7 * 24 * time.Hour},
	{rrule.DAILY, 24 * time.Hour},
	{rrule.HOURLY, time.Hour},
	{rrule.MINUTELY, time.Minute},
	{rrule.SECONDLY, time.Second},
}

// ruleOption maps the per-remainder stride (Modulus*Unit) onto the coarsest
// RRULE frequency that divides it.
func ruleOption(r domain.RecurrenceRule) (rrule.ROption, bool) {
	step := time.Duration(r.Modulus) * r.Unit
	for _, f := range frequencies {
		if step%f.d == 0 {
			return rrule.ROption{Freq: f.freq, Interval: int(step / f.d), Count: r.Blocks}, true
		}
	}
	return rrule.ROption{}, false
}

func frequencyDuration(f rrule.Frequency) (time.Duration, bool) {
	for _, fr := range frequencies {
		if fr.freq == f {
			return fr.d, true
		}
	}
	return 0, false
}

func uid(itemID string, part int) string {
	if part < 0 {
		return itemID + "@" + uidDomain
	}
	return fmt.Sprintf("%s.%d@%s", itemID, part, uidDomain)
}

func shift(t *time.Time, d time.Duration) *time.Time {
	if t == nil {
		return nil
	}
	v := t.Add(d)
	return &v
}
