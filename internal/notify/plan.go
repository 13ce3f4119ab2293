// Package notify decides which occurrence notifications to schedule and
// which delivered ones to retract.
package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/alexanderramin/nutq/internal/domain"
	"github.com/alexanderramin/nutq/internal/flatten"
)

// DefaultCap bounds the notifications scheduled in one pass.
const DefaultCap = 32

// Notification is one scheduled alert.
type Notification struct {
	ID    Identity
	At    time.Time
	Title string
	Body  string
}

// Plan is the outcome of one scheduling pass.
type Plan struct {
	Schedule []Notification
	Retract  []string
}

// Scheduler is the platform notification collaborator.
type Scheduler interface {
	ScheduleAt(ctx context.Context, id string, at time.Time, title, body string) error
	Retract(ctx context.Context, id string) error
	ListDelivered(ctx context.Context) ([]string, error)
}

// BuildPlan computes one pass.
//
// Candidates are the timed occurrences from the start of today onward,
// ordered by notification instant (start, else end). Delivered identities
// are retracted when their occurrence is complete or no longer exists.
// Occurrences that are not complete and fire after now are scheduled in
// instant order up to limit; the rest wait for a later pass. A limit <= 0
// uses DefaultCap.
func BuildPlan(f domain.Forest, now time.Time, delivered []string, limit int) Plan {
	if limit <= 0 {
		limit = DefaultCap
	}
	today := startOfDay(now)
	occ := flatten.Range(f, &today, nil, flatten.MaskTimed)
	flatten.SortByInstant(occ)

	var plan Plan
	for _, raw := range delivered {
		id, err := ParseIdentity(raw)
		if err != nil {
			continue
		}
		if stale(f, id) {
			plan.Retract = append(plan.Retract, raw)
		}
	}

	for _, o := range occ {
		if len(plan.Schedule) >= limit {
			break
		}
		at := o.Instant()
		if o.Complete() || at == nil || !at.After(now) {
			continue
		}
		plan.Schedule = append(plan.Schedule, Notification{
			ID:    Identity{SchemeID: o.SchemeID, ItemID: o.ItemID, Index: o.Index},
			At:    *at,
			Title: o.Text,
			Body:  body(o, *at),
		})
	}
	return plan
}

// Reconcile builds a plan from the scheduler's delivered list and applies
// it: retractions first, then schedules.
func Reconcile(ctx context.Context, s Scheduler, f domain.Forest, now time.Time, limit int) (Plan, error) {
	delivered, err := s.ListDelivered(ctx)
	if err != nil {
		return Plan{}, fmt.Errorf("listing delivered notifications: %w", err)
	}
	plan := BuildPlan(f, now, delivered, limit)
	for _, id := range plan.Retract {
		if err := s.Retract(ctx, id); err != nil {
			return plan, fmt.Errorf("retracting %s: %w", id, err)
		}
	}
	for _, n := range plan.Schedule {
		if err := s.ScheduleAt(ctx, n.ID.String(), n.At, n.Title, n.Body); err != nil {
			return plan, fmt.Errorf("scheduling %s: %w", n.ID, err)
		}
	}
	return plan, nil
}

// stale reports whether a delivered notification no longer refers to a
// pending occurrence.
func stale(f domain.Forest, id Identity) bool {
	si, ii, ok := f.FindItem(id.ItemID)
	if !ok {
		return true
	}
	it := &f[si].Items[ii]
	if id.Index >= it.Repeats.Count() {
		return true
	}
	return it.Progress(id.Index) == domain.ProgressComplete
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

func body(o flatten.Occurrence, at time.Time) string {
	verb := "at"
	switch o.Type {
	case domain.TypeAssignment:
		verb = "due"
	case domain.TypeEvent:
		verb = "starts"
	}
	return fmt.Sprintf("%s: %s %s", o.SchemeName, verb, at.Format("Mon Jan 2 15:04"))
}
