package formatter

import (
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/alexanderramin/nutq/internal/domain"
	"github.com/alexanderramin/nutq/internal/flatten"
	"github.com/alexanderramin/nutq/internal/notify"
	"github.com/alexanderramin/nutq/internal/repository"
	"github.com/alexanderramin/nutq/internal/testutil"
)

var ansiPattern = regexp.MustCompile(`\x1b\[[0-9;]*[a-zA-Z]`)

func stripANSI(s string) string {
	return ansiPattern.ReplaceAllString(s, "")
}

func TestRelativeDateFrom(t *testing.T) {
	now := time.Date(2026, 2, 7, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name  string
		input time.Time
		want  string
	}{
		{"today", now, "Today"},
		{"tomorrow", now.Add(24 * time.Hour), "Tomorrow"},
		{"yesterday", now.Add(-24 * time.Hour), "Yesterday"},
		{"3 days future", now.Add(3 * 24 * time.Hour), "In 3d"},
		{"3 days past", now.Add(-3 * 24 * time.Hour), "3d ago"},
		{"3 weeks future", now.Add(21 * 24 * time.Hour), "In 3w"},
		{"3 months future", now.Add(90 * 24 * time.Hour), "In 3mo"},
		{"2 weeks past", now.Add(-14 * 24 * time.Hour), "2w ago"},
		{"3 months past", now.Add(-90 * 24 * time.Hour), "3mo ago"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, RelativeDateFrom(tt.input, now))
		})
	}
}

func TestRenderTable_AlignsColumns(t *testing.T) {
	out := stripANSI(RenderTable([]string{"KEY", "SIZE"}, [][]string{
		{"latest", "1 B"},
		{"monday", "12 B"},
	}))
	lines := strings.Split(out, "\n")
	assert.Equal(t, []string{
		"KEY     SIZE",
		"──────  ────",
		"latest  1 B",
		"monday  12 B",
	}, lines)
	assert.Empty(t, RenderTable(nil, nil))
}

func TestSchemeStyle_OutOfRangeIsDim(t *testing.T) {
	assert.Equal(t, StyleDim, SchemeStyle(0))
	assert.Equal(t, StyleDim, SchemeStyle(7))
	assert.Equal(t, "● Physics", stripANSI(SchemeBadge("Physics", 3)))
}

func TestFormatOccurrences(t *testing.T) {
	lecture := testutil.NewTestItem("Lecture", testutil.WithItemID("abcdef0123"),
		testutil.WithStart(testutil.Base), testutil.WithWeekly(2, 0))
	f := domain.Forest{testutil.NewTestScheme("Physics", testutil.WithItems(lecture))}
	a := assert.New(t)

	out := stripANSI(FormatOccurrences("Upcoming", flatten.Full(f), testutil.Base, time.UTC))
	a.Contains(out, "UPCOMING")
	a.Contains(out, "● Physics")
	a.Contains(out, "Lecture")
	a.Contains(out, "reminder")
	a.Contains(out, "Mon Sep 1 09:00")
	a.Contains(out, "abcdef01:1")

	empty := stripANSI(FormatOccurrences("Incomplete", nil, testutil.Base, time.UTC))
	a.Contains(empty, "Nothing here.")
}

func TestFormatForest(t *testing.T) {
	f := domain.Forest{
		testutil.NewTestScheme("Calendar", testutil.WithExternalSync(), testutil.WithItems(
			testutil.NewTestItem("Seminar", testutil.WithStart(testutil.Base), testutil.WithWeekly(3, 0, 2), testutil.WithState(-1, 0, 0, 0, 0, 0)),
		)),
		testutil.NewTestScheme("Chores"),
	}
	out := stripANSI(FormatForest(f, time.UTC))
	assert.Contains(t, out, "⇄ calendar")
	assert.Contains(t, out, "Seminar")
	assert.Contains(t, out, "1/6")
	assert.Contains(t, out, "×3 every 168h0m0s at +0,2×24h0m0s")
	assert.Contains(t, out, "(empty)")

	assert.Contains(t, stripANSI(FormatForest(nil, time.UTC)), "No schemes yet")
}

func TestFormatPlanAndLedger(t *testing.T) {
	at := testutil.Base.Add(time.Hour)
	plan := notify.Plan{
		Schedule: []notify.Notification{{At: at, Title: "Lecture", Body: "Physics: starts Mon Sep 1 10:00"}},
		Retract:  []string{"x/y/0"},
	}
	out := stripANSI(FormatPlan(plan, time.UTC))
	assert.Contains(t, out, "1 scheduled, 1 retracted")
	assert.Contains(t, out, "Physics: starts")

	due := stripANSI(FormatDue([]repository.ScheduledNotification{{FireAt: at, Title: "Lecture"}}, time.UTC))
	assert.Contains(t, due, "Mon Sep 1 10:00")
	assert.Contains(t, stripANSI(FormatDue(nil, time.UTC)), "Nothing due.")

	backups := stripANSI(FormatBackups([]repository.SnapshotInfo{{Key: "latest", Size: 2048}}, time.UTC))
	assert.Contains(t, backups, "2.0 KiB")
	assert.Contains(t, backups, "--")
}
