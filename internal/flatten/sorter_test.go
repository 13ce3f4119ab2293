package flatten

import (
	"testing"
	"time"

	"github.com/alexanderramin/nutq/internal/domain"
	"github.com/stretchr/testify/assert"
)

func occAt(id string, inst *time.Time, progress int) Occurrence {
	return Occurrence{ItemID: id, Start: inst, Progress: progress}
}

func ids(occ []Occurrence) []string {
	out := make([]string, len(occ))
	for i, o := range occ {
		out[i] = o.ItemID
	}
	return out
}

func TestSort_CompletedAlwaysLast(t *testing.T) {
	early := base
	late := base.Add(48 * time.Hour)
	occ := []Occurrence{
		occAt("done-early", &early, domain.ProgressComplete),
		occAt("pending-late", &late, domain.ProgressPending),
		occAt("pending-early", &early, domain.ProgressPending),
	}
	Sort(occ)
	assert.Equal(t, []string{"pending-early", "pending-late", "done-early"}, ids(occ))
}

func TestSort_NilInstantLastWithinGroup(t *testing.T) {
	at := base
	occ := []Occurrence{
		occAt("none", nil, domain.ProgressPending),
		occAt("timed", &at, domain.ProgressPending),
	}
	Sort(occ)
	assert.Equal(t, []string{"timed", "none"}, ids(occ))
}

func TestSort_EndUsedWhenStartMissing(t *testing.T) {
	due := base.Add(time.Hour)
	start := base.Add(2 * time.Hour)
	occ := []Occurrence{
		{ItemID: "event", Start: &start, End: &due},
		{ItemID: "assignment", End: &due},
	}
	Sort(occ)
	assert.Equal(t, []string{"assignment", "event"}, ids(occ))
}

func TestSort_TieBreaksOnIdentity(t *testing.T) {
	at := base
	occ := []Occurrence{
		{SchemeID: "s", ItemID: "b", Index: 0, Start: &at},
		{SchemeID: "s", ItemID: "a", Index: 1, Start: &at},
		{SchemeID: "s", ItemID: "a", Index: 0, Start: &at},
	}
	Sort(occ)
	assert.Equal(t, "a", occ[0].ItemID)
	assert.Equal(t, 0, occ[0].Index)
	assert.Equal(t, 1, occ[1].Index)
	assert.Equal(t, "b", occ[2].ItemID)
}

func TestSortByInstant_IgnoresCompletion(t *testing.T) {
	early := base
	late := base.Add(time.Hour)
	occ := []Occurrence{
		occAt("late", &late, domain.ProgressPending),
		occAt("early-done", &early, domain.ProgressComplete),
	}
	SortByInstant(occ)
	assert.Equal(t, []string{"early-done", "late"}, ids(occ))
}

func TestMask(t *testing.T) {
	assert.True(t, MaskTimed.Has(domain.TypeEvent))
	assert.False(t, MaskTimed.Has(domain.TypeProcedure))
	assert.True(t, MaskAll.Has(domain.TypeProcedure))
	assert.Equal(t, MaskReminder, MaskOf(domain.TypeReminder))
}
