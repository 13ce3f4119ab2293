package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestItemType(t *testing.T) {
	s := baseStart
	e := baseStart.Add(time.Hour)
	cases := []struct {
		start, end *time.Time
		want       ItemType
	}{
		{&s, &e, TypeEvent},
		{nil, &e, TypeAssignment},
		{&s, nil, TypeReminder},
		{nil, nil, TypeProcedure},
	}
	for _, tc := range cases {
		it := NewItem("x", tc.start, tc.end, NoRepeat())
		assert.Equal(t, tc.want, it.Type(), "type=%s", tc.want)
	}
}

func TestParseItemType_RoundTrip(t *testing.T) {
	for _, typ := range []ItemType{TypeProcedure, TypeReminder, TypeAssignment, TypeEvent} {
		got, ok := ParseItemType(typ.String())
		require.True(t, ok)
		assert.Equal(t, typ, got)
	}
	_, ok := ParseItemType("meeting")
	assert.False(t, ok)
}

func TestNewItem_StateSizedToRecurrence(t *testing.T) {
	it := NewItem("Lecture", &baseStart, nil, BlockRepeat(3, []int{0, 2}, 7, 24*time.Hour))
	assert.NotEmpty(t, it.ID)
	assert.Equal(t, []int{0, 0, 0, 0, 0, 0}, it.State)
}

func TestSetRepeats_GrowsWithPendingCells(t *testing.T) {
	it := NewItem("Lecture", &baseStart, nil, BlockRepeat(1, []int{0, 2}, 7, 24*time.Hour))
	it.State[0] = ProgressComplete

	require.NoError(t, it.SetRepeats(BlockRepeat(2, []int{0, 2}, 7, 24*time.Hour)))
	assert.Equal(t, []int{-1, 0, 0, 0}, it.State)
}

func TestSetRepeats_TruncatesFromEnd(t *testing.T) {
	it := NewItem("Lecture", &baseStart, nil, BlockRepeat(3, []int{0}, 7, 24*time.Hour))
	it.State = []int{-1, 0, -1}

	require.NoError(t, it.SetRepeats(BlockRepeat(2, []int{0}, 7, 24*time.Hour)))
	assert.Equal(t, []int{-1, 0}, it.State)

	require.NoError(t, it.SetRepeats(NoRepeat()))
	assert.Equal(t, []int{-1}, it.State)
}

func TestSetRepeats_RejectsInvalidRule(t *testing.T) {
	it := NewItem("Lecture", &baseStart, nil, NoRepeat())
	err := it.SetRepeats(BlockRepeat(0, []int{0}, 7, time.Hour))
	require.Error(t, err)
	assert.Equal(t, []int{0}, it.State, "state should not change")
}

func TestProgress_MissingCellReadsPending(t *testing.T) {
	it := Item{State: []int{-1}}
	assert.Equal(t, ProgressComplete, it.Progress(0))
	assert.Equal(t, ProgressPending, it.Progress(4))
	assert.Equal(t, ProgressPending, it.Progress(-1))
}

func TestItemClone_Independent(t *testing.T) {
	it := NewItem("Essay", nil, &baseStart, BlockRepeat(2, []int{0}, 1, time.Hour))
	cp := it.Clone()
	cp.State[0] = ProgressComplete
	cp.Repeats.Remainders[0] = 9
	*cp.End = cp.End.Add(time.Hour)

	assert.Equal(t, ProgressPending, it.State[0])
	assert.Equal(t, 0, it.Repeats.Remainders[0])
	assert.True(t, it.End.Equal(baseStart))
	assert.False(t, it.Equal(cp))
}

func TestSchemeValidate_Color(t *testing.T) {
	s := NewScheme("Physics", 0)
	assert.Error(t, s.Validate())
	s.Color = MaxColor + 1
	assert.Error(t, s.Validate())
	s.Color = 3
	assert.NoError(t, s.Validate())
}

func TestItemValidate_StateLength(t *testing.T) {
	it := NewItem("Quiz", nil, &baseStart, NoRepeat())
	it.State = nil
	err := it.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "state has 0 cells")
}
