package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alexanderramin/nutq/internal/testutil"
)

func TestNotificationRepo_ScheduleReplaceRetract(t *testing.T) {
	repo := NewSQLiteNotificationRepo(testutil.NewTestDB(t))
	ctx := context.Background()
	at := time.Date(2025, 9, 1, 14, 0, 0, 0, time.UTC)

	require.NoError(t, repo.ScheduleAt(ctx, "s/i/1", at.Add(time.Hour), "Later", ""))
	require.NoError(t, repo.ScheduleAt(ctx, "s/i/0", at, "Essay", "Term: due"))
	require.NoError(t, repo.ScheduleAt(ctx, "s/i/0", at, "Essay v2", "Term: due"))

	ids, err := repo.ListDelivered(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"s/i/0", "s/i/1"}, ids)

	all, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "Essay v2", all[0].Title)
	assert.True(t, at.Equal(all[0].FireAt))

	require.NoError(t, repo.Retract(ctx, "s/i/0"))
	require.NoError(t, repo.Retract(ctx, "never-scheduled"))

	ids, err = repo.ListDelivered(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"s/i/1"}, ids)
}

func TestNotificationRepo_ListDue(t *testing.T) {
	repo := NewSQLiteNotificationRepo(testutil.NewTestDB(t))
	ctx := context.Background()
	now := time.Date(2025, 9, 1, 12, 0, 0, 0, time.UTC)

	require.NoError(t, repo.ScheduleAt(ctx, "past", now.Add(-time.Minute), "Fired", ""))
	require.NoError(t, repo.ScheduleAt(ctx, "exact", now, "Now", ""))
	require.NoError(t, repo.ScheduleAt(ctx, "future", now.Add(time.Minute), "Pending", ""))

	// Non-UTC input is stored in UTC and still compares correctly.
	tz := time.FixedZone("UTC+2", 2*60*60)
	due, err := repo.ListDue(ctx, now.In(tz))
	require.NoError(t, err)
	require.Len(t, due, 2)
	assert.Equal(t, "past", due[0].ID)
	assert.Equal(t, "exact", due[1].ID)
}
