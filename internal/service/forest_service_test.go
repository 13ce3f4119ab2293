package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alexanderramin/nutq/internal/domain"
	"github.com/alexanderramin/nutq/internal/flatten"
	"github.com/alexanderramin/nutq/internal/session"
	"github.com/alexanderramin/nutq/internal/testutil"
)

type recordingObserver struct {
	mu     sync.Mutex
	events []UseCaseEvent
}

func (o *recordingObserver) ObserveUseCase(_ context.Context, e UseCaseEvent) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.events = append(o.events, e)
}

func (o *recordingObserver) last() UseCaseEvent {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.events[len(o.events)-1]
}

func newLive() *session.Session {
	return session.New(session.Deps{Store: testutil.NewMemStore()})
}

func setupForestService(t *testing.T) (ForestService, *session.Session, *recordingObserver) {
	t.Helper()
	live := newLive()
	obs := &recordingObserver{}
	return NewForestService(live, obs), live, obs
}

func TestForestService_SchemeLifecycle(t *testing.T) {
	svc, live, obs := setupForestService(t)
	ctx := context.Background()

	physics, err := svc.AddScheme(ctx, "Physics", 2)
	require.NoError(t, err)
	chores, err := svc.AddScheme(ctx, "Chores", 4)
	require.NoError(t, err)
	assert.Equal(t, "add-scheme", obs.last().Name)

	require.NoError(t, svc.RenameScheme(ctx, physics.ID, "Physics II", 0))
	f := live.Forest()
	require.Len(t, f, 2)
	assert.Equal(t, "Physics II", f[0].Name)
	assert.Equal(t, 2, f[0].Color)

	deleted, err := svc.DeleteScheme(ctx, physics.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, deleted.Index)
	assert.Len(t, live.Forest(), 1)

	require.NoError(t, svc.RestoreScheme(ctx, deleted))
	f = live.Forest()
	require.Len(t, f, 2)
	assert.Equal(t, physics.ID, f[0].ID)
	assert.Equal(t, chores.ID, f[1].ID)
}

func TestForestService_InvalidColorRejected(t *testing.T) {
	svc, live, obs := setupForestService(t)

	_, err := svc.AddScheme(context.Background(), "Neon", 7)
	assert.Error(t, err)
	assert.Empty(t, live.Forest())
	assert.False(t, obs.last().Success)
}

func TestForestService_SetExternalSyncIsExclusive(t *testing.T) {
	svc, live, _ := setupForestService(t)
	ctx := context.Background()

	a, err := svc.AddScheme(ctx, "A", 1)
	require.NoError(t, err)
	b, err := svc.AddScheme(ctx, "B", 1)
	require.NoError(t, err)

	require.NoError(t, svc.SetExternalSync(ctx, a.ID))
	require.NoError(t, svc.SetExternalSync(ctx, b.ID))

	ext, ok := live.Forest().ExternalScheme()
	require.True(t, ok)
	assert.Equal(t, b.ID, ext.ID)
	assert.False(t, live.Forest()[0].SyncsExternal)

	assert.ErrorIs(t, svc.SetExternalSync(ctx, "missing"), domain.ErrSchemeNotFound)
}

func TestForestService_ItemEditsKeepIdentityAndProgress(t *testing.T) {
	svc, live, _ := setupForestService(t)
	ctx := context.Background()
	sc, err := svc.AddScheme(ctx, "Physics", 1)
	require.NoError(t, err)

	start := testutil.Base
	weekly := domain.BlockRepeat(4, []int{0, 2}, 7, 24*time.Hour)
	it, err := svc.AddItem(ctx, sc.ID, ItemInput{Text: "Lecture", Start: &start, Repeats: weekly})
	require.NoError(t, err)
	require.Len(t, it.State, 8)

	require.NoError(t, svc.SetProgress(ctx, it.ID, 1, domain.ProgressComplete))

	shorter := domain.BlockRepeat(2, []int{0, 2}, 7, 24*time.Hour)
	updated, err := svc.UpdateItem(ctx, it.ID, ItemInput{Text: "Lecture (moved)", Start: &start, Repeats: shorter})
	require.NoError(t, err)
	assert.Equal(t, it.ID, updated.ID)
	assert.Equal(t, []int{0, domain.ProgressComplete, 0, 0}, updated.State)

	_, _, ok := live.Forest().FindItem(it.ID)
	assert.True(t, ok)

	require.NoError(t, svc.DeleteItem(ctx, it.ID))
	assert.ErrorIs(t, svc.DeleteItem(ctx, it.ID), domain.ErrItemNotFound)
	assert.ErrorIs(t, svc.SetProgress(ctx, it.ID, 0, domain.ProgressComplete), domain.ErrItemNotFound)
}

func TestForestService_UpdateItemRejectsBadRecurrence(t *testing.T) {
	svc, live, _ := setupForestService(t)
	ctx := context.Background()
	sc, err := svc.AddScheme(ctx, "S", 1)
	require.NoError(t, err)
	it, err := svc.AddItem(ctx, sc.ID, ItemInput{Text: "x"})
	require.NoError(t, err)

	_, err = svc.UpdateItem(ctx, it.ID, ItemInput{Text: "y", Repeats: domain.BlockRepeat(0, []int{0}, 1, time.Hour)})
	assert.Error(t, err)
	assert.Equal(t, "x", live.Forest()[0].Items[0].Text)
}

func TestForestService_Queries(t *testing.T) {
	svc, _, _ := setupForestService(t)
	ctx := context.Background()
	sc, err := svc.AddScheme(ctx, "Term", 3)
	require.NoError(t, err)

	due := testutil.Base.Add(48 * time.Hour)
	remind := testutil.Base.Add(2 * time.Hour)
	_, err = svc.AddItem(ctx, sc.ID, ItemInput{Text: "Essay", End: &due})
	require.NoError(t, err)
	_, err = svc.AddItem(ctx, sc.ID, ItemInput{Text: "Call", Start: &remind})
	require.NoError(t, err)
	_, err = svc.AddItem(ctx, sc.ID, ItemInput{Text: "Tidy"})
	require.NoError(t, err)

	up := svc.Upcoming(ctx, testutil.Base)
	require.Len(t, up, 2)
	assert.Equal(t, "Call", up[0].Text)
	assert.Equal(t, "Essay", up[1].Text)

	assert.Len(t, svc.Incomplete(ctx), 3)

	// An assignment has no start, so it overlaps any window that opens
	// before its due time.
	start := testutil.Base
	end := testutil.Base.Add(time.Hour)
	in := svc.Range(ctx, &start, &end, flatten.MaskTimed)
	require.Len(t, in, 1)
	assert.Equal(t, "Essay", in[0].Text)

	end = testutil.Base.Add(24 * time.Hour)
	in = svc.Range(ctx, &start, &end, flatten.MaskTimed)
	require.Len(t, in, 2)
	assert.Equal(t, "Call", in[0].Text)
	assert.Equal(t, "Essay", in[1].Text)

	assert.Empty(t, svc.Range(ctx, &start, &end, flatten.MaskEvent))
}
