package session

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	promtest "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alexanderramin/nutq/internal/diff"
	"github.com/alexanderramin/nutq/internal/domain"
	"github.com/alexanderramin/nutq/internal/testutil"
	"github.com/alexanderramin/nutq/internal/transport"
)

// monday is the fixed clock for every session under test.
var monday = time.Date(2025, 9, 1, 8, 0, 0, 0, time.UTC)

type harness struct {
	store    *testutil.MemStore
	dialer   *testutil.FakeDialer
	takeover *testutil.FakeTakeover
	metrics  *Metrics
	session  *Session
}

func newHarness(t *testing.T, channels ...*testutil.FakeChannel) *harness {
	t.Helper()
	h := &harness{
		store:    testutil.NewMemStore(),
		dialer:   &testutil.FakeDialer{Channels: channels},
		takeover: &testutil.FakeTakeover{},
		metrics:  NewMetrics(prometheus.NewRegistry()),
	}
	h.session = New(Deps{
		Store:    h.store,
		Dialer:   h.dialer,
		Takeover: h.takeover,
		Now:      func() time.Time { return monday },
		Metrics:  h.metrics,
	})
	t.Cleanup(h.session.Cancel)
	return h
}

func encode(t *testing.T, f domain.Forest) string {
	t.Helper()
	data, err := domain.EncodeForest(f)
	require.NoError(t, err)
	return string(data)
}

func remoteForest() domain.Forest {
	return domain.Forest{
		testutil.NewTestScheme("Physics", testutil.WithItems(
			testutil.NewTestItem("Lecture", testutil.WithStart(testutil.Base), testutil.WithWeekly(2, 0, 2)),
		)),
	}
}

func decodeSent(t *testing.T, payload []byte) []diff.Update {
	t.Helper()
	updates, err := diff.DecodeUpdates(payload)
	require.NoError(t, err)
	return updates
}

func TestSteal_TakenSentinelLeavesNoOpenChannel(t *testing.T) {
	ch := testutil.NewFakeChannel("taken")
	h := newHarness(t, ch)

	require.NoError(t, h.session.Steal(context.Background()))

	assert.Equal(t, Disconnected, h.session.State())
	assert.True(t, ch.IsClosed())
	assert.Equal(t, 1, h.takeover.Calls())
	assert.Equal(t, 1, h.dialer.Dials())
	assert.Equal(t, 1.0, promtest.ToFloat64(h.metrics.transitions.WithLabelValues("acquiring", "disconnected")))
	assert.Equal(t, 0.0, promtest.ToFloat64(h.metrics.state))
}

func TestSteal_TakeoverFailureDoesNotBlockAcquisition(t *testing.T) {
	ch := testutil.NewFakeChannel("[]")
	h := newHarness(t, ch)
	h.takeover.Err = transport.ErrUnauthorized

	require.NoError(t, h.session.Steal(context.Background()))
	assert.Equal(t, Synced, h.session.State())
	assert.False(t, ch.IsClosed())
}

func TestSteal_SnapshotBecomesAuthoritativeAndIsPersisted(t *testing.T) {
	remote := remoteForest()
	ch := testutil.NewFakeChannel(encode(t, remote))
	h := newHarness(t, ch)

	require.NoError(t, h.session.Steal(context.Background()))
	require.Equal(t, Synced, h.session.State())
	assert.True(t, remote.Equal(h.session.Forest()))

	for _, key := range []string{KeyLatest, "monday"} {
		data, ok := h.store.Get(key)
		require.True(t, ok, key)
		stored, err := domain.DecodeForest(data)
		require.NoError(t, err)
		assert.True(t, remote.Equal(stored), key)
	}
}

func TestSteal_UndecodablePayloadIsEmptyForest(t *testing.T) {
	h := newHarness(t, testutil.NewFakeChannel(`{"not":"a forest"`))
	require.NoError(t, h.session.Mutate(func(f *domain.Forest) error {
		return f.InsertScheme(0, testutil.NewTestScheme("Local"))
	}))

	require.NoError(t, h.session.Steal(context.Background()))
	assert.Equal(t, Synced, h.session.State())
	assert.Empty(t, h.session.Forest())
}

func TestSteal_MarksRemotelyUpdatedItems(t *testing.T) {
	same := testutil.NewTestItem("Same")
	edited := testutil.NewTestItem("Before")
	mirrored := testutil.NewTestItem("Calendar event")
	local := domain.Forest{
		testutil.NewTestScheme("Mine", testutil.WithItems(same, edited)),
		testutil.NewTestScheme("Google", testutil.WithExternalSync(), testutil.WithItems(mirrored)),
	}

	remote := local.Clone()
	remote[0].Items[1].Text = "After"
	added := testutil.NewTestItem("New from phone")
	require.NoError(t, remote.AddItem(remote[0].ID, added))
	remote[1].Items[0].Text = "Calendar event moved"

	h := newHarness(t, testutil.NewFakeChannel(encode(t, remote)))
	h.store.Put(KeyLatest, []byte(encode(t, local)))

	require.NoError(t, h.session.Steal(context.Background()))
	assert.False(t, h.session.RemotelyUpdated(same.ID))
	assert.True(t, h.session.RemotelyUpdated(edited.ID))
	assert.True(t, h.session.RemotelyUpdated(added.ID))
	assert.False(t, h.session.RemotelyUpdated(mirrored.ID))
}

func TestSteal_DialFailureReturnsToDisconnected(t *testing.T) {
	h := newHarness(t)
	h.dialer.Err = transport.ErrUnexpectedStatus

	err := h.session.Steal(context.Background())
	assert.ErrorIs(t, err, transport.ErrUnexpectedStatus)
	assert.Equal(t, Disconnected, h.session.State())
}

func TestSteal_NoopUnlessDisconnected(t *testing.T) {
	h := newHarness(t, testutil.NewFakeChannel("[]"))
	require.NoError(t, h.session.Steal(context.Background()))
	require.NoError(t, h.session.Steal(context.Background()))
	assert.Equal(t, 1, h.dialer.Dials())
}

func TestCancel_AbortsInFlightAcquisition(t *testing.T) {
	h := newHarness(t)
	started := make(chan struct{})
	h.dialer.Block = true
	h.dialer.Started = started

	done := make(chan error, 1)
	go func() { done <- h.session.Steal(context.Background()) }()

	<-started
	assert.Equal(t, Acquiring, h.session.State())
	h.session.Cancel()
	assert.Equal(t, Disconnected, h.session.State())

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("Steal did not return after Cancel")
	}
	assert.Equal(t, Disconnected, h.session.State())
}

func TestCancel_ClosesSyncedChannel(t *testing.T) {
	ch := testutil.NewFakeChannel("[]")
	h := newHarness(t, ch)
	require.NoError(t, h.session.Steal(context.Background()))

	h.session.Cancel()
	assert.Equal(t, Disconnected, h.session.State())
	assert.True(t, ch.IsClosed())
}

func TestReader_StealingSentinelClosesChannel(t *testing.T) {
	ch := testutil.NewFakeChannel("[]")
	h := newHarness(t, ch)
	require.NoError(t, h.session.Steal(context.Background()))

	ch.Push("stealing")
	assert.Eventually(t, func() bool {
		return h.session.State() == Disconnected && ch.IsClosed()
	}, 2*time.Second, 5*time.Millisecond)
}

func TestReader_TransportCloseDisconnects(t *testing.T) {
	ch := testutil.NewFakeChannel("[]")
	h := newHarness(t, ch)
	require.NoError(t, h.session.Steal(context.Background()))

	require.NoError(t, ch.Close())
	assert.Eventually(t, func() bool {
		return h.session.State() == Disconnected
	}, 2*time.Second, 5*time.Millisecond)
}

func TestSaveCycle_FirstCycleSendsIdentityThenPings(t *testing.T) {
	remote := remoteForest()
	ch := testutil.NewFakeChannel(encode(t, remote))
	h := newHarness(t, ch)
	require.NoError(t, h.session.Steal(context.Background()))

	out, err := h.session.SaveCycle(context.Background())
	require.NoError(t, err)
	assert.Equal(t, CycleSent, out)
	sent := ch.Sent()
	require.Len(t, sent, 1)
	updates := decodeSent(t, sent[0])
	require.Len(t, updates, 1)
	assert.Equal(t, diff.Identity, updates[0].Type)

	out, err = h.session.SaveCycle(context.Background())
	require.NoError(t, err)
	assert.Equal(t, CyclePinged, out)
	assert.Equal(t, 1, ch.Pings())
	assert.Len(t, ch.Sent(), 1)
}

func TestSaveCycle_SendsItemDiffAfterEdit(t *testing.T) {
	remote := remoteForest()
	ch := testutil.NewFakeChannel(encode(t, remote))
	h := newHarness(t, ch)
	require.NoError(t, h.session.Steal(context.Background()))
	_, err := h.session.SaveCycle(context.Background())
	require.NoError(t, err)

	added := testutil.NewTestItem("Lab report", testutil.WithEnd(testutil.Base.Add(72*time.Hour)))
	require.NoError(t, h.session.Mutate(func(f *domain.Forest) error {
		return f.AddItem(remote[0].ID, added)
	}))

	out, err := h.session.SaveCycle(context.Background())
	require.NoError(t, err)
	assert.Equal(t, CycleSent, out)

	sent := ch.Sent()
	require.Len(t, sent, 2)
	updates := decodeSent(t, sent[1])
	require.Len(t, updates, 1)
	assert.Equal(t, diff.Create, updates[0].Type)
	assert.Equal(t, []string{remote[0].ID, added.ID}, updates[0].Path)

	data, ok := h.store.Get(KeyLatest)
	require.True(t, ok)
	stored, err := domain.DecodeForest(data)
	require.NoError(t, err)
	assert.Equal(t, 2, stored.ItemCount())
}

func TestSaveCycle_SendFailureDropsSession(t *testing.T) {
	ch := testutil.NewFakeChannel("[]")
	h := newHarness(t, ch)
	require.NoError(t, h.session.Steal(context.Background()))
	ch.SendErr = testutil.ErrFakeSend

	out, err := h.session.SaveCycle(context.Background())
	require.NoError(t, err)
	assert.Equal(t, CycleFailed, out)
	assert.Equal(t, Disconnected, h.session.State())
	assert.True(t, ch.IsClosed())
	assert.Equal(t, 1.0, promtest.ToFloat64(h.metrics.sendFailures))

	// The next connection starts over with a full resend.
	next := testutil.NewFakeChannel("[]")
	h.dialer.Channels = []*testutil.FakeChannel{next}
	require.NoError(t, h.session.Steal(context.Background()))
	out, err = h.session.SaveCycle(context.Background())
	require.NoError(t, err)
	assert.Equal(t, CycleSent, out)
	assert.Equal(t, diff.Identity, decodeSent(t, next.Sent()[0])[0].Type)
}

func TestSaveCycle_PingFailureDropsSession(t *testing.T) {
	ch := testutil.NewFakeChannel("[]")
	h := newHarness(t, ch)
	require.NoError(t, h.session.Steal(context.Background()))
	_, err := h.session.SaveCycle(context.Background())
	require.NoError(t, err)

	ch.PingErr = testutil.ErrFakeSend
	out, err := h.session.SaveCycle(context.Background())
	require.NoError(t, err)
	assert.Equal(t, CycleFailed, out)
	assert.Equal(t, Disconnected, h.session.State())
}

// gatedChannel blocks Send until released.
type gatedChannel struct {
	*testutil.FakeChannel
	entered chan struct{}
	release chan struct{}
	once    sync.Once
}

func (g *gatedChannel) Send(ctx context.Context, payload []byte) error {
	g.once.Do(func() { close(g.entered) })
	<-g.release
	return g.FakeChannel.Send(ctx, payload)
}

type gatedDialer struct{ ch transport.Channel }

func (d gatedDialer) Dial(context.Context) (transport.Channel, error) { return d.ch, nil }

func TestSaveCycle_IsNotReentrant(t *testing.T) {
	gc := &gatedChannel{
		FakeChannel: testutil.NewFakeChannel("[]"),
		entered:     make(chan struct{}),
		release:     make(chan struct{}),
	}
	s := New(Deps{Store: testutil.NewMemStore(), Dialer: gatedDialer{ch: gc}, Now: func() time.Time { return monday }})
	t.Cleanup(s.Cancel)
	require.NoError(t, s.Steal(context.Background()))

	first := make(chan CycleOutcome, 1)
	go func() {
		out, _ := s.SaveCycle(context.Background())
		first <- out
	}()
	<-gc.entered

	out, err := s.SaveCycle(context.Background())
	assert.ErrorIs(t, err, ErrCycleInFlight)
	assert.Equal(t, CycleIdle, out)

	close(gc.release)
	assert.Equal(t, CycleSent, <-first)
	assert.Len(t, gc.Sent(), 1)
}

func TestSaveCycle_SendsPointInTimeCopy(t *testing.T) {
	gc := &gatedChannel{
		FakeChannel: testutil.NewFakeChannel("[]"),
		entered:     make(chan struct{}),
		release:     make(chan struct{}),
	}
	s := New(Deps{Store: testutil.NewMemStore(), Dialer: gatedDialer{ch: gc}, Now: func() time.Time { return monday }})
	t.Cleanup(s.Cancel)
	require.NoError(t, s.Steal(context.Background()))

	done := make(chan struct{})
	go func() {
		_, _ = s.SaveCycle(context.Background())
		close(done)
	}()
	<-gc.entered

	require.NoError(t, s.Mutate(func(f *domain.Forest) error {
		return f.InsertScheme(0, testutil.NewTestScheme("Late edit"))
	}))
	close(gc.release)
	<-done

	updates := decodeSent(t, gc.Sent()[0])
	var sent domain.Forest
	require.NoError(t, updates[0].Value.Decode(&sent))
	assert.Empty(t, sent)

	// The edit made during the send goes out on the next cycle.
	out, err := s.SaveCycle(context.Background())
	require.NoError(t, err)
	assert.Equal(t, CycleSent, out)
	next := decodeSent(t, gc.Sent()[1])
	require.Len(t, next, 1)
	assert.Equal(t, diff.Create, next[0].Type)
	assert.Len(t, next[0].Path, 1)
}

func TestSaveCycle_OfflineWritesSnapshotWhenDirty(t *testing.T) {
	h := newHarness(t)

	out, err := h.session.SaveCycle(context.Background())
	require.NoError(t, err)
	assert.Equal(t, CycleIdle, out)

	require.NoError(t, h.session.Mutate(func(f *domain.Forest) error {
		return f.InsertScheme(0, testutil.NewTestScheme("Offline"))
	}))
	out, err = h.session.SaveCycle(context.Background())
	require.NoError(t, err)
	assert.Equal(t, CycleSavedLocal, out)
	assert.Equal(t, []string{KeyLatest, "monday"}, h.store.Saves)

	out, err = h.session.SaveCycle(context.Background())
	require.NoError(t, err)
	assert.Equal(t, CycleIdle, out)
}

func TestSaveCycle_StateChangesAloneLeaveSnapshotClean(t *testing.T) {
	h := newHarness(t, testutil.NewFakeChannel("taken"))
	before := h.session.Version()

	require.NoError(t, h.session.Steal(context.Background()))
	require.Equal(t, Disconnected, h.session.State())
	assert.Greater(t, h.session.Version(), before)

	out, err := h.session.SaveCycle(context.Background())
	require.NoError(t, err)
	assert.Equal(t, CycleIdle, out)
	assert.Empty(t, h.store.Saves)
}

func TestSteal_FailedPersistLeavesSnapshotDirty(t *testing.T) {
	remote := remoteForest()
	h := newHarness(t, testutil.NewFakeChannel(encode(t, remote)))
	h.store.SaveErr = testutil.ErrFakeStore

	require.NoError(t, h.session.Steal(context.Background()))
	require.Equal(t, Synced, h.session.State())
	h.session.Cancel()

	h.store.SaveErr = nil
	out, err := h.session.SaveCycle(context.Background())
	require.NoError(t, err)
	assert.Equal(t, CycleSavedLocal, out)

	data, ok := h.store.Get(KeyLatest)
	require.True(t, ok)
	stored, err := domain.DecodeForest(data)
	require.NoError(t, err)
	assert.True(t, remote.Equal(stored))
}

func TestSaveCycle_OfflineStoreFailureIsReported(t *testing.T) {
	h := newHarness(t)
	h.store.SaveErr = testutil.ErrFakeStore
	require.NoError(t, h.session.Mutate(func(f *domain.Forest) error {
		return f.InsertScheme(0, testutil.NewTestScheme("Offline"))
	}))

	_, err := h.session.SaveCycle(context.Background())
	assert.ErrorIs(t, err, testutil.ErrFakeStore)
	assert.Len(t, h.session.Forest(), 1)
}

func TestFlush_RequiresSyncedSession(t *testing.T) {
	h := newHarness(t)
	assert.ErrorIs(t, h.session.Flush(context.Background()), ErrNotSynced)
}

func TestLoadLocal_PrefersLatestThenWeekday(t *testing.T) {
	latest := domain.Forest{testutil.NewTestScheme("Latest")}
	backup := domain.Forest{testutil.NewTestScheme("Monday backup")}

	tests := []struct {
		name    string
		blobs   map[string]string
		wantKey string
		want    string
	}{
		{"latest wins", map[string]string{KeyLatest: encode(t, latest), "monday": encode(t, backup)}, KeyLatest, "Latest"},
		{"weekday fallback", map[string]string{"monday": encode(t, backup)}, "monday", "Monday backup"},
		{"corrupt latest falls back", map[string]string{KeyLatest: "{", "monday": encode(t, backup)}, "monday", "Monday backup"},
		{"other weekdays ignored", map[string]string{"tuesday": encode(t, backup)}, "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)
			for k, v := range tt.blobs {
				h.store.Put(k, []byte(v))
			}
			key, err := h.session.LoadLocal(context.Background())
			require.NoError(t, err)
			assert.Equal(t, tt.wantKey, key)

			f := h.session.Forest()
			if tt.want == "" {
				assert.Empty(t, f)
				return
			}
			require.Len(t, f, 1)
			assert.Equal(t, tt.want, f[0].Name)
		})
	}
}

func TestLoadLocal_RefusedWhileSynced(t *testing.T) {
	h := newHarness(t, testutil.NewFakeChannel("[]"))
	require.NoError(t, h.session.Steal(context.Background()))
	_, err := h.session.LoadLocal(context.Background())
	assert.ErrorIs(t, err, ErrConnected)
}

func TestMutate_FailureLeavesForestUntouched(t *testing.T) {
	h := newHarness(t)
	before := h.session.Version()

	err := h.session.Mutate(func(f *domain.Forest) error {
		if err := f.InsertScheme(0, testutil.NewTestScheme("Half")); err != nil {
			return err
		}
		return domain.ErrItemNotFound
	})
	assert.ErrorIs(t, err, domain.ErrItemNotFound)
	assert.Empty(t, h.session.Forest())
	assert.Equal(t, before, h.session.Version())

	err = h.session.Mutate(func(f *domain.Forest) error {
		return f.InsertScheme(0, testutil.NewTestScheme("Bad color", testutil.WithColor(9)))
	})
	assert.Error(t, err)
	assert.Empty(t, h.session.Forest())
}

func TestSubscribe_ReceivesLatestVersion(t *testing.T) {
	h := newHarness(t)
	updates, unsubscribe := h.session.Subscribe()
	defer unsubscribe()

	for i := 0; i < 3; i++ {
		require.NoError(t, h.session.Mutate(func(f *domain.Forest) error {
			return f.InsertScheme(0, testutil.NewTestScheme("S"))
		}))
	}
	select {
	case v := <-updates:
		assert.Equal(t, h.session.Version(), v)
	case <-time.After(time.Second):
		t.Fatal("no change notification")
	}

	unsubscribe()
	_, open := <-updates
	assert.False(t, open)
}

func TestRun_SavesOnTickAndStopsWithContext(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, h.session.Mutate(func(f *domain.Forest) error {
		return f.InsertScheme(0, testutil.NewTestScheme("Ticked"))
	}))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- h.session.Run(ctx, RunOptions{Interval: time.Second}) }()

	assert.Eventually(t, func() bool {
		_, ok := h.store.Get(KeyLatest)
		return ok
	}, 3*time.Second, 20*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("Run did not stop")
	}
}

func TestRun_RejectsNonPositiveInterval(t *testing.T) {
	h := newHarness(t)
	assert.Error(t, h.session.Run(context.Background(), RunOptions{}))
}
