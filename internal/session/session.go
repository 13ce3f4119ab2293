// Package session implements the single-writer sync session: acquiring the
// writer slot, holding the authoritative forest, periodically pushing
// identity diffs, and falling back to local disk snapshots.
package session

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/alexanderramin/nutq/internal/diff"
	"github.com/alexanderramin/nutq/internal/domain"
	"github.com/alexanderramin/nutq/internal/transport"
)

// Deps are the session's collaborators. Store and Dialer are required.
type Deps struct {
	Store     Store
	Dialer    Dialer
	Takeover  Takeover
	Now       func() time.Time
	Logger    *slog.Logger
	Metrics   *Metrics
	Sentinels Sentinels
}

// Session owns the live forest and the connection state. All methods are
// safe for concurrent use.
type Session struct {
	store     Store
	dialer    Dialer
	takeover  Takeover
	now       func() time.Time
	logger    *slog.Logger
	metrics   *Metrics
	sentinels Sentinels

	mu            sync.Mutex
	state         State
	gen           uint64
	ch            transport.Channel
	cancelAcquire context.CancelFunc
	forest        domain.Forest
	overview      *diff.Overview
	remote        map[string]bool
	version       uint64
	edits         uint64 // forest replacements and mutations only
	savedEdits    uint64
	subs          map[int]chan uint64
	nextSub       int

	saving atomic.Bool
}

func New(deps Deps) *Session {
	s := &Session{
		store:     deps.Store,
		dialer:    deps.Dialer,
		takeover:  deps.Takeover,
		now:       deps.Now,
		logger:    deps.Logger,
		metrics:   deps.Metrics,
		sentinels: deps.Sentinels,
		forest:    domain.Forest{},
		remote:    map[string]bool{},
		subs:      map[int]chan uint64{},
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.logger == nil {
		s.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if s.sentinels.Taken == "" {
		s.sentinels.Taken = DefaultSentinels.Taken
	}
	if s.sentinels.Stealing == "" {
		s.sentinels.Stealing = DefaultSentinels.Stealing
	}
	return s
}

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Forest returns a deep copy of the live forest.
func (s *Session) Forest() domain.Forest {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.forest.Clone()
}

// Version increases on every forest or state change.
func (s *Session) Version() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.version
}

// RemotelyUpdated reports whether the item arrived changed from the remote on
// the last acquisition.
func (s *Session) RemotelyUpdated(itemID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.remote[itemID]
}

// Subscribe returns a channel that receives the latest version after each
// change. Slow readers only see the most recent value. Call the returned
// function to unsubscribe.
func (s *Session) Subscribe() (<-chan uint64, func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextSub
	s.nextSub++
	ch := make(chan uint64, 1)
	s.subs[id] = ch
	return ch, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if c, ok := s.subs[id]; ok {
			delete(s.subs, id)
			close(c)
		}
	}
}

// Mutate applies fn to a copy of the forest and swaps it in when fn and
// validation succeed. A failed mutation leaves the forest untouched.
func (s *Session) Mutate(fn func(f *domain.Forest) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.forest.Clone()
	if err := fn(&next); err != nil {
		return err
	}
	if err := next.Validate(); err != nil {
		return err
	}
	s.forest = next
	s.edits++
	s.bumpLocked()
	return nil
}

// Steal claims the writer slot. It moves Disconnected -> Acquiring, sends a
// best-effort takeover, dials, and reads the first message. A "taken"
// sentinel or a dial failure returns the session to Disconnected. A data
// payload becomes the authoritative forest and the session is Synced.
// Calling Steal while not Disconnected is a no-op.
func (s *Session) Steal(ctx context.Context) error {
	s.mu.Lock()
	if s.state != Disconnected {
		s.mu.Unlock()
		return nil
	}
	acqCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	s.gen++
	gen := s.gen
	s.cancelAcquire = cancel
	s.transitionLocked(ctx, Acquiring, "steal")
	s.mu.Unlock()

	if s.takeover != nil {
		if err := s.takeover.Steal(acqCtx); err != nil {
			s.logger.WarnContext(ctx, "sync_takeover_failed", "error", err.Error())
		}
	}

	ch, err := s.dialer.Dial(acqCtx)
	if err != nil {
		s.abandon(ctx, gen, nil, "dial failed")
		return fmt.Errorf("opening channel: %w", err)
	}

	first, err := ch.Receive(acqCtx)
	if err != nil {
		s.abandon(ctx, gen, ch, "no snapshot")
		return fmt.Errorf("reading snapshot: %w", err)
	}
	if string(first) == s.sentinels.Taken {
		s.abandon(ctx, gen, ch, "taken")
		return nil
	}

	received, err := domain.DecodeForest(first)
	if err != nil {
		s.logger.WarnContext(ctx, "sync_snapshot_undecodable", "error", err.Error())
		received = domain.Forest{}
	}
	local, _ := s.loadLocal(acqCtx)
	remote := markRemote(local, received)

	s.mu.Lock()
	if s.gen != gen || s.state != Acquiring {
		s.mu.Unlock()
		_ = ch.Close()
		return context.Canceled
	}
	s.ch = ch
	s.cancelAcquire = nil
	s.forest = received
	s.edits++
	edits := s.edits
	s.overview = nil
	s.remote = remote
	s.transitionLocked(ctx, Synced, "snapshot")
	s.mu.Unlock()

	if err := s.persist(ctx, received); err != nil {
		s.logger.WarnContext(ctx, "sync_persist_failed", "error", err.Error())
	} else {
		s.markSaved(edits)
	}

	go s.readLoop(gen, ch)
	return nil
}

// Cancel forces the session to Disconnected, aborting an in-flight
// acquisition and closing any open channel.
func (s *Session) Cancel() {
	s.mu.Lock()
	if s.state == Disconnected {
		s.mu.Unlock()
		return
	}
	cancel := s.cancelAcquire
	ch := s.ch
	s.gen++
	s.ch = nil
	s.cancelAcquire = nil
	s.overview = nil
	s.transitionLocked(context.Background(), Disconnected, "cancel")
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if ch != nil {
		_ = ch.Close()
	}
}

// Flush runs a save cycle that must reach the remote.
func (s *Session) Flush(ctx context.Context) error {
	if s.State() != Synced {
		return ErrNotSynced
	}
	out, err := s.SaveCycle(ctx)
	if err != nil {
		return err
	}
	if out == CycleFailed {
		return fmt.Errorf("flushing updates: %w", ErrNotSynced)
	}
	return nil
}

// SaveCycle is one tick of the periodic save. While Synced it diffs a
// point-in-time copy of the forest against the acknowledged overview, pings
// on an empty diff and sends otherwise, advancing the overview on a
// successful send. A failed send or ping drops the session and leaves the
// overview as it was. While not Synced it writes the local snapshot if the
// forest changed. Cycles never overlap.
func (s *Session) SaveCycle(ctx context.Context) (CycleOutcome, error) {
	if !s.saving.CompareAndSwap(false, true) {
		return CycleIdle, ErrCycleInFlight
	}
	defer s.saving.Store(false)

	s.mu.Lock()
	state := s.state
	gen := s.gen
	ch := s.ch
	snapshot := s.forest.Clone()
	edits := s.edits
	dirty := edits != s.savedEdits
	var prev *diff.Overview
	if s.overview != nil {
		ov := cloneOverview(*s.overview)
		prev = &ov
	}
	s.mu.Unlock()

	if state != Synced || ch == nil {
		if !dirty {
			return CycleIdle, nil
		}
		if err := s.persist(ctx, snapshot); err != nil {
			s.logger.WarnContext(ctx, "sync_persist_failed", "error", err.Error())
			return CycleIdle, fmt.Errorf("saving local snapshot: %w", err)
		}
		s.markSaved(edits)
		return CycleSavedLocal, nil
	}

	updates, err := diff.Compute(prev, snapshot)
	if err != nil {
		return CycleIdle, fmt.Errorf("computing updates: %w", err)
	}

	if len(updates) == 0 {
		if err := ch.Ping(ctx); err != nil {
			s.metrics.failed()
			s.drop(ctx, gen, "ping failed")
			return CycleFailed, nil
		}
		s.metrics.pinged()
		return CyclePinged, nil
	}

	payload, err := diff.Encode(updates)
	if err != nil {
		return CycleIdle, err
	}
	if err := ch.Send(ctx, payload); err != nil {
		s.metrics.failed()
		s.drop(ctx, gen, "send failed")
		return CycleFailed, nil
	}
	s.metrics.sent(len(updates))

	if err := s.persist(ctx, snapshot); err != nil {
		s.logger.WarnContext(ctx, "sync_persist_failed", "error", err.Error())
	} else {
		s.markSaved(edits)
	}

	next := diff.NewOverview(snapshot)
	s.mu.Lock()
	if s.gen == gen && s.state == Synced {
		s.overview = &next
	}
	s.mu.Unlock()

	s.logger.DebugContext(ctx, "sync_updates_sent", "count", len(updates))
	return CycleSent, nil
}

// LoadLocal replaces the forest with the best local snapshot: "latest",
// then today's weekday backup, then empty. It reports which key was used,
// or "" when nothing was found. Only valid while Disconnected.
func (s *Session) LoadLocal(ctx context.Context) (string, error) {
	if s.State() != Disconnected {
		return "", ErrConnected
	}
	f, key := s.loadLocal(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != Disconnected {
		return "", ErrConnected
	}
	s.forest = f
	s.edits++
	s.savedEdits = s.edits
	s.bumpLocked()
	return key, nil
}

func (s *Session) loadLocal(ctx context.Context) (domain.Forest, string) {
	for _, key := range []string{KeyLatest, WeekdayKey(s.now())} {
		data, err := s.store.Load(ctx, key)
		if err != nil {
			continue
		}
		f, err := domain.DecodeForest(data)
		if err != nil {
			s.logger.WarnContext(ctx, "sync_local_snapshot_undecodable", "key", key, "error", err.Error())
			continue
		}
		return f, key
	}
	return domain.Forest{}, ""
}

// WeekdayKey is the rolling backup key for t, e.g. "monday".
func WeekdayKey(t time.Time) string {
	return strings.ToLower(t.Weekday().String())
}

func (s *Session) persist(ctx context.Context, f domain.Forest) error {
	data, err := domain.EncodeForest(f)
	if err != nil {
		return err
	}
	keys := []string{KeyLatest, WeekdayKey(s.now())}
	if batch, ok := s.store.(BatchStore); ok {
		return batch.SaveAll(ctx, data, keys...)
	}
	for _, key := range keys {
		if err := s.store.Save(ctx, key, data); err != nil {
			return fmt.Errorf("saving snapshot %s: %w", key, err)
		}
	}
	return nil
}

func (s *Session) markSaved(edits uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if edits > s.savedEdits {
		s.savedEdits = edits
	}
}

func (s *Session) readLoop(gen uint64, ch transport.Channel) {
	ctx := context.Background()
	for {
		msg, err := ch.Receive(ctx)
		if err != nil {
			s.drop(ctx, gen, "channel closed")
			return
		}
		if string(msg) == s.sentinels.Stealing {
			s.drop(ctx, gen, "stealing")
			return
		}
		s.logger.DebugContext(ctx, "sync_message_ignored", "bytes", len(msg))
	}
}

// drop closes the channel of connection gen and returns to Disconnected. It
// does nothing if gen is no longer current.
func (s *Session) drop(ctx context.Context, gen uint64, reason string) {
	s.mu.Lock()
	if s.gen != gen || s.state == Disconnected {
		s.mu.Unlock()
		return
	}
	ch := s.ch
	s.ch = nil
	s.overview = nil
	s.transitionLocked(ctx, Disconnected, reason)
	s.mu.Unlock()

	if ch != nil {
		_ = ch.Close()
	}
}

// abandon ends acquisition gen, closing ch if one was opened.
func (s *Session) abandon(ctx context.Context, gen uint64, ch transport.Channel, reason string) {
	if ch != nil {
		_ = ch.Close()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.gen != gen || s.state != Acquiring {
		return
	}
	s.cancelAcquire = nil
	s.transitionLocked(ctx, Disconnected, reason)
}

func (s *Session) transitionLocked(ctx context.Context, to State, reason string) {
	from := s.state
	s.state = to
	s.logger.InfoContext(ctx, "sync_transition", "from", from.String(), "to", to.String(), "reason", reason)
	s.metrics.transition(from, to)
	s.bumpLocked()
}

func (s *Session) bumpLocked() {
	s.version++
	for _, ch := range s.subs {
		select {
		case <-ch:
		default:
		}
		ch <- s.version
	}
}

// markRemote flags every received item that differs from the same id in the
// local snapshot, skipping schemes mirrored from an external calendar.
func markRemote(local, received domain.Forest) map[string]bool {
	known := make(map[string]domain.Item, local.ItemCount())
	for _, sc := range local {
		for _, it := range sc.Items {
			known[it.ID] = it
		}
	}
	marked := map[string]bool{}
	for _, sc := range received {
		if sc.SyncsExternal {
			continue
		}
		for _, it := range sc.Items {
			prev, ok := known[it.ID]
			if !ok || !prev.Equal(it) {
				marked[it.ID] = true
			}
		}
	}
	return marked
}

func cloneOverview(ov diff.Overview) diff.Overview {
	out := make(diff.Overview, len(ov))
	for i, s := range ov {
		out[i] = diff.SchemeOverview{ID: s.ID, ItemIDs: append([]string(nil), s.ItemIDs...)}
	}
	return out
}
