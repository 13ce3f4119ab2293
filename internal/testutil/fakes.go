package testutil

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/alexanderramin/nutq/internal/transport"
)

var (
	ErrFakeClosed = errors.New("fake channel closed")
	ErrFakeSend   = errors.New("fake send failure")
	ErrFakeStore  = errors.New("fake store failure")
	ErrNoBlob     = errors.New("blob not found")
)

// MemStore is an in-memory blob store keyed like the snapshot repository.
type MemStore struct {
	mu      sync.Mutex
	blobs   map[string][]byte
	SaveErr error
	Saves   []string
}

func NewMemStore() *MemStore {
	return &MemStore{blobs: make(map[string][]byte)}
}

func (m *MemStore) Save(_ context.Context, key string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.SaveErr != nil {
		return m.SaveErr
	}
	m.blobs[key] = append([]byte(nil), data...)
	m.Saves = append(m.Saves, key)
	return nil
}

func (m *MemStore) Load(_ context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.blobs[key]
	if !ok {
		return nil, fmt.Errorf("blob %q: %w", key, ErrNoBlob)
	}
	return append([]byte(nil), data...), nil
}

func (m *MemStore) Put(key string, data []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.blobs[key] = append([]byte(nil), data...)
}

func (m *MemStore) Get(key string) ([]byte, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.blobs[key]
	return data, ok
}

// FakeChannel is a scripted duplex channel.
type FakeChannel struct {
	mu       sync.Mutex
	incoming chan []byte
	closed   chan struct{}
	once     sync.Once
	sent     [][]byte
	pings    int
	SendErr  error
	PingErr  error
}

// NewFakeChannel preloads messages the "server" sends first.
func NewFakeChannel(initial ...string) *FakeChannel {
	c := &FakeChannel{
		incoming: make(chan []byte, 64),
		closed:   make(chan struct{}),
	}
	for _, msg := range initial {
		c.incoming <- []byte(msg)
	}
	return c
}

// Push delivers a server message.
func (c *FakeChannel) Push(msg string) {
	c.incoming <- []byte(msg)
}

func (c *FakeChannel) Receive(ctx context.Context) ([]byte, error) {
	select {
	case <-c.closed:
		return nil, ErrFakeClosed
	default:
	}
	select {
	case <-c.closed:
		return nil, ErrFakeClosed
	case <-ctx.Done():
		return nil, ctx.Err()
	case msg := <-c.incoming:
		return msg, nil
	}
}

func (c *FakeChannel) Send(_ context.Context, payload []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.IsClosed() {
		return ErrFakeClosed
	}
	if c.SendErr != nil {
		return c.SendErr
	}
	c.sent = append(c.sent, append([]byte(nil), payload...))
	return nil
}

func (c *FakeChannel) Ping(context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.IsClosed() {
		return ErrFakeClosed
	}
	if c.PingErr != nil {
		return c.PingErr
	}
	c.pings++
	return nil
}

func (c *FakeChannel) Close() error {
	c.once.Do(func() { close(c.closed) })
	return nil
}

func (c *FakeChannel) IsClosed() bool {
	select {
	case <-c.closed:
		return true
	default:
		return false
	}
}

func (c *FakeChannel) Sent() [][]byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([][]byte(nil), c.sent...)
}

func (c *FakeChannel) Pings() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pings
}

// FakeDialer hands out channels in order. With Block set, Dial waits for the
// context to end, which lets tests cancel an in-flight acquisition.
type FakeDialer struct {
	mu       sync.Mutex
	Channels []*FakeChannel
	Err      error
	Block    bool
	dials    int
	Started  chan struct{}
}

func (d *FakeDialer) Dial(ctx context.Context) (transport.Channel, error) {
	d.mu.Lock()
	d.dials++
	block := d.Block
	started := d.Started
	d.Started = nil
	d.mu.Unlock()

	if block {
		if started != nil {
			close(started)
		}
		<-ctx.Done()
		return nil, ctx.Err()
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.Err != nil {
		return nil, d.Err
	}
	if len(d.Channels) == 0 {
		return nil, errors.New("fake dialer: no channel scripted")
	}
	ch := d.Channels[0]
	d.Channels = d.Channels[1:]
	return ch, nil
}

func (d *FakeDialer) Dials() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.dials
}

// FakeTakeover records takeover requests.
type FakeTakeover struct {
	mu    sync.Mutex
	Err   error
	calls int
}

func (f *FakeTakeover) Steal(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return f.Err
}

func (f *FakeTakeover) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

// ScheduledCall is one recorded ScheduleAt.
type ScheduledCall struct {
	ID    string
	At    time.Time
	Title string
	Body  string
}

// FakeScheduler keeps scheduled notifications as outstanding until retracted.
type FakeScheduler struct {
	mu          sync.Mutex
	outstanding map[string]ScheduledCall
	Scheduled   []ScheduledCall
	Retracted   []string
}

func NewFakeScheduler() *FakeScheduler {
	return &FakeScheduler{outstanding: make(map[string]ScheduledCall)}
}

func (s *FakeScheduler) ScheduleAt(_ context.Context, id string, at time.Time, title, body string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	call := ScheduledCall{ID: id, At: at, Title: title, Body: body}
	s.outstanding[id] = call
	s.Scheduled = append(s.Scheduled, call)
	return nil
}

func (s *FakeScheduler) Retract(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.outstanding, id)
	s.Retracted = append(s.Retracted, id)
	return nil
}

func (s *FakeScheduler) ListDelivered(context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := make([]string, 0, len(s.outstanding))
	for id := range s.outstanding {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

// Reset clears the call logs but keeps outstanding notifications.
func (s *FakeScheduler) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Scheduled = nil
	s.Retracted = nil
}
