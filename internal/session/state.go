package session

import (
	"context"
	"errors"

	"github.com/alexanderramin/nutq/internal/transport"
)

// State is the session's position in the single-writer protocol.
type State int

const (
	Disconnected State = iota
	Acquiring
	Synced
)

func (s State) String() string {
	switch s {
	case Disconnected:
		return "disconnected"
	case Acquiring:
		return "acquiring"
	case Synced:
		return "synced"
	}
	return "unknown"
}

// CycleOutcome reports what a save cycle did.
type CycleOutcome int

const (
	// CycleIdle: nothing to do (offline and nothing changed).
	CycleIdle CycleOutcome = iota
	// CyclePinged: synced with an empty diff, liveness ping sent.
	CyclePinged
	// CycleSent: synced with a non-empty diff, updates sent.
	CycleSent
	// CycleSavedLocal: offline, snapshot written to disk only.
	CycleSavedLocal
	// CycleFailed: send or ping failed and the session dropped.
	CycleFailed
)

func (o CycleOutcome) String() string {
	switch o {
	case CycleIdle:
		return "idle"
	case CyclePinged:
		return "pinged"
	case CycleSent:
		return "sent"
	case CycleSavedLocal:
		return "saved_local"
	case CycleFailed:
		return "failed"
	}
	return "unknown"
}

var (
	// ErrNotSynced is returned by operations that need the writer slot.
	ErrNotSynced = errors.New("session not synced")

	// ErrCycleInFlight is returned when a save cycle is already running.
	ErrCycleInFlight = errors.New("save cycle already in flight")

	// ErrConnected is returned when an offline-only operation runs while the
	// session holds or is acquiring the writer slot.
	ErrConnected = errors.New("session is connected")
)

// Snapshot keys used by the disk fallback.
const KeyLatest = "latest"

// Store persists forest snapshots by key.
type Store interface {
	Save(ctx context.Context, key string, data []byte) error
	Load(ctx context.Context, key string) ([]byte, error)
}

// BatchStore is implemented by stores that can write several keys atomically.
type BatchStore interface {
	SaveAll(ctx context.Context, data []byte, keys ...string) error
}

// Dialer opens the duplex update channel.
type Dialer interface {
	Dial(ctx context.Context) (transport.Channel, error)
}

// Takeover asks the remote to evict the current writer.
type Takeover interface {
	Steal(ctx context.Context) error
}

// Sentinels are the thin control messages the remote sends instead of data.
type Sentinels struct {
	Taken    string // slot already claimed, sent in place of the snapshot
	Stealing string // another client is about to take the slot
}

var DefaultSentinels = Sentinels{Taken: "taken", Stealing: "stealing"}
