// Package transport provides the two remote collaborators of a sync session:
// the duplex update channel and the authenticated request client.
package transport

import (
	"context"
	"errors"
)

var (
	// ErrChannelClosed is returned by operations on a channel after Close.
	ErrChannelClosed = errors.New("channel closed")

	// ErrUnauthorized indicates the server rejected the bearer credential.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrUnexpectedStatus wraps any non-2xx response that is not a 401.
	ErrUnexpectedStatus = errors.New("unexpected status")
)

// Channel is a duplex message channel. Receive blocks until a data message
// arrives, the context is done, or the channel fails. Implementations must
// allow Close to be called concurrently with a blocked Receive.
type Channel interface {
	Receive(ctx context.Context) ([]byte, error)
	Send(ctx context.Context, payload []byte) error
	Ping(ctx context.Context) error
	Close() error
}
