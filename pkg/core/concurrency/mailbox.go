package concurrency

import (
	"context"
	"errors"
)

var (
	// ErrMailboxClosed is returned when trying to send/receive on a closed mailbox
	ErrMailboxClosed = errors.New("mailbox is closed")

	// ErrMailboxFull is returned when trying to send to a full mailbox (backpressure)
	ErrMailboxFull = errors.New("mailbox is full")
)

// Mailbox is the bounded FIFO queue shared by an executor's workers
// Hides chan type and select statements from application code
type Mailbox interface {
	// Send enqueues a message without blocking
	// Returns ErrMailboxFull if mailbox is full (backpressure)
	// Returns ErrMailboxClosed if mailbox is closed
	Send(msg interface{}) error

	// SendContext enqueues a message, waiting for room
	// Returns ErrMailboxClosed if the mailbox is closed before room frees up,
	// or ctx.Err() if ctx is done first
	SendContext(ctx context.Context, msg interface{}) error

	// Receive receives a message from the mailbox
	// Blocks until a message is available or ctx is cancelled
	// After Close, buffered messages are still delivered; then ErrMailboxClosed
	Receive(ctx context.Context) (interface{}, error)

	// TryReceive attempts to receive a message without blocking
	// Returns (msg, true, nil) if a message is available, (nil, false, nil) if empty
	// Returns ErrMailboxClosed once closed and drained
	TryReceive() (interface{}, bool, error)

	// Close stops further sends. Idempotent.
	Close()

	// Capacity returns the maximum capacity of the mailbox
	Capacity() int

	// Size returns the current number of messages in the mailbox
	Size() int

	// IsClosed returns true if the mailbox is closed
	IsClosed() bool
}
