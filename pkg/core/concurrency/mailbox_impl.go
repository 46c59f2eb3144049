package concurrency

import (
	"context"
	"sync"
)

// boundedMailbox implements Mailbox using channels internally
// Hides chan type and select statements from public API
type boundedMailbox struct {
	ch        chan interface{} // Hidden: internal channel
	closing   chan struct{}    // closed first so blocked senders bail out
	mu        sync.RWMutex     // senders hold RLock; Close takes Lock before close(ch)
	closed    bool
	closeOnce sync.Once
	capacity  int
}

// NewBoundedMailbox creates a new bounded mailbox
// A capacity of 0 gives direct hand-off: Send succeeds only when a receiver is waiting
func NewBoundedMailbox(capacity int) Mailbox {
	if capacity < 0 {
		capacity = 0
	}

	return &boundedMailbox{
		ch:       make(chan interface{}, capacity), // Hidden: channel creation
		closing:  make(chan struct{}),
		capacity: capacity,
	}
}

// Send implements Mailbox interface
func (mb *boundedMailbox) Send(msg interface{}) error {
	mb.mu.RLock()
	defer mb.mu.RUnlock()

	if mb.closed || mb.isClosing() {
		return ErrMailboxClosed
	}

	// Try to send (non-blocking for backpressure)
	select {
	case mb.ch <- msg: // Hidden: channel send
		return nil
	default:
		return ErrMailboxFull
	}
}

// SendContext implements Mailbox interface
func (mb *boundedMailbox) SendContext(ctx context.Context, msg interface{}) error {
	mb.mu.RLock()
	defer mb.mu.RUnlock()

	if mb.closed || mb.isClosing() {
		return ErrMailboxClosed
	}

	select {
	case mb.ch <- msg: // Hidden: channel send
		return nil
	case <-mb.closing:
		return ErrMailboxClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Receive implements Mailbox interface
func (mb *boundedMailbox) Receive(ctx context.Context) (interface{}, error) {
	select {
	case msg, ok := <-mb.ch: // Hidden: channel receive
		if !ok {
			return nil, ErrMailboxClosed
		}
		return msg, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// TryReceive implements Mailbox interface
func (mb *boundedMailbox) TryReceive() (interface{}, bool, error) {
	select {
	case msg, ok := <-mb.ch: // Hidden: channel receive
		if !ok {
			return nil, false, ErrMailboxClosed
		}
		return msg, true, nil
	default:
		return nil, false, nil
	}
}

// Close implements Mailbox interface
func (mb *boundedMailbox) Close() {
	mb.closeOnce.Do(func() {
		close(mb.closing)

		mb.mu.Lock()
		mb.closed = true
		close(mb.ch) // Hidden: channel close
		mb.mu.Unlock()
	})
}

// Capacity implements Mailbox interface
func (mb *boundedMailbox) Capacity() int {
	return mb.capacity
}

// Size implements Mailbox interface
func (mb *boundedMailbox) Size() int {
	return len(mb.ch) // Hidden: channel length
}

// IsClosed implements Mailbox interface
func (mb *boundedMailbox) IsClosed() bool {
	return mb.isClosing()
}

func (mb *boundedMailbox) isClosing() bool {
	select {
	case <-mb.closing:
		return true
	default:
		return false
	}
}
