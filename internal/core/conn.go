package core

import "sync/atomic"

// connBuffer is the event channel depth per connection. Slow consumers
// drop events rather than block senders.
const connBuffer = 32

// Conn is a handle to one live transport connection. It is valid from
// creation until Invalidate, after which every Push is a silent no-op.
// A handle is invalidated on disconnect or when a newer connection for
// the same user supersedes it.
type Conn struct {
	ID       string
	UserID   int64
	Username string
	Events   chan *Event

	invalid atomic.Bool
}

// NewConn constructs a connection handle with a buffered event channel.
func NewConn(id string) *Conn {
	return &Conn{
		ID:     id,
		Events: make(chan *Event, connBuffer),
	}
}

// Push delivers an event to the connection. Events pushed to an
// invalidated handle, or to a full channel, are dropped.
func (c *Conn) Push(event *Event) {
	if c == nil || c.invalid.Load() {
		return
	}
	select {
	case c.Events <- event:
	default:
		// Drop if slow consumer.
	}
}

// Invalidate marks the handle unreachable. Idempotent.
func (c *Conn) Invalidate() {
	c.invalid.Store(true)
}

// Invalidated reports whether the handle has been invalidated.
func (c *Conn) Invalidated() bool {
	return c.invalid.Load()
}
