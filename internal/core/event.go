package core

import (
	"encoding/json"
	"time"
)

// EventKind is a notification the core emits to connections.
type EventKind int

const (
	// EventPresence carries the current reachable user set.
	EventPresence EventKind = iota
	// EventBroadcast notifies about a room-wide chat message.
	EventBroadcast
	// EventPrivate delivers a private message to its recipient (or echoes
	// it back to the sender).
	EventPrivate
	// EventUnreadSnapshot replays pending unread counts to a freshly
	// identified session.
	EventUnreadSnapshot
	// EventReadAck confirms a read acknowledgment back to the session.
	EventReadAck
	// EventTyping relays a typing indicator. No state is kept for it.
	EventTyping
	// EventError notifies the connection about a domain error.
	EventError
)

// Message is the broadcast message envelope carried by events.
type Message struct {
	ID        int64
	From      int64
	FromName  string
	Text      string
	CreatedAt time.Time
}

// Private is the private message envelope carried by events.
type Private struct {
	ID        int64
	From      int64
	FromName  string
	To        int64
	ToName    string
	Content   string
	CreatedAt time.Time
}

// PresenceInfo describes one reachable user in a presence update.
type PresenceInfo struct {
	UserID      int64
	Username    string
	ConnectedAt time.Time
}

// Event is sent to connections to describe what happened in the system.
type Event struct {
	Kind      EventKind
	Message   *Message
	Private   *Private
	Reachable []PresenceInfo  // for EventPresence
	Unread    map[int64]int   // for EventUnreadSnapshot, sender -> count
	Sender    int64           // for EventReadAck and EventTyping
	Payload   json.RawMessage // for EventTyping, opaque passthrough
	Error     *CoreError
}
