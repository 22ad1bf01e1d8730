package proto

import "encoding/json"

// Inbound is the envelope for messages coming from the client.
type Inbound struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

const (
	ProtocolVersion = 1

	// InboundTypeIdentify binds the connection to a user identity.
	InboundTypeIdentify = "identify"
	// InboundTypeSend is a room-wide broadcast message.
	InboundTypeSend = "send"
	// InboundTypeSendPrivate is a targeted message to one recipient.
	InboundTypeSendPrivate = "send_private"
	// InboundTypeTyping is a best-effort typing indicator.
	InboundTypeTyping = "typing"
	// InboundTypeMarkRead acknowledges reading a sender's messages.
	InboundTypeMarkRead = "mark_read"
	// InboundTypeOffline is an explicit going-offline signal.
	InboundTypeOffline = "offline"

	OutboundTypeEvent = "event"
	OutboundTypeError = "error"
)

// IdentifyData carries the user identity for the connection.
type IdentifyData struct {
	UserID int64 `json:"user_id"`
}

// SendData is a broadcast chat message from the client.
type SendData struct {
	Text string `json:"text"`
}

// SendPrivateData is a targeted message from the client.
type SendPrivateData struct {
	To      int64  `json:"to"`
	Content string `json:"content"`
}

// TypingData is an opaque typing indicator payload, relayed as-is.
type TypingData struct {
	Payload json.RawMessage `json:"payload"`
}

// MarkReadData acknowledges reading all pending messages from a sender.
type MarkReadData struct {
	Sender int64 `json:"sender"`
}

// Outbound is the envelope for messages sent to the client.
type Outbound struct {
	Type  string `json:"type"`
	Event string `json:"event,omitempty"`
	Data  any    `json:"data,omitempty"`
	Error *Error `json:"error,omitempty"`
}

// Outbound event names.
const (
	EventPresenceUpdate   = "presence_update"
	EventReceiveMessage   = "receive_message"
	EventReceivePrivate   = "receive_private"
	EventUnreadSnapshot   = "unread_snapshot"
	EventReadAcknowledged = "read_acknowledged"
	EventTyping           = "typing"
)

// PresenceEntry describes one reachable user.
type PresenceEntry struct {
	UserID      int64  `json:"user_id"`
	Username    string `json:"username"`
	ConnectedAt int64  `json:"connected_at"`
}

// EventPresenceData carries the full reachable set.
type EventPresenceData struct {
	Users []PresenceEntry `json:"users"`
}

// EventMessageData is a broadcast message pushed to clients.
type EventMessageData struct {
	ID   int64  `json:"id"`
	From int64  `json:"from"`
	User string `json:"user"`
	Text string `json:"text"`
	TS   int64  `json:"ts"`
}

// EventPrivateData is a private message pushed to its recipient or
// echoed back to its sender.
type EventPrivateData struct {
	ID       int64  `json:"id"`
	From     int64  `json:"from"`
	FromName string `json:"from_name"`
	To       int64  `json:"to"`
	ToName   string `json:"to_name"`
	Content  string `json:"content"`
	TS       int64  `json:"ts"`
}

// EventUnreadData replays pending counts, keyed by sender ID.
type EventUnreadData struct {
	Counts map[int64]int `json:"counts"`
}

// EventReadAckData confirms a read acknowledgment.
type EventReadAckData struct {
	Sender int64 `json:"sender"`
}

// EventTypingData relays a typing indicator.
type EventTypingData struct {
	From    int64           `json:"from"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Error describes a protocol-level error response.
type Error struct {
	Code string `json:"code"`
	Msg  string `json:"msg"`
}
