package core

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/loopchat/loopchat-server/internal/store"
)

// Store is the slice of the durable store the router depends on.
type Store interface {
	GetUserByID(ctx context.Context, id int64) (*store.User, error)
	SaveMessage(ctx context.Context, msg *store.Message) error
	SavePrivateMessage(ctx context.Context, msg *store.PrivateMessage) error
	SetConnected(ctx context.Context, userID int64, connected bool) error
}

// Router decides per-message delivery: broadcast fan-out over the
// presence snapshot, or targeted push plus unread accounting. All
// persistence happens before any routing or accounting, so a store
// failure never leaves a counter incremented without a saved message.
type Router struct {
	store    Store
	presence *Presence
	unread   *Ledger
	log      *zerolog.Logger
}

// NewRouter builds a delivery router over the shared registry and ledger.
func NewRouter(st Store, presence *Presence, unread *Ledger, logger *zerolog.Logger) *Router {
	return &Router{
		store:    st,
		presence: presence,
		unread:   unread,
		log:      logger,
	}
}

// Broadcast persists a room-wide message and pushes it to every user
// reachable at send time. Users connecting after the snapshot do not
// receive it; broadcast keeps no per-recipient state.
func (r *Router) Broadcast(ctx context.Context, senderID int64, text string) (*Message, error) {
	sender, err := r.store.GetUserByID(ctx, senderID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, fmt.Errorf("sender %d: %w", senderID, ErrUserNotFound)
		}
		return nil, fmt.Errorf("find sender: %w", err)
	}

	msg := &store.Message{UserID: sender.ID, Text: text}
	if err := r.store.SaveMessage(ctx, msg); err != nil {
		return nil, fmt.Errorf("save message: %w", err)
	}

	envelope := &Message{
		ID:        msg.ID,
		From:      sender.ID,
		FromName:  sender.Username,
		Text:      msg.Text,
		CreatedAt: msg.CreatedAt,
	}

	event := &Event{Kind: EventBroadcast, Message: envelope}
	for _, conn := range r.presence.Snapshot() {
		conn.Push(event)
	}

	r.log.Debug().Int64("sender", sender.ID).Int64("message_id", msg.ID).Msg("broadcast routed")
	return envelope, nil
}

// SendPrivate persists a targeted message, accounts it as unread, and
// pushes it to the recipient when reachable. The unread counter is
// incremented whether or not the recipient is online: only an explicit
// read acknowledgment from the recipient's session clears it. The sender
// always gets an echo for local confirmation.
func (r *Router) SendPrivate(ctx context.Context, senderID, recipientID int64, content string) (*Private, error) {
	sender, err := r.store.GetUserByID(ctx, senderID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, fmt.Errorf("sender %d: %w", senderID, ErrUserNotFound)
		}
		return nil, fmt.Errorf("find sender: %w", err)
	}

	recipient, err := r.store.GetUserByID(ctx, recipientID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, fmt.Errorf("recipient %d: %w", recipientID, ErrUserNotFound)
		}
		return nil, fmt.Errorf("find recipient: %w", err)
	}

	msg := &store.PrivateMessage{
		SenderID:   sender.ID,
		ReceiverID: recipient.ID,
		Content:    content,
	}
	if err := r.store.SavePrivateMessage(ctx, msg); err != nil {
		return nil, fmt.Errorf("save private message: %w", err)
	}

	r.unread.RecordUndelivered(recipient.ID, sender.ID)

	envelope := &Private{
		ID:        msg.ID,
		From:      sender.ID,
		FromName:  sender.Username,
		To:        recipient.ID,
		ToName:    recipient.Username,
		Content:   msg.Content,
		CreatedAt: msg.CreatedAt,
	}
	event := &Event{Kind: EventPrivate, Private: envelope}

	// A handle invalidated between Lookup and Push just drops the event;
	// the message is persisted and accounted, so the send still succeeds.
	if target := r.presence.Lookup(recipient.ID); target != nil {
		target.Push(event)
	}

	if sender.ID != recipient.ID {
		if echo := r.presence.Lookup(sender.ID); echo != nil {
			echo.Push(event)
		}
	}

	r.log.Debug().
		Int64("sender", sender.ID).
		Int64("recipient", recipient.ID).
		Int64("message_id", msg.ID).
		Msg("private message routed")
	return envelope, nil
}

// Typing relays a typing indicator to every reachable user except the
// sender. Best effort, no state, no persistence.
func (r *Router) Typing(senderID int64, payload json.RawMessage) {
	event := &Event{Kind: EventTyping, Sender: senderID, Payload: payload}
	for _, conn := range r.presence.Snapshot() {
		if conn.UserID == senderID {
			continue
		}
		conn.Push(event)
	}
}
