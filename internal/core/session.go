package core

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"github.com/loopchat/loopchat-server/internal/store"
)

// SessionState tracks the lifecycle of one live connection.
type SessionState int

const (
	// StateConnecting means the raw connection is up, no identity yet.
	StateConnecting SessionState = iota
	// StateBound means an identity was supplied and registered.
	StateBound
	// StateActive means the session may send and receive messages.
	StateActive
	// StateDisconnected is terminal.
	StateDisconnected
)

// Session owns the wiring between a user identity and a presence entry
// for the lifetime of one connection. A new connection for the same user
// starts fresh; it inherits nothing from the superseded session.
type Session struct {
	conn     *Conn
	router   *Router
	presence *Presence
	unread   *Ledger
	store    Store
	log      *zerolog.Logger

	mu     sync.Mutex
	state  SessionState
	userID int64
}

// NewSession creates a session in the Connecting state for conn.
func NewSession(conn *Conn, router *Router, presence *Presence, unread *Ledger, st Store, logger *zerolog.Logger) *Session {
	return &Session{
		conn:     conn,
		router:   router,
		presence: presence,
		unread:   unread,
		store:    st,
		log:      logger,
		state:    StateConnecting,
	}
}

// State returns the current lifecycle state.
func (s *Session) State() SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Conn returns the session's connection handle.
func (s *Session) Conn() *Conn {
	return s.conn
}

// UserID returns the bound identity, or 0 before Identify.
func (s *Session) UserID() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.userID
}

// Identify binds the connection to a user identity. On success the
// session becomes Active, receives its unread snapshot, and the updated
// reachable set is broadcast to every connection.
func (s *Session) Identify(ctx context.Context, userID int64) error {
	s.mu.Lock()
	if st := s.state; st != StateConnecting {
		s.mu.Unlock()
		return fmt.Errorf("identify in state %d: %w", st, ErrBadRequest)
	}
	s.mu.Unlock()

	// Store lookup happens before any registry mutation and with no
	// locks held, so concurrent sessions stay unblocked.
	user, err := s.store.GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return fmt.Errorf("identity %d: %w", userID, ErrUserNotFound)
		}
		return fmt.Errorf("find user: %w", err)
	}

	s.conn.UserID = user.ID
	s.conn.Username = user.Username

	s.mu.Lock()
	if st := s.state; st != StateConnecting {
		// Lost a race with Disconnect; the handle is already dead.
		s.mu.Unlock()
		return fmt.Errorf("identify in state %d: %w", st, ErrBadRequest)
	}
	s.userID = user.ID
	s.state = StateBound
	s.mu.Unlock()

	s.presence.Bind(user.ID, s.conn)

	s.mu.Lock()
	if s.state != StateBound {
		// Disconnect won the race; take the entry back out.
		st := s.state
		s.mu.Unlock()
		s.presence.Unbind(user.ID, s.conn)
		return fmt.Errorf("identify in state %d: %w", st, ErrBadRequest)
	}
	s.state = StateActive
	s.mu.Unlock()

	if err := s.store.SetConnected(ctx, user.ID, true); err != nil {
		s.log.Warn().Err(err).Int64("user", user.ID).Msg("failed to mirror connected flag")
	}

	s.conn.Push(&Event{Kind: EventUnreadSnapshot, Unread: s.unread.Snapshot(user.ID)})
	s.broadcastPresence()

	s.log.Info().Int64("user", user.ID).Str("conn", s.conn.ID).Msg("session identified")
	return nil
}

// SendBroadcast routes a room-wide message from this session.
func (s *Session) SendBroadcast(ctx context.Context, text string) error {
	userID, err := s.requireActive()
	if err != nil {
		return err
	}
	_, err = s.router.Broadcast(ctx, userID, text)
	return err
}

// SendPrivate routes a targeted message from this session.
func (s *Session) SendPrivate(ctx context.Context, recipientID int64, content string) error {
	userID, err := s.requireActive()
	if err != nil {
		return err
	}
	_, err = s.router.SendPrivate(ctx, userID, recipientID, content)
	return err
}

// Typing relays a typing indicator from this session.
func (s *Session) Typing(payload json.RawMessage) error {
	userID, err := s.requireActive()
	if err != nil {
		return err
	}
	s.router.Typing(userID, payload)
	return nil
}

// AcknowledgeRead resets the unread counter this session holds for
// senderID and confirms the reset back to the session. Idempotent.
func (s *Session) AcknowledgeRead(senderID int64) error {
	userID, err := s.requireActive()
	if err != nil {
		return err
	}
	s.unread.MarkRead(userID, senderID)
	s.conn.Push(&Event{Kind: EventReadAck, Sender: senderID})
	return nil
}

// Disconnect tears the session down: guarded unbind, presence
// rebroadcast, handle invalidation. Safe to call more than once and
// from any state; it must run to completion even when the connection
// dropped mid-operation.
func (s *Session) Disconnect(ctx context.Context) {
	s.mu.Lock()
	if s.state == StateDisconnected {
		s.mu.Unlock()
		return
	}
	wasBound := s.state == StateBound || s.state == StateActive
	userID := s.userID
	s.state = StateDisconnected
	s.mu.Unlock()

	s.conn.Invalidate()

	if !wasBound {
		return
	}

	// Unbind only succeeds if our handle is still the registered one;
	// a newer bind for the same user is left untouched.
	if s.presence.Unbind(userID, s.conn) {
		if err := s.store.SetConnected(ctx, userID, false); err != nil {
			s.log.Warn().Err(err).Int64("user", userID).Msg("failed to mirror disconnected flag")
		}
	}
	s.broadcastPresence()

	s.log.Info().Int64("user", userID).Str("conn", s.conn.ID).Msg("session disconnected")
}

func (s *Session) requireActive() (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateActive {
		return 0, ErrNotIdentified
	}
	return s.userID, nil
}

func (s *Session) broadcastPresence() {
	event := &Event{Kind: EventPresence, Reachable: s.presence.Info()}
	for _, conn := range s.presence.Snapshot() {
		conn.Push(event)
	}
}
