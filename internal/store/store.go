package store

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("not found")

// User represents a registered user.
type User struct {
	ID           int64
	Username     string
	PasswordHash string
	IsConnected  bool
	CreatedAt    time.Time
}

// Message represents a persisted broadcast chat message.
type Message struct {
	ID        int64
	UserID    int64
	Text      string
	CreatedAt time.Time
}

// PrivateMessage represents a persisted direct message between two users.
type PrivateMessage struct {
	ID         int64
	SenderID   int64
	ReceiverID int64
	Content    string
	CreatedAt  time.Time
}

// UserStore handles user persistence.
type UserStore interface {
	// CreateUser creates a new user with hashed password.
	CreateUser(ctx context.Context, username, passwordHash string) (*User, error)

	// GetUserByID retrieves a user by ID. Returns ErrNotFound if missing.
	GetUserByID(ctx context.Context, id int64) (*User, error)

	// GetUserByUsername retrieves a user by username. Returns ErrNotFound if missing.
	GetUserByUsername(ctx context.Context, username string) (*User, error)

	// ListUsers lists all registered users.
	ListUsers(ctx context.Context) ([]*User, error)

	// SetConnected updates the stored connected flag for a user.
	// Best-effort mirror of live presence; the registry stays authoritative.
	SetConnected(ctx context.Context, userID int64, connected bool) error
}

// MessageStore handles broadcast message persistence.
type MessageStore interface {
	// SaveMessage persists a broadcast message, filling ID and CreatedAt.
	SaveMessage(ctx context.Context, msg *Message) error

	// ListMessages retrieves all broadcast messages in creation order.
	ListMessages(ctx context.Context) ([]*Message, error)

	// ListMessagesByUser retrieves broadcast messages sent by one user.
	ListMessagesByUser(ctx context.Context, userID int64) ([]*Message, error)
}

// PrivateMessageStore handles private message persistence.
type PrivateMessageStore interface {
	// SavePrivateMessage persists a private message, filling ID and CreatedAt.
	SavePrivateMessage(ctx context.Context, msg *PrivateMessage) error

	// ListConversation retrieves private messages exchanged between two
	// users, in both directions, in creation order.
	ListConversation(ctx context.Context, userID, peerID int64) ([]*PrivateMessage, error)
}

// Store aggregates all storage interfaces.
type Store interface {
	UserStore
	MessageStore
	PrivateMessageStore

	// Close closes the underlying database connection.
	Close() error
}
