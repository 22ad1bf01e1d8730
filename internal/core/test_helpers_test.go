package core

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/loopchat/loopchat-server/internal/store"
)

var testLogger = zerolog.Nop()

// fakeStore is an in-memory core.Store for router and session tests.
type fakeStore struct {
	mu       sync.Mutex
	users    map[int64]*store.User
	messages []*store.Message
	privates []*store.PrivateMessage
	nextID   int64

	failSaveMessage bool
	failSavePrivate bool
}

func newFakeStore(usernames ...string) *fakeStore {
	fs := &fakeStore{users: make(map[int64]*store.User)}
	for i, name := range usernames {
		id := int64(i + 1)
		fs.users[id] = &store.User{ID: id, Username: name, CreatedAt: time.Now()}
	}
	return fs
}

func (f *fakeStore) GetUserByID(_ context.Context, id int64) (*store.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	user, ok := f.users[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	copied := *user
	return &copied, nil
}

func (f *fakeStore) SaveMessage(_ context.Context, msg *store.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failSaveMessage {
		return errors.New("disk full")
	}
	f.nextID++
	msg.ID = f.nextID
	msg.CreatedAt = time.Now()
	f.messages = append(f.messages, msg)
	return nil
}

func (f *fakeStore) SavePrivateMessage(_ context.Context, msg *store.PrivateMessage) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failSavePrivate {
		return errors.New("disk full")
	}
	f.nextID++
	msg.ID = f.nextID
	msg.CreatedAt = time.Now()
	f.privates = append(f.privates, msg)
	return nil
}

func (f *fakeStore) SetConnected(_ context.Context, userID int64, connected bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	user, ok := f.users[userID]
	if !ok {
		return store.ErrNotFound
	}
	user.IsConnected = connected
	return nil
}

func (f *fakeStore) savedPrivates() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.privates)
}

func (f *fakeStore) savedMessages() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.messages)
}

func mustEvent(t *testing.T, ch <-chan *Event, kind EventKind) *Event {
	t.Helper()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		select {
		case ev := <-ch:
			if ev == nil {
				continue
			}
			if ev.Kind == kind {
				return ev
			}
		default:
			time.Sleep(10 * time.Millisecond)
		}
	}
	t.Fatalf("expected event kind %v not received", kind)
	return nil
}

func noEvent(t *testing.T, ch <-chan *Event, kind EventKind) {
	t.Helper()

	for {
		select {
		case ev := <-ch:
			if ev != nil && ev.Kind == kind {
				t.Fatalf("unexpected event kind %v received: %+v", kind, ev)
			}
		default:
			return
		}
	}
}
