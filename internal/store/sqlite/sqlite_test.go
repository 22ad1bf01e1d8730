package sqlite

import (
	"context"
	"errors"
	"testing"

	"github.com/loopchat/loopchat-server/internal/store"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()

	s, err := New(":memory:")
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestUserLifecycle(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	alice, err := s.CreateUser(ctx, "alice", "hash")
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	if alice.ID == 0 || alice.Username != "alice" {
		t.Fatalf("unexpected user: %+v", alice)
	}
	if alice.IsConnected {
		t.Fatalf("new user should not be connected")
	}

	byName, err := s.GetUserByUsername(ctx, "alice")
	if err != nil {
		t.Fatalf("get by username: %v", err)
	}
	if byName.ID != alice.ID {
		t.Fatalf("expected id %d, got %d", alice.ID, byName.ID)
	}

	if _, err := s.GetUserByID(ctx, 999); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	if err := s.SetConnected(ctx, alice.ID, true); err != nil {
		t.Fatalf("set connected: %v", err)
	}
	updated, err := s.GetUserByID(ctx, alice.ID)
	if err != nil {
		t.Fatalf("get by id: %v", err)
	}
	if !updated.IsConnected {
		t.Fatalf("expected connected flag set")
	}

	if err := s.SetConnected(ctx, 999, true); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for missing user, got %v", err)
	}
}

func TestListUsersOrdered(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	for _, name := range []string{"charlie", "alice", "bob"} {
		if _, err := s.CreateUser(ctx, name, "hash"); err != nil {
			t.Fatalf("create user %s: %v", name, err)
		}
	}

	users, err := s.ListUsers(ctx)
	if err != nil {
		t.Fatalf("list users: %v", err)
	}

	want := []string{"alice", "bob", "charlie"}
	if len(users) != len(want) {
		t.Fatalf("expected %d users, got %d", len(want), len(users))
	}
	for i, u := range users {
		if u.Username != want[i] {
			t.Errorf("expected %s at index %d, got %s", want[i], i, u.Username)
		}
	}
}

func TestSaveAndListMessages(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	alice, _ := s.CreateUser(ctx, "alice", "hash")
	bob, _ := s.CreateUser(ctx, "bob", "hash")

	for _, tc := range []struct {
		user *store.User
		text string
	}{
		{alice, "hello"},
		{bob, "hi"},
		{alice, "how are you"},
	} {
		msg := &store.Message{UserID: tc.user.ID, Text: tc.text}
		if err := s.SaveMessage(ctx, msg); err != nil {
			t.Fatalf("save message: %v", err)
		}
		if msg.ID == 0 || msg.CreatedAt.IsZero() {
			t.Fatalf("expected ID and CreatedAt filled: %+v", msg)
		}
	}

	all, err := s.ListMessages(ctx)
	if err != nil {
		t.Fatalf("list messages: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("expected 3 messages, got %d", len(all))
	}
	if all[0].Text != "hello" || all[2].Text != "how are you" {
		t.Fatalf("unexpected ordering: %+v", all)
	}

	fromAlice, err := s.ListMessagesByUser(ctx, alice.ID)
	if err != nil {
		t.Fatalf("list by user: %v", err)
	}
	if len(fromAlice) != 2 {
		t.Fatalf("expected 2 messages from alice, got %d", len(fromAlice))
	}
}

func TestConversationBothDirections(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	alice, _ := s.CreateUser(ctx, "alice", "hash")
	bob, _ := s.CreateUser(ctx, "bob", "hash")
	carol, _ := s.CreateUser(ctx, "carol", "hash")

	save := func(from, to int64, content string) {
		t.Helper()
		msg := &store.PrivateMessage{SenderID: from, ReceiverID: to, Content: content}
		if err := s.SavePrivateMessage(ctx, msg); err != nil {
			t.Fatalf("save private message: %v", err)
		}
	}

	save(alice.ID, bob.ID, "hi bob")
	save(bob.ID, alice.ID, "hi alice")
	save(alice.ID, carol.ID, "hi carol")

	conv, err := s.ListConversation(ctx, alice.ID, bob.ID)
	if err != nil {
		t.Fatalf("list conversation: %v", err)
	}
	if len(conv) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(conv))
	}
	if conv[0].Content != "hi bob" || conv[1].Content != "hi alice" {
		t.Fatalf("unexpected conversation: %+v", conv)
	}

	// Same result regardless of argument order.
	reversed, err := s.ListConversation(ctx, bob.ID, alice.ID)
	if err != nil {
		t.Fatalf("list conversation reversed: %v", err)
	}
	if len(reversed) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(reversed))
	}
}
