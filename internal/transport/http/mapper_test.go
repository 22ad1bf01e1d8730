package http

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"

	"github.com/loopchat/loopchat-server/internal/core"
	"github.com/loopchat/loopchat-server/internal/proto"
	"github.com/loopchat/loopchat-server/internal/store/sqlite"
	"github.com/loopchat/loopchat-server/internal/utils"
)

func newCoreFixture(t *testing.T, usernames ...string) (*core.Router, *core.Presence, *core.Ledger, *sqlite.SQLiteStore) {
	t.Helper()

	st, err := sqlite.New(":memory:")
	if err != nil {
		t.Fatalf("create store: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })

	ctx := context.Background()
	for _, name := range usernames {
		if _, err := st.CreateUser(ctx, name, "hash"); err != nil {
			t.Fatalf("create user %s: %v", name, err)
		}
	}

	logger := zerolog.Nop()
	presence := core.NewPresence()
	unread := core.NewLedger()
	return core.NewRouter(st, presence, unread, &logger), presence, unread, st
}

func newSessionFixture(t *testing.T, router *core.Router, presence *core.Presence, unread *core.Ledger, st core.Store) *core.Session {
	t.Helper()
	logger := zerolog.Nop()
	return core.NewSession(core.NewConn(utils.NewID()), router, presence, unread, st, &logger)
}

func inbound(t *testing.T, msgType string, data any) proto.Inbound {
	t.Helper()
	raw, err := json.Marshal(data)
	if err != nil {
		t.Fatalf("marshal inbound data: %v", err)
	}
	return proto.Inbound{Type: msgType, Data: raw}
}

func TestApplyInboundIdentifyThenPrivate(t *testing.T) {
	router, presence, unread, st := newCoreFixture(t, "alice", "bob")
	ctx := context.Background()

	alice := newSessionFixture(t, router, presence, unread, st)
	if protoErr, err := applyInbound(ctx, alice, inbound(t, proto.InboundTypeIdentify, proto.IdentifyData{UserID: 1})); err != nil || protoErr != nil {
		t.Fatalf("identify failed: %v %v", protoErr, err)
	}
	if alice.State() != core.StateActive {
		t.Fatalf("expected active session, got %d", alice.State())
	}

	// Private message to offline bob is accepted and accounted.
	if protoErr, err := applyInbound(ctx, alice, inbound(t, proto.InboundTypeSendPrivate, proto.SendPrivateData{To: 2, Content: "hi"})); err != nil || protoErr != nil {
		t.Fatalf("send private failed: %v %v", protoErr, err)
	}
	if got := unread.Pending(2, 1); got != 1 {
		t.Fatalf("expected unread counter 1, got %d", got)
	}
}

func TestApplyInboundRejectsUnknownRecipient(t *testing.T) {
	router, presence, unread, st := newCoreFixture(t, "alice")
	ctx := context.Background()

	alice := newSessionFixture(t, router, presence, unread, st)
	if protoErr, _ := applyInbound(ctx, alice, inbound(t, proto.InboundTypeIdentify, proto.IdentifyData{UserID: 1})); protoErr != nil {
		t.Fatalf("identify failed: %v", protoErr)
	}

	protoErr, err := applyInbound(ctx, alice, inbound(t, proto.InboundTypeSendPrivate, proto.SendPrivateData{To: 99, Content: "hi"}))
	if err != nil {
		t.Fatalf("transport error: %v", err)
	}
	if protoErr == nil || protoErr.Code != core.ErrCodeNotFound {
		t.Fatalf("expected not_found error, got %+v", protoErr)
	}
}

func TestApplyInboundRequiresIdentify(t *testing.T) {
	router, presence, unread, st := newCoreFixture(t, "alice")
	ctx := context.Background()

	session := newSessionFixture(t, router, presence, unread, st)
	protoErr, err := applyInbound(ctx, session, inbound(t, proto.InboundTypeSend, proto.SendData{Text: "hi"}))
	if err != nil {
		t.Fatalf("transport error: %v", err)
	}
	if protoErr == nil || protoErr.Code != core.ErrCodeNotIdentified {
		t.Fatalf("expected not_identified error, got %+v", protoErr)
	}
}

func TestApplyInboundValidatesPayloads(t *testing.T) {
	router, presence, unread, st := newCoreFixture(t, "alice")
	ctx := context.Background()
	session := newSessionFixture(t, router, presence, unread, st)

	tests := []struct {
		name    string
		inbound proto.Inbound
		code    string
	}{
		{"identify without user", inbound(t, proto.InboundTypeIdentify, proto.IdentifyData{}), core.ErrCodeBadRequest},
		{"send without text", inbound(t, proto.InboundTypeSend, proto.SendData{}), core.ErrCodeBadRequest},
		{"private without recipient", inbound(t, proto.InboundTypeSendPrivate, proto.SendPrivateData{Content: "x"}), core.ErrCodeBadRequest},
		{"mark read without sender", inbound(t, proto.InboundTypeMarkRead, proto.MarkReadData{}), core.ErrCodeBadRequest},
		{"unknown type", inbound(t, "bogus", struct{}{}), "invalid_message"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			protoErr, err := applyInbound(ctx, session, tt.inbound)
			if err != nil {
				t.Fatalf("transport error: %v", err)
			}
			if protoErr == nil || protoErr.Code != tt.code {
				t.Fatalf("expected code %q, got %+v", tt.code, protoErr)
			}
		})
	}
}

func TestOutboundFromEvent(t *testing.T) {
	router, presence, unread, st := newCoreFixture(t, "alice", "bob")
	ctx := context.Background()

	alice := newSessionFixture(t, router, presence, unread, st)
	if protoErr, _ := applyInbound(ctx, alice, inbound(t, proto.InboundTypeIdentify, proto.IdentifyData{UserID: 1})); protoErr != nil {
		t.Fatalf("identify failed: %v", protoErr)
	}

	// Drain the session's own events and check the wire mapping.
	seen := make(map[string]bool)
	for i := 0; i < 2; i++ {
		select {
		case ev := <-alice.Conn().Events:
			out := outboundFromEvent(ev)
			if out.Type != proto.OutboundTypeEvent {
				t.Fatalf("expected event outbound, got %+v", out)
			}
			seen[out.Event] = true
		default:
			t.Fatalf("expected 2 queued events, got %d", i)
		}
	}
	if !seen[proto.EventUnreadSnapshot] || !seen[proto.EventPresenceUpdate] {
		t.Fatalf("expected unread snapshot and presence update, got %v", seen)
	}

	errOut := outboundFromEvent(&core.Event{Kind: core.EventError, Error: &core.CoreError{Code: "not_found", Message: "nope"}})
	if errOut.Type != proto.OutboundTypeError || errOut.Error == nil || errOut.Error.Code != "not_found" {
		t.Fatalf("unexpected error outbound: %+v", errOut)
	}
}
