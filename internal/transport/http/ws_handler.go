package http

import (
	"context"
	"errors"
	"io"
	stdhttp "net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/rs/zerolog"

	"github.com/loopchat/loopchat-server/internal/core"
	"github.com/loopchat/loopchat-server/internal/proto"
	"github.com/loopchat/loopchat-server/internal/utils"
)

// disconnectTimeout bounds the teardown work after the socket is gone.
const disconnectTimeout = 5 * time.Second

// WSHandler upgrades HTTP connections and bridges them to core sessions.
type WSHandler struct {
	router   *core.Router
	presence *core.Presence
	unread   *core.Ledger
	store    core.Store
	log      *zerolog.Logger
}

// NewWSHandler builds a new WebSocket handler.
func NewWSHandler(router *core.Router, presence *core.Presence, unread *core.Ledger, st core.Store, logger *zerolog.Logger) *WSHandler {
	return &WSHandler{
		router:   router,
		presence: presence,
		unread:   unread,
		store:    st,
		log:      logger,
	}
}

func (h *WSHandler) ServeHTTP(w stdhttp.ResponseWriter, r *stdhttp.Request) {
	ctx := r.Context()

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		InsecureSkipVerify: true,
	})
	if err != nil {
		h.log.Error().Err(err).Msg("ws accept error")
		return
	}
	defer conn.Close(websocket.StatusInternalError, "internal error")

	handle := core.NewConn(utils.NewID())
	session := core.NewSession(handle, h.router, h.presence, h.unread, h.store, h.log)

	// Teardown must complete even though the request context is gone by
	// the time the socket drops.
	defer func() {
		dctx, cancel := context.WithTimeout(context.Background(), disconnectTimeout)
		defer cancel()
		session.Disconnect(dctx)
	}()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	errCh := make(chan error, 2)
	go func() {
		errCh <- h.readLoop(ctx, conn, session)
	}()
	go func() {
		errCh <- h.writeLoop(ctx, conn, handle)
	}()

	err = <-errCh
	cancel() // stop the other goroutine
	<-errCh

	status := websocket.StatusNormalClosure
	reason := "closing"
	if err != nil && !errors.Is(err, context.Canceled) {
		if errors.Is(err, io.EOF) {
			err = nil
		}
		if s := websocket.CloseStatus(err); s != 0 {
			status = s
		}
		if status == websocket.StatusNormalClosure || status == websocket.StatusGoingAway {
			err = nil
		}
		if err != nil {
			if status == websocket.StatusNormalClosure {
				status = websocket.StatusInternalError
			}
			reason = err.Error()
			h.log.Warn().Err(err).Str("conn", handle.ID).Msg("ws connection closed with error")
		}
	}

	conn.Close(status, reason)
}

func (h *WSHandler) readLoop(ctx context.Context, conn *websocket.Conn, session *core.Session) error {
	for {
		var inbound proto.Inbound
		if err := wsjson.Read(ctx, conn, &inbound); err != nil {
			h.log.Debug().Err(err).Str("conn", session.Conn().ID).Msg("read ws inbound")
			return err
		}

		// Explicit going-offline signal from the client.
		if inbound.Type == proto.InboundTypeOffline {
			return nil
		}

		protoErr, err := applyInbound(ctx, session, inbound)
		if err != nil {
			h.log.Warn().Err(err).Str("conn", session.Conn().ID).Msg("failed to decode inbound")
			return err
		}
		if protoErr != nil {
			// Only the initiating connection sees the error notice.
			if writeErr := wsjson.Write(ctx, conn, proto.Outbound{
				Type:  proto.OutboundTypeError,
				Error: protoErr,
			}); writeErr != nil {
				return writeErr
			}
		}
	}
}

func (h *WSHandler) writeLoop(ctx context.Context, conn *websocket.Conn, handle *core.Conn) error {
	for {
		select {
		case event, ok := <-handle.Events:
			if !ok {
				return nil
			}
			if err := wsjson.Write(ctx, conn, outboundFromEvent(event)); err != nil {
				h.log.Error().Err(err).Str("conn", handle.ID).Msg("write ws event")
				return err
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
