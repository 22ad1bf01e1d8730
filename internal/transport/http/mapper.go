package http

import (
	"context"
	"encoding/json"

	"github.com/loopchat/loopchat-server/internal/core"
	"github.com/loopchat/loopchat-server/internal/proto"
)

// applyInbound decodes one inbound frame and drives the session. It
// returns a protocol error for user-visible failures, or a transport
// error when the frame itself is unreadable.
func applyInbound(ctx context.Context, session *core.Session, inbound proto.Inbound) (*proto.Error, error) {
	switch inbound.Type {
	case proto.InboundTypeIdentify:
		var data proto.IdentifyData
		if err := json.Unmarshal(inbound.Data, &data); err != nil {
			return nil, err
		}
		if data.UserID == 0 {
			return &proto.Error{Code: core.ErrCodeBadRequest, Msg: "user_id is required"}, nil
		}
		return protoError(session.Identify(ctx, data.UserID)), nil

	case proto.InboundTypeSend:
		var data proto.SendData
		if err := json.Unmarshal(inbound.Data, &data); err != nil {
			return nil, err
		}
		if data.Text == "" {
			return &proto.Error{Code: core.ErrCodeBadRequest, Msg: "text is required"}, nil
		}
		return protoError(session.SendBroadcast(ctx, data.Text)), nil

	case proto.InboundTypeSendPrivate:
		var data proto.SendPrivateData
		if err := json.Unmarshal(inbound.Data, &data); err != nil {
			return nil, err
		}
		if data.To == 0 || data.Content == "" {
			return &proto.Error{Code: core.ErrCodeBadRequest, Msg: "recipient and content are required"}, nil
		}
		return protoError(session.SendPrivate(ctx, data.To, data.Content)), nil

	case proto.InboundTypeTyping:
		var data proto.TypingData
		if err := json.Unmarshal(inbound.Data, &data); err != nil {
			return nil, err
		}
		return protoError(session.Typing(data.Payload)), nil

	case proto.InboundTypeMarkRead:
		var data proto.MarkReadData
		if err := json.Unmarshal(inbound.Data, &data); err != nil {
			return nil, err
		}
		if data.Sender == 0 {
			return &proto.Error{Code: core.ErrCodeBadRequest, Msg: "sender is required"}, nil
		}
		return protoError(session.AcknowledgeRead(data.Sender)), nil

	default:
		return &proto.Error{Code: "invalid_message", Msg: "unknown message type"}, nil
	}
}

func protoError(err error) *proto.Error {
	if err == nil {
		return nil
	}
	return &proto.Error{Code: core.ErrorCode(err), Msg: err.Error()}
}

func outboundFromEvent(event *core.Event) proto.Outbound {
	switch event.Kind {
	case core.EventPresence:
		users := make([]proto.PresenceEntry, 0, len(event.Reachable))
		for _, info := range event.Reachable {
			users = append(users, proto.PresenceEntry{
				UserID:      info.UserID,
				Username:    info.Username,
				ConnectedAt: info.ConnectedAt.Unix(),
			})
		}
		return proto.Outbound{
			Type:  proto.OutboundTypeEvent,
			Event: proto.EventPresenceUpdate,
			Data:  proto.EventPresenceData{Users: users},
		}

	case core.EventBroadcast:
		return proto.Outbound{
			Type:  proto.OutboundTypeEvent,
			Event: proto.EventReceiveMessage,
			Data: proto.EventMessageData{
				ID:   event.Message.ID,
				From: event.Message.From,
				User: event.Message.FromName,
				Text: event.Message.Text,
				TS:   event.Message.CreatedAt.Unix(),
			},
		}

	case core.EventPrivate:
		return proto.Outbound{
			Type:  proto.OutboundTypeEvent,
			Event: proto.EventReceivePrivate,
			Data: proto.EventPrivateData{
				ID:       event.Private.ID,
				From:     event.Private.From,
				FromName: event.Private.FromName,
				To:       event.Private.To,
				ToName:   event.Private.ToName,
				Content:  event.Private.Content,
				TS:       event.Private.CreatedAt.Unix(),
			},
		}

	case core.EventUnreadSnapshot:
		return proto.Outbound{
			Type:  proto.OutboundTypeEvent,
			Event: proto.EventUnreadSnapshot,
			Data:  proto.EventUnreadData{Counts: event.Unread},
		}

	case core.EventReadAck:
		return proto.Outbound{
			Type:  proto.OutboundTypeEvent,
			Event: proto.EventReadAcknowledged,
			Data:  proto.EventReadAckData{Sender: event.Sender},
		}

	case core.EventTyping:
		return proto.Outbound{
			Type:  proto.OutboundTypeEvent,
			Event: proto.EventTyping,
			Data:  proto.EventTypingData{From: event.Sender, Payload: event.Payload},
		}

	case core.EventError:
		if event.Error == nil {
			return proto.Outbound{Type: proto.OutboundTypeError, Error: &proto.Error{Code: "unknown", Msg: "unknown error"}}
		}
		return proto.Outbound{
			Type:  proto.OutboundTypeError,
			Error: &proto.Error{Code: event.Error.Code, Msg: event.Error.Message},
		}

	default:
		return proto.Outbound{Type: proto.OutboundTypeEvent}
	}
}
