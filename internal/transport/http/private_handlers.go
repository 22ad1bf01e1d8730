package http

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/loopchat/loopchat-server/internal/store"
)

// PrivateHandlers provides HTTP handlers for private message history.
type PrivateHandlers struct {
	store store.Store
	log   *zerolog.Logger
}

// NewPrivateHandlers creates a new private message handlers instance.
func NewPrivateHandlers(st store.Store, logger *zerolog.Logger) *PrivateHandlers {
	return &PrivateHandlers{
		store: st,
		log:   logger,
	}
}

// PrivateMessageResponse represents a private message in API responses.
type PrivateMessageResponse struct {
	ID         int64  `json:"id"`
	SenderID   int64  `json:"sender_id"`
	ReceiverID int64  `json:"receiver_id"`
	Content    string `json:"content"`
	CreatedAt  int64  `json:"created_at"`
}

// SendPrivateRequest is the REST body for posting a private message.
// Like the broadcast REST path, it persists without live routing or
// unread accounting; the socket path owns both.
type SendPrivateRequest struct {
	To      int64  `json:"to" binding:"required"`
	Content string `json:"content" binding:"required"`
}

// SendPrivate persists a private message posted over REST.
// POST /api/private
func (h *PrivateHandlers) SendPrivate(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
		return
	}

	var req SendPrivateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "recipient and content are required"})
		return
	}

	// Both identities must exist before anything is written.
	for _, id := range []int64{userID, req.To} {
		if _, err := h.store.GetUserByID(c.Request.Context(), id); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				c.JSON(http.StatusNotFound, ErrorResponse{Error: "sender or receiver not found"})
				return
			}
			h.log.Error().Err(err).Int64("user", id).Msg("failed to find user")
			c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
			return
		}
	}

	msg := &store.PrivateMessage{SenderID: userID, ReceiverID: req.To, Content: req.Content}
	if err := h.store.SavePrivateMessage(c.Request.Context(), msg); err != nil {
		h.log.Error().Err(err).Int64("sender", userID).Msg("failed to save private message")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}

	c.JSON(http.StatusCreated, privateResponse(msg))
}

// Conversation returns the private messages between the authenticated
// user and a peer, both directions.
// GET /api/private/:peerID
func (h *PrivateHandlers) Conversation(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
		return
	}

	peerID, err := strconv.ParseInt(c.Param("peerID"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid peer id"})
		return
	}

	if _, err := h.store.GetUserByID(c.Request.Context(), peerID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, ErrorResponse{Error: "user not found"})
			return
		}
		h.log.Error().Err(err).Int64("peer", peerID).Msg("failed to find peer")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}

	messages, err := h.store.ListConversation(c.Request.Context(), userID, peerID)
	if err != nil {
		h.log.Error().Err(err).Int64("user", userID).Int64("peer", peerID).Msg("failed to list conversation")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}

	response := make([]PrivateMessageResponse, 0, len(messages))
	for _, msg := range messages {
		response = append(response, privateResponse(msg))
	}

	c.JSON(http.StatusOK, response)
}

func privateResponse(msg *store.PrivateMessage) PrivateMessageResponse {
	return PrivateMessageResponse{
		ID:         msg.ID,
		SenderID:   msg.SenderID,
		ReceiverID: msg.ReceiverID,
		Content:    msg.Content,
		CreatedAt:  msg.CreatedAt.Unix(),
	}
}
