package http

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/loopchat/loopchat-server/internal/store"
)

// MessageHandlers provides HTTP handlers for message history.
type MessageHandlers struct {
	store store.Store
	log   *zerolog.Logger
}

// NewMessageHandlers creates a new message handlers instance.
func NewMessageHandlers(st store.Store, logger *zerolog.Logger) *MessageHandlers {
	return &MessageHandlers{
		store: st,
		log:   logger,
	}
}

// MessageResponse represents a broadcast message in API responses.
type MessageResponse struct {
	ID        int64  `json:"id"`
	UserID    int64  `json:"user_id"`
	Username  string `json:"username"`
	Text      string `json:"text"`
	CreatedAt int64  `json:"created_at"`
}

// SendMessageRequest is the REST body for posting a broadcast message.
// The REST path only persists; live fan-out happens over the socket.
type SendMessageRequest struct {
	Text string `json:"text" binding:"required"`
}

// ListMessages returns all broadcast messages.
// GET /api/messages
func (h *MessageHandlers) ListMessages(c *gin.Context) {
	messages, err := h.store.ListMessages(c.Request.Context())
	if err != nil {
		h.log.Error().Err(err).Msg("failed to list messages")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}

	c.JSON(http.StatusOK, h.toResponses(c.Request.Context(), messages))
}

// ListUserMessages returns broadcast messages sent by one user.
// GET /api/messages/user/:id
func (h *MessageHandlers) ListUserMessages(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid user id"})
		return
	}

	messages, err := h.store.ListMessagesByUser(c.Request.Context(), id)
	if err != nil {
		h.log.Error().Err(err).Int64("user", id).Msg("failed to list user messages")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}

	c.JSON(http.StatusOK, h.toResponses(c.Request.Context(), messages))
}

// SendMessage persists a broadcast message posted over REST.
// POST /api/messages
func (h *MessageHandlers) SendMessage(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
		return
	}

	var req SendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "message text is required"})
		return
	}

	user, err := h.store.GetUserByID(c.Request.Context(), userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, ErrorResponse{Error: "user not found"})
			return
		}
		h.log.Error().Err(err).Int64("user", userID).Msg("failed to find sender")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}

	msg := &store.Message{UserID: user.ID, Text: req.Text}
	if err := h.store.SaveMessage(c.Request.Context(), msg); err != nil {
		h.log.Error().Err(err).Int64("user", user.ID).Msg("failed to save message")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}

	c.JSON(http.StatusCreated, MessageResponse{
		ID:        msg.ID,
		UserID:    user.ID,
		Username:  user.Username,
		Text:      msg.Text,
		CreatedAt: msg.CreatedAt.Unix(),
	})
}

func (h *MessageHandlers) toResponses(ctx context.Context, messages []*store.Message) []MessageResponse {
	names := make(map[int64]string)
	if users, err := h.store.ListUsers(ctx); err == nil {
		for _, u := range users {
			names[u.ID] = u.Username
		}
	}

	response := make([]MessageResponse, 0, len(messages))
	for _, msg := range messages {
		response = append(response, MessageResponse{
			ID:        msg.ID,
			UserID:    msg.UserID,
			Username:  names[msg.UserID],
			Text:      msg.Text,
			CreatedAt: msg.CreatedAt.Unix(),
		})
	}
	return response
}
