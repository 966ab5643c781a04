package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/idir-saidi/campus-records-api/internal/service"
	appErrors "github.com/idir-saidi/campus-records-api/pkg/errors"
	"github.com/idir-saidi/campus-records-api/pkg/response"
)

// MessageHandler exposes direct messaging endpoints.
type MessageHandler struct {
	messages *service.MessageService
}

// NewMessageHandler constructs a message handler.
func NewMessageHandler(messages *service.MessageService) *MessageHandler {
	return &MessageHandler{messages: messages}
}

// Send godoc
// @Summary Send a direct message
// @Tags Messages
// @Accept json
// @Produce json
// @Param payload body service.SendMessageRequest true "Message payload"
// @Success 201 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /messages [post]
func (h *MessageHandler) Send(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req service.SendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid message payload"))
		return
	}

	message, err := h.messages.Send(c.Request.Context(), actor, req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, message)
}

// Inbox godoc
// @Summary List received messages
// @Tags Messages
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /messages/inbox [get]
func (h *MessageHandler) Inbox(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	messages, err := h.messages.Inbox(c.Request.Context(), actor)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, messages, nil)
}

// Conversation godoc
// @Summary Two-way thread with another user
// @Tags Messages
// @Produce json
// @Param userId path string true "Other user ID"
// @Success 200 {object} response.Envelope
// @Router /messages/conversation/{userId} [get]
func (h *MessageHandler) Conversation(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	messages, err := h.messages.Conversation(c.Request.Context(), actor, c.Param("userId"))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, messages, nil)
}

// MarkRead godoc
// @Summary Mark one received message as read
// @Tags Messages
// @Produce json
// @Param id path string true "Message ID"
// @Success 204 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /messages/{id}/read [post]
func (h *MessageHandler) MarkRead(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	if err := h.messages.MarkRead(c.Request.Context(), actor, c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}

	response.NoContent(c)
}

// UnreadCount godoc
// @Summary Unread message count
// @Tags Messages
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /messages/unread-count [get]
func (h *MessageHandler) UnreadCount(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	count, err := h.messages.UnreadCount(c.Request.Context(), actor)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, gin.H{"count": count}, nil)
}
