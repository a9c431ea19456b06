package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"basegraph.app/chat/internal/http/dto"
	"basegraph.app/chat/internal/http/middleware"
	"basegraph.app/chat/internal/model"
	"basegraph.app/chat/internal/service"
)

type MessageHandler struct {
	messageService service.MessageService
}

func NewMessageHandler(messageService service.MessageService) *MessageHandler {
	return &MessageHandler{messageService: messageService}
}

func (h *MessageHandler) List(c *gin.Context) {
	conversationID := c.Query("conversationId")
	if conversationID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Conversation ID is required"})
		return
	}

	msgs, err := h.messageService.List(c.Request.Context(), conversationID, middleware.MustUserID(c))
	if err != nil {
		h.fail(c, err, "Failed to fetch messages")
		return
	}

	c.JSON(http.StatusOK, gin.H{"messages": dto.ToMessageResponses(msgs)})
}

func (h *MessageHandler) Create(c *gin.Context) {
	var req dto.CreateMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "conversationId and role are required"})
		return
	}

	msg, err := h.messageService.Create(c.Request.Context(), middleware.MustUserID(c), req.ConversationID, model.Role(req.Role), req.Content)
	if err != nil {
		h.fail(c, err, "Failed to create message")
		return
	}

	c.JSON(http.StatusCreated, gin.H{"message": dto.ToMessageResponse(msg)})
}

func (h *MessageHandler) Update(c *gin.Context) {
	var req dto.UpdateMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	msg, err := h.messageService.Update(c.Request.Context(), c.Param("id"), middleware.MustUserID(c), req.Content)
	if err != nil {
		h.fail(c, err, "Failed to update message")
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": dto.ToMessageResponse(msg)})
}

func (h *MessageHandler) Delete(c *gin.Context) {
	if err := h.messageService.Delete(c.Request.Context(), c.Param("id"), middleware.MustUserID(c)); err != nil {
		h.fail(c, err, "Failed to delete message")
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (h *MessageHandler) fail(c *gin.Context, err error, msg string) {
	switch {
	case errors.Is(err, service.ErrInvalidRole), errors.Is(err, service.ErrContentRequired):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrConversationNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Conversation not found"})
	case errors.Is(err, service.ErrMessageNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Message not found"})
	default:
		slog.ErrorContext(c.Request.Context(), msg, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": msg})
	}
}
