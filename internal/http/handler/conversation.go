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

type ConversationHandler struct {
	conversationService service.ConversationService
}

func NewConversationHandler(conversationService service.ConversationService) *ConversationHandler {
	return &ConversationHandler{conversationService: conversationService}
}

func (h *ConversationHandler) List(c *gin.Context) {
	ctx := c.Request.Context()

	convs, err := h.conversationService.List(ctx, middleware.MustUserID(c))
	if err != nil {
		slog.ErrorContext(ctx, "failed to list conversations", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch conversations"})
		return
	}

	out := make([]dto.ConversationResponse, 0, len(convs))
	for i := range convs {
		out = append(out, dto.ToConversationDetailResponse(&convs[i]))
	}
	c.JSON(http.StatusOK, gin.H{"conversations": out})
}

func (h *ConversationHandler) Create(c *gin.Context) {
	ctx := c.Request.Context()

	var req dto.CreateConversationRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
			return
		}
	}

	conv, err := h.conversationService.Create(ctx, middleware.MustUserID(c), req.Title)
	if err != nil {
		slog.ErrorContext(ctx, "failed to create conversation", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create conversation"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"conversation": dto.ToConversationResponse(conv)})
}

func (h *ConversationHandler) Get(c *gin.Context) {
	ctx := c.Request.Context()

	detail, err := h.conversationService.Get(ctx, c.Param("id"), middleware.MustUserID(c))
	if err != nil {
		h.fail(c, err, "Failed to fetch conversation")
		return
	}

	c.JSON(http.StatusOK, gin.H{"conversation": dto.ToConversationDetailResponse(detail)})
}

func (h *ConversationHandler) Update(c *gin.Context) {
	ctx := c.Request.Context()

	var req dto.UpdateConversationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}
	if req.Title == nil && req.Pinned == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Nothing to update"})
		return
	}

	conv, err := h.conversationService.Update(ctx, c.Param("id"), middleware.MustUserID(c), model.ConversationUpdate{
		Title:  req.Title,
		Pinned: req.Pinned,
	})
	if err != nil {
		h.fail(c, err, "Failed to update conversation")
		return
	}

	c.JSON(http.StatusOK, gin.H{"conversation": dto.ToConversationResponse(conv)})
}

func (h *ConversationHandler) Delete(c *gin.Context) {
	if err := h.conversationService.Delete(c.Request.Context(), c.Param("id"), middleware.MustUserID(c)); err != nil {
		h.fail(c, err, "Failed to delete conversation")
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (h *ConversationHandler) fail(c *gin.Context, err error, msg string) {
	if errors.Is(err, service.ErrConversationNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Conversation not found"})
		return
	}
	slog.ErrorContext(c.Request.Context(), msg, "error", err)
	c.JSON(http.StatusInternalServerError, gin.H{"error": msg})
}
