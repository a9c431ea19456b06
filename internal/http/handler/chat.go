package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"basegraph.app/chat/internal/http/dto"
	"basegraph.app/chat/internal/http/middleware"
	"basegraph.app/chat/internal/http/sse"
	"basegraph.app/chat/internal/relay"
)

// TurnRelay runs chat turns against the provider.
type TurnRelay interface {
	Prepare(ctx context.Context, req relay.TurnRequest) (*relay.Turn, error)
	Stream(ctx context.Context, turn *relay.Turn, out relay.Emitter)
	Complete(ctx context.Context, turn *relay.Turn) (*relay.SyncResult, error)
}

type ChatHandler struct {
	relay              TurnRelay
	ready              func() error
	maxAttachmentBytes int
}

// NewChatHandler builds the chat endpoints. ready is checked on every request
// so the server can start without provider credentials.
func NewChatHandler(turns TurnRelay, ready func() error, maxAttachmentBytes int) *ChatHandler {
	return &ChatHandler{
		relay:              turns,
		ready:              ready,
		maxAttachmentBytes: maxAttachmentBytes,
	}
}

// Stream answers a turn as a text/event-stream. Every rejection happens
// before the stream headers are written.
func (h *ChatHandler) Stream(c *gin.Context) {
	turn, ok := h.prepare(c)
	if !ok {
		return
	}

	ctx := c.Request.Context()
	out := sse.NewWriter(ctx, c.Writer)
	h.relay.Stream(ctx, turn, out)
}

// Sync answers a turn with a single JSON response.
func (h *ChatHandler) Sync(c *gin.Context) {
	turn, ok := h.prepare(c)
	if !ok {
		return
	}

	ctx := c.Request.Context()
	res, err := h.relay.Complete(ctx, turn)
	if err != nil {
		slog.ErrorContext(ctx, "sync completion failed", "error", err, "turn_id", turn.ID)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get a response from the assistant"})
		return
	}

	c.JSON(http.StatusOK, dto.ChatResponse{
		Success:        true,
		ConversationID: turn.UpstreamID,
		Message:        res.Text,
		ResponseID:     res.ResponseID,
		StoredInDB:     res.StoredInDB,
	})
}

func (h *ChatHandler) prepare(c *gin.Context) (*relay.Turn, bool) {
	ctx := c.Request.Context()

	if err := h.ready(); err != nil {
		slog.ErrorContext(ctx, "chat provider not configured", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Server misconfigured: " + err.Error()})
		return nil, false
	}

	var req dto.ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": bindError(err)})
		return nil, false
	}

	att, err := req.File.Attachment(h.maxAttachmentBytes)
	switch {
	case errors.Is(err, dto.ErrAttachmentTooLarge):
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": err.Error()})
		return nil, false
	case err != nil:
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return nil, false
	}

	turn, err := h.relay.Prepare(ctx, relay.TurnRequest{
		UserID:         middleware.MustUserID(c),
		ConversationID: req.ConversationID,
		UpstreamHint:   req.OpenAIConversationID,
		Message:        req.Message,
		Attachment:     att,
	})
	if err != nil {
		var verr *relay.ValidationError
		if errors.As(err, &verr) {
			c.JSON(verr.Status, gin.H{"error": verr.Message})
			return nil, false
		}
		slog.ErrorContext(ctx, "failed to prepare turn", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to process message"})
		return nil, false
	}

	return turn, true
}

func bindError(err error) string {
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) {
		switch typeErr.Field {
		case "message":
			return "Message is required and must be a string"
		case "conversationId":
			return "Conversation ID is required"
		}
	}
	return "Invalid request body"
}
