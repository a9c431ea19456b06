package relay

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"basegraph.app/chat/common/logger"
	"basegraph.app/chat/internal/llm"
	"basegraph.app/chat/internal/model"
	"basegraph.app/chat/internal/store"
)

// ErrInvalidTurn matches every *ValidationError.
var ErrInvalidTurn = errors.New("invalid turn")

// ValidationError rejects a turn before any stream is opened.
type ValidationError struct {
	Status  int
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrInvalidTurn
}

func invalid(status int, msg string) error {
	return &ValidationError{Status: status, Message: msg}
}

// Prepare validates the request, persists the user message and resolves the
// upstream conversation handle, in that order. The user message is stored
// before any provider call so it survives a failed turn.
func (o *Orchestrator) Prepare(ctx context.Context, req TurnRequest) (*Turn, error) {
	turn := &Turn{
		ID:             o.newTurnID(),
		UserID:         req.UserID,
		ConversationID: req.ConversationID,
		Message:        req.Message,
		Attachment:     req.Attachment,
		state:          StateValidating,
	}
	ctx = logger.WithLogFields(ctx, logger.LogFields{
		TurnID:         &turn.ID,
		ConversationID: &turn.ConversationID,
		Component:      "chat.relay.prepare",
	})

	if strings.TrimSpace(req.Message) == "" {
		return nil, invalid(http.StatusBadRequest, "Message is required and must be a string")
	}
	if req.ConversationID == "" {
		return nil, invalid(http.StatusBadRequest, "Conversation ID is required")
	}
	if req.Attachment != nil && !llm.SupportedMimeType(req.Attachment.MimeType) {
		return nil, invalid(http.StatusBadRequest, "Unsupported file type: "+req.Attachment.MimeType)
	}

	conv, err := o.conversations.GetByID(ctx, req.ConversationID, req.UserID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, invalid(http.StatusNotFound, "Conversation not found")
	}
	if err != nil {
		return nil, fmt.Errorf("load conversation: %w", err)
	}

	userMsg := &model.Message{
		ConversationID: conv.ID,
		Role:           model.RoleUser,
		Content:        req.Message,
	}
	if err := o.messages.Create(ctx, userMsg); err != nil {
		return nil, fmt.Errorf("store user message: %w", err)
	}
	turn.UserMessage = userMsg

	slog.InfoContext(ctx, "user message stored",
		"message_id", userMsg.ID,
		"message", logger.Truncate(req.Message, 50),
		"has_attachment", req.Attachment != nil)

	turn.setState(ctx, StateResolvingConversation)
	upstreamID, err := o.resolveUpstream(ctx, conv, req.UpstreamHint)
	if err != nil {
		return nil, fmt.Errorf("resolve upstream conversation: %w", err)
	}
	turn.UpstreamID = upstreamID

	return turn, nil
}

// resolveUpstream reuses the stored handle or creates one. Creation happens
// under a per-conversation lock and is persisted before it is returned.
func (o *Orchestrator) resolveUpstream(ctx context.Context, conv *model.Conversation, hint string) (string, error) {
	if conv.HasUpstream() {
		if hint != "" && hint != *conv.UpstreamID {
			slog.WarnContext(ctx, "client upstream handle differs from stored one, using stored",
				"client_handle", hint,
				"upstream_conversation_id", *conv.UpstreamID)
		}
		return *conv.UpstreamID, nil
	}

	unlock, err := o.locker.Lock(ctx, "chat:conversation-handle:"+conv.ID)
	if err != nil {
		return "", fmt.Errorf("lock conversation: %w", err)
	}
	defer unlock()

	// Another turn may have created the handle while we waited.
	fresh, err := o.conversations.GetByID(ctx, conv.ID, conv.UserID)
	if err != nil {
		return "", fmt.Errorf("reload conversation: %w", err)
	}
	if fresh.HasUpstream() {
		return *fresh.UpstreamID, nil
	}

	created, err := o.gateway.CreateConversation(ctx)
	if err != nil {
		return "", err
	}

	stored, err := o.conversations.SetUpstreamID(ctx, conv.ID, conv.UserID, created)
	if err != nil {
		return "", fmt.Errorf("store upstream conversation: %w", err)
	}
	if stored != created {
		slog.WarnContext(ctx, "upstream conversation created concurrently, discarding ours",
			"discarded", created,
			"upstream_conversation_id", stored)
	} else {
		slog.InfoContext(ctx, "upstream conversation created", "upstream_conversation_id", stored)
	}
	return stored, nil
}
