package relay

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"basegraph.app/chat/common/logger"
	"basegraph.app/chat/internal/llm"
	"basegraph.app/chat/internal/model"
	"basegraph.app/chat/internal/store"
)

const noResponseText = "No response generated"

var ErrFallbackEntered = errors.New("fallback already ran for this turn")

// FallbackResult describes how a fallback attempt ended.
type FallbackResult struct {
	Text   string
	Stored bool
	Err    error
}

// FallbackExecutor answers a turn with one synchronous completion after
// streaming failed. It runs at most once per turn.
type FallbackExecutor struct {
	cfg      Config
	gateway  llm.Gateway
	uploader llm.Uploader
	messages store.MessageStore
	now      func() time.Time
}

func NewFallbackExecutor(cfg Config, gateway llm.Gateway, uploader llm.Uploader, messages store.MessageStore) *FallbackExecutor {
	return &FallbackExecutor{
		cfg:      cfg,
		gateway:  gateway,
		uploader: uploader,
		messages: messages,
		now:      time.Now,
	}
}

// Execute emits fallback_initiated followed by either content and complete, or
// a single error. The work runs detached from ctx's cancellation so an answer
// that was already paid for still gets persisted if the client leaves.
func (f *FallbackExecutor) Execute(ctx context.Context, turn *Turn, reason string, out Emitter) FallbackResult {
	if !turn.fallbackEntered.CompareAndSwap(false, true) {
		slog.ErrorContext(ctx, "fallback entered twice", "reason", reason)
		return FallbackResult{Err: ErrFallbackEntered}
	}

	ctx = logger.WithLogFields(ctx, logger.LogFields{Component: "chat.relay.fallback"})
	turn.setState(ctx, StateFallback)
	slog.WarnContext(ctx, "streaming fallback activated", "reason", reason)

	out.Send(FallbackEvent(f.now(), reason))

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), f.cfg.FallbackTimeout)
	defer cancel()

	text, err := f.complete(ctx, turn)
	if err != nil {
		slog.ErrorContext(ctx, "fallback handler failed", "error", err, "original_error", reason)
		turn.setState(ctx, StateErroring)
		out.Send(ErrorEvent(f.now(), "Fallback handler failed: "+err.Error(), reason))
		return FallbackResult{Err: err}
	}

	stored := persistAssistant(ctx, f.messages, turn, text)

	out.Send(ContentEvent(f.now(), Chunk{Data: text, TotalChars: utf8.RuneCountInString(text), Source: SourceFallbackComplete}))
	out.Send(CompleteEvent(f.now(), Completion{
		FinalContent:   text,
		ConversationID: turn.UpstreamID,
		StoredInDB:     stored,
		FallbackUsed:   true,
	}))

	slog.InfoContext(ctx, "fallback response delivered",
		"chars", len([]rune(text)),
		"stored_in_db", stored)

	return FallbackResult{Text: text, Stored: stored}
}

func (f *FallbackExecutor) complete(ctx context.Context, turn *Turn) (string, error) {
	input, err := llm.BuildInput(ctx, f.uploader, turn.Message, turn.Attachment)
	if err != nil {
		return "", err
	}

	resp, err := f.gateway.CreateSync(ctx, f.cfg.request(turn.UpstreamID, input))
	if err != nil {
		return "", fmt.Errorf("sync completion: %w", err)
	}

	if strings.TrimSpace(resp.Text) == "" {
		return noResponseText, nil
	}
	return resp.Text, nil
}

// persistAssistant stores the reply and reports whether it was written.
// Failures are logged only; the client still receives the answer.
func persistAssistant(ctx context.Context, messages store.MessageStore, turn *Turn, text string) bool {
	msg := &model.Message{
		ConversationID: turn.ConversationID,
		Role:           model.RoleAssistant,
		Content:        text,
	}
	if err := messages.Create(ctx, msg); err != nil {
		slog.ErrorContext(ctx, "failed to store assistant message", "error", err)
		return false
	}
	slog.DebugContext(ctx, "assistant message stored", "message_id", msg.ID)
	return true
}
