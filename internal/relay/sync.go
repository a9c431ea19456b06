package relay

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"basegraph.app/chat/common/logger"
	"basegraph.app/chat/internal/llm"
)

// SyncResult is the answer of a non-streaming turn.
type SyncResult struct {
	ResponseID string
	Text       string
	StoredInDB bool
}

// Complete answers a prepared turn with one synchronous completion.
func (o *Orchestrator) Complete(ctx context.Context, turn *Turn) (*SyncResult, error) {
	ctx = logger.WithLogFields(ctx, logger.LogFields{
		TurnID:                 &turn.ID,
		UpstreamConversationID: &turn.UpstreamID,
		Component:              "chat.relay.sync",
	})

	input, err := llm.BuildInput(ctx, o.uploader, turn.Message, turn.Attachment)
	if err != nil {
		return nil, err
	}

	resp, err := o.gateway.CreateSync(ctx, o.cfg.request(turn.UpstreamID, input))
	if err != nil {
		return nil, fmt.Errorf("sync completion: %w", err)
	}

	text := resp.Text
	if strings.TrimSpace(text) == "" {
		text = noResponseText
	}

	stored := persistAssistant(ctx, o.messages, turn, text)
	turn.setState(ctx, StateClosed)

	slog.InfoContext(ctx, "sync completion delivered", "response_id", resp.ID, "stored_in_db", stored)
	return &SyncResult{ResponseID: resp.ID, Text: text, StoredInDB: stored}, nil
}
