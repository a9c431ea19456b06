package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"basegraph.app/chat/common/llm"
	"basegraph.app/chat/common/logger"
	"basegraph.app/chat/internal/model"
	"basegraph.app/chat/internal/store"
)

const (
	maxTitleLength = 80

	titleSystemPrompt = "Generate a concise chat title from the user's first message. " +
		"The title must be between 2 and 5 words, in the language of the message. " +
		"Respond only with the title."
)

type titleResponse struct {
	Title string `json:"title" jsonschema:"description=Chat title of 2 to 5 words"`
}

var titleSchema = llm.GenerateSchema[titleResponse]()

type TitleService interface {
	// Generate names the conversation after its first message and stores the title.
	Generate(ctx context.Context, userID, conversationID, message string) (string, error)
}

type titleService struct {
	conversations store.ConversationStore
	client        llm.Client // nil when no title model is configured
}

func NewTitleService(conversations store.ConversationStore, client llm.Client) TitleService {
	return &titleService{
		conversations: conversations,
		client:        client,
	}
}

func (s *titleService) Generate(ctx context.Context, userID, conversationID, message string) (string, error) {
	ctx = logger.WithLogFields(ctx, logger.LogFields{
		ConversationID: &conversationID,
		Component:      "chat.service.title",
	})

	_, err := s.conversations.GetByID(ctx, conversationID, userID)
	if errors.Is(err, store.ErrNotFound) {
		return "", ErrConversationNotFound
	}
	if err != nil {
		return "", fmt.Errorf("getting conversation: %w", err)
	}

	title := model.DefaultConversationTitle
	if s.client != nil {
		var out titleResponse
		_, err := s.client.Chat(ctx, llm.Request{
			SystemPrompt: titleSystemPrompt,
			UserPrompt:   message,
			SchemaName:   "conversation_title",
			Schema:       titleSchema,
			MaxTokens:    200,
		}, &out)
		if err != nil {
			return "", fmt.Errorf("generating title: %w", err)
		}
		title = cleanTitle(out.Title)
	} else {
		slog.DebugContext(ctx, "title model not configured, using default title")
	}

	if _, err := s.conversations.Update(ctx, conversationID, userID, model.ConversationUpdate{Title: &title}); err != nil {
		return "", fmt.Errorf("storing title: %w", err)
	}

	slog.InfoContext(ctx, "conversation title generated",
		"title", title,
		"message", logger.Truncate(message, 50))
	return title, nil
}

func cleanTitle(raw string) string {
	title := strings.TrimSpace(raw)
	title = strings.Trim(title, "\"'`")
	title = strings.TrimSpace(strings.TrimSuffix(title, "."))
	if title == "" {
		return model.DefaultConversationTitle
	}
	if r := []rune(title); len(r) > maxTitleLength {
		title = string(r[:maxTitleLength])
	}
	return title
}
