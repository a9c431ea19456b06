package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"basegraph.app/chat/internal/model"
	"basegraph.app/chat/internal/store"
)

const (
	previewLength  = 80
	defaultPreview = "Inizia a scrivere..."
)

// ConversationDetail is a conversation with its transcript and sidebar preview.
type ConversationDetail struct {
	model.Conversation
	Messages     []model.Message
	MessageCount int
	Preview      string
}

type ConversationService interface {
	List(ctx context.Context, userID string) ([]ConversationDetail, error)
	Create(ctx context.Context, userID, title string) (*model.Conversation, error)
	Get(ctx context.Context, id, userID string) (*ConversationDetail, error)
	Update(ctx context.Context, id, userID string, update model.ConversationUpdate) (*model.Conversation, error)
	Delete(ctx context.Context, id, userID string) error
}

type conversationService struct {
	conversations store.ConversationStore
	messages      store.MessageStore
}

func NewConversationService(conversations store.ConversationStore, messages store.MessageStore) ConversationService {
	return &conversationService{
		conversations: conversations,
		messages:      messages,
	}
}

func (s *conversationService) List(ctx context.Context, userID string) ([]ConversationDetail, error) {
	convs, err := s.conversations.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("listing conversations: %w", err)
	}

	out := make([]ConversationDetail, 0, len(convs))
	for _, c := range convs {
		detail, err := s.withMessages(ctx, c)
		if err != nil {
			return nil, err
		}
		out = append(out, *detail)
	}
	return out, nil
}

func (s *conversationService) Create(ctx context.Context, userID, title string) (*model.Conversation, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		title = model.DefaultConversationTitle
	}

	conv := &model.Conversation{UserID: userID, Title: title}
	if err := s.conversations.Create(ctx, conv); err != nil {
		return nil, fmt.Errorf("creating conversation: %w", err)
	}

	slog.InfoContext(ctx, "conversation created", "conversation_id", conv.ID)
	return conv, nil
}

func (s *conversationService) Get(ctx context.Context, id, userID string) (*ConversationDetail, error) {
	conv, err := s.conversations.GetByID(ctx, id, userID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrConversationNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("getting conversation: %w", err)
	}
	return s.withMessages(ctx, *conv)
}

func (s *conversationService) Update(ctx context.Context, id, userID string, update model.ConversationUpdate) (*model.Conversation, error) {
	if update.Title != nil {
		title := strings.TrimSpace(*update.Title)
		if title == "" {
			title = model.DefaultConversationTitle
		}
		update.Title = &title
	}

	conv, err := s.conversations.Update(ctx, id, userID, update)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrConversationNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("updating conversation: %w", err)
	}
	return conv, nil
}

func (s *conversationService) Delete(ctx context.Context, id, userID string) error {
	err := s.conversations.Delete(ctx, id, userID)
	if errors.Is(err, store.ErrNotFound) {
		return ErrConversationNotFound
	}
	if err != nil {
		return fmt.Errorf("deleting conversation: %w", err)
	}

	slog.InfoContext(ctx, "conversation deleted", "conversation_id", id)
	return nil
}

func (s *conversationService) withMessages(ctx context.Context, conv model.Conversation) (*ConversationDetail, error) {
	msgs, err := s.messages.ListByConversation(ctx, conv.ID)
	if err != nil {
		return nil, fmt.Errorf("listing messages: %w", err)
	}

	return &ConversationDetail{
		Conversation: conv,
		Messages:     msgs,
		MessageCount: len(msgs),
		Preview:      preview(msgs),
	}, nil
}

func preview(msgs []model.Message) string {
	if len(msgs) == 0 {
		return defaultPreview
	}
	content := []rune(msgs[len(msgs)-1].Content)
	if len(content) == 0 {
		return defaultPreview
	}
	if len(content) > previewLength {
		content = content[:previewLength]
	}
	return string(content)
}
