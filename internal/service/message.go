package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"basegraph.app/chat/internal/model"
	"basegraph.app/chat/internal/store"
)

type MessageService interface {
	List(ctx context.Context, conversationID, userID string) ([]model.Message, error)
	Create(ctx context.Context, userID, conversationID string, role model.Role, content string) (*model.Message, error)
	Update(ctx context.Context, id, userID, content string) (*model.Message, error)
	Delete(ctx context.Context, id, userID string) error
}

type messageService struct {
	conversations store.ConversationStore
	messages      store.MessageStore
}

func NewMessageService(conversations store.ConversationStore, messages store.MessageStore) MessageService {
	return &messageService{
		conversations: conversations,
		messages:      messages,
	}
}

func (s *messageService) List(ctx context.Context, conversationID, userID string) ([]model.Message, error) {
	if err := s.checkOwner(ctx, conversationID, userID); err != nil {
		return nil, err
	}

	msgs, err := s.messages.ListByConversation(ctx, conversationID)
	if err != nil {
		return nil, fmt.Errorf("listing messages: %w", err)
	}
	return msgs, nil
}

func (s *messageService) Create(ctx context.Context, userID, conversationID string, role model.Role, content string) (*model.Message, error) {
	if !role.Valid() {
		return nil, ErrInvalidRole
	}
	if strings.TrimSpace(content) == "" {
		return nil, ErrContentRequired
	}
	if err := s.checkOwner(ctx, conversationID, userID); err != nil {
		return nil, err
	}

	msg := &model.Message{ConversationID: conversationID, Role: role, Content: content}
	if err := s.messages.Create(ctx, msg); err != nil {
		return nil, fmt.Errorf("creating message: %w", err)
	}
	return msg, nil
}

func (s *messageService) Update(ctx context.Context, id, userID, content string) (*model.Message, error) {
	if strings.TrimSpace(content) == "" {
		return nil, ErrContentRequired
	}
	if _, err := s.ownedMessage(ctx, id, userID); err != nil {
		return nil, err
	}

	msg, err := s.messages.UpdateContent(ctx, id, content)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrMessageNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("updating message: %w", err)
	}
	return msg, nil
}

func (s *messageService) Delete(ctx context.Context, id, userID string) error {
	if _, err := s.ownedMessage(ctx, id, userID); err != nil {
		return err
	}

	err := s.messages.Delete(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return ErrMessageNotFound
	}
	if err != nil {
		return fmt.Errorf("deleting message: %w", err)
	}
	return nil
}

func (s *messageService) checkOwner(ctx context.Context, conversationID, userID string) error {
	_, err := s.conversations.GetByID(ctx, conversationID, userID)
	if errors.Is(err, store.ErrNotFound) {
		return ErrConversationNotFound
	}
	if err != nil {
		return fmt.Errorf("getting conversation: %w", err)
	}
	return nil
}

func (s *messageService) ownedMessage(ctx context.Context, id, userID string) (*model.Message, error) {
	msg, err := s.messages.GetForUser(ctx, id, userID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrMessageNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("getting message: %w", err)
	}
	return msg, nil
}
