package store

import (
	"context"
	"errors"

	"basegraph.app/chat/internal/model"
)

// ErrNotFound is returned when a requested entity does not exist
var ErrNotFound = errors.New("not found")

// ErrConflict is returned when a unique constraint rejects a write
var ErrConflict = errors.New("conflict")

// UserStore defines the contract for user data access
type UserStore interface {
	GetByID(ctx context.Context, id string) (*model.User, error)
	GetByEmail(ctx context.Context, email string) (*model.User, error)
	Create(ctx context.Context, user *model.User) error
	UpdatePassword(ctx context.Context, email, passwordHash string) error
}

// ConversationStore defines the contract for conversation data access.
// Every read and write is scoped to the owning user.
type ConversationStore interface {
	GetByID(ctx context.Context, id, userID string) (*model.Conversation, error)
	ListByUser(ctx context.Context, userID string) ([]model.Conversation, error)
	Create(ctx context.Context, conv *model.Conversation) error
	Update(ctx context.Context, id, userID string, update model.ConversationUpdate) (*model.Conversation, error)
	Delete(ctx context.Context, id, userID string) error

	// SetUpstreamID stores the provider handle unless one is already present and
	// returns the value that ended up persisted (first writer wins).
	SetUpstreamID(ctx context.Context, id, userID, upstreamID string) (string, error)
}

// MessageStore defines the contract for message data access
type MessageStore interface {
	// Create inserts the message and bumps the conversation's updated_at.
	Create(ctx context.Context, msg *model.Message) error
	ListByConversation(ctx context.Context, conversationID string) ([]model.Message, error)
	// GetForUser resolves a message through its conversation's owner.
	GetForUser(ctx context.Context, id, userID string) (*model.Message, error)
	UpdateContent(ctx context.Context, id, content string) (*model.Message, error)
	Delete(ctx context.Context, id string) error
}
