package store

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"basegraph.app/chat/core/db"
	"basegraph.app/chat/internal/model"
)

const conversationColumns = `id, user_id, title, pinned, openai_conversation_id, created_at, updated_at`

type conversationStore struct {
	queries db.Querier
}

func newConversationStore(queries db.Querier) ConversationStore {
	return &conversationStore{queries: queries}
}

func (s *conversationStore) GetByID(ctx context.Context, id, userID string) (*model.Conversation, error) {
	if !validIDs(id, userID) {
		return nil, ErrNotFound
	}
	row := s.queries.QueryRow(ctx, `
		SELECT `+conversationColumns+` FROM conversations
		WHERE id = $1 AND user_id = $2
		LIMIT 1`, id, userID)
	return scanConversation(row)
}

func (s *conversationStore) ListByUser(ctx context.Context, userID string) ([]model.Conversation, error) {
	if !validIDs(userID) {
		return []model.Conversation{}, nil
	}
	rows, err := s.queries.Query(ctx, `
		SELECT `+conversationColumns+` FROM conversations
		WHERE user_id = $1
		ORDER BY updated_at DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	convs := []model.Conversation{}
	for rows.Next() {
		c, err := scanConversation(rows)
		if err != nil {
			return nil, err
		}
		convs = append(convs, *c)
	}
	return convs, rows.Err()
}

func (s *conversationStore) Create(ctx context.Context, conv *model.Conversation) error {
	if conv.ID == "" {
		conv.ID = uuid.NewString()
	}
	if conv.Title == "" {
		conv.Title = model.DefaultConversationTitle
	}
	row := s.queries.QueryRow(ctx, `
		INSERT INTO conversations (id, user_id, title)
		VALUES ($1, $2, $3)
		RETURNING `+conversationColumns,
		conv.ID, conv.UserID, conv.Title)
	created, err := scanConversation(row)
	if err != nil {
		return err
	}
	*conv = *created
	return nil
}

func (s *conversationStore) Update(ctx context.Context, id, userID string, update model.ConversationUpdate) (*model.Conversation, error) {
	if !validIDs(id, userID) {
		return nil, ErrNotFound
	}
	row := s.queries.QueryRow(ctx, `
		UPDATE conversations
		SET title = COALESCE($3, title),
		    pinned = COALESCE($4, pinned),
		    updated_at = NOW()
		WHERE id = $1 AND user_id = $2
		RETURNING `+conversationColumns,
		id, userID, update.Title, update.Pinned)
	return scanConversation(row)
}

func (s *conversationStore) Delete(ctx context.Context, id, userID string) error {
	if !validIDs(id, userID) {
		return ErrNotFound
	}
	tag, err := s.queries.Exec(ctx, `DELETE FROM conversations WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *conversationStore) SetUpstreamID(ctx context.Context, id, userID, upstreamID string) (string, error) {
	if !validIDs(id, userID) {
		return "", ErrNotFound
	}
	var stored string
	err := s.queries.QueryRow(ctx, `
		UPDATE conversations
		SET openai_conversation_id = COALESCE(NULLIF(openai_conversation_id, ''), $3),
		    updated_at = NOW()
		WHERE id = $1 AND user_id = $2
		RETURNING openai_conversation_id`,
		id, userID, upstreamID).Scan(&stored)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", ErrNotFound
		}
		return "", err
	}
	return stored, nil
}

func scanConversation(row pgx.Row) (*model.Conversation, error) {
	var c model.Conversation
	err := row.Scan(&c.ID, &c.UserID, &c.Title, &c.Pinned, &c.UpstreamID, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &c, nil
}

// validIDs filters out ids that can never match a UUID primary key, so a
// malformed id reads as "not found" instead of a query error.
func validIDs(ids ...string) bool {
	for _, id := range ids {
		if _, err := uuid.Parse(id); err != nil {
			return false
		}
	}
	return true
}
