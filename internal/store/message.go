package store

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"basegraph.app/chat/core/db"
	"basegraph.app/chat/internal/model"
)

const messageColumns = `m.id, m.conversation_id, m.role, m.content, m.created_at, m.edited_at`

type messageStore struct {
	queries db.Querier
}

func newMessageStore(queries db.Querier) MessageStore {
	return &messageStore{queries: queries}
}

func (s *messageStore) Create(ctx context.Context, msg *model.Message) error {
	if !validIDs(msg.ConversationID) {
		return ErrNotFound
	}
	if msg.ID == "" {
		msg.ID = uuid.NewString()
	}
	row := s.queries.QueryRow(ctx, `
		WITH m AS (
			INSERT INTO messages (id, conversation_id, role, content)
			VALUES ($1, $2, $3, $4)
			RETURNING *
		), touched AS (
			UPDATE conversations SET updated_at = NOW() WHERE id = $2
		)
		SELECT `+messageColumns+` FROM m`,
		msg.ID, msg.ConversationID, string(msg.Role), msg.Content)
	created, err := scanMessage(row)
	if err != nil {
		return err
	}
	*msg = *created
	return nil
}

func (s *messageStore) ListByConversation(ctx context.Context, conversationID string) ([]model.Message, error) {
	if !validIDs(conversationID) {
		return []model.Message{}, nil
	}
	rows, err := s.queries.Query(ctx, `
		SELECT `+messageColumns+` FROM messages m
		WHERE m.conversation_id = $1
		ORDER BY m.created_at ASC`, conversationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	msgs := []model.Message{}
	for rows.Next() {
		m, err := scanMessage(rows)
		if err != nil {
			return nil, err
		}
		msgs = append(msgs, *m)
	}
	return msgs, rows.Err()
}

func (s *messageStore) GetForUser(ctx context.Context, id, userID string) (*model.Message, error) {
	if !validIDs(id, userID) {
		return nil, ErrNotFound
	}
	row := s.queries.QueryRow(ctx, `
		SELECT `+messageColumns+` FROM messages m
		JOIN conversations c ON m.conversation_id = c.id
		WHERE m.id = $1 AND c.user_id = $2
		LIMIT 1`, id, userID)
	return scanMessage(row)
}

func (s *messageStore) UpdateContent(ctx context.Context, id, content string) (*model.Message, error) {
	if !validIDs(id) {
		return nil, ErrNotFound
	}
	row := s.queries.QueryRow(ctx, `
		UPDATE messages m SET content = $2, edited_at = NOW()
		WHERE m.id = $1
		RETURNING `+messageColumns, id, content)
	return scanMessage(row)
}

func (s *messageStore) Delete(ctx context.Context, id string) error {
	if !validIDs(id) {
		return ErrNotFound
	}
	_, err := s.queries.Exec(ctx, `DELETE FROM messages WHERE id = $1`, id)
	return err
}

func scanMessage(row pgx.Row) (*model.Message, error) {
	var (
		m    model.Message
		role string
	)
	err := row.Scan(&m.ID, &m.ConversationID, &role, &m.Content, &m.CreatedAt, &m.EditedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	m.Role = model.Role(role)
	return &m, nil
}
