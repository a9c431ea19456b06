package store

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"basegraph.app/chat/core/db"
	"basegraph.app/chat/internal/model"
)

const userColumns = `id, email, password_hash, name, last_name, created_at, updated_at`

type userStore struct {
	queries db.Querier
}

func newUserStore(queries db.Querier) UserStore {
	return &userStore{queries: queries}
}

func (s *userStore) GetByID(ctx context.Context, id string) (*model.User, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, ErrNotFound
	}
	row := s.queries.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
	return scanUser(row)
}

func (s *userStore) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	row := s.queries.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE email = $1 LIMIT 1`,
		strings.ToLower(strings.TrimSpace(email)),
	)
	return scanUser(row)
}

func (s *userStore) Create(ctx context.Context, user *model.User) error {
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	row := s.queries.QueryRow(ctx, `
		INSERT INTO users (id, email, password_hash, name, last_name)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING `+userColumns,
		user.ID, strings.ToLower(strings.TrimSpace(user.Email)), user.PasswordHash, user.Name, user.LastName,
	)
	created, err := scanUser(row)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrConflict
		}
		return err
	}
	*user = *created
	return nil
}

func (s *userStore) UpdatePassword(ctx context.Context, email, passwordHash string) error {
	tag, err := s.queries.Exec(ctx, `
		UPDATE users SET password_hash = $2, updated_at = NOW()
		WHERE email = $1`,
		strings.ToLower(strings.TrimSpace(email)), passwordHash,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func scanUser(row pgx.Row) (*model.User, error) {
	var u model.User
	err := row.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.Name, &u.LastName, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &u, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
