package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"basegraph.app/chat/internal/model"
	"basegraph.app/chat/internal/store"
)

const minPasswordLength = 6

type NewUser struct {
	Email    string
	Password string
	Name     *string
	LastName *string
}

type UserService interface {
	Create(ctx context.Context, in NewUser) (*model.User, error)
	Get(ctx context.Context, id string) (*model.User, error)
	ResetPassword(ctx context.Context, email, password string) error
}

type userService struct {
	userStore store.UserStore
}

func NewUserService(userStore store.UserStore) UserService {
	return &userService{userStore: userStore}
}

func (s *userService) Create(ctx context.Context, in NewUser) (*model.User, error) {
	email := strings.TrimSpace(in.Email)
	if email == "" || in.Password == "" {
		return nil, ErrMissingCredentials
	}
	if len(in.Password) < minPasswordLength {
		return nil, ErrWeakPassword
	}

	hash, err := hashPassword(in.Password)
	if err != nil {
		return nil, err
	}

	user := &model.User{
		Email:        email,
		Name:         in.Name,
		LastName:     in.LastName,
		PasswordHash: hash,
	}

	if err := s.userStore.Create(ctx, user); err != nil {
		if errors.Is(err, store.ErrConflict) {
			return nil, ErrEmailTaken
		}
		slog.ErrorContext(ctx, "failed to create user",
			"error", err,
			"email", email,
		)
		return nil, fmt.Errorf("creating user: %w", err)
	}

	slog.InfoContext(ctx, "user created", "user_id", user.ID)
	return user, nil
}

func (s *userService) Get(ctx context.Context, id string) (*model.User, error) {
	user, err := s.userStore.GetByID(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("getting user: %w", err)
	}
	return user, nil
}

func (s *userService) ResetPassword(ctx context.Context, email, password string) error {
	if len(password) < minPasswordLength {
		return ErrWeakPassword
	}

	hash, err := hashPassword(password)
	if err != nil {
		return err
	}

	err = s.userStore.UpdatePassword(ctx, email, hash)
	if errors.Is(err, store.ErrNotFound) {
		return ErrUserNotFound
	}
	if err != nil {
		return fmt.Errorf("updating password: %w", err)
	}

	slog.InfoContext(ctx, "password reset", "email", email)
	return nil
}

func hashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hashing password: %w", err)
	}
	return string(hash), nil
}
