package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"basegraph.app/chat/internal/model"
	"basegraph.app/chat/internal/store"
)

// Session is a logged-in user with a signed token.
type Session struct {
	Token     string
	ExpiresAt time.Time
	User      *model.User
}

type AuthService interface {
	Signup(ctx context.Context, in NewUser) (*model.User, error)
	Login(ctx context.Context, email, password string) (*Session, error)
	// Authenticate resolves a session token to its user id.
	Authenticate(ctx context.Context, token string) (string, error)
	Me(ctx context.Context, userID string) (*model.User, error)
}

type authService struct {
	userStore store.UserStore
	users     UserService
	tokens    *TokenService
}

func NewAuthService(userStore store.UserStore, users UserService, tokens *TokenService) AuthService {
	return &authService{
		userStore: userStore,
		users:     users,
		tokens:    tokens,
	}
}

func (s *authService) Signup(ctx context.Context, in NewUser) (*model.User, error) {
	return s.users.Create(ctx, in)
}

func (s *authService) Login(ctx context.Context, email, password string) (*Session, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return nil, ErrMissingCredentials
	}

	user, err := s.userStore.GetByEmail(ctx, email)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("getting user by email: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		slog.InfoContext(ctx, "login rejected", "user_id", user.ID)
		return nil, ErrInvalidCredentials
	}

	token, expiresAt, err := s.tokens.Issue(user)
	if err != nil {
		return nil, err
	}

	slog.InfoContext(ctx, "user logged in", "user_id", user.ID)
	return &Session{Token: token, ExpiresAt: expiresAt, User: user}, nil
}

func (s *authService) Authenticate(ctx context.Context, token string) (string, error) {
	claims, err := s.tokens.Validate(token)
	if err != nil {
		slog.DebugContext(ctx, "session token rejected", "error", err)
		return "", err
	}
	return claims.Subject, nil
}

func (s *authService) Me(ctx context.Context, userID string) (*model.User, error) {
	return s.users.Get(ctx, userID)
}
