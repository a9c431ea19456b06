package service

import "errors"

var (
	ErrMissingCredentials   = errors.New("email and password are required")
	ErrWeakPassword         = errors.New("password must be at least 6 characters")
	ErrEmailTaken           = errors.New("email already registered")
	ErrInvalidCredentials   = errors.New("invalid email or password")
	ErrInvalidToken         = errors.New("invalid or expired session token")
	ErrUserNotFound         = errors.New("user not found")
	ErrConversationNotFound = errors.New("conversation not found")
	ErrMessageNotFound      = errors.New("message not found")
	ErrInvalidRole          = errors.New("role must be user or assistant")
	ErrContentRequired      = errors.New("content is required")
)
