package service

import (
	"basegraph.app/chat/common/llm"
	"basegraph.app/chat/internal/store"
)

type ServicesConfig struct {
	Stores   *store.Stores
	Tokens   *TokenService
	TitleLLM llm.Client // optional
	Locker   HandleLocker
}

type Services struct {
	stores   *store.Stores
	tokens   *TokenService
	titleLLM llm.Client
	locker   HandleLocker
}

func NewServices(cfg ServicesConfig) *Services {
	locker := cfg.Locker
	if locker == nil {
		locker = NewLocalLocker()
	}
	return &Services{
		stores:   cfg.Stores,
		tokens:   cfg.Tokens,
		titleLLM: cfg.TitleLLM,
		locker:   locker,
	}
}

func (s *Services) Users() UserService {
	return NewUserService(s.stores.Users())
}

func (s *Services) Auth() AuthService {
	return NewAuthService(s.stores.Users(), s.Users(), s.tokens)
}

func (s *Services) Conversations() ConversationService {
	return NewConversationService(s.stores.Conversations(), s.stores.Messages())
}

func (s *Services) Messages() MessageService {
	return NewMessageService(s.stores.Conversations(), s.stores.Messages())
}

func (s *Services) Titles() TitleService {
	return NewTitleService(s.stores.Conversations(), s.titleLLM)
}

func (s *Services) Locker() HandleLocker {
	return s.locker
}
