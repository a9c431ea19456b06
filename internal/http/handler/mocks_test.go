package handler_test

import (
	"context"

	"github.com/gin-gonic/gin"

	"basegraph.app/chat/internal/llm"
	"basegraph.app/chat/internal/model"
	"basegraph.app/chat/internal/relay"
	"basegraph.app/chat/internal/service"
)

// asUser stands in for RequireAuth.
func asUser(id string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set("user_id", id)
		c.Next()
	}
}

type mockAuthService struct {
	signupFn       func(ctx context.Context, in service.NewUser) (*model.User, error)
	loginFn        func(ctx context.Context, email, password string) (*service.Session, error)
	authenticateFn func(ctx context.Context, token string) (string, error)
	meFn           func(ctx context.Context, userID string) (*model.User, error)
}

func (m *mockAuthService) Signup(ctx context.Context, in service.NewUser) (*model.User, error) {
	if m.signupFn != nil {
		return m.signupFn(ctx, in)
	}
	return &model.User{ID: "user-1", Email: in.Email}, nil
}

func (m *mockAuthService) Login(ctx context.Context, email, password string) (*service.Session, error) {
	if m.loginFn != nil {
		return m.loginFn(ctx, email, password)
	}
	return nil, service.ErrInvalidCredentials
}

func (m *mockAuthService) Authenticate(ctx context.Context, token string) (string, error) {
	if m.authenticateFn != nil {
		return m.authenticateFn(ctx, token)
	}
	return "", service.ErrInvalidToken
}

func (m *mockAuthService) Me(ctx context.Context, userID string) (*model.User, error) {
	if m.meFn != nil {
		return m.meFn(ctx, userID)
	}
	return &model.User{ID: userID}, nil
}

type mockConversationService struct {
	listFn   func(ctx context.Context, userID string) ([]service.ConversationDetail, error)
	createFn func(ctx context.Context, userID, title string) (*model.Conversation, error)
	getFn    func(ctx context.Context, id, userID string) (*service.ConversationDetail, error)
	updateFn func(ctx context.Context, id, userID string, update model.ConversationUpdate) (*model.Conversation, error)
	deleteFn func(ctx context.Context, id, userID string) error
}

func (m *mockConversationService) List(ctx context.Context, userID string) ([]service.ConversationDetail, error) {
	if m.listFn != nil {
		return m.listFn(ctx, userID)
	}
	return nil, nil
}

func (m *mockConversationService) Create(ctx context.Context, userID, title string) (*model.Conversation, error) {
	if m.createFn != nil {
		return m.createFn(ctx, userID, title)
	}
	return &model.Conversation{ID: "conv-1", UserID: userID, Title: title}, nil
}

func (m *mockConversationService) Get(ctx context.Context, id, userID string) (*service.ConversationDetail, error) {
	if m.getFn != nil {
		return m.getFn(ctx, id, userID)
	}
	return nil, service.ErrConversationNotFound
}

func (m *mockConversationService) Update(ctx context.Context, id, userID string, update model.ConversationUpdate) (*model.Conversation, error) {
	if m.updateFn != nil {
		return m.updateFn(ctx, id, userID, update)
	}
	return &model.Conversation{ID: id, UserID: userID}, nil
}

func (m *mockConversationService) Delete(ctx context.Context, id, userID string) error {
	if m.deleteFn != nil {
		return m.deleteFn(ctx, id, userID)
	}
	return nil
}

type mockMessageService struct {
	listFn   func(ctx context.Context, conversationID, userID string) ([]model.Message, error)
	createFn func(ctx context.Context, userID, conversationID string, role model.Role, content string) (*model.Message, error)
	updateFn func(ctx context.Context, id, userID, content string) (*model.Message, error)
	deleteFn func(ctx context.Context, id, userID string) error
}

func (m *mockMessageService) List(ctx context.Context, conversationID, userID string) ([]model.Message, error) {
	if m.listFn != nil {
		return m.listFn(ctx, conversationID, userID)
	}
	return nil, nil
}

func (m *mockMessageService) Create(ctx context.Context, userID, conversationID string, role model.Role, content string) (*model.Message, error) {
	if m.createFn != nil {
		return m.createFn(ctx, userID, conversationID, role, content)
	}
	return &model.Message{ID: "msg-1", ConversationID: conversationID, Role: role, Content: content}, nil
}

func (m *mockMessageService) Update(ctx context.Context, id, userID, content string) (*model.Message, error) {
	if m.updateFn != nil {
		return m.updateFn(ctx, id, userID, content)
	}
	return &model.Message{ID: id, Content: content}, nil
}

func (m *mockMessageService) Delete(ctx context.Context, id, userID string) error {
	if m.deleteFn != nil {
		return m.deleteFn(ctx, id, userID)
	}
	return nil
}

type mockTitleService struct {
	generateFn func(ctx context.Context, userID, conversationID, message string) (string, error)
}

func (m *mockTitleService) Generate(ctx context.Context, userID, conversationID, message string) (string, error) {
	if m.generateFn != nil {
		return m.generateFn(ctx, userID, conversationID, message)
	}
	return model.DefaultConversationTitle, nil
}

type mockRelay struct {
	prepareFn  func(ctx context.Context, req relay.TurnRequest) (*relay.Turn, error)
	streamFn   func(ctx context.Context, turn *relay.Turn, out relay.Emitter)
	completeFn func(ctx context.Context, turn *relay.Turn) (*relay.SyncResult, error)

	prepared []relay.TurnRequest
}

func (m *mockRelay) Prepare(ctx context.Context, req relay.TurnRequest) (*relay.Turn, error) {
	m.prepared = append(m.prepared, req)
	if m.prepareFn != nil {
		return m.prepareFn(ctx, req)
	}
	return &relay.Turn{ID: "turn-1", UserID: req.UserID, ConversationID: req.ConversationID, UpstreamID: "conv_up_1", Message: req.Message}, nil
}

func (m *mockRelay) Stream(ctx context.Context, turn *relay.Turn, out relay.Emitter) {
	if m.streamFn != nil {
		m.streamFn(ctx, turn, out)
	}
	_ = out.Close()
}

func (m *mockRelay) Complete(ctx context.Context, turn *relay.Turn) (*relay.SyncResult, error) {
	if m.completeFn != nil {
		return m.completeFn(ctx, turn)
	}
	return &relay.SyncResult{ResponseID: "resp_1", Text: "ciao", StoredInDB: true}, nil
}

type mockTranscriber struct {
	transcribeFn func(ctx context.Context, req llm.TranscriptionRequest) (string, error)

	requests []llm.TranscriptionRequest
}

func (m *mockTranscriber) Transcribe(ctx context.Context, req llm.TranscriptionRequest) (string, error) {
	m.requests = append(m.requests, req)
	if m.transcribeFn != nil {
		return m.transcribeFn(ctx, req)
	}
	return "ciao", nil
}

type mockRealtimeSessions struct {
	createFn func(ctx context.Context, req llm.RealtimeSessionRequest) (*llm.RealtimeSession, error)

	requests []llm.RealtimeSessionRequest
}

func (m *mockRealtimeSessions) CreateRealtimeSession(ctx context.Context, req llm.RealtimeSessionRequest) (*llm.RealtimeSession, error) {
	m.requests = append(m.requests, req)
	if m.createFn != nil {
		return m.createFn(ctx, req)
	}
	return &llm.RealtimeSession{ClientSecret: "ek_1", SessionID: "sess_1", ExpiresAt: 1700000600}, nil
}
