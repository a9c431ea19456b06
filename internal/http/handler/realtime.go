package handler

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"basegraph.app/chat/internal/http/dto"
	"basegraph.app/chat/internal/http/middleware"
	"basegraph.app/chat/internal/llm"
	"basegraph.app/chat/internal/model"
)

type RealtimeConfig struct {
	Model        string
	Voice        string
	Instructions string
	TTL          time.Duration
}

// UserLookup resolves the signed-in user for the session instructions.
type UserLookup interface {
	Me(ctx context.Context, userID string) (*model.User, error)
}

type RealtimeHandler struct {
	sessions llm.RealtimeSessions
	users    UserLookup
	ready    func() error
	cfg      RealtimeConfig
}

func NewRealtimeHandler(sessions llm.RealtimeSessions, users UserLookup, ready func() error, cfg RealtimeConfig) *RealtimeHandler {
	return &RealtimeHandler{sessions: sessions, users: users, ready: ready, cfg: cfg}
}

func (h *RealtimeHandler) CreateSession(c *gin.Context) {
	ctx := c.Request.Context()

	if err := h.ready(); err != nil {
		slog.ErrorContext(ctx, "realtime provider not configured", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Server misconfigured: " + err.Error()})
		return
	}

	user, err := h.users.Me(ctx, middleware.MustUserID(c))
	if err != nil {
		slog.ErrorContext(ctx, "failed to load user for realtime session", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create session"})
		return
	}

	session, err := h.sessions.CreateRealtimeSession(ctx, llm.RealtimeSessionRequest{
		Model:        h.cfg.Model,
		Voice:        h.cfg.Voice,
		Instructions: sessionInstructions(h.cfg.Instructions, user),
		TTL:          h.cfg.TTL,
	})
	if err != nil {
		slog.ErrorContext(ctx, "realtime session creation failed", "error", err)
		c.JSON(http.StatusBadGateway, gin.H{"error": "Failed to create Realtime session"})
		return
	}

	slog.InfoContext(ctx, "realtime session created", "session_id", session.SessionID, "expires_at", session.ExpiresAt)
	c.JSON(http.StatusOK, dto.RealtimeSessionResponse{
		ClientSecret: session.ClientSecret,
		SessionID:    session.SessionID,
		ExpiresAt:    session.ExpiresAt,
		Model:        h.cfg.Model,
		Voice:        h.cfg.Voice,
	})
}

// sessionInstructions names the user so the assistant can address them.
func sessionInstructions(base string, user *model.User) string {
	var name []string
	if user.Name != nil && *user.Name != "" {
		name = append(name, *user.Name)
	}
	if user.LastName != nil && *user.LastName != "" {
		name = append(name, *user.LastName)
	}

	who := user.Email
	if len(name) > 0 {
		who = fmt.Sprintf("%s (%s)", strings.Join(name, " "), user.Email)
	}
	return strings.TrimSpace(fmt.Sprintf("%s\nThe current user is %s.", base, who))
}
