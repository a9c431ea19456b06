package router

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"basegraph.app/chat/internal/http/handler"
	"basegraph.app/chat/internal/http/middleware"
	"basegraph.app/chat/internal/llm"
	"basegraph.app/chat/internal/service"
)

// VoiceProvider serves both voice endpoints.
type VoiceProvider interface {
	llm.Transcriber
	llm.RealtimeSessions
}

type RouterConfig struct {
	IsProduction bool
	// Relay runs chat turns; ProviderReady reports whether it can reach the provider.
	Relay              handler.TurnRelay
	ProviderReady      func() error
	MaxAttachmentBytes int
	RateLimitPerMinute int
	RateLimitBurst     int
	// Voice endpoints are mounted only when Voice is set. VoiceReady checks
	// the provider key; voice calls do not need the stored prompt.
	Voice         VoiceProvider
	VoiceReady    func() error
	Transcription handler.TranscribeConfig
	Realtime      handler.RealtimeConfig
	// Health reports whether the database answers; nil skips the check.
	Health func(ctx context.Context) error
}

func SetupRoutes(router *gin.Engine, services *service.Services, cfg RouterConfig) {
	router.GET("/health", func(c *gin.Context) {
		if cfg.Health != nil {
			if err := cfg.Health(c.Request.Context()); err != nil {
				c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "error": err.Error()})
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	requireAuth := middleware.RequireAuth(services.Auth())

	authHandler := handler.NewAuthHandler(services.Auth(), cfg.IsProduction)
	AuthRouter(router.Group("/api/auth"), authHandler, requireAuth)

	api := router.Group("/api", requireAuth)
	{
		conversationHandler := handler.NewConversationHandler(services.Conversations())
		ConversationRouter(api.Group("/conversations"), conversationHandler)

		messageHandler := handler.NewMessageHandler(services.Messages())
		MessageRouter(api.Group("/messages"), messageHandler)

		chat := api.Group("")
		if cfg.RateLimitPerMinute > 0 {
			chat.Use(middleware.RateLimit(middleware.NewLimiter(cfg.RateLimitPerMinute, cfg.RateLimitBurst)))
		}
		chatHandler := handler.NewChatHandler(cfg.Relay, cfg.ProviderReady, cfg.MaxAttachmentBytes)
		titleHandler := handler.NewTitleHandler(services.Titles())
		ChatRouter(chat, chatHandler, titleHandler)

		if cfg.Voice != nil {
			ready := cfg.VoiceReady
			if ready == nil {
				ready = func() error { return nil }
			}
			transcribeHandler := handler.NewTranscribeHandler(cfg.Voice, ready, cfg.Transcription)
			realtimeHandler := handler.NewRealtimeHandler(cfg.Voice, services.Auth(), ready, cfg.Realtime)
			VoiceRouter(chat, transcribeHandler, realtimeHandler)
		}
	}
}
