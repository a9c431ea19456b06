package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"basegraph.app/chat/common/id"
	"basegraph.app/chat/common/llm"
	"basegraph.app/chat/common/logger"
	"basegraph.app/chat/common/otel"
	"basegraph.app/chat/core/config"
	"basegraph.app/chat/core/db"
	"basegraph.app/chat/internal/http/handler"
	"basegraph.app/chat/internal/http/middleware"
	httprouter "basegraph.app/chat/internal/http/router"
	chatllm "basegraph.app/chat/internal/llm"
	"basegraph.app/chat/internal/relay"
	"basegraph.app/chat/internal/service"
	"basegraph.app/chat/internal/store"
)

func main() {
	fmt.Printf("%s\n", banner)
	ctx := context.Background()

	cfg, err := config.Load(config.ServiceTypeServer)
	if err != nil {
		slog.ErrorContext(ctx, "failed to load config", "error", err)
		os.Exit(1)
	}

	// OTel must init before logger (logger uses OTel provider in production)
	telemetry, err := otel.Setup(ctx, cfg.OTel)
	if err != nil {
		os.Stderr.WriteString("failed to initialize otel: " + err.Error() + "\n")
		os.Exit(1)
	}

	logger.Setup(cfg)

	if telemetry != nil {
		slog.InfoContext(ctx, "otel initialized", "endpoint", cfg.OTel.Endpoint)
	} else {
		slog.InfoContext(ctx, "otel disabled (no endpoint configured)")
	}

	slog.InfoContext(ctx, "chat server starting", "env", cfg.Env, "service", cfg.OTel.ServiceName)
	if err := id.Init(1); err != nil {
		slog.ErrorContext(ctx, "failed to initialize snowflake id generator", "error", err)
		os.Exit(1)
	}

	database, err := db.New(ctx, cfg.DB)
	if err != nil {
		slog.ErrorContext(ctx, "failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer database.Close()
	slog.InfoContext(ctx, "database connected")

	locker, redisClient := setupLocker(ctx, cfg.RedisURL)
	if redisClient != nil {
		defer redisClient.Close()
	}

	var titleLLM llm.Client
	if cfg.TitleLLM.Enabled() {
		titleLLM, err = llm.New(llm.Config{
			Provider: cfg.TitleLLM.Provider,
			APIKey:   cfg.TitleLLM.APIKey,
			BaseURL:  cfg.TitleLLM.BaseURL,
			Model:    cfg.TitleLLM.Model,
		})
		if err != nil {
			slog.ErrorContext(ctx, "failed to create title llm client", "error", err)
			os.Exit(1)
		}
		slog.InfoContext(ctx, "title generation enabled", "provider", cfg.TitleLLM.Provider, "model", titleLLM.Model())
	} else {
		slog.InfoContext(ctx, "title generation disabled, default titles will be used")
	}

	if err := cfg.OpenAI.Ready(); err != nil {
		slog.WarnContext(ctx, "chat provider not configured, chat endpoints will answer 500", "error", err)
	}

	stores := store.NewStores(database.Queries())

	services := service.NewServices(service.ServicesConfig{
		Stores:   stores,
		Tokens:   service.NewTokenService(cfg.Auth.Secret, cfg.Auth.TokenTTL),
		TitleLLM: titleLLM,
		Locker:   locker,
	})

	gateway := chatllm.NewOpenAIGateway(chatllm.OpenAIConfig{
		APIKey:  cfg.OpenAI.APIKey,
		BaseURL: cfg.OpenAI.BaseURL,
	})
	orchestrator := relay.NewOrchestrator(
		relay.Config{
			Model:           cfg.OpenAI.Model,
			PromptID:        cfg.OpenAI.PromptID,
			Timeout:         cfg.Stream.Timeout,
			FallbackTimeout: cfg.Stream.FallbackTimeout,
		},
		gateway,
		gateway,
		stores.Conversations(),
		stores.Messages(),
		services.Locker(),
	)

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	router := setupRouter(cfg, services, orchestrator, gateway, database)
	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		// Event streams outlive any fixed write deadline; turns bound themselves.
		WriteTimeout: 0,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		slog.InfoContext(ctx, "http server starting", "port", cfg.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.ErrorContext(ctx, "http server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.InfoContext(ctx, "shutting down...")

	// Leave room for in-flight fallbacks to finish and persist.
	shutdownCtx, cancel := context.WithTimeout(ctx, cfg.Stream.FallbackTimeout+5*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.ErrorContext(shutdownCtx, "http server shutdown error", "error", err)
	}

	if telemetry != nil {
		if err := telemetry.Shutdown(shutdownCtx); err != nil {
			slog.ErrorContext(shutdownCtx, "otel shutdown error", "error", err)
		}
	}

	slog.InfoContext(shutdownCtx, "shutdown complete")
}

// setupLocker uses redis when configured so every instance shares the
// conversation-handle lock. Without redis the lock is per process.
func setupLocker(ctx context.Context, redisURL string) (service.HandleLocker, *redis.Client) {
	if redisURL == "" {
		slog.InfoContext(ctx, "redis not configured, using in-process handle lock")
		return service.NewLocalLocker(), nil
	}

	redisOpts, err := redis.ParseURL(redisURL)
	if err != nil {
		slog.ErrorContext(ctx, "failed to parse redis url", "error", err)
		os.Exit(1)
	}

	redisClient := redis.NewClient(redisOpts)
	if err := redisClient.Ping(ctx).Err(); err != nil {
		slog.ErrorContext(ctx, "failed to connect to redis", "error", err)
		os.Exit(1)
	}
	slog.InfoContext(ctx, "redis connected")

	return service.NewRedisLocker(redisClient), redisClient
}

func setupRouter(cfg config.Config, services *service.Services, turns *relay.Orchestrator, voice httprouter.VoiceProvider, database *db.DB) *gin.Engine {
	router := gin.New()

	// Order matters: OTel creates span → request id joins the log fields → Recovery catches panics → Logger logs with both
	if cfg.OTel.Enabled() {
		router.Use(otelgin.Middleware(cfg.OTel.ServiceName))
	}
	router.Use(middleware.RequestID())
	router.Use(middleware.Recovery())
	router.Use(middleware.Logger())

	rateLimit := 0
	if cfg.RateLimit.Enabled() {
		rateLimit = cfg.RateLimit.PerMinute
	}

	httprouter.SetupRoutes(router, services, httprouter.RouterConfig{
		IsProduction:       cfg.IsProduction(),
		Relay:              turns,
		ProviderReady:      cfg.OpenAI.Ready,
		MaxAttachmentBytes: cfg.Stream.MaxAttachmentBytes,
		RateLimitPerMinute: rateLimit,
		RateLimitBurst:     cfg.RateLimit.Burst,
		Health:             database.Ping,
		Voice:              voice,
		VoiceReady:         cfg.OpenAI.KeyReady,
		Transcription: handler.TranscribeConfig{
			Model:    cfg.Voice.TranscribeModel,
			Language: cfg.Voice.TranscribeLanguage,
			MaxBytes: cfg.Voice.MaxAudioBytes,
		},
		Realtime: handler.RealtimeConfig{
			Model:        cfg.Voice.RealtimeModel,
			Voice:        cfg.Voice.RealtimeVoice,
			Instructions: cfg.Voice.RealtimeInstructions,
			TTL:          cfg.Voice.RealtimeSessionTTL,
		},
	})

	return router
}

const banner = `
  ██████╗██╗  ██╗ █████╗ ████████╗
 ██╔════╝██║  ██║██╔══██╗╚══██╔══╝
 ██║     ███████║███████║   ██║
 ██║     ██╔══██║██╔══██║   ██║
 ╚██████╗██║  ██║██║  ██║   ██║
  ╚═════╝╚═╝  ╚═╝╚═╝  ╚═╝   ╚═╝
`
