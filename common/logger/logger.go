package logger

import (
	"context"
	"log/slog"
	"os"

	"go.opentelemetry.io/contrib/bridges/otelslog"
	"go.opentelemetry.io/otel/log/global"
	"go.opentelemetry.io/otel/trace"

	"basegraph.app/chat/core/config"
)

// Setup installs the process-wide slog handler:
//   - production with an OTLP endpoint: otelslog bridge
//   - production: JSON on stdout
//   - otherwise: text on stdout
//
// Context fields from WithLogFields are attached in every mode.
func Setup(cfg config.Config) {
	var handler slog.Handler

	opts := &slog.HandlerOptions{Level: level(cfg)}

	switch {
	case cfg.IsProduction() && cfg.OTel.Enabled():
		// The bridge correlates trace ids itself.
		handler = &TraceHandler{
			Handler: otelslog.NewHandler(
				cfg.OTel.ServiceName,
				otelslog.WithLoggerProvider(global.GetLoggerProvider()),
			),
			skipTrace: true,
		}
	case cfg.IsProduction():
		handler = NewTraceHandler(slog.NewJSONHandler(os.Stdout, opts))
	default:
		handler = NewTraceHandler(slog.NewTextHandler(os.Stdout, opts))
	}

	slog.SetDefault(slog.New(handler))
}

func level(cfg config.Config) slog.Level {
	if cfg.LogLevel != "" {
		var l slog.Level
		if err := l.UnmarshalText([]byte(cfg.LogLevel)); err == nil {
			return l
		}
	}
	if cfg.IsDevelopment() {
		return slog.LevelDebug
	}
	return slog.LevelInfo
}

// TraceHandler adds the active span ids and the context LogFields to every record.
type TraceHandler struct {
	slog.Handler
	skipTrace bool
}

func NewTraceHandler(h slog.Handler) *TraceHandler {
	return &TraceHandler{Handler: h}
}

func (h *TraceHandler) Handle(ctx context.Context, r slog.Record) error {
	if !h.skipTrace {
		if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
			r.AddAttrs(
				slog.String("trace_id", sc.TraceID().String()),
				slog.String("span_id", sc.SpanID().String()),
			)
		}
	}
	r.AddAttrs(Attrs(ctx)...)
	return h.Handler.Handle(ctx, r)
}

func (h *TraceHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &TraceHandler{Handler: h.Handler.WithAttrs(attrs), skipTrace: h.skipTrace}
}

func (h *TraceHandler) WithGroup(name string) slog.Handler {
	return &TraceHandler{Handler: h.Handler.WithGroup(name), skipTrace: h.skipTrace}
}

// Attrs renders the context LogFields as slog attributes.
func Attrs(ctx context.Context) []slog.Attr {
	f := GetLogFields(ctx)

	attrs := make([]slog.Attr, 0, 6)
	for _, kv := range []struct {
		key string
		val *string
	}{
		{"user_id", f.UserID},
		{"conversation_id", f.ConversationID},
		{"upstream_conversation_id", f.UpstreamConversationID},
		{"turn_id", f.TurnID},
		{"request_id", f.RequestID},
	} {
		if kv.val != nil && *kv.val != "" {
			attrs = append(attrs, slog.String(kv.key, *kv.val))
		}
	}
	if f.Component != "" {
		attrs = append(attrs, slog.String("component", f.Component))
	}
	return attrs
}
