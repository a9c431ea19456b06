package relay

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"basegraph.app/chat/common/id"
	"basegraph.app/chat/common/logger"
	"basegraph.app/chat/internal/llm"
	"basegraph.app/chat/internal/store"
)

const persistTimeout = 10 * time.Second

var (
	errClientGone  = errors.New("client disconnected")
	errTimedOut    = errors.New("streaming timeout")
	errEmptyStream = errors.New("stream ended without content")
)

// Locker serializes upstream handle creation per conversation.
type Locker interface {
	Lock(ctx context.Context, key string) (unlock func(), err error)
}

// Orchestrator drives one turn from validation to the terminal event.
// It holds no per-turn state; concurrent turns are isolated.
type Orchestrator struct {
	cfg           Config
	gateway       llm.Gateway
	uploader      llm.Uploader
	conversations store.ConversationStore
	messages      store.MessageStore
	locker        Locker
	fallback      *FallbackExecutor
	now           func() time.Time
	newTurnID     func() string
}

type Option func(*Orchestrator)

// WithClock replaces time.Now for event timestamps and throughput figures.
func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) {
		o.now = now
		o.fallback.now = now
	}
}

func WithTurnIDs(next func() string) Option {
	return func(o *Orchestrator) {
		o.newTurnID = next
	}
}

func NewOrchestrator(
	cfg Config,
	gateway llm.Gateway,
	uploader llm.Uploader,
	conversations store.ConversationStore,
	messages store.MessageStore,
	locker Locker,
	opts ...Option,
) *Orchestrator {
	o := &Orchestrator{
		cfg:           cfg,
		gateway:       gateway,
		uploader:      uploader,
		conversations: conversations,
		messages:      messages,
		locker:        locker,
		fallback:      NewFallbackExecutor(cfg, gateway, uploader, messages),
		now:           time.Now,
		newTurnID:     id.NewString,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Stream relays the turn to the provider and emits its events in order.
// Exactly one terminal event is sent unless the client disconnects during
// streaming. out is always closed before Stream returns.
func (o *Orchestrator) Stream(ctx context.Context, turn *Turn, out Emitter) {
	defer func() {
		turn.setState(ctx, StateClosed)
		if err := out.Close(); err != nil {
			slog.WarnContext(ctx, "failed to close event stream", "error", err)
		}
	}()

	ctx = logger.WithLogFields(ctx, logger.LogFields{
		TurnID:                 &turn.ID,
		ConversationID:         &turn.ConversationID,
		UpstreamConversationID: &turn.UpstreamID,
		Component:              "chat.relay.orchestrator",
	})
	sc := logger.StartSpan(ctx, "relay.turn", trace.WithSpanKind(trace.SpanKindInternal))
	defer sc.End()
	ctx = sc.Context()

	start := o.now()
	turn.setState(ctx, StateStreaming)
	out.Send(StartEvent(start))

	norm := NewNormalizer(o.now)
	err := o.consume(ctx, turn, norm, out)

	switch {
	case err == nil:
		turn.setState(ctx, StateCompleting)
		pctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), persistTimeout)
		stored := persistAssistant(pctx, o.messages, turn, norm.Text())
		cancel()

		stats := norm.Stats()
		out.Send(CompleteEvent(o.now(), Completion{
			FinalContent:   norm.Text(),
			ConversationID: turn.UpstreamID,
			StoredInDB:     stored,
			Stats:          &stats,
		}))

		sc.SetAttributes(attribute.String("relay.outcome", "complete"))
		slog.InfoContext(ctx, "streaming completed",
			"chunks", stats.TotalChunks,
			"chars", stats.FinalLength,
			"stored_in_db", stored,
			"duration_ms", o.now().Sub(start).Milliseconds())

	case errors.Is(err, errClientGone):
		sc.SetAttributes(attribute.String("relay.outcome", "client_gone"))
		slog.InfoContext(ctx, "client disconnected, streaming stopped",
			"chunks", norm.Chunks())

	case errors.Is(err, errTimedOut):
		turn.setState(ctx, StateTimedOut)
		out.Send(TimeoutEvent(o.now(), o.cfg.Timeout))
		reason := fmt.Sprintf("Streaming timeout reached after %s", o.cfg.Timeout)
		o.runFallback(ctx, sc, turn, reason, out)

	default:
		sc.RecordError(err)
		o.runFallback(ctx, sc, turn, "Streaming error: "+err.Error(), out)
	}
}

func (o *Orchestrator) runFallback(ctx context.Context, sc *logger.SpanContext, turn *Turn, reason string, out Emitter) {
	res := o.fallback.Execute(ctx, turn, reason, out)
	if res.Err != nil {
		sc.RecordError(res.Err)
		sc.SetAttributes(attribute.String("relay.outcome", "error"))
		return
	}
	sc.SetAttributes(attribute.String("relay.outcome", "fallback"))
}

// consume reads the provider stream until it ends. The timeout budget starts
// when the stream is opened.
func (o *Orchestrator) consume(ctx context.Context, turn *Turn, norm *Normalizer, out Emitter) error {
	input, err := llm.BuildInput(ctx, o.uploader, turn.Message, turn.Attachment)
	if err != nil {
		return o.classify(ctx, ctx, err)
	}

	streamCtx, cancel := context.WithTimeout(ctx, o.cfg.Timeout)
	defer cancel()

	stream, err := o.gateway.CreateStreaming(streamCtx, o.cfg.request(turn.UpstreamID, input))
	if err != nil {
		return o.classify(ctx, streamCtx, err)
	}
	defer func() {
		if err := stream.Close(); err != nil {
			slog.DebugContext(ctx, "failed to close provider stream", "error", err)
		}
	}()

	events := 0
	for stream.Next() {
		events++
		ev, err := norm.Normalize(stream.Current())
		if errors.Is(err, ErrStreamDone) {
			break
		}
		if err != nil {
			return err
		}
		if ev == nil {
			continue
		}

		out.Send(*ev)
		if out.Closed() {
			return errClientGone
		}
	}
	if err := stream.Err(); err != nil {
		return o.classify(ctx, streamCtx, err)
	}
	if err := streamCtx.Err(); err != nil {
		return o.classify(ctx, streamCtx, err)
	}

	slog.DebugContext(ctx, "provider stream ended", "events", events, "chunks", norm.Chunks())

	if norm.Text() == "" {
		return errEmptyStream
	}
	return nil
}

// classify tells a departed client and an exhausted budget apart from
// provider failures.
func (o *Orchestrator) classify(parent, streamCtx context.Context, err error) error {
	if parent.Err() != nil {
		return errClientGone
	}
	if errors.Is(streamCtx.Err(), context.DeadlineExceeded) {
		return errTimedOut
	}
	return err
}
