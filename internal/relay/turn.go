package relay

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"basegraph.app/chat/internal/llm"
	"basegraph.app/chat/internal/model"
)

// State is the lifecycle position of one turn.
type State string

const (
	StateValidating            State = "validating"
	StateResolvingConversation State = "resolving_conversation"
	StateStreaming             State = "streaming"
	StateCompleting            State = "completing"
	StateFallback              State = "fallback"
	StateTimedOut              State = "timed_out"
	StateErroring              State = "erroring"
	StateClosed                State = "closed"
)

// Config carries the provider settings and time budgets for turns.
type Config struct {
	Model           string
	PromptID        string
	Timeout         time.Duration // streaming budget, measured from stream open
	FallbackTimeout time.Duration
}

// TurnRequest is the inbound form of one user turn.
type TurnRequest struct {
	UserID         string
	ConversationID string
	// UpstreamHint is the client's idea of the provider handle. Only logged;
	// the stored handle is authoritative.
	UpstreamHint string
	Message      string
	Attachment   *llm.Attachment
}

// Turn is a validated request with its user message persisted and its
// upstream conversation handle resolved.
type Turn struct {
	ID             string
	UserID         string
	ConversationID string
	UpstreamID     string
	Message        string
	Attachment     *llm.Attachment
	UserMessage    *model.Message

	state           State
	fallbackEntered atomic.Bool
}

func (t *Turn) State() State {
	return t.state
}

func (t *Turn) setState(ctx context.Context, s State) {
	slog.DebugContext(ctx, "turn state changed", "from", t.state, "to", s)
	t.state = s
}

// Emitter receives the ordered events of one turn. Send never fails: once the
// consumer is gone the emitter drops events and Closed reports true.
type Emitter interface {
	Send(ev Event)
	Closed() bool
	Close() error
}

func (c Config) request(upstreamID string, input llm.Input) llm.Request {
	return llm.Request{
		Model:          c.Model,
		PromptID:       c.PromptID,
		Input:          input,
		ConversationID: upstreamID,
	}
}
