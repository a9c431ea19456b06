package llm

import (
	"context"
	"encoding/json"
)

// Gateway forwards turns to the completion provider. It holds no turn state.
type Gateway interface {
	// CreateConversation opens a provider-side conversation and returns its handle.
	CreateConversation(ctx context.Context) (string, error)
	// CreateStreaming opens a streaming completion. Events are not buffered;
	// transport and provider failures end the stream with Err set.
	CreateStreaming(ctx context.Context, req Request) (EventStream, error)
	// CreateSync runs one complete, non-streaming completion.
	CreateSync(ctx context.Context, req Request) (*Completion, error)
}

// EventStream is a pull iterator over raw provider events.
type EventStream interface {
	Next() bool
	Current() json.RawMessage
	Err() error
	Close() error
}

type Request struct {
	Model          string
	PromptID       string // stored prompt held by the provider
	Input          Input
	ConversationID string // upstream conversation handle
}

// Input is the user side of a turn after attachment processing.
// At most one of ImageURL and FileID is set.
type Input struct {
	Text     string
	ImageURL string // data: URL with inline base64 payload
	FileID   string // provider file store id
}

func (i Input) HasAttachment() bool {
	return i.ImageURL != "" || i.FileID != ""
}

type Completion struct {
	ID   string
	Text string
}
