package llm

import (
	"context"
	"time"
)

// Transcriber turns recorded audio into text.
type Transcriber interface {
	Transcribe(ctx context.Context, req TranscriptionRequest) (string, error)
}

type TranscriptionRequest struct {
	Name     string
	MimeType string
	Data     []byte
	Model    string
	Language string // ISO-639-1; empty lets the provider detect it
}

// RealtimeSessions mints short-lived client secrets so the browser can open
// a realtime voice session without holding the API key.
type RealtimeSessions interface {
	CreateRealtimeSession(ctx context.Context, req RealtimeSessionRequest) (*RealtimeSession, error)
}

type RealtimeSessionRequest struct {
	Model        string
	Voice        string
	Instructions string
	TTL          time.Duration
}

type RealtimeSession struct {
	ClientSecret string
	SessionID    string
	ExpiresAt    int64 // unix seconds
}
