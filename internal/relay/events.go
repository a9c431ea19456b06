package relay

import "time"

type EventType string

const (
	EventStart             EventType = "start"
	EventContent           EventType = "content"
	EventFallbackInitiated EventType = "fallback_initiated"
	EventTimeout           EventType = "timeout"
	EventError             EventType = "error"
	EventComplete          EventType = "complete"
)

// Event is one normalized streaming event. Exactly one payload is set and its
// fields are flattened next to type and timestamp on the wire.
type Event struct {
	Type      EventType `json:"type"`
	Timestamp int64     `json:"timestamp"` // Unix milliseconds
	Message   string    `json:"message,omitempty"`

	*Chunk
	*FallbackNotice
	*TimeoutNotice
	*Failure
	*Completion
}

func (e Event) Terminal() bool {
	return e.Type == EventComplete || e.Type == EventError
}

type Chunk struct {
	Data           string   `json:"data"`
	ChunkID        int      `json:"chunk_id,omitempty"`
	TotalChars     int      `json:"total_chars"`
	CharsPerSecond *float64 `json:"chars_per_second,omitempty"`
	Source         string   `json:"source,omitempty"`
	ToolType       string   `json:"tool_type,omitempty"`
	ChoiceIndex    *int     `json:"choice_index,omitempty"`
}

type FallbackNotice struct {
	ErrorContext string `json:"error_context"`
}

type TimeoutNotice struct {
	TimeoutSeconds int `json:"timeout_seconds"`
}

type Failure struct {
	Error         string `json:"error"`
	OriginalError string `json:"original_error,omitempty"`
}

type Completion struct {
	FinalContent   string `json:"final_content"`
	ConversationID string `json:"conversation_id"` // upstream handle
	StoredInDB     bool   `json:"stored_in_db"`
	FallbackUsed   bool   `json:"fallback_used"`
	Stats          *Stats `json:"streaming_stats,omitempty"`
}

type Stats struct {
	TotalChunks      int     `json:"total_chunks"`
	FinalLength      int     `json:"final_length"`
	AverageChunkSize float64 `json:"average_chunk_size"`
	WordsCount       int     `json:"words_count"`
}

// Chunk sources.
const (
	SourceTextDelta        = "responses_text_delta"
	SourceChatDelta        = "chat_completions_delta"
	SourceFallbackComplete = "fallback_complete"
)

func millis(t time.Time) int64 {
	return t.UnixMilli()
}

func StartEvent(at time.Time) Event {
	return Event{Type: EventStart, Timestamp: millis(at), Message: "Response starting..."}
}

func ContentEvent(at time.Time, chunk Chunk) Event {
	return Event{Type: EventContent, Timestamp: millis(at), Chunk: &chunk}
}

func FallbackEvent(at time.Time, reason string) Event {
	return Event{
		Type:           EventFallbackInitiated,
		Timestamp:      millis(at),
		Message:        "Streaming failed, using fallback response method",
		FallbackNotice: &FallbackNotice{ErrorContext: reason},
	}
}

func TimeoutEvent(at time.Time, limit time.Duration) Event {
	return Event{
		Type:          EventTimeout,
		Timestamp:     millis(at),
		Message:       "Streaming timeout reached, switching to fallback",
		TimeoutNotice: &TimeoutNotice{TimeoutSeconds: int(limit.Seconds())},
	}
}

func ErrorEvent(at time.Time, message, original string) Event {
	return Event{
		Type:      EventError,
		Timestamp: millis(at),
		Failure:   &Failure{Error: message, OriginalError: original},
	}
}

func CompleteEvent(at time.Time, c Completion) Event {
	return Event{Type: EventComplete, Timestamp: millis(at), Completion: &c}
}
