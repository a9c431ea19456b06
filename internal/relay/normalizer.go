package relay

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"
	"unicode/utf8"
)

var (
	// ErrStreamDone is returned by Normalize when the provider signals the end
	// of its output. Like io.EOF it is not a failure.
	ErrStreamDone = errors.New("stream done")

	ErrMalformedEvent = errors.New("malformed provider event")
)

// ProviderError is a failure reported inside the provider's event stream.
type ProviderError struct {
	Message string
}

func (e *ProviderError) Error() string {
	return "provider error: " + e.Message
}

// Normalizer turns raw provider events into content events for one turn.
// It keeps the accumulated text and chunk counter, so it must never be shared
// across turns.
type Normalizer struct {
	now       func() time.Time
	text      string
	chars     int
	chunks    int
	lastChunk time.Time
}

func NewNormalizer(now func() time.Time) *Normalizer {
	if now == nil {
		now = time.Now
	}
	return &Normalizer{now: now, lastChunk: now()}
}

type rawEvent map[string]any

// recognizer inspects one event. matched=false passes the event to the next
// recognizer; matched=true with a nil event drops it.
type recognizer func(n *Normalizer, ev rawEvent, at time.Time) (event *Event, matched bool, err error)

// Ordered by priority.
var recognizers = []recognizer{
	recognizeSnapshot,
	recognizeTextDelta,
	recognizeDeltaObject,
	recognizeChoices,
	recognizeError,
	recognizeDone,
	recognizeToolMarker,
}

// Normalize returns at most one content event for a raw provider event.
// Unrecognized events yield (nil, nil). Provider failures come back as
// *ProviderError and the end of output as ErrStreamDone.
func (n *Normalizer) Normalize(raw json.RawMessage) (*Event, error) {
	var ev rawEvent
	if err := json.Unmarshal(raw, &ev); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedEvent, err)
	}

	at := n.now()
	for _, recognize := range recognizers {
		event, matched, err := recognize(n, ev, at)
		if matched {
			return event, err
		}
	}
	return nil, nil
}

// Text returns everything accumulated so far.
func (n *Normalizer) Text() string {
	return n.text
}

func (n *Normalizer) Chunks() int {
	return n.chunks
}

func (n *Normalizer) Stats() Stats {
	stats := Stats{
		TotalChunks: n.chunks,
		FinalLength: n.chars,
		WordsCount:  len(strings.Fields(n.text)),
	}
	if n.chunks > 0 {
		stats.AverageChunkSize = round2(float64(n.chars) / float64(n.chunks))
	}
	return stats
}

func (n *Normalizer) accept(at time.Time, chunk Chunk) *Event {
	n.chunks++
	n.lastChunk = at
	chunk.ChunkID = n.chunks
	chunk.TotalChars = n.chars
	ev := ContentEvent(at, chunk)
	return &ev
}

func (n *Normalizer) appendDelta(at time.Time, delta string, chunk Chunk) *Event {
	if delta == "" {
		return nil
	}
	n.text += delta
	n.chars += utf8.RuneCountInString(delta)
	chunk.Data = delta
	return n.accept(at, chunk)
}

// (a) cumulative snapshot: emit only the suffix not seen yet.
func recognizeSnapshot(n *Normalizer, ev rawEvent, at time.Time) (*Event, bool, error) {
	snapshot, ok := ev["output_text"].(string)
	if !ok {
		return nil, false, nil
	}

	total := utf8.RuneCountInString(snapshot)
	if total <= n.chars {
		return nil, true, nil
	}

	delta := string([]rune(snapshot)[n.chars:])
	appended := total - n.chars

	var rate float64
	if elapsed := at.Sub(n.lastChunk).Seconds(); elapsed > 0 {
		rate = round2(float64(appended) / elapsed)
	}

	n.text = snapshot
	n.chars = total
	return n.accept(at, Chunk{Data: delta, CharsPerSecond: &rate}), true, nil
}

// (b) incremental string delta, e.g. response.output_text.delta.
func recognizeTextDelta(n *Normalizer, ev rawEvent, at time.Time) (*Event, bool, error) {
	delta, ok := ev["delta"].(string)
	if !ok {
		return nil, false, nil
	}
	// Argument and reasoning deltas are not answer text.
	if typ, _ := ev["type"].(string); strings.Contains(typ, "function_call_arguments") || strings.Contains(typ, "reasoning") {
		return nil, false, nil
	}
	return n.appendDelta(at, delta, Chunk{Source: SourceTextDelta}), true, nil
}

// (c) nested delta object carrying content or text.
func recognizeDeltaObject(n *Normalizer, ev rawEvent, at time.Time) (*Event, bool, error) {
	delta, ok := ev["delta"].(map[string]any)
	if !ok {
		return nil, false, nil
	}
	_, hasContent := delta["content"]
	_, hasText := delta["text"]
	if !hasContent && !hasText {
		return nil, false, nil
	}

	text, _ := delta["content"].(string)
	if text == "" {
		text, _ = delta["text"].(string)
	}
	return n.appendDelta(at, text, Chunk{Source: SourceChatDelta}), true, nil
}

// (d) legacy choices array; the first choice with content wins.
func recognizeChoices(n *Normalizer, ev rawEvent, at time.Time) (*Event, bool, error) {
	choices, ok := ev["choices"].([]any)
	if !ok {
		return nil, false, nil
	}

	for _, c := range choices {
		choice, ok := c.(map[string]any)
		if !ok {
			continue
		}
		delta, _ := choice["delta"].(map[string]any)
		content, _ := delta["content"].(string)
		if content == "" {
			continue
		}

		index := 0
		if f, ok := choice["index"].(float64); ok {
			index = int(f)
		}
		return n.appendDelta(at, content, Chunk{ChoiceIndex: &index}), true, nil
	}
	return nil, false, nil
}

// (e) explicit error field or error-typed event.
func recognizeError(_ *Normalizer, ev rawEvent, _ time.Time) (*Event, bool, error) {
	typ, _ := ev["type"].(string)

	if raw, ok := ev["error"]; ok && raw != nil {
		return nil, true, &ProviderError{Message: errorMessage(raw)}
	}

	switch typ {
	case "error":
		msg, _ := ev["message"].(string)
		if msg == "" {
			msg = "Unknown streaming error"
		}
		return nil, true, &ProviderError{Message: msg}

	case "response.failed":
		msg := "Unknown streaming error"
		if resp, ok := ev["response"].(map[string]any); ok && resp["error"] != nil {
			msg = errorMessage(resp["error"])
		}
		return nil, true, &ProviderError{Message: msg}
	}
	return nil, false, nil
}

// (f) terminal event.
func recognizeDone(_ *Normalizer, ev rawEvent, _ time.Time) (*Event, bool, error) {
	switch typ, _ := ev["type"].(string); typ {
	case "done", "response.completed":
		return nil, true, ErrStreamDone
	}
	return nil, false, nil
}

// (g) tool invocations surface as empty chunks so callers can see them.
func recognizeToolMarker(n *Normalizer, ev rawEvent, at time.Time) (*Event, bool, error) {
	typ, _ := ev["type"].(string)
	if typ == "function_call" || typ == "tool_call" || strings.HasSuffix(typ, ".function_call_arguments.done") {
		return n.accept(at, Chunk{ToolType: typ}), true, nil
	}
	return nil, false, nil
}

func errorMessage(v any) string {
	switch e := v.(type) {
	case string:
		if e != "" {
			return e
		}
	case map[string]any:
		if msg, ok := e["message"].(string); ok && msg != "" {
			return msg
		}
		if code, ok := e["code"].(string); ok && code != "" {
			return code
		}
	}
	return "Unknown streaming error"
}

func round2(f float64) float64 {
	return math.Round(f*100) / 100
}
