// Package sse writes relay events to a browser as a text/event-stream.
package sse

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"

	"basegraph.app/chat/internal/relay"
)

// Writer frames each event as `data: <json>\n\n` and flushes it immediately.
// A failed write marks the writer closed and later events are dropped.
type Writer struct {
	ctx context.Context
	w   http.ResponseWriter
	rc  *http.ResponseController

	mu     sync.Mutex
	closed atomic.Bool
	once   sync.Once
	sent   int
}

var _ relay.Emitter = (*Writer)(nil)

// NewWriter commits the stream headers and a 200 status.
func NewWriter(ctx context.Context, w http.ResponseWriter) *Writer {
	SetHeaders(w)
	w.WriteHeader(http.StatusOK)

	sw := &Writer{ctx: ctx, w: w, rc: http.NewResponseController(w)}
	if err := sw.rc.Flush(); err != nil {
		slog.DebugContext(ctx, "initial flush failed", "error", err)
	}
	return sw
}

// SetHeaders disables caching and proxy buffering for a streamed response.
func SetHeaders(w http.ResponseWriter) {
	headers := w.Header()
	headers.Set("Content-Type", "text/event-stream; charset=utf-8")
	headers.Set("Cache-Control", "no-cache, no-transform")
	headers.Set("Connection", "keep-alive")
	headers.Set("X-Accel-Buffering", "no")
}

func (s *Writer) Send(ev relay.Event) {
	if s.Closed() {
		return
	}

	payload, err := json.Marshal(ev)
	if err != nil {
		slog.ErrorContext(s.ctx, "failed to encode event", "type", ev.Type, "error", err)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := fmt.Fprintf(s.w, "data: %s\n\n", payload); err != nil {
		s.drop(ev, err)
		return
	}
	if err := s.rc.Flush(); err != nil {
		s.drop(ev, err)
		return
	}
	s.sent++
}

func (s *Writer) drop(ev relay.Event, err error) {
	if s.closed.CompareAndSwap(false, true) {
		slog.DebugContext(s.ctx, "client went away, dropping further events",
			"type", ev.Type,
			"sent", s.sent,
			"error", err)
	}
}

// Closed reports whether the client is gone or the stream was closed.
func (s *Writer) Closed() bool {
	return s.closed.Load() || s.ctx.Err() != nil
}

// Close ends the stream. Only the first call has any effect.
func (s *Writer) Close() error {
	var err error
	s.once.Do(func() {
		s.mu.Lock()
		defer s.mu.Unlock()

		wasOpen := s.closed.CompareAndSwap(false, true)
		if wasOpen && s.ctx.Err() == nil {
			err = s.rc.Flush()
		}
		slog.DebugContext(s.ctx, "event stream closed", "sent", s.sent)
	})
	return err
}

// Sent returns the number of events delivered to the client.
func (s *Writer) Sent() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sent
}
