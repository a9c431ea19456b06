package sse_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"basegraph.app/chat/internal/http/sse"
	"basegraph.app/chat/internal/relay"
)

// brokenWriter fails every body write after the headers.
type brokenWriter struct {
	header http.Header
	writes int
}

func (b *brokenWriter) Header() http.Header {
	if b.header == nil {
		b.header = http.Header{}
	}
	return b.header
}

func (b *brokenWriter) Write([]byte) (int, error) {
	b.writes++
	return 0, errors.New("broken pipe")
}

func (b *brokenWriter) WriteHeader(int) {}

var _ = Describe("Writer", func() {
	var at time.Time

	BeforeEach(func() {
		at = time.UnixMilli(1700000000000)
	})

	It("commits stream headers", func() {
		rec := httptest.NewRecorder()
		sse.NewWriter(context.Background(), rec)

		Expect(rec.Code).To(Equal(http.StatusOK))
		Expect(rec.Header().Get("Content-Type")).To(Equal("text/event-stream; charset=utf-8"))
		Expect(rec.Header().Get("Cache-Control")).To(Equal("no-cache, no-transform"))
		Expect(rec.Header().Get("X-Accel-Buffering")).To(Equal("no"))
		Expect(rec.Flushed).To(BeTrue())
	})

	It("writes one data frame per event", func() {
		rec := httptest.NewRecorder()
		w := sse.NewWriter(context.Background(), rec)

		w.Send(relay.StartEvent(at))
		w.Send(relay.ErrorEvent(at, "Fallback handler failed: boom", "Streaming error: x"))

		frames := strings.Split(strings.TrimSuffix(rec.Body.String(), "\n\n"), "\n\n")
		Expect(frames).To(HaveLen(2))
		Expect(frames[0]).To(HavePrefix("data: "))
		Expect(strings.TrimPrefix(frames[0], "data: ")).To(MatchJSON(
			`{"type":"start","timestamp":1700000000000,"message":"Response starting..."}`))
		Expect(frames[1]).To(ContainSubstring(`"type":"error"`))
		Expect(w.Sent()).To(Equal(2))
	})

	It("marks itself closed on a failed write and drops the rest", func() {
		bw := &brokenWriter{}
		w := sse.NewWriter(context.Background(), bw)

		w.Send(relay.StartEvent(at))
		Expect(w.Closed()).To(BeTrue())

		w.Send(relay.StartEvent(at))
		Expect(bw.writes).To(Equal(1))
		Expect(w.Sent()).To(BeZero())
	})

	It("reports closed once the request context ends", func() {
		ctx, cancel := context.WithCancel(context.Background())
		w := sse.NewWriter(ctx, httptest.NewRecorder())
		Expect(w.Closed()).To(BeFalse())

		cancel()
		Expect(w.Closed()).To(BeTrue())
	})

	It("closes only once", func() {
		rec := httptest.NewRecorder()
		w := sse.NewWriter(context.Background(), rec)

		Expect(w.Close()).To(Succeed())
		Expect(w.Close()).To(Succeed())
		Expect(w.Closed()).To(BeTrue())

		w.Send(relay.StartEvent(at))
		Expect(rec.Body.String()).To(BeEmpty())
	})
})
