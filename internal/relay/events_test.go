package relay_test

import (
	"encoding/json"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"basegraph.app/chat/internal/relay"
)

var _ = Describe("Event wire shape", func() {
	at := time.UnixMilli(1_700_000_000_123)

	wire := func(ev relay.Event) map[string]any {
		data, err := json.Marshal(ev)
		Expect(err).NotTo(HaveOccurred())
		var m map[string]any
		Expect(json.Unmarshal(data, &m)).To(Succeed())
		return m
	}

	It("flattens content fields next to type and timestamp", func() {
		rate := 12.5
		m := wire(relay.ContentEvent(at, relay.Chunk{Data: "Ciao", ChunkID: 1, TotalChars: 4, CharsPerSecond: &rate}))

		Expect(m).To(Equal(map[string]any{
			"type":             "content",
			"timestamp":        float64(1_700_000_000_123),
			"data":             "Ciao",
			"chunk_id":         float64(1),
			"total_chars":      float64(4),
			"chars_per_second": 12.5,
		}))
	})

	It("keeps empty data on tool markers", func() {
		m := wire(relay.ContentEvent(at, relay.Chunk{ToolType: "function_call", ChunkID: 3}))
		Expect(m).To(HaveKeyWithValue("data", ""))
		Expect(m).To(HaveKeyWithValue("tool_type", "function_call"))
	})

	It("always carries the running character count", func() {
		m := wire(relay.ContentEvent(at, relay.Chunk{ToolType: "function_call", ChunkID: 1}))
		Expect(m).To(HaveKeyWithValue("total_chars", float64(0)))
	})

	It("encodes complete with stats", func() {
		m := wire(relay.CompleteEvent(at, relay.Completion{
			FinalContent:   "Ciao!",
			ConversationID: "conv_up",
			StoredInDB:     true,
			Stats:          &relay.Stats{TotalChunks: 3, FinalLength: 5, AverageChunkSize: 1.67, WordsCount: 1},
		}))

		Expect(m).To(HaveKeyWithValue("type", "complete"))
		Expect(m).To(HaveKeyWithValue("final_content", "Ciao!"))
		Expect(m).To(HaveKeyWithValue("conversation_id", "conv_up"))
		Expect(m).To(HaveKeyWithValue("stored_in_db", true))
		Expect(m).To(HaveKeyWithValue("fallback_used", false))
		Expect(m).To(HaveKeyWithValue("streaming_stats", HaveKeyWithValue("total_chunks", float64(3))))
		Expect(m).NotTo(HaveKey("data"))
	})

	It("encodes error with the original failure", func() {
		m := wire(relay.ErrorEvent(at, "Fallback handler failed: x", "Streaming error: y"))
		Expect(m).To(HaveKeyWithValue("error", "Fallback handler failed: x"))
		Expect(m).To(HaveKeyWithValue("original_error", "Streaming error: y"))
	})

	It("encodes timeout and fallback notices", func() {
		Expect(wire(relay.TimeoutEvent(at, 30*time.Second))).To(HaveKeyWithValue("timeout_seconds", float64(30)))
		Expect(wire(relay.FallbackEvent(at, "boom"))).To(HaveKeyWithValue("error_context", "boom"))
		Expect(wire(relay.StartEvent(at))).To(HaveKeyWithValue("type", "start"))
	})

	It("marks complete and error as terminal", func() {
		Expect(relay.CompleteEvent(at, relay.Completion{}).Terminal()).To(BeTrue())
		Expect(relay.ErrorEvent(at, "x", "").Terminal()).To(BeTrue())
		Expect(relay.StartEvent(at).Terminal()).To(BeFalse())
		Expect(relay.ContentEvent(at, relay.Chunk{}).Terminal()).To(BeFalse())
	})
})
