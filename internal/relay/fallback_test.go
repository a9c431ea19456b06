package relay_test

import (
	"context"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"basegraph.app/chat/internal/llm"
	"basegraph.app/chat/internal/model"
	"basegraph.app/chat/internal/relay"
)

var _ = Describe("FallbackExecutor", func() {
	var (
		ctx      context.Context
		msgs     *memMessageStore
		gw       *mockGateway
		executor *relay.FallbackExecutor
		turn     *relay.Turn
	)

	BeforeEach(func() {
		ctx = context.Background()
		cached := "conv_up"
		convs := newMemConversationStore(&model.Conversation{ID: "c1", UserID: "u1", UpstreamID: &cached})
		msgs = &memMessageStore{}
		gw = &mockGateway{}
		cfg := relay.Config{Model: "gpt-5-nano", PromptID: "pmpt_1", Timeout: time.Second, FallbackTimeout: time.Second}
		uploader := &mockUploader{}

		orch := relay.NewOrchestrator(cfg, gw, uploader, convs, msgs, &countingLocker{})
		var err error
		turn, err = orch.Prepare(ctx, relay.TurnRequest{UserID: "u1", ConversationID: "c1", Message: "Ciao"})
		Expect(err).NotTo(HaveOccurred())

		executor = relay.NewFallbackExecutor(cfg, gw, uploader, msgs)
	})

	It("runs at most once per turn", func() {
		out := &recordingEmitter{}

		first := executor.Execute(ctx, turn, "Streaming error: boom", out)
		second := executor.Execute(ctx, turn, "Streaming error: boom", out)

		Expect(first.Err).NotTo(HaveOccurred())
		Expect(first.Stored).To(BeTrue())
		Expect(second.Err).To(MatchError(relay.ErrFallbackEntered))

		Expect(gw.syncRequests).To(HaveLen(1))
		Expect(msgs.byRole(model.RoleAssistant)).To(HaveLen(1))
		Expect(out.types()).To(Equal([]relay.EventType{
			relay.EventFallbackInitiated, relay.EventContent, relay.EventComplete,
		}))
	})

	It("finishes and stores the answer after the client has gone", func() {
		cctx, cancel := context.WithCancel(ctx)
		cancel()
		gw.createSyncFn = func(sctx context.Context, _ llm.Request) (*llm.Completion, error) {
			Expect(sctx.Err()).NotTo(HaveOccurred())
			return &llm.Completion{Text: "Risposta"}, nil
		}
		out := &recordingEmitter{}

		res := executor.Execute(cctx, turn, "Streaming error: boom", out)

		Expect(res.Err).NotTo(HaveOccurred())
		Expect(res.Text).To(Equal("Risposta"))
		Expect(res.Stored).To(BeTrue())
		Expect(msgs.byRole(model.RoleAssistant)[0].Content).To(Equal("Risposta"))
	})

	It("bounds the sync call by the fallback timeout", func() {
		gw.createSyncFn = func(sctx context.Context, _ llm.Request) (*llm.Completion, error) {
			deadline, ok := sctx.Deadline()
			Expect(ok).To(BeTrue())
			Expect(time.Until(deadline)).To(BeNumerically("<=", time.Second))
			return &llm.Completion{Text: "ok"}, nil
		}

		res := executor.Execute(ctx, turn, "reason", &recordingEmitter{})
		Expect(res.Err).NotTo(HaveOccurred())
	})

	It("carries the reason on fallback_initiated", func() {
		out := &recordingEmitter{}

		executor.Execute(ctx, turn, "Streaming timeout reached after 30s", out)

		Expect(out.events[0].ErrorContext).To(Equal("Streaming timeout reached after 30s"))
		Expect(out.events[0].Message).NotTo(BeEmpty())
		Expect(out.events[1].Source).To(Equal(relay.SourceFallbackComplete))
		Expect(out.events[1].Data).To(Equal("sync answer"))
		Expect(out.last().ConversationID).To(Equal("conv_up"))
	})
})
