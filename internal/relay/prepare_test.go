package relay_test

import (
	"context"
	"errors"
	"net/http"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"basegraph.app/chat/internal/llm"
	"basegraph.app/chat/internal/model"
	"basegraph.app/chat/internal/relay"
)

var _ = Describe("Orchestrator.Prepare", func() {
	var (
		ctx    context.Context
		conv   *model.Conversation
		convs  *memConversationStore
		msgs   *memMessageStore
		gw     *mockGateway
		locker *countingLocker
		orch   *relay.Orchestrator
	)

	BeforeEach(func() {
		ctx = context.Background()
		conv = &model.Conversation{ID: "c1", UserID: "u1", Title: model.DefaultConversationTitle}
		convs = newMemConversationStore(conv)
		msgs = &memMessageStore{}
		gw = &mockGateway{}
		locker = &countingLocker{}
		orch = relay.NewOrchestrator(
			relay.Config{Model: "gpt-5-nano", PromptID: "pmpt_1", Timeout: time.Second, FallbackTimeout: time.Second},
			gw, &mockUploader{}, convs, msgs, locker,
			relay.WithTurnIDs(func() string { return "turn-1" }),
		)
	})

	expectValidation := func(err error, status int, msg string) {
		Expect(err).To(MatchError(relay.ErrInvalidTurn))
		var verr *relay.ValidationError
		Expect(errors.As(err, &verr)).To(BeTrue())
		Expect(verr.Status).To(Equal(status))
		Expect(verr.Message).To(ContainSubstring(msg))
	}

	Describe("validation", func() {
		DescribeTable("rejects bad requests before touching storage or the provider",
			func(req relay.TurnRequest, status int, msg string) {
				turn, err := orch.Prepare(ctx, req)
				Expect(turn).To(BeNil())
				expectValidation(err, status, msg)

				Expect(msgs.messages).To(BeEmpty())
				Expect(gw.conversationCalls).To(BeZero())
			},
			Entry("empty message",
				relay.TurnRequest{UserID: "u1", ConversationID: "c1"},
				http.StatusBadRequest, "Message is required"),
			Entry("whitespace message",
				relay.TurnRequest{UserID: "u1", ConversationID: "c1", Message: "  \n "},
				http.StatusBadRequest, "Message is required"),
			Entry("missing conversation",
				relay.TurnRequest{UserID: "u1", Message: "Ciao"},
				http.StatusBadRequest, "Conversation ID is required"),
			Entry("unsupported attachment",
				relay.TurnRequest{UserID: "u1", ConversationID: "c1", Message: "Ciao",
					Attachment: &llm.Attachment{Name: "a.webm", MimeType: "audio/webm"}},
				http.StatusBadRequest, "Unsupported file type"),
			Entry("unknown conversation",
				relay.TurnRequest{UserID: "u1", ConversationID: "nope", Message: "Ciao"},
				http.StatusNotFound, "Conversation not found"),
			Entry("conversation of another user",
				relay.TurnRequest{UserID: "u2", ConversationID: "c1", Message: "Ciao"},
				http.StatusNotFound, "Conversation not found"),
		)

		It("propagates storage failures as internal errors", func() {
			convs.getErr = errors.New("connection refused")

			_, err := orch.Prepare(ctx, relay.TurnRequest{UserID: "u1", ConversationID: "c1", Message: "Ciao"})
			Expect(err).To(HaveOccurred())
			Expect(err).NotTo(MatchError(relay.ErrInvalidTurn))
			Expect(err.Error()).To(ContainSubstring("connection refused"))
		})
	})

	Describe("user message", func() {
		It("is stored before the upstream handle is created", func() {
			gw.createConversationFn = func(context.Context) (string, error) {
				Expect(msgs.byRole(model.RoleUser)).To(HaveLen(1))
				return "conv_up", nil
			}

			turn, err := orch.Prepare(ctx, relay.TurnRequest{UserID: "u1", ConversationID: "c1", Message: "Ciao"})
			Expect(err).NotTo(HaveOccurred())
			Expect(turn.ID).To(Equal("turn-1"))
			Expect(turn.UserMessage).NotTo(BeNil())
			Expect(turn.UserMessage.Content).To(Equal("Ciao"))
			Expect(turn.UserMessage.Role).To(Equal(model.RoleUser))
			Expect(turn.State()).To(Equal(relay.StateResolvingConversation))
		})

		It("survives a failing conversation create", func() {
			gw.createConversationFn = func(context.Context) (string, error) {
				return "", errors.New("provider down")
			}

			_, err := orch.Prepare(ctx, relay.TurnRequest{UserID: "u1", ConversationID: "c1", Message: "Ciao"})
			Expect(err).To(MatchError(ContainSubstring("provider down")))
			Expect(msgs.byRole(model.RoleUser)).To(HaveLen(1))
		})
	})

	Describe("upstream conversation handle", func() {
		It("creates the handle once and stores it", func() {
			turn, err := orch.Prepare(ctx, relay.TurnRequest{UserID: "u1", ConversationID: "c1", Message: "Ciao"})
			Expect(err).NotTo(HaveOccurred())
			Expect(turn.UpstreamID).To(Equal("conv_up_1"))
			Expect(*conv.UpstreamID).To(Equal("conv_up_1"))
			Expect(locker.calls).To(Equal(1))

			again, err := orch.Prepare(ctx, relay.TurnRequest{UserID: "u1", ConversationID: "c1", Message: "Ancora"})
			Expect(err).NotTo(HaveOccurred())
			Expect(again.UpstreamID).To(Equal("conv_up_1"))
			Expect(gw.conversationCalls).To(Equal(1))
			Expect(locker.calls).To(Equal(1))
		})

		It("reuses a cached handle without creating one", func() {
			cached := "conv_cached"
			conv.UpstreamID = &cached

			turn, err := orch.Prepare(ctx, relay.TurnRequest{UserID: "u1", ConversationID: "c1", Message: "Ciao"})
			Expect(err).NotTo(HaveOccurred())
			Expect(turn.UpstreamID).To(Equal("conv_cached"))
			Expect(gw.conversationCalls).To(BeZero())
			Expect(locker.calls).To(BeZero())
		})

		It("ignores a client-supplied handle that disagrees with the stored one", func() {
			cached := "conv_cached"
			conv.UpstreamID = &cached

			turn, err := orch.Prepare(ctx, relay.TurnRequest{
				UserID: "u1", ConversationID: "c1", Message: "Ciao", UpstreamHint: "conv_forged",
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(turn.UpstreamID).To(Equal("conv_cached"))
		})

		It("does not seed the cache from a client-supplied handle", func() {
			turn, err := orch.Prepare(ctx, relay.TurnRequest{
				UserID: "u1", ConversationID: "c1", Message: "Ciao", UpstreamHint: "conv_forged",
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(turn.UpstreamID).To(Equal("conv_up_1"))
		})

		It("adopts the handle stored by a concurrent turn", func() {
			convs.setUpstreamFn = func(context.Context, string, string, string) (string, error) {
				return "conv_winner", nil
			}

			turn, err := orch.Prepare(ctx, relay.TurnRequest{UserID: "u1", ConversationID: "c1", Message: "Ciao"})
			Expect(err).NotTo(HaveOccurred())
			Expect(turn.UpstreamID).To(Equal("conv_winner"))
		})

		It("fails when the lock cannot be taken", func() {
			locker.err = errors.New("redis unavailable")

			_, err := orch.Prepare(ctx, relay.TurnRequest{UserID: "u1", ConversationID: "c1", Message: "Ciao"})
			Expect(err).To(MatchError(ContainSubstring("redis unavailable")))
			Expect(gw.conversationCalls).To(BeZero())
		})
	})
})
