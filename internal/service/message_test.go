package service_test

import (
	"context"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"basegraph.app/chat/internal/model"
	"basegraph.app/chat/internal/service"
	"basegraph.app/chat/internal/store"
)

var _ = Describe("MessageService", func() {
	var (
		ctx      context.Context
		convs    *mockConversationStore
		messages *mockMessageStore
		svc      service.MessageService
	)

	BeforeEach(func() {
		ctx = context.Background()
		convs = &mockConversationStore{}
		messages = &mockMessageStore{}
		svc = service.NewMessageService(convs, messages)
	})

	Describe("Create", func() {
		It("stores the message under the conversation", func() {
			var stored *model.Message
			messages.createFn = func(_ context.Context, msg *model.Message) error {
				stored = msg
				msg.ID = "msg-7"
				return nil
			}

			msg, err := svc.Create(ctx, "user-1", "conv-1", model.RoleAssistant, "risposta")
			Expect(err).NotTo(HaveOccurred())
			Expect(msg.ID).To(Equal("msg-7"))
			Expect(stored.ConversationID).To(Equal("conv-1"))
			Expect(stored.Role).To(Equal(model.RoleAssistant))
		})

		DescribeTable("rejects bad input before touching the store",
			func(role model.Role, content string, expected error) {
				messages.createFn = func(context.Context, *model.Message) error {
					Fail("store should not be called")
					return nil
				}

				_, err := svc.Create(ctx, "user-1", "conv-1", role, content)
				Expect(err).To(MatchError(expected))
			},
			Entry("system role", model.Role("system"), "hi", service.ErrInvalidRole),
			Entry("empty role", model.Role(""), "hi", service.ErrInvalidRole),
			Entry("blank content", model.RoleUser, "  \n", service.ErrContentRequired),
		)

		It("refuses conversations the user does not own", func() {
			convs.getByIDFn = func(context.Context, string, string) (*model.Conversation, error) {
				return nil, store.ErrNotFound
			}

			_, err := svc.Create(ctx, "user-2", "conv-1", model.RoleUser, "hi")
			Expect(err).To(MatchError(service.ErrConversationNotFound))
		})
	})

	Describe("Update", func() {
		It("checks ownership through the message", func() {
			messages.getForUserFn = func(_ context.Context, id, userID string) (*model.Message, error) {
				Expect(userID).To(Equal("user-2"))
				return nil, store.ErrNotFound
			}

			_, err := svc.Update(ctx, "msg-1", "user-2", "nuovo")
			Expect(err).To(MatchError(service.ErrMessageNotFound))
		})

		It("updates the content", func() {
			msg, err := svc.Update(ctx, "msg-1", "user-1", "nuovo")
			Expect(err).NotTo(HaveOccurred())
			Expect(msg.Content).To(Equal("nuovo"))
		})
	})

	Describe("Delete", func() {
		It("deletes owned messages", func() {
			deleted := ""
			messages.deleteFn = func(_ context.Context, id string) error {
				deleted = id
				return nil
			}

			Expect(svc.Delete(ctx, "msg-3", "user-1")).To(Succeed())
			Expect(deleted).To(Equal("msg-3"))
		})
	})
})
