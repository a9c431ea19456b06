package handler_test

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"

	"github.com/gin-gonic/gin"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"basegraph.app/chat/internal/http/handler"
	"basegraph.app/chat/internal/model"
	"basegraph.app/chat/internal/service"
)

var _ = Describe("MessageHandler", func() {
	var (
		router *gin.Engine
		svc    *mockMessageService
	)

	do := func(method, path, body string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(method, path, bytes.NewBufferString(body))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		return w
	}

	BeforeEach(func() {
		gin.SetMode(gin.TestMode)
		svc = &mockMessageService{}
		h := handler.NewMessageHandler(svc)

		router = gin.New()
		g := router.Group("/messages", asUser("user-1"))
		g.GET("", h.List)
		g.POST("", h.Create)
		g.PUT("/:id", h.Update)
		g.DELETE("/:id", h.Delete)
	})

	It("requires a conversation id to list", func() {
		w := do(http.MethodGet, "/messages", "")
		Expect(w.Code).To(Equal(http.StatusBadRequest))
	})

	It("lists the transcript", func() {
		svc.listFn = func(_ context.Context, conversationID, _ string) ([]model.Message, error) {
			return []model.Message{{ID: "m1", ConversationID: conversationID, Role: model.RoleUser, Content: "ciao"}}, nil
		}

		w := do(http.MethodGet, "/messages?conversationId=conv-1", "")

		Expect(w.Code).To(Equal(http.StatusOK))
		Expect(w.Body.String()).To(ContainSubstring(`"content":"ciao"`))
	})

	DescribeTable("maps service errors",
		func(err error, status int) {
			svc.createFn = func(context.Context, string, string, model.Role, string) (*model.Message, error) {
				return nil, err
			}

			w := do(http.MethodPost, "/messages", `{"conversationId":"conv-1","role":"user","content":"x"}`)
			Expect(w.Code).To(Equal(status))
		},
		Entry("invalid role", service.ErrInvalidRole, http.StatusBadRequest),
		Entry("empty content", service.ErrContentRequired, http.StatusBadRequest),
		Entry("foreign conversation", service.ErrConversationNotFound, http.StatusNotFound),
	)

	It("updates owned messages", func() {
		w := do(http.MethodPut, "/messages/m1", `{"content":"nuovo"}`)

		Expect(w.Code).To(Equal(http.StatusOK))
		Expect(w.Body.String()).To(ContainSubstring(`"content":"nuovo"`))
	})

	It("returns 404 for messages of other users", func() {
		svc.deleteFn = func(context.Context, string, string) error {
			return service.ErrMessageNotFound
		}

		w := do(http.MethodDelete, "/messages/m1", "")
		Expect(w.Code).To(Equal(http.StatusNotFound))
	})
})
