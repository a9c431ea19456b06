package dto

import (
	"time"

	"basegraph.app/chat/internal/model"
	"basegraph.app/chat/internal/service"
)

type CreateConversationRequest struct {
	Title string `json:"title" binding:"max=255"`
}

type UpdateConversationRequest struct {
	Title  *string `json:"title,omitempty" binding:"omitempty,max=255"`
	Pinned *bool   `json:"pinned,omitempty"`
}

type ConversationResponse struct {
	ID                   string            `json:"id"`
	Title                string            `json:"title"`
	Pinned               bool              `json:"pinned"`
	OpenAIConversationID *string           `json:"openai_conversation_id,omitempty"`
	CreatedAt            time.Time         `json:"created_at"`
	UpdatedAt            time.Time         `json:"updated_at"`
	MessageCount         *int              `json:"message_count,omitempty"`
	Preview              *string           `json:"preview,omitempty"`
	Messages             []MessageResponse `json:"messages,omitempty"`
}

func ToConversationResponse(c *model.Conversation) ConversationResponse {
	return ConversationResponse{
		ID:                   c.ID,
		Title:                c.Title,
		Pinned:               c.Pinned,
		OpenAIConversationID: c.UpstreamID,
		CreatedAt:            c.CreatedAt,
		UpdatedAt:            c.UpdatedAt,
	}
}

func ToConversationDetailResponse(d *service.ConversationDetail) ConversationResponse {
	resp := ToConversationResponse(&d.Conversation)
	resp.MessageCount = &d.MessageCount
	resp.Preview = &d.Preview
	resp.Messages = ToMessageResponses(d.Messages)
	return resp
}
