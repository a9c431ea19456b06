package dto

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"basegraph.app/chat/internal/llm"
)

var (
	ErrAttachmentEncoding = errors.New("file data is not valid base64")
	ErrAttachmentTooLarge = errors.New("file is too large")
)

// ChatRequest is the body of both chat endpoints.
type ChatRequest struct {
	ConversationID       string      `json:"conversationId"`
	Message              string      `json:"message"`
	OpenAIConversationID string      `json:"openaiConversationId,omitempty"`
	File                 *FileUpload `json:"file,omitempty"`
}

// FileUpload is an attachment sent inline by the browser.
type FileUpload struct {
	Name string `json:"name"`
	Type string `json:"type"`
	// Data is base64, optionally as a data: URL.
	Data string `json:"data"`
	Size int    `json:"size"`
}

// Attachment decodes the upload. A nil upload yields a nil attachment.
func (f *FileUpload) Attachment(maxBytes int) (*llm.Attachment, error) {
	if f == nil || f.Data == "" {
		return nil, nil
	}
	if maxBytes > 0 && base64.StdEncoding.DecodedLen(len(f.Data)) > maxBytes+3 {
		return nil, fmt.Errorf("%w: limit is %d bytes", ErrAttachmentTooLarge, maxBytes)
	}

	raw := f.Data
	if i := strings.Index(raw, ";base64,"); strings.HasPrefix(raw, "data:") && i >= 0 {
		raw = raw[i+len(";base64,"):]
	}

	data, err := base64.StdEncoding.DecodeString(raw)
	if err != nil {
		return nil, ErrAttachmentEncoding
	}
	if maxBytes > 0 && len(data) > maxBytes {
		return nil, fmt.Errorf("%w: limit is %d bytes", ErrAttachmentTooLarge, maxBytes)
	}

	return &llm.Attachment{Name: f.Name, MimeType: f.Type, Data: data}, nil
}

type ChatResponse struct {
	Success        bool   `json:"success"`
	ConversationID string `json:"conversationId"`
	Message        string `json:"message"`
	ResponseID     string `json:"responseId"`
	StoredInDB     bool   `json:"storedInDb"`
}

type GenerateTitleRequest struct {
	ConversationID string `json:"conversationId" binding:"required"`
	Message        string `json:"message" binding:"required"`
}

type GenerateTitleResponse struct {
	Success bool   `json:"success"`
	Title   string `json:"title"`
}
