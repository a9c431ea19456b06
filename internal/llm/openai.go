package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/packages/ssestream"
	"github.com/openai/openai-go/responses"
	"github.com/openai/openai-go/shared"
)

type OpenAIConfig struct {
	APIKey  string
	BaseURL string
}

// OpenAIGateway talks to the Responses API. It also implements Uploader
// against the Files API.
type OpenAIGateway struct {
	client openai.Client
}

func NewOpenAIGateway(cfg OpenAIConfig) *OpenAIGateway {
	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}

	return &OpenAIGateway{client: openai.NewClient(opts...)}
}

func (g *OpenAIGateway) CreateConversation(ctx context.Context) (string, error) {
	var out struct {
		ID string `json:"id"`
	}
	if err := g.client.Post(ctx, "conversations", map[string]any{}, &out); err != nil {
		return "", fmt.Errorf("create conversation: %w", err)
	}
	if out.ID == "" {
		return "", errors.New("create conversation: empty id")
	}

	slog.DebugContext(ctx, "upstream conversation created", "upstream_conversation_id", out.ID)
	return out.ID, nil
}

func (g *OpenAIGateway) CreateStreaming(ctx context.Context, req Request) (EventStream, error) {
	params, opts := g.params(req)
	stream := g.client.Responses.NewStreaming(ctx, params, opts...)
	if err := stream.Err(); err != nil {
		_ = stream.Close()
		return nil, fmt.Errorf("open response stream: %w", err)
	}
	return &responseStream{stream: stream}, nil
}

func (g *OpenAIGateway) CreateSync(ctx context.Context, req Request) (*Completion, error) {
	params, opts := g.params(req)

	start := time.Now()
	resp, err := g.client.Responses.New(ctx, params, opts...)
	if err != nil {
		return nil, fmt.Errorf("create response: %w", err)
	}
	if resp == nil {
		return nil, errors.New("nil response from provider")
	}
	if resp.Error.Message != "" {
		return nil, fmt.Errorf("provider response error: %s (code=%s)", resp.Error.Message, resp.Error.Code)
	}

	slog.DebugContext(ctx, "sync completion finished",
		"model", req.Model,
		"duration_ms", time.Since(start).Milliseconds(),
		"input_tokens", resp.Usage.InputTokens,
		"output_tokens", resp.Usage.OutputTokens)

	return &Completion{ID: resp.ID, Text: outputText(resp)}, nil
}

func (g *OpenAIGateway) UploadFile(ctx context.Context, name, mimeType string, data []byte) (string, error) {
	file, err := g.client.Files.New(ctx, openai.FileNewParams{
		File:    openai.File(bytes.NewReader(data), name, mimeType),
		Purpose: openai.FilePurposeAssistants,
	})
	if err != nil {
		return "", err
	}

	slog.DebugContext(ctx, "file uploaded", "file_id", file.ID, "name", name, "bytes", len(data))
	return file.ID, nil
}

func (g *OpenAIGateway) Transcribe(ctx context.Context, req TranscriptionRequest) (string, error) {
	params := openai.AudioTranscriptionNewParams{
		File:  openai.File(bytes.NewReader(req.Data), req.Name, req.MimeType),
		Model: openai.AudioModel(req.Model),
	}
	if req.Language != "" {
		params.Language = openai.String(req.Language)
	}

	start := time.Now()
	res, err := g.client.Audio.Transcriptions.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("transcribe audio: %w", err)
	}

	slog.DebugContext(ctx, "audio transcribed",
		"model", req.Model,
		"bytes", len(req.Data),
		"duration_ms", time.Since(start).Milliseconds(),
		"text_length", len(res.Text))
	return res.Text, nil
}

// CreateRealtimeSession has no typed SDK params, so the body goes out raw.
// Both the flat and the nested client_secret response shapes are accepted.
func (g *OpenAIGateway) CreateRealtimeSession(ctx context.Context, req RealtimeSessionRequest) (*RealtimeSession, error) {
	body := map[string]any{
		"expires_after": map[string]any{
			"anchor":  "created_at",
			"seconds": int(req.TTL.Seconds()),
		},
		"session": map[string]any{
			"type":         "realtime",
			"model":        req.Model,
			"instructions": req.Instructions,
			"audio": map[string]any{
				"output": map[string]any{"voice": req.Voice},
			},
		},
	}

	var out struct {
		ID           string `json:"id"`
		Value        string `json:"value"`
		ExpiresAt    int64  `json:"expires_at"`
		ClientSecret struct {
			Value     string `json:"value"`
			ExpiresAt int64  `json:"expires_at"`
		} `json:"client_secret"`
		Session struct {
			ID string `json:"id"`
		} `json:"session"`
	}
	if err := g.client.Post(ctx, "realtime/client_secrets", body, &out); err != nil {
		return nil, fmt.Errorf("create realtime session: %w", err)
	}

	session := &RealtimeSession{
		ClientSecret: firstNonEmpty(out.Value, out.ClientSecret.Value),
		SessionID:    firstNonEmpty(out.Session.ID, out.ID),
		ExpiresAt:    out.ExpiresAt,
	}
	if session.ExpiresAt == 0 {
		session.ExpiresAt = out.ClientSecret.ExpiresAt
	}
	if session.ClientSecret == "" {
		return nil, errors.New("create realtime session: empty client secret")
	}

	slog.DebugContext(ctx, "realtime session created", "session_id", session.SessionID, "expires_at", session.ExpiresAt)
	return session, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

// params builds the shared request shape. The stored prompt and conversation
// handle are sent as raw fields so they do not depend on typed SDK params.
func (g *OpenAIGateway) params(req Request) (responses.ResponseNewParams, []option.RequestOption) {
	params := responses.ResponseNewParams{
		Model: shared.ResponsesModel(req.Model),
		Input: inputParam(req.Input),
	}

	var opts []option.RequestOption
	if req.PromptID != "" {
		opts = append(opts, option.WithJSONSet("prompt", map[string]any{"id": req.PromptID}))
	}
	if req.ConversationID != "" {
		opts = append(opts, option.WithJSONSet("conversation", req.ConversationID))
	}
	return params, opts
}

func inputParam(in Input) responses.ResponseNewParamsInputUnion {
	if !in.HasAttachment() {
		return responses.ResponseNewParamsInputUnion{OfString: openai.String(in.Text)}
	}

	content := make(responses.ResponseInputMessageContentListParam, 0, 2)
	if in.ImageURL != "" {
		content = append(content, responses.ResponseInputContentUnionParam{
			OfInputImage: &responses.ResponseInputImageParam{
				ImageURL: openai.String(in.ImageURL),
				Detail:   responses.ResponseInputImageDetailAuto,
			},
		})
	}
	if in.FileID != "" {
		content = append(content, responses.ResponseInputContentUnionParam{
			OfInputFile: &responses.ResponseInputFileParam{
				FileID: openai.String(in.FileID),
			},
		})
	}
	content = append(content, responses.ResponseInputContentUnionParam{
		OfInputText: &responses.ResponseInputTextParam{Text: in.Text},
	})

	return responses.ResponseNewParamsInputUnion{
		OfInputItemList: responses.ResponseInputParam{
			{
				OfMessage: &responses.EasyInputMessageParam{
					Role: responses.EasyInputMessageRoleUser,
					Content: responses.EasyInputMessageContentUnionParam{
						OfInputItemContentList: content,
					},
				},
			},
		},
	}
}

func outputText(resp *responses.Response) string {
	var b strings.Builder
	for _, item := range resp.Output {
		if item.Type != "message" {
			continue
		}
		for _, content := range item.AsMessage().Content {
			if content.Type == "output_text" {
				b.WriteString(content.AsOutputText().Text)
			}
		}
	}
	return b.String()
}

type responseStream struct {
	stream *ssestream.Stream[responses.ResponseStreamEventUnion]
}

func (s *responseStream) Next() bool {
	return s.stream.Next()
}

func (s *responseStream) Current() json.RawMessage {
	return json.RawMessage(s.stream.Current().RawJSON())
}

func (s *responseStream) Err() error {
	return s.stream.Err()
}

func (s *responseStream) Close() error {
	return s.stream.Close()
}
