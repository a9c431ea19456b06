package handler

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"basegraph.app/chat/internal/http/dto"
	"basegraph.app/chat/internal/llm"
)

const audioFormField = "audio"

// Browsers record in different containers; anything else is still sent to
// the provider, only logged.
var knownAudioTypes = map[string]bool{
	"audio/webm":  true,
	"audio/mp3":   true,
	"audio/mpeg":  true,
	"audio/wav":   true,
	"audio/m4a":   true,
	"audio/x-m4a": true,
	"audio/mp4":   true,
	"audio/ogg":   true,
}

type TranscribeConfig struct {
	Model    string
	Language string
	MaxBytes int
}

type TranscribeHandler struct {
	transcriber llm.Transcriber
	ready       func() error
	cfg         TranscribeConfig
}

func NewTranscribeHandler(transcriber llm.Transcriber, ready func() error, cfg TranscribeConfig) *TranscribeHandler {
	return &TranscribeHandler{transcriber: transcriber, ready: ready, cfg: cfg}
}

func (h *TranscribeHandler) Transcribe(c *gin.Context) {
	ctx := c.Request.Context()

	if err := h.ready(); err != nil {
		slog.ErrorContext(ctx, "transcription provider not configured", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Server misconfigured: " + err.Error()})
		return
	}

	// Room for the multipart envelope around the file.
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, int64(h.cfg.MaxBytes)+1<<20)

	header, err := c.FormFile(audioFormField)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			c.JSON(http.StatusBadRequest, gin.H{"error": h.tooLargeMessage()})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": "Audio file is required"})
		return
	}
	if header.Size > int64(h.cfg.MaxBytes) {
		c.JSON(http.StatusBadRequest, gin.H{"error": h.tooLargeMessage()})
		return
	}

	mimeType := header.Header.Get("Content-Type")
	base, _, _ := strings.Cut(mimeType, ";")
	if !knownAudioTypes[strings.TrimSpace(base)] {
		slog.WarnContext(ctx, "non-standard audio type, transcribing anyway", "mime_type", mimeType)
	}

	file, err := header.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Audio file is unreadable"})
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Audio file is unreadable"})
		return
	}

	slog.InfoContext(ctx, "transcribing audio", "name", header.Filename, "mime_type", mimeType, "bytes", len(data))

	text, err := h.transcriber.Transcribe(ctx, llm.TranscriptionRequest{
		Name:     header.Filename,
		MimeType: mimeType,
		Data:     data,
		Model:    h.cfg.Model,
		Language: h.cfg.Language,
	})
	if err != nil {
		slog.ErrorContext(ctx, "transcription failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Transcription failed"})
		return
	}

	c.JSON(http.StatusOK, dto.TranscribeResponse{Success: true, Text: text})
}

func (h *TranscribeHandler) tooLargeMessage() string {
	return fmt.Sprintf("Audio file too large, max %dMB", h.cfg.MaxBytes>>20)
}
