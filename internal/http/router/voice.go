package router

import (
	"github.com/gin-gonic/gin"

	"basegraph.app/chat/internal/http/handler"
)

func VoiceRouter(rg *gin.RouterGroup, transcribe *handler.TranscribeHandler, realtime *handler.RealtimeHandler) {
	rg.POST("/transcribe", transcribe.Transcribe)
	rg.POST("/realtime/session", realtime.CreateSession)
}
