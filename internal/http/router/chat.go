package router

import (
	"github.com/gin-gonic/gin"

	"basegraph.app/chat/internal/http/handler"
)

func ChatRouter(rg *gin.RouterGroup, chat *handler.ChatHandler, titles *handler.TitleHandler) {
	rg.POST("/chat/stream", chat.Stream)
	rg.POST("/chat", chat.Sync)
	rg.POST("/generate-title", titles.Generate)
}
