// Package router 提供 HTTP 路由配置
package router

import (
	"sherry-reader/internal/interfaces/http/handler"

	"github.com/gin-gonic/gin"
)

// RegisterV1Routes 注册 v1 版本路由
func RegisterV1Routes(
	v1 *gin.RouterGroup,
	storyHandler *handler.StoryHandler,
	sessionHandler *handler.SessionHandler,
) {
	// 小说内容
	novels := v1.Group("/novels")
	{
		novels.GET("", storyHandler.List)
		novels.GET("/:id", storyHandler.Get)
		novels.POST("/:id/validate", storyHandler.Validate)
	}

	// 阅读会话
	sessions := v1.Group("/sessions")
	{
		sessions.POST("", sessionHandler.Create)
		sessions.GET("/:id", sessionHandler.Get)
		sessions.DELETE("/:id", sessionHandler.Close)
		sessions.POST("/:id/messages", sessionHandler.Message)
		sessions.POST("/:id/ending", sessionHandler.ChooseEnding)
		sessions.POST("/:id/chapter", sessionHandler.OpenChapter)
		sessions.POST("/:id/quote", sessionHandler.Quote)
		sessions.GET("/:id/transcript", sessionHandler.Transcript)
	}
}
