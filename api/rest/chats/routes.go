package chats

import (
	"github.com/gin-gonic/gin"
)

// expects router to already require authentication. sendLimit throttles
// message sends and may be nil.
func RegisterRoutes(router *gin.RouterGroup, svc Service, sendLimit gin.HandlerFunc) {
	send := []gin.HandlerFunc{SendMessageHandler(svc)}
	if sendLimit != nil {
		send = append([]gin.HandlerFunc{sendLimit}, send...)
	}

	group := router.Group("/chats")
	{
		group.POST("", CreateSessionHandler(svc))
		group.GET("", ListSessionsHandler(svc))
		group.GET("/:id", GetSessionHandler(svc))
		group.PATCH("/:id", UpdateSessionHandler(svc))
		group.PUT("/:id/title", RenameSessionHandler(svc))
		group.DELETE("/:id", DeleteSessionHandler(svc))
		group.GET("/:id/messages", ListMessagesHandler(svc))
		group.POST("/:id/messages", send...)
	}

	router.POST("/messages/:id/audio", MessageAudioHandler(svc))
	router.POST("/messages/:id/translate", TranslateMessageHandler(svc))
	router.GET("/languages", LanguagesHandler(svc))
}
