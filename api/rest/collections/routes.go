package collections

import (
	"github.com/gin-gonic/gin"
)

// expects router to already require authentication
func RegisterRoutes(router *gin.RouterGroup, svc Service) {
	group := router.Group("/collections")
	{
		group.POST("", CreateCollectionHandler(svc))
		group.GET("", ListCollectionsHandler(svc))
		group.GET("/:id", GetCollectionHandler(svc))
		group.PATCH("/:id", UpdateCollectionHandler(svc))
		group.GET("/:id/stats", CollectionStatsHandler(svc))
		group.DELETE("/:id", DeleteCollectionHandler(svc))
	}
}
