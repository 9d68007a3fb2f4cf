package search

import (
	"github.com/gin-gonic/gin"
)

// expects router to already require authentication
func RegisterRoutes(router *gin.RouterGroup, collections Collections, searcher Searcher) {
	router.POST("/collections/:id/search", SearchHandler(collections, searcher))
}
