package documents

import (
	"github.com/gin-gonic/gin"
)

// expects router to already require authentication. maxUpload caps the
// request body so oversized uploads fail before reaching the disk.
// uploadLimit may be nil.
func RegisterRoutes(router *gin.RouterGroup, library Library, ingester Ingester, maxUpload int64, uploadLimit gin.HandlerFunc) {
	upload := []gin.HandlerFunc{UploadDocumentHandler(library, ingester, maxUpload)}
	if uploadLimit != nil {
		upload = append([]gin.HandlerFunc{uploadLimit}, upload...)
	}

	router.POST("/collections/:id/documents", upload...)
	router.GET("/collections/:id/documents", ListDocumentsHandler(library))

	group := router.Group("/documents")
	{
		group.GET("/:id", GetDocumentHandler(library))
		group.POST("/:id/reprocess", ReprocessDocumentHandler(library, ingester))
		group.DELETE("/:id", DeleteDocumentHandler(library, ingester))
	}
}
