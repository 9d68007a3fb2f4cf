package collections

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"codeberg.org/docuchat/server/api/rest/pagination"
	"codeberg.org/docuchat/server/docuchat/collections"
	"codeberg.org/docuchat/server/internal/auth"
	"codeberg.org/docuchat/server/internal/errors"
)

// CreateCollectionHandler creates a collection bound to one embedding model
func CreateCollectionHandler(svc Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, exists := auth.GetUserID(c)
		if !exists {
			errors.Unauthorized(c, "")
			return
		}

		var req collections.CreateCollectionRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			errors.ValidationError(c, err)
			return
		}

		collection, err := svc.Create(c.Request.Context(), userID, req)
		if err != nil {
			errors.Respond(c, "collection", err)
			return
		}

		c.JSON(http.StatusCreated, collection)
	}
}

// ListCollectionsHandler lists the caller's collections, newest first
func ListCollectionsHandler(svc Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, exists := auth.GetUserID(c)
		if !exists {
			errors.Unauthorized(c, "")
			return
		}

		params := pagination.FromQuery(c)

		list, total, err := svc.List(c.Request.Context(), userID, params.Limit, params.Offset)
		if err != nil {
			errors.InternalError(c, "failed to list collections", err)
			return
		}

		c.JSON(http.StatusOK, CollectionsListResponse{
			Collections: list,
			Pagination:  pagination.NewMeta(params, total),
		})
	}
}

// GetCollectionHandler returns one collection owned by the caller
func GetCollectionHandler(svc Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, exists := auth.GetUserID(c)
		if !exists {
			errors.Unauthorized(c, "")
			return
		}

		collectionID, ok := errors.ValidatePathUUID(c, "id")
		if !ok {
			return
		}

		collection, err := svc.Get(c.Request.Context(), collectionID, userID)
		if err != nil {
			errors.Respond(c, "collection", err)
			return
		}

		c.JSON(http.StatusOK, collection)
	}
}

// UpdateCollectionHandler changes a collection's name or description
func UpdateCollectionHandler(svc Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, exists := auth.GetUserID(c)
		if !exists {
			errors.Unauthorized(c, "")
			return
		}

		collectionID, ok := errors.ValidatePathUUID(c, "id")
		if !ok {
			return
		}

		var req collections.UpdateCollectionRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			errors.ValidationError(c, err)
			return
		}

		collection, err := svc.Update(c.Request.Context(), collectionID, userID, req)
		if err != nil {
			errors.Respond(c, "collection", err)
			return
		}

		c.JSON(http.StatusOK, collection)
	}
}

// CollectionStatsHandler reports document counts by status next to the stored vector count
func CollectionStatsHandler(svc Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, exists := auth.GetUserID(c)
		if !exists {
			errors.Unauthorized(c, "")
			return
		}

		collectionID, ok := errors.ValidatePathUUID(c, "id")
		if !ok {
			return
		}

		stats, err := svc.Stats(c.Request.Context(), collectionID, userID)
		if err != nil {
			errors.Respond(c, "collection", err)
			return
		}

		c.JSON(http.StatusOK, stats)
	}
}

// DeleteCollectionHandler removes a collection with its documents and vectors
func DeleteCollectionHandler(svc Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, exists := auth.GetUserID(c)
		if !exists {
			errors.Unauthorized(c, "")
			return
		}

		collectionID, ok := errors.ValidatePathUUID(c, "id")
		if !ok {
			return
		}

		if err := svc.Delete(c.Request.Context(), collectionID, userID); err != nil {
			errors.Respond(c, "collection", err)
			return
		}

		c.JSON(http.StatusOK, MessageResponse{Message: "collection deleted"})
	}
}
