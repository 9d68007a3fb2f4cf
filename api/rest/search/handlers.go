package search

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"codeberg.org/docuchat/server/internal/auth"
	"codeberg.org/docuchat/server/internal/domain"
	"codeberg.org/docuchat/server/internal/errors"
	"codeberg.org/docuchat/server/internal/retriever"
)

// SearchHandler ranks a collection's chunks against a free-text query
func SearchHandler(collections Collections, searcher Searcher) gin.HandlerFunc {
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

		var req SearchRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			errors.ValidationError(c, err)
			return
		}

		if req.TopK == 0 {
			req.TopK = defaultTopK
		}

		if req.TopK < 0 || req.TopK > maxTopK {
			errors.Respond(c, "search", &domain.ValidationError{
				Field:  "top_k",
				Reason: fmt.Sprintf("must be between 1 and %d", maxTopK),
			})
			return
		}

		if _, err := collections.Get(c.Request.Context(), collectionID, userID); err != nil {
			errors.Respond(c, "collection", err)
			return
		}

		hits, err := searcher.Search(c.Request.Context(), retriever.Query{
			CollectionID: collectionID,
			Text:         req.Query,
			TopK:         req.TopK,
			Filter:       req.Filter,
		})
		if err != nil {
			errors.Respond(c, "search", err)
			return
		}

		c.JSON(http.StatusOK, SearchResponse{Query: req.Query, Hits: hits})
	}
}
