package requestid

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"codeberg.org/docuchat/server/internal/logger"
)

const (
	Header = "X-Request-ID"

	// longer ids from clients are replaced
	maxLength = 64
)

// tags every request with an id, echoes it in the response and stores a
// logger carrying it in the request context
func Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(Header)
		if id == "" || len(id) > maxLength {
			id = uuid.NewString()
		}

		c.Set("request_id", id)
		c.Header(Header, id)

		ctx := logger.WithContext(c.Request.Context(), logger.With("request_id", id))
		c.Request = c.Request.WithContext(ctx)

		c.Next()
	}
}
