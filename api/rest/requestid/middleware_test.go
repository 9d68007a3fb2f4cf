package requestid

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"codeberg.org/docuchat/server/internal/errors"
	"codeberg.org/docuchat/server/internal/logger"
)

func newRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)

	router := gin.New()
	router.Use(Middleware())
	router.GET("/", func(c *gin.Context) {
		// the stored logger differs from the process default
		scoped := logger.FromContext(c.Request.Context()) != logger.Default()
		c.JSON(http.StatusOK, gin.H{"id": c.GetString("request_id"), "scoped": scoped})
	})

	return router
}

func TestMiddleware_GeneratesID(t *testing.T) {
	w := httptest.NewRecorder()
	newRouter().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

	id := w.Header().Get(Header)
	assert.True(t, errors.IsValidUUID(id))
	assert.Contains(t, w.Body.String(), `"scoped":true`)
}

func TestMiddleware_KeepsClientID(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(Header, "trace-123")

	w := httptest.NewRecorder()
	newRouter().ServeHTTP(w, req)

	assert.Equal(t, "trace-123", w.Header().Get(Header))
	assert.Contains(t, w.Body.String(), `"id":"trace-123"`)
}

func TestMiddleware_ReplacesOversizedID(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(Header, strings.Repeat("x", maxLength+1))

	w := httptest.NewRecorder()
	newRouter().ServeHTTP(w, req)

	assert.True(t, errors.IsValidUUID(w.Header().Get(Header)))
}
