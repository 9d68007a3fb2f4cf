package errors

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"codeberg.org/docuchat/server/internal/logger"
)

// Error Handling Guidelines:
//
// For HTTP REST handlers:
//   - Pass service errors to errors.Respond(), which maps typed domain errors
//     (ValidationError, GenerationError, VectorStoreError, ...) to a status code
//   - Use the helpers below directly for request-level failures (bad JSON, bad path ids)
//   - 5xx helpers log the full error; do not log it again in the handler
//
// For services, the ingestion pipeline and repositories:
//   - Return typed errors from internal/domain or wrap with fmt.Errorf("context: %w", err)
//   - Log only failures that are swallowed (best-effort cleanup, background jobs)

// writes an ErrorResponse. details are sanitized for production.
func write(c *gin.Context, status int, code, message string, err error) {
	resp := ErrorResponse{Error: code, Message: message}
	if err != nil {
		resp.Details = sanitizeError(err)
	}

	c.JSON(status, resp)
}

// logs a server-side failure with request context
func logFailure(c *gin.Context, message string, err error) {
	logger.FromContext(c.Request.Context()).Error(message,
		"error", err,
		"path", c.Request.URL.Path,
		"method", c.Request.Method,
		"user_id", c.GetString("user_id"),
	)
}

func orDefault(message, fallback string) string {
	if message == "" {
		return fallback
	}

	return message
}

// 401
func Unauthorized(c *gin.Context, message string) {
	write(c, http.StatusUnauthorized, CodeUnauthorized, orDefault(message, "authentication required"), nil)
}

// 404 naming the missing resource
func NotFound(c *gin.Context, resource string) {
	message := "resource not found"
	if resource != "" {
		message = resource + " not found"
	}

	write(c, http.StatusNotFound, CodeNotFound, message, nil)
}

func BadRequest(c *gin.Context, message string, err error) {
	write(c, http.StatusBadRequest, CodeBadRequest, orDefault(message, "invalid request"), err)
}

// 400 for binding failures and domain.ValidationError
func ValidationError(c *gin.Context, err error) {
	message := "validation failed"
	if err != nil && strings.Contains(err.Error(), "binding") {
		message = "request validation failed"
	}

	write(c, http.StatusBadRequest, CodeValidationError, message, err)
}

func Conflict(c *gin.Context, message string) {
	write(c, http.StatusConflict, CodeConflict, orDefault(message, "resource conflict"), nil)
}

func TooManyRequests(c *gin.Context, message string) {
	write(c, http.StatusTooManyRequests, CodeTooManyRequests, orDefault(message, "too many requests"), nil)
}

// 422 for documents that cannot be processed
func Unprocessable(c *gin.Context, message string, err error) {
	write(c, http.StatusUnprocessableEntity, CodeUnprocessable, message, err)
}

// 500, logged
func InternalError(c *gin.Context, message string, err error) {
	message = orDefault(message, "an error occurred")
	logFailure(c, message, err)
	write(c, http.StatusInternalServerError, CodeServerError, message, err)
}

// 502 when a model backend or the speech service failed, logged
func UpstreamError(c *gin.Context, message string, err error) {
	message = orDefault(message, "upstream backend failed")
	logFailure(c, message, err)
	write(c, http.StatusBadGateway, CodeUpstreamError, message, err)
}

// 503 for dependencies that are down or not configured
func Unavailable(c *gin.Context, code, message string, err error) {
	write(c, http.StatusServiceUnavailable, code, message, err)
}

func IsValidUUID(id string) bool {
	return id != "" && uuidRegex.MatchString(strings.ToLower(id))
}

// reports a malformed id as a missing resource
func ValidateUUID(c *gin.Context, id string, resource string) bool {
	if id != "" && !IsValidUUID(id) {
		NotFound(c, resource)
		return false
	}

	return true
}

// reads a UUID path parameter, writing 400 when absent and 404 when malformed
func ValidatePathUUID(c *gin.Context, paramName string) (string, bool) {
	id := c.Param(paramName)

	if id == "" {
		BadRequest(c, "missing "+paramName, nil)
		return "", false
	}

	if !IsValidUUID(id) {
		NotFound(c, "resource")
		return "", false
	}

	return id, true
}
