package errors

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"codeberg.org/docuchat/server/internal/domain"
)

func TestRespond(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{"validation", &domain.ValidationError{Field: "top_k", Reason: "must be at least 1"}, http.StatusBadRequest, CodeValidationError},
		{"unknown backend", fmt.Errorf("%w: gpt-9", domain.ErrUnknownBackend), http.StatusBadRequest, CodeValidationError},
		{"not found", domain.ErrNotFound, http.StatusNotFound, CodeNotFound},
		{"already processing", domain.ErrAlreadyProcessing, http.StatusConflict, CodeConflict},
		{"name taken", domain.ErrNameTaken, http.StatusConflict, CodeConflict},
		{"dimension", &domain.DimensionMismatchError{Expected: 3, Got: 4}, http.StatusConflict, CodeConflict},
		{"empty document", &domain.EmptyDocumentError{}, http.StatusUnprocessableEntity, CodeUnprocessable},
		{"generation", &domain.GenerationError{Backend: "openai", Attempts: 2, Err: errors.New("down")}, http.StatusBadGateway, CodeUpstreamError},
		{"vector store", &domain.VectorStoreError{Op: "search", Err: errors.New("down")}, http.StatusServiceUnavailable, CodeStoreUnavailable},
		{"not configured", fmt.Errorf("speech %w", domain.ErrNotConfigured), http.StatusServiceUnavailable, CodeUnavailable},
		{"upstream status", fmt.Errorf("failed to translate text: %w", &domain.HTTPStatusError{StatusCode: 500}), http.StatusBadGateway, CodeUpstreamError},
		{"unknown", errors.New("boom"), http.StatusInternalServerError, CodeServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)
			c.Request = httptest.NewRequest(http.MethodGet, "/", nil)

			Respond(c, "document", tt.err)

			assert.Equal(t, tt.wantStatus, w.Code)

			var body ErrorResponse
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
			assert.Equal(t, tt.wantCode, body.Error)
		})
	}
}

func TestIsValidUUID(t *testing.T) {
	assert.True(t, IsValidUUID("3f2504e0-4f89-11d3-9a0c-0305e82c3301"))
	assert.True(t, IsValidUUID("3F2504E0-4F89-11D3-9A0C-0305E82C3301"))
	assert.False(t, IsValidUUID(""))
	assert.False(t, IsValidUUID("not-a-uuid"))
}

func TestSanitizeError_Production(t *testing.T) {
	t.Setenv("ENVIRONMENT", "production")

	assert.Equal(t, "request timed out", sanitizeError(fmt.Errorf("embed: %w", errors.Join(errors.New("x"), contextDeadline()))))
	assert.Equal(t, "invalid top_k: must be at least 1", sanitizeError(&domain.ValidationError{Field: "top_k", Reason: "must be at least 1"}))
	assert.Equal(t, "an error occurred", sanitizeError(errors.New("boom")))
}

func contextDeadline() error {
	return context.DeadlineExceeded
}

func TestSanitizeError_Development(t *testing.T) {
	t.Setenv("ENVIRONMENT", "development")

	err := fmt.Errorf("failed to upsert: %w", errors.New("connection refused"))
	assert.Equal(t, err.Error(), sanitizeError(err))
	assert.Empty(t, sanitizeError(nil))
}

func TestSanitizeError_ProductionClasses(t *testing.T) {
	t.Setenv("ENVIRONMENT", "production")

	assert.Equal(t, "model backend unavailable", sanitizeError(&domain.GenerationError{Backend: "openai", Attempts: 2, Err: errors.New("503")}))
	assert.Equal(t, "vector store unavailable", sanitizeError(&domain.VectorStoreError{Op: "search", Err: errors.New("down")}))
	assert.Equal(t, "resource not found", sanitizeError(fmt.Errorf("document %w", domain.ErrNotFound)))
	assert.Equal(t, "connection error occurred", sanitizeError(errors.New("dial tcp 10.0.0.1:6333")))
}
