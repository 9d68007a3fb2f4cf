package errors

import (
	"errors"

	"github.com/gin-gonic/gin"

	"codeberg.org/docuchat/server/internal/domain"
)

// writes the response matching a typed domain error, falling back to a 500
func Respond(c *gin.Context, resource string, err error) {
	var (
		validation *domain.ValidationError
		dimension  *domain.DimensionMismatchError
		empty      *domain.EmptyDocumentError
		extraction *domain.ExtractionError
		generation *domain.GenerationError
		embedding  *domain.EmbeddingBackendError
		store      *domain.VectorStoreError
		upstream   *domain.HTTPStatusError
	)

	switch {
	case errors.As(err, &validation):
		ValidationError(c, err)
	case errors.Is(err, domain.ErrUnknownBackend):
		ValidationError(c, err)
	case errors.Is(err, domain.ErrNotFound):
		NotFound(c, resource)
	case errors.Is(err, domain.ErrAlreadyProcessing),
		errors.Is(err, domain.ErrInvalidTransition),
		errors.Is(err, domain.ErrArtifactAlreadySet),
		errors.Is(err, domain.ErrNameTaken),
		errors.Is(err, domain.ErrNoCompletedDocuments):
		Conflict(c, err.Error())
	case errors.As(err, &dimension):
		Conflict(c, err.Error())
	case errors.As(err, &empty), errors.As(err, &extraction):
		Unprocessable(c, "document could not be processed", err)
	case errors.As(err, &generation):
		UpstreamError(c, "failed to generate response", err)
	case errors.As(err, &embedding):
		UpstreamError(c, "failed to embed text", err)
	case errors.As(err, &store):
		Unavailable(c, CodeStoreUnavailable, "vector store unavailable", err)
	case errors.Is(err, domain.ErrNotConfigured):
		Unavailable(c, CodeUnavailable, err.Error(), nil)
	case errors.As(err, &upstream):
		UpstreamError(c, "upstream service failed", err)
	default:
		InternalError(c, "failed to process "+resourceOrDefault(resource), err)
	}
}

func resourceOrDefault(resource string) string {
	if resource == "" {
		return "request"
	}

	return resource
}
