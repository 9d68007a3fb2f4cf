package domain

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"syscall"
)

var (
	ErrNotFound             = errors.New("not found")
	ErrAlreadyProcessing    = errors.New("document is already being processed")
	ErrInvalidTransition    = errors.New("invalid document status transition")
	ErrNoCompletedDocuments = errors.New("collection has no completed documents")
	ErrUnknownBackend       = errors.New("unknown backend")
	ErrArtifactAlreadySet   = errors.New("message artifact already set")
	ErrNameTaken            = errors.New("a collection with this name already exists")
	ErrNotConfigured        = errors.New("service is not configured")
)

// raised when a stored file cannot be turned into text
type ExtractionError struct {
	Filename string
	Err      error
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("failed to extract text from %s: %v", e.Filename, e.Err)
}

func (e *ExtractionError) Unwrap() error { return e.Err }

// raised when extraction succeeded but produced no chunks
type EmptyDocumentError struct {
	DocumentID string
}

func (e *EmptyDocumentError) Error() string {
	return "document has no extractable content"
}

type EmbeddingBackendError struct {
	Model string
	Err   error
}

func (e *EmbeddingBackendError) Error() string {
	return fmt.Sprintf("embedding backend %s failed: %v", e.Model, e.Err)
}

func (e *EmbeddingBackendError) Unwrap() error { return e.Err }

type DimensionMismatchError struct {
	Collection string
	Expected   int
	Got        int
}

func (e *DimensionMismatchError) Error() string {
	if e.Expected <= 0 {
		return fmt.Sprintf("vector dimension mismatch for collection %s: stored vectors are not %d-dimensional",
			e.Collection, e.Got)
	}

	return fmt.Sprintf("vector dimension mismatch for collection %s: expected %d, got %d",
		e.Collection, e.Expected, e.Got)
}

type VectorStoreError struct {
	Op         string
	Collection string
	Err        error
}

func (e *VectorStoreError) Error() string {
	return fmt.Sprintf("vector store %s on %s failed: %v", e.Op, e.Collection, e.Err)
}

func (e *VectorStoreError) Unwrap() error { return e.Err }

// raised once the selected backend (and any fallbacks) gave up
type GenerationError struct {
	Backend  string
	Attempts int
	Err      error
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("generation with %s failed after %d attempt(s): %v", e.Backend, e.Attempts, e.Err)
}

func (e *GenerationError) Unwrap() error { return e.Err }

type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Reason
	}

	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// returned by outbound HTTP clients on non-2xx responses
type HTTPStatusError struct {
	StatusCode int
	Body       string
}

func (e *HTTPStatusError) Error() string {
	return fmt.Sprintf("API request failed with status %d: %s", e.StatusCode, e.Body)
}

// reports whether err is worth one more attempt: timeouts, dropped
// connections and 408/429/5xx responses
func IsTransient(err error) bool {
	if err == nil {
		return false
	}

	// permanent by construction
	var (
		validation *ValidationError
		dimension  *DimensionMismatchError
		empty      *EmptyDocumentError
		extraction *ExtractionError
	)

	if errors.As(err, &validation) || errors.As(err, &dimension) ||
		errors.As(err, &empty) || errors.As(err, &extraction) {
		return false
	}

	if errors.Is(err, context.Canceled) {
		return false
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	var statusErr *HTTPStatusError
	if errors.As(err, &statusErr) {
		return statusErr.StatusCode == http.StatusRequestTimeout ||
			statusErr.StatusCode == http.StatusTooManyRequests ||
			statusErr.StatusCode >= 500
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	if errors.Is(err, syscall.ECONNREFUSED) || errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, io.ErrUnexpectedEOF) {
		return true
	}

	var opErr *net.OpError
	return errors.As(err, &opErr)
}
