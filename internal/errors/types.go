package errors

import "regexp"

// UUID format: xxxxxxxx-xxxx-xxxx-xxxx-xxxxxxxxxxxx (36 characters)
var uuidRegex = regexp.MustCompile(`^[0-9a-f]{8}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{12}$`)

// body of every error response
type ErrorResponse struct {
	Error   string `json:"error"`             // error code (e.g., "unauthorized", "not_found")
	Message string `json:"message"`           // user-friendly message
	Details string `json:"details,omitempty"` // optional details (sanitized in production)
}

const (
	CodeUnauthorized     = "unauthorized"
	CodeNotFound         = "not_found"
	CodeValidationError  = "validation_error"
	CodeServerError      = "server_error"
	CodeBadRequest       = "bad_request"
	CodeConflict         = "conflict"
	CodeTooManyRequests  = "too_many_requests"
	CodeUpstreamError    = "upstream_error"
	CodeUnprocessable    = "unprocessable_document"
	CodeStoreUnavailable = "vector_store_unavailable"
	CodeUnavailable      = "service_unavailable"
)
