package errors

import (
	"context"
	"errors"
	"net/http"
	"os"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"codeberg.org/docuchat/server/internal/domain"
)

// a class of failure and the message production clients see for it
type rule struct {
	match   func(err error, msg string) bool
	generic string
}

func as[T error](err error) bool {
	var target T
	return errors.As(err, &target)
}

func contains(msg string, words ...string) bool {
	for _, w := range words {
		if strings.Contains(msg, w) {
			return true
		}
	}

	return false
}

// checked in order; typed errors first, then message heuristics for
// errors that lost their type on the way up
var rules = []rule{
	{func(err error, _ string) bool { return as[*pgconn.PgError](err) }, "database operation failed"},
	{func(err error, _ string) bool { return as[*domain.GenerationError](err) || as[*domain.EmbeddingBackendError](err) }, "model backend unavailable"},
	{func(err error, _ string) bool { return as[*domain.VectorStoreError](err) }, "vector store unavailable"},
	{func(err error, _ string) bool { return errors.Is(err, pgx.ErrNoRows) || errors.Is(err, domain.ErrNotFound) }, "resource not found"},
	{func(err error, _ string) bool { return errors.Is(err, context.DeadlineExceeded) }, "request timed out"},
	{func(err error, _ string) bool { return errors.Is(err, context.Canceled) }, "request canceled"},
	{func(_ error, msg string) bool { return contains(msg, "timeout", "deadline") }, "request timed out"},
	{func(_ error, msg string) bool { return contains(msg, "not found", "no rows") }, "resource not found"},
	{func(_ error, msg string) bool { return contains(msg, "database", "sql", "postgres", "pgx") }, "database operation failed"},
	{func(_ error, msg string) bool { return contains(msg, "connection", "network", "dial") }, "connection error occurred"},
	{func(_ error, msg string) bool { return contains(msg, "binding", "invalid", "required") }, "validation failed"},
	{func(_ error, msg string) bool { return contains(msg, "unauthorized", "forbidden", "auth") }, "permission denied"},
}

// full error text outside production; a generic message per failure class
// in production. validation errors always pass through since they describe
// the caller's own input.
func sanitizeError(err error) string {
	if err == nil {
		return ""
	}

	if as[*domain.ValidationError](err) || os.Getenv("ENVIRONMENT") != "production" {
		return err.Error()
	}

	msg := strings.ToLower(err.Error())
	for _, r := range rules {
		if r.match(err, msg) {
			return r.generic
		}
	}

	return "an error occurred"
}

// reports whether a request body was cut off by http.MaxBytesReader
func BodyTooLarge(err error) bool {
	return as[*http.MaxBytesError](err)
}
