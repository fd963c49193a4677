// Package api defines the {data, error} envelope returned to callers at the
// edge of the system.
package api

import (
	"errors"

	"mycelica/folio/internal/apperr"
)

// ErrorBody is the serialized form of an error.
type ErrorBody struct {
	Category apperr.Category `json:"category"`
	Message  string          `json:"message"`
	Details  any             `json:"details,omitempty"`
}

// Result carries either data or an error, never both. Callers must check
// Error before trusting Data.
type Result[T any] struct {
	Data  *T         `json:"data"`
	Error *ErrorBody `json:"error"`
}

type detailer interface {
	Details() any
}

// Wrap builds a Result from a Go (value, error) pair.
func Wrap[T any](data T, err error) Result[T] {
	if err != nil {
		return Fail[T](err)
	}
	return Result[T]{Data: &data}
}

// Fail builds an error Result.
func Fail[T any](err error) Result[T] {
	body := &ErrorBody{
		Category: apperr.Classify(err),
		Message:  err.Error(),
	}
	var d detailer
	if errors.As(err, &d) {
		body.Details = d.Details()
	}
	return Result[T]{Error: body}
}

// OK reports whether the result carries data.
func (r Result[T]) OK() bool {
	return r.Error == nil
}
