// Package apperr classifies errors into a small set of categories so that
// callers at the edge (CLI, JSON envelopes) can react without string matching.
package apperr

import (
	"errors"
	"fmt"
)

// Category is the broad class of an error.
type Category string

const (
	CategoryValidation Category = "validation"
	CategoryNotFound   Category = "not_found"
	CategoryConflict   Category = "conflict"
	CategoryCycle      Category = "circular_reference"
	CategoryPartial    Category = "partial_failure"
	CategoryStorage    Category = "storage"
	CategoryInternal   Category = "internal"
)

// Error is a categorized error. Two Errors match under errors.Is when they
// share category and message.
type Error struct {
	category Category
	message  string
	cause    error
}

// New returns a categorized error, typically assigned to a package-level sentinel.
func New(category Category, message string) *Error {
	return &Error{category: category, message: message}
}

// Wrap returns a categorized error around cause.
func Wrap(category Category, message string, cause error) *Error {
	return &Error{category: category, message: message, cause: cause}
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.message, e.cause)
	}
	return e.message
}

func (e *Error) Unwrap() error { return e.cause }

// Category returns the error category.
func (e *Error) Category() Category { return e.category }

// Message returns the message without the cause.
func (e *Error) Message() string { return e.message }

func (e *Error) Is(target error) bool {
	var other *Error
	if errors.As(target, &other) {
		return e.category == other.category && e.message == other.message
	}
	return false
}

type categorized interface {
	Category() Category
}

// Classify returns the category of the first categorized error in err's chain.
// Uncategorized errors are internal.
func Classify(err error) Category {
	if err == nil {
		return ""
	}
	var c categorized
	if errors.As(err, &c) {
		return c.Category()
	}
	return CategoryInternal
}

// Is reports whether err's chain carries the given category.
func Is(err error, category Category) bool {
	return err != nil && Classify(err) == category
}
