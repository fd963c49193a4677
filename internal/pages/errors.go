package pages

import (
	"errors"
	"fmt"

	"mycelica/folio/internal/apperr"
	"mycelica/folio/internal/db"
)

var (
	ErrTitleRequired     = apperr.New(apperr.CategoryValidation, "title is required")
	ErrEmptySlug         = apperr.New(apperr.CategoryValidation, "slug is empty after normalization")
	ErrCrossProject      = apperr.New(apperr.CategoryValidation, "parent page belongs to a different project")
	ErrSlugExhausted     = apperr.New(apperr.CategoryConflict, "could not allocate unique slug")
	ErrStaleVersion      = apperr.New(apperr.CategoryConflict, "a newer content version is already stored")
	ErrCircularReference = apperr.New(apperr.CategoryCycle, "circular reference: a page cannot become its own ancestor")
	ErrNotFound          = db.ErrNotFound
)

// PartialError reports a recursive operation (cascade delete, subtree
// duplicate) that stopped part way. The pages listed in Completed were
// written and are not rolled back.
type PartialError struct {
	Op        string
	Completed []string
	FailedID  string
	Err       error
}

func (e *PartialError) Error() string {
	return fmt.Sprintf("%s stopped at page %s after %d completed pages: %v",
		e.Op, e.FailedID, len(e.Completed), e.Err)
}

func (e *PartialError) Unwrap() error { return e.Err }

// Category marks the error as a partial failure regardless of its cause.
func (e *PartialError) Category() apperr.Category { return apperr.CategoryPartial }

// Details is surfaced in the api envelope so callers can reconcile.
func (e *PartialError) Details() any {
	return map[string]any{
		"operation": e.Op,
		"completed": e.Completed,
		"failed_id": e.FailedID,
	}
}

func isNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
