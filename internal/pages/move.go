package pages

import (
	"context"
	"fmt"
	"time"

	"mycelica/folio/internal/db"
	"mycelica/folio/internal/metrics"
)

// MoveOptions names the destination of a move. A nil NewParentID moves the
// page to the root level; a nil NewOrderIndex appends it after its new siblings.
type MoveOptions struct {
	NewParentID   *string
	NewOrderIndex *int
}

// Move re-parents a page. The ancestor walk from the new parent and the
// parent write share one transaction, so a concurrent move cannot slip a
// cycle in between them. A rejected move leaves the page untouched.
func (r *Repository) Move(ctx context.Context, id string, opts MoveOptions) (page *db.Page, err error) {
	defer func(start time.Time) { metrics.Observe(r.metrics, "move", start, err) }(time.Now())

	r.mu.Lock()
	defer r.mu.Unlock()

	err = r.db.WithTx(ctx, func(tx *db.DB) error {
		var txErr error
		page, txErr = r.move(ctx, tx, id, opts)
		return txErr
	})
	if err != nil {
		return nil, fmt.Errorf("moving page %s: %w", id, err)
	}
	r.log.Debug().
		Str("page_id", id).
		Interface("parent_page_id", page.ParentPageID).
		Int("order_index", page.OrderIndex).
		Msg("page moved")
	return page, nil
}

func (r *Repository) move(ctx context.Context, q *db.DB, id string, opts MoveOptions) (*db.Page, error) {
	page, err := q.GetPage(ctx, id)
	if err != nil {
		return nil, err
	}

	if opts.NewParentID != nil {
		parent, err := q.GetPage(ctx, *opts.NewParentID)
		if err != nil {
			return nil, fmt.Errorf("new parent: %w", err)
		}
		if parent.ProjectID != page.ProjectID {
			return nil, ErrCrossProject
		}
		if err := checkAncestry(ctx, q, id, parent); err != nil {
			return nil, err
		}
	}

	s := page.Slug
	if !db.SameParent(page.ParentPageID, opts.NewParentID) {
		s, err = r.allocateSlug(ctx, q, page.ProjectID, opts.NewParentID, page.Slug, page.ID)
		if err != nil {
			return nil, err
		}
	}

	order := 0
	if opts.NewOrderIndex != nil {
		order = *opts.NewOrderIndex
	} else {
		max, err := q.MaxOrderIndex(ctx, page.ProjectID, opts.NewParentID)
		if err != nil {
			return nil, err
		}
		order = max + 1
	}

	if err := q.SetParent(ctx, id, copyString(opts.NewParentID), order, s, r.actor(), r.nowMillis()); err != nil {
		return nil, err
	}
	return q.GetPage(ctx, id)
}

// checkAncestry walks parent pointers upward from start and fails if it
// reaches id. A pre-existing loop that does not include id ends the walk.
func checkAncestry(ctx context.Context, q *db.DB, id string, start *db.Page) error {
	visited := map[string]bool{}
	current := start
	for {
		if current.ID == id {
			return ErrCircularReference
		}
		if visited[current.ID] {
			return nil
		}
		visited[current.ID] = true
		if current.ParentPageID == nil {
			return nil
		}
		next, err := q.GetPage(ctx, *current.ParentPageID)
		if err != nil {
			if isNotFound(err) {
				// dangling parent: the chain ends here
				return nil
			}
			return err
		}
		current = next
	}
}
