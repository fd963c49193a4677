package pages

import (
	"context"
	"fmt"
	"time"

	"mycelica/folio/internal/db"
	"mycelica/folio/internal/metrics"
)

// Delete removes a page. With deleteChildren the whole subtree is deleted
// depth-first, one row at a time; a failure part way returns *PartialError
// listing the rows already gone. Without it the direct children are moved one
// level up, appended after the deleted page's siblings, in a single
// transaction.
func (r *Repository) Delete(ctx context.Context, id string, deleteChildren bool) (deleted []string, err error) {
	defer func(start time.Time) { metrics.Observe(r.metrics, "delete", start, err) }(time.Now())

	r.mu.Lock()
	defer r.mu.Unlock()

	page, err := r.db.GetPage(ctx, id)
	if err != nil {
		return nil, err
	}

	if deleteChildren {
		deleted, err = r.deleteSubtree(ctx, page.ID)
		if err != nil {
			r.log.Error().Err(err).Str("page_id", id).Strs("deleted", deleted).Msg("cascade delete stopped")
			return deleted, err
		}
		r.log.Debug().Str("page_id", id).Int("count", len(deleted)).Msg("subtree deleted")
		return deleted, nil
	}

	err = r.db.WithTx(ctx, func(tx *db.DB) error {
		return r.deleteAndReparent(ctx, tx, page)
	})
	if err != nil {
		return nil, fmt.Errorf("deleting page %s: %w", id, err)
	}
	r.log.Debug().Str("page_id", id).Msg("page deleted, children re-parented")
	return []string{page.ID}, nil
}

// deleteSubtree deletes children before their parent so a stop never leaves
// a child whose parent row is already gone.
func (r *Repository) deleteSubtree(ctx context.Context, rootID string) ([]string, error) {
	var deleted []string
	visited := map[string]bool{}
	failedID := ""

	var walk func(id string) error
	walk = func(id string) error {
		if visited[id] {
			return nil
		}
		visited[id] = true
		children, err := r.db.ChildPages(ctx, id)
		if err != nil {
			failedID = id
			return err
		}
		for _, c := range children {
			if err := walk(c.ID); err != nil {
				return err
			}
		}
		if err := r.db.DeletePage(ctx, id); err != nil {
			failedID = id
			return err
		}
		deleted = append(deleted, id)
		return nil
	}

	if err := walk(rootID); err != nil {
		if len(deleted) == 0 {
			return nil, err
		}
		return deleted, &PartialError{Op: "delete", Completed: deleted, FailedID: failedID, Err: err}
	}
	return deleted, nil
}

func (r *Repository) deleteAndReparent(ctx context.Context, q *db.DB, page *db.Page) error {
	children, err := q.ChildPages(ctx, page.ID)
	if err != nil {
		return err
	}
	if err := q.DeletePage(ctx, page.ID); err != nil {
		return err
	}
	if len(children) == 0 {
		return nil
	}

	next, err := q.MaxOrderIndex(ctx, page.ProjectID, page.ParentPageID)
	if err != nil {
		return err
	}
	now := r.nowMillis()
	for _, c := range children {
		s, err := r.allocateSlug(ctx, q, page.ProjectID, page.ParentPageID, c.Slug, c.ID)
		if err != nil {
			return fmt.Errorf("re-parenting %s: %w", c.ID, err)
		}
		next++
		if err := q.SetParent(ctx, c.ID, copyString(page.ParentPageID), next, s, r.actor(), now); err != nil {
			return err
		}
	}
	return nil
}
