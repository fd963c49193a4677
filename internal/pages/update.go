package pages

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"mycelica/folio/internal/apperr"
	"mycelica/folio/internal/content"
	"mycelica/folio/internal/db"
	"mycelica/folio/internal/metrics"
)

// UpdateOptions is a partial update. Nil fields are left unchanged; only these
// fields are mutable through Update.
type UpdateOptions struct {
	Title       *string
	Content     json.RawMessage
	Description *string
	Icon        *string
	IsPublished *bool
}

func (o UpdateOptions) changes() (db.PageChanges, error) {
	c := db.PageChanges{}
	if o.Title != nil {
		title := strings.TrimSpace(*o.Title)
		if title == "" {
			return nil, ErrTitleRequired
		}
		c["title"] = title
	}
	if o.Content != nil {
		doc, err := content.Parse(o.Content)
		if err != nil {
			return nil, apperr.Wrap(apperr.CategoryValidation, "invalid content", err)
		}
		raw, err := doc.Bytes()
		if err != nil {
			return nil, err
		}
		c["content"] = json.RawMessage(raw)
	}
	if o.Description != nil {
		c["description"] = *o.Description
	}
	if o.Icon != nil {
		c["icon"] = *o.Icon
	}
	if o.IsPublished != nil {
		c["is_published"] = *o.IsPublished
	}
	return c, nil
}

// Update applies a partial update and returns the stored page. A content
// change snapshots the previous content as a page version first.
func (r *Repository) Update(ctx context.Context, id string, opts UpdateOptions) (page *db.Page, err error) {
	defer func(start time.Time) { metrics.Observe(r.metrics, "update", start, err) }(time.Now())

	changes, err := opts.changes()
	if err != nil {
		return nil, fmt.Errorf("updating page %s: %w", id, err)
	}

	err = r.db.WithTx(ctx, func(tx *db.DB) error {
		var txErr error
		page, txErr = r.update(ctx, tx, id, changes)
		return txErr
	})
	if err != nil {
		return nil, fmt.Errorf("updating page %s: %w", id, err)
	}
	r.log.Debug().Str("page_id", id).Int("fields", len(changes)).Msg("page updated")
	return page, nil
}

func (r *Repository) update(ctx context.Context, q *db.DB, id string, changes db.PageChanges) (*db.Page, error) {
	current, err := q.GetPage(ctx, id)
	if err != nil {
		return nil, err
	}
	if len(changes) == 0 {
		return current, nil
	}

	if raw, ok := changes["content"].(json.RawMessage); ok && len(current.Content) > 0 && !bytes.Equal(raw, current.Content) {
		if err := r.snapshot(ctx, q, current); err != nil {
			return nil, err
		}
	}

	changes["updated_by"] = r.actor()
	changes["updated_at"] = r.nowMillis()
	if _, err := q.UpdatePage(ctx, id, changes); err != nil {
		return nil, err
	}

	updated, err := q.GetPage(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := r.index(ctx, q, updated); err != nil {
		return nil, err
	}
	return updated, nil
}

func (r *Repository) snapshot(ctx context.Context, q *db.DB, p *db.Page) error {
	_, err := q.InsertVersion(ctx, &db.PageVersion{
		ID:        r.newID(),
		PageID:    p.ID,
		Title:     p.Title,
		Content:   p.Content,
		CreatedBy: r.actor(),
		CreatedAt: r.nowMillis(),
	})
	return err
}

// SetPublished toggles public visibility of a page.
func (r *Repository) SetPublished(ctx context.Context, id string, published bool) (*db.Page, error) {
	return r.Update(ctx, id, UpdateOptions{IsPublished: &published})
}

// SaveContent stores content stamped with an edit version. The write only
// lands when version is newer than the stored content_version, so a slow save
// can never overwrite a later one. Stale writes return ErrStaleVersion. Like
// Update, a content change snapshots the replaced content as a page version.
func (r *Repository) SaveContent(ctx context.Context, id string, doc *content.Document, version int64) (page *db.Page, err error) {
	defer func(start time.Time) { metrics.Observe(r.metrics, "save_content", start, err) }(time.Now())

	raw, err := doc.Bytes()
	if err != nil {
		return nil, fmt.Errorf("encoding content of %s: %w", id, err)
	}

	err = r.db.WithTx(ctx, func(tx *db.DB) error {
		previous, txErr := tx.GetPage(ctx, id)
		if txErr != nil {
			return txErr
		}
		applied, txErr := tx.UpdateContentIfNewer(ctx, id, raw, version, r.actor(), r.nowMillis())
		if txErr != nil {
			return txErr
		}
		if !applied {
			current, txErr := tx.GetPage(ctx, id)
			if txErr != nil {
				return txErr
			}
			return fmt.Errorf("%w: have %d, got %d", ErrStaleVersion, current.ContentVersion, version)
		}
		if len(previous.Content) > 0 && !bytes.Equal(previous.Content, raw) {
			if txErr := r.snapshot(ctx, tx, previous); txErr != nil {
				return txErr
			}
		}
		current, txErr := tx.GetPage(ctx, id)
		if txErr != nil {
			return txErr
		}
		page = current
		return r.index(ctx, tx, current)
	})
	if err != nil {
		if apperr.Is(err, apperr.CategoryConflict) {
			r.metrics.IncStaleSave()
		}
		return nil, fmt.Errorf("saving content of %s: %w", id, err)
	}
	return page, nil
}

// Versions lists the content snapshots of a page, newest first.
func (r *Repository) Versions(ctx context.Context, pageID string) ([]db.PageVersion, error) {
	if _, err := r.db.GetPage(ctx, pageID); err != nil {
		return nil, err
	}
	versions, err := r.db.PageVersions(ctx, pageID)
	if err != nil {
		return nil, fmt.Errorf("listing versions of %s: %w", pageID, err)
	}
	return versions, nil
}

// RestoreVersion writes a snapshot's title and content back to its page. The
// content being replaced is snapshotted in turn.
func (r *Repository) RestoreVersion(ctx context.Context, pageID, versionID string) (*db.Page, error) {
	v, err := r.db.GetVersion(ctx, versionID)
	if err != nil {
		return nil, err
	}
	if v.PageID != pageID {
		return nil, apperr.New(apperr.CategoryValidation,
			fmt.Sprintf("version %s belongs to page %s, not %s", versionID, v.PageID, pageID))
	}
	title := v.Title
	raw := v.Content
	if raw == nil {
		raw = json.RawMessage("{}")
	}
	return r.Update(ctx, pageID, UpdateOptions{Title: &title, Content: raw})
}
