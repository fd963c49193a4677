package pages

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"mycelica/folio/internal/content"
	"mycelica/folio/internal/db"
	"mycelica/folio/internal/metrics"
)

// DuplicateOptions controls where a copy lands. NewParentID wins over AsRoot;
// with neither set the copy becomes a sibling of the source.
type DuplicateOptions struct {
	NewTitle        string
	NewParentID     *string
	AsRoot          bool
	IncludeChildren bool
}

// subtree is a snapshot of a source page and its descendants taken before any
// copy is written.
type subtree struct {
	page     db.Page
	children []*subtree
}

// Duplicate copies a page, and with IncludeChildren its whole subtree. Copies
// are always drafts. Each page is written in its own transaction; when a write
// fails after the first copy, the copies made so far stay and a *PartialError
// lists them. Sub-page
// blocks in copied content that point at a copied descendant are rewritten to
// point at its copy.
func (r *Repository) Duplicate(ctx context.Context, id string, opts DuplicateOptions) (root *db.Page, err error) {
	defer func(start time.Time) { metrics.Observe(r.metrics, "duplicate", start, err) }(time.Now())

	r.mu.Lock()
	defer r.mu.Unlock()

	src, err := r.snapshotSubtree(ctx, id, opts.IncludeChildren)
	if err != nil {
		return nil, fmt.Errorf("duplicating page %s: %w", id, err)
	}

	parentID := src.page.ParentPageID
	switch {
	case opts.NewParentID != nil:
		parentID = opts.NewParentID
	case opts.AsRoot:
		parentID = nil
	}
	title := strings.TrimSpace(opts.NewTitle)
	if title == "" {
		title = src.page.Title + " (copy)"
	}

	copies := map[string]string{}
	var created []string
	var createdPages []*db.Page

	var walk func(node *subtree, parentID *string, title, slugBase string) (*db.Page, error)
	walk = func(node *subtree, parentID *string, title, slugBase string) (*db.Page, error) {
		var p *db.Page
		err := r.db.WithTx(ctx, func(tx *db.DB) error {
			var txErr error
			p, txErr = r.create(ctx, tx, CreateOptions{
				ProjectID:    node.page.ProjectID,
				ParentPageID: parentID,
				Title:        title,
				Slug:         slugBase,
				Content:      node.page.Content,
				Description:  copyString(node.page.Description),
				Icon:         copyString(node.page.Icon),
				IsPublished:  false,
			})
			return txErr
		})
		if err != nil {
			if len(created) == 0 {
				return nil, fmt.Errorf("duplicating page %s: %w", node.page.ID, err)
			}
			return nil, &PartialError{Op: "duplicate", Completed: created, FailedID: node.page.ID, Err: err}
		}
		copies[node.page.ID] = p.ID
		created = append(created, p.ID)
		createdPages = append(createdPages, p)

		for _, child := range node.children {
			pid := p.ID
			if _, err := walk(child, &pid, child.page.Title, child.page.Slug); err != nil {
				return nil, err
			}
		}
		return p, nil
	}

	root, err = walk(src, parentID, title, "")
	if err != nil {
		r.log.Error().Err(err).Str("page_id", id).Strs("created", created).Msg("duplicate stopped")
		return nil, err
	}

	if len(copies) > 1 {
		for _, p := range createdPages {
			if err := r.relinkSubPages(ctx, p, copies); err != nil {
				return nil, &PartialError{Op: "duplicate", Completed: created, FailedID: p.ID, Err: err}
			}
		}
		if root, err = r.db.GetPage(ctx, root.ID); err != nil {
			return nil, err
		}
	}

	r.log.Debug().Str("page_id", id).Str("copy_id", root.ID).Int("count", len(created)).Msg("page duplicated")
	return root, nil
}

// snapshotSubtree reads the source page and, when recursive, every
// descendant. Reading everything first keeps a copy placed inside its own
// source subtree from being copied again.
func (r *Repository) snapshotSubtree(ctx context.Context, id string, recursive bool) (*subtree, error) {
	page, err := r.db.GetPage(ctx, id)
	if err != nil {
		return nil, err
	}
	root := &subtree{page: *page}
	if !recursive {
		return root, nil
	}

	visited := map[string]bool{page.ID: true}
	queue := []*subtree{root}
	for len(queue) > 0 {
		node := queue[0]
		queue = queue[1:]
		children, err := r.db.ChildPages(ctx, node.page.ID)
		if err != nil {
			return nil, err
		}
		for _, c := range children {
			if visited[c.ID] {
				continue
			}
			visited[c.ID] = true
			child := &subtree{page: c}
			node.children = append(node.children, child)
			queue = append(queue, child)
		}
	}
	return root, nil
}

// relinkSubPages points sub-page blocks of a copied page at the copies of
// their targets.
func (r *Repository) relinkSubPages(ctx context.Context, p *db.Page, copies map[string]string) error {
	if len(p.Content) == 0 {
		return nil
	}
	doc, err := content.Parse(p.Content)
	if err != nil {
		return err
	}
	changed := false
	for _, ref := range doc.ExtractSubPageReferences() {
		target, ok := copies[ref.PageID]
		if !ok {
			continue
		}
		if err := doc.MergeProps(ref.BlockID, map[string]any{content.PropPageID: target}); err != nil {
			return err
		}
		changed = true
	}
	if !changed {
		return nil
	}
	raw, err := doc.Bytes()
	if err != nil {
		return err
	}
	_, err = r.db.UpdatePage(ctx, p.ID, db.PageChanges{
		"content":    json.RawMessage(raw),
		"updated_at": r.nowMillis(),
	})
	return err
}
