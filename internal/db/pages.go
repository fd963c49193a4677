package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

const pageColumns = `id, project_id, parent_page_id, title, slug, order_index,
	content, content_version, is_published, icon, description,
	created_by, updated_by, created_at, updated_at`

// scanPage scans a row into a Page. The row must have all pageColumns in order.
func scanPage(scanner interface{ Scan(dest ...any) error }) (Page, error) {
	var p Page
	var content sql.NullString
	err := scanner.Scan(
		&p.ID, &p.ProjectID, &p.ParentPageID, &p.Title, &p.Slug, &p.OrderIndex,
		&content, &p.ContentVersion, &p.IsPublished, &p.Icon, &p.Description,
		&p.CreatedBy, &p.UpdatedBy, &p.CreatedAt, &p.UpdatedAt,
	)
	if content.Valid && content.String != "" {
		p.Content = json.RawMessage(content.String)
	}
	return p, err
}

func collectPages(rows *sql.Rows) ([]Page, error) {
	defer rows.Close()
	var pages []Page
	for rows.Next() {
		p, err := scanPage(rows)
		if err != nil {
			return nil, err
		}
		pages = append(pages, p)
	}
	return pages, rows.Err()
}

// parentClause builds the sibling-group predicate. A nil parent must use
// IS NULL; "= NULL" never matches.
func parentClause(parentID *string) (string, []any) {
	if parentID == nil {
		return "parent_page_id IS NULL", nil
	}
	return "parent_page_id = ?", []any{*parentID}
}

func nullableJSON(raw json.RawMessage) any {
	if len(raw) == 0 {
		return nil
	}
	return string(raw)
}

// GetPage returns a single page by ID, or ErrNotFound
func (d *DB) GetPage(ctx context.Context, id string) (*Page, error) {
	row := d.q.QueryRowContext(ctx, `SELECT `+pageColumns+` FROM pages WHERE id = ?`, id)
	p, err := scanPage(row)
	if err != nil {
		return nil, notFound(err, "page", id)
	}
	return &p, nil
}

// ProjectPages returns every page of a project, ordered for tree building:
// order_index ascending, then creation time.
func (d *DB) ProjectPages(ctx context.Context, projectID string) ([]Page, error) {
	rows, err := d.q.QueryContext(ctx, `
		SELECT `+pageColumns+`
		FROM pages WHERE project_id = ?
		ORDER BY order_index, created_at, id
	`, projectID)
	if err != nil {
		return nil, err
	}
	return collectPages(rows)
}

// SiblingPages returns the pages sharing (project_id, parent_page_id), ordered by order_index.
func (d *DB) SiblingPages(ctx context.Context, projectID string, parentID *string) ([]Page, error) {
	clause, args := parentClause(parentID)
	rows, err := d.q.QueryContext(ctx, `
		SELECT `+pageColumns+`
		FROM pages WHERE project_id = ? AND `+clause+`
		ORDER BY order_index, created_at, id
	`, append([]any{projectID}, args...)...)
	if err != nil {
		return nil, err
	}
	return collectPages(rows)
}

// ChildPages returns the direct children of a page, ordered by order_index.
func (d *DB) ChildPages(ctx context.Context, parentID string) ([]Page, error) {
	rows, err := d.q.QueryContext(ctx, `
		SELECT `+pageColumns+`
		FROM pages WHERE parent_page_id = ?
		ORDER BY order_index, created_at, id
	`, parentID)
	if err != nil {
		return nil, err
	}
	return collectPages(rows)
}

// SearchByIDPrefix finds pages whose ID starts with the given prefix.
func (d *DB) SearchByIDPrefix(ctx context.Context, prefix string, limit int) ([]Page, error) {
	rows, err := d.q.QueryContext(ctx, `
		SELECT `+pageColumns+`
		FROM pages WHERE id LIKE ? LIMIT ?
	`, prefix+"%", limit)
	if err != nil {
		return nil, err
	}
	return collectPages(rows)
}

// SlugTaken reports whether a sibling (other than excludeID) already uses slug.
func (d *DB) SlugTaken(ctx context.Context, projectID string, parentID *string, slug, excludeID string) (bool, error) {
	clause, args := parentClause(parentID)
	query := `SELECT COUNT(*) FROM pages WHERE project_id = ? AND ` + clause + ` AND slug = ? AND id != ?`
	params := append([]any{projectID}, args...)
	params = append(params, slug, excludeID)

	var n int
	if err := d.q.QueryRowContext(ctx, query, params...).Scan(&n); err != nil {
		return false, fmt.Errorf("checking slug %q: %w", slug, err)
	}
	return n > 0, nil
}

// MaxOrderIndex returns the highest sibling order_index, or -1 when the group is empty.
func (d *DB) MaxOrderIndex(ctx context.Context, projectID string, parentID *string) (int, error) {
	clause, args := parentClause(parentID)
	var max sql.NullInt64
	err := d.q.QueryRowContext(ctx,
		`SELECT MAX(order_index) FROM pages WHERE project_id = ? AND `+clause,
		append([]any{projectID}, args...)...,
	).Scan(&max)
	if err != nil {
		return 0, fmt.Errorf("reading max order_index: %w", err)
	}
	if !max.Valid {
		return -1, nil
	}
	return int(max.Int64), nil
}

// InsertPage writes a new page row.
func (d *DB) InsertPage(ctx context.Context, p *Page) error {
	_, err := d.q.ExecContext(ctx, `
		INSERT INTO pages (`+pageColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		p.ID, p.ProjectID, p.ParentPageID, p.Title, p.Slug, p.OrderIndex,
		nullableJSON(p.Content), p.ContentVersion, p.IsPublished, p.Icon, p.Description,
		p.CreatedBy, p.UpdatedBy, p.CreatedAt, p.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("inserting page: %w", err)
	}
	return nil
}

// updatableColumns is the allow-list for UpdatePage.
var updatableColumns = map[string]bool{
	"title":        true,
	"content":      true,
	"description":  true,
	"icon":         true,
	"is_published": true,
	"updated_by":   true,
	"updated_at":   true,
}

// PageChanges maps column names to new values. Only allow-listed columns are accepted.
type PageChanges map[string]any

// UpdatePage applies changes to one page and returns the number of rows affected.
func (d *DB) UpdatePage(ctx context.Context, id string, changes PageChanges) (int64, error) {
	if len(changes) == 0 {
		return 0, nil
	}
	cols := make([]string, 0, len(changes))
	for col := range changes {
		if !updatableColumns[col] {
			return 0, fmt.Errorf("column %q is not updatable", col)
		}
		cols = append(cols, col)
	}
	// deterministic statement text
	sort.Strings(cols)

	sets := make([]string, len(cols))
	args := make([]any, 0, len(cols)+1)
	for i, col := range cols {
		sets[i] = col + " = ?"
		v := changes[col]
		if raw, ok := v.(json.RawMessage); ok {
			v = nullableJSON(raw)
		}
		args = append(args, v)
	}
	args = append(args, id)

	res, err := d.q.ExecContext(ctx,
		`UPDATE pages SET `+strings.Join(sets, ", ")+` WHERE id = ?`, args...)
	if err != nil {
		return 0, fmt.Errorf("updating page %s: %w", id, err)
	}
	return res.RowsAffected()
}

// UpdateContentIfNewer stores content only when version is greater than the
// stored content_version. It reports whether the write happened.
func (d *DB) UpdateContentIfNewer(ctx context.Context, id string, content json.RawMessage, version int64, updatedBy *string, now int64) (bool, error) {
	res, err := d.q.ExecContext(ctx, `
		UPDATE pages SET content = ?, content_version = ?, updated_by = ?, updated_at = ?
		WHERE id = ? AND content_version < ?
	`, nullableJSON(content), version, updatedBy, now, id, version)
	if err != nil {
		return false, fmt.Errorf("saving content of page %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// SetParent relocates a page within its project.
func (d *DB) SetParent(ctx context.Context, id string, parentID *string, orderIndex int, slug string, updatedBy *string, now int64) error {
	res, err := d.q.ExecContext(ctx, `
		UPDATE pages SET parent_page_id = ?, order_index = ?, slug = ?, updated_by = ?, updated_at = ?
		WHERE id = ?
	`, parentID, orderIndex, slug, updatedBy, now, id)
	if err != nil {
		return fmt.Errorf("moving page %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("page %s: %w", id, ErrNotFound)
	}
	return nil
}

// DeletePage removes a single page row and its search entry.
func (d *DB) DeletePage(ctx context.Context, id string) error {
	res, err := d.q.ExecContext(ctx, `DELETE FROM pages WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting page %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("page %s: %w", id, ErrNotFound)
	}
	if _, err := d.q.ExecContext(ctx, `DELETE FROM pages_fts WHERE page_id = ?`, id); err != nil {
		return fmt.Errorf("unindexing page %s: %w", id, err)
	}
	return nil
}
