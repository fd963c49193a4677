package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
)

const versionColumns = `id, page_id, version, title, content, created_by, created_at`

func scanVersion(scanner interface{ Scan(dest ...any) error }) (PageVersion, error) {
	var v PageVersion
	var content sql.NullString
	err := scanner.Scan(&v.ID, &v.PageID, &v.Version, &v.Title, &content, &v.CreatedBy, &v.CreatedAt)
	if content.Valid && content.String != "" {
		v.Content = json.RawMessage(content.String)
	}
	return v, err
}

// InsertVersion stores a snapshot with the next version number for its page
// and returns that number.
func (d *DB) InsertVersion(ctx context.Context, v *PageVersion) (int, error) {
	var next int
	err := d.q.QueryRowContext(ctx,
		`SELECT IFNULL(MAX(version), 0) + 1 FROM page_versions WHERE page_id = ?`, v.PageID,
	).Scan(&next)
	if err != nil {
		return 0, fmt.Errorf("reading version counter: %w", err)
	}
	v.Version = next

	_, err = d.q.ExecContext(ctx, `
		INSERT INTO page_versions (`+versionColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, v.ID, v.PageID, v.Version, v.Title, nullableJSON(v.Content), v.CreatedBy, v.CreatedAt)
	if err != nil {
		return 0, fmt.Errorf("inserting version: %w", err)
	}
	return next, nil
}

// PageVersions lists the snapshots of a page, newest first.
func (d *DB) PageVersions(ctx context.Context, pageID string) ([]PageVersion, error) {
	rows, err := d.q.QueryContext(ctx, `
		SELECT `+versionColumns+` FROM page_versions
		WHERE page_id = ? ORDER BY version DESC
	`, pageID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var versions []PageVersion
	for rows.Next() {
		v, err := scanVersion(rows)
		if err != nil {
			return nil, err
		}
		versions = append(versions, v)
	}
	return versions, rows.Err()
}

// GetVersion returns one snapshot by ID, or ErrNotFound
func (d *DB) GetVersion(ctx context.Context, id string) (*PageVersion, error) {
	row := d.q.QueryRowContext(ctx, `SELECT `+versionColumns+` FROM page_versions WHERE id = ?`, id)
	v, err := scanVersion(row)
	if err != nil {
		return nil, notFound(err, "version", id)
	}
	return &v, nil
}
