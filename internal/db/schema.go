package db

import (
	"context"
	"fmt"
)

const schema = `
CREATE TABLE IF NOT EXISTS projects (
	id          TEXT PRIMARY KEY,
	name        TEXT NOT NULL,
	slug        TEXT NOT NULL UNIQUE,
	description TEXT,
	is_public   INTEGER NOT NULL DEFAULT 0,
	created_by  TEXT,
	created_at  INTEGER NOT NULL,
	updated_at  INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS pages (
	id              TEXT PRIMARY KEY,
	project_id      TEXT NOT NULL REFERENCES projects(id) ON DELETE CASCADE,
	parent_page_id  TEXT,
	title           TEXT NOT NULL,
	slug            TEXT NOT NULL,
	order_index     INTEGER NOT NULL DEFAULT 0,
	content         TEXT,
	content_version INTEGER NOT NULL DEFAULT 0,
	is_published    INTEGER NOT NULL DEFAULT 0,
	icon            TEXT,
	description     TEXT,
	created_by      TEXT,
	updated_by      TEXT,
	created_at      INTEGER NOT NULL,
	updated_at      INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_pages_siblings ON pages(project_id, parent_page_id, order_index);
CREATE UNIQUE INDEX IF NOT EXISTS idx_pages_sibling_slug ON pages(project_id, IFNULL(parent_page_id, ''), slug);

CREATE TABLE IF NOT EXISTS page_versions (
	id         TEXT PRIMARY KEY,
	page_id    TEXT NOT NULL REFERENCES pages(id) ON DELETE CASCADE,
	version    INTEGER NOT NULL,
	title      TEXT NOT NULL,
	content    TEXT,
	created_by TEXT,
	created_at INTEGER NOT NULL
);
CREATE UNIQUE INDEX IF NOT EXISTS idx_page_versions ON page_versions(page_id, version);

CREATE VIRTUAL TABLE IF NOT EXISTS pages_fts USING fts5(
	page_id UNINDEXED,
	title,
	description,
	body
);
`

func (d *DB) migrate(ctx context.Context) error {
	if _, err := d.q.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("creating tables: %w", err)
	}
	return nil
}
