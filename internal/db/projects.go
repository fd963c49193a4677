package db

import (
	"context"
	"fmt"
)

const projectColumns = `id, name, slug, description, is_public, created_by, created_at, updated_at`

func scanProject(scanner interface{ Scan(dest ...any) error }) (Project, error) {
	var p Project
	err := scanner.Scan(
		&p.ID, &p.Name, &p.Slug, &p.Description, &p.IsPublic,
		&p.CreatedBy, &p.CreatedAt, &p.UpdatedAt,
	)
	return p, err
}

// InsertProject writes a new project row.
func (d *DB) InsertProject(ctx context.Context, p *Project) error {
	_, err := d.q.ExecContext(ctx, `
		INSERT INTO projects (`+projectColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, p.ID, p.Name, p.Slug, p.Description, p.IsPublic, p.CreatedBy, p.CreatedAt, p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("inserting project: %w", err)
	}
	return nil
}

// GetProject returns a project by ID, or ErrNotFound
func (d *DB) GetProject(ctx context.Context, id string) (*Project, error) {
	row := d.q.QueryRowContext(ctx, `SELECT `+projectColumns+` FROM projects WHERE id = ?`, id)
	p, err := scanProject(row)
	if err != nil {
		return nil, notFound(err, "project", id)
	}
	return &p, nil
}

// GetProjectBySlug returns a project by its slug, or ErrNotFound
func (d *DB) GetProjectBySlug(ctx context.Context, slug string) (*Project, error) {
	row := d.q.QueryRowContext(ctx, `SELECT `+projectColumns+` FROM projects WHERE slug = ?`, slug)
	p, err := scanProject(row)
	if err != nil {
		return nil, notFound(err, "project", slug)
	}
	return &p, nil
}

// ProjectSlugTaken reports whether any project already uses slug.
func (d *DB) ProjectSlugTaken(ctx context.Context, slug string) (bool, error) {
	var n int
	if err := d.q.QueryRowContext(ctx, `SELECT COUNT(*) FROM projects WHERE slug = ?`, slug).Scan(&n); err != nil {
		return false, fmt.Errorf("checking project slug %q: %w", slug, err)
	}
	return n > 0, nil
}

// AllProjects returns all projects ordered by name
func (d *DB) AllProjects(ctx context.Context) ([]Project, error) {
	rows, err := d.q.QueryContext(ctx, `SELECT `+projectColumns+` FROM projects ORDER BY name, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var projects []Project
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, err
		}
		projects = append(projects, p)
	}
	return projects, rows.Err()
}
