package pages

import (
	"context"
	"fmt"
	"strings"

	"mycelica/folio/internal/apperr"
	"mycelica/folio/internal/db"
	"mycelica/folio/internal/slug"
)

// CreateProject creates a project with a globally unique slug derived from name.
func (r *Repository) CreateProject(ctx context.Context, name string, description *string) (*db.Project, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, apperr.New(apperr.CategoryValidation, "project name is required")
	}
	base := slug.Generate(name)
	if base == "" {
		return nil, ErrEmptySlug
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	var project *db.Project
	err := r.db.WithTx(ctx, func(tx *db.DB) error {
		s := ""
		for attempt := 0; attempt < r.maxAttempts; attempt++ {
			candidate := slug.Candidate(base, attempt)
			taken, err := tx.ProjectSlugTaken(ctx, candidate)
			if err != nil {
				return err
			}
			if !taken {
				s = candidate
				break
			}
		}
		if s == "" {
			return fmt.Errorf("%w: %q after %d attempts", ErrSlugExhausted, base, r.maxAttempts)
		}
		now := r.nowMillis()
		project = &db.Project{
			ID:          r.newID(),
			Name:        name,
			Slug:        s,
			Description: copyString(description),
			CreatedBy:   r.actor(),
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		return tx.InsertProject(ctx, project)
	})
	if err != nil {
		return nil, fmt.Errorf("creating project %q: %w", name, err)
	}
	r.log.Debug().Str("project_id", project.ID).Str("slug", project.Slug).Msg("project created")
	return project, nil
}

// GetProject returns a project by id, falling back to its slug.
func (r *Repository) GetProject(ctx context.Context, ref string) (*db.Project, error) {
	p, err := r.db.GetProject(ctx, ref)
	if err == nil || !isNotFound(err) {
		return p, err
	}
	return r.db.GetProjectBySlug(ctx, ref)
}

// ListProjects returns every project ordered by name.
func (r *Repository) ListProjects(ctx context.Context) ([]db.Project, error) {
	return r.db.AllProjects(ctx)
}
