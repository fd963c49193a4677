package pages

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"mycelica/folio/internal/apperr"
	"mycelica/folio/internal/content"
	"mycelica/folio/internal/db"
	"mycelica/folio/internal/metrics"
	"mycelica/folio/internal/slug"
)

// CreateOptions describes a new page. Slug and OrderIndex are derived when omitted.
type CreateOptions struct {
	ProjectID    string
	ParentPageID *string
	Title        string
	Slug         string
	OrderIndex   *int
	Content      json.RawMessage
	Description  *string
	Icon         *string
	IsPublished  bool
}

// Create validates and persists a new page. The slug is unique among the
// page's siblings (base, base-1, base-2, ...) and the order index defaults to
// max sibling order + 1.
func (r *Repository) Create(ctx context.Context, opts CreateOptions) (page *db.Page, err error) {
	defer func(start time.Time) { metrics.Observe(r.metrics, "create", start, err) }(time.Now())

	r.mu.Lock()
	defer r.mu.Unlock()

	err = r.db.WithTx(ctx, func(tx *db.DB) error {
		var txErr error
		page, txErr = r.create(ctx, tx, opts)
		return txErr
	})
	if err != nil {
		return nil, fmt.Errorf("creating page %q: %w", opts.Title, err)
	}
	r.log.Debug().
		Str("page_id", page.ID).
		Str("project_id", page.ProjectID).
		Str("slug", page.Slug).
		Int("order_index", page.OrderIndex).
		Msg("page created")
	return page, nil
}

// create does the work of Create against q; the caller holds r.mu.
func (r *Repository) create(ctx context.Context, q *db.DB, opts CreateOptions) (*db.Page, error) {
	title := strings.TrimSpace(opts.Title)
	if title == "" {
		return nil, ErrTitleRequired
	}
	if opts.ProjectID == "" {
		return nil, apperr.New(apperr.CategoryValidation, "project id is required")
	}

	base := opts.Slug
	if base == "" {
		base = title
	}
	base = slug.Generate(base)
	if base == "" {
		return nil, ErrEmptySlug
	}

	if _, err := q.GetProject(ctx, opts.ProjectID); err != nil {
		return nil, err
	}
	if opts.ParentPageID != nil {
		parent, err := q.GetPage(ctx, *opts.ParentPageID)
		if err != nil {
			return nil, fmt.Errorf("parent: %w", err)
		}
		if parent.ProjectID != opts.ProjectID {
			return nil, ErrCrossProject
		}
	}

	var body json.RawMessage
	if len(opts.Content) > 0 {
		doc, err := content.Parse(opts.Content)
		if err != nil {
			return nil, apperr.Wrap(apperr.CategoryValidation, "invalid content", err)
		}
		body, err = doc.Bytes()
		if err != nil {
			return nil, err
		}
	}

	s, err := r.allocateSlug(ctx, q, opts.ProjectID, opts.ParentPageID, base, "")
	if err != nil {
		return nil, err
	}

	order := 0
	if opts.OrderIndex != nil {
		order = *opts.OrderIndex
	} else {
		max, err := q.MaxOrderIndex(ctx, opts.ProjectID, opts.ParentPageID)
		if err != nil {
			return nil, err
		}
		order = max + 1
	}

	now := r.nowMillis()
	p := &db.Page{
		ID:           r.newID(),
		ProjectID:    opts.ProjectID,
		ParentPageID: copyString(opts.ParentPageID),
		Title:        title,
		Slug:         s,
		OrderIndex:   order,
		Content:      body,
		IsPublished:  opts.IsPublished,
		Icon:         opts.Icon,
		Description:  opts.Description,
		CreatedBy:    r.actor(),
		UpdatedBy:    r.actor(),
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := q.InsertPage(ctx, p); err != nil {
		return nil, err
	}
	if err := r.index(ctx, q, p); err != nil {
		return nil, err
	}
	return p, nil
}

// allocateSlug probes base, base-1, base-2, ... within the sibling group and
// returns the first free candidate. excludeID lets a page keep its own slug
// when it is re-checked (moves).
func (r *Repository) allocateSlug(ctx context.Context, q *db.DB, projectID string, parentID *string, base, excludeID string) (string, error) {
	for attempt := 0; attempt < r.maxAttempts; attempt++ {
		candidate := slug.Candidate(base, attempt)
		taken, err := q.SlugTaken(ctx, projectID, parentID, candidate, excludeID)
		if err != nil {
			return "", err
		}
		if !taken {
			r.metrics.ObserveSlugProbes(attempt + 1)
			return candidate, nil
		}
	}
	r.metrics.ObserveSlugProbes(r.maxAttempts)
	return "", fmt.Errorf("%w: %q after %d attempts", ErrSlugExhausted, base, r.maxAttempts)
}

func copyString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}
