package pages

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"mycelica/folio/internal/content"
	"mycelica/folio/internal/db"
	"mycelica/folio/internal/metrics"
)

// DefaultSlugMaxAttempts bounds the sibling slug probe.
const DefaultSlugMaxAttempts = 100

// Options configures a Repository.
type Options struct {
	// Principal is written to created_by/updated_by.
	Principal       string
	SlugMaxAttempts int
	Logger          zerolog.Logger
	Metrics         metrics.Recorder
	// Now and NewID are overridable for tests.
	Now   func() time.Time
	NewID func() string
}

// Repository owns page persistence and the sibling slug / order invariants.
type Repository struct {
	db *db.DB
	// mu serializes hierarchy writes issued through this process.
	mu          sync.Mutex
	principal   string
	maxAttempts int
	log         zerolog.Logger
	metrics     metrics.Recorder
	now         func() time.Time
	newID       func() string
}

// NewRepository wires a Repository to an open database.
func NewRepository(d *db.DB, opts Options) *Repository {
	r := &Repository{
		db:          d,
		principal:   opts.Principal,
		maxAttempts: opts.SlugMaxAttempts,
		log:         opts.Logger,
		metrics:     opts.Metrics,
		now:         opts.Now,
		newID:       opts.NewID,
	}
	if r.maxAttempts <= 0 {
		r.maxAttempts = DefaultSlugMaxAttempts
	}
	if r.metrics == nil {
		r.metrics = metrics.NoopRecorder{}
	}
	if r.now == nil {
		r.now = time.Now
	}
	if r.newID == nil {
		r.newID = uuid.NewString
	}
	return r
}

func (r *Repository) nowMillis() int64 {
	return r.now().UnixMilli()
}

func (r *Repository) actor() *string {
	if r.principal == "" {
		return nil
	}
	p := r.principal
	return &p
}

// Get returns a page by id.
func (r *Repository) Get(ctx context.Context, id string) (*db.Page, error) {
	return r.db.GetPage(ctx, id)
}

// ListProject returns all pages of a project ordered by order_index, ready for tree.Build.
func (r *Repository) ListProject(ctx context.Context, projectID string) ([]db.Page, error) {
	pages, err := r.db.ProjectPages(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("listing pages of project %s: %w", projectID, err)
	}
	return pages, nil
}

// Siblings returns the pages sharing (projectID, parentID), ordered by order_index.
func (r *Repository) Siblings(ctx context.Context, projectID string, parentID *string) ([]db.Page, error) {
	pages, err := r.db.SiblingPages(ctx, projectID, parentID)
	if err != nil {
		return nil, fmt.Errorf("listing siblings: %w", err)
	}
	return pages, nil
}

// Children returns the direct children of a page.
func (r *Repository) Children(ctx context.Context, id string) ([]db.Page, error) {
	pages, err := r.db.ChildPages(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("listing children of %s: %w", id, err)
	}
	return pages, nil
}

// FindByIDPrefix returns up to limit pages whose id starts with prefix.
func (r *Repository) FindByIDPrefix(ctx context.Context, prefix string, limit int) ([]db.Page, error) {
	return r.db.SearchByIDPrefix(ctx, prefix, limit)
}

// Search runs the backend full-text search within a project.
func (r *Repository) Search(ctx context.Context, projectID, query string, publishedOnly bool) ([]db.Page, error) {
	pages, err := r.db.SearchPages(ctx, projectID, query, publishedOnly, 50)
	if err != nil {
		return nil, fmt.Errorf("searching project %s: %w", projectID, err)
	}
	return pages, nil
}

// ResolvePath finds a page by its materialized path, e.g. "/guide/install".
func (r *Repository) ResolvePath(ctx context.Context, projectID, path string) (*db.Page, error) {
	segments := strings.Split(strings.Trim(path, "/"), "/")
	if len(segments) == 0 || segments[0] == "" {
		return nil, fmt.Errorf("empty path: %w", ErrNotFound)
	}

	var parentID *string
	var current *db.Page
	for _, seg := range segments {
		siblings, err := r.db.SiblingPages(ctx, projectID, parentID)
		if err != nil {
			return nil, fmt.Errorf("resolving %s: %w", path, err)
		}
		current = nil
		for i := range siblings {
			if siblings[i].Slug == seg {
				current = &siblings[i]
				break
			}
		}
		if current == nil {
			return nil, fmt.Errorf("path %s: %w", path, ErrNotFound)
		}
		id := current.ID
		parentID = &id
	}
	return current, nil
}

// index refreshes the search entry of a page.
func (r *Repository) index(ctx context.Context, q *db.DB, p *db.Page) error {
	body := ""
	if len(p.Content) > 0 {
		doc, err := content.Parse(p.Content)
		if err == nil {
			body = doc.PlainText()
		}
	}
	desc := ""
	if p.Description != nil {
		desc = *p.Description
	}
	return q.IndexPage(ctx, p.ID, p.Title, desc, body)
}
