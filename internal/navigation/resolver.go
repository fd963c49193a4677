package navigation

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"mycelica/folio/internal/apperr"
	"mycelica/folio/internal/content"
	"mycelica/folio/internal/db"
	"mycelica/folio/internal/tree"
)

// ErrParentCycle is returned when a page's parent chain loops back on itself.
var ErrParentCycle = apperr.New(apperr.CategoryCycle, "parent chain loops")

// Store is the read side the resolver needs. *pages.Repository satisfies it.
type Store interface {
	Get(ctx context.Context, id string) (*db.Page, error)
	Siblings(ctx context.Context, projectID string, parentID *string) ([]db.Page, error)
	GetProject(ctx context.Context, ref string) (*db.Project, error)
}

// Breadcrumb is one ancestor on the way from the root to a page.
type Breadcrumb struct {
	ID    string `json:"id"`
	Title string `json:"title"`
	Slug  string `json:"slug"`
	Path  string `json:"path"`
	Level int    `json:"level"`
}

// Context is everything a page view needs to render its navigation.
type Context struct {
	CurrentPage     *db.Page                   `json:"current_page"`
	Breadcrumbs     []Breadcrumb               `json:"breadcrumbs"`
	Siblings        []db.Page                  `json:"siblings"`
	PreviousPage    *db.Page                   `json:"previous_page,omitempty"`
	NextPage        *db.Page                   `json:"next_page,omitempty"`
	ContentChildren []content.SubPageReference `json:"content_children"`
	Project         *db.Project                `json:"project"`
}

// Resolver computes navigation contexts from the stored hierarchy.
type Resolver struct {
	store Store
	log   zerolog.Logger
}

func NewResolver(store Store, log zerolog.Logger) *Resolver {
	return &Resolver{store: store, log: log}
}

// Context resolves the navigation around pageID.
func (r *Resolver) Context(ctx context.Context, pageID string) (*Context, error) {
	page, err := r.store.Get(ctx, pageID)
	if err != nil {
		return nil, fmt.Errorf("resolving navigation for %s: %w", pageID, err)
	}

	crumbs, err := r.breadcrumbs(ctx, page)
	if err != nil {
		return nil, fmt.Errorf("resolving navigation for %s: %w", pageID, err)
	}

	siblings, err := r.store.Siblings(ctx, page.ProjectID, page.ParentPageID)
	if err != nil {
		return nil, fmt.Errorf("resolving navigation for %s: %w", pageID, err)
	}
	if siblings == nil {
		siblings = []db.Page{}
	}

	nav := &Context{
		CurrentPage: page,
		Breadcrumbs: crumbs,
		Siblings:    siblings,
	}
	for i := range siblings {
		if siblings[i].ID != page.ID {
			continue
		}
		if i > 0 {
			nav.PreviousPage = &siblings[i-1]
		}
		if i+1 < len(siblings) {
			nav.NextPage = &siblings[i+1]
		}
		break
	}

	nav.ContentChildren = []content.SubPageReference{}
	if len(page.Content) > 0 {
		doc, err := content.Parse(page.Content)
		if err != nil {
			// unreadable content only costs the inline links
			r.log.Warn().Err(err).Str("page_id", page.ID).Msg("content not parsed for navigation")
		} else {
			nav.ContentChildren = doc.ExtractSubPageReferences()
		}
	}

	nav.Project, err = r.store.GetProject(ctx, page.ProjectID)
	if err != nil {
		return nil, fmt.Errorf("resolving project of %s: %w", pageID, err)
	}
	return nav, nil
}

// breadcrumbs walks parent pointers up to the root. A parent that no longer
// exists or belongs to another project ends the walk, which matches how the
// tree builder roots orphans.
func (r *Resolver) breadcrumbs(ctx context.Context, page *db.Page) ([]Breadcrumb, error) {
	chain := []*db.Page{page}
	seen := map[string]bool{page.ID: true}
	current := page
	for current.ParentPageID != nil {
		parent, err := r.store.Get(ctx, *current.ParentPageID)
		if err != nil {
			if apperr.Is(err, apperr.CategoryNotFound) {
				r.log.Debug().Str("page_id", current.ID).Msg("breadcrumb walk stopped at missing parent")
				break
			}
			return nil, err
		}
		if parent.ProjectID != page.ProjectID {
			r.log.Debug().Str("page_id", current.ID).Msg("breadcrumb walk stopped at parent in another project")
			break
		}
		if seen[parent.ID] {
			return nil, fmt.Errorf("%w at page %s", ErrParentCycle, parent.ID)
		}
		seen[parent.ID] = true
		chain = append(chain, parent)
		current = parent
	}

	crumbs := make([]Breadcrumb, 0, len(chain))
	slugs := make([]string, 0, len(chain))
	for i := len(chain) - 1; i >= 0; i-- {
		p := chain[i]
		slugs = append(slugs, p.Slug)
		crumbs = append(crumbs, Breadcrumb{
			ID:    p.ID,
			Title: p.Title,
			Slug:  p.Slug,
			Path:  tree.PathOf(slugs...),
			Level: len(crumbs),
		})
	}
	return crumbs, nil
}
