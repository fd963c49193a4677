package blocks

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"mycelica/folio/internal/apperr"
	"mycelica/folio/internal/content"
	"mycelica/folio/internal/db"
	"mycelica/folio/internal/pages"
)

// State is the lifecycle of a sub-page block.
type State int

const (
	// Uninitialized: the block exists but links no page yet.
	Uninitialized State = iota
	// Creating: the target page is being created.
	Creating
	// Ready: the block links an existing page.
	Ready
	// Failed: creating the target page failed; only Retry leaves this state.
	Failed
)

func (s State) String() string {
	switch s {
	case Uninitialized:
		return "uninitialized"
	case Creating:
		return "creating"
	case Ready:
		return "ready"
	case Failed:
		return "failed"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// ErrInvalidTransition is returned when an action is not allowed in the
// block's current state.
var ErrInvalidTransition = apperr.New(apperr.CategoryConflict, "invalid sub-page block transition")

// ErrNotSubPage is returned when SubPage is asked for a block of another type.
var ErrNotSubPage = apperr.New(apperr.CategoryValidation, "block is not a sub-page block")

// DefaultSubPageTitle names pages created from untitled sub-page blocks.
const DefaultSubPageTitle = "Untitled"

// SubPageBlock lazily creates the page a sub-page block links to.
// Materialize runs at most once per instance; after a failure only an
// explicit Retry creates again. Obtain instances through Session.SubPage.
type SubPageBlock struct {
	session *Session
	blockID string

	mu      sync.Mutex
	state   State
	started bool
	pageID  string
	title   string
	err     error
}

// SubPage binds a sub-page block of the session's page. Every call for the
// same block returns the same handle, so the block materializes at most once
// per session. A block whose props already carry a pageId starts out Ready.
func (s *Session) SubPage(blockID string) (*SubPageBlock, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if sp, ok := s.subPages[blockID]; ok {
		return sp, nil
	}
	b, ok := s.doc.Block(blockID)
	if !ok {
		return nil, s.Bridge.lookupFailed(s.PageID, blockID, content.ErrBlockNotFound)
	}
	if !content.IsSubPage(b.Type) {
		return nil, fmt.Errorf("%w: %s has type %s", ErrNotSubPage, blockID, b.Type)
	}
	pageID, title := b.SubPageProps()
	sp := &SubPageBlock{session: s, blockID: blockID, title: title}
	if pageID != "" {
		sp.state = Ready
		sp.pageID = pageID
		sp.started = true
	}
	s.subPages[blockID] = sp
	return sp, nil
}

// State reports the current lifecycle state.
func (b *SubPageBlock) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// PageID is the linked page, empty until Ready.
func (b *SubPageBlock) PageID() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.state != Ready {
		return ""
	}
	return b.pageID
}

// Err is the failure that put the block in Failed.
func (b *SubPageBlock) Err() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.err
}

// Materialize creates the target page as a child of the session's page and
// links it from the block. It is only valid from Uninitialized, once.
func (b *SubPageBlock) Materialize(ctx context.Context) (*db.Page, error) {
	b.mu.Lock()
	if b.state != Uninitialized || b.started {
		state := b.state
		b.mu.Unlock()
		return nil, fmt.Errorf("%w: materialize from %s", ErrInvalidTransition, state)
	}
	b.started = true
	b.state = Creating
	b.mu.Unlock()
	return b.create(ctx)
}

// Retry re-enters Creating after a failure.
func (b *SubPageBlock) Retry(ctx context.Context) (*db.Page, error) {
	b.mu.Lock()
	if b.state != Failed {
		state := b.state
		b.mu.Unlock()
		return nil, fmt.Errorf("%w: retry from %s", ErrInvalidTransition, state)
	}
	b.state = Creating
	b.err = nil
	b.mu.Unlock()
	return b.create(ctx)
}

// Target loads the linked page.
func (b *SubPageBlock) Target(ctx context.Context) (*db.Page, error) {
	id := b.PageID()
	if id == "" {
		return nil, fmt.Errorf("%w: %s", ErrNoLinkedPage, b.blockID)
	}
	return b.session.Bridge.store.Get(ctx, id)
}

// create runs in Creating. A page created by an earlier attempt whose link
// write failed is reused instead of creating a second one.
func (b *SubPageBlock) create(ctx context.Context) (*db.Page, error) {
	s := b.session
	title := strings.TrimSpace(b.title)
	if title == "" {
		title = DefaultSubPageTitle
	}

	b.mu.Lock()
	pageID := b.pageID
	b.mu.Unlock()

	var page *db.Page
	var err error
	if pageID == "" {
		parent := s.PageID
		page, err = s.Bridge.store.Create(ctx, pages.CreateOptions{
			ProjectID:    s.ProjectID,
			ParentPageID: &parent,
			Title:        title,
		})
		if err != nil {
			return nil, b.fail(err)
		}
		b.mu.Lock()
		b.pageID = page.ID
		b.mu.Unlock()
	} else {
		page, err = s.Bridge.store.Get(ctx, pageID)
		if err != nil {
			return nil, b.fail(err)
		}
	}

	err = s.UpdateBlockProps(ctx, b.blockID, map[string]any{
		content.PropPageID: page.ID,
		content.PropTitle:  page.Title,
	})
	if err != nil {
		return nil, b.fail(err)
	}

	b.mu.Lock()
	b.state = Ready
	b.title = page.Title
	b.mu.Unlock()
	s.Bridge.log.Debug().Str("block_id", b.blockID).Str("page_id", page.ID).Msg("sub-page materialized")
	return page, nil
}

func (b *SubPageBlock) fail(err error) error {
	b.mu.Lock()
	b.state = Failed
	b.err = err
	b.mu.Unlock()
	b.session.Bridge.log.Warn().Err(err).Str("block_id", b.blockID).Msg("sub-page creation failed")
	return fmt.Errorf("materializing block %s: %w", b.blockID, err)
}
