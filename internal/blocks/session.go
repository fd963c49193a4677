package blocks

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"mycelica/folio/internal/apperr"
	"mycelica/folio/internal/autosave"
	"mycelica/folio/internal/content"
)

// ErrNoLinkedPage is returned when a page action targets a sub-page block that
// has not been materialized.
var ErrNoLinkedPage = apperr.New(apperr.CategoryValidation, "block has no linked page")

// SessionOptions configures Open.
type SessionOptions struct {
	// OnChange receives a copy of the document after every applied mutation.
	OnChange func(*content.Document)
	// AutosaveInterval > 0 routes content writes through a debounced autosave.Saver.
	AutosaveInterval time.Duration
}

// Session is an editor open on one page. Blocks reach their page, project
// and bridge only through the session they are given.
type Session struct {
	ProjectID string
	PageID    string
	Bridge    *Bridge
	OnChange  func(*content.Document)

	mu    sync.Mutex
	doc   *content.Document
	saver *autosave.Saver
	// one handle per sub-page block
	subPages map[string]*SubPageBlock
}

// Open loads pageID and starts a session on it.
func Open(ctx context.Context, bridge *Bridge, pageID string, opts SessionOptions) (*Session, error) {
	page, doc, err := bridge.Load(ctx, pageID)
	if err != nil {
		return nil, fmt.Errorf("opening session on %s: %w", pageID, err)
	}
	s := &Session{
		ProjectID: page.ProjectID,
		PageID:    page.ID,
		Bridge:    bridge,
		OnChange:  opts.OnChange,
		doc:       doc,
		subPages:  map[string]*SubPageBlock{},
	}
	if opts.AutosaveInterval > 0 {
		s.saver = autosave.New(bridge.store, page.ID, autosave.Options{
			Interval:    opts.AutosaveInterval,
			BaseVersion: page.ContentVersion,
			Logger:      bridge.log,
		})
	}
	return s, nil
}

// Document returns a copy of the session's current content.
func (s *Session) Document() *content.Document {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.doc.Clone()
}

// UpdateBlockProps merges partial into a block of this page.
func (s *Session) UpdateBlockProps(ctx context.Context, blockID string, partial map[string]any) error {
	if s.saver == nil {
		doc, err := s.Bridge.UpdateBlockProps(ctx, s.PageID, blockID, partial)
		if err != nil {
			return err
		}
		s.replace(doc)
		return nil
	}
	return s.apply(ctx, blockID, func(doc *content.Document) error {
		return doc.MergeProps(blockID, partial)
	})
}

// InsertBlock adds a top-level block to the page.
func (s *Session) InsertBlock(ctx context.Context, b *content.Block) error {
	return s.apply(ctx, b.ID, func(doc *content.Document) error {
		return doc.InsertBlock(b)
	})
}

// RemoveBlock removes a block from the content. A page the block links to is
// not touched; see DeleteReferencedPage.
func (s *Session) RemoveBlock(ctx context.Context, blockID string) error {
	err := s.apply(ctx, blockID, func(doc *content.Document) error {
		return doc.RemoveBlock(blockID)
	})
	if err != nil {
		return err
	}
	s.mu.Lock()
	delete(s.subPages, blockID)
	s.mu.Unlock()
	return nil
}

// DeleteReferencedPage deletes the page a sub-page block links to. The block
// itself stays in the content until RemoveBlock is called.
func (s *Session) DeleteReferencedPage(ctx context.Context, blockID string, deleteChildren bool) ([]string, error) {
	s.mu.Lock()
	b, ok := s.doc.Block(blockID)
	var target string
	if ok {
		target, _ = b.SubPageProps()
	}
	s.mu.Unlock()

	if !ok {
		return nil, s.Bridge.lookupFailed(s.PageID, blockID, content.ErrBlockNotFound)
	}
	if !content.IsSubPage(b.Type) || target == "" {
		return nil, fmt.Errorf("%w: %s", ErrNoLinkedPage, blockID)
	}
	deleted, err := s.Bridge.store.Delete(ctx, target, deleteChildren)
	if err != nil {
		return deleted, err
	}
	s.Bridge.log.Info().Str("page_id", target).Str("block_id", blockID).Int("count", len(deleted)).Msg("referenced page deleted")
	return deleted, nil
}

// Flush writes any content the autosave is still holding.
func (s *Session) Flush(ctx context.Context) error {
	if s.saver == nil {
		return nil
	}
	return s.saver.Flush(ctx)
}

// Close flushes and stops the session's autosave.
func (s *Session) Close(ctx context.Context) error {
	if s.saver == nil {
		return nil
	}
	return s.saver.Close(ctx)
}

// apply runs mutate on a copy of the current document and persists the
// result. Mutations of one session are applied one at a time.
func (s *Session) apply(ctx context.Context, blockID string, mutate func(*content.Document) error) error {
	s.mu.Lock()
	next := s.doc.Clone()
	if err := mutate(next); err != nil {
		s.mu.Unlock()
		if errors.Is(err, content.ErrBlockNotFound) {
			return s.Bridge.lookupFailed(s.PageID, blockID, err)
		}
		return err
	}

	var err error
	if s.saver != nil {
		_, err = s.saver.Schedule(next)
	} else {
		err = s.Bridge.write(ctx, s.PageID, next)
	}
	if err == nil {
		s.doc = next
	}
	s.mu.Unlock()

	if err != nil {
		return err
	}
	s.notify(next)
	return nil
}

func (s *Session) replace(doc *content.Document) {
	s.mu.Lock()
	s.doc = doc
	s.mu.Unlock()
	s.notify(doc)
}

func (s *Session) notify(doc *content.Document) {
	if s.OnChange != nil {
		s.OnChange(doc.Clone())
	}
}
