package blocks

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"mycelica/folio/internal/apperr"
	"mycelica/folio/internal/content"
	"mycelica/folio/internal/db"
	"mycelica/folio/internal/pages"
)

// PageStore is the page persistence the bridge writes through.
// *pages.Repository satisfies it.
type PageStore interface {
	Get(ctx context.Context, id string) (*db.Page, error)
	Create(ctx context.Context, opts pages.CreateOptions) (*db.Page, error)
	Update(ctx context.Context, id string, opts pages.UpdateOptions) (*db.Page, error)
	Delete(ctx context.Context, id string, deleteChildren bool) ([]string, error)
	SaveContent(ctx context.Context, id string, doc *content.Document, version int64) (*db.Page, error)
}

// LookupError means a block update could not find its page or its block. It
// belongs to the one block and is shown there; the editor carries on.
type LookupError struct {
	PageID  string
	BlockID string
	Err     error
}

func (e *LookupError) Error() string {
	return fmt.Sprintf("block %s on page %s: %v", e.BlockID, e.PageID, e.Err)
}

func (e *LookupError) Unwrap() error { return e.Err }

func (e *LookupError) Category() apperr.Category { return apperr.CategoryNotFound }

func (e *LookupError) Details() any {
	return map[string]string{"page_id": e.PageID, "block_id": e.BlockID}
}

// Bridge connects rendered blocks to the content of the page that owns them.
type Bridge struct {
	store PageStore
	log   zerolog.Logger
}

func NewBridge(store PageStore, log zerolog.Logger) *Bridge {
	return &Bridge{store: store, log: log}
}

// Load returns the parsed content of a page.
func (b *Bridge) Load(ctx context.Context, pageID string) (*db.Page, *content.Document, error) {
	page, err := b.store.Get(ctx, pageID)
	if err != nil {
		return nil, nil, err
	}
	doc, err := content.Parse(page.Content)
	if err != nil {
		return nil, nil, apperr.Wrap(apperr.CategoryValidation, "stored content is not a block map", err)
	}
	return page, doc, nil
}

// UpdateBlockProps merges partial into the props of blockID, which may be a
// top-level block or an element nested inside one. Other blocks are left as
// they are. A missing page or block is logged and returned as *LookupError.
func (b *Bridge) UpdateBlockProps(ctx context.Context, pageID, blockID string, partial map[string]any) (*content.Document, error) {
	_, doc, err := b.Load(ctx, pageID)
	if err != nil {
		if apperr.Is(err, apperr.CategoryNotFound) {
			return nil, b.lookupFailed(pageID, blockID, err)
		}
		return nil, err
	}
	if err := doc.MergeProps(blockID, partial); err != nil {
		if errors.Is(err, content.ErrBlockNotFound) {
			return nil, b.lookupFailed(pageID, blockID, err)
		}
		return nil, err
	}
	if err := b.write(ctx, pageID, doc); err != nil {
		return nil, err
	}
	return doc, nil
}

// write stores a whole document as the page's content.
func (b *Bridge) write(ctx context.Context, pageID string, doc *content.Document) error {
	raw, err := doc.Bytes()
	if err != nil {
		return err
	}
	if _, err := b.store.Update(ctx, pageID, pages.UpdateOptions{Content: json.RawMessage(raw)}); err != nil {
		return fmt.Errorf("writing content of %s: %w", pageID, err)
	}
	return nil
}

func (b *Bridge) lookupFailed(pageID, blockID string, err error) *LookupError {
	b.log.Warn().Err(err).Str("page_id", pageID).Str("block_id", blockID).Msg("block lookup failed")
	return &LookupError{PageID: pageID, BlockID: blockID, Err: err}
}
