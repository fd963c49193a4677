package blocks

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mycelica/folio/internal/apperr"
	"mycelica/folio/internal/content"
	"mycelica/folio/internal/db"
	"mycelica/folio/internal/pages"
)

// flakyStore fails the next N creates.
type flakyStore struct {
	*pages.Repository
	failCreates int
}

func (f *flakyStore) Create(ctx context.Context, opts pages.CreateOptions) (*db.Page, error) {
	if f.failCreates > 0 {
		f.failCreates--
		return nil, errors.New("backend unavailable")
	}
	return f.Repository.Create(ctx, opts)
}

type env struct {
	repo   *pages.Repository
	store  *flakyStore
	bridge *Bridge
	page   *db.Page
}

const pageContent = `{
	"intro": {"type": "Paragraph", "props": {"align": "left"}, "meta": {"order": 0, "depth": 0}},
	"gallery": {
		"type": "Columns",
		"value": [
			{"id": "col", "type": "column", "children": [
				{"id": "img", "type": "image", "props": {"src": "a.png", "width": 100}}
			]}
		],
		"meta": {"order": 1, "depth": 0}
	},
	"child": {"type": "SubPage", "props": {"title": "Child Notes"}, "meta": {"order": 2, "depth": 0}}
}`

func newEnv(t *testing.T) *env {
	t.Helper()
	d, err := db.OpenDB(filepath.Join(t.TempDir(), "blocks.db"))
	require.NoError(t, err)
	t.Cleanup(func() { d.Close() })

	repo := pages.NewRepository(d, pages.Options{Logger: zerolog.Nop()})
	ctx := context.Background()
	project, err := repo.CreateProject(ctx, "Docs", nil)
	require.NoError(t, err)
	page, err := repo.Create(ctx, pages.CreateOptions{
		ProjectID: project.ID,
		Title:     "Owner",
		Content:   []byte(pageContent),
	})
	require.NoError(t, err)

	store := &flakyStore{Repository: repo}
	return &env{repo: repo, store: store, bridge: NewBridge(store, zerolog.Nop()), page: page}
}

func (e *env) stored(t *testing.T) *content.Document {
	t.Helper()
	p, err := e.repo.Get(context.Background(), e.page.ID)
	require.NoError(t, err)
	doc, err := content.Parse(p.Content)
	require.NoError(t, err)
	return doc
}

func TestBridge_UpdateNestedElementProps(t *testing.T) {
	e := newEnv(t)

	_, err := e.bridge.UpdateBlockProps(context.Background(), e.page.ID, "img", map[string]any{"width": 320, "alt": "diagram"})
	require.NoError(t, err)

	doc := e.stored(t)
	props, err := doc.Props("img")
	require.NoError(t, err)
	assert.EqualValues(t, 320, props["width"])
	assert.Equal(t, "diagram", props["alt"])
	assert.Equal(t, "a.png", props["src"], "existing props are kept")

	intro, err := doc.Props("intro")
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"align": "left"}, intro, "sibling blocks untouched")
}

func TestBridge_LookupFailures(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	_, err := e.bridge.UpdateBlockProps(ctx, "no-such-page", "img", map[string]any{"x": 1})
	var lookup *LookupError
	require.ErrorAs(t, err, &lookup)
	assert.Equal(t, "no-such-page", lookup.PageID)
	assert.Equal(t, apperr.CategoryNotFound, apperr.Classify(err))

	_, err = e.bridge.UpdateBlockProps(ctx, e.page.ID, "ghost", map[string]any{"x": 1})
	require.ErrorAs(t, err, &lookup)
	assert.ErrorIs(t, err, content.ErrBlockNotFound)
	assert.Equal(t, "ghost", lookup.BlockID)
}

func TestSession_RemoveBlockKeepsReferencedPage(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	s, err := Open(ctx, e.bridge, e.page.ID, SessionOptions{})
	require.NoError(t, err)

	sp, err := s.SubPage("child")
	require.NoError(t, err)
	target, err := sp.Materialize(ctx)
	require.NoError(t, err)

	require.NoError(t, s.RemoveBlock(ctx, "child"))
	_, ok := e.stored(t).Block("child")
	assert.False(t, ok)

	_, err = e.repo.Get(ctx, target.ID)
	assert.NoError(t, err, "removing the block leaves the page")
}

func TestSession_DeleteReferencedPageKeepsBlock(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	s, err := Open(ctx, e.bridge, e.page.ID, SessionOptions{})
	require.NoError(t, err)

	_, err = s.DeleteReferencedPage(ctx, "child", false)
	assert.ErrorIs(t, err, ErrNoLinkedPage)

	sp, err := s.SubPage("child")
	require.NoError(t, err)
	target, err := sp.Materialize(ctx)
	require.NoError(t, err)

	deleted, err := s.DeleteReferencedPage(ctx, "child", true)
	require.NoError(t, err)
	assert.Equal(t, []string{target.ID}, deleted)

	_, err = e.repo.Get(ctx, target.ID)
	assert.ErrorIs(t, err, pages.ErrNotFound)
	_, ok := e.stored(t).Block("child")
	assert.True(t, ok, "deleting the page leaves the block")
}

func TestSubPage_MaterializeOnce(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	var changes []*content.Document
	s, err := Open(ctx, e.bridge, e.page.ID, SessionOptions{
		OnChange: func(d *content.Document) { changes = append(changes, d) },
	})
	require.NoError(t, err)

	sp, err := s.SubPage("child")
	require.NoError(t, err)
	assert.Equal(t, Uninitialized, sp.State())
	assert.Empty(t, sp.PageID())

	page, err := sp.Materialize(ctx)
	require.NoError(t, err)
	assert.Equal(t, Ready, sp.State())
	assert.Equal(t, "Child Notes", page.Title)
	require.NotNil(t, page.ParentPageID)
	assert.Equal(t, e.page.ID, *page.ParentPageID)
	assert.Equal(t, page.ID, sp.PageID())

	b, ok := e.stored(t).Block("child")
	require.True(t, ok)
	linked, title := b.SubPageProps()
	assert.Equal(t, page.ID, linked)
	assert.Equal(t, "Child Notes", title)
	assert.Len(t, changes, 1)

	_, err = sp.Materialize(ctx)
	assert.ErrorIs(t, err, ErrInvalidTransition)
	_, err = sp.Retry(ctx)
	assert.ErrorIs(t, err, ErrInvalidTransition)

	children, err := e.repo.Children(ctx, e.page.ID)
	require.NoError(t, err)
	assert.Len(t, children, 1, "exactly one page per block")

	same, err := s.SubPage("child")
	require.NoError(t, err)
	assert.Same(t, sp, same, "one handle per block")

	// a block that already links a page starts out Ready
	reopened, err := Open(ctx, e.bridge, e.page.ID, SessionOptions{})
	require.NoError(t, err)
	again, err := reopened.SubPage("child")
	require.NoError(t, err)
	assert.Equal(t, Ready, again.State())
	got, err := again.Target(ctx)
	require.NoError(t, err)
	assert.Equal(t, page.ID, got.ID)
}

func TestSubPage_ConcurrentMaterializeCreatesOnePage(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	s, err := Open(ctx, e.bridge, e.page.ID, SessionOptions{})
	require.NoError(t, err)

	const workers = 4
	errs := make(chan error, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			sp, err := s.SubPage("child")
			if err == nil {
				_, err = sp.Materialize(ctx)
			}
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	succeeded := 0
	for err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		assert.ErrorIs(t, err, ErrInvalidTransition)
	}
	assert.Equal(t, 1, succeeded)

	children, err := e.repo.Children(ctx, e.page.ID)
	require.NoError(t, err)
	assert.Len(t, children, 1, "exactly one page per block")
}

func TestSubPage_FailureNeedsExplicitRetry(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	e.store.failCreates = 1
	s, err := Open(ctx, e.bridge, e.page.ID, SessionOptions{})
	require.NoError(t, err)

	sp, err := s.SubPage("child")
	require.NoError(t, err)
	_, err = sp.Materialize(ctx)
	require.Error(t, err)
	assert.Equal(t, Failed, sp.State())
	assert.Error(t, sp.Err())

	_, err = sp.Materialize(ctx)
	assert.ErrorIs(t, err, ErrInvalidTransition, "no automatic re-entry")

	page, err := sp.Retry(ctx)
	require.NoError(t, err)
	assert.Equal(t, Ready, sp.State())
	assert.NoError(t, sp.Err())
	assert.Equal(t, page.ID, sp.PageID())
}

func TestSubPage_RejectsOtherBlocks(t *testing.T) {
	e := newEnv(t)
	s, err := Open(context.Background(), e.bridge, e.page.ID, SessionOptions{})
	require.NoError(t, err)

	_, err = s.SubPage("intro")
	assert.ErrorIs(t, err, ErrNotSubPage)

	_, err = s.SubPage("missing")
	var lookup *LookupError
	assert.ErrorAs(t, err, &lookup)
}

func TestSession_AutosaveDefersWrites(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	s, err := Open(ctx, e.bridge, e.page.ID, SessionOptions{AutosaveInterval: time.Hour})
	require.NoError(t, err)

	require.NoError(t, s.InsertBlock(ctx, &content.Block{ID: "late", Type: "Paragraph", Meta: content.Meta{Order: 9}}))
	_, ok := s.Document().Block("late")
	assert.True(t, ok, "session sees the edit at once")
	_, ok = e.stored(t).Block("late")
	assert.False(t, ok, "the store sees it after the debounce")

	require.NoError(t, s.UpdateBlockProps(ctx, "late", map[string]any{"align": "center"}))
	require.NoError(t, s.Close(ctx))

	stored := e.stored(t)
	props, err := stored.Props("late")
	require.NoError(t, err)
	assert.Equal(t, "center", props["align"])

	p, err := e.repo.Get(ctx, e.page.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), p.ContentVersion)
}
