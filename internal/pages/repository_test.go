package pages

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mycelica/folio/internal/db"
)

type fixture struct {
	repo    *Repository
	db      *db.DB
	project *db.Project
	// forcedIDs are handed out by NewID before the counter.
	forcedIDs []string
}

func newFixture(t *testing.T, opts Options) *fixture {
	t.Helper()
	d, err := db.OpenDB(filepath.Join(t.TempDir(), "pages.db"))
	require.NoError(t, err)
	t.Cleanup(func() { d.Close() })

	f := &fixture{db: d}
	n := 0
	opts.NewID = func() string {
		if len(f.forcedIDs) > 0 {
			id := f.forcedIDs[0]
			f.forcedIDs = f.forcedIDs[1:]
			return id
		}
		n++
		return fmt.Sprintf("id-%03d", n)
	}
	if opts.Now == nil {
		clock := time.UnixMilli(1_700_000_000_000)
		opts.Now = func() time.Time {
			clock = clock.Add(time.Millisecond)
			return clock
		}
	}
	opts.Logger = zerolog.Nop()
	if opts.Principal == "" {
		opts.Principal = "tester"
	}
	f.repo = NewRepository(d, opts)

	f.project, err = f.repo.CreateProject(context.Background(), "Docs", nil)
	require.NoError(t, err)
	return f
}

func (f *fixture) create(t *testing.T, title string, parent *db.Page) *db.Page {
	t.Helper()
	opts := CreateOptions{ProjectID: f.project.ID, Title: title}
	if parent != nil {
		id := parent.ID
		opts.ParentPageID = &id
	}
	p, err := f.repo.Create(context.Background(), opts)
	require.NoError(t, err)
	return p
}

func strPtr(s string) *string { return &s }

func TestGetPage_NotFound(t *testing.T) {
	f := newFixture(t, Options{})
	_, err := f.repo.Get(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestResolvePath(t *testing.T) {
	f := newFixture(t, Options{})
	ctx := context.Background()
	guide := f.create(t, "Guide", nil)
	install := f.create(t, "Install", guide)

	got, err := f.repo.ResolvePath(ctx, f.project.ID, "/guide/install")
	require.NoError(t, err)
	assert.Equal(t, install.ID, got.ID)

	_, err = f.repo.ResolvePath(ctx, f.project.ID, "/guide/missing")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = f.repo.ResolvePath(ctx, f.project.ID, "/")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSearch_UsesTitleAndContent(t *testing.T) {
	f := newFixture(t, Options{})
	ctx := context.Background()

	_, err := f.repo.Create(ctx, CreateOptions{
		ProjectID: f.project.ID,
		Title:     "Deployment",
		Content:   []byte(`{"b1":{"type":"Paragraph","value":[{"id":"e1","type":"text","text":"kubernetes rollout"}],"meta":{"order":0,"depth":0}}}`),
	})
	require.NoError(t, err)
	f.create(t, "Unrelated", nil)

	got, err := f.repo.Search(ctx, f.project.ID, "kubernetes", false)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "Deployment", got[0].Title)

	got, err = f.repo.Search(ctx, f.project.ID, "kubernetes", true)
	require.NoError(t, err)
	assert.Empty(t, got, "drafts are hidden from published search")
}

func TestCreateProject_UniqueSlug(t *testing.T) {
	f := newFixture(t, Options{})
	ctx := context.Background()

	second, err := f.repo.CreateProject(ctx, "Docs", nil)
	require.NoError(t, err)
	assert.Equal(t, "docs", f.project.Slug)
	assert.Equal(t, "docs-1", second.Slug)

	bySlug, err := f.repo.GetProject(ctx, "docs-1")
	require.NoError(t, err)
	assert.Equal(t, second.ID, bySlug.ID)

	_, err = f.repo.CreateProject(ctx, "   ", nil)
	assert.Error(t, err)

	all, err := f.repo.ListProjects(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}
