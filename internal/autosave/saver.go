// Package autosave persists editor content in the background. Every scheduled
// save carries an edit version from a counter owned by the Saver, and the
// store only accepts versions newer than what it holds, so saves that land
// out of order can never regress a page.
package autosave

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"mycelica/folio/internal/content"
	"mycelica/folio/internal/db"
	"mycelica/folio/internal/pages"
)

// DefaultInterval is the debounce window used when Options.Interval is unset.
const DefaultInterval = time.Second

// ErrClosed is returned by Schedule after Close.
var ErrClosed = errors.New("autosave: saver closed")

// Store persists a versioned content write. *pages.Repository satisfies it.
type Store interface {
	SaveContent(ctx context.Context, id string, doc *content.Document, version int64) (*db.Page, error)
}

// Options configures a Saver.
type Options struct {
	Interval time.Duration
	// BaseVersion is the content_version the page had when editing started.
	BaseVersion int64
	Logger      zerolog.Logger
	// OnError is called from the save goroutine for failures other than stale versions.
	OnError func(version int64, err error)
}

// Saver debounces content edits of one page.
type Saver struct {
	store    Store
	pageID   string
	interval time.Duration
	log      zerolog.Logger
	onError  func(int64, error)

	mu      sync.Mutex
	issued  int64
	pending *content.Document
	pendVer int64
	saved   int64
	lastErr error
	timer   *time.Timer
	closed  bool
	wg      sync.WaitGroup
}

// New returns a Saver for pageID.
func New(store Store, pageID string, opts Options) *Saver {
	if opts.Interval <= 0 {
		opts.Interval = DefaultInterval
	}
	return &Saver{
		store:    store,
		pageID:   pageID,
		interval: opts.Interval,
		log:      opts.Logger,
		onError:  opts.OnError,
		issued:   opts.BaseVersion,
		saved:    opts.BaseVersion,
	}
}

// Schedule queues doc for saving after the debounce interval and returns the
// edit version it was stamped with. A newer Schedule replaces a pending one.
func (s *Saver) Schedule(doc *content.Document) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return 0, ErrClosed
	}
	s.issued++
	s.pending = doc.Clone()
	s.pendVer = s.issued
	s.stopTimer()
	s.wg.Add(1)
	s.timer = time.AfterFunc(s.interval, func() {
		defer s.wg.Done()
		_ = s.saveNext(context.Background())
	})
	return s.issued, nil
}

// stopTimer cancels a pending timer; the caller holds s.mu.
func (s *Saver) stopTimer() {
	if s.timer != nil && s.timer.Stop() {
		s.wg.Done()
	}
	s.timer = nil
}

// Flush saves the pending edit now, if any, and returns the error of that save.
func (s *Saver) Flush(ctx context.Context) error {
	s.mu.Lock()
	s.stopTimer()
	s.mu.Unlock()
	return s.saveNext(ctx)
}

// Close flushes, stops the timer and waits for in-flight saves.
func (s *Saver) Close(ctx context.Context) error {
	s.mu.Lock()
	s.closed = true
	s.stopTimer()
	s.mu.Unlock()
	err := s.saveNext(ctx)
	s.wg.Wait()
	return err
}

// Issued reports the latest edit version handed out.
func (s *Saver) Issued() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.issued
}

// Saved reports the highest edit version known to be stored.
func (s *Saver) Saved() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saved
}

// Err returns the last non-stale save failure.
func (s *Saver) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastErr
}

func (s *Saver) saveNext(ctx context.Context) error {
	s.mu.Lock()
	doc, version := s.pending, s.pendVer
	s.pending = nil
	s.mu.Unlock()
	if doc == nil {
		return nil
	}

	_, err := s.store.SaveContent(ctx, s.pageID, doc, version)
	switch {
	case err == nil:
		s.mu.Lock()
		if version > s.saved {
			s.saved = version
		}
		s.mu.Unlock()
		s.log.Debug().Str("page_id", s.pageID).Int64("version", version).Msg("content saved")
		return nil
	case errors.Is(err, pages.ErrStaleVersion):
		// a newer version already landed
		s.log.Debug().Str("page_id", s.pageID).Int64("version", version).Msg("stale save dropped")
		return nil
	default:
		s.mu.Lock()
		s.lastErr = err
		// keep the edit unless something newer was scheduled meanwhile
		if s.pending == nil {
			s.pending, s.pendVer = doc, version
		}
		s.mu.Unlock()
		s.log.Error().Err(err).Str("page_id", s.pageID).Int64("version", version).Msg("content save failed")
		if s.onError != nil {
			s.onError(version, err)
		}
		return err
	}
}
