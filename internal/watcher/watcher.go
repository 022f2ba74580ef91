// Package watcher republishes page assets when rendered page documents
// change on disk. It debounces bursts of filesystem events so an editor
// save (often several writes in quick succession) triggers one rebuild.
package watcher

import (
	"context"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/conneroisu/assetpub/internal/content"
	"github.com/conneroisu/assetpub/internal/logging"
)

// DefaultDebounce groups rapid successive writes to the same page file.
const DefaultDebounce = 300 * time.Millisecond

// Republisher rebuilds the assets of a single page. Satisfied by
// publish.Publisher.
type Republisher interface {
	PublishPageByID(ctx context.Context, pageID int64) error
}

// PageWatcher watches a content directory and republishes pages whose
// documents were created or modified.
type PageWatcher struct {
	dir       string
	debounce  time.Duration
	publisher Republisher
	logger    logging.Logger

	fsw     *fsnotify.Watcher
	mu      sync.Mutex
	timer   *time.Timer
	pending map[int64]struct{}
	flushed chan []int64
}

// New creates a watcher over dir. The watcher is inert until Run is
// called.
func New(dir string, debounce time.Duration, publisher Republisher, logger logging.Logger) (*PageWatcher, error) {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	return &PageWatcher{
		dir:       dir,
		debounce:  debounce,
		publisher: publisher,
		logger:    logger.WithComponent("watcher"),
		fsw:       fsw,
		pending:   make(map[int64]struct{}),
		flushed:   make(chan []int64, 8),
	}, nil
}

// Run watches until ctx is cancelled. It blocks.
func (w *PageWatcher) Run(ctx context.Context) error {
	if err := w.fsw.Add(w.dir); err != nil {
		return err
	}
	defer w.fsw.Close()

	w.logger.Info(ctx, "watching content directory", "dir", w.dir, "debounce", w.debounce.String())

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-w.fsw.Events:
			if !ok {
				return nil
			}
			w.handleEvent(event)
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn(ctx, err, "filesystem watch error")
		case pageIDs := <-w.flushed:
			w.republish(ctx, pageIDs)
		}
	}
}

func (w *PageWatcher) handleEvent(event fsnotify.Event) {
	if event.Op&(fsnotify.Create|fsnotify.Write) == 0 {
		return
	}
	if filepath.Ext(event.Name) != ".html" {
		return
	}
	pageID, ok := content.PageIDFromFilename(filepath.Base(event.Name))
	if !ok {
		return
	}
	w.enqueue(pageID)
}

// enqueue records a dirty page and (re)arms the debounce timer. Every
// event within the window resets it, so a burst flushes once.
func (w *PageWatcher) enqueue(pageID int64) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.pending[pageID] = struct{}{}

	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.debounce, w.flush)
}

func (w *PageWatcher) flush() {
	w.mu.Lock()
	pageIDs := make([]int64, 0, len(w.pending))
	for id := range w.pending {
		pageIDs = append(pageIDs, id)
	}
	w.pending = make(map[int64]struct{})
	w.mu.Unlock()

	if len(pageIDs) == 0 {
		return
	}
	select {
	case w.flushed <- pageIDs:
	default:
	}
}

// republish rebuilds each dirty page. A failed page logs and does not
// stop the others.
func (w *PageWatcher) republish(ctx context.Context, pageIDs []int64) {
	for _, pageID := range pageIDs {
		if err := w.publisher.PublishPageByID(ctx, pageID); err != nil {
			w.logger.Warn(ctx, err, "republish after file change failed", "page_id", pageID)
			continue
		}
		w.logger.Info(ctx, "republished page after file change", "page_id", pageID)
	}
}
