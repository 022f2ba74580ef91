package watcher

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/conneroisu/assetpub/internal/logging"
)

type recordingPublisher struct {
	mu    sync.Mutex
	calls []int64
}

func (r *recordingPublisher) PublishPageByID(ctx context.Context, pageID int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, pageID)
	return nil
}

func (r *recordingPublisher) published() []int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]int64(nil), r.calls...)
}

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) bool {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(10 * time.Millisecond)
	}
	return cond()
}

func TestWatcher_RepublishesChangedPage(t *testing.T) {
	dir := t.TempDir()
	pub := &recordingPublisher{}

	w, err := New(dir, 50*time.Millisecond, pub, logging.NewNopLogger())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = w.Run(ctx)
	}()

	// Give Run a moment to register the directory.
	time.Sleep(50 * time.Millisecond)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "3.html"), []byte("<p>x</p>"), 0o644))

	ok := waitFor(t, 3*time.Second, func() bool { return len(pub.published()) > 0 })
	require.True(t, ok, "expected a republish after file write")
	assert.Equal(t, []int64{3}, pub.published())

	cancel()
	<-done
}

func TestWatcher_IgnoresNonPageFiles(t *testing.T) {
	pub := &recordingPublisher{}
	w, err := New(t.TempDir(), 10*time.Millisecond, pub, logging.NewNopLogger())
	require.NoError(t, err)
	defer w.fsw.Close()

	w.handleEvent(fsnotify.Event{Name: "notes.txt", Op: fsnotify.Write})
	w.handleEvent(fsnotify.Event{Name: "not-a-page.html", Op: fsnotify.Write})
	w.handleEvent(fsnotify.Event{Name: "5.html", Op: fsnotify.Chmod})

	time.Sleep(50 * time.Millisecond)
	select {
	case ids := <-w.flushed:
		t.Fatalf("unexpected flush for %v", ids)
	default:
	}
}

func TestWatcher_DebouncesBursts(t *testing.T) {
	pub := &recordingPublisher{}
	w, err := New(t.TempDir(), 30*time.Millisecond, pub, logging.NewNopLogger())
	require.NoError(t, err)
	defer w.fsw.Close()

	// An editor save typically lands as several writes in a row.
	for i := 0; i < 5; i++ {
		w.handleEvent(fsnotify.Event{Name: "7.html", Op: fsnotify.Write})
	}
	w.handleEvent(fsnotify.Event{Name: "9.html", Op: fsnotify.Create})

	select {
	case ids := <-w.flushed:
		assert.ElementsMatch(t, []int64{7, 9}, ids, "burst collapses to one flush per page")
	case <-time.After(2 * time.Second):
		t.Fatal("debounce window never flushed")
	}

	select {
	case ids := <-w.flushed:
		t.Fatalf("second flush for the same burst: %v", ids)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestWatcher_RunStopsOnCancel(t *testing.T) {
	w, err := New(t.TempDir(), 10*time.Millisecond, &recordingPublisher{}, logging.NewNopLogger())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	time.Sleep(30 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}
