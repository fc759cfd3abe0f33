// Package watcher polls schema files and triggers a reload when one changes.
package watcher

import (
	"context"
	"log/slog"
	"os"
	"sync"
	"time"
)

const (
	baseInterval = 1 * time.Second
	maxInterval  = 60 * time.Second
)

type fileSnapshot struct {
	modTime time.Time
	size    int64
}

type fileState struct {
	snapshot *fileSnapshot
	missing  bool
	interval time.Duration
	nextPoll time.Time
}

// ReloadFunc is the callback signature for reloading a changed file.
type ReloadFunc func(ctx context.Context, path string) error

// Watcher polls registered files for changes and triggers reloads.
type Watcher struct {
	reloadFn ReloadFunc

	mu    sync.Mutex
	files map[string]*fileState
	ctx   context.Context
}

// New creates a Watcher. reloadFn is called when a watched file changes.
func New(reloadFn ReloadFunc) *Watcher {
	return &Watcher{
		reloadFn: reloadFn,
		files:    make(map[string]*fileState),
		ctx:      context.Background(),
	}
}

// Watch adds path to the polled set. Watching a path twice is a no-op.
func (w *Watcher) Watch(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if _, ok := w.files[path]; !ok {
		w.files[path] = &fileState{}
	}
}

// Unwatch removes path from the polled set.
func (w *Watcher) Unwatch(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	delete(w.files, path)
}

// Run blocks until ctx is cancelled. Ticks at baseInterval, polling each
// file only when its adaptive interval has elapsed.
func (w *Watcher) Run(ctx context.Context) {
	w.mu.Lock()
	w.ctx = ctx
	w.mu.Unlock()

	ticker := time.NewTicker(baseInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.pollAll()
		}
	}
}

// pollAll polls each watched file that is due.
func (w *Watcher) pollAll() {
	w.mu.Lock()
	defer w.mu.Unlock()

	now := time.Now()
	for path, state := range w.files {
		if state.snapshot != nil && now.Before(state.nextPoll) {
			continue // not due yet
		}
		w.pollFile(path, state)
	}
}

// pollFile compares the file's mtime+size with the previous poll.
// First poll: captures baseline without triggering a reload.
// Subsequent polls: triggers reloadFn if the file changed or reappeared.
func (w *Watcher) pollFile(path string, state *fileState) {
	snap, err := captureSnapshot(path)
	if err != nil {
		if !state.missing {
			slog.Warn("watcher.missing", "path", path, "err", err)
		}
		state.missing = true
		if state.snapshot == nil {
			state.snapshot = &fileSnapshot{}
		}
		state.nextPoll = time.Now().Add(maxInterval)
		return
	}

	interval := pollInterval(snap.size)

	if state.snapshot == nil {
		// First poll: capture baseline, no reload trigger
		slog.Debug("watcher.baseline", "path", path, "size", snap.size)
		state.snapshot = &snap
		state.interval = interval
		state.nextPoll = time.Now().Add(interval)
		return
	}

	if !state.missing && snapshotsEqual(*state.snapshot, snap) {
		state.interval = interval
		state.nextPoll = time.Now().Add(interval)
		return
	}

	slog.Info("watcher.changed", "path", path, "size", snap.size)
	if err := w.reloadFn(w.ctx, path); err != nil {
		slog.Warn("watcher.reload", "path", path, "err", err)
	}

	// A failed reload keeps the new snapshot: retrying an unchanged broken
	// file would only fail again.
	state.snapshot = &snap
	state.missing = false
	state.interval = interval
	state.nextPoll = time.Now().Add(interval)
}

// captureSnapshot records the mtime and size of path.
func captureSnapshot(path string) (fileSnapshot, error) {
	info, err := os.Stat(path)
	if err != nil {
		return fileSnapshot{}, err
	}
	return fileSnapshot{modTime: info.ModTime(), size: info.Size()}, nil
}

// snapshotsEqual returns true if both snapshots have the same mtime+size.
func snapshotsEqual(a, b fileSnapshot) bool {
	return a.modTime.Equal(b.modTime) && a.size == b.size
}

// pollInterval computes the adaptive interval from file size.
// 1s base + 1s per MiB, capped at 60s.
func pollInterval(size int64) time.Duration {
	ms := 1000 + (size>>20)*1000
	if ms > 60000 {
		ms = 60000
	}
	return time.Duration(ms) * time.Millisecond
}
