package channels

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

const defaultSettleDelay = 2 * time.Second

// DirWatcher monitors directories for new files and emits a FileEvent once
// a file has stopped changing. Files dropped by scanners and network copies
// arrive in bursts of writes, so each path gets a settle timer that resets
// on every write and fires only after a quiet period.
type DirWatcher struct {
	dirs    []string
	handler Handler
	settle  time.Duration
	logger  *slog.Logger

	mu      sync.Mutex
	pending map[string]*time.Timer
}

// WatcherOption configures a DirWatcher.
type WatcherOption func(*DirWatcher)

// WithSettleDelay sets the quiet period before a new file is handed off.
// Default: 2s.
func WithSettleDelay(d time.Duration) WatcherOption {
	return func(w *DirWatcher) { w.settle = d }
}

// WithWatcherLogger sets the logger. Default: slog.Default().
func WithWatcherLogger(l *slog.Logger) WatcherOption {
	return func(w *DirWatcher) { w.logger = l }
}

// NewDirWatcher creates a watcher over dirs. Directories are created if
// missing when Run starts.
func NewDirWatcher(dirs []string, handler Handler, opts ...WatcherOption) *DirWatcher {
	w := &DirWatcher{
		dirs:    dirs,
		handler: handler,
		settle:  defaultSettleDelay,
		logger:  slog.Default(),
		pending: make(map[string]*time.Timer),
	}
	for _, o := range opts {
		o(w)
	}
	return w
}

func (w *DirWatcher) Name() string { return "folder-watcher" }

// Run processes any files already present, then blocks watching for new
// ones until ctx is cancelled.
func (w *DirWatcher) Run(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer fw.Close()

	for _, dir := range w.dirs {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
		if err := fw.Add(dir); err != nil {
			return err
		}
		w.sweep(ctx, dir)
	}
	w.logger.Info("folder watcher started", "dirs", w.dirs, "settle", w.settle)

	for {
		select {
		case <-ctx.Done():
			w.cancelPending()
			w.logger.Info("folder watcher stopped")
			return ctx.Err()
		case ev, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if ev.Op&(fsnotify.Create|fsnotify.Write) == 0 {
				continue
			}
			if ignored(ev.Name) {
				continue
			}
			w.arm(ctx, ev.Name)
		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("folder watcher error", "error", err)
		}
	}
}

// sweep emits events for files that were already in dir at startup.
func (w *DirWatcher) sweep(ctx context.Context, dir string) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		w.logger.Warn("initial directory scan failed", "dir", dir, "error", err)
		return
	}
	for _, e := range entries {
		if e.IsDir() || ignored(e.Name()) {
			continue
		}
		w.emit(ctx, filepath.Join(dir, e.Name()))
	}
}

// arm starts (or resets) the settle timer for path.
func (w *DirWatcher) arm(ctx context.Context, path string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if t, ok := w.pending[path]; ok {
		t.Reset(w.settle)
		return
	}
	w.pending[path] = time.AfterFunc(w.settle, func() {
		w.mu.Lock()
		delete(w.pending, path)
		w.mu.Unlock()
		if ctx.Err() != nil {
			return
		}
		w.emit(ctx, path)
	})
}

func (w *DirWatcher) cancelPending() {
	w.mu.Lock()
	defer w.mu.Unlock()
	for path, t := range w.pending {
		t.Stop()
		delete(w.pending, path)
	}
}

func (w *DirWatcher) emit(ctx context.Context, path string) {
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return // deleted before settling, or a subdirectory
	}
	ev := FileEvent{Path: path, Channel: ChannelFolder, Source: filepath.Dir(path)}
	if err := w.handler(ctx, ev); err != nil {
		w.logger.Warn("watched file not processed", "path", path, "error", err)
	}
}

// ignored reports whether a file name looks like an editor or transfer
// artifact that should never enter the pipeline.
func ignored(name string) bool {
	base := filepath.Base(name)
	if strings.HasPrefix(base, ".") || strings.HasPrefix(base, "~") {
		return true
	}
	switch strings.ToLower(filepath.Ext(base)) {
	case ".tmp", ".part", ".swp", ".crdownload":
		return true
	}
	return false
}
