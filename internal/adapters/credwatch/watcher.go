// Package credwatch notices when another process rewrites or removes the
// credential file and asks the session layer to reconcile.
package credwatch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Syncer is implemented by the session manager.
type Syncer interface {
	SyncFromStorage(ctx context.Context) error
}

// Options configures a Watcher.
type Options struct {
	// Path is the credential file to follow.
	Path   string
	Syncer Syncer
	Logger *slog.Logger
	// Debounce coalesces bursts of events (write + chmod + rename). Default 100ms.
	Debounce time.Duration
}

// Watcher follows one credential file.
type Watcher struct {
	path     string
	syncer   Syncer
	logger   *slog.Logger
	debounce time.Duration
}

// New validates opts and returns a Watcher.
func New(opts Options) (*Watcher, error) {
	if opts.Path == "" {
		return nil, errors.New("credential path is required")
	}
	if opts.Syncer == nil {
		return nil, errors.New("syncer is required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	debounce := opts.Debounce
	if debounce <= 0 {
		debounce = 100 * time.Millisecond
	}
	return &Watcher{path: filepath.Clean(opts.Path), syncer: opts.Syncer, logger: logger, debounce: debounce}, nil
}

// Run blocks until ctx is done. The parent directory is watched rather than
// the file itself because atomic writes replace the inode.
func (w *Watcher) Run(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create fs watcher: %w", err)
	}
	defer fw.Close()

	dir := filepath.Dir(w.path)
	if err := fw.Add(dir); err != nil {
		return fmt.Errorf("watch %s: %w", dir, err)
	}
	w.logger.InfoContext(ctx, "watching credential file", "path", w.path)

	timer := time.NewTimer(w.debounce)
	if !timer.Stop() {
		<-timer.C
	}
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != w.path {
				continue
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			timer.Reset(w.debounce)
		case werr, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			w.logger.WarnContext(ctx, "credential watcher error", "error", werr)
		case <-timer.C:
			if err := w.syncer.SyncFromStorage(ctx); err != nil {
				w.logger.WarnContext(ctx, "sync from credential file failed", "error", err)
			}
		}
	}
}
