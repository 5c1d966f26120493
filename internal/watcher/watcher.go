// Package watcher keeps one fsnotify listener per watched folder and turns
// raw filesystem events into debounced dispatches: a file is handed to the
// engine only after it has been quiet for the debounce window, so partially
// written downloads are not picked up mid-transfer.
package watcher

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/fsnotify/fsnotify"

	"shelve/internal/logging"
)

// Handler receives a settled file. Dispatches run on the watch goroutine,
// one at a time per folder; slow handlers delay later dispatches for the
// same folder only.
type Handler func(ctx context.Context, folderID int64, path string)

// PathLostFunc is invoked when a watch dies on its own, either because the
// watched path disappeared mid-run or because the watch could not be set up.
// The watch loop has already shut itself down when it fires.
type PathLostFunc func(folderID int64, path string, reason string)

// newFsnotifyWatcher is swapped out in tests to exercise setup failures.
var newFsnotifyWatcher = fsnotify.NewWatcher

type folderWatch struct {
	folderID       int64
	path           string
	scanInterval   time.Duration
	debounceWindow time.Duration
	suppressor     *Suppressor
	handler        Handler
	onPathLost     PathLostFunc
	logger         *slog.Logger

	cancel context.CancelFunc
	done   chan struct{}

	// pending maps path -> last event time; only the loop goroutine touches it.
	pending map[string]time.Time
}

func (w *folderWatch) run(ctx context.Context) {
	defer close(w.done)

	fsw, err := newFsnotifyWatcher()
	if err != nil {
		w.logger.Error("create fsnotify watcher", logging.Error(err))
		w.lost("watch setup failed: " + err.Error())
		return
	}
	defer fsw.Close()

	if err := fsw.Add(w.path); err != nil {
		w.logger.Error("watch folder", logging.String(logging.FieldPath, w.path), logging.Error(err))
		w.lost("watch setup failed: " + err.Error())
		return
	}

	ticker := time.NewTicker(w.scanInterval)
	defer ticker.Stop()

	w.logger.Info("watching folder", logging.String(logging.FieldPath, w.path))
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-fsw.Events:
			if !ok {
				return
			}
			w.observe(event)
		case err, ok := <-fsw.Errors:
			if !ok {
				return
			}
			w.logger.Warn("watch error", logging.String(logging.FieldPath, w.path), logging.Error(err))
		case <-ticker.C:
			if _, err := os.Stat(w.path); os.IsNotExist(err) {
				w.logger.Warn("watched path disappeared", logging.String(logging.FieldPath, w.path))
				w.lost("watched path disappeared")
				return
			}
			w.dispatchSettled(ctx)
		}
	}
}

// lost hands the dead watch to the registry on a fresh goroutine; the loop
// is about to return and must not wait on its own deregistration.
func (w *folderWatch) lost(reason string) {
	if w.onPathLost != nil {
		go w.onPathLost(w.folderID, w.path, reason)
	}
}

func (w *folderWatch) observe(event fsnotify.Event) {
	if !event.Op.Has(fsnotify.Create) && !event.Op.Has(fsnotify.Write) && !event.Op.Has(fsnotify.Rename) {
		if event.Op.Has(fsnotify.Remove) {
			delete(w.pending, event.Name)
		}
		return
	}
	if w.suppressor.ShouldIgnore(event.Name) {
		return
	}
	if info, err := os.Stat(event.Name); err != nil || info.IsDir() {
		delete(w.pending, event.Name)
		return
	}
	w.pending[event.Name] = time.Now()
}

func (w *folderWatch) dispatchSettled(ctx context.Context) {
	now := time.Now()
	for path, lastEvent := range w.pending {
		if now.Sub(lastEvent) < w.debounceWindow {
			continue
		}
		delete(w.pending, path)
		if w.suppressor.ShouldIgnore(path) {
			continue
		}
		if _, err := os.Stat(path); err != nil {
			continue
		}
		w.logger.Debug("dispatching settled file",
			logging.Int64(logging.FieldFolderID, w.folderID),
			logging.String(logging.FieldPath, path))
		w.handler(ctx, w.folderID, path)
	}
}
