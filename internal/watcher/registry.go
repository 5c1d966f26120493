package watcher

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"shelve/internal/logging"
)

// ErrAlreadyWatching is returned when a folder already has a live watch.
var ErrAlreadyWatching = errors.New("folder already being watched")

// ErrPathNotFound is returned when the folder path does not exist or is not
// a directory.
var ErrPathNotFound = errors.New("watch path not found")

// Registry supervises one watch goroutine per folder id. Every watch runs
// under its own cancelable context so folders stop independently and
// shutdown is deterministic.
type Registry struct {
	scanInterval   time.Duration
	debounceWindow time.Duration
	suppressor     *Suppressor
	handler        Handler
	onPathLost     PathLostFunc
	logger         *slog.Logger

	mu      sync.Mutex
	watches map[int64]*folderWatch
}

// NewRegistry builds an empty registry.
func NewRegistry(scanInterval, debounceWindow time.Duration, suppressor *Suppressor, handler Handler, onPathLost PathLostFunc, logger *slog.Logger) *Registry {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Registry{
		scanInterval:   scanInterval,
		debounceWindow: debounceWindow,
		suppressor:     suppressor,
		handler:        handler,
		onPathLost:     onPathLost,
		logger:         logger.With(logging.String(logging.FieldComponent, "watcher")),
		watches:        make(map[int64]*folderWatch),
	}
}

// Start begins watching a folder path under the registry's parent context.
func (r *Registry) Start(ctx context.Context, folderID int64, path string) error {
	info, err := os.Stat(path)
	if err != nil || !info.IsDir() {
		return fmt.Errorf("%w: %s", ErrPathNotFound, path)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.watches[folderID]; exists {
		return fmt.Errorf("folder %d: %w", folderID, ErrAlreadyWatching)
	}

	watchCtx, cancel := context.WithCancel(ctx)
	watch := &folderWatch{
		folderID:       folderID,
		path:           path,
		scanInterval:   r.scanInterval,
		debounceWindow: r.debounceWindow,
		suppressor:     r.suppressor,
		handler:        r.handler,
		onPathLost:     r.pathLost,
		logger:         r.logger.With(logging.Int64(logging.FieldFolderID, folderID)),
		cancel:         cancel,
		done:           make(chan struct{}),
		pending:        make(map[string]time.Time),
	}
	r.watches[folderID] = watch
	go watch.run(watchCtx)
	return nil
}

// pathLost removes the dead watch before surfacing the loss.
func (r *Registry) pathLost(folderID int64, path string, reason string) {
	r.mu.Lock()
	if watch, ok := r.watches[folderID]; ok {
		watch.cancel()
		delete(r.watches, folderID)
	}
	r.mu.Unlock()
	if r.onPathLost != nil {
		r.onPathLost(folderID, path, reason)
	}
}

// Stop cancels a folder's watch and waits for its loop to exit. Stopping a
// folder that is not watched is a no-op.
func (r *Registry) Stop(folderID int64) {
	r.mu.Lock()
	watch, ok := r.watches[folderID]
	if ok {
		delete(r.watches, folderID)
	}
	r.mu.Unlock()
	if !ok {
		return
	}
	watch.cancel()
	<-watch.done
}

// StopAll shuts every watch down and waits for the loops to exit.
func (r *Registry) StopAll() {
	r.mu.Lock()
	watches := make([]*folderWatch, 0, len(r.watches))
	for id, watch := range r.watches {
		watches = append(watches, watch)
		delete(r.watches, id)
	}
	r.mu.Unlock()
	for _, watch := range watches {
		watch.cancel()
		<-watch.done
	}
}

// Watching reports whether a folder currently has a live watch.
func (r *Registry) Watching(folderID int64) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.watches[folderID]
	return ok
}

// WatchedIDs returns the ids of every live watch.
func (r *Registry) WatchedIDs() []int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	ids := make([]int64, 0, len(r.watches))
	for id := range r.watches {
		ids = append(ids, id)
	}
	return ids
}
