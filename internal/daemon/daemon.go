// Package daemon wires the engine together and enforces single-instance
// execution: one process owns the database, the watcher registry, the bulk
// processor, and the HTTP API.
package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/gofrs/flock"

	"shelve/internal/bulk"
	"shelve/internal/classify"
	"shelve/internal/config"
	"shelve/internal/engine"
	"shelve/internal/logging"
	"shelve/internal/organizer"
	"shelve/internal/settings"
	"shelve/internal/store"
	"shelve/internal/watcher"
)

// staleJobReason is written to running jobs found at startup; they belong to
// a previous process that died mid-run.
const staleJobReason = "daemon restarted while job was running"

// Daemon owns every long-lived component of a shelve instance.
type Daemon struct {
	cfg        *config.Config
	logger     *slog.Logger
	store      *store.Store
	holder     *settings.Holder
	suppressor *watcher.Suppressor
	mover      *organizer.Mover
	engine     *engine.Engine
	processor  *bulk.Processor
	registry   *watcher.Registry
	api        *apiServer

	lockPath string
	lock     *flock.Flock

	running atomic.Bool
	ctx     context.Context
	cancel  context.CancelFunc
}

// New constructs a daemon around an open store. Settings are loaded from the
// store, seeded from the config file on first run.
func New(cfg *config.Config, st *store.Store, logger *slog.Logger) (*Daemon, error) {
	if cfg == nil || st == nil {
		return nil, errors.New("daemon requires config and store")
	}
	if logger == nil {
		logger = logging.NewNop()
	}

	seed := settings.FromConfig(cfg)
	loaded, err := st.LoadSettings(context.Background(), seed)
	if err != nil {
		return nil, fmt.Errorf("load settings: %w", err)
	}
	holder := settings.NewHolder(loaded)

	suppressor := watcher.NewSuppressor()
	mover := organizer.NewMover(st, suppressor, cfg.Paths.ReviewDir, cfg.Paths.BackupDir, logger)
	classifier := classify.NewClassifier(st, classify.NewHeuristicModel(),
		time.Duration(cfg.Workflow.ClassifyTimeoutSeconds)*time.Second, logger)
	eng := engine.New(st, classifier, mover, holder, logger)
	processor := bulk.NewProcessor(st, eng, holder, cfg.Workflow.Workers,
		time.Duration(cfg.Workflow.JobRetentionSeconds)*time.Second, logger)

	d := &Daemon{
		cfg:        cfg,
		logger:     logger.With(logging.String(logging.FieldComponent, "daemon")),
		store:      st,
		holder:     holder,
		suppressor: suppressor,
		mover:      mover,
		engine:     eng,
		processor:  processor,
		lockPath:   filepath.Join(cfg.Paths.DataDir, "shelved.lock"),
	}
	d.lock = flock.New(d.lockPath)
	d.registry = watcher.NewRegistry(
		time.Duration(cfg.Workflow.ScanIntervalMS)*time.Millisecond,
		time.Duration(cfg.Workflow.DebounceWindowMS)*time.Millisecond,
		suppressor,
		d.handleSettledFile,
		d.handlePathLost,
		logger,
	)
	d.api = newAPIServer(cfg.Paths.APIBind, d, logger)
	return d, nil
}

// Start acquires the instance lock, reconciles stale job state, restores
// watches for enabled folders, and brings up the API server.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another shelve daemon instance is already running")
	}

	d.ctx, d.cancel = context.WithCancel(ctx)

	reconciled, err := d.store.ReconcileStaleJobs(d.ctx, staleJobReason)
	if err != nil {
		d.releaseLock()
		return fmt.Errorf("reconcile jobs: %w", err)
	}
	if reconciled > 0 {
		d.logger.Warn("failed stale jobs from previous run", logging.Int64("count", reconciled))
	}

	if err := d.restoreWatches(d.ctx); err != nil {
		d.releaseLock()
		return err
	}

	if err := d.api.start(d.ctx); err != nil {
		d.registry.StopAll()
		d.releaseLock()
		return err
	}

	d.running.Store(true)
	d.logger.Info("shelve daemon started", logging.String("lock", d.lockPath))
	return nil
}

// Stop shuts the watches and API server down and releases the lock.
func (d *Daemon) Stop() {
	if !d.running.Load() {
		return
	}
	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	d.registry.StopAll()
	d.api.stop()
	d.releaseLock()
	d.ctx = nil
	d.running.Store(false)
	d.logger.Info("shelve daemon stopped")
}

// Close stops the daemon and closes the store.
func (d *Daemon) Close() error {
	d.Stop()
	return d.store.Close()
}

func (d *Daemon) releaseLock() {
	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release daemon lock", logging.Error(err))
	}
}

// restoreWatches starts a watch for every enabled, unpaused folder whose
// path still exists; folders with missing paths are paused instead.
func (d *Daemon) restoreWatches(ctx context.Context) error {
	folders, err := d.store.ListFolders(ctx)
	if err != nil {
		return fmt.Errorf("list folders: %w", err)
	}
	for _, folder := range folders {
		if !folder.Enabled || folder.Paused() {
			continue
		}
		if err := d.registry.Start(ctx, folder.ID, folder.Path); err != nil {
			if errors.Is(err, watcher.ErrPathNotFound) {
				d.logger.Warn("pausing folder with missing path",
					logging.Int64(logging.FieldFolderID, folder.ID),
					logging.String(logging.FieldPath, folder.Path))
				if pauseErr := d.store.PauseFolder(ctx, folder.ID, "path not found at startup"); pauseErr != nil {
					d.logger.Error("pause folder", logging.Error(pauseErr))
				}
				continue
			}
			return fmt.Errorf("watch folder %d: %w", folder.ID, err)
		}
	}
	return nil
}

// handleSettledFile is the watch dispatch target: every settled file runs
// through the engine pipeline.
func (d *Daemon) handleSettledFile(ctx context.Context, folderID int64, path string) {
	result := d.engine.ProcessFile(ctx, folderID, path)
	if result.Status == engine.StatusFailed {
		d.logger.Warn("watch dispatch failed",
			logging.Int64(logging.FieldFolderID, folderID),
			logging.String(logging.FieldPath, path),
			logging.Error(result.Err))
	}
}

// handlePathLost pauses a folder whose watch died, recording why.
func (d *Daemon) handlePathLost(folderID int64, path string, reason string) {
	d.logger.Warn("watch lost",
		logging.Int64(logging.FieldFolderID, folderID),
		logging.String(logging.FieldPath, path),
		logging.String("reason", reason))
	if err := d.store.PauseFolder(context.Background(), folderID, reason); err != nil {
		d.logger.Error("pause folder after watch loss", logging.Error(err))
	}
}

// AddFolder registers a folder and starts watching it immediately.
func (d *Daemon) AddFolder(ctx context.Context, path string) (*store.Folder, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve path: %w", err)
	}
	info, err := os.Stat(abs)
	if err != nil || !info.IsDir() {
		return nil, fmt.Errorf("%w: %s", watcher.ErrPathNotFound, abs)
	}
	folder, err := d.store.AddFolder(ctx, abs)
	if err != nil {
		return nil, err
	}
	if d.running.Load() {
		if err := d.registry.Start(d.ctx, folder.ID, folder.Path); err != nil && !errors.Is(err, watcher.ErrAlreadyWatching) {
			d.logger.Warn("start watch for new folder", logging.Int64(logging.FieldFolderID, folder.ID), logging.Error(err))
		}
	}
	return folder, nil
}

// RemoveFolder stops the folder's watch and deletes its registration.
func (d *Daemon) RemoveFolder(ctx context.Context, id int64) error {
	d.registry.Stop(id)
	return d.store.RemoveFolder(ctx, id)
}

// ToggleFolder flips a folder's enabled state, starting or stopping its
// watch to match.
func (d *Daemon) ToggleFolder(ctx context.Context, id int64) (*store.Folder, error) {
	folder, err := d.store.FolderByID(ctx, id)
	if err != nil {
		return nil, err
	}
	updated, err := d.store.SetFolderEnabled(ctx, id, !folder.Enabled)
	if err != nil {
		return nil, err
	}
	if updated.Enabled {
		if d.running.Load() {
			if err := d.registry.Start(d.ctx, updated.ID, updated.Path); err != nil {
				if errors.Is(err, watcher.ErrPathNotFound) {
					if pauseErr := d.store.PauseFolder(ctx, updated.ID, "path not found"); pauseErr != nil {
						d.logger.Error("pause folder", logging.Error(pauseErr))
					}
					return d.store.FolderByID(ctx, updated.ID)
				}
				if !errors.Is(err, watcher.ErrAlreadyWatching) {
					return nil, err
				}
			}
		}
	} else {
		d.registry.Stop(id)
	}
	return updated, nil
}

// UpdateSettings validates, persists, and publishes a new settings snapshot.
func (d *Daemon) UpdateSettings(ctx context.Context, next settings.Settings) error {
	if err := d.store.SaveSettings(ctx, next); err != nil {
		return err
	}
	return d.holder.Replace(next)
}

// Settings returns the live settings snapshot.
func (d *Daemon) Settings() settings.Settings {
	return d.holder.Current()
}

// Watching reports whether a folder has a live watch.
func (d *Daemon) Watching(folderID int64) bool {
	return d.registry.Watching(folderID)
}

// countFiles counts the regular entries directly under path. Folder listings
// derive their file counts from the directory so the number is never stale;
// an unreadable path reports zero.
func (d *Daemon) countFiles(path string) int {
	entries, err := os.ReadDir(path)
	if err != nil {
		return 0
	}
	count := 0
	for _, entry := range entries {
		if !entry.IsDir() {
			count++
		}
	}
	return count
}
