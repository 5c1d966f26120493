// Package organizer executes decided moves: backup copies, collision-safe
// placement, cross-device fallback, history recording, and undo. It is the
// only writer of the movement history.
package organizer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"syscall"
	"time"

	"shelve/internal/classify"
	"shelve/internal/fileutil"
	"shelve/internal/logging"
	"shelve/internal/settings"
	"shelve/internal/store"
)

// PathSuppressor marks paths the engine itself is about to touch so the
// folder watcher does not re-ingest them. The watcher provides the real
// implementation.
type PathSuppressor interface {
	Suppress(path string)
}

type nopSuppressor struct{}

func (nopSuppressor) Suppress(string) {}

// Mover moves files into category destinations and records every move.
type Mover struct {
	store      *store.Store
	suppressor PathSuppressor
	reviewDir  string
	backupDir  string
	logger     *slog.Logger
}

// NewMover builds a mover. A nil suppressor is allowed for callers without a
// live watcher, such as tests and one-shot CLI paths.
func NewMover(st *store.Store, suppressor PathSuppressor, reviewDir, backupDir string, logger *slog.Logger) *Mover {
	if suppressor == nil {
		suppressor = nopSuppressor{}
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Mover{
		store:      st,
		suppressor: suppressor,
		reviewDir:  reviewDir,
		backupDir:  backupDir,
		logger:     logger.With(logging.String(logging.FieldComponent, "mover")),
	}
}

// Request carries everything a move needs. Reason is the decision policy's
// explanation for the move and lands in the history entry.
type Request struct {
	Path     string
	FolderID int64
	JobID    string
	Category *store.Category
	Result   classify.Result
	Reason   string
	Settings settings.Settings
}

// Move relocates the file into its category destination and appends a
// Movement on success. On failure a MoveError is returned and no history
// entry is written.
func (m *Mover) Move(ctx context.Context, req Request) (*store.Movement, error) {
	if _, err := os.Stat(req.Path); err != nil {
		if os.IsNotExist(err) {
			return nil, moveError(SourceMissing, req.Path, err)
		}
		return nil, moveError(TransferFailed, req.Path, err)
	}

	destDir := req.Category.Destination
	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return nil, classifyOSError(destDir, err)
	}

	backupPath := ""
	if req.Settings.CreateBackups {
		var err error
		backupPath, err = m.writeBackup(req.Path)
		if err != nil {
			return nil, err
		}
	}

	target, err := resolveCollision(destDir, filepath.Base(req.Path))
	if err != nil {
		var moveErr *MoveError
		if errors.As(err, &moveErr) {
			return nil, moveErr
		}
		return nil, moveError(TransferFailed, req.Path, err)
	}

	m.suppressor.Suppress(target)
	if err := m.relocate(req.Path, target, req.Settings.PreserveMetadata); err != nil {
		return nil, err
	}

	movement, err := m.store.AppendMovement(ctx, &store.Movement{
		JobID:           req.JobID,
		FolderID:        req.FolderID,
		Filename:        filepath.Base(req.Path),
		FromPath:        req.Path,
		ToPath:          target,
		Category:        req.Category.Name,
		Confidence:      req.Result.Confidence,
		MediaType:       string(req.Result.MediaType),
		DetectionReason: req.Reason,
		Fingerprint:     req.Result.Fingerprint,
		BackupPath:      backupPath,
	})
	if err != nil {
		return nil, fmt.Errorf("record movement for %s: %w", req.Path, err)
	}

	m.logger.Info("moved file",
		logging.String(logging.FieldPath, req.Path),
		logging.String("destination", target),
		logging.String("category", req.Category.Name))
	return movement, nil
}

// MoveToReview parks a low-confidence file in the review directory without a
// history entry; review placement is not undoable.
func (m *Mover) MoveToReview(ctx context.Context, path string) (string, error) {
	_ = ctx
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return "", moveError(SourceMissing, path, err)
		}
		return "", moveError(TransferFailed, path, err)
	}
	if err := os.MkdirAll(m.reviewDir, 0o755); err != nil {
		return "", classifyOSError(m.reviewDir, err)
	}
	target, err := resolveCollision(m.reviewDir, filepath.Base(path))
	if err != nil {
		var moveErr *MoveError
		if errors.As(err, &moveErr) {
			return "", moveErr
		}
		return "", moveError(TransferFailed, path, err)
	}
	m.suppressor.Suppress(target)
	if err := m.relocate(path, target, true); err != nil {
		return "", err
	}
	m.logger.Info("moved file to review",
		logging.String(logging.FieldPath, path),
		logging.String("destination", target))
	return target, nil
}

// Undo reverses a recorded move: the file returns to its original path and
// the entry flips to undone. ErrNotFound surfaces for unknown ids;
// ErrConflict when the entry was already undone, the moved file is gone, or
// the original path is occupied again.
func (m *Mover) Undo(ctx context.Context, movementID int64) (*store.Movement, error) {
	movement, err := m.store.MovementByID(ctx, movementID)
	if err != nil {
		return nil, err
	}
	if movement.Status != store.MovementCompleted {
		return nil, fmt.Errorf("movement %d already undone: %w", movementID, ErrConflict)
	}
	if _, err := os.Stat(movement.ToPath); err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("moved file missing from %s: %w", movement.ToPath, ErrConflict)
		}
		return nil, fmt.Errorf("stat moved file: %w", err)
	}
	free, err := pathFree(movement.FromPath)
	if err != nil {
		return nil, fmt.Errorf("check original path: %w", err)
	}
	if !free {
		return nil, fmt.Errorf("original path %s occupied: %w", movement.FromPath, ErrConflict)
	}

	if err := os.MkdirAll(filepath.Dir(movement.FromPath), 0o755); err != nil {
		return nil, classifyOSError(filepath.Dir(movement.FromPath), err)
	}
	m.suppressor.Suppress(movement.FromPath)
	if err := m.relocate(movement.ToPath, movement.FromPath, true); err != nil {
		return nil, err
	}
	if err := m.store.MarkMovementUndone(ctx, movementID); err != nil {
		return nil, err
	}

	m.logger.Info("undid movement",
		logging.Int64("movement_id", movementID),
		logging.String(logging.FieldPath, movement.FromPath))
	return m.store.MovementByID(ctx, movementID)
}

// relocate renames src onto dst, falling back to a verified copy plus delete
// when the rename crosses filesystems.
func (m *Mover) relocate(src, dst string, preserveTimes bool) error {
	renameErr := os.Rename(src, dst)
	if renameErr == nil {
		return nil
	}
	var linkErr *os.LinkError
	if errors.As(renameErr, &linkErr) && errors.Is(linkErr.Err, syscall.EXDEV) {
		if err := fileutil.CopyFileVerified(src, dst); err != nil {
			return moveError(TransferFailed, src, err)
		}
		if preserveTimes {
			if err := fileutil.PreserveTimes(src, dst); err != nil {
				m.logger.Warn("failed to preserve timestamps", logging.String(logging.FieldPath, dst), logging.Error(err))
			}
		}
		if err := os.Remove(src); err != nil {
			m.logger.Warn("failed to remove source after copy", logging.String(logging.FieldPath, src), logging.Error(err))
		}
		return nil
	}
	return classifyOSError(src, renameErr)
}

func (m *Mover) writeBackup(path string) (string, error) {
	if err := os.MkdirAll(m.backupDir, 0o755); err != nil {
		return "", classifyOSError(m.backupDir, err)
	}
	stamp := time.Now().UTC().Format("20060102-150405")
	name := stamp + "-" + filepath.Base(path)
	backupPath, err := resolveCollision(m.backupDir, name)
	if err != nil {
		return "", moveError(TransferFailed, path, err)
	}
	if err := fileutil.CopyFileVerified(path, backupPath); err != nil {
		return "", moveError(TransferFailed, path, err)
	}
	return backupPath, nil
}

func classifyOSError(path string, err error) *MoveError {
	if os.IsPermission(err) {
		return moveError(PermissionDenied, path, err)
	}
	if os.IsNotExist(err) {
		return moveError(SourceMissing, path, err)
	}
	return moveError(TransferFailed, path, err)
}
