// Package engine runs the per-file pipeline: rule checks, classification,
// the threshold decision, and the resulting move. Watch dispatches and bulk
// runs both funnel through ProcessFile so a file is handled identically no
// matter how it arrived.
package engine

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"shelve/internal/classify"
	"shelve/internal/decision"
	"shelve/internal/logging"
	"shelve/internal/media"
	"shelve/internal/organizer"
	"shelve/internal/settings"
	"shelve/internal/store"
)

// Status is the disposition of one processed file.
type Status string

const (
	// StatusMoved means the file landed in a category destination.
	StatusMoved Status = "moved"
	// StatusReview means confidence fell short and the file went to review.
	StatusReview Status = "review"
	// StatusSkipped means confidence fell short and the file stayed put.
	StatusSkipped Status = "skipped"
	// StatusIgnored means a rule excluded the file before classification
	// (hidden file, oversize).
	StatusIgnored Status = "ignored"
	// StatusFailed means processing errored.
	StatusFailed Status = "failed"
)

// Result describes what happened to one file.
type Result struct {
	Status     Status
	Path       string
	Category   string
	Confidence float64
	Movement   *store.Movement
	Reason     string
	Err        error
}

// LowConfidence reports whether the file fell through to the fallback policy.
func (r Result) LowConfidence() bool {
	return r.Status == StatusReview || r.Status == StatusSkipped
}

// Engine ties the classifier, decision policy, and mover together.
type Engine struct {
	store      *store.Store
	classifier *classify.Classifier
	mover      *organizer.Mover
	settings   *settings.Holder
	logger     *slog.Logger
}

// New builds an engine.
func New(st *store.Store, classifier *classify.Classifier, mover *organizer.Mover, holder *settings.Holder, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Engine{
		store:      st,
		classifier: classifier,
		mover:      mover,
		settings:   holder,
		logger:     logger.With(logging.String(logging.FieldComponent, "engine")),
	}
}

// Settings exposes the live settings holder for the API layer.
func (e *Engine) Settings() *settings.Holder {
	return e.settings
}

// Store exposes the backing store for the API layer.
func (e *Engine) Store() *store.Store {
	return e.store
}

// Mover exposes the mover, the single writer of movement history.
func (e *Engine) Mover() *organizer.Mover {
	return e.mover
}

// ProcessFile runs one file through the pipeline using the settings snapshot
// taken at entry. It never panics and never returns a partial move: either a
// Movement is recorded or the file is untouched (review placement aside).
func (e *Engine) ProcessFile(ctx context.Context, folderID int64, path string) Result {
	cfg := e.settings.Current()

	if cfg.SkipHiddenFiles && strings.HasPrefix(filepath.Base(path), ".") {
		return Result{Status: StatusIgnored, Path: path, Reason: "hidden file"}
	}

	info, err := os.Stat(path)
	if err != nil {
		return Result{Status: StatusFailed, Path: path, Err: err, Reason: "stat failed"}
	}
	if info.IsDir() {
		return Result{Status: StatusIgnored, Path: path, Reason: "directory"}
	}
	if info.Size() > cfg.MaxFileSize {
		return Result{Status: StatusIgnored, Path: path, Reason: "exceeds max file size"}
	}

	mediaType := media.Detect(path)
	classification, err := e.classifier.Classify(ctx, path, cfg.ModelEnabledFor(mediaType))
	if err != nil {
		return Result{Status: StatusFailed, Path: path, Err: err, Reason: "classification failed"}
	}

	categories, err := e.store.ListCategories(ctx)
	if err != nil {
		return Result{Status: StatusFailed, Path: path, Err: err, Reason: "load categories"}
	}

	outcome := decision.Decide(path, classification, cfg, categories)
	result := Result{
		Path:       path,
		Confidence: classification.Confidence,
		Reason:     outcome.Reason,
	}

	switch outcome.Action {
	case decision.ActionMove:
		movement, err := e.mover.Move(ctx, organizer.Request{
			Path:     path,
			FolderID: folderID,
			Category: outcome.Category,
			Result:   classification,
			Reason:   outcome.Reason,
			Settings: cfg,
		})
		if err != nil {
			result.Status = StatusFailed
			result.Err = err
			result.Reason = "move failed"
			break
		}
		result.Status = StatusMoved
		result.Category = outcome.Category.Name
		result.Movement = movement
	case decision.ActionReview:
		if _, err := e.mover.MoveToReview(ctx, path); err != nil {
			result.Status = StatusFailed
			result.Err = err
			result.Reason = "review move failed"
			break
		}
		result.Status = StatusReview
	default:
		result.Status = StatusSkipped
	}

	if err := e.store.TouchFolderActivity(ctx, folderID); err != nil {
		e.logger.Warn("touch folder activity", logging.Int64(logging.FieldFolderID, folderID), logging.Error(err))
	}

	e.logger.Info("processed file",
		logging.Int64(logging.FieldFolderID, folderID),
		logging.String(logging.FieldPath, path),
		logging.String("status", string(result.Status)),
		logging.String("reason", result.Reason))
	return result
}
