// Package classify turns files into category guesses. A Classifier
// fingerprints the file, consults the classification cache, and only invokes
// the configured model on a cache miss. Results are cached by fingerprint so
// re-processing a folder costs one stat and one lookup per unchanged file.
package classify

import (
	"context"
	"log/slog"
	"time"

	"shelve/internal/logging"
	"shelve/internal/media"
)

// Result is a finished classification for one file.
type Result struct {
	Fingerprint string
	MediaType   media.Type
	Category    string
	Confidence  float64
	Summary     string
	ComputedAt  time.Time
	CacheHit    bool
}

// Cache stores classification results keyed by content fingerprint.
type Cache interface {
	LookupClassification(ctx context.Context, fingerprint string) (Result, bool, error)
	SaveClassification(ctx context.Context, result Result) error
}

// Classifier coordinates fingerprinting, cache lookups, and model calls.
type Classifier struct {
	cache   Cache
	model   Model
	timeout time.Duration
	logger  *slog.Logger
}

// NewClassifier builds a classifier around the given cache and model. A zero
// timeout disables the per-call deadline.
func NewClassifier(cache Cache, model Model, timeout time.Duration, logger *slog.Logger) *Classifier {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Classifier{
		cache:   cache,
		model:   model,
		timeout: timeout,
		logger:  logger.With(logging.String(logging.FieldComponent, "classifier")),
	}
}

// Classify produces a Result for path. When modelEnabled is false the file
// still gets a fingerprint and media type, but the category stays empty with
// zero confidence, which routes it to the fallback policy downstream.
// Disabled results are not cached, so re-enabling the model re-classifies.
func (c *Classifier) Classify(ctx context.Context, path string, modelEnabled bool) (Result, error) {
	fingerprint, err := Fingerprint(path)
	if err != nil {
		return Result{}, err
	}
	mediaType := media.Detect(path)

	if cached, ok, err := c.cache.LookupClassification(ctx, fingerprint); err != nil {
		c.logger.Warn("cache lookup failed", logging.String(logging.FieldPath, path), logging.Error(err))
	} else if ok {
		cached.CacheHit = true
		return cached, nil
	}

	result := Result{
		Fingerprint: fingerprint,
		MediaType:   mediaType,
		ComputedAt:  time.Now().UTC(),
	}
	if !modelEnabled {
		result.MediaType = media.Unknown
		result.Summary = "model disabled"
		return result, nil
	}

	modelCtx := ctx
	if c.timeout > 0 {
		var cancel context.CancelFunc
		modelCtx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}
	guess, err := c.model.Classify(modelCtx, path, mediaType)
	if err != nil {
		// Inference trouble is not fatal for a readable file: the zero
		// confidence routes it to the fallback policy. Not cached so the
		// next pass retries the model.
		c.logger.Warn("model classification failed", logging.String(logging.FieldPath, path), logging.Error(err))
		result.Summary = "classification failed: " + err.Error()
		return result, nil
	}
	result.Category = guess.Category
	result.Confidence = guess.Confidence
	result.Summary = guess.Summary

	if err := c.cache.SaveClassification(ctx, result); err != nil {
		c.logger.Warn("cache save failed", logging.String(logging.FieldPath, path), logging.Error(err))
	}
	return result, nil
}
