package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"shelve/internal/classify"
	"shelve/internal/media"
)

// LookupClassification fetches a cached result by content fingerprint.
// Implements classify.Cache.
func (s *Store) LookupClassification(ctx context.Context, fingerprint string) (classify.Result, bool, error) {
	ctx = ensureContext(ctx)
	row := s.db.QueryRowContext(ctx,
		"SELECT media_type, category, confidence, summary, computed_at FROM classification_cache WHERE fingerprint = ?",
		fingerprint,
	)
	var (
		mediaType   string
		category    sql.NullString
		confidence  float64
		summary     sql.NullString
		computedRaw sql.NullString
	)
	if err := row.Scan(&mediaType, &category, &confidence, &summary, &computedRaw); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return classify.Result{}, false, nil
		}
		return classify.Result{}, false, fmt.Errorf("lookup classification: %w", err)
	}
	result := classify.Result{
		Fingerprint: fingerprint,
		MediaType:   media.Type(mediaType),
		Category:    category.String,
		Confidence:  confidence,
		Summary:     summary.String,
	}
	if computed, err := parseTimeString(computedRaw.String); err == nil {
		result.ComputedAt = computed
	}
	return result, true, nil
}

// SaveClassification upserts a result by fingerprint. Implements classify.Cache.
func (s *Store) SaveClassification(ctx context.Context, result classify.Result) error {
	ctx = ensureContext(ctx)
	_, err := s.execWithRetry(ctx,
		`INSERT INTO classification_cache (fingerprint, media_type, category, confidence, summary, computed_at)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT(fingerprint) DO UPDATE SET
		   media_type = excluded.media_type,
		   category = excluded.category,
		   confidence = excluded.confidence,
		   summary = excluded.summary,
		   computed_at = excluded.computed_at`,
		result.Fingerprint,
		string(result.MediaType),
		nullableString(result.Category),
		result.Confidence,
		nullableString(result.Summary),
		timeString(result.ComputedAt),
	)
	if err != nil {
		return fmt.Errorf("save classification: %w", err)
	}
	return nil
}

// PruneClassifications drops the whole cache. Exposed for maintenance; the
// cache rebuilds itself on demand.
func (s *Store) PruneClassifications(ctx context.Context) (int64, error) {
	ctx = ensureContext(ctx)
	res, err := s.execWithRetry(ctx, "DELETE FROM classification_cache")
	if err != nil {
		return 0, fmt.Errorf("prune classifications: %w", err)
	}
	affected, _ := res.RowsAffected()
	return affected, nil
}
