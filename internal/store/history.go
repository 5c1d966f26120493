package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

const movementColumns = "id, job_id, folder_id, filename, from_path, to_path, category, confidence, media_type, detection_reason, fingerprint, backup_path, status, moved_at, undone_at"

func scanMovement(scanner interface{ Scan(dest ...any) error }) (*Movement, error) {
	var (
		id              int64
		jobID           sql.NullString
		folderID        sql.NullInt64
		filename        string
		fromPath        string
		toPath          string
		category        string
		confidence      float64
		mediaType       string
		detectionReason sql.NullString
		fingerprint     sql.NullString
		backupPath      sql.NullString
		status          string
		movedRaw        sql.NullString
		undoneRaw       sql.NullString
	)
	if err := scanner.Scan(
		&id, &jobID, &folderID, &filename, &fromPath, &toPath,
		&category, &confidence, &mediaType, &detectionReason,
		&fingerprint, &backupPath, &status, &movedRaw, &undoneRaw,
	); err != nil {
		return nil, err
	}
	movement := &Movement{
		ID:              id,
		JobID:           jobID.String,
		FolderID:        folderID.Int64,
		Filename:        filename,
		FromPath:        fromPath,
		ToPath:          toPath,
		Category:        category,
		Confidence:      confidence,
		MediaType:       mediaType,
		DetectionReason: detectionReason.String,
		Fingerprint:     fingerprint.String,
		BackupPath:      backupPath.String,
		Status:          MovementStatus(status),
	}
	if moved, err := parseTimeString(movedRaw.String); err == nil {
		movement.MovedAt = moved
	}
	if undoneRaw.Valid {
		if undone, err := parseTimeString(undoneRaw.String); err == nil {
			movement.UndoneAt = &undone
		}
	}
	return movement, nil
}

// AppendMovement records a completed move and returns it with its assigned id.
func (s *Store) AppendMovement(ctx context.Context, movement *Movement) (*Movement, error) {
	ctx = ensureContext(ctx)
	if movement.MovedAt.IsZero() {
		movement.MovedAt = time.Now()
	}
	res, err := s.execWithRetry(ctx,
		`INSERT INTO movements (job_id, folder_id, filename, from_path, to_path, category, confidence, media_type, detection_reason, fingerprint, backup_path, status, moved_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		nullableString(movement.JobID),
		movement.FolderID,
		movement.Filename,
		movement.FromPath,
		movement.ToPath,
		movement.Category,
		movement.Confidence,
		movement.MediaType,
		nullableString(movement.DetectionReason),
		nullableString(movement.Fingerprint),
		nullableString(movement.BackupPath),
		string(MovementCompleted),
		timeString(movement.MovedAt),
	)
	if err != nil {
		return nil, fmt.Errorf("append movement: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("append movement id: %w", err)
	}
	return s.MovementByID(ctx, id)
}

// MovementByID fetches one history entry.
func (s *Store) MovementByID(ctx context.Context, id int64) (*Movement, error) {
	ctx = ensureContext(ctx)
	row := s.db.QueryRowContext(ctx, "SELECT "+movementColumns+" FROM movements WHERE id = ?", id)
	movement, err := scanMovement(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("movement %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("load movement: %w", err)
	}
	return movement, nil
}

// ListMovements returns history entries newest first, capped at limit.
// A non-positive limit returns everything.
func (s *Store) ListMovements(ctx context.Context, limit int) ([]*Movement, error) {
	ctx = ensureContext(ctx)
	query := "SELECT " + movementColumns + " FROM movements ORDER BY id DESC"
	args := []any{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list movements: %w", err)
	}
	defer rows.Close()

	var movements []*Movement
	for rows.Next() {
		movement, err := scanMovement(rows)
		if err != nil {
			return nil, fmt.Errorf("scan movement: %w", err)
		}
		movements = append(movements, movement)
	}
	return movements, rows.Err()
}

// MarkMovementUndone flips a completed entry to undone. Only completed
// entries can be undone, and only once.
func (s *Store) MarkMovementUndone(ctx context.Context, id int64) error {
	ctx = ensureContext(ctx)
	res, err := s.execWithRetry(ctx,
		"UPDATE movements SET status = ?, undone_at = ? WHERE id = ? AND status = ?",
		string(MovementUndone), timeString(time.Now()), id, string(MovementCompleted),
	)
	if err != nil {
		return fmt.Errorf("mark movement undone: %w", err)
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		if _, lookupErr := s.MovementByID(ctx, id); lookupErr != nil {
			return lookupErr
		}
		return fmt.Errorf("movement %d already undone", id)
	}
	return nil
}

// MovementStats aggregates the history: totals, undo count, per-category
// move counts, and the mean confidence of completed moves.
func (s *Store) MovementStats(ctx context.Context) (*HistoryStats, error) {
	ctx = ensureContext(ctx)
	stats := &HistoryStats{ByCategory: make(map[string]int)}

	row := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*),
		        COALESCE(SUM(CASE WHEN status = ? THEN 1 ELSE 0 END), 0),
		        COALESCE(SUM(CASE WHEN status = ? THEN 1 ELSE 0 END), 0),
		        COALESCE(AVG(CASE WHEN status = ? THEN confidence END), 0)
		 FROM movements`,
		string(MovementCompleted), string(MovementUndone), string(MovementCompleted),
	)
	if err := row.Scan(&stats.TotalMoves, &stats.CompletedMoves, &stats.UndoneMoves, &stats.AvgConfidence); err != nil {
		return nil, fmt.Errorf("movement stats: %w", err)
	}
	if stats.TotalMoves > 0 {
		stats.SuccessRate = float64(stats.CompletedMoves) / float64(stats.TotalMoves)
	}

	rows, err := s.db.QueryContext(ctx,
		"SELECT category, COUNT(*) FROM movements WHERE status = ? GROUP BY category",
		string(MovementCompleted),
	)
	if err != nil {
		return nil, fmt.Errorf("movement stats by category: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var (
			category string
			count    int
		)
		if err := rows.Scan(&category, &count); err != nil {
			return nil, fmt.Errorf("scan category count: %w", err)
		}
		stats.ByCategory[category] = count
	}
	return stats, rows.Err()
}
