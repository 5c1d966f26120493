package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

const jobColumns = "id, folder_id, status, total, completed, failed, in_progress, error_message, started_at, finished_at, archived"

func scanJob(scanner interface{ Scan(dest ...any) error }) (*Job, error) {
	var (
		id          string
		folderID    int64
		status      string
		total       int
		completed   int
		failed      int
		inProgress  int
		errMessage  sql.NullString
		startedRaw  sql.NullString
		finishedRaw sql.NullString
		archived    sql.NullInt64
	)
	if err := scanner.Scan(
		&id, &folderID, &status, &total, &completed, &failed, &inProgress,
		&errMessage, &startedRaw, &finishedRaw, &archived,
	); err != nil {
		return nil, err
	}
	job := &Job{
		ID:           id,
		FolderID:     folderID,
		Status:       JobStatus(status),
		Total:        total,
		Completed:    completed,
		Failed:       failed,
		InProgress:   inProgress,
		ErrorMessage: errMessage.String,
		Archived:     archived.Int64 != 0,
	}
	if started, err := parseTimeString(startedRaw.String); err == nil {
		job.StartedAt = started
	}
	if finishedRaw.Valid {
		if finished, err := parseTimeString(finishedRaw.String); err == nil {
			job.FinishedAt = &finished
		}
	}
	return job, nil
}

// SaveJob upserts the full job row. Bulk runs write through this on every
// counter change so a restart never loses progress state.
func (s *Store) SaveJob(ctx context.Context, job *Job) error {
	ctx = ensureContext(ctx)
	_, err := s.execWithRetry(ctx,
		`INSERT INTO jobs (id, folder_id, status, total, completed, failed, in_progress, error_message, started_at, finished_at, archived)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
		   status = excluded.status,
		   total = excluded.total,
		   completed = excluded.completed,
		   failed = excluded.failed,
		   in_progress = excluded.in_progress,
		   error_message = excluded.error_message,
		   finished_at = excluded.finished_at,
		   archived = excluded.archived`,
		job.ID,
		job.FolderID,
		string(job.Status),
		job.Total,
		job.Completed,
		job.Failed,
		job.InProgress,
		nullableString(job.ErrorMessage),
		timeString(job.StartedAt),
		nullableTime(job.FinishedAt),
		boolToInt(job.Archived),
	)
	if err != nil {
		return fmt.Errorf("save job: %w", err)
	}
	return nil
}

// JobByID fetches one job.
func (s *Store) JobByID(ctx context.Context, id string) (*Job, error) {
	ctx = ensureContext(ctx)
	row := s.db.QueryRowContext(ctx, "SELECT "+jobColumns+" FROM jobs WHERE id = ?", id)
	job, err := scanJob(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("job %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("load job: %w", err)
	}
	return job, nil
}

// ActiveJobForFolder returns the unarchived job for a folder, if any.
// At most one job per folder is ever pollable.
func (s *Store) ActiveJobForFolder(ctx context.Context, folderID int64) (*Job, error) {
	ctx = ensureContext(ctx)
	row := s.db.QueryRowContext(ctx,
		"SELECT "+jobColumns+" FROM jobs WHERE folder_id = ? AND archived = 0 ORDER BY started_at DESC LIMIT 1",
		folderID,
	)
	job, err := scanJob(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("job for folder %d: %w", folderID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("load folder job: %w", err)
	}
	return job, nil
}

// ArchiveJob takes a finished job out of the pollable set.
func (s *Store) ArchiveJob(ctx context.Context, id string) error {
	ctx = ensureContext(ctx)
	res, err := s.execWithRetry(ctx, "UPDATE jobs SET archived = 1 WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("archive job: %w", err)
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return fmt.Errorf("job %s: %w", id, ErrNotFound)
	}
	return nil
}

// ReconcileStaleJobs fails any job still marked running. Called once at
// daemon startup; a running row at that point belongs to a previous process
// that died mid-run.
func (s *Store) ReconcileStaleJobs(ctx context.Context, reason string) (int64, error) {
	ctx = ensureContext(ctx)
	res, err := s.execWithRetry(ctx,
		`UPDATE jobs SET status = ?, error_message = ?, in_progress = 0, finished_at = ?, archived = 1
		 WHERE status = ?`,
		string(JobFailed), reason, timeString(time.Now()), string(JobRunning),
	)
	if err != nil {
		return 0, fmt.Errorf("reconcile jobs: %w", err)
	}
	affected, _ := res.RowsAffected()
	return affected, nil
}
