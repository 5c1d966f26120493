package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

const folderColumns = "id, path, enabled, paused_reason, created_at, updated_at, last_activity_at"

func scanFolder(scanner interface{ Scan(dest ...any) error }) (*Folder, error) {
	var (
		id           int64
		path         string
		enabled      sql.NullInt64
		pausedReason sql.NullString
		createdRaw   sql.NullString
		updatedRaw   sql.NullString
		activityRaw  sql.NullString
	)
	if err := scanner.Scan(&id, &path, &enabled, &pausedReason, &createdRaw, &updatedRaw, &activityRaw); err != nil {
		return nil, err
	}
	folder := &Folder{
		ID:           id,
		Path:         path,
		Enabled:      enabled.Int64 != 0,
		PausedReason: pausedReason.String,
	}
	if created, err := parseTimeString(createdRaw.String); err == nil {
		folder.CreatedAt = created
	}
	if updated, err := parseTimeString(updatedRaw.String); err == nil {
		folder.UpdatedAt = updated
	}
	if activityRaw.Valid {
		if activity, err := parseTimeString(activityRaw.String); err == nil {
			folder.LastActivityAt = &activity
		}
	}
	return folder, nil
}

// AddFolder registers a watched folder. The path must be unique.
func (s *Store) AddFolder(ctx context.Context, path string) (*Folder, error) {
	ctx = ensureContext(ctx)
	now := timeString(time.Now())
	res, err := s.execWithRetry(ctx,
		"INSERT INTO folders (path, enabled, created_at, updated_at) VALUES (?, 1, ?, ?)",
		path, now, now,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("folder %s: %w", path, ErrDuplicate)
		}
		return nil, fmt.Errorf("add folder: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("add folder id: %w", err)
	}
	return s.FolderByID(ctx, id)
}

// FolderByID fetches one folder registration.
func (s *Store) FolderByID(ctx context.Context, id int64) (*Folder, error) {
	ctx = ensureContext(ctx)
	row := s.db.QueryRowContext(ctx, "SELECT "+folderColumns+" FROM folders WHERE id = ?", id)
	folder, err := scanFolder(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("folder %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("load folder: %w", err)
	}
	return folder, nil
}

// FolderByPath fetches a folder registration by its exact path.
func (s *Store) FolderByPath(ctx context.Context, path string) (*Folder, error) {
	ctx = ensureContext(ctx)
	row := s.db.QueryRowContext(ctx, "SELECT "+folderColumns+" FROM folders WHERE path = ?", path)
	folder, err := scanFolder(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("folder %s: %w", path, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("load folder: %w", err)
	}
	return folder, nil
}

// ListFolders returns every registration in creation order.
func (s *Store) ListFolders(ctx context.Context) ([]*Folder, error) {
	ctx = ensureContext(ctx)
	rows, err := s.db.QueryContext(ctx, "SELECT "+folderColumns+" FROM folders ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("list folders: %w", err)
	}
	defer rows.Close()

	var folders []*Folder
	for rows.Next() {
		folder, err := scanFolder(rows)
		if err != nil {
			return nil, fmt.Errorf("scan folder: %w", err)
		}
		folders = append(folders, folder)
	}
	return folders, rows.Err()
}

// SetFolderEnabled flips the user-facing active toggle. Enabling also clears
// any engine pause so the watcher gets a fresh start.
func (s *Store) SetFolderEnabled(ctx context.Context, id int64, enabled bool) (*Folder, error) {
	ctx = ensureContext(ctx)
	res, err := s.execWithRetry(ctx,
		"UPDATE folders SET enabled = ?, paused_reason = CASE WHEN ? THEN NULL ELSE paused_reason END, updated_at = ? WHERE id = ?",
		boolToInt(enabled), boolToInt(enabled), timeString(time.Now()), id,
	)
	if err != nil {
		return nil, fmt.Errorf("toggle folder: %w", err)
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return nil, fmt.Errorf("folder %d: %w", id, ErrNotFound)
	}
	return s.FolderByID(ctx, id)
}

// PauseFolder records an engine-initiated suspension, such as the watched
// path disappearing.
func (s *Store) PauseFolder(ctx context.Context, id int64, reason string) error {
	ctx = ensureContext(ctx)
	res, err := s.execWithRetry(ctx,
		"UPDATE folders SET paused_reason = ?, updated_at = ? WHERE id = ?",
		nullableString(reason), timeString(time.Now()), id,
	)
	if err != nil {
		return fmt.Errorf("pause folder: %w", err)
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return fmt.Errorf("folder %d: %w", id, ErrNotFound)
	}
	return nil
}

// TouchFolderActivity stamps the folder's last processing activity.
func (s *Store) TouchFolderActivity(ctx context.Context, id int64) error {
	ctx = ensureContext(ctx)
	_, err := s.execWithRetry(ctx,
		"UPDATE folders SET last_activity_at = ? WHERE id = ?",
		timeString(time.Now()), id,
	)
	if err != nil {
		return fmt.Errorf("touch folder: %w", err)
	}
	return nil
}

// RemoveFolder deletes a registration. History rows keep their folder id for
// auditing even after the registration is gone.
func (s *Store) RemoveFolder(ctx context.Context, id int64) error {
	ctx = ensureContext(ctx)
	res, err := s.execWithRetry(ctx, "DELETE FROM folders WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("remove folder: %w", err)
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return fmt.Errorf("folder %d: %w", id, ErrNotFound)
	}
	return nil
}
