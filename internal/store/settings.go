package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"shelve/internal/settings"
)

// LoadSettings reads the persisted engine settings row. When the row does
// not exist yet (fresh database), seed is saved and returned.
func (s *Store) LoadSettings(ctx context.Context, seed settings.Settings) (settings.Settings, error) {
	ctx = ensureContext(ctx)
	row := s.db.QueryRowContext(ctx,
		`SELECT text_threshold, image_threshold, audio_threshold, video_threshold,
		        fallback_behavior,
		        text_model_enabled, image_model_enabled, audio_model_enabled, video_model_enabled,
		        max_file_size, skip_hidden_files, preserve_metadata, create_backups
		 FROM settings WHERE id = 1`,
	)
	var (
		loaded   settings.Settings
		fallback string
		textOn   int
		imageOn  int
		audioOn  int
		videoOn  int
		hidden   int
		preserve int
		backups  int
	)
	err := row.Scan(
		&loaded.TextThreshold, &loaded.ImageThreshold, &loaded.AudioThreshold, &loaded.VideoThreshold,
		&fallback,
		&textOn, &imageOn, &audioOn, &videoOn,
		&loaded.MaxFileSize, &hidden, &preserve, &backups,
	)
	if errors.Is(err, sql.ErrNoRows) {
		if err := s.SaveSettings(ctx, seed); err != nil {
			return settings.Settings{}, err
		}
		return seed, nil
	}
	if err != nil {
		return settings.Settings{}, fmt.Errorf("load settings: %w", err)
	}
	parsed, ok := settings.ParseFallback(fallback)
	if !ok {
		return settings.Settings{}, fmt.Errorf("load settings: unknown fallback behavior %q", fallback)
	}
	loaded.Fallback = parsed
	loaded.TextModelEnabled = textOn != 0
	loaded.ImageModelEnabled = imageOn != 0
	loaded.AudioModelEnabled = audioOn != 0
	loaded.VideoModelEnabled = videoOn != 0
	loaded.SkipHiddenFiles = hidden != 0
	loaded.PreserveMetadata = preserve != 0
	loaded.CreateBackups = backups != 0
	return loaded, nil
}

// SaveSettings writes the full settings row in one statement so readers
// never observe a partial update.
func (s *Store) SaveSettings(ctx context.Context, value settings.Settings) error {
	ctx = ensureContext(ctx)
	if err := value.Validate(); err != nil {
		return err
	}
	_, err := s.execWithRetry(ctx,
		`INSERT INTO settings (id, text_threshold, image_threshold, audio_threshold, video_threshold,
		                       fallback_behavior,
		                       text_model_enabled, image_model_enabled, audio_model_enabled, video_model_enabled,
		                       max_file_size, skip_hidden_files, preserve_metadata, create_backups, updated_at)
		 VALUES (1, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
		   text_threshold = excluded.text_threshold,
		   image_threshold = excluded.image_threshold,
		   audio_threshold = excluded.audio_threshold,
		   video_threshold = excluded.video_threshold,
		   fallback_behavior = excluded.fallback_behavior,
		   text_model_enabled = excluded.text_model_enabled,
		   image_model_enabled = excluded.image_model_enabled,
		   audio_model_enabled = excluded.audio_model_enabled,
		   video_model_enabled = excluded.video_model_enabled,
		   max_file_size = excluded.max_file_size,
		   skip_hidden_files = excluded.skip_hidden_files,
		   preserve_metadata = excluded.preserve_metadata,
		   create_backups = excluded.create_backups,
		   updated_at = excluded.updated_at`,
		value.TextThreshold, value.ImageThreshold, value.AudioThreshold, value.VideoThreshold,
		string(value.Fallback),
		boolToInt(value.TextModelEnabled), boolToInt(value.ImageModelEnabled),
		boolToInt(value.AudioModelEnabled), boolToInt(value.VideoModelEnabled),
		value.MaxFileSize, boolToInt(value.SkipHiddenFiles),
		boolToInt(value.PreserveMetadata), boolToInt(value.CreateBackups),
		timeString(time.Now()),
	)
	if err != nil {
		return fmt.Errorf("save settings: %w", err)
	}
	return nil
}
