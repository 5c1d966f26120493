package api

import (
	"time"

	"shelve/internal/bulk"
	"shelve/internal/settings"
	"shelve/internal/store"
)

func formatTime(value time.Time) string {
	if value.IsZero() {
		return ""
	}
	return value.UTC().Format(dateTimeFormat)
}

// FromSettings converts the internal settings value to its payload.
func FromSettings(value settings.Settings) Settings {
	return Settings{
		TextThreshold:     value.TextThreshold,
		ImageThreshold:    value.ImageThreshold,
		AudioThreshold:    value.AudioThreshold,
		VideoThreshold:    value.VideoThreshold,
		FallbackBehavior:  string(value.Fallback),
		TextModelEnabled:  value.TextModelEnabled,
		ImageModelEnabled: value.ImageModelEnabled,
		AudioModelEnabled: value.AudioModelEnabled,
		VideoModelEnabled: value.VideoModelEnabled,
		MaxFileSize:       value.MaxFileSize,
		SkipHiddenFiles:   value.SkipHiddenFiles,
		PreserveMetadata:  value.PreserveMetadata,
		CreateBackups:     value.CreateBackups,
	}
}

// ToSettings converts a payload back to the internal value.
func ToSettings(payload Settings) settings.Settings {
	return settings.Settings{
		TextThreshold:     payload.TextThreshold,
		ImageThreshold:    payload.ImageThreshold,
		AudioThreshold:    payload.AudioThreshold,
		VideoThreshold:    payload.VideoThreshold,
		Fallback:          settings.Fallback(payload.FallbackBehavior),
		TextModelEnabled:  payload.TextModelEnabled,
		ImageModelEnabled: payload.ImageModelEnabled,
		AudioModelEnabled: payload.AudioModelEnabled,
		VideoModelEnabled: payload.VideoModelEnabled,
		MaxFileSize:       payload.MaxFileSize,
		SkipHiddenFiles:   payload.SkipHiddenFiles,
		PreserveMetadata:  payload.PreserveMetadata,
		CreateBackups:     payload.CreateBackups,
	}
}

// FromFolder converts a folder row; watching and fileCount reflect the live
// registry and directory state.
func FromFolder(folder *store.Folder, watching bool, fileCount int) WatchedFolder {
	payload := WatchedFolder{
		ID:           folder.ID,
		Path:         folder.Path,
		Enabled:      folder.Enabled,
		Watching:     watching,
		FileCount:    fileCount,
		PausedReason: folder.PausedReason,
		CreatedAt:    formatTime(folder.CreatedAt),
	}
	if folder.LastActivityAt != nil {
		payload.LastActivity = formatTime(*folder.LastActivityAt)
	}
	return payload
}

// FromCategory converts a category row.
func FromCategory(category *store.Category) Category {
	return Category{
		ID:          category.ID,
		Name:        category.Name,
		Destination: category.Destination,
		Description: category.Description,
		Extensions:  category.Extensions,
		CreatedAt:   formatTime(category.CreatedAt),
	}
}

// FromMovement converts a history row.
func FromMovement(movement *store.Movement) Movement {
	payload := Movement{
		ID:              movement.ID,
		Filename:        movement.Filename,
		FromPath:        movement.FromPath,
		ToPath:          movement.ToPath,
		Category:        movement.Category,
		Confidence:      movement.Confidence,
		MediaType:       movement.MediaType,
		DetectionReason: movement.DetectionReason,
		Status:          string(movement.Status),
		MovedAt:         formatTime(movement.MovedAt),
	}
	if movement.UndoneAt != nil {
		payload.UndoneAt = formatTime(*movement.UndoneAt)
	}
	return payload
}

// FromStats converts the aggregated history stats.
func FromStats(stats *store.HistoryStats) HistoryStats {
	return HistoryStats{
		TotalMoves:     stats.TotalMoves,
		CompletedMoves: stats.CompletedMoves,
		UndoneMoves:    stats.UndoneMoves,
		SuccessRate:    stats.SuccessRate,
		ByCategory:     stats.ByCategory,
		AvgConfidence:  stats.AvgConfidence,
	}
}

// FromSummary converts a finished bulk run summary.
func FromSummary(summary *bulk.Summary) ProcessSummary {
	return ProcessSummary{
		FileCount:      summary.FileCount,
		ProcessedCount: summary.Processed,
		FailedCount:    summary.Failed,
		LowConfidence:  summary.LowConfidence,
		IgnoredCount:   summary.Ignored,
	}
}

// FromProgress converts a bulk job snapshot.
func FromProgress(progress *bulk.Progress) JobProgress {
	return JobProgress{
		JobID:      progress.JobID,
		FolderID:   progress.FolderID,
		Status:     string(progress.Status),
		Total:      progress.Total,
		Completed:  progress.Completed,
		Failed:     progress.Failed,
		InProgress: progress.InProgress,
		Error:      progress.Error,
	}
}
