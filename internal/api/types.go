// Package api defines the JSON payloads exchanged between the daemon's HTTP
// server and its clients, plus conversions from the internal models.
package api

// dateTimeFormat is used for RFC3339 timestamps in API payloads.
const dateTimeFormat = "2006-01-02T15:04:05.000Z07:00"

// Settings mirrors the persisted engine settings.
type Settings struct {
	TextThreshold     int    `json:"textThreshold"`
	ImageThreshold    int    `json:"imageThreshold"`
	AudioThreshold    int    `json:"audioThreshold"`
	VideoThreshold    int    `json:"videoThreshold"`
	FallbackBehavior  string `json:"fallbackBehavior"`
	TextModelEnabled  bool   `json:"textModelEnabled"`
	ImageModelEnabled bool   `json:"imageModelEnabled"`
	AudioModelEnabled bool   `json:"audioModelEnabled"`
	VideoModelEnabled bool   `json:"videoModelEnabled"`
	MaxFileSize       int64  `json:"maxFileSize"`
	SkipHiddenFiles   bool   `json:"skipHiddenFiles"`
	PreserveMetadata  bool   `json:"preserveMetadata"`
	CreateBackups     bool   `json:"createBackups"`
}

// WatchedFolder describes a folder registration. FileCount is derived from
// the directory contents at response time, not stored.
type WatchedFolder struct {
	ID           int64  `json:"id"`
	Path         string `json:"path"`
	Enabled      bool   `json:"enabled"`
	Watching     bool   `json:"watching"`
	FileCount    int    `json:"fileCount"`
	PausedReason string `json:"pausedReason,omitempty"`
	CreatedAt    string `json:"createdAt,omitempty"`
	LastActivity string `json:"lastActivity,omitempty"`
}

// AddFolderRequest registers a new watched folder.
type AddFolderRequest struct {
	Path string `json:"path"`
}

// Category describes a destination category.
type Category struct {
	ID          int64    `json:"id"`
	Name        string   `json:"name"`
	Destination string   `json:"destination"`
	Description string   `json:"description,omitempty"`
	Extensions  []string `json:"extensions,omitempty"`
	CreatedAt   string   `json:"createdAt,omitempty"`
}

// CategoryRequest creates or updates a category.
type CategoryRequest struct {
	Name        string   `json:"name"`
	Destination string   `json:"destination"`
	Description string   `json:"description"`
	Extensions  []string `json:"extensions"`
}

// Movement is one history entry.
type Movement struct {
	ID              int64   `json:"id"`
	Filename        string  `json:"filename"`
	FromPath        string  `json:"fromPath"`
	ToPath          string  `json:"toPath"`
	Category        string  `json:"category"`
	Confidence      float64 `json:"confidence"`
	MediaType       string  `json:"mediaType"`
	DetectionReason string  `json:"detectionReason,omitempty"`
	Status          string  `json:"status"`
	MovedAt         string  `json:"movedAt,omitempty"`
	UndoneAt        string  `json:"undoneAt,omitempty"`
}

// HistoryStats aggregates the movement history.
type HistoryStats struct {
	TotalMoves     int            `json:"totalMoves"`
	CompletedMoves int            `json:"completedMoves"`
	UndoneMoves    int            `json:"undoneMoves"`
	SuccessRate    float64        `json:"successRate"`
	ByCategory     map[string]int `json:"byCategory"`
	AvgConfidence  float64        `json:"avgConfidence"`
}

// ProcessSummary is the response of a synchronous bulk run.
type ProcessSummary struct {
	FileCount      int `json:"fileCount"`
	ProcessedCount int `json:"processedCount"`
	FailedCount    int `json:"failedCount"`
	LowConfidence  int `json:"lowConfidenceCount"`
	IgnoredCount   int `json:"ignoredCount"`
}

// ProcessAccepted is the response of an asynchronous bulk start.
type ProcessAccepted struct {
	JobID string `json:"jobId"`
}

// JobProgress is a bulk job snapshot.
type JobProgress struct {
	JobID      string `json:"jobId"`
	FolderID   int64  `json:"folderId"`
	Status     string `json:"status"`
	Total      int    `json:"total"`
	Completed  int    `json:"completed"`
	Failed     int    `json:"failed"`
	InProgress int    `json:"inProgress"`
	Error      string `json:"error,omitempty"`
}

// Health is the liveness payload.
type Health struct {
	Status         string `json:"status"`
	PID            int    `json:"pid"`
	DatabasePath   string `json:"databasePath"`
	WatchedFolders int    `json:"watchedFolders"`
	ActiveWatches  int    `json:"activeWatches"`
	Categories     int    `json:"categories"`
}
