package store

import (
	"errors"
	"time"
)

// Folder is a watched folder registration. A disabled folder keeps its
// registration but gets no watcher; a paused folder was disabled by the
// engine itself, usually because its path disappeared.
type Folder struct {
	ID             int64
	Path           string
	Enabled        bool
	PausedReason   string
	CreatedAt      time.Time
	UpdatedAt      time.Time
	LastActivityAt *time.Time
}

// Paused reports whether the engine suspended this folder.
func (f *Folder) Paused() bool {
	return f.PausedReason != ""
}

// Category is a destination registration. Registration order (the rowid)
// breaks ties when a classification matches more than one category.
type Category struct {
	ID          int64
	Name        string
	Destination string
	Description string
	Extensions  []string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// MovementStatus tracks whether a recorded move is still in effect.
type MovementStatus string

const (
	MovementCompleted MovementStatus = "completed"
	MovementUndone    MovementStatus = "undone"
)

// Movement is one entry in the move history. FromPath is where the file was
// picked up; ToPath is where it landed. Undo restores FromPath.
// DetectionReason records why the decision policy chose to move the file.
type Movement struct {
	ID              int64
	JobID           string
	FolderID        int64
	Filename        string
	FromPath        string
	ToPath          string
	Category        string
	Confidence      float64
	MediaType       string
	DetectionReason string
	Fingerprint     string
	BackupPath      string
	Status          MovementStatus
	MovedAt         time.Time
	UndoneAt        *time.Time
}

// HistoryStats aggregates the movement history. SuccessRate is the share of
// entries still in effect; an empty history reports zero.
type HistoryStats struct {
	TotalMoves     int
	CompletedMoves int
	UndoneMoves    int
	SuccessRate    float64
	ByCategory     map[string]int
	AvgConfidence  float64
}

// JobStatus is the lifecycle of a bulk processing run.
type JobStatus string

const (
	JobRunning   JobStatus = "running"
	JobCompleted JobStatus = "completed"
	JobFailed    JobStatus = "failed"
	JobCancelled JobStatus = "cancelled"
)

// Terminal reports whether the job has finished.
func (s JobStatus) Terminal() bool {
	return s == JobCompleted || s == JobFailed || s == JobCancelled
}

// Job is the persisted state of one bulk run over a folder. Counters satisfy
// completed + failed + in_progress <= total at all times.
type Job struct {
	ID           string
	FolderID     int64
	Status       JobStatus
	Total        int
	Completed    int
	Failed       int
	InProgress   int
	ErrorMessage string
	StartedAt    time.Time
	FinishedAt   *time.Time
	Archived     bool
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func nullableTime(value *time.Time) any {
	if value == nil {
		return nil
	}
	return value.UTC().Format(time.RFC3339Nano)
}

func boolToInt(value bool) int {
	if value {
		return 1
	}
	return 0
}

func timeString(value time.Time) string {
	return value.UTC().Format(time.RFC3339Nano)
}

func parseTimeString(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, errors.New("empty")
	}
	if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02 15:04:05", value)
}
