package config

import (
	"fmt"
	"strings"
)

func (c *Config) normalize() error {
	paths := []*string{
		&c.Paths.DataDir,
		&c.Paths.LogDir,
		&c.Paths.ReviewDir,
		&c.Paths.BackupDir,
	}
	for _, p := range paths {
		if strings.TrimSpace(*p) == "" {
			continue
		}
		expanded, err := expandPath(*p)
		if err != nil {
			return err
		}
		*p = expanded
	}
	c.Engine.FallbackBehavior = strings.ToLower(strings.TrimSpace(c.Engine.FallbackBehavior))
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	return nil
}

// Validate reports configuration values that cannot be used at runtime.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Paths.DataDir) == "" {
		return fmt.Errorf("config: data_dir is required")
	}
	if strings.TrimSpace(c.Paths.ReviewDir) == "" {
		return fmt.Errorf("config: review_dir is required")
	}
	for name, threshold := range map[string]int{
		"text_threshold":  c.Engine.TextThreshold,
		"image_threshold": c.Engine.ImageThreshold,
		"audio_threshold": c.Engine.AudioThreshold,
		"video_threshold": c.Engine.VideoThreshold,
	} {
		if threshold < 0 || threshold > 100 {
			return fmt.Errorf("config: %s must be between 0 and 100, got %d", name, threshold)
		}
	}
	switch c.Engine.FallbackBehavior {
	case "skip", "review":
	default:
		return fmt.Errorf("config: fallback_behavior must be %q or %q, got %q", "skip", "review", c.Engine.FallbackBehavior)
	}
	if c.Engine.MaxFileSizeMB <= 0 {
		return fmt.Errorf("config: max_file_size_mb must be positive, got %d", c.Engine.MaxFileSizeMB)
	}
	if c.Workflow.Workers <= 0 {
		return fmt.Errorf("config: workers must be positive, got %d", c.Workflow.Workers)
	}
	if c.Workflow.ScanIntervalMS <= 0 {
		return fmt.Errorf("config: scan_interval_ms must be positive, got %d", c.Workflow.ScanIntervalMS)
	}
	if c.Workflow.DebounceWindowMS <= 0 {
		return fmt.Errorf("config: debounce_window_ms must be positive, got %d", c.Workflow.DebounceWindowMS)
	}
	if c.Workflow.ClassifyTimeoutSeconds <= 0 {
		return fmt.Errorf("config: classify_timeout_seconds must be positive, got %d", c.Workflow.ClassifyTimeoutSeconds)
	}
	return nil
}
