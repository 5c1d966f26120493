package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory and bind address configuration.
type Paths struct {
	DataDir   string `toml:"data_dir"`
	LogDir    string `toml:"log_dir"`
	ReviewDir string `toml:"review_dir"`
	BackupDir string `toml:"backup_dir"`
	APIBind   string `toml:"api_bind"`
}

// Engine contains the defaults applied to engine settings when the settings
// store is empty. Runtime values live in the database and are updated over
// the API; these seed the first run.
type Engine struct {
	TextThreshold     int    `toml:"text_threshold"`
	ImageThreshold    int    `toml:"image_threshold"`
	AudioThreshold    int    `toml:"audio_threshold"`
	VideoThreshold    int    `toml:"video_threshold"`
	FallbackBehavior  string `toml:"fallback_behavior"`
	MaxFileSizeMB     int64  `toml:"max_file_size_mb"`
	SkipHiddenFiles   bool   `toml:"skip_hidden_files"`
	PreserveMetadata  bool   `toml:"preserve_metadata"`
	CreateBackups     bool   `toml:"create_backups"`
	TextModelEnabled  bool   `toml:"text_model_enabled"`
	ImageModelEnabled bool   `toml:"image_model_enabled"`
	AudioModelEnabled bool   `toml:"audio_model_enabled"`
	VideoModelEnabled bool   `toml:"video_model_enabled"`
}

// Workflow contains timing and concurrency configuration.
type Workflow struct {
	ScanIntervalMS         int `toml:"scan_interval_ms"`
	DebounceWindowMS       int `toml:"debounce_window_ms"`
	Workers                int `toml:"workers"`
	ClassifyTimeoutSeconds int `toml:"classify_timeout_seconds"`
	JobRetentionSeconds    int `toml:"job_retention_seconds"`
	ProgressPollMS         int `toml:"progress_poll_ms"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for shelve.
//
// Configuration sections by subsystem:
//   - Paths: data, log, review, and backup directories plus API bind address
//   - Engine: seed values for the persisted engine settings
//   - Workflow: watcher/bulk timing and worker pool width
//   - Logging: log format and level
type Config struct {
	Paths    Paths    `toml:"paths"`
	Engine   Engine   `toml:"engine"`
	Workflow Workflow `toml:"workflow"`
	Logging  Logging  `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/shelve/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned
// config has all path fields expanded and normalized. The boolean reports
// whether a config file was found on disk.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("shelve.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the directories the daemon needs at runtime.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.DataDir, c.Paths.LogDir, c.Paths.ReviewDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	if strings.TrimSpace(c.Paths.BackupDir) != "" {
		if err := os.MkdirAll(c.Paths.BackupDir, 0o755); err != nil {
			return fmt.Errorf("create backup directory %q: %w", c.Paths.BackupDir, err)
		}
	}
	return nil
}

// DatabasePath returns the location of the engine database.
func (c *Config) DatabasePath() string {
	return filepath.Join(c.Paths.DataDir, "shelve.db")
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}
	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
