package config

// Default returns the built-in configuration values applied before a config
// file is merged on top.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir:   "~/.local/share/shelve",
			LogDir:    "~/.local/share/shelve/logs",
			ReviewDir: "~/.local/share/shelve/review",
			BackupDir: "~/.local/share/shelve/backups",
			APIBind:   "127.0.0.1:7430",
		},
		Engine: Engine{
			TextThreshold:     85,
			ImageThreshold:    80,
			AudioThreshold:    75,
			VideoThreshold:    70,
			FallbackBehavior:  "skip",
			MaxFileSizeMB:     500,
			SkipHiddenFiles:   true,
			PreserveMetadata:  true,
			CreateBackups:     false,
			TextModelEnabled:  true,
			ImageModelEnabled: true,
			AudioModelEnabled: true,
			VideoModelEnabled: true,
		},
		Workflow: Workflow{
			ScanIntervalMS:         500,
			DebounceWindowMS:       1000,
			Workers:                4,
			ClassifyTimeoutSeconds: 30,
			JobRetentionSeconds:    60,
			ProgressPollMS:         800,
		},
		Logging: Logging{
			Format: "console",
			Level:  "info",
		},
	}
}
