// Package testsupport provides shared helpers for package tests: temp-dir
// backed configs and stores.
package testsupport

import (
	"path/filepath"
	"testing"

	"shelve/internal/config"
	"shelve/internal/store"
)

// NewConfig produces a config seeded with unique temp directories per test.
// The API binds to an ephemeral port so tests never collide.
func NewConfig(t testing.TB) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths.DataDir = filepath.Join(base, "data")
	cfg.Paths.LogDir = filepath.Join(base, "logs")
	cfg.Paths.ReviewDir = filepath.Join(base, "review")
	cfg.Paths.BackupDir = filepath.Join(base, "backups")
	cfg.Paths.APIBind = "127.0.0.1:0"
	return &cfg
}

// MustOpenStore opens the store for a test config and closes it with the test.
func MustOpenStore(t testing.TB, cfg *config.Config) *store.Store {
	t.Helper()

	st, err := store.Open(cfg)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })
	return st
}

// BaseDir returns the root temp directory backing a generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.DataDir)
}
