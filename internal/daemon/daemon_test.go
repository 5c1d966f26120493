package daemon

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"shelve/internal/api"
	"shelve/internal/testsupport"
)

func startTestDaemon(t *testing.T) (*Daemon, string) {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)

	d, err := New(cfg, st, nil)
	if err != nil {
		t.Fatalf("new daemon: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	if err := d.Start(ctx); err != nil {
		t.Fatalf("start daemon: %v", err)
	}
	t.Cleanup(d.Stop)
	return d, "http://" + d.api.addr()
}

func doJSON(t *testing.T, method, url string, body any, out any) int {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(encoded)
	} else {
		reader = bytes.NewReader(nil)
	}
	req, err := http.NewRequest(method, url, reader)
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, url, err)
	}
	defer resp.Body.Close()
	if out != nil && resp.StatusCode < 300 {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatalf("decode response: %v", err)
		}
	}
	return resp.StatusCode
}

func TestSecondInstanceRejected(t *testing.T) {
	d, _ := startTestDaemon(t)

	second, err := New(d.cfg, d.store, nil)
	if err != nil {
		t.Fatalf("new second daemon: %v", err)
	}
	if err := second.Start(context.Background()); err == nil {
		second.Stop()
		t.Fatal("second instance acquired the lock")
	}
}

func TestHealthEndpoint(t *testing.T) {
	_, base := startTestDaemon(t)

	var health api.Health
	if status := doJSON(t, http.MethodGet, base+"/api/health", nil, &health); status != http.StatusOK {
		t.Fatalf("health status = %d", status)
	}
	if health.Status != "ok" || health.PID != os.Getpid() {
		t.Fatalf("health = %+v", health)
	}
}

func TestSettingsRoundTripOverAPI(t *testing.T) {
	_, base := startTestDaemon(t)

	var current api.Settings
	if status := doJSON(t, http.MethodGet, base+"/api/settings", nil, &current); status != http.StatusOK {
		t.Fatalf("get settings status = %d", status)
	}
	if current.TextThreshold != 85 {
		t.Fatalf("default text threshold = %d", current.TextThreshold)
	}

	current.TextThreshold = 90
	current.FallbackBehavior = "review"
	var updated api.Settings
	if status := doJSON(t, http.MethodPost, base+"/api/settings", current, &updated); status != http.StatusOK {
		t.Fatalf("update settings status = %d", status)
	}
	if updated.TextThreshold != 90 || updated.FallbackBehavior != "review" {
		t.Fatalf("updated = %+v", updated)
	}

	// Invalid values are rejected before anything is persisted.
	current.TextThreshold = 500
	if status := doJSON(t, http.MethodPost, base+"/api/settings", current, nil); status != http.StatusBadRequest {
		t.Fatalf("invalid settings status = %d", status)
	}
}

func TestFolderEndpoints(t *testing.T) {
	d, base := startTestDaemon(t)

	watchDir := filepath.Join(testsupport.BaseDir(d.cfg), "inbox")
	if err := os.MkdirAll(watchDir, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}

	var folder api.WatchedFolder
	status := doJSON(t, http.MethodPost, base+"/api/watched-folders", api.AddFolderRequest{Path: watchDir}, &folder)
	if status != http.StatusCreated {
		t.Fatalf("add folder status = %d", status)
	}
	if !folder.Enabled || !folder.Watching {
		t.Fatalf("new folder = %+v", folder)
	}

	// Duplicate registration conflicts.
	if status := doJSON(t, http.MethodPost, base+"/api/watched-folders", api.AddFolderRequest{Path: watchDir}, nil); status != http.StatusConflict {
		t.Fatalf("duplicate add status = %d", status)
	}

	// Missing path is a bad request.
	missing := filepath.Join(testsupport.BaseDir(d.cfg), "missing")
	if status := doJSON(t, http.MethodPost, base+"/api/watched-folders", api.AddFolderRequest{Path: missing}, nil); status != http.StatusBadRequest {
		t.Fatalf("missing path status = %d", status)
	}

	var toggled api.WatchedFolder
	toggleURL := fmt.Sprintf("%s/api/watched-folders/%d/toggle", base, folder.ID)
	if status := doJSON(t, http.MethodPost, toggleURL, nil, &toggled); status != http.StatusOK {
		t.Fatalf("toggle status = %d", status)
	}
	if toggled.Enabled || toggled.Watching {
		t.Fatalf("toggled folder = %+v", toggled)
	}

	var folders []api.WatchedFolder
	if status := doJSON(t, http.MethodGet, base+"/api/watched-folders", nil, &folders); status != http.StatusOK {
		t.Fatalf("list status = %d", status)
	}
	if len(folders) != 1 {
		t.Fatalf("folders = %+v", folders)
	}

	removeURL := fmt.Sprintf("%s/api/watched-folders/%d", base, folder.ID)
	if status := doJSON(t, http.MethodDelete, removeURL, nil, nil); status != http.StatusOK {
		t.Fatalf("remove status = %d", status)
	}
	if status := doJSON(t, http.MethodDelete, removeURL, nil, nil); status != http.StatusNotFound {
		t.Fatalf("second remove status = %d", status)
	}
}

func TestCategoryEndpoints(t *testing.T) {
	_, base := startTestDaemon(t)

	var category api.Category
	payload := api.CategoryRequest{Name: "finance", Destination: "/sorted/finance", Extensions: []string{".pdf"}}
	if status := doJSON(t, http.MethodPost, base+"/api/categories", payload, &category); status != http.StatusCreated {
		t.Fatalf("add category status = %d", status)
	}

	payload.Destination = "/sorted/paperwork"
	var updated api.Category
	updateURL := fmt.Sprintf("%s/api/categories/%d", base, category.ID)
	if status := doJSON(t, http.MethodPut, updateURL, payload, &updated); status != http.StatusOK {
		t.Fatalf("update status = %d", status)
	}
	if updated.Destination != "/sorted/paperwork" {
		t.Fatalf("updated = %+v", updated)
	}

	if status := doJSON(t, http.MethodDelete, updateURL, nil, nil); status != http.StatusOK {
		t.Fatalf("delete status = %d", status)
	}
}

func TestProcessFolderAndHistoryOverAPI(t *testing.T) {
	d, base := startTestDaemon(t)

	watchDir := filepath.Join(testsupport.BaseDir(d.cfg), "inbox")
	if err := os.MkdirAll(watchDir, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(watchDir, "invoice-aug.pdf"), []byte("pdf bytes"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	var folder api.WatchedFolder
	if status := doJSON(t, http.MethodPost, base+"/api/watched-folders", api.AddFolderRequest{Path: watchDir}, &folder); status != http.StatusCreated {
		t.Fatalf("add folder status = %d", status)
	}
	sorted := filepath.Join(testsupport.BaseDir(d.cfg), "sorted", "finance")
	if status := doJSON(t, http.MethodPost, base+"/api/categories", api.CategoryRequest{Name: "finance", Destination: sorted}, nil); status != http.StatusCreated {
		t.Fatal("add category failed")
	}

	var summary api.ProcessSummary
	processURL := fmt.Sprintf("%s/api/process-folder/%d", base, folder.ID)
	if status := doJSON(t, http.MethodPost, processURL, nil, &summary); status != http.StatusOK {
		t.Fatalf("process status = %d", status)
	}
	if summary.FileCount != 1 || summary.ProcessedCount != 1 {
		t.Fatalf("summary = %+v", summary)
	}

	var movements []api.Movement
	if status := doJSON(t, http.MethodGet, base+"/api/history?limit=10", nil, &movements); status != http.StatusOK {
		t.Fatalf("history status = %d", status)
	}
	if len(movements) != 1 || movements[0].Category != "finance" {
		t.Fatalf("movements = %+v", movements)
	}
	if !strings.Contains(movements[0].DetectionReason, "threshold") {
		t.Fatalf("detection reason = %q", movements[0].DetectionReason)
	}

	var stats api.HistoryStats
	if status := doJSON(t, http.MethodGet, base+"/api/history/stats", nil, &stats); status != http.StatusOK {
		t.Fatalf("stats status = %d", status)
	}
	if stats.TotalMoves != 1 || stats.SuccessRate != 1 {
		t.Fatalf("stats = %+v", stats)
	}

	undoURL := fmt.Sprintf("%s/api/history/%d/undo", base, movements[0].ID)
	var undone api.Movement
	if status := doJSON(t, http.MethodPost, undoURL, nil, &undone); status != http.StatusOK {
		t.Fatalf("undo status = %d", status)
	}
	if undone.Status != "undone" {
		t.Fatalf("undone = %+v", undone)
	}
	if _, err := os.Stat(filepath.Join(watchDir, "invoice-aug.pdf")); err != nil {
		t.Fatalf("file not restored: %v", err)
	}

	// Undoing twice conflicts.
	if status := doJSON(t, http.MethodPost, undoURL, nil, nil); status != http.StatusConflict {
		t.Fatalf("second undo status = %d", status)
	}
}

func TestAsyncProcessingOverAPI(t *testing.T) {
	d, base := startTestDaemon(t)

	watchDir := filepath.Join(testsupport.BaseDir(d.cfg), "inbox")
	if err := os.MkdirAll(watchDir, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	for i := 0; i < 5; i++ {
		name := fmt.Sprintf("invoice-%d.pdf", i)
		if err := os.WriteFile(filepath.Join(watchDir, name), []byte("pdf bytes"), 0o644); err != nil {
			t.Fatalf("write: %v", err)
		}
	}

	var folder api.WatchedFolder
	if status := doJSON(t, http.MethodPost, base+"/api/watched-folders", api.AddFolderRequest{Path: watchDir}, &folder); status != http.StatusCreated {
		t.Fatal("add folder failed")
	}
	if folder.FileCount != 5 {
		t.Fatalf("file count = %d, want 5", folder.FileCount)
	}
	sorted := filepath.Join(testsupport.BaseDir(d.cfg), "sorted", "finance")
	if status := doJSON(t, http.MethodPost, base+"/api/categories", api.CategoryRequest{Name: "finance", Destination: sorted}, nil); status != http.StatusCreated {
		t.Fatal("add category failed")
	}

	var accepted api.ProcessAccepted
	asyncURL := fmt.Sprintf("%s/api/process-folder/%d?async=1", base, folder.ID)
	if status := doJSON(t, http.MethodPost, asyncURL, nil, &accepted); status != http.StatusAccepted {
		t.Fatal("async start failed")
	}
	if accepted.JobID == "" {
		t.Fatal("empty job id")
	}

	progressURL := fmt.Sprintf("%s/api/process-folder/%d/progress", base, folder.ID)
	deadline := time.Now().Add(10 * time.Second)
	for {
		var progress api.JobProgress
		if status := doJSON(t, http.MethodGet, progressURL, nil, &progress); status != http.StatusOK {
			t.Fatalf("progress status = %d", status)
		}
		if progress.Completed+progress.Failed+progress.InProgress > progress.Total {
			t.Fatalf("invariant broken: %+v", progress)
		}
		if progress.Status == "completed" {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("job never completed")
		}
		time.Sleep(20 * time.Millisecond)
	}
}
