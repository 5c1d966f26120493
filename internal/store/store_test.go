package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"shelve/internal/classify"
	"shelve/internal/config"
	"shelve/internal/media"
	"shelve/internal/settings"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := OpenPath(filepath.Join(t.TempDir(), "shelve.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestFolderLifecycle(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	folder, err := s.AddFolder(ctx, "/watch/inbox")
	if err != nil {
		t.Fatalf("add folder: %v", err)
	}
	if !folder.Enabled || folder.Paused() {
		t.Fatalf("new folder should be enabled and unpaused: %+v", folder)
	}

	if _, err := s.AddFolder(ctx, "/watch/inbox"); !errors.Is(err, ErrDuplicate) {
		t.Fatalf("duplicate path error = %v, want ErrDuplicate", err)
	}

	disabled, err := s.SetFolderEnabled(ctx, folder.ID, false)
	if err != nil {
		t.Fatalf("disable folder: %v", err)
	}
	if disabled.Enabled {
		t.Fatal("folder still enabled after disable")
	}

	if err := s.PauseFolder(ctx, folder.ID, "path no longer exists"); err != nil {
		t.Fatalf("pause folder: %v", err)
	}
	paused, err := s.FolderByID(ctx, folder.ID)
	if err != nil {
		t.Fatalf("reload folder: %v", err)
	}
	if !paused.Paused() {
		t.Fatal("folder should report paused")
	}

	// Re-enabling clears the engine pause.
	enabled, err := s.SetFolderEnabled(ctx, folder.ID, true)
	if err != nil {
		t.Fatalf("enable folder: %v", err)
	}
	if enabled.Paused() {
		t.Fatalf("enable should clear pause, got reason %q", enabled.PausedReason)
	}

	if err := s.RemoveFolder(ctx, folder.ID); err != nil {
		t.Fatalf("remove folder: %v", err)
	}
	if _, err := s.FolderByID(ctx, folder.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("lookup after remove = %v, want ErrNotFound", err)
	}
}

func TestCategoriesKeepRegistrationOrder(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	for _, name := range []string{"finance", "photos", "music"} {
		if _, err := s.AddCategory(ctx, name, "/sorted/"+name, "", nil); err != nil {
			t.Fatalf("add category %s: %v", name, err)
		}
	}
	if _, err := s.AddCategory(ctx, "Finance", "/elsewhere", "", nil); !errors.Is(err, ErrDuplicate) {
		t.Fatalf("case-insensitive duplicate error = %v, want ErrDuplicate", err)
	}

	categories, err := s.ListCategories(ctx)
	if err != nil {
		t.Fatalf("list categories: %v", err)
	}
	got := make([]string, 0, len(categories))
	for _, c := range categories {
		got = append(got, c.Name)
	}
	want := []string{"finance", "photos", "music"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("category order = %v, want %v", got, want)
		}
	}
}

func TestCategoryExtensionsRoundTrip(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	created, err := s.AddCategory(ctx, "docs", "/sorted/docs", "paperwork", []string{"PDF", ".docx", " txt "})
	if err != nil {
		t.Fatalf("add category: %v", err)
	}
	want := []string{".pdf", ".docx", ".txt"}
	if len(created.Extensions) != len(want) {
		t.Fatalf("extensions = %v, want %v", created.Extensions, want)
	}
	for i := range want {
		if created.Extensions[i] != want[i] {
			t.Fatalf("extensions = %v, want %v", created.Extensions, want)
		}
	}

	updated, err := s.UpdateCategory(ctx, created.ID, "/sorted/paperwork", "", []string{".pdf"})
	if err != nil {
		t.Fatalf("update category: %v", err)
	}
	if updated.Destination != "/sorted/paperwork" || len(updated.Extensions) != 1 {
		t.Fatalf("update result = %+v", updated)
	}
}

func TestClassificationCacheRoundTrip(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	if _, ok, err := s.LookupClassification(ctx, "missing"); err != nil || ok {
		t.Fatalf("lookup missing = %v, %v; want miss", ok, err)
	}

	result := classify.Result{
		Fingerprint: "abc123",
		MediaType:   media.Image,
		Category:    "photos",
		Confidence:  0.91,
		Summary:     "filename token img_",
		ComputedAt:  time.Now().UTC().Truncate(time.Millisecond),
	}
	if err := s.SaveClassification(ctx, result); err != nil {
		t.Fatalf("save classification: %v", err)
	}
	loaded, ok, err := s.LookupClassification(ctx, "abc123")
	if err != nil || !ok {
		t.Fatalf("lookup = %v, %v; want hit", ok, err)
	}
	if loaded.Category != result.Category || loaded.Confidence != result.Confidence || loaded.MediaType != result.MediaType {
		t.Fatalf("loaded = %+v, want %+v", loaded, result)
	}
	if !loaded.ComputedAt.Equal(result.ComputedAt) {
		t.Fatalf("computed at = %v, want %v", loaded.ComputedAt, result.ComputedAt)
	}
}

func TestMovementHistoryAndStats(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	first, err := s.AppendMovement(ctx, &Movement{
		FolderID:        1,
		Filename:        "invoice.pdf",
		FromPath:        "/watch/invoice.pdf",
		ToPath:          "/sorted/finance/invoice.pdf",
		Category:        "finance",
		Confidence:      0.93,
		MediaType:       "text",
		DetectionReason: "confidence 93% meets text threshold 85%",
	})
	if err != nil {
		t.Fatalf("append movement: %v", err)
	}
	if first.DetectionReason != "confidence 93% meets text threshold 85%" {
		t.Fatalf("detection reason = %q", first.DetectionReason)
	}
	second, err := s.AppendMovement(ctx, &Movement{
		FolderID:   1,
		Filename:   "photo.jpg",
		FromPath:   "/watch/photo.jpg",
		ToPath:     "/sorted/photos/photo.jpg",
		Category:   "photos",
		Confidence: 0.81,
		MediaType:  "image",
	})
	if err != nil {
		t.Fatalf("append movement: %v", err)
	}

	listed, err := s.ListMovements(ctx, 10)
	if err != nil {
		t.Fatalf("list movements: %v", err)
	}
	if len(listed) != 2 || listed[0].ID != second.ID {
		t.Fatalf("expected newest first, got %+v", listed)
	}

	limited, err := s.ListMovements(ctx, 1)
	if err != nil {
		t.Fatalf("list limited: %v", err)
	}
	if len(limited) != 1 || limited[0].ID != second.ID {
		t.Fatalf("limit=1 returned %+v", limited)
	}

	if err := s.MarkMovementUndone(ctx, first.ID); err != nil {
		t.Fatalf("mark undone: %v", err)
	}
	if err := s.MarkMovementUndone(ctx, first.ID); err == nil {
		t.Fatal("second undo should fail")
	}

	stats, err := s.MovementStats(ctx)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats.TotalMoves != 2 || stats.UndoneMoves != 1 || stats.CompletedMoves != 1 {
		t.Fatalf("stats = %+v", stats)
	}
	if stats.SuccessRate != 0.5 {
		t.Fatalf("success rate = %f, want 0.5", stats.SuccessRate)
	}
	if stats.ByCategory["photos"] != 1 {
		t.Fatalf("by category = %v", stats.ByCategory)
	}
	if stats.AvgConfidence != 0.81 {
		t.Fatalf("avg confidence = %f, want 0.81", stats.AvgConfidence)
	}
}

func TestJobPersistenceAndReconcile(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	job := &Job{
		ID:         "job-1",
		FolderID:   7,
		Status:     JobRunning,
		Total:      5,
		Completed:  2,
		Failed:     1,
		InProgress: 2,
		StartedAt:  time.Now(),
	}
	if err := s.SaveJob(ctx, job); err != nil {
		t.Fatalf("save job: %v", err)
	}

	active, err := s.ActiveJobForFolder(ctx, 7)
	if err != nil {
		t.Fatalf("active job: %v", err)
	}
	if active.ID != "job-1" || active.Status != JobRunning {
		t.Fatalf("active job = %+v", active)
	}

	reconciled, err := s.ReconcileStaleJobs(ctx, "daemon restarted")
	if err != nil {
		t.Fatalf("reconcile: %v", err)
	}
	if reconciled != 1 {
		t.Fatalf("reconciled = %d, want 1", reconciled)
	}

	stale, err := s.JobByID(ctx, "job-1")
	if err != nil {
		t.Fatalf("load job: %v", err)
	}
	if stale.Status != JobFailed || !stale.Archived || stale.InProgress != 0 {
		t.Fatalf("reconciled job = %+v", stale)
	}
	if _, err := s.ActiveJobForFolder(ctx, 7); !errors.Is(err, ErrNotFound) {
		t.Fatalf("active after reconcile = %v, want ErrNotFound", err)
	}
}

func TestSettingsSeedAndRoundTrip(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	cfg := config.Default()
	seed := settings.FromConfig(&cfg)

	loaded, err := s.LoadSettings(ctx, seed)
	if err != nil {
		t.Fatalf("load settings: %v", err)
	}
	if loaded != seed {
		t.Fatalf("seeded settings = %+v, want %+v", loaded, seed)
	}

	next := loaded
	next.TextThreshold = 92
	next.Fallback = settings.FallbackReview
	next.CreateBackups = true
	if err := s.SaveSettings(ctx, next); err != nil {
		t.Fatalf("save settings: %v", err)
	}

	reloaded, err := s.LoadSettings(ctx, seed)
	if err != nil {
		t.Fatalf("reload settings: %v", err)
	}
	if reloaded != next {
		t.Fatalf("reloaded = %+v, want %+v", reloaded, next)
	}

	invalid := next
	invalid.TextThreshold = 400
	if err := s.SaveSettings(ctx, invalid); err == nil {
		t.Fatal("expected invalid settings to be rejected")
	}
}
