package classify

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"shelve/internal/media"
)

type memoryCache struct {
	mu      sync.Mutex
	results map[string]Result
	lookups int
	saves   int
}

func newMemoryCache() *memoryCache {
	return &memoryCache{results: make(map[string]Result)}
}

func (c *memoryCache) LookupClassification(_ context.Context, fingerprint string) (Result, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lookups++
	result, ok := c.results[fingerprint]
	return result, ok, nil
}

func (c *memoryCache) SaveClassification(_ context.Context, result Result) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.saves++
	c.results[result.Fingerprint] = result
	return nil
}

func writeTestFile(t *testing.T, dir, name, contents string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func TestFingerprintStableAndContentSensitive(t *testing.T) {
	dir := t.TempDir()
	path := writeTestFile(t, dir, "a.txt", "same bytes")

	first, err := Fingerprint(path)
	if err != nil {
		t.Fatalf("fingerprint: %v", err)
	}
	second, err := Fingerprint(path)
	if err != nil {
		t.Fatalf("fingerprint again: %v", err)
	}
	if first != second {
		t.Fatalf("fingerprint not stable: %s vs %s", first, second)
	}

	other := writeTestFile(t, dir, "b.txt", "different bytes")
	otherPrint, err := Fingerprint(other)
	if err != nil {
		t.Fatalf("fingerprint other: %v", err)
	}
	if otherPrint == first {
		t.Fatal("distinct contents produced the same fingerprint")
	}
}

func TestClassifySecondCallHitsCache(t *testing.T) {
	dir := t.TempDir()
	path := writeTestFile(t, dir, "invoice-march.pdf", "pdf bytes")
	cache := newMemoryCache()
	classifier := NewClassifier(cache, NewHeuristicModel(), time.Second, nil)

	first, err := classifier.Classify(context.Background(), path, true)
	if err != nil {
		t.Fatalf("classify: %v", err)
	}
	if first.CacheHit {
		t.Fatal("first classification reported a cache hit")
	}
	if first.Category != "finance" {
		t.Fatalf("category = %q, want finance", first.Category)
	}
	if first.MediaType != media.Text {
		t.Fatalf("media type = %q, want text", first.MediaType)
	}

	second, err := classifier.Classify(context.Background(), path, true)
	if err != nil {
		t.Fatalf("classify again: %v", err)
	}
	if !second.CacheHit {
		t.Fatal("second classification missed the cache")
	}
	if second.Category != first.Category || second.Confidence != first.Confidence {
		t.Fatalf("cached result diverged: %+v vs %+v", second, first)
	}
	if cache.saves != 1 {
		t.Fatalf("saves = %d, want 1", cache.saves)
	}
}

func TestClassifyDisabledModelYieldsZeroConfidence(t *testing.T) {
	dir := t.TempDir()
	path := writeTestFile(t, dir, "photo.jpg", "jpg bytes")
	cache := newMemoryCache()
	classifier := NewClassifier(cache, NewHeuristicModel(), time.Second, nil)

	result, err := classifier.Classify(context.Background(), path, false)
	if err != nil {
		t.Fatalf("classify: %v", err)
	}
	if result.Confidence != 0 || result.Category != "" {
		t.Fatalf("disabled model produced %+v", result)
	}
	if result.MediaType != media.Unknown {
		t.Fatalf("media type = %q, want unknown", result.MediaType)
	}
	if cache.saves != 0 {
		t.Fatal("disabled result was cached")
	}
}

type failingModel struct{}

func (failingModel) Classify(context.Context, string, media.Type) (Guess, error) {
	return Guess{}, context.DeadlineExceeded
}

func TestClassifyModelErrorDegradesToZeroConfidence(t *testing.T) {
	dir := t.TempDir()
	path := writeTestFile(t, dir, "notes.txt", "text bytes")
	cache := newMemoryCache()
	classifier := NewClassifier(cache, failingModel{}, time.Second, nil)

	result, err := classifier.Classify(context.Background(), path, true)
	if err != nil {
		t.Fatalf("classify should not error on model failure: %v", err)
	}
	if result.Confidence != 0 {
		t.Fatalf("confidence = %f, want 0", result.Confidence)
	}
	if cache.saves != 0 {
		t.Fatal("failed classification was cached")
	}
}

func TestClassifyMissingFile(t *testing.T) {
	cache := newMemoryCache()
	classifier := NewClassifier(cache, NewHeuristicModel(), time.Second, nil)
	if _, err := classifier.Classify(context.Background(), filepath.Join(t.TempDir(), "gone.txt"), true); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestHeuristicModelDefaults(t *testing.T) {
	model := NewHeuristicModel()
	cases := []struct {
		name     string
		media    media.Type
		category string
	}{
		{"screenshot-2024.png", media.Image, "screenshots"},
		{"random-noise.png", media.Image, "photos"},
		{"episode-12.mp3", media.Audio, "podcasts"},
		{"track01.mp3", media.Audio, "music"},
		{"holiday.mp4", media.Video, "videos"},
	}
	for _, tc := range cases {
		guess, err := model.Classify(context.Background(), tc.name, tc.media)
		if err != nil {
			t.Fatalf("%s: %v", tc.name, err)
		}
		if guess.Category != tc.category {
			t.Fatalf("%s: category = %q, want %q", tc.name, guess.Category, tc.category)
		}
		if guess.Confidence <= 0 || guess.Confidence > 1 {
			t.Fatalf("%s: confidence out of range: %f", tc.name, guess.Confidence)
		}
	}
}
