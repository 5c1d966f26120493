package decision

import (
	"testing"

	"shelve/internal/classify"
	"shelve/internal/config"
	"shelve/internal/media"
	"shelve/internal/settings"
	"shelve/internal/store"
)

func testSettings() settings.Settings {
	cfg := config.Default()
	return settings.FromConfig(&cfg)
}

func testCategories() []*store.Category {
	return []*store.Category{
		{ID: 1, Name: "finance", Destination: "/sorted/finance", Extensions: []string{".pdf"}},
		{ID: 2, Name: "photos", Destination: "/sorted/photos", Extensions: []string{".jpg", ".png"}},
		{ID: 3, Name: "scans", Destination: "/sorted/scans", Extensions: []string{".pdf"}},
	}
}

func TestDecideThresholdBoundary(t *testing.T) {
	cfg := testSettings()
	categories := testCategories()

	// Text threshold defaults to 85. The boundary itself moves; one point
	// under it does not.
	cases := []struct {
		name       string
		confidence float64
		action     Action
	}{
		{"below", 0.84, ActionSkip},
		{"exact", 0.85, ActionMove},
		{"above", 0.86, ActionMove},
	}
	for _, tc := range cases {
		result := classify.Result{MediaType: media.Text, Category: "finance", Confidence: tc.confidence}
		outcome := Decide("/watch/invoice.pdf", result, cfg, categories)
		if outcome.Action != tc.action {
			t.Fatalf("%s: action = %q, want %q (reason %q)", tc.name, outcome.Action, tc.action, outcome.Reason)
		}
	}
}

func TestDecideFallbackReview(t *testing.T) {
	cfg := testSettings()
	cfg.Fallback = settings.FallbackReview

	result := classify.Result{MediaType: media.Text, Category: "finance", Confidence: 0.2}
	outcome := Decide("/watch/invoice.pdf", result, cfg, testCategories())
	if outcome.Action != ActionReview {
		t.Fatalf("action = %q, want review", outcome.Action)
	}
	if outcome.Category != nil {
		t.Fatal("fallback outcome should carry no category")
	}
}

func TestDecideUnknownMediaNeverMoves(t *testing.T) {
	cfg := testSettings()
	result := classify.Result{MediaType: media.Unknown, Category: "finance", Confidence: 0.99}
	outcome := Decide("/watch/blob.xyz", result, cfg, testCategories())
	if outcome.Action == ActionMove {
		t.Fatalf("unknown media moved: %+v", outcome)
	}
}

func TestMatchCategoryNameBeatsExtension(t *testing.T) {
	categories := testCategories()
	// "scans" matches by name even though .pdf would also match "finance"
	// by extension first.
	result := classify.Result{MediaType: media.Text, Category: "Scans", Confidence: 0.9}
	category := MatchCategory("/watch/scan-001.pdf", result, categories)
	if category == nil || category.Name != "scans" {
		t.Fatalf("match = %+v, want scans", category)
	}
}

func TestMatchCategoryExtensionFallback(t *testing.T) {
	categories := testCategories()
	// The guessed name is unregistered, so the earliest category that
	// registered .pdf wins.
	result := classify.Result{MediaType: media.Text, Category: "paperwork", Confidence: 0.9}
	category := MatchCategory("/watch/statement.pdf", result, categories)
	if category == nil || category.Name != "finance" {
		t.Fatalf("match = %+v, want finance", category)
	}
}

func TestDecideUnmatchedCategoryFallsBack(t *testing.T) {
	cfg := testSettings()
	result := classify.Result{MediaType: media.Audio, Category: "podcasts", Confidence: 0.95}
	outcome := Decide("/watch/episode.ogg", result, cfg, testCategories())
	if outcome.Action != ActionSkip {
		t.Fatalf("action = %q, want skip", outcome.Action)
	}
}
