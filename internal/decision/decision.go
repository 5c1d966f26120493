// Package decision applies the threshold policy to a classification result.
// It is pure: given a result, the current settings, and the registered
// categories, it returns what should happen to the file without touching
// the filesystem or the database.
package decision

import (
	"fmt"
	"path/filepath"
	"strings"

	"shelve/internal/classify"
	"shelve/internal/settings"
	"shelve/internal/store"
)

// Action is what the engine should do with a file.
type Action string

const (
	ActionMove   Action = "move"
	ActionSkip   Action = "skip"
	ActionReview Action = "review"
)

// Outcome is a decided disposition for one file.
type Outcome struct {
	Action   Action
	Category *store.Category
	Reason   string
}

// Decide maps a classification to an outcome. A file moves only when its
// confidence, scaled to a percentage, meets the threshold for its media type
// AND the guess resolves to a registered category. Everything else follows
// the fallback behavior.
func Decide(path string, result classify.Result, cfg settings.Settings, categories []*store.Category) Outcome {
	threshold := cfg.ThresholdFor(result.MediaType)
	confidencePct := result.Confidence * 100

	if confidencePct < float64(threshold) {
		return fallbackOutcome(cfg, fmt.Sprintf("confidence %.0f%% below %s threshold %d%%", confidencePct, result.MediaType, threshold))
	}

	category := MatchCategory(path, result, categories)
	if category == nil {
		return fallbackOutcome(cfg, fmt.Sprintf("no registered category matches %q", result.Category))
	}

	return Outcome{
		Action:   ActionMove,
		Category: category,
		Reason:   fmt.Sprintf("confidence %.0f%% meets %s threshold %d%%", confidencePct, result.MediaType, threshold),
	}
}

func fallbackOutcome(cfg settings.Settings, reason string) Outcome {
	if cfg.Fallback == settings.FallbackReview {
		return Outcome{Action: ActionReview, Reason: reason}
	}
	return Outcome{Action: ActionSkip, Reason: reason}
}

// MatchCategory resolves a classification to a registered category. A
// case-folded name match wins over an extension match; within each kind the
// earliest-registered category wins. Categories arrive in registration
// order from the store, so the first hit is the earliest.
func MatchCategory(path string, result classify.Result, categories []*store.Category) *store.Category {
	guessed := strings.ToLower(strings.TrimSpace(result.Category))
	if guessed != "" {
		for _, category := range categories {
			if strings.ToLower(category.Name) == guessed {
				return category
			}
		}
	}
	return matchByExtension(path, categories)
}

func matchByExtension(path string, categories []*store.Category) *store.Category {
	ext := strings.ToLower(filepath.Ext(path))
	if ext == "" {
		return nil
	}
	for _, category := range categories {
		for _, registered := range category.Extensions {
			if registered == ext {
				return category
			}
		}
	}
	return nil
}
