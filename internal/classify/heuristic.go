package classify

import (
	"context"
	"path/filepath"
	"strings"

	"shelve/internal/media"
)

// HeuristicModel is the built-in, fully local model. It guesses a category
// from filename tokens and the media family, with confidence reflecting how
// specific the signal was. It never errors and ignores the context, since it
// does no I/O.
type HeuristicModel struct{}

// NewHeuristicModel returns the default local model.
func NewHeuristicModel() *HeuristicModel {
	return &HeuristicModel{}
}

type keywordRule struct {
	tokens     []string
	category   string
	confidence float64
}

// Rules are checked in order; the first token match wins. Stronger, more
// specific tokens come first so "bank-statement-scan.pdf" lands in finance
// rather than scans.
var keywordRules = map[media.Type][]keywordRule{
	media.Text: {
		{[]string{"invoice", "receipt", "statement", "bill"}, "finance", 0.93},
		{[]string{"resume", "cv", "cover-letter", "cover_letter"}, "career", 0.9},
		{[]string{"contract", "agreement", "lease"}, "legal", 0.9},
		{[]string{"scan", "scanned"}, "scans", 0.82},
		{[]string{"notes", "note", "journal"}, "notes", 0.86},
		{[]string{"report", "summary", "minutes"}, "reports", 0.85},
	},
	media.Image: {
		{[]string{"screenshot", "screen-shot", "screen_shot"}, "screenshots", 0.95},
		{[]string{"img_", "dsc_", "dscn", "pxl_", "dcim"}, "photos", 0.9},
		{[]string{"wallpaper"}, "wallpapers", 0.9},
		{[]string{"meme"}, "memes", 0.85},
		{[]string{"logo", "icon"}, "design", 0.82},
	},
	media.Audio: {
		{[]string{"podcast", "episode"}, "podcasts", 0.9},
		{[]string{"voicemail", "recording", "memo"}, "recordings", 0.86},
		{[]string{"ringtone"}, "ringtones", 0.85},
	},
	media.Video: {
		{[]string{"screencast", "screen-recording", "screen_recording"}, "screencasts", 0.9},
		{[]string{"tutorial", "lecture", "course"}, "tutorials", 0.85},
		{[]string{"trailer"}, "trailers", 0.82},
	},
}

// Fallback category per media family when no token matches. The confidence
// here is deliberately modest so unrecognized files sit near the default
// thresholds instead of sailing past them.
var familyDefaults = map[media.Type]Guess{
	media.Text:  {Category: "documents", Confidence: 0.78},
	media.Image: {Category: "photos", Confidence: 0.72},
	media.Audio: {Category: "music", Confidence: 0.68},
	media.Video: {Category: "videos", Confidence: 0.6},
}

func (m *HeuristicModel) Classify(_ context.Context, path string, mediaType media.Type) (Guess, error) {
	name := strings.ToLower(filepath.Base(path))
	for _, rule := range keywordRules[mediaType] {
		for _, token := range rule.tokens {
			if strings.Contains(name, token) {
				return Guess{
					Category:   rule.category,
					Confidence: rule.confidence,
					Summary:    "filename token " + token,
				}, nil
			}
		}
	}
	if guess, ok := familyDefaults[mediaType]; ok {
		guess.Summary = "media family default"
		return guess, nil
	}
	return Guess{Confidence: 0, Summary: "unrecognized media"}, nil
}
