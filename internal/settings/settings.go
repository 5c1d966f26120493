// Package settings models the engine's runtime tuning as an immutable value.
// Components receive a Settings snapshot per operation; a Holder swaps the
// current snapshot atomically when settings are reloaded, so no component
// ever observes a half-updated configuration.
package settings

import (
	"fmt"
	"strings"
	"sync/atomic"

	"shelve/internal/config"
	"shelve/internal/media"
)

// Fallback selects what happens to a file whose confidence misses its threshold.
type Fallback string

const (
	FallbackSkip   Fallback = "skip"
	FallbackReview Fallback = "review"
)

// ParseFallback converts a string into a known Fallback.
func ParseFallback(value string) (Fallback, bool) {
	switch Fallback(strings.ToLower(strings.TrimSpace(value))) {
	case FallbackSkip:
		return FallbackSkip, true
	case FallbackReview:
		return FallbackReview, true
	default:
		return "", false
	}
}

// Settings is the immutable engine configuration consulted on every file.
// Thresholds are whole percentages (0-100) compared against confidence*100.
type Settings struct {
	TextThreshold  int
	ImageThreshold int
	AudioThreshold int
	VideoThreshold int

	Fallback Fallback

	TextModelEnabled  bool
	ImageModelEnabled bool
	AudioModelEnabled bool
	VideoModelEnabled bool

	MaxFileSize      int64 // bytes; larger files are skipped
	SkipHiddenFiles  bool
	PreserveMetadata bool
	CreateBackups    bool
}

// FromConfig builds the seed settings applied when the settings store is empty.
func FromConfig(cfg *config.Config) Settings {
	fallback, ok := ParseFallback(cfg.Engine.FallbackBehavior)
	if !ok {
		fallback = FallbackSkip
	}
	return Settings{
		TextThreshold:     cfg.Engine.TextThreshold,
		ImageThreshold:    cfg.Engine.ImageThreshold,
		AudioThreshold:    cfg.Engine.AudioThreshold,
		VideoThreshold:    cfg.Engine.VideoThreshold,
		Fallback:          fallback,
		TextModelEnabled:  cfg.Engine.TextModelEnabled,
		ImageModelEnabled: cfg.Engine.ImageModelEnabled,
		AudioModelEnabled: cfg.Engine.AudioModelEnabled,
		VideoModelEnabled: cfg.Engine.VideoModelEnabled,
		MaxFileSize:       cfg.Engine.MaxFileSizeMB * 1024 * 1024,
		SkipHiddenFiles:   cfg.Engine.SkipHiddenFiles,
		PreserveMetadata:  cfg.Engine.PreserveMetadata,
		CreateBackups:     cfg.Engine.CreateBackups,
	}
}

// ThresholdFor returns the confidence threshold for a media type. Unknown
// media carries the maximum threshold so it always falls through to the
// fallback policy.
func (s Settings) ThresholdFor(t media.Type) int {
	switch t {
	case media.Text:
		return s.TextThreshold
	case media.Image:
		return s.ImageThreshold
	case media.Audio:
		return s.AudioThreshold
	case media.Video:
		return s.VideoThreshold
	default:
		return 100
	}
}

// ModelEnabledFor reports whether the inference model for a media type is enabled.
func (s Settings) ModelEnabledFor(t media.Type) bool {
	switch t {
	case media.Text:
		return s.TextModelEnabled
	case media.Image:
		return s.ImageModelEnabled
	case media.Audio:
		return s.AudioModelEnabled
	case media.Video:
		return s.VideoModelEnabled
	default:
		return false
	}
}

// Validate reports settings values that cannot be applied.
func (s Settings) Validate() error {
	for _, t := range media.AllTypes() {
		threshold := s.ThresholdFor(t)
		if threshold < 0 || threshold > 100 {
			return fmt.Errorf("settings: %s threshold must be between 0 and 100, got %d", t, threshold)
		}
	}
	if _, ok := ParseFallback(string(s.Fallback)); !ok {
		return fmt.Errorf("settings: unknown fallback behavior %q", s.Fallback)
	}
	if s.MaxFileSize <= 0 {
		return fmt.Errorf("settings: max file size must be positive, got %d", s.MaxFileSize)
	}
	return nil
}

// Holder publishes the current Settings snapshot to concurrent readers.
type Holder struct {
	current atomic.Pointer[Settings]
}

// NewHolder constructs a holder seeded with the given settings.
func NewHolder(initial Settings) *Holder {
	h := &Holder{}
	h.current.Store(&initial)
	return h
}

// Current returns the live settings snapshot.
func (h *Holder) Current() Settings {
	return *h.current.Load()
}

// Replace swaps in a new snapshot after validating it.
func (h *Holder) Replace(next Settings) error {
	if err := next.Validate(); err != nil {
		return err
	}
	h.current.Store(&next)
	return nil
}
