package decision

import (
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"shelve/internal/classify"
	"shelve/internal/media"
	"shelve/internal/settings"
	"shelve/internal/store"
)

func genMediaType() gopter.Gen {
	return gen.OneConstOf(media.Text, media.Image, media.Audio, media.Video, media.Unknown)
}

func genConfidence() gopter.Gen {
	return gen.Float64Range(0, 1)
}

func genThreshold() gopter.Gen {
	return gen.IntRange(0, 100)
}

func TestDecisionProperties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200

	properties := gopter.NewProperties(parameters)

	categories := []*store.Category{
		{ID: 1, Name: "stuff", Destination: "/sorted/stuff"},
	}

	properties.Property("a move happens only at or above the threshold", prop.ForAll(
		func(mediaType media.Type, confidence float64, threshold int) bool {
			cfg := settings.Settings{
				TextThreshold:  threshold,
				ImageThreshold: threshold,
				AudioThreshold: threshold,
				VideoThreshold: threshold,
				Fallback:       settings.FallbackSkip,
				MaxFileSize:    1,
			}
			result := classify.Result{MediaType: mediaType, Category: "stuff", Confidence: confidence}
			outcome := Decide("/watch/file.bin", result, cfg, categories)

			meets := confidence*100 >= float64(cfg.ThresholdFor(mediaType))
			if outcome.Action == ActionMove {
				return meets && outcome.Category != nil
			}
			return !meets || outcome.Category == nil
		},
		genMediaType(), genConfidence(), genThreshold(),
	))

	properties.Property("fallback outcomes follow the configured behavior", prop.ForAll(
		func(confidence float64, review bool) bool {
			fallback := settings.FallbackSkip
			if review {
				fallback = settings.FallbackReview
			}
			cfg := settings.Settings{
				TextThreshold: 100,
				Fallback:      fallback,
				MaxFileSize:   1,
			}
			// Threshold 100 with confidence < 1.0 always falls back.
			if confidence >= 1.0 {
				return true
			}
			result := classify.Result{MediaType: media.Text, Category: "stuff", Confidence: confidence}
			outcome := Decide("/watch/file.txt", result, cfg, categories)
			if review {
				return outcome.Action == ActionReview
			}
			return outcome.Action == ActionSkip
		},
		genConfidence(), gen.Bool(),
	))

	properties.TestingRun(t)
}
