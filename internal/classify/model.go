package classify

import (
	"context"

	"shelve/internal/media"
)

// Guess is a model's raw answer for a single file: a suggested category name
// and how sure the model is, on a 0.0 to 1.0 scale.
type Guess struct {
	Category   string
	Confidence float64
	Summary    string
}

// Model produces a category guess for a file. Implementations must respect
// the context deadline; the classifier bounds every call with a timeout.
type Model interface {
	Classify(ctx context.Context, path string, mediaType media.Type) (Guess, error)
}
