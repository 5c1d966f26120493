package watcher

import (
	"sync"
	"time"
)

// suppressTTL is how long a suppressed path stays ignored. Long enough to
// outlive the debounce window plus the dispatch scan, short enough that a
// user re-dropping the same file later is picked up again.
const suppressTTL = 30 * time.Second

// Suppressor tracks paths the engine itself writes so watch loops do not
// re-ingest the engine's own output. Safe for concurrent use.
type Suppressor struct {
	mu    sync.Mutex
	paths map[string]time.Time
	now   func() time.Time
}

// NewSuppressor builds an empty suppressor.
func NewSuppressor() *Suppressor {
	return &Suppressor{
		paths: make(map[string]time.Time),
		now:   time.Now,
	}
}

// Suppress marks a path as engine-touched for the TTL.
func (s *Suppressor) Suppress(path string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.paths[path] = s.now().Add(suppressTTL)
}

// ShouldIgnore reports whether a path is currently suppressed. Expired
// entries are dropped as they are seen.
func (s *Suppressor) ShouldIgnore(path string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	expiry, ok := s.paths[path]
	if !ok {
		return false
	}
	if s.now().After(expiry) {
		delete(s.paths, path)
		return false
	}
	return true
}
