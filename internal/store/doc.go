// Package store persists all engine state in a single SQLite database:
// watched folder registrations, destination categories, the classification
// cache, movement history, and bulk job state. The schema is embedded and
// created on first open; a version table guards against running against a
// database from a different release.
package store
