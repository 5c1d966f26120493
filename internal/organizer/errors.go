package organizer

import (
	"errors"
	"fmt"
)

// ErrConflict is returned when an undo cannot be applied, for example when
// the moved file is gone from its destination or the entry was already
// undone.
var ErrConflict = errors.New("conflict")

// MoveErrorKind classifies a failed move.
type MoveErrorKind string

const (
	// SourceMissing indicates the file to move no longer exists.
	SourceMissing MoveErrorKind = "source_missing"
	// PermissionDenied indicates insufficient permissions on either side.
	PermissionDenied MoveErrorKind = "permission_denied"
	// CollisionUnresolved indicates the numeric-suffix search gave up.
	CollisionUnresolved MoveErrorKind = "collision_unresolved"
	// TransferFailed covers I/O failures during the move or copy.
	TransferFailed MoveErrorKind = "transfer_failed"
)

// MoveError describes why a move failed. No Movement is recorded when one
// is returned.
type MoveError struct {
	Kind MoveErrorKind
	Path string
	Err  error
}

func (e *MoveError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Path, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Path)
}

func (e *MoveError) Unwrap() error {
	return e.Err
}

func moveError(kind MoveErrorKind, path string, err error) *MoveError {
	return &MoveError{Kind: kind, Path: path, Err: err}
}
