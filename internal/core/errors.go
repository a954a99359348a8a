package core

import (
	"errors"
	"fmt"

	"carveout/pkg/domain"
)

// Command errors
var (
	// ErrStaleStroke indicates a command referenced a stroke that no longer exists.
	ErrStaleStroke = errors.New("stroke no longer exists")

	// ErrUnknownCommand indicates a persisted command carries a tag this build does not know.
	ErrUnknownCommand = errors.New("unknown command type")

	// ErrEmptySelection indicates a multi-stroke command was built without ids.
	ErrEmptySelection = errors.New("command has no strokes")
)

// Protocol errors
var (
	// ErrNoSuchBranch indicates a branch index outside the head's children.
	ErrNoSuchBranch = errors.New("no such branch")

	// ErrCorruptProtocol indicates a decoded protocol tree violates its structural invariants.
	ErrCorruptProtocol = errors.New("corrupt protocol tree")
)

// Persistence errors
var (
	// ErrUnsupportedVersion indicates a document written by an unknown format version.
	ErrUnsupportedVersion = errors.New("unsupported document version")
)

// StaleStrokeError carries the id that could not be resolved.
type StaleStrokeError struct {
	ID domain.StrokeID
}

func (e StaleStrokeError) Error() string {
	return fmt.Sprintf("stroke %s: %v", e.ID, ErrStaleStroke)
}

// Unwrap allows errors.Is(err, ErrStaleStroke).
func (e StaleStrokeError) Unwrap() error { return ErrStaleStroke }
