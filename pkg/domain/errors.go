package domain

import (
	"errors"
	"fmt"
)

// ErrHistoryNotFound is returned when no persisted history exists for a document ID.
var ErrHistoryNotFound = errors.New("history not found")

// ErrMissingReference is returned when a replayed record refers to an entity, connector
// or widget that the document does not contain.
var ErrMissingReference = errors.New("missing reference")

// ErrCorruptHistory is returned when a persisted history cannot be turned back into a stack.
var ErrCorruptHistory = errors.New("corrupt history")

// Document-side lookup failures.
var (
	ErrUnknownEntity    = errors.New("unknown entity")
	ErrUnknownConnector = errors.New("unknown connector")
	ErrUnknownWidget    = errors.New("unknown widget")
	ErrEntityExists     = errors.New("entity already exists")
)

// ReferenceKind names what a MissingReferenceError points at.
type ReferenceKind string

const (
	RefEntity    ReferenceKind = "entity"
	RefConnector ReferenceKind = "connector"
	RefWidget    ReferenceKind = "widget"
)

// MissingReferenceError describes the first unresolved reference hit during replay.
type MissingReferenceError struct {
	Kind ReferenceKind
	Key  string
	// Op is the record kind being replayed when the reference was checked.
	Op string
}

func (e *MissingReferenceError) Error() string {
	return fmt.Sprintf("%s: %s %q does not exist (while replaying %s)", ErrMissingReference, e.Kind, e.Key, e.Op)
}

// Unwrap lets errors.Is match ErrMissingReference.
func (e *MissingReferenceError) Unwrap() error {
	return ErrMissingReference
}
