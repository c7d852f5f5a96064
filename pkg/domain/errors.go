package domain

import "errors"

// Error taxonomy for workflow operations. Callers branch with errors.Is;
// wrapped messages carry the specifics.
var (
	// ErrNotFound marks a referenced document, stage or deadline that does
	// not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidState marks an operation forbidden by the current state of
	// the record, such as advancing a document with no current stage or
	// signing an already-signed document.
	ErrInvalidState = errors.New("invalid state")

	// ErrUnauthorized marks an actor lacking the specific elevated
	// capability an operation requires.
	ErrUnauthorized = errors.New("unauthorized")
)
