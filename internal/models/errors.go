package models

import "errors"

// Domain error taxonomy. Services wrap these with detail via fmt.Errorf and
// %w; handlers map them to HTTP statuses.
var (
	// ErrNotFound signals a referenced record that does not exist or is
	// inactive.
	ErrNotFound = errors.New("not found")

	// ErrValidation signals malformed input. Nothing is written when it is
	// returned.
	ErrValidation = errors.New("validation failed")

	// ErrJobClosed signals an edit attempt on a completed or cancelled job.
	ErrJobClosed = errors.New("job is closed")

	// ErrNotAllowed signals an operation the acting user may not perform.
	ErrNotAllowed = errors.New("not allowed")
)
